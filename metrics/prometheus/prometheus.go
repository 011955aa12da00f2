package prometheusmetrics

import (
	"time"

	"github.com/prebid/prebid-mediation/config"
	"github.com/prebid/prebid-mediation/metrics"
	"github.com/prebid/prebid-mediation/openrtb_ext"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics defines the Prometheus metrics backing the MetricsEngine implementation.
type Metrics struct {
	Registry *prometheus.Registry
	Gatherer prometheus.Gatherer

	connectionsOpened prometheus.Counter
	connectionsClosed prometheus.Counter
	connections       prometheus.Gauge

	loads            *prometheus.CounterVec
	loadsTimer       *prometheus.HistogramVec
	droppedCallbacks *prometheus.CounterVec
	adEvents         *prometheus.CounterVec
}

const (
	networkLabel  = "network"
	statusLabel   = "status"
	callbackLabel = "callback"
	eventLabel    = "event"
)

// NewMetrics initializes a new Prometheus metrics instance with preloaded label values.
func NewMetrics(cfg config.PrometheusMetrics, networks []openrtb_ext.BidderName) *Metrics {
	// Loads wait on a network round trip plus creative preparation, so the buckets reach further than a bid request.
	loadTimeBuckets := []float64{0.05, 0.1, 0.25, 0.5, 0.75, 1, 2, 3, 5, 10, 30}

	m := Metrics{}
	m.Registry = prometheus.NewRegistry()
	m.Gatherer = m.Registry

	m.connectionsOpened = newCounterWithoutLabels(cfg, m.Registry,
		"connections_opened",
		"Count of successful connections opened to the mediation server.")

	m.connectionsClosed = newCounterWithoutLabels(cfg, m.Registry,
		"connections_closed",
		"Count of successful connections closed to the mediation server.")

	m.connections = newGauge(cfg, m.Registry,
		"active_connections",
		"Current number of active (open) connections.")

	m.loads = newCounter(cfg, m.Registry,
		"loads",
		"Count of rewarded ad load requests by network and outcome.",
		[]string{networkLabel, statusLabel})

	m.loadsTimer = newHistogramVec(cfg, m.Registry,
		"load_time_seconds",
		"Seconds from a load request to its completion.",
		[]string{networkLabel, statusLabel},
		loadTimeBuckets)

	m.droppedCallbacks = newCounter(cfg, m.Registry,
		"dropped_callbacks",
		"Count of network callbacks ignored because the load had already completed.",
		[]string{networkLabel, callbackLabel})

	m.adEvents = newCounter(cfg, m.Registry,
		"ad_events",
		"Count of presentation events reported by loaded ads.",
		[]string{networkLabel, eventLabel})

	preloadLabelValues(&m, networks)

	return &m
}

func newCounter(cfg config.PrometheusMetrics, registry *prometheus.Registry, name, help string, labels []string) *prometheus.CounterVec {
	opts := prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      name,
		Help:      help,
	}
	counter := prometheus.NewCounterVec(opts, labels)
	registry.MustRegister(counter)
	return counter
}

func newCounterWithoutLabels(cfg config.PrometheusMetrics, registry *prometheus.Registry, name, help string) prometheus.Counter {
	opts := prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      name,
		Help:      help,
	}
	counter := prometheus.NewCounter(opts)
	registry.MustRegister(counter)
	return counter
}

func newGauge(cfg config.PrometheusMetrics, registry *prometheus.Registry, name, help string) prometheus.Gauge {
	opts := prometheus.GaugeOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      name,
		Help:      help,
	}
	gauge := prometheus.NewGauge(opts)
	registry.MustRegister(gauge)
	return gauge
}

func newHistogramVec(cfg config.PrometheusMetrics, registry *prometheus.Registry, name, help string, labels []string, buckets []float64) *prometheus.HistogramVec {
	opts := prometheus.HistogramOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	}
	histogram := prometheus.NewHistogramVec(opts, labels)
	registry.MustRegister(histogram)
	return histogram
}

func preloadLabelValues(m *Metrics, networks []openrtb_ext.BidderName) {
	for _, network := range networks {
		for _, status := range metrics.LoadStatuses() {
			labels := prometheus.Labels{networkLabel: string(network), statusLabel: string(status)}
			m.loads.With(labels)
			m.loadsTimer.With(labels)
		}
		for _, callback := range metrics.CallbackTypes() {
			m.droppedCallbacks.With(prometheus.Labels{networkLabel: string(network), callbackLabel: string(callback)})
		}
		for _, event := range metrics.AdEvents() {
			m.adEvents.With(prometheus.Labels{networkLabel: string(network), eventLabel: string(event)})
		}
	}
}

func (m *Metrics) RecordNewConnection() {
	m.connectionsOpened.Inc()
	m.connections.Inc()
}

func (m *Metrics) RecordClosedConnection() {
	m.connectionsClosed.Inc()
	m.connections.Dec()
}

func (m *Metrics) RecordLoadRequest(labels metrics.LoadLabels) {
	m.loads.With(resolveLoadLabels(labels)).Inc()
}

func (m *Metrics) RecordLoadTime(labels metrics.LoadLabels, length time.Duration) {
	m.loadsTimer.With(resolveLoadLabels(labels)).Observe(length.Seconds())
}

func (m *Metrics) RecordDroppedCallback(network openrtb_ext.BidderName, callback metrics.CallbackType) {
	m.droppedCallbacks.With(prometheus.Labels{
		networkLabel:  string(network),
		callbackLabel: string(callback),
	}).Inc()
}

func (m *Metrics) RecordAdEvent(network openrtb_ext.BidderName, event metrics.AdEvent) {
	m.adEvents.With(prometheus.Labels{
		networkLabel: string(network),
		eventLabel:   string(event),
	}).Inc()
}

func resolveLoadLabels(labels metrics.LoadLabels) prometheus.Labels {
	return prometheus.Labels{
		networkLabel: string(labels.Network),
		statusLabel:  string(labels.Status),
	}
}
