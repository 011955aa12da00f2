package config

import (
	"time"

	"github.com/golang/glog"
	"github.com/prebid/prebid-mediation/config"
	"github.com/prebid/prebid-mediation/metrics"
	prometheusmetrics "github.com/prebid/prebid-mediation/metrics/prometheus"
	"github.com/prebid/prebid-mediation/openrtb_ext"
	gometrics "github.com/rcrowley/go-metrics"
	influxdb "github.com/vrischmann/go-metrics-influxdb"
)

// NewMetricsEngine reads the configuration and returns the appropriate metrics engine
// for this instance.
func NewMetricsEngine(cfg *config.Configuration, networks []openrtb_ext.BidderName) *DetailedMetricsEngine {
	// Create a list of metrics engines to use.
	// Capacity of 2, as unlikely to have more than 2 metrics backends, and in the case
	// of 1 we won't use the list so it will be garbage collected.
	engineList := make(MultiMetricsEngine, 0, 2)
	returnEngine := DetailedMetricsEngine{}

	if cfg.Metrics.Influxdb.Host != "" {
		// Currently use go-metrics as the metrics piece for influx
		returnEngine.GoMetrics = metrics.NewMetrics(gometrics.NewPrefixedRegistry("mediation."), networks)
		engineList = append(engineList, returnEngine.GoMetrics)
		// Set up the Influx logger
		go influxdb.InfluxDB(
			returnEngine.GoMetrics.MetricsRegistry,                             // metrics registry
			time.Second*time.Duration(cfg.Metrics.Influxdb.MetricSendInterval), // Configurable interval
			cfg.Metrics.Influxdb.Host,                                          // the InfluxDB url
			cfg.Metrics.Influxdb.Database,                                      // your InfluxDB database
			cfg.Metrics.Influxdb.Measurement,                                   // your measurement
			cfg.Metrics.Influxdb.Username,                                      // your InfluxDB user
			cfg.Metrics.Influxdb.Password,                                      // your InfluxDB password
			cfg.Metrics.Influxdb.AlignTimestamps,                               // align timestamps
		)
		glog.Infof("Exporting metrics to InfluxDB at %s every %ds", cfg.Metrics.Influxdb.Host, cfg.Metrics.Influxdb.MetricSendInterval)
	}
	if cfg.Metrics.Prometheus.Port != 0 {
		// Set up the Prometheus metrics.
		returnEngine.PrometheusMetrics = prometheusmetrics.NewMetrics(cfg.Metrics.Prometheus, networks)
		engineList = append(engineList, returnEngine.PrometheusMetrics)
	}

	// Now return the proper metrics engine
	if len(engineList) > 1 {
		returnEngine.MetricsEngine = &engineList
	} else if len(engineList) == 1 {
		returnEngine.MetricsEngine = engineList[0]
	} else {
		returnEngine.MetricsEngine = &DummyMetricsEngine{}
	}

	return &returnEngine
}

// DetailedMetricsEngine is a MultiMetricsEngine that preserves links to underlying metrics engines.
type DetailedMetricsEngine struct {
	metrics.MetricsEngine
	GoMetrics         *metrics.Metrics
	PrometheusMetrics *prometheusmetrics.Metrics
}

// MultiMetricsEngine logs metrics to multiple metrics databases. This is useful in transitioning
// an instance from one engine to another, you can run both in parallel to verify stats match up.
type MultiMetricsEngine []metrics.MetricsEngine

// RecordNewConnection across all engines
func (me *MultiMetricsEngine) RecordNewConnection() {
	for _, thisME := range *me {
		thisME.RecordNewConnection()
	}
}

// RecordClosedConnection across all engines
func (me *MultiMetricsEngine) RecordClosedConnection() {
	for _, thisME := range *me {
		thisME.RecordClosedConnection()
	}
}

// RecordLoadRequest across all engines
func (me *MultiMetricsEngine) RecordLoadRequest(labels metrics.LoadLabels) {
	for _, thisME := range *me {
		thisME.RecordLoadRequest(labels)
	}
}

// RecordLoadTime across all engines
func (me *MultiMetricsEngine) RecordLoadTime(labels metrics.LoadLabels, length time.Duration) {
	for _, thisME := range *me {
		thisME.RecordLoadTime(labels, length)
	}
}

// RecordDroppedCallback across all engines
func (me *MultiMetricsEngine) RecordDroppedCallback(network openrtb_ext.BidderName, callback metrics.CallbackType) {
	for _, thisME := range *me {
		thisME.RecordDroppedCallback(network, callback)
	}
}

// RecordAdEvent across all engines
func (me *MultiMetricsEngine) RecordAdEvent(network openrtb_ext.BidderName, event metrics.AdEvent) {
	for _, thisME := range *me {
		thisME.RecordAdEvent(network, event)
	}
}

// DummyMetricsEngine is a Noop metrics engine in case no metrics are configured. (may also be useful for tests)
type DummyMetricsEngine struct{}

// RecordNewConnection as a noop
func (me *DummyMetricsEngine) RecordNewConnection() {
}

// RecordClosedConnection as a noop
func (me *DummyMetricsEngine) RecordClosedConnection() {
}

// RecordLoadRequest as a noop
func (me *DummyMetricsEngine) RecordLoadRequest(labels metrics.LoadLabels) {
}

// RecordLoadTime as a noop
func (me *DummyMetricsEngine) RecordLoadTime(labels metrics.LoadLabels, length time.Duration) {
}

// RecordDroppedCallback as a noop
func (me *DummyMetricsEngine) RecordDroppedCallback(network openrtb_ext.BidderName, callback metrics.CallbackType) {
}

// RecordAdEvent as a noop
func (me *DummyMetricsEngine) RecordAdEvent(network openrtb_ext.BidderName, event metrics.AdEvent) {
}
