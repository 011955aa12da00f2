package metrics

import (
	"fmt"
	"time"

	"github.com/golang/glog"
	"github.com/prebid/prebid-mediation/openrtb_ext"
	"github.com/rcrowley/go-metrics"
)

// Metrics is the go-metrics implementation of MetricsEngine
type Metrics struct {
	MetricsRegistry   metrics.Registry
	ConnectionCounter metrics.Counter
	LoadTimer         metrics.Timer

	NetworkMetrics map[openrtb_ext.BidderName]*NetworkMetrics
}

// NetworkMetrics houses the metrics for a particular ad network
type NetworkMetrics struct {
	LoadMeters       map[LoadStatus]metrics.Meter
	LoadTimer        metrics.Timer
	DroppedCallbacks map[CallbackType]metrics.Meter
	AdEvents         map[AdEvent]metrics.Meter
}

// NewBlankMetrics creates a new Metrics object with all blank metrics object. This may also be useful for
// testing routines to ensure that no metrics are written anywhere.
func NewBlankMetrics(registry metrics.Registry, networks []openrtb_ext.BidderName) *Metrics {
	newMetrics := &Metrics{
		MetricsRegistry:   registry,
		ConnectionCounter: metrics.NilCounter{},
		LoadTimer:         &metrics.NilTimer{},
		NetworkMetrics:    make(map[openrtb_ext.BidderName]*NetworkMetrics, len(networks)),
	}
	for _, n := range networks {
		newMetrics.NetworkMetrics[n] = makeBlankNetworkMetrics()
	}
	return newMetrics
}

// NewMetrics creates a new Metrics object with needed metrics defined.
func NewMetrics(registry metrics.Registry, networks []openrtb_ext.BidderName) *Metrics {
	newMetrics := NewBlankMetrics(registry, networks)
	newMetrics.ConnectionCounter = metrics.GetOrRegisterCounter("active_connections", registry)
	newMetrics.LoadTimer = metrics.GetOrRegisterTimer("load_time", registry)
	for _, n := range networks {
		registerNetworkMetrics(registry, string(n), newMetrics.NetworkMetrics[n])
	}
	return newMetrics
}

func makeBlankNetworkMetrics() *NetworkMetrics {
	blankMeter := &metrics.NilMeter{}
	nm := &NetworkMetrics{
		LoadMeters:       make(map[LoadStatus]metrics.Meter),
		LoadTimer:        &metrics.NilTimer{},
		DroppedCallbacks: make(map[CallbackType]metrics.Meter),
		AdEvents:         make(map[AdEvent]metrics.Meter),
	}
	for _, s := range LoadStatuses() {
		nm.LoadMeters[s] = blankMeter
	}
	for _, c := range CallbackTypes() {
		nm.DroppedCallbacks[c] = blankMeter
	}
	for _, e := range AdEvents() {
		nm.AdEvents[e] = blankMeter
	}
	return nm
}

func registerNetworkMetrics(registry metrics.Registry, network string, nm *NetworkMetrics) {
	for _, s := range LoadStatuses() {
		nm.LoadMeters[s] = metrics.GetOrRegisterMeter(fmt.Sprintf("network.%s.loads.%s", network, s), registry)
	}
	nm.LoadTimer = metrics.GetOrRegisterTimer(fmt.Sprintf("network.%s.load_time", network), registry)
	for _, c := range CallbackTypes() {
		nm.DroppedCallbacks[c] = metrics.GetOrRegisterMeter(fmt.Sprintf("network.%s.dropped_callbacks.%s", network, c), registry)
	}
	for _, e := range AdEvents() {
		nm.AdEvents[e] = metrics.GetOrRegisterMeter(fmt.Sprintf("network.%s.events.%s", network, e), registry)
	}
}

func (me *Metrics) getNetworkMetrics(network openrtb_ext.BidderName) (*NetworkMetrics, bool) {
	nm, ok := me.NetworkMetrics[network]
	if !ok {
		glog.Errorf("Trying to record metrics for unknown network %s", network)
	}
	return nm, ok
}

func (me *Metrics) RecordNewConnection() {
	me.ConnectionCounter.Inc(1)
}

func (me *Metrics) RecordClosedConnection() {
	me.ConnectionCounter.Dec(1)
}

func (me *Metrics) RecordLoadRequest(labels LoadLabels) {
	if nm, ok := me.getNetworkMetrics(labels.Network); ok {
		if meter, ok := nm.LoadMeters[labels.Status]; ok {
			meter.Mark(1)
		}
	}
}

func (me *Metrics) RecordLoadTime(labels LoadLabels, length time.Duration) {
	me.LoadTimer.Update(length)
	if nm, ok := me.getNetworkMetrics(labels.Network); ok {
		nm.LoadTimer.Update(length)
	}
}

func (me *Metrics) RecordDroppedCallback(network openrtb_ext.BidderName, callback CallbackType) {
	if nm, ok := me.getNetworkMetrics(network); ok {
		if meter, ok := nm.DroppedCallbacks[callback]; ok {
			meter.Mark(1)
		}
	}
}

func (me *Metrics) RecordAdEvent(network openrtb_ext.BidderName, event AdEvent) {
	if nm, ok := me.getNetworkMetrics(network); ok {
		if meter, ok := nm.AdEvents[event]; ok {
			meter.Mark(1)
		}
	}
}
