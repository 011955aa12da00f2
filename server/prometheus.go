package server

import (
	"net/http"
	"strconv"

	"github.com/golang/glog"
	"github.com/prebid/prebid-mediation/config"
	metricsconfig "github.com/prebid/prebid-mediation/metrics/config"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const prometheusPath = "/metrics"

// newPrometheusServer exposes the mediation metrics for scraping at /metrics.
func newPrometheusServer(cfg *config.Configuration, engine *metricsconfig.DetailedMetricsEngine) *http.Server {
	if engine == nil || engine.PrometheusMetrics == nil {
		glog.Fatal("Prometheus metrics configured, but a Prometheus metrics engine was not found. Cannot set up a Prometheus listener.")
	}

	mux := http.NewServeMux()
	mux.Handle(prometheusPath, promhttp.HandlerFor(engine.PrometheusMetrics.Gatherer, promhttp.HandlerOpts{
		ErrorLog:            promErrorLog{},
		MaxRequestsInFlight: 5,
		Timeout:             cfg.Metrics.Prometheus.Timeout(),
	}))

	return &http.Server{
		Addr:    cfg.Host + ":" + strconv.Itoa(cfg.Metrics.Prometheus.Port),
		Handler: mux,
	}
}

// promErrorLog sends scrape failures to glog.
type promErrorLog struct{}

func (promErrorLog) Println(v ...interface{}) {
	glog.Warningln(v...)
}
