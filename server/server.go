package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/golang/glog"
	"github.com/prebid/prebid-mediation/config"
	"github.com/prebid/prebid-mediation/metrics"
	metricsconfig "github.com/prebid/prebid-mediation/metrics/config"
)

// Listen blocks forever, serving mediation requests on the given port. This will block forever, until the process is shut down.
func Listen(cfg *config.Configuration, handler http.Handler, adminHandler http.Handler, metricsEngine *metricsconfig.DetailedMetricsEngine) {
	stopSignals := make(chan os.Signal, 1)
	signal.Notify(stopSignals, syscall.SIGTERM, syscall.SIGINT)

	// Run the servers. Fan any process-stopper signals out to each server for graceful shutdowns.
	var stoppers []chan<- os.Signal
	done := make(chan struct{})

	start := func(server *http.Server, name string, engine metrics.MetricsEngine) bool {
		listener, err := newListener(server.Addr, name, engine)
		if err != nil {
			glog.Errorf("Error listening for TCP connections on %s: %v for %s server", server.Addr, err, name)
			return false
		}
		stopper := make(chan os.Signal)
		stoppers = append(stoppers, stopper)
		go shutdownAfterSignals(server, stopper, done)
		go runServer(server, name, listener)
		return true
	}

	if !start(newMainServer(cfg, handler), "Main", metricsEngine) {
		return
	}
	if cfg.AdminPort != 0 && !start(newAdminServer(cfg, adminHandler), "Admin", nil) {
		return
	}
	if cfg.Metrics.Prometheus.Port != 0 && !start(newPrometheusServer(cfg, metricsEngine), "Prometheus", nil) {
		return
	}

	wait(stopSignals, done, stoppers...)
}

func newAdminServer(cfg *config.Configuration, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:    cfg.Host + ":" + strconv.Itoa(cfg.AdminPort),
		Handler: handler,
	}
}

func newMainServer(cfg *config.Configuration, handler http.Handler) *http.Server {
	var serverHandler = handler
	if cfg.EnableGzip {
		serverHandler = gziphandler.GzipHandler(handler)
	}

	// WriteTimeout leaves room for a load that runs to its full timeout.
	return &http.Server{
		Addr:         cfg.Host + ":" + strconv.Itoa(cfg.Port),
		Handler:      serverHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Mediation.LoadTimeout() + 15*time.Second,
	}
}

func runServer(server *http.Server, name string, listener net.Listener) error {
	if server == nil {
		return errors.New("server is nil")
	}
	if listener == nil {
		return errors.New("listener is nil")
	}

	glog.Infof("%s server starting on: %s", name, server.Addr)
	err := server.Serve(listener)
	glog.Errorf("%s server quit with error: %v", name, err)
	return err
}

func newListener(address string, name string, engine metrics.MetricsEngine) (net.Listener, error) {
	ln, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("Error listening for TCP connections on %s: %v", address, err)
	}

	casted, ok := ln.(*net.TCPListener)
	if !ok {
		glog.Warning("net.Listen(\"tcp\", \"addr\") didn't return a TCPListener. Connections will not be monitored.")
		return ln, nil
	}

	if engine == nil {
		engine = &metricsconfig.DummyMetricsEngine{}
	}
	return &monitoredListener{TCPListener: casted, server: name, metrics: engine}, nil
}

func wait(inbound <-chan os.Signal, done <-chan struct{}, outbound ...chan<- os.Signal) {
	sig := <-inbound

	for i := 0; i < len(outbound); i++ {
		go sendSignal(outbound[i], sig)
	}

	for i := 0; i < len(outbound); i++ {
		<-done
	}
}

func shutdownAfterSignals(server *http.Server, stopper <-chan os.Signal, done chan<- struct{}) {
	sig := <-stopper

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var s struct{}
	glog.Infof("Stopping %s because of signal: %s", server.Addr, sig.String())
	if err := server.Shutdown(ctx); err != nil {
		glog.Errorf("Failed to shutdown %s: %v", server.Addr, err)
	}
	done <- s
}

func sendSignal(to chan<- os.Signal, sig os.Signal) {
	to <- sig
}
