package server

import (
	"net"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/prebid/prebid-mediation/metrics"
)

const keepAlivePeriod = 3 * time.Minute

// monitoredConn counts itself closed once, however many times Close is called.
type monitoredConn struct {
	net.Conn
	metrics metrics.MetricsEngine
	once    sync.Once
}

func (c *monitoredConn) Close() error {
	c.once.Do(c.metrics.RecordClosedConnection)
	return c.Conn.Close()
}

// monitoredListener reports the connections accepted by one named server to the metrics engine.
type monitoredListener struct {
	*net.TCPListener
	server  string
	metrics metrics.MetricsEngine
}

func (ln *monitoredListener) Accept() (net.Conn, error) {
	tc, err := ln.AcceptTCP()
	if err != nil {
		return nil, err
	}

	tc.SetKeepAlive(true)
	tc.SetKeepAlivePeriod(keepAlivePeriod)
	ln.metrics.RecordNewConnection()
	glog.V(3).Infof("%s server accepted a connection from %s", ln.server, tc.RemoteAddr())
	return &monitoredConn{Conn: tc, metrics: ln.metrics}, nil
}
