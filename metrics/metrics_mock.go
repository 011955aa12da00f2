package metrics

import (
	"time"

	"github.com/prebid/prebid-mediation/openrtb_ext"
	"github.com/stretchr/testify/mock"
)

// MetricsEngineMock is mock for the MetricsEngine interface
type MetricsEngineMock struct {
	mock.Mock
}

// RecordNewConnection mock
func (me *MetricsEngineMock) RecordNewConnection() {
	me.Called()
}

// RecordClosedConnection mock
func (me *MetricsEngineMock) RecordClosedConnection() {
	me.Called()
}

// RecordLoadRequest mock
func (me *MetricsEngineMock) RecordLoadRequest(labels LoadLabels) {
	me.Called(labels)
}

// RecordLoadTime mock
func (me *MetricsEngineMock) RecordLoadTime(labels LoadLabels, length time.Duration) {
	me.Called(labels, length)
}

// RecordDroppedCallback mock
func (me *MetricsEngineMock) RecordDroppedCallback(network openrtb_ext.BidderName, callback CallbackType) {
	me.Called(network, callback)
}

// RecordAdEvent mock
func (me *MetricsEngineMock) RecordAdEvent(network openrtb_ext.BidderName, event AdEvent) {
	me.Called(network, event)
}
