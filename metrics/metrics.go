package metrics

import (
	"time"

	"github.com/prebid/prebid-mediation/errortypes"
	"github.com/prebid/prebid-mediation/openrtb_ext"
)

// LoadLabels defines the labels that can be attached to ad load metrics.
type LoadLabels struct {
	Network openrtb_ext.BidderName
	Status  LoadStatus
}

// LoadStatus : The outcome of one ad load request
type LoadStatus string

// CallbackType : Which network signal arrived after the request had finished
type CallbackType string

// AdEvent : Presentation events reported by a loaded ad
type AdEvent string

// Load outcomes
const (
	LoadStatusOK             LoadStatus = "ok"
	LoadStatusBadInput       LoadStatus = "badinput"
	LoadStatusNoFill         LoadStatus = "nofill"
	LoadStatusTimeout        LoadStatus = "timeout"
	LoadStatusPlacementInUse LoadStatus = "placementinuse"
	LoadStatusErr            LoadStatus = "err"
)

func LoadStatuses() []LoadStatus {
	return []LoadStatus{
		LoadStatusOK,
		LoadStatusBadInput,
		LoadStatusNoFill,
		LoadStatusTimeout,
		LoadStatusPlacementInUse,
		LoadStatusErr,
	}
}

// LoadStatusFromError classifies a load failure. A nil error is LoadStatusOK.
func LoadStatusFromError(err error) LoadStatus {
	if err == nil {
		return LoadStatusOK
	}
	switch errortypes.ReadCode(err) {
	case errortypes.BadInputErrorCode:
		return LoadStatusBadInput
	case errortypes.NoFillErrorCode:
		return LoadStatusNoFill
	case errortypes.TimeoutErrorCode:
		return LoadStatusTimeout
	case errortypes.PlacementInUseErrorCode:
		return LoadStatusPlacementInUse
	default:
		return LoadStatusErr
	}
}

// Network callbacks
const (
	CallbackLoaded  CallbackType = "loaded"
	CallbackFailed  CallbackType = "failed"
	CallbackTimeout CallbackType = "timeout"
)

func CallbackTypes() []CallbackType {
	return []CallbackType{
		CallbackLoaded,
		CallbackFailed,
		CallbackTimeout,
	}
}

// Presentation events
const (
	AdEventPresent       AdEvent = "present"
	AdEventPresentFailed AdEvent = "present_failed"
	AdEventImpression    AdEvent = "impression"
	AdEventReward        AdEvent = "reward"
	AdEventClick         AdEvent = "click"
	AdEventDismiss       AdEvent = "dismiss"
	AdEventDiscard       AdEvent = "discard"
)

func AdEvents() []AdEvent {
	return []AdEvent{
		AdEventPresent,
		AdEventPresentFailed,
		AdEventImpression,
		AdEventReward,
		AdEventClick,
		AdEventDismiss,
		AdEventDiscard,
	}
}

// MetricsEngine is a generic interface to record mediation metrics into the desired backend.
// RecordLoadRequest and RecordLoadTime fire once per ad request. RecordDroppedCallback fires for
// every network signal ignored because the request had already completed.
type MetricsEngine interface {
	RecordNewConnection()
	RecordClosedConnection()
	RecordLoadRequest(labels LoadLabels)
	RecordLoadTime(labels LoadLabels, length time.Duration)
	RecordDroppedCallback(network openrtb_ext.BidderName, callback CallbackType)
	RecordAdEvent(network openrtb_ext.BidderName, event AdEvent)
}
