package adapters

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/prebid/prebid-mediation/errortypes"
)

// ErrorDomain is reported on every AdError this module hands to the host.
const ErrorDomain = "com.google.mediation.vungle"

// ServerParameters are the string settings the mediation platform delivers for one ad unit.
// Keys are not guaranteed to be present and values are not validated.
type ServerParameters map[string]string

// AdConfiguration is the snapshot the host hands an adapter for one ad request.
// It is consumed once by the adapter and then discarded.
type AdConfiguration struct {
	RequestID        string
	ServerParameters ServerParameters

	// NetworkExtras holds the publisher's network-specific settings. Each adapter
	// unmarshals it into its own openrtb_ext.ExtImp{Network} struct.
	NetworkExtras json.RawMessage

	Test bool
}

// Reward is what the user earns for watching a rewarded ad to completion.
type Reward struct {
	Type   string `json:"type"`
	Amount int    `json:"amount"`
}

// RewardedAd is the handle the host receives once an ad is ready to be shown.
type RewardedAd interface {
	ID() string
	PlacementID() string
	Price() float64
	// Markup returns the creative the host renders.
	Markup() string
	// Present plays the ad, reporting presentation and reward events to events.
	// A handle can be presented once.
	Present(ctx context.Context, events RewardedAdEvents) error
	// Discard gives the ad up without presenting it and frees its placement.
	// It reports false if the ad was already presented or discarded.
	Discard() bool
}

// RewardedAdEvents receives the presentation lifecycle of a RewardedAd.
type RewardedAdEvents interface {
	WillPresentFullScreenView()
	DidFailToPresent(err error)
	ReportImpression()
	DidStartVideo()
	DidEndVideo()
	DidRewardUser(reward Reward)
	ReportClick()
	DidDismissFullScreenView()
}

// CompletionHandler is invoked exactly once per ad request with the load outcome.
type CompletionHandler func(result LoadResult)

// LoadResult carries either a ready ad or the reason the load failed, never both.
type LoadResult struct {
	ad  RewardedAd
	err *AdError
}

// LoadSucceeded builds a successful LoadResult.
func LoadSucceeded(ad RewardedAd) LoadResult {
	return LoadResult{ad: ad}
}

// LoadFailed builds a failed LoadResult, converting err into the host's error shape.
func LoadFailed(err error) LoadResult {
	return LoadResult{err: NewAdError(err)}
}

// Ad returns the loaded ad, or nil if the load failed.
func (r LoadResult) Ad() RewardedAd {
	return r.ad
}

// Err returns the failure descriptor, or nil if the load succeeded.
func (r LoadResult) Err() *AdError {
	return r.err
}

// Succeeded reports whether the result carries a ready ad.
func (r LoadResult) Succeeded() bool {
	return r.err == nil && r.ad != nil
}

// AdError is the error descriptor the host expects: a domain, a numeric code and a message.
type AdError struct {
	Domain  string `json:"domain"`
	Code    int    `json:"code"`
	Message string `json:"message"`

	cause error
}

// NewAdError wraps err. Codes come from errortypes.ReadCode.
func NewAdError(err error) *AdError {
	if err == nil {
		err = errors.New("unknown error")
	}
	var adErr *AdError
	if errors.As(err, &adErr) {
		return adErr
	}
	return &AdError{
		Domain:  ErrorDomain,
		Code:    errortypes.ReadCode(err),
		Message: err.Error(),
		cause:   err,
	}
}

func (e *AdError) Error() string {
	return e.Message
}

func (e *AdError) Unwrap() error {
	return e.cause
}
