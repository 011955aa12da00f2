package vungle

import "context"

// Region selects a regional bidding endpoint.
type Region string

const (
	USEast Region = "us_east"
	EU     Region = "eu"
	APAC   Region = "apac"
)

// SDK is the Vungle network as seen by the adapter.
type SDK interface {
	// Initialize prepares the network for appID. It is called before the first load for an app.
	Initialize(ctx context.Context, appID string) error
	// Load asks the network for an ad. A nil return means the request was accepted and exactly
	// one of the delegate's methods will follow, possibly on another goroutine. Implementations
	// may still misbehave and call the delegate again.
	Load(ctx context.Context, req LoadRequest, delegate Delegate) error
	// Play shows a loaded ad, reporting playback to delegate. It returns once the ad is closed.
	Play(ctx context.Context, ad *Ad, delegate PlaybackDelegate) error
}

// LoadRequest is one load issued to the network.
type LoadRequest struct {
	RequestID string
	Params    Params
}

// Ad is a creative the network is ready to play.
type Ad struct {
	ID          string
	RequestID   string
	PlacementID string
	Price       float64
	Markup      string
	BillingURL  string
}

// Delegate receives load outcomes.
type Delegate interface {
	AdLoaded(placementID string, ad *Ad)
	AdFailedToLoad(placementID string, err error)
}

// PlaybackDelegate receives the playback events of a presented ad.
type PlaybackDelegate interface {
	WillShowAd(placementID string)
	DidTrackImpression(placementID string)
	DidStartPlayback(placementID string)
	DidFinishPlayback(placementID string)
	DidRewardUser(placementID string)
	DidClick(placementID string)
	DidCloseAd(placementID string)
}
