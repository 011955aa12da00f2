package vungle

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/golang/glog"
	"github.com/prebid/prebid-mediation/adapters"
	"github.com/prebid/prebid-mediation/errortypes"
	"github.com/prebid/prebid-mediation/metrics"
	"github.com/prebid/prebid-mediation/openrtb_ext"
)

// rewardType and rewardAmount are what Vungle grants for a completed rewarded view.
const (
	rewardType   = "vungle"
	rewardAmount = 1
)

// loadedAd is the RewardedAd handed to the host after a successful load.
type loadedAd struct {
	ad        *Ad
	sdk       SDK
	metrics   metrics.MetricsEngine
	release   func()
	presented atomic.Bool
}

func (l *loadedAd) ID() string {
	return l.ad.ID
}

func (l *loadedAd) PlacementID() string {
	return l.ad.PlacementID
}

func (l *loadedAd) Price() float64 {
	return l.ad.Price
}

func (l *loadedAd) Markup() string {
	return l.ad.Markup
}

// Present plays the ad once. The placement is freed when playback ends, whatever the outcome.
func (l *loadedAd) Present(ctx context.Context, events adapters.RewardedAdEvents) error {
	if !l.presented.CompareAndSwap(false, true) {
		return &errortypes.AlreadyPresented{
			Message: fmt.Sprintf("Vungle ad %s for placement %s was already presented", l.ad.ID, l.ad.PlacementID),
		}
	}
	if l.release != nil {
		defer l.release()
	}

	bridge := &playbackBridge{events: events, metrics: l.metrics}
	if err := l.sdk.Play(ctx, l.ad, bridge); err != nil {
		glog.Warningf("vungle: failed to present ad %s: %v", l.ad.ID, err)
		l.metrics.RecordAdEvent(openrtb_ext.BidderVungle, metrics.AdEventPresentFailed)
		events.DidFailToPresent(err)
		return err
	}
	return nil
}

// Discard frees the placement of an ad that will never be shown. It shares the one-shot guard with Present.
func (l *loadedAd) Discard() bool {
	if !l.presented.CompareAndSwap(false, true) {
		return false
	}
	if l.release != nil {
		l.release()
	}
	l.metrics.RecordAdEvent(openrtb_ext.BidderVungle, metrics.AdEventDiscard)
	return true
}

// playbackBridge forwards SDK playback signals to the host's event sink.
type playbackBridge struct {
	events  adapters.RewardedAdEvents
	metrics metrics.MetricsEngine
}

func (b *playbackBridge) WillShowAd(placementID string) {
	b.metrics.RecordAdEvent(openrtb_ext.BidderVungle, metrics.AdEventPresent)
	b.events.WillPresentFullScreenView()
}

func (b *playbackBridge) DidTrackImpression(placementID string) {
	b.metrics.RecordAdEvent(openrtb_ext.BidderVungle, metrics.AdEventImpression)
	b.events.ReportImpression()
}

func (b *playbackBridge) DidStartPlayback(placementID string) {
	b.events.DidStartVideo()
}

func (b *playbackBridge) DidFinishPlayback(placementID string) {
	b.events.DidEndVideo()
}

func (b *playbackBridge) DidRewardUser(placementID string) {
	b.metrics.RecordAdEvent(openrtb_ext.BidderVungle, metrics.AdEventReward)
	b.events.DidRewardUser(adapters.Reward{Type: rewardType, Amount: rewardAmount})
}

func (b *playbackBridge) DidClick(placementID string) {
	b.metrics.RecordAdEvent(openrtb_ext.BidderVungle, metrics.AdEventClick)
	b.events.ReportClick()
}

func (b *playbackBridge) DidCloseAd(placementID string) {
	b.metrics.RecordAdEvent(openrtb_ext.BidderVungle, metrics.AdEventDismiss)
	b.events.DidDismissFullScreenView()
}
