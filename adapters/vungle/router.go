package vungle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/patrickmn/go-cache"
	"github.com/prebid/prebid-mediation/errortypes"
	"golang.org/x/sync/singleflight"
)

// Router lets one ad at a time own a placement, and remembers which apps the SDK has been
// initialized for. Reservations expire after the ad TTL so abandoned ads free their placement.
type Router struct {
	mu          sync.Mutex
	placements  *cache.Cache
	initialized *cache.Cache
	initGroup   singleflight.Group
}

// NewRouter builds a Router. An initTTL of zero remembers initializations for the life of the process.
func NewRouter(adTTL time.Duration, initTTL time.Duration) *Router {
	return &Router{
		placements:  cache.New(adTTL, cleanupInterval(adTTL)),
		initialized: cache.New(initTTL, cleanupInterval(initTTL)),
	}
}

func cleanupInterval(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 0
	}
	return 2 * ttl
}

func placementKey(appID string, placementID string) string {
	return appID + "/" + placementID
}

// Reserve gives owner the placement. Reserving a placement owner already holds refreshes it.
func (r *Router) Reserve(appID string, placementID string, owner string) error {
	key := placementKey(appID, placementID)

	r.mu.Lock()
	defer r.mu.Unlock()

	if current, found := r.placements.Get(key); found && current.(string) != owner {
		return &errortypes.PlacementInUse{
			Message: fmt.Sprintf("Vungle placement %s of app %s is already loading or showing an ad", placementID, appID),
		}
	}
	r.placements.SetDefault(key, owner)
	return nil
}

// Release frees the placement if owner still holds it.
func (r *Router) Release(appID string, placementID string, owner string) {
	key := placementKey(appID, placementID)

	r.mu.Lock()
	defer r.mu.Unlock()

	if current, found := r.placements.Get(key); found && current.(string) == owner {
		r.placements.Delete(key)
	}
}

// initTimeout bounds a shared SDK initialization, which outlives the request that started it.
const initTimeout = 10 * time.Second

// Initialize calls sdk.Initialize for appID unless a previous call succeeded and has not expired.
// Concurrent calls for one app share a single SDK call, which does not end when the caller that
// started it goes away. A caller whose ctx ends first gets a Timeout. Failures are not remembered.
func (r *Router) Initialize(ctx context.Context, sdk SDK, appID string) error {
	if _, found := r.initialized.Get(appID); found {
		return nil
	}

	shared := r.initGroup.DoChan(appID, func() (interface{}, error) {
		if _, found := r.initialized.Get(appID); found {
			return nil, nil
		}
		initCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), initTimeout)
		defer cancel()
		if err := sdk.Initialize(initCtx, appID); err != nil {
			glog.Warningf("vungle: initialization failed for app %s: %v", appID, err)
			return nil, err
		}
		r.initialized.SetDefault(appID, true)
		return nil, nil
	})

	select {
	case result := <-shared:
		return result.Err
	case <-ctx.Done():
		return &errortypes.Timeout{Message: fmt.Sprintf("Vungle initialization for app %s abandoned: %v", appID, ctx.Err())}
	}
}
