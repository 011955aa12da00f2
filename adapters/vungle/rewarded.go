package vungle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gofrs/uuid"
	"github.com/golang/glog"
	"github.com/prebid/prebid-mediation/adapters"
	"github.com/prebid/prebid-mediation/errortypes"
	"github.com/prebid/prebid-mediation/metrics"
	"github.com/prebid/prebid-mediation/openrtb_ext"
)

// State is the lifecycle position of a RewardedAd.
type State int

const (
	StateConstructed State = iota
	StateRequesting
	StateLoading
	StateSucceeded
	StateFailed
)

var stateNames = map[State]string{
	StateConstructed: "constructed",
	StateRequesting:  "requesting",
	StateLoading:     "loading",
	StateSucceeded:   "succeeded",
	StateFailed:      "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no further transition is possible from s.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// transitions lists every legal move. Anything else is rejected.
var transitions = map[State][]State{
	StateConstructed: {StateRequesting},
	StateRequesting:  {StateLoading, StateFailed},
	StateLoading:     {StateSucceeded, StateFailed},
}

func (s State) canMoveTo(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Deps are the collaborators shared by every RewardedAd of a process.
type Deps struct {
	SDK         SDK
	Router      *Router
	Metrics     metrics.MetricsEngine
	Clock       clock.Clock
	LoadTimeout time.Duration
}

// RewardedAd drives a single rewarded ad request from construction to its one completion.
type RewardedAd struct {
	conf       adapters.AdConfiguration
	deps       Deps
	owner      string
	completion *adapters.Completion

	mu       sync.Mutex
	state    State
	params   Params
	timer    *clock.Timer
	started  time.Time
	warnings []error
}

// NewRewardedAd binds conf and handler to a new request. Nothing is sent until RequestRewardedAd.
func NewRewardedAd(conf adapters.AdConfiguration, handler adapters.CompletionHandler, deps Deps) *RewardedAd {
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	return &RewardedAd{
		conf:       conf,
		deps:       deps,
		owner:      newID(),
		completion: adapters.NewCompletion(handler),
		state:      StateConstructed,
	}
}

// State returns the current lifecycle position.
func (a *RewardedAd) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Done is closed once the completion handler has been called.
func (a *RewardedAd) Done() <-chan struct{} {
	return a.completion.Done()
}

// Wait blocks until the request completes or ctx ends.
func (a *RewardedAd) Wait(ctx context.Context) (adapters.LoadResult, error) {
	return a.completion.Wait(ctx)
}

// Warnings returns the network signals that were ignored.
func (a *RewardedAd) Warnings() []error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]error(nil), a.warnings...)
}

// RequestRewardedAd starts the load. Only the first call has any effect.
func (a *RewardedAd) RequestRewardedAd(ctx context.Context) {
	a.mu.Lock()
	if !a.moveLocked(StateRequesting) {
		state := a.state
		a.mu.Unlock()
		glog.V(2).Infof("vungle: ignoring repeated load for request %s in state %s", a.conf.RequestID, state)
		return
	}
	a.started = a.deps.Clock.Now()
	a.mu.Unlock()

	params, err := ParseParams(a.conf)
	if err != nil {
		a.fail(StateRequesting, err)
		return
	}

	a.mu.Lock()
	a.params = params
	a.mu.Unlock()

	if err := a.deps.Router.Reserve(params.AppID, params.PlacementID, a.owner); err != nil {
		// The placement belongs to someone else; do not release it.
		a.finish(StateRequesting, adapters.LoadFailed(err), false)
		return
	}

	if err := a.deps.Router.Initialize(ctx, a.deps.SDK, params.AppID); err != nil {
		a.fail(StateRequesting, err)
		return
	}

	// Loading is entered before the SDK call so a delegate invoked synchronously finds the request ready.
	a.mu.Lock()
	if !a.moveLocked(StateLoading) {
		a.mu.Unlock()
		return
	}
	a.timer = a.deps.Clock.AfterFunc(a.deps.LoadTimeout, a.loadTimedOut)
	a.mu.Unlock()

	go a.watch(ctx)

	req := LoadRequest{RequestID: a.requestID(), Params: params}
	if err := a.deps.SDK.Load(ctx, req, a); err != nil {
		a.fail(StateLoading, err)
	}
}

// AdLoaded is called by the SDK when an ad is ready for placementID.
func (a *RewardedAd) AdLoaded(placementID string, ad *Ad) {
	if !a.settle(placementID, StateSucceeded, metrics.CallbackLoaded) {
		return
	}
	loaded := &loadedAd{
		ad:      ad,
		sdk:     a.deps.SDK,
		metrics: a.deps.Metrics,
		release: func() {
			a.deps.Router.Release(a.params.AppID, a.params.PlacementID, a.owner)
		},
	}
	a.complete(adapters.LoadSucceeded(loaded))
}

// AdFailedToLoad is called by the SDK when no ad could be loaded for placementID.
func (a *RewardedAd) AdFailedToLoad(placementID string, err error) {
	if !a.settle(placementID, StateFailed, metrics.CallbackFailed) {
		return
	}
	a.release()
	a.complete(adapters.LoadFailed(err))
}

func (a *RewardedAd) loadTimedOut() {
	a.timeout(fmt.Sprintf("Vungle did not answer within %s", a.deps.LoadTimeout))
}

func (a *RewardedAd) watch(ctx context.Context) {
	select {
	case <-a.completion.Done():
	case <-ctx.Done():
		select {
		case <-a.completion.Done():
		default:
			a.timeout(fmt.Sprintf("Vungle load abandoned: %v", ctx.Err()))
		}
	}
}

func (a *RewardedAd) timeout(message string) {
	a.mu.Lock()
	if a.state != StateLoading || !a.moveLocked(StateFailed) {
		placementID := a.params.PlacementID
		a.mu.Unlock()
		a.drop(metrics.CallbackTimeout, placementID)
		return
	}
	a.mu.Unlock()
	a.release()
	a.complete(adapters.LoadFailed(&errortypes.Timeout{Message: message}))
}

// settle moves a Loading request to next for a signal about placementID. Signals for other
// placements or arriving after completion are dropped.
func (a *RewardedAd) settle(placementID string, next State, callback metrics.CallbackType) bool {
	a.mu.Lock()
	if a.state != StateLoading || placementID != a.params.PlacementID || !a.moveLocked(next) {
		a.mu.Unlock()
		a.drop(callback, placementID)
		return false
	}
	a.stopTimerLocked()
	a.mu.Unlock()
	return true
}

func (a *RewardedAd) fail(from State, err error) {
	a.finish(from, adapters.LoadFailed(err), true)
}

func (a *RewardedAd) finish(from State, result adapters.LoadResult, release bool) {
	a.mu.Lock()
	if a.state != from || !a.moveLocked(StateFailed) {
		a.mu.Unlock()
		return
	}
	a.stopTimerLocked()
	a.mu.Unlock()
	if release {
		a.release()
	}
	a.complete(result)
}

func (a *RewardedAd) complete(result adapters.LoadResult) {
	var err error
	if !result.Succeeded() {
		err = result.Err()
	}
	labels := metrics.LoadLabels{
		Network: openrtb_ext.BidderVungle,
		Status:  metrics.LoadStatusFromError(err),
	}
	a.deps.Metrics.RecordLoadRequest(labels)
	a.deps.Metrics.RecordLoadTime(labels, a.deps.Clock.Since(a.started))

	if err != nil {
		glog.V(1).Infof("vungle: load failed for request %s: %v", a.conf.RequestID, err)
	}
	a.completion.Resolve(result)
}

func (a *RewardedAd) release() {
	a.mu.Lock()
	params := a.params
	a.mu.Unlock()
	if params.PlacementID != "" {
		a.deps.Router.Release(params.AppID, params.PlacementID, a.owner)
	}
}

func (a *RewardedAd) drop(callback metrics.CallbackType, placementID string) {
	warning := &errortypes.Warning{
		Message:     fmt.Sprintf("Ignored %s signal for placement %s on request %s", callback, placementID, a.conf.RequestID),
		WarningCode: errortypes.DroppedCallbackWarnCode,
	}
	a.mu.Lock()
	a.warnings = append(a.warnings, warning)
	a.mu.Unlock()

	glog.V(2).Infof("vungle: %s", warning.Message)
	a.deps.Metrics.RecordDroppedCallback(openrtb_ext.BidderVungle, callback)
}

// moveLocked applies a transition. a.mu must be held.
func (a *RewardedAd) moveLocked(next State) bool {
	if !a.state.canMoveTo(next) {
		return false
	}
	a.state = next
	return true
}

func (a *RewardedAd) stopTimerLocked() {
	if a.timer != nil {
		a.timer.Stop()
	}
}

func (a *RewardedAd) requestID() string {
	if a.conf.RequestID != "" {
		return a.conf.RequestID
	}
	return a.owner
}

func newID() string {
	id, err := uuid.NewV4()
	if err != nil {
		// crypto/rand is exhausted; fall back to a time-based ID.
		return fmt.Sprintf("vungle-%d", time.Now().UnixNano())
	}
	return id.String()
}
