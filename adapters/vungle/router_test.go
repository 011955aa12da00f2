package vungle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prebid/prebid-mediation/errortypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestReserveAndRelease(t *testing.T) {
	router := NewRouter(time.Hour, 0)

	assert.NoError(t, router.Reserve("app-1", "placement-1", "owner-a"))
	assert.NoError(t, router.Reserve("app-1", "placement-1", "owner-a"), "an owner may refresh its own reservation")

	err := router.Reserve("app-1", "placement-1", "owner-b")
	assert.IsType(t, &errortypes.PlacementInUse{}, err)

	assert.NoError(t, router.Reserve("app-1", "placement-2", "owner-b"), "other placements are independent")
	assert.NoError(t, router.Reserve("app-2", "placement-1", "owner-b"), "placements are scoped to the app")

	router.Release("app-1", "placement-1", "owner-b")
	assert.Error(t, router.Reserve("app-1", "placement-1", "owner-b"), "only the owner can release")

	router.Release("app-1", "placement-1", "owner-a")
	assert.NoError(t, router.Reserve("app-1", "placement-1", "owner-b"))
}

func TestReservationExpires(t *testing.T) {
	router := NewRouter(10*time.Millisecond, 0)

	assert.NoError(t, router.Reserve("app-1", "placement-1", "owner-a"))
	time.Sleep(20 * time.Millisecond)
	assert.NoError(t, router.Reserve("app-1", "placement-1", "owner-b"))
}

func TestInitializeCachesSuccess(t *testing.T) {
	router := NewRouter(time.Hour, time.Hour)
	sdk := &sdkMock{}
	sdk.On("Initialize", mock.Anything, "app-1").Return(nil).Once()

	assert.NoError(t, router.Initialize(context.Background(), sdk, "app-1"))
	assert.NoError(t, router.Initialize(context.Background(), sdk, "app-1"))

	sdk.AssertNumberOfCalls(t, "Initialize", 1)
}

func TestInitializeDoesNotCacheFailure(t *testing.T) {
	router := NewRouter(time.Hour, time.Hour)
	sdk := &sdkMock{}
	sdk.On("Initialize", mock.Anything, "app-1").Return(errors.New("offline")).Once()
	sdk.On("Initialize", mock.Anything, "app-1").Return(nil).Once()

	assert.EqualError(t, router.Initialize(context.Background(), sdk, "app-1"), "offline")
	assert.NoError(t, router.Initialize(context.Background(), sdk, "app-1"))
	assert.NoError(t, router.Initialize(context.Background(), sdk, "app-1"))

	sdk.AssertNumberOfCalls(t, "Initialize", 2)
}

func TestInitializeConcurrentCallsShareOneSDKCall(t *testing.T) {
	router := NewRouter(time.Hour, time.Hour)
	release := make(chan struct{})
	sdk := &sdkMock{}
	sdk.On("Initialize", mock.Anything, "app-1").Run(func(mock.Arguments) { <-release }).Return(nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, router.Initialize(context.Background(), sdk, "app-1"))
		}()
	}
	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.NoError(t, router.Initialize(context.Background(), sdk, "app-1"))
	sdk.AssertNumberOfCalls(t, "Initialize", 1)
}

func TestInitializeOutlivesAbandoningCaller(t *testing.T) {
	router := NewRouter(time.Hour, time.Hour)
	release := make(chan struct{})
	sdkCtx := make(chan context.Context, 1)
	sdk := &sdkMock{}
	sdk.On("Initialize", mock.Anything, "app-1").Run(func(args mock.Arguments) {
		sdkCtx <- args.Get(0).(context.Context)
		<-release
	}).Return(nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() { first <- router.Initialize(ctx, sdk, "app-1") }()
	shared := <-sdkCtx

	second := make(chan error, 1)
	go func() { second <- router.Initialize(context.Background(), sdk, "app-1") }()

	cancel()
	err := <-first
	assert.IsType(t, &errortypes.Timeout{}, err)
	assert.NoError(t, shared.Err(), "the shared initialization keeps running")
	_, hasDeadline := shared.Deadline()
	assert.True(t, hasDeadline)

	close(release)
	assert.NoError(t, <-second)
	assert.NoError(t, router.Initialize(context.Background(), sdk, "app-1"))
	sdk.AssertNumberOfCalls(t, "Initialize", 1)
}
