package endpoints

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/buger/jsonparser"
	"github.com/julienschmidt/httprouter"
	"github.com/prebid/prebid-mediation/adapters/vungle"
	"github.com/prebid/prebid-mediation/config"
	"github.com/prebid/prebid-mediation/errortypes"
	metricsConf "github.com/prebid/prebid-mediation/metrics/config"
	"github.com/prebid/prebid-mediation/openrtb_ext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bidResponse = `{"id":"req","seatbid":[{"bid":[{"id":"bid-1","impid":"1","price":3.5,"adm":"<VAST version=\"4.0\"/>"}]}]}`

func newTestRouter(t *testing.T, network http.HandlerFunc, loadTimeout time.Duration) (*httprouter.Router, func()) {
	t.Helper()
	server := httptest.NewServer(network)

	validator, err := openrtb_ext.NewBidderParamsValidator("../static/bidder-params")
	require.NoError(t, err)

	deps := vungle.Deps{
		SDK:         vungle.NewClient(server.Client(), config.Adapter{Endpoint: server.URL}),
		Router:      vungle.NewRouter(time.Hour, time.Hour),
		Metrics:     &metricsConf.DummyMetricsEngine{},
		Clock:       clock.New(),
		LoadTimeout: loadTimeout,
	}
	endpoint := NewRewardedEndpoint(deps, validator, time.Hour)

	router := httprouter.New()
	router.POST("/mediation/vungle/rewarded", endpoint.Load)
	router.POST("/mediation/vungle/rewarded/:id/present", endpoint.Present)
	return router, server.Close
}

func bidNetwork(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte(bidResponse))
}

func post(router http.Handler, path string, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, strings.NewReader(body)))
	return w
}

func assertAdError(t *testing.T, w *httptest.ResponseRecorder, status int, code int, description string) {
	t.Helper()
	assert.Equal(t, status, w.Code, description)
	domain, _ := jsonparser.GetString(w.Body.Bytes(), "domain")
	assert.Equal(t, "com.google.mediation.vungle", domain, description)
	actualCode, err := jsonparser.GetInt(w.Body.Bytes(), "code")
	assert.NoError(t, err, description)
	assert.Equal(t, int64(code), actualCode, description)
	_, err = jsonparser.GetInt(w.Body.Bytes(), "nbr")
	assert.NoError(t, err, description)
}

func TestLoadAndPresent(t *testing.T) {
	router, closeNetwork := newTestRouter(t, bidNetwork, time.Second)
	defer closeNetwork()

	w := post(router, "/mediation/vungle/rewarded", `{"server_parameters":{"appid":"app-1","placementID":"srv-456"},"network_extras":{"all_placements":["other"]}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var loaded loadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &loaded))
	assert.NotEmpty(t, loaded.ID)
	assert.Equal(t, "srv-456", loaded.PlacementID)
	assert.Equal(t, 3.5, loaded.Price)

	w = post(router, "/mediation/vungle/rewarded/"+loaded.ID+"/present", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var presented presentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &presented))
	assert.Equal(t, `<VAST version="4.0"/>`, presented.Adm)
	assert.Equal(t, []string{"will_present", "impression", "video_start", "video_end", "reward", "dismiss"}, presented.Events)
	require.NotNil(t, presented.Reward)
	assert.Equal(t, "vungle", presented.Reward.Type)
	assert.Equal(t, 1, presented.Reward.Amount)

	w = post(router, "/mediation/vungle/rewarded/"+loaded.ID+"/present", "")
	assertAdError(t, w, http.StatusConflict, errortypes.AlreadyPresentedErrorCode, "second present")

	// The placement is free again once the ad was shown.
	w = post(router, "/mediation/vungle/rewarded", `{"server_parameters":{"appid":"app-1","placementID":"srv-456"}}`)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestPresentUnknownAd(t *testing.T) {
	router, closeNetwork := newTestRouter(t, bidNetwork, time.Second)
	defer closeNetwork()

	w := post(router, "/mediation/vungle/rewarded/does-not-exist/present", "")
	assertAdError(t, w, http.StatusNotFound, errortypes.BadInputErrorCode, "unknown ad")
}

func TestPlacementHeldUntilPresented(t *testing.T) {
	router, closeNetwork := newTestRouter(t, bidNetwork, time.Second)
	defer closeNetwork()

	body := `{"server_parameters":{"appid":"app-1","placementID":"srv-456"}}`
	require.Equal(t, http.StatusOK, post(router, "/mediation/vungle/rewarded", body).Code)

	w := post(router, "/mediation/vungle/rewarded", body)
	assertAdError(t, w, http.StatusConflict, errortypes.PlacementInUseErrorCode, "second load")
}

func TestLoadErrors(t *testing.T) {
	testCases := []struct {
		description string
		network     http.HandlerFunc
		body        string
		status      int
		code        int
	}{
		{
			description: "malformed-body",
			network:     bidNetwork,
			body:        `{"server_parameters":`,
			status:      http.StatusBadRequest,
			code:        errortypes.BadInputErrorCode,
		},
		{
			description: "missing-placement",
			network:     bidNetwork,
			body:        `{"server_parameters":{"appid":"app-1"}}`,
			status:      http.StatusBadRequest,
			code:        errortypes.BadInputErrorCode,
		},
		{
			description: "missing-app-id",
			network:     bidNetwork,
			body:        `{"server_parameters":{"placementID":"srv-456"},"network_extras":{"playing_placement":"ext-123"}}`,
			status:      http.StatusBadRequest,
			code:        errortypes.BadInputErrorCode,
		},
		{
			description: "extras-fail-schema",
			network:     bidNetwork,
			body:        `{"server_parameters":{"appid":"app-1","placementID":"srv-456"},"network_extras":{"region":"mars"}}`,
			status:      http.StatusBadRequest,
			code:        errortypes.BadInputErrorCode,
		},
		{
			description: "no-fill",
			network: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			},
			body:   `{"server_parameters":{"appid":"app-1","placementID":"srv-456"}}`,
			status: http.StatusNotFound,
			code:   errortypes.NoFillErrorCode,
		},
		{
			description: "network-error",
			network: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			body:   `{"server_parameters":{"appid":"app-1","placementID":"srv-456"}}`,
			status: http.StatusBadGateway,
			code:   errortypes.BadServerResponseErrorCode,
		},
	}

	for _, test := range testCases {
		router, closeNetwork := newTestRouter(t, test.network, time.Second)
		w := post(router, "/mediation/vungle/rewarded", test.body)
		closeNetwork()

		assertAdError(t, w, test.status, test.code, test.description)
	}
}

func TestLoadTimeout(t *testing.T) {
	block := make(chan struct{})
	router, closeNetwork := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}, 50*time.Millisecond)
	defer closeNetwork()
	defer close(block)

	w := post(router, "/mediation/vungle/rewarded", `{"server_parameters":{"appid":"app-1","placementID":"srv-456"}}`)

	assertAdError(t, w, http.StatusGatewayTimeout, errortypes.TimeoutErrorCode, "timeout")
	nbr, _ := jsonparser.GetInt(w.Body.Bytes(), "nbr")
	assert.Equal(t, int64(errortypes.GetNBRCodeFromError(&errortypes.Timeout{})), nbr)
}

func TestStatusForError(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusForError(&errortypes.BadInput{}))
	assert.Equal(t, http.StatusNotFound, statusForError(&errortypes.NoFill{}))
	assert.Equal(t, http.StatusConflict, statusForError(&errortypes.PlacementInUse{}))
	assert.Equal(t, http.StatusConflict, statusForError(&errortypes.AlreadyPresented{}))
	assert.Equal(t, http.StatusGatewayTimeout, statusForError(&errortypes.Timeout{}))
	assert.Equal(t, http.StatusBadGateway, statusForError(&errortypes.FailedToRequestBids{}))
	assert.Equal(t, http.StatusBadGateway, statusForError(nil))
}

func TestLoadRejectsOversizeBody(t *testing.T) {
	router, closeNetwork := newTestRouter(t, bidNetwork, time.Second)
	defer closeNetwork()

	body := `{"server_parameters":{"appid":"` + strings.Repeat("a", maxRequestSize) + `","placementID":"srv-456"}}`
	w := post(router, "/mediation/vungle/rewarded", body)

	assertAdError(t, w, http.StatusBadRequest, errortypes.BadInputErrorCode, "oversize")
	message, _ := jsonparser.GetString(w.Body.Bytes(), "message")
	assert.Equal(t, "Request body exceeds 65536 bytes", message)
}

// instantSDK answers every load before Load returns.
type instantSDK struct{}

func (instantSDK) Initialize(context.Context, string) error { return nil }

func (instantSDK) Load(_ context.Context, req vungle.LoadRequest, delegate vungle.Delegate) error {
	delegate.AdLoaded(req.Params.PlacementID, &vungle.Ad{ID: "bid-1", PlacementID: req.Params.PlacementID, Price: 1, Markup: "<VAST/>"})
	return nil
}

func (instantSDK) Play(context.Context, *vungle.Ad, vungle.PlaybackDelegate) error { return nil }

func instantDeps() vungle.Deps {
	return vungle.Deps{
		SDK:         instantSDK{},
		Router:      vungle.NewRouter(time.Hour, time.Hour),
		Metrics:     &metricsConf.DummyMetricsEngine{},
		Clock:       clock.New(),
		LoadTimeout: time.Second,
	}
}

func placementFree(router *vungle.Router) func() bool {
	return func() bool {
		if router.Reserve("app-1", "srv-456", "next-owner") != nil {
			return false
		}
		router.Release("app-1", "srv-456", "next-owner")
		return true
	}
}

func TestLoadForGoneClientFreesPlacement(t *testing.T) {
	validator, err := openrtb_ext.NewBidderParamsValidator("../static/bidder-params")
	require.NoError(t, err)
	deps := instantDeps()
	endpoint := NewRewardedEndpoint(deps, validator, time.Hour)
	body := `{"server_parameters":{"appid":"app-1","placementID":"srv-456"}}`

	// The ad and the cancelled request race; whichever wins, the placement must come back.
	for i := 0; i < 50; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		request := httptest.NewRequest(http.MethodPost, "/mediation/vungle/rewarded", strings.NewReader(body)).WithContext(ctx)
		endpoint.Load(httptest.NewRecorder(), request, nil)

		require.Eventually(t, placementFree(deps.Router), time.Second, time.Millisecond, "attempt %d", i)
	}
	assert.Zero(t, endpoint.ads.ItemCount())
}

func TestExpiredAdFreesPlacement(t *testing.T) {
	validator, err := openrtb_ext.NewBidderParamsValidator("../static/bidder-params")
	require.NoError(t, err)
	deps := instantDeps()
	endpoint := NewRewardedEndpoint(deps, validator, 20*time.Millisecond)
	router := httprouter.New()
	router.POST("/mediation/vungle/rewarded", endpoint.Load)

	w := post(router, "/mediation/vungle/rewarded", `{"server_parameters":{"appid":"app-1","placementID":"srv-456"}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.False(t, placementFree(deps.Router)(), "a stored ad holds its placement")

	assert.Eventually(t, placementFree(deps.Router), time.Second, 5*time.Millisecond)
}
