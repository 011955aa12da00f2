package endpoints

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/golang/glog"
	"github.com/julienschmidt/httprouter"
	"github.com/patrickmn/go-cache"
	"github.com/prebid/openrtb/v20/openrtb3"
	"github.com/prebid/prebid-mediation/adapters"
	"github.com/prebid/prebid-mediation/adapters/vungle"
	"github.com/prebid/prebid-mediation/errortypes"
	"github.com/prebid/prebid-mediation/openrtb_ext"
)

const maxRequestSize = 64 * 1024

type loadRequest struct {
	ServerParameters adapters.ServerParameters `json:"server_parameters"`
	NetworkExtras    json.RawMessage           `json:"network_extras,omitempty"`
	Test             bool                      `json:"test,omitempty"`
}

type loadResponse struct {
	ID          string  `json:"id"`
	PlacementID string  `json:"placement_id"`
	Price       float64 `json:"price"`
}

type errorResponse struct {
	*adapters.AdError
	NBR openrtb3.NoBidReason `json:"nbr"`
}

type presentResponse struct {
	Adm    string           `json:"adm"`
	Events []string         `json:"events"`
	Reward *adapters.Reward `json:"reward,omitempty"`
}

// RewardedEndpoint loads Vungle rewarded ads over HTTP and keeps the loaded ones until they are presented.
type RewardedEndpoint struct {
	deps      vungle.Deps
	validator openrtb_ext.BidderParamValidator
	ads       *cache.Cache
}

// NewRewardedEndpoint builds the endpoint. Loaded ads are kept for adTTL.
func NewRewardedEndpoint(deps vungle.Deps, validator openrtb_ext.BidderParamValidator, adTTL time.Duration) *RewardedEndpoint {
	ads := cache.New(adTTL, 2*adTTL)
	// Ads that expire unpresented give their placement back.
	ads.OnEvicted(func(id string, stored interface{}) {
		if stored.(adapters.RewardedAd).Discard() {
			glog.V(1).Infof("Ad %s expired before it was presented", id)
		}
	})
	return &RewardedEndpoint{
		deps:      deps,
		validator: validator,
		ads:       ads,
	}
}

// Load handles POST /mediation/vungle/rewarded.
func (e *RewardedEndpoint) Load(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	conf, err := e.parseLoadRequest(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	ad := vungle.NewRewardedAd(conf, nil, e.deps)
	ad.RequestRewardedAd(r.Context())

	result, err := ad.Wait(r.Context())
	if err != nil || r.Context().Err() != nil {
		glog.V(1).Infof("Client went away before request %s completed", conf.RequestID)
		go discardLate(ad, conf.RequestID)
		return
	}

	if !result.Succeeded() {
		writeError(w, result.Err())
		return
	}

	id := newAdID()
	e.ads.SetDefault(id, result.Ad())
	writeJSON(w, http.StatusOK, loadResponse{
		ID:          id,
		PlacementID: result.Ad().PlacementID(),
		Price:       result.Ad().Price(),
	})
}

// discardLate frees the placement of an ad that loaded after its client went away.
func discardLate(ad *vungle.RewardedAd, requestID string) {
	result, _ := ad.Wait(context.Background())
	if result.Succeeded() && result.Ad().Discard() {
		glog.V(1).Infof("Discarded unclaimed ad for request %s", requestID)
	}
}

// Present handles POST /mediation/vungle/rewarded/:id/present.
func (e *RewardedEndpoint) Present(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	stored, found := e.ads.Get(id)
	if !found {
		writeJSON(w, http.StatusNotFound, errorResponse{
			AdError: adapters.NewAdError(&errortypes.BadInput{Message: fmt.Sprintf("No loaded ad with id %s. It may have expired.", id)}),
			NBR:     openrtb3.NoBidInvalidRequest,
		})
		return
	}
	ad := stored.(adapters.RewardedAd)

	events := &eventLog{}
	if err := ad.Present(r.Context(), events); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, presentResponse{
		Adm:    ad.Markup(),
		Events: events.list(),
		Reward: events.reward,
	})
}

func (e *RewardedEndpoint) parseLoadRequest(w http.ResponseWriter, r *http.Request) (adapters.AdConfiguration, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return adapters.AdConfiguration{}, &errortypes.BadInput{Message: fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit)}
		}
		return adapters.AdConfiguration{}, &errortypes.BadInput{Message: fmt.Sprintf("Failed to read request body: %v", err)}
	}

	var req loadRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return adapters.AdConfiguration{}, &errortypes.BadInput{Message: fmt.Sprintf("Malformed request body: %v", err)}
	}

	if len(req.NetworkExtras) > 0 && !bytes.Equal(bytes.TrimSpace(req.NetworkExtras), []byte("null")) {
		if err := e.validator.Validate(openrtb_ext.BidderVungle, req.NetworkExtras); err != nil {
			return adapters.AdConfiguration{}, &errortypes.BadInput{Message: fmt.Sprintf("network_extras: %v", err)}
		}
	}

	return adapters.AdConfiguration{
		RequestID:        newAdID(),
		ServerParameters: req.ServerParameters,
		NetworkExtras:    req.NetworkExtras,
		Test:             req.Test,
	}, nil
}

// statusForError maps a load or present failure to the HTTP status of the reply.
func statusForError(err error) int {
	switch errortypes.ReadCode(err) {
	case errortypes.BadInputErrorCode:
		return http.StatusBadRequest
	case errortypes.NoFillErrorCode:
		return http.StatusNotFound
	case errortypes.PlacementInUseErrorCode, errortypes.AlreadyPresentedErrorCode:
		return http.StatusConflict
	case errortypes.TimeoutErrorCode:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func writeError(w http.ResponseWriter, err error) {
	adErr := adapters.NewAdError(err)
	cause := adErr.Unwrap()
	writeJSON(w, statusForError(cause), errorResponse{
		AdError: adErr,
		NBR:     errortypes.GetNBRCodeFromError(cause),
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	data, err := json.Marshal(body)
	if err != nil {
		glog.Errorf("Failed to marshal response: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func newAdID() string {
	id, err := uuid.NewV4()
	if err != nil {
		return fmt.Sprintf("ad-%d", time.Now().UnixNano())
	}
	return id.String()
}

// eventLog records the presentation events of one ad for the reply.
type eventLog struct {
	mu     sync.Mutex
	events []string
	reward *adapters.Reward
}

func (l *eventLog) add(event string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *eventLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string{}, l.events...)
}

func (l *eventLog) WillPresentFullScreenView() { l.add("will_present") }
func (l *eventLog) ReportImpression()          { l.add("impression") }
func (l *eventLog) DidStartVideo()             { l.add("video_start") }
func (l *eventLog) DidEndVideo()               { l.add("video_end") }
func (l *eventLog) ReportClick()               { l.add("click") }
func (l *eventLog) DidDismissFullScreenView()  { l.add("dismiss") }

func (l *eventLog) DidFailToPresent(err error) {
	l.add("present_failed")
}

func (l *eventLog) DidRewardUser(reward adapters.Reward) {
	l.mu.Lock()
	l.reward = &reward
	l.mu.Unlock()
	l.add("reward")
}
