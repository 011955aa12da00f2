package vungle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/buger/jsonparser"
	"github.com/golang/glog"
	"github.com/prebid/openrtb/v20/openrtb2"
	"github.com/prebid/prebid-mediation/adapters"
	"github.com/prebid/prebid-mediation/config"
	"github.com/prebid/prebid-mediation/errortypes"
)

type vungleImpExt struct {
	Rewarded   int      `json:"rewarded"`
	Placements []string `json:"placements,omitempty"`
	Ordinal    int      `json:"ordinal,omitempty"`
	Muted      bool     `json:"muted,omitempty"`
}

// Client is the SDK implementation that talks OpenRTB to Vungle's bidding endpoints.
type Client struct {
	http             *http.Client
	URI              string
	ConfigURI        string
	SupportedRegions map[Region]string
}

// NewClient builds a Client from the adapter's endpoint configuration.
func NewClient(client *http.Client, cfg config.Adapter) *Client {
	return &Client{
		http:      client,
		URI:       cfg.Endpoint,
		ConfigURI: cfg.ConfigEndpoint,
		SupportedRegions: map[Region]string{
			USEast: cfg.XAPI.EndpointUSEast,
			EU:     cfg.XAPI.EndpointEU,
			APAC:   cfg.XAPI.EndpointAPAC,
		},
	}
}

// Initialize fetches the app configuration. Without a config endpoint there is nothing to do.
func (c *Client) Initialize(ctx context.Context, appID string) error {
	if c.ConfigURI == "" {
		return nil
	}

	uri, err := url.Parse(c.ConfigURI)
	if err != nil {
		return &errortypes.BadInput{Message: fmt.Sprintf("Invalid Vungle config endpoint: %v", err)}
	}
	query := uri.Query()
	query.Set("app_id", appID)
	uri.RawQuery = query.Encode()

	resp, err := adapters.DoRequest(ctx, c.http, &adapters.RequestData{
		Method:  http.MethodGet,
		Uri:     uri.String(),
		Headers: defaultHeaders(),
	})
	if err != nil {
		return &errortypes.FailedToRequestBids{Message: err.Error()}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &errortypes.BadServerResponse{
			Message: fmt.Sprintf("Vungle initialization for app %s failed with status code %d", appID, resp.StatusCode),
		}
	}
	return nil
}

// Load posts a bid request for req and reports the outcome to delegate from another goroutine.
func (c *Client) Load(ctx context.Context, req LoadRequest, delegate Delegate) error {
	reqData, err := c.makeRequest(req)
	if err != nil {
		return err
	}

	go func() {
		resp, err := adapters.DoRequest(ctx, c.http, reqData)
		if err != nil {
			if ctx.Err() != nil {
				delegate.AdFailedToLoad(req.Params.PlacementID, &errortypes.Timeout{Message: err.Error()})
				return
			}
			delegate.AdFailedToLoad(req.Params.PlacementID, &errortypes.FailedToRequestBids{Message: err.Error()})
			return
		}
		ad, err := c.makeAd(req, resp)
		if err != nil {
			delegate.AdFailedToLoad(req.Params.PlacementID, err)
			return
		}
		delegate.AdLoaded(req.Params.PlacementID, ad)
	}()
	return nil
}

// Play notifies the billing URL and reports a complete rewarded view.
func (c *Client) Play(ctx context.Context, ad *Ad, delegate PlaybackDelegate) error {
	if ad.BillingURL != "" {
		resp, err := adapters.DoRequest(ctx, c.http, &adapters.RequestData{
			Method:  http.MethodGet,
			Uri:     ad.BillingURL,
			Headers: defaultHeaders(),
		})
		if err != nil {
			return &errortypes.FailedToRequestBids{Message: err.Error()}
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return &errortypes.BadServerResponse{
				Message: fmt.Sprintf("Vungle billing notification failed with status code %d", resp.StatusCode),
			}
		}
	}

	delegate.WillShowAd(ad.PlacementID)
	delegate.DidTrackImpression(ad.PlacementID)
	delegate.DidStartPlayback(ad.PlacementID)
	delegate.DidFinishPlayback(ad.PlacementID)
	delegate.DidRewardUser(ad.PlacementID)
	delegate.DidCloseAd(ad.PlacementID)
	return nil
}

func (c *Client) makeRequest(req LoadRequest) (*adapters.RequestData, error) {
	impExt, err := json.Marshal(&vungleImpExt{
		Rewarded:   1,
		Placements: req.Params.Placements,
		Ordinal:    req.Params.Ordinal,
		Muted:      req.Params.Muted,
	})
	if err != nil {
		return nil, &errortypes.FailedToMarshal{Message: err.Error()}
	}

	request := openrtb2.BidRequest{
		ID: req.RequestID,
		Imp: []openrtb2.Imp{{
			ID:    "1",
			TagID: req.Params.PlacementID,
			Instl: 1,
			Rwdd:  1,
			Video: &openrtb2.Video{MIMEs: []string{"video/mp4"}},
			Ext:   impExt,
		}},
		App: &openrtb2.App{ID: req.Params.AppID},
	}
	if req.Params.UserID != "" {
		request.User = &openrtb2.User{ID: req.Params.UserID}
	}
	if req.Params.Test {
		request.Test = 1
	}

	reqJSON, err := json.Marshal(&request)
	if err != nil {
		return nil, &errortypes.FailedToMarshal{Message: err.Error()}
	}

	uri := c.URI
	if endpoint, ok := c.SupportedRegions[req.Params.Region]; ok && endpoint != "" {
		uri = endpoint
	}

	return &adapters.RequestData{
		Method:  http.MethodPost,
		Uri:     uri,
		Body:    reqJSON,
		Headers: defaultHeaders(),
	}, nil
}

func (c *Client) makeAd(req LoadRequest, response *adapters.ResponseData) (*Ad, error) {
	if response.StatusCode == http.StatusNoContent {
		return nil, &errortypes.NoFill{Message: noFillMessage(req.Params.PlacementID, response.Body)}
	}

	if response.StatusCode == http.StatusBadRequest {
		return nil, &errortypes.BadInput{
			Message: fmt.Sprintf("Unexpected status code: %d. Check the Vungle app and placement IDs", response.StatusCode),
		}
	}

	if response.StatusCode != http.StatusOK {
		return nil, &errortypes.BadServerResponse{
			Message: fmt.Sprintf("Unexpected status code: %d.", response.StatusCode),
		}
	}

	var bidResp openrtb2.BidResponse
	if err := json.Unmarshal(response.Body, &bidResp); err != nil {
		return nil, &errortypes.FailedToUnmarshal{
			Message: err.Error(),
		}
	}

	for _, sb := range bidResp.SeatBid {
		for _, b := range sb.Bid {
			if b.Price > 0 {
				// copy response.bidid to openrtb_response.seatbid.bid.bidid
				id := b.ID
				if id == "" || id == "0" {
					id = bidResp.BidID
				}
				return &Ad{
					ID:          id,
					RequestID:   req.RequestID,
					PlacementID: req.Params.PlacementID,
					Price:       b.Price,
					Markup:      b.AdM,
					BillingURL:  b.BURL,
				}, nil
			}
		}
	}

	return nil, &errortypes.NoFill{Message: noFillMessage(req.Params.PlacementID, response.Body)}
}

// noFillMessage names the no-bid reason when the body carries one.
func noFillMessage(placementID string, body []byte) string {
	if len(body) > 0 {
		if nbr, err := jsonparser.GetInt(body, "nbr"); err == nil {
			return fmt.Sprintf("Vungle has no ad for placement %s (nbr %d)", placementID, nbr)
		} else if err != jsonparser.KeyPathNotFoundError {
			glog.V(2).Infof("vungle: unreadable no-fill body for placement %s: %v", placementID, err)
		}
	}
	return fmt.Sprintf("Vungle has no ad for placement %s", placementID)
}

func defaultHeaders() http.Header {
	headers := http.Header{}
	headers.Add("Content-Type", "application/json;charset=utf-8")
	headers.Add("Accept", "application/json")
	headers.Add("User-Agent", "prebid-mediation/1.0")
	return headers
}
