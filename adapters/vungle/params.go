package vungle

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/prebid/prebid-mediation/adapters"
	"github.com/prebid/prebid-mediation/errortypes"
	"github.com/prebid/prebid-mediation/openrtb_ext"
)

// Server parameter keys set by the mediation platform for a Vungle ad unit.
const (
	AppIDKey       = "appid"
	PlacementIDKey = "placementID"
)

// PlacementSet holds the distinct placement IDs a request may be served from.
type PlacementSet map[string]struct{}

// Params is the validated form of an AdConfiguration. Both AppID and PlacementID are non-empty.
type Params struct {
	AppID       string
	PlacementID string
	// Placements lists every candidate placement, PlacementID included, in sorted order.
	Placements []string
	UserID     string
	Ordinal    int
	Muted      bool
	Region     Region
	Test       bool
}

// FindAppID returns the application ID, or "" when the key is missing or empty.
func FindAppID(params adapters.ServerParameters) string {
	return params[AppIDKey]
}

// FindPlacement returns the placement to load. A non-empty override in extras wins over the
// server parameter.
func FindPlacement(params adapters.ServerParameters, extras *openrtb_ext.ExtImpVungle) string {
	if extras != nil && extras.PlayingPlacement != "" {
		return extras.PlayingPlacement
	}
	return params[PlacementIDKey]
}

// AddIfPresent inserts placement into set unless placement is nil.
func AddIfPresent(set PlacementSet, placement *string) {
	if set == nil || placement == nil {
		return
	}
	set[*placement] = struct{}{}
}

// ParseParams resolves and validates the identifiers of conf. A missing app ID or placement is
// a BadInput; malformed network extras are a BadInput too.
func ParseParams(conf adapters.AdConfiguration) (Params, error) {
	extras, err := parseExtras(conf.NetworkExtras)
	if err != nil {
		return Params{}, err
	}

	appID := FindAppID(conf.ServerParameters)
	if appID == "" {
		return Params{}, &errortypes.BadInput{
			Message: fmt.Sprintf("Missing or invalid Vungle application ID. Set the %q server parameter.", AppIDKey),
		}
	}

	placementID := FindPlacement(conf.ServerParameters, extras)
	if placementID == "" {
		return Params{}, &errortypes.BadInput{
			Message: fmt.Sprintf("Missing or invalid Vungle placement ID. Set the %q server parameter or the playing_placement network extra.", PlacementIDKey),
		}
	}

	placements := make(PlacementSet)
	AddIfPresent(placements, &placementID)

	p := Params{
		AppID:       appID,
		PlacementID: placementID,
		Test:        conf.Test,
	}
	if extras != nil {
		for i := range extras.AllPlacements {
			if extras.AllPlacements[i] != "" {
				AddIfPresent(placements, &extras.AllPlacements[i])
			}
		}
		p.UserID = extras.UserID
		p.Ordinal = extras.Ordinal
		p.Muted = extras.Muted
		p.Region = Region(extras.Region)
	}
	p.Placements = placements.sorted()

	return p, nil
}

func parseExtras(raw json.RawMessage) (*openrtb_ext.ExtImpVungle, error) {
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, nil
	}
	var extras openrtb_ext.ExtImpVungle
	if err := json.Unmarshal(raw, &extras); err != nil {
		return nil, &errortypes.BadInput{
			Message: fmt.Sprintf("Vungle network extras are malformed: %v", err),
		}
	}
	return &extras, nil
}

func (s PlacementSet) sorted() []string {
	out := make([]string, 0, len(s))
	for placement := range s {
		out = append(out, placement)
	}
	sort.Strings(out)
	return out
}
