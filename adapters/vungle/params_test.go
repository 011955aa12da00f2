package vungle

import (
	"encoding/json"
	"testing"

	"github.com/prebid/prebid-mediation/adapters"
	"github.com/prebid/prebid-mediation/errortypes"
	"github.com/prebid/prebid-mediation/openrtb_ext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindAppID(t *testing.T) {
	testCases := []struct {
		description string
		params      adapters.ServerParameters
		expected    string
	}{
		{
			description: "present",
			params:      adapters.ServerParameters{AppIDKey: "app-1"},
			expected:    "app-1",
		},
		{
			description: "missing-key",
			params:      adapters.ServerParameters{PlacementIDKey: "srv-456"},
			expected:    "",
		},
		{
			description: "empty-value",
			params:      adapters.ServerParameters{AppIDKey: ""},
			expected:    "",
		},
		{
			description: "nil-map",
			params:      nil,
			expected:    "",
		},
		{
			description: "no-trimming-or-format-checks",
			params:      adapters.ServerParameters{AppIDKey: " not an id "},
			expected:    " not an id ",
		},
	}

	for _, test := range testCases {
		assert.Equal(t, test.expected, FindAppID(test.params), test.description)
	}
}

func TestFindPlacement(t *testing.T) {
	testCases := []struct {
		description string
		params      adapters.ServerParameters
		extras      *openrtb_ext.ExtImpVungle
		expected    string
	}{
		{
			description: "override-wins",
			params:      adapters.ServerParameters{PlacementIDKey: "srv-456"},
			extras:      &openrtb_ext.ExtImpVungle{PlayingPlacement: "ext-123"},
			expected:    "ext-123",
		},
		{
			description: "override-without-server-value",
			params:      adapters.ServerParameters{},
			extras:      &openrtb_ext.ExtImpVungle{PlayingPlacement: "ext-123"},
			expected:    "ext-123",
		},
		{
			description: "no-extras-uses-server-value",
			params:      adapters.ServerParameters{PlacementIDKey: "srv-456"},
			extras:      nil,
			expected:    "srv-456",
		},
		{
			description: "empty-override-uses-server-value",
			params:      adapters.ServerParameters{PlacementIDKey: "srv-456"},
			extras:      &openrtb_ext.ExtImpVungle{AllPlacements: []string{"other"}},
			expected:    "srv-456",
		},
		{
			description: "both-absent",
			params:      adapters.ServerParameters{AppIDKey: "app-1"},
			extras:      &openrtb_ext.ExtImpVungle{},
			expected:    "",
		},
		{
			description: "legacy-keys-are-not-read",
			params:      adapters.ServerParameters{"pltc": "legacy", "placement": "legacy"},
			extras:      nil,
			expected:    "",
		},
	}

	for _, test := range testCases {
		assert.Equal(t, test.expected, FindPlacement(test.params, test.extras), test.description)
	}
}

func TestAddIfPresent(t *testing.T) {
	set := make(PlacementSet)

	AddIfPresent(set, nil)
	assert.Len(t, set, 0)

	placement := "srv-456"
	AddIfPresent(set, &placement)
	AddIfPresent(set, &placement)
	assert.Len(t, set, 1)
	assert.Contains(t, set, "srv-456")

	assert.NotPanics(t, func() { AddIfPresent(nil, &placement) })
}

func TestParseParams(t *testing.T) {
	conf := adapters.AdConfiguration{
		ServerParameters: adapters.ServerParameters{AppIDKey: "app-1", PlacementIDKey: "srv-456"},
		NetworkExtras:    json.RawMessage(`{"playing_placement":"ext-123","all_placements":["b","ext-123","","a"],"user_id":"user-1","ordinal":3,"muted":true,"region":"eu"}`),
		Test:             true,
	}

	params, err := ParseParams(conf)
	require.NoError(t, err)

	assert.Equal(t, Params{
		AppID:       "app-1",
		PlacementID: "ext-123",
		Placements:  []string{"a", "b", "ext-123"},
		UserID:      "user-1",
		Ordinal:     3,
		Muted:       true,
		Region:      EU,
		Test:        true,
	}, params)
}

func TestParseParamsWithoutExtras(t *testing.T) {
	for _, extras := range []json.RawMessage{nil, json.RawMessage(`null`), json.RawMessage(` null `)} {
		params, err := ParseParams(adapters.AdConfiguration{
			ServerParameters: adapters.ServerParameters{AppIDKey: "app-1", PlacementIDKey: "srv-456"},
			NetworkExtras:    extras,
		})
		require.NoError(t, err)
		assert.Equal(t, "srv-456", params.PlacementID)
		assert.Equal(t, []string{"srv-456"}, params.Placements)
	}
}

func TestParseParamsErrors(t *testing.T) {
	testCases := []struct {
		description string
		conf        adapters.AdConfiguration
		expected    string
	}{
		{
			description: "missing-app-id",
			conf: adapters.AdConfiguration{
				ServerParameters: adapters.ServerParameters{PlacementIDKey: "srv-456"},
			},
			expected: "application ID",
		},
		{
			description: "missing-placement",
			conf: adapters.AdConfiguration{
				ServerParameters: adapters.ServerParameters{AppIDKey: "app-1"},
			},
			expected: "placement ID",
		},
		{
			description: "malformed-extras",
			conf: adapters.AdConfiguration{
				ServerParameters: adapters.ServerParameters{AppIDKey: "app-1", PlacementIDKey: "srv-456"},
				NetworkExtras:    json.RawMessage(`{"playing_placement":42}`),
			},
			expected: "malformed",
		},
	}

	for _, test := range testCases {
		_, err := ParseParams(test.conf)
		require.Error(t, err, test.description)
		assert.IsType(t, &errortypes.BadInput{}, err, test.description)
		assert.Contains(t, err.Error(), test.expected, test.description)
	}
}
