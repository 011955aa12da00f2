package openrtb_ext

// ExtImpVungle defines the network extras a publisher may attach to a Vungle rewarded request.
type ExtImpVungle struct {
	// PlayingPlacement overrides the placement delivered in the server parameters.
	PlayingPlacement string `json:"playing_placement,omitempty"`
	// AllPlacements lists every placement the app may request. They are forwarded
	// to the network as bidding candidates.
	AllPlacements []string `json:"all_placements,omitempty"`

	UserID  string `json:"user_id,omitempty"`
	Ordinal int    `json:"ordinal,omitempty"`
	Muted   bool   `json:"muted,omitempty"`
	Region  string `json:"region,omitempty"`
}
