package domain

// AdRequest is the normalized form of an incoming ad request. Handlers map
// whatever field-naming convention the caller used onto this shape once, at
// the boundary; nothing below the API layer ever sees the raw payload.
type AdRequest struct {
	PlacementID string `json:"placement_id"`

	// Identifiers holds at most one raw value per recognized identifier
	// type. Absent or empty values are skipped during resolution, never
	// treated as suppressed.
	Identifiers map[IdentifierType]string `json:"identifiers"`

	// CustomParams are matched against banner targeting rules. Values are
	// scalars as provided by the caller, except for collection-valued
	// parameters (e.g. the suppressed-advertiser list the orchestrator
	// injects), which exclude rules match by containment.
	CustomParams map[string]any `json:"custom_params,omitempty"`
}

// SuppressionResult is the merged outcome of resolving a request's
// identifiers against the index store.
type SuppressionResult struct {
	SuppressedAdvertisers []string `json:"suppressed_advertisers"`
	ListsChecked          int      `json:"lists_checked"`
	ProcessingTimeMs      float64  `json:"processing_time_ms"`
	Details               []string `json:"details,omitempty"`
}

// Suppresses reports whether advertiserID is in the suppressed set.
func (r SuppressionResult) Suppresses(advertiserID string) bool {
	for _, a := range r.SuppressedAdvertisers {
		if a == advertiserID {
			return true
		}
	}
	return false
}

// AdDecision is the serving outcome for one request.
type AdDecision struct {
	Served       bool   `json:"served"`
	BannerID     string `json:"banner_id,omitempty"`
	AdvertiserID string `json:"advertiser_id,omitempty"`
	CampaignID   string `json:"campaign_id,omitempty"`
	Reason       string `json:"reason"`
}

// DecisionResponse pairs the serving decision with the suppression outcome
// that produced it. Computed per request, never persisted.
type DecisionResponse struct {
	Decision    AdDecision        `json:"decision"`
	Suppression SuppressionResult `json:"suppression"`
}
