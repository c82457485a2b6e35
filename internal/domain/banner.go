package domain

// Banner is a single creative eligible for serving. Include/exclude params
// are targeting rules evaluated against the request's custom parameters:
// every include key must match exactly, no exclude key may match.
type Banner struct {
	ID            string            `json:"id" db:"id"`
	AdvertiserID  string            `json:"advertiser_id" db:"advertiser_id"`
	CampaignID    string            `json:"campaign_id" db:"campaign_id"`
	PlacementID   string            `json:"placement_id" db:"placement_id"`
	Weight        int               `json:"weight" db:"weight"`
	IncludeParams map[string]string `json:"include_params,omitempty"`
	ExcludeParams map[string]string `json:"exclude_params,omitempty"`
}

// Placement is a named slot banners are configured against.
type Placement struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}
