package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ignite/adserve/internal/domain"
)

// BannerStore serves per-placement banner pools from PostgreSQL. The
// decision path only reads; inventory is managed out of band.
type BannerStore struct{ db *sql.DB }

// NewBannerStore creates a Postgres-backed ad inventory provider.
func NewBannerStore(db *sql.DB) *BannerStore { return &BannerStore{db: db} }

// BannersForPlacement returns the configured banner pool for a placement in
// stable id order. An unknown placement yields an empty pool, not an error.
func (s *BannerStore) BannersForPlacement(ctx context.Context, placementID string) ([]domain.Banner, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, advertiser_id, campaign_id, placement_id, weight, include_params, exclude_params
		FROM banners
		WHERE placement_id = $1
		ORDER BY id
	`, placementID)
	if err != nil {
		return nil, fmt.Errorf("banners for placement: %w", err)
	}
	defer rows.Close()

	var banners []domain.Banner
	for rows.Next() {
		var b domain.Banner
		var include, exclude []byte
		if err := rows.Scan(&b.ID, &b.AdvertiserID, &b.CampaignID, &b.PlacementID,
			&b.Weight, &include, &exclude); err != nil {
			return nil, fmt.Errorf("scan banner: %w", err)
		}
		if len(include) > 0 {
			if err := json.Unmarshal(include, &b.IncludeParams); err != nil {
				return nil, fmt.Errorf("banner %s include_params: %w", b.ID, err)
			}
		}
		if len(exclude) > 0 {
			if err := json.Unmarshal(exclude, &b.ExcludeParams); err != nil {
				return nil, fmt.Errorf("banner %s exclude_params: %w", b.ID, err)
			}
		}
		banners = append(banners, b)
	}
	return banners, rows.Err()
}
