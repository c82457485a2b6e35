package adserving

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/adserve/internal/domain"
)

type stubInventory struct {
	pools map[string][]domain.Banner
	err   error
}

func (s *stubInventory) BannersForPlacement(_ context.Context, placementID string) ([]domain.Banner, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.pools[placementID], nil
}

type stubResolver struct {
	result domain.SuppressionResult
	err    error
}

func (s *stubResolver) Resolve(_ context.Context, _ map[domain.IdentifierType]string) (domain.SuppressionResult, error) {
	return s.result, s.err
}

func TestDecide_OverrideRejectsSuppressedAdvertiser(t *testing.T) {
	// The only banner belongs to a suppressed advertiser and configures
	// no exclude rule at all: weighted selection will pick it, and only
	// the mandatory override can stop it.
	inv := &stubInventory{pools: map[string][]domain.Banner{
		"home_top": {{ID: "b1", AdvertiserID: "adv_techcorp", Weight: 100}},
	}}
	res := &stubResolver{result: domain.SuppressionResult{
		SuppressedAdvertisers: []string{"adv_techcorp"},
		ListsChecked:          1,
	}}

	o := NewOrchestrator(inv, res, NewEngine())
	resp, err := o.Decide(context.Background(), domain.AdRequest{PlacementID: "home_top"})
	require.NoError(t, err)

	assert.False(t, resp.Decision.Served)
	assert.Contains(t, resp.Decision.Reason, "adv_techcorp")
	assert.Contains(t, resp.Decision.Reason, "suppressed")
	assert.Equal(t, []string{"adv_techcorp"}, resp.Suppression.SuppressedAdvertisers)
}

func TestDecide_CleanUserFollowsOrdinarySelection(t *testing.T) {
	inv := &stubInventory{pools: map[string][]domain.Banner{
		"home_top": {{ID: "b1", AdvertiserID: "adv_techcorp", CampaignID: "c1", Weight: 100}},
	}}
	res := &stubResolver{result: domain.SuppressionResult{SuppressedAdvertisers: []string{}}}

	o := NewOrchestrator(inv, res, NewEngine())
	resp, err := o.Decide(context.Background(), domain.AdRequest{PlacementID: "home_top"})
	require.NoError(t, err)

	assert.True(t, resp.Decision.Served)
	assert.Equal(t, "b1", resp.Decision.BannerID)
	assert.Empty(t, resp.Suppression.SuppressedAdvertisers)
}

func TestDecide_SuppressedSetReachesExcludeRules(t *testing.T) {
	// Banner one carries the exclude rule, so targeting drops it before
	// selection and banner two serves without the override firing.
	inv := &stubInventory{pools: map[string][]domain.Banner{
		"home_top": {
			{ID: "b1", AdvertiserID: "adv_a", Weight: 100,
				ExcludeParams: map[string]string{SuppressedParam: "adv_a"}},
			{ID: "b2", AdvertiserID: "adv_b", Weight: 1},
		},
	}}
	res := &stubResolver{result: domain.SuppressionResult{SuppressedAdvertisers: []string{"adv_a"}}}

	o := NewOrchestrator(inv, res, NewEngine())
	resp, err := o.Decide(context.Background(), domain.AdRequest{PlacementID: "home_top"})
	require.NoError(t, err)

	assert.True(t, resp.Decision.Served)
	assert.Equal(t, "b2", resp.Decision.BannerID)
}

func TestDecide_FallbackModeServesWithoutSuppression(t *testing.T) {
	inv := &stubInventory{pools: map[string][]domain.Banner{
		"home_top": {{ID: "b1", AdvertiserID: "adv_techcorp", Weight: 100}},
	}}
	res := &stubResolver{err: errors.New("store unreachable")}

	o := NewOrchestrator(inv, res, NewEngine())
	resp, err := o.Decide(context.Background(), domain.AdRequest{PlacementID: "home_top"})
	require.NoError(t, err, "resolver failure must not fail the request")

	assert.True(t, resp.Decision.Served, "availability is prioritized over the suppression guarantee")
	assert.Empty(t, resp.Suppression.SuppressedAdvertisers)

	fallback := false
	for _, d := range resp.Suppression.Details {
		if strings.Contains(d, "fallback mode") {
			fallback = true
		}
	}
	assert.True(t, fallback, "details should record that fallback occurred: %v", resp.Suppression.Details)
}

func TestDecide_UnknownPlacement(t *testing.T) {
	inv := &stubInventory{pools: map[string][]domain.Banner{}}
	res := &stubResolver{}

	o := NewOrchestrator(inv, res, NewEngine())
	resp, err := o.Decide(context.Background(), domain.AdRequest{PlacementID: "nope"})
	require.NoError(t, err)

	assert.False(t, resp.Decision.Served)
	assert.Equal(t, ReasonNoBanners, resp.Decision.Reason)
}

func TestDecide_InventoryErrorPropagates(t *testing.T) {
	inv := &stubInventory{err: errors.New("inventory down")}
	res := &stubResolver{}

	o := NewOrchestrator(inv, res, NewEngine())
	_, err := o.Decide(context.Background(), domain.AdRequest{PlacementID: "home_top"})
	assert.Error(t, err)
}
