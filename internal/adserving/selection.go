// Package adserving holds the targeting/weighted-selection engine and the
// decision orchestrator that ties it to suppression resolution.
package adserving

import (
	"fmt"
	"math/rand"

	"github.com/ignite/adserve/internal/domain"
	"github.com/ignite/adserve/internal/pkg/logger"
)

// Not-served reasons.
const (
	ReasonNoBanners        = "no banners configured"
	ReasonTargetingFailed  = "no banners passed targeting rules"
	reasonWeightedSelected = "weighted selection"
)

// Engine applies include/exclude targeting and weighted random selection.
// It is a pure function of its inputs per call; the only injected state is
// the randomness source, which tests replace with a deterministic one.
type Engine struct {
	rng func() float64 // uniform draw in [0, 1)
}

// NewEngine creates an engine using the shared math/rand source.
func NewEngine() *Engine {
	return &Engine{rng: rand.Float64}
}

// NewEngineWithRand creates an engine with a caller-supplied uniform draw.
func NewEngineWithRand(rng func() float64) *Engine {
	return &Engine{rng: rng}
}

// Select picks one banner from the placement's pool, or explains why none
// was served. Suppression data reaches this stage only as an ordinary
// exclude parameter; the authoritative override lives in the orchestrator.
func (e *Engine) Select(banners []domain.Banner, params map[string]any) domain.AdDecision {
	if len(banners) == 0 {
		return domain.AdDecision{Served: false, Reason: ReasonNoBanners}
	}

	eligible := make([]domain.Banner, 0, len(banners))
	for _, b := range banners {
		if reason := failedRule(b, params); reason != "" {
			logger.Debug("banner dropped by targeting", "banner_id", b.ID, "rule", reason)
			continue
		}
		eligible = append(eligible, b)
	}
	if len(eligible) == 0 {
		return domain.AdDecision{Served: false, Reason: ReasonTargetingFailed}
	}

	chosen := e.weightedPick(eligible)
	return domain.AdDecision{
		Served:       true,
		BannerID:     chosen.ID,
		AdvertiserID: chosen.AdvertiserID,
		CampaignID:   chosen.CampaignID,
		Reason:       reasonWeightedSelected,
	}
}

// failedRule returns a description of the first targeting rule the banner
// fails, or "" if every rule passes. Include rules require exact equality
// with the request parameter (absent parameter fails); exclude rules must
// not match, where collection-valued request parameters match by
// containment.
func failedRule(b domain.Banner, params map[string]any) string {
	for key, want := range b.IncludeParams {
		got, ok := params[key]
		if !ok || !paramEquals(got, want) {
			return fmt.Sprintf("include rule %s=%s not satisfied", key, want)
		}
	}
	for key, banned := range b.ExcludeParams {
		if got, ok := params[key]; ok && paramMatches(got, banned) {
			return fmt.Sprintf("exclude rule %s=%s matched", key, banned)
		}
	}
	return ""
}

// paramEquals is the include-rule comparison: exact scalar equality.
func paramEquals(got any, want string) bool {
	if s, ok := got.(string); ok {
		return s == want
	}
	return fmt.Sprintf("%v", got) == want
}

// paramMatches compares a request parameter against an exclude-rule value:
// equality for scalars, containment when the request side is a collection
// (e.g. the suppressed-advertiser list injected by the orchestrator).
func paramMatches(got any, want string) bool {
	switch v := got.(type) {
	case string:
		return v == want
	case []string:
		for _, item := range v {
			if item == want {
				return true
			}
		}
		return false
	case []any:
		for _, item := range v {
			if fmt.Sprintf("%v", item) == want {
				return true
			}
		}
		return false
	default:
		return fmt.Sprintf("%v", got) == want
	}
}

// weightedPick draws one banner with probability proportional to weight.
// Zero total weight degrades to a uniform pick, never an outright failure.
func (e *Engine) weightedPick(banners []domain.Banner) domain.Banner {
	total := 0
	for _, b := range banners {
		if b.Weight > 0 {
			total += b.Weight
		}
	}
	if total == 0 {
		idx := int(e.rng() * float64(len(banners)))
		if idx >= len(banners) {
			idx = len(banners) - 1
		}
		return banners[idx]
	}

	draw := e.rng() * float64(total)
	acc := 0.0
	for _, b := range banners {
		if b.Weight <= 0 {
			continue
		}
		acc += float64(b.Weight)
		if draw < acc {
			return b
		}
	}
	// Floating-point accumulation can undershoot the draw.
	return banners[len(banners)-1]
}
