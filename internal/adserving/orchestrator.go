package adserving

import (
	"context"
	"fmt"

	"github.com/ignite/adserve/internal/domain"
	"github.com/ignite/adserve/internal/metrics"
	"github.com/ignite/adserve/internal/pkg/logger"
)

// SuppressedParam is the custom-parameter key the orchestrator injects the
// suppressed-advertiser set under, so banner exclude rules can reference it.
const SuppressedParam = "suppressed_advertisers"

// Inventory supplies the eligible banner pool per placement. The core never
// mutates inventory data.
type Inventory interface {
	BannersForPlacement(ctx context.Context, placementID string) ([]domain.Banner, error)
}

// SuppressionResolver resolves a request's identifiers into a merged
// suppression result.
type SuppressionResolver interface {
	Resolve(ctx context.Context, ids map[domain.IdentifierType]string) (domain.SuppressionResult, error)
}

// Orchestrator sequences resolution, selection, and the suppression
// override into one serving decision. Resolver and engine are injected,
// never subclassed or reached through globals.
type Orchestrator struct {
	inventory Inventory
	resolver  SuppressionResolver
	engine    *Engine
}

// NewOrchestrator wires the decision pipeline.
func NewOrchestrator(inventory Inventory, resolver SuppressionResolver, engine *Engine) *Orchestrator {
	return &Orchestrator{inventory: inventory, resolver: resolver, engine: engine}
}

// Decide produces the serving decision for one request.
//
// Suppression flows into selection twice: advisorily, as an exclude
// parameter banner configuration may reference, and authoritatively, as a
// post-selection override that cannot be bypassed by a banner that omits
// the exclude rule.
//
// If resolution fails entirely, ad serving is prioritized over the
// suppression guarantee: the decision proceeds with an empty suppressed set
// and a fallback-mode diagnostic.
func (o *Orchestrator) Decide(ctx context.Context, req domain.AdRequest) (domain.DecisionResponse, error) {
	sup, err := o.resolver.Resolve(ctx, req.Identifiers)
	if err != nil {
		logger.Error("suppression resolution failed; entering fallback mode",
			"placement_id", req.PlacementID, "error", err)
		metrics.DecisionsTotal.WithLabelValues(metrics.OutcomeFallback).Inc()
		sup = domain.SuppressionResult{
			SuppressedAdvertisers: []string{},
			Details:               []string{fmt.Sprintf("fallback mode: serving without suppression (%v)", err)},
		}
	}

	banners, err := o.inventory.BannersForPlacement(ctx, req.PlacementID)
	if err != nil {
		return domain.DecisionResponse{}, fmt.Errorf("load banners for placement %s: %w", req.PlacementID, err)
	}

	params := make(map[string]any, len(req.CustomParams)+1)
	for k, v := range req.CustomParams {
		params[k] = v
	}
	params[SuppressedParam] = sup.SuppressedAdvertisers

	decision := o.engine.Select(banners, params)

	// Second line of defense: the exclude-param route above is advisory
	// (a banner may simply not configure it); this check is mandatory.
	if decision.Served && sup.Suppresses(decision.AdvertiserID) {
		logger.Info("suppression override rejected selected banner",
			"banner_id", decision.BannerID, "advertiser_id", decision.AdvertiserID)
		decision = domain.AdDecision{
			Served: false,
			Reason: fmt.Sprintf("advertiser %s suppressed for this user", decision.AdvertiserID),
		}
		metrics.DecisionsTotal.WithLabelValues(metrics.OutcomeSuppressed).Inc()
	} else if decision.Served {
		metrics.DecisionsTotal.WithLabelValues(metrics.OutcomeServed).Inc()
	} else {
		metrics.DecisionsTotal.WithLabelValues(metrics.OutcomeNoBanner).Inc()
	}

	return domain.DecisionResponse{Decision: decision, Suppression: sup}, nil
}
