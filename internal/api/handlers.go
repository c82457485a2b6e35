// Package api exposes the suppression and decision engine over HTTP.
//
// Handlers translate between wire shapes and domain types; every accepted
// caller field-naming convention is normalized here, once, at the boundary.
// No business logic lives in this package.
package api

import (
	"net/http"

	"github.com/ignite/adserve/internal/adserving"
	"github.com/ignite/adserve/internal/pkg/httputil"
	"github.com/ignite/adserve/internal/resolver"
	"github.com/ignite/adserve/internal/service/suppression"
	"github.com/ignite/adserve/internal/worker"
)

// Handlers bundles the dependencies the HTTP layer needs.
type Handlers struct {
	lists        *suppression.Service
	orchestrator *adserving.Orchestrator
	resolver     *resolver.Resolver
	imports      *worker.ImportService // nil when the import queue is disabled
}

// NewHandlers wires the HTTP layer. imports may be nil.
func NewHandlers(lists *suppression.Service, orch *adserving.Orchestrator, res *resolver.Resolver, imports *worker.ImportService) *Handlers {
	return &Handlers{lists: lists, orchestrator: orch, resolver: res, imports: imports}
}

// HealthCheck reports liveness.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]string{"status": "ok"})
}
