package api

import (
	"net/http"

	"github.com/ignite/adserve/internal/pkg/httputil"
)

// Stats handles GET /api/v1/stats, the operational snapshot of the
// resolver and its cache.
func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, h.resolver.Stats())
}
