package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/adserve/internal/pkg/httputil"
	"github.com/ignite/adserve/internal/worker"
)

// EnqueueImport handles POST /api/v1/imports. Accepts the job and returns
// 202; the worker builds the list in the background.
func (h *Handlers) EnqueueImport(w http.ResponseWriter, r *http.Request) {
	var req worker.ImportRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	job, err := h.imports.Enqueue(r.Context(), req)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.JSON(w, http.StatusAccepted, job)
}

// ImportProgress handles GET /api/v1/imports/{id}.
func (h *Handlers) ImportProgress(w http.ResponseWriter, r *http.Request) {
	prog, err := h.imports.GetProgress(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, worker.ErrJobNotFound) {
			httputil.NotFound(w, "import job not found")
			return
		}
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, prog)
}
