package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/adserve/internal/domain"
	"github.com/ignite/adserve/internal/pkg/httputil"
	"github.com/ignite/adserve/internal/service/suppression"
)

type createListRequest struct {
	ID             string   `json:"id,omitempty"`
	AdvertiserID   string   `json:"advertiser_id"`
	Name           string   `json:"name"`
	Description    string   `json:"description,omitempty"`
	IdentifierType string   `json:"identifier_type"`
	Identifiers    []string `json:"identifiers"`
}

type createListResponse struct {
	List     *domain.SuppressionList `json:"list"`
	Warnings []string                `json:"warnings,omitempty"`
}

// CreateList handles POST /api/v1/lists.
func (h *Handlers) CreateList(w http.ResponseWriter, r *http.Request) {
	var req createListRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	list, warnings, err := h.lists.CreateList(r.Context(), suppression.CreateListInput{
		ID:             req.ID,
		AdvertiserID:   req.AdvertiserID,
		Name:           req.Name,
		Description:    req.Description,
		IdentifierType: domain.IdentifierType(req.IdentifierType),
		Identifiers:    req.Identifiers,
	})
	if err != nil {
		writeListError(w, err)
		return
	}
	httputil.Created(w, createListResponse{List: list, Warnings: warnings})
}

// GetList handles GET /api/v1/lists/{id}.
func (h *Handlers) GetList(w http.ResponseWriter, r *http.Request) {
	list, err := h.lists.GetList(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeListError(w, err)
		return
	}
	httputil.OK(w, list)
}

// UpdateList handles PATCH /api/v1/lists/{id}. Only name and description
// are mutable; anything else in the body is ignored.
func (h *Handlers) UpdateList(w http.ResponseWriter, r *http.Request) {
	var upd domain.ListUpdate
	if !httputil.Decode(w, r, &upd) {
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.lists.UpdateList(r.Context(), id, upd); err != nil {
		writeListError(w, err)
		return
	}

	list, err := h.lists.GetList(r.Context(), id)
	if err != nil {
		writeListError(w, err)
		return
	}
	httputil.OK(w, list)
}

// DeleteList handles DELETE /api/v1/lists/{id}.
func (h *Handlers) DeleteList(w http.ResponseWriter, r *http.Request) {
	existed, err := h.lists.DeleteList(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if !existed {
		httputil.NotFound(w, "list not found")
		return
	}
	httputil.NoContent(w)
}

// GetAdvertiserLists handles GET /api/v1/advertisers/{advertiserID}/lists.
// Optional query params: identifier_type, active_only (defaults to true;
// pass active_only=false to include deactivated lists).
func (h *Handlers) GetAdvertiserLists(w http.ResponseWriter, r *http.Request) {
	filter := domain.ListFilter{
		IdentifierType: domain.IdentifierType(r.URL.Query().Get("identifier_type")),
		ActiveOnly:     r.URL.Query().Get("active_only") != "false",
	}
	if filter.IdentifierType != "" && !filter.IdentifierType.Valid() {
		httputil.BadRequest(w, "unsupported identifier_type")
		return
	}

	lists, err := h.lists.GetListsByAdvertiser(r.Context(), chi.URLParam(r, "advertiserID"), filter)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]any{
		"advertiser_id": chi.URLParam(r, "advertiserID"),
		"lists":         lists,
		"count":         len(lists),
	})
}

type validateRequest struct {
	IdentifierType string   `json:"identifier_type"`
	Identifiers    []string `json:"identifiers"`
}

// ValidateIdentifiers handles POST /api/v1/identifiers/validate. Lenient:
// always 200, each value carries its own disposition.
func (h *Handlers) ValidateIdentifiers(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	t := domain.IdentifierType(req.IdentifierType)
	if !t.Valid() {
		httputil.BadRequest(w, "unsupported identifier_type")
		return
	}
	httputil.OK(w, map[string]any{
		"identifier_type": t,
		"results":         h.lists.CheckIdentifiers(req.Identifiers, t),
	})
}

type lookupRequest struct {
	Identifier     string `json:"identifier"`
	IdentifierType string `json:"identifier_type"`
}

// LookupIdentifier handles POST /api/v1/identifiers/lookup. Debug aid for
// list operators; the serving path goes through /decision.
func (h *Handlers) LookupIdentifier(w http.ResponseWriter, r *http.Request) {
	var req lookupRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	t := domain.IdentifierType(req.IdentifierType)
	if !t.Valid() {
		httputil.BadRequest(w, "unsupported identifier_type")
		return
	}
	if req.Identifier == "" {
		httputil.BadRequest(w, "identifier is required")
		return
	}

	lookup, err := h.lists.Lookup(r.Context(), req.Identifier, t)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, lookup)
}

// writeListError maps service errors onto HTTP statuses.
func writeListError(w http.ResponseWriter, err error) {
	var verr *suppression.ValidationError
	switch {
	case errors.As(err, &verr):
		httputil.BadRequest(w, verr.Error())
	case errors.Is(err, suppression.ErrDuplicateList):
		httputil.Conflict(w, "a list with this id already exists")
	case errors.Is(err, suppression.ErrNotFound):
		httputil.NotFound(w, "list not found")
	case errors.Is(err, suppression.ErrNoUpdatableFields):
		httputil.BadRequest(w, "no updatable fields supplied")
	default:
		httputil.InternalError(w, err)
	}
}
