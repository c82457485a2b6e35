package api

import (
	"fmt"
	"net/http"

	"github.com/ignite/adserve/internal/domain"
	"github.com/ignite/adserve/internal/pkg/httputil"
)

// decisionRequest is the loose wire shape of an ad request. Partner
// integrations disagree on field naming, so identifiers are accepted under
// several aliases and the well-known top-level shortcuts. Normalization to
// the canonical domain.AdRequest happens exactly once, here.
type decisionRequest struct {
	PlacementID  string            `json:"placement_id"`
	Identifiers  map[string]string `json:"identifiers,omitempty"`
	EmailHash    string            `json:"email_hash,omitempty"`
	EmailHashAlt string            `json:"emailHash,omitempty"`
	Email        string            `json:"email,omitempty"`
	DeviceID     string            `json:"device_id,omitempty"`
	DeviceIDAlt  string            `json:"deviceId,omitempty"`
	CustomParams map[string]any    `json:"custom_params,omitempty"`
}

// identifierAliases maps accepted wire names onto canonical types, in
// priority order: a canonical name wins over its aliases when both appear.
var identifierAliases = map[domain.IdentifierType][]string{
	domain.IdentifierEmailHash: {"email_hash", "emailHash", "email"},
	domain.IdentifierDeviceID:  {"device_id", "deviceId"},
}

// normalize folds the loose request into a canonical AdRequest.
func (req *decisionRequest) normalize() (domain.AdRequest, error) {
	if req.PlacementID == "" {
		return domain.AdRequest{}, fmt.Errorf("placement_id is required")
	}

	// Top-level shortcut fields fill the identifiers map when it does not
	// already carry that alias.
	raw := make(map[string]string, len(req.Identifiers)+3)
	for k, v := range req.Identifiers {
		raw[k] = v
	}
	for alias, v := range map[string]string{
		"email_hash": req.EmailHash,
		"emailHash":  req.EmailHashAlt,
		"email":      req.Email,
		"device_id":  req.DeviceID,
		"deviceId":   req.DeviceIDAlt,
	} {
		if v != "" && raw[alias] == "" {
			raw[alias] = v
		}
	}

	ids := make(map[domain.IdentifierType]string)
	for t, aliases := range identifierAliases {
		for _, alias := range aliases {
			if v := raw[alias]; v != "" {
				ids[t] = v
				break
			}
		}
	}

	return domain.AdRequest{
		PlacementID:  req.PlacementID,
		Identifiers:  ids,
		CustomParams: req.CustomParams,
	}, nil
}

// Decide handles POST /api/v1/decision, the serving hot path.
func (h *Handlers) Decide(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	adReq, err := req.normalize()
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	resp, err := h.orchestrator.Decide(r.Context(), adReq)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, resp)
}
