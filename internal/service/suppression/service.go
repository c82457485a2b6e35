package suppression

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/adserve/internal/domain"
	"github.com/ignite/adserve/internal/pkg/logger"
)

// Service implements suppression list business logic. It is safe for
// concurrent use: all state lives in the store.
type Service struct {
	store Store
}

// NewService creates a suppression service backed by the given store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// CreateListInput is the create-list request shape after boundary
// normalization. Identifiers are raw values in caller order.
type CreateListInput struct {
	ID             string
	AdvertiserID   string
	Name           string
	Description    string
	IdentifierType domain.IdentifierType
	Identifiers    []string
}

// CreateList validates, deduplicates, and persists a new suppression list
// with all of its identifiers in one atomic unit. Any malformed identifier
// rejects the whole call with a ValidationError and nothing is persisted.
// Warnings report leniently-accepted values (raw emails on an email_hash
// list).
func (s *Service) CreateList(ctx context.Context, in CreateListInput) (*domain.SuppressionList, []string, error) {
	if !in.IdentifierType.Valid() {
		return nil, nil, &ValidationError{IdentifierType: in.IdentifierType, Reason: "unsupported identifier type"}
	}
	if in.AdvertiserID == "" {
		return nil, nil, &ValidationError{IdentifierType: in.IdentifierType, Reason: "advertiser_id is required"}
	}
	if in.Name == "" {
		return nil, nil, &ValidationError{IdentifierType: in.IdentifierType, Reason: "name is required"}
	}

	id := in.ID
	if id == "" {
		id = uuid.New().String()
	}

	now := time.Now().UTC()
	list := &domain.SuppressionList{
		ID:             id,
		AdvertiserID:   in.AdvertiserID,
		Name:           in.Name,
		Description:    in.Description,
		IdentifierType: in.IdentifierType,
		IsActive:       true,
		CreatedAt:      now,
		SubmittedAt:    now,
		LastUpdated:    now,
	}

	var warnings []string
	records := make([]domain.IdentifierRecord, 0, len(in.Identifiers))
	seen := make(map[string]bool, len(in.Identifiers))
	for _, raw := range in.Identifiers {
		warn, err := ValidateIdentifier(raw, in.IdentifierType)
		if err != nil {
			return nil, nil, err
		}
		if warn != "" {
			warnings = append(warnings, warn+": "+logger.RedactIdentifier(raw))
		}

		// Import-time dedup: two values with the same normalized form
		// collapse to the first occurrence.
		norm := Normalize(raw, in.IdentifierType)
		if seen[norm] {
			continue
		}
		seen[norm] = true

		records = append(records, domain.IdentifierRecord{
			IdentifierHash: HashIdentifier(raw, in.IdentifierType),
			Identifier:     raw,
			IdentifierType: in.IdentifierType,
			ListID:         id,
			AdvertiserID:   in.AdvertiserID,
			AddedAt:        now,
		})
	}
	list.Size = len(records)

	if err := s.store.CreateList(ctx, list, records); err != nil {
		return nil, nil, err
	}

	logger.Info("suppression list created",
		"list_id", list.ID,
		"advertiser_id", list.AdvertiserID,
		"identifier_type", string(list.IdentifierType),
		"size", list.Size,
	)
	list.Identifiers = records
	return list, warnings, nil
}

// GetList returns a list with its full identifier set, or ErrNotFound.
func (s *Service) GetList(ctx context.Context, id string) (*domain.SuppressionList, error) {
	return s.store.GetList(ctx, id)
}

// UpdateList applies the allow-listed mutable fields (name, description).
// Returns ErrNoUpdatableFields when the caller supplies none of them.
func (s *Service) UpdateList(ctx context.Context, id string, upd domain.ListUpdate) error {
	if upd.Empty() {
		return ErrNoUpdatableFields
	}
	return s.store.UpdateList(ctx, id, upd)
}

// DeleteList removes a list and its identifiers. Reports whether it existed.
func (s *Service) DeleteList(ctx context.Context, id string) (bool, error) {
	existed, err := s.store.DeleteList(ctx, id)
	if err == nil && existed {
		logger.Info("suppression list deleted", "list_id", id)
	}
	return existed, err
}

// GetListsByAdvertiser returns an advertiser's lists newest-updated-first.
func (s *Service) GetListsByAdvertiser(ctx context.Context, advertiserID string, f domain.ListFilter) ([]domain.SuppressionList, error) {
	return s.store.GetListsByAdvertiser(ctx, advertiserID, f)
}

// Lookup runs the hot-path index query for one (identifier, type) pair.
func (s *Service) Lookup(ctx context.Context, identifier string, t domain.IdentifierType) (*domain.IdentifierLookup, error) {
	return s.store.FindAdvertisersForIdentifier(ctx, identifier, t)
}

// CheckResult is the outcome of a lenient pre-import validation check.
type CheckResult struct {
	Identifier string `json:"identifier"`
	Valid      bool   `json:"valid"`
	Warning    string `json:"warning,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// CheckIdentifiers validates a batch without persisting anything. Unlike
// CreateList it never fails on a malformed value; each result carries its
// own disposition.
func (s *Service) CheckIdentifiers(values []string, t domain.IdentifierType) []CheckResult {
	out := make([]CheckResult, 0, len(values))
	for _, v := range values {
		res := CheckResult{Identifier: v}
		warn, err := ValidateIdentifier(v, t)
		if err != nil {
			res.Reason = err.Error()
		} else {
			res.Valid = true
			res.Warning = warn
		}
		out = append(out, res)
	}
	return out
}
