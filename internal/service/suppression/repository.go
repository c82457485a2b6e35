package suppression

import (
	"context"

	"github.com/ignite/adserve/internal/domain"
)

// Store defines the data access contract for the identifier index store.
type Store interface {
	// CreateList persists list metadata and every identifier record as one
	// atomic unit. Returns ErrDuplicateList if the list id is taken; any
	// other failure leaves no rows behind. Duplicate identifier hashes
	// within the list are insert-or-ignore.
	CreateList(ctx context.Context, list *domain.SuppressionList, identifiers []domain.IdentifierRecord) error

	// GetList returns list metadata plus its full identifier set, or
	// ErrNotFound.
	GetList(ctx context.Context, id string) (*domain.SuppressionList, error)

	// UpdateList applies the allowed mutable fields and bumps last_updated.
	// Returns ErrNotFound for an unknown id.
	UpdateList(ctx context.Context, id string, upd domain.ListUpdate) error

	// DeleteList removes the list and cascades identifier removal.
	// Reports whether a row existed.
	DeleteList(ctx context.Context, id string) (bool, error)

	// GetListsByAdvertiser returns matching lists newest-updated-first,
	// each with identifiers populated.
	GetListsByAdvertiser(ctx context.Context, advertiserID string, f domain.ListFilter) ([]domain.SuppressionList, error)

	// FindAdvertisersForIdentifier is the hot-path lookup: advertiser ids
	// whose active lists contain this identifier of this type, a count of
	// matching rows, and one diagnostic line per match. Must be an indexed
	// equality lookup on (identifier_hash, identifier_type), never a scan.
	FindAdvertisersForIdentifier(ctx context.Context, identifier string, t domain.IdentifierType) (*domain.IdentifierLookup, error)
}
