package suppression

import (
	"errors"
	"fmt"

	"github.com/ignite/adserve/internal/domain"
)

// Sentinel errors for the suppression service layer.
var (
	// ErrNotFound signals an unknown list id. Callers doing existence
	// checks branch on it rather than treating it as a failure.
	ErrNotFound = errors.New("suppression list not found")

	// ErrDuplicateList signals a unique-constraint conflict on list
	// identity. Surfaced distinctly from validation failures so callers
	// can treat a retry as idempotent.
	ErrDuplicateList = errors.New("suppression list already exists")

	// ErrNoUpdatableFields signals an update request naming none of the
	// mutable fields.
	ErrNoUpdatableFields = errors.New("no updatable fields provided")

	// ErrStoreUnavailable signals the index store is unreachable or not
	// initialized. The decision orchestrator downgrades this to fallback
	// mode instead of failing the request.
	ErrStoreUnavailable = errors.New("identifier index store unavailable")
)

// ValidationError rejects a whole create-list call; nothing is partially
// persisted when it is returned.
type ValidationError struct {
	IdentifierType domain.IdentifierType
	Value          string
	Reason         string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("invalid %s identifier %q: %s", e.IdentifierType, e.Value, e.Reason)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
