package domain

import "time"

// IdentifierType is the category of a user identifier. Lookup and validation
// rules are type-specific.
type IdentifierType string

const (
	IdentifierEmailHash IdentifierType = "email_hash"
	IdentifierDeviceID  IdentifierType = "device_id"
)

// KnownIdentifierTypes lists every recognized identifier type in a fixed
// order. Iteration order never affects a resolution result (the merged set
// is a union), but a stable order keeps diagnostics deterministic.
func KnownIdentifierTypes() []IdentifierType {
	return []IdentifierType{IdentifierEmailHash, IdentifierDeviceID}
}

// Valid reports whether t is a recognized identifier type.
func (t IdentifierType) Valid() bool {
	switch t {
	case IdentifierEmailHash, IdentifierDeviceID:
		return true
	}
	return false
}

// SuppressionList is an advertiser-owned, typed set of user identifiers that
// must not see that advertiser's ads.
type SuppressionList struct {
	ID             string         `json:"id" db:"id"`
	AdvertiserID   string         `json:"advertiser_id" db:"advertiser_id"`
	Name           string         `json:"name" db:"name"`
	Description    string         `json:"description,omitempty" db:"description"`
	IdentifierType IdentifierType `json:"identifier_type" db:"identifier_type"`
	IsActive       bool           `json:"is_active" db:"is_active"`
	Size           int            `json:"size" db:"size"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
	SubmittedAt    time.Time      `json:"submitted_at" db:"submitted_at"`
	LastUpdated    time.Time      `json:"last_updated" db:"last_updated"`

	// Identifiers is populated by reads that request full membership
	// (GetList, GetListsByAdvertiser). Lookup paths never load it.
	Identifiers []IdentifierRecord `json:"identifiers,omitempty"`
}

// IdentifierRecord is a single suppressed identifier inside a list. The hash
// is a deterministic SHA-256 digest of the normalized raw identifier and is
// the key the lookup index is built on. AdvertiserID is denormalized from
// the owning list so the hot-path lookup avoids a join for it.
type IdentifierRecord struct {
	IdentifierHash string         `json:"identifier_hash" db:"identifier_hash"`
	Identifier     string         `json:"identifier" db:"identifier"`
	IdentifierType IdentifierType `json:"identifier_type" db:"identifier_type"`
	ListID         string         `json:"list_id" db:"list_id"`
	AdvertiserID   string         `json:"advertiser_id" db:"advertiser_id"`
	AddedAt        time.Time      `json:"added_at" db:"added_at"`
}

// ListUpdate carries the fields a caller may change on an existing list.
// Nil pointers mean "leave unchanged".
type ListUpdate struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Empty reports whether the update touches no updatable field.
func (u ListUpdate) Empty() bool {
	return u.Name == nil && u.Description == nil
}

// ListFilter narrows GetListsByAdvertiser results.
type ListFilter struct {
	IdentifierType IdentifierType
	ActiveOnly     bool
}

// IdentifierLookup is the result of the hot-path index lookup for one
// (identifier, type) pair.
type IdentifierLookup struct {
	Advertisers []string `json:"advertisers"`
	MatchCount  int      `json:"match_count"`
	Details     []string `json:"details,omitempty"`
}
