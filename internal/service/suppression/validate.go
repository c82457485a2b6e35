package suppression

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/ignite/adserve/internal/domain"
)

// Identifier shape rules. email_hash accepts raw email addresses as a
// deliberate accommodation for non-hashed sample data: they pass validation
// with a warning instead of failing.
var (
	emailHashRe = regexp.MustCompile(`^[a-zA-Z0-9]{50,70}$`)
	rawEmailRe  = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[a-zA-Z]{2,}$`)

	deviceHexRe  = regexp.MustCompile(`^[0-9a-fA-F-]+$`)
	deviceUUIDRe = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	deviceIOSRe  = regexp.MustCompile(`^iosdevice-[0-9a-fA-F][0-9a-fA-F-]*$`)

	nonHexHyphen = regexp.MustCompile(`[^0-9a-f-]`)
)

// WarnRawEmail is attached to raw email addresses accepted on an email_hash
// list.
const WarnRawEmail = "raw email accepted in place of a hash; hash identifiers before import"

// ValidateIdentifier checks a raw identifier against the type-specific shape
// rules. A non-empty warning means the value passed leniently.
func ValidateIdentifier(value string, t domain.IdentifierType) (warning string, err error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", &ValidationError{IdentifierType: t, Value: value, Reason: "identifier is empty"}
	}

	switch t {
	case domain.IdentifierEmailHash:
		if emailHashRe.MatchString(value) {
			return "", nil
		}
		if rawEmailRe.MatchString(value) {
			return WarnRawEmail, nil
		}
		return "", &ValidationError{IdentifierType: t, Value: value, Reason: "expected a 50-70 character hash or an email address"}

	case domain.IdentifierDeviceID:
		if deviceUUIDRe.MatchString(value) || deviceIOSRe.MatchString(value) || deviceHexRe.MatchString(value) {
			return "", nil
		}
		return "", &ValidationError{IdentifierType: t, Value: value, Reason: "expected hex digits and hyphens, a UUID, or an iosdevice-prefixed id"}
	}

	return "", &ValidationError{IdentifierType: t, Value: value, Reason: "unsupported identifier type"}
}

// Normalize maps an identifier to its canonical comparison form: lowercase
// for email hashes and raw emails; device ids additionally drop everything
// outside hex digits and hyphens (the iosdevice- prefix survives as its hex
// letters, which keeps normalization deterministic for the same input).
func Normalize(value string, t domain.IdentifierType) string {
	v := strings.ToLower(strings.TrimSpace(value))
	if t == domain.IdentifierDeviceID {
		v = nonHexHyphen.ReplaceAllString(v, "")
	}
	return v
}

// HashIdentifier returns the deterministic digest the identifier index is
// keyed on: hex SHA-256 of the normalized value.
func HashIdentifier(value string, t domain.IdentifierType) string {
	sum := sha256.Sum256([]byte(Normalize(value, t)))
	return hex.EncodeToString(sum[:])
}
