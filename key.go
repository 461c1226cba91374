package tablestate

import (
	"fmt"
	"strings"
)

// Purpose names the table view a cached state belongs to.
type Purpose string

const (
	PurposePractice    Purpose = "practice"
	PurposeRepertoire  Purpose = "repertoire"
	PurposeSuggestions Purpose = "suggestions"
)

// Purposes returns the recognized purpose tags.
func Purposes() []Purpose {
	return []Purpose{PurposePractice, PurposeRepertoire, PurposeSuggestions}
}

// Valid reports whether p is a recognized purpose tag.
func (p Purpose) Valid() bool {
	switch p {
	case PurposePractice, PurposeRepertoire, PurposeSuggestions:
		return true
	default:
		return false
	}
}

func (p Purpose) String() string {
	return string(p)
}

// ParsePurpose maps a raw tag onto a Purpose. Matching ignores surrounding
// whitespace and case.
func ParsePurpose(raw string) (Purpose, error) {
	p := Purpose(strings.ToLower(strings.TrimSpace(raw)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownPurpose, raw)
	}
	return p, nil
}

// Key identifies one cached table state.
type Key struct {
	UserID     int64
	Purpose    Purpose
	ResourceID int64
}

// NewKey is shorthand for building a Key.
func NewKey(userID int64, purpose Purpose, resourceID int64) Key {
	return Key{UserID: userID, Purpose: purpose, ResourceID: resourceID}
}

// IsValidKey reports whether the identifiers form a storable key: both ids
// strictly positive and a recognized purpose.
func IsValidKey(userID int64, purpose Purpose, resourceID int64) bool {
	return userID > 0 && resourceID > 0 && purpose.Valid()
}

// Valid reports whether k can be stored.
func (k Key) Valid() bool {
	return IsValidKey(k.UserID, k.Purpose, k.ResourceID)
}

// Identifier returns the normalized storage key, e.g. "42|practice|7".
func (k Key) Identifier() string {
	return fmt.Sprintf("%d|%s|%d", k.UserID, k.Purpose, k.ResourceID)
}

func (k Key) String() string {
	return k.Identifier()
}
