// Package uuid generates time-ordered identifiers for persisted records.
package uuid

import (
	googleuuid "github.com/google/uuid"
)

// New generates a UUIDv7. Within one process every id sorts strictly after the
// previous one, even inside the same millisecond, so ordering rows by id preserves
// insertion order.
func New() string {
	id, err := googleuuid.NewV7()
	if err != nil {
		return googleuuid.New().String()
	}
	return id.String()
}

// Parse validates s and returns its canonical lower-case form.
func Parse(s string) (string, error) {
	parsed, err := googleuuid.Parse(s)
	if err != nil {
		return "", err
	}
	return parsed.String(), nil
}

// IsValid reports whether s is a well-formed UUID.
func IsValid(s string) bool {
	_, err := googleuuid.Parse(s)
	return err == nil
}
