// Package uuid generates time-ordered identifiers for database primary keys.
package uuid

import (
	googleuuid "github.com/google/uuid"
)

// New returns a UUIDv7 string. Version 7 embeds a millisecond timestamp in
// the high bits, so freshly inserted rows cluster together in index order.
// Falls back to a random UUIDv4 if the system entropy source fails.
func New() string {
	id, err := googleuuid.NewV7()
	if err != nil {
		return googleuuid.New().String()
	}
	return id.String()
}
