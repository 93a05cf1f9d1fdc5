// Package gameid generates hand identifiers: UUIDv7 values written as 26
// lowercase Crockford base32 characters, so ids sort by creation time.
package gameid

import (
	"encoding/base32"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

var encoding = base32.NewEncoding(alphabet).WithPadding(base32.NoPadding)

// New returns a fresh id
func New() string {
	return Encode(uuid.Must(uuid.NewV7()))
}

// NewFrom draws the random bits from r; for reproducible ids in tests
func NewFrom(r io.Reader) (string, error) {
	u, err := uuid.NewV7FromReader(r)
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return Encode(u), nil
}

// Encode writes u in id form
func Encode(u uuid.UUID) string {
	return encoding.EncodeToString(u[:])
}

// Parse decodes an id back to its UUID
func Parse(id string) (uuid.UUID, error) {
	var u uuid.UUID
	if len(id) != 26 {
		return u, fmt.Errorf("id must be 26 characters, got %d", len(id))
	}
	b, err := encoding.DecodeString(id)
	if err != nil {
		return u, fmt.Errorf("invalid id %q: %w", id, err)
	}
	copy(u[:], b)
	return u, nil
}

// Validate reports whether id is well formed
func Validate(id string) error {
	u, err := Parse(id)
	if err != nil {
		return err
	}
	if u.Version() != 7 {
		return fmt.Errorf("id %q is not a version 7 uuid", id)
	}
	return nil
}

// Time returns the millisecond creation time embedded in id
func Time(id string) (time.Time, error) {
	u, err := Parse(id)
	if err != nil {
		return time.Time{}, err
	}
	var ms int64
	for _, b := range u[:6] {
		ms = ms<<8 | int64(b)
	}
	return time.UnixMilli(ms), nil
}
