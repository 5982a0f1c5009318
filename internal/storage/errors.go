package storage

import "errors"

// Storage errors.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)

// ValidateCursor returns ErrInvalidInput for a nil cursor or one missing its
// address or signature.
func ValidateCursor(c *Cursor) error {
	if c == nil || c.Address == "" || c.Signature == "" {
		return ErrInvalidInput
	}
	return nil
}
