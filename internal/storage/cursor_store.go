package storage

import (
	"context"
	"time"
)

// Cursor is the newest signature fully processed for one watched address.
type Cursor struct {
	Address   string
	Signature string
	Slot      int64
	UpdatedAt time.Time
}

// CursorStore persists per-address polling cursors so a restarted monitor
// resumes after the last handled signature instead of rescanning.
type CursorStore interface {
	// GetCursor returns the cursor for address.
	// Returns ErrNotFound if none has been saved yet.
	GetCursor(ctx context.Context, address string) (*Cursor, error)

	// SetCursor saves the cursor, replacing any previous one for the address.
	SetCursor(ctx context.Context, cursor *Cursor) error

	// DeleteCursor forgets the cursor for address. Missing cursors are not an error.
	DeleteCursor(ctx context.Context, address string) error
}
