package memory

import (
	"context"
	"sync"
	"time"

	"sandwich-guard/internal/storage"
)

// CursorStore is an in-memory implementation of storage.CursorStore.
type CursorStore struct {
	mu      sync.RWMutex
	cursors map[string]storage.Cursor
}

// NewCursorStore creates a new in-memory cursor store.
func NewCursorStore() *CursorStore {
	return &CursorStore{
		cursors: make(map[string]storage.Cursor),
	}
}

// GetCursor returns the cursor for address.
func (s *CursorStore) GetCursor(_ context.Context, address string) (*storage.Cursor, error) {
	if address == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.cursors[address]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &c, nil
}

// SetCursor saves the cursor for its address.
func (s *CursorStore) SetCursor(_ context.Context, cursor *storage.Cursor) error {
	if err := storage.ValidateCursor(cursor); err != nil {
		return err
	}

	c := *cursor
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursors[c.Address] = c
	return nil
}

// DeleteCursor removes the cursor for address.
func (s *CursorStore) DeleteCursor(_ context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cursors, address)
	return nil
}
