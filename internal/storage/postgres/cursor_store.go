package postgres

import (
	"context"
	"time"

	"sandwich-guard/internal/observability"
	"sandwich-guard/internal/storage"
)

// CursorStore is a PostgreSQL implementation of storage.CursorStore.
// One row per watched address in address_cursors.
type CursorStore struct {
	pool *Pool
}

// NewCursorStore creates a new PostgreSQL cursor store.
func NewCursorStore(pool *Pool) *CursorStore {
	return &CursorStore{pool: pool}
}

// GetCursor returns the cursor for address.
func (s *CursorStore) GetCursor(ctx context.Context, address string) (_ *storage.Cursor, err error) {
	if address == "" {
		return nil, storage.ErrInvalidInput
	}
	defer observeQuery("get_cursor", time.Now(), &err)

	row := s.pool.QueryRow(ctx, `
		SELECT address, signature, slot, updated_at
		FROM address_cursors
		WHERE address = $1
	`, address)

	var c storage.Cursor
	if err := row.Scan(&c.Address, &c.Signature, &c.Slot, &c.UpdatedAt); err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// SetCursor saves the cursor for its address.
// Uses upsert to handle initial insert and subsequent updates.
func (s *CursorStore) SetCursor(ctx context.Context, cursor *storage.Cursor) (err error) {
	if err := storage.ValidateCursor(cursor); err != nil {
		return err
	}
	defer observeQuery("set_cursor", time.Now(), &err)

	_, err = s.pool.Exec(ctx, `
		INSERT INTO address_cursors (address, signature, slot, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (address) DO UPDATE
		SET signature = EXCLUDED.signature,
		    slot = EXCLUDED.slot,
		    updated_at = NOW()
	`, cursor.Address, cursor.Signature, cursor.Slot)
	return err
}

// DeleteCursor removes the cursor for address.
func (s *CursorStore) DeleteCursor(ctx context.Context, address string) (err error) {
	defer observeQuery("delete_cursor", time.Now(), &err)

	_, err = s.pool.Exec(ctx, `DELETE FROM address_cursors WHERE address = $1`, address)
	return err
}

func observeQuery(op string, start time.Time, err *error) {
	observability.RecordDBQuery("postgres", op, time.Since(start).Seconds(), *err)
}
