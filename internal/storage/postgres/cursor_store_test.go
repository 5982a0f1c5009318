package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sandwich-guard/internal/storage"
)

func TestCursorStore_SetAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewCursorStore(pool)

	cursor := &storage.Cursor{
		Address:   "Wallet111",
		Signature: "Sig100",
		Slot:      12345,
	}
	require.NoError(t, store.SetCursor(ctx, cursor))

	got, err := store.GetCursor(ctx, "Wallet111")
	require.NoError(t, err)
	assert.Equal(t, "Wallet111", got.Address)
	assert.Equal(t, "Sig100", got.Signature)
	assert.Equal(t, int64(12345), got.Slot)
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestCursorStore_GetNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := NewCursorStore(pool).GetCursor(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCursorStore_Upsert(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewCursorStore(pool)

	require.NoError(t, store.SetCursor(ctx, &storage.Cursor{Address: "A", Signature: "Sig1", Slot: 1}))
	require.NoError(t, store.SetCursor(ctx, &storage.Cursor{Address: "A", Signature: "Sig2", Slot: 2}))
	require.NoError(t, store.SetCursor(ctx, &storage.Cursor{Address: "B", Signature: "SigB", Slot: 3}))

	a, err := store.GetCursor(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, "Sig2", a.Signature)
	assert.Equal(t, int64(2), a.Slot)

	b, err := store.GetCursor(ctx, "B")
	require.NoError(t, err)
	assert.Equal(t, "SigB", b.Signature)
}

func TestCursorStore_Delete(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewCursorStore(pool)

	require.NoError(t, store.SetCursor(ctx, &storage.Cursor{Address: "A", Signature: "Sig1"}))
	require.NoError(t, store.DeleteCursor(ctx, "A"))
	require.NoError(t, store.DeleteCursor(ctx, "A"))

	_, err := store.GetCursor(ctx, "A")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCursorStore_InvalidInput(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewCursorStore(pool)

	assert.ErrorIs(t, store.SetCursor(ctx, nil), storage.ErrInvalidInput)
	assert.ErrorIs(t, store.SetCursor(ctx, &storage.Cursor{Address: "A"}), storage.ErrInvalidInput)
	_, err := store.GetCursor(ctx, "")
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
