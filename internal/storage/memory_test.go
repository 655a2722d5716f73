package storage

import (
	"context"
	"testing"

	"github.com/ignite/newsletter-backend/internal/subscriber"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	sub := subscriber.New("reader@example.com")
	require.NoError(t, store.Put(ctx, sub))

	byID, err := store.GetByID(ctx, sub.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, sub.Email, byID.Email)

	byEmail, err := store.GetByEmail(ctx, "reader@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, sub.ID, byEmail.ID)
}

func TestMemoryStoreAbsentIsNilNil(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	sub, err := store.GetByID(ctx, "missing")
	assert.NoError(t, err)
	assert.Nil(t, sub)

	sub, err = store.GetByEmail(ctx, "missing@example.com")
	assert.NoError(t, err)
	assert.Nil(t, sub)
}

func TestMemoryStorePutIfAbsent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	first := subscriber.New("reader@example.com")
	require.NoError(t, store.PutIfAbsent(ctx, first))

	// Same email under a fresh id loses the race.
	second := subscriber.New("reader@example.com")
	assert.ErrorIs(t, store.PutIfAbsent(ctx, second), ErrAlreadyExists)
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	sub := subscriber.New("reader@example.com")
	require.NoError(t, store.Put(ctx, sub))

	got, err := store.GetByID(ctx, sub.ID)
	require.NoError(t, err)
	got.Status = subscriber.StatusUnsubscribed

	again, err := store.GetByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, subscriber.StatusPendingValidation, again.Status,
		"mutating a returned record must not change the stored one")
}
