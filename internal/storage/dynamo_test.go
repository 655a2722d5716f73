package storage

import (
	"testing"
	"time"

	"github.com/ignite/newsletter-backend/internal/subscriber"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemConversionDropsEmptyToken(t *testing.T) {
	sub := subscriber.New("reader@example.com")

	item := toItem(sub)
	assert.Empty(t, item.ValidationToken)
	assert.Empty(t, item.TokenExpiration, "no expiration without a token")

	sub.ValidationToken = "tok-123"
	sub.TokenExpires = time.Now().Add(24 * time.Hour)
	item = toItem(sub)
	assert.Equal(t, "tok-123", item.ValidationToken)
	assert.NotEmpty(t, item.TokenExpiration)
}

func TestFromItemRejectsBadTimestamps(t *testing.T) {
	_, err := fromItem(subscriberItem{
		ID:        "id-1",
		Email:     "reader@example.com",
		Status:    "pending_validation",
		CreatedAt: "not-a-timestamp",
		UpdatedAt: time.Now().Format(time.RFC3339),
	})
	assert.Error(t, err)
}

func TestItemConversionRoundTrip(t *testing.T) {
	sub := subscriber.New("reader@example.com")
	sub.ValidationToken = "tok-123"
	sub.TokenExpires = time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second)

	got, err := fromItem(toItem(sub))
	require.NoError(t, err)
	assert.Equal(t, sub.ID, got.ID)
	assert.Equal(t, sub.Email, got.Email)
	assert.Equal(t, sub.Status, got.Status)
	assert.Equal(t, sub.ValidationToken, got.ValidationToken)
	assert.True(t, got.TokenExpires.Equal(sub.TokenExpires))
}
