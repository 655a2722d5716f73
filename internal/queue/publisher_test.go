package queue

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidationJobWireFormat(t *testing.T) {
	job := NewValidationJob("sub-123", "reader@example.com")

	body, err := json.Marshal(job)
	require.NoError(t, err)

	// The worker and any other consumers key off these exact field names.
	var decoded map[string]string
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, map[string]string{
		"action":        "validate_email",
		"email":         "reader@example.com",
		"subscriber_id": "sub-123",
	}, decoded)
}
