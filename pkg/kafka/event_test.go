package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	before := time.Now().UTC()
	event, err := NewEvent("identity.user.registered", "42", "user", "identity-service", map[string]any{
		"email": "jane@example.com",
		"role":  "customer",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, "identity.user.registered", event.EventType)
	assert.Equal(t, "42", event.AggregateID)
	assert.Equal(t, "user", event.AggregateType)
	assert.Equal(t, "identity-service", event.Source)
	assert.False(t, event.OccurredAt.Before(before))

	var payload map[string]string
	require.NoError(t, event.UnmarshalData(&payload))
	assert.Equal(t, "jane@example.com", payload["email"])
}

func TestNewEventUnmarshalableData(t *testing.T) {
	_, err := NewEvent("identity.user.registered", "42", "user", "identity-service", make(chan int))
	assert.Error(t, err)
}

func TestEventWithCorrelationID(t *testing.T) {
	event, err := NewEvent("identity.tenant.created", "7", "tenant", "identity-service", nil)
	require.NoError(t, err)

	event.WithCorrelationID("corr-123")

	data, err := event.Marshal()
	require.NoError(t, err)

	var decoded Event
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "corr-123", decoded.CorrelationID)
	assert.Equal(t, event.EventID, decoded.EventID)
}
