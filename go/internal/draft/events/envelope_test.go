package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/budgetdraft/go/internal/models"
)

func TestNew_WireFormat(t *testing.T) {
	draftID := uuid.New()
	at := time.Date(2025, 8, 1, 12, 0, 0, 0, time.FixedZone("BST", 3600))

	env, err := New(draftID, TypePickMade, at, PickMadePayload{
		Sequence: 3,
		ItemID:   42,
		Price:    decimal.RequireFromString("12.5"),
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, env.EventID)
	assert.Equal(t, time.UTC, env.Timestamp.Location())

	data, err := json.Marshal(env)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"eventId", "eventType", "draftId", "timestamp", "payload"} {
		assert.Contains(t, raw, key)
	}
	assert.JSONEq(t, `"PickMade"`, string(raw["eventType"]))

	var payload PickMadePayload
	require.NoError(t, env.Decode(&payload))
	assert.Equal(t, models.ItemID(42), payload.ItemID)
	assert.True(t, payload.Price.Equal(decimal.RequireFromString("12.5")))
}

func TestDecode_BadPayload(t *testing.T) {
	env := Envelope{EventType: TypeTurnSkipped, Payload: json.RawMessage(`[1,2]`)}
	var payload TurnSkippedPayload
	assert.Error(t, env.Decode(&payload))
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "draft.events.TurnStarted", Subject(DefaultSubjectPrefix, TypeTurnStarted))
}
