package feed

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/ops-console/internal/audit"
	"github.com/ziadkadry99/ops-console/internal/tracking"
)

func TestNormalizeAudit(t *testing.T) {
	ts := time.Date(2026, 5, 1, 14, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	e := NormalizeAudit(audit.Entry{
		ID:         17,
		OccurredAt: ts,
		ActorID:    strp("alice"),
		Entity:     "supplier",
		EntityID:   "42",
		Action:     audit.ActionUpdated,
		Before:     json.RawMessage(`{"name":"Acme"}`),
		After:      json.RawMessage(`{"name":"Acme Ltd"}`),
		IPAddress:  strp("10.0.0.7"),
	})

	assert.Equal(t, "audit:17", e.ID)
	assert.Equal(t, KindAudit, e.SourceKind)
	assert.EqualValues(t, 17, e.SourceID)
	assert.Equal(t, "supplier.updated", e.Action)
	assert.Equal(t, time.UTC, e.OccurredAt.Location())
	assert.True(t, e.OccurredAt.Equal(ts))
	assert.Equal(t, "10.0.0.7", e.Payload["ip_address"])
	assert.Nil(t, e.Payload["user_agent"])
	assert.Contains(t, e.Payload, "user_agent")
}

func TestNormalizeTracking(t *testing.T) {
	e := NormalizeTracking(tracking.Hit{
		ID:         42,
		OccurredAt: base,
		SessionID:  "s-1",
		Route:      "/incidents/{id}",
		Method:     "GET",
		Browser:    strp("firefox"),
	})

	assert.Equal(t, "track:42", e.ID)
	assert.Equal(t, KindTracking, e.SourceKind)
	assert.Nil(t, e.ActorID)
	assert.Equal(t, "/incidents/{id}", e.Action)
	assert.Equal(t, "firefox", e.Payload["browser"])
	for _, key := range []string{"route", "method", "session_id", "device", "browser", "ip_address", "user_agent"} {
		assert.Contains(t, e.Payload, key)
	}
}

func TestEventJSONKeepsNulls(t *testing.T) {
	b, err := json.Marshal(NormalizeAudit(audit.Entry{
		ID:         1,
		OccurredAt: base,
		Entity:     "category",
		Action:     audit.ActionCreated,
		After:      json.RawMessage(`{"name":"HVAC"}`),
	}))
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))

	assert.Equal(t, "audit:1", got["id"])
	assert.Equal(t, "audit", got["source_kind"])
	assert.Equal(t, "2026-05-01T12:00:00Z", got["occurred_at"])
	assert.Contains(t, got, "actor_id")
	assert.Nil(t, got["actor_id"])
	assert.NotContains(t, got, "SourceID")

	payload := got["payload"].(map[string]any)
	assert.Contains(t, payload, "before")
	assert.Nil(t, payload["before"])
	assert.Equal(t, map[string]any{"name": "HVAC"}, payload["after"])
}
