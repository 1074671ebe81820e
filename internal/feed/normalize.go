package feed

import (
	"encoding/json"
	"strconv"

	"github.com/ziadkadry99/ops-console/internal/audit"
	"github.com/ziadkadry99/ops-console/internal/tracking"
)

// NormalizeAudit maps an audit entry onto an Event. Every payload key is
// always present; missing values are nil.
func NormalizeAudit(e audit.Entry) Event {
	return Event{
		ID:         eventID(KindAudit, e.ID),
		SourceKind: KindAudit,
		SourceID:   e.ID,
		ActorID:    e.ActorID,
		OccurredAt: e.OccurredAt.UTC(),
		Action:     e.Entity + "." + string(e.Action),
		Payload: map[string]any{
			"entity":     e.Entity,
			"entity_id":  e.EntityID,
			"before":     rawOrNil(e.Before),
			"after":      rawOrNil(e.After),
			"ip_address": strOrNil(e.IPAddress),
			"user_agent": strOrNil(e.UserAgent),
		},
	}
}

// NormalizeTracking maps a tracking hit onto an Event.
func NormalizeTracking(h tracking.Hit) Event {
	return Event{
		ID:         eventID(KindTracking, h.ID),
		SourceKind: KindTracking,
		SourceID:   h.ID,
		ActorID:    h.ActorID,
		OccurredAt: h.OccurredAt.UTC(),
		Action:     h.Route,
		Payload: map[string]any{
			"route":      h.Route,
			"method":     h.Method,
			"session_id": h.SessionID,
			"device":     strOrNil(h.Device),
			"browser":    strOrNil(h.Browser),
			"ip_address": strOrNil(h.IPAddress),
			"user_agent": strOrNil(h.UserAgent),
		},
	}
}

func eventID(kind SourceKind, id int64) string {
	return kind.idTag() + ":" + strconv.FormatInt(id, 10)
}

func rawOrNil(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}

func strOrNil(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
