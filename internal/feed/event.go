// Package feed merges the audit trail and the tracking log into a single
// newest-first activity feed.
//
// The two logs live in separate databases with no shared index, so every
// page is built at read time: each enabled source is asked for its own
// newest (page+1)*limit rows, the candidates are merged by timestamp and
// the requested page is sliced out of the merged pool. Each source's
// window holds everything newer than its last returned row, so the first
// (page+1)*limit merged rows are exactly the global ones.
package feed

import (
	"cmp"
	"time"
)

// SourceKind identifies which log an Event came from.
type SourceKind string

const (
	KindAudit    SourceKind = "audit"
	KindTracking SourceKind = "tracking"
)

// Kinds lists every source kind in tie-break order.
var Kinds = []SourceKind{KindAudit, KindTracking}

// idTag is the namespace prefix used in Event.ID.
func (k SourceKind) idTag() string {
	if k == KindTracking {
		return "track"
	}
	return string(k)
}

func (k SourceKind) rank() int {
	for i, kind := range Kinds {
		if kind == k {
			return i
		}
	}
	return len(Kinds)
}

// ParseKind maps a request value to a SourceKind.
func ParseKind(s string) (SourceKind, bool) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// Event is one entry of the merged feed.
type Event struct {
	ID         string         `json:"id"`
	SourceKind SourceKind     `json:"source_kind"`
	SourceID   int64          `json:"-"`
	ActorID    *string        `json:"actor_id"`
	OccurredAt time.Time      `json:"occurred_at"`
	Action     string         `json:"action"`
	Payload    map[string]any `json:"payload"`
}

// compareEvents orders events newest first, then by source-local id
// descending, then by source kind. It is a total order over events from
// distinct rows, so repeated queries over unchanged data sort identically.
func compareEvents(a, b Event) int {
	if c := b.OccurredAt.Compare(a.OccurredAt); c != 0 {
		return c
	}
	if c := cmp.Compare(b.SourceID, a.SourceID); c != 0 {
		return c
	}
	return cmp.Compare(a.SourceKind.rank(), b.SourceKind.rank())
}

// Filter narrows the feed. ActorID and Since are applied by every
// source; Kinds selects which sources run (empty means all).
type Filter struct {
	ActorID *string
	Since   *time.Time
	Kinds   []SourceKind
}

// Request asks for one page of the feed. Page is zero-based.
type Request struct {
	Page   int
	Limit  int
	Filter Filter
}

// Page is one slice of the merged feed.
//
// Total is the sum of every source's match count and is advisory: under
// concurrent writes, or when a source failed, it may disagree with what
// can actually be paged through. An empty Events slice marks the end of
// the feed.
type Page struct {
	Events  []Event `json:"events"`
	Page    int     `json:"page"`
	Limit   int     `json:"limit"`
	Total   int     `json:"total"`
	Partial bool    `json:"partial"`
}
