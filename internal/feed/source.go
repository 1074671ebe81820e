package feed

import (
	"context"

	"github.com/ziadkadry99/ops-console/internal/audit"
	"github.com/ziadkadry99/ops-console/internal/tracking"
)

// Source is one independently paginated event log.
//
// FetchPage returns at most windowSize events matching f, newest first,
// skipping the first windowOffset. Count returns the number of events
// matching f regardless of any window. Both must honour every field of
// f except Kinds, which the aggregator consumes.
type Source interface {
	Kind() SourceKind
	FetchPage(ctx context.Context, f Filter, windowSize, windowOffset int) ([]Event, error)
	Count(ctx context.Context, f Filter) (int, error)
}

// AuditStore is the part of audit.Store the feed reads from.
type AuditStore interface {
	Query(ctx context.Context, filter audit.QueryFilter) ([]audit.Entry, error)
	Count(ctx context.Context, filter audit.QueryFilter) (int, error)
}

// TrackingStore is the part of tracking.Store the feed reads from.
type TrackingStore interface {
	Query(ctx context.Context, filter tracking.QueryFilter) ([]tracking.Hit, error)
	Count(ctx context.Context, filter tracking.QueryFilter) (int, error)
}

// AuditSource adapts an AuditStore to Source.
type AuditSource struct {
	store AuditStore
}

// NewAuditSource wraps store.
func NewAuditSource(store AuditStore) *AuditSource {
	return &AuditSource{store: store}
}

func (s *AuditSource) Kind() SourceKind { return KindAudit }

func (s *AuditSource) FetchPage(ctx context.Context, f Filter, windowSize, windowOffset int) ([]Event, error) {
	q := auditFilter(f)
	q.Limit, q.Offset = windowSize, windowOffset

	entries, err := s.store.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	events := make([]Event, 0, len(entries))
	for _, e := range entries {
		events = append(events, NormalizeAudit(e))
	}
	return events, nil
}

func (s *AuditSource) Count(ctx context.Context, f Filter) (int, error) {
	return s.store.Count(ctx, auditFilter(f))
}

func auditFilter(f Filter) audit.QueryFilter {
	q := audit.QueryFilter{Since: f.Since}
	if f.ActorID != nil {
		q.ActorID = *f.ActorID
	}
	return q
}

// TrackingSource adapts a TrackingStore to Source.
type TrackingSource struct {
	store TrackingStore
}

// NewTrackingSource wraps store.
func NewTrackingSource(store TrackingStore) *TrackingSource {
	return &TrackingSource{store: store}
}

func (s *TrackingSource) Kind() SourceKind { return KindTracking }

func (s *TrackingSource) FetchPage(ctx context.Context, f Filter, windowSize, windowOffset int) ([]Event, error) {
	q := trackingFilter(f)
	q.Limit, q.Offset = windowSize, windowOffset

	hits, err := s.store.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	events := make([]Event, 0, len(hits))
	for _, h := range hits {
		events = append(events, NormalizeTracking(h))
	}
	return events, nil
}

func (s *TrackingSource) Count(ctx context.Context, f Filter) (int, error) {
	return s.store.Count(ctx, trackingFilter(f))
}

func trackingFilter(f Filter) tracking.QueryFilter {
	q := tracking.QueryFilter{Since: f.Since}
	if f.ActorID != nil {
		q.ActorID = *f.ActorID
	}
	return q
}
