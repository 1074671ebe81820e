package feed

import (
	"context"
	"slices"
	"sync/atomic"
	"time"
)

var base = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func at(sec int) time.Time { return base.Add(time.Duration(sec) * time.Second) }

// fakeSource is an in-memory Source over pre-built events.
type fakeSource struct {
	kind   SourceKind
	events []Event
	err    error
	delay  time.Duration

	fetchCalls atomic.Int32
	countCalls atomic.Int32
	lastWindow atomic.Int64
	lastOffset atomic.Int64
}

// newFake builds a source whose events occur at the given seconds past
// base. Source-local ids follow insertion order starting at 1.
func newFake(kind SourceKind, secs ...int) *fakeSource {
	s := &fakeSource{kind: kind}
	for i, sec := range secs {
		s.add(int64(i+1), at(sec), nil)
	}
	return s
}

func (s *fakeSource) add(id int64, ts time.Time, actor *string) {
	s.events = append(s.events, Event{
		ID:         eventID(s.kind, id),
		SourceKind: s.kind,
		SourceID:   id,
		ActorID:    actor,
		OccurredAt: ts,
		Action:     "test",
		Payload:    map[string]any{},
	})
}

func (s *fakeSource) Kind() SourceKind { return s.kind }

func (s *fakeSource) wait(ctx context.Context) error {
	if s.delay == 0 {
		return s.err
	}
	select {
	case <-time.After(s.delay):
		return s.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *fakeSource) matching(f Filter) []Event {
	var out []Event
	for _, e := range s.events {
		if f.ActorID != nil && (e.ActorID == nil || *e.ActorID != *f.ActorID) {
			continue
		}
		if f.Since != nil && e.OccurredAt.Before(*f.Since) {
			continue
		}
		out = append(out, e)
	}
	slices.SortFunc(out, compareEvents)
	return out
}

func (s *fakeSource) FetchPage(ctx context.Context, f Filter, size, offset int) ([]Event, error) {
	s.fetchCalls.Add(1)
	s.lastWindow.Store(int64(size))
	s.lastOffset.Store(int64(offset))
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	all := s.matching(f)
	if offset >= len(all) {
		return nil, nil
	}
	return all[offset:min(offset+size, len(all))], nil
}

func (s *fakeSource) Count(ctx context.Context, f Filter) (int, error) {
	s.countCalls.Add(1)
	if err := s.wait(ctx); err != nil {
		return 0, err
	}
	return len(s.matching(f)), nil
}

func times(events []Event) []int {
	out := make([]int, len(events))
	for i, e := range events {
		out[i] = int(e.OccurredAt.Sub(base) / time.Second)
	}
	return out
}

func ids(events []Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.ID
	}
	return out
}
