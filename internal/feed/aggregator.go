package feed

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ziadkadry99/ops-console/internal/logging"
	"github.com/ziadkadry99/ops-console/internal/metrics"
)

const (
	DefaultMaxLimit      = 200
	DefaultMaxWindow     = 10000
	DefaultSourceTimeout = 5 * time.Second
)

// Options tunes an Aggregator. Zero values take the defaults above.
type Options struct {
	// MaxLimit is the largest accepted page size.
	MaxLimit int
	// MaxWindow caps the per-source overfetch window (page+1)*limit.
	// Deeper requests are rejected rather than answered incompletely.
	MaxWindow     int
	SourceTimeout time.Duration
	Logger        *logging.Logger
}

// Aggregator builds feed pages from a fixed set of sources.
type Aggregator struct {
	sources map[SourceKind]Source
	opts    Options
	log     *logging.Logger
}

// NewAggregator returns an Aggregator over sources. At most one source
// per kind is kept; a later source replaces an earlier one.
func NewAggregator(opts Options, sources ...Source) *Aggregator {
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = DefaultMaxLimit
	}
	if opts.MaxWindow <= 0 {
		opts.MaxWindow = DefaultMaxWindow
	}
	// Page 0 must always fit.
	opts.MaxWindow = max(opts.MaxWindow, opts.MaxLimit)
	if opts.SourceTimeout <= 0 {
		opts.SourceTimeout = DefaultSourceTimeout
	}
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}

	a := &Aggregator{
		sources: make(map[SourceKind]Source, len(sources)),
		opts:    opts,
		log:     log.Named("feed"),
	}
	for _, s := range sources {
		a.sources[s.Kind()] = s
	}
	return a
}

// MaxLimit reports the largest page size Page accepts.
func (a *Aggregator) MaxLimit() int { return a.opts.MaxLimit }

type sourceResult struct {
	kind     SourceKind
	events   []Event
	count    int
	fetchErr error
	countErr error
}

func (r *sourceResult) err() error {
	return errors.Join(r.fetchErr, r.countErr)
}

// Page returns one page of the merged feed.
//
// A failing or timed-out source contributes nothing and marks the page
// Partial. If every enabled source fails the error wraps
// ErrAllSourcesFailed. Invalid requests fail with *ValidationError before
// any source is queried. If ctx ends first, its error is returned.
func (a *Aggregator) Page(ctx context.Context, req Request) (*Page, error) {
	kinds, err := a.validate(req)
	if err != nil {
		metrics.FeedRequests.WithLabelValues("invalid").Inc()
		return nil, err
	}

	window := (req.Page + 1) * req.Limit
	metrics.FeedWindowSize.Observe(float64(window))

	results := make([]*sourceResult, len(kinds))
	var g errgroup.Group
	for i, kind := range kinds {
		res := &sourceResult{kind: kind}
		results[i] = res
		src := a.sources[kind]

		// Each goroutine writes only its own field of res.
		g.Go(func() error {
			res.events, res.fetchErr = a.fetch(ctx, src, req.Filter, window)
			return nil
		})
		g.Go(func() error {
			res.count, res.countErr = a.count(ctx, src, req.Filter)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		metrics.FeedRequests.WithLabelValues("cancelled").Inc()
		return nil, err
	}

	var (
		candidates []Event
		total      int
		partial    bool
		failures   []error
	)
	for _, res := range results {
		if err := res.err(); err != nil {
			partial = true
			failures = append(failures, err)
			a.log.Warn(ctx, "event source failed, serving partial feed",
				zap.String("source", string(res.kind)),
				zap.Error(err),
			)
			continue
		}
		candidates = append(candidates, res.events...)
		total += res.count
	}

	if len(failures) > 0 && len(failures) == len(results) {
		metrics.FeedRequests.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("%w: %w", ErrAllSourcesFailed, errors.Join(failures...))
	}

	slices.SortFunc(candidates, compareEvents)

	page := &Page{
		Events:  pageSlice(candidates, req.Page, req.Limit),
		Page:    req.Page,
		Limit:   req.Limit,
		Total:   total,
		Partial: partial,
	}

	outcome := "ok"
	if partial {
		outcome = "partial"
	}
	metrics.FeedRequests.WithLabelValues(outcome).Inc()
	a.log.Debug(ctx, "feed page built",
		zap.Int("page", req.Page),
		zap.Int("limit", req.Limit),
		zap.Int("window", window),
		zap.Int("candidates", len(candidates)),
		zap.Int("returned", len(page.Events)),
		zap.Bool("partial", partial),
	)
	return page, nil
}

// pageSlice returns events[p*l : p*l+l], clipped to the available rows.
// The result is never nil so an exhausted feed encodes as [].
func pageSlice(events []Event, p, l int) []Event {
	start := p * l
	if start >= len(events) {
		return []Event{}
	}
	end := min(start+l, len(events))
	return events[start:end]
}

func (a *Aggregator) fetch(ctx context.Context, src Source, f Filter, window int) ([]Event, error) {
	ctx, cancel := context.WithTimeout(ctx, a.opts.SourceTimeout)
	defer cancel()

	start := time.Now()
	events, err := src.FetchPage(ctx, f, window, 0)
	a.observe(src.Kind(), "fetch", start, err)
	if err != nil {
		return nil, &sourceError{kind: src.Kind(), call: "fetch", err: err}
	}
	if len(events) > window {
		events = events[:window]
	}
	return events, nil
}

func (a *Aggregator) count(ctx context.Context, src Source, f Filter) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, a.opts.SourceTimeout)
	defer cancel()

	start := time.Now()
	n, err := src.Count(ctx, f)
	a.observe(src.Kind(), "count", start, err)
	if err != nil {
		return 0, &sourceError{kind: src.Kind(), call: "count", err: err}
	}
	return n, nil
}

func (a *Aggregator) observe(kind SourceKind, call string, start time.Time, err error) {
	metrics.SourceLatency.WithLabelValues(string(kind), call).Observe(time.Since(start).Seconds())
	if err == nil {
		return
	}
	reason := "error"
	if errors.Is(err, context.DeadlineExceeded) {
		reason = "timeout"
	}
	metrics.SourceFailures.WithLabelValues(string(kind), call, reason).Inc()
}

// validate checks req and returns the source kinds to query, in
// tie-break order.
func (a *Aggregator) validate(req Request) ([]SourceKind, error) {
	if req.Page < 0 {
		return nil, invalid("page", "must be >= 0, got %d", req.Page)
	}
	if req.Limit < 1 || req.Limit > a.opts.MaxLimit {
		return nil, invalid("limit", "must be between 1 and %d, got %d", a.opts.MaxLimit, req.Limit)
	}
	// Compare by division so huge page numbers cannot overflow.
	if req.Page >= a.opts.MaxWindow/req.Limit {
		return nil, invalid("page", "page %d with limit %d exceeds the maximum feed depth of %d events",
			req.Page, req.Limit, a.opts.MaxWindow)
	}
	if f := req.Filter; f.ActorID != nil && *f.ActorID == "" {
		return nil, invalid("actor", "must not be empty")
	}

	wanted := req.Filter.Kinds
	if len(wanted) == 0 {
		// Every configured source.
		for _, k := range Kinds {
			if _, ok := a.sources[k]; ok {
				wanted = append(wanted, k)
			}
		}
	}
	for _, k := range wanted {
		if _, ok := ParseKind(string(k)); !ok {
			return nil, invalid("sources", "unknown source %q", k)
		}
	}
	var kinds []SourceKind
	for _, k := range Kinds {
		if !slices.Contains(wanted, k) {
			continue
		}
		if _, ok := a.sources[k]; !ok {
			return nil, invalid("sources", "source %q is not configured", k)
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}
