package tracking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"kwtrack/internal/db"
	"kwtrack/internal/models"
)

// WindowStore persists computed aggregation windows. *db.DB implements it.
// GetAggregationWindow returns db.ErrWindowNotFound when no window is stored.
type WindowStore interface {
	GetAggregationWindow(ctx context.Context, key string) (*models.AggregationWindow, error)
	SaveAggregationWindow(ctx context.Context, w *models.AggregationWindow) error
}

// ResultCache memoizes aggregation windows by key.
type ResultCache interface {
	Get(key string) (*models.AggregationWindow, bool)
	Set(w *models.AggregationWindow) error
}

// Options tunes a Planner. Zero values select the defaults.
type Options struct {
	// MaxAge is how old a persisted window may be and still be served.
	MaxAge time.Duration
	// Precision is the number of decimals averages are rounded to. Zero selects
	// DefaultPrecision; a negative value disables rounding.
	Precision int
	// ComputeTimeout bounds one shared computation.
	ComputeTimeout time.Duration
	// WriteTimeout bounds one background persistence write.
	WriteTimeout time.Duration

	Now       func() time.Time
	OnOutcome func(metric, outcome string)
	OnCompute func(d time.Duration)
	Logger    *slog.Logger
}

func (o *Options) setDefaults() {
	if o.MaxAge <= 0 {
		o.MaxAge = 6 * time.Hour
	}
	if o.Precision == 0 {
		o.Precision = DefaultPrecision
	}
	if o.ComputeTimeout <= 0 {
		o.ComputeTimeout = 30 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.OnOutcome == nil {
		o.OnOutcome = func(string, string) {}
	}
	if o.OnCompute == nil {
		o.OnCompute = func(time.Duration) {}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Planner answers aggregation requests from the cache, from a fresh persisted
// window, or by computing from observations. Concurrent identical computations
// are coalesced. Windows returned by the Planner are shared and must not be modified.
type Planner struct {
	accessor *Accessor
	store    WindowStore
	cache    ResultCache
	opts     Options

	group  singleflight.Group
	writes sync.WaitGroup
}

// NewPlanner creates a Planner. store and cache may be nil.
func NewPlanner(accessor *Accessor, store WindowStore, cache ResultCache, opts Options) *Planner {
	opts.setDefaults()
	return &Planner{
		accessor: accessor,
		store:    store,
		cache:    cache,
		opts:     opts,
	}
}

// Aggregate returns the window for req, preferring cached and fresh persisted results.
func (p *Planner) Aggregate(ctx context.Context, req AggregateRequest) (*models.AggregationWindow, error) {
	req, err := p.prepare(req)
	if err != nil {
		return nil, err
	}
	key := Key(req)

	if p.cache != nil {
		if w, ok := p.cache.Get(key); ok {
			p.opts.OnOutcome(req.Metric, models.OutcomeCache)
			return w, nil
		}
	}

	if w := p.loadStored(ctx, key); w != nil {
		p.opts.OnOutcome(req.Metric, models.OutcomeStore)
		p.writeBehind(w, false)
		return w, nil
	}

	return p.compute(ctx, req, key)
}

// Refresh recomputes the window for req from observations, ignoring cached and
// persisted results, and replaces them.
func (p *Planner) Refresh(ctx context.Context, req AggregateRequest) (*models.AggregationWindow, error) {
	req, err := p.prepare(req)
	if err != nil {
		return nil, err
	}
	return p.compute(ctx, req, Key(req))
}

// Close waits for in-flight computations and the background writes they start.
func (p *Planner) Close() {
	p.writes.Wait()
}

func (p *Planner) prepare(req AggregateRequest) (AggregateRequest, error) {
	if req.Metric == "" {
		req.Metric = models.MetricAvg
	}
	if req.Granularity == "" {
		req.Granularity = models.GranularityDaily
	}
	if !models.IsValidMetric(req.Metric) {
		return req, fmt.Errorf("%w: unknown metric %q", ErrInvalidRange, req.Metric)
	}
	if !models.IsValidGranularity(req.Granularity) {
		return req, fmt.Errorf("%w: unknown granularity %q", ErrInvalidRange, req.Granularity)
	}

	terms, err := normalizeTerms(req.Keywords)
	if err != nil {
		return req, err
	}
	req.Keywords = terms

	if err := req.Range.Validate(); err != nil {
		return req, err
	}
	req.Range = NewDateRange(req.Range.From, req.Range.To)
	return req, nil
}

// loadStored returns a persisted window if one exists and is fresh. Store
// errors degrade to a recomputation.
func (p *Planner) loadStored(ctx context.Context, key string) *models.AggregationWindow {
	if p.store == nil {
		return nil
	}
	w, err := p.store.GetAggregationWindow(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrWindowNotFound) {
			p.opts.Logger.Warn("failed to load aggregation window", "key", key, "error", err)
		}
		return nil
	}
	if !w.IsFresh(p.opts.Now(), p.opts.MaxAge) {
		return nil
	}
	return w
}

// compute runs at most one computation per key. A caller whose context ends
// stops waiting; the shared computation carries on for the others.
func (p *Planner) compute(ctx context.Context, req AggregateRequest, key string) (*models.AggregationWindow, error) {
	// The flight may outlive every waiter; Close waits for it through the relay below.
	p.writes.Add(1)
	ch := p.group.DoChan(key, func() (any, error) {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.opts.ComputeTimeout)
		defer cancel()

		started := time.Now()
		w, err := p.build(cctx, req, key)
		p.opts.OnCompute(time.Since(started))
		if err != nil {
			p.opts.OnOutcome(req.Metric, models.OutcomeFailed)
			return nil, err
		}
		p.opts.OnOutcome(req.Metric, models.OutcomeComputed)
		p.writeBehind(w, true)
		return w, nil
	})

	done := make(chan singleflight.Result, 1)
	go func() {
		defer p.writes.Done()
		done <- <-ch
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrComputation, ctx.Err())
	case res := <-done:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*models.AggregationWindow), nil
	}
}

func (p *Planner) build(ctx context.Context, req AggregateRequest, key string) (*models.AggregationWindow, error) {
	observations, err := p.accessor.All(ctx, ObservationQuery{
		ProjectID: req.ProjectID,
		Keywords:  req.Keywords,
		Range:     req.Range,
		Engine:    req.Engine,
		Locale:    req.Locale,
	})
	if err != nil {
		return nil, err
	}

	value, buckets := Summarize(observations, req.Metric, req.Granularity, p.opts.Precision)
	return &models.AggregationWindow{
		Key:         key,
		ProjectID:   req.ProjectID,
		Keywords:    req.Keywords,
		RangeStart:  req.Range.From,
		RangeEnd:    req.Range.To,
		Metric:      req.Metric,
		Granularity: req.Granularity,
		Engine:      req.Engine,
		Locale:      req.Locale,
		Value:       value,
		SampleCount: len(observations),
		Buckets:     buckets,
		ComputedAt:  p.opts.Now().UTC(),
	}, nil
}

// writeBehind caches w and, when persist is set, saves it to the store in the
// background. Failures are logged and never reach the caller.
func (p *Planner) writeBehind(w *models.AggregationWindow, persist bool) {
	if p.cache == nil && (p.store == nil || !persist) {
		return
	}

	p.writes.Add(1)
	go func() {
		defer p.writes.Done()

		if p.cache != nil {
			if err := p.cache.Set(w); err != nil {
				p.opts.Logger.Warn("failed to cache aggregation window", "key", w.Key, "error", err)
			}
		}
		if p.store == nil || !persist {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), p.opts.WriteTimeout)
		defer cancel()
		if err := p.store.SaveAggregationWindow(ctx, w); err != nil {
			p.opts.Logger.Warn("failed to persist aggregation window", "key", w.Key, "error", err)
		}
	}()
}
