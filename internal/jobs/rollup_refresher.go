package jobs

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"kwtrack/internal/config"
	"kwtrack/internal/models"
	"kwtrack/internal/tracking"
)

// ProjectSource resolves rollup targets to projects and keywords.
type ProjectSource interface {
	GetProjectBySlug(ctx context.Context, slug string) (*models.Project, error)
	ListKeywords(ctx context.Context, projectID uuid.UUID) ([]models.Keyword, error)
}

// Refresher recomputes an aggregation window and rewrites it to cache and store.
type Refresher interface {
	Refresh(ctx context.Context, req tracking.AggregateRequest) (*models.AggregationWindow, error)
}

// RollupRefresher periodically recomputes configured aggregation windows so
// reads are served from fresh persisted windows.
type RollupRefresher struct {
	source    ProjectSource
	refresher Refresher
	rollups   []config.RollupConfig
	interval  time.Duration
	now       func() time.Time
}

// NewRollupRefresher creates a new rollup refresher.
func NewRollupRefresher(source ProjectSource, refresher Refresher, rollups []config.RollupConfig, interval time.Duration) *RollupRefresher {
	return &RollupRefresher{
		source:    source,
		refresher: refresher,
		rollups:   rollups,
		interval:  interval,
		now:       time.Now,
	}
}

// Start begins the background refresh loop. It returns when ctx is cancelled.
func (r *RollupRefresher) Start(ctx context.Context) {
	log.Printf("Rollup refresher started (interval: %v, targets: %d)", r.interval, len(r.rollups))

	// Run immediately on start
	r.refreshAll(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Rollup refresher stopped")
			return
		case <-ticker.C:
			r.refreshAll(ctx)
		}
	}
}

// refreshAll recomputes every configured window and returns how many succeeded.
func (r *RollupRefresher) refreshAll(ctx context.Context) int {
	refreshed := 0
	for _, rollup := range r.rollups {
		select {
		case <-ctx.Done():
			return refreshed
		default:
		}

		reqs, err := r.requests(ctx, rollup)
		if err != nil {
			log.Printf("Rollup refresher: skipping project %q: %v", rollup.Project, err)
			continue
		}

		for _, req := range reqs {
			if _, err := r.refresher.Refresh(ctx, req); err != nil {
				log.Printf("Rollup refresher: %s %s for %q failed: %v", req.Metric, req.Range, rollup.Project, err)
				continue
			}
			refreshed++
		}
	}

	if refreshed > 0 {
		log.Printf("Rollup refresher: refreshed %d windows", refreshed)
	}
	return refreshed
}

// requests expands a rollup into one request per metric over its trailing lookback.
func (r *RollupRefresher) requests(ctx context.Context, rollup config.RollupConfig) ([]tracking.AggregateRequest, error) {
	project, err := r.source.GetProjectBySlug(ctx, rollup.Project)
	if err != nil {
		return nil, err
	}

	keywords := rollup.Keywords
	if len(keywords) == 0 {
		tracked, err := r.source.ListKeywords(ctx, project.ID)
		if err != nil {
			return nil, err
		}
		for _, kw := range tracked {
			keywords = append(keywords, kw.Term)
		}
	}
	if len(keywords) == 0 {
		return nil, nil
	}

	to := r.now().UTC()
	from := to.AddDate(0, 0, -(rollup.LookbackDays - 1))
	dates := tracking.NewDateRange(from, to)

	reqs := make([]tracking.AggregateRequest, 0, len(rollup.Metrics))
	for _, metric := range rollup.Metrics {
		reqs = append(reqs, tracking.AggregateRequest{
			ProjectID:   project.ID,
			Keywords:    keywords,
			Range:       dates,
			Metric:      metric,
			Granularity: rollup.Granularity,
			Engine:      rollup.Engine,
			Locale:      rollup.Locale,
		})
	}
	return reqs, nil
}
