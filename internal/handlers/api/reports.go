package api

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/fiber/v3"
	"golang.org/x/sync/errgroup"

	"kwtrack/internal/models"
	"kwtrack/internal/tracking"
	"kwtrack/internal/validation"
)

// reportRequest is the body of report generation and refresh calls.
type reportRequest struct {
	Keywords    []string `json:"keywords"`
	From        string   `json:"from"`
	To          string   `json:"to"`
	Granularity string   `json:"granularity"`
	Engine      string   `json:"engine"`
	Locale      string   `json:"locale"`
}

// ReportHandler builds multi-metric reports over a keyword set.
type ReportHandler struct {
	aggregator Aggregator
	now        func() time.Time
}

// NewReportHandler creates a new API report handler.
func NewReportHandler(aggregator Aggregator) *ReportHandler {
	return &ReportHandler{aggregator: aggregator, now: time.Now}
}

// Generate returns avg, min and max windows, served from cache where possible.
func (h *ReportHandler) Generate(c fiber.Ctx) error {
	return h.report(c, false)
}

// Refresh recomputes every window of the report from raw observations.
func (h *ReportHandler) Refresh(c fiber.Ctx) error {
	return h.report(c, true)
}

func (h *ReportHandler) report(c fiber.Ctx, refresh bool) error {
	projectID, ok := validation.ParseProjectID(c.Params("project"))
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "invalid project id")
	}

	var body reportRequest
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}

	dates, err := tracking.ParseDateRange(body.From, body.To)
	if err != nil {
		return trackingError(c, err)
	}
	if !validation.ValidateLocale(body.Locale) {
		return jsonError(c, fiber.StatusBadRequest, "invalid locale")
	}
	if body.Granularity == "" {
		body.Granularity = models.GranularityDaily
	}

	base := tracking.AggregateRequest{
		ProjectID:   projectID,
		Keywords:    body.Keywords,
		Range:       dates,
		Granularity: body.Granularity,
		Engine:      body.Engine,
		Locale:      body.Locale,
	}

	windows, err := h.collect(c.Context(), base, refresh)
	if err != nil {
		return trackingError(c, err)
	}

	// Report the keyword set the windows were computed for.
	keywords := body.Keywords
	if w := windows[models.MetricAvg]; w != nil {
		keywords = w.Keywords
	}

	return jsonSuccess(c, models.ReportResponse{
		ProjectID:   projectID,
		Keywords:    keywords,
		From:        body.From,
		To:          body.To,
		Granularity: body.Granularity,
		Refreshed:   refresh,
		Windows:     windows,
		GeneratedAt: h.now().UTC(),
	})
}

// collect runs one aggregation per metric concurrently. The first failure
// cancels the rest.
func (h *ReportHandler) collect(ctx context.Context, base tracking.AggregateRequest, refresh bool) (map[string]*models.AggregationWindow, error) {
	var mu sync.Mutex
	windows := make(map[string]*models.AggregationWindow, len(models.Metrics))

	g, gctx := errgroup.WithContext(ctx)
	for _, metric := range models.Metrics {
		req := base
		req.Metric = metric
		g.Go(func() error {
			run := h.aggregator.Aggregate
			if refresh {
				run = h.aggregator.Refresh
			}
			w, err := run(gctx, req)
			if err != nil {
				return err
			}
			mu.Lock()
			windows[metric] = w
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return windows, nil
}
