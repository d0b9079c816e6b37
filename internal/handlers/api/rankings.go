package api

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"kwtrack/internal/db"
	"kwtrack/internal/models"
	"kwtrack/internal/tracking"
	"kwtrack/internal/validation"
)

// ObservationReader pages through ranking history.
type ObservationReader interface {
	Observations(ctx context.Context, q tracking.ObservationQuery) (*tracking.ObservationPage, error)
}

// Aggregator serves aggregation windows.
type Aggregator interface {
	Aggregate(ctx context.Context, req tracking.AggregateRequest) (*models.AggregationWindow, error)
	Refresh(ctx context.Context, req tracking.AggregateRequest) (*models.AggregationWindow, error)
}

// ProjectStore looks up projects and their tracked keywords.
type ProjectStore interface {
	GetProjectByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
	ListKeywords(ctx context.Context, projectID uuid.UUID) ([]models.Keyword, error)
}

// RankingHandler serves keyword, ranking history and aggregation queries.
type RankingHandler struct {
	projects     ProjectStore
	observations ObservationReader
	aggregator   Aggregator
}

// NewRankingHandler creates a new API ranking handler.
func NewRankingHandler(projects ProjectStore, observations ObservationReader, aggregator Aggregator) *RankingHandler {
	return &RankingHandler{projects: projects, observations: observations, aggregator: aggregator}
}

// Keywords lists the keywords tracked by a project.
func (h *RankingHandler) Keywords(c fiber.Ctx) error {
	projectID, ok := validation.ParseProjectID(c.Params("project"))
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "invalid project id")
	}

	if _, err := h.projects.GetProjectByID(c.Context(), projectID); err != nil {
		if errors.Is(err, db.ErrProjectNotFound) {
			return jsonError(c, fiber.StatusNotFound, "project not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "failed to fetch project")
	}

	keywords, err := h.projects.ListKeywords(c.Context(), projectID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to fetch keywords")
	}
	if keywords == nil {
		keywords = []models.Keyword{}
	}

	return jsonSuccess(c, keywords)
}

// Rankings returns one page of ranking history for a keyword set.
func (h *RankingHandler) Rankings(c fiber.Ctx) error {
	projectID, ok := validation.ParseProjectID(c.Params("project"))
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "invalid project id")
	}

	dates, err := tracking.ParseDateRange(c.Query("from"), c.Query("to"))
	if err != nil {
		return trackingError(c, err)
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 || limit > tracking.MaxPageSize {
			return jsonError(c, fiber.StatusBadRequest, "limit must be between 1 and "+strconv.Itoa(tracking.MaxPageSize))
		}
	}

	locale := c.Query("locale")
	if !validation.ValidateLocale(locale) {
		return jsonError(c, fiber.StatusBadRequest, "invalid locale")
	}

	page, err := h.observations.Observations(c.Context(), tracking.ObservationQuery{
		ProjectID: projectID,
		Keywords:  validation.SplitKeywords(c.Query("keywords")),
		Range:     dates,
		Engine:    c.Query("engine"),
		Locale:    locale,
		Cursor:    c.Query("cursor"),
		Limit:     limit,
	})
	if err != nil {
		return trackingError(c, err)
	}

	return jsonSuccess(c, models.RankingsResponse{
		Observations: page.Observations,
		NextCursor:   page.NextCursor,
	})
}

// Aggregations returns a single aggregation window.
func (h *RankingHandler) Aggregations(c fiber.Ctx) error {
	projectID, ok := validation.ParseProjectID(c.Params("project"))
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "invalid project id")
	}

	dates, err := tracking.ParseDateRange(c.Query("from"), c.Query("to"))
	if err != nil {
		return trackingError(c, err)
	}

	locale := c.Query("locale")
	if !validation.ValidateLocale(locale) {
		return jsonError(c, fiber.StatusBadRequest, "invalid locale")
	}

	window, err := h.aggregator.Aggregate(c.Context(), tracking.AggregateRequest{
		ProjectID:   projectID,
		Keywords:    validation.SplitKeywords(c.Query("keywords")),
		Range:       dates,
		Metric:      c.Query("metric"),
		Granularity: c.Query("granularity"),
		Engine:      c.Query("engine"),
		Locale:      locale,
	})
	if err != nil {
		return trackingError(c, err)
	}

	return jsonSuccess(c, window)
}
