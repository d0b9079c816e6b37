package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kwtrack/internal/config"
	"kwtrack/internal/db"
	"kwtrack/internal/models"
	"kwtrack/internal/tracking"
)

var testProject = uuid.MustParse("6f1c2a64-3d0b-4e0e-9b8f-1a2b3c4d5e6f")

type fakeProjects struct {
	keywords []models.Keyword
	err      error
}

func (f *fakeProjects) GetProjectByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	if id != testProject {
		return nil, db.ErrProjectNotFound
	}
	return &models.Project{ID: id, Slug: "acme", Name: "Acme"}, nil
}

func (f *fakeProjects) ListKeywords(ctx context.Context, projectID uuid.UUID) ([]models.Keyword, error) {
	return f.keywords, f.err
}

type fakeReader struct {
	page  *tracking.ObservationPage
	err   error
	query tracking.ObservationQuery
}

func (f *fakeReader) Observations(ctx context.Context, q tracking.ObservationQuery) (*tracking.ObservationPage, error) {
	f.query = q
	if f.err != nil {
		return nil, f.err
	}
	return f.page, nil
}

type fakeAggregator struct {
	mu        sync.Mutex
	err       error
	failOn    string
	aggregate []tracking.AggregateRequest
	refresh   []tracking.AggregateRequest
}

func (f *fakeAggregator) window(req tracking.AggregateRequest) (*models.AggregationWindow, error) {
	if f.err != nil && (f.failOn == "" || f.failOn == req.Metric) {
		return nil, f.err
	}
	return &models.AggregationWindow{
		Key:         "agg:" + req.Metric,
		ProjectID:   req.ProjectID,
		Keywords:    []string{"alpha", "beta"},
		Metric:      req.Metric,
		Granularity: req.Granularity,
		Value:       3.2857,
		SampleCount: 7,
	}, nil
}

func (f *fakeAggregator) Aggregate(ctx context.Context, req tracking.AggregateRequest) (*models.AggregationWindow, error) {
	f.mu.Lock()
	f.aggregate = append(f.aggregate, req)
	f.mu.Unlock()
	return f.window(req)
}

func (f *fakeAggregator) Refresh(ctx context.Context, req tracking.AggregateRequest) (*models.AggregationWindow, error) {
	f.mu.Lock()
	f.refresh = append(f.refresh, req)
	f.mu.Unlock()
	return f.window(req)
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(ctx context.Context) error { return f.err }

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error"`
}

func do(t *testing.T, app *fiber.App, method, target, body string) (*http.Response, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, target, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var env envelope
	require.NoError(t, json.Unmarshal(raw, &env), "body: %s", raw)
	return resp, env
}

func newRankingApp(h *RankingHandler) *fiber.App {
	app := fiber.New()
	app.Get("/api/projects/:project/keywords", h.Keywords)
	app.Get("/api/projects/:project/rankings", h.Rankings)
	app.Get("/api/projects/:project/aggregations", h.Aggregations)
	return app
}

func TestKeywords(t *testing.T) {
	projects := &fakeProjects{keywords: []models.Keyword{
		{ID: uuid.New(), ProjectID: testProject, Term: "alpha"},
	}}
	app := newRankingApp(NewRankingHandler(projects, &fakeReader{}, &fakeAggregator{}))

	resp, env := do(t, app, "GET", "/api/projects/"+testProject.String()+"/keywords", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var keywords []models.Keyword
	require.NoError(t, json.Unmarshal(env.Data, &keywords))
	require.Len(t, keywords, 1)
	assert.Equal(t, "alpha", keywords[0].Term)

	resp, _ = do(t, app, "GET", "/api/projects/"+uuid.NewString()+"/keywords", "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, app, "GET", "/api/projects/not-a-uuid/keywords", "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestRankings(t *testing.T) {
	observedAt := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	reader := &fakeReader{page: &tracking.ObservationPage{
		Observations: []models.RankingObservation{
			{ID: 1, Keyword: "alpha", Engine: "google", Position: 3, ObservedAt: observedAt},
		},
		NextCursor: "next",
	}}
	app := newRankingApp(NewRankingHandler(&fakeProjects{}, reader, &fakeAggregator{}))

	target := fmt.Sprintf("/api/projects/%s/rankings?keywords=Alpha,beta&from=2024-01-01&to=2024-01-07&engine=google&locale=en-US&limit=10&cursor=abc", testProject)
	resp, env := do(t, app, "GET", target, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode, env.Error)

	var page models.RankingsResponse
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Len(t, page.Observations, 1)
	assert.Equal(t, "next", page.NextCursor)

	q := reader.query
	assert.Equal(t, testProject, q.ProjectID)
	assert.Equal(t, []string{"alpha", "beta"}, q.Keywords)
	assert.Equal(t, "google", q.Engine)
	assert.Equal(t, "en-US", q.Locale)
	assert.Equal(t, "abc", q.Cursor)
	assert.Equal(t, 10, q.Limit)
	assert.Equal(t, "2024-01-01..2024-01-07", q.Range.String())
}

func TestRankingsRejectsBadInput(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"reversed range", "keywords=a&from=2024-02-01&to=2024-01-01"},
		{"missing dates", "keywords=a"},
		{"malformed date", "keywords=a&from=01/01/2024&to=2024-01-02"},
		{"zero limit", "keywords=a&from=2024-01-01&to=2024-01-02&limit=0"},
		{"huge limit", "keywords=a&from=2024-01-01&to=2024-01-02&limit=999999"},
		{"bad locale", "keywords=a&from=2024-01-01&to=2024-01-02&locale=en_US!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := &fakeReader{page: &tracking.ObservationPage{}}
			app := newRankingApp(NewRankingHandler(&fakeProjects{}, reader, &fakeAggregator{}))

			resp, env := do(t, app, "GET", "/api/projects/"+testProject.String()+"/rankings?"+tt.query, "")
			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "error", env.Status)
			assert.Equal(t, uuid.Nil, reader.query.ProjectID, "reader must not be called")
		})
	}
}

func TestTrackingErrorStatus(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		retryAfter string
	}{
		{"invalid range", fmt.Errorf("%w: keyword set is empty", tracking.ErrInvalidRange), fiber.StatusBadRequest, ""},
		{"not found", fmt.Errorf("%w: no tracked keywords", tracking.ErrNotFound), fiber.StatusNotFound, ""},
		{"computation", fmt.Errorf("%w: %w", tracking.ErrComputation, context.DeadlineExceeded), fiber.StatusServiceUnavailable, "5"},
		{"unexpected", errors.New("boom"), fiber.StatusInternalServerError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := &fakeAggregator{err: tt.err}
			app := newRankingApp(NewRankingHandler(&fakeProjects{}, &fakeReader{}, agg))

			target := "/api/projects/" + testProject.String() + "/aggregations?keywords=a&from=2024-01-01&to=2024-01-02"
			resp, env := do(t, app, "GET", target, "")
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, "error", env.Status)
			assert.Equal(t, tt.retryAfter, resp.Header.Get("Retry-After"))
		})
	}
}

func TestAggregations(t *testing.T) {
	agg := &fakeAggregator{}
	app := newRankingApp(NewRankingHandler(&fakeProjects{}, &fakeReader{}, agg))

	target := "/api/projects/" + testProject.String() + "/aggregations?keywords=alpha,beta&from=2024-01-01&to=2024-01-07&metric=min&granularity=weekly"
	resp, env := do(t, app, "GET", target, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode, env.Error)

	var w models.AggregationWindow
	require.NoError(t, json.Unmarshal(env.Data, &w))
	assert.Equal(t, models.MetricMin, w.Metric)

	require.Len(t, agg.aggregate, 1)
	assert.Equal(t, models.GranularityWeekly, agg.aggregate[0].Granularity)
	assert.Empty(t, agg.refresh)
}

func newReportApp(h *ReportHandler) *fiber.App {
	app := fiber.New()
	app.Post("/api/projects/:project/reports", h.Generate)
	app.Post("/api/projects/:project/reports/refresh", h.Refresh)
	return app
}

func TestReportGenerate(t *testing.T) {
	agg := &fakeAggregator{}
	app := newReportApp(NewReportHandler(agg))

	body := `{"keywords":["Beta","alpha"],"from":"2024-01-01","to":"2024-01-07"}`
	resp, env := do(t, app, "POST", "/api/projects/"+testProject.String()+"/reports", body)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, env.Error)

	var report models.ReportResponse
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.False(t, report.Refreshed)
	assert.Equal(t, models.GranularityDaily, report.Granularity)
	assert.Equal(t, []string{"alpha", "beta"}, report.Keywords)
	for _, metric := range models.Metrics {
		require.Contains(t, report.Windows, metric)
		assert.Equal(t, metric, report.Windows[metric].Metric)
	}

	assert.Len(t, agg.aggregate, len(models.Metrics))
	assert.Empty(t, agg.refresh)
}

func TestReportRefresh(t *testing.T) {
	agg := &fakeAggregator{}
	app := newReportApp(NewReportHandler(agg))

	body := `{"keywords":["alpha"],"from":"2024-01-01","to":"2024-01-07","granularity":"weekly"}`
	resp, env := do(t, app, "POST", "/api/projects/"+testProject.String()+"/reports/refresh", body)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, env.Error)

	var report models.ReportResponse
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.True(t, report.Refreshed)
	assert.Len(t, agg.refresh, len(models.Metrics))
	assert.Empty(t, agg.aggregate)
}

func TestReportErrors(t *testing.T) {
	tests := []struct {
		name       string
		agg        *fakeAggregator
		body       string
		wantStatus int
	}{
		{
			name:       "malformed body",
			agg:        &fakeAggregator{},
			body:       `{"keywords":`,
			wantStatus: fiber.StatusBadRequest,
		},
		{
			name:       "reversed range",
			agg:        &fakeAggregator{},
			body:       `{"keywords":["a"],"from":"2024-02-01","to":"2024-01-01"}`,
			wantStatus: fiber.StatusBadRequest,
		},
		{
			name:       "one metric fails",
			agg:        &fakeAggregator{err: fmt.Errorf("%w: timeout", tracking.ErrComputation), failOn: models.MetricMax},
			body:       `{"keywords":["a"],"from":"2024-01-01","to":"2024-01-02"}`,
			wantStatus: fiber.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newReportApp(NewReportHandler(tt.agg))
			resp, env := do(t, app, "POST", "/api/projects/"+testProject.String()+"/reports", tt.body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, "error", env.Status)
		})
	}
}

func TestSystemHandler(t *testing.T) {
	cfg := &config.Config{
		Env:           "production",
		DatabaseURL:   "postgres://secret@db/kwtrack",
		SessionSecret: "super-secret-session-key-of-32-chars",
	}

	t.Run("ready", func(t *testing.T) {
		h := NewSystemHandler(cfg, fakePinger{}, false)
		app := fiber.New()
		app.Get("/readyz", h.Ready)
		app.Get("/healthz", h.Live)

		resp, _ := do(t, app, "GET", "/readyz", "")
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		resp, _ = do(t, app, "GET", "/healthz", "")
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("not ready", func(t *testing.T) {
		h := NewSystemHandler(cfg, fakePinger{err: errors.New("connection refused")}, false)
		app := fiber.New()
		app.Get("/readyz", h.Ready)

		resp, _ := do(t, app, "GET", "/readyz", "")
		assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	})

	t.Run("config check never leaks values", func(t *testing.T) {
		h := NewSystemHandler(cfg, fakePinger{err: errors.New("down")}, true)
		app := fiber.New()
		app.Get("/api/config-check", h.ConfigCheck)

		resp, env := do(t, app, "GET", "/api/config-check", "")
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.NotContains(t, string(env.Data), "secret@db")
		assert.NotContains(t, string(env.Data), "super-secret")

		var check models.ConfigCheckResponse
		require.NoError(t, json.Unmarshal(env.Data, &check))
		assert.Equal(t, "production", check.Env)
		assert.Equal(t, "unreachable", check.Database)
		assert.True(t, check.SharedTier)
		assert.True(t, check.Settings["database_url"])
		assert.False(t, check.Settings["redis_url"])
	})
}
