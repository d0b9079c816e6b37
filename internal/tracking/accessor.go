package tracking

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"kwtrack/internal/db"
	"kwtrack/internal/models"
)

// Page size limits for observation reads.
const (
	DefaultPageSize = 500
	MaxPageSize     = 5000
)

// ObservationStore is the data-store boundary the Accessor reads through.
// *db.DB implements it.
type ObservationStore interface {
	ResolveKeywordIDs(ctx context.Context, projectID uuid.UUID, terms []string) (map[string]uuid.UUID, error)
	ObservationsPage(ctx context.Context, f db.ObservationFilter) ([]models.RankingObservation, error)
}

// Accessor translates keyword-set queries into parameterized observation reads.
// It is safe for concurrent use.
type Accessor struct {
	store    ObservationStore
	pageSize int
}

// NewAccessor creates an Accessor. pageSize is the default page size, clamped to MaxPageSize.
func NewAccessor(store ObservationStore, pageSize int) *Accessor {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Accessor{store: store, pageSize: min(pageSize, MaxPageSize)}
}

// Observations returns one page of observations for the query, ordered by
// observation time ascending.
func (a *Accessor) Observations(ctx context.Context, q ObservationQuery) (*ObservationPage, error) {
	filter, err := a.prepare(ctx, q)
	if err != nil {
		return nil, err
	}

	limit := a.pageSize
	if q.Limit > 0 {
		limit = min(q.Limit, MaxPageSize)
	}
	return a.page(ctx, filter, limit)
}

// All drains every page for the query. The query's cursor and limit are ignored.
func (a *Accessor) All(ctx context.Context, q ObservationQuery) ([]models.RankingObservation, error) {
	q.Cursor = ""
	filter, err := a.prepare(ctx, q)
	if err != nil {
		return nil, err
	}

	var all []models.RankingObservation
	for {
		page, err := a.page(ctx, filter, a.pageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Observations...)
		if page.NextCursor == "" {
			return all, nil
		}
		last := page.Observations[len(page.Observations)-1]
		filter.AfterTime, filter.AfterID = last.ObservedAt, last.ID
	}
}

// prepare validates the query and resolves its keyword set. Invalid input is
// rejected before the store is touched.
func (a *Accessor) prepare(ctx context.Context, q ObservationQuery) (db.ObservationFilter, error) {
	terms, err := normalizeTerms(q.Keywords)
	if err != nil {
		return db.ObservationFilter{}, err
	}
	if err := q.Range.Validate(); err != nil {
		return db.ObservationFilter{}, err
	}
	after, err := decodeCursor(q.Cursor)
	if err != nil {
		return db.ObservationFilter{}, err
	}

	ids, err := a.store.ResolveKeywordIDs(ctx, q.ProjectID, terms)
	if err != nil {
		return db.ObservationFilter{}, fmt.Errorf("%w: %w", ErrComputation, err)
	}
	if len(ids) == 0 {
		return db.ObservationFilter{}, fmt.Errorf("%w: none of %v is tracked in project %s", ErrNotFound, terms, q.ProjectID)
	}

	keywordIDs := make([]uuid.UUID, 0, len(ids))
	for _, term := range terms {
		if id, ok := ids[term]; ok {
			keywordIDs = append(keywordIDs, id)
		}
	}

	start, end := q.Range.bounds()
	return db.ObservationFilter{
		KeywordIDs: keywordIDs,
		Start:      start,
		End:        end,
		Engine:     q.Engine,
		Locale:     q.Locale,
		AfterTime:  after.observedAt,
		AfterID:    after.id,
	}, nil
}

// page fetches one extra row to learn whether another page exists.
func (a *Accessor) page(ctx context.Context, filter db.ObservationFilter, limit int) (*ObservationPage, error) {
	filter.Limit = limit + 1
	rows, err := a.store.ObservationsPage(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrComputation, err)
	}

	slices.SortStableFunc(rows, compareObservations)

	page := &ObservationPage{Observations: rows}
	if len(rows) > limit {
		page.Observations = rows[:limit]
		page.NextCursor = encodeCursor(rows[limit-1])
	}
	if page.Observations == nil {
		page.Observations = []models.RankingObservation{}
	}
	return page, nil
}

func compareObservations(a, b models.RankingObservation) int {
	if c := a.ObservedAt.Compare(b.ObservedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}
