package tracking

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/goleak"

	"kwtrack/internal/db"
	"kwtrack/internal/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var testProject = uuid.MustParse("6f1c2a9e-4b7d-4e8a-9c3f-2d5e6a7b8c9d")

// fakeObservationStore is an in-memory ObservationStore.
type fakeObservationStore struct {
	keywords     map[string]uuid.UUID
	observations []models.RankingObservation

	// gate, when set, blocks ResolveKeywordIDs until closed.
	gate chan struct{}
	// err is returned by ObservationsPage when set.
	err error
	// reverse returns each page in descending order.
	reverse bool

	resolveCalls atomic.Int32
	pageCalls    atomic.Int32
}

func newFakeObservationStore() *fakeObservationStore {
	return &fakeObservationStore{keywords: make(map[string]uuid.UUID)}
}

// track registers a keyword and appends one observation per position, one day apart from start.
func (f *fakeObservationStore) track(term string, start time.Time, positions ...int) uuid.UUID {
	id, ok := f.keywords[term]
	if !ok {
		id = uuid.New()
		f.keywords[term] = id
	}
	for i, pos := range positions {
		f.add(term, start.AddDate(0, 0, i), pos)
	}
	return id
}

func (f *fakeObservationStore) add(term string, at time.Time, position int) {
	f.observations = append(f.observations, models.RankingObservation{
		ID:         int64(len(f.observations) + 1),
		KeywordID:  f.keywords[term],
		Keyword:    term,
		Engine:     "google",
		Locale:     "en-US",
		Position:   position,
		ObservedAt: at,
	})
}

func (f *fakeObservationStore) ResolveKeywordIDs(ctx context.Context, projectID uuid.UUID, terms []string) (map[string]uuid.UUID, error) {
	f.resolveCalls.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	ids := make(map[string]uuid.UUID)
	for _, term := range terms {
		if id, ok := f.keywords[term]; ok && projectID == testProject {
			ids[term] = id
		}
	}
	return ids, nil
}

func (f *fakeObservationStore) ObservationsPage(ctx context.Context, filter db.ObservationFilter) ([]models.RankingObservation, error) {
	f.pageCalls.Add(1)
	if f.err != nil {
		return nil, f.err
	}

	var rows []models.RankingObservation
	for _, o := range f.observations {
		if !slices.Contains(filter.KeywordIDs, o.KeywordID) {
			continue
		}
		if o.ObservedAt.Before(filter.Start) || !o.ObservedAt.Before(filter.End) {
			continue
		}
		if filter.Engine != "" && o.Engine != filter.Engine {
			continue
		}
		if filter.Locale != "" && o.Locale != filter.Locale {
			continue
		}
		if c := o.ObservedAt.Compare(filter.AfterTime); c < 0 || (c == 0 && o.ID <= filter.AfterID) {
			continue
		}
		rows = append(rows, o)
	}

	slices.SortFunc(rows, func(a, b models.RankingObservation) int {
		if c := a.ObservedAt.Compare(b.ObservedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if len(rows) > filter.Limit {
		rows = rows[:filter.Limit]
	}
	if f.reverse {
		slices.Reverse(rows)
	}
	return rows, nil
}

// fakeWindowStore is an in-memory WindowStore.
type fakeWindowStore struct {
	mu      sync.Mutex
	windows map[string]*models.AggregationWindow
	saveErr error
	saves   atomic.Int32
}

func newFakeWindowStore() *fakeWindowStore {
	return &fakeWindowStore{windows: make(map[string]*models.AggregationWindow)}
}

func (f *fakeWindowStore) GetAggregationWindow(ctx context.Context, key string) (*models.AggregationWindow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.windows[key]
	if !ok {
		return nil, db.ErrWindowNotFound
	}
	return w, nil
}

func (f *fakeWindowStore) SaveAggregationWindow(ctx context.Context, w *models.AggregationWindow) error {
	f.saves.Add(1)
	if f.saveErr != nil {
		return f.saveErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.windows[w.Key] = w
	return nil
}

// mapCache is a ResultCache without expiry.
type mapCache struct {
	mu      sync.Mutex
	windows map[string]*models.AggregationWindow
}

func newMapCache() *mapCache {
	return &mapCache{windows: make(map[string]*models.AggregationWindow)}
}

func (c *mapCache) Get(key string) (*models.AggregationWindow, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	w, ok := c.windows[key]
	return w, ok
}

func (c *mapCache) Set(w *models.AggregationWindow) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.windows[w.Key] = w
	return nil
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
