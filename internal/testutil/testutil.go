// Package testutil provides test utilities and helpers.
package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"kwtrack/internal/db"
	"kwtrack/internal/models"
)

// TestDB creates a test database connection and returns a cleanup function.
// Tests are skipped unless TEST_DATABASE_URL is set.
func TestDB(t *testing.T) (*db.DB, func()) {
	t.Helper()

	connString := os.Getenv("TEST_DATABASE_URL")
	if connString == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	database, err := db.New(ctx, connString)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	if err := database.RunMigrations(connString); err != nil {
		database.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}
	cleanupTestData(ctx, database.Pool)

	cleanup := func() {
		cleanupTestData(ctx, database.Pool)
		database.Close()
	}

	return database, cleanup
}

// cleanupTestData removes all test data from the database.
func cleanupTestData(ctx context.Context, pool *pgxpool.Pool) {
	// Delete in order to respect foreign keys
	pool.Exec(ctx, "DELETE FROM aggregation_windows")
	pool.Exec(ctx, "DELETE FROM aggregation_outcomes")
	pool.Exec(ctx, "DELETE FROM ranking_observations")
	pool.Exec(ctx, "DELETE FROM keywords")
	pool.Exec(ctx, "DELETE FROM projects")
}

// CreateTestProject creates a project tracking the given keywords.
func CreateTestProject(t *testing.T, database *db.DB, slug string, terms ...string) *models.Project {
	t.Helper()

	project, err := database.SeedProject(context.Background(), slug, slug, terms)
	if err != nil {
		t.Fatalf("failed to create test project: %v", err)
	}
	return project
}

// KeywordID returns the ID of a tracked keyword.
func KeywordID(t *testing.T, database *db.DB, projectID uuid.UUID, term string) uuid.UUID {
	t.Helper()

	ids, err := database.ResolveKeywordIDs(context.Background(), projectID, []string{term})
	if err != nil {
		t.Fatalf("failed to resolve keyword %q: %v", term, err)
	}
	id, ok := ids[term]
	if !ok {
		t.Fatalf("keyword %q is not tracked", term)
	}
	return id
}

// InsertTestObservations appends one google/en-US observation per position,
// one day apart starting at start.
func InsertTestObservations(t *testing.T, database *db.DB, keywordID uuid.UUID, start time.Time, positions ...int) []models.RankingObservation {
	t.Helper()
	ctx := context.Background()

	observations := make([]models.RankingObservation, 0, len(positions))
	for i, pos := range positions {
		o := models.RankingObservation{
			KeywordID:  keywordID,
			Engine:     "google",
			Locale:     "en-US",
			Position:   pos,
			ObservedAt: start.AddDate(0, 0, i),
		}
		if err := database.InsertObservation(ctx, &o); err != nil {
			t.Fatalf("failed to insert observation: %v", err)
		}
		observations = append(observations, o)
	}
	return observations
}
