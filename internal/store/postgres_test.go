package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handwerk-leads/leads-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresWithPool(mock), mock
}

func TestPostgresCreateRun(t *testing.T) {
	t.Parallel()

	s, mock := newMockPostgresStore(t)
	mock.ExpectExec(`INSERT INTO runs`).
		WithArgs(pgxmock.AnyArg(), "places_api", pgxmock.AnyArg(), pgxmock.AnyArg(),
			"running", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.CreateRun(context.Background(), model.SourcePlaces, []string{"dachdecker"}, []string{"München"})
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusRunning, run.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFinishRun(t *testing.T) {
	t.Parallel()

	s, mock := newMockPostgresStore(t)
	mock.ExpectExec(`UPDATE runs SET`).
		WithArgs("complete", 10, 1.5, "", pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.FinishRun(context.Background(), "run-1", model.RunStatusComplete, 10, 1.5, ""))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFinishRunNotFound(t *testing.T) {
	t.Parallel()

	s, mock := newMockPostgresStore(t)
	mock.ExpectExec(`UPDATE runs SET`).
		WithArgs("failed", 0, 0.0, "boom", pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.FinishRun(context.Background(), "missing", model.RunStatusFailed, 0, 0, "boom")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestPostgresGetRun(t *testing.T) {
	t.Parallel()

	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()
	cats, _ := json.Marshal([]string{"dachdecker"})
	cities, _ := json.Marshal([]string{"München"})

	mock.ExpectQuery(`SELECT .* FROM runs WHERE id`).
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "source", "categories", "cities", "status",
			"lead_count", "total_cost", "error", "created_at", "updated_at",
		}).AddRow("run-1", "places_api", cats, cities, "complete", 7, 0.5, "", now, now))

	run, err := s.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, run.Status)
	assert.Equal(t, []string{"dachdecker"}, run.Categories)
	assert.Equal(t, 7, run.LeadCount)
}

func TestPostgresGetRunNotFound(t *testing.T) {
	t.Parallel()

	s, mock := newMockPostgresStore(t)
	mock.ExpectQuery(`SELECT .* FROM runs WHERE id`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestPostgresInsertLeadsUsesCopy(t *testing.T) {
	t.Parallel()

	s, mock := newMockPostgresStore(t)
	mock.ExpectCopyFrom(pgx.Identifier{"leads"}, leadColumns).WillReturnResult(2)

	n, err := s.InsertLeads(context.Background(), "run-1", []model.Lead{
		{Name: "Eins", Source: model.SourcePlaces},
		{Name: "Zwei", Source: model.SourceDirectory},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresInsertLeadsEmpty(t *testing.T) {
	t.Parallel()

	s, _ := newMockPostgresStore(t)
	n, err := s.InsertLeads(context.Background(), "run-1", nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPostgresListLeads(t *testing.T) {
	t.Parallel()

	s, mock := newMockPostgresStore(t)
	scraped := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT .* FROM leads WHERE run_id`).
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"name", "category", "address", "phone", "website", "email", "source", "scraped_at",
		}).
			AddRow("Müller Dach", "Dachdecker", "Musterstraße 1", "089 1", "https://m.de", "info@m.de", "places_api", &scraped).
			AddRow("Zimmerei Nord", "", "", "", "", "", "directory_html", (*time.Time)(nil)))

	leads, err := s.ListLeads(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, leads, 2)
	assert.Equal(t, model.SourcePlaces, leads[0].Source)
	assert.True(t, leads[0].ScrapedAt.Equal(scraped))
	assert.True(t, leads[1].ScrapedAt.IsZero())
}
