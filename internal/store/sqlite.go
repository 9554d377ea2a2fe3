package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/handwerk-leads/leads-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures
// WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	source     TEXT NOT NULL,
	categories TEXT NOT NULL,
	cities     TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	lead_count INTEGER NOT NULL DEFAULT 0,
	total_cost REAL NOT NULL DEFAULT 0,
	error      TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS leads (
	id         TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL REFERENCES runs(id),
	name       TEXT NOT NULL,
	category   TEXT,
	address    TEXT,
	phone      TEXT,
	website    TEXT,
	email      TEXT,
	source     TEXT,
	scraped_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_leads_run_id ON leads(run_id);
CREATE INDEX IF NOT EXISTS idx_leads_category ON leads(category);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, source model.Source, categories, cities []string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	catJSON, err := json.Marshal(categories)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal categories")
	}
	cityJSON, err := json.Marshal(cities)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal cities")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, source, categories, cities, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, string(source), string(catJSON), string(cityJSON), string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:         id,
		Source:     source,
		Categories: categories,
		Cities:     cities,
		Status:     model.RunStatusRunning,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func (s *SQLiteStore) FinishRun(ctx context.Context, runID string, status model.RunStatus, leadCount int, totalCost float64, runErr string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, lead_count = ?, total_cost = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(status), leadCount, totalCost, runErr, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish run %s", runID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("store: run %s not found", runID)
	}
	return nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source, categories, cities, status, lead_count, total_cost, COALESCE(error, ''), created_at, updated_at
		 FROM runs WHERE id = ?`, runID)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("store: run %s not found", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}
	return run, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, source, categories, cities, status, lead_count, total_cost, COALESCE(error, ''), created_at, updated_at FROM runs`
	var conds []string
	var args []any
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Source != "" {
		conds = append(conds, "source = ?")
		args = append(args, string(filter.Source))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		runs = append(runs, *run)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: iterate runs")
}

func (s *SQLiteStore) InsertLeads(ctx context.Context, runID string, leads []model.Lead) (int, error) {
	if len(leads) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO leads (id, run_id, name, category, address, phone, website, email, source, scraped_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert lead")
	}
	defer stmt.Close() //nolint:errcheck

	for _, l := range leads {
		var scrapedAt any
		if !l.ScrapedAt.IsZero() {
			scrapedAt = l.ScrapedAt.UTC()
		}
		if _, err := stmt.ExecContext(ctx,
			uuid.New().String(), runID, l.Name, l.Category, l.Address,
			l.Phone, l.Website, l.Email, string(l.Source), scrapedAt,
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert lead %s", l.Name)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit leads")
	}
	return len(leads), nil
}

func (s *SQLiteStore) ListLeads(ctx context.Context, runID string) ([]model.Lead, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, COALESCE(category, ''), COALESCE(address, ''), COALESCE(phone, ''),
		        COALESCE(website, ''), COALESCE(email, ''), COALESCE(source, ''), scraped_at
		 FROM leads WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list leads for %s", runID)
	}
	defer rows.Close() //nolint:errcheck

	var leads []model.Lead
	for rows.Next() {
		var l model.Lead
		var source string
		var scrapedAt sql.NullTime
		if err := rows.Scan(&l.Name, &l.Category, &l.Address, &l.Phone, &l.Website, &l.Email, &source, &scrapedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lead")
		}
		l.Source = model.Source(source)
		if scrapedAt.Valid {
			l.ScrapedAt = scrapedAt.Time
		}
		leads = append(leads, l)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: iterate leads")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*model.Run, error) {
	var run model.Run
	var source, catJSON, cityJSON, status string
	if err := row.Scan(&run.ID, &source, &catJSON, &cityJSON, &status,
		&run.LeadCount, &run.TotalCost, &run.Error, &run.CreatedAt, &run.UpdatedAt); err != nil {
		return nil, err
	}
	run.Source = model.Source(source)
	run.Status = model.RunStatus(status)
	if err := json.Unmarshal([]byte(catJSON), &run.Categories); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal categories")
	}
	if err := json.Unmarshal([]byte(cityJSON), &run.Cities); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal cities")
	}
	return &run, nil
}
