package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/handwerk-leads/leads-cli/internal/db"
	"github.com/handwerk-leads/leads-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}

	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool, used by tests.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	source     TEXT NOT NULL,
	categories JSONB NOT NULL,
	cities     JSONB NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	lead_count INTEGER NOT NULL DEFAULT 0,
	total_cost DOUBLE PRECISION NOT NULL DEFAULT 0,
	error      TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
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
	scraped_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_leads_run_id ON leads(run_id);
CREATE INDEX IF NOT EXISTS idx_leads_category ON leads(category);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, source model.Source, categories, cities []string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	catJSON, err := json.Marshal(categories)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal categories")
	}
	cityJSON, err := json.Marshal(cities)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal cities")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, source, categories, cities, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, string(source), catJSON, cityJSON, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
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

func (s *PostgresStore) FinishRun(ctx context.Context, runID string, status model.RunStatus, leadCount int, totalCost float64, runErr string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, lead_count = $2, total_cost = $3, error = $4, updated_at = $5 WHERE id = $6`,
		string(status), leadCount, totalCost, runErr, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("store: run %s not found", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, source, categories, cities, status, lead_count, total_cost, COALESCE(error, ''), created_at, updated_at
		 FROM runs WHERE id = $1`, runID)
	run, err := scanPgRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("store: run %s not found", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return run, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, source, categories, cities, status, lead_count, total_cost, COALESCE(error, ''), created_at, updated_at FROM runs`
	var conds []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if filter.Status != "" {
		conds = append(conds, "status = "+arg(string(filter.Status)))
	}
	if filter.Source != "" {
		conds = append(conds, "source = "+arg(string(filter.Source)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET " + arg(filter.Offset)
		}
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		run, err := scanPgRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *run)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: iterate runs")
}

var leadColumns = []string{
	"id", "run_id", "name", "category", "address", "phone", "website", "email", "source", "scraped_at",
}

// InsertLeads bulk-loads a run's leads over the COPY protocol.
func (s *PostgresStore) InsertLeads(ctx context.Context, runID string, leads []model.Lead) (int, error) {
	rows := make([][]any, len(leads))
	for i, l := range leads {
		var scrapedAt any
		if !l.ScrapedAt.IsZero() {
			scrapedAt = l.ScrapedAt.UTC()
		}
		rows[i] = []any{
			uuid.New().String(), runID, l.Name, l.Category, l.Address,
			l.Phone, l.Website, l.Email, string(l.Source), scrapedAt,
		}
	}

	n, err := db.CopyFrom(ctx, s.pool, "leads", leadColumns, rows)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: insert leads for %s", runID)
	}
	return int(n), nil
}

func (s *PostgresStore) ListLeads(ctx context.Context, runID string) ([]model.Lead, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT name, COALESCE(category, ''), COALESCE(address, ''), COALESCE(phone, ''),
		        COALESCE(website, ''), COALESCE(email, ''), COALESCE(source, ''), scraped_at
		 FROM leads WHERE run_id = $1 ORDER BY id`, runID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list leads for %s", runID)
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		var l model.Lead
		var source string
		var scrapedAt *time.Time
		if err := rows.Scan(&l.Name, &l.Category, &l.Address, &l.Phone, &l.Website, &l.Email, &source, &scrapedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		l.Source = model.Source(source)
		if scrapedAt != nil {
			l.ScrapedAt = *scrapedAt
		}
		leads = append(leads, l)
	}
	return leads, eris.Wrap(rows.Err(), "postgres: iterate leads")
}

func scanPgRun(row pgx.Row) (*model.Run, error) {
	var run model.Run
	var source, status string
	var catJSON, cityJSON []byte
	if err := row.Scan(&run.ID, &source, &catJSON, &cityJSON, &status,
		&run.LeadCount, &run.TotalCost, &run.Error, &run.CreatedAt, &run.UpdatedAt); err != nil {
		return nil, err
	}
	run.Source = model.Source(source)
	run.Status = model.RunStatus(status)
	if err := json.Unmarshal(catJSON, &run.Categories); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal categories")
	}
	if err := json.Unmarshal(cityJSON, &run.Cities); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal cities")
	}
	return &run, nil
}

