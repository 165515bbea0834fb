package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/clearcheck/verify-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store needs. pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool      Pool
	namespace string
}

// NewPostgres creates a PostgresStore with a connection pool scoped to the
// given namespace.
func NewPostgres(ctx context.Context, connString, namespace string) (*PostgresStore, error) {
	if namespace == "" {
		return nil, eris.New("postgres: namespace is required")
	}
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, namespace: namespace}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS misinformation_records (
	namespace   TEXT NOT NULL,
	domain      TEXT NOT NULL,
	url         TEXT NOT NULL,
	trust_score INTEGER NOT NULL,
	flagged_at  TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (namespace, domain)
);

CREATE TABLE IF NOT EXISTS history_items (
	id         TEXT PRIMARY KEY,
	namespace  TEXT NOT NULL,
	input      TEXT NOT NULL,
	report     TEXT NOT NULL,
	state      JSONB NOT NULL,
	results    JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_history_namespace_created ON history_items(namespace, created_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) GetRecord(ctx context.Context, domain string) (*model.MisinformationRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT domain, url, trust_score, flagged_at FROM misinformation_records
		 WHERE namespace = $1 AND domain = $2`,
		s.namespace, domain,
	)

	var rec model.MisinformationRecord
	err := row.Scan(&rec.Domain, &rec.URL, &rec.TrustScore, &rec.FlaggedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get record %s", domain)
	}
	return &rec, nil
}

func (s *PostgresStore) UpsertRecord(ctx context.Context, rec model.MisinformationRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO misinformation_records (namespace, domain, url, trust_score, flagged_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (namespace, domain) DO UPDATE SET
		   url = EXCLUDED.url,
		   trust_score = EXCLUDED.trust_score,
		   flagged_at = EXCLUDED.flagged_at`,
		s.namespace, rec.Domain, rec.URL, rec.TrustScore, rec.FlaggedAt.UTC(),
	)
	return eris.Wrapf(err, "postgres: upsert record %s", rec.Domain)
}

func (s *PostgresStore) ListRecords(ctx context.Context) ([]model.MisinformationRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT domain, url, trust_score, flagged_at FROM misinformation_records
		 WHERE namespace = $1 ORDER BY flagged_at DESC`,
		s.namespace,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list records")
	}
	defer rows.Close()

	var recs []model.MisinformationRecord
	for rows.Next() {
		var rec model.MisinformationRecord
		if err := rows.Scan(&rec.Domain, &rec.URL, &rec.TrustScore, &rec.FlaggedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan record")
		}
		recs = append(recs, rec)
	}
	return recs, eris.Wrap(rows.Err(), "postgres: list records iterate")
}

func (s *PostgresStore) AppendHistory(ctx context.Context, item model.HistoryItem) error {
	stateJSON, err := json.Marshal(item.PipelineState)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal pipeline state")
	}
	resultsJSON, err := json.Marshal(item.Results)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal results")
	}

	createdAt := item.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO history_items (id, namespace, input, report, state, results, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		item.ID, s.namespace, item.Input, item.Report, string(stateJSON), string(resultsJSON), createdAt,
	)
	return eris.Wrapf(err, "postgres: append history %s", item.ID)
}

func (s *PostgresStore) ListHistory(ctx context.Context) ([]model.HistoryItem, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, input, report, state, results, created_at FROM history_items
		 WHERE namespace = $1 ORDER BY created_at DESC`,
		s.namespace,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list history")
	}
	defer rows.Close()

	var items []model.HistoryItem
	for rows.Next() {
		item, err := scanPGHistoryItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, eris.Wrap(rows.Err(), "postgres: list history iterate")
}

func (s *PostgresStore) GetHistory(ctx context.Context, id string) (*model.HistoryItem, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, input, report, state, results, created_at FROM history_items
		 WHERE namespace = $1 AND id = $2`,
		s.namespace, id,
	)
	item, err := scanPGHistoryItem(row)
	if err == errHistoryNotFound {
		return nil, nil
	}
	return item, err
}

func (s *PostgresStore) ClearHistory(ctx context.Context) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM history_items WHERE namespace = $1`, s.namespace,
	)
	return eris.Wrap(err, "postgres: clear history")
}

func scanPGHistoryItem(row pgx.Row) (*model.HistoryItem, error) {
	var item model.HistoryItem
	var stateJSON, resultsJSON string

	err := row.Scan(&item.ID, &item.Input, &item.Report, &stateJSON, &resultsJSON, &item.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errHistoryNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan history item")
	}

	if err := json.Unmarshal([]byte(stateJSON), &item.PipelineState); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal pipeline state")
	}
	if err := json.Unmarshal([]byte(resultsJSON), &item.Results); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal results")
	}
	return &item, nil
}
