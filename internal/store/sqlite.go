package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/clearcheck/verify-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db        *sql.DB
	namespace string
}

// NewSQLite opens a SQLite database at the given path, configures WAL mode,
// and scopes all reads and writes to the given namespace.
func NewSQLite(dsn, namespace string) (*SQLiteStore, error) {
	if namespace == "" {
		return nil, eris.New("sqlite: namespace is required")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, namespace: namespace}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS misinformation_records (
	namespace   TEXT NOT NULL,
	domain      TEXT NOT NULL,
	url         TEXT NOT NULL,
	trust_score INTEGER NOT NULL,
	flagged_at  DATETIME NOT NULL,
	PRIMARY KEY (namespace, domain)
);

CREATE TABLE IF NOT EXISTS history_items (
	id         TEXT PRIMARY KEY,
	namespace  TEXT NOT NULL,
	input      TEXT NOT NULL,
	report     TEXT NOT NULL,
	state      TEXT NOT NULL,
	results    TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_history_namespace_created ON history_items(namespace, created_at DESC);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetRecord(ctx context.Context, domain string) (*model.MisinformationRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT domain, url, trust_score, flagged_at FROM misinformation_records
		 WHERE namespace = ? AND domain = ?`,
		s.namespace, domain,
	)

	var rec model.MisinformationRecord
	err := row.Scan(&rec.Domain, &rec.URL, &rec.TrustScore, &rec.FlaggedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get record %s", domain)
	}
	return &rec, nil
}

func (s *SQLiteStore) UpsertRecord(ctx context.Context, rec model.MisinformationRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO misinformation_records (namespace, domain, url, trust_score, flagged_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(namespace, domain) DO UPDATE SET
		   url = excluded.url,
		   trust_score = excluded.trust_score,
		   flagged_at = excluded.flagged_at`,
		s.namespace, rec.Domain, rec.URL, rec.TrustScore, rec.FlaggedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: upsert record %s", rec.Domain)
}

func (s *SQLiteStore) ListRecords(ctx context.Context) ([]model.MisinformationRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT domain, url, trust_score, flagged_at FROM misinformation_records
		 WHERE namespace = ? ORDER BY flagged_at DESC`,
		s.namespace,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list records")
	}
	defer rows.Close()

	var recs []model.MisinformationRecord
	for rows.Next() {
		var rec model.MisinformationRecord
		if err := rows.Scan(&rec.Domain, &rec.URL, &rec.TrustScore, &rec.FlaggedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan record")
		}
		recs = append(recs, rec)
	}
	return recs, eris.Wrap(rows.Err(), "sqlite: list records iterate")
}

func (s *SQLiteStore) AppendHistory(ctx context.Context, item model.HistoryItem) error {
	stateJSON, err := json.Marshal(item.PipelineState)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal pipeline state")
	}
	resultsJSON, err := json.Marshal(item.Results)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal results")
	}

	createdAt := item.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO history_items (id, namespace, input, report, state, results, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		item.ID, s.namespace, item.Input, item.Report, string(stateJSON), string(resultsJSON), createdAt,
	)
	return eris.Wrapf(err, "sqlite: append history %s", item.ID)
}

func (s *SQLiteStore) ListHistory(ctx context.Context) ([]model.HistoryItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, input, report, state, results, created_at FROM history_items
		 WHERE namespace = ? ORDER BY created_at DESC, rowid DESC`,
		s.namespace,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list history")
	}
	defer rows.Close()

	var items []model.HistoryItem
	for rows.Next() {
		item, err := scanHistoryItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, eris.Wrap(rows.Err(), "sqlite: list history iterate")
}

func (s *SQLiteStore) GetHistory(ctx context.Context, id string) (*model.HistoryItem, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, input, report, state, results, created_at FROM history_items
		 WHERE namespace = ? AND id = ?`,
		s.namespace, id,
	)
	item, err := scanHistoryItem(row)
	if err == errHistoryNotFound {
		return nil, nil
	}
	return item, err
}

func (s *SQLiteStore) ClearHistory(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM history_items WHERE namespace = ?`, s.namespace,
	)
	return eris.Wrap(err, "sqlite: clear history")
}

// helpers

var errHistoryNotFound = eris.New("history item not found")

type scannable interface {
	Scan(dest ...any) error
}

func scanHistoryItem(row scannable) (*model.HistoryItem, error) {
	var item model.HistoryItem
	var stateJSON, resultsJSON string

	err := row.Scan(&item.ID, &item.Input, &item.Report, &stateJSON, &resultsJSON, &item.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errHistoryNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan history item")
	}

	if err := json.Unmarshal([]byte(stateJSON), &item.PipelineState); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal pipeline state")
	}
	if err := json.Unmarshal([]byte(resultsJSON), &item.Results); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal results")
	}
	return &item, nil
}
