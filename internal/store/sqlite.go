package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/aim-group/evidence-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
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
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS documents (
	key        TEXT PRIMARY KEY,
	body       TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS pair_statuses (
	position   INTEGER PRIMARY KEY AUTOINCREMENT,
	pair_id    TEXT NOT NULL UNIQUE,
	status     TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_pair_statuses_pair_id ON pair_statuses(pair_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetDocument(ctx context.Context, key string) ([]byte, error) {
	var body string
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE key = ?`, key,
	).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "%s", key)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get document %s", key)
	}
	return []byte(body), nil
}

func (s *SQLiteStore) PutDocument(ctx context.Context, key string, body []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (key, body, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		key, string(body), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: put document %s", key)
}

func (s *SQLiteStore) DeleteDocument(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE key = ?`, key)
	return eris.Wrapf(err, "sqlite: delete document %s", key)
}

func (s *SQLiteStore) ListPairStatuses(ctx context.Context) ([]model.PairStatusRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT pair_id, status, updated_at FROM pair_statuses ORDER BY position`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list pair statuses")
	}
	defer rows.Close()

	records := []model.PairStatusRecord{}
	for rows.Next() {
		var r model.PairStatusRecord
		if err := rows.Scan(&r.PairID, &r.Status, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan pair status")
		}
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: iterate pair statuses")
}

func (s *SQLiteStore) SavePairStatuses(ctx context.Context, records []model.PairStatusRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save pair statuses")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM pair_statuses`); err != nil {
		return eris.Wrap(err, "sqlite: clear pair statuses")
	}
	for _, r := range records {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO pair_statuses (pair_id, status, updated_at) VALUES (?, ?, ?)`,
			r.PairID, r.Status, r.UpdatedAt,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert pair status %s", r.PairID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit pair statuses")
}
