package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/aim-group/evidence-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgresWithPool wraps an existing pool. Tests inject a mock here.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
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

const postgresMigration = `
CREATE TABLE IF NOT EXISTS documents (
	key        TEXT PRIMARY KEY,
	body       TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS pair_statuses (
	position   BIGSERIAL PRIMARY KEY,
	pair_id    TEXT NOT NULL UNIQUE,
	status     TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, key string) ([]byte, error) {
	var body string
	err := s.pool.QueryRow(ctx,
		`SELECT body FROM documents WHERE key = $1`, key,
	).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "%s", key)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get document %s", key)
	}
	return []byte(body), nil
}

func (s *PostgresStore) PutDocument(ctx context.Context, key string, body []byte) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO documents (key, body, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at`,
		key, string(body), time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: put document %s", key)
}

func (s *PostgresStore) DeleteDocument(ctx context.Context, key string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE key = $1`, key)
	return eris.Wrapf(err, "postgres: delete document %s", key)
}

func (s *PostgresStore) ListPairStatuses(ctx context.Context) ([]model.PairStatusRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT pair_id, status, updated_at FROM pair_statuses ORDER BY position`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list pair statuses")
	}
	defer rows.Close()

	records := []model.PairStatusRecord{}
	for rows.Next() {
		var r model.PairStatusRecord
		if err := rows.Scan(&r.PairID, &r.Status, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan pair status")
		}
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "postgres: iterate pair statuses")
}

func (s *PostgresStore) SavePairStatuses(ctx context.Context, records []model.PairStatusRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin save pair statuses")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM pair_statuses`); err != nil {
		return eris.Wrap(err, "postgres: clear pair statuses")
	}
	for _, r := range records {
		if _, err := tx.Exec(ctx,
			`INSERT INTO pair_statuses (pair_id, status, updated_at) VALUES ($1, $2, $3)`,
			r.PairID, r.Status, r.UpdatedAt,
		); err != nil {
			return eris.Wrapf(err, "postgres: insert pair status %s", r.PairID)
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit pair statuses")
}
