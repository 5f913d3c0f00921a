package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/dveri-ekat/door-assistant/internal/model"
)

// Pool is the subset of pgxpool.Pool used by PostgresStore.
type Pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
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

	maxConns := int32(4)
	minConns := int32(1)
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

// NewPostgresWithPool wraps an existing pool.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS catalog_snapshot (
	id            SMALLINT PRIMARY KEY CHECK (id = 1),
	payload       JSONB NOT NULL,
	product_count INTEGER NOT NULL,
	last_updated  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS catalog_refresh_log (
	id            UUID PRIMARY KEY,
	product_count INTEGER NOT NULL,
	last_updated  TIMESTAMPTZ NOT NULL,
	saved_at      TIMESTAMPTZ NOT NULL DEFAULT now()
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

func (s *PostgresStore) Load(ctx context.Context) (*model.Catalog, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx, `SELECT payload FROM catalog_snapshot WHERE id = 1`).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load snapshot")
	}
	return decodeCatalog(payload)
}

func (s *PostgresStore) Save(ctx context.Context, c *model.Catalog) error {
	data, err := encodeCatalog(c)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	updated := c.LastUpdated.UTC()
	if _, err := tx.Exec(ctx,
		`INSERT INTO catalog_snapshot (id, payload, product_count, last_updated) VALUES (1, $1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload,
		   product_count = EXCLUDED.product_count, last_updated = EXCLUDED.last_updated`,
		data, c.Len(), updated,
	); err != nil {
		return eris.Wrap(err, "postgres: upsert snapshot")
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO catalog_refresh_log (id, product_count, last_updated) VALUES ($1, $2, $3)`,
		uuid.NewString(), c.Len(), updated,
	); err != nil {
		return eris.Wrap(err, "postgres: insert refresh log")
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit")
}
