package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/dveri-ekat/door-assistant/internal/model"
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
CREATE TABLE IF NOT EXISTS catalog_snapshot (
	id            INTEGER PRIMARY KEY CHECK (id = 1),
	payload       TEXT NOT NULL,
	product_count INTEGER NOT NULL,
	last_updated  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS catalog_refresh_log (
	id            TEXT PRIMARY KEY,
	product_count INTEGER NOT NULL,
	last_updated  DATETIME NOT NULL,
	saved_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Load(ctx context.Context) (*model.Catalog, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM catalog_snapshot WHERE id = 1`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load snapshot")
	}
	return decodeCatalog([]byte(payload))
}

func (s *SQLiteStore) Save(ctx context.Context, c *model.Catalog) error {
	data, err := encodeCatalog(c)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	updated := c.LastUpdated.UTC()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO catalog_snapshot (id, payload, product_count, last_updated) VALUES (1, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET payload = excluded.payload,
		   product_count = excluded.product_count, last_updated = excluded.last_updated`,
		string(data), c.Len(), updated,
	); err != nil {
		return eris.Wrap(err, "sqlite: upsert snapshot")
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO catalog_refresh_log (id, product_count, last_updated, saved_at) VALUES (?, ?, ?, ?)`,
		uuid.NewString(), c.Len(), updated, time.Now().UTC(),
	); err != nil {
		return eris.Wrap(err, "sqlite: insert refresh log")
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit")
}

// RefreshCount returns how many snapshots have been saved.
func (s *SQLiteStore) RefreshCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM catalog_refresh_log`).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count refresh log")
}
