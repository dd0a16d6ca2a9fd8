package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // Registers the "sqlite" driver.
)

// sqlitePragmas enable WAL and wait on locks instead of failing fast.
const sqlitePragmas = "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"

// SQLiteStore persists documents in a single SQLite table.
type SQLiteStore struct {
	// db is the connection pool, limited to one writer.
	db *sqlx.DB
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens or creates the database at path and migrates the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?" + sqlitePragmas
	}

	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite allows one writer; a single connection avoids SQLITE_BUSY under concurrent actors.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.migrate(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("migrate: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS actor_state (
		key TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`

	_, err := s.db.ExecContext(ctx, schema)

	return err
}

// Load returns the document saved under key.
func (s *SQLiteStore) Load(ctx context.Context, key string) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}

	var data []byte

	err := s.db.GetContext(ctx, &data, `SELECT data FROM actor_state WHERE key = ?`, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("select state: %w", err)
	}

	return data, nil
}

// Save upserts the document saved under key.
func (s *SQLiteStore) Save(ctx context.Context, key string, data []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO actor_state (key, data, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)`,
		key, data,
	)
	if err != nil {
		return fmt.Errorf("upsert state: %w", err)
	}

	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
