package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists documents in a PostgreSQL table.
type PostgresStore struct {
	// pool is the shared connection pool.
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// OpenPostgres connects to dsn, verifies the connection and migrates the schema.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()

		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	store := &PostgresStore{pool: pool}
	if err = store.migrate(ctx); err != nil {
		pool.Close()

		return nil, fmt.Errorf("migrate: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS actor_state (
		key TEXT PRIMARY KEY,
		data BYTEA NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`

	_, err := s.pool.Exec(ctx, schema)

	return err
}

// Load returns the document saved under key.
func (s *PostgresStore) Load(ctx context.Context, key string) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}

	var data []byte

	err := s.pool.QueryRow(ctx, `SELECT data FROM actor_state WHERE key = $1`, key).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("select state: %w", err)
	}

	return data, nil
}

// Save upserts the document saved under key.
func (s *PostgresStore) Save(ctx context.Context, key string, data []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO actor_state (key, data, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		key, data,
	)
	if err != nil {
		return fmt.Errorf("upsert state: %w", err)
	}

	return nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()

	return nil
}
