package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresBackend mirrors the role keys into a server-side table for
// deployments that keep a durable copy of session role facts. One row per
// physical key in role_kv(key, value, updated_at).
type PostgresBackend struct {
	name string
	pool *pgxpool.Pool
}

// NewPostgresBackend creates a backend over an existing connection pool.
// The pool's lifecycle belongs to the caller; Close does not close it.
func NewPostgresBackend(name string, pool *pgxpool.Pool) *PostgresBackend {
	return &PostgresBackend{name: name, pool: pool}
}

// Name implements Backend.
func (b *PostgresBackend) Name() string {
	return b.name
}

// Get implements Backend.
func (b *PostgresBackend) Get(ctx context.Context, key string) (Record, bool, error) {
	var rec Record
	err := b.pool.QueryRow(ctx,
		`SELECT value, updated_at FROM role_kv WHERE key = $1`,
		key,
	).Scan(&rec.Value, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("postgres get %q: %w", key, err)
	}
	return rec, true, nil
}

// Set implements Backend.
func (b *PostgresBackend) Set(ctx context.Context, key string, rec Record) error {
	_, err := b.pool.Exec(ctx,
		`INSERT INTO role_kv (key, value, updated_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		key, rec.Value, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres set %q: %w", key, err)
	}
	return nil
}

// Delete implements Backend.
func (b *PostgresBackend) Delete(ctx context.Context, key string) error {
	_, err := b.pool.Exec(ctx, `DELETE FROM role_kv WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("postgres delete %q: %w", key, err)
	}
	return nil
}

// Close implements Backend. The pool is shared, so this is a no-op.
func (b *PostgresBackend) Close() error {
	return nil
}
