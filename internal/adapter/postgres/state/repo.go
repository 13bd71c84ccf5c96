// Package state implements the key-value system state store, used for the
// mail poller's last-checked timestamp.
package state

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sthar2820/Job-Application-Tracker/internal/adapter/postgres"
	"github.com/sthar2820/Job-Application-Tracker/internal/domain"
)

// KeyLastChecked is the mail poller's resume position.
const KeyLastChecked = "mail_last_checked"

// Repo provides system state persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new state repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Get returns the value for key, or domain.ErrNotFound.
func (r *Repo) Get(ctx context.Context, key string) (string, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	var value string
	err := q.QueryRow(ctx, `SELECT value FROM system_state WHERE key = $1`, key).Scan(&value)
	if err != nil {
		return "", postgres.MapError(err, "system_state", key)
	}
	return value, nil
}

// Set upserts the value for key.
func (r *Repo) Set(ctx context.Context, key, value string) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	_, err := q.Exec(ctx, `
		INSERT INTO system_state (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		key, value,
	)
	if err != nil {
		return postgres.MapError(err, "system_state", key)
	}
	return nil
}

// GetTime reads a timestamp value. A missing key returns the zero time and
// no error: first runs have no resume position yet.
func (r *Repo) GetTime(ctx context.Context, key string) (time.Time, error) {
	value, err := r.Get(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339Nano, value)
}

// SetTime writes a timestamp value.
func (r *Repo) SetTime(ctx context.Context, key string, t time.Time) error {
	return r.Set(ctx, key, t.UTC().Format(time.RFC3339Nano))
}
