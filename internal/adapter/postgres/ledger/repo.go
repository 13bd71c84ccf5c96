// Package ledger implements the processed-message deduplication ledger using
// PostgreSQL.
package ledger

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sthar2820/Job-Application-Tracker/internal/adapter/postgres"
	"github.com/sthar2820/Job-Application-Tracker/internal/domain"
)

// Repo provides ledger persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new ledger repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Exists reports whether a message has already been processed.
func (r *Repo) Exists(ctx context.Context, messageID string) (bool, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	var exists bool
	err := q.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM processed_messages WHERE message_id = $1)`,
		messageID,
	).Scan(&exists)
	if err != nil {
		return false, postgres.MapError(err, "processed_message", messageID)
	}
	return exists, nil
}

// Record appends the ledger entry for one message. Re-recording the same
// message is a no-op, so redelivered messages converge instead of erroring.
func (r *Repo) Record(ctx context.Context, pm domain.ProcessedMessage) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	_, err := q.Exec(ctx, `
		INSERT INTO processed_messages (
			message_id, thread_id, received_at, sender_domain, subject,
			classification, processed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (message_id) DO NOTHING`,
		pm.MessageID, pm.ThreadID, pm.ReceivedAt, pm.SenderDomain, pm.Subject,
		pm.Classification, pm.ProcessedAt,
	)
	if err != nil {
		return postgres.MapError(err, "processed_message", pm.MessageID)
	}
	return nil
}

// Count returns how many messages the ledger holds.
func (r *Repo) Count(ctx context.Context) (int, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	var n int
	if err := q.QueryRow(ctx, `SELECT count(*) FROM processed_messages`).Scan(&n); err != nil {
		return 0, postgres.MapError(err, "processed_message", "count")
	}
	return n, nil
}
