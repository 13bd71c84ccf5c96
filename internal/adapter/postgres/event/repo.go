// Package event implements the append-only Event store using PostgreSQL.
package event

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sthar2820/Job-Application-Tracker/internal/adapter/postgres"
	"github.com/sthar2820/Job-Application-Tracker/internal/domain"
)

// Repo provides event persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new event repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const columns = `id, application_id, event_type, event_time, message_id, subject,
	sender_address, confidence, entities, action_suggestion, follow_up_date`

// Create appends one event. message_id is unique: inserting an event for an
// already-committed message returns domain.ErrAlreadyExists.
func (r *Repo) Create(ctx context.Context, ev domain.Event) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	entities, err := json.Marshal(ev.Entities)
	if err != nil {
		return fmt.Errorf("marshal entities for event %s: %w", ev.ID, err)
	}

	_, err = q.Exec(ctx, `
		INSERT INTO events (
			id, application_id, event_type, event_time, message_id, subject,
			sender_address, confidence, entities, action_suggestion, follow_up_date
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		ev.ID, ev.ApplicationID, ev.EventType.String(), ev.EventTime, ev.MessageID,
		ev.Subject, ev.Sender, ev.Confidence, entities, ev.ActionSuggestion, ev.FollowUpDate,
	)
	if err != nil {
		return postgres.MapError(err, "event", ev.MessageID)
	}
	return nil
}

// ListByApplication returns an application's events, most recent first.
func (r *Repo) ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]domain.Event, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	rows, err := q.Query(ctx, `
		SELECT `+columns+` FROM events
		WHERE application_id = $1
		ORDER BY event_time DESC`, applicationID,
	)
	if err != nil {
		return nil, postgres.MapError(err, "event", applicationID.String())
	}
	defer rows.Close()

	return collect(rows)
}

// Recent returns the latest events across all applications.
func (r *Repo) Recent(ctx context.Context, limit int) ([]domain.Event, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	rows, err := q.Query(ctx, `
		SELECT `+columns+` FROM events
		ORDER BY event_time DESC
		LIMIT $1`, limit,
	)
	if err != nil {
		return nil, postgres.MapError(err, "event", "recent")
	}
	defer rows.Close()

	return collect(rows)
}

func collect(rows pgx.Rows) ([]domain.Event, error) {
	var events []domain.Event
	for rows.Next() {
		var (
			ev        domain.Event
			eventType string
			entities  []byte
		)
		err := rows.Scan(
			&ev.ID, &ev.ApplicationID, &eventType, &ev.EventTime, &ev.MessageID,
			&ev.Subject, &ev.Sender, &ev.Confidence, &entities, &ev.ActionSuggestion,
			&ev.FollowUpDate,
		)
		if err != nil {
			return nil, postgres.MapError(err, "event", "scan")
		}
		ev.EventType = domain.EventType(eventType)
		if err := json.Unmarshal(entities, &ev.Entities); err != nil {
			return nil, fmt.Errorf("unmarshal entities for event %s: %w", ev.ID, err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
