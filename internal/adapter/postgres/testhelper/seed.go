package testhelper

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sthar2820/Job-Application-Tracker/internal/domain"
)

// uniqueSuffix returns a short unique string for generating non-conflicting test data.
func uniqueSuffix() string {
	return uuid.New().String()[:8]
}

// SeedApplication inserts an application with a unique organization and role
// and returns the filled domain value. Override fields via mutate when a test
// needs specific values.
func SeedApplication(t *testing.T, pool *pgxpool.Pool, mutate func(*domain.Application)) domain.Application {
	t.Helper()
	ctx := context.Background()

	suffix := uniqueSuffix()
	now := time.Now().UTC().Truncate(time.Microsecond)
	platform := "greenhouse"
	app := domain.Application{
		ID:            uuid.New(),
		Organization:  "Test Org " + suffix,
		RoleTitle:     "Test Role " + suffix,
		Platform:      &platform,
		FirstSeenDate: now,
		Status:        domain.StatusApplied,
		LastUpdated:   now,
	}
	if mutate != nil {
		mutate(&app)
	}

	org, role, plat := app.IdentityKey()
	_, err := pool.Exec(ctx, `
		INSERT INTO applications (
			id, organization, role_title, platform, source_channel, applied_date,
			first_seen_date, status, last_updated, portal_link, notes,
			norm_organization, norm_role_title, norm_platform
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		app.ID, app.Organization, app.RoleTitle, app.Platform, app.SourceChannel,
		app.AppliedDate, app.FirstSeenDate, app.Status.String(), app.LastUpdated,
		app.PortalLink, app.Notes, org, role, plat,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedApplication insert: %v", err)
	}

	return app
}

// SeedEvent inserts an event for the given application and returns it.
func SeedEvent(t *testing.T, pool *pgxpool.Pool, applicationID uuid.UUID) domain.Event {
	t.Helper()
	ctx := context.Background()

	suffix := uniqueSuffix()
	now := time.Now().UTC().Truncate(time.Microsecond)
	ev := domain.Event{
		ID:            uuid.New(),
		ApplicationID: applicationID,
		EventType:     domain.EventConfirmation,
		EventTime:     now,
		MessageID:     "msg-" + suffix,
		Subject:       "Test subject " + suffix,
		Sender:        "jobs@greenhouse.io",
		Confidence:    0.9,
	}

	_, err := pool.Exec(ctx, `
		INSERT INTO events (
			id, application_id, event_type, event_time, message_id, subject,
			sender_address, confidence, entities, action_suggestion, follow_up_date
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, '{}', '', NULL)`,
		ev.ID, ev.ApplicationID, ev.EventType.String(), ev.EventTime, ev.MessageID,
		ev.Subject, ev.Sender, ev.Confidence,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedEvent insert: %v", err)
	}

	return ev
}
