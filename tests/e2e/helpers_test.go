//go:build e2e

package e2e_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sthar2820/Job-Application-Tracker/internal/adapter/postgres"
	"github.com/sthar2820/Job-Application-Tracker/internal/adapter/postgres/application"
	"github.com/sthar2820/Job-Application-Tracker/internal/adapter/postgres/event"
	"github.com/sthar2820/Job-Application-Tracker/internal/adapter/postgres/ledger"
	"github.com/sthar2820/Job-Application-Tracker/internal/adapter/postgres/testhelper"
	"github.com/sthar2820/Job-Application-Tracker/internal/domain"
	"github.com/sthar2820/Job-Application-Tracker/internal/pipeline"
	"github.com/sthar2820/Job-Application-Tracker/internal/pipeline/advise"
	"github.com/sthar2820/Job-Application-Tracker/internal/pipeline/classify"
	"github.com/sthar2820/Job-Application-Tracker/internal/pipeline/extract"
	"github.com/sthar2820/Job-Application-Tracker/internal/pipeline/filter"
	"github.com/sthar2820/Job-Application-Tracker/internal/pipeline/platform"
	"github.com/sthar2820/Job-Application-Tracker/internal/pipeline/resolve"
)

// testPipeline wires the real pipeline against the shared test database.
// Tests isolate themselves through unique organization names and message ids.
type testPipeline struct {
	Pool   *pgxpool.Pool
	Orch   *pipeline.Orchestrator
	Apps   *application.Repo
	Events *event.Repo
	Ledger *ledger.Repo
}

func setupPipeline(t *testing.T) *testPipeline {
	t.Helper()

	pool := testhelper.SetupTestDB(t)
	apps := application.New(pool)
	platforms := platform.NewTable(nil)

	orch := pipeline.New(pipeline.Deps{
		Filter:     filter.New(platforms),
		Classifier: classify.New(0.5),
		Extractor:  extract.New(platforms),
		Resolver:   resolve.New(apps, 0.80),
		Advisor:    advise.New(),

		Tx:     postgres.NewTxManager(pool),
		Apps:   apps,
		Events: event.New(pool),
		Ledger: ledger.New(pool),

		Log: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	return &testPipeline{
		Pool:   pool,
		Orch:   orch,
		Apps:   apps,
		Events: event.New(pool),
		Ledger: ledger.New(pool),
	}
}

// uniqueOrg returns an organization name that no other test run has used.
func uniqueOrg() string {
	return "Vantrex " + strings.ToUpper(uuid.New().String()[:8])
}

func msgID() string {
	return "<" + uuid.New().String() + "@mail.test>"
}

func confirmationFor(org string, at time.Time) domain.RawMessage {
	return domain.RawMessage{
		MessageID:  msgID(),
		Sender:     "jobs@greenhouse.io",
		Subject:    fmt.Sprintf("Your application to %s — Software Engineer", org),
		BodyText:   fmt.Sprintf("Thank you for applying to %s! We have received your application.", org),
		ReceivedAt: at,
	}
}

func interviewFor(org string, at time.Time) domain.RawMessage {
	return domain.RawMessage{
		MessageID:  msgID(),
		Sender:     "jobs@greenhouse.io",
		Subject:    fmt.Sprintf("Update on your %s application — Interview scheduled", org),
		BodyText:   fmt.Sprintf("We would like to invite you to an interview for the Software Engineer position at %s.", org),
		ReceivedAt: at,
	}
}

func rejectionFor(org string, at time.Time) domain.RawMessage {
	return domain.RawMessage{
		MessageID:  msgID(),
		Sender:     "jobs@greenhouse.io",
		Subject:    fmt.Sprintf("Update on your %s application", org),
		BodyText:   "We regret to inform you that we will not be moving forward with your application.",
		ReceivedAt: at,
	}
}

// findApp returns the single application whose organization matches org.
func findApp(t *testing.T, tp *testPipeline, org string) domain.Application {
	t.Helper()

	apps, err := tp.Apps.List(context.Background(), application.Filter{Organization: org})
	if err != nil {
		t.Fatalf("list applications: %v", err)
	}
	if len(apps) != 1 {
		t.Fatalf("got %d applications for %q, want exactly 1", len(apps), org)
	}
	return apps[0]
}
