package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sthar2820/Job-Application-Tracker/internal/domain"
	"github.com/sthar2820/Job-Application-Tracker/internal/pipeline/advise"
	"github.com/sthar2820/Job-Application-Tracker/internal/pipeline/classify"
	"github.com/sthar2820/Job-Application-Tracker/internal/pipeline/extract"
	"github.com/sthar2820/Job-Application-Tracker/internal/pipeline/filter"
	"github.com/sthar2820/Job-Application-Tracker/internal/pipeline/platform"
	"github.com/sthar2820/Job-Application-Tracker/internal/pipeline/resolve"
)

// memStore is an in-memory stand-in for the persistence layer. memTx gives it
// transactional behavior by snapshotting state and restoring it on error.
type memStore struct {
	apps   map[uuid.UUID]domain.Application
	events []domain.Event
	ledger map[string]domain.ProcessedMessage

	failEventCreate error
	failLedgerExist error
}

func newMemStore() *memStore {
	return &memStore{
		apps:   make(map[uuid.UUID]domain.Application),
		ledger: make(map[string]domain.ProcessedMessage),
	}
}

func (s *memStore) FindByPortalLink(_ context.Context, link string) (domain.Application, error) {
	for _, app := range s.apps {
		if app.PortalLink != nil && *app.PortalLink == link {
			return app, nil
		}
	}
	return domain.Application{}, domain.ErrNotFound
}

func (s *memStore) ListCandidates(context.Context) ([]domain.Application, error) {
	out := make([]domain.Application, 0, len(s.apps))
	for _, app := range s.apps {
		out = append(out, app)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastUpdated.After(out[j].LastUpdated) })
	return out, nil
}

func (s *memStore) Create(_ context.Context, app domain.Application) (bool, domain.Application, error) {
	org, role, plat := app.IdentityKey()
	for _, existing := range s.apps {
		eo, er, ep := existing.IdentityKey()
		if eo == org && er == role && ep == plat {
			return false, existing, nil
		}
	}
	s.apps[app.ID] = app
	return true, app, nil
}

func (s *memStore) GetForUpdate(_ context.Context, id uuid.UUID) (domain.Application, error) {
	app, ok := s.apps[id]
	if !ok {
		return domain.Application{}, domain.ErrNotFound
	}
	return app, nil
}

func (s *memStore) Update(_ context.Context, app domain.Application) error {
	if _, ok := s.apps[app.ID]; !ok {
		return domain.ErrNotFound
	}
	s.apps[app.ID] = app
	return nil
}

func (s *memStore) CreateEvent(_ context.Context, ev domain.Event) error {
	if s.failEventCreate != nil {
		return s.failEventCreate
	}
	for _, existing := range s.events {
		if existing.MessageID == ev.MessageID {
			return domain.ErrAlreadyExists
		}
	}
	s.events = append(s.events, ev)
	return nil
}

func (s *memStore) Exists(_ context.Context, messageID string) (bool, error) {
	if s.failLedgerExist != nil {
		return false, s.failLedgerExist
	}
	_, ok := s.ledger[messageID]
	return ok, nil
}

func (s *memStore) Record(_ context.Context, pm domain.ProcessedMessage) error {
	s.ledger[pm.MessageID] = pm
	return nil
}

// eventStoreAdapter narrows memStore to the EventStore interface without a
// method-name collision on Create.
type eventStoreAdapter struct{ s *memStore }

func (a eventStoreAdapter) Create(ctx context.Context, ev domain.Event) error {
	return a.s.CreateEvent(ctx, ev)
}

// memTx snapshots the store before fn and restores the snapshot when fn
// fails, mimicking rollback.
type memTx struct{ s *memStore }

func (t memTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	apps := make(map[uuid.UUID]domain.Application, len(t.s.apps))
	for k, v := range t.s.apps {
		apps[k] = v
	}
	events := append([]domain.Event(nil), t.s.events...)
	ledger := make(map[string]domain.ProcessedMessage, len(t.s.ledger))
	for k, v := range t.s.ledger {
		ledger[k] = v
	}

	if err := fn(ctx); err != nil {
		t.s.apps, t.s.events, t.s.ledger = apps, events, ledger
		return err
	}
	return nil
}

func newOrchestrator(s *memStore) *Orchestrator {
	tbl := platform.NewTable(nil)
	return New(Deps{
		Filter:     filter.New(tbl),
		Classifier: classify.New(0.5),
		Extractor:  extract.New(tbl),
		Resolver:   resolve.New(s, 0.80),
		Advisor:    advise.New(),
		Tx:         memTx{s},
		Apps:       s,
		Events:     eventStoreAdapter{s},
		Ledger:     s,
		Log:        slog.New(slog.NewTextHandler(noopWriter{}, nil)),
		Now:        func() time.Time { return time.Date(2026, time.August, 20, 12, 0, 0, 0, time.UTC) },
	})
}

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }

func confirmationMsg() domain.RawMessage {
	return domain.RawMessage{
		MessageID:  "msg-1",
		ThreadID:   "thread-1",
		Sender:     "jobs@greenhouse.io",
		Subject:    "Your application to Acme Corp — Software Engineer",
		BodyText:   "Thank you for applying to Acme Corp! We have received your application.",
		ReceivedAt: time.Date(2026, time.August, 18, 9, 0, 0, 0, time.UTC),
	}
}

func interviewFollowUpMsg() domain.RawMessage {
	return domain.RawMessage{
		MessageID:  "msg-2",
		ThreadID:   "thread-1",
		Sender:     "jobs@greenhouse.io",
		Subject:    "Update on your Acme Corp application — Interview scheduled",
		BodyText:   "We would like to invite you to an interview for the Software Engineer position at Acme Corp.",
		ReceivedAt: time.Date(2026, time.August, 19, 10, 0, 0, 0, time.UTC),
	}
}

func irrelevantMsg() domain.RawMessage {
	return domain.RawMessage{
		MessageID:  "msg-news",
		Sender:     "digest@example.com",
		Subject:    "Weekly newsletter",
		BodyText:   "Here is what happened this week.",
		ReceivedAt: time.Date(2026, time.August, 18, 8, 0, 0, 0, time.UTC),
	}
}

func TestProcessBatch_ConfirmationCreatesApplication(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	sum, err := newOrchestrator(store).ProcessBatch(context.Background(), []domain.RawMessage{confirmationMsg()})
	if err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}
	if sum != (Summary{Processed: 1}) {
		t.Fatalf("Summary = %+v, want 1 processed", sum)
	}

	if len(store.apps) != 1 {
		t.Fatalf("got %d applications, want 1", len(store.apps))
	}
	var app domain.Application
	for _, a := range store.apps {
		app = a
	}
	if app.Organization != "Acme Corp" || app.RoleTitle != "Software Engineer" {
		t.Errorf("application = (%q, %q)", app.Organization, app.RoleTitle)
	}
	if app.Status != domain.StatusApplied {
		t.Errorf("Status = %q, want %q", app.Status, domain.StatusApplied)
	}
	if app.Platform == nil || *app.Platform != "greenhouse" {
		t.Errorf("Platform = %v, want greenhouse", app.Platform)
	}

	if len(store.events) != 1 {
		t.Fatalf("got %d events, want 1", len(store.events))
	}
	ev := store.events[0]
	if ev.EventType != domain.EventConfirmation {
		t.Errorf("EventType = %q, want %q", ev.EventType, domain.EventConfirmation)
	}
	if ev.ApplicationID != app.ID {
		t.Error("event does not reference the created application")
	}

	pm, ok := store.ledger["msg-1"]
	if !ok {
		t.Fatal("ledger entry missing")
	}
	if pm.Classification != "confirmation" {
		t.Errorf("ledger classification = %q", pm.Classification)
	}
}

func TestProcessBatch_FollowUpResolvesAndAdvancesStatus(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	orc := newOrchestrator(store)

	sum, err := orc.ProcessBatch(context.Background(),
		[]domain.RawMessage{confirmationMsg(), interviewFollowUpMsg()})
	if err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}
	if sum != (Summary{Processed: 2}) {
		t.Fatalf("Summary = %+v, want 2 processed", sum)
	}

	if len(store.apps) != 1 {
		t.Fatalf("got %d applications, want the follow-up to resolve to the first", len(store.apps))
	}
	var app domain.Application
	for _, a := range store.apps {
		app = a
	}
	if app.Status != domain.StatusInterview {
		t.Errorf("Status = %q, want %q after the interview event", app.Status, domain.StatusInterview)
	}

	if len(store.events) != 2 {
		t.Fatalf("got %d events, want 2", len(store.events))
	}
	if store.events[1].EventType != domain.EventInterview {
		t.Errorf("second EventType = %q, want %q", store.events[1].EventType, domain.EventInterview)
	}
	if store.events[0].ApplicationID != store.events[1].ApplicationID {
		t.Error("events reference different applications")
	}
}

func TestProcessBatch_RedeliveryIsIdempotent(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	orc := newOrchestrator(store)
	batch := []domain.RawMessage{confirmationMsg(), interviewFollowUpMsg()}

	if _, err := orc.ProcessBatch(context.Background(), batch); err != nil {
		t.Fatalf("first run error = %v", err)
	}
	appsBefore := len(store.apps)
	eventsBefore := len(store.events)

	sum, err := orc.ProcessBatch(context.Background(), batch)
	if err != nil {
		t.Fatalf("second run error = %v", err)
	}
	if sum != (Summary{Skipped: 2}) {
		t.Fatalf("second run Summary = %+v, want all skipped", sum)
	}
	if len(store.apps) != appsBefore || len(store.events) != eventsBefore {
		t.Error("redelivery changed persisted state")
	}
}

func TestProcessBatch_IrrelevantLedgeredWithoutEvent(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	sum, err := newOrchestrator(store).ProcessBatch(context.Background(), []domain.RawMessage{irrelevantMsg()})
	if err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}
	if sum != (Summary{Processed: 1}) {
		t.Fatalf("Summary = %+v", sum)
	}

	if len(store.apps) != 0 || len(store.events) != 0 {
		t.Error("irrelevant message created state")
	}
	pm, ok := store.ledger["msg-news"]
	if !ok {
		t.Fatal("irrelevant message not ledgered")
	}
	if pm.Classification != domain.LedgerNotRelevant {
		t.Errorf("Classification = %q, want %q", pm.Classification, domain.LedgerNotRelevant)
	}
}

func TestProcessBatch_TransientFailureLeavesUnledgeredForRetry(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	orc := newOrchestrator(store)

	store.failEventCreate = errors.New("write contention")
	sum, err := orc.ProcessBatch(context.Background(), []domain.RawMessage{confirmationMsg()})
	if err != nil {
		t.Fatalf("ProcessBatch() error = %v, want transient failures contained", err)
	}
	if sum != (Summary{Errored: 1}) {
		t.Fatalf("Summary = %+v, want 1 errored", sum)
	}
	if _, ok := store.ledger["msg-1"]; ok {
		t.Fatal("failed message was ledgered; it could never be retried")
	}
	if len(store.apps) != 0 {
		t.Fatal("rollback did not undo the application create")
	}

	// The retry run succeeds once the store recovers.
	store.failEventCreate = nil
	sum, err = orc.ProcessBatch(context.Background(), []domain.RawMessage{confirmationMsg()})
	if err != nil {
		t.Fatalf("retry error = %v", err)
	}
	if sum != (Summary{Processed: 1}) {
		t.Fatalf("retry Summary = %+v", sum)
	}
	if len(store.events) != 1 {
		t.Errorf("got %d events after retry, want 1", len(store.events))
	}
}

func TestProcessBatch_ContinuesAfterTransientFailure(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	orc := newOrchestrator(store)

	// Fail only the first message's event write.
	calls := 0
	store.failEventCreate = nil
	failFirst := &failingEventStore{inner: eventStoreAdapter{store}, calls: &calls}
	orc.events = failFirst

	sum, err := orc.ProcessBatch(context.Background(),
		[]domain.RawMessage{confirmationMsg(), interviewFollowUpMsg()})
	if err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}
	if sum.Errored != 1 || sum.Processed != 1 {
		t.Fatalf("Summary = %+v, want the batch to continue past the failure", sum)
	}
}

type failingEventStore struct {
	inner EventStore
	calls *int
}

func (f *failingEventStore) Create(ctx context.Context, ev domain.Event) error {
	*f.calls++
	if *f.calls == 1 {
		return fmt.Errorf("store timeout")
	}
	return f.inner.Create(ctx, ev)
}

func TestProcessBatch_FatalErrorAbortsRun(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	store.failLedgerExist = fmt.Errorf("token rejected: %w", domain.ErrAuth)

	sum, err := newOrchestrator(store).ProcessBatch(context.Background(),
		[]domain.RawMessage{confirmationMsg(), interviewFollowUpMsg()})
	if !errors.Is(err, domain.ErrAuth) {
		t.Fatalf("error = %v, want ErrAuth surfaced", err)
	}
	if sum.Processed != 0 {
		t.Errorf("Summary = %+v, want nothing processed after a fatal error", sum)
	}
}

func TestProcessBatch_CancellationStopsBetweenMessages(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newOrchestrator(store).ProcessBatch(ctx, []domain.RawMessage{confirmationMsg()})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if len(store.ledger) != 0 {
		t.Error("cancelled run still committed messages")
	}
}

func TestProcessBatch_StatusNeverRegresses(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	orc := newOrchestrator(store)

	// Interview first, then a late-arriving confirmation for the same role.
	lateConfirmation := confirmationMsg()
	lateConfirmation.MessageID = "msg-3"
	lateConfirmation.ReceivedAt = time.Date(2026, time.August, 21, 9, 0, 0, 0, time.UTC)

	if _, err := orc.ProcessBatch(context.Background(),
		[]domain.RawMessage{confirmationMsg(), interviewFollowUpMsg(), lateConfirmation}); err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}

	var app domain.Application
	for _, a := range store.apps {
		app = a
	}
	if app.Status != domain.StatusInterview {
		t.Errorf("Status = %q, want %q: a confirmation must not regress it", app.Status, domain.StatusInterview)
	}
	if !app.LastUpdated.Equal(lateConfirmation.ReceivedAt) {
		t.Errorf("LastUpdated = %v, want the latest message time", app.LastUpdated)
	}
}

func TestMergeEvidence_FillsPortalLinkOnce(t *testing.T) {
	t.Parallel()

	existing := "https://boards.greenhouse.io/acme/jobs/1"
	app := domain.Application{Status: domain.StatusApplied, PortalLink: &existing}

	merged, _ := mergeEvidence(app, domain.RawMessage{}, domain.EventClassification{EventType: domain.EventUpdate},
		domain.ExtractedEntities{PortalLink: "https://boards.greenhouse.io/acme/jobs/2"})

	if *merged.PortalLink != existing {
		t.Errorf("PortalLink = %q, want the original kept", *merged.PortalLink)
	}
}
