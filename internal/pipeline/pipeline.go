// Package pipeline composes the inference stages and commits their results.
// Each message flows filter → classify → extract → resolve → advise → commit;
// a deduplication ledger makes redelivery a no-op and a per-message
// transaction keeps event, application, and ledger writes atomic.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sthar2820/Job-Application-Tracker/internal/domain"
	"github.com/sthar2820/Job-Application-Tracker/internal/pipeline/advise"
	"github.com/sthar2820/Job-Application-Tracker/internal/pipeline/classify"
	"github.com/sthar2820/Job-Application-Tracker/internal/pipeline/extract"
	"github.com/sthar2820/Job-Application-Tracker/internal/pipeline/filter"
	"github.com/sthar2820/Job-Application-Tracker/internal/pipeline/resolve"
)

// TxManager runs a function inside one database transaction.
type TxManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ApplicationStore is the write interface over applications. Reads used by
// the resolver live in resolve.Store.
type ApplicationStore interface {
	// Create inserts the application, or returns the existing one when a
	// concurrent or prior run already created the same identity. created
	// reports which happened.
	Create(ctx context.Context, app domain.Application) (created bool, out domain.Application, err error)
	// GetForUpdate returns the application with its row locked for the
	// remainder of the current transaction.
	GetForUpdate(ctx context.Context, id uuid.UUID) (domain.Application, error)
	// Update persists mutated application fields.
	Update(ctx context.Context, app domain.Application) error
}

// EventStore appends events. Events are never updated.
type EventStore interface {
	Create(ctx context.Context, ev domain.Event) error
}

// LedgerStore is the processed-message deduplication ledger.
type LedgerStore interface {
	Exists(ctx context.Context, messageID string) (bool, error)
	Record(ctx context.Context, pm domain.ProcessedMessage) error
}

// Summary is the per-batch outcome report.
type Summary struct {
	Processed int // committed, relevant or not
	Skipped   int // already in the ledger
	Errored   int // left unledgered for a later retry
}

// Orchestrator runs the full pipeline over batches of messages.
type Orchestrator struct {
	filter     *filter.Filter
	classifier *classify.Classifier
	extractor  *extract.Extractor
	resolver   *resolve.Resolver
	advisor    *advise.Advisor

	tx     TxManager
	apps   ApplicationStore
	events EventStore
	ledger LedgerStore

	log *slog.Logger
	now func() time.Time
}

// Deps carries the orchestrator's collaborators.
type Deps struct {
	Filter     *filter.Filter
	Classifier *classify.Classifier
	Extractor  *extract.Extractor
	Resolver   *resolve.Resolver
	Advisor    *advise.Advisor

	Tx     TxManager
	Apps   ApplicationStore
	Events EventStore
	Ledger LedgerStore

	Log *slog.Logger
	Now func() time.Time // defaults to time.Now
}

func New(d Deps) *Orchestrator {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}
	return &Orchestrator{
		filter:     d.Filter,
		classifier: d.Classifier,
		extractor:  d.Extractor,
		resolver:   d.Resolver,
		advisor:    d.Advisor,
		tx:         d.Tx,
		apps:       d.Apps,
		events:     d.Events,
		ledger:     d.Ledger,
		log:        d.Log,
		now:        d.Now,
	}
}

// ProcessBatch runs the pipeline over messages in receipt order. A transient
// per-message failure leaves that message unledgered and moves on; a fatal
// error aborts the batch. Ledgered messages from earlier runs are skipped
// without re-classification. Cancellation is observed between messages.
func (o *Orchestrator) ProcessBatch(ctx context.Context, msgs []domain.RawMessage) (Summary, error) {
	var sum Summary

	for _, msg := range msgs {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		seen, err := o.ledger.Exists(ctx, msg.MessageID)
		if err != nil {
			if domain.IsFatal(err) {
				return sum, err
			}
			sum.Errored++
			o.log.Warn("ledger lookup failed", "message_id", msg.MessageID, "error", err)
			continue
		}
		if seen {
			sum.Skipped++
			o.log.Debug("message already ledgered",
				"message_id", msg.MessageID, "state", domain.StateSkipped)
			continue
		}

		if st, err := o.processOne(ctx, msg); err != nil {
			if domain.IsFatal(err) {
				return sum, err
			}
			sum.Errored++
			o.log.Warn("message processing failed, will retry next run",
				"message_id", msg.MessageID, "state", st, "error", err)
			continue
		}
		sum.Processed++
	}

	return sum, nil
}

// processOne advances one message through the stage machine and returns the
// state it reached, so a failure reports where in the pipeline it happened.
func (o *Orchestrator) processOne(ctx context.Context, msg domain.RawMessage) (domain.MessageState, error) {
	fr := o.filter.Run(msg)
	if !fr.IsRelevant {
		o.log.Debug("message not job-related",
			"message_id", msg.MessageID, "reason", fr.Reason)
		if err := o.ledger.Record(ctx, o.ledgerEntry(msg, domain.LedgerNotRelevant)); err != nil {
			return domain.StateFiltered, err
		}
		return domain.StateSkippedIrrelevant, nil
	}

	cls := o.classifier.Run(msg)
	ents := o.extractor.Run(msg)

	res, err := o.resolver.Run(ctx, msg, ents, cls)
	if err != nil {
		return domain.StateExtracted, err
	}

	sugg := o.advisor.Run(cls, ents, res.Application, msg.ReceivedAt)

	err = o.tx.RunInTx(ctx, func(ctx context.Context) error {
		app := res.Application
		if res.IsNew {
			created, existing, err := o.apps.Create(ctx, app)
			if err != nil {
				return fmt.Errorf("create application: %w", err)
			}
			if !created {
				// Another run won the race for this identity.
				app = existing
			}
		}

		locked, err := o.apps.GetForUpdate(ctx, app.ID)
		if err != nil {
			return fmt.Errorf("lock application %s: %w", app.ID, err)
		}

		if merged, changed := mergeEvidence(locked, msg, cls, ents); changed {
			if err := o.apps.Update(ctx, merged); err != nil {
				return fmt.Errorf("update application %s: %w", app.ID, err)
			}
		}

		ev := domain.Event{
			ID:               uuid.New(),
			ApplicationID:    app.ID,
			EventType:        cls.EventType,
			EventTime:        msg.ReceivedAt,
			MessageID:        msg.MessageID,
			Subject:          msg.Subject,
			Sender:           msg.SenderAddress(),
			Confidence:       cls.Confidence,
			Entities:         ents,
			ActionSuggestion: sugg.Text,
			FollowUpDate:     sugg.FollowUpDate,
		}
		if err := o.events.Create(ctx, ev); err != nil {
			return fmt.Errorf("append event: %w", err)
		}

		return o.ledger.Record(ctx, o.ledgerEntry(msg, cls.EventType.String()))
	})
	if err != nil {
		return domain.StateAdvised, err
	}

	o.log.Info("message committed",
		"message_id", msg.MessageID,
		"event_type", cls.EventType,
		"match_method", res.MatchMethod,
		"organization", res.Application.Organization,
	)
	return domain.StateCommitted, nil
}

func (o *Orchestrator) ledgerEntry(msg domain.RawMessage, classification string) domain.ProcessedMessage {
	return domain.ProcessedMessage{
		MessageID:      msg.MessageID,
		ThreadID:       msg.ThreadID,
		ReceivedAt:     msg.ReceivedAt,
		SenderDomain:   msg.SenderDomain(),
		Subject:        msg.Subject,
		Classification: classification,
		ProcessedAt:    o.now(),
	}
}

// mergeEvidence folds one resolved event into the application's durable
// state. Status only moves forward in lifecycle rank; portal link and applied
// date fill in once and are never overwritten.
func mergeEvidence(app domain.Application, msg domain.RawMessage, cls domain.EventClassification, ents domain.ExtractedEntities) (domain.Application, bool) {
	changed := false

	if implied := cls.EventType.ImpliedStatus(); implied.Rank() > app.Status.Rank() {
		app.Status = implied
		changed = true
	}
	if msg.ReceivedAt.After(app.LastUpdated) {
		app.LastUpdated = msg.ReceivedAt
		changed = true
	}
	if app.PortalLink == nil && ents.PortalLink != "" {
		link := ents.PortalLink
		app.PortalLink = &link
		changed = true
	}
	if app.AppliedDate == nil && cls.EventType == domain.EventConfirmation {
		applied := msg.ReceivedAt.Truncate(24 * time.Hour)
		app.AppliedDate = &applied
		changed = true
	}

	return app, changed
}
