package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sthar2820/Job-Application-Tracker/internal/adapter/mail"
	"github.com/sthar2820/Job-Application-Tracker/internal/adapter/postgres"
	"github.com/sthar2820/Job-Application-Tracker/internal/adapter/postgres/application"
	"github.com/sthar2820/Job-Application-Tracker/internal/adapter/postgres/event"
	"github.com/sthar2820/Job-Application-Tracker/internal/adapter/postgres/ledger"
	"github.com/sthar2820/Job-Application-Tracker/internal/adapter/postgres/state"
	"github.com/sthar2820/Job-Application-Tracker/internal/config"
	"github.com/sthar2820/Job-Application-Tracker/internal/domain"
	"github.com/sthar2820/Job-Application-Tracker/internal/pipeline"
	"github.com/sthar2820/Job-Application-Tracker/internal/pipeline/advise"
	"github.com/sthar2820/Job-Application-Tracker/internal/pipeline/classify"
	"github.com/sthar2820/Job-Application-Tracker/internal/pipeline/extract"
	"github.com/sthar2820/Job-Application-Tracker/internal/pipeline/filter"
	"github.com/sthar2820/Job-Application-Tracker/internal/pipeline/platform"
	"github.com/sthar2820/Job-Application-Tracker/internal/pipeline/resolve"
)

// MailFetcher is the mail retrieval dependency of the poll loop.
type MailFetcher interface {
	FetchSince(ctx context.Context, since time.Time) ([]domain.RawMessage, error)
}

// App wires configuration, storage, the mail client, and the inference
// pipeline into a runnable poller.
type App struct {
	cfg  *config.Config
	log  *slog.Logger
	pool *pgxpool.Pool

	mail  MailFetcher
	orch  *pipeline.Orchestrator
	state *state.Repo
	apps  *application.Repo
}

// New loads configuration and wires the full application.
func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log := NewLogger(cfg.Log)
	log.Info("starting application",
		slog.String("version", BuildVersion()),
		slog.String("log_level", cfg.Log.Level),
	)

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	apps := application.New(pool)
	platforms := platform.NewTable(cfg.Pipeline.ExtraPlatforms())

	orch := pipeline.New(pipeline.Deps{
		Filter:     filter.New(platforms),
		Classifier: classify.New(cfg.Pipeline.ConfidenceFloor),
		Extractor:  extract.New(platforms),
		Resolver:   resolve.New(apps, cfg.Pipeline.SimilarityThreshold),
		Advisor:    advise.New(),

		Tx:     postgres.NewTxManager(pool),
		Apps:   apps,
		Events: event.New(pool),
		Ledger: ledger.New(pool),

		Log: log,
	})

	return &App{
		cfg:   cfg,
		log:   log,
		pool:  pool,
		mail:  mail.New(cfg.Mail, log),
		orch:  orch,
		state: state.New(pool),
		apps:  apps,
	}, nil
}

// Close releases the database pool.
func (a *App) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}

// RunOnce executes a single poll: fetch mail since the last checkpoint, run
// the pipeline, and advance the checkpoint. The checkpoint only moves when no
// message errored, so transiently failed messages are refetched next poll and
// retried against the ledger.
func (a *App) RunOnce(ctx context.Context) (pipeline.Summary, error) {
	since, err := a.state.GetTime(ctx, state.KeyLastChecked)
	if err != nil {
		return pipeline.Summary{}, fmt.Errorf("read checkpoint: %w", err)
	}
	if since.IsZero() {
		since = time.Now().Add(-a.cfg.Mail.InitialLookback)
		a.log.Info("no checkpoint recorded, using initial lookback", slog.Time("since", since))
	}

	msgs, err := a.mail.FetchSince(ctx, since)
	if err != nil {
		return pipeline.Summary{}, fmt.Errorf("fetch mail: %w", err)
	}
	if len(msgs) == 0 {
		a.log.Debug("no new messages", slog.Time("since", since))
		return pipeline.Summary{}, nil
	}

	sum, err := a.orch.ProcessBatch(ctx, msgs)
	if err != nil {
		return sum, err
	}

	if sum.Errored == 0 {
		newest := msgs[len(msgs)-1].ReceivedAt
		if err := a.state.SetTime(ctx, state.KeyLastChecked, newest); err != nil {
			return sum, fmt.Errorf("advance checkpoint: %w", err)
		}
	} else {
		a.log.Warn("checkpoint held back for retry", slog.Int("errored", sum.Errored))
	}

	a.log.Info("poll completed",
		slog.Int("fetched", len(msgs)),
		slog.Int("processed", sum.Processed),
		slog.Int("skipped", sum.Skipped),
		slog.Int("errored", sum.Errored),
	)
	return sum, nil
}

// Run polls continuously until ctx is cancelled. A failed poll is logged and
// retried on the next tick; only cancellation stops the loop.
func (a *App) Run(ctx context.Context) error {
	if _, err := a.RunOnce(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		a.log.Error("poll failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(a.cfg.Poll.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.log.Info("shutting down")
			return nil
		case <-ticker.C:
			if _, err := a.RunOnce(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				a.log.Error("poll failed", slog.String("error", err.Error()))
			}
		}
	}
}

// StatusReport returns the current count of applications per status.
func (a *App) StatusReport(ctx context.Context) (map[domain.Status]int, error) {
	return a.apps.StatusCounts(ctx)
}
