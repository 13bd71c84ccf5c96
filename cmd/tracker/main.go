// Command tracker polls an IMAP mailbox for job-application notifications and
// maintains the application timeline in PostgreSQL.
//
// By default it runs continuously at the configured poll interval. With
// --once it performs a single poll and exits; with --summary it prints the
// per-status application counts and exits without polling.
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/sthar2820/Job-Application-Tracker/internal/app"
	"github.com/sthar2820/Job-Application-Tracker/internal/domain"
)

func main() {
	once := flag.Bool("once", false, "run a single poll and exit")
	summary := flag.Bool("summary", false, "print application counts per status and exit")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(ctx)
	if err != nil {
		log.Fatalf("init: %v", err)
	}
	defer a.Close()

	switch {
	case *summary:
		if err := printSummary(ctx, a); err != nil {
			slog.Error("summary failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	case *once:
		if _, err := a.RunOnce(ctx); err != nil {
			slog.Error("poll failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	default:
		if err := a.Run(ctx); err != nil {
			slog.Error("run failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}
}

func printSummary(ctx context.Context, a *app.App) error {
	counts, err := a.StatusReport(ctx)
	if err != nil {
		return err
	}

	statuses := make([]domain.Status, 0, len(counts))
	for s := range counts {
		statuses = append(statuses, s)
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Rank() < statuses[j].Rank() })

	total := 0
	for _, s := range statuses {
		fmt.Printf("%-12s %d\n", s, counts[s])
		total += counts[s]
	}
	fmt.Printf("%-12s %d\n", "total", total)
	return nil
}
