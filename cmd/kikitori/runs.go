package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/foxseedlab/kikitori/internal/config"
	"github.com/foxseedlab/kikitori/internal/repository"
	"github.com/samber/do/v2"
)

const listRunsTimeout = 10 * time.Second

func listRuns(ctx context.Context, cfg *config.Config, injector do.Injector, w io.Writer) error {
	if cfg.DatabaseURL == "" {
		slog.Warn("DATABASE_URL is not set; no sessions are recorded")
	}
	repo, err := do.Invoke[repository.Repository](injector)
	if err != nil {
		slog.Error("failed to resolve run ledger", "error", err)
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, listRunsTimeout)
	defer cancel()
	runs, err := repo.ListRecentRuns(ctx, cfg.CLI.ListRunsLimit)
	if err != nil {
		slog.Error("failed to list recorded sessions", "error", err)
		return err
	}
	return printRuns(w, runs)
}

// printRuns writes one line per run, newest first as returned by the ledger.
func printRuns(w io.Writer, runs []repository.Run) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No recorded sessions.")
		return err
	}
	for _, r := range runs {
		duration := "-"
		if r.EndedAt != nil {
			duration = r.EndedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
		}
		line := fmt.Sprintf("%s  %s  %-9s  %s  %s  language=%s chunks=%d results=%d finals=%d",
			r.StartedAt.UTC().Format(time.RFC3339), r.ID, r.Status, duration, r.Source,
			r.LanguageCode, r.ChunksSent, r.ResultsReceived, r.FinalResults)
		if r.ErrorMessage != "" {
			line += "  error=" + r.ErrorMessage
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
