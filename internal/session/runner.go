package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/foxseedlab/kikitori/internal/audio"
	"github.com/foxseedlab/kikitori/internal/recognition"
	"github.com/foxseedlab/kikitori/internal/repository"
	"github.com/google/uuid"
)

const ledgerWriteTimeout = 5 * time.Second

// Runner creates sessions and records each one in the run ledger. Ledger failures are
// logged and never fail the session.
type Runner struct {
	transport recognition.Transport
	repo      repository.Repository
	logger    *slog.Logger
	newID     func() string
	now       func() time.Time
}

func NewRunner(transport recognition.Transport, repo repository.Repository, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		transport: transport,
		repo:      repo,
		logger:    logger,
		newID:     uuid.NewString,
		now:       time.Now,
	}
}

func (r *Runner) NewSession(pacer audio.Pacer) *Session {
	return New(r.newID(), r.transport, pacer, r.logger)
}

type RunInput struct {
	Session    *Session
	Source     audio.ChunkSource
	SourceName string
	Config     recognition.Config
	Receiver   ResultReceiver
}

func (r *Runner) Run(ctx context.Context, in RunInput) error {
	s := in.Session
	startedAt := r.now()
	ledgerCtx := context.WithoutCancel(ctx)

	createCtx, cancel := context.WithTimeout(ledgerCtx, ledgerWriteTimeout)
	_, err := r.repo.CreateRun(createCtx, repository.CreateRunInput{
		ID:           s.ID(),
		Source:       in.SourceName,
		LanguageCode: in.Config.LanguageCode,
		Model:        in.Config.Model,
		StartedAt:    startedAt,
	})
	cancel()
	recorded := err == nil
	if err != nil {
		r.logger.Error("failed to record run start", "session_id", s.ID(), "error", err)
	}

	r.logger.Info("session started", "session_id", s.ID(), "source", in.SourceName)
	runErr := s.Run(ctx, in.Source, in.Config, in.Receiver)

	if !recorded {
		return runErr
	}
	stats := s.Stats()
	completion := repository.CompleteRunInput{
		ID:              s.ID(),
		EndedAt:         r.now(),
		Status:          runStatus(s.State()),
		ChunksSent:      stats.ChunksSent,
		BytesSent:       stats.BytesSent,
		ResultsReceived: stats.ResultsReceived,
		FinalResults:    stats.FinalResults,
	}
	if runErr != nil {
		completion.ErrorMessage = runErr.Error()
	}
	completeCtx, cancel := context.WithTimeout(ledgerCtx, ledgerWriteTimeout)
	defer cancel()
	if err := r.repo.CompleteRun(completeCtx, completion); err != nil {
		r.logger.Error("failed to record run completion", "session_id", s.ID(), "error", err)
	}
	return runErr
}

func runStatus(state State) repository.RunStatus {
	switch state {
	case StateClosed:
		return repository.RunStatusClosed
	case StateCancelled:
		return repository.RunStatusCancelled
	case StateErrored:
		return repository.RunStatusErrored
	default:
		return repository.RunStatusRunning
	}
}
