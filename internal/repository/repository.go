package repository

import (
	"context"
	"time"
)

type CreateRunInput struct {
	ID           string
	Source       string
	LanguageCode string
	Model        string
	StartedAt    time.Time
}

type CompleteRunInput struct {
	ID              string
	EndedAt         time.Time
	Status          RunStatus
	ChunksSent      int64
	BytesSent       int64
	ResultsReceived int64
	FinalResults    int64
	ErrorMessage    string
}

type Repository interface {
	CreateRun(ctx context.Context, input CreateRunInput) (*Run, error)
	CompleteRun(ctx context.Context, input CompleteRunInput) error
	ListRecentRuns(ctx context.Context, limit int) ([]Run, error)
	Close()
}
