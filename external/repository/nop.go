package repository

import (
	"context"

	"github.com/foxseedlab/kikitori/internal/repository"
)

// NopRepository is used when no database is configured.
type NopRepository struct{}

func NewNopRepository() repository.Repository {
	return NopRepository{}
}

func (NopRepository) CreateRun(_ context.Context, input repository.CreateRunInput) (*repository.Run, error) {
	return &repository.Run{
		ID:           input.ID,
		Source:       input.Source,
		LanguageCode: input.LanguageCode,
		Model:        input.Model,
		StartedAt:    input.StartedAt,
		Status:       repository.RunStatusRunning,
	}, nil
}

func (NopRepository) CompleteRun(_ context.Context, _ repository.CompleteRunInput) error {
	return nil
}

func (NopRepository) ListRecentRuns(_ context.Context, _ int) ([]repository.Run, error) {
	return nil, nil
}

func (NopRepository) Close() {}
