package repository

import (
	"context"
	"time"

	"github.com/foxseedlab/kikitori/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const runColumns = `id, source, language_code, model, started_at, ended_at, status,
	chunks_sent, bytes_sent, results_received, final_results, error_message`

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) repository.Repository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) CreateRun(ctx context.Context, input repository.CreateRunInput) (*repository.Run, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO session_runs (id, source, language_code, model, started_at, status)
		 VALUES ($1, $2, $3, $4, $5, 'running')
		 RETURNING `+runColumns,
		input.ID, input.Source, input.LanguageCode, input.Model, input.StartedAt)
	return scanRun(row)
}

func (r *PostgresRepository) CompleteRun(ctx context.Context, input repository.CompleteRunInput) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE session_runs
		 SET status = $2, ended_at = $3, chunks_sent = $4, bytes_sent = $5,
		     results_received = $6, final_results = $7, error_message = $8
		 WHERE id = $1`,
		input.ID, string(input.Status), input.EndedAt, input.ChunksSent, input.BytesSent,
		input.ResultsReceived, input.FinalResults, input.ErrorMessage)
	return err
}

func (r *PostgresRepository) ListRecentRuns(ctx context.Context, limit int) ([]repository.Run, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+runColumns+` FROM session_runs ORDER BY started_at DESC LIMIT $1`,
		limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []repository.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *run)
	}
	return list, rows.Err()
}

func (r *PostgresRepository) Close() {
	r.pool.Close()
}

// Shutdown lets the injector close the pool.
func (r *PostgresRepository) Shutdown() {
	r.Close()
}

func scanRun(row pgx.Row) (*repository.Run, error) {
	var run repository.Run
	var endedAt *time.Time
	var status string
	err := row.Scan(&run.ID, &run.Source, &run.LanguageCode, &run.Model, &run.StartedAt, &endedAt, &status,
		&run.ChunksSent, &run.BytesSent, &run.ResultsReceived, &run.FinalResults, &run.ErrorMessage)
	if err != nil {
		return nil, err
	}
	run.EndedAt = endedAt
	run.Status = repository.RunStatus(status)
	return &run, nil
}
