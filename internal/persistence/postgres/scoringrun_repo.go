package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sawpanic/dealscore/internal/persistence"
)

type scoringRunRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewScoringRunRepo creates a new PostgreSQL scoring-run repository.
func NewScoringRunRepo(db *sqlx.DB, timeout time.Duration) persistence.ScoringRunRepo {
	return &scoringRunRepo{db: db, timeout: timeout}
}

func (r *scoringRunRepo) Insert(ctx context.Context, run persistence.ScoringRun) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	errorsJSON, err := json.Marshal(run.Errors)
	if err != nil {
		return fmt.Errorf("failed to marshal scoring run errors: %w", err)
	}

	query := `
		INSERT INTO scoring_runs
			(run_id, kind, processed, succeeded, failed, skipped, duration_ms, errors_json, started_at, ended_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	if _, err := r.db.ExecContext(ctx, query,
		run.RunID, run.Kind, run.Processed, run.Succeeded, run.Failed, run.Skipped,
		run.DurationMS, errorsJSON, run.StartedAt, run.EndedAt,
	); err != nil {
		return fmt.Errorf("failed to insert scoring run %s: %w", run.RunID, err)
	}

	return nil
}
