package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sawpanic/dealscore/internal/persistence"
)

type callScoresRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewCallScoresRepo creates a new PostgreSQL call-scores repository.
func NewCallScoresRepo(db *sqlx.DB, timeout time.Duration) persistence.CallScoresRepo {
	return &callScoresRepo{db: db, timeout: timeout}
}

func (r *callScoresRepo) GetByDeal(ctx context.Context, dealID int64) (*persistence.CallScoresRow, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT deal_id, budget_clarity, competition, engagement, plan_fit, recorded_at
		FROM call_scores
		WHERE deal_id = $1
		ORDER BY recorded_at DESC
		LIMIT 1`

	var row persistence.CallScoresRow
	if err := r.db.GetContext(ctx, &row, query, dealID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get call scores for deal %d: %w", dealID, err)
	}

	return &row, nil
}
