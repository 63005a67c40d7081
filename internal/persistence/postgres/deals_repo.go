package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sawpanic/dealscore/internal/persistence"
	"github.com/sawpanic/dealscore/internal/scoring"
)

// dealsRepo implements persistence.DealsRepo for PostgreSQL.
type dealsRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewDealsRepo creates a new PostgreSQL deals repository.
func NewDealsRepo(db *sqlx.DB, timeout time.Duration) persistence.DealsRepo {
	return &dealsRepo{db: db, timeout: timeout}
}

func (r *dealsRepo) Get(ctx context.Context, id int64) (*persistence.Deal, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT id, status, rep_name, sent_at, predicted_monthly, predicted_onetime,
		       snoozed_until, revived_at, archived_at,
		       confidence_score, confidence_percent, weighted_monthly, weighted_onetime,
		       last_scored_at, created_at, updated_at
		FROM deals
		WHERE id = $1`

	var deal persistence.Deal
	if err := r.db.GetContext(ctx, &deal, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get deal %d: %w", id, err)
	}

	return &deal, nil
}

// UpdateScore writes back the four materialized score fields computed by
// the engine and stamps last_scored_at. Base score, totals and penalties
// are not stored on the deal row. This must run before any history append
// (see writer).
func (r *dealsRepo) UpdateScore(ctx context.Context, id int64, result scoring.ScoringResult, now time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		UPDATE deals SET
			confidence_score = $2,
			confidence_percent = $3,
			weighted_monthly = $4,
			weighted_onetime = $5,
			last_scored_at = $6,
			updated_at = $6
		WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id,
		result.ConfidenceScore, result.ConfidencePercent,
		result.WeightedMonthly, result.WeightedOnetime, now)
	if err != nil {
		return fmt.Errorf("failed to update deal score %d: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected for deal %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("deal %d: %w", id, scoring.ErrNotFound)
	}

	return nil
}

// ListActiveSent returns every deal with status "sent" for pipeline
// aggregation (Closing Soon / In Pipeline / At Risk / On Hold buckets).
func (r *dealsRepo) ListActiveSent(ctx context.Context) ([]persistence.Deal, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT id, status, rep_name, sent_at, predicted_monthly, predicted_onetime,
		       snoozed_until, revived_at, archived_at,
		       confidence_score, confidence_percent, weighted_monthly, weighted_onetime,
		       last_scored_at, created_at, updated_at
		FROM deals
		WHERE status = 'sent' AND archived_at IS NULL
		ORDER BY sent_at ASC`

	var deals []persistence.Deal
	if err := r.db.SelectContext(ctx, &deals, query); err != nil {
		return nil, fmt.Errorf("failed to list active sent deals: %w", err)
	}

	return deals, nil
}

// ListStale returns sent and declined deals whose last score is older than olderThan,
// ordered so never-scored deals (NULL last_scored_at) are rescored first.
func (r *dealsRepo) ListStale(ctx context.Context, olderThan time.Duration, now time.Time, limit int) ([]persistence.Deal, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT id, status, rep_name, sent_at, predicted_monthly, predicted_onetime,
		       snoozed_until, revived_at, archived_at,
		       confidence_score, confidence_percent, weighted_monthly, weighted_onetime,
		       last_scored_at, created_at, updated_at
		FROM deals
		WHERE status IN ('sent', 'declined') AND archived_at IS NULL
		  AND (last_scored_at IS NULL OR last_scored_at < $1)
		ORDER BY last_scored_at ASC NULLS FIRST
		LIMIT $2`

	cutoff := now.Add(-olderThan)

	var deals []persistence.Deal
	if err := r.db.SelectContext(ctx, &deals, query, cutoff, limit); err != nil {
		return nil, fmt.Errorf("failed to list stale deals: %w", err)
	}

	return deals, nil
}
