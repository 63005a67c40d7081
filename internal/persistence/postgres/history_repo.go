package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sawpanic/dealscore/internal/persistence"
	"github.com/sawpanic/dealscore/internal/scoring"
)

type historyRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewHistoryRepo creates a new PostgreSQL score-history repository.
func NewHistoryRepo(db *sqlx.DB, timeout time.Duration) persistence.HistoryRepo {
	return &historyRepo{db: db, timeout: timeout}
}

// Append inserts one audit row. Failure here is logged by the caller, not
// retried or rolled back against the deal row it describes.
func (r *historyRepo) Append(ctx context.Context, event persistence.ScoreHistoryEvent) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var breakdownJSON []byte
	if event.Breakdown != nil {
		raw, err := json.Marshal(event.Breakdown)
		if err != nil {
			return fmt.Errorf("failed to marshal score breakdown: %w", err)
		}
		breakdownJSON = raw
	}

	query := `
		INSERT INTO score_history
			(deal_id, run_id, trigger_source, confidence_score, confidence_percent,
			 weighted_monthly, weighted_onetime, breakdown)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	return r.db.QueryRowxContext(ctx, query,
		event.DealID, event.RunID, event.TriggerSource,
		event.ConfidenceScore, event.ConfidencePercent,
		event.WeightedMonthly, event.WeightedOnetime, breakdownJSON).
		Scan(&event.ID, &event.CreatedAt)
}

func (r *historyRepo) ListByDeal(ctx context.Context, dealID int64) ([]persistence.ScoreHistoryEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT id, deal_id, run_id, trigger_source, confidence_score, confidence_percent,
		       weighted_monthly, weighted_onetime, breakdown, created_at
		FROM score_history
		WHERE deal_id = $1
		ORDER BY created_at ASC`

	var events []persistence.ScoreHistoryEvent
	if err := r.db.SelectContext(ctx, &events, query, dealID); err != nil {
		return nil, fmt.Errorf("failed to list score history for deal %d: %w", dealID, err)
	}

	// A NULL breakdown column (older rows) stays a nil Breakdown; the
	// audit computer still has the score columns to delta against.
	for i := range events {
		if len(events[i].BreakdownJSON) == 0 {
			continue
		}
		var breakdown scoring.ScoringResult
		if err := json.Unmarshal(events[i].BreakdownJSON, &breakdown); err != nil {
			return nil, fmt.Errorf("failed to unmarshal score breakdown for event %d: %w", events[i].ID, err)
		}
		events[i].Breakdown = &breakdown
	}

	return events, nil
}
