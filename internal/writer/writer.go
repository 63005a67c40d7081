// Package writer persists a computed score to the deal row and appends
// the audit-trail history event.
package writer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/dealscore/internal/persistence"
	"github.com/sawpanic/dealscore/internal/scoring"
)

// Writer persists a ScoringResult: the deal UPDATE always runs; the
// history INSERT is best-effort and never rethrown.
type Writer struct {
	repos *persistence.Repository
}

// New creates a Writer over the given repository collection.
func New(repos *persistence.Repository) *Writer {
	return &Writer{repos: repos}
}

// Write updates the deal row and appends a history event. The UPDATE
// always precedes the INSERT. A failed history append is logged but
// does not fail the call — the deal's materialized score is still valid.
func (w *Writer) Write(ctx context.Context, dealID int64, result scoring.ScoringResult, runID uuid.UUID, triggerSource string, now time.Time) error {
	if err := w.repos.Deals.UpdateScore(ctx, dealID, result, now); err != nil {
		return fmt.Errorf("failed to update deal score for %d: %w", dealID, err)
	}

	event := persistence.ScoreHistoryEvent{
		DealID:            dealID,
		RunID:             runID,
		TriggerSource:     triggerSource,
		ConfidenceScore:   result.ConfidenceScore,
		ConfidencePercent: result.ConfidencePercent,
		WeightedMonthly:   result.WeightedMonthly,
		WeightedOnetime:   result.WeightedOnetime,
		Breakdown:         &result,
	}

	if err := w.repos.History.Append(ctx, event); err != nil {
		log.Error().
			Int64("deal_id", dealID).
			Str("trigger_source", triggerSource).
			Err(err).
			Msg("failed to append score history, deal score already committed")
	}

	return nil
}
