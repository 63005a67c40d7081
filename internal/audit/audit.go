// Package audit computes ordered, per-field score deltas across a deal's
// history events for UI explanation.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/sawpanic/dealscore/internal/persistence"
	"github.com/sawpanic/dealscore/internal/scoring"
)

// FieldChange is one field whose value changed between two consecutive
// history events.
type FieldChange struct {
	Field string  `json:"field"`
	From  float64 `json:"from"`
	To    float64 `json:"to"`
	Delta float64 `json:"delta"`
}

// Event is one history entry enriched with its deltas from the previous
// event. The first event in a sequence has nil deltas.
type Event struct {
	TriggerSource    string        `json:"trigger_source"`
	ScoredAt         time.Time     `json:"scored_at"`
	ConfidenceScore  int           `json:"confidence_score"`
	WeightedMonthly  float64       `json:"weighted_monthly"`
	ScoreDelta       *int          `json:"score_delta,omitempty"`
	WeightedMRRDelta *float64      `json:"weighted_mrr_delta,omitempty"`
	Changes          []FieldChange `json:"changes"`
}

// Computer reads a deal's history and emits ordered events with deltas.
type Computer struct {
	repos *persistence.Repository
}

// New creates a Computer over the given repository collection.
func New(repos *persistence.Repository) *Computer {
	return &Computer{repos: repos}
}

// trackedFields lists the breakdown fields eligible for change entries,
// in the order they're checked.
var trackedFields = []string{
	"base_score",
	"penalty_email_not_opened",
	"penalty_proposal_not_viewed",
	"penalty_silence",
	"multi_invite_bonus",
	"total_bonus",
}

// Get returns the chronological audit trail for a deal.
func (c *Computer) Get(ctx context.Context, dealID int64) ([]Event, error) {
	history, err := c.repos.History.ListByDeal(ctx, dealID)
	if err != nil {
		return nil, fmt.Errorf("failed to load score history for deal %d: %w", dealID, err)
	}

	events := make([]Event, len(history))
	for i, h := range history {
		events[i] = Event{
			TriggerSource:   h.TriggerSource,
			ScoredAt:        h.CreatedAt,
			ConfidenceScore: h.ConfidenceScore,
			WeightedMonthly: h.WeightedMonthly,
			Changes:         nil,
		}

		if i == 0 {
			continue
		}

		prev := history[i-1]
		scoreDelta := h.ConfidenceScore - prev.ConfidenceScore
		mrrDelta := h.WeightedMonthly - prev.WeightedMonthly
		events[i].ScoreDelta = &scoreDelta
		events[i].WeightedMRRDelta = &mrrDelta

		// Rows from older schemas may carry no breakdown document. The
		// top-level deltas above still apply; per-field changes don't.
		if prev.Breakdown != nil && h.Breakdown != nil {
			events[i].Changes = fieldChanges(*prev.Breakdown, *h.Breakdown)
		}
	}

	return events, nil
}

// fieldChanges compares the tracked breakdown fields between two
// consecutive results and reports only those that actually changed.
func fieldChanges(prev, curr scoring.ScoringResult) []FieldChange {
	prevValues := map[string]float64{
		"base_score":                  prev.BaseScore,
		"penalty_email_not_opened":    prev.PenaltyEmailNotOpened,
		"penalty_proposal_not_viewed": prev.PenaltyProposalNotViewed,
		"penalty_silence":             prev.PenaltySilence,
		"multi_invite_bonus":          prev.PenaltyBreakdown.MultiInviteBonus,
		"total_bonus":                 prev.TotalBonus,
	}
	currValues := map[string]float64{
		"base_score":                  curr.BaseScore,
		"penalty_email_not_opened":    curr.PenaltyEmailNotOpened,
		"penalty_proposal_not_viewed": curr.PenaltyProposalNotViewed,
		"penalty_silence":             curr.PenaltySilence,
		"multi_invite_bonus":          curr.PenaltyBreakdown.MultiInviteBonus,
		"total_bonus":                 curr.TotalBonus,
	}

	var changes []FieldChange
	for _, field := range trackedFields {
		from, to := prevValues[field], currValues[field]
		if from != to {
			changes = append(changes, FieldChange{Field: field, From: from, To: to, Delta: to - from})
		}
	}

	return changes
}
