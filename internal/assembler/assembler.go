// Package assembler shapes a scoring.ScoringInput from the five persisted
// sources a deal's score depends on: the deal row, call scores, invites,
// communications, and the scoring config.
package assembler

import (
	"context"
	"fmt"
	"time"

	"github.com/sawpanic/dealscore/internal/persistence"
	"github.com/sawpanic/dealscore/internal/scoring"
)

// Assembler reads deal, call-score, invite, communication, and config
// rows and shapes a scoring.ScoringInput.
type Assembler struct {
	repos *persistence.Repository
}

// New creates an Assembler over the given repository collection.
func New(repos *persistence.Repository) *Assembler {
	return &Assembler{repos: repos}
}

// Assemble reads the deal and every row its score depends on and shapes a ScoringInput
// anchored at now. Returns scoring.ErrNotFound if the deal id is missing.
func (a *Assembler) Assemble(ctx context.Context, dealID int64, now time.Time) (scoring.ScoringInput, error) {
	deal, err := a.repos.Deals.Get(ctx, dealID)
	if err != nil {
		return scoring.ScoringInput{}, fmt.Errorf("failed to load deal %d: %w", dealID, err)
	}
	if deal == nil {
		return scoring.ScoringInput{}, fmt.Errorf("deal %d: %w", dealID, scoring.ErrNotFound)
	}

	callScores, err := a.loadCallScores(ctx, dealID)
	if err != nil {
		return scoring.ScoringInput{}, err
	}

	invites, err := a.repos.Invites.ListByDeal(ctx, dealID)
	if err != nil {
		return scoring.ScoringInput{}, fmt.Errorf("failed to load invites for deal %d: %w", dealID, err)
	}

	comms, err := a.repos.Communications.ListByDeal(ctx, dealID)
	if err != nil {
		return scoring.ScoringInput{}, fmt.Errorf("failed to load communications for deal %d: %w", dealID, err)
	}

	cfg, err := a.repos.Config.Load(ctx)
	if err != nil {
		return scoring.ScoringInput{}, fmt.Errorf("failed to load scoring config: %w", err)
	}

	return scoring.ScoringInput{
		Deal:          dealSnapshot(*deal),
		CallScores:    callScores,
		Invites:       inviteStats(invites),
		Communication: communicationsSummary(comms),
		Config:        cfg,
		Now:           now,
	}, nil
}

func (a *Assembler) loadCallScores(ctx context.Context, dealID int64) (*scoring.CallScores, error) {
	row, err := a.repos.CallScores.GetByDeal(ctx, dealID)
	if err != nil {
		return nil, fmt.Errorf("failed to load call scores for deal %d: %w", dealID, err)
	}
	if row == nil {
		return nil, nil
	}
	return &scoring.CallScores{
		BudgetClarity: row.BudgetClarity,
		Competition:   row.Competition,
		Engagement:    row.Engagement,
		PlanFit:       row.PlanFit,
	}, nil
}

func dealSnapshot(deal persistence.Deal) scoring.DealSnapshot {
	return scoring.DealSnapshot{
		Status:           deal.Status,
		SentAt:           deal.SentAt,
		PredictedMonthly: deal.PredictedMonthly,
		PredictedOnetime: deal.PredictedOnetime,
		SnoozedUntil:     deal.SnoozedUntil,
		RevivedAt:        deal.RevivedAt,
		ArchivedAt:       deal.ArchivedAt,
	}
}

// inviteStats derives milestone timestamps and counts from the raw
// invite rows, per the earliest-non-null / count-non-null rule.
func inviteStats(invites []persistence.Invite) scoring.InviteStats {
	stats := scoring.InviteStats{TotalInvites: len(invites)}

	for _, inv := range invites {
		if inv.EmailOpenedAt != nil {
			stats.OpenedCount++
			if stats.FirstEmailOpenedAt == nil || inv.EmailOpenedAt.Before(*stats.FirstEmailOpenedAt) {
				stats.FirstEmailOpenedAt = inv.EmailOpenedAt
			}
		}
		if inv.AccountCreatedAt != nil {
			if stats.FirstAccountCreatedAt == nil || inv.AccountCreatedAt.Before(*stats.FirstAccountCreatedAt) {
				stats.FirstAccountCreatedAt = inv.AccountCreatedAt
			}
		}
		if inv.ViewedAt != nil {
			stats.ViewedCount++
			if stats.FirstViewedAt == nil || inv.ViewedAt.Before(*stats.FirstViewedAt) {
				stats.FirstViewedAt = inv.ViewedAt
			}
		}
	}

	return stats
}

// communicationsSummary derives last-contact timestamps and the
// since-last-reply followup count from the raw communication rows.
func communicationsSummary(comms []persistence.Communication) scoring.CommunicationsSummary {
	var summary scoring.CommunicationsSummary

	for _, c := range comms {
		occurred := c.OccurredAt
		switch c.Direction {
		case "inbound":
			if summary.LastProspectContactAt == nil || occurred.After(*summary.LastProspectContactAt) {
				summary.LastProspectContactAt = &occurred
			}
		case "outbound":
			if summary.LastTeamContactAt == nil || occurred.After(*summary.LastTeamContactAt) {
				summary.LastTeamContactAt = &occurred
			}
		}
	}

	for _, c := range comms {
		if c.Direction != "outbound" {
			continue
		}
		if summary.LastProspectContactAt == nil || c.OccurredAt.After(*summary.LastProspectContactAt) {
			summary.FollowupCountSinceLastReply++
		}
	}

	return summary
}
