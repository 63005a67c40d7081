package scoring

import "time"

// DealStatus mirrors the five-value canonical status enum. Legacy display
// values ("revision", "pending_review", "published") are not part of the
// scoring engine's status enum; they are handled upstream by whatever
// maps a legacy record onto one of these five values before calling
// compute.
type DealStatus string

const (
	StatusDraft      DealStatus = "draft"
	StatusSent       DealStatus = "sent"
	StatusDeclined   DealStatus = "declined"
	StatusAccepted   DealStatus = "accepted"
	StatusClosedLost DealStatus = "closed_lost"
)

// BudgetClarity, Competition, Engagement and PlanFit are the four
// rep-entered call factors. Unrecognized values degrade to 0 contribution
// rather than erroring, so stray data can never abort a recalculation.
type BudgetClarity string

const (
	BudgetClear    BudgetClarity = "clear"
	BudgetVague    BudgetClarity = "vague"
	BudgetNone     BudgetClarity = "none"
	BudgetNoBudget BudgetClarity = "no_budget"
)

type Competition string

const (
	CompetitionNone Competition = "none"
	CompetitionSome Competition = "some"
	CompetitionMany Competition = "many"
)

type Engagement string

const (
	EngagementHigh   Engagement = "high"
	EngagementMedium Engagement = "medium"
	EngagementLow    Engagement = "low"
)

type PlanFit string

const (
	PlanFitStrong PlanFit = "strong"
	PlanFitMedium PlanFit = "medium"
	PlanFitWeak   PlanFit = "weak"
	PlanFitPoor   PlanFit = "poor"
)

// CallScores holds the rep-entered qualitative call factors for a deal.
// Zero or one row exists per deal; a nil *CallScores means "no call
// scored yet".
type CallScores struct {
	BudgetClarity BudgetClarity
	Competition   Competition
	Engagement    Engagement
	PlanFit       PlanFit
}

// InviteStats is the derived aggregate over all Invite rows for a deal:
// earliest non-null milestone timestamps plus counts of non-null fields,
// used for the multi-invite bonus and penalty anchors.
type InviteStats struct {
	TotalInvites int

	FirstEmailOpenedAt    *time.Time
	FirstAccountCreatedAt *time.Time
	FirstViewedAt         *time.Time

	OpenedCount int
	ViewedCount int
}

// CommunicationsSummary is the derived aggregate over all Communication
// rows for a deal.
type CommunicationsSummary struct {
	LastProspectContactAt       *time.Time
	LastTeamContactAt           *time.Time
	FollowupCountSinceLastReply int
}

// DealSnapshot is the subset of Deal fields the engine needs.
type DealSnapshot struct {
	Status           DealStatus
	SentAt           *time.Time
	PredictedMonthly float64
	PredictedOnetime float64
	SnoozedUntil     *time.Time
	RevivedAt        *time.Time
	ArchivedAt       *time.Time
}

// ScoringInput is everything compute() needs to produce a deterministic
// ScoringResult. Now is explicit so the engine has no hidden clock.
type ScoringInput struct {
	Deal          DealSnapshot
	CallScores    *CallScores
	Invites       InviteStats
	Communication CommunicationsSummary
	Config        ScoringConfig
	Now           time.Time
}

// PenaltyBreakdown is the itemized penalty/bonus attribution persisted
// alongside every score for audit purposes.
type PenaltyBreakdown struct {
	EmailNotOpened    float64 `json:"email_not_opened"`
	ProposalNotViewed float64 `json:"proposal_not_viewed"`
	Silence           float64 `json:"silence"`
	MultiInviteBonus  float64 `json:"multi_invite_bonus"`
}

// ScoringResult is the full engine output, plus the penalty breakdown used
// for audit explanation. The deal row stores only ConfidenceScore,
// ConfidencePercent, WeightedMonthly and WeightedOnetime; the base score,
// totals and per-penalty fields are persisted only in the history
// event's breakdown document.
type ScoringResult struct {
	ConfidenceScore   int     `json:"confidence_score"`
	ConfidencePercent float64 `json:"confidence_percent"`
	WeightedMonthly   float64 `json:"weighted_monthly"`
	WeightedOnetime   float64 `json:"weighted_onetime"`
	BaseScore         float64 `json:"base_score"`
	TotalPenalties    float64 `json:"total_penalties"`
	TotalBonus        float64 `json:"total_bonus"`

	PenaltyEmailNotOpened    float64 `json:"penalty_email_not_opened"`
	PenaltyProposalNotViewed float64 `json:"penalty_proposal_not_viewed"`
	PenaltySilence           float64 `json:"penalty_silence"`

	PenaltyBreakdown PenaltyBreakdown `json:"penalty_breakdown"`
}
