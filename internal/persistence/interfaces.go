package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sawpanic/dealscore/internal/scoring"
)

// Deal is the persisted proposal/opportunity row.
type Deal struct {
	ID               int64              `json:"id" db:"id"`
	Status           scoring.DealStatus `json:"status" db:"status"`
	RepName          string             `json:"rep_name" db:"rep_name"`
	SentAt           *time.Time         `json:"sent_at,omitempty" db:"sent_at"`
	PredictedMonthly float64            `json:"predicted_monthly" db:"predicted_monthly"`
	PredictedOnetime float64            `json:"predicted_onetime" db:"predicted_onetime"`
	SnoozedUntil     *time.Time         `json:"snoozed_until,omitempty" db:"snoozed_until"`
	RevivedAt        *time.Time         `json:"revived_at,omitempty" db:"revived_at"`
	ArchivedAt       *time.Time         `json:"archived_at,omitempty" db:"archived_at"`

	ConfidenceScore   int        `json:"confidence_score" db:"confidence_score"`
	ConfidencePercent float64    `json:"confidence_percent" db:"confidence_percent"`
	WeightedMonthly   float64    `json:"weighted_monthly" db:"weighted_monthly"`
	WeightedOnetime   float64    `json:"weighted_onetime" db:"weighted_onetime"`
	LastScoredAt      *time.Time `json:"last_scored_at,omitempty" db:"last_scored_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CallScoresRow is the rep-entered qualitative call factor row, one per deal.
type CallScoresRow struct {
	DealID        int64                 `json:"deal_id" db:"deal_id"`
	BudgetClarity scoring.BudgetClarity `json:"budget_clarity" db:"budget_clarity"`
	Competition   scoring.Competition   `json:"competition" db:"competition"`
	Engagement    scoring.Engagement    `json:"engagement" db:"engagement"`
	PlanFit       scoring.PlanFit       `json:"plan_fit" db:"plan_fit"`
	RecordedAt    time.Time             `json:"recorded_at" db:"recorded_at"`
}

// Invite is a single proposal-invite row with its milestone timestamps.
type Invite struct {
	ID               int64      `json:"id" db:"id"`
	DealID           int64      `json:"deal_id" db:"deal_id"`
	EmailOpenedAt    *time.Time `json:"email_opened_at,omitempty" db:"email_opened_at"`
	AccountCreatedAt *time.Time `json:"account_created_at,omitempty" db:"account_created_at"`
	ViewedAt         *time.Time `json:"viewed_at,omitempty" db:"viewed_at"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
}

// Communication is a single inbound/outbound contact event on a deal.
type Communication struct {
	ID         int64     `json:"id" db:"id"`
	DealID     int64     `json:"deal_id" db:"deal_id"`
	Direction  string    `json:"direction" db:"direction"` // "inbound" | "outbound"
	OccurredAt time.Time `json:"occurred_at" db:"occurred_at"`
}

// ScoreHistoryEvent is one audit-trail row: the materialized score fields
// plus the full result breakdown, persisted every time a score is
// recomputed. Breakdown is nullable: rows written by older schemas may
// carry the score columns with no breakdown document, and the audit
// computer must still produce top-level deltas for them.
type ScoreHistoryEvent struct {
	ID                int64     `json:"id" db:"id"`
	DealID            int64     `json:"deal_id" db:"deal_id"`
	RunID             uuid.UUID `json:"run_id" db:"run_id"`
	TriggerSource     string    `json:"trigger_source" db:"trigger_source"`
	ConfidenceScore   int       `json:"confidence_score" db:"confidence_score"`
	ConfidencePercent float64   `json:"confidence_percent" db:"confidence_percent"`
	WeightedMonthly   float64   `json:"weighted_monthly" db:"weighted_monthly"`
	WeightedOnetime   float64   `json:"weighted_onetime" db:"weighted_onetime"`

	Breakdown     *scoring.ScoringResult `json:"breakdown,omitempty" db:"-"`
	BreakdownJSON []byte                 `json:"-" db:"breakdown"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ScoreEventQueueRow is a pending recalculation request. External
// triggers insert rows; the batch runner stamps processed_at after a
// drain, so "pending" means processed_at IS NULL.
type ScoreEventQueueRow struct {
	ID            int64      `json:"id" db:"id"`
	DealID        int64      `json:"deal_id" db:"deal_id"`
	TriggerSource string     `json:"trigger_source" db:"trigger_source"`
	EnqueuedAt    time.Time  `json:"enqueued_at" db:"enqueued_at"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty" db:"processed_at"`
}

// ScoringRunError records one failed deal recalculation within a run,
// persisted as part of the run's truncated error log.
type ScoringRunError struct {
	DealID  int64  `json:"deal_id"`
	Message string `json:"message"`
}

// ScoringRun records one batch execution for operational visibility.
type ScoringRun struct {
	RunID      uuid.UUID         `json:"run_id" db:"run_id"`
	Kind       string            `json:"kind" db:"kind"` // "event_queue" | "daily_cron" | "manual"
	Processed  int               `json:"processed" db:"processed"`
	Succeeded  int               `json:"succeeded" db:"succeeded"`
	Failed     int               `json:"failed" db:"failed"`
	Skipped    int               `json:"skipped" db:"skipped"`
	DurationMS int64             `json:"duration_ms" db:"duration_ms"`
	Errors     []ScoringRunError `json:"errors" db:"-"`
	ErrorsJSON []byte            `json:"-" db:"errors_json"`
	StartedAt  time.Time         `json:"started_at" db:"started_at"`
	EndedAt    time.Time         `json:"ended_at" db:"ended_at"`
}

// TimeRange bounds a query window.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// DealsRepo persists deal rows and the fields the engine writes back.
type DealsRepo interface {
	Get(ctx context.Context, id int64) (*Deal, error)
	UpdateScore(ctx context.Context, id int64, result scoring.ScoringResult, now time.Time) error
	ListActiveSent(ctx context.Context) ([]Deal, error)
	ListStale(ctx context.Context, olderThan time.Duration, now time.Time, limit int) ([]Deal, error)
}

// CallScoresRepo reads the rep-entered call factors for a deal.
type CallScoresRepo interface {
	GetByDeal(ctx context.Context, dealID int64) (*CallScoresRow, error)
}

// InvitesRepo reads invite rows for a deal.
type InvitesRepo interface {
	ListByDeal(ctx context.Context, dealID int64) ([]Invite, error)
}

// CommunicationsRepo reads communication rows for a deal.
type CommunicationsRepo interface {
	ListByDeal(ctx context.Context, dealID int64) ([]Communication, error)
}

// HistoryRepo appends and reads the audit trail.
type HistoryRepo interface {
	Append(ctx context.Context, event ScoreHistoryEvent) error
	ListByDeal(ctx context.Context, dealID int64) ([]ScoreHistoryEvent, error)
}

// QueueRepo manages the pending-recalculation event queue.
type QueueRepo interface {
	Enqueue(ctx context.Context, dealID int64, triggerSource string, now time.Time) error
	PendingDealIDs(ctx context.Context) ([]int64, error)
	MarkProcessed(ctx context.Context, now time.Time) error
}

// ScoringRunRepo persists batch execution summaries.
type ScoringRunRepo interface {
	Insert(ctx context.Context, run ScoringRun) error
}

// ConfigRepo reads the persisted scoring configuration document.
type ConfigRepo interface {
	Load(ctx context.Context) (scoring.ScoringConfig, error)
}

// Repository aggregates every repo interface behind a single handle.
type Repository struct {
	Deals          DealsRepo
	CallScores     CallScoresRepo
	Invites        InvitesRepo
	Communications CommunicationsRepo
	History        HistoryRepo
	Queue          QueueRepo
	ScoringRuns    ScoringRunRepo
	Config         ConfigRepo
}

// HealthCheck reports the current state of the persistence layer.
type HealthCheck struct {
	Healthy        bool           `json:"healthy"`
	Errors         []string       `json:"errors,omitempty"`
	ConnectionPool map[string]int `json:"connection_pool"`
	LastCheck      time.Time      `json:"last_check"`
	ResponseTimeMS int64          `json:"response_time_ms"`
}

// RepositoryHealth exposes liveness and connection-pool diagnostics.
type RepositoryHealth interface {
	Health(ctx context.Context) HealthCheck
	Ping(ctx context.Context) error
	Stats(ctx context.Context) map[string]interface{}
}
