package orchestrator_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/dealscore/internal/assembler"
	"github.com/sawpanic/dealscore/internal/orchestrator"
	"github.com/sawpanic/dealscore/internal/persistence"
	"github.com/sawpanic/dealscore/internal/scoring"
	"github.com/sawpanic/dealscore/internal/writer"
)

type fakeDeals struct {
	deal    *persistence.Deal
	dealErr error
	updated []int64
}

func (f *fakeDeals) Get(ctx context.Context, id int64) (*persistence.Deal, error) {
	return f.deal, f.dealErr
}
func (f *fakeDeals) UpdateScore(ctx context.Context, id int64, result scoring.ScoringResult, now time.Time) error {
	f.updated = append(f.updated, id)
	return nil
}
func (f *fakeDeals) ListActiveSent(ctx context.Context) ([]persistence.Deal, error) { return nil, nil }
func (f *fakeDeals) ListStale(ctx context.Context, d time.Duration, now time.Time, limit int) ([]persistence.Deal, error) {
	return nil, nil
}

type fakeCallScores struct{}

func (f *fakeCallScores) GetByDeal(ctx context.Context, dealID int64) (*persistence.CallScoresRow, error) {
	return nil, nil
}

type fakeInvites struct{}

func (f *fakeInvites) ListByDeal(ctx context.Context, dealID int64) ([]persistence.Invite, error) {
	return nil, nil
}

type fakeComms struct{}

func (f *fakeComms) ListByDeal(ctx context.Context, dealID int64) ([]persistence.Communication, error) {
	return nil, nil
}

type fakeConfig struct{}

func (f *fakeConfig) Load(ctx context.Context) (scoring.ScoringConfig, error) {
	return scoring.DefaultConfig(), nil
}

type fakeHistory struct{ count int }

func (f *fakeHistory) Append(ctx context.Context, event persistence.ScoreHistoryEvent) error {
	f.count++
	return nil
}
func (f *fakeHistory) ListByDeal(ctx context.Context, dealID int64) ([]persistence.ScoreHistoryEvent, error) {
	return nil, nil
}

func buildOrchestrator(deal *persistence.Deal) (*orchestrator.Orchestrator, *fakeDeals, *fakeHistory) {
	deals := &fakeDeals{deal: deal}
	history := &fakeHistory{}
	repos := &persistence.Repository{
		Deals:          deals,
		CallScores:     &fakeCallScores{},
		Invites:        &fakeInvites{},
		Communications: &fakeComms{},
		Config:         &fakeConfig{},
		History:        history,
	}

	a := assembler.New(repos)
	w := writer.New(repos)
	fixedNow := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	o := orchestrator.New(a, w, func() time.Time { return fixedNow })
	return o, deals, history
}

func TestRecalculate_WritesForActiveDeal(t *testing.T) {
	deal := &persistence.Deal{ID: 1, Status: scoring.StatusSent, PredictedMonthly: 500}
	o, deals, history := buildOrchestrator(deal)

	result := o.Recalculate(context.Background(), 1, "manual_refresh", orchestrator.DefaultOptions())
	require.NotNil(t, result)
	assert.Equal(t, []int64{1}, deals.updated)
	assert.Equal(t, 1, history.count)
}

func TestRecalculate_SkipsTerminalStatus(t *testing.T) {
	deal := &persistence.Deal{ID: 1, Status: scoring.StatusAccepted}
	o, deals, history := buildOrchestrator(deal)

	result := o.Recalculate(context.Background(), 1, "manual_refresh", orchestrator.DefaultOptions())
	assert.Nil(t, result)
	assert.Empty(t, deals.updated)
	assert.Equal(t, 0, history.count)
}

func TestRecalculate_DoesNotSkipTerminalWhenDisabled(t *testing.T) {
	deal := &persistence.Deal{ID: 1, Status: scoring.StatusClosedLost}
	o, deals, _ := buildOrchestrator(deal)

	result := o.Recalculate(context.Background(), 1, "manual_refresh", orchestrator.Options{SkipTerminal: false})
	require.NotNil(t, result)
	assert.Equal(t, []int64{1}, deals.updated)
}

func TestRecalculate_MissingDealReturnsNilNotPanic(t *testing.T) {
	o, deals, _ := buildOrchestrator(nil)

	result := o.Recalculate(context.Background(), 999, "manual_refresh", orchestrator.DefaultOptions())
	assert.Nil(t, result)
	assert.Empty(t, deals.updated)
}

func TestRecalculateMany_ReturnsOneResultPerID(t *testing.T) {
	deal := &persistence.Deal{ID: 1, Status: scoring.StatusSent, PredictedMonthly: 100}
	o, _, _ := buildOrchestrator(deal)

	results := o.RecalculateMany(context.Background(), []int64{1, 1, 1}, "daily_cron")
	require.Len(t, results, 3)
	for _, r := range results {
		assert.NotNil(t, r)
	}
}
