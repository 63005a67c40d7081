package batch_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/dealscore/internal/assembler"
	"github.com/sawpanic/dealscore/internal/batch"
	"github.com/sawpanic/dealscore/internal/interfaces/alerts"
	"github.com/sawpanic/dealscore/internal/orchestrator"
	"github.com/sawpanic/dealscore/internal/persistence"
	"github.com/sawpanic/dealscore/internal/scoring"
	"github.com/sawpanic/dealscore/internal/writer"
)

type fakeDeals struct {
	byID  map[int64]*persistence.Deal
	stale []persistence.Deal
}

func (f *fakeDeals) Get(ctx context.Context, id int64) (*persistence.Deal, error) {
	return f.byID[id], nil
}
func (f *fakeDeals) UpdateScore(ctx context.Context, id int64, result scoring.ScoringResult, now time.Time) error {
	return nil
}
func (f *fakeDeals) ListActiveSent(ctx context.Context) ([]persistence.Deal, error) {
	var out []persistence.Deal
	for _, d := range f.byID {
		out = append(out, *d)
	}
	return out, nil
}
func (f *fakeDeals) ListStale(ctx context.Context, d time.Duration, now time.Time, limit int) ([]persistence.Deal, error) {
	if len(f.stale) > limit {
		chunk := f.stale[:limit]
		f.stale = f.stale[limit:]
		return chunk, nil
	}
	chunk := f.stale
	f.stale = nil
	return chunk, nil
}

type fakeQueue struct {
	rows     []persistence.ScoreEventQueueRow
	markedAt []time.Time
}

func (f *fakeQueue) Enqueue(ctx context.Context, dealID int64, triggerSource string, now time.Time) error {
	f.rows = append(f.rows, persistence.ScoreEventQueueRow{DealID: dealID, TriggerSource: triggerSource, EnqueuedAt: now})
	return nil
}
func (f *fakeQueue) PendingDealIDs(ctx context.Context) ([]int64, error) {
	seen := make(map[int64]bool)
	var ids []int64
	for _, row := range f.rows {
		if row.ProcessedAt != nil || seen[row.DealID] {
			continue
		}
		seen[row.DealID] = true
		ids = append(ids, row.DealID)
	}
	return ids, nil
}
func (f *fakeQueue) MarkProcessed(ctx context.Context, now time.Time) error {
	f.markedAt = append(f.markedAt, now)
	for i := range f.rows {
		if f.rows[i].ProcessedAt == nil {
			f.rows[i].ProcessedAt = &now
		}
	}
	return nil
}

type fakeRuns struct{ runs []persistence.ScoringRun }

func (f *fakeRuns) Insert(ctx context.Context, run persistence.ScoringRun) error {
	f.runs = append(f.runs, run)
	return nil
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

type fakeHistory struct{}

func (f *fakeHistory) Append(ctx context.Context, event persistence.ScoreHistoryEvent) error {
	return nil
}
func (f *fakeHistory) ListByDeal(ctx context.Context, dealID int64) ([]persistence.ScoreHistoryEvent, error) {
	return nil, nil
}

type spyAlertSink struct{ sent []alerts.Alert }

func (s *spyAlertSink) Send(ctx context.Context, alert alerts.Alert) error {
	s.sent = append(s.sent, alert)
	return nil
}

func buildRunner(deals *fakeDeals, queue *fakeQueue, runs *fakeRuns, sink alerts.Sink) *batch.Runner {
	repos := &persistence.Repository{
		Deals:          deals,
		CallScores:     &fakeCallScores{},
		Invites:        &fakeInvites{},
		Communications: &fakeComms{},
		Config:         &fakeConfig{},
		History:        &fakeHistory{},
		Queue:          queue,
		ScoringRuns:    runs,
	}

	a := assembler.New(repos)
	w := writer.New(repos)
	fixedNow := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	o := orchestrator.New(a, w, func() time.Time { return fixedNow })
	return batch.New(o, repos, sink, func() time.Time { return fixedNow })
}

func activeDeal(id int64) *persistence.Deal {
	return &persistence.Deal{ID: id, Status: scoring.StatusSent, PredictedMonthly: 100}
}

func TestProcessScoreEventQueue_DrainsAllChunks(t *testing.T) {
	deals := &fakeDeals{byID: map[int64]*persistence.Deal{1: activeDeal(1), 2: activeDeal(2), 3: activeDeal(3)}}
	queue := &fakeQueue{rows: []persistence.ScoreEventQueueRow{
		{DealID: 1}, {DealID: 2}, {DealID: 3},
	}}
	runs := &fakeRuns{}
	r := buildRunner(deals, queue, runs, &spyAlertSink{})

	result := r.ProcessScoreEventQueue(context.Background())

	assert.Equal(t, 3, result.Processed)
	assert.Equal(t, 3, result.Succeeded)
	assert.Equal(t, 0, result.Failed)
	require.Len(t, runs.runs, 1)
	assert.Equal(t, "event_queue", runs.runs[0].Kind)

	require.Len(t, queue.markedAt, 1, "drained rows are stamped processed exactly once")
	pending, err := queue.PendingDealIDs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestProcessScoreEventQueue_MissingDealCountsAsFailed(t *testing.T) {
	deals := &fakeDeals{byID: map[int64]*persistence.Deal{}}
	queue := &fakeQueue{rows: []persistence.ScoreEventQueueRow{{DealID: 99}}}
	runs := &fakeRuns{}
	r := buildRunner(deals, queue, runs, &spyAlertSink{})

	result := r.ProcessScoreEventQueue(context.Background())

	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, int64(99), result.Errors[0].DealID)

	require.Len(t, runs.runs, 1)
	run := runs.runs[0]
	assert.Equal(t, 1, run.Processed)
	assert.Equal(t, 0, run.Succeeded)
	assert.Equal(t, 1, run.Failed)
	assert.Equal(t, 0, run.Skipped)
	require.Len(t, run.Errors, 1)
	assert.Equal(t, int64(99), run.Errors[0].DealID)
}

func TestProcessScoreEventQueue_DedupesRepeatedDealID(t *testing.T) {
	deals := &fakeDeals{byID: map[int64]*persistence.Deal{1: activeDeal(1), 2: activeDeal(2)}}
	queue := &fakeQueue{rows: []persistence.ScoreEventQueueRow{
		{DealID: 1}, {DealID: 2}, {DealID: 1}, {DealID: 1},
	}}
	runs := &fakeRuns{}
	r := buildRunner(deals, queue, runs, &spyAlertSink{})

	result := r.ProcessScoreEventQueue(context.Background())

	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 2, result.Succeeded)
	require.Len(t, runs.runs, 1)
	assert.Equal(t, 2, runs.runs[0].Processed)
}

func TestProcessScoreEventQueue_SkipsAlreadyProcessedRows(t *testing.T) {
	done := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	deals := &fakeDeals{byID: map[int64]*persistence.Deal{1: activeDeal(1), 2: activeDeal(2)}}
	queue := &fakeQueue{rows: []persistence.ScoreEventQueueRow{
		{DealID: 1, ProcessedAt: &done},
		{DealID: 2},
	}}
	runs := &fakeRuns{}
	r := buildRunner(deals, queue, runs, &spyAlertSink{})

	result := r.ProcessScoreEventQueue(context.Background())

	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 1, result.Succeeded)
}

func TestBatchRecalculateStaleScores_FiresHighErrorRateAlert(t *testing.T) {
	deals := &fakeDeals{
		byID:  map[int64]*persistence.Deal{1: activeDeal(1)},
		stale: []persistence.Deal{{ID: 1}, {ID: 2}, {ID: 3}},
	}
	runs := &fakeRuns{}
	sink := &spyAlertSink{}
	r := buildRunner(deals, &fakeQueue{}, runs, sink)

	result := r.BatchRecalculateStaleScores(context.Background())

	assert.Equal(t, 3, result.Processed)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 2, result.Failed)
	require.Len(t, sink.sent, 1)
	assert.Equal(t, alerts.SeverityWarning, sink.sent[0].Severity)
}

func TestRecalculateAllActive_ProcessesEveryActiveDeal(t *testing.T) {
	deals := &fakeDeals{byID: map[int64]*persistence.Deal{1: activeDeal(1), 2: activeDeal(2)}}
	runs := &fakeRuns{}
	r := buildRunner(deals, &fakeQueue{}, runs, &spyAlertSink{})

	result := r.RecalculateAllActive(context.Background(), "manual_refresh")

	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 2, result.Succeeded)
	require.Len(t, runs.runs, 1)
	assert.Equal(t, "manual", runs.runs[0].Kind)
}

// stuckStaleDeals always reports the same stale rows, the way a real
// query does when every recalc in the chunk fails and last_scored_at
// never advances.
type stuckStaleDeals struct {
	fakeDeals
	rows []persistence.Deal
}

func (f *stuckStaleDeals) ListStale(ctx context.Context, d time.Duration, now time.Time, limit int) ([]persistence.Deal, error) {
	if len(f.rows) > limit {
		return f.rows[:limit], nil
	}
	return f.rows, nil
}

func TestBatchRecalculateStaleScores_AttemptsEachDealOncePerRun(t *testing.T) {
	stale := make([]persistence.Deal, 25)
	for i := range stale {
		stale[i] = persistence.Deal{ID: int64(i + 1)}
	}
	deals := &stuckStaleDeals{fakeDeals: fakeDeals{byID: map[int64]*persistence.Deal{}}, rows: stale}
	runs := &fakeRuns{}

	repos := &persistence.Repository{
		Deals:          deals,
		CallScores:     &fakeCallScores{},
		Invites:        &fakeInvites{},
		Communications: &fakeComms{},
		Config:         &fakeConfig{},
		History:        &fakeHistory{},
		Queue:          &fakeQueue{},
		ScoringRuns:    runs,
	}
	a := assembler.New(repos)
	w := writer.New(repos)
	fixedNow := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	o := orchestrator.New(a, w, func() time.Time { return fixedNow })
	r := batch.New(o, repos, &spyAlertSink{}, func() time.Time { return fixedNow })

	result := r.BatchRecalculateStaleScores(context.Background())

	assert.Equal(t, 25, result.Processed, "each stuck deal is attempted exactly once")
	assert.Equal(t, 25, result.Failed)
}

type spyInvalidator struct{ calls int }

func (s *spyInvalidator) Invalidate(ctx context.Context) { s.calls++ }

func TestProcessScoreEventQueue_InvalidatesConfigCacheOnce(t *testing.T) {
	deals := &fakeDeals{byID: map[int64]*persistence.Deal{1: activeDeal(1)}}
	queue := &fakeQueue{rows: []persistence.ScoreEventQueueRow{{DealID: 1}}}
	r := buildRunner(deals, queue, &fakeRuns{}, &spyAlertSink{})
	inv := &spyInvalidator{}
	r.SetConfigInvalidator(inv)

	r.ProcessScoreEventQueue(context.Background())

	assert.Equal(t, 1, inv.calls)
}

func TestRunDaily_RunsQueueThenStale(t *testing.T) {
	deals := &fakeDeals{byID: map[int64]*persistence.Deal{1: activeDeal(1)}}
	queue := &fakeQueue{rows: []persistence.ScoreEventQueueRow{{DealID: 1}}}
	runs := &fakeRuns{}
	r := buildRunner(deals, queue, runs, &spyAlertSink{})

	queueResult, staleResult, totalMS := r.RunDaily(context.Background())

	assert.Equal(t, 1, queueResult.Processed)
	assert.Equal(t, 0, staleResult.Processed)
	assert.GreaterOrEqual(t, totalMS, int64(0))
	assert.Len(t, runs.runs, 2)
}
