package writer_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/dealscore/internal/persistence"
	"github.com/sawpanic/dealscore/internal/scoring"
	"github.com/sawpanic/dealscore/internal/writer"
)

type fakeDeals struct {
	updateErr error
	updated   bool
	updatedID int64
}

func (f *fakeDeals) Get(ctx context.Context, id int64) (*persistence.Deal, error) { return nil, nil }
func (f *fakeDeals) UpdateScore(ctx context.Context, id int64, result scoring.ScoringResult, now time.Time) error {
	f.updated = true
	f.updatedID = id
	return f.updateErr
}
func (f *fakeDeals) ListActiveSent(ctx context.Context) ([]persistence.Deal, error) { return nil, nil }
func (f *fakeDeals) ListStale(ctx context.Context, d time.Duration, now time.Time, limit int) ([]persistence.Deal, error) {
	return nil, nil
}

type fakeHistory struct {
	appendErr error
	appended  []persistence.ScoreHistoryEvent
}

func (f *fakeHistory) Append(ctx context.Context, event persistence.ScoreHistoryEvent) error {
	f.appended = append(f.appended, event)
	return f.appendErr
}
func (f *fakeHistory) ListByDeal(ctx context.Context, dealID int64) ([]persistence.ScoreHistoryEvent, error) {
	return f.appended, nil
}

func TestWriter_Write_UpdatesThenAppends(t *testing.T) {
	deals := &fakeDeals{}
	history := &fakeHistory{}
	repos := &persistence.Repository{Deals: deals, History: history}
	w := writer.New(repos)

	result := scoring.ScoringResult{ConfidenceScore: 70, ConfidencePercent: 0.7, WeightedMonthly: 350}
	runID := uuid.New()

	err := w.Write(context.Background(), 5, result, runID, "manual_refresh", time.Now())
	require.NoError(t, err)

	assert.True(t, deals.updated)
	assert.Equal(t, int64(5), deals.updatedID)
	require.Len(t, history.appended, 1)
	assert.Equal(t, "manual_refresh", history.appended[0].TriggerSource)
	assert.Equal(t, 70, history.appended[0].ConfidenceScore)
	assert.Equal(t, 350.0, history.appended[0].WeightedMonthly)
	require.NotNil(t, history.appended[0].Breakdown)
	assert.Equal(t, 70, history.appended[0].Breakdown.ConfidenceScore)
}

func TestWriter_Write_UpdateFailurePropagates(t *testing.T) {
	deals := &fakeDeals{updateErr: errors.New("deal not found")}
	history := &fakeHistory{}
	repos := &persistence.Repository{Deals: deals, History: history}
	w := writer.New(repos)

	err := w.Write(context.Background(), 5, scoring.ScoringResult{}, uuid.New(), "manual_refresh", time.Now())
	require.Error(t, err)
	assert.Empty(t, history.appended, "history must not be written if the deal update fails")
}

func TestWriter_Write_HistoryFailureIsNonFatal(t *testing.T) {
	deals := &fakeDeals{}
	history := &fakeHistory{appendErr: errors.New("disk full")}
	repos := &persistence.Repository{Deals: deals, History: history}
	w := writer.New(repos)

	err := w.Write(context.Background(), 5, scoring.ScoringResult{ConfidenceScore: 10}, uuid.New(), "manual_refresh", time.Now())
	require.NoError(t, err, "history append failure must not be rethrown")
	assert.True(t, deals.updated)
}
