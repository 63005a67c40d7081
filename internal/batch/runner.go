// Package batch drains the pending recalculation queue and rescans stale
// active deals under bounded concurrency: fixed-size chunks processed in
// parallel with a wall-clock delay between chunks.
package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/dealscore/internal/interfaces/alerts"
	"github.com/sawpanic/dealscore/internal/orchestrator"
	"github.com/sawpanic/dealscore/internal/persistence"
)

const (
	chunkSize          = 25
	interChunkDelay    = 200 * time.Millisecond
	staleThreshold     = 23 * time.Hour
	highErrorRateRatio = 0.5
)

// ErrorEntry records one failed deal recalculation for a run's log.
type ErrorEntry struct {
	DealID  int64  `json:"deal_id"`
	Message string `json:"message"`
}

// Result is the outcome of a single batch operation.
type Result struct {
	Processed  int
	Succeeded  int
	Failed     int
	Skipped    int
	DurationMS int64
	Errors     []ErrorEntry
}

// ConfigInvalidator drops any cached scoring configuration. The batch
// runner calls this once per run so a config edit is always picked up
// by the next run.
type ConfigInvalidator interface {
	Invalidate(ctx context.Context)
}

// Runner drains the event queue and rescans stale deals.
type Runner struct {
	orchestrator *orchestrator.Orchestrator
	repos        *persistence.Repository
	alertSink    alerts.Sink
	now          func() time.Time
	invalidator  ConfigInvalidator
}

// New creates a Runner.
func New(o *orchestrator.Orchestrator, repos *persistence.Repository, sink alerts.Sink, now func() time.Time) *Runner {
	if now == nil {
		now = time.Now
	}
	if sink == nil {
		sink = alerts.NewLogSink()
	}
	return &Runner{orchestrator: o, repos: repos, alertSink: sink, now: now}
}

// SetConfigInvalidator attaches the config cache to invalidate once per
// run. Optional: a Runner with none invalidates nothing.
func (r *Runner) SetConfigInvalidator(inv ConfigInvalidator) {
	r.invalidator = inv
}

// ProcessScoreEventQueue recalculates every deal with an unprocessed
// queue row (trigger_source "tracking_event") in chunks of 25, then
// stamps the drained rows processed.
func (r *Runner) ProcessScoreEventQueue(ctx context.Context) Result {
	r.invalidateConfig(ctx)
	start := time.Now()
	var result Result

	ids, err := r.repos.Queue.PendingDealIDs(ctx)
	if err != nil {
		log.Error().Err(err).Msg("batch: failed to list pending queue deals")
		result.Errors = append(result.Errors, ErrorEntry{Message: err.Error()})
		result.DurationMS = time.Since(start).Milliseconds()
		r.finish(ctx, "event_queue", result)
		return result
	}

	for i := 0; i < len(ids); i += chunkSize {
		end := i + chunkSize
		if end > len(ids) {
			end = len(ids)
		}

		r.processChunk(ctx, ids[i:end], "tracking_event", &result)

		if end < len(ids) {
			time.Sleep(interChunkDelay)
		}
	}

	// Stamp everything drained this run, failed deals included: a failed
	// recalc is retried by the stale rescore, not by replaying the queue.
	if len(ids) > 0 {
		if err := r.repos.Queue.MarkProcessed(ctx, r.now()); err != nil {
			log.Error().Err(err).Msg("batch: failed to mark queue rows processed")
			result.Errors = append(result.Errors, ErrorEntry{Message: err.Error()})
		}
	}

	result.DurationMS = time.Since(start).Milliseconds()
	r.finish(ctx, "event_queue", result)
	return result
}

// BatchRecalculateStaleScores rescans sent/declined deals whose
// last_scored_at is older than 23 hours (or null), oldest first.
func (r *Runner) BatchRecalculateStaleScores(ctx context.Context) Result {
	r.invalidateConfig(ctx)
	start := time.Now()
	var result Result
	now := r.now()

	// Failed recalcs leave last_scored_at stale, so ListStale can hand
	// back the same rows next iteration. Attempt each deal once per run.
	attempted := make(map[int64]bool)

	for {
		stale, err := r.repos.Deals.ListStale(ctx, staleThreshold, now, chunkSize)
		if err != nil {
			log.Error().Err(err).Msg("batch: failed to list stale deals")
			result.Errors = append(result.Errors, ErrorEntry{Message: err.Error()})
			break
		}

		ids := make([]int64, 0, len(stale))
		for _, deal := range stale {
			if attempted[deal.ID] {
				continue
			}
			attempted[deal.ID] = true
			ids = append(ids, deal.ID)
		}
		if len(ids) == 0 {
			break
		}

		r.processChunk(ctx, ids, "daily_cron", &result)

		if len(stale) < chunkSize {
			break
		}
		time.Sleep(interChunkDelay)
	}

	result.DurationMS = time.Since(start).Milliseconds()
	r.finish(ctx, "daily_cron", result)
	return result
}

// RecalculateAllActive rescans every active sent deal regardless of
// staleness, for an operator-triggered full refresh.
func (r *Runner) RecalculateAllActive(ctx context.Context, triggerSource string) Result {
	r.invalidateConfig(ctx)
	start := time.Now()
	var result Result

	active, err := r.repos.Deals.ListActiveSent(ctx)
	if err != nil {
		log.Error().Err(err).Msg("batch: failed to list active deals for refresh-all")
		result.Errors = append(result.Errors, ErrorEntry{Message: err.Error()})
		result.DurationMS = time.Since(start).Milliseconds()
		r.finish(ctx, "manual", result)
		return result
	}

	for i := 0; i < len(active); i += chunkSize {
		end := i + chunkSize
		if end > len(active) {
			end = len(active)
		}
		ids := make([]int64, 0, end-i)
		for _, deal := range active[i:end] {
			ids = append(ids, deal.ID)
		}

		r.processChunk(ctx, ids, triggerSource, &result)

		if end < len(active) {
			time.Sleep(interChunkDelay)
		}
	}

	result.DurationMS = time.Since(start).Milliseconds()
	r.finish(ctx, "manual", result)
	return result
}

// processChunk runs recalculate for every id in the chunk concurrently
// and folds the outcomes into result.
func (r *Runner) processChunk(ctx context.Context, ids []int64, triggerSource string, result *Result) {
	outcomes := r.orchestrator.RecalculateManyOutcomes(ctx, ids, triggerSource)

	for i, oc := range outcomes {
		result.Processed++
		switch {
		case oc.Skipped:
			result.Skipped++
		case oc.Err != nil:
			result.Failed++
			result.Errors = append(result.Errors, ErrorEntry{DealID: ids[i], Message: oc.Err.Error()})
		default:
			result.Succeeded++
		}
	}
}

// invalidateConfig is a no-op when the runner has no attached cache.
func (r *Runner) invalidateConfig(ctx context.Context) {
	if r.invalidator != nil {
		r.invalidator.Invalidate(ctx)
	}
}

// finish truncates the error log, appends the ScoringRun row, and fires
// the HighErrorRate alert when warranted.
func (r *Runner) finish(ctx context.Context, kind string, result Result) {
	truncated := result.Errors
	if len(truncated) > 50 {
		truncated = truncated[:50]
	}

	runErrors := make([]persistence.ScoringRunError, len(truncated))
	for i, e := range truncated {
		runErrors[i] = persistence.ScoringRunError{DealID: e.DealID, Message: e.Message}
	}

	run := persistence.ScoringRun{
		RunID:      uuid.New(),
		Kind:       kind,
		Processed:  result.Processed,
		Succeeded:  result.Succeeded,
		Failed:     result.Failed,
		Skipped:    result.Skipped,
		DurationMS: result.DurationMS,
		Errors:     runErrors,
		StartedAt:  r.now().Add(-time.Duration(result.DurationMS) * time.Millisecond),
		EndedAt:    r.now(),
	}

	if err := r.repos.ScoringRuns.Insert(ctx, run); err != nil {
		log.Error().Err(err).Str("kind", kind).Msg("batch: failed to record scoring run")
	}

	if result.Processed > 0 && float64(result.Failed)/float64(result.Processed) > highErrorRateRatio {
		alert := alerts.Alert{
			Severity: alerts.SeverityWarning,
			Message:  fmt.Sprintf("high error rate in %s batch run", kind),
			Fields: map[string]any{
				"kind":      kind,
				"processed": result.Processed,
				"failed":    result.Failed,
			},
		}
		if err := r.alertSink.Send(ctx, alert); err != nil {
			log.Error().Err(err).Msg("batch: failed to dispatch high error rate alert")
		}
	}
}

// RunDaily executes the event-queue drain followed by the stale rescore,
// matching the programmatic surface's run_daily_batch.
func (r *Runner) RunDaily(ctx context.Context) (queue Result, stale Result, totalDurationMS int64) {
	start := time.Now()
	queue = r.ProcessScoreEventQueue(ctx)
	stale = r.BatchRecalculateStaleScores(ctx)
	return queue, stale, time.Since(start).Milliseconds()
}
