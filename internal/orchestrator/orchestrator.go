// Package orchestrator glues the input assembler, scoring engine, and
// score writer into a single per-deal recalculation, tolerant of any
// failure along the way.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/dealscore/internal/assembler"
	"github.com/sawpanic/dealscore/internal/scoring"
	"github.com/sawpanic/dealscore/internal/writer"
)

// Options configures a single recalculation.
type Options struct {
	// SkipTerminal, when true (the default), returns without writing for
	// deals already in a terminal status (accepted, closed_lost).
	SkipTerminal bool
}

// DefaultOptions mirrors the programmatic surface's documented default.
func DefaultOptions() Options {
	return Options{SkipTerminal: true}
}

// Orchestrator recalculates one deal's score at a time, converting every
// failure into a logged nil result rather than propagating it.
type Orchestrator struct {
	assembler *assembler.Assembler
	writer    *writer.Writer
	now       func() time.Time
}

// New creates an Orchestrator. now defaults to time.Now if nil.
func New(a *assembler.Assembler, w *writer.Writer, now func() time.Time) *Orchestrator {
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{assembler: a, writer: w, now: now}
}

// Outcome distinguishes a skipped terminal-status deal from an actual
// assemble/write failure, which the plain *ScoringResult return cannot —
// the batch runner needs this to report accurate succeeded/failed/skipped
// counts.
type Outcome struct {
	Result  *scoring.ScoringResult
	Skipped bool
	Err     error
}

// Recalculate assembles, scores, and writes a single deal. Scoring
// failures must never break the caller's primary flow (e.g. invite
// acceptance): any error is logged and nil is returned instead of err.
func (o *Orchestrator) Recalculate(ctx context.Context, dealID int64, triggerSource string, opts Options) *scoring.ScoringResult {
	return o.recalculate(ctx, dealID, triggerSource, opts).Result
}

func (o *Orchestrator) recalculate(ctx context.Context, dealID int64, triggerSource string, opts Options) Outcome {
	now := o.now()

	in, err := o.assembler.Assemble(ctx, dealID, now)
	if err != nil {
		log.Error().Int64("deal_id", dealID).Str("trigger_source", triggerSource).Err(err).Msg("recalculate: failed to assemble scoring input")
		return Outcome{Err: err}
	}

	if opts.SkipTerminal && (in.Deal.Status == scoring.StatusAccepted || in.Deal.Status == scoring.StatusClosedLost) {
		return Outcome{Skipped: true}
	}

	result := scoring.Compute(in)

	runID := uuid.New()
	if err := o.writer.Write(ctx, dealID, result, runID, triggerSource, now); err != nil {
		log.Error().Int64("deal_id", dealID).Str("trigger_source", triggerSource).Err(err).Msg("recalculate: failed to write score")
		return Outcome{Err: err}
	}

	return Outcome{Result: &result}
}

// RecalculateMany runs Recalculate for every id concurrently and returns
// results in the same order as ids (nil entries mark skipped/failed
// deals).
func (o *Orchestrator) RecalculateMany(ctx context.Context, ids []int64, triggerSource string) []*scoring.ScoringResult {
	outcomes := o.RecalculateManyOutcomes(ctx, ids, triggerSource)
	results := make([]*scoring.ScoringResult, len(outcomes))
	for i, oc := range outcomes {
		results[i] = oc.Result
	}
	return results
}

// RecalculateManyOutcomes is RecalculateMany with skip/error distinction
// preserved, for callers (the batch runner) that must report accurate
// succeeded/failed/skipped counts.
func (o *Orchestrator) RecalculateManyOutcomes(ctx context.Context, ids []int64, triggerSource string) []Outcome {
	outcomes := make([]Outcome, len(ids))

	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id int64) {
			defer wg.Done()
			outcomes[i] = o.recalculate(ctx, id, triggerSource, DefaultOptions())
		}(i, id)
	}
	wg.Wait()

	return outcomes
}
