// Package aggregation buckets the active pipeline into Closing Soon, In
// Pipeline, At Risk, and On Hold groups and projects near-term MRR from
// them.
package aggregation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sawpanic/dealscore/internal/persistence"
)

// Bucket name constants, also used as the map key in Summary.Buckets.
const (
	BucketClosingSoon = "closing_soon"
	BucketInPipeline  = "in_pipeline"
	BucketAtRisk      = "at_risk"
	BucketOnHold      = "on_hold"

	closingSoonMinConfidence = 70
	closingSoonMinAgeDays    = 14
	inPipelineMinConfidence  = 30
)

// BucketStats summarizes one pipeline bucket.
type BucketStats struct {
	Name              string  `json:"name"`
	Count             int     `json:"count"`
	RawMRR            float64 `json:"raw_mrr"`
	WeightedMRR       float64 `json:"weighted_mrr"`
	AverageConfidence int     `json:"average_confidence"`
}

// Summary is the full pipeline rollup across all four buckets.
type Summary struct {
	Buckets map[string]BucketStats `json:"buckets"`
	Total   BucketStats            `json:"total"`
}

// RevenueSummary projects near-term MRR growth from the pipeline,
// excluding At Risk and On Hold deals as conservative non-contributors.
type RevenueSummary struct {
	CurrentMRR        float64 `json:"current_mrr"`
	ActiveClientCount int     `json:"active_client_count"`
	ProjectedMRR      float64 `json:"projected_mrr"`
	PotentialGrowth   float64 `json:"potential_growth"`
}

// Aggregator computes pipeline bucket summaries and revenue projections
// from the set of active (non-archived, status=sent) deals.
type Aggregator struct {
	repos *persistence.Repository
	now   func() time.Time
}

// New creates an Aggregator. now defaults to time.Now if nil.
func New(repos *persistence.Repository, now func() time.Time) *Aggregator {
	if now == nil {
		now = time.Now
	}
	return &Aggregator{repos: repos, now: now}
}

// Summarize buckets every active sent deal and rolls up per-bucket MRR
// and confidence statistics.
func (a *Aggregator) Summarize(ctx context.Context) (Summary, error) {
	deals, err := a.repos.Deals.ListActiveSent(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to list active deals: %w", err)
	}
	return a.summarize(deals), nil
}

func (a *Aggregator) summarize(deals []persistence.Deal) Summary {
	now := a.now()
	grouped := map[string][]persistence.Deal{
		BucketClosingSoon: {},
		BucketInPipeline:  {},
		BucketAtRisk:      {},
		BucketOnHold:      {},
	}

	for _, d := range deals {
		bucket := bucketFor(d, now)
		grouped[bucket] = append(grouped[bucket], d)
	}

	summary := Summary{Buckets: make(map[string]BucketStats, 4)}
	var all []persistence.Deal
	for _, name := range []string{BucketClosingSoon, BucketInPipeline, BucketAtRisk, BucketOnHold} {
		summary.Buckets[name] = rollup(name, grouped[name])
		all = append(all, grouped[name]...)
	}
	summary.Total = rollup("total", all)

	return summary
}

// Filters narrows the deal list returned by Data. Zero values
// mean "no filter"; the aggregates and rep list always cover the whole
// active pipeline so the dashboard's rollups stay stable while filtering.
type Filters struct {
	Rep    string
	Bucket string
}

// DealView pairs a deal with the bucket it currently falls into.
type DealView struct {
	persistence.Deal
	Bucket string `json:"bucket"`
}

// PipelineData is the full dashboard payload: the (filtered) deal list,
// the bucket aggregates, and the distinct rep names for filter controls.
type PipelineData struct {
	Deals      []DealView `json:"deals"`
	Aggregates Summary    `json:"aggregates"`
	Reps       []string   `json:"reps"`
}

// Data lists active sent deals with their bucket placement, applying
// filters to the deal list only, and rolls up aggregates and reps over
// the unfiltered pipeline.
func (a *Aggregator) Data(ctx context.Context, f Filters) (PipelineData, error) {
	deals, err := a.repos.Deals.ListActiveSent(ctx)
	if err != nil {
		return PipelineData{}, fmt.Errorf("failed to list active deals: %w", err)
	}

	now := a.now()
	data := PipelineData{
		Deals:      []DealView{},
		Aggregates: a.summarize(deals),
	}

	repSet := make(map[string]bool)
	for _, d := range deals {
		if d.RepName != "" && !repSet[d.RepName] {
			repSet[d.RepName] = true
			data.Reps = append(data.Reps, d.RepName)
		}

		bucket := bucketFor(d, now)
		if f.Rep != "" && d.RepName != f.Rep {
			continue
		}
		if f.Bucket != "" && bucket != f.Bucket {
			continue
		}
		data.Deals = append(data.Deals, DealView{Deal: d, Bucket: bucket})
	}
	sort.Strings(data.Reps)

	return data, nil
}

// Revenue computes the projected-MRR summary from the current bucket
// state, per the conservative rule that only Closing Soon and In
// Pipeline weighted MRR contribute to the projection.
func (a *Aggregator) Revenue(ctx context.Context, currentMRR float64, activeClientCount int) (RevenueSummary, error) {
	summary, err := a.Summarize(ctx)
	if err != nil {
		return RevenueSummary{}, err
	}

	projected := currentMRR + summary.Buckets[BucketClosingSoon].WeightedMRR + summary.Buckets[BucketInPipeline].WeightedMRR

	return RevenueSummary{
		CurrentMRR:        currentMRR,
		ActiveClientCount: activeClientCount,
		ProjectedMRR:      projected,
		PotentialGrowth:   projected - currentMRR,
	}, nil
}

// bucketFor classifies a single deal per the fixed precedence: on hold,
// then closing soon, then in pipeline, else at risk.
func bucketFor(d persistence.Deal, now time.Time) string {
	if d.SnoozedUntil != nil && d.SnoozedUntil.After(now) {
		return BucketOnHold
	}

	anchor := d.SentAt
	if d.RevivedAt != nil {
		anchor = d.RevivedAt
	}
	ageDays := 0
	if anchor != nil {
		ageDays = int(now.Sub(*anchor).Hours() / 24)
	}

	if d.ConfidenceScore >= closingSoonMinConfidence && ageDays >= closingSoonMinAgeDays {
		return BucketClosingSoon
	}
	if d.ConfidenceScore >= inPipelineMinConfidence {
		return BucketInPipeline
	}
	return BucketAtRisk
}

// rollup folds a slice of deals into aggregate bucket statistics.
func rollup(name string, deals []persistence.Deal) BucketStats {
	stats := BucketStats{Name: name}
	if len(deals) == 0 {
		return stats
	}

	var confidenceSum int
	for _, d := range deals {
		stats.Count++
		stats.RawMRR += d.PredictedMonthly
		stats.WeightedMRR += d.WeightedMonthly
		confidenceSum += d.ConfidenceScore
	}
	stats.AverageConfidence = confidenceSum / stats.Count

	return stats
}
