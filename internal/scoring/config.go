package scoring

import (
	"encoding/json"
	"fmt"
)

// ScoringConfig is the full configuration tree for Compute. It is
// loaded once per recalc from a JSON document; any parse failure or
// missing row falls back to DefaultConfig().
type ScoringConfig struct {
	FactorWeights    FactorWeights  `json:"factor_weights"`
	Mappings         FactorMappings `json:"mappings"`
	DefaultBaseScore float64        `json:"default_base_score"`

	EmailNotOpened    PenaltyConfig `json:"email_not_opened"`
	ProposalNotViewed PenaltyConfig `json:"proposal_not_viewed"`
	Silence           SilenceConfig `json:"silence"`

	MultiInviteBonus MultiInviteBonusConfig `json:"multi_invite_bonus"`
}

// FactorWeights are the per-factor weights applied to the base score.
// Default sums to 100.
type FactorWeights struct {
	BudgetClarity float64 `json:"budget_clarity"`
	Competition   float64 `json:"competition"`
	Engagement    float64 `json:"engagement"`
	PlanFit       float64 `json:"plan_fit"`
}

// FactorMappings maps each factor's enumerated values to a 0..1
// contribution multiplier. Unknown keys degrade to 0 (see mappingValue).
type FactorMappings struct {
	BudgetClarity map[string]float64 `json:"budget_clarity"`
	Competition   map[string]float64 `json:"competition"`
	Engagement    map[string]float64 `json:"engagement"`
	PlanFit       map[string]float64 `json:"plan_fit"`
}

// PenaltyConfig parameterizes the two grace-period/linear-decay
// penalties (email-not-opened, proposal-not-viewed).
type PenaltyConfig struct {
	GracePeriodHours float64 `json:"grace_period_hours"`
	DailyPenalty     float64 `json:"daily_penalty"`
	MaxPenalty       float64 `json:"max_penalty"`
}

// SilenceConfig parameterizes the silence penalty, including the
// follow-up acceleration multiplier.
type SilenceConfig struct {
	GracePeriodDays    float64 `json:"grace_period_days"`
	DailyPenalty       float64 `json:"daily_penalty"`
	MaxPenalty         float64 `json:"max_penalty"`
	FollowupThreshold  int     `json:"followup_threshold"`
	FollowupMultiplier float64 `json:"followup_multiplier"`
}

// MultiInviteBonusConfig parameterizes the additive multi-invite bonus.
type MultiInviteBonusConfig struct {
	AllOpenedBonus float64 `json:"all_opened_bonus"`
	AllViewedBonus float64 `json:"all_viewed_bonus"`
}

// DefaultConfig is the embedded fallback used whenever the persisted
// settings row is missing or fails to parse.
func DefaultConfig() ScoringConfig {
	return ScoringConfig{
		FactorWeights: FactorWeights{
			BudgetClarity: 25,
			Competition:   20,
			Engagement:    25,
			PlanFit:       30,
		},
		Mappings: FactorMappings{
			BudgetClarity: map[string]float64{
				"clear":     1.0,
				"vague":     0.5,
				"none":      0.2,
				"no_budget": 0,
			},
			Competition: map[string]float64{
				"none": 1.0,
				"some": 0.5,
				"many": 0.15,
			},
			Engagement: map[string]float64{
				"high":   1.0,
				"medium": 0.70,
				"low":    0.15,
			},
			PlanFit: map[string]float64{
				"strong": 1.0,
				"medium": 0.65,
				"weak":   0.25,
				"poor":   0,
			},
		},
		DefaultBaseScore: 50,
		EmailNotOpened: PenaltyConfig{
			GracePeriodHours: 48,
			DailyPenalty:     0.5,
			MaxPenalty:       25,
		},
		ProposalNotViewed: PenaltyConfig{
			GracePeriodHours: 120,
			DailyPenalty:     0.5,
			MaxPenalty:       20,
		},
		Silence: SilenceConfig{
			GracePeriodDays:    10,
			DailyPenalty:       1.2,
			MaxPenalty:         60,
			FollowupThreshold:  3,
			FollowupMultiplier: 1.5,
		},
		MultiInviteBonus: MultiInviteBonusConfig{
			AllOpenedBonus: 3,
			AllViewedBonus: 5,
		},
	}
}

// ParseConfig unmarshals a persisted JSON document into a ScoringConfig.
// Callers (the config store) are expected to fall back to DefaultConfig
// on error rather than propagate it — the engine itself never sees a
// malformed config.
func ParseConfig(raw []byte) (ScoringConfig, error) {
	var cfg ScoringConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return ScoringConfig{}, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}
	return cfg, nil
}

// mappingValue looks up a factor value in its mapping table, degrading
// to 0 for unrecognized values instead of erroring.
func mappingValue(mapping map[string]float64, value string) float64 {
	if mapping == nil {
		return 0
	}
	return mapping[value]
}
