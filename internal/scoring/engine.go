package scoring

// Compute is the pure scoring function. It is infallible given a
// well-formed ScoringInput: unrecognized enum values degrade to 0
// contribution, nil timestamps are handled by the time helpers, and
// every clamp prevents over/undershoot. No error return, no panic path.
func Compute(in ScoringInput) ScoringResult {
	switch in.Deal.Status {
	case StatusClosedLost:
		return closedLostResult()
	case StatusAccepted:
		return acceptedResult(in.Deal)
	case StatusDraft:
		return draftResult(in)
	default:
		return fullResult(in)
	}
}

func closedLostResult() ScoringResult {
	return ScoringResult{}
}

func acceptedResult(deal DealSnapshot) ScoringResult {
	return ScoringResult{
		ConfidenceScore:   100,
		ConfidencePercent: 1,
		WeightedMonthly:   round2(deal.PredictedMonthly),
		WeightedOnetime:   round2(deal.PredictedOnetime),
		BaseScore:         100,
	}
}

func draftResult(in ScoringInput) ScoringResult {
	base := baseScore(in.CallScores, in.Config)
	return weightedFromBase(in.Deal, base, PenaltyBreakdown{})
}

func fullResult(in ScoringInput) ScoringResult {
	base := baseScore(in.CallScores, in.Config)

	emailPenalty := emailNotOpenedPenalty(in)
	viewPenalty := proposalNotViewedPenalty(in)
	silencePenalty := silencePenalty(in)
	bonus := multiInviteBonus(in.Invites, in.Config.MultiInviteBonus)

	result := ScoringResult{
		PenaltyBreakdown: PenaltyBreakdown{
			EmailNotOpened:    emailPenalty,
			ProposalNotViewed: viewPenalty,
			Silence:           silencePenalty,
			MultiInviteBonus:  bonus,
		},
		TotalPenalties:           round2(emailPenalty + viewPenalty + silencePenalty),
		TotalBonus:               bonus,
		PenaltyEmailNotOpened:    emailPenalty,
		PenaltyProposalNotViewed: viewPenalty,
		PenaltySilence:           silencePenalty,
	}

	raw := base - result.TotalPenalties + result.TotalBonus
	result.ConfidenceScore = roundInt(clamp(raw, 0, 100))
	result.ConfidencePercent = round2(float64(result.ConfidenceScore) / 100)
	result.WeightedMonthly = round2(in.Deal.PredictedMonthly * result.ConfidencePercent)
	result.WeightedOnetime = round2(in.Deal.PredictedOnetime * result.ConfidencePercent)
	result.BaseScore = float64(roundInt(base))

	return result
}

// weightedFromBase handles the no-penalty/no-bonus short circuits
// (draft) where confidence derives directly from the base score.
func weightedFromBase(deal DealSnapshot, base float64, breakdown PenaltyBreakdown) ScoringResult {
	confidence := roundInt(clamp(base, 0, 100))
	percent := round2(float64(confidence) / 100)

	return ScoringResult{
		ConfidenceScore:   confidence,
		ConfidencePercent: percent,
		WeightedMonthly:   round2(deal.PredictedMonthly * percent),
		WeightedOnetime:   round2(deal.PredictedOnetime * percent),
		BaseScore:         float64(roundInt(base)),
		PenaltyBreakdown:  breakdown,
	}
}

// baseScore sums the four weighted factor contributions when call scores
// are present, else falls back to the configured default base score.
func baseScore(calls *CallScores, cfg ScoringConfig) float64 {
	if calls == nil {
		return cfg.DefaultBaseScore
	}

	w := cfg.FactorWeights
	m := cfg.Mappings

	return w.BudgetClarity*mappingValue(m.BudgetClarity, string(calls.BudgetClarity)) +
		w.Competition*mappingValue(m.Competition, string(calls.Competition)) +
		w.Engagement*mappingValue(m.Engagement, string(calls.Engagement)) +
		w.PlanFit*mappingValue(m.PlanFit, string(calls.PlanFit))
}

func emailNotOpenedPenalty(in ScoringInput) float64 {
	if in.Invites.FirstEmailOpenedAt != nil {
		return 0
	}
	if in.Deal.SentAt == nil {
		return 0
	}

	cfg := in.Config.EmailNotOpened
	h := hoursBetween(in.Deal.SentAt, in.Now)
	if h <= cfg.GracePeriodHours {
		return 0
	}

	raw := ((h - cfg.GracePeriodHours) / 24) * cfg.DailyPenalty
	return clamp(raw, 0, cfg.MaxPenalty)
}

func proposalNotViewedPenalty(in ScoringInput) float64 {
	if in.Invites.FirstViewedAt != nil {
		return 0
	}

	anchor := earliestNonNil(in.Invites.FirstEmailOpenedAt, in.Invites.FirstAccountCreatedAt)
	if anchor == nil {
		return 0
	}

	cfg := in.Config.ProposalNotViewed
	h := hoursBetween(anchor, in.Now)
	if h <= cfg.GracePeriodHours {
		return 0
	}

	raw := ((h - cfg.GracePeriodHours) / 24) * cfg.DailyPenalty
	return clamp(raw, 0, cfg.MaxPenalty)
}

func silencePenalty(in ScoringInput) float64 {
	if in.Deal.SentAt == nil {
		return 0
	}

	anchor := in.Deal.SentAt
	if in.Communication.LastProspectContactAt != nil {
		anchor = in.Communication.LastProspectContactAt
	}

	cfg := in.Config.Silence
	d := daysBetween(anchor, in.Now)
	if d <= cfg.GracePeriodDays {
		return 0
	}

	effectiveDaily := cfg.DailyPenalty
	if in.Communication.FollowupCountSinceLastReply >= cfg.FollowupThreshold {
		effectiveDaily = cfg.DailyPenalty * cfg.FollowupMultiplier
	}

	raw := (d - cfg.GracePeriodDays) * effectiveDaily
	return clamp(raw, 0, cfg.MaxPenalty)
}

func multiInviteBonus(stats InviteStats, cfg MultiInviteBonusConfig) float64 {
	if stats.TotalInvites <= 1 {
		return 0
	}

	var bonus float64
	if stats.OpenedCount >= stats.TotalInvites {
		bonus += cfg.AllOpenedBonus
	}
	if stats.ViewedCount >= stats.TotalInvites {
		bonus += cfg.AllViewedBonus
	}
	return bonus
}
