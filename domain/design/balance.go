package design

import (
	"sort"

	"samplekit/domain/core"
)

// CovariateType distinguishes the two balance comparisons.
type CovariateType string

const (
	CovariateNumeric     CovariateType = "numeric"
	CovariateCategorical CovariateType = "categorical"
)

// CovariateBalance is one covariate's comparison between arms: an effect
// size (standardized mean difference for numeric, Cramér's V for
// categorical), the paired hypothesis test, and the verdict. Degenerate
// comparisons are annotated, never raised.
type CovariateBalance struct {
	Covariate  string        `json:"covariate"`
	Type       CovariateType `json:"type"`
	EffectSize float64       `json:"effect_size"`
	Statistic  float64       `json:"statistic"`
	PValue     float64       `json:"p_value"`
	CILower    float64       `json:"ci_lower,omitempty"`
	CIUpper    float64       `json:"ci_upper,omitempty"`

	TreatmentMean float64 `json:"treatment_mean,omitempty"`
	ControlMean   float64 `json:"control_mean,omitempty"`
	TreatmentN    int     `json:"treatment_n"`
	ControlN      int     `json:"control_n"`

	Balanced   bool   `json:"balanced"`
	Degenerate bool   `json:"degenerate,omitempty"`
	Note       string `json:"note,omitempty"`
}

// AbsEffect returns |effect size|.
func (b CovariateBalance) AbsEffect() float64 {
	if b.EffectSize < 0 {
		return -b.EffectSize
	}
	return b.EffectSize
}

// Tier is the categorical label mapped from the composite balance score.
type Tier string

const (
	TierExcellent  Tier = "Excellent"
	TierGood       Tier = "Good"
	TierAcceptable Tier = "Acceptable"
	TierPoor       Tier = "Poor"
)

// TierFor maps a composite score in [0, 100] to its tier.
func TierFor(score float64) Tier {
	switch {
	case score >= 90:
		return TierExcellent
	case score >= 70:
		return TierGood
	case score >= 50:
		return TierAcceptable
	default:
		return TierPoor
	}
}

// Recommendation returns the operator guidance for a tier.
func (t Tier) Recommendation() string {
	switch t {
	case TierExcellent:
		return "Groups are well-balanced. Proceed with analysis."
	case TierGood:
		return "Groups show good balance. Report any imbalanced covariates."
	case TierAcceptable:
		return "Some imbalance detected. Consider covariate adjustment or propensity scores."
	default:
		return "Significant imbalance detected. Adjustment methods (ANCOVA, propensity scores, matching) strongly recommended."
	}
}

// BalanceReport is the terminal artifact of one assessment: per-covariate
// entries in input order, the same entries ordered by descending |effect|
// for Love-plot style display, and the composite verdict.
type BalanceReport struct {
	ID              core.ReportID      `json:"id"`
	Entries         []CovariateBalance `json:"entries"`
	EffectMagnitude []CovariateBalance `json:"effect_magnitude"`
	BalancedCount   int                `json:"balanced_count"`
	Score           float64            `json:"score"`
	Tier            Tier               `json:"tier"`
	Recommendation  string             `json:"recommendation"`
}

// NewBalanceReport assembles the report from covariate entries. The effect
// magnitude ordering is independent of verdicts so the largest imbalance
// always surfaces first; ties break on covariate name for determinism.
func NewBalanceReport(entries []CovariateBalance) *BalanceReport {
	balanced := 0
	for _, e := range entries {
		if e.Balanced {
			balanced++
		}
	}

	score := 0.0
	if len(entries) > 0 {
		score = 100 * float64(balanced) / float64(len(entries))
	}
	tier := TierFor(score)

	byMagnitude := make([]CovariateBalance, len(entries))
	copy(byMagnitude, entries)
	sort.SliceStable(byMagnitude, func(i, j int) bool {
		if byMagnitude[i].AbsEffect() != byMagnitude[j].AbsEffect() {
			return byMagnitude[i].AbsEffect() > byMagnitude[j].AbsEffect()
		}
		return byMagnitude[i].Covariate < byMagnitude[j].Covariate
	})

	return &BalanceReport{
		ID:              core.ReportID(core.NewID()),
		Entries:         entries,
		EffectMagnitude: byMagnitude,
		BalancedCount:   balanced,
		Score:           score,
		Tier:            tier,
		Recommendation:  tier.Recommendation(),
	}
}
