package stats

import (
	mstats "github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"samplekit/internal/errors"
)

// ANOVAResult holds the one-way analysis-of-variance decomposition used by
// the cluster-sampling diagnostics.
type ANOVAResult struct {
	MSBetween float64
	MSWithin  float64
	F         float64
	PValue    float64
	DFBetween int
	DFWithin  int
	Groups    int
	TotalN    int
}

// OneWayANOVA decomposes variance across groups. At least two groups with
// data and more observations than groups are required.
func OneWayANOVA(groups [][]float64) (ANOVAResult, error) {
	nonEmpty := 0
	totalN := 0
	for _, g := range groups {
		if len(g) > 0 {
			nonEmpty++
		}
		totalN += len(g)
	}
	if nonEmpty < 2 {
		return ANOVAResult{}, errors.New(errors.CodeConfiguration,
			"one-way ANOVA requires at least two non-empty groups")
	}
	if totalN <= nonEmpty {
		return ANOVAResult{}, errors.New(errors.CodeConfiguration,
			"one-way ANOVA requires more observations than groups")
	}

	var grandSum float64
	for _, g := range groups {
		for _, v := range g {
			grandSum += v
		}
	}
	grandMean := grandSum / float64(totalN)

	var ssBetween, ssWithin float64
	for _, g := range groups {
		if len(g) == 0 {
			continue
		}
		mean, _ := mstats.Mean(g)
		d := mean - grandMean
		ssBetween += float64(len(g)) * d * d
		for _, v := range g {
			dv := v - mean
			ssWithin += dv * dv
		}
	}

	dfBetween := nonEmpty - 1
	dfWithin := totalN - nonEmpty
	msBetween := ssBetween / float64(dfBetween)
	msWithin := ssWithin / float64(dfWithin)

	result := ANOVAResult{
		MSBetween: msBetween,
		MSWithin:  msWithin,
		DFBetween: dfBetween,
		DFWithin:  dfWithin,
		Groups:    nonEmpty,
		TotalN:    totalN,
	}

	if msWithin == 0 {
		// Perfectly homogeneous groups: any between-group spread is certain.
		if msBetween == 0 {
			result.PValue = 1
			return result, nil
		}
		result.F = 0 // F undefined; keep the decomposition, p reflects certainty
		result.PValue = 0
		return result, nil
	}

	result.F = msBetween / msWithin
	p := distuv.F{D1: float64(dfBetween), D2: float64(dfWithin)}.Survival(result.F)
	if p > 1 {
		p = 1
	}
	result.PValue = p
	return result, nil
}

// ICC returns the one-way-ANOVA intraclass correlation
// (MSB − MSW) / (MSB + (n̄−1)·MSW), clamped to [0, 1]; negative estimates
// are an artifact of sampling noise, not meaningful dissimilarity.
func ICC(a ANOVAResult, meanGroupSize float64) float64 {
	if meanGroupSize <= 1 {
		return 0
	}
	den := a.MSBetween + (meanGroupSize-1)*a.MSWithin
	if den == 0 {
		return 0
	}
	icc := (a.MSBetween - a.MSWithin) / den
	if icc < 0 {
		return 0
	}
	if icc > 1 {
		return 1
	}
	return icc
}

// DesignEffect returns DEFF = 1 + (n̄−1)·ICC, the variance inflation of a
// clustered design relative to simple random sampling of equal size.
func DesignEffect(icc, meanGroupSize float64) float64 {
	if meanGroupSize <= 1 {
		return 1
	}
	return 1 + (meanGroupSize-1)*icc
}
