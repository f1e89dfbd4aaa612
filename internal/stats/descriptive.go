// Package stats holds the shared statistical primitives behind the
// sampling diagnostics and balance assessment: effect sizes, hypothesis
// tests, and the one-way ANOVA machinery for intraclass correlation.
package stats

import (
	"math"

	mstats "github.com/montanaflynn/stats"
)

// PooledSD returns the pooled standard deviation of two groups,
// weighting each sample variance by its degrees of freedom.
func PooledSD(a, b []float64) float64 {
	n1, n2 := float64(len(a)), float64(len(b))
	if n1+n2 < 3 {
		return 0
	}
	v1, _ := mstats.SampleVariance(a)
	v2, _ := mstats.SampleVariance(b)
	return math.Sqrt(((n1-1)*v1 + (n2-1)*v2) / (n1 + n2 - 2))
}

// SMD returns the standardized mean difference (mean(a) − mean(b)) over
// the pooled standard deviation. Zero spread yields zero rather than a
// fabricated effect.
func SMD(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	pooled := PooledSD(a, b)
	if pooled == 0 {
		return 0
	}
	m1, _ := mstats.Mean(a)
	m2, _ := mstats.Mean(b)
	return (m1 - m2) / pooled
}

// StandardizedDiff returns (mean(sample) − mean(pop)) in population
// standard-deviation units, the representativeness measure for a single
// covariate.
func StandardizedDiff(sample, pop []float64) float64 {
	if len(sample) == 0 || len(pop) < 2 {
		return 0
	}
	popSD, _ := mstats.StandardDeviationSample(pop)
	if popSD == 0 {
		return 0
	}
	ms, _ := mstats.Mean(sample)
	mp, _ := mstats.Mean(pop)
	return (ms - mp) / popSD
}

// Autocorrelation returns the autocorrelation of the sequence at the given
// lag, computed against the full-series mean.
func Autocorrelation(data []float64, lag int) float64 {
	if lag <= 0 || len(data) <= lag {
		return 0
	}

	mean, _ := mstats.Mean(data)
	n := len(data) - lag

	var numerator, denom1, denom2 float64
	for i := 0; i < n; i++ {
		d1 := data[i] - mean
		d2 := data[i+lag] - mean
		numerator += d1 * d2
		denom1 += d1 * d1
		denom2 += d2 * d2
	}
	if denom1 == 0 || denom2 == 0 {
		return 0
	}
	return numerator / math.Sqrt(denom1*denom2)
}

// LaggedCorrelation is Autocorrelation over a series with gaps: present
// marks which indices hold an observation, and a pair contributes only
// when both of its endpoints are present. Gaps break pairs instead of
// compressing the series, so the lag stays positional.
func LaggedCorrelation(values []float64, present []bool, lag int) float64 {
	if lag <= 0 || len(values) <= lag || len(present) != len(values) {
		return 0
	}

	var sum float64
	var count int
	for i, ok := range present {
		if ok {
			sum += values[i]
			count++
		}
	}
	if count == 0 {
		return 0
	}
	mean := sum / float64(count)

	var numerator, denom1, denom2 float64
	pairs := 0
	for i := 0; i+lag < len(values); i++ {
		if !present[i] || !present[i+lag] {
			continue
		}
		d1 := values[i] - mean
		d2 := values[i+lag] - mean
		numerator += d1 * d2
		denom1 += d1 * d1
		denom2 += d2 * d2
		pairs++
	}
	if pairs == 0 || denom1 == 0 || denom2 == 0 {
		return 0
	}
	return numerator / math.Sqrt(denom1*denom2)
}
