package diagnostics

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"samplekit/internal/errors"
)

var stdNormal = distuv.Normal{Mu: 0, Sigma: 1}

// PowerTwoSampleTTest approximates the power of a two-sided, two-sample
// t-test at effect size d (Cohen's d) with the given per-group sizes.
// Uses the normal approximation; adequate for planning-scale n.
func PowerTwoSampleTTest(d float64, n1, n2 int, alpha float64) (float64, error) {
	if n1 < 2 || n2 < 2 {
		return 0, errors.New(errors.CodeInvalidSampleSize,
			"power calculation requires at least two observations per group")
	}
	if alpha <= 0 || alpha >= 1 {
		return 0, errors.New(errors.CodeConfiguration, "alpha must lie in (0, 1)")
	}

	f1, f2 := float64(n1), float64(n2)
	ncp := math.Abs(d) * math.Sqrt(f1*f2/(f1+f2))
	zCrit := stdNormal.Quantile(1 - alpha/2)
	return stdNormal.CDF(ncp - zCrit), nil
}

// SampleSizeTwoSampleTTest returns the per-group sample size for a
// two-sided, two-sample t-test to reach the target power at effect size d.
// Ratio is n2/n1; the returned size is n1 (scale by ratio for the second
// group). Includes the usual z-squared correction so the normal
// approximation tracks the exact t-based size.
func SampleSizeTwoSampleTTest(d, power, alpha, ratio float64) (int, error) {
	if d == 0 {
		return 0, errors.New(errors.CodeConfiguration, "effect size must be non-zero")
	}
	if power <= 0 || power >= 1 {
		return 0, errors.New(errors.CodeConfiguration, "power must lie in (0, 1)")
	}
	if alpha <= 0 || alpha >= 1 {
		return 0, errors.New(errors.CodeConfiguration, "alpha must lie in (0, 1)")
	}
	if ratio <= 0 {
		ratio = 1
	}

	zAlpha := stdNormal.Quantile(1 - alpha/2)
	zBeta := stdNormal.Quantile(power)

	n := (1 + 1/ratio) * math.Pow(zAlpha+zBeta, 2) / (d * d)
	n += zAlpha * zAlpha / 4
	return int(math.Ceil(n)), nil
}

// SampleSizeTwoProportions returns the per-group sample size to detect a
// difference between two proportions with a two-sided z-test.
func SampleSizeTwoProportions(p1, p2, power, alpha float64) (int, error) {
	if p1 <= 0 || p1 >= 1 || p2 <= 0 || p2 >= 1 {
		return 0, errors.New(errors.CodeConfiguration, "proportions must lie in (0, 1)")
	}
	if p1 == p2 {
		return 0, errors.New(errors.CodeConfiguration, "proportions must differ")
	}
	if power <= 0 || power >= 1 {
		return 0, errors.New(errors.CodeConfiguration, "power must lie in (0, 1)")
	}
	if alpha <= 0 || alpha >= 1 {
		return 0, errors.New(errors.CodeConfiguration, "alpha must lie in (0, 1)")
	}

	zAlpha := stdNormal.Quantile(1 - alpha/2)
	zBeta := stdNormal.Quantile(power)

	pBar := (p1 + p2) / 2
	num := zAlpha*math.Sqrt(2*pBar*(1-pBar)) + zBeta*math.Sqrt(p1*(1-p1)+p2*(1-p2))
	diff := p1 - p2
	return int(math.Ceil(num * num / (diff * diff))), nil
}

// MinimumDetectableEffect returns the smallest Cohen's d a two-sided,
// two-sample t-test can detect at the given power with equal group sizes.
func MinimumDetectableEffect(nPerGroup int, power, alpha float64) (float64, error) {
	if nPerGroup < 2 {
		return 0, errors.New(errors.CodeInvalidSampleSize,
			"effect calculation requires at least two observations per group")
	}
	if power <= 0 || power >= 1 {
		return 0, errors.New(errors.CodeConfiguration, "power must lie in (0, 1)")
	}
	if alpha <= 0 || alpha >= 1 {
		return 0, errors.New(errors.CodeConfiguration, "alpha must lie in (0, 1)")
	}

	zAlpha := stdNormal.Quantile(1 - alpha/2)
	zBeta := stdNormal.Quantile(power)
	return (zAlpha + zBeta) * math.Sqrt(2/float64(nPerGroup)), nil
}
