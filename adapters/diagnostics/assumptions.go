package diagnostics

import (
	"math"

	mstats "github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"samplekit/internal/errors"
)

// NormalityResult is the outcome of a D'Agostino K-squared test on one
// variable.
type NormalityResult struct {
	Statistic float64 `json:"statistic"`
	PValue    float64 `json:"p_value"`
	Skewness  float64 `json:"skewness"`
	Kurtosis  float64 `json:"kurtosis"`
	Normal    bool    `json:"normal"`
	N         int     `json:"n"`
}

// CheckNormality runs D'Agostino's K-squared omnibus test, combining the
// skewness and kurtosis transforms into a chi-square statistic with two
// degrees of freedom. The transforms are unstable below eight
// observations, so smaller inputs are rejected.
func CheckNormality(data []float64, alpha float64) (NormalityResult, error) {
	if len(data) < 8 {
		return NormalityResult{}, errors.New(errors.CodeConfiguration,
			"normality test requires at least eight observations")
	}
	if alpha <= 0 || alpha >= 1 {
		alpha = 0.05
	}

	n := float64(len(data))
	mean, _ := mstats.Mean(data)
	sd, _ := mstats.StandardDeviation(data)
	if sd == 0 || math.IsNaN(sd) {
		return NormalityResult{}, errors.New(errors.CodeConfiguration,
			"normality test requires variation in the data")
	}

	g1 := skewness(data, mean, sd)
	g2 := kurtosis(data, mean, sd)

	// Skewness transform to Z1 (D'Agostino).
	y := g1 * math.Sqrt((n+1)*(n+3)/(6*(n-2)))
	beta2 := (3 * (n*n + 27*n - 70) * (n + 1) * (n + 3)) / ((n - 2) * (n + 5) * (n + 7) * (n + 9))
	w2 := -1 + math.Sqrt(2*(beta2-1))
	delta := 1 / math.Sqrt(math.Log(math.Sqrt(w2)))
	a := math.Sqrt(2 / (w2 - 1))
	ay := y / a
	z1 := delta * math.Log(ay+math.Sqrt(ay*ay+1))

	// Kurtosis transform to Z2 (Anscombe-Glynn), on total kurtosis.
	e := 3 * (n - 1) / (n + 1)
	v := 24 * n * (n - 2) * (n - 3) / ((n + 1) * (n + 1) * (n + 3) * (n + 5))
	x := (g2 - e) / math.Sqrt(v)

	sqrtBeta1 := 6 * (n*n - 5*n + 2) / ((n + 7) * (n + 9)) *
		math.Sqrt(6*(n+3)*(n+5)/(n*(n-2)*(n-3)))
	ak := 6 + 8/sqrtBeta1*(2/sqrtBeta1+math.Sqrt(1+4/(sqrtBeta1*sqrtBeta1)))

	term := 1 - 2/(9*ak)
	den := 1 + x*math.Sqrt(2/(ak-4))
	var z2 float64
	if den <= 0 {
		z2 = math.Inf(1)
	} else {
		z2 = (term - math.Cbrt((1-2/ak)/den)) / math.Sqrt(2/(9*ak))
	}

	k2 := z1*z1 + z2*z2
	p := distuv.ChiSquared{K: 2}.Survival(k2)

	return NormalityResult{
		Statistic: k2,
		PValue:    p,
		Skewness:  g1,
		Kurtosis:  g2 - 3,
		Normal:    p > alpha,
		N:         len(data),
	}, nil
}

// skewness is the adjusted Fisher-Pearson coefficient.
func skewness(data []float64, mean, sd float64) float64 {
	n := float64(len(data))
	var sum float64
	for _, x := range data {
		d := (x - mean) / sd
		sum += d * d * d
	}
	return sum / n * math.Sqrt(n*(n-1)) / (n - 2)
}

// kurtosis returns bias-corrected total (not excess) kurtosis.
func kurtosis(data []float64, mean, sd float64) float64 {
	n := float64(len(data))
	var sum float64
	for _, x := range data {
		d := (x - mean) / sd
		sum += d * d * d * d
	}
	k := sum / n
	k = k*(n-1)/((n-2)*(n-3)) + 6/(n+1)
	return k + 3
}

// LeveneResult is the outcome of a homogeneity-of-variance test.
type LeveneResult struct {
	W             float64 `json:"w"`
	PValue        float64 `json:"p_value"`
	DFBetween     int     `json:"df_between"`
	DFWithin      int     `json:"df_within"`
	EqualVariance bool    `json:"equal_variance"`
}

// LeveneTest checks variance homogeneity across groups using the
// Brown-Forsythe variant: a one-way ANOVA on absolute deviations from
// group medians. Median centering keeps the test robust under skew.
func LeveneTest(groups [][]float64, alpha float64) (LeveneResult, error) {
	if len(groups) < 2 {
		return LeveneResult{}, errors.New(errors.CodeConfiguration,
			"levene test requires at least two groups")
	}
	if alpha <= 0 || alpha >= 1 {
		alpha = 0.05
	}

	deviations := make([][]float64, len(groups))
	totalN := 0
	for i, g := range groups {
		if len(g) < 2 {
			return LeveneResult{}, errors.New(errors.CodeConfiguration,
				"levene test requires at least two observations per group")
		}
		med, _ := mstats.Median(g)
		dev := make([]float64, len(g))
		for j, x := range g {
			dev[j] = math.Abs(x - med)
		}
		deviations[i] = dev
		totalN += len(g)
	}

	k := len(groups)
	dfBetween := k - 1
	dfWithin := totalN - k

	groupMeans := make([]float64, k)
	var grandSum float64
	for i, dev := range deviations {
		m, _ := mstats.Mean(dev)
		groupMeans[i] = m
		grandSum += m * float64(len(dev))
	}
	grandMean := grandSum / float64(totalN)

	var ssBetween, ssWithin float64
	for i, dev := range deviations {
		d := groupMeans[i] - grandMean
		ssBetween += float64(len(dev)) * d * d
		for _, z := range dev {
			e := z - groupMeans[i]
			ssWithin += e * e
		}
	}

	if ssWithin == 0 {
		p := 1.0
		if ssBetween > 0 {
			p = 0
		}
		return LeveneResult{
			W: math.Inf(1), PValue: p,
			DFBetween: dfBetween, DFWithin: dfWithin,
			EqualVariance: p > alpha,
		}, nil
	}

	w := (ssBetween / float64(dfBetween)) / (ssWithin / float64(dfWithin))
	p := distuv.F{D1: float64(dfBetween), D2: float64(dfWithin)}.Survival(w)

	return LeveneResult{
		W:             w,
		PValue:        p,
		DFBetween:     dfBetween,
		DFWithin:      dfWithin,
		EqualVariance: p > alpha,
	}, nil
}

// DurbinWatson measures first-order autocorrelation in an ordered residual
// sequence. Values near 2 indicate independence; toward 0, positive
// autocorrelation; toward 4, negative.
func DurbinWatson(residuals []float64) (float64, error) {
	if len(residuals) < 2 {
		return 0, errors.New(errors.CodeConfiguration,
			"durbin-watson requires at least two residuals")
	}
	var num, den float64
	for i, e := range residuals {
		den += e * e
		if i > 0 {
			d := e - residuals[i-1]
			num += d * d
		}
	}
	if den == 0 {
		return 2, nil
	}
	return num / den, nil
}
