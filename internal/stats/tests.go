package stats

import (
	"math"

	mstats "github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"samplekit/internal/errors"
)

// TTestResult holds a two-sample Welch's t-test outcome.
type TTestResult struct {
	T        float64
	DF       float64
	PValue   float64
	MeanDiff float64
	CILower  float64
	CIUpper  float64
	N1, N2   int
}

// WelchTTest runs Welch's unequal-variance t-test between two groups with
// a two-sided p-value and a (1−alpha) confidence interval for the mean
// difference. Groups need at least two observations each.
func WelchTTest(a, b []float64, alpha float64) (TTestResult, error) {
	if len(a) < 2 || len(b) < 2 {
		return TTestResult{}, errors.New(errors.CodeConfiguration,
			"welch t-test requires at least two observations per group")
	}
	if alpha <= 0 || alpha >= 1 {
		alpha = 0.05
	}

	n1, n2 := float64(len(a)), float64(len(b))
	m1, _ := mstats.Mean(a)
	m2, _ := mstats.Mean(b)
	v1, _ := mstats.SampleVariance(a)
	v2, _ := mstats.SampleVariance(b)

	diff := m1 - m2
	se := math.Sqrt(v1/n1 + v2/n2)

	result := TTestResult{MeanDiff: diff, N1: len(a), N2: len(b)}

	if se == 0 {
		// Both groups are constant. Equal constants carry no evidence of
		// a difference; unequal constants are a certain one.
		if diff == 0 {
			result.PValue = 1
			result.DF = n1 + n2 - 2
			return result, nil
		}
		result.T = math.Inf(sign(diff))
		result.DF = n1 + n2 - 2
		result.PValue = 0
		result.CILower, result.CIUpper = diff, diff
		return result, nil
	}

	// Welch–Satterthwaite degrees of freedom.
	df := math.Pow(v1/n1+v2/n2, 2) /
		(math.Pow(v1/n1, 2)/(n1-1) + math.Pow(v2/n2, 2)/(n2-1))

	t := diff / se
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p := 2 * dist.Survival(math.Abs(t))
	if p > 1 {
		p = 1
	}
	tCrit := dist.Quantile(1 - alpha/2)

	result.T = t
	result.DF = df
	result.PValue = p
	result.CILower = diff - tCrit*se
	result.CIUpper = diff + tCrit*se
	return result, nil
}

func sign(v float64) int {
	if v < 0 {
		return -1
	}
	return 1
}

// ChiSquareResult holds a chi-square test of independence outcome.
type ChiSquareResult struct {
	Chi2     float64
	DF       int
	PValue   float64
	CramersV float64
	N        int
}

// ChiSquareIndependence tests independence over a contingency table given
// as rows of counts. The caller must strip degenerate tables first (fewer
// than two non-empty rows or columns); this routine refuses them rather
// than fabricating a p-value.
func ChiSquareIndependence(table [][]float64) (ChiSquareResult, error) {
	rows := len(table)
	if rows < 2 {
		return ChiSquareResult{}, errors.New(errors.CodeConfiguration,
			"chi-square requires at least two non-empty categories")
	}
	cols := len(table[0])
	if cols < 2 {
		return ChiSquareResult{}, errors.New(errors.CodeConfiguration,
			"chi-square requires at least two groups")
	}

	rowSums := make([]float64, rows)
	colSums := make([]float64, cols)
	var total float64
	for i, row := range table {
		if len(row) != cols {
			return ChiSquareResult{}, errors.New(errors.CodeConfiguration, "ragged contingency table")
		}
		for j, count := range row {
			rowSums[i] += count
			colSums[j] += count
			total += count
		}
	}
	for _, s := range rowSums {
		if s == 0 {
			return ChiSquareResult{}, errors.New(errors.CodeConfiguration, "contingency table has a zero-sum row")
		}
	}
	for _, s := range colSums {
		if s == 0 {
			return ChiSquareResult{}, errors.New(errors.CodeConfiguration, "contingency table has a zero-sum column")
		}
	}

	var chi2 float64
	for i := range table {
		for j := range table[i] {
			expected := rowSums[i] * colSums[j] / total
			d := table[i][j] - expected
			chi2 += d * d / expected
		}
	}

	df := (rows - 1) * (cols - 1)
	p := distuv.ChiSquared{K: float64(df)}.Survival(chi2)
	if p > 1 {
		p = 1
	}

	minDim := rows - 1
	if cols-1 < minDim {
		minDim = cols - 1
	}
	v := 0.0
	if minDim > 0 && total > 0 {
		v = math.Sqrt(chi2 / (total * float64(minDim)))
	}

	return ChiSquareResult{
		Chi2:     chi2,
		DF:       df,
		PValue:   p,
		CramersV: v,
		N:        int(total),
	}, nil
}
