package stats

import (
	"gonum.org/v1/gonum/stat/distuv"

	"samplekit/internal/errors"
)

// RCBDResult holds the two-way decomposition of a randomized complete
// block design with one observation per block-treatment cell: treatment
// and block effects tested against the residual, plus the relative
// efficiency of blocking over a completely randomized design of equal
// size.
type RCBDResult struct {
	TreatmentF  float64
	TreatmentP  float64
	BlockF      float64
	BlockP      float64
	MSTreatment float64
	MSBlock     float64
	MSError     float64
	Blocks      int
	Treatments  int

	// RelativeEfficiency > 1 means blocking bought precision; 1 means the
	// blocks were noise.
	RelativeEfficiency float64
}

// RCBDANOVA decomposes a blocks-by-treatments matrix of cell values. Rows
// are blocks, columns are treatments, and every row must carry the same
// number of columns. At least two blocks and two treatments are required.
func RCBDANOVA(cells [][]float64) (RCBDResult, error) {
	b := len(cells)
	if b < 2 {
		return RCBDResult{}, errors.New(errors.CodeConfiguration,
			"randomized block ANOVA requires at least two blocks")
	}
	t := len(cells[0])
	if t < 2 {
		return RCBDResult{}, errors.New(errors.CodeConfiguration,
			"randomized block ANOVA requires at least two treatments")
	}
	for _, row := range cells {
		if len(row) != t {
			return RCBDResult{}, errors.New(errors.CodeConfiguration,
				"randomized block ANOVA requires one cell per block-treatment pair")
		}
	}

	var grandSum float64
	for _, row := range cells {
		for _, v := range row {
			grandSum += v
		}
	}
	n := float64(b * t)
	grandMean := grandSum / n

	treatmentMeans := make([]float64, t)
	for j := 0; j < t; j++ {
		var sum float64
		for i := 0; i < b; i++ {
			sum += cells[i][j]
		}
		treatmentMeans[j] = sum / float64(b)
	}

	var ssTreatment, ssBlock, ssTotal float64
	for _, m := range treatmentMeans {
		d := m - grandMean
		ssTreatment += d * d
	}
	ssTreatment *= float64(b)

	for _, row := range cells {
		var sum float64
		for _, v := range row {
			sum += v
			d := v - grandMean
			ssTotal += d * d
		}
		d := sum/float64(t) - grandMean
		ssBlock += d * d
	}
	ssBlock *= float64(t)

	ssError := ssTotal - ssTreatment - ssBlock
	if ssError < 0 {
		ssError = 0
	}

	dfTreatment := t - 1
	dfBlock := b - 1
	dfError := dfTreatment * dfBlock

	result := RCBDResult{
		MSTreatment: ssTreatment / float64(dfTreatment),
		MSBlock:     ssBlock / float64(dfBlock),
		MSError:     ssError / float64(dfError),
		Blocks:      b,
		Treatments:  t,
	}

	if result.MSError == 0 {
		// Zero residual: any nonzero effect is certain, a zero effect is
		// indistinguishable from nothing. No residual means no efficiency
		// comparison either.
		result.TreatmentP = certainty(result.MSTreatment)
		result.BlockP = certainty(result.MSBlock)
		result.RelativeEfficiency = 1
		return result, nil
	}

	fTreatment := distuv.F{D1: float64(dfTreatment), D2: float64(dfError)}
	fBlock := distuv.F{D1: float64(dfBlock), D2: float64(dfError)}
	result.TreatmentF = result.MSTreatment / result.MSError
	result.BlockF = result.MSBlock / result.MSError
	result.TreatmentP = clampP(fTreatment.Survival(result.TreatmentF))
	result.BlockP = clampP(fBlock.Survival(result.BlockF))

	// Cochran's estimate of the error variance a completely randomized
	// design would have seen, over the RCBD residual.
	result.RelativeEfficiency = (float64(dfBlock)*result.MSBlock + float64(b*dfTreatment)*result.MSError) /
		(float64(b*t-1) * result.MSError)
	return result, nil
}

func certainty(ms float64) float64 {
	if ms > 0 {
		return 0
	}
	return 1
}

func clampP(p float64) float64 {
	if p > 1 {
		return 1
	}
	return p
}
