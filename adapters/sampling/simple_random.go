package sampling

import (
	"math"

	"samplekit/domain/core"
	"samplekit/domain/design"
	"samplekit/domain/population"
)

// simpleRandomStrategy draws n units uniformly, giving every unit an equal
// inclusion probability of n/N (EPSEM).
type simpleRandomStrategy struct{}

func (simpleRandomStrategy) draw(pop *population.Population, n int, opts design.Options, rng *core.RandomSource) (*design.SampleRecord, error) {
	N := pop.Size()
	if err := checkSize(n, withReplacementBound(n, N, opts.WithReplacement)); err != nil {
		return nil, err
	}

	var positions []int
	var prob float64
	if opts.WithReplacement {
		positions = make([]int, n)
		for i := range positions {
			positions[i] = rng.Intn(N)
		}
		// P(selected at least once) under n independent uniform draws.
		prob = 1 - math.Pow(1-1/float64(N), float64(n))
	} else {
		all := make([]int, N)
		for i := range all {
			all[i] = i
		}
		positions = drawPositions(rng, all, n)
		prob = float64(n) / float64(N)
	}

	selections := make([]design.Selection, len(positions))
	for i, p := range positions {
		selections[i] = design.Selection{
			UnitID:        pop.Unit(p).Key,
			Position:      p,
			InclusionProb: prob,
		}
	}

	rep, err := representativeness(pop, positions, opts.CheckCovariates, opts.RepresentativenessThreshold)
	if err != nil {
		return nil, err
	}

	return &design.SampleRecord{
		ID:             core.SampleID(core.NewID()),
		Method:         design.SimpleRandom,
		PopulationSize: N,
		Selections:     selections,
		Diagnostics:    design.Diagnostics{Representativeness: rep},
	}, nil
}

// withReplacementBound lifts the n ≤ N constraint when duplicates are
// explicitly requested.
func withReplacementBound(n, N int, replace bool) int {
	if replace && n > N {
		return n
	}
	return N
}
