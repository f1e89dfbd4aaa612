package sampling

import (
	"math"

	mstats "github.com/montanaflynn/stats"

	"samplekit/domain/core"
	"samplekit/domain/design"
	"samplekit/domain/population"
	"samplekit/internal/errors"
)

// stratifiedStrategy partitions the population into strata and draws a
// simple random sample inside each, with the per-stratum sizes set by the
// allocation policy.
type stratifiedStrategy struct{}

func (stratifiedStrategy) draw(pop *population.Population, n int, opts design.Options, rng *core.RandomSource) (*design.SampleRecord, error) {
	N := pop.Size()
	if err := checkSize(n, N); err != nil {
		return nil, err
	}

	strata, err := population.Stratify(pop, opts.StratifyBy)
	if err != nil {
		return nil, err
	}

	sizes, err := allocate(strata, n, opts)
	if err != nil {
		return nil, err
	}

	selections := make([]design.Selection, 0, n)
	for i, stratum := range strata {
		nh := sizes[i]
		if nh == 0 {
			continue
		}
		if nh > stratum.Size() {
			return nil, errors.Newf(errors.CodeStratumExhausted,
				"stratum %q has %d units, %d requested", stratum.Key, stratum.Size(), nh)
		}
		prob := float64(nh) / float64(stratum.Size())
		for _, p := range drawPositions(rng, stratum.Positions, nh) {
			selections = append(selections, design.Selection{
				UnitID:        pop.Unit(p).Key,
				Position:      p,
				InclusionProb: prob,
				Stratum:       stratum.Key,
			})
		}
	}

	efficiency, err := stratificationEfficiency(pop, strata, sizes, n, opts.OutcomeVariables)
	if err != nil {
		return nil, err
	}

	return &design.SampleRecord{
		ID:             core.SampleID(core.NewID()),
		Method:         design.Stratified,
		PopulationSize: N,
		Selections:     selections,
		Diagnostics:    design.Diagnostics{Efficiency: efficiency},
	}, nil
}

// allocate computes per-stratum sample sizes for the configured policy.
// Strata arrive largest first, so remainder corrections land on the
// largest strata and every count stays within ±1 of its exact share.
func allocate(strata []population.Stratum, n int, opts design.Options) ([]int, error) {
	H := len(strata)
	total := 0
	for _, s := range strata {
		total += s.Size()
	}

	sizes := make([]int, H)
	switch opts.Allocation {
	case design.AllocProportional:
		allocated := 0
		for i, s := range strata {
			nh := int(math.Round(float64(n) * float64(s.Size()) / float64(total)))
			sizes[i] = nh
			allocated += nh
		}
		// Rounding drift: force Σn_h = n one unit at a time, largest
		// strata first, skipping any stratum already at capacity.
		for allocated != n {
			moved := false
			for i := range sizes {
				if allocated < n && sizes[i] < strata[i].Size() {
					sizes[i]++
					allocated++
					moved = true
				} else if allocated > n && sizes[i] > 0 {
					sizes[i]--
					allocated--
					moved = true
				}
				if allocated == n {
					break
				}
			}
			if !moved {
				return nil, errors.Newf(errors.CodeStratumExhausted,
					"cannot allocate %d units across %d strata", n, H)
			}
		}

	case design.AllocEqual:
		base, remainder := n/H, n%H
		for i := range sizes {
			sizes[i] = base
			if i < remainder {
				sizes[i]++
			}
		}

	case design.AllocCustom:
		sum := 0
		byKey := make(map[string]int, H)
		for i, s := range strata {
			byKey[s.Key] = i
		}
		for key, nh := range opts.CustomAllocation {
			i, ok := byKey[key]
			if !ok {
				return nil, errors.Newf(errors.CodeConfiguration,
					"custom allocation references unknown stratum %q", key)
			}
			if nh < 0 {
				return nil, errors.Newf(errors.CodeConfiguration,
					"custom allocation for stratum %q is negative", key)
			}
			sizes[i] = nh
			sum += nh
		}
		if sum != n {
			return nil, errors.Newf(errors.CodeConfiguration,
				"custom allocation sums to %d, want %d", sum, n)
		}
	}
	return sizes, nil
}

// stratificationEfficiency approximates the variance of the mean estimator
// under the stratified design, Σ (N_h/N)²·(1−n_h/N_h)·S_h²/n_h, against
// the simple-random analogue at equal total size, and reports the relative
// gain as a signed percentage.
func stratificationEfficiency(pop *population.Population, strata []population.Stratum, sizes []int, n int, outcomes []string) ([]design.StratificationEfficiency, error) {
	if len(outcomes) == 0 {
		return nil, nil
	}
	N := float64(pop.Size())

	out := make([]design.StratificationEfficiency, 0, len(outcomes))
	for _, name := range outcomes {
		if err := requireNumeric(pop, name, "efficiency outcome"); err != nil {
			return nil, err
		}

		var varStrat float64
		for i, stratum := range strata {
			nh := float64(sizes[i])
			if nh == 0 {
				continue
			}
			values := numericColumnAt(pop, stratum.Positions, name)
			if len(values) < 2 {
				continue
			}
			sh2, _ := mstats.SampleVariance(values)
			Nh := float64(stratum.Size())
			weight := (Nh / N) * (Nh / N)
			varStrat += weight * (1 - nh/Nh) * sh2 / nh
		}

		popValues, err := pop.NumericColumn(name)
		if err != nil {
			return nil, err
		}
		s2, _ := mstats.SampleVariance(popValues)
		varSRS := (1 - float64(n)/N) * s2 / float64(n)

		gain := 0.0
		if varStrat > 0 {
			gain = (varSRS/varStrat - 1) * 100
		}

		out = append(out, design.StratificationEfficiency{
			OutcomeVariable:    name,
			StratifiedVariance: varStrat,
			SRSVariance:        varSRS,
			GainPercent:        gain,
			LessEfficient:      gain < 0,
		})
	}
	return out, nil
}
