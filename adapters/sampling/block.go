package sampling

import (
	"sort"

	mstats "github.com/montanaflynn/stats"

	"samplekit/domain/core"
	"samplekit/domain/design"
	"samplekit/domain/population"
	"samplekit/internal/errors"
	"samplekit/internal/stats"
)

// AllocateBlocked draws a randomized block allocation: the population is
// partitioned by the blocking variables and every block contributes the
// same number of units to each arm. Block membership therefore cannot
// confound the arm contrast. A block too small to fill both arms fails
// with StratumExhausted rather than shrinking silently.
func (a *Allocator) AllocateBlocked(pop *population.Population, blockBy []string, perBlockArm int, rng *core.RandomSource) (*design.Allocation, error) {
	if pop == nil {
		return nil, errors.New(errors.CodeConfiguration, "population is required")
	}
	if rng == nil {
		return nil, errors.New(errors.CodeConfiguration, "random source is required: ambient randomness is not supported")
	}
	if perBlockArm <= 0 {
		return nil, errors.Newf(errors.CodeInvalidSampleSize,
			"per-block arm size %d must be positive", perBlockArm)
	}

	blocks, err := population.Stratify(pop, blockBy)
	if err != nil {
		return nil, err
	}

	treatment := &design.SampleRecord{
		ID:             core.SampleID(core.NewID()),
		Method:         design.Stratified,
		PopulationSize: pop.Size(),
	}
	control := &design.SampleRecord{
		ID:             core.SampleID(core.NewID()),
		Method:         design.Stratified,
		PopulationSize: pop.Size(),
	}

	need := 2 * perBlockArm
	for _, block := range blocks {
		if need > block.Size() {
			return nil, errors.Newf(errors.CodeStratumExhausted,
				"block %q has %d units, %d needed for both arms", block.Key, block.Size(), need)
		}

		prob := float64(perBlockArm) / float64(block.Size())
		drawn := drawPositions(rng, block.Positions, need)
		for i, p := range drawn {
			sel := design.Selection{
				UnitID:        pop.Unit(p).Key,
				Position:      p,
				InclusionProb: prob,
				Stratum:       block.Key,
			}
			if i < perBlockArm {
				treatment.Selections = append(treatment.Selections, sel)
			} else {
				control.Selections = append(control.Selections, sel)
			}
		}
	}

	return &design.Allocation{
		ID:        core.AllocationID(core.NewID()),
		Treatment: treatment,
		Control:   control,
	}, nil
}

// BlockEffects runs the randomized-block ANOVA for each outcome variable
// over a blocked allocation: cell values are the per-block arm means, so
// the arm contrast is tested against the residual after the block effect
// is removed. Blocks where either arm carries no observations drop out;
// an outcome with fewer than two usable blocks reports nothing rather
// than a fabricated decomposition.
func (a *Allocator) BlockEffects(pop *population.Population, alloc *design.Allocation, outcomes []string) ([]design.BlockEffect, error) {
	if pop == nil || alloc == nil {
		return nil, errors.New(errors.CodeConfiguration, "population and allocation are required")
	}
	if len(outcomes) == 0 {
		return nil, nil
	}

	blocks := blockPositions(alloc)

	out := make([]design.BlockEffect, 0, len(outcomes))
	for _, name := range outcomes {
		if err := requireNumeric(pop, name, "block outcome"); err != nil {
			return nil, err
		}

		cells := make([][]float64, 0, len(blocks))
		for _, arms := range blocks {
			tv := numericColumnAt(pop, arms[0], name)
			cv := numericColumnAt(pop, arms[1], name)
			if len(tv) == 0 || len(cv) == 0 {
				continue
			}
			tMean, _ := mstats.Mean(tv)
			cMean, _ := mstats.Mean(cv)
			cells = append(cells, []float64{tMean, cMean})
		}

		result, err := stats.RCBDANOVA(cells)
		if err != nil {
			continue
		}

		out = append(out, design.BlockEffect{
			OutcomeVariable:    name,
			TreatmentF:         result.TreatmentF,
			TreatmentP:         result.TreatmentP,
			BlockF:             result.BlockF,
			BlockP:             result.BlockP,
			Blocks:             result.Blocks,
			RelativeEfficiency: result.RelativeEfficiency,
		})
	}
	return out, nil
}

// blockPositions groups an allocation's selections by their stratum tag,
// split into treatment and control position lists. Blocks are ordered by
// tag for determinism.
func blockPositions(alloc *design.Allocation) [][2][]int {
	keys := make([]string, 0)
	byKey := make(map[string]*[2][]int)

	add := func(selections []design.Selection, arm int) {
		for _, sel := range selections {
			arms, ok := byKey[sel.Stratum]
			if !ok {
				arms = &[2][]int{}
				byKey[sel.Stratum] = arms
				keys = append(keys, sel.Stratum)
			}
			arms[arm] = append(arms[arm], sel.Position)
		}
	}
	add(alloc.Treatment.Selections, 0)
	add(alloc.Control.Selections, 1)

	sort.Strings(keys)
	out := make([][2][]int, 0, len(keys))
	for _, k := range keys {
		out = append(out, *byKey[k])
	}
	return out
}
