package sampling

import (
	"math"

	"samplekit/domain/core"
	"samplekit/domain/design"
	"samplekit/domain/population"
	"samplekit/internal/errors"
	"samplekit/internal/stats"
)

// clusterStrategy performs two-stage sampling: a simple random draw of m
// clusters, then a within-cluster policy over each selected cluster.
type clusterStrategy struct{}

func (clusterStrategy) draw(pop *population.Population, n int, opts design.Options, rng *core.RandomSource) (*design.SampleRecord, error) {
	clusters, err := population.ClusterBy(pop, opts.ClusterBy)
	if err != nil {
		return nil, err
	}

	M := len(clusters)
	m := opts.ClusterCount
	if m > M {
		return nil, errors.Newf(errors.CodeInvalidSampleSize,
			"cluster count %d exceeds available clusters %d", m, M)
	}

	// First stage: simple random over clusters.
	clusterIdx := make([]int, M)
	for i := range clusterIdx {
		clusterIdx[i] = i
	}
	selectedIdx := drawPositions(rng, clusterIdx, m)
	firstStageProb := float64(m) / float64(M)

	selectedTotal := 0
	for _, ci := range selectedIdx {
		selectedTotal += clusters[ci].Size()
	}

	selections := make([]design.Selection, 0)
	groups := make([][]int, 0, m)
	for _, ci := range selectedIdx {
		cluster := clusters[ci]
		size := cluster.Size()

		var take int
		switch opts.WithinCluster {
		case design.WithinTakeAll:
			take = size
		case design.WithinProportional:
			take = int(math.Round(opts.WithinClusterFraction * float64(size)))
			if take < 1 {
				take = 1
			}
			if take > size {
				take = size
			}
		case design.WithinFixedSize:
			take = opts.WithinClusterSize
			if take > size {
				return nil, errors.Newf(errors.CodeInvalidSampleSize,
					"cluster %q has %d units, fixed size %d requested", cluster.Key, size, take)
			}
		}

		var positions []int
		if take == size {
			positions = cluster.Positions
		} else {
			positions = drawPositions(rng, cluster.Positions, take)
		}
		groups = append(groups, positions)

		prob := firstStageProb * float64(take) / float64(size)
		for _, p := range positions {
			selections = append(selections, design.Selection{
				UnitID:        pop.Unit(p).Key,
				Position:      p,
				InclusionProb: prob,
				Cluster:       cluster.Key,
			})
		}
	}

	effects, err := clusterEffects(pop, groups, len(selections), opts.OutcomeVariables)
	if err != nil {
		return nil, err
	}

	return &design.SampleRecord{
		ID:             core.SampleID(core.NewID()),
		Method:         design.Cluster,
		PopulationSize: pop.Size(),
		Selections:     selections,
		Diagnostics:    design.Diagnostics{ClusterEffects: effects},
	}, nil
}

// clusterEffects computes the one-way-ANOVA intraclass correlation and
// design effect over the selected clusters for each outcome variable.
// Positive ICC always degrades efficiency against an equal-size simple
// random sample, so DEFF above 1.5 carries a warning flag.
func clusterEffects(pop *population.Population, groups [][]int, sampleSize int, outcomes []string) ([]design.ClusterEffect, error) {
	if len(outcomes) == 0 || len(groups) < 2 {
		return nil, nil
	}

	meanSize := float64(sampleSize) / float64(len(groups))

	out := make([]design.ClusterEffect, 0, len(outcomes))
	for _, name := range outcomes {
		if err := requireNumeric(pop, name, "cluster outcome"); err != nil {
			return nil, err
		}

		values := make([][]float64, len(groups))
		for i, g := range groups {
			values[i] = numericColumnAt(pop, g, name)
		}

		anova, err := stats.OneWayANOVA(values)
		if err != nil {
			// Not enough variation to decompose; report nothing rather
			// than a fabricated correlation.
			continue
		}

		icc := stats.ICC(anova, meanSize)
		deff := stats.DesignEffect(icc, meanSize)
		ess := float64(sampleSize)
		if deff > 0 {
			ess = float64(sampleSize) / deff
		}

		out = append(out, design.ClusterEffect{
			OutcomeVariable:     name,
			ICC:                 icc,
			DesignEffect:        deff,
			MeanClusterSize:     meanSize,
			EffectiveSampleSize: ess,
			HighDesignEffect:    deff > design.DefaultDesignEffectWarning,
		})
	}
	return out, nil
}
