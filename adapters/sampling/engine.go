// Package sampling implements the four probability-sampling strategies and
// the two-arm allocator. Every draw is deterministic given the caller's
// RandomSource; the engine itself is stateless.
package sampling

import (
	"samplekit/domain/core"
	"samplekit/domain/design"
	"samplekit/domain/population"
	"samplekit/internal"
	"samplekit/internal/errors"
	"samplekit/internal/stats"
)

// strategy is the single entry contract shared by the four sampling
// algorithms. The set is closed; Engine.Sample matches the method
// exhaustively and rejects anything else before dispatch.
type strategy interface {
	draw(pop *population.Population, n int, opts design.Options, rng *core.RandomSource) (*design.SampleRecord, error)
}

// Engine dispatches sampling calls to the strategy selected in Options.
type Engine struct{}

// NewEngine creates a sampling engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Sample draws n units from the population using the configured method and
// returns the record plus strategy-specific diagnostics. For the Cluster
// method the first-stage size comes from Options.ClusterCount and n bounds
// nothing; every other method enforces 0 < n ≤ N.
func (e *Engine) Sample(pop *population.Population, n int, opts design.Options, rng *core.RandomSource) (*design.SampleRecord, error) {
	if pop == nil {
		return nil, errors.New(errors.CodeConfiguration, "population is required")
	}
	if rng == nil {
		return nil, errors.New(errors.CodeConfiguration, "random source is required: ambient randomness is not supported")
	}
	opts = opts.WithDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	var s strategy
	switch opts.Method {
	case design.SimpleRandom:
		s = simpleRandomStrategy{}
	case design.Stratified:
		s = stratifiedStrategy{}
	case design.Systematic:
		s = systematicStrategy{}
	case design.Cluster:
		s = clusterStrategy{}
	default:
		// Unreachable: Validate already rejected the method.
		return nil, errors.Newf(errors.CodeConfiguration, "unknown sampling method %q", opts.Method)
	}
	rec, err := s.draw(pop, n, opts, rng)
	if err != nil {
		return nil, err
	}
	logSoftWarnings(rec)
	return rec, nil
}

// logSoftWarnings surfaces tripped diagnostic flags at WARN. They never
// fail the draw; the record carries the numbers for the caller to judge.
func logSoftWarnings(rec *design.SampleRecord) {
	log := internal.DefaultLogger
	for _, r := range rec.Diagnostics.Representativeness {
		if !r.Representative {
			log.Warn("sample %s: covariate %q not representative (std diff %.4f)",
				rec.ID, r.Covariate, r.StdDifference)
		}
	}
	for _, e := range rec.Diagnostics.Efficiency {
		if e.LessEfficient {
			log.Warn("sample %s: stratification less efficient than simple random for %q (%.1f%%)",
				rec.ID, e.OutcomeVariable, e.GainPercent)
		}
	}
	if p := rec.Diagnostics.Periodicity; p != nil && p.Detected {
		log.Warn("sample %s: periodicity detected in %q at interval %d (r=%.4f)",
			rec.ID, p.Variable, p.Interval, p.Autocorrelation)
	}
	for _, c := range rec.Diagnostics.ClusterEffects {
		if c.HighDesignEffect {
			log.Warn("sample %s: high design effect for %q (deff=%.2f, effective n=%.0f)",
				rec.ID, c.OutcomeVariable, c.DesignEffect, c.EffectiveSampleSize)
		}
	}
}

// checkSize enforces 0 < n ≤ available for without-replacement draws.
func checkSize(n, available int) error {
	if n <= 0 {
		return errors.Newf(errors.CodeInvalidSampleSize, "sample size %d must be positive", n)
	}
	if n > available {
		return errors.Newf(errors.CodeInvalidSampleSize,
			"sample size %d exceeds available units %d", n, available)
	}
	return nil
}

// drawPositions selects count positions uniformly without replacement.
func drawPositions(rng *core.RandomSource, positions []int, count int) []int {
	perm := rng.Perm(len(positions))
	out := make([]int, count)
	for i := 0; i < count; i++ {
		out[i] = positions[perm[i]]
	}
	return out
}

// numericColumnAt returns the complete-case values of a covariate over the
// given positions.
func numericColumnAt(pop *population.Population, positions []int, name string) []float64 {
	out := make([]float64, 0, len(positions))
	for _, i := range positions {
		if v, ok := pop.Unit(i).Numeric(name); ok {
			out = append(out, v)
		}
	}
	return out
}

// requireNumeric fails with a configuration error when a diagnostic
// references a covariate that is absent or not numeric.
func requireNumeric(pop *population.Population, name, role string) error {
	kind, ok := pop.Kind(name)
	if !ok {
		return errors.Newf(errors.CodeConfiguration, "%s variable %q not found", role, name)
	}
	if kind != population.ValueNumeric {
		return errors.Newf(errors.CodeConfiguration, "%s variable %q is not numeric", role, name)
	}
	return nil
}

// representativeness compares sample and population means for each check
// covariate in population standard-deviation units.
func representativeness(pop *population.Population, selected []int, covariates []string, threshold float64) ([]design.Representativeness, error) {
	if len(covariates) == 0 {
		return nil, nil
	}
	out := make([]design.Representativeness, 0, len(covariates))
	for _, name := range covariates {
		if err := requireNumeric(pop, name, "representativeness check"); err != nil {
			return nil, err
		}
		popValues, err := pop.NumericColumn(name)
		if err != nil {
			return nil, err
		}
		sampleValues := numericColumnAt(pop, selected, name)

		d := stats.StandardizedDiff(sampleValues, popValues)
		popMean := mean(popValues)
		sampleMean := mean(sampleValues)

		out = append(out, design.Representativeness{
			Covariate:      name,
			PopulationMean: popMean,
			SampleMean:     sampleMean,
			StdDifference:  d,
			Representative: abs(d) < threshold,
		})
	}
	return out, nil
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
