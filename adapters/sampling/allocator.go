package sampling

import (
	"samplekit/domain/core"
	"samplekit/domain/design"
	"samplekit/domain/population"
	"samplekit/internal/errors"
)

// Allocator assigns experimental arms by drawing each arm as its own
// sample. The treatment arm is drawn first, its identities are removed
// from the population, and the control arm is drawn from the remainder
// under the same scheme. A single sample is never split after the fact.
type Allocator struct {
	engine *Engine
}

// NewAllocator builds an allocator over a sampling engine.
func NewAllocator(engine *Engine) *Allocator {
	return &Allocator{engine: engine}
}

// Allocate draws disjoint treatment and control arms of the requested
// sizes. Both arms use the same options, so a stratified allocation keeps
// both arms proportional to the same strata. Control selections are
// re-addressed to positions in the original population. Only simple random
// and stratified draws honor the requested arm sizes, so every other
// method is rejected up front.
func (a *Allocator) Allocate(pop *population.Population, treatmentN, controlN int, opts design.Options, rng *core.RandomSource) (*design.Allocation, error) {
	if pop == nil {
		return nil, errors.New(errors.CodeConfiguration, "population is required")
	}
	switch opts.Method {
	case design.SimpleRandom, design.Stratified:
	default:
		return nil, errors.Newf(errors.CodeConfiguration,
			"arm allocation requires simple random or stratified sampling, got %q", opts.Method)
	}
	if treatmentN <= 0 || controlN <= 0 {
		return nil, errors.Newf(errors.CodeInvalidSampleSize,
			"arm sizes must be positive, got treatment=%d control=%d", treatmentN, controlN)
	}
	if total := treatmentN + controlN; total > pop.Size() {
		return nil, errors.Newf(errors.CodeInvalidSampleSize,
			"arm sizes %d+%d exceed population size %d", treatmentN, controlN, pop.Size())
	}
	if opts.WithReplacement {
		return nil, errors.New(errors.CodeConfiguration,
			"arm allocation requires sampling without replacement")
	}

	treatment, err := a.engine.Sample(pop, treatmentN, opts, rng)
	if err != nil {
		return nil, errors.Wrap(err, "drawing treatment arm")
	}

	remainder, err := pop.Without(treatment.IDSet())
	if err != nil {
		return nil, err
	}

	control, err := a.engine.Sample(remainder, controlN, opts, rng)
	if err != nil {
		if errors.HasCode(err, errors.CodeStratumExhausted) {
			return nil, errors.Wrap(err,
				"drawing control arm after treatment removal depleted a stratum")
		}
		return nil, errors.Wrap(err, "drawing control arm")
	}

	// Control positions refer to the remainder population; re-address them
	// to the original so downstream consumers see one coordinate space.
	for i := range control.Selections {
		if p, ok := pop.Position(control.Selections[i].UnitID); ok {
			control.Selections[i].Position = p
		}
	}

	return &design.Allocation{
		ID:        core.AllocationID(core.NewID()),
		Treatment: treatment,
		Control:   control,
	}, nil
}
