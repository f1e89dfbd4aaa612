package ports

import (
	"samplekit/domain/core"
	"samplekit/domain/design"
	"samplekit/domain/population"
)

// Sampler draws probability samples from a population
type Sampler interface {
	Sample(pop *population.Population, n int, opts design.Options, rng *core.RandomSource) (*design.SampleRecord, error)
}

// ArmAllocator assigns disjoint treatment and control arms
type ArmAllocator interface {
	Allocate(pop *population.Population, treatmentN, controlN int, opts design.Options, rng *core.RandomSource) (*design.Allocation, error)
}
