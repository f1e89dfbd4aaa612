package population

import (
	"fmt"

	"samplekit/domain/core"
	"samplekit/internal/errors"
)

// Population is an ordered, read-only sequence of Units with unique
// identity keys. It is built once per run and never mutated; sampling
// engines address units by position.
type Population struct {
	covariates []string
	kinds      map[string]ValueKind
	units      []Unit
	index      map[core.UnitID]int
}

// New builds a Population from an ordered covariate list and unit sequence.
// Duplicate identity keys are rejected. Each covariate's kind is inferred
// from the observations: any categorical value makes the whole column
// categorical, otherwise it is numeric.
func New(covariates []string, units []Unit) (*Population, error) {
	if len(units) == 0 {
		return nil, errors.New(errors.CodeConfiguration, "population must contain at least one unit")
	}

	index := make(map[core.UnitID]int, len(units))
	for i, u := range units {
		if u.Key == "" {
			return nil, errors.New(errors.CodeConfiguration, fmt.Sprintf("unit at position %d has an empty key", i))
		}
		if prev, dup := index[u.Key]; dup {
			return nil, errors.New(errors.CodeConfiguration,
				fmt.Sprintf("duplicate unit key %q at positions %d and %d", u.Key, prev, i))
		}
		index[u.Key] = i
	}

	kinds := make(map[string]ValueKind, len(covariates))
	for _, name := range covariates {
		kinds[name] = inferKind(units, name)
	}

	names := make([]string, len(covariates))
	copy(names, covariates)

	return &Population{
		covariates: names,
		kinds:      kinds,
		units:      units,
		index:      index,
	}, nil
}

func inferKind(units []Unit, name string) ValueKind {
	kind := ValueMissing
	for _, u := range units {
		switch u.Value(name).Kind {
		case ValueCategorical:
			return ValueCategorical
		case ValueNumeric:
			kind = ValueNumeric
		}
	}
	return kind
}

// Size returns N, the number of units.
func (p *Population) Size() int {
	return len(p.units)
}

// Covariates returns the covariate names in their declared order.
func (p *Population) Covariates() []string {
	out := make([]string, len(p.covariates))
	copy(out, p.covariates)
	return out
}

// Has reports whether the population declares the named covariate.
func (p *Population) Has(name string) bool {
	_, ok := p.kinds[name]
	return ok
}

// Kind returns the inferred kind of the named covariate.
func (p *Population) Kind(name string) (ValueKind, bool) {
	k, ok := p.kinds[name]
	return k, ok
}

// Unit returns the unit at a position. Positions are stable for the life
// of the Population.
func (p *Population) Unit(i int) Unit {
	return p.units[i]
}

// Position returns the position of a unit key.
func (p *Population) Position(key core.UnitID) (int, bool) {
	i, ok := p.index[key]
	return i, ok
}

// NumericColumn returns the complete-case numeric observations for a
// covariate in population order. Missing and categorical observations are
// skipped (pairwise deletion, not global row deletion).
func (p *Population) NumericColumn(name string) ([]float64, error) {
	if !p.Has(name) {
		return nil, errors.New(errors.CodeConfiguration, fmt.Sprintf("covariate %q not found", name))
	}
	out := make([]float64, 0, len(p.units))
	for _, u := range p.units {
		if v, ok := u.Numeric(name); ok {
			out = append(out, v)
		}
	}
	return out, nil
}

// Without returns a new Population holding every unit whose key is not in
// the exclusion set, preserving the original order. Used by the arm
// allocator to draw the control arm from the post-treatment remainder.
func (p *Population) Without(exclude map[core.UnitID]struct{}) (*Population, error) {
	remaining := make([]Unit, 0, len(p.units)-len(exclude))
	for _, u := range p.units {
		if _, gone := exclude[u.Key]; !gone {
			remaining = append(remaining, u)
		}
	}
	return New(p.covariates, remaining)
}
