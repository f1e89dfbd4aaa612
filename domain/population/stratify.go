package population

import (
	"fmt"
	"sort"
	"strings"

	"samplekit/internal/errors"
)

// Stratum is one cell of a partition: the composite key and the positions
// of the units that fall into it. Partitions are disjoint and exhaustive
// over the source population, derived per sampling call and then discarded.
type Stratum struct {
	Key       string
	Positions []int
}

// Size returns the number of units in the stratum.
func (s Stratum) Size() int {
	return len(s.Positions)
}

// Stratify partitions a population by one or more covariates. Multiple
// variables form a composite key joined with "_". Units missing any of the
// stratification variables are grouped under their rendered (empty) label
// so the partition stays exhaustive. Strata are returned largest first,
// ties broken by key, so allocation remainders land deterministically.
func Stratify(p *Population, by []string) ([]Stratum, error) {
	if len(by) == 0 {
		return nil, errors.New(errors.CodeConfiguration, "stratification requires at least one variable")
	}
	for _, name := range by {
		if !p.Has(name) {
			return nil, errors.New(errors.CodeConfiguration, fmt.Sprintf("stratification variable %q not found", name))
		}
	}

	buckets := make(map[string][]int)
	for i := 0; i < p.Size(); i++ {
		u := p.Unit(i)
		parts := make([]string, len(by))
		for j, name := range by {
			parts[j] = u.Value(name).Label()
		}
		key := strings.Join(parts, "_")
		buckets[key] = append(buckets[key], i)
	}

	strata := make([]Stratum, 0, len(buckets))
	for key, positions := range buckets {
		strata = append(strata, Stratum{Key: key, Positions: positions})
	}
	sort.Slice(strata, func(i, j int) bool {
		if len(strata[i].Positions) != len(strata[j].Positions) {
			return len(strata[i].Positions) > len(strata[j].Positions)
		}
		return strata[i].Key < strata[j].Key
	})
	return strata, nil
}

// ClusterBy partitions a population by a single cluster key. Clusters are
// the first-stage sampling unit in cluster sampling; mechanically the
// partition is a one-variable stratification.
func ClusterBy(p *Population, key string) ([]Stratum, error) {
	return Stratify(p, []string{key})
}
