package balance

import (
	"context"
	"runtime"
	"sort"

	mstats "github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"

	"samplekit/domain/design"
	"samplekit/domain/population"
	"samplekit/internal/errors"
	"samplekit/internal/stats"
)

// parallelThreshold is the covariate count above which per-covariate
// comparisons run concurrently. Each comparison is independent, so the
// report is identical either way.
const parallelThreshold = 8

// Assessor compares covariate distributions between the two arms of an
// allocation and renders a composite balance verdict.
type Assessor struct{}

// NewAssessor builds a balance assessor.
func NewAssessor() *Assessor {
	return &Assessor{}
}

// Assess checks each named covariate for balance between the treatment and
// control arms. Numeric covariates get a standardized mean difference plus
// Welch's t-test; categorical ones get chi-square with Cramér's V.
// Degenerate comparisons (too few observations, no variation) produce an
// annotated pass rather than an error. An unknown covariate is the one
// hard failure.
func (a *Assessor) Assess(ctx context.Context, pop *population.Population, alloc *design.Allocation, covariates []string, thresholds design.Thresholds) (*design.BalanceReport, error) {
	if pop == nil || alloc == nil {
		return nil, errors.New(errors.CodeConfiguration, "population and allocation are required")
	}
	if len(covariates) == 0 {
		covariates = pop.Covariates()
	}
	for _, name := range covariates {
		if !pop.Has(name) {
			return nil, errors.Newf(errors.CodeConfiguration, "balance covariate %q not found", name)
		}
	}
	thresholds = thresholds.WithDefaults()

	treatment := armPositions(pop, alloc.Treatment)
	control := armPositions(pop, alloc.Control)

	entries := make([]design.CovariateBalance, len(covariates))

	if len(covariates) < parallelThreshold {
		for i, name := range covariates {
			entries[i] = a.compare(pop, treatment, control, name, thresholds)
		}
	} else {
		g, _ := errgroup.WithContext(ctx)
		g.SetLimit(runtime.GOMAXPROCS(0))
		for i, name := range covariates {
			i, name := i, name
			g.Go(func() error {
				entries[i] = a.compare(pop, treatment, control, name, thresholds)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	return design.NewBalanceReport(entries), nil
}

// compare runs the single-covariate comparison appropriate to its type.
func (a *Assessor) compare(pop *population.Population, treatment, control []int, name string, thresholds design.Thresholds) design.CovariateBalance {
	kind, _ := pop.Kind(name)
	if kind == population.ValueNumeric {
		return compareNumeric(pop, treatment, control, name, thresholds)
	}
	return compareCategorical(pop, treatment, control, name, thresholds)
}

func compareNumeric(pop *population.Population, treatment, control []int, name string, thresholds design.Thresholds) design.CovariateBalance {
	tv := numericAt(pop, treatment, name)
	cv := numericAt(pop, control, name)

	entry := design.CovariateBalance{
		Covariate:  name,
		Type:       design.CovariateNumeric,
		TreatmentN: len(tv),
		ControlN:   len(cv),
	}

	if len(tv) < 2 || len(cv) < 2 {
		entry.PValue = 1
		entry.Balanced = true
		entry.Degenerate = true
		entry.Note = "insufficient observations for comparison"
		return entry
	}

	entry.TreatmentMean, _ = mstats.Mean(tv)
	entry.ControlMean, _ = mstats.Mean(cv)

	if constant(tv) && constant(cv) {
		// Identical constants carry no evidence either way. Separated
		// constants are a certain difference: the standardized effect is
		// unbounded there, so the verdict fails outright and the arm
		// means carry the gap.
		if tv[0] == cv[0] {
			entry.PValue = 1
			entry.Balanced = true
			entry.Degenerate = true
			entry.Note = "insufficient variation for comparison"
			return entry
		}
		entry.PValue = 0
		entry.Balanced = false
		entry.Note = "arms are constant at different values"
		return entry
	}

	entry.EffectSize = stats.SMD(tv, cv)

	test, err := stats.WelchTTest(tv, cv, thresholds.Alpha)
	if err != nil {
		entry.PValue = 1
		entry.Balanced = true
		entry.Degenerate = true
		entry.Note = "insufficient variation for comparison"
		return entry
	}

	entry.Statistic = test.T
	entry.PValue = test.PValue
	entry.CILower = test.CILower
	entry.CIUpper = test.CIUpper
	// Numeric balance is an effect-size judgment: a large sample can make
	// a trivial difference significant, so the p-value is reported but the
	// verdict rides on the standardized mean difference alone.
	entry.Balanced = abs(entry.EffectSize) < thresholds.SMD
	return entry
}

func compareCategorical(pop *population.Population, treatment, control []int, name string, thresholds design.Thresholds) design.CovariateBalance {
	tCounts := categoryCounts(pop, treatment, name)
	cCounts := categoryCounts(pop, control, name)

	entry := design.CovariateBalance{
		Covariate:  name,
		Type:       design.CovariateCategorical,
		TreatmentN: total(tCounts),
		ControlN:   total(cCounts),
	}

	table, ok := contingencyTable(tCounts, cCounts)
	if !ok {
		entry.PValue = 1
		entry.Balanced = true
		entry.Degenerate = true
		entry.Note = "insufficient variation for comparison"
		return entry
	}

	test, err := stats.ChiSquareIndependence(table)
	if err != nil {
		entry.PValue = 1
		entry.Balanced = true
		entry.Degenerate = true
		entry.Note = "insufficient variation for comparison"
		return entry
	}

	entry.Statistic = test.Chi2
	entry.PValue = test.PValue
	entry.EffectSize = test.CramersV
	entry.Balanced = test.PValue > thresholds.Alpha && test.CramersV < thresholds.CategoricalEffect
	return entry
}

// armPositions resolves an arm's unit IDs back to population positions.
// Units drawn with replacement can repeat; each occurrence counts.
func armPositions(pop *population.Population, arm *design.SampleRecord) []int {
	out := make([]int, 0, arm.Size())
	for _, sel := range arm.Selections {
		if p, ok := pop.Position(sel.UnitID); ok {
			out = append(out, p)
		}
	}
	return out
}

func constant(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}

func numericAt(pop *population.Population, positions []int, name string) []float64 {
	out := make([]float64, 0, len(positions))
	for _, i := range positions {
		if v, ok := pop.Unit(i).Numeric(name); ok {
			out = append(out, v)
		}
	}
	return out
}

func categoryCounts(pop *population.Population, positions []int, name string) map[string]float64 {
	counts := make(map[string]float64)
	for _, i := range positions {
		if c, ok := pop.Unit(i).Categorical(name); ok {
			counts[c]++
		}
	}
	return counts
}

func total(counts map[string]float64) int {
	var n float64
	for _, c := range counts {
		n += c
	}
	return int(n)
}

// contingencyTable builds a categories-by-arms count table over the union
// of observed categories, sorted for determinism. Tables with fewer than
// two non-empty categories or a zero-sum column are degenerate.
func contingencyTable(tCounts, cCounts map[string]float64) ([][]float64, bool) {
	seen := make(map[string]struct{}, len(tCounts)+len(cCounts))
	for c := range tCounts {
		seen[c] = struct{}{}
	}
	for c := range cCounts {
		seen[c] = struct{}{}
	}

	categories := make([]string, 0, len(seen))
	for c := range seen {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	if len(categories) < 2 {
		return nil, false
	}

	var tTotal, cTotal float64
	table := make([][]float64, 0, len(categories))
	for _, c := range categories {
		row := []float64{tCounts[c], cCounts[c]}
		tTotal += row[0]
		cTotal += row[1]
		table = append(table, row)
	}
	if tTotal == 0 || cTotal == 0 {
		return nil, false
	}
	return table, true
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
