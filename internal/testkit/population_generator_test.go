package testkit

import (
	"testing"

	"samplekit/domain/population"
)

func TestGenerate_SizeAndSchema(t *testing.T) {
	gen := NewPopulationGenerator(PopulationConfig{Size: 500, Seed: 42})
	pop, err := gen.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if pop.Size() != 500 {
		t.Fatalf("size = %d, want 500", pop.Size())
	}

	wantKinds := map[string]population.ValueKind{
		"age":             population.ValueNumeric,
		"income":          population.ValueNumeric,
		"income_level":    population.ValueCategorical,
		"location":        population.ValueCategorical,
		"total_orders":    population.ValueNumeric,
		"avg_order_value": population.ValueNumeric,
		"conversion_rate": population.ValueNumeric,
		"lifetime_value":  population.ValueNumeric,
	}
	for name, want := range wantKinds {
		got, ok := pop.Kind(name)
		if !ok {
			t.Errorf("covariate %q missing", name)
			continue
		}
		if got != want {
			t.Errorf("covariate %q kind %s, want %s", name, got, want)
		}
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	a, err := NewPopulationGenerator(PopulationConfig{Size: 200, Seed: 7}).Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	b, err := NewPopulationGenerator(PopulationConfig{Size: 200, Seed: 7}).Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	for i := 0; i < a.Size(); i++ {
		ua, ub := a.Unit(i), b.Unit(i)
		if ua.Key != ub.Key {
			t.Fatalf("unit %d key diverged: %s vs %s", i, ua.Key, ub.Key)
		}
		for _, name := range Covariates() {
			if ua.Value(name) != ub.Value(name) {
				t.Fatalf("unit %d covariate %q diverged", i, name)
			}
		}
	}
}

func TestGenerate_ValueRanges(t *testing.T) {
	pop, err := NewPopulationGenerator(PopulationConfig{Size: 1000, Seed: 42}).Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	ages, err := pop.NumericColumn("age")
	if err != nil {
		t.Fatalf("NumericColumn: %v", err)
	}
	for _, a := range ages {
		if a < 18 || a > 85 {
			t.Fatalf("age %v out of [18, 85]", a)
		}
	}

	levels := map[string]bool{}
	for i := 0; i < pop.Size(); i++ {
		if l, ok := pop.Unit(i).Categorical("income_level"); ok {
			levels[l] = true
		}
	}
	for _, want := range []string{"Low", "Medium", "High"} {
		if !levels[want] {
			t.Errorf("income level %q never generated", want)
		}
	}
}

func TestGenerate_MissingRate(t *testing.T) {
	pop, err := NewPopulationGenerator(PopulationConfig{Size: 1000, Seed: 42, MissingRate: 0.2}).Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	incomes, err := pop.NumericColumn("income")
	if err != nil {
		t.Fatalf("NumericColumn: %v", err)
	}
	missing := pop.Size() - len(incomes)
	if missing < 100 || missing > 300 {
		t.Errorf("missing incomes = %d of 1000, want roughly 200", missing)
	}
}
