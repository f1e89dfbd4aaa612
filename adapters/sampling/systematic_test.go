package sampling

import (
	"fmt"
	"math"
	"testing"

	"samplekit/domain/core"
	"samplekit/domain/design"
	"samplekit/domain/population"
)

func TestSystematic_EvenSpacing(t *testing.T) {
	values := make([]float64, 100)
	for i := range values {
		values[i] = float64(i)
	}
	pop := numericPop(t, values)

	rec, err := NewEngine().Sample(pop, 10, design.Options{Method: design.Systematic}, core.NewRandomSource(42))
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if rec.Size() != 10 {
		t.Fatalf("size = %d, want 10", rec.Size())
	}

	k := 10 // floor(100/10)
	start := rec.Selections[0].Position
	if start < 0 || start >= k {
		t.Errorf("start = %d, want in [0, %d)", start, k)
	}
	for i, sel := range rec.Selections {
		if want := start + i*k; sel.Position != want {
			t.Errorf("selection %d at position %d, want %d", i, sel.Position, want)
		}
		if sel.InclusionProb != 0.1 {
			t.Errorf("inclusion prob = %v, want 0.1", sel.InclusionProb)
		}
	}
}

func TestSystematic_NonDividingInterval(t *testing.T) {
	// N=103, n=10: k=10, last position start+90 <= 102 for any start < 10.
	values := make([]float64, 103)
	pop := numericPop(t, values)

	rec, err := NewEngine().Sample(pop, 10, design.Options{Method: design.Systematic}, core.NewRandomSource(1))
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	for _, sel := range rec.Selections {
		if sel.Position >= pop.Size() {
			t.Fatalf("position %d out of range", sel.Position)
		}
	}
	if len(rec.IDSet()) != 10 {
		t.Error("systematic draw contains duplicates")
	}
}

func TestSystematic_PeriodicityDetected(t *testing.T) {
	// Ordering variable cycles with the sampling interval k=20, the exact
	// aliasing case.
	values := make([]float64, 400)
	for i := range values {
		values[i] = math.Sin(2 * math.Pi * float64(i) / 20)
	}
	pop := numericPop(t, values)

	rec, err := NewEngine().Sample(pop, 20, design.Options{
		Method:        design.Systematic,
		OrderVariable: "x",
	}, core.NewRandomSource(42))
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	p := rec.Diagnostics.Periodicity
	if p == nil {
		t.Fatal("periodicity check missing")
	}
	if p.Interval != 20 {
		t.Errorf("interval = %d, want 20", p.Interval)
	}
	if !p.Detected {
		t.Errorf("period-20 signal not detected (r=%v)", p.Autocorrelation)
	}
	if p.Autocorrelation < 0.99 {
		t.Errorf("autocorrelation = %v, want ~1", p.Autocorrelation)
	}
}

func TestSystematic_NoPeriodicityInNoise(t *testing.T) {
	// Independent draws have no structure at any lag, so the flag must
	// stay down.
	noise := core.NewRandomSource(99)
	values := make([]float64, 400)
	for i := range values {
		values[i] = noise.NormFloat64()
	}
	pop := numericPop(t, values)

	rec, err := NewEngine().Sample(pop, 20, design.Options{
		Method:        design.Systematic,
		OrderVariable: "x",
	}, core.NewRandomSource(42))
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	p := rec.Diagnostics.Periodicity
	if p == nil {
		t.Fatal("periodicity check missing")
	}
	if p.Detected {
		t.Errorf("noise flagged as periodic at lag 20 (r=%v)", p.Autocorrelation)
	}
}

func TestSystematic_PeriodicityWithMissingValues(t *testing.T) {
	// Gaps in the ordering variable must not shift the lag: the draw walks
	// positions, so the check has to correlate at positional lag k even
	// when some positions carry no observation. Compressing the gaps away
	// would misalign the series against itself.
	units := make([]population.Unit, 200)
	for i := range units {
		x := population.Num(0)
		if i%20 < 10 {
			x = population.Num(1)
		}
		if i%7 == 0 {
			x = population.Missing()
		}
		units[i] = population.Unit{
			Key:    core.UnitID(fmt.Sprintf("u%d", i)),
			Values: map[string]population.Value{"x": x},
		}
	}
	pop, err := population.New([]string{"x"}, units)
	if err != nil {
		t.Fatalf("population.New: %v", err)
	}

	rec, err := NewEngine().Sample(pop, 10, design.Options{
		Method:        design.Systematic,
		OrderVariable: "x",
	}, core.NewRandomSource(42))
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	p := rec.Diagnostics.Periodicity
	if p == nil {
		t.Fatal("periodicity check missing")
	}
	if p.Interval != 20 {
		t.Errorf("interval = %d, want 20", p.Interval)
	}
	if !p.Detected {
		t.Errorf("period-20 signal with gaps not detected (r=%v)", p.Autocorrelation)
	}
	if p.Autocorrelation < 0.99 {
		t.Errorf("autocorrelation = %v, want ~1 at the positional lag", p.Autocorrelation)
	}
}

func TestSystematic_SingleUnit(t *testing.T) {
	values := make([]float64, 50)
	pop := numericPop(t, values)

	rec, err := NewEngine().Sample(pop, 1, design.Options{Method: design.Systematic}, core.NewRandomSource(42))
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if rec.Size() != 1 {
		t.Fatalf("size = %d, want 1", rec.Size())
	}
	if p := rec.Selections[0].Position; p < 0 || p >= 50 {
		t.Errorf("position %d out of range", p)
	}
}
