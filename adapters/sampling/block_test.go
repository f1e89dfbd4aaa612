package sampling

import (
	"testing"

	"samplekit/domain/core"
	"samplekit/domain/design"
	"samplekit/internal/errors"
)

func TestAllocateBlocked_EqualArmsPerBlock(t *testing.T) {
	blocks := []string{"a", "b", "c", "d"}
	pop := groupedPop(t, 200,
		func(i int) float64 { return float64(i) },
		func(i int) string { return blocks[i/50] })

	alloc, err := NewAllocator(NewEngine()).AllocateBlocked(pop, []string{"group"}, 10, core.NewRandomSource(42))
	if err != nil {
		t.Fatalf("AllocateBlocked: %v", err)
	}

	if alloc.Treatment.Size() != 40 || alloc.Control.Size() != 40 {
		t.Fatalf("arm sizes = %d/%d, want 40/40", alloc.Treatment.Size(), alloc.Control.Size())
	}

	for _, arm := range []*design.SampleRecord{alloc.Treatment, alloc.Control} {
		counts := make(map[string]int)
		for _, sel := range arm.Selections {
			if sel.Stratum == "" {
				t.Fatal("blocked selection missing its block tag")
			}
			counts[sel.Stratum]++
			if sel.InclusionProb != 0.2 {
				t.Errorf("inclusion prob = %v, want 10/50", sel.InclusionProb)
			}
		}
		for _, b := range blocks {
			if counts[b] != 10 {
				t.Errorf("block %q holds %d units in one arm, want 10", b, counts[b])
			}
		}
	}

	treatment := alloc.Treatment.IDSet()
	for id := range alloc.Control.IDSet() {
		if _, overlap := treatment[id]; overlap {
			t.Fatalf("unit %s appears in both arms", id)
		}
	}
}

func TestAllocateBlocked_SmallBlockExhausts(t *testing.T) {
	pop := groupedPop(t, 100,
		func(i int) float64 { return float64(i) },
		func(i int) string {
			if i < 90 {
				return "big"
			}
			return "small" // 10 units, both arms need 12
		})

	_, err := NewAllocator(NewEngine()).AllocateBlocked(pop, []string{"group"}, 6, core.NewRandomSource(1))
	if !errors.HasCode(err, errors.CodeStratumExhausted) {
		t.Fatalf("expected stratum exhausted, got %v", err)
	}
}

func TestAllocateBlocked_Validation(t *testing.T) {
	pop := groupedPop(t, 40,
		func(i int) float64 { return float64(i) },
		func(i int) string { return "only" })
	allocator := NewAllocator(NewEngine())

	if _, err := allocator.AllocateBlocked(pop, []string{"group"}, 0, core.NewRandomSource(1)); !errors.HasCode(err, errors.CodeInvalidSampleSize) {
		t.Errorf("zero per-block size: got %v", err)
	}
	if _, err := allocator.AllocateBlocked(pop, nil, 5, core.NewRandomSource(1)); !errors.HasCode(err, errors.CodeConfiguration) {
		t.Errorf("no blocking variables: got %v", err)
	}
	if _, err := allocator.AllocateBlocked(pop, []string{"group"}, 5, nil); !errors.HasCode(err, errors.CodeConfiguration) {
		t.Errorf("nil rng: got %v", err)
	}
}

func TestBlockEffects_SeparatesBlockAndTreatment(t *testing.T) {
	// Outcome carries a large block shift; blocking should absorb it and
	// report a relative efficiency well above 1.
	blocks := []string{"a", "b", "c", "d"}
	pop := groupedPop(t, 200,
		func(i int) float64 {
			block := i / 50
			return float64(block*1000) + float64(i%50)
		},
		func(i int) string { return blocks[i/50] })

	allocator := NewAllocator(NewEngine())
	alloc, err := allocator.AllocateBlocked(pop, []string{"group"}, 15, core.NewRandomSource(42))
	if err != nil {
		t.Fatalf("AllocateBlocked: %v", err)
	}

	effects, err := allocator.BlockEffects(pop, alloc, []string{"x"})
	if err != nil {
		t.Fatalf("BlockEffects: %v", err)
	}
	if len(effects) != 1 {
		t.Fatalf("effects = %d, want 1", len(effects))
	}

	e := effects[0]
	if e.OutcomeVariable != "x" {
		t.Errorf("outcome = %q, want x", e.OutcomeVariable)
	}
	if e.Blocks != 4 {
		t.Errorf("blocks = %d, want 4", e.Blocks)
	}
	if e.BlockP >= 0.001 {
		t.Errorf("block p = %v, want near-certain block effect", e.BlockP)
	}
	if e.TreatmentP <= 0.001 {
		t.Errorf("treatment p = %v, want no arm effect in a pure block shift", e.TreatmentP)
	}
	if e.RelativeEfficiency <= 1 {
		t.Errorf("relative efficiency = %v, want > 1 when blocks explain the spread", e.RelativeEfficiency)
	}
}

func TestBlockEffects_NoOutcomesReportsNothing(t *testing.T) {
	pop := groupedPop(t, 80,
		func(i int) float64 { return float64(i) },
		func(i int) string {
			if i < 40 {
				return "a"
			}
			return "b"
		})
	allocator := NewAllocator(NewEngine())
	alloc, err := allocator.AllocateBlocked(pop, []string{"group"}, 10, core.NewRandomSource(7))
	if err != nil {
		t.Fatalf("AllocateBlocked: %v", err)
	}

	effects, err := allocator.BlockEffects(pop, alloc, nil)
	if err != nil {
		t.Fatalf("BlockEffects: %v", err)
	}
	if effects != nil {
		t.Errorf("effects = %v, want nil without outcomes", effects)
	}

	if _, err := allocator.BlockEffects(pop, alloc, []string{"group"}); !errors.HasCode(err, errors.CodeConfiguration) {
		t.Errorf("categorical outcome: got %v, want configuration error", err)
	}
}
