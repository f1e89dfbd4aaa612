package core

import (
	"testing"
)

func TestRandomSource_Deterministic(t *testing.T) {
	a := NewRandomSource(42)
	b := NewRandomSource(42)

	for i := 0; i < 100; i++ {
		if av, bv := a.Intn(1000), b.Intn(1000); av != bv {
			t.Fatalf("draw %d diverged: %d vs %d", i, av, bv)
		}
	}

	permA := NewRandomSource(7).Perm(50)
	permB := NewRandomSource(7).Perm(50)
	for i := range permA {
		if permA[i] != permB[i] {
			t.Fatalf("permutation diverged at %d: %d vs %d", i, permA[i], permB[i])
		}
	}
}

func TestRandomSource_SeedsDiffer(t *testing.T) {
	a := NewRandomSource(1)
	b := NewRandomSource(2)

	same := 0
	for i := 0; i < 100; i++ {
		if a.Intn(1 << 30) == b.Intn(1 << 30) {
			same++
		}
	}
	if same > 5 {
		t.Errorf("different seeds produced %d/100 identical draws", same)
	}
}

func TestRandomSource_ForkReproducible(t *testing.T) {
	childA := NewRandomSource(42).Fork()
	childB := NewRandomSource(42).Fork()

	if childA.Seed() != childB.Seed() {
		t.Fatalf("forks of the same root diverged: %d vs %d", childA.Seed(), childB.Seed())
	}
	for i := 0; i < 50; i++ {
		if av, bv := childA.Float64(), childB.Float64(); av != bv {
			t.Fatalf("fork draw %d diverged: %v vs %v", i, av, bv)
		}
	}
}

func TestRandomSource_ForkIndependent(t *testing.T) {
	root := NewRandomSource(42)
	first := root.Fork()
	second := root.Fork()

	if first.Seed() == second.Seed() {
		t.Error("successive forks share a seed")
	}
}

func TestNewID_Unique(t *testing.T) {
	seen := make(map[ID]struct{})
	for i := 0; i < 1000; i++ {
		id := NewID()
		if id.IsEmpty() {
			t.Fatal("NewID returned empty")
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = struct{}{}
	}
}
