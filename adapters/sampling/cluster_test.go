package sampling

import (
	"fmt"
	"math"
	"testing"

	"samplekit/domain/core"
	"samplekit/domain/design"
	"samplekit/domain/population"
	"samplekit/internal/errors"
)

// clusteredPop builds clusters c0..cM-1 of equal size with x assigned per
// (cluster, offset).
func clusteredPop(t *testing.T, clusters, size int, x func(cluster, offset int) float64) *population.Population {
	t.Helper()
	units := make([]population.Unit, 0, clusters*size)
	for c := 0; c < clusters; c++ {
		for j := 0; j < size; j++ {
			units = append(units, population.Unit{
				Key: core.UnitID(fmt.Sprintf("c%d_u%d", c, j)),
				Values: map[string]population.Value{
					"x":       population.Num(x(c, j)),
					"cluster": population.Cat(fmt.Sprintf("c%d", c)),
				},
			})
		}
	}
	pop, err := population.New([]string{"x", "cluster"}, units)
	if err != nil {
		t.Fatalf("population.New: %v", err)
	}
	return pop
}

func TestCluster_TakeAll(t *testing.T) {
	pop := clusteredPop(t, 10, 20, func(c, j int) float64 { return float64(c*100 + j) })

	rec, err := NewEngine().Sample(pop, 0, design.Options{
		Method:       design.Cluster,
		ClusterBy:    "cluster",
		ClusterCount: 4,
	}, core.NewRandomSource(42))
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if rec.Size() != 80 {
		t.Fatalf("size = %d, want 4 full clusters of 20", rec.Size())
	}

	byCluster := make(map[string]int)
	for _, sel := range rec.Selections {
		byCluster[sel.Cluster]++
		if math.Abs(sel.InclusionProb-0.4) > 1e-12 {
			t.Errorf("take-all inclusion prob = %v, want m/M = 0.4", sel.InclusionProb)
		}
	}
	if len(byCluster) != 4 {
		t.Fatalf("selected clusters = %d, want 4", len(byCluster))
	}
	for c, n := range byCluster {
		if n != 20 {
			t.Errorf("cluster %s drew %d units, want all 20", c, n)
		}
	}
}

func TestCluster_ProportionalSecondStage(t *testing.T) {
	pop := clusteredPop(t, 8, 40, func(c, j int) float64 { return float64(j) })

	rec, err := NewEngine().Sample(pop, 0, design.Options{
		Method:                design.Cluster,
		ClusterBy:             "cluster",
		ClusterCount:          4,
		WithinCluster:         design.WithinProportional,
		WithinClusterFraction: 0.25,
	}, core.NewRandomSource(42))
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if rec.Size() != 40 {
		t.Fatalf("size = %d, want 4 clusters x 10 units", rec.Size())
	}
	want := 0.5 * 0.25 // (m/M) * fraction
	for _, sel := range rec.Selections {
		if math.Abs(sel.InclusionProb-want) > 1e-12 {
			t.Errorf("inclusion prob = %v, want %v", sel.InclusionProb, want)
		}
	}
}

func TestCluster_FixedSizeTooLarge(t *testing.T) {
	pop := clusteredPop(t, 4, 5, func(c, j int) float64 { return float64(j) })

	_, err := NewEngine().Sample(pop, 0, design.Options{
		Method:            design.Cluster,
		ClusterBy:         "cluster",
		ClusterCount:      2,
		WithinCluster:     design.WithinFixedSize,
		WithinClusterSize: 9,
	}, core.NewRandomSource(42))
	if !errors.HasCode(err, errors.CodeInvalidSampleSize) {
		t.Fatalf("expected invalid sample size, got %v", err)
	}
}

func TestCluster_CountExceedsClusters(t *testing.T) {
	pop := clusteredPop(t, 3, 5, func(c, j int) float64 { return float64(j) })

	_, err := NewEngine().Sample(pop, 0, design.Options{
		Method:       design.Cluster,
		ClusterBy:    "cluster",
		ClusterCount: 4,
	}, core.NewRandomSource(42))
	if !errors.HasCode(err, errors.CodeInvalidSampleSize) {
		t.Fatalf("expected invalid sample size, got %v", err)
	}
}

func TestCluster_HomogeneousClustersInflateDesignEffect(t *testing.T) {
	// Units identical inside each cluster, cluster means far apart:
	// ICC -> 1 and DEFF -> mean cluster size.
	pop := clusteredPop(t, 10, 15, func(c, j int) float64 { return float64(c * 100) })

	rec, err := NewEngine().Sample(pop, 0, design.Options{
		Method:           design.Cluster,
		ClusterBy:        "cluster",
		ClusterCount:     5,
		OutcomeVariables: []string{"x"},
	}, core.NewRandomSource(42))
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if len(rec.Diagnostics.ClusterEffects) != 1 {
		t.Fatalf("cluster effects = %d, want 1", len(rec.Diagnostics.ClusterEffects))
	}
	e := rec.Diagnostics.ClusterEffects[0]
	if math.Abs(e.ICC-1) > 1e-9 {
		t.Errorf("ICC = %v, want 1", e.ICC)
	}
	if math.Abs(e.DesignEffect-e.MeanClusterSize) > 1e-9 {
		t.Errorf("DEFF = %v, want mean cluster size %v", e.DesignEffect, e.MeanClusterSize)
	}
	if !e.HighDesignEffect {
		t.Error("high design effect not flagged")
	}
	wantESS := float64(rec.Size()) / e.DesignEffect
	if math.Abs(e.EffectiveSampleSize-wantESS) > 1e-9 {
		t.Errorf("ESS = %v, want %v", e.EffectiveSampleSize, wantESS)
	}
}

func TestCluster_IdenticalMixesKeepDesignEffectLow(t *testing.T) {
	// Every cluster holds the same mix of values, so clustering costs
	// nothing: ICC ~ 0, DEFF ~ 1.
	pop := clusteredPop(t, 10, 15, func(c, j int) float64 { return float64(j) })

	rec, err := NewEngine().Sample(pop, 0, design.Options{
		Method:           design.Cluster,
		ClusterBy:        "cluster",
		ClusterCount:     5,
		OutcomeVariables: []string{"x"},
	}, core.NewRandomSource(42))
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	e := rec.Diagnostics.ClusterEffects[0]
	if e.ICC != 0 {
		t.Errorf("ICC = %v, want 0 for identical-mix clusters", e.ICC)
	}
	if e.DesignEffect != 1 {
		t.Errorf("DEFF = %v, want 1", e.DesignEffect)
	}
	if e.HighDesignEffect {
		t.Error("design effect flagged high for identical-mix clusters")
	}
}
