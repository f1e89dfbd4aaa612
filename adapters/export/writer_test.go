package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"samplekit/domain/core"
	"samplekit/domain/design"
)

func sampleFixture() *design.SampleRecord {
	return &design.SampleRecord{
		ID:             core.SampleID("s1"),
		Method:         design.Stratified,
		PopulationSize: 100,
		Selections: []design.Selection{
			{UnitID: "u3", Position: 3, InclusionProb: 0.25, Stratum: "north"},
			{UnitID: "u7", Position: 7, InclusionProb: 0.5, Stratum: "south"},
		},
	}
}

func TestSampleDataset_RoundTripCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.csv")
	if err := Write(path, SampleDataset(sampleFixture())); err != nil {
		t.Fatalf("Write: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}
	if rows[0][0] != "unit_id" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][0] != "u3" || rows[1][3] != "north" {
		t.Errorf("first data row = %v", rows[1])
	}
	if rows[2][2] != "0.5" {
		t.Errorf("inclusion prob cell = %q, want 0.5", rows[2][2])
	}
}

func TestAllocationDataset_ArmsLabeled(t *testing.T) {
	alloc := &design.Allocation{
		ID: core.AllocationID("a1"),
		Treatment: &design.SampleRecord{Selections: []design.Selection{
			{UnitID: "t1", Position: 0, InclusionProb: 0.1},
		}},
		Control: &design.SampleRecord{Selections: []design.Selection{
			{UnitID: "c1", Position: 5, InclusionProb: 0.1},
		}},
	}

	ds := AllocationDataset(alloc)
	if len(ds.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(ds.Rows))
	}
	if ds.Rows[0][1] != string(design.ArmTreatment) {
		t.Errorf("first row arm = %q", ds.Rows[0][1])
	}
	if ds.Rows[1][1] != string(design.ArmControl) {
		t.Errorf("second row arm = %q", ds.Rows[1][1])
	}
}

func TestBalanceDataset_EffectOrder(t *testing.T) {
	report := design.NewBalanceReport([]design.CovariateBalance{
		{Covariate: "small", Type: design.CovariateNumeric, EffectSize: 0.02, PValue: 0.8, Balanced: true},
		{Covariate: "large", Type: design.CovariateNumeric, EffectSize: -0.6, PValue: 0.001},
		{Covariate: "mid", Type: design.CovariateCategorical, EffectSize: 0.15, PValue: 0.04},
	})

	ds := BalanceDataset(report)
	order := []string{ds.Rows[0][0], ds.Rows[1][0], ds.Rows[2][0]}
	want := []string{"large", "mid", "small"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("export order %v, want %v", order, want)
		}
	}
}

func TestBalanceSummary(t *testing.T) {
	report := design.NewBalanceReport([]design.CovariateBalance{
		{Covariate: "a", Balanced: true},
		{Covariate: "b", Balanced: true},
	})
	summary := BalanceSummary(report)
	if !strings.Contains(summary, "100.0/100") {
		t.Errorf("summary missing score: %q", summary)
	}
	if !strings.Contains(summary, string(design.TierExcellent)) {
		t.Errorf("summary missing tier: %q", summary)
	}
}

func TestWrite_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.xlsx")
	if err := Write(path, SampleDataset(sampleFixture())); err != nil {
		t.Fatalf("Write xlsx: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size() == 0 {
		t.Error("xlsx output empty")
	}
}
