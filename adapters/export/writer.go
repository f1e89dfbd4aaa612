package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"samplekit/domain/design"
	"samplekit/internal/errors"
)

// Dataset is a flat tabular rendering of a result, ready for CSV or XLSX.
type Dataset struct {
	Headers []string
	Rows    [][]string
}

// SampleDataset flattens a sample record, one row per selection.
func SampleDataset(rec *design.SampleRecord) *Dataset {
	ds := &Dataset{
		Headers: []string{"unit_id", "position", "inclusion_prob", "stratum", "cluster"},
	}
	for _, sel := range rec.Selections {
		ds.Rows = append(ds.Rows, []string{
			sel.UnitID.String(),
			strconv.Itoa(sel.Position),
			formatFloat(sel.InclusionProb),
			sel.Stratum,
			sel.Cluster,
		})
	}
	return ds
}

// AllocationDataset flattens an allocation, one row per unit with its arm.
func AllocationDataset(alloc *design.Allocation) *Dataset {
	ds := &Dataset{
		Headers: []string{"unit_id", "arm", "inclusion_prob", "stratum", "cluster"},
	}
	appendArm := func(rec *design.SampleRecord, arm design.Arm) {
		for _, sel := range rec.Selections {
			ds.Rows = append(ds.Rows, []string{
				sel.UnitID.String(),
				string(arm),
				formatFloat(sel.InclusionProb),
				sel.Stratum,
				sel.Cluster,
			})
		}
	}
	appendArm(alloc.Treatment, design.ArmTreatment)
	appendArm(alloc.Control, design.ArmControl)
	return ds
}

// BalanceDataset flattens a balance report in effect-magnitude order, so
// the largest imbalance reads first.
func BalanceDataset(report *design.BalanceReport) *Dataset {
	ds := &Dataset{
		Headers: []string{
			"covariate", "type", "effect_size", "statistic", "p_value",
			"treatment_n", "control_n", "balanced", "note",
		},
	}
	for _, e := range report.EffectMagnitude {
		ds.Rows = append(ds.Rows, []string{
			e.Covariate,
			string(e.Type),
			formatFloat(e.EffectSize),
			formatFloat(e.Statistic),
			formatFloat(e.PValue),
			strconv.Itoa(e.TreatmentN),
			strconv.Itoa(e.ControlN),
			strconv.FormatBool(e.Balanced),
			e.Note,
		})
	}
	return ds
}

// BalanceSummary renders the composite verdict as a short plain-text block.
func BalanceSummary(report *design.BalanceReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "balance score: %.1f/100 (%s)\n", report.Score, report.Tier)
	fmt.Fprintf(&b, "balanced covariates: %d/%d\n", report.BalancedCount, len(report.Entries))
	fmt.Fprintf(&b, "recommendation: %s\n", report.Recommendation)
	return b.String()
}

// Write dispatches on file extension: .csv writes CSV, anything else XLSX.
func Write(path string, ds *Dataset) error {
	if strings.ToLower(filepath.Ext(path)) == ".csv" {
		return writeCSV(path, ds)
	}
	return writeXLSX(path, ds)
}

func writeCSV(path string, ds *Dataset) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating csv output")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write(ds.Headers); err != nil {
		return err
	}
	for _, row := range ds.Rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return w.Error()
}

func writeXLSX(path string, ds *Dataset) error {
	f := excelize.NewFile()

	sheet := "Sheet1"
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx == -1 {
		idx, err := f.NewSheet(sheet)
		if err != nil {
			return err
		}
		f.SetActiveSheet(idx)
	}

	for i, h := range ds.Headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	for r := range ds.Rows {
		for c, v := range ds.Rows[r] {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}

	return f.SaveAs(path)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
