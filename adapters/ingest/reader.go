package ingest

import (
	"encoding/csv"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"samplekit/domain/core"
	"samplekit/domain/population"
	"samplekit/internal/errors"
)

// DataReader loads a population from an Excel or CSV file. The first row
// is the header; one column supplies the unit key, every other column
// becomes a covariate. Cells that parse as floats are numeric, non-empty
// cells that do not are categorical, empty cells are missing.
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"

	// KeyColumn names the unit-key column. Empty means the first column.
	KeyColumn string
}

// NewDataReader builds a reader that dispatches on file extension.
func NewDataReader(filePath string) *DataReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "xlsx"
	if ext == ".csv" {
		fileType = "csv"
	}
	return &DataReader{filePath: filePath, fileType: fileType}
}

// ReadPopulation loads and types the file contents.
func (r *DataReader) ReadPopulation() (*population.Population, error) {
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, errors.Newf(errors.CodeConfiguration,
			"%s file not found: %s", strings.ToUpper(r.fileType), r.filePath)
	}

	var (
		rows [][]string
		err  error
	)
	switch r.fileType {
	case "csv":
		rows, err = r.readCSVRows()
	case "xlsx":
		rows, err = r.readExcelRows()
	default:
		return nil, errors.Newf(errors.CodeConfiguration, "unsupported file type: %s", r.fileType)
	}
	if err != nil {
		return nil, err
	}

	if len(rows) < 2 {
		return nil, errors.New(errors.CodeConfiguration,
			"input needs a header row and at least one data row")
	}
	return r.buildPopulation(rows)
}

func (r *DataReader) readExcelRows() ([][]string, error) {
	start := time.Now()
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, errors.Wrap(err, "opening excel file")
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, errors.Wrap(err, "reading excel sheet")
	}
	log.Printf("[DataReader] excel read in %.2fms (%d rows)",
		float64(time.Since(start).Nanoseconds())/1e6, len(rows))
	return rows, nil
}

func (r *DataReader) readCSVRows() ([][]string, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, errors.Wrap(err, "opening csv file")
	}
	defer file.Close()

	start := time.Now()
	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "reading csv file")
	}
	log.Printf("[DataReader] csv read in %.2fms (%d rows)",
		float64(time.Since(start).Nanoseconds())/1e6, len(rows))
	return rows, nil
}

// buildPopulation types each cell and assembles the population. Rows with
// an empty key are skipped; duplicate keys fail upstream in population.New.
func (r *DataReader) buildPopulation(rows [][]string) (*population.Population, error) {
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}

	keyIdx := 0
	if r.KeyColumn != "" {
		keyIdx = -1
		for i, h := range header {
			if h == r.KeyColumn {
				keyIdx = i
				break
			}
		}
		if keyIdx < 0 {
			return nil, errors.Newf(errors.CodeConfiguration, "key column %q not found", r.KeyColumn)
		}
	}

	covariates := make([]string, 0, len(header)-1)
	for i, h := range header {
		if i != keyIdx {
			covariates = append(covariates, h)
		}
	}

	units := make([]population.Unit, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if keyIdx >= len(row) || strings.TrimSpace(row[keyIdx]) == "" {
			continue
		}
		values := make(map[string]population.Value, len(covariates))
		for i, h := range header {
			if i == keyIdx {
				continue
			}
			cell := ""
			if i < len(row) {
				cell = strings.TrimSpace(row[i])
			}
			values[h] = typeCell(cell)
		}
		units = append(units, population.Unit{
			Key:    core.UnitID(strings.TrimSpace(row[keyIdx])),
			Values: values,
		})
	}

	return population.New(covariates, units)
}

func typeCell(cell string) population.Value {
	if cell == "" {
		return population.Missing()
	}
	if f, err := strconv.ParseFloat(cell, 64); err == nil {
		return population.Num(f)
	}
	return population.Cat(cell)
}
