// Package extractor maps raw report rows into generation records.
package extractor

import (
	"errors"
	"fmt"

	"GridSentinel/internal/model"
	"GridSentinel/internal/normalizer"
)

// RowArity is the number of cells a report row must carry.
const RowArity = 7

const (
	colEnergyType = iota
	colUnitType
	colUnitName
	colInstalledCapacity
	colNetGeneration
	colRatio
	colNote
)

// ErrShortRow is returned for rows with fewer than RowArity cells.
var ErrShortRow = errors.New("row has too few cells")

// RowError describes one row that could not be extracted.
type RowError struct {
	Index int
	Cells int
	Err   error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d (%d cells): %v", e.Index, e.Cells, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// ExtractRecord normalizes a single row. Cells beyond RowArity are ignored.
func ExtractRecord(row model.RawRow) (model.GenerationRecord, error) {
	if len(row) < RowArity {
		return model.GenerationRecord{}, fmt.Errorf("%w: want %d, got %d", ErrShortRow, RowArity, len(row))
	}

	capacity := normalizer.Annotate(row[colInstalledCapacity])
	generation := normalizer.Annotate(row[colNetGeneration])

	return model.GenerationRecord{
		EnergyType:              normalizer.StripMarkup(row[colEnergyType]),
		UnitType:                normalizer.StripMarkup(row[colUnitType]),
		UnitName:                normalizer.StripMarkup(row[colUnitName]),
		InstalledCapacity:       capacity.Magnitude,
		NetGeneration:           generation.Magnitude,
		GenerationCapacityRatio: row[colRatio],
		Note:                    row[colNote],
		InstalledCapacityRatio:  capacity.Annotation,
		NetGenerationRatio:      generation.Annotation,
	}, nil
}

// ExtractRecords normalizes every row in order. Malformed rows are skipped
// and reported so the rest of the snapshot survives.
func ExtractRecords(rows []model.RawRow) ([]model.GenerationRecord, []*RowError) {
	records := make([]model.GenerationRecord, 0, len(rows))
	var rowErrs []*RowError
	for i, row := range rows {
		rec, err := ExtractRecord(row)
		if err != nil {
			rowErrs = append(rowErrs, &RowError{Index: i, Cells: len(row), Err: err})
			continue
		}
		records = append(records, rec)
	}
	return records, rowErrs
}
