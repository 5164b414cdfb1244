package model

import "github.com/shopspring/decimal"

// SubtotalUnitName marks per-category subtotal rows in the report.
const SubtotalUnitName = "小計"

// AnnotatedValue is a capacity or generation cell split into its magnitude
// and the parenthetical annotation that followed it.
type AnnotatedValue struct {
	Magnitude  decimal.Decimal
	Annotation string
}

// GenerationRecord is one normalized report row.
type GenerationRecord struct {
	EnergyType              string
	UnitType                string
	UnitName                string
	InstalledCapacity       decimal.Decimal
	NetGeneration           decimal.Decimal
	GenerationCapacityRatio string
	Note                    string
	InstalledCapacityRatio  string
	NetGenerationRatio      string
}

// IsSubtotal reports whether the record is a subtotal row rather than a unit.
func (r GenerationRecord) IsSubtotal() bool {
	return r.UnitName == SubtotalUnitName
}

// Snapshot is the full set of records for one report timestamp.
type Snapshot struct {
	UpdateTime string
	Records    []GenerationRecord
}
