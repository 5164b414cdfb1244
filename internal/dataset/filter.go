package dataset

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Filter selects rows. Empty string fields match everything; an empty
// UnitName also excludes subtotal rows. Zero From/To are unbounded.
type Filter struct {
	EnergyType string
	UnitType   string
	UnitName   string
	From       time.Time
	To         time.Time
}

// Filter returns the rows matching f, in table order.
func (t *Table) Filter(f Filter) []Row {
	var out []Row
	for _, r := range t.Rows {
		if f.match(r) {
			out = append(out, r)
		}
	}
	return out
}

func (f Filter) match(r Row) bool {
	if f.EnergyType != "" && r.EnergyType != f.EnergyType {
		return false
	}
	if f.UnitType != "" && r.UnitType != f.UnitType {
		return false
	}
	if f.UnitName != "" {
		if r.UnitName != f.UnitName {
			return false
		}
	} else if r.IsSubtotal() {
		return false
	}
	if f.From.IsZero() && f.To.IsZero() {
		return true
	}
	ts, ok := ParseUpdateTime(r.UpdateTime)
	if !ok {
		return false
	}
	if !f.From.IsZero() && ts.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && ts.After(f.To) {
		return false
	}
	return true
}

// EnergyTotal is the summed output of one energy type.
type EnergyTotal struct {
	EnergyType        string
	InstalledCapacity decimal.Decimal
	NetGeneration     decimal.Decimal
	Units             int
}

// TotalsByEnergyType sums leaf units per energy type, largest net generation
// first. Subtotal rows are skipped so they are not counted twice.
func TotalsByEnergyType(rows []Row) []EnergyTotal {
	idx := make(map[string]int)
	var out []EnergyTotal
	for _, r := range rows {
		if r.IsSubtotal() {
			continue
		}
		i, ok := idx[r.EnergyType]
		if !ok {
			i = len(out)
			idx[r.EnergyType] = i
			out = append(out, EnergyTotal{EnergyType: r.EnergyType})
		}
		out[i].InstalledCapacity = out[i].InstalledCapacity.Add(r.InstalledCapacity)
		out[i].NetGeneration = out[i].NetGeneration.Add(r.NetGeneration)
		out[i].Units++
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].NetGeneration.GreaterThan(out[b].NetGeneration)
	})
	return out
}

// GrandTotal sums the per-type totals.
func GrandTotal(totals []EnergyTotal) EnergyTotal {
	var g EnergyTotal
	for _, t := range totals {
		g.InstalledCapacity = g.InstalledCapacity.Add(t.InstalledCapacity)
		g.NetGeneration = g.NetGeneration.Add(t.NetGeneration)
		g.Units += t.Units
	}
	return g
}
