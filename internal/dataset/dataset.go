// Package dataset reads persisted snapshot files back as one logical table.
package dataset

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"time"

	"GridSentinel/internal/model"
	"GridSentinel/internal/normalizer"
	"GridSentinel/internal/snapshot"
)

// Row is one record together with the report time it belongs to.
type Row struct {
	UpdateTime string
	model.GenerationRecord
}

// Table is the concatenation of every snapshot file in a directory.
type Table struct {
	Rows  []Row
	Files []string
}

// TimeLayouts are the update time formats the report has been seen to use.
var TimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006/01/02 15:04",
}

// ParseUpdateTime parses a report timestamp in local time.
func ParseUpdateTime(s string) (time.Time, bool) {
	for _, layout := range TimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// LoadDir reads all snapshot files in dir, ordered by file name.
func LoadDir(dir string) (*Table, error) {
	files, err := filepath.Glob(filepath.Join(dir, snapshot.FilePrefix+"*"+snapshot.FileExt))
	if err != nil {
		return nil, fmt.Errorf("glob snapshots: %w", err)
	}
	sort.Strings(files)

	t := &Table{Files: files}
	for _, f := range files {
		rows, err := ReadFile(f)
		if err != nil {
			return nil, err
		}
		t.Rows = append(t.Rows, rows...)
	}
	return t, nil
}

// ReadFile parses one snapshot file.
func ReadFile(path string) ([]Row, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	data = bytes.TrimPrefix(data, snapshot.BOM)

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = len(snapshot.Header)
	lines, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("parse %s: missing header", path)
	}
	if !slices.Equal(lines[0], snapshot.Header) {
		return nil, fmt.Errorf("parse %s: unexpected header %v", path, lines[0])
	}

	rows := make([]Row, 0, len(lines)-1)
	for _, l := range lines[1:] {
		rows = append(rows, Row{
			UpdateTime: l[0],
			GenerationRecord: model.GenerationRecord{
				EnergyType:              l[1],
				UnitType:                l[2],
				UnitName:                l[3],
				InstalledCapacity:       normalizer.ParseMagnitude(l[4]),
				NetGeneration:           normalizer.ParseMagnitude(l[5]),
				GenerationCapacityRatio: l[6],
				Note:                    l[7],
				InstalledCapacityRatio:  l[8],
				NetGenerationRatio:      l[9],
			},
		})
	}
	return rows, nil
}

// LeafUnits drops subtotal rows.
func (t *Table) LeafUnits() []Row {
	out := make([]Row, 0, len(t.Rows))
	for _, r := range t.Rows {
		if !r.IsSubtotal() {
			out = append(out, r)
		}
	}
	return out
}

// UpdateTimes returns the distinct update times in ascending order.
func (t *Table) UpdateTimes() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range t.Rows {
		if !seen[r.UpdateTime] {
			seen[r.UpdateTime] = true
			out = append(out, r.UpdateTime)
		}
	}
	sort.Strings(out)
	return out
}

// Latest returns the update time and rows of the most recent snapshot.
func (t *Table) Latest() (string, []Row) {
	times := t.UpdateTimes()
	if len(times) == 0 {
		return "", nil
	}
	latest := times[len(times)-1]
	var out []Row
	for _, r := range t.Rows {
		if r.UpdateTime == latest {
			out = append(out, r)
		}
	}
	return latest, out
}

// RowsOf flattens a snapshot into table rows.
func RowsOf(s model.Snapshot) []Row {
	rows := make([]Row, len(s.Records))
	for i, r := range s.Records {
		rows[i] = Row{UpdateTime: s.UpdateTime, GenerationRecord: r}
	}
	return rows
}
