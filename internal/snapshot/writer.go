// Package snapshot persists extracted records as one CSV file per report
// timestamp.
package snapshot

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"GridSentinel/internal/model"
	"GridSentinel/internal/normalizer"
)

const (
	// FilePrefix and FileExt frame every snapshot file name.
	FilePrefix = "power_usage_data_"
	FileExt    = ".csv"
)

// BOM is written first so spreadsheet tools detect UTF-8.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// Header is the fixed column order of a snapshot file.
var Header = []string{
	"update_time",
	"energy_type",
	"unit_type",
	"unit_name",
	"installed_capacity",
	"net_generation",
	"generation_capacity_ratio",
	"note",
	"installed_capacity_ratio",
	"net_generation_ratio",
}

// ErrPersist wraps every failure to write a snapshot file.
var ErrPersist = errors.New("persist snapshot")

// Path separators become "_" so a timestamp can never escape Dir and
// "2025/07/17" does not collide with "2025-07-17".
var nameReplacer = strings.NewReplacer(" ", "", "-", "", ":", "", "/", "_", `\`, "_")

// FileName derives the snapshot file name for a report timestamp.
func FileName(timestamp string) string {
	return FilePrefix + nameReplacer.Replace(timestamp) + FileExt
}

// Writer writes snapshot files into Dir. Writes are serialized.
type Writer struct {
	Dir string
	mu  sync.Mutex
}

// NewWriter creates a writer for dir. The directory must already exist.
func NewWriter(dir string) *Writer {
	return &Writer{Dir: dir}
}

// Path returns where the snapshot for timestamp is stored.
func (w *Writer) Path(timestamp string) string {
	return filepath.Join(w.Dir, FileName(timestamp))
}

// Write stores records under the file derived from timestamp, replacing any
// existing file. It returns the final path.
func (w *Writer) Write(timestamp string, records []model.GenerationRecord) (string, error) {
	path := w.Path(timestamp)

	data, err := Encode(timestamp, records)
	if err != nil {
		return path, fmt.Errorf("%w %s: %v", ErrPersist, path, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := writeFileAtomic(path, data); err != nil {
		return path, fmt.Errorf("%w %s: %v", ErrPersist, path, err)
	}
	return path, nil
}

// Encode renders a snapshot file body. Identical input yields identical bytes.
func Encode(timestamp string, records []model.GenerationRecord) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(BOM)

	cw := csv.NewWriter(&buf)
	if err := cw.Write(Header); err != nil {
		return nil, err
	}
	for _, r := range records {
		row := []string{
			timestamp,
			r.EnergyType,
			r.UnitType,
			r.UnitName,
			normalizer.FormatMagnitude(r.InstalledCapacity),
			normalizer.FormatMagnitude(r.NetGeneration),
			r.GenerationCapacityRatio,
			r.Note,
			r.InstalledCapacityRatio,
			r.NetGenerationRatio,
		}
		if err := cw.Write(row); err != nil {
			return nil, err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeFileAtomic writes through a temp file in the same directory and renames
// it over path, so readers never see a partial snapshot.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
