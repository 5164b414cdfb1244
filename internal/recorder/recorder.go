package recorder

import (
	"time"

	"GridSentinel/internal/model"
)

// SnapshotRecord is one persisted snapshot mirrored into the recorder.
type SnapshotRecord struct {
	CycleID  string
	FilePath string
	Snapshot model.Snapshot
}

// CycleEvent records the outcome of one poll cycle.
type CycleEvent struct {
	CycleID    string
	StartedAt  time.Time
	Duration   time.Duration
	Outcome    string // "fetch_failed", "unchanged", "written", "persist_failed"
	UpdateTime string
	Records    int
	Skipped    int
	Error      string
}

// Recorder persists historical data for analysis.
type Recorder interface {
	RecordSnapshot(rec *SnapshotRecord) error
	RecordCycle(evt *CycleEvent) error
	Close() error
}
