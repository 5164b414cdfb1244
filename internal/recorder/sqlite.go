package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"GridSentinel/internal/normalizer"

	_ "modernc.org/sqlite"
)

// SQLiteRecorder mirrors snapshots and poll cycles into a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL so analysts can query while the poller writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS generation_records (
			id                        INTEGER PRIMARY KEY AUTOINCREMENT,
			update_time               TEXT NOT NULL,
			row_index                 INTEGER NOT NULL,
			energy_type               TEXT,
			unit_type                 TEXT,
			unit_name                 TEXT,
			installed_capacity        TEXT,
			net_generation            TEXT,
			generation_capacity_ratio TEXT,
			note                      TEXT,
			installed_capacity_ratio  TEXT,
			net_generation_ratio      TEXT,
			cycle_id                  TEXT,
			file_path                 TEXT,
			recorded_at               INTEGER NOT NULL,
			UNIQUE(update_time, row_index)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_unit ON generation_records(energy_type, unit_name)`,

		`CREATE TABLE IF NOT EXISTS poll_cycles (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			cycle_id    TEXT NOT NULL,
			started_at  INTEGER NOT NULL,
			duration_ms INTEGER,
			outcome     TEXT,
			update_time TEXT,
			records     INTEGER,
			skipped     INTEGER,
			error       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cycles_started ON poll_cycles(started_at)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordSnapshot upserts every record keyed by (update_time, row_index), so
// re-emitting a snapshot after a restart replaces rather than duplicates.
func (r *SQLiteRecorder) RecordSnapshot(rec *SnapshotRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	ts := rec.Snapshot.UpdateTime
	if _, err := tx.Exec(`DELETE FROM generation_records WHERE update_time = ? AND row_index >= ?`,
		ts, len(rec.Snapshot.Records)); err != nil {
		return fmt.Errorf("trim stale rows: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO generation_records
		(update_time, row_index, energy_type, unit_type, unit_name,
		 installed_capacity, net_generation, generation_capacity_ratio, note,
		 installed_capacity_ratio, net_generation_ratio,
		 cycle_id, file_path, recorded_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(update_time, row_index) DO UPDATE SET
		 energy_type=excluded.energy_type, unit_type=excluded.unit_type, unit_name=excluded.unit_name,
		 installed_capacity=excluded.installed_capacity, net_generation=excluded.net_generation,
		 generation_capacity_ratio=excluded.generation_capacity_ratio, note=excluded.note,
		 installed_capacity_ratio=excluded.installed_capacity_ratio,
		 net_generation_ratio=excluded.net_generation_ratio,
		 cycle_id=excluded.cycle_id, file_path=excluded.file_path, recorded_at=excluded.recorded_at`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for i, g := range rec.Snapshot.Records {
		if _, err := stmt.Exec(ts, i, g.EnergyType, g.UnitType, g.UnitName,
			normalizer.FormatMagnitude(g.InstalledCapacity), normalizer.FormatMagnitude(g.NetGeneration),
			g.GenerationCapacityRatio, g.Note,
			g.InstalledCapacityRatio, g.NetGenerationRatio,
			rec.CycleID, rec.FilePath, now,
		); err != nil {
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) RecordCycle(evt *CycleEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO poll_cycles
		(cycle_id, started_at, duration_ms, outcome, update_time, records, skipped, error)
		VALUES (?,?,?,?,?,?,?,?)`,
		evt.CycleID, evt.StartedAt.Unix(), evt.Duration.Milliseconds(), evt.Outcome,
		evt.UpdateTime, evt.Records, evt.Skipped, evt.Error,
	)
	return err
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}
