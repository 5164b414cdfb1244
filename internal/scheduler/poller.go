package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"GridSentinel/internal/collector"
	"GridSentinel/internal/dataset"
	"GridSentinel/internal/extractor"
	"GridSentinel/internal/gate"
	"GridSentinel/internal/model"
	"GridSentinel/internal/notifier"
	"GridSentinel/internal/recorder"
	"GridSentinel/internal/snapshot"

	"github.com/google/uuid"
)

// PollInterval is the fixed delay between the end of one cycle and the next.
const PollInterval = 60 * time.Second

// Outcome classifies how a poll cycle ended.
type Outcome string

const (
	OutcomeFetchFailed   Outcome = "fetch_failed"
	OutcomeUnchanged     Outcome = "unchanged"
	OutcomeWritten       Outcome = "written"
	OutcomePersistFailed Outcome = "persist_failed"
)

// CycleResult describes one fetch → extract → write pass.
type CycleResult struct {
	ID         string
	StartedAt  time.Time
	Duration   time.Duration
	Outcome    Outcome
	UpdateTime string
	Path       string
	Records    int
	Skipped    int
	Err        error
}

// Poller runs the ingestion loop. At most one cycle is ever in flight.
type Poller struct {
	Fetcher  collector.Fetcher
	Gate     *gate.Gate
	Writer   *snapshot.Writer
	Recorder recorder.Recorder
	Notifier notifier.Notifier
	Interval time.Duration

	mu sync.Mutex // held for a whole cycle; guards Gate

	statusMu sync.Mutex
	status   notifier.Status
}

// NewPoller wires a poller with the fixed interval and a fresh gate.
func NewPoller(f collector.Fetcher, w *snapshot.Writer, rec recorder.Recorder, n notifier.Notifier) *Poller {
	return &Poller{
		Fetcher:  f,
		Gate:     gate.New(),
		Writer:   w,
		Recorder: rec,
		Notifier: n,
		Interval: PollInterval,
	}
}

// Run polls immediately and then every Interval after the previous cycle
// finished, until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	log.Printf("[INFO] poller started: source=%s interval=%v dir=%s", p.Fetcher.Name(), p.Interval, p.Writer.Dir)
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Println("[INFO] poller stopped")
			return
		case <-timer.C:
		}
		p.RunOnce(ctx)
		timer.Reset(p.Interval)
	}
}

// RunOnce executes exactly one cycle and returns its result. Errors are
// reported in the result, never returned or panicked.
func (p *Poller) RunOnce(ctx context.Context) CycleResult {
	p.mu.Lock()
	defer p.mu.Unlock()

	res := CycleResult{ID: uuid.NewString(), StartedAt: time.Now()}
	p.cycle(ctx, &res)
	res.Duration = time.Since(res.StartedAt)
	p.finish(&res)
	return res
}

func (p *Poller) cycle(ctx context.Context, res *CycleResult) {
	report, err := p.Fetcher.Fetch(ctx)
	if err == nil && report == nil {
		err = fmt.Errorf("%w: empty report", collector.ErrTransport)
	}
	if err != nil {
		res.Outcome = OutcomeFetchFailed
		res.Err = err
		log.Printf("[WARN] cycle %s: fetch failed: %v", res.ID, err)
		return
	}

	ts := collector.ExtractUpdateTimestamp(report)
	res.UpdateTime = ts
	if !p.Gate.HasChanged(ts) {
		res.Outcome = OutcomeUnchanged
		return
	}

	records, rowErrs := extractor.ExtractRecords(report.Rows)
	for _, re := range rowErrs {
		log.Printf("[WARN] cycle %s: skipped %v", res.ID, re)
	}
	res.Records = len(records)
	res.Skipped = len(rowErrs)

	path, err := p.Writer.Write(ts, records)
	res.Path = path
	if err != nil {
		p.Gate.MarkFailed(ts)
		res.Outcome = OutcomePersistFailed
		res.Err = err
		log.Printf("[ERROR] cycle %s: write %s failed, will retry next cycle: %v", res.ID, path, err)
		return
	}
	res.Outcome = OutcomeWritten
	log.Printf("[INFO] cycle %s: data saved to %s (%d records, %d skipped)", res.ID, path, len(records), len(rowErrs))

	snap := model.Snapshot{UpdateTime: ts, Records: records}
	if err := p.Recorder.RecordSnapshot(&recorder.SnapshotRecord{CycleID: res.ID, FilePath: path, Snapshot: snap}); err != nil {
		log.Printf("[ERROR] cycle %s: record snapshot: %v", res.ID, err)
	}

	totals := dataset.TotalsByEnergyType(dataset.RowsOf(snap))
	msg := notifier.FormatSnapshotSummary(ts, totals, len(rowErrs))
	if err := p.Notifier.SendWithRetry(ctx, msg, 2); err != nil {
		log.Printf("[ERROR] cycle %s: send notification: %v", res.ID, err)
	}
}

func (p *Poller) finish(res *CycleResult) {
	evt := &recorder.CycleEvent{
		CycleID:    res.ID,
		StartedAt:  res.StartedAt,
		Duration:   res.Duration,
		Outcome:    string(res.Outcome),
		UpdateTime: res.UpdateTime,
		Records:    res.Records,
		Skipped:    res.Skipped,
	}
	if res.Err != nil {
		evt.Error = res.Err.Error()
	}
	if err := p.Recorder.RecordCycle(evt); err != nil {
		log.Printf("[ERROR] cycle %s: record cycle: %v", res.ID, err)
	}

	lastSeen, seen := p.Gate.LastSeen()

	p.statusMu.Lock()
	defer p.statusMu.Unlock()
	p.status.LastCycleAt = res.StartedAt
	p.status.LastOutcome = string(res.Outcome)
	p.status.LastError = evt.Error
	p.status.LastSeen = lastSeen
	p.status.HasSeen = seen
	p.status.RetryPending = p.Gate.Pending()
	switch res.Outcome {
	case OutcomeWritten:
		p.status.Written++
	case OutcomePersistFailed:
		p.status.Failed++
	}
}

// Status returns a copy of the poller state as of the last finished cycle.
func (p *Poller) Status() notifier.Status {
	p.statusMu.Lock()
	defer p.statusMu.Unlock()
	return p.status
}
