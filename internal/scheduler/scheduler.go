package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"GridSentinel/internal/dataset"
	"GridSentinel/internal/notifier"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the cron side jobs around the poller and answers chat commands.
type Scheduler struct {
	Cron     *cron.Cron
	Poller   *Poller
	Notifier notifier.Notifier
	DataDir  string
	Ctx      context.Context

	mu         sync.Mutex
	lastDigest time.Time
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, p *Poller, n notifier.Notifier, dataDir string) *Scheduler {
	return &Scheduler{
		Cron:       cron.New(cron.WithSeconds()),
		Poller:     p,
		Notifier:   n,
		DataDir:    dataDir,
		Ctx:        ctx,
		lastDigest: time.Now().Add(-24 * time.Hour),
	}
}

// RegisterDigest registers the daily digest task.
func (s *Scheduler) RegisterDigest(spec string) error {
	if _, err := s.Cron.AddFunc(spec, s.digestTask); err != nil {
		return fmt.Errorf("register digest task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

// RunDigestNow executes the digest task immediately.
func (s *Scheduler) RunDigestNow() {
	s.digestTask()
}

func (s *Scheduler) digestTask() {
	log.Println("[INFO] running daily digest")
	s.mu.Lock()
	since := s.lastDigest
	until := time.Now()
	s.mu.Unlock()

	d, err := BuildDigest(s.DataDir, since, until)
	if err != nil {
		log.Printf("[ERROR] build digest: %v", err)
		s.trySend(notifier.FormatFailure("每日摘要產生", err))
		return
	}
	s.trySend(notifier.FormatDigest(d))

	s.mu.Lock()
	s.lastDigest = until
	s.mu.Unlock()
}

// BuildDigest summarizes the snapshots in dir whose update time falls in
// (since, until]. Totals always describe the latest snapshot on disk.
func BuildDigest(dir string, since, until time.Time) (notifier.Digest, error) {
	d := notifier.Digest{Since: since, Until: until}

	table, err := dataset.LoadDir(dir)
	if err != nil {
		return d, err
	}
	for _, ts := range table.UpdateTimes() {
		t, ok := dataset.ParseUpdateTime(ts)
		if ok && t.After(since) && !t.After(until) {
			d.Snapshots++
		}
	}
	latest, rows := table.Latest()
	d.LatestUpdate = latest
	d.Totals = dataset.TotalsByEnergyType(rows)
	return d, nil
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	switch command {
	case "最新資料", "/latest":
		table, err := dataset.LoadDir(s.DataDir)
		if err != nil {
			return notifier.FormatFailure("讀取資料", err)
		}
		latest, rows := table.Latest()
		if latest == "" {
			return "尚無資料"
		}
		return notifier.FormatSnapshotSummary(latest, dataset.TotalsByEnergyType(rows), 0)
	case "輪詢狀態", "/status":
		return notifier.FormatStatus(s.Poller.Status())
	case "立即輪詢", "/poll":
		res := s.Poller.RunOnce(s.Ctx)
		return notifier.FormatPollResult(string(res.Outcome), res.UpdateTime, res.Err)
	case "每日摘要", "/digest":
		s.digestTask()
		return ""
	default:
		return "可用命令:\n• /latest 最新資料\n• /status 輪詢狀態\n• /poll 立即輪詢\n• /digest 每日摘要"
	}
}

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}
