package scheduler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"GridSentinel/internal/collector"
	"GridSentinel/internal/dataset"
	"GridSentinel/internal/model"
	"GridSentinel/internal/snapshot"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nuclearReport(ts string) *model.RawReport {
	return &model.RawReport{
		UpdateTime: ts,
		Rows: []model.RawRow{
			{"<b>核能</b>", "核能", "核一", "500(10%)", "450(5%)", "90", "備註A"},
		},
	}
}

type harness struct {
	fetcher  *collector.MockFetcher
	recorder *fakeRecorder
	notifier *fakeNotifier
	poller   *Poller
	dir      string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		fetcher:  &collector.MockFetcher{},
		recorder: &fakeRecorder{},
		notifier: &fakeNotifier{},
		dir:      t.TempDir(),
	}
	h.poller = NewPoller(h.fetcher, snapshot.NewWriter(h.dir), h.recorder, h.notifier)
	return h
}

func (h *harness) files(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(h.dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestRunOnce_EndToEnd(t *testing.T) {
	h := newHarness(t)
	h.fetcher.Set(nuclearReport("2025-07-17 13:20"), nil)

	res := h.poller.RunOnce(context.Background())

	require.NoError(t, res.Err)
	assert.Equal(t, OutcomeWritten, res.Outcome)
	assert.Equal(t, filepath.Join(h.dir, "power_usage_data_202507171320.csv"), res.Path)
	assert.Equal(t, 1, res.Records)
	assert.NotEmpty(t, res.ID)

	rows, err := dataset.ReadFile(res.Path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	r := rows[0]
	assert.Equal(t, "2025-07-17 13:20", r.UpdateTime)
	assert.Equal(t, "核能", r.EnergyType)
	assert.Equal(t, "核能", r.UnitType)
	assert.Equal(t, "核一", r.UnitName)
	assert.Equal(t, "500", r.InstalledCapacity.String())
	assert.Equal(t, "450", r.NetGeneration.String())
	assert.Equal(t, "90", r.GenerationCapacityRatio)
	assert.Equal(t, "備註A", r.Note)
	assert.Equal(t, "10", r.InstalledCapacityRatio)
	assert.Equal(t, "5", r.NetGenerationRatio)

	require.Len(t, h.recorder.snapshots, 1)
	assert.Equal(t, res.ID, h.recorder.snapshots[0].CycleID)
	require.Len(t, h.recorder.cycles, 1)
	assert.Equal(t, "written", h.recorder.cycles[0].Outcome)

	msgs := h.notifier.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "核能: 450.0 MW")
}

func TestRunOnce_FetchFailureLeavesStateUntouched(t *testing.T) {
	h := newHarness(t)
	h.fetcher.Set(nil, errors.New("dial tcp: connection refused"))

	res := h.poller.RunOnce(context.Background())

	assert.Equal(t, OutcomeFetchFailed, res.Outcome)
	assert.Error(t, res.Err)
	_, seen := h.poller.Gate.LastSeen()
	assert.False(t, seen)
	assert.Empty(t, h.files(t))
	assert.Empty(t, h.notifier.messages())
	require.Len(t, h.recorder.cycles, 1)
	assert.Equal(t, "fetch_failed", h.recorder.cycles[0].Outcome)
}

func TestRunOnce_NilReportIsTransportFailure(t *testing.T) {
	h := newHarness(t)

	res := h.poller.RunOnce(context.Background())

	assert.Equal(t, OutcomeFetchFailed, res.Outcome)
	assert.True(t, errors.Is(res.Err, collector.ErrTransport))
}

func TestRunOnce_FetchFailureAfterSuccessKeepsLastSeen(t *testing.T) {
	h := newHarness(t)
	h.fetcher.Set(nuclearReport("2025-07-17 13:20"), nil)
	h.poller.RunOnce(context.Background())

	h.fetcher.Set(nil, errors.New("timeout"))
	h.poller.RunOnce(context.Background())

	ts, seen := h.poller.Gate.LastSeen()
	assert.True(t, seen)
	assert.Equal(t, "2025-07-17 13:20", ts)
	assert.Len(t, h.files(t), 1)
}

func TestRunOnce_SameTimestampIsSuppressed(t *testing.T) {
	h := newHarness(t)
	h.fetcher.Set(nuclearReport("2025-07-17 13:20"), nil)

	first := h.poller.RunOnce(context.Background())
	require.Equal(t, OutcomeWritten, first.Outcome)
	before, err := os.Stat(first.Path)
	require.NoError(t, err)

	second := h.poller.RunOnce(context.Background())
	assert.Equal(t, OutcomeUnchanged, second.Outcome)
	assert.Equal(t, 0, second.Records)
	assert.Empty(t, second.Path)

	after, err := os.Stat(first.Path)
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime())
	assert.Len(t, h.files(t), 1)
	assert.Len(t, h.recorder.snapshots, 1)
	assert.Len(t, h.notifier.messages(), 1)
}

func TestRunOnce_NewTimestampWritesNewFile(t *testing.T) {
	h := newHarness(t)
	h.fetcher.Set(nuclearReport("2025-07-17 13:20"), nil)
	h.poller.RunOnce(context.Background())
	h.fetcher.Set(nuclearReport("2025-07-17 13:30"), nil)
	res := h.poller.RunOnce(context.Background())

	assert.Equal(t, OutcomeWritten, res.Outcome)
	assert.ElementsMatch(t, []string{"power_usage_data_202507171320.csv", "power_usage_data_202507171330.csv"}, h.files(t))
}

func TestRunOnce_SkipsMalformedRows(t *testing.T) {
	h := newHarness(t)
	report := nuclearReport("2025-07-17 13:20")
	report.Rows = append(report.Rows, model.RawRow{"燃煤", "燃煤"})
	h.fetcher.Set(report, nil)

	res := h.poller.RunOnce(context.Background())

	assert.Equal(t, OutcomeWritten, res.Outcome)
	assert.Equal(t, 1, res.Records)
	assert.Equal(t, 1, res.Skipped)
	assert.Contains(t, h.notifier.messages()[0], "略過 1 筆")
}

func TestRunOnce_PersistFailureIsRetried(t *testing.T) {
	h := newHarness(t)
	missing := filepath.Join(h.dir, "out")
	h.poller.Writer = snapshot.NewWriter(missing)
	h.fetcher.Set(nuclearReport("2025-07-17 13:20"), nil)

	res := h.poller.RunOnce(context.Background())
	assert.Equal(t, OutcomePersistFailed, res.Outcome)
	assert.True(t, errors.Is(res.Err, snapshot.ErrPersist))
	assert.Equal(t, filepath.Join(missing, "power_usage_data_202507171320.csv"), res.Path)
	assert.True(t, h.poller.Status().RetryPending)
	assert.Empty(t, h.recorder.snapshots)

	require.NoError(t, os.Mkdir(missing, 0755))

	res = h.poller.RunOnce(context.Background())
	assert.Equal(t, OutcomeWritten, res.Outcome)
	_, err := os.Stat(res.Path)
	assert.NoError(t, err)

	status := h.poller.Status()
	assert.False(t, status.RetryPending)
	assert.Equal(t, 1, status.Written)
	assert.Equal(t, 1, status.Failed)

	res = h.poller.RunOnce(context.Background())
	assert.Equal(t, OutcomeUnchanged, res.Outcome)
}

func TestRunOnce_SinkFailuresDoNotAffectGate(t *testing.T) {
	h := newHarness(t)
	h.recorder.failSnap = true
	h.notifier.err = errors.New("telegram down")
	h.fetcher.Set(nuclearReport("2025-07-17 13:20"), nil)

	res := h.poller.RunOnce(context.Background())
	assert.Equal(t, OutcomeWritten, res.Outcome)
	assert.NoError(t, res.Err)

	res = h.poller.RunOnce(context.Background())
	assert.Equal(t, OutcomeUnchanged, res.Outcome)
}

func TestRun_PollsUntilCancelled(t *testing.T) {
	h := newHarness(t)
	h.poller.Interval = 10 * time.Millisecond
	h.fetcher.Set(nil, errors.New("offline"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.poller.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return len(h.recorderCycles()) >= 3
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Empty(t, h.files(t))
}

func (h *harness) recorderCycles() []string {
	h.recorder.mu.Lock()
	defer h.recorder.mu.Unlock()
	var out []string
	for _, c := range h.recorder.cycles {
		out = append(out, c.Outcome)
	}
	return out
}

func TestNewPoller_Defaults(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, 60*time.Second, h.poller.Interval)
	assert.Equal(t, PollInterval, h.poller.Interval)
	_, seen := h.poller.Gate.LastSeen()
	assert.False(t, seen)
}
