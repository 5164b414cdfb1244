package scheduler

import (
	"context"
	"errors"
	"sync"

	"GridSentinel/internal/recorder"
)

type fakeRecorder struct {
	mu        sync.Mutex
	snapshots []*recorder.SnapshotRecord
	cycles    []*recorder.CycleEvent
	failSnap  bool
}

func (f *fakeRecorder) RecordSnapshot(rec *recorder.SnapshotRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSnap {
		return errors.New("disk full")
	}
	f.snapshots = append(f.snapshots, rec)
	return nil
}

func (f *fakeRecorder) RecordCycle(evt *recorder.CycleEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cycles = append(f.cycles, evt)
	return nil
}

func (f *fakeRecorder) Close() error { return nil }

type fakeNotifier struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (f *fakeNotifier) Send(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeNotifier) SendWithRetry(_ context.Context, text string, _ int) error {
	return f.Send(text)
}

func (f *fakeNotifier) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}
