package collector

import (
	"context"
	"sync"

	"GridSentinel/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	mu     sync.Mutex
	Report *model.RawReport
	Err    error
	Calls  int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) Fetch(_ context.Context) (*model.RawReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Report, nil
}

// Set swaps the report and error returned by later calls.
func (m *MockFetcher) Set(report *model.RawReport, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Report = report
	m.Err = err
}
