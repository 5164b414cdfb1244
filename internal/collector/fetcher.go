package collector

import (
	"context"
	"errors"

	"GridSentinel/internal/model"
)

// ErrTransport wraps every failure to obtain a decodable report:
// DNS, connection, non-2xx status, unreadable or malformed body.
var ErrTransport = errors.New("transport error")

// Fetcher retrieves the current generation report.
type Fetcher interface {
	Fetch(ctx context.Context) (*model.RawReport, error)
	Name() string
}

// ExtractUpdateTimestamp returns the report's update time, or "" when absent.
func ExtractUpdateTimestamp(report *model.RawReport) string {
	if report == nil {
		return ""
	}
	return report.UpdateTime
}
