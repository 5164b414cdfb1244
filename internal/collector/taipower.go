package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"GridSentinel/internal/model"
)

// GenaryURL is the Taipower per-unit generation report.
const GenaryURL = "https://www.taipower.com.tw/d006/loadGraph/loadGraph/data/genary.json"

// FetchTimeout bounds a single report request.
const FetchTimeout = 30 * time.Second

// TaipowerFetcher implements Fetcher against the genary.json endpoint.
type TaipowerFetcher struct {
	URL    string
	Client *http.Client
}

// NewTaipowerFetcher creates a fetcher with optional proxy support.
func NewTaipowerFetcher(proxyURL string) *TaipowerFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &TaipowerFetcher{
		URL: GenaryURL,
		Client: &http.Client{
			Timeout:   FetchTimeout,
			Transport: transport,
		},
	}
}

func (f *TaipowerFetcher) Name() string { return "taipower" }

// Fetch performs one GET and decodes the report. It never retries.
func (f *TaipowerFetcher) Fetch(ctx context.Context) (*model.RawReport, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrTransport, err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Accept", "application/json")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", ErrTransport, f.URL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrTransport, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d, body: %s", ErrTransport, resp.StatusCode, truncate(body, 200))
	}

	var report model.RawReport
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, fmt.Errorf("%w: decode report: %v", ErrTransport, err)
	}
	return &report, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
