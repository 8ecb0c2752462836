package ingest

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/crestline/perf/pkg/httputil"
	"github.com/crestline/perf/pkg/logger"
)

// Fetcher reads a spreadsheet as raw bytes from a URL or a local path
// ⭐ SSOT: source file access happens only here
type Fetcher struct {
	httpClient *httputil.Client
	logger     *logger.Logger
}

// NewFetcher creates a new fetcher. Retries follow httpClient, which is
// single-shot unless configured otherwise: a failed fetch fails the load
// and the caller decides how to fall back.
func NewFetcher(httpClient *httputil.Client, log *logger.Logger) *Fetcher {
	return &Fetcher{
		httpClient: httpClient,
		logger:     log,
	}
}

// Fetch returns the bytes behind location
func (f *Fetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	if isRemote(location) {
		if f.httpClient == nil {
			return nil, fmt.Errorf("fetch %s: no HTTP client configured", location)
		}

		data, err := f.httpClient.GetBytes(ctx, location)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", location, err)
		}
		return data, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(location)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", location, err)
	}

	f.logger.WithFields(map[string]interface{}{
		"source": location,
		"bytes":  len(data),
	}).Debug("Read source file")

	return data, nil
}

func isRemote(location string) bool {
	l := strings.ToLower(location)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}
