// Package fetch implements the Fetcher interface.
// It loads raw notebook bytes from a local path or an HTTP(S) URL.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gaurav-prasanna/nbdistill/core"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "nbdistill/1.0 (https://github.com/gaurav-prasanna/nbdistill)"
	maxNotebookBytes = 256 << 20
)

// SourceFetcher fetches notebooks from disk or over HTTP.
type SourceFetcher struct {
	client *http.Client
}

// New creates a SourceFetcher with a sensible timeout.
func New() *SourceFetcher {
	return &SourceFetcher{
		client: &http.Client{Timeout: defaultTimeout},
	}
}

// IsURL reports whether source names an HTTP(S) resource.
func IsURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// Fetch reads the notebook at source. Unreadable sources are INPUT errors.
func (f *SourceFetcher) Fetch(ctx context.Context, source string) (*core.FetchResult, error) {
	if !IsURL(source) {
		data, err := os.ReadFile(source)
		if err != nil {
			return nil, core.NewInputError("reading "+source, err)
		}
		return &core.FetchResult{Source: source, Data: data}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, core.NewInputError("creating request", err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", "application/x-ipynb+json, application/json;q=0.9, */*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, core.NewInputError("fetching "+source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, core.NewInputError(fmt.Sprintf("unexpected status %d for %s", resp.StatusCode, source), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxNotebookBytes))
	if err != nil {
		return nil, core.NewInputError("reading response body", err)
	}

	return &core.FetchResult{
		Source:     source,
		StatusCode: resp.StatusCode,
		Data:       body,
	}, nil
}
