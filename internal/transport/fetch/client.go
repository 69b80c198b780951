// Package fetch downloads documents from remote URLs.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/hackrx-cloud/docqa/internal/domain"
)

// Defaults for document downloads.
const (
	DefaultTimeout  = 120 * time.Second
	DefaultMaxBytes = 50 << 20 // 50 MiB
)

// Client downloads document bytes over HTTP with a hard size cap.
type Client struct {
	httpClient *http.Client
	maxBytes   int64
	logger     *zap.Logger
}

// NewClient creates a download client. Zero values fall back to the
// package defaults.
func NewClient(timeout time.Duration, maxBytes int64, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		maxBytes:   maxBytes,
		logger:     logger,
	}
}

// Download fetches the document at url. Any non-2xx response or a body
// exceeding the size cap is reported as domain.ErrDocumentFetch.
func (c *Client) Download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", domain.ErrDocumentFetch, err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDocumentFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("%w: unexpected status %d", domain.ErrDocumentFetch, resp.StatusCode)
	}

	// Read one byte past the cap to distinguish "exactly at the cap"
	// from "too large".
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrDocumentFetch, err)
	}
	if int64(len(body)) > c.maxBytes {
		return nil, fmt.Errorf("%w: document exceeds %d bytes", domain.ErrDocumentFetch, c.maxBytes)
	}

	c.logger.Debug("document downloaded",
		zap.Int("bytes", len(body)),
		zap.Duration("duration", time.Since(start)),
	)

	return body, nil
}
