// Package velocity implements the carrier adapter for the Velocity Express
// HTTP API. Transient 5xx failures are retried with exponential backoff;
// authentication failures fail fast with no retry.
package velocity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/courierhq/dispatch/internal/config"
	"github.com/courierhq/dispatch/pkg/log"
)

// Client is the low-level Velocity Express HTTP client
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	maxRetries int
}

var (
	// ErrAuth indicates rejected credentials; never retried
	ErrAuth = errors.New("velocity authentication failed")

	// ErrServer indicates a 5xx response that survived all retries
	ErrServer = errors.New("velocity server error")
)

const initBackoff = 500 * time.Millisecond

// NewClient creates a Velocity API client from the provider configuration
func NewClient(cfg config.VelocityConfig, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		maxRetries: cfg.MaxRetries,
	}
}

// post sends a request with bounded exponential-backoff retry on 5xx and
// transport failures. Authentication failures return immediately
func (c *Client) post(
	ctx context.Context, path string, body any,
) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := initBackoff << (attempt - 1)
			slog.Warn("Retrying Velocity request",
				slog.String("path", path),
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay),
				log.Error(lastErr))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		data, retryable, err := c.postOnce(ctx, path, body)
		if err == nil {
			return data, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf(
		"request failed after %d retries: %w", c.maxRetries, lastErr,
	)
}

// postOnce sends a single request with no retry. Booking calls use this
// directly because shipment creation is not idempotent
func (c *Client) postOnce(
	ctx context.Context, path string, body any,
) ([]byte, bool, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, false, err
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload),
	)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, err
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden:
		return nil, false, fmt.Errorf("%w: HTTP %d", ErrAuth, resp.StatusCode)
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, true, fmt.Errorf(
			"%w: HTTP %d", ErrServer, resp.StatusCode,
		)
	case resp.StatusCode != http.StatusOK:
		return nil, false, fmt.Errorf(
			"velocity API returned HTTP %d: %s",
			resp.StatusCode, string(data),
		)
	}
	return data, false, nil
}
