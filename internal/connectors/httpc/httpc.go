// Package httpc is the shared HTTP plumbing for connectors. It issues
// requests and maps transport/status failures onto the domain error
// taxonomy so every connector classifies consistently.
package httpc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/pharmos-labs/vigil-cli/internal/core/domain"
)

// DefaultTimeout bounds a connector HTTP client when none is supplied.
// The safe executor applies the per-attempt timeout via context, so
// this is only a backstop.
const DefaultTimeout = 30 * time.Second

// StatusError reports a non-2xx response.
type StatusError struct {
	Code   int
	Status string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %s", e.Status)
}

// NewClient returns an HTTP client with the backstop timeout.
func NewClient() *http.Client {
	return &http.Client{Timeout: DefaultTimeout}
}

// GetJSON issues a GET and decodes the JSON response body into v.
//
// Failures are classified: transport errors and 5xx are transient,
// 429 becomes a ThrottleError honouring Retry-After, other 4xx are
// client faults. Callers can special-case statuses (e.g. a 404 that
// means "no matches") with errors.As on *StatusError.
func GetJSON(ctx context.Context, hc *http.Client, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.ClientError(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		// Includes dial failures, resets and context timeouts.
		return domain.Transient(err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.Transient(err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return domain.ClientError(fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// GetBody issues a GET and returns the raw response body.
// Classification matches GetJSON.
func GetBody(ctx context.Context, hc *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, domain.ClientError(err)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return nil, domain.Transient(err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.Transient(err)
	}
	return body, nil
}

func classifyStatus(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	statusErr := &StatusError{Code: resp.StatusCode, Status: resp.Status}
	if resp.StatusCode == http.StatusTooManyRequests {
		return &domain.ThrottleError{
			RetryAfter: retryAfter(resp),
			Cause:      statusErr,
		}
	}
	return domain.ClassifyHTTPStatus(resp.StatusCode, statusErr)
}

// retryAfter parses the Retry-After header, in seconds.
func retryAfter(resp *http.Response) time.Duration {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return 0
	}
	secs, err := strconv.Atoi(header)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
