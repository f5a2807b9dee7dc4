package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultTimeout bounds a single sink request when the sink is not configured with one.
	DefaultTimeout = 5 * time.Second

	baseRetryDelay  = 200 * time.Millisecond
	maxRetryDelay   = 5 * time.Second
	maxErrorBodyLen = 512
)

// StatusError reports a non-2xx answer from an HTTP sink.
type StatusError struct {
	Sink       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s responded %d", e.Sink, e.StatusCode)
	}
	return fmt.Sprintf("%s responded %d: %s", e.Sink, e.StatusCode, e.Body)
}

// ErrorClass groups sink failures by status family.
func (e *StatusError) ErrorClass() string {
	return fmt.Sprintf("%s_status_%dxx", e.Sink, e.StatusCode/100)
}

// Retryable is false for client errors other than request timeout and throttling.
func (e *StatusError) Retryable() bool {
	switch {
	case e.StatusCode == http.StatusTooManyRequests, e.StatusCode == http.StatusRequestTimeout:
		return true
	case e.StatusCode >= 400 && e.StatusCode < 500:
		return false
	default:
		return true
	}
}

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks err so Retry gives up immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

func isPermanent(err error) bool {
	var p permanentError
	if errors.As(err, &p) {
		return true
	}
	var se *StatusError
	return errors.As(err, &se) && !se.Retryable()
}

// Retry calls attempt up to retryLimit+1 times with doubling backoff.
// It stops early on context cancellation and on permanent errors.
func Retry(ctx context.Context, retryLimit int, attempt func(context.Context) error) error {
	delay := baseRetryDelay
	var lastErr error
	for n := 0; n <= max(retryLimit, 0); n++ {
		if n > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return errors.Join(lastErr, ctx.Err())
			case <-timer.C:
			}
			delay = min(delay*2, maxRetryDelay)
		}

		lastErr = attempt(ctx)
		if lastErr == nil || isPermanent(lastErr) {
			break
		}
	}
	var p permanentError
	if errors.As(lastErr, &p) {
		return p.err
	}
	return lastErr
}

// PostJSON encodes body and POSTs it to endpoint. Non-2xx answers come back
// as *StatusError carrying a truncated copy of the response body.
func PostJSON(ctx context.Context, client *http.Client, sink, endpoint string, body any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return Permanent(fmt.Errorf("encode %s payload: %w", sink, err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(buf))
	if err != nil {
		return Permanent(fmt.Errorf("build %s request: %w", sink, err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", sink, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLen))
	return &StatusError{
		Sink:       sink,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(snippet)),
	}
}

// HTTPClient returns hc, or a client bounded by timeout when hc is nil.
func HTTPClient(hc *http.Client, timeout time.Duration) *http.Client {
	if hc != nil {
		return hc
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// Fallback returns def when value is blank.
func Fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return value
}
