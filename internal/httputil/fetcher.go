package httputil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/lukman83/mercari-shopper/internal/logger"
)

// Cache stores raw page bodies by URL. Implementations decide expiry.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, body []byte) error
}

// StatusError is returned for a non-2xx response.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}

// Retryable reports whether the status is treated as transient.
func (e *StatusError) Retryable() bool {
	return isRetryableStatus(e.StatusCode)
}

func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusForbidden, http.StatusServiceUnavailable:
		return true
	}
	return false
}

// Fetcher issues GET requests with bounded, linear-backoff retries.
type Fetcher struct {
	Client      *http.Client
	Headers     http.Header
	MaxAttempts int
	Backoff     time.Duration
	Cache       Cache

	sleep func(ctx context.Context, d time.Duration) error
}

// NewFetcher returns a Fetcher with 3 attempts and a 500ms base backoff.
func NewFetcher(client *http.Client, headers http.Header) *Fetcher {
	if client == nil {
		client = NewHTTPClient(nil, 0)
	}
	return &Fetcher{
		Client:      client,
		Headers:     headers,
		MaxAttempts: 3,
		Backoff:     500 * time.Millisecond,
	}
}

// Fetch GETs rawURL with params merged into its query string and returns the
// decoded body. Transport errors and 429/403/503 are retried, sleeping
// attempt*Backoff between attempts. Any other non-2xx status fails at once.
// Errors that report Permanent() true are not retried. When attempts run out
// the last error is returned as is.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, params url.Values) ([]byte, error) {
	target, err := withParams(rawURL, params)
	if err != nil {
		return nil, err
	}

	if f.Cache != nil {
		if body, ok, err := f.Cache.Get(ctx, target); err != nil {
			logger.Warn("cache read %s: %v", target, err)
		} else if ok {
			logger.Debug("cache hit %s", target)
			return body, nil
		}
	}

	attempts := f.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		body, err := f.do(ctx, target)
		if err == nil {
			if f.Cache != nil {
				if err := f.Cache.Put(ctx, target, body); err != nil {
					logger.Warn("cache write %s: %v", target, err)
				}
			}
			return body, nil
		}
		var se *StatusError
		if errors.As(err, &se) && !se.Retryable() {
			return nil, err
		}
		var perm interface{ Permanent() bool }
		if errors.As(err, &perm) && perm.Permanent() {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		lastErr = err
		logger.Warn("GET failed (attempt %d/%d): %v", attempt, attempts, err)

		if attempt < attempts {
			if err := f.wait(ctx, time.Duration(attempt)*f.Backoff); err != nil {
				return nil, err
			}
		}
	}
	return nil, lastErr
}

func (f *Fetcher) do(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, vals := range f.Headers {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: target}
	}
	body, err := ReadBody(resp)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

func (f *Fetcher) wait(ctx context.Context, d time.Duration) error {
	if f.sleep != nil {
		return f.sleep(ctx, d)
	}
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func withParams(rawURL string, params url.Values) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", rawURL, err)
	}
	if len(params) == 0 {
		return u.String(), nil
	}
	q := u.Query()
	for k, vals := range params {
		q.Del(k)
		for _, v := range vals {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
