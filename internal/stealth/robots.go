package stealth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"golang.org/x/sync/singleflight"
)

const (
	robotsTTL       = time.Hour
	robotsMaxBytes  = 512 << 10
	robotsFetchWait = 10 * time.Second
)

// BlockedError is returned when robots.txt disallows a path.
type BlockedError struct {
	Path string
}

func (e *BlockedError) Error() string { return "blocked by robots.txt: " + e.Path }

// Permanent marks the failure as not worth retrying.
func (e *BlockedError) Permanent() bool { return true }

type robotsEntry struct {
	data    *robotstxt.RobotsData
	expires time.Time
}

// RobotsChecker fetches robots.txt once per origin per hour and answers
// allow and Crawl-delay questions from the cached copy.
type RobotsChecker struct {
	client  *http.Client
	enabled bool
	now     func() time.Time

	mu      sync.RWMutex
	origins map[string]robotsEntry
	group   singleflight.Group
}

func NewRobotsChecker(client *http.Client, enabled bool) *RobotsChecker {
	if client == nil {
		client = &http.Client{Timeout: robotsFetchWait}
	}
	return &RobotsChecker{
		client:  client,
		enabled: enabled,
		now:     time.Now,
		origins: make(map[string]robotsEntry),
	}
}

// IsAllowed reports whether rawURL (path and query) may be fetched by
// userAgent. An unreachable robots.txt allows the request.
func (r *RobotsChecker) IsAllowed(ctx context.Context, userAgent, rawURL string) (bool, error) {
	if !r.enabled {
		return true, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false, err
	}
	data, err := r.rules(ctx, u.Scheme+"://"+u.Host)
	if err != nil {
		return true, nil
	}
	target := u.EscapedPath()
	if u.RawQuery != "" {
		target += "?" + u.RawQuery
	}
	return data.FindGroup(userAgent).Test(target), nil
}

// CrawlDelay returns the Crawl-delay for userAgent at origin, or zero.
func (r *RobotsChecker) CrawlDelay(ctx context.Context, userAgent, origin string) time.Duration {
	if !r.enabled {
		return 0
	}
	data, err := r.rules(ctx, origin)
	if err != nil {
		return 0
	}
	return data.FindGroup(userAgent).CrawlDelay
}

func (r *RobotsChecker) rules(ctx context.Context, origin string) (*robotstxt.RobotsData, error) {
	r.mu.RLock()
	e, ok := r.origins[origin]
	r.mu.RUnlock()
	if ok && r.now().Before(e.expires) {
		return e.data, nil
	}

	v, err, _ := r.group.Do(origin, func() (any, error) {
		data, err := r.fetch(ctx, origin)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.origins[origin] = robotsEntry{data: data, expires: r.now().Add(robotsTTL)}
		r.mu.Unlock()
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*robotstxt.RobotsData), nil
}

func (r *RobotsChecker) fetch(ctx context.Context, origin string) (*robotstxt.RobotsData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil, fmt.Errorf("robots.txt request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, robotsMaxBytes))
	if err != nil {
		return nil, fmt.Errorf("read robots.txt: %w", err)
	}
	// 4xx allows everything, 5xx disallows everything.
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}
	return data, nil
}
