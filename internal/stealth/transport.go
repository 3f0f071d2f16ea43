package stealth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/lukman83/mercari-shopper/config"
	"github.com/lukman83/mercari-shopper/internal/logger"
)

// StealthTransport is an http.RoundTripper that applies the full stealth pipeline:
// Fingerprint, RobotsCheck (with Crawl-delay), HumanDelay, Proxy, Send.
//
// Request pacing lives in the scraper, which throttles both engines.
type StealthTransport struct {
	Base        http.RoundTripper
	Robots      *RobotsChecker
	Fingerprint *FingerprintPool
	Proxy       *ProxyRotator
	Delay       *HumanDelay

	// KeepUserAgent leaves a caller-supplied User-Agent untouched.
	KeepUserAgent bool
}

// NewTransport assembles a StealthTransport from cfg.
func NewTransport(cfg *config.Config) (*StealthTransport, error) {
	profile, err := ParseDelayProfile(cfg.DelayProfile)
	if err != nil {
		return nil, err
	}
	proxies, err := LoadProxies(cfg.HTTPProxy, cfg.ProxyFile)
	if err != nil {
		return nil, err
	}

	t := &StealthTransport{
		Robots:        NewRobotsChecker(nil, cfg.RespectRobots),
		Fingerprint:   NewFingerprintPool(cfg.AcceptLanguage),
		Proxy:         NewProxyRotator(proxies),
		Delay:         NewHumanDelay(profile),
		KeepUserAgent: cfg.UserAgent != "",
	}
	return t, nil
}

func (t *StealthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTrippers must not modify the caller's request.
	req = req.Clone(req.Context())

	// 1. Apply fingerprint (UA + headers)
	ua := req.Header.Get("User-Agent")
	if t.Fingerprint != nil {
		fp := t.Fingerprint.Next()
		if ua == "" || !t.KeepUserAgent {
			ua = fp.UserAgent
			req.Header.Set("User-Agent", ua)
		}
		for key, vals := range fp.Headers {
			if req.Header.Get(key) == "" {
				for _, v := range vals {
					req.Header.Add(key, v)
				}
			}
		}
	}

	// 2. Check robots.txt
	if t.Robots != nil {
		allowed, err := t.Robots.IsAllowed(req.Context(), ua, req.URL.String())
		if err == nil && !allowed {
			return nil, &BlockedError{Path: req.URL.Path}
		}
		if d := t.Robots.CrawlDelay(req.Context(), ua, req.URL.Scheme+"://"+req.URL.Host); d > 0 {
			if err := sleepCtx(req.Context(), d); err != nil {
				return nil, fmt.Errorf("crawl delay: %w", err)
			}
		}
	}

	// 3. Apply human-like delay
	if t.Delay != nil {
		if err := t.Delay.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("delay: %w", err)
		}
	}

	// 4. Route through proxy if configured
	transport := t.Base
	if t.Proxy != nil {
		p := t.Proxy.Next()
		logger.Debug("proxy %s -> %s", p.Name(), req.URL.Host)
		transport = p.Transport()
	}
	if transport == nil {
		transport = http.DefaultTransport
	}

	return transport.RoundTrip(req)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
