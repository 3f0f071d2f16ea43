package mercari

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/lukman83/mercari-shopper/internal/platform"
)

// BrowserOptions configures the headless retrieval transport.
type BrowserOptions struct {
	Headless       bool
	Bin            string // empty lets rod locate or download a browser
	WaitSelector   string
	WaitTimeout    time.Duration
	UserAgent      string
	AcceptLanguage string
}

// HeadlessBrowserStrategy renders pages in a real browser for storefronts
// that build their results client-side. Each Execute owns its own browser.
type HeadlessBrowserStrategy struct {
	opts BrowserOptions
}

func NewHeadlessBrowserStrategy(opts BrowserOptions) *HeadlessBrowserStrategy {
	if opts.WaitSelector == "" {
		opts.WaitSelector = "img"
	}
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = 7 * time.Second
	}
	if opts.AcceptLanguage == "" {
		opts.AcceptLanguage = "ja-JP,ja;q=0.9"
	}
	return &HeadlessBrowserStrategy{opts: opts}
}

func (h *HeadlessBrowserStrategy) Name() string { return EngineHeadless }

func (h *HeadlessBrowserStrategy) Execute(ctx context.Context, req platform.Request) (*platform.Result, error) {
	switch req.Type {
	case platform.SearchPageRequest, platform.DetailPageRequest:
	default:
		return nil, fmt.Errorf("%s strategy does not support request type %s", h.Name(), req.Type)
	}

	page, cleanup, err := h.openPage(ctx, req.URL)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	// The selector showing up is the signal that client-side rendering settled.
	if _, err := page.Timeout(h.opts.WaitTimeout).Element(h.opts.WaitSelector); err != nil {
		return nil, fmt.Errorf("wait for %q: %w", h.opts.WaitSelector, err)
	}

	htmlContent, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("get page HTML: %w", err)
	}

	return &platform.Result{
		HTML:     htmlContent,
		URL:      req.URL,
		Strategy: h.Name(),
	}, nil
}

// openPage launches a browser, opens a ja-JP page and navigates to pageURL.
// Whatever was acquired before a failure is released before returning; on
// success the caller owns the cleanup func.
func (h *HeadlessBrowserStrategy) openPage(ctx context.Context, pageURL string) (*rod.Page, func(), error) {
	l := launcher.New().Headless(h.opts.Headless).Logger(io.Discard)
	if h.opts.Bin != "" {
		l = l.Bin(h.opts.Bin)
	}
	controlURL, err := l.Launch()
	if err != nil {
		// No process to reap: Cleanup would block on its exit channel.
		return nil, nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		l.Kill()
		l.Cleanup()
		return nil, nil, fmt.Errorf("connect browser: %w", err)
	}

	closeBrowser := func() {
		_ = browser.Close()
		l.Kill()
		l.Cleanup()
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		closeBrowser()
		return nil, nil, fmt.Errorf("open page: %w", err)
	}
	cleanup := func() {
		_ = page.Close()
		closeBrowser()
	}

	if err := h.configurePage(page); err != nil {
		cleanup()
		return nil, nil, err
	}
	if err := page.Navigate(pageURL); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("navigate %s: %w", pageURL, err)
	}

	return page, cleanup, nil
}

func (h *HeadlessBrowserStrategy) configurePage(page *rod.Page) error {
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:  1920,
		Height: 1080,
	}); err != nil {
		return fmt.Errorf("set viewport: %w", err)
	}
	if err := (proto.EmulationSetLocaleOverride{Locale: "ja-JP"}).Call(page); err != nil {
		return fmt.Errorf("set locale: %w", err)
	}
	ua := h.opts.UserAgent
	if ua == "" {
		ua = defaultBrowserUA
	}
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      ua,
		AcceptLanguage: h.opts.AcceptLanguage,
	}); err != nil {
		return fmt.Errorf("set user agent: %w", err)
	}
	return nil
}

const defaultBrowserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/133.0.0.0 Safari/537.36"
