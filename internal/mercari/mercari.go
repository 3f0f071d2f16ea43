package mercari

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/lukman83/mercari-shopper/config"
	"github.com/lukman83/mercari-shopper/internal/filter"
	"github.com/lukman83/mercari-shopper/internal/httputil"
	"github.com/lukman83/mercari-shopper/internal/logger"
	"github.com/lukman83/mercari-shopper/internal/models"
	"github.com/lukman83/mercari-shopper/internal/platform"
)

// Platform is the registry name of this marketplace.
const Platform = "mercari"

const (
	EngineHTTP     = "http"
	EngineHeadless = "headless"
)

// MaxPages bounds how many result pages one search may fetch.
const MaxPages = 10

var (
	// ErrNotItemURL is returned when a detail request does not target an item page.
	ErrNotItemURL = errors.New("not a marketplace item url")
	// ErrUnknownEngine is returned for an engine name no strategy answers to.
	ErrUnknownEngine = errors.New("unknown retrieval engine")
)

// Scraper implements platform.Scraper for Mercari Japan. Retrieval is
// delegated to a Strategy chosen per call; extraction and filtering are the
// same whichever transport produced the markup.
type Scraper struct {
	baseURL       string
	extractor     *Extractor
	strategies    map[string]platform.Strategy
	defaultEngine string
	rateLimiter   *rate.Limiter
	maxConcurrent int
}

// NewScraper wires both retrieval engines from cfg. client carries the
// stealth transport for the HTTP engine.
func NewScraper(cfg *config.Config, client *http.Client, extractor *Extractor, cache httputil.Cache) *Scraper {
	fetcher := httputil.NewFetcher(client, httputil.BrowserHeaders(cfg.UserAgent, cfg.AcceptLanguage))
	fetcher.MaxAttempts = cfg.MaxRetries
	fetcher.Backoff = cfg.Backoff
	fetcher.Cache = cache

	headless := NewHeadlessBrowserStrategy(BrowserOptions{
		Headless:       cfg.Headless,
		Bin:            cfg.BrowserBin,
		WaitSelector:   cfg.WaitSelector,
		WaitTimeout:    cfg.WaitTimeout,
		UserAgent:      cfg.UserAgent,
		AcceptLanguage: cfg.AcceptLanguage,
	})

	return NewScraperWithStrategies(cfg, extractor, NewStaticPageStrategy(fetcher), headless)
}

// NewScraperWithStrategies builds a Scraper over explicit strategies. The
// first strategy is the default unless cfg.Engine names another one.
func NewScraperWithStrategies(cfg *config.Config, extractor *Extractor, strategies ...platform.Strategy) *Scraper {
	s := &Scraper{
		baseURL:       cfg.BaseURL,
		extractor:     extractor,
		strategies:    make(map[string]platform.Strategy, len(strategies)),
		defaultEngine: cfg.Engine,
		maxConcurrent: cfg.MaxConcurrent,
		rateLimiter:   rate.NewLimiter(rate.Inf, 1),
	}
	for i, st := range strategies {
		s.strategies[st.Name()] = st
		if i == 0 && s.defaultEngine == "" {
			s.defaultEngine = st.Name()
		}
	}
	if cfg.RatePerSecond > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		s.rateLimiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}
	if s.maxConcurrent < 1 {
		s.maxConcurrent = 1
	}
	return s
}

func (s *Scraper) strategy(engine string) (platform.Strategy, error) {
	if engine == "" {
		engine = s.defaultEngine
	}
	st, ok := s.strategies[engine]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, engine)
	}
	return st, nil
}

// Search fetches opts.Pages result pages concurrently, merges them in page
// order with URL dedup and applies the client-side filter, sort and limit.
func (s *Scraper) Search(ctx context.Context, q *models.SearchQuery, opts platform.SearchOpts) ([]models.Listing, error) {
	st, err := s.strategy(opts.Engine)
	if err != nil {
		return nil, err
	}
	pages := min(max(opts.Pages, 1), MaxPages)
	if opts.Pages > MaxPages {
		logger.Warn("search: %d pages requested, fetching %d", opts.Pages, MaxPages)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)

	results := make([][]models.Listing, pages)
	for i := 0; i < pages; i++ {
		g.Go(func() error {
			page := i + 1
			if err := s.rateLimiter.Wait(gctx); err != nil {
				return err
			}
			target := SearchURL(s.baseURL, q, page)
			logger.Debug("search page %d: %s", page, target)

			res, err := st.Execute(gctx, platform.Request{Type: platform.SearchPageRequest, URL: target, Page: page})
			if err != nil {
				return fmt.Errorf("search page %d: %w", page, err)
			}
			cards, err := s.extractor.Cards(res.HTML)
			if err != nil {
				return fmt.Errorf("extract page %d: %w", page, err)
			}
			platform.ReportProgress(ctx, "Page %d: %d listings via %s", page, len(cards), res.Strategy)
			results[i] = cards
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := mergeByURL(results)
	out := filter.Apply(merged, q)
	logger.Info("search %q: %d cards, %d after filters", q.KeywordString(), len(merged), len(out))
	return out, nil
}

// Detail fetches and extracts one item page. Only item pages on the
// configured marketplace host are fetched.
func (s *Scraper) Detail(ctx context.Context, itemURL, engine string) (*models.Listing, error) {
	if !models.IsItemURL(itemURL) || !s.extractor.isItemURL(itemURL) {
		return nil, fmt.Errorf("%w: %q", ErrNotItemURL, itemURL)
	}
	st, err := s.strategy(engine)
	if err != nil {
		return nil, err
	}
	if err := s.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	platform.ReportProgress(ctx, "Fetching %s", itemURL)
	res, err := st.Execute(ctx, platform.Request{Type: platform.DetailPageRequest, URL: itemURL})
	if err != nil {
		return nil, err
	}
	return s.extractor.Detail(res.HTML, itemURL)
}

// Enrich fetches item pages for the first n listings and fills in what the
// cards could not show. A failed fetch leaves that listing as it was.
// The input slice is not modified.
func (s *Scraper) Enrich(ctx context.Context, listings []models.Listing, n int, engine string) []models.Listing {
	out := make([]models.Listing, len(listings))
	copy(out, listings)
	if n > len(out) {
		n = len(out)
	}
	if n <= 0 {
		return out
	}

	start := time.Now()
	var g errgroup.Group
	g.SetLimit(s.maxConcurrent)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			d, err := s.Detail(ctx, out[i].URL, engine)
			if err != nil {
				logger.Warn("detail %s: %v", out[i].URL, err)
				return nil
			}
			out[i] = mergeDetail(out[i], d)
			return nil
		})
	}
	_ = g.Wait()
	logger.Debug("enriched %d listings in %s", n, time.Since(start).Round(time.Millisecond))
	return out
}

// mergeDetail keeps the card's values and takes from the item page only what
// the card lacked.
func mergeDetail(card models.Listing, d *models.Listing) models.Listing {
	if card.Condition == "" {
		card.Condition = d.Condition
	}
	if card.Shipping == "" {
		card.Shipping = d.Shipping
	}
	if card.ImageURL == "" {
		card.ImageURL = d.ImageURL
	}
	if card.Seller == nil {
		card.Seller = d.Seller
	}
	if card.Sold == nil {
		card.Sold = d.Sold
	}
	if card.Likes == nil {
		card.Likes = d.Likes
	}
	if card.DescriptionSnippet == "" {
		card.DescriptionSnippet = d.DescriptionSnippet
	}
	return card
}
