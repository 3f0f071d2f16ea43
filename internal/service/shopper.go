// Package service runs the recommendation pipeline: search, optional detail
// enrichment, ranking.
package service

import (
	"context"
	"fmt"

	"github.com/lukman83/mercari-shopper/internal/logger"
	"github.com/lukman83/mercari-shopper/internal/models"
	"github.com/lukman83/mercari-shopper/internal/platform"
	"github.com/lukman83/mercari-shopper/internal/ranking"
)

// DefaultTopK is what callers use when the request names no top_k.
const DefaultTopK = 3

// RecommendRequest is one recommendation run.
type RecommendRequest struct {
	Query   *models.SearchQuery
	TopK    int
	Engine  string
	Pages   int
	Details int // how many of the filtered listings get their item page fetched
}

// Shopper answers search, detail and recommendation requests over one
// marketplace scraper.
type Shopper struct {
	scraper platform.Scraper
}

func New(scraper platform.Scraper) *Shopper {
	return &Shopper{scraper: scraper}
}

// Search returns the filtered, sorted and limited listings for q.
func (s *Shopper) Search(ctx context.Context, q *models.SearchQuery, opts platform.SearchOpts) ([]models.Listing, error) {
	return s.scraper.Search(ctx, q, opts)
}

// Detail returns the listing on one item page.
func (s *Shopper) Detail(ctx context.Context, url, engine string) (*models.Listing, error) {
	return s.scraper.Detail(ctx, url, engine)
}

// Recommend ranks the listings matching req.Query and keeps the best TopK.
// An empty candidate set is reported as models.ErrNoResults.
func (s *Shopper) Recommend(ctx context.Context, req RecommendRequest) (*models.RecommendationResponse, error) {
	if req.Query == nil {
		return nil, fmt.Errorf("%w: query is required", models.ErrInvalidQuery)
	}
	listings, err := s.scraper.Search(ctx, req.Query, platform.SearchOpts{Engine: req.Engine, Pages: req.Pages})
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	if len(listings) == 0 {
		return nil, models.ErrNoResults
	}

	if req.Details > 0 {
		platform.ReportProgress(ctx, "Fetching details for %d listings...", min(req.Details, len(listings)))
		listings = s.scraper.Enrich(ctx, listings, req.Details, req.Engine)
	}

	logger.Section("Ranking")
	ranked := ranking.RankAndExplain(listings, req.Query, req.TopK)
	logger.Debug("ranked %d listings, kept %d", len(listings), len(ranked))

	return models.NewRecommendationResponse(req.Query, max(1, req.TopK), ranked)
}
