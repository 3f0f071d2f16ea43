package platform

import (
	"context"

	"github.com/lukman83/mercari-shopper/internal/models"
)

type RequestType int

const (
	SearchPageRequest RequestType = iota
	DetailPageRequest
)

func (t RequestType) String() string {
	switch t {
	case SearchPageRequest:
		return "search"
	case DetailPageRequest:
		return "detail"
	default:
		return "unknown"
	}
}

// Request asks a retrieval strategy for one rendered page.
type Request struct {
	Type RequestType
	URL  string
	Page int
}

// Result is the raw markup a strategy retrieved. Extraction happens above the
// strategy so every transport feeds the same extractors.
type Result struct {
	HTML     string
	URL      string
	Strategy string
}

type SearchOpts struct {
	Engine string
	Pages  int
}

// Strategy is one retrieval transport (plain HTTP, headless browser).
type Strategy interface {
	Name() string
	Execute(ctx context.Context, req Request) (*Result, error)
}

// Scraper is a marketplace that can be searched and whose item pages can be read.
type Scraper interface {
	Search(ctx context.Context, q *models.SearchQuery, opts SearchOpts) ([]models.Listing, error)
	Detail(ctx context.Context, url, engine string) (*models.Listing, error)
	Enrich(ctx context.Context, listings []models.Listing, n int, engine string) []models.Listing
}
