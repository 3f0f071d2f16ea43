package models

import (
	"errors"
	"fmt"
)

// ErrNoResults is returned when a recommendation would contain no listings.
var ErrNoResults = errors.New("no listings matched the query")

// RankedListing is a listing with its composite score and the reasons behind it.
type RankedListing struct {
	Listing Listing  `json:"listing"`
	Score   float64  `json:"score"`
	Reasons []string `json:"reasons"`
}

// RecommendationResponse is the ranked answer to one query.
type RecommendationResponse struct {
	Query *SearchQuery    `json:"query"`
	TopK  int             `json:"top_k"`
	Items []RankedListing `json:"items"`
}

// NewRecommendationResponse builds a response, refusing empty result sets.
func NewRecommendationResponse(q *SearchQuery, topK int, items []RankedListing) (*RecommendationResponse, error) {
	if topK < 1 {
		return nil, fmt.Errorf("%w: top_k must be >= 1", ErrInvalidQuery)
	}
	if len(items) == 0 {
		return nil, ErrNoResults
	}
	return &RecommendationResponse{Query: q, TopK: topK, Items: items}, nil
}
