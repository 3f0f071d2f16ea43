// Package filter re-applies the query constraints the storefront cannot be
// trusted to honour, then sorts and truncates.
package filter

import (
	"sort"
	"strings"

	"github.com/lukman83/mercari-shopper/internal/models"
)

// Apply filters by budget, condition, brand and color, sorts per q.Sort and
// truncates to q.Limit. The input slice is left untouched.
func Apply(listings []models.Listing, q *models.SearchQuery) []models.Listing {
	out := make([]models.Listing, 0, len(listings))
	for _, l := range listings {
		if MatchBudget(l, q) && MatchCondition(l, q) && MatchBrandColor(l, q) {
			out = append(out, l)
		}
	}
	Sort(out, q.Sort)
	return Limit(out, q.Limit)
}

// MatchBudget reports whether the price lies in [BudgetMin, BudgetMax]; an
// unset bound is open.
func MatchBudget(l models.Listing, q *models.SearchQuery) bool {
	if q.BudgetMin != nil && l.PriceJPY < *q.BudgetMin {
		return false
	}
	if q.BudgetMax != nil && l.PriceJPY > *q.BudgetMax {
		return false
	}
	return true
}

// MatchCondition passes when no condition was requested or the listing's
// condition text contains any requested label.
func MatchCondition(l models.Listing, q *models.SearchQuery) bool {
	if len(q.Condition) == 0 {
		return true
	}
	for _, c := range q.Condition {
		if strings.Contains(l.Condition, c) {
			return true
		}
	}
	return false
}

// MatchBrandColor requires every brand and every color term to appear,
// case-insensitively, in the title or description.
func MatchBrandColor(l models.Listing, q *models.SearchQuery) bool {
	hay := Haystack(l)
	for _, b := range q.Brand {
		if !strings.Contains(hay, strings.ToLower(b)) {
			return false
		}
	}
	for _, c := range q.Color {
		if !strings.Contains(hay, strings.ToLower(c)) {
			return false
		}
	}
	return true
}

// Haystack is the lowercased text brand and color terms are searched in.
func Haystack(l models.Listing) string {
	return strings.ToLower(l.Title) + " " + strings.ToLower(l.DescriptionSnippet)
}

// Sort orders listings in place. Relevance and new keep retrieval order:
// the results page carries no signal to order them by.
func Sort(listings []models.Listing, by models.Sort) {
	switch by {
	case models.SortPriceAsc:
		sort.SliceStable(listings, func(i, j int) bool { return listings[i].PriceJPY < listings[j].PriceJPY })
	case models.SortPriceDesc:
		sort.SliceStable(listings, func(i, j int) bool { return listings[i].PriceJPY > listings[j].PriceJPY })
	}
}

// Limit truncates to limit clamped into [1, MaxLimit].
func Limit(listings []models.Listing, limit int) []models.Listing {
	limit = models.ClampLimit(limit)
	if len(listings) > limit {
		return listings[:limit]
	}
	return listings
}
