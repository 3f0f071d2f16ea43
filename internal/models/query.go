package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidQuery is returned when a search request cannot be built.
var ErrInvalidQuery = errors.New("invalid search query")

// Sort is the requested result ordering.
type Sort string

const (
	SortRelevance Sort = "relevance"
	SortPriceAsc  Sort = "price_asc"
	SortPriceDesc Sort = "price_desc"
	SortNew       Sort = "new"
)

const (
	DefaultLimit = 30
	MaxLimit     = 100
)

// Mercari condition labels, kept in the marketplace's own wording so they can be
// matched against listing text directly. Best condition first.
var conditionWhitelist = []string{
	"新品、未使用",
	"未使用に近い",
	"目立った傷や汚れなし",
	"やや傷や汚れあり",
	"傷や汚れあり",
	"全体的に状態が悪い",
}

// ConditionWhitelist returns the accepted condition labels, best first.
func ConditionWhitelist() []string {
	out := make([]string, len(conditionWhitelist))
	copy(out, conditionWhitelist)
	return out
}

// IsKnownCondition reports whether label is one of the marketplace condition labels.
func IsKnownCondition(label string) bool {
	for _, c := range conditionWhitelist {
		if c == label {
			return true
		}
	}
	return false
}

// FindCondition returns the whitelist label that appears earliest in text.
// At equal positions the longer label wins, so "やや傷や汚れあり" is not read
// as "傷や汚れあり".
func FindCondition(text string) (string, bool) {
	best, bestAt := "", -1
	for _, c := range conditionWhitelist {
		i := strings.Index(text, c)
		if i < 0 {
			continue
		}
		if bestAt < 0 || i < bestAt || (i == bestAt && len(c) > len(best)) {
			best, bestAt = c, i
		}
	}
	return best, bestAt >= 0
}

// QueryInput is the loose shape a search request arrives in (CLI flags, JSON
// bodies, tool arguments). It becomes a SearchQuery through NewSearchQuery.
type QueryInput struct {
	RawText   string   `json:"raw_text,omitempty"`
	Keywords  []string `json:"keywords"`
	BudgetMin *int64   `json:"budget_min,omitempty"`
	BudgetMax *int64   `json:"budget_max,omitempty"`
	Condition []string `json:"condition,omitempty"`
	Brand     []string `json:"brand,omitempty"`
	Color     []string `json:"color,omitempty"`
	Category  string   `json:"category,omitempty"`
	Sort      string   `json:"sort,omitempty"`
	Limit     *int     `json:"limit,omitempty"`
}

// SearchQuery is a validated search request. It is built once per request and
// not modified afterwards.
type SearchQuery struct {
	RawText   string   `json:"raw_text,omitempty"`
	Keywords  []string `json:"keywords"`
	BudgetMin *int64   `json:"budget_min,omitempty"`
	BudgetMax *int64   `json:"budget_max,omitempty"`
	Condition []string `json:"condition"`
	Brand     []string `json:"brand"`
	Color     []string `json:"color"`
	Category  string   `json:"category,omitempty"`
	Sort      Sort     `json:"sort"`
	Limit     int      `json:"limit"`
}

// NewSearchQuery validates in and returns the normalized query.
// Unknown condition labels are dropped; an empty keyword set, a negative budget,
// an inverted budget range or an unknown sort are rejected.
func NewSearchQuery(in QueryInput) (*SearchQuery, error) {
	keywords := cleanTerms(in.Keywords)
	if len(keywords) == 0 {
		return nil, fmt.Errorf("%w: at least one keyword is required", ErrInvalidQuery)
	}

	if in.BudgetMin != nil && *in.BudgetMin < 0 {
		return nil, fmt.Errorf("%w: budget_min must be >= 0", ErrInvalidQuery)
	}
	if in.BudgetMax != nil && *in.BudgetMax < 0 {
		return nil, fmt.Errorf("%w: budget_max must be >= 0", ErrInvalidQuery)
	}
	if in.BudgetMin != nil && in.BudgetMax != nil && *in.BudgetMax < *in.BudgetMin {
		return nil, fmt.Errorf("%w: budget_max must be >= budget_min", ErrInvalidQuery)
	}

	sort, err := ParseSort(in.Sort)
	if err != nil {
		return nil, err
	}

	conditions := make([]string, 0, len(in.Condition))
	for _, c := range in.Condition {
		c = strings.TrimSpace(c)
		if IsKnownCondition(c) {
			conditions = append(conditions, c)
		}
	}

	limit := DefaultLimit
	if in.Limit != nil {
		limit = ClampLimit(*in.Limit)
	}

	return &SearchQuery{
		RawText:   strings.TrimSpace(in.RawText),
		Keywords:  keywords,
		BudgetMin: copyInt64(in.BudgetMin),
		BudgetMax: copyInt64(in.BudgetMax),
		Condition: conditions,
		Brand:     cleanTerms(in.Brand),
		Color:     cleanTerms(in.Color),
		Category:  strings.TrimSpace(in.Category),
		Sort:      sort,
		Limit:     limit,
	}, nil
}

// ParseSort maps a sort name to a Sort. The empty string means relevance.
func ParseSort(s string) (Sort, error) {
	switch Sort(strings.TrimSpace(s)) {
	case "", SortRelevance:
		return SortRelevance, nil
	case SortPriceAsc:
		return SortPriceAsc, nil
	case SortPriceDesc:
		return SortPriceDesc, nil
	case SortNew:
		return SortNew, nil
	default:
		return "", fmt.Errorf("%w: unknown sort %q", ErrInvalidQuery, s)
	}
}

// ClampLimit bounds n to [1, MaxLimit].
func ClampLimit(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxLimit {
		return MaxLimit
	}
	return n
}

// HasBudget reports whether either budget bound is set.
func (q *SearchQuery) HasBudget() bool {
	return q.BudgetMin != nil || q.BudgetMax != nil
}

// KeywordString joins the keywords the way the search box expects them.
func (q *SearchQuery) KeywordString() string {
	return strings.Join(q.Keywords, " ")
}

func cleanTerms(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func copyInt64(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
