// Package ranking scores listings against a query and explains each score.
package ranking

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/lukman83/mercari-shopper/internal/filter"
	"github.com/lukman83/mercari-shopper/internal/models"
)

// Composite weights. Budget and condition dominate; brand/color only breaks ties.
const (
	WeightBudget     = 0.35
	WeightCondition  = 0.30
	WeightKeyword    = 0.25
	WeightBrandColor = 0.10
)

const (
	ReasonWithinBudget     = "within budget"
	ReasonOverBudget       = "over budget"
	ReasonAtOrAboveMinimum = "at or above minimum budget"
	ReasonBelowMinimum     = "below minimum budget"
	ReasonRequestedCondMet = "matches requested condition"
	ReasonConditionUnclear = "condition unclear or mismatched"
	ReasonKeywordMatch     = "keyword match"
	ReasonLowKeywordMatch  = "low keyword match"
	ReasonBrandMatch       = "brand match"
	ReasonBrandMismatch    = "brand partially mismatched"
	ReasonColorMatch       = "color match"
	ReasonColorMismatch    = "color partially mismatched"
)

// ExcellentCondition is the reason for a listing in one of the preferred tiers.
func ExcellentCondition(tier string) string {
	return fmt.Sprintf("excellent condition (%s)", tier)
}

// Preferred condition tiers, best first.
var conditionTiers = []string{"新品、未使用", "未使用に近い", "目立った傷や汚れなし"}

// RankAndExplain scores every listing, sorts by score descending (stable, so
// ties keep input order) and returns at most max(1, topK) entries. Fewer
// listings than topK are returned as they are, never padded.
func RankAndExplain(listings []models.Listing, q *models.SearchQuery, topK int) []models.RankedListing {
	ranked := make([]models.RankedListing, 0, len(listings))
	for _, l := range listings {
		ranked = append(ranked, Score(l, q))
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })

	if topK < 1 {
		topK = 1
	}
	if len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return ranked
}

// Score computes the composite score and reasons for one listing.
func Score(l models.Listing, q *models.SearchQuery) models.RankedListing {
	reasons := make([]string, 0, 5)

	sb, rb := BudgetScore(l.PriceJPY, q)
	if rb != "" {
		reasons = append(reasons, rb)
	}
	sc, rc := ConditionScore(l.Condition, q)
	if rc != "" {
		reasons = append(reasons, rc)
	}
	sk, rk := KeywordScore(l.Title, q)
	reasons = append(reasons, rk)

	sbc, rbc := BrandColorScore(l, q)
	reasons = append(reasons, rbc...)

	composite := WeightBudget*sb + WeightCondition*sc + WeightKeyword*sk + WeightBrandColor*sbc
	return models.RankedListing{
		Listing: l,
		Score:   round4(composite),
		Reasons: reasons,
	}
}

// BudgetScore rewards headroom under the maximum. With only a minimum set
// the gap is normalised by the price itself, which gives a different curve
// from the maximum branch.
func BudgetScore(price int64, q *models.SearchQuery) (float64, string) {
	switch {
	case q.BudgetMax != nil:
		max := *q.BudgetMax
		if price <= max {
			gap := float64(max - price)
			return clamp01(0.6 + 0.4*gap/float64(atLeastOne(max))), ReasonWithinBudget
		}
		over := float64(price - max)
		return math.Max(0, 0.6-over/float64(max+1)), ReasonOverBudget
	case q.BudgetMin != nil:
		min := *q.BudgetMin
		if price >= min {
			gap := float64(price - min)
			return clamp01(0.6 + 0.4*gap/float64(atLeastOne(price))), ReasonAtOrAboveMinimum
		}
		return 0.2, ReasonBelowMinimum
	default:
		return 0.5, ""
	}
}

// ConditionScore is neutral when no condition was requested.
func ConditionScore(condition string, q *models.SearchQuery) (float64, string) {
	if len(q.Condition) == 0 {
		return 0.5, ""
	}
	for i, tier := range conditionTiers {
		if strings.Contains(condition, tier) {
			return 1.0 - float64(i)*0.15, ExcellentCondition(tier)
		}
	}
	for _, c := range q.Condition {
		if strings.Contains(condition, c) {
			return 0.75, ReasonRequestedCondMet
		}
	}
	return 0.4, ReasonConditionUnclear
}

// KeywordScore is the share of keywords found in the title, mapped onto
// [0.6, 1.0]; no hit at all scores a flat 0.4.
func KeywordScore(title string, q *models.SearchQuery) (float64, string) {
	t := strings.ToLower(title)
	hits := 0
	for _, kw := range q.Keywords {
		if strings.Contains(t, strings.ToLower(kw)) {
			hits++
		}
	}
	if hits == 0 {
		return 0.4, ReasonLowKeywordMatch
	}
	ratio := float64(hits) / float64(atLeastOne(int64(len(q.Keywords))))
	return 0.6 + 0.4*ratio, ReasonKeywordMatch
}

// BrandColorScore starts at 0.5 and moves with brand and color independently.
func BrandColorScore(l models.Listing, q *models.SearchQuery) (float64, []string) {
	hay := filter.Haystack(l)
	s := 0.5
	var reasons []string

	if len(q.Brand) > 0 {
		if containsAll(hay, q.Brand) {
			s += 0.2
			reasons = append(reasons, ReasonBrandMatch)
		} else {
			s -= 0.15
			reasons = append(reasons, ReasonBrandMismatch)
		}
	}
	if len(q.Color) > 0 {
		if containsAll(hay, q.Color) {
			s += 0.1
			reasons = append(reasons, ReasonColorMatch)
		} else {
			s -= 0.1
			reasons = append(reasons, ReasonColorMismatch)
		}
	}
	return clamp01(s), reasons
}

func containsAll(hay string, terms []string) bool {
	for _, t := range terms {
		if !strings.Contains(hay, strings.ToLower(t)) {
			return false
		}
	}
	return true
}

func atLeastOne(v int64) int64 {
	if v < 1 {
		return 1
	}
	return v
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
