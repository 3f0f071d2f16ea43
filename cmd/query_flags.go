package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/lukman83/mercari-shopper/internal/agent"
	"github.com/lukman83/mercari-shopper/internal/models"
)

func addQueryFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringSlice("keywords", nil, "Search keywords (default: derived from the query text)")
	f.Int64("budget-min", 0, "Minimum price in JPY")
	f.Int64("budget-max", 0, "Maximum price in JPY")
	f.StringSlice("condition", nil, "Condition labels: "+strings.Join(models.ConditionWhitelist(), ", "))
	f.StringSlice("brand", nil, "Brand names that must all appear")
	f.StringSlice("color", nil, "Colors that must all appear")
	f.String("category", "", "Free-text category")
	f.String("sort", "relevance", "Sort: relevance, price_asc, price_desc, new")
	f.Int("limit", models.DefaultLimit, "Maximum listings kept after filtering (max 100)")
	f.Int("pages", 1, "Result pages to fetch")
}

// queryFromFlags builds the validated query from the positional text and the
// filter flags.
func queryFromFlags(cmd *cobra.Command, args []string) (*models.SearchQuery, error) {
	f := cmd.Flags()
	raw := joinArgs(args)

	in := models.QueryInput{RawText: raw}
	in.Keywords, _ = f.GetStringSlice("keywords")
	if len(in.Keywords) == 0 {
		in.Keywords = keywordsFromText(raw)
	}
	if f.Changed("budget-min") {
		v, _ := f.GetInt64("budget-min")
		in.BudgetMin = &v
	}
	if f.Changed("budget-max") {
		v, _ := f.GetInt64("budget-max")
		in.BudgetMax = &v
	}
	in.Condition, _ = f.GetStringSlice("condition")
	in.Brand, _ = f.GetStringSlice("brand")
	in.Color, _ = f.GetStringSlice("color")
	in.Category, _ = f.GetString("category")
	in.Sort, _ = f.GetString("sort")
	limit, _ := f.GetInt("limit")
	in.Limit = &limit

	return models.NewSearchQuery(in)
}

// keywordsFromText keeps a single-word query as is and normalizes longer ones.
func keywordsFromText(raw string) []string {
	if raw == "" {
		return nil
	}
	if len(strings.Fields(raw)) == 1 {
		return []string{raw}
	}
	if kws := agent.NormalizeKeywords(raw); len(kws) > 0 {
		return kws
	}
	return []string{raw}
}

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
