package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/lukman83/mercari-shopper/internal/models"
	"github.com/lukman83/mercari-shopper/internal/platform"
	"github.com/lukman83/mercari-shopper/internal/ui"
)

var conditionsCmd = &cobra.Command{
	Use:   "conditions [query...]",
	Short: "Show how listing conditions are distributed for a query",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runConditions,
}

func init() {
	conditionsCmd.Flags().Int("pages", 1, "Result pages to sample")
	conditionsCmd.Flags().Int("details", 0, "Fetch item pages for this many listings to fill in missing conditions")
	rootCmd.AddCommand(conditionsCmd)
}

func runConditions(cmd *cobra.Command, args []string) error {
	pages, _ := cmd.Flags().GetInt("pages")
	details, _ := cmd.Flags().GetInt("details")

	limit := models.MaxLimit
	q, err := models.NewSearchQuery(models.QueryInput{Keywords: keywordsFromText(joinArgs(args)), Limit: &limit})
	if err != nil {
		return err
	}

	scraper, err := newScraper()
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	spin := ui.NewSpinner()
	spin.Start(fmt.Sprintf("Sampling conditions for '%s'...", q.KeywordString()))
	ctx = platform.WithProgress(ctx, spin.Update)
	listings, err := scraper.Search(ctx, q, platform.SearchOpts{Engine: cfg.Engine, Pages: pages})
	if err == nil && details > 0 {
		listings = scraper.Enrich(ctx, listings, details, cfg.Engine)
	}
	spin.Stop()
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	counts := conditionCounts(listings)
	if len(counts) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No listings found.")
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Conditions for \"%s\" (%d listings sampled):\n\n", q.KeywordString(), len(listings))
	for i, e := range counts {
		fmt.Fprintf(cmd.OutOrStdout(), " %2d. %-24s  %d\n", i+1, e.label, e.count)
	}
	return nil
}

type conditionCount struct {
	label string
	count int
}

// conditionCounts groups listings by whitelist label, most frequent first.
// Listings whose condition is unknown are counted under "(unknown)".
func conditionCounts(listings []models.Listing) []conditionCount {
	counts := make(map[string]int)
	for _, l := range listings {
		label, ok := models.FindCondition(l.Condition)
		if !ok {
			label = "(unknown)"
		}
		counts[label]++
	}

	entries := make([]conditionCount, 0, len(counts))
	for label, n := range counts {
		entries = append(entries, conditionCount{label, n})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].label < entries[j].label
	})
	return entries
}
