package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lukman83/mercari-shopper/internal/platform"
	"github.com/lukman83/mercari-shopper/internal/ui"
)

var searchCmd = &cobra.Command{
	Use:   "search [query...]",
	Short: "Search listings and apply budget/condition/brand/color filters",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	addQueryFlags(searchCmd)
	searchCmd.Flags().String("format", "table", "Output format: json, table")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	q, err := queryFromFlags(cmd, args)
	if err != nil {
		return err
	}
	pages, _ := cmd.Flags().GetInt("pages")
	format, _ := cmd.Flags().GetString("format")

	shop, err := newShopper()
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	spin := ui.NewSpinner()
	spin.Start(fmt.Sprintf("Searching '%s' on Mercari...", q.KeywordString()))
	ctx = platform.WithProgress(ctx, spin.Update)
	listings, err := shop.Search(ctx, q, platform.SearchOpts{Engine: cfg.Engine, Pages: pages})
	spin.Stop()
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	switch format {
	case "json":
		return writeJSON(cmd.OutOrStdout(), listings)
	default:
		printListingsTable(cmd.OutOrStdout(), listings)
	}
	return nil
}
