package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lukman83/mercari-shopper/internal/models"
	"github.com/lukman83/mercari-shopper/internal/platform"
	"github.com/lukman83/mercari-shopper/internal/service"
	"github.com/lukman83/mercari-shopper/internal/ui"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend [query...]",
	Short: "Rank matching listings and explain the top picks",
	Example: `  mercari-shopper recommend "Nintendo Switch OLED White" --budget-max 30000 --condition 未使用に近い
  mercari-shopper recommend ニンテンドースイッチ --top-k 5 --details 10 --format json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRecommend,
}

func init() {
	addQueryFlags(recommendCmd)
	recommendCmd.Flags().Int("top-k", service.DefaultTopK, "Number of recommendations")
	recommendCmd.Flags().Int("details", 0, "Fetch item pages for this many candidates before ranking")
	recommendCmd.Flags().String("format", "table", "Output format: json, table")
	rootCmd.AddCommand(recommendCmd)
}

func runRecommend(cmd *cobra.Command, args []string) error {
	q, err := queryFromFlags(cmd, args)
	if err != nil {
		return err
	}
	pages, _ := cmd.Flags().GetInt("pages")
	topK, _ := cmd.Flags().GetInt("top-k")
	details, _ := cmd.Flags().GetInt("details")
	format, _ := cmd.Flags().GetString("format")

	shop, err := newShopper()
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	spin := ui.NewSpinner()
	spin.Start(fmt.Sprintf("Looking for '%s'...", q.KeywordString()))
	ctx = platform.WithProgress(ctx, spin.Update)
	resp, err := shop.Recommend(ctx, service.RecommendRequest{
		Query:   q,
		TopK:    topK,
		Engine:  cfg.Engine,
		Pages:   pages,
		Details: details,
	})
	spin.Stop()
	if errors.Is(err, models.ErrNoResults) {
		fmt.Fprintln(cmd.OutOrStdout(), "No listings matched the query.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("recommend failed: %w", err)
	}

	if format == "json" {
		return writeJSON(cmd.OutOrStdout(), resp)
	}
	printRecommendations(cmd.OutOrStdout(), resp)
	return nil
}
