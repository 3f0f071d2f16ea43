package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lukman83/mercari-shopper/internal/platform"
	"github.com/lukman83/mercari-shopper/internal/ui"
)

var detailCmd = &cobra.Command{
	Use:   "detail [item-url]",
	Short: "Show seller, condition and description of one listing",
	Args:  cobra.ExactArgs(1),
	RunE:  runDetail,
}

func init() {
	detailCmd.Flags().String("format", "table", "Output format: json, table")
	rootCmd.AddCommand(detailCmd)
}

func runDetail(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	shop, err := newShopper()
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	spin := ui.NewSpinner()
	spin.Start("Fetching " + args[0])
	ctx = platform.WithProgress(ctx, spin.Update)
	listing, err := shop.Detail(ctx, args[0], cfg.Engine)
	spin.Stop()
	if err != nil {
		return fmt.Errorf("detail failed: %w", err)
	}

	if format == "json" {
		return writeJSON(cmd.OutOrStdout(), listing)
	}
	printListingDetail(cmd.OutOrStdout(), listing)
	return nil
}
