package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lukman83/mercari-shopper/internal/agent"
	"github.com/lukman83/mercari-shopper/internal/platform"
	"github.com/lukman83/mercari-shopper/internal/ui"
)

var askCmd = &cobra.Command{
	Use:   "ask [request...]",
	Short: "Ask the LLM shopping agent in free text",
	Long: `Sends the request to the configured LLM (LLM_PROVIDER=openai|anthropic), lets it
call search_mercari and fetch_listing_detail, and prints its final answer.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().Int("max-steps", agent.DefaultMaxSteps, "Maximum model round trips")
	askCmd.Flags().Bool("transcript", false, "Print the whole conversation as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	maxSteps, _ := cmd.Flags().GetInt("max-steps")
	transcript, _ := cmd.Flags().GetBool("transcript")

	llm, err := agent.NewLLM(cfg)
	if errors.Is(err, agent.ErrNotConfigured) {
		return fmt.Errorf("%w (set LLM_PROVIDER and the matching API key)", err)
	}
	if err != nil {
		return err
	}
	shop, err := newShopper()
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	spin := ui.NewSpinner()
	spin.Start(fmt.Sprintf("Asking %s...", llm.Name()))
	ctx = platform.WithProgress(ctx, spin.Update)
	conv, err := agent.New(llm, agent.NewToolbox(shop, cfg.Engine)).Run(ctx, joinArgs(args), maxSteps)
	spin.Stop()
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if transcript {
		return writeJSON(cmd.OutOrStdout(), conv)
	}
	answer := agent.FinalAnswer(conv)
	if answer == "" {
		answer = "(the model returned no answer)"
	}
	fmt.Fprintln(cmd.OutOrStdout(), answer)
	return nil
}
