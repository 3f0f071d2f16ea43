package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	mcpserver "github.com/lukman83/mercari-shopper/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start MCP stdio server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := initPlatforms(); err != nil {
		return err
	}

	fmt.Fprintln(cmd.ErrOrStderr(), "Starting Mercari shopper MCP server on stdio...")

	if err := mcpserver.Serve(); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}
