package cmd

import (
	"errors"
	"log"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/lukman83/mercari-shopper/internal/agent"
	"github.com/lukman83/mercari-shopper/internal/api"
	"github.com/lukman83/mercari-shopper/internal/logger"
)

var serveAPICmd = &cobra.Command{
	Use:   "serve-api",
	Short: "Start the JSON REST API (/health, /search, /detail, /ask)",
	RunE:  runServeAPI,
}

func init() {
	serveAPICmd.Flags().String("port", "", "HTTP port (default from $PORT or 8080)")
	serveAPICmd.Flags().String("allowed-origins", "", "Comma-separated CORS origins (default: all)")
	rootCmd.AddCommand(serveAPICmd)
}

func runServeAPI(cmd *cobra.Command, args []string) error {
	shop, err := newShopper()
	if err != nil {
		return err
	}

	opts := api.Options{Shopper: shop, APIKey: cfg.APIKey}
	if v, _ := cmd.Flags().GetString("allowed-origins"); v != "" {
		opts.AllowedOrigins = strings.Split(v, ",")
	}

	llm, err := agent.NewLLM(cfg)
	switch {
	case err == nil:
		opts.Agent = agent.New(llm, agent.NewToolbox(shop, cfg.Engine))
	case errors.Is(err, agent.ErrNotConfigured):
		log.Printf("/ask disabled: %v", err)
	default:
		return err
	}

	if !logger.IsVerbose() {
		gin.SetMode(gin.ReleaseMode)
	}
	return api.Serve(listenAddr(cmd), api.NewRouter(opts))
}
