package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/lukman83/mercari-shopper/config"
	"github.com/lukman83/mercari-shopper/internal/cache"
	"github.com/lukman83/mercari-shopper/internal/httputil"
	"github.com/lukman83/mercari-shopper/internal/logger"
	"github.com/lukman83/mercari-shopper/internal/mercari"
	"github.com/lukman83/mercari-shopper/internal/platform"
	"github.com/lukman83/mercari-shopper/internal/service"
	"github.com/lukman83/mercari-shopper/internal/stealth"
)

var (
	cfg       *config.Config
	pageCache *cache.SQLiteCache
)

var rootCmd = &cobra.Command{
	Use:          "mercari-shopper",
	Short:        "Mercari Japan shopping assistant - search, rank & MCP server",
	Long:         "Searches Mercari Japan, filters and ranks listings against a budget and condition, and serves the same tools over MCP and HTTP.",
	SilenceUsage: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if pageCache == nil {
			return
		}
		if err := pageCache.Close(); err != nil {
			logger.Error("close page cache: %v", err)
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("engine", "", "Retrieval engine: http, headless (default from $SHOPPER_ENGINE or http)")
	rootCmd.PersistentFlags().String("delay-profile", "", "Delay profile: off, cautious, normal, aggressive")
	rootCmd.PersistentFlags().Bool("respect-robots", true, "Respect robots.txt rules")
	rootCmd.PersistentFlags().String("proxy-file", "", "Path to proxy list file")
	rootCmd.PersistentFlags().String("selectors", "", "TOML file overriding the extraction selectors")
	rootCmd.PersistentFlags().String("cache-dir", "", "Directory for the page cache (disabled when empty)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose logging to stderr")
}

func initConfig() {
	cfg = config.DefaultConfig()
	cfg.LoadFromEnv()

	// Flags only override what the user actually set
	flags := rootCmd.PersistentFlags()
	if v, _ := flags.GetString("engine"); v != "" {
		cfg.Engine = v
	}
	if v, _ := flags.GetString("delay-profile"); v != "" {
		cfg.DelayProfile = v
	}
	if flags.Changed("respect-robots") {
		cfg.RespectRobots, _ = flags.GetBool("respect-robots")
	}
	if v, _ := flags.GetString("proxy-file"); v != "" {
		cfg.ProxyFile = v
	}
	if v, _ := flags.GetString("selectors"); v != "" {
		cfg.SelectorsFile = v
	}
	if v, _ := flags.GetString("cache-dir"); v != "" {
		cfg.CacheDir = v
	}
	if v, _ := flags.GetBool("verbose"); v {
		logger.SetVerbose(true)
	}
}

// initPlatforms wires the retrieval stack from cfg and registers the scraper.
func initPlatforms() error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	transport, err := stealth.NewTransport(cfg)
	if err != nil {
		return err
	}
	client := httputil.NewHTTPClient(transport, cfg.HTTPTimeout)

	var pc httputil.Cache
	if cfg.CacheDir != "" {
		pageCache, err = cache.Open(cfg.CacheDir, cfg.CacheTTL)
		if err != nil {
			return err
		}
		pc = pageCache
		if n, err := pageCache.Purge(context.Background()); err != nil {
			logger.Warn("page cache purge: %v", err)
		} else {
			logger.Debug("page cache at %s (ttl %s, %d expired pages purged)", pageCache.Path(), cfg.CacheTTL, n)
		}
	}

	sel := mercari.DefaultSelectors()
	if cfg.SelectorsFile != "" {
		if sel, err = mercari.LoadSelectors(cfg.SelectorsFile); err != nil {
			return err
		}
	}
	extractor, err := mercari.NewExtractor(cfg.BaseURL, sel)
	if err != nil {
		return err
	}

	platform.Register(mercari.Platform, mercari.NewScraper(cfg, client, extractor, pc))
	return nil
}

func newScraper() (platform.Scraper, error) {
	if err := initPlatforms(); err != nil {
		return nil, err
	}
	return platform.Get(mercari.Platform)
}

// newShopper wires the platforms and returns the service over Mercari.
func newShopper() (*service.Shopper, error) {
	scraper, err := newScraper()
	if err != nil {
		return nil, err
	}
	return service.New(scraper), nil
}

// commandContext is cancelled on Ctrl-C so in-flight fetches stop early.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt)
}
