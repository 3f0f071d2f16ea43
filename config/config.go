package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration. It is built once at start-up and
// passed by reference to the components that need it.
type Config struct {
	// Marketplace
	BaseURL        string // e.g. https://jp.mercari.com
	UserAgent      string // empty rotates through the stealth fingerprints
	AcceptLanguage string
	SelectorsFile  string // optional TOML overrides for the extraction selectors

	// Retrieval
	Engine        string // "http" or "headless"
	HTTPTimeout   time.Duration
	MaxRetries    int
	Backoff       time.Duration
	RespectRobots bool
	DelayProfile  string // "cautious", "normal", "aggressive"

	// Rate limiting
	RatePerSecond float64
	RateBurst     int
	MaxConcurrent int

	// Proxy
	HTTPProxy string // single proxy URL
	ProxyFile string // file with one proxy URL per line

	// Page cache
	CacheDir string
	CacheTTL time.Duration

	// Headless browser
	Headless     bool
	BrowserBin   string
	WaitSelector string
	WaitTimeout  time.Duration

	// LLM
	LLMProvider      string // "openai" or "anthropic"
	OpenAIAPIKey     string
	OpenAIModel      string
	OpenAIBaseURL    string
	AnthropicAPIKey  string
	AnthropicModel   string
	AnthropicBaseURL string

	// HTTP servers
	HTTPPort string
	APIKey   string
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:        "https://jp.mercari.com",
		AcceptLanguage: "ja-JP,ja;q=0.9,en-US;q=0.8,en;q=0.7",
		Engine:         "http",
		HTTPTimeout:    15 * time.Second,
		MaxRetries:     3,
		Backoff:        500 * time.Millisecond,
		RespectRobots:  true,
		DelayProfile:   "normal",
		RatePerSecond:  2.0,
		RateBurst:      3,
		MaxConcurrent:  4,
		CacheTTL:       time.Hour,
		Headless:       true,
		WaitSelector:   "img",
		WaitTimeout:    7 * time.Second,
		LLMProvider:    "openai",
		OpenAIModel:    "gpt-4o-mini",
		AnthropicModel: "claude-3-5-sonnet-20240620",
		HTTPPort:       "8080",
	}
}

// LoadFromEnv loads .env file (if present) then overrides config from environment variables.
func (c *Config) LoadFromEnv() {
	// Auto-load .env file; silently ignored if missing
	_ = godotenv.Load()

	if v := os.Getenv("MERCARI_BASE_URL"); v != "" {
		c.BaseURL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv("USER_AGENT"); v != "" {
		c.UserAgent = v
	}
	if v := os.Getenv("ACCEPT_LANGUAGE"); v != "" {
		c.AcceptLanguage = v
	}
	if v := os.Getenv("SHOPPER_SELECTORS"); v != "" {
		c.SelectorsFile = v
	}
	if v := os.Getenv("SHOPPER_ENGINE"); v != "" {
		c.Engine = v
	}
	if v, ok := envSeconds("HTTP_TIMEOUT"); ok {
		c.HTTPTimeout = v
	}
	if v := os.Getenv("HTTP_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxRetries = n
		}
	}
	if v, ok := envSeconds("HTTP_BACKOFF_SECONDS"); ok {
		c.Backoff = v
	}
	if v := os.Getenv("SHOPPER_RESPECT_ROBOTS"); v == "false" {
		c.RespectRobots = false
	}
	if v := os.Getenv("SHOPPER_DELAY_PROFILE"); v != "" {
		c.DelayProfile = v
	}
	if v := os.Getenv("SHOPPER_RATE_PER_SECOND"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.RatePerSecond = f
		}
	}
	if v := os.Getenv("SHOPPER_RATE_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RateBurst = n
		}
	}
	if v := os.Getenv("SHOPPER_MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxConcurrent = n
		}
	}
	if v := os.Getenv("HTTP_PROXY"); v != "" {
		c.HTTPProxy = v
	}
	if v := os.Getenv("SHOPPER_PROXIES"); v != "" {
		c.ProxyFile = v
	}
	if v := os.Getenv("CACHE_DIR"); v != "" {
		c.CacheDir = v
	}
	if v, ok := envSeconds("REQUESTS_CACHE_EXPIRE_SECONDS"); ok {
		c.CacheTTL = v
	}
	if v := os.Getenv("BROWSER_HEADLESS"); v != "" {
		c.Headless = parseBool(v, c.Headless)
	}
	if v := os.Getenv("ROD_BROWSER_BIN"); v != "" {
		c.BrowserBin = v
	}
	if v := os.Getenv("BROWSER_WAIT_SELECTOR"); v != "" {
		c.WaitSelector = v
	}
	if v, ok := envSeconds("BROWSER_WAIT_TIMEOUT"); ok {
		c.WaitTimeout = v
	}
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		c.LLMProvider = strings.ToLower(v)
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.OpenAIAPIKey = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		c.OpenAIModel = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		c.OpenAIBaseURL = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		c.AnthropicAPIKey = v
	}
	if v := os.Getenv("ANTHROPIC_MODEL"); v != "" {
		c.AnthropicModel = v
	}
	if v := os.Getenv("ANTHROPIC_BASE_URL"); v != "" {
		c.AnthropicBaseURL = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.HTTPPort = v
	}
	if v := os.Getenv("SHOPPER_API_KEY"); v != "" {
		c.APIKey = v
	}
}

// Validate reports settings that would make the retrieval layer misbehave.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base url is required")
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("max retries must be >= 1, got %d", c.MaxRetries)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http timeout must be positive, got %s", c.HTTPTimeout)
	}
	if c.Backoff < 0 {
		return fmt.Errorf("backoff must not be negative, got %s", c.Backoff)
	}
	switch c.Engine {
	case "http", "headless":
	default:
		return fmt.Errorf("unknown engine %q (want http or headless)", c.Engine)
	}
	if c.MaxConcurrent < 1 {
		c.MaxConcurrent = 1
	}
	return nil
}

// envSeconds reads a float number of seconds, e.g. HTTP_BACKOFF_SECONDS=0.5.
func envSeconds(key string) (time.Duration, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return time.Duration(f * float64(time.Second)), true
}

func parseBool(v string, def bool) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}
