// Package config loads run configuration from an optional YAML file, a .env
// file and the environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/FranksOps/catgap/internal/fingerprint"
	"github.com/FranksOps/catgap/internal/urlclass"
)

// Relevance providers.
const (
	ProviderFirecrawl = "firecrawl"
	ProviderClaude    = "claude"
	// ProviderChain tries Firecrawl first and falls back to Claude.
	ProviderChain = "chain"
)

// Storage drivers for the optional result sink next to the CSV report.
const (
	DriverNone     = ""
	DriverJSONL    = "jsonl"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Report formats written after a run, besides the CSV.
var ReportFormats = []string{"markdown", "text", "json", "html"}

// Config is the full configuration of a run.
type Config struct {
	Site          SiteConfig          `mapstructure:"site"`
	Keywords      KeywordsConfig      `mapstructure:"keywords"`
	KnownListings KnownListingsConfig `mapstructure:"known_listings"`
	Pacing        PacingConfig        `mapstructure:"pacing"`
	SerpAPI       SerpAPIConfig       `mapstructure:"serpapi"`
	Relevance     RelevanceConfig     `mapstructure:"relevance"`
	Fetch         FetchConfig         `mapstructure:"fetch"`
	Output        OutputConfig        `mapstructure:"output"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Metrics       MetricsConfig       `mapstructure:"metrics"`
	Log           LogConfig           `mapstructure:"log"`
}

// SiteConfig describes the target site and its known URL shapes.
type SiteConfig struct {
	BaseURL           string   `mapstructure:"base_url"`
	ListingPaths      []string `mapstructure:"listing_paths"`
	DetailPaths       []string `mapstructure:"detail_paths"`
	IrrelevantPaths   []string `mapstructure:"irrelevant_paths"`
	CollectionSegment string   `mapstructure:"collection_segment"`
	ProductSegment    string   `mapstructure:"product_segment"`
}

// KeywordsConfig points at the keyword file.
type KeywordsConfig struct {
	File  string `mapstructure:"file"`
	Limit int    `mapstructure:"limit"`
}

// KnownListingsConfig points at the optional listing reference CSV.
type KnownListingsConfig struct {
	File string `mapstructure:"file"`
}

// PacingConfig holds the pauses after each external call and each keyword.
type PacingConfig struct {
	CallDelay    time.Duration `mapstructure:"call_delay"`
	KeywordDelay time.Duration `mapstructure:"keyword_delay"`
	Jitter       float64       `mapstructure:"jitter"`
}

// SerpAPIConfig configures the search provider.
type SerpAPIConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Engine  string        `mapstructure:"engine"`
	Num     int           `mapstructure:"num"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// RelevanceConfig selects and configures the relevance provider.
type RelevanceConfig struct {
	Provider  string          `mapstructure:"provider"`
	Firecrawl FirecrawlConfig `mapstructure:"firecrawl"`
	Claude    ClaudeConfig    `mapstructure:"claude"`
}

// FirecrawlConfig configures the Firecrawl extract API.
type FirecrawlConfig struct {
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	MaxWait      time.Duration `mapstructure:"max_wait"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// ClaudeConfig configures the Anthropic messages API.
type ClaudeConfig struct {
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	Model        string        `mapstructure:"model"`
	MaxTokens    int64         `mapstructure:"max_tokens"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxPageChars int           `mapstructure:"max_page_chars"`
}

// FetchConfig configures direct page reads (Claude provider, sitemaps).
type FetchConfig struct {
	UserAgent     string        `mapstructure:"user_agent"`
	Timeout       time.Duration `mapstructure:"timeout"`
	Fingerprint   string        `mapstructure:"fingerprint"`
	RespectRobots bool          `mapstructure:"respect_robots"`
	MaxBodyBytes  int64         `mapstructure:"max_body_bytes"`
	RPS           float64       `mapstructure:"rps"`
	Jitter        float64       `mapstructure:"jitter"`
}

// OutputConfig controls where reports are written.
type OutputConfig struct {
	Dir      string   `mapstructure:"dir"`
	Basename string   `mapstructure:"basename"`
	Formats  []string `mapstructure:"formats"`
}

// StorageConfig selects an additional result sink.
type StorageConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// MetricsConfig controls the Prometheus endpoint. Port 0 disables it.
type MetricsConfig struct {
	Port int `mapstructure:"port"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Site: SiteConfig{
			BaseURL:         "https://www.fatshackvintage.com.au/",
			ListingPaths:    []string{"/shop-by-category/", "/shop-all-products/", "/shop-all/", "/collections"},
			DetailPaths:     []string{"/products/"},
			IrrelevantPaths: []string{"/articles/", "/help/", "/about-us/", "/contact-us/", "/"},
		},
		Keywords:      KeywordsConfig{File: "keywords.txt", Limit: 25},
		KnownListings: KnownListingsConfig{},
		Pacing: PacingConfig{
			CallDelay:    time.Second,
			KeywordDelay: 2 * time.Second,
		},
		SerpAPI: SerpAPIConfig{
			BaseURL: "https://serpapi.com",
			Engine:  "google",
			Num:     10,
			Timeout: 30 * time.Second,
		},
		Relevance: RelevanceConfig{
			Provider: ProviderFirecrawl,
			Firecrawl: FirecrawlConfig{
				BaseURL:      "https://api.firecrawl.dev",
				PollInterval: 2 * time.Second,
				MaxWait:      2 * time.Minute,
				Timeout:      60 * time.Second,
			},
			Claude: ClaudeConfig{
				Model:        "claude-sonnet-4-5",
				MaxTokens:    1024,
				Timeout:      60 * time.Second,
				MaxPageChars: 12000,
			},
		},
		Fetch: FetchConfig{
			Timeout:       30 * time.Second,
			Fingerprint:   string(fingerprint.ProfileGo),
			RespectRobots: true,
			MaxBodyBytes:  4 << 20,
			RPS:           1,
			Jitter:        0.2,
		},
		Output: OutputConfig{
			Dir:      "outputs",
			Basename: "category_opportunity_analysis",
			Formats:  []string{"markdown"},
		},
		Log: LogConfig{Level: "info"},
	}
}

// normalise trims and lower-cases enumerated values and drops empty list
// entries.
func (c *Config) normalise() {
	c.Site.BaseURL = strings.TrimSpace(c.Site.BaseURL)
	c.Site.ListingPaths = compact(c.Site.ListingPaths)
	c.Site.DetailPaths = compact(c.Site.DetailPaths)
	c.Site.IrrelevantPaths = compact(c.Site.IrrelevantPaths)
	c.Keywords.File = strings.TrimSpace(c.Keywords.File)
	c.KnownListings.File = strings.TrimSpace(c.KnownListings.File)
	c.SerpAPI.APIKey = strings.TrimSpace(c.SerpAPI.APIKey)
	c.Relevance.Provider = strings.ToLower(strings.TrimSpace(c.Relevance.Provider))
	c.Relevance.Firecrawl.APIKey = strings.TrimSpace(c.Relevance.Firecrawl.APIKey)
	c.Relevance.Claude.APIKey = strings.TrimSpace(c.Relevance.Claude.APIKey)
	c.Fetch.Fingerprint = strings.ToLower(strings.TrimSpace(c.Fetch.Fingerprint))
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))

	formats := compact(c.Output.Formats)
	for i, f := range formats {
		formats[i] = strings.ToLower(f)
		if formats[i] == "md" {
			formats[i] = "markdown"
		}
	}
	slices.Sort(formats)
	c.Output.Formats = slices.Compact(formats)
}

// Validate reports every invalid setting at once. Missing API keys are not
// errors: the dependent call fails at run time instead. See MissingCredentials.
func (c Config) Validate() error {
	var errs []error

	if c.Site.BaseURL == "" {
		errs = append(errs, errors.New("site.base_url is required"))
	} else if u, err := url.Parse(c.Site.BaseURL); err != nil || u.Host == "" {
		errs = append(errs, fmt.Errorf("site.base_url %q must be an absolute URL", c.Site.BaseURL))
	}
	if c.Keywords.Limit <= 0 {
		errs = append(errs, errors.New("keywords.limit must be positive"))
	}
	if c.Pacing.CallDelay < 0 || c.Pacing.KeywordDelay < 0 {
		errs = append(errs, errors.New("pacing delays must not be negative"))
	}
	if c.Pacing.Jitter < 0 || c.Pacing.Jitter > 1 {
		errs = append(errs, errors.New("pacing.jitter must be within [0, 1]"))
	}
	switch c.Relevance.Provider {
	case ProviderFirecrawl, ProviderClaude, ProviderChain:
	default:
		errs = append(errs, fmt.Errorf("relevance.provider %q must be one of firecrawl, claude, chain", c.Relevance.Provider))
	}
	if _, err := fingerprint.ParseProfile(c.Fetch.Fingerprint); err != nil {
		errs = append(errs, fmt.Errorf("fetch.fingerprint: %w", err))
	}
	switch c.Storage.Driver {
	case DriverNone, DriverJSONL, DriverSQLite:
	case DriverPostgres:
		if strings.TrimSpace(c.Storage.DSN) == "" {
			errs = append(errs, errors.New("storage.dsn is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q must be one of jsonl, sqlite, postgres", c.Storage.Driver))
	}
	for _, f := range c.Output.Formats {
		if !slices.Contains(ReportFormats, f) {
			errs = append(errs, fmt.Errorf("output.formats: unknown format %q", f))
		}
	}
	if c.Output.Dir == "" || c.Output.Basename == "" {
		errs = append(errs, errors.New("output.dir and output.basename are required"))
	}
	if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
		errs = append(errs, fmt.Errorf("metrics.port %d out of range", c.Metrics.Port))
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q must be one of debug, info, warn, error", c.Log.Level))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// MissingCredentials names the environment variables the configured
// providers need but do not have.
func (c Config) MissingCredentials() []string {
	var missing []string
	if c.SerpAPI.APIKey == "" {
		missing = append(missing, EnvSerpAPIKey)
	}
	usesFirecrawl := c.Relevance.Provider == ProviderFirecrawl || c.Relevance.Provider == ProviderChain
	usesClaude := c.Relevance.Provider == ProviderClaude || c.Relevance.Provider == ProviderChain
	if usesFirecrawl && c.Relevance.Firecrawl.APIKey == "" {
		missing = append(missing, EnvFirecrawlKey)
	}
	if usesClaude && c.Relevance.Claude.APIKey == "" {
		missing = append(missing, EnvAnthropicKey)
	}
	return missing
}

// PathConfig builds the URL classifier configuration for the site.
func (c Config) PathConfig() (urlclass.PathConfig, error) {
	return urlclass.NewPathConfig(c.Site.BaseURL, c.Site.ListingPaths, c.Site.DetailPaths, c.Site.IrrelevantPaths,
		urlclass.Segments{Collection: c.Site.CollectionSegment, Product: c.Site.ProductSegment})
}

func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
