package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Environment variables holding provider credentials.
const (
	EnvSerpAPIKey   = "SERPAPI_API_KEY"
	EnvFirecrawlKey = "FIRECRAWL_API_KEY"
	EnvAnthropicKey = "ANTHROPIC_API_KEY"
)

// NewViper prepares a viper instance: .env is loaded into the environment,
// defaults are registered, the config file is read when present and
// environment variables override everything. cfgFile may be empty, in which
// case config.yaml is looked up in . and ./config.
func NewViper(cfgFile string) (*viper.Viper, error) {
	// a missing .env is normal; variables may come from the real environment
	_ = godotenv.Load()

	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v, Default())

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := bindEnv(v); err != nil {
		return nil, err
	}
	return v, nil
}

// Load decodes, normalises and validates the configuration held by v.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalise()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func bindEnv(v *viper.Viper) error {
	binds := map[string][]string{
		"serpapi.api_key":             {EnvSerpAPIKey, "SERPAPI_KEY"},
		"relevance.firecrawl.api_key": {EnvFirecrawlKey},
		"relevance.claude.api_key":    {EnvAnthropicKey},
		"storage.dsn":                 {"DATABASE_URL", "STORAGE_DSN"},
		"log.level":                   {"LOG_LEVEL"},
	}
	for key, envs := range binds {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("site.base_url", d.Site.BaseURL)
	v.SetDefault("site.listing_paths", d.Site.ListingPaths)
	v.SetDefault("site.detail_paths", d.Site.DetailPaths)
	v.SetDefault("site.irrelevant_paths", d.Site.IrrelevantPaths)
	v.SetDefault("site.collection_segment", d.Site.CollectionSegment)
	v.SetDefault("site.product_segment", d.Site.ProductSegment)

	v.SetDefault("keywords.file", d.Keywords.File)
	v.SetDefault("keywords.limit", d.Keywords.Limit)
	v.SetDefault("known_listings.file", d.KnownListings.File)

	v.SetDefault("pacing.call_delay", d.Pacing.CallDelay)
	v.SetDefault("pacing.keyword_delay", d.Pacing.KeywordDelay)
	v.SetDefault("pacing.jitter", d.Pacing.Jitter)

	v.SetDefault("serpapi.api_key", "")
	v.SetDefault("serpapi.base_url", d.SerpAPI.BaseURL)
	v.SetDefault("serpapi.engine", d.SerpAPI.Engine)
	v.SetDefault("serpapi.num", d.SerpAPI.Num)
	v.SetDefault("serpapi.timeout", d.SerpAPI.Timeout)

	v.SetDefault("relevance.provider", d.Relevance.Provider)
	v.SetDefault("relevance.firecrawl.api_key", "")
	v.SetDefault("relevance.firecrawl.base_url", d.Relevance.Firecrawl.BaseURL)
	v.SetDefault("relevance.firecrawl.poll_interval", d.Relevance.Firecrawl.PollInterval)
	v.SetDefault("relevance.firecrawl.max_wait", d.Relevance.Firecrawl.MaxWait)
	v.SetDefault("relevance.firecrawl.timeout", d.Relevance.Firecrawl.Timeout)
	v.SetDefault("relevance.claude.api_key", "")
	v.SetDefault("relevance.claude.base_url", d.Relevance.Claude.BaseURL)
	v.SetDefault("relevance.claude.model", d.Relevance.Claude.Model)
	v.SetDefault("relevance.claude.max_tokens", d.Relevance.Claude.MaxTokens)
	v.SetDefault("relevance.claude.timeout", d.Relevance.Claude.Timeout)
	v.SetDefault("relevance.claude.max_page_chars", d.Relevance.Claude.MaxPageChars)

	v.SetDefault("fetch.user_agent", d.Fetch.UserAgent)
	v.SetDefault("fetch.timeout", d.Fetch.Timeout)
	v.SetDefault("fetch.fingerprint", d.Fetch.Fingerprint)
	v.SetDefault("fetch.respect_robots", d.Fetch.RespectRobots)
	v.SetDefault("fetch.max_body_bytes", d.Fetch.MaxBodyBytes)
	v.SetDefault("fetch.rps", d.Fetch.RPS)
	v.SetDefault("fetch.jitter", d.Fetch.Jitter)

	v.SetDefault("output.dir", d.Output.Dir)
	v.SetDefault("output.basename", d.Output.Basename)
	v.SetDefault("output.formats", d.Output.Formats)

	v.SetDefault("storage.driver", d.Storage.Driver)
	v.SetDefault("storage.dsn", d.Storage.DSN)
	v.SetDefault("metrics.port", d.Metrics.Port)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.development", d.Log.Development)
}
