package config

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Continuation policies applied when the crawl reaches its page limit.
const (
	OnLimitPrompt   = "prompt"
	OnLimitContinue = "continue"
	OnLimitStop     = "stop"
)

// ErrNoSeeds is returned when neither the config file nor the command line
// supplied a seed URL.
var ErrNoSeeds = errors.New("at least one seed URL is required")

// Config holds all application configuration
type Config struct {
	Crawler CrawlerConfig `mapstructure:"crawler"`
	Fetcher FetcherConfig `mapstructure:"fetcher"`
	Output  OutputConfig  `mapstructure:"output"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// CrawlerConfig holds crawler-specific configuration
type CrawlerConfig struct {
	Seeds            []string `mapstructure:"seeds"`
	IncludePatterns  []string `mapstructure:"include_patterns"`
	IgnorePatterns   []string `mapstructure:"ignore_patterns"`
	MaxPages         int      `mapstructure:"max_pages"`
	PageIncrement    int      `mapstructure:"page_increment"`
	Concurrency      int      `mapstructure:"concurrency"`
	PrioritySelector string   `mapstructure:"priority_selector"`
	OnLimit          string   `mapstructure:"on_limit"`
}

// FetcherConfig controls the HTTP client.
type FetcherConfig struct {
	Timeout           time.Duration `mapstructure:"timeout"`
	UserAgents        []string      `mapstructure:"user_agents"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	RespectRobots     bool          `mapstructure:"respect_robots"`
	RobotsUserAgent   string        `mapstructure:"robots_user_agent"`
	MaxBodyBytes      int64         `mapstructure:"max_body_bytes"`
}

// OutputConfig controls where the corpus and audit log are written.
type OutputConfig struct {
	Dir      string `mapstructure:"dir"`
	Manifest bool   `mapstructure:"manifest"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // "json" or "console"
	OutputPath string `mapstructure:"output_path"`
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// Load reads configuration into v from configPath (or the default search
// paths), the environment, and any flags already bound to v.
func Load(v *viper.Viper, configPath string) (*Config, error) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.corpuscrawl")
	}

	SetDefaults(v)

	v.SetEnvPrefix("CORPUSCRAWL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine when no explicit path was given.
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	return &cfg, nil
}

// SetDefaults sets default configuration values
func SetDefaults(v *viper.Viper) {
	// Crawler defaults
	v.SetDefault("crawler.seeds", []string{})
	v.SetDefault("crawler.include_patterns", []string{})
	v.SetDefault("crawler.ignore_patterns", DefaultIgnorePatterns)
	v.SetDefault("crawler.max_pages", 100)
	v.SetDefault("crawler.page_increment", 100)
	v.SetDefault("crawler.concurrency", 10)
	v.SetDefault("crawler.priority_selector", "nav.table-of-contents")
	v.SetDefault("crawler.on_limit", OnLimitPrompt)

	// Fetcher defaults
	v.SetDefault("fetcher.timeout", "10s")
	v.SetDefault("fetcher.user_agents", []string{})
	v.SetDefault("fetcher.requests_per_second", 0)
	v.SetDefault("fetcher.respect_robots", false)
	v.SetDefault("fetcher.robots_user_agent", "corpuscrawl")
	v.SetDefault("fetcher.max_body_bytes", 8<<20)

	// Output defaults
	v.SetDefault("output.dir", ".")
	v.SetDefault("output.manifest", false)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output_path", "stderr")

	v.SetDefault("metrics.addr", "")
}

// DefaultIgnorePatterns skips static resources that never carry article text.
var DefaultIgnorePatterns = []string{
	`.*\.(js|css|png|jpg|jpeg|gif|svg|ico|woff2?|pdf|zip)$`,
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if len(c.Crawler.Seeds) == 0 {
		return ErrNoSeeds
	}
	for _, seed := range c.Crawler.Seeds {
		u, err := url.Parse(seed)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("crawler.seeds: %q is not an absolute http(s) URL", seed)
		}
	}
	if c.Crawler.MaxPages <= 0 {
		return fmt.Errorf("crawler.max_pages must be positive")
	}
	if c.Crawler.PageIncrement <= 0 {
		return fmt.Errorf("crawler.page_increment must be positive")
	}
	if c.Crawler.Concurrency <= 0 {
		return fmt.Errorf("crawler.concurrency must be positive")
	}
	switch c.Crawler.OnLimit {
	case OnLimitPrompt, OnLimitContinue, OnLimitStop:
	default:
		return fmt.Errorf("crawler.on_limit must be one of %q, %q, %q", OnLimitPrompt, OnLimitContinue, OnLimitStop)
	}
	if c.Fetcher.Timeout <= 0 {
		return fmt.Errorf("fetcher.timeout must be positive")
	}
	if c.Fetcher.RequestsPerSecond < 0 {
		return fmt.Errorf("fetcher.requests_per_second must be >= 0")
	}
	if c.Fetcher.MaxBodyBytes <= 0 {
		return fmt.Errorf("fetcher.max_body_bytes must be positive")
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("output.dir must be set")
	}
	return nil
}

// EffectiveIncludePatterns returns the configured include patterns. When none
// are configured, every seed contributes a pattern covering its own host.
func (c *Config) EffectiveIncludePatterns() []string {
	if len(c.Crawler.IncludePatterns) > 0 {
		return c.Crawler.IncludePatterns
	}
	patterns := make([]string, 0, len(c.Crawler.Seeds))
	seen := make(map[string]bool)
	for _, seed := range c.Crawler.Seeds {
		u, err := url.Parse(seed)
		if err != nil || u.Host == "" {
			continue
		}
		pattern := regexp.QuoteMeta(u.Scheme+"://"+u.Host) + `(/.*)?$`
		if !seen[pattern] {
			seen[pattern] = true
			patterns = append(patterns, pattern)
		}
	}
	return patterns
}
