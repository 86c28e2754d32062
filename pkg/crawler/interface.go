package crawler

import (
	"time"

	"go.uber.org/zap"

	"github.com/amosWeiskopf/corpuscrawl/internal/config"
	"github.com/amosWeiskopf/corpuscrawl/internal/metrics"
	"github.com/amosWeiskopf/corpuscrawl/pkg/extractor"
	"github.com/amosWeiskopf/corpuscrawl/pkg/fetcher"
	"github.com/amosWeiskopf/corpuscrawl/pkg/matcher"
)

// ContentExtractor produces the title and body of a fetched page.
type ContentExtractor interface {
	Extract(pageURL string, html []byte) extractor.Result
}

// LinkFinder discovers outgoing links on a fetched page.
type LinkFinder interface {
	ExtractLinks(pageURL string, html []byte, seen extractor.SeenChecker) (extractor.Discovery, error)
}

// Classifier labels a URL against the include and ignore patterns.
type Classifier interface {
	Classify(url string) matcher.Classification
}

// Dependencies are the collaborators a Crawler drives. All but Classifier
// are required; without a Classifier seeds are queued unchecked.
type Dependencies struct {
	Fetcher    fetcher.Fetcher
	Extractor  ContentExtractor
	Links      LinkFinder
	Confirmer  Confirmer
	Classifier Classifier
}

// Config contains the crawl limits and the inputs echoed into the report.
type Config struct {
	Seeds           []string
	IncludePatterns []string
	IgnorePatterns  []string
	MaxPages        int // Pages visited before asking to continue
	PageIncrement   int // Added to MaxPages on each confirmation
	Concurrency     int // URLs per batch and parallel fetches
}

// ConfigFrom builds a crawler Config from the application config.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		Seeds:           cfg.Crawler.Seeds,
		IncludePatterns: cfg.EffectiveIncludePatterns(),
		IgnorePatterns:  cfg.Crawler.IgnorePatterns,
		MaxPages:        cfg.Crawler.MaxPages,
		PageIncrement:   cfg.Crawler.PageIncrement,
		Concurrency:     cfg.Crawler.Concurrency,
	}
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Crawler) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records crawl progress on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Crawler) {
		c.metrics = m
	}
}

// WithClock replaces time.Now for report timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Crawler) {
		if now != nil {
			c.now = now
		}
	}
}
