package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/amosWeiskopf/corpuscrawl/internal/config"
	"github.com/amosWeiskopf/corpuscrawl/internal/logging"
	"github.com/amosWeiskopf/corpuscrawl/internal/metrics"
	"github.com/amosWeiskopf/corpuscrawl/pkg/crawler"
	"github.com/amosWeiskopf/corpuscrawl/pkg/extractor"
	"github.com/amosWeiskopf/corpuscrawl/pkg/fetcher"
	"github.com/amosWeiskopf/corpuscrawl/pkg/matcher"
	"github.com/amosWeiskopf/corpuscrawl/pkg/reporter"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// flagKeys maps command-line flags to their config keys.
var flagKeys = map[string]string{
	"include":        "crawler.include_patterns",
	"ignore":         "crawler.ignore_patterns",
	"max-pages":      "crawler.max_pages",
	"concurrency":    "crawler.concurrency",
	"on-limit":       "crawler.on_limit",
	"timeout":        "fetcher.timeout",
	"rps":            "fetcher.requests_per_second",
	"respect-robots": "fetcher.respect_robots",
	"output-dir":     "output.dir",
	"manifest":       "output.manifest",
	"metrics-addr":   "metrics.addr",
	"log-level":      "logging.level",
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "corpuscrawl",
		Short: "CorpusCrawl - documentation corpus builder",
		Long: `CorpusCrawl crawls a documentation site from one or more seed URLs,
extracts the readable text of every matching page and writes it to a single
corpus file together with an audit log.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", "", "Config file path")
	root.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")

	root.AddCommand(newCrawlCmd())
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), root.Version)
		},
	})
	return root
}

func newCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [seed URL...]",
		Short: "Crawl from the seed URLs and write the corpus",
		RunE:  runCrawl,
	}

	flags := cmd.Flags()
	flags.StringSlice("include", nil, "Regex a URL must match to be crawled (repeatable)")
	flags.StringSlice("ignore", config.DefaultIgnorePatterns, "Regex that excludes a URL (repeatable, wins over --include)")
	flags.Int("max-pages", 100, "Pages to visit before asking whether to continue")
	flags.Int("concurrency", 10, "URLs fetched in parallel per batch")
	flags.String("on-limit", config.OnLimitPrompt, "At the page limit: prompt, continue or stop")
	flags.BoolP("yes", "y", false, "Keep crawling past the page limit without asking")
	flags.Bool("no-prompt", false, "Stop at the page limit without asking")
	flags.Duration("timeout", 10*time.Second, "Per-request timeout")
	flags.Float64("rps", 0, "Maximum requests per second (0 = unlimited)")
	flags.Bool("respect-robots", false, "Skip URLs disallowed by robots.txt")
	flags.String("output-dir", ".", "Directory for the corpus and log files")
	flags.Bool("manifest", false, "Also write a JSON manifest of the run")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address")
	cmd.MarkFlagsMutuallyExclusive("yes", "no-prompt")
	return cmd
}

func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	v := viper.New()
	for name, key := range flagKeys {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", name, err)
		}
	}

	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(v, configPath)
	if err != nil {
		return nil, err
	}

	if len(args) > 0 {
		cfg.Crawler.Seeds = args
	}
	if yes, _ := cmd.Flags().GetBool("yes"); yes {
		cfg.Crawler.OnLimit = config.OnLimitContinue
	}
	if noPrompt, _ := cmd.Flags().GetBool("no-prompt"); noPrompt {
		cfg.Crawler.OnLimit = config.OnLimitStop
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newConfirmer(cmd *cobra.Command, onLimit string) crawler.Confirmer {
	switch onLimit {
	case config.OnLimitContinue:
		return crawler.AutoConfirmer(true)
	case config.OnLimitStop:
		return crawler.AutoConfirmer(false)
	default:
		return crawler.NewPromptConfirmer(cmd.InOrStdin(), cmd.ErrOrStderr())
	}
}

func runCrawl(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	if cfg.Metrics.Addr != "" {
		srv := &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           metricsMux(reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		logger.Info("serving metrics", zap.String("addr", cfg.Metrics.Addr))
	}

	urlMatcher, err := matcher.New(cfg.EffectiveIncludePatterns(), cfg.Crawler.IgnorePatterns)
	if err != nil {
		return fmt.Errorf("failed to compile patterns: %w", err)
	}

	f, err := fetcher.New(fetcher.OptionsFromConfig(cfg.Fetcher, logger))
	if err != nil {
		return fmt.Errorf("failed to create fetcher: %w", err)
	}

	c, err := crawler.New(crawler.ConfigFrom(cfg), crawler.Dependencies{
		Fetcher:    f,
		Extractor:  extractor.NewChain(logger),
		Links:      extractor.NewLinkExtractor(urlMatcher, cfg.Crawler.PrioritySelector),
		Confirmer:  newConfirmer(cmd, cfg.Crawler.OnLimit),
		Classifier: urlMatcher,
	}, crawler.WithLogger(logger), crawler.WithMetrics(m))
	if err != nil {
		return fmt.Errorf("failed to create crawler: %w", err)
	}

	report, crawlErr := c.Crawl(ctx)
	if report == nil {
		return fmt.Errorf("crawl failed: %w", crawlErr)
	}
	if crawlErr != nil {
		logger.Warn("crawl interrupted, saving partial results", zap.Error(crawlErr))
	}

	paths, err := reporter.New(cfg.Output.Dir, cfg.Output.Manifest, logger).Save(report)
	if err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Visited %d URLs, crawled %d pages, ignored %d URLs, %d chars total\n",
		report.VisitedCount(), len(report.Pages), report.IgnoredCount(), report.TotalChars)
	fmt.Fprintf(out, "Corpus saved to %s\n", paths.Corpus)
	fmt.Fprintf(out, "Log saved to %s\n", paths.Log)
	if paths.Manifest != "" {
		fmt.Fprintf(out, "Manifest saved to %s\n", paths.Manifest)
	}

	if crawlErr != nil {
		return fmt.Errorf("crawl interrupted: %w", crawlErr)
	}
	return nil
}

func metricsMux(reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	return mux
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
