// Package crawler runs the batch crawl loop over a URL frontier.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/amosWeiskopf/corpuscrawl/internal/config"
	"github.com/amosWeiskopf/corpuscrawl/internal/metrics"
	"github.com/amosWeiskopf/corpuscrawl/internal/models"
	"github.com/amosWeiskopf/corpuscrawl/pkg/extractor"
	"github.com/amosWeiskopf/corpuscrawl/pkg/matcher"
	"github.com/amosWeiskopf/corpuscrawl/pkg/reporter"
	"github.com/amosWeiskopf/corpuscrawl/pkg/utils"
)

// State is the lifecycle phase of a Crawler.
type State int32

const (
	Idle State = iota
	Running
	Paused
	Draining
	Terminated
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Draining:
		return "draining"
	case Terminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// ErrAlreadyStarted is returned when Crawl is called more than once.
var ErrAlreadyStarted = errors.New("crawl already started")

// Crawler walks the frontier in batches until it is empty or the operator
// declines to continue past the page limit.
type Crawler struct {
	cfg     Config
	deps    Dependencies
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	state    atomic.Int32
	maxPages atomic.Int64
}

// New validates cfg and deps and returns an idle Crawler.
func New(cfg Config, deps Dependencies, opts ...Option) (*Crawler, error) {
	if len(cfg.Seeds) == 0 {
		return nil, config.ErrNoSeeds
	}
	for _, seed := range cfg.Seeds {
		if !utils.IsHTTPURL(seed) {
			return nil, fmt.Errorf("invalid seed %q: not an absolute http(s) URL", seed)
		}
	}
	if cfg.Concurrency <= 0 {
		return nil, fmt.Errorf("concurrency must be positive, got %d", cfg.Concurrency)
	}
	if cfg.MaxPages <= 0 {
		return nil, fmt.Errorf("max pages must be positive, got %d", cfg.MaxPages)
	}
	if cfg.PageIncrement <= 0 {
		return nil, fmt.Errorf("page increment must be positive, got %d", cfg.PageIncrement)
	}
	if deps.Fetcher == nil || deps.Extractor == nil || deps.Links == nil || deps.Confirmer == nil {
		return nil, errors.New("crawler dependencies are incomplete")
	}

	c := &Crawler{
		cfg:    cfg,
		deps:   deps,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	c.maxPages.Store(int64(cfg.MaxPages))
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// State returns the current lifecycle phase.
func (c *Crawler) State() State { return State(c.state.Load()) }

// MaxPages returns the current page limit, including any confirmed increments.
func (c *Crawler) MaxPages() int { return int(c.maxPages.Load()) }

func (c *Crawler) setState(s State) { c.state.Store(int32(s)) }

// taskOutcome is written by exactly one batch worker and read by the
// orchestrator after the batch barrier.
type taskOutcome struct {
	page      *models.PageResult
	discovery extractor.Discovery
	done      int64
}

// Crawl runs until the frontier is empty, the operator declines to continue,
// or ctx is done. Pages appear in the report in batch completion order, which
// is not deterministic across runs. On cancellation the partial report is
// returned along with ctx.Err().
func (c *Crawler) Crawl(ctx context.Context) (*models.CrawlReport, error) {
	if !c.state.CompareAndSwap(int32(Idle), int32(Running)) {
		return nil, ErrAlreadyStarted
	}

	runID := uuid.NewString()
	logger := c.logger.With(zap.String("run_id", runID))
	started := c.now()

	frontier := c.seedFrontier(logger)
	agg := reporter.NewAggregator()

	logger.Info("crawl started",
		zap.Strings("seeds", c.cfg.Seeds),
		zap.Int("max_pages", c.MaxPages()),
		zap.Int("concurrency", c.cfg.Concurrency))

	var runErr error
	for frontier.Pending() > 0 {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		if visited := frontier.VisitedCount(); visited >= c.MaxPages() {
			c.setState(Paused)
			ok, err := c.deps.Confirmer.Confirm(ctx, visited, c.MaxPages())
			if err != nil {
				runErr = fmt.Errorf("confirm continuation: %w", err)
				break
			}
			if !ok {
				logger.Info("page limit reached, stopping",
					zap.Int("visited", visited),
					zap.Int("discarded", frontier.Discard()))
				break
			}
			c.maxPages.Add(int64(c.cfg.PageIncrement))
			logger.Info("page limit raised", zap.Int("max_pages", c.MaxPages()))
			c.setState(Running)
		}

		batch := frontier.NextBatch(c.cfg.Concurrency)
		if len(batch) == 0 {
			continue
		}

		c.setState(Draining)
		batchStart := time.Now()
		outcomes := c.runBatch(ctx, batch, frontier)
		c.metrics.ObserveBatch(time.Since(batchStart))

		for _, out := range outcomes {
			c.metrics.Ignored(frontier.MarkIgnored(out.discovery.Ignored))
			c.metrics.Enqueued(frontier.Merge(out.discovery.Links))
			if out.page != nil {
				page := agg.Add(*out.page)
				c.metrics.Extracted(page.Tier)
				logger.Info("page crawled",
					zap.String("url", page.URL),
					zap.String("title", page.Title),
					zap.Int("chars", page.CharCount),
					zap.String("tier", page.Tier))
			}
		}

		logger.Debug("batch complete",
			zap.Int("size", len(batch)),
			zap.Int("visited", frontier.VisitedCount()),
			zap.Int("pending", frontier.Pending()),
			zap.Duration("elapsed", time.Since(batchStart)))
		c.setState(Running)
	}
	c.setState(Terminated)

	report := agg.Report()
	report.RunID = runID
	report.Seeds = append([]string(nil), c.cfg.Seeds...)
	report.IncludePattern = append([]string(nil), c.cfg.IncludePatterns...)
	report.IgnorePattern = append([]string(nil), c.cfg.IgnorePatterns...)
	report.Visited = frontier.Visited()
	report.Ignored = frontier.Ignored()
	report.State = c.State().String()
	report.StartedAt = started
	report.FinishedAt = c.now()

	logger.Info("crawl finished",
		zap.Int("visited", report.VisitedCount()),
		zap.Int("crawled", len(report.Pages)),
		zap.Int("ignored", report.IgnoredCount()),
		zap.Int("total_chars", report.TotalChars))

	return report, runErr
}

// seedFrontier queues the seeds. Seeds are not required to match an include
// pattern, but a seed matching an ignore pattern is recorded as ignored and
// never fetched.
func (c *Crawler) seedFrontier(logger *zap.Logger) *Frontier {
	if c.deps.Classifier == nil {
		return NewFrontier(c.cfg.Seeds)
	}
	var seeds, ignored []string
	for _, seed := range c.cfg.Seeds {
		if c.deps.Classifier.Classify(utils.NormalizeURL(seed)) == matcher.Ignored {
			logger.Warn("seed matches an ignore pattern, skipping", zap.String("url", seed))
			ignored = append(ignored, seed)
			continue
		}
		seeds = append(seeds, seed)
	}
	f := NewFrontier(seeds)
	c.metrics.Ignored(f.MarkIgnored(ignored))
	return f
}

// runBatch fetches every URL in batch concurrently and returns the outcomes
// sorted by completion.
func (c *Crawler) runBatch(ctx context.Context, batch []string, seen extractor.SeenChecker) []taskOutcome {
	outcomes := make([]taskOutcome, len(batch))
	var completed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Concurrency)
	for i, url := range batch {
		g.Go(func() error {
			out := c.process(gctx, url, seen)
			out.done = completed.Add(1)
			outcomes[i] = out
			return nil
		})
	}
	// Tasks never return errors.
	_ = g.Wait()

	slices.SortFunc(outcomes, func(a, b taskOutcome) int {
		return int(a.done - b.done)
	})
	return outcomes
}

// process handles one URL. Failures are logged and yield an empty outcome.
func (c *Crawler) process(ctx context.Context, url string, seen extractor.SeenChecker) (out taskOutcome) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("crawl task panicked",
				zap.String("url", url),
				zap.Any("panic", r))
			out = taskOutcome{}
		}
	}()

	resp, err := c.deps.Fetcher.Fetch(ctx, url)
	if err != nil {
		c.metrics.FetchFailed()
		c.logger.Warn("fetch failed", zap.String("url", url), zap.Error(err))
		return taskOutcome{}
	}
	c.metrics.Fetched()

	res := c.deps.Extractor.Extract(url, resp.HTML)
	out.page = &models.PageResult{
		URL:       url,
		Title:     res.Title,
		Body:      res.Body,
		CharCount: utils.CharCount(res.Body),
		Tier:      res.Tier,
	}

	discovery, err := c.deps.Links.ExtractLinks(url, resp.HTML, seen)
	if err != nil {
		c.logger.Debug("link extraction failed", zap.String("url", url), zap.Error(err))
		return out
	}
	out.discovery = discovery
	return out
}
