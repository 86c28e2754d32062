// Package fetcher retrieves pages over HTTP with a rotating User-Agent.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/http/cookiejar"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"

	"github.com/amosWeiskopf/corpuscrawl/internal/config"
)

// DefaultUserAgents is the browser pool rotated across requests.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.5 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:109.0) Gecko/20100101 Firefox/115.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/116.0.0.0 Safari/537.36",
}

var (
	// ErrUnexpectedStatus marks responses other than 200 OK.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")
	// ErrDisallowedByRobots marks URLs skipped because robots.txt forbids them.
	ErrDisallowedByRobots = errors.New("disallowed by robots.txt")
)

// FetchError describes a failed fetch. StatusCode is zero for transport errors.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: %v %d", e.URL, e.Err, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Response is a successfully fetched page.
type Response struct {
	URL         string
	StatusCode  int
	ContentType string
	HTML        []byte
}

// Fetcher retrieves a single URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Response, error)
}

// Options configures an HTTPFetcher.
type Options struct {
	Timeout           time.Duration
	UserAgents        []string
	RequestsPerSecond float64
	RespectRobots     bool
	RobotsUserAgent   string
	MaxBodyBytes      int64
	// Client overrides the default client. Its Timeout is left untouched.
	Client *http.Client
	Logger *zap.Logger
}

// OptionsFromConfig maps the fetcher section of the config file.
func OptionsFromConfig(cfg config.FetcherConfig, logger *zap.Logger) Options {
	return Options{
		Timeout:           cfg.Timeout,
		UserAgents:        cfg.UserAgents,
		RequestsPerSecond: cfg.RequestsPerSecond,
		RespectRobots:     cfg.RespectRobots,
		RobotsUserAgent:   cfg.RobotsUserAgent,
		MaxBodyBytes:      cfg.MaxBodyBytes,
		Logger:            logger,
	}
}

// HTTPFetcher performs one GET per call with no retries.
type HTTPFetcher struct {
	client       *http.Client
	userAgents   []string
	limiter      *rate.Limiter
	robots       *robotsCache
	maxBodyBytes int64
	logger       *zap.Logger
}

// New builds an HTTPFetcher.
func New(opts Options) (*HTTPFetcher, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	client := opts.Client
	if client == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        50,
				MaxIdleConnsPerHost: 50,
				IdleConnTimeout:     30 * time.Second,
			},
			Timeout: timeout,
			Jar:     jar,
		}
	}

	agents := opts.UserAgents
	if len(agents) == 0 {
		agents = DefaultUserAgents
	}

	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 8 << 20
	}

	f := &HTTPFetcher{
		client:       client,
		userAgents:   agents,
		maxBodyBytes: maxBody,
		logger:       logger,
	}
	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		f.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	if opts.RespectRobots {
		agent := opts.RobotsUserAgent
		if agent == "" {
			agent = "corpuscrawl"
		}
		f.robots = newRobotsCache(client, agent, logger)
	}
	return f, nil
}

func (f *HTTPFetcher) userAgent() string {
	return f.userAgents[rand.IntN(len(f.userAgents))]
}

// Fetch issues a GET for url. Only a 200 response counts as success; the body
// is decoded to UTF-8 using the response charset.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*Response, error) {
	if f.robots != nil && !f.robots.Allowed(ctx, url) {
		return nil, &FetchError{URL: url, Err: ErrDisallowedByRobots}
	}
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, &FetchError{URL: url, Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode, Err: ErrUnexpectedStatus}
	}

	contentType := resp.Header.Get("Content-Type")
	body := io.LimitReader(resp.Body, f.maxBodyBytes)
	reader, err := charset.NewReader(body, contentType)
	if err != nil {
		f.logger.Debug("charset detection failed, reading raw body",
			zap.String("url", url), zap.Error(err))
		reader = body
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	return &Response{
		URL:         url,
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		HTML:        data,
	}, nil
}
