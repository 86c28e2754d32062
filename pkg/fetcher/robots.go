package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"
)

// robotsCache keeps parsed robots.txt rules per host for the life of a run.
type robotsCache struct {
	client    *http.Client
	userAgent string
	logger    *zap.Logger

	mu    sync.RWMutex
	hosts map[string]*robotstxt.RobotsData
}

func newRobotsCache(client *http.Client, userAgent string, logger *zap.Logger) *robotsCache {
	return &robotsCache{
		client:    client,
		userAgent: userAgent,
		logger:    logger,
		hosts:     make(map[string]*robotstxt.RobotsData),
	}
}

// allowAll stands in for hosts whose robots.txt could not be fetched or parsed.
var allowAll, _ = robotstxt.FromStatusAndBytes(http.StatusNotFound, nil)

// Allowed fails open when robots.txt cannot be fetched or parsed. Rules,
// including the fail-open verdict, are fetched once per host.
func (r *robotsCache) Allowed(ctx context.Context, rawURL string) bool {
	target, err := url.Parse(rawURL)
	if err != nil || !target.IsAbs() {
		return false
	}
	host := strings.ToLower(target.Host)

	r.mu.RLock()
	data, ok := r.hosts[host]
	r.mu.RUnlock()
	if !ok {
		data, err = r.fetch(ctx, target)
		if err != nil && ctx.Err() != nil {
			return true
		}
		if err != nil {
			r.logger.Warn("robots fetch failed; allowing access",
				zap.String("host", target.Host), zap.Error(err))
			data = allowAll
		}
		r.mu.Lock()
		r.hosts[host] = data
		r.mu.Unlock()
	}
	return data.TestAgent(target.RequestURI(), r.userAgent)
}

func (r *robotsCache) fetch(ctx context.Context, target *url.URL) (*robotstxt.RobotsData, error) {
	robotsURL := target.Scheme + "://" + target.Host + "/robots.txt"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build robots request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer resp.Body.Close()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}
	return data, nil
}
