// Package metrics exposes Prometheus counters for crawl progress.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the crawler collectors. A nil *Metrics is a valid no-op.
type Metrics struct {
	PagesFetched   prometheus.Counter
	FetchErrors    prometheus.Counter
	PagesExtracted *prometheus.CounterVec
	LinksEnqueued  prometheus.Counter
	URLsIgnored    prometheus.Counter
	BatchDuration  prometheus.Histogram
}

// New registers the crawler collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		PagesFetched: factory.NewCounter(prometheus.CounterOpts{
			Name: "corpuscrawl_pages_fetched_total",
			Help: "Pages fetched with HTTP 200.",
		}),
		FetchErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "corpuscrawl_fetch_errors_total",
			Help: "Fetches that failed with a transport error or non-200 status.",
		}),
		PagesExtracted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "corpuscrawl_pages_extracted_total",
			Help: "Pages recorded in the corpus, by the extraction tier that produced the body.",
		}, []string{"tier"}),
		LinksEnqueued: factory.NewCounter(prometheus.CounterOpts{
			Name: "corpuscrawl_links_enqueued_total",
			Help: "New URLs added to the frontier.",
		}),
		URLsIgnored: factory.NewCounter(prometheus.CounterOpts{
			Name: "corpuscrawl_urls_ignored_total",
			Help: "Distinct URLs that matched an ignore pattern.",
		}),
		BatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "corpuscrawl_batch_duration_seconds",
			Help:    "Wall time of one crawl batch.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
	}
}

// Handler serves the collectors registered in g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Fetched counts a page fetched with HTTP 200.
func (m *Metrics) Fetched() {
	if m != nil {
		m.PagesFetched.Inc()
	}
}

// FetchFailed counts a fetch that returned an error.
func (m *Metrics) FetchFailed() {
	if m != nil {
		m.FetchErrors.Inc()
	}
}

// Extracted counts a recorded page under the tier that produced its body.
func (m *Metrics) Extracted(tier string) {
	if m != nil {
		m.PagesExtracted.WithLabelValues(tier).Inc()
	}
}

// Enqueued adds n newly queued URLs.
func (m *Metrics) Enqueued(n int) {
	if m != nil && n > 0 {
		m.LinksEnqueued.Add(float64(n))
	}
}

// Ignored adds n newly ignored URLs.
func (m *Metrics) Ignored(n int) {
	if m != nil && n > 0 {
		m.URLsIgnored.Add(float64(n))
	}
}

// ObserveBatch records the wall time of one batch.
func (m *Metrics) ObserveBatch(d time.Duration) {
	if m != nil {
		m.BatchDuration.Observe(d.Seconds())
	}
}
