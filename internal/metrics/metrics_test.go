package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Fetched()
	m.Fetched()
	m.FetchFailed()
	m.Extracted("readability")
	m.Extracted("dom")
	m.Extracted("dom")
	m.Enqueued(3)
	m.Enqueued(0)
	m.Ignored(2)
	m.ObserveBatch(150 * time.Millisecond)

	assert.InDelta(t, 2, testutil.ToFloat64(m.PagesFetched), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.FetchErrors), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.PagesExtracted.WithLabelValues("readability")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.PagesExtracted.WithLabelValues("dom")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(m.LinksEnqueued), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.URLsIgnored), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.BatchDuration))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Fetched()
		m.FetchFailed()
		m.Extracted("none")
		m.Enqueued(1)
		m.Ignored(1)
		m.ObserveBatch(time.Second)
	})
}

func TestHandlerServesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.Fetched()

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "corpuscrawl_pages_fetched_total 1")
}
