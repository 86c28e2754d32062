package reporter

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amosWeiskopf/corpuscrawl/internal/models"
)

var fixedTime = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func sampleReport() *models.CrawlReport {
	agg := NewAggregator()
	agg.Add(models.PageResult{URL: "https://example.com/docs/a", Title: "Doc A", Body: "alpha", CharCount: 5, Tier: "readability"})
	agg.Add(models.PageResult{URL: "https://example.com/docs/b", Title: "Doc B", Body: "beta!!", CharCount: 6, Tier: "dom"})

	report := agg.Report()
	report.RunID = "run-1"
	report.Seeds = []string{"https://example.com/docs/a"}
	report.IncludePattern = []string{`https://example\.com/docs/.*$`}
	report.IgnorePattern = []string{`.*\.png$`}
	report.Visited = []string{"https://example.com/docs/a", "https://example.com/docs/b"}
	report.Ignored = []string{"https://example.com/docs/logo.png"}
	report.State = "terminated"
	return report
}

func newTestReporter(t *testing.T, manifest bool) *Reporter {
	t.Helper()
	r := New(t.TempDir(), manifest, nil)
	r.Now = func() time.Time { return fixedTime }
	return r
}

func TestAggregatorAssignsOrderAndTotals(t *testing.T) {
	agg := NewAggregator()
	first := agg.Add(models.PageResult{URL: "a", CharCount: 3})
	second := agg.Add(models.PageResult{URL: "b", CharCount: 4})

	assert.Equal(t, 1, first.Order)
	assert.Equal(t, 2, second.Order)
	assert.Equal(t, 2, agg.Len())

	report := agg.Report()
	assert.Equal(t, 7, report.TotalChars)
	require.Len(t, report.Pages, 2)
	assert.Equal(t, "a", report.Pages[0].URL)
}

func TestAggregatorConcurrentAdds(t *testing.T) {
	agg := NewAggregator()
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			agg.Add(models.PageResult{CharCount: 2})
		}()
	}
	wg.Wait()

	report := agg.Report()
	assert.Len(t, report.Pages, 50)
	assert.Equal(t, 100, report.TotalChars)

	sum := 0
	for _, p := range report.Pages {
		sum += p.CharCount
	}
	assert.Equal(t, report.TotalChars, sum)
}

func TestCorpus(t *testing.T) {
	r := newTestReporter(t, false)

	want := "# Doc A (2 pages, 11 chars total)\n" +
		"## Doc A\n(page 5 chars, url: https://example.com/docs/a)\nalpha\n" +
		"---\n" +
		"## Doc B\n(page 6 chars, url: https://example.com/docs/b)\nbeta!!\n"
	assert.Equal(t, want, r.Corpus(sampleReport()))
}

func TestCorpusEmpty(t *testing.T) {
	r := newTestReporter(t, false)
	got := r.Corpus(&models.CrawlReport{})
	assert.Equal(t, "# no content extracted\nThe crawler could not extract any content from the given URLs.", got)
}

func TestAuditLog(t *testing.T) {
	r := newTestReporter(t, false)
	got := r.AuditLog(sampleReport(), 1234)

	assert.Contains(t, got, "seeds: https://example.com/docs/a\n")
	assert.Contains(t, got, "visited: 2\n")
	assert.Contains(t, got, "crawled: 2\n")
	assert.Contains(t, got, "ignored: 1\n")
	assert.Contains(t, got, "total chars: 11\n")
	assert.Contains(t, got, "corpus size: 1234 bytes\n")
	assert.Contains(t, got, "\nvisited URLs:\n- https://example.com/docs/a\n- https://example.com/docs/b\n")
	assert.Contains(t, got, "\ncrawled URLs:\n- https://example.com/docs/a | Doc A | 5 chars\n")
	assert.Contains(t, got, "\nignored URLs:\n- https://example.com/docs/logo.png\n")
}

func TestBaseName(t *testing.T) {
	long := &models.CrawlReport{Pages: []models.PageResult{{Title: "chrome.tabs | Extensions API Reference for Chrome"}}}
	sentinel := &models.CrawlReport{Pages: []models.PageResult{{Title: models.TitleNotFound}}}

	assert.Equal(t, "chrome.tabs _ Extensions API R-20260314-092653", BaseName(long, fixedTime))
	assert.Equal(t, "title-not-found-20260314-092653", BaseName(sentinel, fixedTime))
	assert.Equal(t, "no-content-20260314-092653", BaseName(&models.CrawlReport{}, fixedTime))
}

func TestSave(t *testing.T) {
	r := newTestReporter(t, false)
	report := sampleReport()

	paths, err := r.Save(report)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(r.Dir, "Doc A-20260314-092653.txt"), paths.Corpus)
	assert.Equal(t, filepath.Join(r.Dir, "Doc A-20260314-092653-log-20260314-092653.txt"), paths.Log)
	assert.Empty(t, paths.Manifest)

	corpus, err := os.ReadFile(paths.Corpus)
	require.NoError(t, err)
	assert.Equal(t, r.Corpus(report), string(corpus))

	log, err := os.ReadFile(paths.Log)
	require.NoError(t, err)
	assert.Contains(t, string(log), "corpus size: "+strconv.Itoa(len(corpus))+" bytes")
}

func TestSaveManifest(t *testing.T) {
	r := newTestReporter(t, true)

	paths, err := r.Save(sampleReport())
	require.NoError(t, err)
	require.NotEmpty(t, paths.Manifest)

	data, err := os.ReadFile(paths.Manifest)
	require.NoError(t, err)

	var decoded models.CrawlReport
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "run-1", decoded.RunID)
	assert.Equal(t, 11, decoded.TotalChars)
	require.Len(t, decoded.Pages, 2)
	assert.Empty(t, decoded.Pages[0].Body, "page bodies stay out of the manifest")
	assert.False(t, strings.Contains(string(data), "alpha"))
}

func TestSaveEmptyReport(t *testing.T) {
	r := newTestReporter(t, false)

	paths, err := r.Save(&models.CrawlReport{})
	require.NoError(t, err)
	assert.Equal(t, "no-content-20260314-092653.txt", filepath.Base(paths.Corpus))
}
