// Package reporter renders a crawl report into the corpus document and the
// audit log, and writes them to disk.
package reporter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/amosWeiskopf/corpuscrawl/internal/models"
	"github.com/amosWeiskopf/corpuscrawl/pkg/utils"
)

const (
	timestampLayout = "20060102-150405"
	titleNameRunes  = 30

	noContentHeading = "no content extracted"
	noContentMessage = "The crawler could not extract any content from the given URLs."
)

// Paths lists the files written by Save. Manifest is empty unless enabled.
type Paths struct {
	Corpus   string
	Log      string
	Manifest string
}

// Reporter handles report generation and persistence.
type Reporter struct {
	Dir      string
	Manifest bool
	Now      func() time.Time
	logger   *zap.Logger
}

// New creates a Reporter writing into dir.
func New(dir string, manifest bool, logger *zap.Logger) *Reporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reporter{
		Dir:      dir,
		Manifest: manifest,
		Now:      time.Now,
		logger:   logger,
	}
}

// Corpus renders all pages as a single markdown-flavored document.
func (r *Reporter) Corpus(report *models.CrawlReport) string {
	var b strings.Builder
	if len(report.Pages) == 0 {
		b.WriteString("# " + noContentHeading + "\n")
		b.WriteString(noContentMessage)
		return b.String()
	}

	fmt.Fprintf(&b, "# %s (%d pages, %d chars total)\n", report.FirstTitle(), len(report.Pages), report.TotalChars)
	for i, page := range report.Pages {
		if i > 0 {
			b.WriteString("---\n")
		}
		fmt.Fprintf(&b, "## %s\n(page %d chars, url: %s)\n%s\n", page.Title, page.CharCount, page.URL, page.Body)
	}
	return b.String()
}

// AuditLog summarizes the run: inputs, counts, and every visited, crawled
// and ignored URL.
func (r *Reporter) AuditLog(report *models.CrawlReport, corpusSize int64) string {
	var b strings.Builder

	fmt.Fprintf(&b, "run id: %s\n", report.RunID)
	fmt.Fprintf(&b, "seeds: %s\n", strings.Join(report.Seeds, ", "))
	fmt.Fprintf(&b, "include patterns: %s\n", strings.Join(report.IncludePattern, ", "))
	fmt.Fprintf(&b, "ignore patterns: %s\n", strings.Join(report.IgnorePattern, ", "))
	fmt.Fprintf(&b, "final state: %s\n", report.State)
	fmt.Fprintf(&b, "visited: %d\n", report.VisitedCount())
	fmt.Fprintf(&b, "crawled: %d\n", len(report.Pages))
	fmt.Fprintf(&b, "ignored: %d\n", report.IgnoredCount())
	fmt.Fprintf(&b, "total chars: %d\n", report.TotalChars)
	fmt.Fprintf(&b, "corpus size: %d bytes\n", corpusSize)

	b.WriteString("\nvisited URLs:\n")
	for _, u := range report.Visited {
		fmt.Fprintf(&b, "- %s\n", u)
	}

	b.WriteString("\ncrawled URLs:\n")
	for _, page := range report.Pages {
		fmt.Fprintf(&b, "- %s | %s | %d chars\n", page.URL, page.Title, page.CharCount)
	}

	b.WriteString("\nignored URLs:\n")
	for _, u := range report.Ignored {
		fmt.Fprintf(&b, "- %s\n", u)
	}
	return b.String()
}

// BaseName returns the corpus file name without extension for a report
// saved at ts.
func BaseName(report *models.CrawlReport, ts time.Time) string {
	stamp := ts.Format(timestampLayout)
	if len(report.Pages) == 0 {
		return "no-content-" + stamp
	}
	title := report.FirstTitle()
	if title == models.TitleNotFound {
		return "title-not-found-" + stamp
	}
	name := utils.SanitizeFilename(utils.TruncateRunes(title, titleNameRunes))
	if name == "" {
		return "title-not-found-" + stamp
	}
	return name + "-" + stamp
}

// Save writes the corpus, the audit log and, when enabled, a JSON manifest.
func (r *Reporter) Save(report *models.CrawlReport) (Paths, error) {
	if err := os.MkdirAll(r.Dir, 0o755); err != nil {
		return Paths{}, fmt.Errorf("create output dir: %w", err)
	}

	now := r.Now()
	base := BaseName(report, now)
	paths := Paths{Corpus: filepath.Join(r.Dir, base+".txt")}

	if err := os.WriteFile(paths.Corpus, []byte(r.Corpus(report)), 0o644); err != nil {
		return Paths{}, fmt.Errorf("write corpus: %w", err)
	}
	r.logger.Info("corpus saved", zap.String("path", paths.Corpus))

	var size int64
	if info, err := os.Stat(paths.Corpus); err == nil {
		size = info.Size()
	}

	paths.Log = filepath.Join(r.Dir, base+"-log-"+now.Format(timestampLayout)+".txt")
	if err := os.WriteFile(paths.Log, []byte(r.AuditLog(report, size)), 0o644); err != nil {
		return paths, fmt.Errorf("write audit log: %w", err)
	}
	r.logger.Info("audit log saved", zap.String("path", paths.Log))

	if r.Manifest {
		paths.Manifest = filepath.Join(r.Dir, base+".json")
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return paths, fmt.Errorf("failed to marshal report: %w", err)
		}
		if err := os.WriteFile(paths.Manifest, data, 0o644); err != nil {
			return paths, fmt.Errorf("write manifest: %w", err)
		}
		r.logger.Info("manifest saved", zap.String("path", paths.Manifest))
	}
	return paths, nil
}
