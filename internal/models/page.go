package models

import "time"

const (
	// TitleNotFound is recorded when no extraction tier produced a title.
	TitleNotFound = "title not found"
	// ContentNotExtracted is recorded when every extraction tier came back empty.
	ContentNotExtracted = "content not extracted"
)

// PageResult is the record kept for every successfully fetched page.
type PageResult struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	Body      string `json:"-"`
	CharCount int    `json:"char_count"`
	// Order is the 1-based position in which the page was added to the report.
	Order int    `json:"order"`
	Tier  string `json:"tier"`
}

// CrawlReport contains the results of a crawl operation
type CrawlReport struct {
	RunID          string       `json:"run_id"`
	Seeds          []string     `json:"seeds"`
	IncludePattern []string     `json:"include_patterns"`
	IgnorePattern  []string     `json:"ignore_patterns"`
	Pages          []PageResult `json:"pages"`
	TotalChars     int          `json:"total_chars"`
	Visited        []string     `json:"visited"`
	Ignored        []string     `json:"ignored"`
	State          string       `json:"state"`
	StartedAt      time.Time    `json:"started_at"`
	FinishedAt     time.Time    `json:"finished_at"`
}

// VisitedCount is the number of URLs a fetch was attempted for.
func (r *CrawlReport) VisitedCount() int { return len(r.Visited) }

// IgnoredCount is the number of URLs that matched an ignore pattern.
func (r *CrawlReport) IgnoredCount() int { return len(r.Ignored) }

// FirstTitle returns the title of the first page, or "" for an empty report.
func (r *CrawlReport) FirstTitle() string {
	if len(r.Pages) == 0 {
		return ""
	}
	return r.Pages[0].Title
}
