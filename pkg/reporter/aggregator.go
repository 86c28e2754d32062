package reporter

import (
	"sync"

	"github.com/amosWeiskopf/corpuscrawl/internal/models"
)

// Aggregator collects page results in arrival order and keeps the running
// character total. It is safe for concurrent use.
type Aggregator struct {
	mu         sync.Mutex
	pages      []models.PageResult
	totalChars int
}

// NewAggregator returns an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Add appends p, assigning its 1-based Order, and returns the stored copy.
func (a *Aggregator) Add(p models.PageResult) models.PageResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	p.Order = len(a.pages) + 1
	a.pages = append(a.pages, p)
	a.totalChars += p.CharCount
	return p
}

// Len returns the number of pages collected so far.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pages)
}

// Report returns a snapshot holding the pages and total character count.
func (a *Aggregator) Report() *models.CrawlReport {
	a.mu.Lock()
	defer a.mu.Unlock()

	return &models.CrawlReport{
		Pages:      append([]models.PageResult(nil), a.pages...),
		TotalChars: a.totalChars,
	}
}
