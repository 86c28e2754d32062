package crawler

import (
	"sync"

	"github.com/amosWeiskopf/corpuscrawl/pkg/utils"
)

// Frontier tracks the URLs still to crawl together with the visited and
// ignored sets. A URL is in at most one of queue and visited at any time.
// All methods are safe for concurrent use.
type Frontier struct {
	mu sync.RWMutex

	queue  []string
	queued map[string]struct{}

	visited      map[string]struct{}
	visitedOrder []string

	ignored      map[string]struct{}
	ignoredOrder []string
}

// NewFrontier returns a frontier seeded with the normalized seed URLs.
func NewFrontier(seeds []string) *Frontier {
	f := &Frontier{
		queued:  make(map[string]struct{}),
		visited: make(map[string]struct{}),
		ignored: make(map[string]struct{}),
	}
	f.Merge(seeds)
	return f
}

// Merge queues every URL not already visited, ignored or queued, keeping
// first-seen order. It returns the number of URLs added.
func (f *Frontier) Merge(urls []string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	added := 0
	for _, u := range urls {
		u = utils.NormalizeURL(u)
		if u == "" {
			continue
		}
		if _, ok := f.visited[u]; ok {
			continue
		}
		if _, ok := f.ignored[u]; ok {
			continue
		}
		if _, ok := f.queued[u]; ok {
			continue
		}
		f.queued[u] = struct{}{}
		f.queue = append(f.queue, u)
		added++
	}
	return added
}

// MarkIgnored records urls as ignored and returns how many were new.
func (f *Frontier) MarkIgnored(urls []string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	added := 0
	for _, u := range urls {
		u = utils.NormalizeURL(u)
		if _, ok := f.ignored[u]; ok {
			continue
		}
		f.ignored[u] = struct{}{}
		f.ignoredOrder = append(f.ignoredOrder, u)
		added++
	}
	return added
}

// NextBatch removes up to n URLs from the head of the queue, marks them
// visited and returns them. Queued URLs that have since been ignored are
// dropped without counting toward n.
func (f *Frontier) NextBatch(n int) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	batch := make([]string, 0, min(n, len(f.queue)))
	i := 0
	for ; i < len(f.queue) && len(batch) < n; i++ {
		u := f.queue[i]
		delete(f.queued, u)
		if _, ok := f.ignored[u]; ok {
			continue
		}
		f.visited[u] = struct{}{}
		f.visitedOrder = append(f.visitedOrder, u)
		batch = append(batch, u)
	}
	f.queue = f.queue[i:]
	return batch
}

// Discard drops every pending URL and returns how many there were.
func (f *Frontier) Discard() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := len(f.queue)
	f.queue = nil
	f.queued = make(map[string]struct{})
	return n
}

// Pending returns the number of queued URLs.
func (f *Frontier) Pending() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.queue)
}

// IsVisited reports whether url has been handed out by NextBatch.
func (f *Frontier) IsVisited(url string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.visited[url]
	return ok
}

// IsIgnored reports whether url was recorded by MarkIgnored.
func (f *Frontier) IsIgnored(url string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.ignored[url]
	return ok
}

// VisitedCount returns the number of visited URLs.
func (f *Frontier) VisitedCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.visitedOrder)
}

// Visited returns the visited URLs in the order they were dispatched.
func (f *Frontier) Visited() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]string(nil), f.visitedOrder...)
}

// Ignored returns the ignored URLs in the order they were first seen.
func (f *Frontier) Ignored() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]string(nil), f.ignoredOrder...)
}
