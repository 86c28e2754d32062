package crawler

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrontierSeedsAreNormalizedAndDeduplicated(t *testing.T) {
	f := NewFrontier([]string{
		"https://example.com/a#top",
		"https://example.com/a",
		"https://example.com/b",
	})
	assert.Equal(t, 2, f.Pending())
	assert.Equal(t, []string{"https://example.com/a", "https://example.com/b"}, f.NextBatch(10))
}

func TestFrontierNextBatchIsFIFOAndMarksVisited(t *testing.T) {
	f := NewFrontier([]string{"u1", "u2", "u3"})

	assert.Equal(t, []string{"u1", "u2"}, f.NextBatch(2))
	assert.True(t, f.IsVisited("u1"))
	assert.True(t, f.IsVisited("u2"))
	assert.False(t, f.IsVisited("u3"))
	assert.Equal(t, 1, f.Pending())
	assert.Equal(t, 2, f.VisitedCount())

	assert.Equal(t, []string{"u3"}, f.NextBatch(2))
	assert.Empty(t, f.NextBatch(2))
	assert.Equal(t, []string{"u1", "u2", "u3"}, f.Visited())
}

func TestFrontierMergeSkipsKnownURLs(t *testing.T) {
	f := NewFrontier([]string{"u1"})
	f.NextBatch(1)
	f.MarkIgnored([]string{"bad"})

	added := f.Merge([]string{"u1", "bad", "u2", "u2#frag", "u3"})
	assert.Equal(t, 2, added)
	assert.Equal(t, []string{"u2", "u3"}, f.NextBatch(5))
}

func TestFrontierVisitedAndQueuedAreDisjoint(t *testing.T) {
	f := NewFrontier([]string{"u1", "u2"})
	batch := f.NextBatch(1)
	f.Merge(batch)

	assert.Equal(t, 1, f.Pending())
	for _, u := range f.Visited() {
		assert.NotContains(t, f.queue, u)
	}
}

func TestFrontierNextBatchSkipsIgnored(t *testing.T) {
	f := NewFrontier([]string{"u1", "u2", "u3"})
	f.MarkIgnored([]string{"u1"})

	assert.Equal(t, []string{"u2", "u3"}, f.NextBatch(2))
	assert.False(t, f.IsVisited("u1"))
	assert.Zero(t, f.Pending())
}

func TestFrontierMarkIgnoredCountsNew(t *testing.T) {
	f := NewFrontier(nil)
	assert.Equal(t, 2, f.MarkIgnored([]string{"x.png", "y.png", "x.png"}))
	assert.Equal(t, 0, f.MarkIgnored([]string{"y.png"}))
	assert.Equal(t, []string{"x.png", "y.png"}, f.Ignored())
	assert.True(t, f.IsIgnored("x.png"))
}

func TestFrontierDiscard(t *testing.T) {
	f := NewFrontier([]string{"u1", "u2", "u3"})
	f.NextBatch(1)

	assert.Equal(t, 2, f.Discard())
	assert.Zero(t, f.Pending())
	assert.Equal(t, 1, f.VisitedCount())
}

func TestFrontierConcurrentReaders(t *testing.T) {
	f := NewFrontier([]string{"u1", "u2"})
	f.NextBatch(1)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.True(t, f.IsVisited("u1"))
			assert.False(t, f.IsIgnored("u1"))
		}()
	}
	wg.Wait()
}
