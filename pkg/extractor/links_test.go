package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amosWeiskopf/corpuscrawl/pkg/matcher"
)

type stubSeen struct {
	visited map[string]bool
	ignored map[string]bool
}

func (s stubSeen) IsVisited(url string) bool { return s.visited[url] }
func (s stubSeen) IsIgnored(url string) bool { return s.ignored[url] }

func newDocsExtractor(t *testing.T) *LinkExtractor {
	t.Helper()
	m, err := matcher.New(
		[]string{`https://example\.com/docs/.*$`},
		[]string{`.*\.png$`, `https://example\.com/docs/private/.*`},
	)
	require.NoError(t, err)
	return NewLinkExtractor(m, DefaultPrioritySelector)
}

const linksHTML = `<html><body>
<a href="/docs/intro">Intro</a>
<nav class="table-of-contents">
  <a href="/docs/b">B</a>
  <a href="/docs/c#section">C</a>
</nav>
<a href="/docs/b#again">B again</a>
<a href="/docs/logo.png">Logo</a>
<a href="/docs/private/keys">Private</a>
<a href="/blog/post">Blog</a>
<a href="mailto:team@example.com">Mail</a>
<a href="">Empty</a>
<a>No href</a>
<a href="https://example.com/docs/a">Self</a>
</body></html>`

func TestExtractLinksPriorityFirst(t *testing.T) {
	e := newDocsExtractor(t)

	got, err := e.ExtractLinks("https://example.com/docs/a", []byte(linksHTML), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"https://example.com/docs/b",
		"https://example.com/docs/c",
		"https://example.com/docs/intro",
		"https://example.com/docs/a",
	}, got.Links)
	assert.Equal(t, []string{
		"https://example.com/docs/logo.png",
		"https://example.com/docs/private/keys",
	}, got.Ignored)
}

func TestExtractLinksSkipsVisitedAndKnownIgnored(t *testing.T) {
	e := newDocsExtractor(t)
	seen := stubSeen{
		visited: map[string]bool{"https://example.com/docs/a": true, "https://example.com/docs/b": true},
		ignored: map[string]bool{"https://example.com/docs/intro": true},
	}

	got, err := e.ExtractLinks("https://example.com/docs/a", []byte(linksHTML), seen)
	require.NoError(t, err)

	assert.Equal(t, []string{"https://example.com/docs/c"}, got.Links)
	assert.ElementsMatch(t, []string{
		"https://example.com/docs/intro",
		"https://example.com/docs/logo.png",
		"https://example.com/docs/private/keys",
	}, got.Ignored)
}

func TestExtractLinksWithoutPriorityRegion(t *testing.T) {
	m, err := matcher.New([]string{`https://example\.com/.*`}, nil)
	require.NoError(t, err)
	e := NewLinkExtractor(m, "")

	got, err := e.ExtractLinks("https://example.com/", []byte(`<a href="/z">z</a><a href="/y">y</a>`), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/z", "https://example.com/y"}, got.Links)
	assert.Empty(t, got.Ignored)
}

func TestExtractLinksIgnoreBeatsInclude(t *testing.T) {
	m, err := matcher.New([]string{`.*`}, []string{`.*\.pdf$`})
	require.NoError(t, err)
	e := NewLinkExtractor(m, DefaultPrioritySelector)

	got, err := e.ExtractLinks("https://example.com/", []byte(`<a href="/paper.pdf">pdf</a>`), nil)
	require.NoError(t, err)
	assert.Empty(t, got.Links)
	assert.Equal(t, []string{"https://example.com/paper.pdf"}, got.Ignored)
}
