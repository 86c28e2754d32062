package extractor

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/amosWeiskopf/corpuscrawl/pkg/matcher"
	"github.com/amosWeiskopf/corpuscrawl/pkg/utils"
)

// DefaultPrioritySelector is the table-of-contents region scanned first.
const DefaultPrioritySelector = "nav.table-of-contents"

// SeenChecker answers membership questions against crawl state without
// exposing it for mutation.
type SeenChecker interface {
	IsVisited(url string) bool
	IsIgnored(url string) bool
}

// Discovery holds the URLs found on one page. Both slices are deduplicated.
type Discovery struct {
	Links   []string
	Ignored []string
}

// LinkExtractor finds crawlable links on a page.
type LinkExtractor struct {
	Matcher          *matcher.Matcher
	PrioritySelector string
}

// NewLinkExtractor returns an extractor using m and the given priority
// region selector. An empty selector disables the priority pass.
func NewLinkExtractor(m *matcher.Matcher, prioritySelector string) *LinkExtractor {
	return &LinkExtractor{Matcher: m, PrioritySelector: prioritySelector}
}

// ExtractLinks scans anchors in the priority region first and then every
// anchor in document order. seen may be nil.
func (e *LinkExtractor) ExtractLinks(pageURL string, html []byte, seen SeenChecker) (Discovery, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return Discovery{}, fmt.Errorf("parse html: %w", err)
	}

	c := &collector{
		extractor: e,
		pageURL:   pageURL,
		seen:      seen,
		links:     make(map[string]struct{}),
		ignored:   make(map[string]struct{}),
	}

	if sel := strings.TrimSpace(e.PrioritySelector); sel != "" {
		doc.Find(sel).Find("a[href]").Each(c.visit)
	}
	doc.Find("a[href]").Each(c.visit)

	return Discovery{Links: c.linkOrder, Ignored: c.ignoredOrder}, nil
}

type collector struct {
	extractor *LinkExtractor
	pageURL   string
	seen      SeenChecker

	links        map[string]struct{}
	linkOrder    []string
	ignored      map[string]struct{}
	ignoredOrder []string
}

func (c *collector) visit(_ int, s *goquery.Selection) {
	href, ok := s.Attr("href")
	if !ok {
		return
	}
	href = strings.TrimSpace(href)
	if href == "" {
		return
	}
	abs, err := utils.ResolveURL(c.pageURL, href)
	if err != nil {
		return
	}
	link := utils.NormalizeURL(abs)

	if c.seen != nil && c.seen.IsIgnored(link) {
		c.addIgnored(link)
		return
	}
	switch c.extractor.Matcher.Classify(link) {
	case matcher.Ignored:
		c.addIgnored(link)
	case matcher.Included:
		if c.seen != nil && c.seen.IsVisited(link) {
			return
		}
		if _, dup := c.links[link]; !dup {
			c.links[link] = struct{}{}
			c.linkOrder = append(c.linkOrder, link)
		}
	}
}

func (c *collector) addIgnored(link string) {
	if _, dup := c.ignored[link]; dup {
		return
	}
	c.ignored[link] = struct{}{}
	c.ignoredOrder = append(c.ignoredOrder, link)
}
