// Package extractor turns fetched HTML into article text and outgoing links.
package extractor

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/markusmobius/go-trafilatura"
	"go.uber.org/zap"

	"github.com/amosWeiskopf/corpuscrawl/internal/models"
	"github.com/amosWeiskopf/corpuscrawl/pkg/utils"
)

// TierNone marks a page where every strategy came back empty.
const TierNone = "none"

// Article is the raw output of a single strategy.
type Article struct {
	Title string
	Body  string
}

// Strategy is one extraction tier.
type Strategy interface {
	Name() string
	Extract(pageURL string, html []byte) (Article, error)
}

// ReadabilityStrategy uses the Mozilla Readability port.
type ReadabilityStrategy struct{}

func (ReadabilityStrategy) Name() string { return "readability" }

func (ReadabilityStrategy) Extract(pageURL string, html []byte) (Article, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return Article{}, fmt.Errorf("parse page url: %w", err)
	}
	article, err := readability.FromReader(bytes.NewReader(html), parsed)
	if err != nil {
		return Article{}, fmt.Errorf("readability: %w", err)
	}
	return Article{
		Title: strings.TrimSpace(article.Title),
		Body:  strings.TrimSpace(article.TextContent),
	}, nil
}

// TrafilaturaStrategy uses go-trafilatura.
type TrafilaturaStrategy struct{}

func (TrafilaturaStrategy) Name() string { return "trafilatura" }

func (TrafilaturaStrategy) Extract(pageURL string, html []byte) (Article, error) {
	var opts trafilatura.Options
	if parsed, err := url.Parse(pageURL); err == nil {
		opts.OriginalURL = parsed
	}
	result, err := trafilatura.Extract(bytes.NewReader(html), opts)
	if err != nil {
		return Article{}, fmt.Errorf("trafilatura: %w", err)
	}
	if result == nil {
		return Article{}, nil
	}
	return Article{
		Title: strings.TrimSpace(result.Metadata.Title),
		Body:  strings.TrimSpace(result.ContentText),
	}, nil
}

// contentSelectors are tried in order by DOMStrategy before falling back to body.
var contentSelectors = []string{"article", "main", "div.content"}

// DOMStrategy renders the main content element as plain text.
type DOMStrategy struct{}

func (DOMStrategy) Name() string { return "dom" }

func (DOMStrategy) Extract(_ string, html []byte) (Article, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return Article{}, fmt.Errorf("parse html: %w", err)
	}

	title := utils.CleanText(doc.Find("title").First().Text())

	root := doc.Find("body").First()
	for _, sel := range contentSelectors {
		if found := doc.Find(sel).First(); found.Length() > 0 {
			root = found
			break
		}
	}
	if root.Length() == 0 {
		return Article{Title: title}, nil
	}
	return Article{Title: title, Body: renderText(root.Get(0))}, nil
}

// Result is the post-processed outcome of a Chain run.
type Result struct {
	Title string
	Body  string
	Tier  string
}

// Chain runs strategies in order until one yields a body.
type Chain struct {
	strategies []Strategy
	logger     *zap.Logger
}

// NewChain builds a chain over strategies. With none given it uses
// readability, trafilatura and the DOM fallback, in that order.
func NewChain(logger *zap.Logger, strategies ...Strategy) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(strategies) == 0 {
		strategies = []Strategy{ReadabilityStrategy{}, TrafilaturaStrategy{}, DOMStrategy{}}
	}
	return &Chain{strategies: strategies, logger: logger}
}

// Extract never fails: strategy errors count as empty output and missing
// values are replaced by sentinels.
func (c *Chain) Extract(pageURL string, html []byte) Result {
	res := Result{Tier: TierNone}
	for _, s := range c.strategies {
		article, err := c.run(s, pageURL, html)
		if err != nil {
			c.logger.Debug("extraction strategy failed",
				zap.String("url", pageURL),
				zap.String("strategy", s.Name()),
				zap.Error(err))
			continue
		}
		if res.Title == "" {
			res.Title = utils.CleanText(article.Title)
		}
		body := clean(article.Body)
		if body != "" {
			res.Body = body
			res.Tier = s.Name()
			break
		}
	}

	if res.Title == "" {
		res.Title = models.TitleNotFound
	}
	if res.Body == "" {
		res.Body = models.ContentNotExtracted
	}
	return res
}

func (c *Chain) run(s Strategy, pageURL string, html []byte) (article Article, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("strategy %s panicked: %v", s.Name(), r)
		}
	}()
	return s.Extract(pageURL, html)
}

func clean(text string) string {
	return utils.NonEmptyLines(utils.StripMarkup(text))
}
