// Package matcher classifies crawl candidates against ordered include and
// ignore pattern lists.
package matcher

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/amosWeiskopf/corpuscrawl/pkg/utils"
)

// Classification is the verdict for a single URL.
type Classification int

const (
	// Rejected URLs match neither list and are dropped silently.
	Rejected Classification = iota
	// Included URLs match an include pattern and no ignore pattern.
	Included
	// Ignored URLs match an ignore pattern; they are recorded for the audit log.
	Ignored
)

func (c Classification) String() string {
	switch c {
	case Included:
		return "included"
	case Ignored:
		return "ignored"
	default:
		return "rejected"
	}
}

// Matcher holds compiled include and ignore patterns. It is safe for
// concurrent use.
type Matcher struct {
	include    []*regexp.Regexp
	ignore     []*regexp.Regexp
	rawInclude []string
	rawIgnore  []string
}

// New compiles both pattern lists. Patterns are anchored at the start of the
// URL, so "https://example\.com/docs/" matches every URL below /docs/.
func New(include, ignore []string) (*Matcher, error) {
	inc, rawInc, err := compilePatterns(include)
	if err != nil {
		return nil, fmt.Errorf("invalid include pattern: %w", err)
	}
	ign, rawIgn, err := compilePatterns(ignore)
	if err != nil {
		return nil, fmt.Errorf("invalid ignore pattern: %w", err)
	}
	return &Matcher{include: inc, ignore: ign, rawInclude: rawInc, rawIgnore: rawIgn}, nil
}

// Classify checks ignore patterns before include patterns: an ignore match
// wins even when an include pattern also matches.
func (m *Matcher) Classify(rawURL string) Classification {
	if !utils.IsHTTPURL(rawURL) {
		return Rejected
	}
	for _, pat := range m.ignore {
		if pat.MatchString(rawURL) {
			return Ignored
		}
	}
	for _, pat := range m.include {
		if pat.MatchString(rawURL) {
			return Included
		}
	}
	return Rejected
}

// IncludePatterns returns the include patterns as written by the operator.
func (m *Matcher) IncludePatterns() []string { return append([]string(nil), m.rawInclude...) }

// IgnorePatterns returns the ignore patterns as written by the operator.
func (m *Matcher) IgnorePatterns() []string { return append([]string(nil), m.rawIgnore...) }

func compilePatterns(patterns []string) ([]*regexp.Regexp, []string, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	kept := make([]string, 0, len(patterns))
	for _, raw := range patterns {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		pat, err := regexp.Compile(anchor(raw))
		if err != nil {
			return nil, nil, fmt.Errorf("%q: %w", raw, err)
		}
		compiled = append(compiled, pat)
		kept = append(kept, raw)
	}
	return compiled, kept, nil
}

func anchor(raw string) string {
	return "^(?:" + raw + ")"
}
