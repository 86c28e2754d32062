package extractor

import (
	"strings"

	"golang.org/x/net/html"
)

var blockTags = map[string]struct{}{
	"address": {}, "article": {}, "aside": {}, "blockquote": {}, "dd": {}, "div": {},
	"dl": {}, "dt": {}, "figcaption": {}, "figure": {}, "footer": {}, "form": {},
	"header": {}, "hr": {}, "main": {}, "nav": {}, "ol": {}, "p": {}, "pre": {},
	"section": {}, "table": {}, "tr": {}, "ul": {},
}

var skipTags = map[string]struct{}{
	"script": {}, "style": {}, "noscript": {}, "template": {}, "svg": {}, "iframe": {},
}

// textWriter tracks trailing newlines so block boundaries never stack up
// more than one blank line.
type textWriter struct {
	b        strings.Builder
	newlines int
	last     rune
	pre      int
}

func (w *textWriter) write(s string) {
	if s == "" {
		return
	}
	w.b.WriteString(s)
	for _, r := range s {
		w.last = r
		if r == '\n' {
			w.newlines++
		} else {
			w.newlines = 0
		}
	}
}

func (w *textWriter) lineBreak() {
	if w.last != 0 && w.newlines == 0 {
		w.write("\n")
	}
}

func (w *textWriter) blankLine() {
	if w.last == 0 {
		return
	}
	for w.newlines < 2 {
		w.write("\n")
	}
}

func (w *textWriter) space() {
	if w.last == 0 || w.last == ' ' || w.newlines > 0 {
		return
	}
	w.write(" ")
}

func (w *textWriter) text(s string) {
	if w.pre > 0 {
		w.write(s)
		return
	}
	fields := strings.Fields(s)
	if len(fields) == 0 {
		if s != "" {
			w.space()
		}
		return
	}
	if isSpace(s[0]) {
		w.space()
	}
	w.write(strings.Join(fields, " "))
	if isSpace(s[len(s)-1]) {
		w.space()
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

// renderText converts node to plain text. Paragraphs are separated by a blank
// line, headings get a leading '#' per level and list items a "* " marker.
// Lines are never wrapped.
func renderText(node *html.Node) string {
	w := &textWriter{}
	renderNode(node, w)
	lines := strings.Split(w.b.String(), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func renderNode(n *html.Node, w *textWriter) {
	switch n.Type {
	case html.TextNode:
		w.text(n.Data)
		return
	case html.ElementNode:
	default:
		renderChildren(n, w)
		return
	}

	tag := n.Data
	if _, skip := skipTags[tag]; skip {
		return
	}

	switch tag {
	case "br":
		w.write("\n")
	case "h1", "h2", "h3", "h4", "h5", "h6":
		w.blankLine()
		w.write(strings.Repeat("#", int(tag[1]-'0')) + " ")
		renderChildren(n, w)
		w.blankLine()
	case "li":
		w.lineBreak()
		w.write("* ")
		renderChildren(n, w)
		w.lineBreak()
	case "td", "th":
		w.space()
		renderChildren(n, w)
		w.space()
	case "pre":
		w.blankLine()
		w.pre++
		renderChildren(n, w)
		w.pre--
		w.blankLine()
	default:
		if _, block := blockTags[tag]; block {
			w.blankLine()
			renderChildren(n, w)
			w.blankLine()
			return
		}
		renderChildren(n, w)
	}
}

func renderChildren(n *html.Node, w *textWriter) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		renderNode(c, w)
	}
}
