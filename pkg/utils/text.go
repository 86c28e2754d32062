package utils

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const markupTags = `a|abbr|b|big|blockquote|br|cite|code|dd|del|div|dl|dt|em|font|h[1-6]|hr|i|img|ins|kbd|li|mark|ol|p|ph|pre|q|s|samp|small|span|strong|sub|sup|table|tbody|td|th|thead|tr|tt|u|ul|var|wbr`

var (
	// <ph> placeholders leak out of some doc generators together with their payload.
	phBlockRegex  = regexp.MustCompile(`(?s)<ph[^>]*>.*?</ph>`)
	// Only real inline/block element names count as markup; anything else
	// between angle brackets is document text such as Promise<void>.
	markupRegex   = regexp.MustCompile(`(?i)</?(?:` + markupTags + `)(?:\s[^<>]*)?/?>`)
	invalidRegex  = regexp.MustCompile(`[<>:"/\\|?*]`)
	spaceRunRegex = regexp.MustCompile(`\s+`)
)

// CleanText collapses all whitespace runs into single spaces and trims the result.
func CleanText(text string) string {
	return strings.TrimSpace(spaceRunRegex.ReplaceAllString(text, " "))
}

// StripMarkup removes <ph> blocks and leftover HTML element tags from extracted
// text. Angle-bracketed words that are not HTML elements are kept.
func StripMarkup(text string) string {
	text = phBlockRegex.ReplaceAllString(text, "")
	return markupRegex.ReplaceAllString(text, "")
}

// NonEmptyLines trims every line and drops the blank ones, keeping line order.
func NonEmptyLines(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// TruncateRunes cuts text to at most max runes without splitting a character.
func TruncateRunes(text string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return string(runes[:max])
}

// SanitizeFilename removes invalid characters from a filename
func SanitizeFilename(filename string) string {
	filename = invalidRegex.ReplaceAllString(filename, "_")

	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, filename)
	cleaned = strings.TrimSpace(cleaned)

	// Limit length
	if len(cleaned) > 255 {
		cleaned = TruncateRunes(cleaned, 255)
		for len(cleaned) > 255 {
			cleaned = TruncateRunes(cleaned, utf8.RuneCountInString(cleaned)-1)
		}
	}

	return cleaned
}

// CharCount returns the number of characters (runes) in text.
func CharCount(text string) int {
	return utf8.RuneCountInString(text)
}
