package feeds

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"podwatch/internal/textutil"
)

var (
	blockTagPattern = regexp.MustCompile(`(?i)<\s*/?\s*(br|p|div|li|ul|ol|h[1-6]|blockquote)\b[^>]*>`)
	stripPolicy     = bluemonday.StrictPolicy()
)

// CleanDescription converts publisher HTML into plain text: block elements
// become line breaks, all other markup is dropped, entities are decoded, and
// whitespace is collapsed per line. A positive limit caps the result in runes,
// cutting at a word boundary when possible.
func CleanDescription(raw string, limit int) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	text := blockTagPattern.ReplaceAllString(raw, "\n")
	text = stripPolicy.Sanitize(text)
	text = html.UnescapeString(text)

	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = textutil.CollapseWhitespace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return truncateRunes(strings.Join(kept, "\n"), limit)
}

func truncateRunes(text string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	cut := string(runes[:limit])
	if idx := strings.LastIndexAny(cut, " \n"); idx > len(cut)/2 {
		cut = cut[:idx]
	}
	return strings.TrimSpace(cut)
}
