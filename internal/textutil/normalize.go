package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// Normalize folds text for comparison: compatibility-decomposed, combining
// marks removed, case-folded, and every run of non-alphanumerics collapsed to
// a single space.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	stripper := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(stripper, text)
	if err != nil {
		stripped = text
	}
	folded := folder.String(stripped)
	fields := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(fields, " ")
}

// CollapseWhitespace trims text and replaces each whitespace run with one space.
func CollapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// WordCount counts whitespace-separated words.
func WordCount(text string) int {
	count := 0
	inWord := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			inWord = false
			continue
		}
		if !inWord {
			count++
			inWord = true
		}
	}
	return count
}
