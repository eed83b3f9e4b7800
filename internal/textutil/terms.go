package textutil

import (
	"math"
	"strings"
	"unicode/utf8"
)

// Tokens shorter than this are connectives ("of", "a", "on").
const minTokenRunes = 3

// Words common in episode and video titles that say nothing about which
// episode a title belongs to.
var titleStopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "from": true, "that": true,
	"this": true, "are": true, "was": true, "you": true, "your": true, "our": true,
	"about": true, "what": true, "how": true, "why": true, "who": true, "its": true,
	"episode": true, "podcast": true,
}

// Tokenize normalizes text and keeps tokens of three or more characters that
// are not stopwords.
func Tokenize(text string) []string {
	var tokens []string
	for _, token := range strings.Fields(Normalize(text)) {
		if utf8.RuneCountInString(token) >= minTokenRunes && !titleStopwords[token] {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

// Fingerprint counts the tokens of a text. It is nil when the text has no
// usable tokens.
type Fingerprint map[string]int

// NewFingerprint builds the term counts for text.
func NewFingerprint(text string) Fingerprint {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil
	}
	fp := make(Fingerprint, len(tokens))
	for _, token := range tokens {
		fp[token]++
	}
	return fp
}

func (f Fingerprint) magnitude() float64 {
	var sum float64
	for _, n := range f {
		sum += float64(n * n)
	}
	return math.Sqrt(sum)
}

// CosineSimilarity returns the cosine of the angle between two fingerprints,
// in [0, 1]. Empty fingerprints score 0.
func CosineSimilarity(a, b Fingerprint) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(b) < len(a) {
		a, b = b, a
	}
	var dot float64
	for token, n := range a {
		dot += float64(n * b[token])
	}
	if dot == 0 {
		return 0
	}
	return min(dot/(a.magnitude()*b.magnitude()), 1)
}

// TitleSimilarity scores two titles with CosineSimilarity.
func TitleSimilarity(a, b string) float64 {
	return CosineSimilarity(NewFingerprint(a), NewFingerprint(b))
}
