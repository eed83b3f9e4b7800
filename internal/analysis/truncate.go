package analysis

import "strings"

// OmissionMarker separates the head and tail of a truncated text.
const OmissionMarker = "[... transcript truncated: middle section omitted ...]"

// Truncate caps text at maxWords words. Over-long text keeps the first
// headRatio share of the cap from the start and the remainder from the end,
// joined by OmissionMarker. The kept word count never exceeds maxWords and the
// result depends only on the inputs.
func Truncate(text string, maxWords int, headRatio float64) (string, bool) {
	words := strings.Fields(text)
	if maxWords <= 0 || len(words) <= maxWords {
		return strings.TrimSpace(text), false
	}
	if headRatio <= 0 || headRatio > 1 {
		headRatio = 0.8
	}
	head := int(float64(maxWords) * headRatio)
	if head < 1 {
		head = 1
	}
	if head > maxWords {
		head = maxWords
	}
	tail := maxWords - head

	var b strings.Builder
	b.WriteString(strings.Join(words[:head], " "))
	b.WriteString("\n\n")
	b.WriteString(OmissionMarker)
	if tail > 0 {
		b.WriteString("\n\n")
		b.WriteString(strings.Join(words[len(words)-tail:], " "))
	}
	return b.String(), true
}
