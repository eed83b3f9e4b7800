package language

import (
	"strings"

	xlanguage "golang.org/x/text/language"
)

// English names accepted in config files alongside codes.
var byName = map[string]string{
	"english":    "en",
	"spanish":    "es",
	"french":     "fr",
	"german":     "de",
	"italian":    "it",
	"portuguese": "pt",
	"japanese":   "ja",
	"korean":     "ko",
	"chinese":    "zh",
	"russian":    "ru",
	"arabic":     "ar",
	"hindi":      "hi",
	"dutch":      "nl",
	"polish":     "pl",
}

// Normalize reduces a language code, BCP 47 tag, or English language name
// to its base ISO 639-1 code: "en-US", "eng" and "English" all become "en".
// Unrecognized input returns "".
func Normalize(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return ""
	}
	if mapped, ok := byName[code]; ok {
		return mapped
	}
	tag, err := xlanguage.Parse(strings.ReplaceAll(code, "_", "-"))
	if err != nil {
		return ""
	}
	base, confidence := tag.Base()
	if confidence == xlanguage.No {
		return ""
	}
	return base.String()
}

// NormalizeList normalizes and deduplicates languages, keeping first-seen
// order and dropping entries Normalize does not recognize.
func NormalizeList(languages []string) []string {
	out := make([]string, 0, len(languages))
	seen := make(map[string]struct{}, len(languages))
	for _, lang := range languages {
		code := Normalize(lang)
		if code == "" {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	return out
}

// Matches reports whether a caption track's language code belongs to want.
func Matches(trackCode, want string) bool {
	a, b := Normalize(trackCode), Normalize(want)
	return a != "" && a == b
}
