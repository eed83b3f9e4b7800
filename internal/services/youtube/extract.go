package youtube

import (
	"bytes"
	"encoding/xml"
	"errors"
	"html"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const playerMarker = "ytInitialPlayerResponse"

var errPlayerMissing = errors.New("player response not found")

// extractPlayerResponse locates the inline script that assigns the player
// response and decodes the JSON object it carries.
func extractPlayerResponse(page []byte) (playerResponse, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return playerResponse{}, err
	}

	var raw string
	doc.Find("script").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := sel.Text()
		idx := strings.Index(text, playerMarker)
		if idx < 0 {
			return true
		}
		if obj, ok := balancedObject(text[idx+len(playerMarker):]); ok {
			raw = obj
			return false
		}
		return true
	})
	if raw == "" {
		return playerResponse{}, errPlayerMissing
	}
	return unmarshalPlayer(raw)
}

// balancedObject returns the first complete JSON object in s, honouring
// string literals and escapes.
func balancedObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// flattenTimedText turns a timed-text document (srv1 <text> or srv3 <p>/<s>)
// into a single whitespace-normalized string.
func flattenTimedText(raw []byte) (string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(raw))
	decoder.Strict = false

	var (
		parts []string
		depth int
	)
	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		switch el := token.(type) {
		case xml.StartElement:
			if isCueElement(el.Name.Local) {
				depth++
			}
		case xml.EndElement:
			if isCueElement(el.Name.Local) && depth > 0 {
				depth--
			}
		case xml.CharData:
			if depth > 0 {
				if text := strings.TrimSpace(string(el)); text != "" {
					parts = append(parts, text)
				}
			}
		}
	}
	joined := html.UnescapeString(strings.Join(parts, " "))
	return strings.Join(strings.Fields(joined), " "), nil
}

func isCueElement(name string) bool {
	switch name {
	case "text", "p", "s":
		return true
	default:
		return false
	}
}
