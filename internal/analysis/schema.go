package analysis

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"podwatch/internal/services"
	"podwatch/internal/services/llm"
)

// requiredKeys are the top-level keys every response must carry.
var requiredKeys = []string{
	"synopsis",
	"key_topics",
	"notable_quotes",
	"political_attacks",
	"narrative_themes",
	"messaging_opportunities",
	"threat_level",
	"threat_rationale",
}

// SchemaError lists every way a response deviates from the analysis schema.
type SchemaError struct {
	Problems []string
}

func (e *SchemaError) Error() string {
	return "analysis schema invalid: " + strings.Join(e.Problems, "; ")
}

func (e *SchemaError) Unwrap() error { return services.ErrAnalysisSchemaInvalid }

// Validate parses a raw model reply and checks it against the analysis schema.
// Code fences and surrounding prose are tolerated; unknown keys are ignored.
func Validate(raw string) (Analysis, error) {
	var fields map[string]json.RawMessage
	if err := llm.DecodeJSON(raw, &fields); err != nil {
		return Analysis{}, &SchemaError{Problems: []string{fmt.Sprintf("response is not a JSON object: %v", err)}}
	}

	v := validator{fields: fields}
	var out Analysis
	out.Synopsis = v.text("synopsis")
	out.KeyTopics = v.textList("key_topics")
	out.NotableQuotes = v.quotes("notable_quotes")
	out.PoliticalAttacks = v.attacks("political_attacks")
	out.NarrativeThemes = v.textList("narrative_themes")
	out.MessagingOpportunities = v.textList("messaging_opportunities")
	out.ThreatLevel = v.threat("threat_level")
	out.ThreatRationale = v.text("threat_rationale")

	if len(v.problems) > 0 {
		return Analysis{}, &SchemaError{Problems: v.problems}
	}
	return out, nil
}

type validator struct {
	fields   map[string]json.RawMessage
	problems []string
}

func (v *validator) fail(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

// lookup returns the raw value for key, recording missing and null values.
func (v *validator) lookup(key string) (json.RawMessage, bool) {
	raw, ok := v.fields[key]
	if !ok {
		v.fail("%s: missing required key", key)
		return nil, false
	}
	if string(raw) == "null" {
		v.fail("%s: must not be null", key)
		return nil, false
	}
	return raw, true
}

func (v *validator) text(key string) string {
	raw, ok := v.lookup(key)
	if !ok {
		return ""
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		v.fail("%s: must be a string", key)
		return ""
	}
	value = strings.TrimSpace(value)
	if value == "" {
		v.fail("%s: must not be empty", key)
	}
	return value
}

func (v *validator) textList(key string) []string {
	raw, ok := v.lookup(key)
	if !ok {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		v.fail("%s: must be an array of strings", key)
		return nil
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		var value string
		if err := json.Unmarshal(item, &value); err != nil || string(item) == "null" {
			v.fail("%s[%d]: must be a string", key, i)
			continue
		}
		if value = strings.TrimSpace(value); value == "" {
			v.fail("%s[%d]: must not be empty", key, i)
			continue
		}
		out = append(out, value)
	}
	return out
}

func (v *validator) objects(key string) []map[string]json.RawMessage {
	raw, ok := v.lookup(key)
	if !ok {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		v.fail("%s: must be an array of objects", key)
		return nil
	}
	out := make([]map[string]json.RawMessage, 0, len(items))
	for i, item := range items {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(item, &obj); err != nil || obj == nil {
			v.fail("%s[%d]: must be an object", key, i)
			out = append(out, nil)
			continue
		}
		out = append(out, obj)
	}
	return out
}

// member reads a string member of an array element.
func (v *validator) member(path string, obj map[string]json.RawMessage, name string, required bool) string {
	raw, ok := obj[name]
	if !ok || string(raw) == "null" {
		v.fail("%s.%s: missing required key", path, name)
		return ""
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		v.fail("%s.%s: must be a string", path, name)
		return ""
	}
	value = strings.TrimSpace(value)
	if required && value == "" {
		v.fail("%s.%s: must not be empty", path, name)
	}
	return value
}

func (v *validator) quotes(key string) []Quote {
	objects := v.objects(key)
	out := make([]Quote, 0, len(objects))
	for i, obj := range objects {
		if obj == nil {
			continue
		}
		path := fmt.Sprintf("%s[%d]", key, i)
		quote := Quote{
			Quote:   v.member(path, obj, "quote", true),
			Speaker: v.member(path, obj, "speaker", false),
			Context: v.member(path, obj, "context", false),
		}
		kind := QuoteType(v.member(path, obj, "type", true))
		if kind != "" && !slices.Contains(QuoteTypes, kind) {
			v.fail("%s.type: must be one of %s (got %q)", path, joinQuoteTypes(), kind)
		}
		quote.Type = kind
		out = append(out, quote)
	}
	return out
}

func (v *validator) attacks(key string) []Attack {
	objects := v.objects(key)
	out := make([]Attack, 0, len(objects))
	for i, obj := range objects {
		if obj == nil {
			continue
		}
		path := fmt.Sprintf("%s[%d]", key, i)
		out = append(out, Attack{
			Target: v.member(path, obj, "target", true),
			Claim:  v.member(path, obj, "claim", true),
		})
	}
	return out
}

func (v *validator) threat(key string) ThreatLevel {
	raw, ok := v.lookup(key)
	if !ok {
		return ""
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		v.fail("%s: must be a string", key)
		return ""
	}
	level := ThreatLevel(value)
	if !slices.Contains(ThreatLevels, level) {
		v.fail("%s: must be one of low, medium, high (got %q)", key, value)
		return ""
	}
	return level
}

func joinQuoteTypes() string {
	names := make([]string, len(QuoteTypes))
	for i, t := range QuoteTypes {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}
