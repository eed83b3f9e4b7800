package roster

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"podwatch/internal/services"
)

// Lean is a podcast's ideological lean.
type Lean string

const (
	LeanLeft    Lean = "left"
	LeanNeutral Lean = "neutral"
	LeanRight   Lean = "right"
)

// Leans lists the accepted leans in roster order.
var Leans = []Lean{LeanLeft, LeanNeutral, LeanRight}

// ParseLean validates a lean string.
func ParseLean(value string) (Lean, error) {
	lean := Lean(strings.ToLower(strings.TrimSpace(value)))
	if slices.Contains(Leans, lean) {
		return lean, nil
	}
	return "", fmt.Errorf("unknown lean %q (expected left, neutral, or right)", value)
}

// Valid reports whether l is one of Leans.
func (l Lean) Valid() bool {
	return slices.Contains(Leans, l)
}

// Podcast is immutable reference data for one monitored show.
type Podcast struct {
	Name      string
	Host      string
	Lean      Lean
	FeedURL   string
	ChannelID string
}

// HasChannel reports whether the podcast has a video-platform channel.
func (p Podcast) HasChannel() bool {
	return strings.TrimSpace(p.ChannelID) != ""
}

type entry struct {
	Name      string `json:"name" yaml:"name"`
	Host      string `json:"host" yaml:"host"`
	RSS       string `json:"rss" yaml:"rss"`
	ChannelID string `json:"youtube_channel_id" yaml:"youtube_channel_id"`
}

// Roster is the loaded podcast list. It is never mutated after Load.
type Roster struct {
	podcasts []Podcast
	byName   map[string]int
}

// Load reads a roster file. Files ending in .yaml or .yml are decoded as
// YAML; everything else as JSON. Both use the lean-keyed layout:
//
//	{"left": [{"name": ..., "host": ..., "rss": ..., "youtube_channel_id": ...}], ...}
func Load(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "roster", "load", path, err)
	}
	format := "json"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = "yaml"
	}
	roster, err := Parse(data, format)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "roster", "load", path, err)
	}
	return roster, nil
}

// Parse decodes roster content in the given format ("json" or "yaml").
func Parse(data []byte, format string) (*Roster, error) {
	raw := map[string][]entry{}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decode yaml roster: %w", err)
		}
	case "json", "":
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decode json roster: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported roster format %q", format)
	}
	return build(raw)
}

// New builds a roster from already-constructed podcasts, applying the same
// validation as Load.
func New(podcasts []Podcast) (*Roster, error) {
	raw := map[string][]entry{}
	for _, p := range podcasts {
		raw[string(p.Lean)] = append(raw[string(p.Lean)], entry{
			Name:      p.Name,
			Host:      p.Host,
			RSS:       p.FeedURL,
			ChannelID: p.ChannelID,
		})
	}
	return build(raw)
}

func build(raw map[string][]entry) (*Roster, error) {
	var problems []error
	grouped := map[Lean][]entry{}
	for key, entries := range raw {
		lean, err := ParseLean(key)
		if err != nil {
			problems = append(problems, err)
			continue
		}
		grouped[lean] = append(grouped[lean], entries...)
	}

	r := &Roster{byName: map[string]int{}}
	for _, lean := range Leans {
		for i, e := range grouped[lean] {
			name := strings.TrimSpace(e.Name)
			if name == "" {
				problems = append(problems, fmt.Errorf("%s[%d]: name is required", lean, i))
				continue
			}
			if _, dup := r.byName[strings.ToLower(name)]; dup {
				problems = append(problems, fmt.Errorf("duplicate podcast name %q", name))
				continue
			}
			r.byName[strings.ToLower(name)] = len(r.podcasts)
			r.podcasts = append(r.podcasts, Podcast{
				Name:      name,
				Host:      strings.TrimSpace(e.Host),
				Lean:      lean,
				FeedURL:   strings.TrimSpace(e.RSS),
				ChannelID: strings.TrimSpace(e.ChannelID),
			})
		}
	}
	if len(problems) > 0 {
		return nil, errors.Join(problems...)
	}
	if len(r.podcasts) == 0 {
		return nil, errors.New("roster has no podcasts")
	}
	return r, nil
}

// Podcasts returns a copy of the roster in lean order, file order within a lean.
func (r *Roster) Podcasts() []Podcast {
	if r == nil {
		return nil
	}
	return slices.Clone(r.podcasts)
}

// Len reports the number of podcasts.
func (r *Roster) Len() int {
	if r == nil {
		return 0
	}
	return len(r.podcasts)
}

// Lookup finds a podcast by case-insensitive name.
func (r *Roster) Lookup(name string) (Podcast, bool) {
	if r == nil {
		return Podcast{}, false
	}
	idx, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Podcast{}, false
	}
	return r.podcasts[idx], true
}

// CountByLean tallies podcasts per lean.
func (r *Roster) CountByLean() map[Lean]int {
	counts := make(map[Lean]int, len(Leans))
	if r == nil {
		return counts
	}
	for _, p := range r.podcasts {
		counts[p.Lean]++
	}
	return counts
}
