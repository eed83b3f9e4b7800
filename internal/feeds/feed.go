package feeds

import (
	"iter"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"podwatch/internal/roster"
)

// Candidate is a feed item inside the lookback window, carrying everything
// needed to identify and store the episode.
type Candidate struct {
	ID          string
	Podcast     string
	Lean        roster.Lean
	Title       string
	PublishedAt time.Time
	Description string
	Link        string
	GUID        string
	AudioURL    string
}

// Feed is a parsed feed whose items are converted on iteration.
type Feed struct {
	podcast        roster.Podcast
	title          string
	items          []*gofeed.Item
	cutoff         time.Time
	maxDescription int

	skipped       int
	outsideWindow int
}

// Title is the channel title reported by the feed.
func (f *Feed) Title() string { return f.title }

// Items is the number of raw items in the document.
func (f *Feed) Items() int { return len(f.items) }

// Skipped counts malformed items seen by the last iteration.
func (f *Feed) Skipped() int { return f.skipped }

// OutsideWindow counts items older than the lookback cutoff seen by the last iteration.
func (f *Feed) OutsideWindow() int { return f.outsideWindow }

// Candidates yields in-window items in document order. Malformed items (no
// usable date, or none of guid, link, and title) are skipped and counted.
func (f *Feed) Candidates() iter.Seq[Candidate] {
	return func(yield func(Candidate) bool) {
		f.skipped = 0
		f.outsideWindow = 0
		for _, item := range f.items {
			candidate, ok := f.convert(item)
			if !ok {
				f.skipped++
				continue
			}
			if !f.cutoff.IsZero() && candidate.PublishedAt.Before(f.cutoff) {
				f.outsideWindow++
				continue
			}
			if !yield(candidate) {
				return
			}
		}
	}
}

// Collect drains Candidates into a slice.
func (f *Feed) Collect() []Candidate {
	var out []Candidate
	for candidate := range f.Candidates() {
		out = append(out, candidate)
	}
	return out
}

func (f *Feed) convert(item *gofeed.Item) (Candidate, bool) {
	if item == nil {
		return Candidate{}, false
	}
	guid := strings.TrimSpace(item.GUID)
	link := strings.TrimSpace(item.Link)
	title := strings.TrimSpace(item.Title)
	if guid == "" && link == "" && title == "" {
		return Candidate{}, false
	}

	var published time.Time
	switch {
	case item.PublishedParsed != nil:
		published = item.PublishedParsed.UTC()
	case item.UpdatedParsed != nil:
		published = item.UpdatedParsed.UTC()
	default:
		return Candidate{}, false
	}

	if title == "" {
		title = "Untitled"
	}
	return Candidate{
		ID:          EpisodeID(f.podcast.Name, guid, link, item.Title, published),
		Podcast:     f.podcast.Name,
		Lean:        f.podcast.Lean,
		Title:       title,
		PublishedAt: published,
		Description: CleanDescription(rawDescription(item), f.maxDescription),
		Link:        link,
		GUID:        guid,
		AudioURL:    audioURL(item),
	}, true
}

func rawDescription(item *gofeed.Item) string {
	if desc := strings.TrimSpace(item.Description); desc != "" {
		return desc
	}
	if content := strings.TrimSpace(item.Content); content != "" {
		return content
	}
	if item.ITunesExt != nil {
		return strings.TrimSpace(item.ITunesExt.Summary)
	}
	return ""
}

func audioURL(item *gofeed.Item) string {
	for _, enclosure := range item.Enclosures {
		if enclosure == nil {
			continue
		}
		if strings.HasPrefix(strings.ToLower(enclosure.Type), "audio/") {
			return strings.TrimSpace(enclosure.URL)
		}
	}
	for _, enclosure := range item.Enclosures {
		if enclosure != nil && strings.TrimSpace(enclosure.URL) != "" {
			return strings.TrimSpace(enclosure.URL)
		}
	}
	return ""
}
