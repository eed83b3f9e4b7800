package analysis

import (
	"fmt"
	"strings"
	"time"

	"podwatch/internal/transcript"
)

// SystemPrompt frames every analysis request.
const SystemPrompt = `You are a senior political analyst on the rapid response team of a progressive political organization.
You review podcast episodes from across the political spectrum and produce structured intelligence reports that staff can act on the same day.
Be specific. Name names. Capture exact framing. Skip generic filler.
Respond with a single JSON object and nothing else.`

const schemaInstruction = `Produce a JSON object with EXACTLY these keys:
{
  "synopsis": "2-3 sentence plain-English summary of what this episode covers and argues, written for a busy political staffer. Include the podcast name and host by name.",
  "key_topics": ["topic", "..."],
  "notable_quotes": [
    {
      "quote": "Exact or near-exact quote, or a clearly attributed paraphrase",
      "speaker": "Name or role of who said it",
      "context": "One sentence on why this is politically significant",
      "type": "attack|claim|admission|notable_position|cross_partisan_signal"
    }
  ],
  "political_attacks": [
    {"target": "Who is attacked (person, party, group)", "claim": "The attack in their exact framing"}
  ],
  "narrative_themes": ["Overarching frames being pushed"],
  "messaging_opportunities": ["Openings a progressive response could use"],
  "threat_level": "low|medium|high",
  "threat_rationale": "One sentence on why this rates that threat level for progressive causes"
}

Use empty arrays when a list has nothing to report. threat_level must be exactly one of "low", "medium", or "high".
For notable_quotes, extract 1-3 of the most politically significant moments, the kind a rapid response team would clip or screenshot.`

const descriptionNote = `This text is the publisher's episode description, not a full transcript. Reconstruct implied positions as clearly attributed paraphrases and keep the threat rationale proportionate to the limited evidence.`

// Input is one episode to analyze.
type Input struct {
	EpisodeID   string
	Podcast     string
	Host        string
	Lean        string
	Title       string
	PublishedAt time.Time
	Body        string
	SourceKind  transcript.SourceKind
}

// BuildUserPrompt renders the episode prompt around already-truncated text.
func BuildUserPrompt(in Input, body string) string {
	var b strings.Builder
	host := strings.TrimSpace(in.Host)
	if host == "" {
		host = "unknown"
	}
	fmt.Fprintf(&b, "Podcast: %s\n", in.Podcast)
	fmt.Fprintf(&b, "Lean: %s\n", in.Lean)
	fmt.Fprintf(&b, "Host(s): %s\n", host)
	fmt.Fprintf(&b, "Episode Title: %s\n", in.Title)
	if !in.PublishedAt.IsZero() {
		fmt.Fprintf(&b, "Published: %s\n", in.PublishedAt.UTC().Format(time.RFC1123Z))
	}
	fmt.Fprintf(&b, "Source: %s\n\n", sourceLabel(in.SourceKind))
	if in.SourceKind == transcript.KindRSSDescription {
		b.WriteString(descriptionNote)
		b.WriteString("\n\n")
	}
	b.WriteString("Episode text:\n")
	b.WriteString(body)
	b.WriteString("\n\n")
	b.WriteString(schemaInstruction)
	return b.String()
}

// RepairPrompt asks the model to correct its previous reply.
func RepairPrompt(problems []string) string {
	var b strings.Builder
	b.WriteString("Your previous reply did not match the required schema. Problems:\n")
	for _, problem := range problems {
		b.WriteString("- ")
		b.WriteString(problem)
		b.WriteByte('\n')
	}
	b.WriteString("\nReturn the corrected JSON object only, with exactly the required keys and no commentary.")
	return b.String()
}

func sourceLabel(kind transcript.SourceKind) string {
	switch kind {
	case transcript.KindVideoTranscript:
		return "full transcript (auto-generated captions)"
	case transcript.KindRSSDescription:
		return "episode description"
	default:
		return "unknown"
	}
}
