package analysis

import (
	"time"

	"podwatch/internal/transcript"
)

// ThreatLevel rates an episode's threat to progressive causes.
type ThreatLevel string

const (
	ThreatLow    ThreatLevel = "low"
	ThreatMedium ThreatLevel = "medium"
	ThreatHigh   ThreatLevel = "high"
)

// ThreatLevels lists accepted threat levels in ascending order.
var ThreatLevels = []ThreatLevel{ThreatLow, ThreatMedium, ThreatHigh}

// QuoteType classifies a notable quote.
type QuoteType string

const (
	QuoteAttack              QuoteType = "attack"
	QuoteClaim               QuoteType = "claim"
	QuoteAdmission           QuoteType = "admission"
	QuoteNotablePosition     QuoteType = "notable_position"
	QuoteCrossPartisanSignal QuoteType = "cross_partisan_signal"
)

// QuoteTypes lists accepted quote types.
var QuoteTypes = []QuoteType{QuoteAttack, QuoteClaim, QuoteAdmission, QuoteNotablePosition, QuoteCrossPartisanSignal}

// Quote is a clip-worthy moment from an episode.
type Quote struct {
	Quote   string    `json:"quote"`
	Speaker string    `json:"speaker"`
	Context string    `json:"context"`
	Type    QuoteType `json:"type"`
}

// Attack is a political attack made in an episode.
type Attack struct {
	Target string `json:"target"`
	Claim  string `json:"claim"`
}

// Analysis is the validated structured report for one episode.
type Analysis struct {
	Synopsis               string      `json:"synopsis"`
	KeyTopics              []string    `json:"key_topics"`
	NotableQuotes          []Quote     `json:"notable_quotes"`
	PoliticalAttacks       []Attack    `json:"political_attacks"`
	NarrativeThemes        []string    `json:"narrative_themes"`
	MessagingOpportunities []string    `json:"messaging_opportunities"`
	ThreatLevel            ThreatLevel `json:"threat_level"`
	ThreatRationale        string      `json:"threat_rationale"`

	AnalyzedAt time.Time             `json:"-"`
	SourceKind transcript.SourceKind `json:"-"`
	Model      string                `json:"-"`
	Truncated  bool                  `json:"-"`
}
