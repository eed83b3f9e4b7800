package analysis_test

const validReply = `{
  "synopsis": "Hosts of Demo Show argue the border bill is a surrender.",
  "key_topics": ["immigration", "border bill"],
  "notable_quotes": [
    {"quote": "This bill is amnesty by another name.", "speaker": "Host", "context": "Frames the bill as amnesty.", "type": "attack"}
  ],
  "political_attacks": [
    {"target": "Senate Democrats", "claim": "They wrote an amnesty bill."}
  ],
  "narrative_themes": ["open borders"],
  "messaging_opportunities": ["Highlight the bill's enforcement funding."],
  "threat_level": "medium",
  "threat_rationale": "Large audience and a clear, repeatable frame.",
  "confidence": 0.9
}`

const extremeReply = `{
  "synopsis": "Summary.",
  "key_topics": [],
  "notable_quotes": [],
  "political_attacks": [],
  "narrative_themes": [],
  "messaging_opportunities": [],
  "threat_level": "extreme",
  "threat_rationale": "Very bad."
}`
