package logging

import "strings"

// shortIDLength trims stable episode identifiers in console output.
const shortIDLength = 10

// FormatSubject builds the podcast/episode/stage subject string used in console output.
func FormatSubject(podcast, episodeID, stage string) string {
	podcast = strings.TrimSpace(podcast)
	episodeID = strings.TrimSpace(episodeID)
	stage = strings.TrimSpace(stage)
	if len(episodeID) > shortIDLength {
		episodeID = episodeID[:shortIDLength]
	}
	parts := make([]string, 0, 3)
	if podcast != "" {
		parts = append(parts, podcast)
	}
	if episodeID != "" {
		parts = append(parts, "#"+episodeID)
	}
	if stage != "" {
		parts = append(parts, stage)
	}
	return strings.Join(parts, " · ")
}
