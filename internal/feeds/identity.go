package feeds

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

const episodeIDLength = 32

// EpisodeID derives the stable episode identifier. The key is the item guid,
// falling back to its link, then to title plus publish time, and is always
// namespaced by podcast name so two shows reusing a guid never collide.
func EpisodeID(podcastName, guid, link, title string, published time.Time) string {
	key := strings.TrimSpace(guid)
	if key == "" {
		key = strings.TrimSpace(link)
	}
	if key == "" {
		key = strings.TrimSpace(title) + "|" + published.UTC().Format(time.RFC3339)
	}
	sum := sha256.Sum256([]byte(strings.TrimSpace(podcastName) + "\x1f" + key))
	return hex.EncodeToString(sum[:])[:episodeIDLength]
}
