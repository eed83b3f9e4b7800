package transcript

import (
	"cmp"
	"time"

	"podwatch/internal/services/youtube"
	"podwatch/internal/textutil"
)

// Match is a candidate video scored against an episode.
type Match struct {
	Video      youtube.Video
	Similarity float64
	Distance   time.Duration
}

// MatchVideo picks the video that best matches an episode title and publish
// time. A video qualifies when its title similarity reaches minSimilarity and
// its publish time lies within window of the episode's. Among qualifiers the
// highest similarity wins, then the smallest time distance, then the smallest
// video id.
func MatchVideo(title string, published time.Time, videos []youtube.Video, minSimilarity float64, window time.Duration) (Match, bool) {
	episodeFP := textutil.NewFingerprint(title)
	if episodeFP == nil {
		return Match{}, false
	}

	var (
		best  Match
		found bool
	)
	for _, video := range videos {
		if video.ID == "" || video.PublishedAt.IsZero() {
			continue
		}
		distance := absDuration(video.PublishedAt.Sub(published))
		if window > 0 && distance > window {
			continue
		}
		similarity := textutil.CosineSimilarity(episodeFP, textutil.NewFingerprint(video.Title))
		if similarity < minSimilarity || similarity == 0 {
			continue
		}
		candidate := Match{Video: video, Similarity: similarity, Distance: distance}
		if !found || better(candidate, best) {
			best = candidate
			found = true
		}
	}
	return best, found
}

func better(a, b Match) bool {
	if a.Similarity != b.Similarity {
		return a.Similarity > b.Similarity
	}
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}
	return cmp.Less(a.Video.ID, b.Video.ID)
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
