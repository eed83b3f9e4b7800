// Package youtube reads public channel listings and auto-generated caption
// tracks from the video platform.
//
// ChannelVideos parses the channel's uploads feed and caches the listing per
// channel for a short TTL so episodes of one podcast share a single request.
// Captions loads a video's watch page, picks a caption track by language
// preference, and flattens its timed text. All requests share one rate
// limiter. Failures are tagged with services markers: not found, paywalled,
// and empty captions are ErrTranscriptUnavailable; HTTP 429 is ErrRateLimited;
// 5xx and transport errors are ErrServiceUnavailable.
package youtube
