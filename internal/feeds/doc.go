// Package feeds polls podcast syndication feeds and yields candidate episodes.
//
// Client.Fetch downloads one feed (paced per host) and parses it with gofeed.
// Network and HTTP failures carry services.ErrFeedUnreachable; unparseable
// documents carry services.ErrFeedMalformed. Feed.Candidates converts items
// lazily, skipping and counting malformed items instead of failing the feed,
// and drops items older than the lookback window.
//
// EpisodeID derives the stable, podcast-namespaced identifier from the item's
// guid, link, or title and publish time.
package feeds
