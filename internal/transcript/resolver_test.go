package transcript_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"podwatch/internal/logging"
	"podwatch/internal/services"
	"podwatch/internal/services/youtube"
	"podwatch/internal/transcript"
)

var published = time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)

type fakeCaptions struct {
	videos      []youtube.Video
	listErr     error
	text        string
	captionErr  error
	listCalls   int
	captionCall []string
}

func (f *fakeCaptions) ChannelVideos(ctx context.Context, channelID string) ([]youtube.Video, error) {
	f.listCalls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.videos, f.listErr
}

func (f *fakeCaptions) Captions(ctx context.Context, videoID string) (string, error) {
	f.captionCall = append(f.captionCall, videoID)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return f.text, f.captionErr
}

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("word ", n))
}

func newResolver(source transcript.CaptionSource) *transcript.Resolver {
	return transcript.NewResolver(source, transcript.Config{}, logging.NewNop())
}

func request(channel, description string) transcript.Request {
	return transcript.Request{
		EpisodeID:   "ep-1",
		Podcast:     "Demo",
		Title:       "The Border Bill Collapses",
		PublishedAt: published,
		Description: description,
		ChannelID:   channel,
	}
}

func matchingVideos() []youtube.Video {
	return []youtube.Video{
		{ID: "vid-match", Title: "The border bill collapses (full show)", PublishedAt: published.Add(2 * time.Hour)},
		{ID: "vid-other", Title: "Weekend mailbag", PublishedAt: published},
	}
}

func TestResolveWithoutChannelNeverCallsCaptions(t *testing.T) {
	source := &fakeCaptions{videos: matchingVideos(), text: words(500)}
	result, err := newResolver(source).Resolve(context.Background(), request("", words(120)))
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if result.Kind != transcript.KindRSSDescription {
		t.Fatalf("expected rss_description, got %s", result.Kind)
	}
	if result.WordCount != 120 {
		t.Fatalf("expected 120 words, got %d", result.WordCount)
	}
	if source.listCalls != 0 || len(source.captionCall) != 0 {
		t.Fatal("caption source must not be called without a channel id")
	}
}

func TestResolveWithoutChannelOrDescriptionIsNone(t *testing.T) {
	result, err := newResolver(&fakeCaptions{}).Resolve(context.Background(), request("", "  "))
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if result.Kind != transcript.KindNone || result.Body != "" || result.WordCount != 0 {
		t.Fatalf("expected empty none result, got %+v", result)
	}
}

func TestResolveUsesMatchedVideoTranscript(t *testing.T) {
	source := &fakeCaptions{videos: matchingVideos(), text: words(900)}
	result, err := newResolver(source).Resolve(context.Background(), request("UC1", words(40)))
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if result.Kind != transcript.KindVideoTranscript || result.VideoID != "vid-match" {
		t.Fatalf("expected transcript from vid-match, got %+v", result)
	}
	if result.WordCount != 900 {
		t.Fatalf("expected 900 words, got %d", result.WordCount)
	}
}

func TestResolvePaywalledCaptionsFallBackToDescription(t *testing.T) {
	source := &fakeCaptions{
		videos:     matchingVideos(),
		captionErr: services.Wrap(services.ErrTranscriptUnavailable, "resolve", "captions", "video not playable (login_required)", nil),
	}
	result, err := newResolver(source).Resolve(context.Background(), request("UC1", words(300)))
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if result.Kind != transcript.KindRSSDescription {
		t.Fatalf("expected rss_description, got %s", result.Kind)
	}
	if result.WordCount != 300 {
		t.Fatalf("expected the 300-word description, got %d", result.WordCount)
	}
	if !strings.Contains(result.Reason, "transcript_unavailable") {
		t.Fatalf("expected reason to mention category, got %q", result.Reason)
	}
	if len(source.captionCall) != 1 || source.captionCall[0] != "vid-match" {
		t.Fatalf("expected one caption attempt, got %v", source.captionCall)
	}
}

func TestResolveEmptyCaptionsFallBackToDescription(t *testing.T) {
	source := &fakeCaptions{videos: matchingVideos(), text: "   "}
	result, err := newResolver(source).Resolve(context.Background(), request("UC1", words(60)))
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if result.Kind != transcript.KindRSSDescription {
		t.Fatalf("expected rss_description when captions are empty, got %s", result.Kind)
	}
	if result.Reason != "captions empty" {
		t.Fatalf("unexpected reason %q", result.Reason)
	}
}

func TestResolveListingFailureDegrades(t *testing.T) {
	source := &fakeCaptions{listErr: services.Wrap(services.ErrRateLimited, "resolve", "channel videos", "http 429", nil)}
	result, err := newResolver(source).Resolve(context.Background(), request("UC1", words(60)))
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if result.Kind != transcript.KindRSSDescription || !strings.Contains(result.Reason, "rate_limited") {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestResolveNoMatchingVideo(t *testing.T) {
	source := &fakeCaptions{videos: []youtube.Video{
		{ID: "far", Title: "The Border Bill Collapses", PublishedAt: published.Add(-72 * time.Hour)},
	}, text: words(500)}
	result, err := newResolver(source).Resolve(context.Background(), request("UC1", ""))
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if result.Kind != transcript.KindNone {
		t.Fatalf("expected none, got %s", result.Kind)
	}
	if len(source.captionCall) != 0 {
		t.Fatal("no caption fetch expected without a match")
	}
	if !strings.Contains(result.Reason, "no matching video") {
		t.Fatalf("unexpected reason %q", result.Reason)
	}
}

func TestResolveCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newResolver(&fakeCaptions{videos: matchingVideos()}).Resolve(ctx, request("UC1", words(60)))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
}

func TestNilCaptionSourceFallsBack(t *testing.T) {
	result, err := newResolver(nil).Resolve(context.Background(), request("UC1", words(80)))
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if result.Kind != transcript.KindRSSDescription || result.Reason != "caption source disabled" {
		t.Fatalf("unexpected result %+v", result)
	}
}
