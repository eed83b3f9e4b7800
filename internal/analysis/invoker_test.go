package analysis_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"podwatch/internal/analysis"
	"podwatch/internal/logging"
	"podwatch/internal/services"
	"podwatch/internal/services/llm"
	"podwatch/internal/transcript"
)

type scriptedCompleter struct {
	mu      sync.Mutex
	replies []string
	err     error
	calls   [][]llm.Message
}

func (s *scriptedCompleter) Complete(_ context.Context, messages []llm.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, append([]llm.Message(nil), messages...))
	if s.err != nil {
		return "", s.err
	}
	idx := len(s.calls) - 1
	if idx >= len(s.replies) {
		idx = len(s.replies) - 1
	}
	return s.replies[idx], nil
}

var analyzedAt = time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)

func newInvoker(c analysis.Completer, repairs int) *analysis.Invoker {
	return analysis.NewInvoker(c, analysis.Config{RepairAttempts: repairs, Model: "demo-model"}, logging.NewNop(),
		analysis.WithClock(func() time.Time { return analyzedAt }))
}

func input(kind transcript.SourceKind) analysis.Input {
	return analysis.Input{
		EpisodeID:  "ep-1",
		Podcast:    "Demo Show",
		Host:       "Host Name",
		Lean:       "right",
		Title:      "Border Bill",
		Body:       strings.Repeat("word ", 300),
		SourceKind: kind,
	}
}

func TestAnalyzeValidReply(t *testing.T) {
	completer := &scriptedCompleter{replies: []string{validReply}}
	got, err := newInvoker(completer, 1).Analyze(context.Background(), input(transcript.KindVideoTranscript))
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if len(completer.calls) != 1 {
		t.Fatalf("expected one model call, got %d", len(completer.calls))
	}
	if got.SourceKind != transcript.KindVideoTranscript || got.Model != "demo-model" || !got.AnalyzedAt.Equal(analyzedAt) {
		t.Fatalf("unexpected metadata %+v", got)
	}
	if got.Truncated {
		t.Fatal("short input must not be marked truncated")
	}
	first := completer.calls[0]
	if first[0].Role != llm.RoleSystem || !strings.Contains(first[0].Content, "progressive political organization") {
		t.Fatalf("unexpected system prompt %+v", first[0])
	}
	if !strings.Contains(first[1].Content, "Podcast: Demo Show") || !strings.Contains(first[1].Content, `"threat_level"`) {
		t.Fatalf("unexpected user prompt %q", first[1].Content)
	}
}

func TestAnalyzeThreatLevelOutsideEnumFailsAfterOneRepair(t *testing.T) {
	completer := &scriptedCompleter{replies: []string{extremeReply, extremeReply}}
	got, err := newInvoker(completer, 1).Analyze(context.Background(), input(transcript.KindRSSDescription))
	if got != nil {
		t.Fatalf("invalid analysis must never be returned, got %+v", got)
	}
	if !errors.Is(err, services.ErrAnalysisSchemaInvalid) {
		t.Fatalf("expected ErrAnalysisSchemaInvalid, got %v", err)
	}
	if services.Classify(err) != services.CategoryAnalysisSchemaInvalid {
		t.Fatalf("unexpected category %q", services.Classify(err))
	}
	if len(completer.calls) != 2 {
		t.Fatalf("expected the original call plus one repair, got %d", len(completer.calls))
	}
	repair := completer.calls[1]
	if len(repair) != 4 {
		t.Fatalf("expected system, user, assistant, repair messages, got %d", len(repair))
	}
	if repair[2].Role != llm.RoleAssistant || repair[2].Content != extremeReply {
		t.Fatalf("expected previous reply replayed, got %+v", repair[2])
	}
	if repair[3].Role != llm.RoleUser || !strings.Contains(repair[3].Content, "threat_level") {
		t.Fatalf("expected repair instruction naming the problem, got %q", repair[3].Content)
	}
}

func TestAnalyzeRepairSucceeds(t *testing.T) {
	completer := &scriptedCompleter{replies: []string{extremeReply, validReply}}
	got, err := newInvoker(completer, 1).Analyze(context.Background(), input(transcript.KindVideoTranscript))
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if got.ThreatLevel != analysis.ThreatMedium {
		t.Fatalf("expected repaired reply, got %+v", got)
	}
}

func TestAnalyzeWithoutRepairAttempts(t *testing.T) {
	completer := &scriptedCompleter{replies: []string{extremeReply}}
	_, err := newInvoker(completer, 0).Analyze(context.Background(), input(transcript.KindVideoTranscript))
	if !errors.Is(err, services.ErrAnalysisSchemaInvalid) || len(completer.calls) != 1 {
		t.Fatalf("expected single failing call, got %v after %d calls", err, len(completer.calls))
	}
}

func TestAnalyzeTransportErrorPassesThrough(t *testing.T) {
	transport := services.Wrap(services.ErrRateLimited, "analyze", "llm complete", "http 429", nil)
	completer := &scriptedCompleter{err: transport}
	_, err := newInvoker(completer, 1).Analyze(context.Background(), input(transcript.KindVideoTranscript))
	if !errors.Is(err, services.ErrRateLimited) {
		t.Fatalf("expected rate limited, got %v", err)
	}
	if len(completer.calls) != 1 {
		t.Fatalf("transport errors are retried by the client, not the invoker; got %d calls", len(completer.calls))
	}
}

func TestAnalyzeMarksTruncation(t *testing.T) {
	completer := &scriptedCompleter{replies: []string{validReply}}
	inv := analysis.NewInvoker(completer, analysis.Config{MaxInputWords: 100, RepairAttempts: 1}, logging.NewNop())
	got, err := inv.Analyze(context.Background(), input(transcript.KindVideoTranscript))
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if !got.Truncated {
		t.Fatal("expected truncated flag")
	}
	if !strings.Contains(completer.calls[0][1].Content, analysis.OmissionMarker) {
		t.Fatal("expected omission marker in prompt")
	}
}

func TestAnalyzeRejectsEmptyBody(t *testing.T) {
	in := input(transcript.KindNone)
	in.Body = "  "
	_, err := newInvoker(&scriptedCompleter{replies: []string{validReply}}, 1).Analyze(context.Background(), in)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestBuildUserPromptNotesDescriptionSource(t *testing.T) {
	prompt := analysis.BuildUserPrompt(input(transcript.KindRSSDescription), "body text")
	if !strings.Contains(prompt, "publisher's episode description") {
		t.Fatalf("expected description note, got %q", prompt)
	}
	prompt = analysis.BuildUserPrompt(input(transcript.KindVideoTranscript), "body text")
	if strings.Contains(prompt, "publisher's episode description") {
		t.Fatal("transcript prompt must not carry the description note")
	}
}
