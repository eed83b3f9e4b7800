package notifications

import (
	"context"
	"fmt"
	"io"
	"maps"
	"net/http"
	"slices"
	"strings"
	"time"

	"podwatch/internal/config"
)

const userAgent = "podwatch/0.1.0"

// maxThreatLines bounds how many high-threat episodes a summary lists.
const maxThreatLines = 5

// RunReport is the run outcome a summary notification describes.
type RunReport struct {
	RunID        string
	Discovered   int
	New          int
	Analyzed     int
	Skipped      int
	Failed       int
	FeedFailures int
	Failures     map[string]int
	HighThreat   []string
	Duration     time.Duration
}

// Service defines the notification surface exposed to the pipeline and CLI.
type Service interface {
	NotifyRunCompleted(ctx context.Context, report RunReport) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint:   topic,
		client:     &http.Client{Timeout: timeout},
		runSummary: cfg.Notifications.RunSummary,
		errors:     cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint   string
	client     *http.Client
	runSummary bool
	errors     bool
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, report RunReport) error {
	if !n.runSummary {
		return nil
	}
	return n.send(ctx, runPayload(report))
}

func runPayload(report RunReport) payload {
	duration := report.Duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	var b strings.Builder
	runID := report.RunID
	if len(runID) > 8 {
		runID = runID[:8]
	}
	fmt.Fprintf(&b, "Run %s finished in %s\n", runID, duration)
	fmt.Fprintf(&b, "Episodes: %d seen, %d new, %d analyzed, %d skipped, %d failed",
		report.Discovered, report.New, report.Analyzed, report.Skipped, report.Failed)
	if report.FeedFailures > 0 {
		fmt.Fprintf(&b, "\nFeeds failed: %d", report.FeedFailures)
	}
	if len(report.Failures) > 0 {
		parts := make([]string, 0, len(report.Failures))
		for _, category := range slices.Sorted(maps.Keys(report.Failures)) {
			parts = append(parts, fmt.Sprintf("%s=%d", category, report.Failures[category]))
		}
		b.WriteString("\nFailures: ")
		b.WriteString(strings.Join(parts, ", "))
	}
	if len(report.HighThreat) > 0 {
		b.WriteString("\nHigh threat:")
		for i, line := range report.HighThreat {
			if i == maxThreatLines {
				fmt.Fprintf(&b, "\n- and %d more", len(report.HighThreat)-maxThreatLines)
				break
			}
			b.WriteString("\n- ")
			b.WriteString(strings.TrimSpace(line))
		}
	}

	data := payload{
		title:   "Podwatch - Run Complete",
		message: b.String(),
		tags:    []string{"podwatch", "run", "completed"},
	}
	if report.Failed > 0 || report.FeedFailures > 0 {
		data.title = "Podwatch - Run Complete (with errors)"
	}
	if len(report.HighThreat) > 0 {
		data.tags = append(data.tags, "warning")
		data.priority = "high"
	}
	return data
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	reason := "unknown"
	if err != nil {
		reason = strings.TrimSpace(err.Error())
	}
	message := "Error: " + reason
	if label := strings.TrimSpace(contextLabel); label != "" {
		message = fmt.Sprintf("Error during %s: %s", label, reason)
	}
	return n.send(ctx, payload{
		title:    "Podwatch - Error",
		message:  message,
		tags:     []string{"podwatch", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "Podwatch - Test",
		message:  "Notification system test",
		tags:     []string{"podwatch", "test"},
		priority: "low",
	})
}

func (p payload) headers() http.Header {
	h := http.Header{}
	h.Set("User-Agent", userAgent)
	h.Set("Content-Type", "text/plain; charset=utf-8")
	if p.title != "" {
		h.Set("Title", p.title)
	}
	if len(p.tags) > 0 {
		h.Set("Tags", strings.Join(p.tags, ","))
	}
	if p.priority != "" && p.priority != "default" {
		h.Set("Priority", p.priority)
	}
	return h
}

// send posts one message to the topic URL. Non-2xx replies become errors that
// carry the start of the response body.
func (n *ntfyService) send(ctx context.Context, data payload) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header = data.headers()

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

type noopService struct{}

func (noopService) NotifyRunCompleted(context.Context, RunReport) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error    { return nil }
func (noopService) TestNotification(context.Context) error              { return nil }
