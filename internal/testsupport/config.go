package testsupport

import (
	"path/filepath"
	"testing"

	"podwatch/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Network-facing features start disabled; options turn them on.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.LockDir = filepath.Join(base, "locks")
	cfgVal.Paths.RosterFile = filepath.Join(base, "podcasts.json")
	cfgVal.LLM.APIKey = "test"
	cfgVal.LLM.RetryAttempts = 1
	cfgVal.YouTube.Enabled = false
	cfgVal.Feeds.HostIntervalMillis = 0
	cfgVal.Notifications.NtfyTopic = ""
	cfgVal.Metrics.TextfilePath = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithLLMBaseURL points the analysis client at a test server.
func WithLLMBaseURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.LLM.BaseURL = url
	}
}

// WithYouTube enables the caption source against a test server.
func WithYouTube(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.YouTube.Enabled = true
		b.cfg.YouTube.BaseURL = url
		b.cfg.YouTube.RequestsPerSecond = 0
	}
}

// WithNtfyTopic enables notifications against a test server.
func WithNtfyTopic(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = url
	}
}

// WithMetricsTextfile enables textfile metrics inside the temp directory.
func WithMetricsTextfile() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Metrics.TextfilePath = filepath.Join(b.baseDir, "metrics", "podwatch.prom")
	}
}

// WithRoster writes a roster file and points the config at it.
func WithRoster(content string) ConfigOption {
	return func(b *configBuilder) {
		WriteFile(b.t, b.cfg.Paths.RosterFile, content)
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
