package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Paths contains directory and file locations.
type Paths struct {
	DataDir    string `toml:"data_dir"`
	LogDir     string `toml:"log_dir"`
	RosterFile string `toml:"roster_file"`
	LockDir    string `toml:"lock_dir"`
}

// LLM contains connection settings for the analysis model endpoint.
type LLM struct {
	APIKey          string `toml:"api_key"`
	BaseURL         string `toml:"base_url"`
	Model           string `toml:"model"`
	Referer         string `toml:"referer"`
	Title           string `toml:"title"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
	RetryAttempts   int    `toml:"retry_attempts"`
	RetryBaseMillis int    `toml:"retry_base_ms"`
	RetryMaxSeconds int    `toml:"retry_max_seconds"`
}

// Analysis contains prompt-input and schema-repair settings.
type Analysis struct {
	// MaxInputWords caps the episode text sent to the model.
	MaxInputWords int `toml:"max_input_words"`
	// HeadRatio is the share of MaxInputWords kept from the start of an
	// over-long text; the rest comes from its end.
	HeadRatio float64 `toml:"head_ratio"`
	// RepairAttempts is how many times an invalid response is sent back
	// to the model with a repair instruction.
	RepairAttempts int `toml:"repair_attempts"`
	// MinWords is the body size below which an episode is skipped.
	MinWords int `toml:"min_words"`
}

// Feeds contains syndication feed polling settings.
type Feeds struct {
	LookbackHours       int    `toml:"lookback_hours"`
	TimeoutSeconds      int    `toml:"timeout_seconds"`
	UserAgent           string `toml:"user_agent"`
	HostIntervalMillis  int    `toml:"host_interval_ms"`
	MaxDescriptionChars int    `toml:"max_description_chars"`
}

// YouTube contains caption source settings.
type YouTube struct {
	Enabled            bool     `toml:"enabled"`
	BaseURL            string   `toml:"base_url"`
	RequestsPerSecond  float64  `toml:"requests_per_second"`
	TimeoutSeconds     int      `toml:"timeout_seconds"`
	MatchWindowHours   int      `toml:"match_window_hours"`
	MinTitleSimilarity float64  `toml:"min_title_similarity"`
	CaptionLanguages   []string `toml:"caption_languages"`
	CacheTTLMinutes    int      `toml:"cache_ttl_minutes"`
}

// Pipeline contains run-level concurrency and cost controls.
type Pipeline struct {
	Workers     int `toml:"workers"`
	MaxEpisodes int `toml:"max_episodes"`
}

// Daemon contains scheduled-run settings.
type Daemon struct {
	IntervalMinutes int `toml:"interval_minutes"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	RunSummary     bool   `toml:"run_summary"`
	Errors         bool   `toml:"errors"`
}

// Metrics contains the Prometheus textfile export location.
type Metrics struct {
	TextfilePath string `toml:"textfile_path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for podwatch.
//
// Configuration sections by subsystem:
//   - Paths: data, log, and lock directories plus the podcast roster file
//   - LLM: analysis model endpoint, credentials, and transport retry policy
//   - Analysis: input truncation, schema repair attempts, minimum body size
//   - Feeds: RSS polling timeouts, user agent, per-host pacing
//   - YouTube: caption source pacing and episode-to-video matching thresholds
//   - Pipeline: worker pool size and per-run episode cap
//   - Daemon: scheduled run interval
//   - Notifications: ntfy push notification settings
//   - Metrics: Prometheus textfile export
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	LLM           LLM           `toml:"llm"`
	Analysis      Analysis      `toml:"analysis"`
	Feeds         Feeds         `toml:"feeds"`
	YouTube       YouTube       `toml:"youtube"`
	Pipeline      Pipeline      `toml:"pipeline"`
	Daemon        Daemon        `toml:"daemon"`
	Notifications Notifications `toml:"notifications"`
	Metrics       Metrics       `toml:"metrics"`
	Logging       Logging       `toml:"logging"`
}

// EnsureDirectories creates the data, log, and lock directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.Paths.LockDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite episode store location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "episodes.db")
}

// DaemonLockPath returns the single-instance lock used by the scheduler.
func (c *Config) DaemonLockPath() string {
	return filepath.Join(c.Paths.LockDir, "podwatchd.lock")
}

// EpisodeLockDir returns where per-episode analysis locks live.
func (c *Config) EpisodeLockDir() string {
	return filepath.Join(c.Paths.LockDir, "episodes")
}

// LookbackWindow returns the configured feed lookback as a duration.
func (c *Config) LookbackWindow() time.Duration {
	return time.Duration(c.Feeds.LookbackHours) * time.Hour
}

// DaemonInterval returns the scheduled run interval.
func (c *Config) DaemonInterval() time.Duration {
	return time.Duration(c.Daemon.IntervalMinutes) * time.Minute
}

// RequireLLM reports a configuration error when analysis cannot run.
func (c *Config) RequireLLM() error {
	if strings.TrimSpace(c.LLM.APIKey) != "" {
		return nil
	}
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = defaultConfigPath
	}
	return fmt.Errorf("llm.api_key is required for analysis. Set PODWATCH_LLM_API_KEY or OPENROUTER_API_KEY, or edit %s (create with 'podwatch config init')", defaultPath)
}

// LLMConfig contains the resolved model connection settings.
type LLMConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
	RetryAttempts  int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
}

// GetLLM returns the model connection settings.
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		APIKey:         strings.TrimSpace(c.LLM.APIKey),
		BaseURL:        strings.TrimSpace(c.LLM.BaseURL),
		Model:          strings.TrimSpace(c.LLM.Model),
		Referer:        strings.TrimSpace(c.LLM.Referer),
		Title:          strings.TrimSpace(c.LLM.Title),
		TimeoutSeconds: c.LLM.TimeoutSeconds,
		RetryAttempts:  c.LLM.RetryAttempts,
		RetryBaseDelay: time.Duration(c.LLM.RetryBaseMillis) * time.Millisecond,
		RetryMaxDelay:  time.Duration(c.LLM.RetryMaxSeconds) * time.Second,
	}
}
