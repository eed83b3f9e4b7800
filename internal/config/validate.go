package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateAnalysis(); err != nil {
		return err
	}
	if err := c.validateFeeds(); err != nil {
		return err
	}
	if err := c.validateYouTube(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateLLM() error {
	if _, err := url.ParseRequestURI(c.LLM.BaseURL); err != nil {
		return fmt.Errorf("llm.base_url is not a valid URL: %w", err)
	}
	return ensurePositiveMap(map[string]int{
		"llm.timeout_seconds":   c.LLM.TimeoutSeconds,
		"llm.retry_attempts":    c.LLM.RetryAttempts,
		"llm.retry_base_ms":     c.LLM.RetryBaseMillis,
		"llm.retry_max_seconds": c.LLM.RetryMaxSeconds,
	})
}

func (c *Config) validateAnalysis() error {
	if c.Analysis.MaxInputWords <= 0 {
		return errors.New("analysis.max_input_words must be positive")
	}
	if c.Analysis.HeadRatio <= 0 || c.Analysis.HeadRatio > 1 {
		return errors.New("analysis.head_ratio must be greater than 0 and at most 1")
	}
	if c.Analysis.RepairAttempts < 0 {
		return errors.New("analysis.repair_attempts must be >= 0")
	}
	if c.Analysis.MinWords < 0 {
		return errors.New("analysis.min_words must be >= 0")
	}
	if c.Analysis.MinWords >= c.Analysis.MaxInputWords {
		return errors.New("analysis.min_words must be smaller than analysis.max_input_words")
	}
	return nil
}

func (c *Config) validateFeeds() error {
	if err := ensurePositiveMap(map[string]int{
		"feeds.lookback_hours":        c.Feeds.LookbackHours,
		"feeds.timeout_seconds":       c.Feeds.TimeoutSeconds,
		"feeds.max_description_chars": c.Feeds.MaxDescriptionChars,
	}); err != nil {
		return err
	}
	if c.Feeds.HostIntervalMillis < 0 {
		return errors.New("feeds.host_interval_ms must be >= 0")
	}
	return nil
}

func (c *Config) validateYouTube() error {
	if !c.YouTube.Enabled {
		return nil
	}
	if _, err := url.ParseRequestURI(c.YouTube.BaseURL); err != nil {
		return fmt.Errorf("youtube.base_url is not a valid URL: %w", err)
	}
	if c.YouTube.RequestsPerSecond <= 0 {
		return errors.New("youtube.requests_per_second must be positive")
	}
	if c.YouTube.MinTitleSimilarity <= 0 || c.YouTube.MinTitleSimilarity > 1 {
		return errors.New("youtube.min_title_similarity must be greater than 0 and at most 1")
	}
	return ensurePositiveMap(map[string]int{
		"youtube.timeout_seconds":    c.YouTube.TimeoutSeconds,
		"youtube.match_window_hours": c.YouTube.MatchWindowHours,
		"youtube.cache_ttl_minutes":  c.YouTube.CacheTTLMinutes,
	})
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.Workers < 1 || c.Pipeline.Workers > maxWorkers {
		return fmt.Errorf("pipeline.workers must be between 1 and %d", maxWorkers)
	}
	if c.Pipeline.MaxEpisodes <= 0 {
		return errors.New("pipeline.max_episodes must be positive")
	}
	if c.Daemon.IntervalMinutes <= 0 {
		return errors.New("daemon.interval_minutes must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", strings.TrimSpace(key))
		}
	}
	return nil
}
