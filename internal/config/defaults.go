package config

const (
	defaultConfigPath            = "~/.config/podwatch/config.toml"
	defaultDataDir               = "~/.local/share/podwatch"
	defaultLogDir                = "~/.local/share/podwatch/logs"
	defaultLockDir               = "~/.local/share/podwatch/locks"
	defaultRosterFile            = "~/.config/podwatch/podcasts.json"
	defaultLLMBaseURL            = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel              = "anthropic/claude-3.5-sonnet"
	defaultLLMReferer            = "https://github.com/podwatch/podwatch"
	defaultLLMTitle              = "Podwatch Analysis"
	defaultLLMTimeoutSeconds     = 120
	defaultLLMRetryAttempts      = 5
	defaultLLMRetryBaseMillis    = 1000
	defaultLLMRetryMaxSeconds    = 30
	defaultMaxInputWords         = 20000
	defaultHeadRatio             = 0.8
	defaultRepairAttempts        = 1
	defaultMinWords              = 50
	defaultLookbackHours         = 48
	defaultFeedTimeoutSeconds    = 15
	defaultFeedUserAgent         = "Podcast-Intelligence-Monitor/1.0"
	defaultHostIntervalMillis    = 500
	defaultMaxDescriptionChars   = 5000
	defaultYouTubeBaseURL        = "https://www.youtube.com"
	defaultYouTubeRPS            = 2.0
	defaultYouTubeTimeoutSeconds = 20
	defaultMatchWindowHours      = 48
	defaultMinTitleSimilarity    = 0.5
	defaultCacheTTLMinutes       = 30
	defaultWorkers               = 8
	defaultMaxEpisodes           = 100
	defaultDaemonIntervalMinutes = 360
	defaultNotifyRequestTimeout  = 10
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	maxWorkers                   = 32
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    defaultDataDir,
			LogDir:     defaultLogDir,
			RosterFile: defaultRosterFile,
			LockDir:    defaultLockDir,
		},
		LLM: LLM{
			BaseURL:         defaultLLMBaseURL,
			Model:           defaultLLMModel,
			Referer:         defaultLLMReferer,
			Title:           defaultLLMTitle,
			TimeoutSeconds:  defaultLLMTimeoutSeconds,
			RetryAttempts:   defaultLLMRetryAttempts,
			RetryBaseMillis: defaultLLMRetryBaseMillis,
			RetryMaxSeconds: defaultLLMRetryMaxSeconds,
		},
		Analysis: Analysis{
			MaxInputWords:  defaultMaxInputWords,
			HeadRatio:      defaultHeadRatio,
			RepairAttempts: defaultRepairAttempts,
			MinWords:       defaultMinWords,
		},
		Feeds: Feeds{
			LookbackHours:       defaultLookbackHours,
			TimeoutSeconds:      defaultFeedTimeoutSeconds,
			UserAgent:           defaultFeedUserAgent,
			HostIntervalMillis:  defaultHostIntervalMillis,
			MaxDescriptionChars: defaultMaxDescriptionChars,
		},
		YouTube: YouTube{
			Enabled:            true,
			BaseURL:            defaultYouTubeBaseURL,
			RequestsPerSecond:  defaultYouTubeRPS,
			TimeoutSeconds:     defaultYouTubeTimeoutSeconds,
			MatchWindowHours:   defaultMatchWindowHours,
			MinTitleSimilarity: defaultMinTitleSimilarity,
			CaptionLanguages:   []string{"en"},
			CacheTTLMinutes:    defaultCacheTTLMinutes,
		},
		Pipeline: Pipeline{
			Workers:     defaultWorkers,
			MaxEpisodes: defaultMaxEpisodes,
		},
		Daemon: Daemon{
			IntervalMinutes: defaultDaemonIntervalMinutes,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			RunSummary:     true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
