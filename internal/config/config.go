// Package config loads pipeline settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// AI provider settings
	GeminiAPIKey string
	GeminiModel  string
	OpenAIAPIKey string
	OpenAIModel  string
	TTSVoice     string

	// AI request budget per day (0 = unlimited)
	MaxRankRequests   int
	MaxScriptRequests int
	MaxSpeechRequests int
	MaxAIRequests     int

	// Feed settings
	ContentPacks      []string
	CustomFeedsPath   string
	DefaultLanguage   string
	FetchConcurrency  int
	FetchTimeout      time.Duration
	FetchRetries      int
	FetchRetryDelay   time.Duration
	FeedCacheDuration time.Duration

	// Briefing settings
	BriefingLength string // quick | balanced | deep
	Interests      []string
	GenerationCron string // empty disables the scheduler

	// Storage settings
	DatabasePath  string
	AudioDir      string
	RetentionDays int

	// App settings
	Debug bool
}

func Load() (*Config, error) {
	cfg := &Config{
		// Default values
		GeminiModel:       "gemini-1.5-flash",
		OpenAIModel:       "gpt-4o-mini",
		TTSVoice:          "alloy",
		MaxRankRequests:   20,
		MaxScriptRequests: 10,
		MaxSpeechRequests: 10,
		MaxAIRequests:     50,
		DefaultLanguage:   "en",
		FetchConcurrency:  10,
		FetchTimeout:      30 * time.Second,
		FetchRetries:      1, // one retry on top of the first attempt
		FetchRetryDelay:   2 * time.Second,
		FeedCacheDuration: 30 * time.Minute,
		BriefingLength:    "balanced",
		DatabasePath:      "dailybrief.db",
		AudioDir:          "audio",
		RetentionDays:     7,
	}

	// Load from environment
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")

	cfg.GeminiModel = getEnvOrDefault("GEMINI_MODEL", cfg.GeminiModel)
	cfg.OpenAIModel = getEnvOrDefault("OPENAI_MODEL", cfg.OpenAIModel)
	cfg.TTSVoice = getEnvOrDefault("TTS_VOICE", cfg.TTSVoice)

	cfg.MaxRankRequests = getEnvIntOrDefault("MAX_RANK_REQUESTS", cfg.MaxRankRequests)
	cfg.MaxScriptRequests = getEnvIntOrDefault("MAX_SCRIPT_REQUESTS", cfg.MaxScriptRequests)
	cfg.MaxSpeechRequests = getEnvIntOrDefault("MAX_SPEECH_REQUESTS", cfg.MaxSpeechRequests)
	cfg.MaxAIRequests = getEnvIntOrDefault("MAX_AI_REQUESTS", cfg.MaxAIRequests)

	cfg.ContentPacks = splitList(os.Getenv("CONTENT_PACKS"))
	cfg.CustomFeedsPath = os.Getenv("CUSTOM_FEEDS_PATH")
	cfg.DefaultLanguage = getEnvOrDefault("DEFAULT_LANGUAGE", cfg.DefaultLanguage)

	cfg.FetchConcurrency = getEnvIntOrDefault("FETCH_CONCURRENCY", cfg.FetchConcurrency)
	cfg.FetchRetries = getEnvIntOrDefault("FETCH_RETRIES", cfg.FetchRetries)
	if v := getEnvIntOrDefault("FETCH_TIMEOUT_SECONDS", 0); v > 0 {
		cfg.FetchTimeout = time.Duration(v) * time.Second
	}
	if v := getEnvIntOrDefault("FEED_CACHE_MINUTES", 0); v > 0 {
		cfg.FeedCacheDuration = time.Duration(v) * time.Minute
	}

	cfg.BriefingLength = getEnvOrDefault("BRIEFING_LENGTH", cfg.BriefingLength)
	cfg.Interests = splitList(os.Getenv("INTERESTS"))
	cfg.GenerationCron = os.Getenv("GENERATION_CRON")

	cfg.DatabasePath = getEnvOrDefault("DATABASE_PATH", cfg.DatabasePath)
	cfg.AudioDir = getEnvOrDefault("AUDIO_DIR", cfg.AudioDir)
	cfg.RetentionDays = getEnvIntOrDefault("RETENTION_DAYS", cfg.RetentionDays)

	if debug := os.Getenv("DEBUG"); debug == "true" {
		cfg.Debug = true
	}

	return cfg, cfg.Validate()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) Validate() error {
	if c.GeminiAPIKey == "" && c.OpenAIAPIKey == "" {
		return fmt.Errorf("either GEMINI_API_KEY or OPENAI_API_KEY is required")
	}
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required for speech synthesis")
	}
	if c.FetchConcurrency < 1 {
		return fmt.Errorf("FETCH_CONCURRENCY must be positive")
	}
	switch c.BriefingLength {
	case "quick", "balanced", "deep":
	default:
		return fmt.Errorf("BRIEFING_LENGTH must be 'quick', 'balanced' or 'deep'")
	}
	return nil
}
