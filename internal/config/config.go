package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration for the application. It is built once at
// startup from the environment and passed by reference into each component;
// no component reads the environment on its own.
type Config struct {
	// Server configuration (serve mode only)
	Port  string
	Debug bool

	// Schedule configuration (serve mode only): "daily" or "hourly"
	RunSchedule string

	// Brand being monitored
	BrandName string

	// Optional relevance filter: when set, mentions whose text or author
	// matches none of these keywords are discarded after normalization.
	Keywords []string

	// Per-source query parameters and credentials
	TwitterBearerToken string
	TwitterQuery       string
	TwitterMaxResults  int
	FacebookPage       string
	GooglePlayAppID    string

	// Sentiment classification
	SentimentEndpoint  string
	SentimentAPIKey    string
	SentimentBatchSize int

	// Alerting
	AlertThreshold float64

	// Sink configuration
	SinkPath            string
	SinkDedupAcrossRuns bool

	// Notification configuration
	SlackWebhookURL   string
	NotificationEmail string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Debug:       getBoolEnv("DEBUG", false),
		RunSchedule: getEnv("RUN_SCHEDULE", "daily"),

		BrandName: getEnv("BRAND_NAME", "Branch"),
		Keywords:  getSliceEnv("KEYWORDS", nil),

		TwitterBearerToken: getEnv("TWITTER_BEARER_TOKEN", ""),
		TwitterQuery:       getEnv("TWITTER_QUERY", "Branch OR @BranchApp"),
		TwitterMaxResults:  getIntEnv("TWITTER_MAX_RESULTS", 100),
		FacebookPage:       getEnv("FACEBOOK_PAGE", "Branch"),
		GooglePlayAppID:    getEnv("GOOGLE_PLAY_APP_ID", "io.branch.referral.branch"),

		SentimentEndpoint:  getEnv("SENTIMENT_ENDPOINT", ""),
		SentimentAPIKey:    getEnv("SENTIMENT_API_KEY", ""),
		SentimentBatchSize: getIntEnv("SENTIMENT_BATCH_SIZE", 32),

		AlertThreshold: getFloatEnv("ALERT_THRESHOLD", 0.20),

		SinkPath:            getEnv("SINK_PATH", "mentions.db"),
		SinkDedupAcrossRuns: getBoolEnv("SINK_DEDUP_ACROSS_RUNS", false),

		SlackWebhookURL:   getEnv("SLACK_WEBHOOK_URL", ""),
		NotificationEmail: getEnv("NOTIFICATION_EMAIL", ""),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getIntEnv("SMTP_PORT", 587),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.RunSchedule != "daily" && c.RunSchedule != "hourly" {
		return fmt.Errorf("RUN_SCHEDULE must be 'daily' or 'hourly'")
	}

	if c.AlertThreshold < 0 || c.AlertThreshold > 1 {
		return fmt.Errorf("ALERT_THRESHOLD must be within [0,1], got %v", c.AlertThreshold)
	}

	if c.SentimentBatchSize < 1 {
		return fmt.Errorf("SENTIMENT_BATCH_SIZE must be positive, got %d", c.SentimentBatchSize)
	}

	if c.SinkPath == "" {
		return fmt.Errorf("SINK_PATH is required")
	}

	if c.NotificationEmail != "" {
		if c.SMTPHost == "" || c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP configuration is required when NOTIFICATION_EMAIL is set")
		}
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
