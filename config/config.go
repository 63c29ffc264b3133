package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// HTTP server
	Port int

	// Snapshot store (external producer output)
	Snapshot SnapshotConfig

	// Cache behaviour
	Cache CacheConfig

	// Database configuration
	DatabaseHost     string
	DatabasePort     string
	DatabaseName     string
	DatabaseUser     string
	DatabasePassword string

	// Redis configuration
	RedisHost     string
	RedisPassword string
	RedisPort     string

	// Webhook fan-out for override events (optional)
	WebhookURL string
}

// SnapshotConfig holds the external snapshot store endpoint and fetch policy
type SnapshotConfig struct {
	BaseURL      string
	Timeout      time.Duration
	RetryCount   int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
}

// CacheConfig holds staleness policies for the history index cache
type CacheConfig struct {
	IndexTTL        time.Duration // in-memory index freshness window
	SnapshotTTL     time.Duration // redis memoization of fetched snapshots
	RefreshInterval time.Duration // background index refresher period
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	// Load .env file if exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		Port: getEnvInt("PORT", 8080),

		Snapshot: SnapshotConfig{
			BaseURL:      getEnvOrDefault("SNAPSHOT_BASE_URL", "https://storage.krx-signal.app/output"),
			Timeout:      getEnvDuration("SNAPSHOT_TIMEOUT", 15*time.Second),
			RetryCount:   getEnvInt("SNAPSHOT_RETRY_COUNT", 2),
			RetryWaitMin: getEnvDuration("SNAPSHOT_RETRY_WAIT_MIN", 500*time.Millisecond),
			RetryWaitMax: getEnvDuration("SNAPSHOT_RETRY_WAIT_MAX", 3*time.Second),
		},

		Cache: CacheConfig{
			IndexTTL:        getEnvDuration("CACHE_INDEX_TTL", 5*time.Minute),
			SnapshotTTL:     getEnvDuration("CACHE_SNAPSHOT_TTL", 24*time.Hour),
			RefreshInterval: getEnvDuration("CACHE_REFRESH_INTERVAL", 10*time.Minute),
		},

		// Database configuration
		DatabaseHost:     getEnvOrDefault("DB_HOST", "localhost"),
		DatabasePort:     getEnvOrDefault("DB_PORT", "5432"),
		DatabaseName:     getEnvOrDefault("DB_NAME", "krx_signal_board"),
		DatabaseUser:     getEnvOrDefault("DB_USER", "krxboard"),
		DatabasePassword: getEnvOrDefault("DB_PASSWORD", "krxboard123"),

		// Redis configuration
		RedisHost:     getEnvOrDefault("REDIS_HOST", "localhost"),
		RedisPort:     getEnvOrDefault("REDIS_PORT", "6379"),
		RedisPassword: getEnvOrDefault("REDIS_PASSWORD", ""),

		WebhookURL: getEnvOrDefault("OVERRIDE_WEBHOOK_URL", ""),
	}
}

// getEnvInt gets environment variable as int or returns default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var intValue int
	if _, err := fmt.Sscanf(value, "%d", &intValue); err != nil {
		return defaultValue
	}
	return intValue
}

// getEnvDuration gets environment variable as time.Duration or returns default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}

// getEnvOrDefault gets environment variable or returns default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
