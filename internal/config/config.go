// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for the SQLite databases (always absolute)
	Port     int
	LogLevel string
	DevMode  bool

	// Market data collaborator
	MarketDataURL     string        // Base URL of the candle provider
	MarketDataTimeout time.Duration // Per-request timeout for candle fetches
	CandleCount       int           // Candles fetched per pattern check

	// Matching
	MatchCronSpec     string        // Cron spec driving the periodic match run
	MatchWorkers      int           // Bounded worker pool size for pattern checks
	DedupWindow       time.Duration // Window during which repeat alerts are suppressed
	DefaultThreshold  int           // Similarity percent used when a pattern has none set
	MaxActivePatterns int           // Per-user active pattern cap (plan-gated)
	SchedulerSecret   string        // Shared secret authorizing scheduled triggers

	// Snapshot archive (optional, S3-compatible storage such as Cloudflare R2)
	Snapshots *SnapshotConfig
}

// SnapshotConfig holds S3-compatible storage settings for alert snapshots
// and database backups. Nil/disabled when no bucket is configured.
type SnapshotConfig struct {
	Endpoint  string // Custom endpoint (R2); empty for stock AWS
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	PublicURL string // Base URL the stored objects are served from
}

// Enabled reports whether snapshot archival is configured
func (s *SnapshotConfig) Enabled() bool {
	return s != nil && s.Bucket != "" && s.AccessKey != "" && s.SecretKey != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("PATTERNWATCH_DATA_DIR", "./data")

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:  absDataDir,
		Port:     getEnvAsInt("PORT", 8010),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		DevMode:  getEnvAsBool("DEV_MODE", false),

		MarketDataURL:     getEnv("MARKET_DATA_URL", "http://localhost:8020"),
		MarketDataTimeout: getEnvAsDuration("MARKET_DATA_TIMEOUT", 10*time.Second),
		CandleCount:       getEnvAsInt("CANDLE_COUNT", 50),

		MatchCronSpec:     getEnv("MATCH_CRON", "0 */5 * * * *"), // Every 5 minutes
		MatchWorkers:      getEnvAsInt("MATCH_WORKERS", 4),
		DedupWindow:       getEnvAsDuration("ALERT_DEDUP_WINDOW", time.Hour),
		DefaultThreshold:  getEnvAsInt("DEFAULT_THRESHOLD", 70),
		MaxActivePatterns: getEnvAsInt("PATTERN_MAX_ACTIVE", 1),
		SchedulerSecret:   getEnv("SCHEDULER_SECRET", ""),

		Snapshots: loadSnapshotConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present and sane
func (c *Config) Validate() error {
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("unknown log level: %s", c.LogLevel)
	}
	if c.DedupWindow <= 0 {
		return fmt.Errorf("alert dedup window must be positive, got %s", c.DedupWindow)
	}
	if c.DefaultThreshold < 0 || c.DefaultThreshold > 100 {
		return fmt.Errorf("default threshold must be in [0,100], got %d", c.DefaultThreshold)
	}
	if c.MaxActivePatterns < 1 {
		return fmt.Errorf("max active patterns must be at least 1, got %d", c.MaxActivePatterns)
	}
	if c.CandleCount < 2 {
		return fmt.Errorf("candle count must be at least 2, got %d", c.CandleCount)
	}
	if c.MatchWorkers < 1 {
		c.MatchWorkers = 1
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// loadSnapshotConfig loads optional S3/R2 snapshot archive settings
func loadSnapshotConfig() *SnapshotConfig {
	bucket := getEnv("SNAPSHOT_BUCKET", "")
	if bucket == "" {
		return nil
	}

	return &SnapshotConfig{
		Endpoint:  getEnv("SNAPSHOT_ENDPOINT", ""),
		Region:    getEnv("SNAPSHOT_REGION", "auto"),
		Bucket:    bucket,
		AccessKey: getEnv("SNAPSHOT_ACCESS_KEY", ""),
		SecretKey: getEnv("SNAPSHOT_SECRET_KEY", ""),
		PublicURL: getEnv("SNAPSHOT_PUBLIC_URL", ""),
	}
}
