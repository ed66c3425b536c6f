// Package config
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	BackendFirecrawl = "firecrawl"
	BackendDirect    = "direct"
)

type Config struct {
	Backend              string
	FirecrawlAPIKey      string
	FirecrawlAPIURL      string
	MaxWorkers           int
	MaxArticlesPerSource int
	FetchTimeout         time.Duration
	ContentLimit         int
	SourcesFile          string
	// Logging
	LogFile  string
	LogLevel string
	// Optional outputs; empty disables them.
	MetricsAddr        string
	DatabaseURL        string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	RedisReportKey     string
	RedisReportHistory int64
	ServerAddr         string
}

func Load() (Config, error) {
	cfg := Config{}
	var missingVars []string

	cfg.Backend = strings.ToLower(getEnv("RETRIEVAL_BACKEND", BackendFirecrawl))
	cfg.FirecrawlAPIKey = getEnv("FIRECRAWL_API_KEY", "")
	cfg.FirecrawlAPIURL = strings.TrimRight(getEnv("FIRECRAWL_API_URL", "https://api.firecrawl.dev"), "/")

	switch cfg.Backend {
	case BackendFirecrawl:
		if cfg.FirecrawlAPIKey == "" {
			missingVars = append(missingVars, "FIRECRAWL_API_KEY")
		}
	case BackendDirect:
	default:
		return cfg, fmt.Errorf("unknown RETRIEVAL_BACKEND %q (want %s or %s)", cfg.Backend, BackendFirecrawl, BackendDirect)
	}
	if len(missingVars) > 0 {
		return cfg, fmt.Errorf("missing required environment variables: %s", strings.Join(missingVars, ", "))
	}

	cfg.MaxWorkers = getInt("MAX_WORKERS", 10)
	cfg.MaxArticlesPerSource = getInt("MAX_ARTICLES_PER_SOURCE", 5)
	cfg.ContentLimit = getInt("CONTENT_LIMIT", 50000)
	cfg.FetchTimeout = getDuration("FETCH_TIMEOUT", 60*time.Second)
	cfg.SourcesFile = getEnv("SOURCES_FILE", "")

	cfg.LogFile = getEnv("LOG_FILE", "")
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")

	cfg.MetricsAddr = getEnv("METRICS_ADDR", "")
	cfg.DatabaseURL = getEnv("DATABASE_URL", "")
	cfg.RedisAddr = getEnv("REDIS_ADDR", "")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.RedisDB = getInt("REDIS_DB", 0)
	cfg.RedisReportKey = getEnv("REDIS_REPORT_KEY", "pulse:reports")
	cfg.RedisReportHistory = int64(getInt("REDIS_REPORT_HISTORY", 20))
	cfg.ServerAddr = getEnv("SERVER_ADDR", ":8080")

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("Invalid integer in environment, using default", "key", key, "value", raw, "error", err)
		return defaultVal
	}
	return v
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultVal
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		slog.Warn("Invalid duration in environment, using default", "key", key, "value", raw, "error", err)
		return defaultVal
	}
	return v
}
