// Package config loads application configuration from environment variables.
// All variables use the EXAM_ prefix.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Statistics source kinds accepted by EXAM_STATS_SOURCE.
const (
	StatsSourceNone     = "none"
	StatsSourceRedis    = "redis"
	StatsSourcePostgres = "postgres"
	StatsSourceSQLite   = "sqlite"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Data     DataConfig
	Stats    StatsConfig
	Analysis AnalysisConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int
	Host string
	// WSOrigins are host patterns of cross-origin dashboards allowed to
	// open the websocket. Same-origin requests are always accepted.
	WSOrigins []string
}

// DatabaseConfig holds PostgreSQL connection settings. An empty URL
// disables the database.
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

// CacheConfig holds Redis connection settings.
type CacheConfig struct {
	URL string
}

// DataConfig locates the input documents.
type DataConfig struct {
	CurriculumPath  string
	QuestionsPath   string
	RefreshInterval time.Duration // 0 disables periodic reload
}

// StatsConfig selects where precomputed statistics live.
type StatsConfig struct {
	Source     string
	SQLitePath string
	TTL        time.Duration
}

// AnalysisConfig tunes the aggregation engine.
type AnalysisConfig struct {
	SkipEmptyLabels bool
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables with EXAM_ prefix.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("EXAM_SERVER_PORT", 8080),
			Host: envStr("EXAM_SERVER_HOST", "0.0.0.0"),

			WSOrigins: envList("EXAM_WS_ORIGINS"),
		},
		Database: DatabaseConfig{
			URL:      envStr("EXAM_DATABASE_URL", ""),
			MaxConns: envInt("EXAM_DATABASE_MAX_CONNS", 10),
			MinConns: envInt("EXAM_DATABASE_MIN_CONNS", 2),
		},
		Cache: CacheConfig{
			URL: envStr("EXAM_CACHE_URL", "redis://localhost:6379"),
		},
		Data: DataConfig{
			CurriculumPath:  envStr("EXAM_CURRICULUM_PATH", "./data/curriculum.json"),
			QuestionsPath:   envStr("EXAM_QUESTIONS_PATH", "./output/extended_questions.json"),
			RefreshInterval: envDuration("EXAM_REFRESH_INTERVAL", 0),
		},
		Stats: StatsConfig{
			Source:     strings.ToLower(envStr("EXAM_STATS_SOURCE", StatsSourceNone)),
			SQLitePath: envStr("EXAM_STATS_SQLITE_PATH", "./output/stats.db"),
			TTL:        envDuration("EXAM_STATS_TTL", 24*time.Hour),
		},
		Analysis: AnalysisConfig{
			SkipEmptyLabels: envBool("EXAM_SKIP_EMPTY_LABELS", false),
		},
		Log: LogConfig{
			Level:  envStr("EXAM_LOG_LEVEL", "info"),
			Format: envStr("EXAM_LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

// Validate checks cross-field rules.
func (c *Config) Validate() error {
	switch c.Stats.Source {
	case StatsSourceNone, StatsSourceRedis, StatsSourceSQLite:
	case StatsSourcePostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("EXAM_DATABASE_URL is required when EXAM_STATS_SOURCE is postgres")
		}
	default:
		return fmt.Errorf("EXAM_STATS_SOURCE must be one of none, redis, postgres, sqlite, got %q", c.Stats.Source)
	}

	if c.Stats.Source == StatsSourceSQLite && c.Stats.SQLitePath == "" {
		return fmt.Errorf("EXAM_STATS_SQLITE_PATH is required when EXAM_STATS_SOURCE is sqlite")
	}

	if c.Data.RefreshInterval < 0 {
		return fmt.Errorf("EXAM_REFRESH_INTERVAL must not be negative, got %s", c.Data.RefreshInterval)
	}
	if c.Stats.TTL < 0 {
		return fmt.Errorf("EXAM_STATS_TTL must not be negative, got %s", c.Stats.TTL)
	}

	if c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("EXAM_DATABASE_MIN_CONNS (%d) exceeds EXAM_DATABASE_MAX_CONNS (%d)", c.Database.MinConns, c.Database.MaxConns)
	}

	return nil
}

// HasDatabase returns true if a PostgreSQL URL is configured.
func (c *Config) HasDatabase() bool {
	return c.Database.URL != ""
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.EqualFold(v, "true") || v == "1"
	}
	return fallback
}

// envList splits a comma-separated variable, dropping blank entries.
func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
