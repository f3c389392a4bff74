package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"kontor/internal/log"
)

type Config struct {
	// Database
	SQLiteDBPath string

	// AMQP (empty URL disables messaging)
	AMQPURL         string
	AMQPExchange    string
	AMQPQueue       string
	AMQPResultQueue string

	// Worker
	RecalcSchedule string
	CalcWorkers    int

	// Report cache
	ReportCacheSize      int
	ReportCacheTTL       time.Duration
	CacheCleanupInterval time.Duration

	LogLevel string
}

func Load() *Config {
	return &Config{
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/kontor.db"),

		AMQPURL:         getEnv("AMQP_URL", ""),
		AMQPExchange:    getEnv("AMQP_EXCHANGE", "kontor"),
		AMQPQueue:       getEnv("AMQP_QUEUE", "recalculate"),
		AMQPResultQueue: getEnv("AMQP_RESULT_QUEUE", "reports"),

		RecalcSchedule: getEnv("RECALC_SCHEDULE", "0 2 * * *"),
		CalcWorkers:    getEnvInt("CALC_WORKERS", 8),

		ReportCacheSize:      getEnvInt("REPORT_CACHE_SIZE", 16),
		ReportCacheTTL:       getEnvDuration("REPORT_CACHE_TTL", 10*time.Minute),
		CacheCleanupInterval: getEnvDuration("CACHE_CLEANUP_INTERVAL", time.Minute),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// MessagingEnabled reports whether an AMQP broker is configured.
func (c *Config) MessagingEnabled() bool {
	return c.AMQPURL != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else {
		// Check if directory exists or can be created
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}

		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPResultQueue == "" {
			errors = append(errors, "AMQP result queue name cannot be empty when AMQP URL is provided")
		} else if c.AMQPResultQueue == c.AMQPQueue {
			errors = append(errors, fmt.Sprintf("AMQP result queue '%s' must differ from the request queue", c.AMQPResultQueue))
		}
	}

	if _, err := cron.ParseStandard(c.RecalcSchedule); err != nil {
		errors = append(errors, fmt.Sprintf("invalid recalculation schedule '%s': %v", c.RecalcSchedule, err))
	}

	if c.CalcWorkers < 1 {
		errors = append(errors, fmt.Sprintf("invalid calc workers %d: must be at least 1", c.CalcWorkers))
	} else if c.CalcWorkers > 256 {
		errors = append(errors, fmt.Sprintf("invalid calc workers %d: must be at most 256", c.CalcWorkers))
	}

	if c.ReportCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid report cache size %d: must be at least 1", c.ReportCacheSize))
	}
	if c.ReportCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid report cache TTL %v: must be at least 1 second", c.ReportCacheTTL))
	} else if c.ReportCacheTTL > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid report cache TTL %v: must be at most 24 hours", c.ReportCacheTTL))
	}
	if c.CacheCleanupInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid cache cleanup interval %v: must be at least 1 second", c.CacheCleanupInterval))
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
