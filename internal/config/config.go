package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"carpool/internal/core"
)

// Backend names.
const (
	LocalSQLite  = "sqlite"
	LocalMemory  = "memory"
	RemoteNone   = "none"
	RemoteMemory = "memory"
	RemoteSheets = "sheets"
	RemoteRedis  = "redis"
)

type Config struct {
	// HTTP Server
	Port           string
	RateLimitRPS   float64
	RateLimitBurst int

	// Local durable store
	LocalBackend string
	SQLiteDBPath string

	// Remote endpoint
	RemoteBackend string
	LedgerOwner   string

	// Sync worker
	SyncPollInterval time.Duration
	SyncDebounce     time.Duration

	// Auto toll
	AutoTollEnabled bool
	AutoTollAmount  string

	// AMQP (optional)
	AMQPURL      string
	AMQPExchange string
	// AMQPQueue is the routing key events are published and bound under.
	// Each consumer declares its own server-named queue.
	AMQPQueue string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	GoogleReadCacheTTL       time.Duration

	// Redis
	RedisURL       string
	RedisKeyPrefix string

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8081"),
		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 40),

		LocalBackend: getEnv("LOCAL_BACKEND", LocalSQLite),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/carpool.db"),

		RemoteBackend: getEnv("REMOTE_BACKEND", RemoteNone),
		LedgerOwner:   getEnv("LEDGER_OWNER", ""),

		SyncPollInterval: getEnvDuration("SYNC_POLL_INTERVAL", 5*time.Second),
		SyncDebounce:     getEnvDuration("SYNC_DEBOUNCE", 1500*time.Millisecond),

		AutoTollEnabled: getEnvBool("AUTO_TOLL_ENABLED", false),
		AutoTollAmount:  getEnv("AUTO_TOLL_AMOUNT", "0"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "carpool"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_saved"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Ledgers"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleReadCacheTTL:       getEnvDuration("GOOGLE_READ_CACHE_TTL", 2*time.Second),

		RedisURL:       getEnv("REDIS_URL", ""),
		RedisKeyPrefix: getEnv("REDIS_KEY_PREFIX", "carpool:ledger:"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// AutoToll returns the configured auto-toll setting. Validate reports a bad amount.
func (c *Config) AutoToll() core.AutoToll {
	amount, err := core.ParseMoney(c.AutoTollAmount)
	if err != nil {
		amount = core.Zero
	}
	return core.AutoToll{Enabled: c.AutoTollEnabled, Amount: amount}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitRPS <= 0 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %v: must be positive", c.RateLimitRPS))
	}
	if c.RateLimitBurst < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit burst %d: must be at least 1", c.RateLimitBurst))
	}

	localBackends := []string{LocalSQLite, LocalMemory}
	if !slices.Contains(localBackends, c.LocalBackend) {
		errors = append(errors, fmt.Sprintf("invalid local backend '%s': must be one of %v", c.LocalBackend, localBackends))
	}

	if c.LocalBackend == LocalSQLite {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	remoteBackends := []string{RemoteNone, RemoteMemory, RemoteSheets, RemoteRedis}
	if !slices.Contains(remoteBackends, c.RemoteBackend) {
		errors = append(errors, fmt.Sprintf("invalid remote backend '%s': must be one of %v", c.RemoteBackend, remoteBackends))
	}
	if c.RemoteBackend != RemoteNone && strings.TrimSpace(c.LedgerOwner) == "" {
		errors = append(errors, "LEDGER_OWNER is required when a remote backend is configured")
	}

	switch c.RemoteBackend {
	case RemoteSheets:
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" && os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS must be provided for sheets backend")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
		if c.GoogleReadCacheTTL < 0 || c.GoogleReadCacheTTL >= c.SyncPollInterval {
			errors = append(errors, fmt.Sprintf("invalid Google read cache TTL %v: must be below the sync poll interval", c.GoogleReadCacheTTL))
		}
	case RemoteRedis:
		if c.RedisURL == "" {
			errors = append(errors, "REDIS_URL is required when using redis backend")
		} else if u, err := url.Parse(c.RedisURL); err != nil || (u.Scheme != "redis" && u.Scheme != "rediss") {
			errors = append(errors, fmt.Sprintf("invalid Redis URL '%s': scheme must be 'redis' or 'rediss'", c.RedisURL))
		}
	}

	if c.SyncPollInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync poll interval %v: must be at least 1 second", c.SyncPollInterval))
	} else if c.SyncPollInterval > time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync poll interval %v: must be at most 1 hour", c.SyncPollInterval))
	}
	if c.SyncDebounce <= 0 || c.SyncDebounce > time.Minute {
		errors = append(errors, fmt.Sprintf("invalid sync debounce %v: must be positive and at most 1 minute", c.SyncDebounce))
	} else if c.SyncDebounce >= c.SyncPollInterval {
		errors = append(errors, fmt.Sprintf("invalid sync debounce %v: must be below the sync poll interval %v", c.SyncDebounce, c.SyncPollInterval))
	}

	if amount, err := core.ParseMoney(c.AutoTollAmount); err != nil {
		errors = append(errors, fmt.Sprintf("invalid auto toll amount '%s'", c.AutoTollAmount))
	} else if c.AutoTollEnabled && !amount.IsPositive() {
		errors = append(errors, "auto toll amount must be positive when auto toll is enabled")
	}

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
	}

	if !slices.Contains([]string{"text", "json"}, strings.ToLower(c.LogFormat)) {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

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

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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
