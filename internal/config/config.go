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

	"github.com/BurntSushi/toml"

	"finanzas/internal/core"
	"finanzas/internal/engine"
)

type Config struct {
	// HTTP Server
	Port string

	// Backend selection
	DataBackend string
	// Database
	SQLiteDBPath string
	// Seed directory for the memory backend
	DataDir string

	// AMQP, empty URL disables publishing
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Registry cache, empty URL keeps it in process
	RedisURL string
	CacheTTL time.Duration

	// Reviews
	ReviewTTL      time.Duration
	Thresholds     engine.Thresholds
	ThresholdsFile string

	// Logging
	LogLevel  string
	LogFormat string

	// Google Sheets ledger mirror
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	GoogleOAuthClientJSON    string
	GoogleOAuthClientFile    string
	GoogleOAuthTokenJSON     string
	GoogleOAuthTokenFile     string
	OAuthRedirectPort        string

	// Worker
	SyncInterval  time.Duration
	ReconcileDays int

	problems []string
}

// thresholdsFile is the on-disk shape of THRESHOLDS_FILE.
type thresholdsFile struct {
	Thresholds struct {
		LowBalance    string `toml:"low_balance"`
		ModerateFloor string `toml:"moderate_floor"`
		HealthyFloor  string `toml:"healthy_floor"`
	} `toml:"thresholds"`
}

// Load reads the configuration from the environment. Thresholds come from
// the defaults, then THRESHOLDS_FILE, then the individual variables.
// Malformed values are reported by Validate.
func Load() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "8081"),

		DataBackend:  getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/finanzas.db"),
		DataDir:      getEnv("DATA_DIR", "./data"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "finanzas"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_mirror"),

		RedisURL: getEnv("REDIS_URL", ""),
		CacheTTL: getEnvDuration("CACHE_TTL", 10*time.Minute),

		ReviewTTL:      getEnvDuration("REVIEW_TTL", 15*time.Minute),
		Thresholds:     engine.DefaultThresholds(),
		ThresholdsFile: getEnv("THRESHOLDS_FILE", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Movimientos"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", getEnv("GOOGLE_APPLICATION_CREDENTIALS", "")),
		GoogleOAuthClientJSON:    getEnv("GOOGLE_OAUTH_CLIENT_JSON", ""),
		GoogleOAuthClientFile:    getEnv("GOOGLE_OAUTH_CLIENT_FILE", ""),
		GoogleOAuthTokenJSON:     getEnv("GOOGLE_OAUTH_TOKEN_JSON", ""),
		GoogleOAuthTokenFile:     getEnv("GOOGLE_OAUTH_TOKEN_FILE", ""),
		OAuthRedirectPort:        getEnv("OAUTH_REDIRECT_PORT", "8085"),

		SyncInterval:  getEnvDuration("SYNC_INTERVAL", 5*time.Minute),
		ReconcileDays: getEnvInt("RECONCILE_DAYS", 7),
	}

	if cfg.ThresholdsFile != "" {
		if err := cfg.loadThresholdsFile(cfg.ThresholdsFile); err != nil {
			cfg.problems = append(cfg.problems, err.Error())
		}
	}
	cfg.Thresholds.LowBalance = cfg.getEnvMoney("LOW_BALANCE_THRESHOLD", cfg.Thresholds.LowBalance)
	cfg.Thresholds.ModerateFloor = cfg.getEnvMoney("MODERATE_FLOOR", cfg.Thresholds.ModerateFloor)
	cfg.Thresholds.HealthyFloor = cfg.getEnvMoney("HEALTHY_FLOOR", cfg.Thresholds.HealthyFloor)

	return cfg
}

func (c *Config) loadThresholdsFile(path string) error {
	var f thresholdsFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return fmt.Errorf("cannot read thresholds file '%s': %w", path, err)
	}
	fields := []struct {
		name  string
		value string
		dst   *core.Money
	}{
		{"low_balance", f.Thresholds.LowBalance, &c.Thresholds.LowBalance},
		{"moderate_floor", f.Thresholds.ModerateFloor, &c.Thresholds.ModerateFloor},
		{"healthy_floor", f.Thresholds.HealthyFloor, &c.Thresholds.HealthyFloor},
	}
	for _, fld := range fields {
		if fld.value == "" {
			continue
		}
		m, err := core.ParseMoney(fld.value)
		if err != nil {
			return fmt.Errorf("invalid %s '%s' in thresholds file: must be a non-negative amount", fld.name, fld.value)
		}
		*fld.dst = m
	}
	return nil
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	errors := append([]string(nil), c.problems...)

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate data backend
	validBackends := []string{"memory", "sqlite"}
	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
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

	if c.RedisURL != "" {
		if parsedURL, err := url.Parse(c.RedisURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid Redis URL '%s': %v", c.RedisURL, err))
		} else if parsedURL.Scheme != "redis" && parsedURL.Scheme != "rediss" {
			errors = append(errors, fmt.Sprintf("invalid Redis URL scheme '%s': must be 'redis' or 'rediss'", parsedURL.Scheme))
		}
	}
	if c.CacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be at least 1 second", c.CacheTTL))
	}

	if c.ReviewTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid review TTL %v: must be at least 1 minute", c.ReviewTTL))
	}
	if err := c.Thresholds.Validate(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid thresholds: %v", err))
	}

	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	// Mirror credentials are only checked once a spreadsheet is configured
	if c.GoogleSpreadsheetID != "" {
		hasServiceAccount := c.GoogleServiceAccountJSON != "" || c.GoogleServiceAccountFile != ""
		hasClient := c.GoogleOAuthClientJSON != "" || c.GoogleOAuthClientFile != ""
		hasToken := c.GoogleOAuthTokenJSON != "" || c.GoogleOAuthTokenFile != ""
		if !hasServiceAccount && !(hasClient && hasToken) {
			errors = append(errors, "Google Sheets mirror needs a service account or both an OAuth client and token")
		}
		for _, f := range []string{c.GoogleServiceAccountFile, c.GoogleOAuthClientFile, c.GoogleOAuthTokenFile} {
			if f == "" {
				continue
			}
			if _, err := os.Stat(f); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google credentials file does not exist: %s", f))
			}
		}
	}

	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}
	if c.ReconcileDays < 1 {
		errors = append(errors, fmt.Sprintf("invalid reconcile window %d: must be at least 1 day", c.ReconcileDays))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// MirrorEnabled reports whether a spreadsheet is configured.
func (c *Config) MirrorEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

func (c *Config) getEnvMoney(key string, defaultValue core.Money) core.Money {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	m, err := core.ParseMoney(value)
	if err != nil {
		c.problems = append(c.problems, fmt.Sprintf("invalid %s '%s': must be a non-negative amount", key, value))
		return defaultValue
	}
	return m
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
