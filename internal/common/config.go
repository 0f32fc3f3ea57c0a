// Package common provides shared utilities for macrocal
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for macrocal
type Config struct {
	Environment string          `toml:"environment"`
	Server      ServerConfig    `toml:"server"`
	Database    DatabaseConfig  `toml:"database"`
	Redis       RedisConfig     `toml:"redis"`
	Cache       CacheConfig     `toml:"cache"`
	Clients     ClientsConfig   `toml:"clients"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
	Logging     LoggingConfig   `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port" validate:"gt=0,lte=65535"`
}

// DatabaseConfig holds Postgres connection configuration
type DatabaseConfig struct {
	Host     string `toml:"host" validate:"required"`
	Port     int    `toml:"port" validate:"gt=0,lte=65535"`
	User     string `toml:"user" validate:"required"`
	Password string `toml:"password"`
	Name     string `toml:"name" validate:"required"`
	SSLMode  string `toml:"ssl_mode" validate:"oneof=disable require verify-ca verify-full"`
}

// DSN returns the lib/pq connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// RedisConfig holds the optional Redis-backed provider response cache.
// When disabled, clients fall back to an in-memory cache.
type RedisConfig struct {
	Enabled  bool   `toml:"enabled"`
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// CacheConfig holds durable cache policy
type CacheConfig struct {
	TTL           string `toml:"ttl"`            // refresh interval, default "6h"
	MaxErrorCount int    `toml:"max_error_count" validate:"gte=1"`
	RetentionDays int    `toml:"retention_days" validate:"gte=1"`
	ReadOnly      bool   `toml:"read_only"` // disable all cache-table writes
}

// GetTTL parses and returns the cache TTL duration
func (c *CacheConfig) GetTTL() time.Duration {
	d, err := time.ParseDuration(c.TTL)
	if err != nil {
		return FreshnessEconomicEvents
	}
	return d
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	EODHD            ClientConfig `toml:"eodhd"`
	Finnhub          ClientConfig `toml:"finnhub"`
	FRED             ClientConfig `toml:"fred"`
	TradingEconomics ClientConfig `toml:"tradingeconomics"`
}

// ClientConfig holds one provider's API configuration
type ClientConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *ClientConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// SchedulerConfig holds background refresh configuration
type SchedulerConfig struct {
	RefreshSchedule string   `toml:"refresh_schedule"` // cron spec, default "@every 6h"
	CleanupSchedule string   `toml:"cleanup_schedule"` // cron spec, default "@every 24h"
	Countries       []string `toml:"countries"`        // refresh targets
	WindowDays      int      `toml:"window_days"`      // days ahead per refresh window
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `toml:"level" validate:"oneof=debug info warn error"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			User:    "macrocal",
			Name:    "macrocal",
			SSLMode: "disable",
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Cache: CacheConfig{
			TTL:           "6h",
			MaxErrorCount: MaxErrorCount,
			RetentionDays: 180,
		},
		Clients: ClientsConfig{
			EODHD: ClientConfig{
				BaseURL:   "https://eodhd.com/api",
				RateLimit: 10,
				Timeout:   "30s",
			},
			Finnhub: ClientConfig{
				BaseURL:   "https://finnhub.io/api/v1",
				RateLimit: 10,
				Timeout:   "30s",
			},
			FRED: ClientConfig{
				BaseURL:   "https://api.stlouisfed.org/fred",
				RateLimit: 5,
				Timeout:   "30s",
			},
			TradingEconomics: ClientConfig{
				BaseURL:   "https://api.tradingeconomics.com",
				RateLimit: 1,
				Timeout:   "30s",
			},
		},
		Scheduler: SchedulerConfig{
			RefreshSchedule: "@every 6h",
			CleanupSchedule: "@every 24h",
			Countries:       []string{"US"},
			WindowDays:      30,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("MACROCAL_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("MACROCAL_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("MACROCAL_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("MACROCAL_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if host := os.Getenv("MACROCAL_DB_HOST"); host != "" {
		config.Database.Host = host
	}
	if port := os.Getenv("MACROCAL_DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Database.Port = p
		}
	}
	if user := os.Getenv("MACROCAL_DB_USER"); user != "" {
		config.Database.User = user
	}
	if pw := os.Getenv("MACROCAL_DB_PASSWORD"); pw != "" {
		config.Database.Password = pw
	}
	if name := os.Getenv("MACROCAL_DB_NAME"); name != "" {
		config.Database.Name = name
	}

	if v := os.Getenv("MACROCAL_REDIS_ADDR"); v != "" {
		config.Redis.Addr = v
		config.Redis.Enabled = true
	}

	// Read-only mode: reads keep working against a store with restrictive
	// write policies while all cache-table writes are skipped.
	if v := os.Getenv("MACROCAL_CACHE_READ_ONLY"); v != "" {
		if ro, err := strconv.ParseBool(v); err == nil {
			config.Cache.ReadOnly = ro
		}
	}
}

// ResolveAPIKey resolves a provider API key from environment or config fallback
func ResolveAPIKey(name string, fallback string) string {
	keyToEnvMapping := map[string][]string{
		"eodhd":            {"EODHD_API_KEY", "MACROCAL_EODHD_API_KEY"},
		"finnhub":          {"FINNHUB_API_KEY", "MACROCAL_FINNHUB_API_KEY"},
		"fred":             {"FRED_API_KEY", "MACROCAL_FRED_API_KEY"},
		"tradingeconomics": {"TRADING_ECONOMICS_API_KEY", "MACROCAL_TRADING_ECONOMICS_API_KEY"},
	}

	if envVarNames, ok := keyToEnvMapping[name]; ok {
		for _, envVarName := range envVarNames {
			if envValue := os.Getenv(envVarName); envValue != "" {
				return envValue
			}
		}
	}

	return fallback
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
