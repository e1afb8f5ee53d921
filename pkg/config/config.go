package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
// All environment variables are read here and nowhere else.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Market data vendors
	Flow    FlowVendorConfig
	Quote   QuoteVendorConfig
	Delayed DelayedVendorConfig

	// Strategy
	StrategyPath string

	// PortfolioPath is where the execution layer drops its portfolio
	// snapshot for the allocator to read.
	PortfolioPath string

	// UniversePath is the watchlist file: one symbol per line.
	UniversePath string

	// OutcomesPath is where the execution layer drops realized hit and
	// false-positive rates for the nightly recalibration.
	OutcomesPath string

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	URL string

	// Connection pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// FlowVendorConfig holds credentials for the premium capital-flow feed
// (the REALTIME_DETAILED tier).
type FlowVendorConfig struct {
	BaseURL   string
	StreamURL string
	AppKey    string
	AppSecret string
}

// QuoteVendorConfig holds the level-1 quote feed configuration
// (source data for the inferred tiers).
type QuoteVendorConfig struct {
	StreamURL string
	RESTURL   string
	Token     string
}

// DelayedVendorConfig holds the delayed aggregate-flow vendor configuration
// (the DELAYED_AGGREGATE tier, scraped).
type DelayedVendorConfig struct {
	BaseURL string
}

// Load reads configuration from environment variables.
// Only this function calls os.Getenv().
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8090"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
		},

		Flow: FlowVendorConfig{
			BaseURL:   getEnv("FLOW_BASE_URL", ""),
			StreamURL: getEnv("FLOW_STREAM_URL", ""),
			AppKey:    getEnv("FLOW_APP_KEY", ""),
			AppSecret: getEnv("FLOW_APP_SECRET", ""),
		},

		Quote: QuoteVendorConfig{
			StreamURL: getEnv("QUOTE_STREAM_URL", ""),
			RESTURL:   getEnv("QUOTE_REST_URL", ""),
			Token:     getEnv("QUOTE_TOKEN", ""),
		},

		Delayed: DelayedVendorConfig{
			BaseURL: getEnv("DELAYED_BASE_URL", ""),
		},

		StrategyPath:  getEnv("STRATEGY_PATH", "config/strategy/ashare_riptide_v1.yaml"),
		PortfolioPath: getEnv("PORTFOLIO_PATH", "data/portfolio.json"),
		UniversePath:  getEnv("UNIVERSE_PATH", "config/universe.txt"),
		OutcomesPath:  getEnv("OUTCOMES_PATH", "data/outcomes.json"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set.
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	return nil
}

// loadEnvFile tries to load .env from multiple locations.
func loadEnvFile() {
	paths := []string{
		".env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
