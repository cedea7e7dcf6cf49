package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/forgo/courtside/api/internal/matching"
)

// Config holds all application configuration
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Matching    MatchingConfig
	RateLimit   RateLimitConfig
	Idempotency IdempotencyConfig
	Log         LogConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string
	Env             string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// DatabaseConfig holds SurrealDB connection settings
type DatabaseConfig struct {
	Host      string
	Port      string
	Namespace string
	Database  string
	User      string
	Password  string
}

// MatchingConfig tunes proposal generation and promotion
type MatchingConfig struct {
	ScopeSize        int
	BalanceThreshold int
	MatchDuration    time.Duration
	// SkillPowers overrides the level→power table, e.g. "CASUAL=50,BEGINNER=60".
	// Empty keeps the built-in table.
	SkillPowers string
}

// RateLimitConfig holds per-client request limits
type RateLimitConfig struct {
	Enabled bool
	Rate    int
	Window  time.Duration
	Burst   int
}

// IdempotencyConfig holds Idempotency-Key replay settings
type IdempotencyConfig struct {
	TTL time.Duration
}

// LogConfig holds logging settings. File, when set, receives a rotated copy
// of the log stream.
type LogConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// Load reads configuration from environment variables with sensible
// defaults. A .env file in the working directory, if present, fills in
// variables that are not already set.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: read .env: %w", err)
	}

	return &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			Env:             getEnv("SERVER_ENV", "development"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 15*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			AllowedOrigins:  getSliceEnv("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
		Database: DatabaseConfig{
			Host:      getEnv("DB_HOST", "localhost"),
			Port:      getEnv("DB_PORT", "8000"),
			Namespace: getEnv("DB_NAMESPACE", "courtside"),
			Database:  getEnv("DB_DATABASE", "main"),
			User:      getEnv("DB_USER", "root"),
			Password:  getEnv("DB_PASSWORD", "root"),
		},
		Matching: MatchingConfig{
			ScopeSize:        getIntEnv("MATCH_SCOPE_SIZE", matching.DefaultConfig.ScopeSize),
			BalanceThreshold: getIntEnv("MATCH_BALANCE_THRESHOLD", matching.DefaultConfig.BalanceThreshold),
			MatchDuration:    getDurationEnv("MATCH_DURATION", time.Hour),
			SkillPowers:      getEnv("SKILL_POWERS", ""),
		},
		RateLimit: RateLimitConfig{
			Enabled: getBoolEnv("RATE_LIMIT_ENABLED", true),
			Rate:    getIntEnv("RATE_LIMIT_RATE", 120),
			Window:  getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),
			Burst:   getIntEnv("RATE_LIMIT_BURST", 20),
		},
		Idempotency: IdempotencyConfig{
			TTL: getDurationEnv("IDEMPOTENCY_TTL", 24*time.Hour),
		},
		Log: LogConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			File:       getEnv("LOG_FILE", ""),
			MaxSizeMB:  getIntEnv("LOG_MAX_SIZE_MB", 100),
			MaxBackups: getIntEnv("LOG_MAX_BACKUPS", 5),
		},
	}, nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Validate checks that all required configuration values are present and valid.
// It returns an error describing all validation failures, or nil if valid.
func (c *Config) Validate() error {
	var errs []error

	// Server validation
	if c.Server.Port == "" {
		errs = append(errs, errors.New("SERVER_PORT is required"))
	}
	if c.Server.Env != "development" && c.Server.Env != "production" && c.Server.Env != "test" {
		errs = append(errs, fmt.Errorf("SERVER_ENV must be 'development', 'production', or 'test', got '%s'", c.Server.Env))
	}
	if len(c.Server.AllowedOrigins) == 0 {
		errs = append(errs, errors.New("CORS_ALLOWED_ORIGINS must have at least one origin"))
	}
	if c.IsProduction() && c.Database.Password == "root" {
		errs = append(errs, errors.New("DB_PASSWORD must be changed from the default in production"))
	}

	// Database validation
	if c.Database.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.Database.Port == "" {
		errs = append(errs, errors.New("DB_PORT is required"))
	}
	if c.Database.Namespace == "" {
		errs = append(errs, errors.New("DB_NAMESPACE is required"))
	}
	if c.Database.Database == "" {
		errs = append(errs, errors.New("DB_DATABASE is required"))
	}

	// Matching validation
	if c.Matching.ScopeSize < 4 {
		errs = append(errs, fmt.Errorf("MATCH_SCOPE_SIZE must be at least 4, got %d", c.Matching.ScopeSize))
	}
	if c.Matching.BalanceThreshold < 0 {
		errs = append(errs, errors.New("MATCH_BALANCE_THRESHOLD must not be negative"))
	}
	if c.Matching.MatchDuration <= 0 {
		errs = append(errs, errors.New("MATCH_DURATION must be positive"))
	}
	if _, err := c.Matching.PowerTable(); err != nil {
		errs = append(errs, fmt.Errorf("SKILL_POWERS: %w", err))
	}

	// Rate limit validation
	if c.RateLimit.Enabled {
		if c.RateLimit.Rate <= 0 || c.RateLimit.Burst <= 0 || c.RateLimit.Window <= 0 {
			errs = append(errs, errors.New("RATE_LIMIT_RATE, RATE_LIMIT_BURST and RATE_LIMIT_WINDOW must be positive when rate limiting is enabled"))
		}
	}

	if c.Idempotency.TTL <= 0 {
		errs = append(errs, errors.New("IDEMPOTENCY_TTL must be positive"))
	}

	// Log validation
	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if c.Log.File != "" && c.Log.MaxSizeMB <= 0 {
		errs = append(errs, errors.New("LOG_MAX_SIZE_MB must be positive when LOG_FILE is set"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// PowerTable builds the skill power table, using the built-in table when
// SkillPowers is empty.
func (m MatchingConfig) PowerTable() (*matching.PowerTable, error) {
	if strings.TrimSpace(m.SkillPowers) == "" {
		return matching.DefaultPowerTable(), nil
	}
	powers, err := matching.ParsePowers(m.SkillPowers)
	if err != nil {
		return nil, err
	}
	return matching.NewPowerTable(powers)
}

// GeneratorConfig returns the generator settings
func (m MatchingConfig) GeneratorConfig() matching.Config {
	return matching.Config{
		ScopeSize:        m.ScopeSize,
		BalanceThreshold: m.BalanceThreshold,
	}
}

// SlogLevel parses Level
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL must be debug, info, warn or error, got '%s'", l.Level)
	}
	return level, nil
}

// Helper functions for reading environment variables

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
