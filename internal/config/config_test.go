package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/forgo/courtside/api/internal/model"
)

func TestConfig_Validate_ValidConfig(t *testing.T) {
	cfg := validBaseConfig()

	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got error: %v", err)
	}
}

func TestConfig_Validate_InvalidServerEnv(t *testing.T) {
	cfg := validBaseConfig()
	cfg.Server.Env = "invalid"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid SERVER_ENV")
	}
	if !strings.Contains(err.Error(), "SERVER_ENV") {
		t.Errorf("expected error to mention SERVER_ENV, got: %v", err)
	}
}

func TestConfig_Validate_ProductionRejectsDefaultPassword(t *testing.T) {
	cfg := validBaseConfig()
	cfg.Server.Env = "production"

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "DB_PASSWORD") {
		t.Errorf("expected DB_PASSWORD error, got: %v", err)
	}

	cfg.Database.Password = "s3cret"
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid production config, got: %v", err)
	}
}

func TestConfig_Validate_Matching(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"scope below one group", func(c *Config) { c.Matching.ScopeSize = 3 }, "MATCH_SCOPE_SIZE"},
		{"negative threshold", func(c *Config) { c.Matching.BalanceThreshold = -1 }, "MATCH_BALANCE_THRESHOLD"},
		{"zero duration", func(c *Config) { c.Matching.MatchDuration = 0 }, "MATCH_DURATION"},
		{"malformed powers", func(c *Config) { c.Matching.SkillPowers = "CASUAL" }, "SKILL_POWERS"},
		{"powers without fallback", func(c *Config) { c.Matching.SkillPowers = "ADVANCED=90" }, "SKILL_POWERS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validBaseConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected error mentioning %s", tt.field)
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("expected error to mention %s, got: %v", tt.field, err)
			}
		})
	}
}

func TestConfig_Validate_RateLimitOnlyWhenEnabled(t *testing.T) {
	cfg := validBaseConfig()
	cfg.RateLimit = RateLimitConfig{Enabled: false}
	if err := cfg.Validate(); err != nil {
		t.Errorf("disabled rate limit should not be validated, got: %v", err)
	}

	cfg.RateLimit.Enabled = true
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "RATE_LIMIT_RATE") {
		t.Errorf("expected rate limit error, got: %v", err)
	}
}

func TestConfig_Validate_LogFileNeedsSize(t *testing.T) {
	cfg := validBaseConfig()
	cfg.Log.File = "/var/log/courtside/api.log"
	cfg.Log.MaxSizeMB = 0

	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "LOG_MAX_SIZE_MB") {
		t.Errorf("expected LOG_MAX_SIZE_MB error, got: %v", err)
	}
}

func TestConfig_Validate_MultipleErrors(t *testing.T) {
	cfg := &Config{
		Server:   ServerConfig{Env: "invalid"},
		Matching: MatchingConfig{ScopeSize: 4, MatchDuration: time.Hour},
		Log:      LogConfig{Level: "loud"},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected multiple validation errors")
	}

	errStr := err.Error()
	for _, field := range []string{"SERVER_PORT", "SERVER_ENV", "CORS_ALLOWED_ORIGINS", "DB_HOST", "IDEMPOTENCY_TTL", "LOG_LEVEL"} {
		if !strings.Contains(errStr, field) {
			t.Errorf("expected error to mention %s, got: %v", field, err)
		}
	}
}

func TestMatchingConfig_PowerTable(t *testing.T) {
	def, err := MatchingConfig{}.PowerTable()
	if err != nil {
		t.Fatalf("default table: %v", err)
	}
	if def.Power(model.SkillAdvanced) <= def.Power(model.SkillCasual) {
		t.Error("default table should rank ADVANCED above CASUAL")
	}

	custom, err := MatchingConfig{SkillPowers: "casual=10, advanced=40"}.PowerTable()
	if err != nil {
		t.Fatalf("custom table: %v", err)
	}
	if custom.Power(model.SkillAdvanced) != 40 {
		t.Errorf("expected ADVANCED=40, got %d", custom.Power(model.SkillAdvanced))
	}
	// unknown levels fall back to CASUAL
	if custom.Power(model.SkillBeginner) != 10 {
		t.Errorf("expected BEGINNER to fall back to 10, got %d", custom.Power(model.SkillBeginner))
	}
}

func TestLogConfig_SlogLevel(t *testing.T) {
	level, err := LogConfig{Level: "warn"}.SlogLevel()
	if err != nil || level != slog.LevelWarn {
		t.Errorf("expected warn, got %v (%v)", level, err)
	}
	if _, err := (LogConfig{Level: "verbose"}).SlogLevel(); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestLoad_ReadsEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("MATCH_SCOPE_SIZE", "12")
	t.Setenv("MATCH_DURATION", "45m")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("RATE_LIMIT_ENABLED", "false")
	t.Setenv("MATCH_BALANCE_THRESHOLD", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Matching.ScopeSize != 12 || cfg.Matching.MatchDuration != 45*time.Minute {
		t.Errorf("unexpected matching config %+v", cfg.Matching)
	}
	if cfg.Matching.BalanceThreshold != 3 {
		t.Errorf("unparseable threshold should keep the default, got %d", cfg.Matching.BalanceThreshold)
	}
	if len(cfg.Server.AllowedOrigins) != 2 || cfg.Server.AllowedOrigins[1] != "https://b.example.com" {
		t.Errorf("expected trimmed origins, got %q", cfg.Server.AllowedOrigins)
	}
	if cfg.RateLimit.Enabled {
		t.Error("expected rate limiting disabled")
	}
}

func TestConfig_IsDevelopment(t *testing.T) {
	cfg := &Config{Server: ServerConfig{Env: "development"}}
	if !cfg.IsDevelopment() {
		t.Error("expected IsDevelopment() to return true")
	}

	cfg.Server.Env = "production"
	if cfg.IsDevelopment() {
		t.Error("expected IsDevelopment() to return false in production")
	}
	if !cfg.IsProduction() {
		t.Error("expected IsProduction() to return true")
	}
}

// validBaseConfig returns a minimal valid configuration for testing
func validBaseConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "8080",
			Env:            "development",
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   15 * time.Second,
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Database: DatabaseConfig{
			Host:      "localhost",
			Port:      "8000",
			Namespace: "courtside",
			Database:  "main",
			User:      "root",
			Password:  "root",
		},
		Matching: MatchingConfig{
			ScopeSize:        8,
			BalanceThreshold: 3,
			MatchDuration:    time.Hour,
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			Rate:    120,
			Window:  time.Minute,
			Burst:   20,
		},
		Idempotency: IdempotencyConfig{TTL: 24 * time.Hour},
		Log:         LogConfig{Level: "info"},
	}
}
