package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Port != "8080" {
		t.Errorf("default port = %q, expected 8080", cfg.Server.Port)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("default driver = %q, expected sqlite", cfg.Database.Driver)
	}
	if cfg.Billing.CreditsPerDollar != 10 {
		t.Errorf("credits per dollar = %v, expected 10", cfg.Billing.CreditsPerDollar)
	}
	if cfg.Billing.TokensPerCredit != 10000 {
		t.Errorf("tokens per credit = %v, expected 10000", cfg.Billing.TokensPerCredit)
	}
	if cfg.Redis.Enabled {
		t.Error("redis should be disabled by default")
	}
}

func TestApplyDefaults_FillsZeroBillingRates(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	if cfg.Billing.CreditsPerDollar <= 0 {
		t.Error("zero credits per dollar must be replaced with the default")
	}
	if cfg.Billing.TokensPerCredit <= 0 {
		t.Error("zero tokens per credit must be replaced with the default")
	}
	if cfg.Billing.DefaultInputPerMTok <= 0 || cfg.Billing.DefaultOutputPerMTok <= 0 {
		t.Error("zero fallback prices must be replaced with the defaults")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("port = %q, expected default 8080", cfg.Server.Port)
	}
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
server:
  port: "9090"
billing:
  credits_per_dollar: 25
`)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("port = %q, expected 9090", cfg.Server.Port)
	}
	if cfg.Billing.CreditsPerDollar != 25 {
		t.Errorf("credits per dollar = %v, expected 25", cfg.Billing.CreditsPerDollar)
	}
	// Unset values still get defaults.
	if cfg.Billing.TokensPerCredit != 10000 {
		t.Errorf("tokens per credit = %v, expected default 10000", cfg.Billing.TokensPerCredit)
	}
}

func TestOverrideFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("BILLING_CREDITS_PER_DOLLAR", "50")

	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != "7070" {
		t.Errorf("port = %q, expected env override 7070", cfg.Server.Port)
	}
	if cfg.Billing.CreditsPerDollar != 50 {
		t.Errorf("credits per dollar = %v, expected env override 50", cfg.Billing.CreditsPerDollar)
	}
}

func TestParseRedisURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		addr     string
		password string
		db       int
	}{
		{"plain", "redis://localhost:6379/0", "localhost:6379", "", 0},
		{"with password", "redis://:secret@redis.internal:6380/2", "redis.internal:6380", "secret", 2},
		{"no db", "redis://localhost:6379", "localhost:6379", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.parseRedisURL(tt.url)

			if cfg.Redis.Addr != tt.addr {
				t.Errorf("addr = %q, expected %q", cfg.Redis.Addr, tt.addr)
			}
			if cfg.Redis.Password != tt.password {
				t.Errorf("password = %q, expected %q", cfg.Redis.Password, tt.password)
			}
			if cfg.Redis.DB != tt.db {
				t.Errorf("db = %d, expected %d", cfg.Redis.DB, tt.db)
			}
		})
	}
}
