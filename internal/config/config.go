package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Billing   BillingConfig   `yaml:"billing"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
	Mode string `yaml:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, mysql, postgres
	DSN    string `yaml:"dsn"`
}

// RedisConfig for the optional async settlement queue
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// BillingConfig holds system-wide billing defaults. Teams may override
// the conversion rates on their ledger row.
type BillingConfig struct {
	// CreditsPerDollar converts USD cost to credits in consumption_usd mode.
	CreditsPerDollar float64 `yaml:"credits_per_dollar"`
	// TokensPerCredit converts token totals to credits in consumption_tokens mode.
	TokensPerCredit int64 `yaml:"tokens_per_credit"`
	// Fallback prices (USD per million tokens) for models missing from the
	// price table. Using them degrades cost accuracy and is flagged.
	DefaultInputPerMTok  float64 `yaml:"default_input_per_mtok"`
	DefaultOutputPerMTok float64 `yaml:"default_output_per_mtok"`
}

type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled"`
	RPS     float64 `yaml:"rps"`
	Burst   int     `yaml:"burst"`
}

type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

var GlobalConfig *Config

func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	var cfg *Config

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg = DefaultConfig()
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}

		var fileCfg Config
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, err
		}
		cfg = &fileCfg
	}

	cfg.applyDefaults()
	cfg.overrideFromEnv()
	GlobalConfig = cfg
	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: "8080",
			Mode: "debug",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "creditgate.db",
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "localhost:6379",
			DB:      0,
		},
		Billing: BillingConfig{
			CreditsPerDollar:     10,
			TokensPerCredit:      10000,
			DefaultInputPerMTok:  5.0,
			DefaultOutputPerMTok: 15.0,
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			RPS:     50,
			Burst:   100,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// applyDefaults fills zero-valued billing rates so a partial config file
// cannot produce divide-by-zero conversions.
func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Billing.CreditsPerDollar <= 0 {
		c.Billing.CreditsPerDollar = def.Billing.CreditsPerDollar
	}
	if c.Billing.TokensPerCredit <= 0 {
		c.Billing.TokensPerCredit = def.Billing.TokensPerCredit
	}
	if c.Billing.DefaultInputPerMTok <= 0 {
		c.Billing.DefaultInputPerMTok = def.Billing.DefaultInputPerMTok
	}
	if c.Billing.DefaultOutputPerMTok <= 0 {
		c.Billing.DefaultOutputPerMTok = def.Billing.DefaultOutputPerMTok
	}
	if c.Server.Port == "" {
		c.Server.Port = def.Server.Port
	}
	if c.Database.Driver == "" {
		c.Database.Driver = def.Database.Driver
		c.Database.DSN = def.Database.DSN
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
}

func (c *Config) overrideFromEnv() {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		c.Server.Port = port
	}
	if mode := os.Getenv("SERVER_MODE"); mode != "" {
		c.Server.Mode = mode
	}
	if driver := os.Getenv("DB_DRIVER"); driver != "" {
		c.Database.Driver = driver
	}
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		c.Database.DSN = dsn
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if v := os.Getenv("BILLING_CREDITS_PER_DOLLAR"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			c.Billing.CreditsPerDollar = f
		}
	}
	if v := os.Getenv("BILLING_TOKENS_PER_CREDIT"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			c.Billing.TokensPerCredit = n
		}
	}
	// Redis URL override (format: redis://:password@host:port/db)
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		c.Redis.Enabled = true
		c.parseRedisURL(redisURL)
	}
}

// parseRedisURL parses a Redis URL and sets config values
// Format: redis://:password@host:port/db
func (c *Config) parseRedisURL(redisURL string) {
	url := strings.TrimPrefix(redisURL, "redis://")

	if atIdx := strings.Index(url, "@"); atIdx != -1 {
		authPart := url[:atIdx]
		url = url[atIdx+1:]
		if colonIdx := strings.Index(authPart, ":"); colonIdx != -1 {
			c.Redis.Password = authPart[colonIdx+1:]
		}
	}

	if slashIdx := strings.LastIndex(url, "/"); slashIdx != -1 {
		dbStr := url[slashIdx+1:]
		url = url[:slashIdx]
		if db, err := strconv.Atoi(dbStr); err == nil {
			c.Redis.DB = db
		}
	}

	c.Redis.Addr = url
}

func (c *Config) Save(configPath string) error {
	if configPath == "" {
		configPath = "config.yaml"
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}
