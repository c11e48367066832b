package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Bot       BotConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8377"`
	Host string `envconfig:"HOST" default:"127.0.0.1"`
}

// BotConfig holds worker process configuration.
type BotConfig struct {
	// Command and Script form the worker invocation; session arguments
	// (persona ID, Hume config ID, environment) are appended positionally.
	Command    string `envconfig:"BOT_COMMAND" default:"python3"`
	Script     string `envconfig:"BOT_SCRIPT" default:"bot.py"`
	WorkingDir string `envconfig:"BOT_DIR" default:"."`

	// Realtime endpoint per environment tag, passed to the worker as
	// OJIN_PROXY_URL.
	ProductionURL string `envconfig:"OJIN_PRODUCTION_URL" default:"wss://models.ojin.ai/realtime"`
	StagingURL    string `envconfig:"OJIN_STAGING_URL" default:"wss://staging.models.ojin.ai/realtime"`

	// SettleDelay separates kill confirmation from respawn when replacing a
	// live worker for the same session identity.
	SettleDelay time.Duration `envconfig:"BOT_SETTLE_DELAY" default:"750ms"`

	// KillTimeout is how long a graceful SIGTERM may run before escalating
	// to SIGKILL (Unix only; Windows tree-kills immediately).
	KillTimeout time.Duration `envconfig:"BOT_KILL_TIMEOUT" default:"2s"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"50"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"100"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8377",
			Host: "127.0.0.1",
		},
		Bot: BotConfig{
			Command:       "python3",
			Script:        "bot.py",
			WorkingDir:    ".",
			ProductionURL: "wss://models.ojin.ai/realtime",
			StagingURL:    "wss://staging.models.ojin.ai/realtime",
			SettleDelay:   750 * time.Millisecond,
			KillTimeout:   2 * time.Second,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 50,
			Burst:             100,
			Enabled:           true,
		},
	}
}
