// Package config loads and validates application configuration.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	Kalshi   KalshiConfig   `mapstructure:"kalshi"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Agent    AgentConfig    `mapstructure:"agent"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// KalshiConfig holds Kalshi API configuration.
type KalshiConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	Timeout        time.Duration `mapstructure:"timeout"`
	Limit          int           `mapstructure:"limit"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
	RequestsPerSec float64       `mapstructure:"requests_per_sec"`
}

// EngineConfig holds admission thresholds and cycle behavior.
type EngineConfig struct {
	EdgeThreshold       float64       `mapstructure:"edge_threshold"`
	ConfidenceThreshold float64       `mapstructure:"confidence_threshold"`
	SpreadThreshold     float64       `mapstructure:"spread_threshold"`
	Cooldown            time.Duration `mapstructure:"cooldown"`
	MaxSignalsPerHour   int           `mapstructure:"max_signals_per_hour"`
	TopNPerCategory     int           `mapstructure:"top_n_per_category"` // 0 = per-category default
	CategoryScan        bool          `mapstructure:"category_scan"`
	DiscoveryInterval   int           `mapstructure:"discovery_interval"`
	DryRun              bool          `mapstructure:"dry_run"`
}

// AgentConfig holds feature-computation configuration.
type AgentConfig struct {
	EventDate      string        `mapstructure:"event_date"` // YYYY-MM-DD
	EventName      string        `mapstructure:"event_name"`
	SnapshotWindow time.Duration `mapstructure:"snapshot_window"`
	GameLeaguePath string        `mapstructure:"game_league_path"`
}

// TelegramConfig holds Telegram notification configuration.
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// StorageConfig holds persistence configuration.
type StorageConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	v.SetEnvPrefix("SALI")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("kalshi.base_url", "https://api.elections.kalshi.com/trade-api/v2")
	v.SetDefault("kalshi.poll_interval", "15s")
	v.SetDefault("kalshi.timeout", "10s")
	v.SetDefault("kalshi.limit", 1000)
	v.SetDefault("kalshi.max_retries", 3)
	v.SetDefault("kalshi.retry_delay_base", "1s")
	v.SetDefault("kalshi.requests_per_sec", 5.0)

	v.SetDefault("engine.edge_threshold", 0.06)
	v.SetDefault("engine.confidence_threshold", 0.65)
	v.SetDefault("engine.spread_threshold", 0.10)
	v.SetDefault("engine.cooldown", "30m")
	v.SetDefault("engine.max_signals_per_hour", 10)
	v.SetDefault("engine.top_n_per_category", 0)
	v.SetDefault("engine.category_scan", true)
	v.SetDefault("engine.discovery_interval", 20)
	v.SetDefault("engine.dry_run", false)

	v.SetDefault("agent.event_date", "2026-02-08")
	v.SetDefault("agent.event_name", "Super Bowl LX")
	v.SetDefault("agent.snapshot_window", "60m")

	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	v.SetDefault("storage.db_path", "./data/salibot.db")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid.
func (c *Config) Validate() error {
	if c.Kalshi.BaseURL == "" {
		return fmt.Errorf("kalshi.base_url is required")
	}
	if c.Kalshi.PollInterval < time.Second {
		return fmt.Errorf("kalshi.poll_interval must be at least 1 second")
	}
	if c.Kalshi.Limit < 1 || c.Kalshi.Limit > 1000 {
		return fmt.Errorf("kalshi.limit must be between 1 and 1000")
	}

	if c.Engine.EdgeThreshold < 0 || c.Engine.EdgeThreshold > 1 {
		return fmt.Errorf("engine.edge_threshold must be between 0.0 and 1.0")
	}
	if c.Engine.ConfidenceThreshold < 0 || c.Engine.ConfidenceThreshold > 1 {
		return fmt.Errorf("engine.confidence_threshold must be between 0.0 and 1.0")
	}
	if c.Engine.SpreadThreshold < 0 || c.Engine.SpreadThreshold > 1 {
		return fmt.Errorf("engine.spread_threshold must be between 0.0 and 1.0")
	}
	if c.Engine.Cooldown < time.Minute {
		return fmt.Errorf("engine.cooldown must be at least 1 minute")
	}
	if c.Engine.MaxSignalsPerHour < 1 {
		return fmt.Errorf("engine.max_signals_per_hour must be at least 1")
	}
	if c.Engine.DiscoveryInterval < 1 {
		return fmt.Errorf("engine.discovery_interval must be at least 1")
	}

	if _, err := c.EventDate(); err != nil {
		return fmt.Errorf("agent.event_date must be YYYY-MM-DD: %w", err)
	}
	if c.Agent.SnapshotWindow < time.Minute {
		return fmt.Errorf("agent.snapshot_window must be at least 1 minute")
	}

	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}

// EventDate parses the configured reference event date.
func (c *Config) EventDate() (time.Time, error) {
	return time.Parse("2006-01-02", c.Agent.EventDate)
}
