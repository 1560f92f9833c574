package config

import (
	"os"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Kalshi: KalshiConfig{
			BaseURL:      "https://example.com",
			PollInterval: 15 * time.Second,
			Timeout:      10 * time.Second,
			Limit:        1000,
		},
		Engine: EngineConfig{
			EdgeThreshold:       0.06,
			ConfidenceThreshold: 0.65,
			SpreadThreshold:     0.10,
			Cooldown:            30 * time.Minute,
			MaxSignalsPerHour:   10,
			DiscoveryInterval:   20,
		},
		Agent: AgentConfig{
			EventDate:      "2026-02-08",
			EventName:      "Super Bowl LX",
			SnapshotWindow: 60 * time.Minute,
		},
		Storage: StorageConfig{DBPath: "./data/test.db"},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

func TestLoadAndValidate(t *testing.T) {
	// Create temp config file
	content := `
kalshi:
  poll_interval: 30s
  limit: 500

engine:
  edge_threshold: 0.08
  cooldown: 45m
  max_signals_per_hour: 5

agent:
  event_date: "2026-02-08"
  snapshot_window: 90m

telegram:
  bot_token: "test_token"
  chat_id: "test_chat_id"
  enabled: true

storage:
  db_path: "./data/test.db"

logging:
  level: "info"
  format: "json"
`
	tmpfile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Remove(tmpfile.Name()) }()

	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpfile.Name())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Explicit values
	if cfg.Kalshi.PollInterval != 30*time.Second {
		t.Errorf("Unexpected poll interval: %v", cfg.Kalshi.PollInterval)
	}
	if cfg.Kalshi.Limit != 500 {
		t.Errorf("Unexpected limit: %d", cfg.Kalshi.Limit)
	}
	if cfg.Engine.EdgeThreshold != 0.08 {
		t.Errorf("Unexpected edge threshold: %f", cfg.Engine.EdgeThreshold)
	}
	if cfg.Engine.Cooldown != 45*time.Minute {
		t.Errorf("Unexpected cooldown: %v", cfg.Engine.Cooldown)
	}
	if cfg.Agent.SnapshotWindow != 90*time.Minute {
		t.Errorf("Unexpected snapshot window: %v", cfg.Agent.SnapshotWindow)
	}

	// Defaults fill the gaps
	if cfg.Kalshi.BaseURL == "" {
		t.Error("Expected default base URL")
	}
	if cfg.Engine.ConfidenceThreshold != 0.65 {
		t.Errorf("Unexpected default confidence threshold: %f", cfg.Engine.ConfidenceThreshold)
	}
	if !cfg.Engine.CategoryScan {
		t.Error("Expected category scan enabled by default")
	}
	if cfg.Agent.EventName != "Super Bowl LX" {
		t.Errorf("Unexpected default event name: %s", cfg.Agent.EventName)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	eventDate, err := cfg.EventDate()
	if err != nil {
		t.Fatalf("EventDate failed: %v", err)
	}
	if eventDate.Year() != 2026 || eventDate.Month() != time.February || eventDate.Day() != 8 {
		t.Errorf("Unexpected event date: %v", eventDate)
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid baseline",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing base url",
			mutate:  func(c *Config) { c.Kalshi.BaseURL = "" },
			wantErr: true,
		},
		{
			name:    "poll interval too small",
			mutate:  func(c *Config) { c.Kalshi.PollInterval = 500 * time.Millisecond },
			wantErr: true,
		},
		{
			name:    "limit out of range",
			mutate:  func(c *Config) { c.Kalshi.Limit = 2000 },
			wantErr: true,
		},
		{
			name:    "edge threshold above 1",
			mutate:  func(c *Config) { c.Engine.EdgeThreshold = 1.5 },
			wantErr: true,
		},
		{
			name:    "cooldown too small",
			mutate:  func(c *Config) { c.Engine.Cooldown = 30 * time.Second },
			wantErr: true,
		},
		{
			name:    "zero signals per hour",
			mutate:  func(c *Config) { c.Engine.MaxSignalsPerHour = 0 },
			wantErr: true,
		},
		{
			name:    "malformed event date",
			mutate:  func(c *Config) { c.Agent.EventDate = "Feb 8, 2026" },
			wantErr: true,
		},
		{
			name: "missing telegram token when enabled",
			mutate: func(c *Config) {
				c.Telegram.Enabled = true
				c.Telegram.ChatID = "chat"
			},
			wantErr: true,
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: true,
		},
		{
			name:    "invalid log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
