package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/newthinker/algotrade/internal/core"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return cfgPath
}

func TestLoad_FromFile(t *testing.T) {
	cfgPath := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9090

storage:
  signals:
    driver: sqlite
    dsn: "file:signals.db"
  archive:
    type: localfs
    path: "/tmp/algotrade/archive"

scanner:
  interval: 5m
  symbols: [AAPL, MSFT]

strategies:
  rsi_macd:
    rsi_period: 10
    rsi_oversold: 25
`)

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Storage.Signals.Driver != "sqlite" {
		t.Errorf("Driver = %s, want sqlite", cfg.Storage.Signals.Driver)
	}
	if cfg.Storage.Archive.Path != "/tmp/algotrade/archive" {
		t.Errorf("Archive.Path = %s", cfg.Storage.Archive.Path)
	}
	if cfg.Scanner.Interval != 5*time.Minute {
		t.Errorf("Scanner.Interval = %v, want 5m", cfg.Scanner.Interval)
	}
	if len(cfg.Scanner.Symbols) != 2 {
		t.Errorf("Scanner.Symbols = %v", cfg.Scanner.Symbols)
	}

	// untouched sections keep their defaults
	if cfg.Router.MinConfidence != 60 {
		t.Errorf("Router.MinConfidence = %d, want 60", cfg.Router.MinConfidence)
	}
	if cfg.Scanner.Workers != 10 {
		t.Errorf("Scanner.Workers = %d, want 10", cfg.Scanner.Workers)
	}

	params, ignored, err := cfg.StrategyParams()
	if err != nil {
		t.Fatalf("StrategyParams: %v", err)
	}
	if params.RSIMACD.RSIPeriod != 10 || params.RSIMACD.Oversold != 25 || params.RSIMACD.Overbought != 70 {
		t.Errorf("RSIMACD = %+v", params.RSIMACD)
	}
	if len(ignored) != 0 {
		t.Errorf("ignored = %v, want none", ignored)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("ALGOTRADE_TEST_HOOK", "https://hooks.example.com/x")
	cfgPath := writeConfig(t, `
notifiers:
  webhook:
    enabled: true
    url: "${ALGOTRADE_TEST_HOOK}"
`)

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Notifiers.Webhook.URL != "https://hooks.example.com/x" {
		t.Errorf("URL = %q", cfg.Notifiers.Webhook.URL)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Router.MinConfidence != 60 {
		t.Errorf("expected default min_confidence 60, got %d", cfg.Router.MinConfidence)
	}
	if cfg.Router.CooldownDuration() != 24*time.Hour {
		t.Errorf("expected default cooldown 24h, got %v", cfg.Router.CooldownDuration())
	}
	if cfg.Backtest.InitialCapital != 100000 || cfg.Backtest.PositionFraction != 0.95 {
		t.Errorf("backtest defaults = %+v", cfg.Backtest)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   *core.Error
	}{
		{"valid config", func(c *Config) {}, nil},
		{"invalid port - zero", func(c *Config) { c.Server.Port = 0 }, core.ErrConfigInvalid},
		{"invalid port - too high", func(c *Config) { c.Server.Port = 70000 }, core.ErrConfigInvalid},
		{"invalid router confidence", func(c *Config) { c.Router.MinConfidence = 150 }, core.ErrConfigInvalid},
		{"negative cooldown", func(c *Config) { c.Router.CooldownHours = -1 }, core.ErrConfigInvalid},
		{"unknown action", func(c *Config) { c.Router.EnabledActions = []string{"SHORT"} }, core.ErrConfigInvalid},
		{"bad fraction", func(c *Config) { c.Backtest.PositionFraction = 1.5 }, core.ErrConfigInvalid},
		{"sqlite without dsn", func(c *Config) { c.Storage.Signals.Driver = "sqlite" }, core.ErrConfigMissing},
		{"unknown driver", func(c *Config) { c.Storage.Signals.Driver = "mongo" }, core.ErrConfigInvalid},
		{"s3 without bucket", func(c *Config) { c.Storage.Archive.Type = "s3" }, core.ErrConfigMissing},
		{"webhook without url", func(c *Config) { c.Notifiers.Webhook.Enabled = true }, core.ErrConfigMissing},
		{"csv without dir", func(c *Config) { c.Collectors.CSV.Enabled = true }, core.ErrConfigMissing},
		{
			"bad strategy param",
			func(c *Config) {
				c.Strategies = map[string]map[string]any{"rsi_macd": {"rsi_period": "fast"}}
			},
			core.ErrConfigInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.want == nil {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate() error = %v, want %s", err, tt.want.Code)
			}
		})
	}
}
