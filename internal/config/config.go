package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/newthinker/algotrade/internal/collector"
	"github.com/newthinker/algotrade/internal/core"
	"github.com/newthinker/algotrade/internal/logger"
	"github.com/newthinker/algotrade/internal/storage/archive"
	"github.com/newthinker/algotrade/internal/strategy"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig              `mapstructure:"server"`
	Log        logger.Config             `mapstructure:"log"`
	Storage    StorageConfig             `mapstructure:"storage"`
	Collectors CollectorsConfig          `mapstructure:"collectors"`
	Strategies map[string]map[string]any `mapstructure:"strategies"`
	Router     RouterConfig              `mapstructure:"router"`
	Scanner    ScannerConfig             `mapstructure:"scanner"`
	Backtest   BacktestConfig            `mapstructure:"backtest"`
	Notifiers  NotifiersConfig           `mapstructure:"notifiers"`
	Metrics    MetricsConfig             `mapstructure:"metrics"`
}

type ServerConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	APIKey      string `mapstructure:"api_key"`
	JobTTLHours int    `mapstructure:"job_ttl_hours"`
	MaxJobs     int    `mapstructure:"max_jobs"`
}

// Addr returns host:port
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type StorageConfig struct {
	Signals SignalStoreConfig `mapstructure:"signals"`
	Archive archive.Config    `mapstructure:"archive"`
}

type SignalStoreConfig struct {
	Driver  string `mapstructure:"driver"` // "memory" or "sqlite"
	DSN     string `mapstructure:"dsn"`
	MaxSize int    `mapstructure:"max_size"`
}

type CollectorsConfig struct {
	Yahoo collector.Config `mapstructure:"yahoo"`
	CSV   collector.Config `mapstructure:"csv"`
}

type RouterConfig struct {
	MinConfidence  int      `mapstructure:"min_confidence"`
	CooldownHours  int      `mapstructure:"cooldown_hours"`
	EnabledActions []string `mapstructure:"enabled_actions"`
}

type ScannerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Workers      int           `mapstructure:"workers"`
	Interval     time.Duration `mapstructure:"interval"`
	Symbols      []string      `mapstructure:"symbols"`
	LookbackDays int           `mapstructure:"lookback_days"`
	Strategy     string        `mapstructure:"strategy"`
}

type BacktestConfig struct {
	InitialCapital   float64 `mapstructure:"initial_capital"`
	PositionFraction float64 `mapstructure:"position_fraction"`
	LookbackBars     int     `mapstructure:"lookback_bars"`
}

type NotifiersConfig struct {
	Webhook WebhookConfig `mapstructure:"webhook"`
}

type WebhookConfig struct {
	Enabled bool              `mapstructure:"enabled"`
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from file on top of Defaults
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			JobTTLHours: 1,
			MaxJobs:     100,
		},
		Storage: StorageConfig{
			Signals: SignalStoreConfig{
				Driver:  "memory",
				MaxSize: 10000,
			},
			Archive: archive.Config{
				Type: "localfs",
				Path: "data/archive",
			},
		},
		Collectors: CollectorsConfig{
			Yahoo: collector.Config{Enabled: true, Timeout: 30 * time.Second},
		},
		Router: RouterConfig{
			MinConfidence:  60,
			CooldownHours:  24,
			EnabledActions: []string{"BUY", "SELL"},
		},
		Scanner: ScannerConfig{
			Workers:      10,
			Interval:     15 * time.Minute,
			LookbackDays: 120,
			Strategy:     strategy.NameCombined,
		},
		Backtest: BacktestConfig{
			InitialCapital:   100000,
			PositionFraction: 0.95,
			LookbackBars:     250,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// StrategyParams parses the strategies section into typed overrides. The
// returned keys are entries that were ignored as unknown.
func (c *Config) StrategyParams() (strategy.Params, []string, error) {
	return strategy.ParseParams(c.Strategies)
}

// CooldownDuration returns the router cooldown as a duration
func (r RouterConfig) CooldownDuration() time.Duration {
	return time.Duration(r.CooldownHours) * time.Hour
}

// Actions converts the enabled action names
func (r RouterConfig) Actions() ([]core.Action, error) {
	actions := make([]core.Action, 0, len(r.EnabledActions))
	for _, name := range r.EnabledActions {
		a, ok := core.ParseAction(name)
		if !ok {
			return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown action %q", name))
		}
		actions = append(actions, a)
	}
	return actions, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}

	// Router validation
	if c.Router.MinConfidence < 0 || c.Router.MinConfidence > 100 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("min_confidence must be between 0 and 100, got %d", c.Router.MinConfidence))
	}
	if c.Router.CooldownHours < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("cooldown_hours cannot be negative, got %d", c.Router.CooldownHours))
	}
	if _, err := c.Router.Actions(); err != nil {
		return err
	}

	if c.Scanner.Workers < 0 || c.Scanner.LookbackDays < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("scanner workers and lookback_days cannot be negative"))
	}

	if c.Backtest.InitialCapital < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("initial_capital cannot be negative, got %v", c.Backtest.InitialCapital))
	}
	if c.Backtest.PositionFraction < 0 || c.Backtest.PositionFraction > 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("position_fraction must be between 0 and 1, got %v", c.Backtest.PositionFraction))
	}

	// Storage validation
	switch c.Storage.Signals.Driver {
	case "", "memory":
	case "sqlite":
		if c.Storage.Signals.DSN == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("storage.signals.dsn required for sqlite"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown signal store driver %q", c.Storage.Signals.Driver))
	}

	switch c.Storage.Archive.Type {
	case "", "localfs":
	case "s3":
		if c.Storage.Archive.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("storage.archive.s3.bucket required for s3"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown archive type %q", c.Storage.Archive.Type))
	}

	if c.Collectors.CSV.Enabled && c.Collectors.CSV.Dir == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("collectors.csv.dir required when csv is enabled"))
	}

	if c.Notifiers.Webhook.Enabled && c.Notifiers.Webhook.URL == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("webhook url required when webhook is enabled"))
	}

	if _, _, err := c.StrategyParams(); err != nil {
		return err
	}

	return nil
}
