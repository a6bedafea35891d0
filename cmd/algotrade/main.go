package main

import (
	"fmt"
	"io"
	"os"

	"github.com/newthinker/algotrade/internal/app"
	"github.com/newthinker/algotrade/internal/config"
	"github.com/newthinker/algotrade/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "algotrade",
	Short: "algotrade - technical-analysis signal engine and backtester",
	Long: `algotrade scores symbols with RSI+MACD, Bollinger+volume, EMA crossover
and VWAP reversal strategies, aggregates them into BUY/SELL/HOLD signals
with price targets, and backtests them against historical bars.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads --config when given and falls back to defaults
func loadConfig() (*config.Config, error) {
	if cfgFile == "" {
		return config.Defaults(), nil
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	lc := cfg.Log
	if debug {
		lc.Development = true
		lc.Level = "debug"
	}
	return logger.New(lc)
}

// setup loads config, builds the logger and wires the app. The returned
// closer releases the app's stores and flushes the logger.
func setup() (*config.Config, *zap.Logger, *app.App, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, nil, err
	}

	log, err := newLogger(cfg)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if cfgFile == "" {
		log.Warn("no config file specified, using defaults")
	}

	a, closer, err := app.FromConfig(cfg, log)
	if err != nil {
		log.Sync()
		return nil, nil, nil, nil, fmt.Errorf("config validation failed: %w", err)
	}

	cleanup := func() {
		closeQuietly(closer, log)
		log.Sync()
	}
	return cfg, log, a, cleanup, nil
}

func closeQuietly(c io.Closer, log *zap.Logger) {
	if err := c.Close(); err != nil {
		log.Warn("close failed", zap.Error(err))
	}
}
