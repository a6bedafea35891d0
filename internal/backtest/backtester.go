package backtest

import (
	"context"
	"time"

	"github.com/newthinker/algotrade/internal/core"
	"github.com/newthinker/algotrade/internal/strategy"
	"go.uber.org/zap"
)

// HistoryProvider fetches chronological bars for a symbol
type HistoryProvider interface {
	FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.PriceBar, error)
}

// Backtester fetches history and runs the simulator with a named strategy
type Backtester struct {
	provider HistoryProvider
	engine   *strategy.Engine
	sim      *Simulator
}

// New creates a new Backtester
func New(provider HistoryProvider, engine *strategy.Engine, logger *zap.Logger) *Backtester {
	return &Backtester{
		provider: provider,
		engine:   engine,
		sim:      NewSimulator(logger),
	}
}

// Run validates cfg, fetches history including an indicator warm-up before
// cfg.Start, and simulates. Unknown strategy names fall back to the
// engine's default.
func (b *Backtester) Run(ctx context.Context, cfg Config) (*Result, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	strat, err := b.engine.Resolve(cfg.Strategy)
	if err != nil {
		return nil, err
	}
	cfg.Strategy = strat.Name()

	bars, err := b.provider.FetchHistory(ctx, cfg.Symbol, WarmupStart(cfg.Start, cfg.LookbackBars), core.EndOfDay(cfg.End), cfg.Interval)
	if err != nil {
		return nil, core.WrapError(core.ErrDataUnavailable, err)
	}

	d := StrategyDecider{
		Strategy: strat,
		Options:  cfg.IndicatorOptions(),
		Params:   cfg.Params,
		Interval: cfg.Interval,
	}
	return b.sim.Simulate(ctx, cfg, bars, d)
}

// WarmupStart returns how far before start to fetch so that lookback
// trading bars precede it
func WarmupStart(start time.Time, lookback int) time.Time {
	days := lookback*7/5 + 10
	return start.AddDate(0, 0, -days)
}
