// Package scanner evaluates a symbol list on a bounded worker pool
package scanner

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/newthinker/algotrade/internal/core"
	"github.com/newthinker/algotrade/internal/indicator"
	"github.com/newthinker/algotrade/internal/strategy"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Defaults
const (
	DefaultWorkers       = 10
	DefaultLookbackDays  = 120
	DefaultMinConfidence = 60
	DefaultInterval      = 15 * time.Minute
)

// Source supplies price data. *collector.Registry satisfies it.
type Source interface {
	FetchQuote(ctx context.Context, symbol string) (*core.Quote, error)
	FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.PriceBar, error)
}

// Config holds scanner configuration
type Config struct {
	Workers       int           `mapstructure:"workers"`
	Interval      time.Duration `mapstructure:"interval"`
	Symbols       []string      `mapstructure:"symbols"`
	LookbackDays  int           `mapstructure:"lookback_days"`
	MinConfidence int           `mapstructure:"min_confidence"`
	Strategy      string        `mapstructure:"strategy"`
	Timeframe     string        `mapstructure:"timeframe"`
}

// WithDefaults fills zero fields with defaults
func (c Config) WithDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.LookbackDays <= 0 {
		c.LookbackDays = DefaultLookbackDays
	}
	if c.MinConfidence <= 0 {
		c.MinConfidence = DefaultMinConfidence
	}
	if c.Strategy == "" {
		c.Strategy = strategy.NameCombined
	}
	if c.Timeframe == "" {
		c.Timeframe = strategy.DefaultTimeframe
	}
	return c
}

// Analysis is the evaluation of one symbol
type Analysis struct {
	Signal     core.Signal        `json:"signal"`
	Indicators indicator.Snapshot `json:"indicators"`
	Hints      []string           `json:"hints"`
}

// Report summarizes one scan cycle
type Report struct {
	Scanned  int              `json:"scanned"`
	Signals  []core.Signal    `json:"signals"`
	Failures map[string]error `json:"-"`
	Duration time.Duration    `json:"duration"`
}

// Scanner fetches history, computes indicators and scores symbols
type Scanner struct {
	cfg     Config
	source  Source
	engine  *strategy.Engine
	params  strategy.Params
	options indicator.Options
	logger  *zap.Logger
	now     func() time.Time
}

// New creates a scanner
func New(cfg Config, source Source, engine *strategy.Engine, logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{
		cfg:     cfg.WithDefaults(),
		source:  source,
		engine:  engine,
		params:  strategy.DefaultParams(),
		options: indicator.DefaultOptions(),
		logger:  logger,
		now:     time.Now,
	}
}

// SetParams replaces the strategy parameter overrides
func (s *Scanner) SetParams(p strategy.Params) {
	s.params = p
	s.params.RSIMACD = p.RSIMACD.WithDefaults()
	s.options.RSIPeriod = s.params.RSIMACD.RSIPeriod
}

// Config returns the effective configuration
func (s *Scanner) Config() Config {
	return s.cfg
}

// Analyze produces a signal for one symbol using the named strategy. An
// empty name uses the configured strategy.
func (s *Scanner) Analyze(ctx context.Context, symbol, strategyName string) (*Analysis, error) {
	if strategyName == "" {
		strategyName = s.cfg.Strategy
	}

	now := s.now()
	start := now.AddDate(0, 0, -s.cfg.LookbackDays)
	bars, err := s.source.FetchHistory(ctx, symbol, start, now, s.cfg.Timeframe)
	if err != nil {
		return nil, core.WrapError(core.ErrDataUnavailable, err)
	}
	if len(bars) == 0 {
		return nil, core.WrapError(core.ErrDataUnavailable, fmt.Errorf("no bars for %s", symbol))
	}

	snap, err := indicator.Compute(bars, s.options)
	if err != nil {
		return nil, err
	}

	price := bars[len(bars)-1].Close
	if q, err := s.source.FetchQuote(ctx, symbol); err == nil && q != nil && q.IsValid() {
		price = q.Price
	}

	sig, err := s.engine.Evaluate(strategyName, strategy.Input{
		Symbol:     symbol,
		Price:      price,
		Indicators: snap,
		Params:     s.params,
		Timeframe:  s.cfg.Timeframe,
		Now:        now,
	})
	if err != nil {
		return nil, err
	}

	return &Analysis{Signal: sig, Indicators: snap, Hints: indicator.Hints(snap)}, nil
}

// Scan evaluates every symbol and keeps the directional signals at or above
// minConfidence, highest confidence first. Empty symbols scans the configured
// list and a non-positive minConfidence uses the configured threshold.
// Per-symbol failures are logged and reported in Failures; only cancellation
// fails the scan.
func (s *Scanner) Scan(ctx context.Context, symbols []string, minConfidence int) (*Report, error) {
	if len(symbols) == 0 {
		symbols = s.cfg.Symbols
	}
	if minConfidence <= 0 {
		minConfidence = s.cfg.MinConfidence
	}
	started := time.Now()

	var (
		mu       sync.Mutex
		signals  []core.Signal
		failures = make(map[string]error)
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)

	for _, symbol := range symbols {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			a, err := s.Analyze(gctx, symbol, "")
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.logger.Warn("failed to generate signal",
					zap.String("symbol", symbol),
					zap.Error(err),
				)
				mu.Lock()
				failures[symbol] = err
				mu.Unlock()
				return nil
			}

			if !a.Signal.Action.IsDirectional() || a.Signal.Confidence < minConfidence {
				return nil
			}

			mu.Lock()
			signals = append(signals, a.Signal)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(signals, func(i, j int) bool {
		if signals[i].Confidence != signals[j].Confidence {
			return signals[i].Confidence > signals[j].Confidence
		}
		return signals[i].Symbol < signals[j].Symbol
	})

	report := &Report{
		Scanned:  len(symbols),
		Signals:  signals,
		Failures: failures,
		Duration: time.Since(started),
	}

	s.logger.Info("market scan complete",
		zap.Int("scanned", report.Scanned),
		zap.Int("generated", len(signals)),
		zap.Int("failed", len(failures)),
		zap.Duration("duration", report.Duration),
	)

	return report, nil
}
