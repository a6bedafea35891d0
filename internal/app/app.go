package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/algotrade/internal/backtest"
	"github.com/newthinker/algotrade/internal/collector"
	"github.com/newthinker/algotrade/internal/config"
	"github.com/newthinker/algotrade/internal/core"
	"github.com/newthinker/algotrade/internal/metrics"
	"github.com/newthinker/algotrade/internal/notifier"
	"github.com/newthinker/algotrade/internal/router"
	"github.com/newthinker/algotrade/internal/scanner"
	"github.com/newthinker/algotrade/internal/storage/archive"
	"github.com/newthinker/algotrade/internal/storage/signal"
	"github.com/newthinker/algotrade/internal/strategy"
	"github.com/newthinker/algotrade/internal/strategy/bbvolume"
	"github.com/newthinker/algotrade/internal/strategy/combined"
	"github.com/newthinker/algotrade/internal/strategy/emacross"
	"github.com/newthinker/algotrade/internal/strategy/rsimacd"
	"github.com/newthinker/algotrade/internal/strategy/vwaprev"
	"go.uber.org/zap"
)

const cooldownCleanupInterval = time.Hour

// ScanResult is the outcome of one scan-and-route cycle
type ScanResult struct {
	Scanned   int           `json:"scanned"`
	Generated int           `json:"generated"`
	Saved     int           `json:"saved"`
	Failed    int           `json:"failed"`
	Signals   []core.Signal `json:"signals"`
}

// App is the main application orchestrator
type App struct {
	cfg        *config.Config
	logger     *zap.Logger
	collectors *collector.Registry
	strategies *strategy.Engine
	notifiers  *notifier.Registry
	router     *router.Router
	scanner    *scanner.Scanner
	backtester *backtest.Backtester
	signals    signal.Store
	results    *archive.Results
	metrics    *metrics.Registry
	params     strategy.Params

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
}

// New creates a new App with the built-in strategies registered, an
// in-memory signal store and no archive. Strategy overrides in cfg are
// parsed here; unknown keys are logged and ignored.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		cfg = config.Defaults()
	}

	params, ignored, err := cfg.StrategyParams()
	if err != nil {
		return nil, err
	}
	for _, key := range ignored {
		logger.Warn("ignoring unknown strategy parameter", zap.String("key", key))
	}

	actions, err := cfg.Router.Actions()
	if err != nil {
		return nil, err
	}

	collectors := collector.NewRegistry(logger)
	strategies := NewEngine(logger)
	notifiers := notifier.NewRegistry()

	r := router.New(router.Config{
		MinConfidence:    cfg.Router.MinConfidence,
		CooldownDuration: cfg.Router.CooldownDuration(),
		EnabledActions:   actions,
	}, notifiers, logger)

	store := signal.NewMemoryStore(cfg.Storage.Signals.MaxSize)
	r.SetSignalStore(store)

	sc := scanner.New(scanner.Config{
		Workers:       cfg.Scanner.Workers,
		Interval:      cfg.Scanner.Interval,
		Symbols:       cfg.Scanner.Symbols,
		LookbackDays:  cfg.Scanner.LookbackDays,
		MinConfidence: cfg.Router.MinConfidence,
		Strategy:      cfg.Scanner.Strategy,
	}, collectors, strategies, logger)
	sc.SetParams(params)

	return &App{
		cfg:        cfg,
		logger:     logger,
		collectors: collectors,
		strategies: strategies,
		notifiers:  notifiers,
		router:     r,
		scanner:    sc,
		backtester: backtest.New(collectors, strategies, logger),
		signals:    store,
		params:     params,
	}, nil
}

// NewEngine returns a strategy engine with every built-in strategy
// registered and combined as the fallback
func NewEngine(logger *zap.Logger) *strategy.Engine {
	e := strategy.NewEngine(logger)
	e.Register(combined.New())
	e.Register(rsimacd.New())
	e.Register(bbvolume.New())
	e.Register(emacross.New())
	e.Register(vwaprev.New())
	e.SetFallback(strategy.NameCombined)
	return e
}

// RegisterCollector adds a collector to the app
func (a *App) RegisterCollector(c collector.Collector) {
	a.collectors.Register(c)
}

// RegisterStrategy adds a strategy to the app
func (a *App) RegisterStrategy(s strategy.Strategy) {
	a.strategies.Register(s)
}

// RegisterNotifier adds a notifier to the app
func (a *App) RegisterNotifier(n notifier.Notifier) error {
	return a.notifiers.Register(n)
}

// SetSignalStore replaces the signal store used for persistence and listing
func (a *App) SetSignalStore(store signal.Store) {
	a.signals = store
	a.router.SetSignalStore(store)
}

// SetArchive enables archiving of completed backtests
func (a *App) SetArchive(s archive.Storage) {
	a.results = archive.NewResults(s)
}

// SetMetrics attaches a metrics registry
func (a *App) SetMetrics(m *metrics.Registry) {
	a.metrics = m
	a.router.SetMetrics(m)
}

// Signals returns the signal store
func (a *App) Signals() signal.Store {
	return a.signals
}

// Results returns the backtest archive, nil when archiving is disabled
func (a *App) Results() *archive.Results {
	return a.results
}

// Metrics returns the metrics registry, possibly nil
func (a *App) Metrics() *metrics.Registry {
	return a.metrics
}

// Strategies returns the registered strategy names
func (a *App) Strategies() []string {
	return a.strategies.Names()
}

// Signal generates an on-demand signal for symbol without persisting it
func (a *App) Signal(ctx context.Context, symbol, strategyName string) (*scanner.Analysis, error) {
	res, err := a.scanner.Analyze(ctx, symbol, strategyName)
	if err != nil {
		return nil, err
	}
	if a.metrics != nil {
		a.metrics.RecordSignal(res.Signal.Strategy, string(res.Signal.Action))
	}
	return res, nil
}

// ScanOnce scans symbols (the configured list when empty) and routes the
// resulting signals. minConfidence <= 0 uses the configured threshold.
func (a *App) ScanOnce(ctx context.Context, symbols []string, minConfidence int) (*ScanResult, error) {
	report, err := a.scanner.Scan(ctx, symbols, minConfidence)
	if err != nil {
		return nil, err
	}

	if a.metrics != nil {
		for _, sig := range report.Signals {
			a.metrics.RecordSignal(sig.Strategy, string(sig.Action))
		}
	}

	routed := a.router.RouteBatch(ctx, report.Signals)
	if routed == nil {
		routed = []core.Signal{}
	}

	result := &ScanResult{
		Scanned:   report.Scanned,
		Generated: len(report.Signals),
		Saved:     len(routed),
		Failed:    len(report.Failures),
		Signals:   routed,
	}

	if a.metrics != nil {
		a.metrics.RecordScan(report.Duration.Seconds(), result.Failed)
	}

	return result, nil
}

// StrategyParams returns the configured strategy overrides
func (a *App) StrategyParams() strategy.Params {
	return a.params
}

// BacktestConfig fills zero fields of cfg from the configured backtest
// defaults and strategy overrides
func (a *App) BacktestConfig(cfg backtest.Config) backtest.Config {
	if cfg.InitialCapital == 0 {
		cfg.InitialCapital = a.cfg.Backtest.InitialCapital
	}
	if cfg.PositionFraction == 0 {
		cfg.PositionFraction = a.cfg.Backtest.PositionFraction
	}
	if cfg.LookbackBars == 0 {
		cfg.LookbackBars = a.cfg.Backtest.LookbackBars
	}
	if cfg.Params == (strategy.Params{}) {
		cfg.Params = a.params
	}
	return cfg
}

// RunBacktest runs a backtest under a fresh run id and archives the result
// when an archive is configured. Archive failures are logged, not returned.
func (a *App) RunBacktest(ctx context.Context, cfg backtest.Config) (*backtest.Result, error) {
	start := time.Now()
	res, err := a.backtester.Run(ctx, a.BacktestConfig(cfg))

	status := "complete"
	if err != nil {
		status = "failed"
	}
	if a.metrics != nil {
		a.metrics.RecordBacktest(status, time.Since(start).Seconds())
	}
	if err != nil {
		return nil, err
	}

	res.RunID = uuid.NewString()

	if a.results != nil {
		if _, err := a.results.Save(ctx, res); err != nil {
			a.logger.Error("failed to archive backtest",
				zap.String("symbol", res.Config.Symbol),
				zap.String("run_id", res.RunID),
				zap.Error(err),
			)
		}
	}

	a.logger.Info("backtest complete",
		zap.String("symbol", res.Config.Symbol),
		zap.String("strategy", res.Strategy),
		zap.String("run_id", res.RunID),
		zap.Int("trades", res.Report.TotalTrades),
		zap.Float64("return_pct", res.Report.TotalReturnPct),
	)

	return res, nil
}

// Start begins the periodic scan loop
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("app already running")
	}
	a.running = true

	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.mu.Unlock()

	a.router.StartCleanupRoutine(ctx, cooldownCleanupInterval)

	interval := a.scanner.Config().Interval
	a.logger.Info("algotrade scanner starting",
		zap.Int("symbols", len(a.scanner.Config().Symbols)),
		zap.Duration("interval", interval),
	)

	a.runScanCycle(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("algotrade scanner shutting down")
			a.mu.Lock()
			a.running = false
			a.mu.Unlock()
			return ctx.Err()
		case <-ticker.C:
			a.runScanCycle(ctx)
		}
	}
}

// Stop stops the scan loop
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		a.cancel()
	}
}

func (a *App) runScanCycle(ctx context.Context) {
	if len(a.scanner.Config().Symbols) == 0 {
		a.logger.Debug("no symbols configured for scanning")
		return
	}

	res, err := a.ScanOnce(ctx, nil, 0)
	if err != nil {
		if ctx.Err() == nil {
			a.logger.Error("scan cycle failed", zap.Error(err))
		}
		return
	}

	if res.Saved > 0 {
		a.logger.Info("new signals routed", zap.Int("count", res.Saved))
	}
}

// GetStats returns application statistics
func (a *App) GetStats() map[string]any {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return map[string]any{
		"running":    a.running,
		"symbols":    len(a.scanner.Config().Symbols),
		"collectors": len(a.collectors.GetAll()),
		"strategies": len(a.strategies.Names()),
		"notifiers":  a.notifiers.Len(),
		"router":     a.router.GetStats(),
	}
}
