package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/newthinker/algotrade/internal/core"
	"github.com/newthinker/algotrade/internal/indicator"
	"github.com/newthinker/algotrade/internal/strategy"
	"go.uber.org/zap"
)

// Decider turns the trailing window ending at the current bar into a vote.
// Returning core.ErrInsufficientData skips the bar.
type Decider interface {
	Decide(symbol string, window []core.PriceBar) (strategy.Vote, error)
}

// DeciderFunc adapts a function to Decider
type DeciderFunc func(symbol string, window []core.PriceBar) (strategy.Vote, error)

func (f DeciderFunc) Decide(symbol string, window []core.PriceBar) (strategy.Vote, error) {
	return f(symbol, window)
}

// StrategyDecider recomputes indicators over the window and asks a strategy
type StrategyDecider struct {
	Strategy strategy.Strategy
	Options  indicator.Options
	Params   strategy.Params
	Interval string
}

func (d StrategyDecider) Decide(symbol string, window []core.PriceBar) (strategy.Vote, error) {
	snap, err := indicator.Compute(window, d.Options)
	if err != nil {
		return strategy.Vote{}, err
	}

	last := window[len(window)-1]
	return d.Strategy.Evaluate(strategy.Input{
		Symbol:     symbol,
		Price:      last.Close,
		Indicators: snap,
		Params:     d.Params,
		Timeframe:  d.Interval,
		Now:        last.Time,
	}), nil
}

// Simulator replays a decider bar by bar with at most one open position
type Simulator struct {
	logger *zap.Logger
}

// NewSimulator creates a simulator. A nil logger disables logging.
func NewSimulator(logger *zap.Logger) *Simulator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Simulator{logger: logger}
}

// Simulate runs cfg over bars, which must be chronological. Bars before
// cfg.Start only feed the indicator window. cfg must already have defaults
// applied.
func (s *Simulator) Simulate(ctx context.Context, cfg Config, bars []core.PriceBar, d Decider) (*Result, error) {
	if len(bars) == 0 {
		return nil, core.WrapError(core.ErrDataUnavailable, fmt.Errorf("no historical data for %s", cfg.Symbol))
	}

	lo, hi := dateRange(bars, cfg.Start, cfg.End)
	if lo > hi {
		return nil, core.WrapError(core.ErrDataUnavailable,
			fmt.Errorf("no data for %s between %s and %s", cfg.Symbol,
				cfg.Start.Format(time.DateOnly), cfg.End.Format(time.DateOnly)))
	}

	res := &Result{
		Config:   cfg,
		Equity:   make([]EquityPoint, 0, hi-lo+1),
		Trades:   []ClosedTrade{},
		Strategy: cfg.Strategy,
	}

	cash := cfg.InitialCapital
	var pos *Position

	for i := lo; i <= hi; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		bar := bars[i]
		price := bar.Close

		value := cash
		if pos != nil {
			value += pos.PnL(price)
		}
		res.Equity = append(res.Equity, EquityPoint{Date: bar.Time, Value: value})

		if pos != nil && pos.ShouldExit(price) {
			trade := pos.Close(bar.Time, price)
			cash += trade.PnL
			res.Trades = append(res.Trades, trade)
			pos = nil
			s.logTrade(cfg.Symbol, trade)
		}

		// the final bar is never evaluated: an entry there would be force
		// closed at its own price
		if pos != nil || i == hi {
			continue
		}

		window := bars[max(0, i-cfg.LookbackBars+1) : i+1]
		vote, err := d.Decide(cfg.Symbol, window)
		if err != nil {
			if errors.Is(err, core.ErrInsufficientData) {
				res.SkippedBars++
				continue
			}
			return nil, core.WrapError(core.ErrStrategyFailed, err)
		}

		if !vote.Action.IsDirectional() || price <= 0 {
			continue
		}

		qty := cfg.PositionFraction * cash / price
		if qty <= 0 {
			continue
		}

		side := Long
		if vote.Action == core.ActionSell {
			side = Short
		}
		pos = &Position{
			EntryDate:  bar.Time,
			EntryPrice: price,
			Type:       side,
			Quantity:   qty,
			StopLoss:   vote.StopLoss,
			Target:     vote.Target,
		}
		s.logger.Debug("position opened",
			zap.String("symbol", cfg.Symbol),
			zap.String("side", string(side)),
			zap.Time("date", bar.Time),
			zap.Float64("price", price),
			zap.Float64("quantity", qty),
		)
	}

	if pos != nil {
		last := bars[hi]
		trade := pos.Close(last.Time, last.Close)
		cash += trade.PnL
		res.Trades = append(res.Trades, trade)
		s.logTrade(cfg.Symbol, trade)
	}

	res.Report = Analyze(res.Trades, res.Equity, cfg.InitialCapital)
	return res, nil
}

func (s *Simulator) logTrade(symbol string, t ClosedTrade) {
	s.logger.Debug("position closed",
		zap.String("symbol", symbol),
		zap.String("side", string(t.Type)),
		zap.Time("date", t.ExitDate),
		zap.Float64("price", t.ExitPrice),
		zap.Float64("pnl", t.PnL),
		zap.String("outcome", string(t.Outcome)),
	)
}

// dateRange returns the inclusive index range of bars whose calendar day
// lies in [start, end]. A zero start or end leaves that side open. lo > hi
// means empty.
func dateRange(bars []core.PriceBar, start, end time.Time) (int, int) {
	if !start.IsZero() {
		start = core.StartOfDay(start)
	}
	if !end.IsZero() {
		end = core.EndOfDay(end)
	}
	lo, hi := 0, len(bars)-1
	for lo < len(bars) && !start.IsZero() && bars[lo].Time.Before(start) {
		lo++
	}
	for hi >= 0 && !end.IsZero() && bars[hi].Time.After(end) {
		hi--
	}
	return lo, hi
}
