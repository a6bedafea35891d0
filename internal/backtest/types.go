package backtest

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/newthinker/algotrade/internal/core"
	"github.com/newthinker/algotrade/internal/indicator"
	"github.com/newthinker/algotrade/internal/strategy"
)

// Defaults applied by Config.WithDefaults
const (
	DefaultInitialCapital   = 100000.0
	DefaultPositionFraction = 0.95
	DefaultLookbackBars     = 250
	DefaultInterval         = "1d"
)

var validate = validator.New()

// Config identifies one backtest run
type Config struct {
	Symbol           string          `json:"symbol" validate:"required"`
	Strategy         string          `json:"strategy"`
	Start            time.Time       `json:"start_date" validate:"required"`
	End              time.Time       `json:"end_date" validate:"required,gtefield=Start"`
	InitialCapital   float64         `json:"initial_capital" validate:"gt=0"`
	Interval         string          `json:"interval"`
	PositionFraction float64         `json:"position_fraction" validate:"gt=0,lte=1"`
	LookbackBars     int             `json:"lookback_bars" validate:"gte=50"`
	Params           strategy.Params `json:"params"`
}

// WithDefaults fills zero fields
func (c Config) WithDefaults() Config {
	if c.Strategy == "" {
		c.Strategy = strategy.NameCombined
	}
	if c.InitialCapital == 0 {
		c.InitialCapital = DefaultInitialCapital
	}
	if c.Interval == "" {
		c.Interval = DefaultInterval
	}
	if c.PositionFraction == 0 {
		c.PositionFraction = DefaultPositionFraction
	}
	if c.LookbackBars == 0 {
		c.LookbackBars = DefaultLookbackBars
	}
	c.Params.RSIMACD = c.Params.RSIMACD.WithDefaults()
	return c
}

// Validate checks the config and returns CONFIG_INVALID on failure
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return core.WrapError(core.ErrConfigInvalid, err)
	}
	return nil
}

// IndicatorOptions returns the indicator periods implied by the params
func (c Config) IndicatorOptions() indicator.Options {
	opts := indicator.DefaultOptions()
	if p := c.Params.RSIMACD.RSIPeriod; p > 0 {
		opts.RSIPeriod = p
	}
	return opts
}

// PositionType is the side of an open position
type PositionType string

const (
	Long  PositionType = "LONG"
	Short PositionType = "SHORT"
)

// Outcome classifies a closed trade
type Outcome string

const (
	Win  Outcome = "WIN"
	Loss Outcome = "LOSS"
)

// Position is an open trade
type Position struct {
	EntryDate  time.Time    `json:"entry_date"`
	EntryPrice float64      `json:"entry_price"`
	Type       PositionType `json:"position_type"`
	Quantity   float64      `json:"quantity"`
	StopLoss   float64      `json:"stop_loss"`
	Target     float64      `json:"target"`
}

// PnL returns the profit or loss of the position marked at price
func (p Position) PnL(price float64) float64 {
	if p.Type == Short {
		return (p.EntryPrice - price) * p.Quantity
	}
	return (price - p.EntryPrice) * p.Quantity
}

// ShouldExit reports whether price has hit the stop or the target
func (p Position) ShouldExit(price float64) bool {
	if p.Type == Short {
		return price >= p.StopLoss || price <= p.Target
	}
	return price <= p.StopLoss || price >= p.Target
}

// Close realizes the position at price
func (p Position) Close(at time.Time, price float64) ClosedTrade {
	pnl := p.PnL(price)

	var pct float64
	if p.EntryPrice != 0 {
		if p.Type == Short {
			pct = (p.EntryPrice - price) / p.EntryPrice * 100
		} else {
			pct = (price - p.EntryPrice) / p.EntryPrice * 100
		}
	}

	outcome := Loss
	if pnl > 0 {
		outcome = Win
	}

	return ClosedTrade{
		Position:  p,
		ExitDate:  at,
		ExitPrice: price,
		PnL:       pnl,
		PnLPct:    pct,
		Outcome:   outcome,
	}
}

// ClosedTrade is a realized position
type ClosedTrade struct {
	Position
	ExitDate  time.Time `json:"exit_date"`
	ExitPrice float64   `json:"exit_price"`
	PnL       float64   `json:"pnl"`
	PnLPct    float64   `json:"pnl_pct"`
	Outcome   Outcome   `json:"status"`
}

// IsWin returns true if the trade was profitable
func (t ClosedTrade) IsWin() bool {
	return t.Outcome == Win
}

// EquityPoint is the portfolio value at one processed bar
type EquityPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Report holds performance statistics
type Report struct {
	TotalReturn    float64 `json:"total_return"`
	TotalReturnPct float64 `json:"total_return_pct"`
	WinRate        float64 `json:"win_rate"`
	ProfitFactor   float64 `json:"profit_factor"`
	SharpeRatio    float64 `json:"sharpe_ratio"`
	MaxDrawdown    float64 `json:"max_drawdown"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
	TotalTrades    int     `json:"total_trades"`
	WinningTrades  int     `json:"winning_trades"`
	LosingTrades   int     `json:"losing_trades"`
	AvgWin         float64 `json:"avg_win"`
	AvgLoss        float64 `json:"avg_loss"`
	FinalCapital   float64 `json:"final_capital"`
}

// Result holds the complete backtest output
type Result struct {
	RunID       string        `json:"run_id,omitempty"`
	Config      Config        `json:"config"`
	Strategy    string        `json:"strategy"`
	Report      Report        `json:"metrics"`
	Trades      []ClosedTrade `json:"trades"`
	Equity      []EquityPoint `json:"equity_curve"`
	// SkippedBars counts evaluated bars the decider rejected for lack of
	// history. The final bar is never evaluated and is not counted.
	SkippedBars int           `json:"skipped_bars"`
}
