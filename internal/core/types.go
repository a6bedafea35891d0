package core

import (
	"strings"
	"time"
)

// PriceBar represents one OHLCV candle for a symbol
type PriceBar struct {
	Symbol   string    `json:"symbol,omitempty"`
	Interval string    `json:"interval,omitempty"` // "1d", "1h", "5m"
	Time     time.Time `json:"timestamp"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
}

// Quote represents a latest price quote
type Quote struct {
	Symbol string
	Price  float64
	Volume float64
	Time   time.Time
	Source string
}

// IsValid checks if the quote has required fields
func (q Quote) IsValid() bool {
	return q.Symbol != "" && q.Price > 0
}

// Action represents a trading decision
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// IsDirectional reports whether the action opens a position
func (a Action) IsDirectional() bool {
	return a == ActionBuy || a == ActionSell
}

// ParseAction converts a string to an Action, accepting any letter case
func ParseAction(s string) (Action, bool) {
	switch Action(strings.ToUpper(s)) {
	case ActionBuy:
		return ActionBuy, true
	case ActionSell:
		return ActionSell, true
	case ActionHold:
		return ActionHold, true
	}
	return "", false
}

// Signal is the final scored decision for a symbol
type Signal struct {
	ID         string    `json:"id,omitempty"`
	Symbol     string    `json:"symbol"`
	Action     Action    `json:"signal"`
	Confidence int       `json:"confidence"`
	EntryPrice float64   `json:"entry_price"`
	StopLoss   float64   `json:"stop_loss"`
	Target     float64   `json:"target"`
	RiskReward float64   `json:"risk_reward"`
	Reasoning  string    `json:"reasoning"`
	Strategy   string    `json:"strategy"`
	Timeframe  string    `json:"timeframe"`
	Timestamp  time.Time `json:"timestamp"`
}

// StartOfDay returns midnight of t's calendar day in t's location
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last instant of t's calendar day, so a date used
// as an upper bound includes every bar stamped on that day
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).Add(24*time.Hour - time.Nanosecond)
}
