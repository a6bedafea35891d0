package strategy

import (
	"time"

	"github.com/newthinker/algotrade/internal/core"
	"github.com/newthinker/algotrade/internal/indicator"
)

// Registered strategy names
const (
	NameCombined     = "combined"
	NameRSIMACD      = "rsi_macd"
	NameBBVolume     = "bb_volume"
	NameEMACrossover = "ema_crossover"
	NameVWAPReversal = "vwap_reversal"
)

// BaseConfidence is where every rule-based strategy starts scoring
const BaseConfidence = 50.0

// Input is everything a strategy needs to score one evaluation point
type Input struct {
	Symbol     string
	Price      float64
	Indicators indicator.Snapshot
	Params     Params
	Timeframe  string
	Now        time.Time
}

// Vote is a strategy's directional opinion with its risk levels
type Vote struct {
	Action     core.Action `json:"signal"`
	Confidence float64     `json:"confidence"`
	Entry      float64     `json:"entry"`
	StopLoss   float64     `json:"stop_loss"`
	Target     float64     `json:"target"`
	RiskReward float64     `json:"risk_reward"`
	Reasoning  string      `json:"reasoning,omitempty"`
}

// Strategy scores an Input into a Vote. Implementations must be pure.
type Strategy interface {
	Name() string
	Description() string
	Evaluate(in Input) Vote
}

// NewVote clamps confidence to [0,100] and fills entry, stop, target and
// risk-reward from the price and ATR.
func NewVote(action core.Action, confidence, price, atr float64) Vote {
	entry, stop, target := Targets(price, action, atr)
	return Vote{
		Action:     action,
		Confidence: ClampConfidence(confidence),
		Entry:      entry,
		StopLoss:   stop,
		Target:     target,
		RiskReward: RiskReward(entry, stop, target, action),
	}
}

// ClampConfidence limits c to [0,100]
func ClampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}
