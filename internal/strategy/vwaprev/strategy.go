package vwaprev

import (
	"fmt"
	"strings"

	"github.com/newthinker/algotrade/internal/core"
	"github.com/newthinker/algotrade/internal/strategy"
)

// Distance from VWAP, in percent, that counts as stretched
const stretchPct = 2.0

// VWAPReversal bets on price returning to VWAP once it is stretched away
// and RSI agrees.
type VWAPReversal struct{}

// New creates a new VWAP reversal strategy
func New() *VWAPReversal {
	return &VWAPReversal{}
}

func (s *VWAPReversal) Name() string {
	return strategy.NameVWAPReversal
}

func (s *VWAPReversal) Description() string {
	return "VWAP reversal"
}

func (s *VWAPReversal) Evaluate(in strategy.Input) strategy.Vote {
	vwap := in.Indicators.VWAP
	rsi := in.Indicators.RSI
	price := in.Price
	diff := DiffPct(price, vwap)

	var reasons []string
	action := core.ActionHold
	confidence := strategy.BaseConfidence

	switch {
	case diff < -stretchPct && rsi < 45:
		action = core.ActionBuy
		confidence += 20
		reasons = append(reasons, fmt.Sprintf("price %.2f%% below VWAP with weak RSI", -diff))
	case price < vwap:
		action = core.ActionBuy
		confidence += 8
		reasons = append(reasons, "price below VWAP")
	case diff > stretchPct && rsi > 55:
		action = core.ActionSell
		confidence += 20
		reasons = append(reasons, fmt.Sprintf("price %.2f%% above VWAP with strong RSI", diff))
	case price > vwap:
		action = core.ActionSell
		confidence += 8
		reasons = append(reasons, "price above VWAP")
	default:
		confidence = 40
		reasons = append(reasons, "price at VWAP")
	}

	v := strategy.NewVote(action, confidence, price, in.Indicators.ATR)
	v.Reasoning = strings.Join(reasons, ", ")
	return v
}

// DiffPct returns (price-vwap)/vwap in percent, 0 when vwap is 0
func DiffPct(price, vwap float64) float64 {
	if vwap == 0 {
		return 0
	}
	return (price - vwap) / vwap * 100
}
