package rsimacd

import (
	"fmt"
	"math"
	"strings"

	"github.com/newthinker/algotrade/internal/core"
	"github.com/newthinker/algotrade/internal/strategy"
)

// RSIMACD scores momentum: RSI picks the direction, MACD histogram and
// volume confirm it.
type RSIMACD struct{}

// New creates a new RSI+MACD strategy
func New() *RSIMACD {
	return &RSIMACD{}
}

func (s *RSIMACD) Name() string {
	return strategy.NameRSIMACD
}

func (s *RSIMACD) Description() string {
	return "RSI + MACD momentum"
}

// Evaluate scores in. Thresholds come from in.Params with zero fields
// defaulted.
func (s *RSIMACD) Evaluate(in strategy.Input) strategy.Vote {
	p := in.Params.RSIMACD.WithDefaults()
	ind := in.Indicators
	rsi := ind.RSI
	hist := ind.MACD.Histogram

	var reasons []string
	action := core.ActionHold
	confidence := strategy.BaseConfidence

	switch {
	case rsi < p.Oversold:
		action = core.ActionBuy
		confidence += 20
		reasons = append(reasons, fmt.Sprintf("RSI %.1f below %.0f", rsi, p.Oversold))
	case rsi < p.Oversold+10:
		action = core.ActionBuy
		confidence += 10
		reasons = append(reasons, fmt.Sprintf("RSI %.1f near oversold", rsi))
	case rsi > p.Overbought:
		action = core.ActionSell
		confidence += 20
		reasons = append(reasons, fmt.Sprintf("RSI %.1f above %.0f", rsi, p.Overbought))
	case rsi > p.Overbought-10:
		action = core.ActionSell
		confidence += 10
		reasons = append(reasons, fmt.Sprintf("RSI %.1f near overbought", rsi))
	default:
		confidence = 40
		reasons = append(reasons, fmt.Sprintf("RSI %.1f neutral", rsi))
	}

	switch {
	case hist > 0 && action == core.ActionBuy:
		confidence += 15
		reasons = append(reasons, "MACD histogram positive")
	case hist < 0 && action == core.ActionSell:
		confidence += 15
		reasons = append(reasons, "MACD histogram negative")
	case math.Abs(hist) < 1:
		confidence = math.Max(confidence-10, 30)
		reasons = append(reasons, "MACD flat")
	}

	if ind.VolumeSpike && action.IsDirectional() {
		confidence += 10
		reasons = append(reasons, "volume spike")
	}

	v := strategy.NewVote(action, confidence, in.Price, ind.ATR)
	v.Reasoning = strings.Join(reasons, ", ")
	return v
}
