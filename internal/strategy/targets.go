package strategy

import (
	"math"

	"github.com/newthinker/algotrade/internal/core"
)

// ATR multiples for stop and target placement
const (
	stopATR    = 2.0
	targetATR  = 3.0
	holdATR    = 1.5
	fallbackPc = 0.02
)

// EffectiveATR returns atr, or 2% of price when atr is unavailable (<= 0)
func EffectiveATR(price, atr float64) float64 {
	if atr > 0 {
		return atr
	}
	return price * fallbackPc
}

// Targets returns entry, stop-loss and target levels for a direction.
// HOLD gets a symmetric band that is only used for display.
func Targets(price float64, action core.Action, atr float64) (entry, stop, target float64) {
	atr = EffectiveATR(price, atr)
	entry = price

	switch action {
	case core.ActionBuy:
		stop = price - stopATR*atr
		target = price + targetATR*atr
	case core.ActionSell:
		stop = price + stopATR*atr
		target = price - targetATR*atr
	default:
		stop = price - holdATR*atr
		target = price + holdATR*atr
	}

	return entry, stop, target
}

// RiskReward returns |target-entry| over the directional risk. It is 0 when
// the stop sits on the wrong side of entry and a fixed 1.0 for HOLD.
func RiskReward(entry, stop, target float64, action core.Action) float64 {
	var risk float64

	switch action {
	case core.ActionBuy:
		risk = entry - stop
	case core.ActionSell:
		risk = stop - entry
	default:
		return 1.0
	}

	if risk <= 0 {
		return 0
	}
	return math.Abs(target-entry) / risk
}
