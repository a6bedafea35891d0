package indicator

import (
	"math"

	"github.com/newthinker/algotrade/internal/core"
)

// ATR calculates the latest Average True Range with Wilder smoothing.
// Returns 0 when there are fewer than period+1 bars.
func ATR(bars []core.PriceBar, period int) float64 {
	if period <= 0 || len(bars) < period+1 {
		return 0
	}

	var sum float64
	for i := 1; i <= period; i++ {
		sum += trueRange(bars[i], bars[i-1])
	}
	p := float64(period)
	atr := sum / p

	for i := period + 1; i < len(bars); i++ {
		atr = (atr*(p-1) + trueRange(bars[i], bars[i-1])) / p
	}

	return atr
}

func trueRange(cur, prev core.PriceBar) float64 {
	hl := cur.High - cur.Low
	hc := math.Abs(cur.High - prev.Close)
	lc := math.Abs(cur.Low - prev.Close)
	return math.Max(hl, math.Max(hc, lc))
}
