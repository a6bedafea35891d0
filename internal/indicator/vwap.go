package indicator

import "github.com/newthinker/algotrade/internal/core"

// VWAP calculates the volume weighted typical price over the last period bars
// (all bars when period <= 0). Falls back to the last close when the window
// has no volume.
func VWAP(bars []core.PriceBar, period int) float64 {
	if len(bars) == 0 {
		return 0
	}

	window := bars
	if period > 0 && len(bars) > period {
		window = bars[len(bars)-period:]
	}

	var pv, vol float64
	for _, b := range window {
		tp := (b.High + b.Low + b.Close) / 3
		pv += tp * b.Volume
		vol += b.Volume
	}

	if vol == 0 {
		return bars[len(bars)-1].Close
	}
	return pv / vol
}
