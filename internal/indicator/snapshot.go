package indicator

import (
	"fmt"
	"math"

	"github.com/newthinker/algotrade/internal/core"
)

const (
	// MinBars is the shortest history Compute accepts
	MinBars = 50
	// LongBars is the history needed for a real SMA200
	LongBars = 200
)

// Snapshot is the indicator bundle evaluated at the last bar of a window
type Snapshot struct {
	RSI         float64   `json:"rsi"`
	MACD        MACDValue `json:"macd"`
	EMA20       float64   `json:"ema20"`
	EMA50       float64   `json:"ema50"`
	SMA200      float64   `json:"sma200"`
	Bollinger   Bands     `json:"bollingerBands"`
	VWAP        float64   `json:"vwap"`
	ATR         float64   `json:"atr"`
	VolumeSpike bool      `json:"volumeSpike"`
}

// Options controls indicator periods
type Options struct {
	RSIPeriod       int
	MACDFast        int
	MACDSlow        int
	MACDSignal      int
	BollingerPeriod int
	BollingerK      float64
	ATRPeriod       int
	VWAPPeriod      int
	SpikeThreshold  float64
}

// DefaultOptions returns the standard indicator periods
func DefaultOptions() Options {
	return Options{
		RSIPeriod:       14,
		MACDFast:        12,
		MACDSlow:        26,
		MACDSignal:      9,
		BollingerPeriod: 20,
		BollingerK:      2,
		ATRPeriod:       14,
		VWAPPeriod:      20,
		SpikeThreshold:  1.5,
	}
}

// Compute builds a Snapshot from a chronological window of bars ending at the
// evaluation point. Values are rounded to 2 decimals.
func Compute(bars []core.PriceBar, opts Options) (Snapshot, error) {
	if len(bars) < MinBars {
		return Snapshot{}, core.WrapError(core.ErrInsufficientData,
			fmt.Errorf("need %d bars, got %d", MinBars, len(bars)))
	}

	closes := make([]float64, len(bars))
	volumes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
		volumes[i] = b.Volume
	}
	lastClose := closes[len(closes)-1]

	sma200 := lastClose
	if len(closes) >= LongBars {
		sma200 = last(SMA(closes, LongBars), lastClose)
	}

	macd := MACD(closes, opts.MACDFast, opts.MACDSlow, opts.MACDSignal)
	bb := Bollinger(closes, opts.BollingerPeriod, opts.BollingerK)

	return Snapshot{
		RSI: round2(last(RSI(closes, opts.RSIPeriod), 50)),
		MACD: MACDValue{
			Value:     round2(macd.Value),
			Signal:    round2(macd.Signal),
			Histogram: round2(macd.Histogram),
		},
		EMA20:  round2(last(EMA(closes, 20), lastClose)),
		EMA50:  round2(last(EMA(closes, 50), lastClose)),
		SMA200: round2(sma200),
		Bollinger: Bands{
			Upper:  round2(bb.Upper),
			Middle: round2(bb.Middle),
			Lower:  round2(bb.Lower),
		},
		VWAP:        round2(VWAP(bars, opts.VWAPPeriod)),
		ATR:         round2(ATR(bars, opts.ATRPeriod)),
		VolumeSpike: VolumeSpike(volumes, opts.SpikeThreshold),
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
