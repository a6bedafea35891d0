package indicator

// MACDValue holds the latest MACD line, signal line and histogram
type MACDValue struct {
	Value     float64 `json:"value"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// MACD calculates the latest MACD reading. The zero value is returned when
// prices cannot fill slow+signal-1 bars.
func MACD(prices []float64, fast, slow, signal int) MACDValue {
	if fast <= 0 || slow <= fast || signal <= 0 || len(prices) < slow+signal-1 {
		return MACDValue{}
	}

	fastEMA := EMA(prices, fast)
	slowEMA := EMA(prices, slow)

	// fastEMA starts slow-fast bars earlier than slowEMA
	offset := slow - fast
	line := make([]float64, len(slowEMA))
	for i := range slowEMA {
		line[i] = fastEMA[i+offset] - slowEMA[i]
	}

	signalLine := EMA(line, signal)
	v := last(line, 0)
	s := last(signalLine, 0)

	return MACDValue{
		Value:     v,
		Signal:    s,
		Histogram: v - s,
	}
}
