package indicator

// Hints returns short human readable observations about a snapshot
func Hints(s Snapshot) []string {
	var hints []string

	switch {
	case s.RSI < 30:
		hints = append(hints, "RSI oversold (<30)")
	case s.RSI > 70:
		hints = append(hints, "RSI overbought (>70)")
	case s.RSI < 40:
		hints = append(hints, "RSI approaching oversold")
	case s.RSI > 60:
		hints = append(hints, "RSI approaching overbought")
	}

	if s.MACD.Histogram > 0 {
		hints = append(hints, "MACD bullish (histogram positive)")
	} else {
		hints = append(hints, "MACD bearish (histogram negative)")
	}

	if s.VolumeSpike {
		hints = append(hints, "High volume spike detected")
	}

	return hints
}
