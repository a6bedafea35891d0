package backtest

import (
	"math"
)

// tradingDays annualizes the per-trade Sharpe ratio
const tradingDays = 252

// Analyze computes the performance report. It is a pure function of its
// inputs. With no trades every rate is 0 and FinalCapital is initialCapital.
func Analyze(trades []ClosedTrade, equity []EquityPoint, initialCapital float64) Report {
	if len(trades) == 0 {
		return Report{FinalCapital: initialCapital}
	}

	var winning, losing int
	var totalPnL, grossProfit, grossLoss float64
	returns := make([]float64, 0, len(trades))

	for _, t := range trades {
		totalPnL += t.PnL
		returns = append(returns, t.PnLPct)
		if t.IsWin() {
			winning++
			grossProfit += t.PnL
		} else {
			losing++
			grossLoss += t.PnL
		}
	}
	grossLoss = math.Abs(grossLoss)

	r := Report{
		TotalReturn:   totalPnL,
		TotalTrades:   len(trades),
		WinningTrades: winning,
		LosingTrades:  losing,
		WinRate:       float64(winning) / float64(len(trades)) * 100,
		FinalCapital:  initialCapital + totalPnL,
		SharpeRatio:   calculateSharpeRatio(returns),
	}

	if initialCapital != 0 {
		r.TotalReturnPct = totalPnL / initialCapital * 100
	}
	if winning > 0 {
		r.AvgWin = grossProfit / float64(winning)
	}
	if losing > 0 {
		r.AvgLoss = -grossLoss / float64(losing)
	}
	if grossLoss > 0 {
		r.ProfitFactor = grossProfit / grossLoss
	}

	values := make([]float64, len(equity))
	for i, p := range equity {
		values[i] = p.Value
	}
	r.MaxDrawdown, r.MaxDrawdownPct = calculateMaxDrawdown(values)

	return r
}

// calculateMaxDrawdown finds the largest peak-to-trough decline and its
// percentage of the peak it fell from
func calculateMaxDrawdown(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}

	var maxDD, maxDDPct float64
	peak := values[0]

	for _, v := range values {
		if v > peak {
			peak = v
		}
		dd := peak - v
		if dd > maxDD {
			maxDD = dd
			if peak > 0 {
				maxDDPct = dd / peak * 100
			} else {
				maxDDPct = 0
			}
		}
	}

	return maxDD, maxDDPct
}

// calculateSharpeRatio is mean over population stddev of per-trade
// returns, annualized by sqrt(252). Risk-free rate is 0.
func calculateSharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	stdDev := math.Sqrt(variance / float64(len(returns)))

	if stdDev == 0 {
		return 0
	}

	return mean / stdDev * math.Sqrt(tradingDays)
}
