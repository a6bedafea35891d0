package emacross

import (
	"fmt"
	"math"
	"strings"

	"github.com/newthinker/algotrade/internal/core"
	"github.com/newthinker/algotrade/internal/strategy"
)

// EMACrossover follows the EMA20/EMA50 trend. Wide separation raises
// confidence, a near crossover lowers it.
type EMACrossover struct{}

// New creates a new EMA crossover strategy
func New() *EMACrossover {
	return &EMACrossover{}
}

func (s *EMACrossover) Name() string {
	return strategy.NameEMACrossover
}

func (s *EMACrossover) Description() string {
	return "EMA 20/50 crossover"
}

func (s *EMACrossover) Evaluate(in strategy.Input) strategy.Vote {
	fast, slow := in.Indicators.EMA20, in.Indicators.EMA50
	price := in.Price

	var reasons []string
	action := core.ActionHold
	confidence := strategy.BaseConfidence

	switch {
	case fast > slow && price > fast:
		action = core.ActionBuy
		confidence += 20
		reasons = append(reasons, "strong uptrend")
	case fast > slow:
		action = core.ActionBuy
		confidence += 10
		reasons = append(reasons, "uptrend")
	case fast < slow && price < fast:
		action = core.ActionSell
		confidence += 20
		reasons = append(reasons, "strong downtrend")
	case fast < slow:
		action = core.ActionSell
		confidence += 10
		reasons = append(reasons, "downtrend")
	default:
		confidence = 45
		reasons = append(reasons, "EMAs equal")
	}

	sep := Separation(fast, slow)
	switch {
	case sep > 2:
		confidence += 10
		reasons = append(reasons, fmt.Sprintf("EMA separation %.2f%%", sep))
	case sep < 0.5:
		confidence = math.Max(confidence-15, 30)
		reasons = append(reasons, "crossover imminent")
	}

	v := strategy.NewVote(action, confidence, price, in.Indicators.ATR)
	v.Reasoning = strings.Join(reasons, ", ")
	return v
}

// Separation returns |fast-slow| as a percentage of slow, 0 when slow is 0
func Separation(fast, slow float64) float64 {
	if slow == 0 {
		return 0
	}
	return math.Abs(fast-slow) / slow * 100
}
