package combined

import (
	"fmt"
	"math"
	"strings"

	"github.com/newthinker/algotrade/internal/core"
	"github.com/newthinker/algotrade/internal/strategy"
	"github.com/newthinker/algotrade/internal/strategy/bbvolume"
	"github.com/newthinker/algotrade/internal/strategy/emacross"
	"github.com/newthinker/algotrade/internal/strategy/rsimacd"
	"github.com/newthinker/algotrade/internal/strategy/vwaprev"
)

const (
	// MinScore is the weighted score a direction needs to win
	MinScore = 40.0
	// weakConfidence is reported when every direction is weak and no
	// member voted HOLD
	weakConfidence = 30.0
)

// Member is a weighted sub-strategy
type Member struct {
	Strategy strategy.Strategy
	Weight   float64
}

// DefaultMembers returns the four sub-strategies with their stock weights
func DefaultMembers() []Member {
	return []Member{
		{Strategy: rsimacd.New(), Weight: 0.35},
		{Strategy: bbvolume.New(), Weight: 0.25},
		{Strategy: emacross.New(), Weight: 0.25},
		{Strategy: vwaprev.New(), Weight: 0.15},
	}
}

// Breakdown is the per-direction weighted score with the member votes
type Breakdown struct {
	Buy   float64                  `json:"buy_score"`
	Sell  float64                  `json:"sell_score"`
	Hold  float64                  `json:"hold_score"`
	Votes map[string]strategy.Vote `json:"votes"`
}

// Combined aggregates member votes into one decision
type Combined struct {
	members []Member
}

// New creates a combined strategy. With no members it uses DefaultMembers.
func New(members ...Member) *Combined {
	if len(members) == 0 {
		members = DefaultMembers()
	}
	return &Combined{members: members}
}

func (c *Combined) Name() string {
	return strategy.NameCombined
}

func (c *Combined) Description() string {
	names := make([]string, len(c.members))
	for i, m := range c.members {
		names[i] = fmt.Sprintf("%s %.2f", m.Strategy.Name(), m.Weight)
	}
	return "Weighted vote: " + strings.Join(names, ", ")
}

// Score runs every member and sums confidence × weight per direction
func (c *Combined) Score(in strategy.Input) Breakdown {
	b := Breakdown{Votes: make(map[string]strategy.Vote, len(c.members))}

	for _, m := range c.members {
		v := m.Strategy.Evaluate(in)
		b.Votes[m.Strategy.Name()] = v

		score := v.Confidence * m.Weight
		switch v.Action {
		case core.ActionBuy:
			b.Buy += score
		case core.ActionSell:
			b.Sell += score
		default:
			b.Hold += score
		}
	}

	return b
}

// Decide picks the winning direction. Ties resolve BUY, then SELL, then
// HOLD. When no score reaches MinScore the result is HOLD.
func (b Breakdown) Decide() (core.Action, float64) {
	best := math.Max(b.Buy, math.Max(b.Sell, b.Hold))

	if best < MinScore {
		if b.Hold > 0 {
			return core.ActionHold, math.Trunc(b.Hold)
		}
		return core.ActionHold, weakConfidence
	}

	var action core.Action
	switch best {
	case b.Buy:
		action = core.ActionBuy
	case b.Sell:
		action = core.ActionSell
	default:
		action = core.ActionHold
	}

	return action, math.Trunc(math.Min(best, 100))
}

func (c *Combined) Evaluate(in strategy.Input) strategy.Vote {
	action, confidence := c.Score(in).Decide()

	v := strategy.NewVote(action, confidence, in.Price, in.Indicators.ATR)
	v.Reasoning = Reasoning(action, in)
	return v
}

// Reasoning lists the indicator conditions that back the final direction
func Reasoning(action core.Action, in strategy.Input) string {
	ind := in.Indicators
	price := in.Price

	var reasons []string
	switch action {
	case core.ActionBuy:
		if ind.RSI < 40 {
			reasons = append(reasons, fmt.Sprintf("Oversold RSI (%.1f)", ind.RSI))
		}
		if ind.MACD.Histogram > 0 {
			reasons = append(reasons, "Bullish MACD momentum")
		}
		if price < ind.VWAP {
			reasons = append(reasons, "Price below VWAP (support)")
		}
		if price <= ind.Bollinger.Lower {
			reasons = append(reasons, "At lower Bollinger Band")
		}
		if ind.VolumeSpike {
			reasons = append(reasons, "High volume confirms buying")
		}
	case core.ActionSell:
		if ind.RSI > 60 {
			reasons = append(reasons, fmt.Sprintf("Overbought RSI (%.1f)", ind.RSI))
		}
		if ind.MACD.Histogram < 0 {
			reasons = append(reasons, "Bearish MACD momentum")
		}
		if price > ind.VWAP {
			reasons = append(reasons, "Price above VWAP (resistance)")
		}
		if price >= ind.Bollinger.Upper {
			reasons = append(reasons, "At upper Bollinger Band")
		}
		if ind.VolumeSpike {
			reasons = append(reasons, "High volume confirms selling")
		}
	default:
		reasons = append(reasons, "Conflicting indicators", "Wait for clearer signal")
	}

	if len(reasons) == 0 {
		return "Neutral market conditions."
	}
	return strings.Join(reasons, ". ") + "."
}
