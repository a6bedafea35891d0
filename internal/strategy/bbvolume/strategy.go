package bbvolume

import (
	"strings"

	"github.com/newthinker/algotrade/internal/core"
	"github.com/newthinker/algotrade/internal/strategy"
)

// BBVolume trades mean reversion off the Bollinger bands, confirmed by a
// volume spike.
type BBVolume struct{}

// New creates a new Bollinger+Volume strategy
func New() *BBVolume {
	return &BBVolume{}
}

func (s *BBVolume) Name() string {
	return strategy.NameBBVolume
}

func (s *BBVolume) Description() string {
	return "Bollinger Bands + volume spike"
}

func (s *BBVolume) Evaluate(in strategy.Input) strategy.Vote {
	bb := in.Indicators.Bollinger
	price := in.Price

	var reasons []string
	action := core.ActionHold
	confidence := strategy.BaseConfidence

	switch {
	case price <= bb.Lower:
		action = core.ActionBuy
		confidence += 20
		reasons = append(reasons, "price at lower band")
	case price < bb.Middle:
		action = core.ActionBuy
		confidence += 5
		reasons = append(reasons, "price below middle band")
	case price >= bb.Upper:
		action = core.ActionSell
		confidence += 20
		reasons = append(reasons, "price at upper band")
	case price > bb.Middle:
		action = core.ActionSell
		confidence += 5
		reasons = append(reasons, "price above middle band")
	default:
		confidence = 40
		reasons = append(reasons, "price on middle band")
	}

	if in.Indicators.VolumeSpike && action != core.ActionHold {
		confidence += 15
		reasons = append(reasons, "volume spike")
	}

	v := strategy.NewVote(action, confidence, price, in.Indicators.ATR)
	v.Reasoning = strings.Join(reasons, ", ")
	return v
}
