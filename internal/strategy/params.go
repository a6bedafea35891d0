package strategy

import (
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/newthinker/algotrade/internal/core"
	"github.com/spf13/cast"
)

var validate = validator.New()

// RSIMACDParams are the tunable thresholds of the RSI+MACD strategy
type RSIMACDParams struct {
	RSIPeriod  int     `json:"rsi_period" validate:"gte=2,lte=100"`
	Overbought float64 `json:"rsi_overbought" validate:"gt=0,lte=100,gtfield=Oversold"`
	Oversold   float64 `json:"rsi_oversold" validate:"gte=0,lt=100"`
}

// Params holds per-strategy overrides. Only RSI+MACD is tunable today; the
// other strategies use fixed rules.
type Params struct {
	RSIMACD RSIMACDParams `json:"rsi_macd"`
}

// DefaultParams returns the stock thresholds
func DefaultParams() Params {
	return Params{
		RSIMACD: RSIMACDParams{
			RSIPeriod:  14,
			Overbought: 70,
			Oversold:   30,
		},
	}
}

// WithDefaults fills an unset period or overbought level with the stock
// value. A zero oversold level is legal, so it is only filled when p is
// entirely unset.
func (p RSIMACDParams) WithDefaults() RSIMACDParams {
	d := DefaultParams().RSIMACD
	if p == (RSIMACDParams{}) {
		return d
	}
	if p.RSIPeriod == 0 {
		p.RSIPeriod = d.RSIPeriod
	}
	if p.Overbought == 0 {
		p.Overbought = d.Overbought
	}
	return p
}

// ParseParams converts a strategy name -> {parameter: value} mapping into
// Params. Unrecognized strategies and keys are skipped and returned as
// "strategy.key" in sorted order. Recognized keys with a wrong type or an
// out-of-range value fail with CONFIG_INVALID.
func ParseParams(raw map[string]map[string]any) (Params, []string, error) {
	return ParseParamsOver(DefaultParams(), raw)
}

// ParseParamsOver is ParseParams starting from base instead of the stock
// thresholds, so keys absent from raw keep their base value. A zero base
// means the stock thresholds.
func ParseParamsOver(base Params, raw map[string]map[string]any) (Params, []string, error) {
	p := base
	if p == (Params{}) {
		p = DefaultParams()
	}
	var ignored []string

	for name, kv := range raw {
		if name != NameRSIMACD {
			for k := range kv {
				ignored = append(ignored, name+"."+k)
			}
			continue
		}

		for k, v := range kv {
			var err error
			switch k {
			case "rsi_period":
				p.RSIMACD.RSIPeriod, err = cast.ToIntE(v)
			case "rsi_overbought":
				p.RSIMACD.Overbought, err = cast.ToFloat64E(v)
			case "rsi_oversold":
				p.RSIMACD.Oversold, err = cast.ToFloat64E(v)
			default:
				ignored = append(ignored, name+"."+k)
			}
			if err != nil {
				return Params{}, nil, core.WrapError(core.ErrConfigInvalid,
					fmt.Errorf("%s.%s: %w", name, k, err))
			}
		}
	}

	sort.Strings(ignored)

	if err := validate.Struct(p); err != nil {
		return Params{}, ignored, core.WrapError(core.ErrConfigInvalid, err)
	}

	return p, ignored, nil
}
