package emacross

import (
	"testing"

	"github.com/newthinker/algotrade/internal/core"
	"github.com/newthinker/algotrade/internal/indicator"
	"github.com/newthinker/algotrade/internal/strategy"
)

func TestEMACrossover_ImplementsStrategy(t *testing.T) {
	var _ strategy.Strategy = (*EMACrossover)(nil)
}

func TestEMACrossover_Evaluate(t *testing.T) {
	tests := []struct {
		name         string
		price        float64
		ema20, ema50 float64
		wantAction   core.Action
		wantConf     float64
	}{
		{"strong uptrend wide", 110, 105, 100, core.ActionBuy, 80},
		{"uptrend moderate", 101, 101.5, 100, core.ActionBuy, 60},
		{"uptrend tight", 100, 100.2, 100, core.ActionBuy, 45},
		{"strong downtrend wide", 90, 95, 100, core.ActionSell, 80},
		{"downtrend moderate", 99, 98.5, 100, core.ActionSell, 60},
		{"flat", 100, 100, 100, core.ActionHold, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New().Evaluate(strategy.Input{
				Price:      tt.price,
				Indicators: indicator.Snapshot{EMA20: tt.ema20, EMA50: tt.ema50, ATR: 1},
			})
			if v.Action != tt.wantAction {
				t.Errorf("Action = %s, want %s", v.Action, tt.wantAction)
			}
			if v.Confidence != tt.wantConf {
				t.Errorf("Confidence = %v, want %v", v.Confidence, tt.wantConf)
			}
		})
	}
}

func TestSeparation(t *testing.T) {
	if got := Separation(102, 100); got != 2 {
		t.Errorf("Separation(102, 100) = %v, want 2", got)
	}
	if got := Separation(5, 0); got != 0 {
		t.Errorf("Separation(5, 0) = %v, want 0", got)
	}
}
