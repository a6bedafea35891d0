package bbvolume

import (
	"testing"

	"github.com/newthinker/algotrade/internal/core"
	"github.com/newthinker/algotrade/internal/indicator"
	"github.com/newthinker/algotrade/internal/strategy"
)

func TestBBVolume_ImplementsStrategy(t *testing.T) {
	var _ strategy.Strategy = (*BBVolume)(nil)
}

func TestBBVolume_Evaluate(t *testing.T) {
	bands := indicator.Bands{Upper: 110, Middle: 100, Lower: 90}

	tests := []struct {
		name       string
		price      float64
		spike      bool
		wantAction core.Action
		wantConf   float64
	}{
		{"below lower", 88, false, core.ActionBuy, 70},
		{"on lower with spike", 90, true, core.ActionBuy, 85},
		{"below middle", 95, false, core.ActionBuy, 55},
		{"on upper", 110, false, core.ActionSell, 70},
		{"above middle spike", 105, true, core.ActionSell, 70},
		{"on middle", 100, true, core.ActionHold, 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New().Evaluate(strategy.Input{
				Price: tt.price,
				Indicators: indicator.Snapshot{
					Bollinger:   bands,
					VolumeSpike: tt.spike,
					ATR:         1,
				},
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

func TestBBVolume_HoldRiskReward(t *testing.T) {
	v := New().Evaluate(strategy.Input{
		Price:      100,
		Indicators: indicator.Snapshot{Bollinger: indicator.Bands{Upper: 110, Middle: 100, Lower: 90}},
	})
	if v.RiskReward != 1.0 {
		t.Errorf("RiskReward = %v, want 1.0", v.RiskReward)
	}
	// ATR falls back to 2% of price
	if v.StopLoss != 97 || v.Target != 103 {
		t.Errorf("stop/target = %v/%v, want 97/103", v.StopLoss, v.Target)
	}
}
