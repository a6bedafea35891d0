// internal/storage/signal/memory_test.go
package signal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/newthinker/algotrade/internal/core"
)

// storeFactories runs every behavioural test against both stores
func storeFactories() map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemoryStore(100) },
		"sqlite": func(t *testing.T) Store {
			s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "signals.db"))
			if err != nil {
				t.Fatalf("NewSQLiteStore: %v", err)
			}
			t.Cleanup(func() { s.Close() })
			return s
		},
	}
}

func TestStore_SaveAndGet(t *testing.T) {
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			ctx := context.Background()

			ts := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
			saved, err := store.Save(ctx, core.Signal{
				Symbol:     "AAPL",
				Action:     core.ActionBuy,
				Confidence: 85,
				EntryPrice: 190.12,
				StopLoss:   186.5,
				Target:     195.55,
				RiskReward: 1.5,
				Reasoning:  "Oversold RSI (28.0).",
				Strategy:   "combined",
				Timeframe:  "1d",
				Timestamp:  ts,
			})
			if err != nil {
				t.Fatalf("Save failed: %v", err)
			}
			if saved.ID == "" {
				t.Fatal("expected ID to be assigned")
			}

			got, err := store.GetByID(ctx, saved.ID)
			if err != nil {
				t.Fatalf("GetByID failed: %v", err)
			}
			if got.Symbol != "AAPL" || got.Action != core.ActionBuy || got.Confidence != 85 {
				t.Errorf("got %+v", got)
			}
			if got.Target != 195.55 || got.Reasoning != "Oversold RSI (28.0)." {
				t.Errorf("got %+v", got)
			}
			if !got.Timestamp.Equal(ts) {
				t.Errorf("Timestamp = %v, want %v", got.Timestamp, ts)
			}

			_, err = store.GetByID(ctx, "missing")
			if !errors.Is(err, core.ErrNotFound) {
				t.Errorf("GetByID(missing) error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestStore_ListFilters(t *testing.T) {
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			ctx := context.Background()
			now := time.Now()

			store.Save(ctx, core.Signal{Symbol: "AAPL", Action: core.ActionBuy, Confidence: 70, Strategy: "combined", Timestamp: now.Add(-2 * time.Hour)})
			store.Save(ctx, core.Signal{Symbol: "GOOG", Action: core.ActionSell, Confidence: 55, Strategy: "rsi_macd", Timestamp: now.Add(-1 * time.Hour)})
			store.Save(ctx, core.Signal{Symbol: "AAPL", Action: core.ActionSell, Confidence: 90, Strategy: "combined", Timestamp: now})

			tests := []struct {
				name   string
				filter ListFilter
				want   int
			}{
				{"all", ListFilter{}, 3},
				{"symbol", ListFilter{Symbol: "AAPL"}, 2},
				{"strategy", ListFilter{Strategy: "rsi_macd"}, 1},
				{"action", ListFilter{Action: core.ActionSell}, 2},
				{"confidence", ListFilter{MinConfidence: 60}, 2},
				{"from", ListFilter{From: now.Add(-90 * time.Minute)}, 2},
				{"to", ListFilter{To: now.Add(-90 * time.Minute)}, 1},
				{"limit", ListFilter{Limit: 2}, 2},
				{"offset", ListFilter{Offset: 2}, 1},
				{"offset past end", ListFilter{Offset: 5}, 0},
			}

			for _, tt := range tests {
				got, err := store.List(ctx, tt.filter)
				if err != nil {
					t.Fatalf("%s: List failed: %v", tt.name, err)
				}
				if len(got) != tt.want {
					t.Errorf("%s: len = %d, want %d", tt.name, len(got), tt.want)
				}

				n, err := store.Count(ctx, ListFilter{
					Symbol: tt.filter.Symbol, Strategy: tt.filter.Strategy, Action: tt.filter.Action,
					MinConfidence: tt.filter.MinConfidence, From: tt.filter.From, To: tt.filter.To,
				})
				if err != nil {
					t.Fatalf("%s: Count failed: %v", tt.name, err)
				}
				if tt.filter.Limit == 0 && tt.filter.Offset == 0 && n != tt.want {
					t.Errorf("%s: Count = %d, want %d", tt.name, n, tt.want)
				}
			}

			latest, _ := store.List(ctx, ListFilter{Limit: 1})
			if len(latest) != 1 || latest[0].Confidence != 90 {
				t.Errorf("List newest first: got %+v", latest)
			}
		})
	}
}

func TestMemoryStore_MaxSize(t *testing.T) {
	store := NewMemoryStore(3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		store.Save(ctx, core.Signal{Symbol: "TEST", Confidence: i})
	}

	signals, _ := store.List(ctx, ListFilter{})
	if len(signals) != 3 {
		t.Fatalf("expected 3 (max size), got %d", len(signals))
	}
	if signals[2].Confidence != 2 {
		t.Errorf("oldest kept = %d, want 2", signals[2].Confidence)
	}
}

func TestMemoryStore_ImplementsStore(t *testing.T) {
	var _ Store = (*MemoryStore)(nil)
	var _ Store = (*SQLiteStore)(nil)
}
