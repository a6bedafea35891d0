package scanner

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/newthinker/algotrade/internal/core"
	"github.com/newthinker/algotrade/internal/strategy"
)

type fakeSource struct {
	bars   int
	fail   map[string]bool
	quotes map[string]float64
}

func (f *fakeSource) FetchQuote(ctx context.Context, symbol string) (*core.Quote, error) {
	p, ok := f.quotes[symbol]
	if !ok {
		return nil, errors.New("no quote")
	}
	return &core.Quote{Symbol: symbol, Price: p}, nil
}

func (f *fakeSource) FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.PriceBar, error) {
	if f.fail[symbol] {
		return nil, fmt.Errorf("upstream error for %s", symbol)
	}
	bars := make([]core.PriceBar, f.bars)
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		bars[i] = core.PriceBar{
			Symbol: symbol,
			Time:   t0.AddDate(0, 0, i),
			Open:   100, High: 101, Low: 99, Close: 100,
			Volume: 1000,
		}
	}
	return bars, nil
}

// bySymbol votes from a per-symbol table
type bySymbol struct {
	votes map[string]strategy.Vote
}

func (b *bySymbol) Name() string        { return strategy.NameCombined }
func (b *bySymbol) Description() string { return "per-symbol stub" }
func (b *bySymbol) Evaluate(in strategy.Input) strategy.Vote {
	return b.votes[in.Symbol]
}

func newEngine(votes map[string]strategy.Vote) *strategy.Engine {
	e := strategy.NewEngine()
	e.Register(&bySymbol{votes: votes})
	return e
}

func TestScanner_Scan(t *testing.T) {
	votes := map[string]strategy.Vote{
		"AAA": {Action: core.ActionBuy, Confidence: 75},
		"BBB": {Action: core.ActionSell, Confidence: 90},
		"CCC": {Action: core.ActionBuy, Confidence: 59},
		"DDD": {Action: core.ActionHold, Confidence: 95},
		"EEE": {Action: core.ActionBuy, Confidence: 60},
	}
	src := &fakeSource{bars: 60, fail: map[string]bool{"BAD": true}}
	s := New(Config{Workers: 2}, src, newEngine(votes), nil)

	report, err := s.Scan(context.Background(), []string{"AAA", "BBB", "CCC", "DDD", "EEE", "BAD"}, 0)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if report.Scanned != 6 {
		t.Errorf("Scanned = %d, want 6", report.Scanned)
	}

	want := []string{"BBB", "AAA", "EEE"}
	if len(report.Signals) != len(want) {
		t.Fatalf("got %d signals, want %d", len(report.Signals), len(want))
	}
	for i, sym := range want {
		if report.Signals[i].Symbol != sym {
			t.Errorf("Signals[%d] = %s, want %s", i, report.Signals[i].Symbol, sym)
		}
	}

	if len(report.Failures) != 1 {
		t.Fatalf("Failures = %v, want one entry", report.Failures)
	}
	if !errors.Is(report.Failures["BAD"], core.ErrDataUnavailable) {
		t.Errorf("BAD failure = %v, want DATA_UNAVAILABLE", report.Failures["BAD"])
	}
}

func TestScanner_InsufficientHistoryIsSkipped(t *testing.T) {
	votes := map[string]strategy.Vote{"AAA": {Action: core.ActionBuy, Confidence: 80}}
	s := New(Config{}, &fakeSource{bars: 30}, newEngine(votes), nil)

	report, err := s.Scan(context.Background(), []string{"AAA"}, 0)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(report.Signals) != 0 {
		t.Errorf("expected no signals, got %d", len(report.Signals))
	}
	if !errors.Is(report.Failures["AAA"], core.ErrInsufficientData) {
		t.Errorf("failure = %v, want INSUFFICIENT_DATA", report.Failures["AAA"])
	}
}

func TestScanner_UsesConfiguredSymbols(t *testing.T) {
	votes := map[string]strategy.Vote{"AAA": {Action: core.ActionBuy, Confidence: 80}}
	s := New(Config{Symbols: []string{"AAA"}}, &fakeSource{bars: 60}, newEngine(votes), nil)

	report, err := s.Scan(context.Background(), nil, 0)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if report.Scanned != 1 || len(report.Signals) != 1 {
		t.Errorf("report = %+v", report)
	}
}

func TestScanner_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New(Config{}, &fakeSource{bars: 60}, newEngine(nil), nil)
	if _, err := s.Scan(ctx, []string{"AAA", "BBB"}, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestScanner_MinConfidenceOverride(t *testing.T) {
	votes := map[string]strategy.Vote{
		"AAA": {Action: core.ActionBuy, Confidence: 45},
		"BBB": {Action: core.ActionSell, Confidence: 85},
	}
	s := New(Config{}, &fakeSource{bars: 60}, newEngine(votes), nil)

	report, err := s.Scan(context.Background(), []string{"AAA", "BBB"}, 40)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(report.Signals) != 2 {
		t.Errorf("got %d signals, want 2", len(report.Signals))
	}

	report, _ = s.Scan(context.Background(), []string{"AAA", "BBB"}, 90)
	if len(report.Signals) != 0 {
		t.Errorf("got %d signals, want 0", len(report.Signals))
	}
}

func TestScanner_Analyze(t *testing.T) {
	votes := map[string]strategy.Vote{"AAA": {Action: core.ActionBuy, Confidence: 80, Entry: 101}}
	src := &fakeSource{bars: 60, quotes: map[string]float64{"AAA": 101}}
	s := New(Config{}, src, newEngine(votes), nil)

	a, err := s.Analyze(context.Background(), "AAA", "")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if a.Signal.Strategy != strategy.NameCombined {
		t.Errorf("Strategy = %s, want combined", a.Signal.Strategy)
	}
	if a.Signal.Timeframe != "1d" {
		t.Errorf("Timeframe = %s, want 1d", a.Signal.Timeframe)
	}
	if a.Indicators.RSI != 50 {
		t.Errorf("RSI on flat series = %v, want 50", a.Indicators.RSI)
	}
	if len(a.Hints) == 0 {
		t.Error("expected indicator hints")
	}
}

func TestConfig_WithDefaults(t *testing.T) {
	cfg := Config{}.WithDefaults()

	if cfg.Workers != 10 {
		t.Errorf("Workers = %d, want 10", cfg.Workers)
	}
	if cfg.LookbackDays != 120 {
		t.Errorf("LookbackDays = %d, want 120", cfg.LookbackDays)
	}
	if cfg.MinConfidence != 60 {
		t.Errorf("MinConfidence = %d, want 60", cfg.MinConfidence)
	}
	if cfg.Interval != 15*time.Minute {
		t.Errorf("Interval = %v, want 15m", cfg.Interval)
	}
}
