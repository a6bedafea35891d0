package strategy

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/newthinker/algotrade/internal/core"
	"go.uber.org/zap"
)

// DefaultTimeframe is stamped on signals when the input names none
const DefaultTimeframe = "1d"

// Engine manages named strategies and turns their votes into signals
type Engine struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
	fallback   string
	logger     *zap.Logger
}

// NewEngine creates a new strategy engine
func NewEngine(logger ...*zap.Logger) *Engine {
	var l *zap.Logger
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	} else {
		l = zap.NewNop()
	}
	return &Engine{
		strategies: make(map[string]Strategy),
		fallback:   NameCombined,
		logger:     l,
	}
}

// Register adds a strategy to the engine
func (e *Engine) Register(s Strategy) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.strategies[s.Name()] = s
}

// SetFallback names the strategy used for empty or unknown names
func (e *Engine) SetFallback(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fallback = name
}

// Get retrieves a strategy by name
func (e *Engine) Get(name string) (Strategy, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.strategies[name]
	return s, ok
}

// Names returns the registered strategy names in sorted order
func (e *Engine) Names() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	names := make([]string, 0, len(e.strategies))
	for name := range e.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the named strategy, falling back for empty or unknown names
func (e *Engine) Resolve(name string) (Strategy, error) {
	if name != "" {
		if s, ok := e.Get(name); ok {
			return s, nil
		}
		e.logger.Warn("unknown strategy, using fallback",
			zap.String("strategy", name),
			zap.String("fallback", e.fallback),
		)
	}

	e.mu.RLock()
	s, ok := e.strategies[e.fallback]
	e.mu.RUnlock()
	if !ok {
		return nil, core.ErrStrategyNotFound
	}
	return s, nil
}

// Evaluate scores the input with the named strategy and builds a signal
func (e *Engine) Evaluate(name string, in Input) (core.Signal, error) {
	s, err := e.Resolve(name)
	if err != nil {
		return core.Signal{}, err
	}
	return ToSignal(s.Name(), in, s.Evaluate(in)), nil
}

// ToSignal converts a vote into a signal: confidence is truncated to an
// integer, risk levels are rounded to 2 decimals.
func ToSignal(strategyName string, in Input, v Vote) core.Signal {
	timeframe := in.Timeframe
	if timeframe == "" {
		timeframe = DefaultTimeframe
	}
	ts := in.Now
	if ts.IsZero() {
		ts = time.Now()
	}

	return core.Signal{
		Symbol:     in.Symbol,
		Action:     v.Action,
		Confidence: int(ClampConfidence(v.Confidence)),
		EntryPrice: round2(v.Entry),
		StopLoss:   round2(v.StopLoss),
		Target:     round2(v.Target),
		RiskReward: round2(v.RiskReward),
		Reasoning:  v.Reasoning,
		Strategy:   strategyName,
		Timeframe:  timeframe,
		Timestamp:  ts,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
