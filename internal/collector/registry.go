package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/newthinker/algotrade/internal/core"
	"go.uber.org/zap"
)

// Registry manages collectors in registration order. Its fetch methods try
// each collector in turn and return the first non-empty answer.
type Registry struct {
	mu         sync.RWMutex
	collectors []Collector
	logger     *zap.Logger
}

// NewRegistry creates a new collector registry
func NewRegistry(logger ...*zap.Logger) *Registry {
	l := zap.NewNop()
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	}
	return &Registry{logger: l}
}

// Register adds a collector, replacing one with the same name in place
func (r *Registry) Register(c Collector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.collectors {
		if existing.Name() == c.Name() {
			r.collectors[i] = c
			return
		}
	}
	r.collectors = append(r.collectors, c)
}

// Get retrieves a collector by name
func (r *Registry) Get(name string) (Collector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.collectors {
		if c.Name() == name {
			return c, true
		}
	}
	return nil, false
}

// GetAll returns all registered collectors in fallback order
func (r *Registry) GetAll() []Collector {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Collector, len(r.collectors))
	copy(result, r.collectors)
	return result
}

// FetchHistory asks each collector in order for bars
func (r *Registry) FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.PriceBar, error) {
	var errs []error
	for _, c := range r.GetAll() {
		bars, err := c.FetchHistory(ctx, symbol, start, end, interval)
		if err == nil && len(bars) > 0 {
			return bars, nil
		}
		if err == nil {
			err = fmt.Errorf("%s: no bars", c.Name())
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		r.logger.Warn("collector history failed, trying next",
			zap.String("collector", c.Name()),
			zap.String("symbol", symbol),
			zap.Error(err),
		)
		errs = append(errs, err)
	}
	return nil, r.fail(symbol, errs)
}

// FetchQuote asks each collector in order for a valid quote
func (r *Registry) FetchQuote(ctx context.Context, symbol string) (*core.Quote, error) {
	var errs []error
	for _, c := range r.GetAll() {
		q, err := c.FetchQuote(ctx, symbol)
		if err == nil && q != nil && q.IsValid() {
			return q, nil
		}
		if err == nil {
			err = fmt.Errorf("%s: invalid quote", c.Name())
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		errs = append(errs, err)
	}
	return nil, r.fail(symbol, errs)
}

func (r *Registry) fail(symbol string, errs []error) error {
	if len(errs) == 0 {
		return core.WrapError(core.ErrCollectorFailed, fmt.Errorf("no collectors registered for %s", symbol))
	}
	return core.WrapError(core.ErrCollectorFailed, errors.Join(errs...))
}
