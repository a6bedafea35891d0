package router

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/newthinker/algotrade/internal/core"
	"github.com/newthinker/algotrade/internal/metrics"
	"github.com/newthinker/algotrade/internal/notifier"
	"github.com/newthinker/algotrade/internal/storage/signal"
	"go.uber.org/zap"
)

// Config holds router configuration
type Config struct {
	MinConfidence    int           `mapstructure:"min_confidence"`
	CooldownDuration time.Duration `mapstructure:"cooldown_duration"`
	EnabledActions   []core.Action `mapstructure:"enabled_actions"`
}

// DefaultConfig returns default router configuration
func DefaultConfig() Config {
	return Config{
		MinConfidence:    60,
		CooldownDuration: 24 * time.Hour,
		EnabledActions:   []core.Action{core.ActionBuy, core.ActionSell},
	}
}

// Router filters signals, persists the survivors and fans them out to notifiers
type Router struct {
	cfg         Config
	registry    *notifier.Registry
	logger      *zap.Logger
	metrics     *metrics.Registry
	cooldowns   map[string]time.Time // symbol -> last signal time
	signalStore signal.Store
	now         func() time.Time
	mu          sync.RWMutex
}

// SetSignalStore sets the signal persistence store
func (r *Router) SetSignalStore(store signal.Store) {
	r.signalStore = store
}

// SetMetrics attaches a metrics registry for routed-signal counters
func (r *Router) SetMetrics(m *metrics.Registry) {
	r.metrics = m
}

// New creates a new signal router
func New(cfg Config, registry *notifier.Registry, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		cfg:       cfg,
		registry:  registry,
		logger:    logger,
		cooldowns: make(map[string]time.Time),
		now:       time.Now,
	}
}

// Route processes a signal through filters, persists it and sends it to
// notifiers. It returns the stored copy and whether the signal was routed.
func (r *Router) Route(ctx context.Context, sig core.Signal) (core.Signal, bool) {
	if !r.passesFilters(ctx, sig) {
		r.logger.Debug("signal filtered out",
			zap.String("symbol", sig.Symbol),
			zap.String("action", string(sig.Action)),
			zap.Int("confidence", sig.Confidence),
		)
		return sig, false
	}

	sig = r.persist(ctx, sig)
	r.markCooldown(sig.Symbol)

	if r.registry == nil {
		return sig, true
	}
	errs := r.registry.NotifyAll(ctx, sig)
	r.recordRouted(errs)

	r.logger.Info("signal routed",
		zap.String("symbol", sig.Symbol),
		zap.String("action", string(sig.Action)),
		zap.Int("confidence", sig.Confidence),
		zap.Int("notifiers", r.registry.Len()),
		zap.Int("errors", len(errs)),
	)

	return sig, true
}

// RouteBatch processes multiple signals and returns the routed ones
func (r *Router) RouteBatch(ctx context.Context, signals []core.Signal) []core.Signal {
	var routed []core.Signal

	for _, sig := range signals {
		if !r.passesFilters(ctx, sig) {
			continue
		}
		sig = r.persist(ctx, sig)
		r.markCooldown(sig.Symbol)
		routed = append(routed, sig)
	}

	if len(routed) == 0 || r.registry == nil {
		return routed
	}

	errs := r.registry.NotifyAllBatch(ctx, routed)
	r.recordRouted(errs)

	r.logger.Info("batch routed",
		zap.Int("total", len(signals)),
		zap.Int("routed", len(routed)),
		zap.Int("errors", len(errs)),
	)

	return routed
}

func (r *Router) persist(ctx context.Context, sig core.Signal) core.Signal {
	if r.signalStore == nil {
		return sig
	}
	stored, err := r.signalStore.Save(ctx, sig)
	if err != nil {
		r.logger.Error("failed to persist signal",
			zap.String("symbol", sig.Symbol),
			zap.Error(err),
		)
		return sig
	}
	return stored
}

func (r *Router) markCooldown(symbol string) {
	r.mu.Lock()
	r.cooldowns[symbol] = r.now()
	r.mu.Unlock()
}

func (r *Router) recordRouted(errs map[string]error) {
	for name, err := range errs {
		r.logger.Error("notifier failed",
			zap.String("notifier", name),
			zap.Error(err),
		)
	}
	if r.metrics == nil {
		return
	}
	for _, name := range r.registry.Names() {
		status := "success"
		if _, failed := errs[name]; failed {
			status = "failed"
		}
		r.metrics.RecordSignalRouted(name, status)
	}
}

// passesFilters checks if a signal passes all configured filters
func (r *Router) passesFilters(ctx context.Context, sig core.Signal) bool {
	if sig.Confidence < r.cfg.MinConfidence {
		return false
	}

	if len(r.cfg.EnabledActions) > 0 && !slices.Contains(r.cfg.EnabledActions, sig.Action) {
		return false
	}

	return !r.inCooldown(ctx, sig.Symbol)
}

// inCooldown consults the in-memory cooldowns first and then the store, so a
// restarted router still honors signals persisted by a previous process.
func (r *Router) inCooldown(ctx context.Context, symbol string) bool {
	now := r.now()

	r.mu.RLock()
	last, exists := r.cooldowns[symbol]
	r.mu.RUnlock()

	if exists && now.Sub(last) < r.cfg.CooldownDuration {
		return true
	}

	if r.signalStore == nil || r.cfg.CooldownDuration <= 0 {
		return false
	}

	recent, err := r.signalStore.List(ctx, signal.ListFilter{
		Symbol: symbol,
		From:   now.Add(-r.cfg.CooldownDuration),
		Limit:  1,
	})
	if err != nil {
		r.logger.Warn("cooldown lookup failed", zap.String("symbol", symbol), zap.Error(err))
		return false
	}
	return len(recent) > 0
}

// CleanupExpiredCooldowns removes cooldown entries older than 2x the cooldown duration.
func (r *Router) CleanupExpiredCooldowns() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	expiry := r.cfg.CooldownDuration * 2
	removed := 0

	for symbol, lastTime := range r.cooldowns {
		if now.Sub(lastTime) > expiry {
			delete(r.cooldowns, symbol)
			removed++
		}
	}

	return removed
}

// StartCleanupRoutine prunes expired cooldowns every interval until ctx is done.
// Only the in-memory map is pruned; persisted signals still count.
func (r *Router) StartCleanupRoutine(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed := r.CleanupExpiredCooldowns()
				if removed > 0 {
					r.logger.Debug("cleaned up expired cooldowns", zap.Int("removed", removed))
				}
			}
		}
	}()
}

// GetStats returns router statistics
func (r *Router) GetStats() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return map[string]any{
		"cooldowns_active": len(r.cooldowns),
		"min_confidence":   r.cfg.MinConfidence,
		"cooldown_seconds": r.cfg.CooldownDuration.Seconds(),
		"enabled_actions":  r.cfg.EnabledActions,
	}
}
