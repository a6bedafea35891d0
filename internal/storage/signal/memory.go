// internal/storage/signal/memory.go
package signal

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/newthinker/algotrade/internal/core"
)

// DefaultMaxSize bounds a MemoryStore created with a non-positive size
const DefaultMaxSize = 10000

// MemoryStore is an in-memory signal store.
type MemoryStore struct {
	signals []core.Signal
	maxSize int
	mu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory store with max capacity.
func NewMemoryStore(maxSize int) *MemoryStore {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &MemoryStore{
		signals: make([]core.Signal, 0, min(maxSize, 1024)),
		maxSize: maxSize,
	}
}

// Save adds a signal to the store.
func (m *MemoryStore) Save(ctx context.Context, signal core.Signal) (core.Signal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if signal.ID == "" {
		signal.ID = uuid.NewString()
	}

	m.signals = append(m.signals, signal)

	// Trim if over capacity (remove oldest)
	if len(m.signals) > m.maxSize {
		m.signals = m.signals[len(m.signals)-m.maxSize:]
	}

	return signal, nil
}

// GetByID retrieves a signal by ID.
func (m *MemoryStore) GetByID(ctx context.Context, id string) (*core.Signal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := range m.signals {
		if m.signals[i].ID == id {
			sig := m.signals[i]
			return &sig, nil
		}
	}
	return nil, core.ErrNotFound
}

// List returns signals matching the filter, most recently saved first.
func (m *MemoryStore) List(ctx context.Context, filter ListFilter) ([]core.Signal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []core.Signal{}
	for i := len(m.signals) - 1; i >= 0; i-- {
		if filter.matches(m.signals[i]) {
			result = append(result, m.signals[i])
		}
	}

	// Apply offset and limit
	if filter.Offset >= len(result) {
		return []core.Signal{}, nil
	}
	if filter.Offset > 0 {
		result = result[filter.Offset:]
	}

	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}

	return result, nil
}

// Count returns the count of matching signals.
func (m *MemoryStore) Count(ctx context.Context, filter ListFilter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, sig := range m.signals {
		if filter.matches(sig) {
			count++
		}
	}
	return count, nil
}

func (f ListFilter) matches(sig core.Signal) bool {
	if f.Symbol != "" && sig.Symbol != f.Symbol {
		return false
	}
	if f.Strategy != "" && sig.Strategy != f.Strategy {
		return false
	}
	if f.Action != "" && sig.Action != f.Action {
		return false
	}
	if sig.Confidence < f.MinConfidence {
		return false
	}
	if !f.From.IsZero() && sig.Timestamp.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && sig.Timestamp.After(f.To) {
		return false
	}
	return true
}
