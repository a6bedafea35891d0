package notifier

import (
	"context"

	"github.com/newthinker/algotrade/internal/core"
)

// Notifier forwards signals to subscribers
type Notifier interface {
	// Name returns the unique identifier for this notifier
	Name() string

	// Send sends a single signal notification
	Send(ctx context.Context, signal core.Signal) error

	// SendBatch sends multiple signal notifications
	SendBatch(ctx context.Context, signals []core.Signal) error
}
