package collector

import (
	"context"
	"time"

	"github.com/newthinker/algotrade/internal/core"
)

// Config holds collector configuration
type Config struct {
	Enabled bool          `mapstructure:"enabled"`
	BaseURL string        `mapstructure:"base_url"`
	Dir     string        `mapstructure:"dir"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Collector is a market data provider
type Collector interface {
	Name() string

	// FetchQuote returns the latest quote for symbol
	FetchQuote(ctx context.Context, symbol string) (*core.Quote, error)
	// FetchHistory returns chronological bars in [start, end]
	FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.PriceBar, error)
}
