package app

import (
	"fmt"
	"io"

	"github.com/newthinker/algotrade/internal/collector/csvfile"
	"github.com/newthinker/algotrade/internal/collector/yahoo"
	"github.com/newthinker/algotrade/internal/config"
	"github.com/newthinker/algotrade/internal/metrics"
	"github.com/newthinker/algotrade/internal/notifier/webhook"
	"github.com/newthinker/algotrade/internal/storage/archive"
	"github.com/newthinker/algotrade/internal/storage/signal"
	"go.uber.org/zap"
)

// FromConfig builds an App with the collectors, stores, archive, notifiers
// and metrics named by cfg. The returned closer releases the signal store.
func FromConfig(cfg *config.Config, logger *zap.Logger) (*App, io.Closer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	a, err := New(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	// csv first so local fixtures win over the network source
	if cfg.Collectors.CSV.Enabled {
		a.RegisterCollector(csvfile.New(cfg.Collectors.CSV))
	}
	if cfg.Collectors.Yahoo.Enabled {
		a.RegisterCollector(yahoo.New(cfg.Collectors.Yahoo))
	}

	var closer io.Closer = nopCloser{}
	if cfg.Storage.Signals.Driver == "sqlite" {
		store, err := signal.NewSQLiteStore(cfg.Storage.Signals.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("opening signal store: %w", err)
		}
		a.SetSignalStore(store)
		closer = store
	}

	storage, err := archive.New(cfg.Storage.Archive)
	if err != nil {
		closer.Close()
		return nil, nil, fmt.Errorf("opening archive: %w", err)
	}
	a.SetArchive(storage)

	if wh := cfg.Notifiers.Webhook; wh.Enabled {
		n, err := webhook.New(wh.URL, wh.Headers)
		if err != nil {
			closer.Close()
			return nil, nil, err
		}
		if err := a.RegisterNotifier(n); err != nil {
			closer.Close()
			return nil, nil, err
		}
	}

	if cfg.Metrics.Enabled {
		a.SetMetrics(metrics.NewRegistry())
	}

	return a, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
