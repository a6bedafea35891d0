package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/newthinker/algotrade/internal/backtest"
)

const resultsRoot = "backtests"

// Results stores backtest results as JSON documents at
// backtests/<symbol>/<run_id>.json
type Results struct {
	storage Storage
}

// NewResults wraps a storage backend
func NewResults(storage Storage) *Results {
	return &Results{storage: storage}
}

// ResultPath returns the archive path of a run
func ResultPath(symbol, runID string) string {
	return path.Join(resultsRoot, symbolDir(symbol), sanitize(runID)+".json")
}

// Save writes res, which must carry a RunID
func (r *Results) Save(ctx context.Context, res *backtest.Result) (string, error) {
	if res.RunID == "" {
		return "", fmt.Errorf("archive: result has no run id")
	}

	data, err := json.Marshal(res)
	if err != nil {
		return "", fmt.Errorf("archive: marshal result: %w", err)
	}

	p := ResultPath(res.Config.Symbol, res.RunID)
	if err := r.storage.Write(ctx, p, data); err != nil {
		return "", fmt.Errorf("archive: write %s: %w", p, err)
	}
	return p, nil
}

// Load reads one run
func (r *Results) Load(ctx context.Context, symbol, runID string) (*backtest.Result, error) {
	data, err := r.storage.Read(ctx, ResultPath(symbol, runID))
	if err != nil {
		return nil, err
	}

	var res backtest.Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("archive: decode result: %w", err)
	}
	return &res, nil
}

// RunIDs lists the archived run ids for symbol in sorted order
func (r *Results) RunIDs(ctx context.Context, symbol string) ([]string, error) {
	paths, err := r.storage.List(ctx, path.Join(resultsRoot, symbolDir(symbol)))
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(paths))
	for _, p := range paths {
		if strings.HasSuffix(p, ".json") {
			ids = append(ids, strings.TrimSuffix(path.Base(p), ".json"))
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func symbolDir(symbol string) string {
	return strings.ToUpper(sanitize(symbol))
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ' ':
			return '_'
		}
		return r
	}, strings.TrimSpace(s))
}
