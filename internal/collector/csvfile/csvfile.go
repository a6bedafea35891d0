package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/algotrade/internal/collector"
	"github.com/newthinker/algotrade/internal/core"
)

// CSVFile serves bars from <dir>/<SYMBOL>.csv files with rows
//
//	timestamp,open,high,low,close,volume
//
// where timestamp is RFC3339 or YYYY-MM-DD. A header row is allowed.
type CSVFile struct {
	dir string
}

// New creates a CSV collector rooted at cfg.Dir
func New(cfg collector.Config) *CSVFile {
	return &CSVFile{dir: cfg.Dir}
}

func (c *CSVFile) Name() string {
	return "csv"
}

// FetchHistory reads the symbol file and keeps bars inside [start, end].
// A zero start or end leaves that side open.
func (c *CSVFile) FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.PriceBar, error) {
	bars, err := c.load(symbol, interval)
	if err != nil {
		return nil, err
	}

	out := bars[:0]
	for _, b := range bars {
		if !start.IsZero() && b.Time.Before(start) {
			continue
		}
		if !end.IsZero() && b.Time.After(end) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

// FetchQuote returns the last bar's close
func (c *CSVFile) FetchQuote(ctx context.Context, symbol string) (*core.Quote, error) {
	bars, err := c.load(symbol, "")
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("no rows for %s", symbol)
	}

	last := bars[len(bars)-1]
	return &core.Quote{
		Symbol: symbol,
		Price:  last.Close,
		Volume: last.Volume,
		Time:   last.Time,
		Source: c.Name(),
	}, nil
}

func (c *CSVFile) load(symbol, interval string) ([]core.PriceBar, error) {
	if symbol == "" || strings.ContainsAny(symbol, `/\`) || strings.Contains(symbol, "..") {
		return nil, fmt.Errorf("invalid symbol: %q", symbol)
	}

	f, err := os.Open(filepath.Join(c.dir, strings.ToUpper(symbol)+".csv"))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	bars, err := Parse(f, symbol, interval)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", symbol, err)
	}
	return bars, nil
}

// Parse reads bar rows from r and returns them sorted by time
func Parse(r io.Reader, symbol, interval string) ([]core.PriceBar, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var bars []core.PriceBar
	for line := 1; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		// Allow a single header row
		if line == 1 && isHeader(row[0]) {
			continue
		}
		if len(row) < 6 {
			return nil, fmt.Errorf("line %d: want 6 fields, got %d", line, len(row))
		}

		b, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		b.Symbol = symbol
		b.Interval = interval
		bars = append(bars, b)
	}

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

func isHeader(field string) bool {
	switch strings.ToLower(strings.TrimSpace(field)) {
	case "timestamp", "time", "date":
		return true
	}
	return false
}

func parseRow(row []string) (core.PriceBar, error) {
	ts, err := parseTime(strings.TrimSpace(row[0]))
	if err != nil {
		return core.PriceBar{}, err
	}

	var vals [5]float64
	for i := range vals {
		v, err := strconv.ParseFloat(strings.TrimSpace(row[i+1]), 64)
		if err != nil {
			return core.PriceBar{}, fmt.Errorf("bad number %q: %w", row[i+1], err)
		}
		vals[i] = v
	}

	return core.PriceBar{
		Time:   ts,
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}, nil
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("bad time %q", s)
}
