package csvfile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/newthinker/algotrade/internal/collector"
)

const fixture = `date,open,high,low,close,volume
2024-01-03,11,12,10,11.5,300
2024-01-01,10,11,9,10.5,100
2024-01-02,10.5,11.5,10,11,200
`

func TestCSVFile_ImplementsCollector(t *testing.T) {
	var _ collector.Collector = (*CSVFile)(nil)
}

func TestParse(t *testing.T) {
	bars, err := Parse(strings.NewReader(fixture), "TEST", "1d")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bars) != 3 {
		t.Fatalf("len(bars) = %d, want 3", len(bars))
	}
	if bars[0].Close != 10.5 || bars[2].Close != 11.5 {
		t.Errorf("bars not sorted: first close %v, last close %v", bars[0].Close, bars[2].Close)
	}
	if bars[1].Volume != 200 || bars[1].Symbol != "TEST" {
		t.Errorf("bars[1] = %+v", bars[1])
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"short row", "2024-01-01,1,2,3\n"},
		{"bad time", "yesterday,1,2,3,4,5\n"},
		{"bad number", "2024-01-01,1,2,x,4,5\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(strings.NewReader(tt.in), "X", ""); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestCSVFile_FetchHistory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "TEST.csv"), []byte(fixture), 0o644); err != nil {
		t.Fatal(err)
	}
	c := New(collector.Config{Dir: dir})

	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars, err := c.FetchHistory(context.Background(), "test", start, time.Time{}, "1d")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bars) != 2 {
		t.Errorf("len(bars) = %d, want 2", len(bars))
	}

	q, err := c.FetchQuote(context.Background(), "TEST")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Price != 11.5 {
		t.Errorf("Price = %v, want 11.5", q.Price)
	}
}

func TestCSVFile_RejectsPaths(t *testing.T) {
	c := New(collector.Config{Dir: t.TempDir()})
	for _, s := range []string{"", "../x", "a/b"} {
		if _, err := c.FetchHistory(context.Background(), s, time.Time{}, time.Time{}, "1d"); err == nil {
			t.Errorf("FetchHistory(%q) expected error", s)
		}
	}
}
