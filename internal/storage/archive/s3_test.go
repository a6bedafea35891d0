// internal/storage/archive/s3_test.go
package archive

import (
	"errors"
	"strings"
	"testing"

	"github.com/newthinker/algotrade/internal/core"
)

func TestS3Storage_ImplementsStorage(t *testing.T) {
	var _ Storage = (*S3Storage)(nil)
}

func TestS3Config_Key(t *testing.T) {
	tests := []struct {
		prefix string
		path   string
		want   string
	}{
		{"", "backtests/AAPL/run.json", "backtests/AAPL/run.json"},
		{"algotrade", "backtests/AAPL/run.json", "algotrade/backtests/AAPL/run.json"},
		{"algotrade/", "run.json", "algotrade/run.json"},
	}

	for _, tt := range tests {
		s := &S3Storage{prefix: strings.TrimSuffix(tt.prefix, "/")}
		got := s.key(tt.path)
		if got != tt.want {
			t.Errorf("key(%q) with prefix %q = %q, want %q", tt.path, tt.prefix, got, tt.want)
		}
	}
}

func TestNewS3_RequiresBucket(t *testing.T) {
	_, err := NewS3(S3Config{Region: "us-east-1"})
	if !errors.Is(err, core.ErrConfigMissing) {
		t.Errorf("error = %v, want ErrConfigMissing", err)
	}

	s, err := NewS3(S3Config{Bucket: "results", Endpoint: "http://localhost:9000"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.bucket != "results" {
		t.Errorf("bucket = %s, want results", s.bucket)
	}
}

func TestNew_SelectsBackend(t *testing.T) {
	st, err := New(Config{Type: "localfs", Path: t.TempDir()})
	if err != nil {
		t.Fatalf("localfs: %v", err)
	}
	if _, ok := st.(*LocalFS); !ok {
		t.Errorf("got %T, want *LocalFS", st)
	}

	st, err = New(Config{Type: "s3", S3: S3Config{Bucket: "b"}})
	if err != nil {
		t.Fatalf("s3: %v", err)
	}
	if _, ok := st.(*S3Storage); !ok {
		t.Errorf("got %T, want *S3Storage", st)
	}

	if _, err := New(Config{Type: "ftp"}); err == nil {
		t.Error("expected error for unknown type")
	}
}
