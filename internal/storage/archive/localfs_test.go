// internal/storage/archive/localfs_test.go
package archive

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/newthinker/algotrade/internal/core"
)

func TestLocalFS_ImplementsStorage(t *testing.T) {
	var _ Storage = (*LocalFS)(nil)
}

func TestLocalFS_WriteRead(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewLocalFS(dir)
	if err != nil {
		t.Fatalf("NewLocalFS: %v", err)
	}

	ctx := context.Background()
	data := []byte(`{"run_id":"r1"}`)

	if err := fs.Write(ctx, "backtests/AAPL/r1.json", data); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := fs.Read(ctx, "backtests/AAPL/r1.json")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if string(got) != string(data) {
		t.Errorf("got %q, want %q", got, data)
	}

	if _, err := os.Stat(filepath.Join(dir, "backtests/AAPL/r1.json.tmp")); !os.IsNotExist(err) {
		t.Error("temp file left behind")
	}
}

func TestLocalFS_ReadMissing(t *testing.T) {
	fs, _ := NewLocalFS(t.TempDir())

	_, err := fs.Read(context.Background(), "nope.json")
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestLocalFS_StaysUnderBase(t *testing.T) {
	dir := t.TempDir()
	fs, _ := NewLocalFS(filepath.Join(dir, "archive"))
	ctx := context.Background()

	if err := fs.Write(ctx, "../../escape.txt", []byte("x")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "escape.txt")); !os.IsNotExist(err) {
		t.Error("write escaped the archive root")
	}
	if ok, _ := fs.Exists(ctx, "escape.txt"); !ok {
		t.Error("expected file rooted inside the archive")
	}
}

func TestLocalFS_Exists(t *testing.T) {
	dir := t.TempDir()
	fs, _ := NewLocalFS(dir)
	ctx := context.Background()

	exists, _ := fs.Exists(ctx, "nonexistent.txt")
	if exists {
		t.Error("expected false for nonexistent file")
	}

	fs.Write(ctx, "exists.txt", []byte("data"))
	exists, _ = fs.Exists(ctx, "exists.txt")
	if !exists {
		t.Error("expected true for existing file")
	}
}

func TestLocalFS_List(t *testing.T) {
	dir := t.TempDir()
	fs, _ := NewLocalFS(dir)
	ctx := context.Background()

	fs.Write(ctx, "backtests/AAPL/a.json", []byte("a"))
	fs.Write(ctx, "backtests/AAPL/b.json", []byte("b"))
	fs.Write(ctx, "backtests/MSFT/c.json", []byte("c"))

	paths, err := fs.List(ctx, "backtests/AAPL")
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	if len(paths) != 2 {
		t.Errorf("expected 2 paths, got %d", len(paths))
	}

	paths, err = fs.List(ctx, "backtests/GOOG")
	if err != nil || len(paths) != 0 {
		t.Errorf("List(missing) = %v, %v; want empty, nil", paths, err)
	}
}

func TestLocalFS_Delete(t *testing.T) {
	dir := t.TempDir()
	fs, _ := NewLocalFS(dir)
	ctx := context.Background()

	fs.Write(ctx, "delete.txt", []byte("data"))
	fs.Delete(ctx, "delete.txt")

	exists, _ := fs.Exists(ctx, "delete.txt")
	if exists {
		t.Error("file should be deleted")
	}
}
