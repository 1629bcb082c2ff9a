package archive

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/newthinker/crossover/internal/core"
)

func TestLocalFS_ImplementsStorage(t *testing.T) {
	var _ Storage = (*LocalFS)(nil)
}

func TestLocalFS_Put(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewLocalFS(dir)
	if err != nil {
		t.Fatalf("NewLocalFS: %v", err)
	}

	ctx := context.Background()
	data := "trade_id,entry_time\n1,2024-01-02\n"

	if err := fs.Put(ctx, "runs/abc/trades.csv", strings.NewReader(data)); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dir, "runs", "abc", "trades.csv"))
	if err != nil {
		t.Fatalf("reading stored file: %v", err)
	}
	if string(got) != data {
		t.Errorf("got %q, want %q", got, data)
	}

	// no temp files left behind
	entries, _ := os.ReadDir(filepath.Join(dir, "runs", "abc"))
	if len(entries) != 1 {
		t.Errorf("expected 1 file in run dir, got %d", len(entries))
	}
}

func TestLocalFS_PutReplaces(t *testing.T) {
	dir := t.TempDir()
	fs, _ := NewLocalFS(dir)
	ctx := context.Background()

	fs.Put(ctx, "t.csv", strings.NewReader("old content that is longer"))
	fs.Put(ctx, "t.csv", strings.NewReader("new"))

	got, err := os.ReadFile(filepath.Join(dir, "t.csv"))
	if err != nil {
		t.Fatalf("reading stored file: %v", err)
	}
	if string(got) != "new" {
		t.Errorf("got %q, want new", got)
	}
}

func TestLocalFS_Exists(t *testing.T) {
	fs, _ := NewLocalFS(t.TempDir())
	ctx := context.Background()

	exists, _ := fs.Exists(ctx, "nonexistent.csv")
	if exists {
		t.Error("expected false for nonexistent file")
	}

	fs.Put(ctx, "exists.csv", strings.NewReader("data"))
	exists, _ = fs.Exists(ctx, "exists.csv")
	if !exists {
		t.Error("expected true for existing file")
	}
}

func TestLocalFS_RejectsEscapingKeys(t *testing.T) {
	fs, _ := NewLocalFS(t.TempDir())
	for _, key := range []string{"", "../out.csv", "a/../../b.csv"} {
		err := fs.Put(context.Background(), key, strings.NewReader("x"))
		if err == nil || !strings.Contains(err.Error(), core.ErrConfigInvalid.Code) {
			t.Errorf("Put(%q) error = %v, want CONFIG_INVALID", key, err)
		}
	}
}

func TestLocalFS_PutCancelled(t *testing.T) {
	dir := t.TempDir()
	fs, _ := NewLocalFS(dir)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := fs.Put(ctx, "t.csv", strings.NewReader("data")); err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if ok, _ := fs.Exists(context.Background(), "t.csv"); ok {
		t.Error("cancelled put must not leave the object")
	}
}

func TestNew(t *testing.T) {
	s, err := New(Config{Type: "localfs", Path: t.TempDir()})
	if err != nil {
		t.Fatalf("New localfs: %v", err)
	}
	if _, ok := s.(*LocalFS); !ok {
		t.Errorf("expected *LocalFS, got %T", s)
	}

	if _, err := New(Config{Type: "s3"}); err == nil {
		t.Error("expected error for s3 without bucket")
	}
	if _, err := New(Config{Type: "ftp"}); err == nil {
		t.Error("expected error for unknown type")
	}
}
