package corpus

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestWatcherIndexesNewFile(t *testing.T) {
	dir := t.TempDir()
	indexed := make(chan string, 1)

	w := NewWatcher(dir, func(path string) {
		select {
		case indexed <- path:
		default:
		}
	}, nil, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	path := filepath.Join(dir, "new_doc.md")
	if err := os.WriteFile(path, []byte("content"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-indexed:
		if got != path {
			t.Fatalf("indexed %q, want %q", got, path)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for index callback")
	}
}

func TestWatcherIgnoresUnsupportedFiles(t *testing.T) {
	dir := t.TempDir()
	indexed := make(chan string, 1)

	w := NewWatcher(dir, func(path string) { indexed <- path }, nil, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "binary.bin"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-indexed:
		t.Fatalf("unexpected index callback for %q", got)
	case <-time.After(1 * time.Second):
	}
}

func TestWatcherRemoveReportsPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "old_guide.md")
	if err := os.WriteFile(path, []byte("content"), 0o644); err != nil {
		t.Fatal(err)
	}

	removed := make(chan string, 1)
	w := NewWatcher(dir, nil, func(p string) {
		select {
		case removed <- p:
		default:
		}
	}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-removed:
		if got != path {
			t.Fatalf("removed path = %q, want %q", got, path)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for remove callback")
	}
}

func TestWatcherMissingDir(t *testing.T) {
	w := NewWatcher(filepath.Join(t.TempDir(), "does-not-exist"), nil, nil, zap.NewNop())
	if err := w.Start(context.Background()); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
