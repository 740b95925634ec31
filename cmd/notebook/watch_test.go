package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/QuesmaOrg/demo-webr-ggplot/logging"
)

func TestWatchFiles_DebouncedChange(t *testing.T) {
	dir := t.TempDir()
	watched := filepath.Join(dir, "plot.R")
	other := filepath.Join(dir, "other.R")
	for _, p := range []string{watched, other} {
		if err := os.WriteFile(p, []byte("1"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes := make(chan string, 10)
	done := make(chan error, 1)
	go func() {
		done <- watchFiles(ctx, []string{watched}, 50*time.Millisecond, logging.Nop(), func(path string) {
			changes <- path
		})
	}()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(watched, []byte("plot(1:10)"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(other, []byte("2"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-changes:
		if got != watched {
			t.Errorf("onChange(%q), want %q", got, watched)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no change reported")
	}

	select {
	case got := <-changes:
		t.Errorf("unexpected extra change %q", got)
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("watchFiles() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watchFiles did not return after cancel")
	}
}

func TestWatchFiles_MissingDirectory(t *testing.T) {
	err := watchFiles(context.Background(), []string{filepath.Join(t.TempDir(), "nope", "a.R")}, 0, logging.Nop(), func(string) {})
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
}
