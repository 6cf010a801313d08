package repowatch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherFiresOnFileWrite(t *testing.T) {
	root := t.TempDir()
	modelDir := filepath.Join(root, "preprocess")
	if err := os.MkdirAll(modelDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	fired := make(chan struct{}, 1)
	w, err := New([]string{root}, func() {
		select {
		case fired <- struct{}{}:
		default:
		}
	}, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	cfgPath := filepath.Join(modelDir, "config.json")
	if err := os.WriteFile(cfgPath, []byte(`{}`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatalf("handler was not called after file write")
	}
}

func TestWatcherDebouncesBurstsIntoOneCall(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "preprocess"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	var calls int
	done := make(chan struct{})
	w, err := New([]string{root}, func() {
		calls++
		select {
		case done <- struct{}{}:
		default:
		}
	}, 200*time.Millisecond)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	for i := 0; i < 5; i++ {
		p := filepath.Join(root, "preprocess", "f"+string(rune('a'+i)))
		_ = os.WriteFile(p, []byte("x"), 0o644)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("handler was never called")
	}
	if calls != 1 {
		t.Fatalf("calls=%d, want exactly 1 debounced call", calls)
	}
}
