package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestDebouncerCoalescesPerPath(t *testing.T) {
	flushed := make(chan []FileEvent, 4)
	d := NewDebouncer(50*time.Millisecond, 100, func(events []FileEvent) {
		flushed <- events
	})
	defer d.Stop()

	d.Add(FileEvent{Path: "b.md", Type: EventCreate})
	d.Add(FileEvent{Path: "a.md", Type: EventModify})
	d.Add(FileEvent{Path: "b.md", Type: EventModify})

	select {
	case events := <-flushed:
		if len(events) != 2 {
			t.Fatalf("expected 2 coalesced events, got %d", len(events))
		}
		if events[0].Path != "a.md" || events[1].Path != "b.md" {
			t.Errorf("expected events sorted by path, got %s, %s", events[0].Path, events[1].Path)
		}
		if events[1].Type != EventModify {
			t.Errorf("expected latest event type to win, got %s", events[1].Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("debouncer never flushed")
	}
}

func TestDebouncerFlushesAtMaxBatch(t *testing.T) {
	var mu sync.Mutex
	var batches [][]FileEvent
	d := NewDebouncer(time.Hour, 2, func(events []FileEvent) {
		mu.Lock()
		batches = append(batches, events)
		mu.Unlock()
	})
	defer d.Stop()

	d.Add(FileEvent{Path: "a.md"})
	d.Add(FileEvent{Path: "b.md"})

	mu.Lock()
	defer mu.Unlock()
	if len(batches) != 1 || len(batches[0]) != 2 {
		t.Fatalf("expected one batch of 2, got %v", batches)
	}
	if d.Pending() != 0 {
		t.Errorf("expected nothing pending, got %d", d.Pending())
	}
}

func TestDebouncerStopFlushesPending(t *testing.T) {
	var got []FileEvent
	d := NewDebouncer(time.Hour, 100, func(events []FileEvent) {
		got = events
	})

	d.Add(FileEvent{Path: "a.md"})
	d.Stop()

	if len(got) != 1 {
		t.Fatalf("expected pending event flushed on stop, got %d", len(got))
	}

	d.Add(FileEvent{Path: "b.md"})
	if d.Pending() != 0 {
		t.Error("stopped debouncer should drop new events")
	}
}

func TestPathsDeduplicates(t *testing.T) {
	paths := Paths([]FileEvent{{Path: "a"}, {Path: "b"}, {Path: "a"}})
	if len(paths) != 2 || paths[0] != "a" || paths[1] != "b" {
		t.Errorf("unexpected paths: %v", paths)
	}
}

func TestShouldIgnore(t *testing.T) {
	root := t.TempDir()
	w, err := New(DefaultWatcherConfig(), nil)
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer w.Stop()

	if err := w.AddRoot(root); err != nil {
		t.Fatalf("add root: %v", err)
	}
	generated := filepath.Join(root, "07-map", "DP.MAP.001.md")
	w.IgnorePath(generated)

	tests := []struct {
		path   string
		ignore bool
	}{
		{filepath.Join(root, "01-distinctions", "DP.D.001.md"), false},
		{filepath.Join(root, ".git", "HEAD"), true},
		{filepath.Join(root, "node_modules", "x", "y.md"), true},
		{filepath.Join(root, ".hidden.md"), true},
		{filepath.Join(root, "draft.md.swp"), true},
		{generated, true},
	}

	for _, tt := range tests {
		if got := w.shouldIgnore(tt.path); got != tt.ignore {
			t.Errorf("shouldIgnore(%s) = %v, want %v", tt.path, got, tt.ignore)
		}
	}
}

func TestHasWatchedExtension(t *testing.T) {
	w := &Watcher{config: DefaultWatcherConfig()}
	if !w.hasWatchedExtension("a/B.MD") {
		t.Error("expected .MD to match case-insensitively")
	}
	if w.hasWatchedExtension("a/b.txt") {
		t.Error("expected .txt to be filtered")
	}

	w.config.Extensions = nil
	if !w.hasWatchedExtension("a/b.txt") {
		t.Error("empty extension list should accept everything")
	}
}

func TestWatcherReportsMarkdownChanges(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "03-methods")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultWatcherConfig()
	cfg.DebounceWindow = 50 * time.Millisecond

	changes := make(chan []FileEvent, 8)
	w, err := New(cfg, func(events []FileEvent) { changes <- events })
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	if err := w.AddRoot(root); err != nil {
		t.Fatalf("add root: %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(sub, "notes.txt"), []byte("ignored"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "DP.M.001.md"), []byte("---\nid: DP.M.001\n---\n"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case events := <-changes:
		for _, e := range events {
			if filepath.Ext(e.Path) != ".md" {
				t.Errorf("unexpected non-markdown event: %s", e.Path)
			}
		}
		if filepath.Base(events[0].Path) != "DP.M.001.md" {
			t.Errorf("expected DP.M.001.md event, got %s", events[0].Path)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}
}
