package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/alucardeht/spfpack/internal/logger"
)

var log = logger.ForComponent("watcher")

// Watcher watches pack directories recursively and reports debounced
// batches of relevant file events to onChange.
type Watcher struct {
	config      WatcherConfig
	fsWatcher   *fsnotify.Watcher
	fsWatcherMu sync.Mutex
	debouncer   *Debouncer
	onChange    func([]FileEvent)
	roots       []string
	ignored     map[string]bool
	mu          sync.RWMutex
	running     bool
	ctx         context.Context
	cancel      context.CancelFunc
	done        chan struct{}
}

func New(config WatcherConfig, onChange func([]FileEvent)) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		config:    config,
		fsWatcher: fsWatcher,
		onChange:  onChange,
		roots:     make([]string, 0),
		ignored:   make(map[string]bool),
	}

	w.debouncer = NewDebouncer(config.DebounceWindow, config.MaxBatchSize, w.onFlush)

	return w, nil
}

func (w *Watcher) addToWatcher(path string) error {
	w.fsWatcherMu.Lock()
	defer w.fsWatcherMu.Unlock()
	return w.fsWatcher.Add(path)
}

// IgnorePath suppresses events for one exact file, typically a file the
// caller writes itself in response to changes.
func (w *Watcher) IgnorePath(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	w.mu.Lock()
	w.ignored[filepath.Clean(abs)] = true
	w.mu.Unlock()
}

func (w *Watcher) AddRoot(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	log.Info("adding root to watch", "path", abs)

	if err := w.addToWatcher(abs); err != nil {
		return err
	}

	w.mu.Lock()
	w.roots = append(w.roots, abs)
	w.mu.Unlock()

	return w.walkAndAdd(abs)
}

func (w *Watcher) walkAndAdd(path string) error {
	entries, err := os.ReadDir(path)
	if err != nil {
		log.Debug("failed to read directory", "path", path, "error", err)
		return err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		fullPath := filepath.Join(path, entry.Name())
		if w.shouldIgnore(fullPath) {
			continue
		}

		if err := w.addToWatcher(fullPath); err != nil {
			log.Debug("failed to watch directory", "path", fullPath, "error", err)
			continue
		}
		log.Debug("watching directory", "path", fullPath)
		_ = w.walkAndAdd(fullPath)
	}

	return nil
}

func (w *Watcher) Start(ctx context.Context) error {
	log.Info("starting file watcher")

	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}

	w.running = true
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	w.mu.Unlock()

	go w.handleEvents()

	return nil
}

func (w *Watcher) handleEvents() {
	defer close(w.done)

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}

			log.Debug("file event", "path", event.Name, "op", event.Op.String())

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if !w.shouldIgnore(event.Name) {
						if err := w.addToWatcher(event.Name); err == nil {
							_ = w.walkAndAdd(event.Name)
						}
					}
					continue
				}
			}

			if fileEvent := w.convertEvent(event); fileEvent != nil {
				w.debouncer.Add(*fileEvent)
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.Warn("watcher error", "error", err)
		}
	}
}

func (w *Watcher) convertEvent(event fsnotify.Event) *FileEvent {
	if w.shouldIgnore(event.Name) || !w.hasWatchedExtension(event.Name) {
		return nil
	}

	var eventType EventType

	switch {
	case event.Has(fsnotify.Create):
		eventType = EventCreate
	case event.Has(fsnotify.Write):
		eventType = EventModify
	case event.Has(fsnotify.Remove):
		eventType = EventDelete
	case event.Has(fsnotify.Rename):
		eventType = EventRename
	default:
		return nil
	}

	return &FileEvent{
		Path:      event.Name,
		Type:      eventType,
		Timestamp: time.Now(),
	}
}

func (w *Watcher) onFlush(events []FileEvent) {
	log.Info("flushing events", "count", len(events))

	if len(events) == 0 || w.onChange == nil {
		return
	}

	w.onChange(events)
}

func (w *Watcher) hasWatchedExtension(path string) bool {
	if len(w.config.Extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, want := range w.config.Extensions {
		if ext == strings.ToLower(want) {
			return true
		}
	}
	return false
}

func (w *Watcher) shouldIgnore(path string) bool {
	clean := filepath.Clean(path)

	w.mu.RLock()
	ignored := w.ignored[clean]
	roots := w.roots
	w.mu.RUnlock()

	if ignored {
		return true
	}

	basename := filepath.Base(clean)
	if !w.config.WatchHidden && strings.HasPrefix(basename, ".") {
		return true
	}

	candidates := []string{filepath.ToSlash(clean)}
	for _, root := range roots {
		if rel, err := filepath.Rel(root, clean); err == nil && !strings.HasPrefix(rel, "..") {
			candidates = append(candidates, filepath.ToSlash(rel))
		}
	}

	for _, pattern := range w.config.IgnorePatterns {
		for _, candidate := range candidates {
			if match, _ := doublestar.Match(pattern, candidate); match {
				return true
			}
		}
	}

	return false
}

func (w *Watcher) Stop() error {
	log.Info("stopping file watcher")

	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return w.closeFS()
	}

	w.running = false
	w.cancel()
	done := w.done
	w.mu.Unlock()

	<-done
	w.debouncer.Stop()

	return w.closeFS()
}

func (w *Watcher) closeFS() error {
	w.fsWatcherMu.Lock()
	defer w.fsWatcherMu.Unlock()
	return w.fsWatcher.Close()
}
