package service

import (
	"context"
	"fmt"

	"github.com/alucardeht/spfpack/internal/watcher"
)

// Watch refreshes the pack and rewrites the MAP on every debounced batch of
// Markdown changes until ctx is cancelled. onUpdate, when set, receives the
// result of each regeneration.
func (s *Service) Watch(ctx context.Context, onUpdate func(*MapResult, error)) error {
	var w *watcher.Watcher

	regenerate := func() {
		result, err := s.regenerate(ctx)
		if err == nil && w != nil {
			w.IgnorePath(result.Path)
		}
		if onUpdate != nil {
			onUpdate(result, err)
		}
	}

	w, err := watcher.New(s.cfg.Watcher, func(events []watcher.FileEvent) {
		if ctx.Err() != nil {
			return
		}
		log.Info("pack changed", "files", len(watcher.Paths(events)))
		regenerate()
	})
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	if err := w.AddRoot(s.dir); err != nil {
		w.Stop()
		return fmt.Errorf("watch %s: %w", s.dir, err)
	}

	regenerate()

	if err := w.Start(ctx); err != nil {
		w.Stop()
		return fmt.Errorf("start watcher: %w", err)
	}

	<-ctx.Done()
	return w.Stop()
}

func (s *Service) regenerate(ctx context.Context) (*MapResult, error) {
	if _, err := s.Refresh(ctx); err != nil {
		log.Error("refresh failed", "error", err)
		return nil, err
	}

	result, err := s.WriteMap(ctx)
	if err != nil {
		log.Error("MAP write failed", "error", err)
		return nil, err
	}
	return result, nil
}
