package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/buildagent/internal/logfields"
)

// Watcher monitors the settings file and invokes a callback with freshly
// loaded settings after changes settle. Reload failures keep the previous
// settings and log a warning.
type Watcher struct {
	path         string
	onReload     func(*Settings)
	watcher      *fsnotify.Watcher
	debounceTime time.Duration
}

// NewWatcher creates a settings-file watcher.
func NewWatcher(path string, onReload func(*Settings)) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to resolve settings path: %w", err)
	}
	return &Watcher{
		path:         absPath,
		onReload:     onReload,
		watcher:      w,
		debounceTime: 2 * time.Second,
	}, nil
}

// Start begins monitoring until ctx is canceled. Watches the directory
// rather than the file: editors replace files on save.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch settings directory: %w", err)
	}
	slog.Info("Watching settings file for changes", logfields.Path(w.path))
	go w.loop(ctx)
	return nil
}

// Stop releases the underlying watcher.
func (w *Watcher) Stop() error { return w.watcher.Close() }

func (w *Watcher) loop(ctx context.Context) {
	var timer *time.Timer
	reload := func() {
		s, err := Load(w.path)
		if err != nil {
			slog.Warn("Settings reload failed; keeping previous settings", logfields.Error(err))
			return
		}
		slog.Info("Settings reloaded", logfields.Path(w.path))
		w.onReload(s)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Name != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounceTime, reload)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("Settings watcher error", logfields.Error(err))
		}
	}
}
