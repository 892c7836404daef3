package policysource

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce coalesces the burst of filesystem events an editor
// save produces into one reload.
const reloadDebounce = 200 * time.Millisecond

// Watcher reloads a FileSource when its file changes and hands the new
// policy set to a callback.
type Watcher struct {
	source   *FileSource
	onReload func(*PolicySet)
	logger   *slog.Logger
}

// NewWatcher creates a watcher over source. onReload is called with
// each successfully loaded policy set.
func NewWatcher(source *FileSource, onReload func(*PolicySet)) *Watcher {
	return &Watcher{
		source:   source,
		onReload: onReload,
		logger:   slog.Default().With("component", "policysource.watcher"),
	}
}

// Start watches until ctx is cancelled. The file's directory is
// watched rather than the file itself so atomic rename-style saves keep
// working.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	dir := filepath.Dir(w.source.Path())
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	go w.run(ctx, fsw)
	w.logger.Info("policy file watcher started", "path", w.source.Path())
	return nil
}

func (w *Watcher) run(ctx context.Context, fsw *fsnotify.Watcher) {
	defer fsw.Close()

	target := filepath.Clean(w.source.Path())
	var debounce *time.Timer
	var debounceC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(reloadDebounce)
				debounceC = debounce.C
			} else {
				debounce.Reset(reloadDebounce)
			}

		case <-debounceC:
			debounce = nil
			debounceC = nil
			w.reload()

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("policy file watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	set, err := w.source.Load()
	if err != nil {
		// A bad reload keeps the previous policy set in effect.
		w.logger.Error("policy reload failed, keeping previous policies", "error", err)
		return
	}
	w.logger.Info("policy overrides reloaded", "path", w.source.Path())
	w.onReload(set)
}
