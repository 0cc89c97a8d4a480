package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/AtRiskMedia/tractstack-storyblok/internal/domain/entities/integration"
)

// ReloadFunc receives freshly resolved options after the options file changed.
type ReloadFunc func(ctx context.Context, opts integration.IntegrationOptions) error

// OptionsWatcher re-reads the options file on change and hands the result to a ReloadFunc.
type OptionsWatcher struct {
	path     string
	debounce time.Duration
	reload   ReloadFunc
	logger   *slog.Logger
}

// NewOptionsWatcher creates a watcher for path.
func NewOptionsWatcher(path string, debounce time.Duration, reload ReloadFunc, logger *slog.Logger) *OptionsWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &OptionsWatcher{path: path, debounce: debounce, reload: reload, logger: logger}
}

// Run blocks until ctx is done. With no path it returns immediately. Reloads
// run on the calling goroutine, one at a time, after the debounce settles.
func (w *OptionsWatcher) Run(ctx context.Context) error {
	if w.path == "" {
		w.logger.Info("Options watcher disabled (environment-only configuration)")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Editors often replace the file, so watch its directory.
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch options file: %w", err)
	}
	w.logger.Info("Watching options file for changes", slog.String("path", w.path))

	target := filepath.Clean(w.path)
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Options watcher stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.logger.Debug("Options file changed", slog.String("op", event.Op.String()))
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.apply(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("Options watcher error", slog.String("error", err.Error()))
		}
	}
}

func (w *OptionsWatcher) apply(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	opts, err := ResolveOptions(w.path)
	if err != nil {
		w.logger.Error("Options reload failed", slog.String("error", err.Error()))
		return
	}
	if err := w.reload(ctx, opts); err != nil {
		w.logger.Error("Options reload rejected, keeping previous build", slog.String("error", err.Error()))
		return
	}
	w.logger.Info("Options reloaded")
}
