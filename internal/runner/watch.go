// File: internal/runner/watch.go
package runner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch reloads b whenever its backing file is written, created or renamed
// into place, and calls onReload after each successful reload. Editors that
// save by replacing the file are handled by watching the directory. Watch
// blocks until ctx is done.
func Watch(ctx context.Context, b *ScriptBuffer, logger *zap.Logger, onReload func()) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("watch")

	path := b.Path()
	if path == "" {
		return errors.New("script has no file to watch")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}
	logger.Info("Watching script for changes.", zap.String("path", abs))

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			if err := b.Load(abs); err != nil {
				// Truncate-then-write saves can briefly leave the file missing.
				logger.Debug("Reload skipped.", zap.Error(err))
				continue
			}
			logger.Info("Script reloaded.", zap.Int("lines", b.Len()))
			if onReload != nil {
				onReload()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error.", zap.Error(err))
		}
	}
}
