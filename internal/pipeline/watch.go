package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// WatchFile calls onChange, debounced by delay, whenever path is written,
// created or renamed into place. It blocks until ctx is cancelled.
//
// The parent directory is watched rather than the file so that editors which
// save by rename keep triggering events.
func WatchFile(ctx context.Context, logger *zap.Logger, path string, delay time.Duration, onChange func()) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	debouncer := NewDebouncer(delay, onChange)
	defer debouncer.Stop()

	logger.Info("watching file for changes",
		zap.String("op", "pipeline.WatchFile"),
		zap.String("path", abs),
		zap.Duration("debounce", debouncer.delay),
	)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				logger.Debug("file changed",
					zap.String("op", "pipeline.WatchFile"),
					zap.String("event", event.Op.String()),
				)
				debouncer.Trigger()
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher error",
				zap.String("op", "pipeline.WatchFile"),
				zap.Error(err),
			)
		}
	}
}
