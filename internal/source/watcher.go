package source

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// Watch calls onChange every time the file at path is written, created or
// replaced, after debounce has passed without further events. The parent
// directory is watched so atomic rename-over saves are seen. Watch blocks
// until ctx is done. Errors from onChange are logged, not returned.
func Watch(ctx context.Context, path string, debounce time.Duration, onChange func(context.Context) error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			ctxzap.Warn(ctx, "corpus watcher error", zap.Error(err))

		case <-timer.C:
			ctxzap.Info(ctx, "corpus changed", zap.String("path", abs))
			if err := onChange(ctx); err != nil {
				ctxzap.Error(ctx, "corpus change handler failed", zap.Error(err))
			}
		}
	}
}
