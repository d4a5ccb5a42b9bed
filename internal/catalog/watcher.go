package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a file-backed catalog into a Holder whenever the file is
// written. A reload that fails to parse keeps the previous index.
type Watcher struct {
	source FileSource
	holder *Holder
	logger *slog.Logger
}

func NewWatcher(source FileSource, holder *Holder, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{source: source, holder: holder, logger: logger}
}

// Run blocks until ctx is cancelled or the underlying watcher fails.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.source.Path); err != nil {
		return fmt.Errorf("watch %s: %w", w.source.Path, err)
	}

	w.logger.Info("watching catalog for changes", slog.String("path", w.source.Path))

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("catalog watch stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.reload(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("catalog watch error", slog.String("error", err.Error()))
		}
	}
}

func (w *Watcher) reload(ctx context.Context) {
	idx, err := Load(ctx, w.source)
	if err != nil {
		w.logger.Error("failed to reload catalog",
			slog.String("path", w.source.Path),
			slog.String("error", err.Error()))
		return
	}
	w.holder.Replace(idx)
	w.logger.Info("catalog reloaded",
		slog.String("path", w.source.Path),
		slog.Int("entries", idx.Len()))
}
