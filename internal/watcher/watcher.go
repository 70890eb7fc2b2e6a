package watcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"captionforge/internal/batch"
	"captionforge/internal/logger"
)

type implWatcher struct {
	inputDir    string
	handler     EventHandler
	settleDelay time.Duration
	logger      logger.Logger
	watcher     *fsnotify.Watcher
	wg          sync.WaitGroup
}

// Start monitors the input directory until ctx is cancelled. Each new media
// file is handed to the handler after the settle delay; admission and
// concurrency are the queue's business, so the handler is expected to
// return quickly.
func (w *implWatcher) Start(ctx context.Context) error {
	w.logger.Info(ctx, "File watcher started. Monitoring: %s", w.inputDir)

	for {
		select {
		case <-ctx.Done():
			w.wg.Wait()
			w.logger.Info(ctx, "File watcher stopped")
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if event.Op&fsnotify.Create != fsnotify.Create {
				continue
			}
			if !batch.SupportedFile(event.Name) {
				w.logger.Debug(ctx, "Ignoring non-media file: %s", event.Name)
				continue
			}

			w.logger.Info(ctx, "New media file detected: %s", event.Name)
			w.wg.Add(1)
			go func(filePath string) {
				defer w.wg.Done()

				// Let the producer finish writing before submission.
				select {
				case <-time.After(w.settleDelay):
				case <-ctx.Done():
					return
				}

				if err := w.handler(ctx, filePath); err != nil {
					w.logger.Error(ctx, "Failed to submit %s: %v", filePath, err)
				}
			}(event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error(ctx, "Watcher error: %v", err)
		}
	}
}

// Stop closes the underlying filesystem watcher.
func (w *implWatcher) Stop() error {
	return w.watcher.Close()
}
