package watcher

import (
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"

	"captionforge/internal/logger"
)

// New creates a Watcher on inputDir. settleDelay is how long a new file
// must sit before it is handed to the handler, so half-copied files are
// not picked up.
func New(inputDir string, handler EventHandler, settleDelay time.Duration, log logger.Logger) (Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	if err := fsw.Add(inputDir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("add watch path: %w", err)
	}

	if settleDelay <= 0 {
		settleDelay = 500 * time.Millisecond
	}

	return &implWatcher{
		inputDir:    inputDir,
		handler:     handler,
		settleDelay: settleDelay,
		logger:      log,
		watcher:     fsw,
	}, nil
}
