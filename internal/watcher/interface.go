package watcher

import "context"

// Watcher monitors the input directory and submits newly dropped media
// files for processing.
type Watcher interface {
	Start(ctx context.Context) error
	Stop() error
}

// EventHandler receives the path of a settled media file.
type EventHandler func(ctx context.Context, filePath string) error
