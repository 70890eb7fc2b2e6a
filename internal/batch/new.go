package batch

import (
	"sync"

	"captionforge/internal/config"
	"captionforge/internal/gate"
	"captionforge/internal/logger"
	"captionforge/internal/media"
	"captionforge/internal/queue"
)

type implCoordinator struct {
	queue  *queue.Queue
	gate   gate.Gate
	media  media.Toolkit
	cfg    config.BatchConfig
	sink   StatusSink
	logger logger.Logger

	mu       sync.Mutex
	batches  map[string]*Batch
	monthKey string
	monthly  int
}

// New creates the batch Coordinator. sink may be nil when no status
// aggregation is wanted.
func New(q *queue.Queue, g gate.Gate, tk media.Toolkit, cfg config.BatchConfig, sink StatusSink, log logger.Logger) Coordinator {
	return &implCoordinator{
		queue:   q,
		gate:    g,
		media:   tk,
		cfg:     cfg,
		sink:    sink,
		logger:  log,
		batches: make(map[string]*Batch),
	}
}
