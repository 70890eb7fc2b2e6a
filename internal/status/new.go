package status

import (
	"net/http"
	"sync"
	"time"

	"captionforge/internal/config"
	"captionforge/internal/logger"
	"captionforge/internal/queue"
)

// Reporter drains the queue's update stream, aggregates batch progress and
// pushes events to subscribers, websockets and webhooks. It is the single
// consumer of queue.Updates().
type Reporter struct {
	queue  *queue.Queue
	cfg    config.StatusConfig
	mirror Mirror
	logger logger.Logger
	client *http.Client

	mu       sync.Mutex
	jobs     map[string]queue.Update
	batches  map[string]*batchState
	subs     map[int]*subscriber
	webhooks map[string]string
	nextSub  int

	startedAt     time.Time
	jobsCompleted int
	jobsFailed    int
}

type batchState struct {
	jobIDs       []string
	lastActivity time.Time
}

type subscriber struct {
	ch      chan Event
	batchID string // "" receives everything
}

// New creates the Reporter. mirror may be nil to disable the durable copy.
func New(q *queue.Queue, cfg config.StatusConfig, mirror Mirror, log logger.Logger) *Reporter {
	return &Reporter{
		queue:     q,
		cfg:       cfg,
		mirror:    mirror,
		logger:    log,
		client:    &http.Client{Timeout: cfg.WebhookTimeout},
		jobs:      make(map[string]queue.Update),
		batches:   make(map[string]*batchState),
		subs:      make(map[int]*subscriber),
		webhooks:  make(map[string]string),
		startedAt: time.Now(),
	}
}
