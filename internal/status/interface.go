package status

import (
	"time"

	"captionforge/internal/queue"
)

// EventType tags a pushed status event.
type EventType string

const (
	EventJob    EventType = "job"
	EventBatch  EventType = "batch"
	EventSystem EventType = "system"
)

// Event is the envelope delivered to every subscriber, websocket and
// webhook. Exactly one payload field is set, matching Type.
type Event struct {
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Job       *queue.Update  `json:"job,omitempty"`
	Batch     *BatchProgress `json:"batch,omitempty"`
	System    *SystemMetrics `json:"system,omitempty"`
}

// BatchProgress is the aggregated view of one batch, recomputed on every
// job update. Progress counts completed jobs only; failed and cancelled
// jobs stay in the denominator, so a batch with failures never reaches 100.
type BatchProgress struct {
	BatchID    string `json:"batchId"`
	Status     string `json:"status"`
	TotalJobs  int    `json:"totalJobs"`
	Pending    int    `json:"pending"`
	Processing int    `json:"processing"`
	Completed  int    `json:"completed"`
	Failed     int    `json:"failed"`
	Cancelled  int    `json:"cancelled"`
	Progress   int    `json:"progressPercent"`
	// ETASeconds estimates time to drain the batch's remaining jobs from
	// the average duration of its completed ones. Nil until the first job
	// completes.
	ETASeconds *float64 `json:"etaSeconds,omitempty"`
}

// SystemMetrics is the pipeline-wide health snapshot.
type SystemMetrics struct {
	UptimeSeconds    float64 `json:"uptimeSeconds"`
	QueueDepth       int     `json:"queueDepth"`
	JobsCompleted    int     `json:"jobsCompleted"`
	JobsFailed       int     `json:"jobsFailed"`
	ErrorRate        float64 `json:"errorRate"`
	ThroughputPerMin float64 `json:"throughputPerMin"`
	Goroutines       int     `json:"goroutines"`
	HeapAllocBytes   uint64  `json:"heapAllocBytes"`
}

// Mirror receives a best-effort copy of every state change for durable
// inspection. Failures are logged and never block the pipeline.
type Mirror interface {
	SaveJob(u queue.Update) error
	SaveBatch(p BatchProgress) error
}
