package batch

import (
	"context"
	"time"
)

// Request describes one batch submission. Exactly one of Files, FolderPath
// or GlobPattern selects the inputs; per-batch options apply to every job.
type Request struct {
	Files       []string
	FolderPath  string
	GlobPattern string

	Formats       []string
	Style         string
	Position      string
	ArchiveLayout string
	Tier          string
}

// Rejection records one input that was refused admission, with the reason.
type Rejection struct {
	File   string `json:"file"`
	Reason string `json:"reason"`
}

// Batch is the admission record for one submission. Job lifecycle state
// lives in the queue; the batch only remembers membership.
type Batch struct {
	ID                string      `json:"id"`
	JobIDs            []string    `json:"jobIds"`
	TotalJobs         int         `json:"totalJobs"`
	DuplicatesDropped int         `json:"duplicatesDropped"`
	Rejected          []Rejection `json:"rejected,omitempty"`
	CreatedAt         time.Time   `json:"createdAt"`
}

// Coordinator admits batches into the queue and owns batch-level control.
type Coordinator interface {
	// CreateBatch resolves the request's inputs, filters and deduplicates
	// them, checks quotas and enqueues one job per admitted file. A batch
	// with zero admitted files is an error.
	CreateBatch(ctx context.Context, req Request) (*Batch, error)
	// CancelBatch cancels the batch's pending jobs. In-flight jobs run to
	// completion.
	CancelBatch(batchID string) (int, error)
	// Get returns the admission record for one batch.
	Get(batchID string) (*Batch, bool)
}

// StatusSink learns about new batches as they are admitted, so batch-level
// progress can be aggregated from job updates.
type StatusSink interface {
	RegisterBatch(id string, jobIDs []string)
}
