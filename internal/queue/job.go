package queue

import "time"

// Status is the lifecycle state of one job. pending -> processing ->
// {completed | failed}; cancelled is the terminal state of a pending job
// removed by batch cancellation. No transition leaves a terminal state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether s admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// SourceFile identifies one input media file.
type SourceFile struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	SizeBytes int64  `json:"sizeBytes"`
}

// Output describes one produced artifact inside the packaged archive.
type Output struct {
	Format      string `json:"format"`
	SizeBytes   int64  `json:"sizeBytes"`
	LocationRef string `json:"locationRef"`
}

// JobOptions carries the batch-level options every job of a batch shares.
type JobOptions struct {
	Formats       []string `json:"formats"`
	Style         string   `json:"style"`
	Position      string   `json:"position"`
	ArchiveLayout string   `json:"archiveLayout"`
	Tier          string   `json:"tier"`
}

// Job is the unit of work for one input file. It is created by the batch
// coordinator, exclusively owned by the worker executing it, and immutable
// once terminal.
type Job struct {
	ID       string     `json:"id"`
	BatchID  string     `json:"batchId"`
	Source   SourceFile `json:"sourceFile"`
	Options  JobOptions `json:"options"`
	Status   Status     `json:"status"`
	Progress int        `json:"progressPercent"`
	Stage    string     `json:"stage,omitempty"`
	Message  string     `json:"message,omitempty"`
	Outputs  []Output   `json:"outputs,omitempty"`
	Error    string     `json:"error,omitempty"`
	Priority int64      `json:"priority"`
	Attempts int        `json:"attempts"`

	CreatedAt   time.Time `json:"createdAt"`
	StartedAt   time.Time `json:"startedAt,omitzero"`
	CompletedAt time.Time `json:"completedAt,omitzero"`
}

// Update is the typed progress event emitted on every job mutation. Workers
// never write job records directly; everything flows through the queue and
// out on this stream.
type Update struct {
	JobID       string    `json:"jobId"`
	BatchID     string    `json:"batchId"`
	Status      Status    `json:"status"`
	Progress    int       `json:"progressPercent"`
	Stage       string    `json:"stage,omitempty"`
	Message     string    `json:"message,omitempty"`
	Error       string    `json:"error,omitempty"`
	Outputs     []Output  `json:"outputs,omitempty"`
	StartedAt   time.Time `json:"startedAt,omitzero"`
	CompletedAt time.Time `json:"completedAt,omitzero"`
	Timestamp   time.Time `json:"timestamp"`
}

// Tier boosts applied when computing priority. Higher tiers rank sooner.
var tierBoost = map[string]int64{
	"free":       0,
	"pro":        512,
	"enterprise": 4096,
}

// ComputePriority derives a job's fixed priority at enqueue time: smaller
// files rank higher (they finish faster and unblock the queue), higher
// tiers rank higher. Lower values dequeue first.
func ComputePriority(sizeBytes int64, tier string) int64 {
	sizeMB := sizeBytes / (1 << 20)
	return sizeMB - tierBoost[tier]
}
