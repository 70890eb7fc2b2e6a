package queue

import (
	"container/heap"
	"context"
	"fmt"
	"sync"
	"time"

	"captionforge/internal/errs"
	"captionforge/internal/logger"
)

// Queue owns every job record. All mutation goes through its API, which
// serializes concurrent updates and mirrors each one onto the updates
// stream.
type Queue struct {
	mu        sync.Mutex
	jobs      map[string]*Job
	pending   pendingHeap
	cancelled map[string]bool // batch id -> cancelled
	seq       int64

	wake    chan struct{}
	updates chan Update

	maxAttempts int
	baseBackoff time.Duration
	logger      logger.Logger
}

// New creates an empty queue. Failed jobs are re-enqueued up to maxAttempts
// total attempts with exponential backoff starting at baseBackoff.
func New(log logger.Logger, maxAttempts int, baseBackoff time.Duration) *Queue {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if baseBackoff <= 0 {
		baseBackoff = 2 * time.Second
	}
	return &Queue{
		jobs:        make(map[string]*Job),
		cancelled:   make(map[string]bool),
		wake:        make(chan struct{}, 1),
		updates:     make(chan Update, 256),
		maxAttempts: maxAttempts,
		baseBackoff: baseBackoff,
		logger:      log,
	}
}

// Updates exposes the typed progress-event stream. Exactly one consumer
// (the status reporter) should drain it.
func (q *Queue) Updates() <-chan Update {
	return q.updates
}

// Enqueue admits a job. Priority is computed once here and never changes.
func (q *Queue) Enqueue(job *Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.jobs[job.ID]; exists {
		return fmt.Errorf("job %s already enqueued", job.ID)
	}

	job.Status = StatusPending
	job.Priority = ComputePriority(job.Source.SizeBytes, job.Options.Tier)
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}

	q.jobs[job.ID] = job
	q.push(job.ID, job.Priority)
	q.emitLocked(job)
	q.signal()
	return nil
}

// Dequeue blocks until a pending job is available, transitions it to
// processing and returns a snapshot. The calling worker owns the job until
// it reports Complete or Fail.
func (q *Queue) Dequeue(ctx context.Context) (Job, error) {
	for {
		q.mu.Lock()
		if len(q.pending) > 0 {
			item := heap.Pop(&q.pending).(pendingItem)
			job := q.jobs[item.id]
			job.Status = StatusProcessing
			job.Attempts++
			job.StartedAt = time.Now()
			job.Stage = ""
			job.Message = ""
			snapshot := *job
			q.emitLocked(job)
			if len(q.pending) > 0 {
				q.signal()
			}
			q.mu.Unlock()
			return snapshot, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return Job{}, ctx.Err()
		case <-q.wake:
		}
	}
}

// ReportProgress records a progress checkpoint. Percent is clamped so the
// reported sequence is monotonically non-decreasing; reports against
// non-processing jobs are ignored.
func (q *Queue) ReportProgress(jobID string, percent int, stage, message string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[jobID]
	if !ok || job.Status != StatusProcessing {
		return
	}
	if percent < job.Progress {
		percent = job.Progress
	}
	if percent > 100 {
		percent = 100
	}
	job.Progress = percent
	job.Stage = stage
	job.Message = message
	q.emitLocked(job)
}

// Complete transitions a processing job to completed.
func (q *Queue) Complete(jobID string, outputs []Output) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[jobID]
	if !ok || job.Status.Terminal() {
		return
	}
	job.Status = StatusCompleted
	job.Progress = 100
	job.Outputs = outputs
	job.Error = ""
	job.CompletedAt = time.Now()
	q.emitLocked(job)
}

// Fail records a stage failure. Non-terminal attempts are re-enqueued after
// an exponential backoff and re-run the whole pipeline from the start;
// once the attempt budget is spent the job fails permanently. Invalid
// input and quota refusals fail immediately, retrying cannot fix them.
func (q *Queue) Fail(jobID, stage string, failErr error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[jobID]
	if !ok || job.Status.Terminal() {
		return
	}

	retryable := !errs.IsInvalidInput(failErr) && !errs.IsQuotaExceeded(failErr)
	if retryable && job.Attempts < q.maxAttempts && !q.cancelled[job.BatchID] {
		delay := q.baseBackoff << (job.Attempts - 1)
		job.Status = StatusPending
		job.Progress = 0
		job.Stage = stage
		job.Message = fmt.Sprintf("attempt %d/%d failed, retrying in %s: %v",
			job.Attempts, q.maxAttempts, delay, failErr)
		q.emitLocked(job)

		q.logger.Warn(context.Background(), "Job %s failed at %s (attempt %d/%d), retrying in %s: %v",
			jobID, stage, job.Attempts, q.maxAttempts, delay, failErr)

		time.AfterFunc(delay, func() { q.requeue(jobID) })
		return
	}

	job.Status = StatusFailed
	job.Stage = stage
	job.Error = failErr.Error()
	job.CompletedAt = time.Now()
	q.emitLocked(job)
}

// requeue puts a backed-off job back on the heap, unless its batch was
// cancelled while it waited.
func (q *Queue) requeue(jobID string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[jobID]
	if !ok || job.Status != StatusPending {
		return
	}
	if q.cancelled[job.BatchID] {
		q.cancelLocked(job)
		return
	}
	q.push(jobID, job.Priority)
	q.signal()
}

// CancelBatch removes every pending job of a batch from the queue.
// Processing jobs are left alone: cancellation stops admitting new work, it
// never kills in-flight work. Returns the number of jobs cancelled.
func (q *Queue) CancelBatch(batchID string) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.cancelled[batchID] = true

	kept := q.pending[:0]
	cancelled := 0
	for _, item := range q.pending {
		job := q.jobs[item.id]
		if job.BatchID == batchID {
			q.cancelLocked(job)
			cancelled++
			continue
		}
		kept = append(kept, item)
	}
	q.pending = kept
	heap.Init(&q.pending)

	// Backed-off jobs are pending but not on the heap; cancel those too.
	for _, job := range q.jobs {
		if job.BatchID == batchID && job.Status == StatusPending {
			q.cancelLocked(job)
			cancelled++
		}
	}
	return cancelled
}

func (q *Queue) cancelLocked(job *Job) {
	job.Status = StatusCancelled
	job.CompletedAt = time.Now()
	q.emitLocked(job)
}

// Get returns a snapshot of one job.
func (q *Queue) Get(jobID string) (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.jobs[jobID]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// Depth returns the number of jobs waiting on the heap.
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

func (q *Queue) push(id string, priority int64) {
	q.seq++
	heap.Push(&q.pending, pendingItem{id: id, priority: priority, seq: q.seq})
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// emitLocked publishes the job's current state on the updates stream. The
// send never blocks: a slow consumer loses intermediate updates, never
// stalls the pipeline.
func (q *Queue) emitLocked(job *Job) {
	u := Update{
		JobID:       job.ID,
		BatchID:     job.BatchID,
		Status:      job.Status,
		Progress:    job.Progress,
		Stage:       job.Stage,
		Message:     job.Message,
		Error:       job.Error,
		Outputs:     job.Outputs,
		StartedAt:   job.StartedAt,
		CompletedAt: job.CompletedAt,
		Timestamp:   time.Now(),
	}
	select {
	case q.updates <- u:
	default:
	}
}

// pendingItem orders jobs by (priority, enqueue sequence).
type pendingItem struct {
	id       string
	priority int64
	seq      int64
}

type pendingHeap []pendingItem

func (h pendingHeap) Len() int { return len(h) }
func (h pendingHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority < h[j].priority
	}
	return h[i].seq < h[j].seq
}
func (h pendingHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *pendingHeap) Push(x any) {
	*h = append(*h, x.(pendingItem))
}

func (h *pendingHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
