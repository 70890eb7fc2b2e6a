package status

import (
	"context"
	"math"
	"time"

	"captionforge/internal/queue"
)

// RegisterBatch records a batch's membership so its progress can be
// aggregated. Called by the batch coordinator at admission time.
func (r *Reporter) RegisterBatch(id string, jobIDs []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches[id] = &batchState{
		jobIDs:       append([]string(nil), jobIDs...),
		lastActivity: time.Now(),
	}
}

// Run drains the update stream until ctx is cancelled, sweeping expired
// batches on the configured interval.
func (r *Reporter) Run(ctx context.Context) {
	sweep := time.NewTicker(r.cfg.SweepInterval)
	defer sweep.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case u := <-r.queue.Updates():
			r.handle(ctx, u)
		case <-sweep.C:
			r.sweep()
		}
	}
}

func (r *Reporter) handle(ctx context.Context, u queue.Update) {
	r.mu.Lock()
	r.jobs[u.JobID] = u
	if state, ok := r.batches[u.BatchID]; ok {
		state.lastActivity = time.Now()
	}
	switch u.Status {
	case queue.StatusCompleted:
		r.jobsCompleted++
	case queue.StatusFailed:
		r.jobsFailed++
	}
	progress := r.batchProgressLocked(u.BatchID)
	r.mu.Unlock()

	if r.mirror != nil {
		if err := r.mirror.SaveJob(u); err != nil {
			r.logger.Warn(ctx, "Mirror write for job %s failed: %v", u.JobID, err)
		}
		if progress != nil {
			if err := r.mirror.SaveBatch(*progress); err != nil {
				r.logger.Warn(ctx, "Mirror write for batch %s failed: %v", u.BatchID, err)
			}
		}
	}

	now := time.Now()
	r.publish(Event{Type: EventJob, Timestamp: now, Job: &u})
	if progress != nil {
		r.publish(Event{Type: EventBatch, Timestamp: now, Batch: progress})
	}
}

// Job returns the last observed state of one job.
func (r *Reporter) Job(jobID string) (queue.Update, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.jobs[jobID]
	return u, ok
}

// Batch returns the aggregated progress of one batch.
func (r *Reporter) Batch(batchID string) (BatchProgress, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.batchProgressLocked(batchID)
	if p == nil {
		return BatchProgress{}, false
	}
	return *p, true
}

func (r *Reporter) batchProgressLocked(batchID string) *BatchProgress {
	state, ok := r.batches[batchID]
	if !ok {
		return nil
	}

	p := &BatchProgress{
		BatchID:   batchID,
		TotalJobs: len(state.jobIDs),
	}

	var (
		completedDur time.Duration
		durSamples   int
	)
	for _, id := range state.jobIDs {
		u, seen := r.jobs[id]
		// The queue is authoritative. The update stream drops events under
		// burst, so a job's last streamed state can lag its real one; folding
		// in the queue's snapshot keeps terminal transitions from getting
		// lost. Lock order is reporter then queue, never the reverse.
		if job, ok := r.queue.Get(id); ok {
			u.Status = job.Status
			u.Progress = job.Progress
			u.StartedAt = job.StartedAt
			u.CompletedAt = job.CompletedAt
			seen = true
		}
		if !seen {
			p.Pending++
			continue
		}
		switch u.Status {
		case queue.StatusPending:
			p.Pending++
		case queue.StatusProcessing:
			p.Processing++
		case queue.StatusCompleted:
			p.Completed++
			if !u.StartedAt.IsZero() && u.CompletedAt.After(u.StartedAt) {
				completedDur += u.CompletedAt.Sub(u.StartedAt)
				durSamples++
			}
		case queue.StatusFailed:
			p.Failed++
		case queue.StatusCancelled:
			p.Cancelled++
		}
	}

	if p.TotalJobs > 0 {
		p.Progress = int(math.Round(100 * float64(p.Completed) / float64(p.TotalJobs)))
	}

	remaining := p.Pending + p.Processing
	if durSamples > 0 && remaining > 0 {
		avg := completedDur / time.Duration(durSamples)
		eta := (avg * time.Duration(remaining)).Seconds()
		p.ETASeconds = &eta
	}

	p.Status = deriveBatchStatus(p)
	return p
}

// deriveBatchStatus folds the per-job counts into one batch state. A batch
// where every job is terminal but outcomes are mixed reads "partial".
func deriveBatchStatus(p *BatchProgress) string {
	switch {
	case p.Processing > 0 || (p.Pending > 0 && p.Pending < p.TotalJobs):
		return "processing"
	case p.Pending == p.TotalJobs:
		return "pending"
	case p.Completed == p.TotalJobs:
		return "completed"
	case p.Failed == p.TotalJobs:
		return "failed"
	case p.Cancelled == p.TotalJobs:
		return "cancelled"
	default:
		return "partial"
	}
}

// sweep drops batches that have been quiet for the retention window and
// whose jobs are all terminal. Batches a subscriber or webhook still
// filters on are kept so an attached client never loses its view
// mid-session.
func (r *Reporter) sweep() {
	r.mu.Lock()
	defer r.mu.Unlock()

	watched := make(map[string]bool)
	for _, s := range r.subs {
		if s.batchID != "" {
			watched[s.batchID] = true
		}
	}
	for _, filter := range r.webhooks {
		if filter != "" {
			watched[filter] = true
		}
	}

	cutoff := time.Now().Add(-r.cfg.Retention)
	for id, state := range r.batches {
		if state.lastActivity.After(cutoff) || watched[id] {
			continue
		}
		terminal := true
		for _, jobID := range state.jobIDs {
			if job, ok := r.queue.Get(jobID); ok {
				if !job.Status.Terminal() {
					terminal = false
					break
				}
				continue
			}
			if u, ok := r.jobs[jobID]; !ok || !u.Status.Terminal() {
				terminal = false
				break
			}
		}
		if !terminal {
			continue
		}
		for _, jobID := range state.jobIDs {
			delete(r.jobs, jobID)
		}
		delete(r.batches, id)
	}
}
