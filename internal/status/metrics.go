package status

import (
	"runtime"
	"time"
)

// Metrics returns the current pipeline-wide health snapshot.
func (r *Reporter) Metrics() SystemMetrics {
	r.mu.Lock()
	completed := r.jobsCompleted
	failed := r.jobsFailed
	started := r.startedAt
	r.mu.Unlock()

	uptime := time.Since(started)

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	m := SystemMetrics{
		UptimeSeconds:  uptime.Seconds(),
		QueueDepth:     r.queue.Depth(),
		JobsCompleted:  completed,
		JobsFailed:     failed,
		Goroutines:     runtime.NumGoroutine(),
		HeapAllocBytes: mem.HeapAlloc,
	}
	if total := completed + failed; total > 0 {
		m.ErrorRate = float64(failed) / float64(total)
	}
	if minutes := uptime.Minutes(); minutes > 0 {
		m.ThroughputPerMin = float64(completed) / minutes
	}
	return m
}

// PublishMetrics pushes a system event to every unfiltered subscriber.
func (r *Reporter) PublishMetrics() {
	m := r.Metrics()
	r.publish(Event{Type: EventSystem, Timestamp: time.Now(), System: &m})
}
