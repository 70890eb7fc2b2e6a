package queue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"captionforge/internal/artifact"
	"captionforge/internal/blob"
	"captionforge/internal/errs"
	"captionforge/internal/logger"
	"captionforge/internal/media"
	"captionforge/internal/transcribe"
)

// Progress checkpoints reported as a job moves through the pipeline. The
// transcription stage interpolates between its entry and exit points so
// long files show movement instead of a stall.
const (
	progressValidate      = 5
	progressExtract       = 15
	progressTranscribe    = 25
	progressTranscribeEnd = 75
	progressGenerate      = 80
	progressPackage       = 90
	progressPersist       = 95
)

// Pool runs the per-job pipeline on a fixed set of workers, each pulling
// from the queue in priority order.
type Pool struct {
	queue      *Queue
	media      media.Toolkit
	engine     transcribe.Engine
	generator  artifact.Generator
	store      blob.Store
	workers    int
	jobTimeout time.Duration
	logger     logger.Logger

	wg sync.WaitGroup
}

// NewPool wires the pipeline dependencies. Workers are not started until
// Start is called.
func NewPool(q *Queue, tk media.Toolkit, eng transcribe.Engine, gen artifact.Generator, store blob.Store, workers int, jobTimeout time.Duration, log logger.Logger) *Pool {
	if workers <= 0 {
		workers = 3
	}
	if jobTimeout <= 0 {
		jobTimeout = 30 * time.Minute
	}
	return &Pool{
		queue:      q,
		media:      tk,
		engine:     eng,
		generator:  gen,
		store:      store,
		workers:    workers,
		jobTimeout: jobTimeout,
		logger:     log,
	}
}

// Start launches the workers. They exit when ctx is cancelled; Wait blocks
// until the last in-flight job has finished.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			p.worker(ctx, id)
		}(i)
	}
}

// Wait blocks until every worker has returned.
func (p *Pool) Wait() {
	p.wg.Wait()
}

func (p *Pool) worker(ctx context.Context, id int) {
	for {
		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			return
		}

		p.logger.Info(ctx, "Worker %d picked up job %s (%s, attempt %d)",
			id, job.ID, job.Source.Name, job.Attempts)

		jobCtx, cancel := context.WithTimeout(ctx, p.jobTimeout)
		outputs, err := p.process(jobCtx, &job)
		cancel()

		if err != nil {
			stage := errs.StageOf(err)
			if errors.Is(err, context.DeadlineExceeded) && jobCtx.Err() == context.DeadlineExceeded {
				stage = "deadline"
				err = fmt.Errorf("job exceeded %s deadline: %w", p.jobTimeout, err)
			}
			p.logger.Error(ctx, "Job %s failed at %s: %v", job.ID, stage, err)
			p.queue.Fail(job.ID, stage, err)
			continue
		}

		p.queue.Complete(job.ID, outputs)
		p.logger.Info(ctx, "Job %s completed with %d output(s)", job.ID, len(outputs))
	}
}

// process runs the whole pipeline for one job. Every stage failure is
// wrapped with the stage name and elapsed time; the caller maps it onto the
// job record. The working directory is removed on every exit path so no
// partial files outlive a failed attempt.
func (p *Pool) process(ctx context.Context, job *Job) ([]Output, error) {
	start := time.Now()
	fail := func(stage string, err error) error {
		return &errs.StageFailure{Stage: stage, Elapsed: time.Since(start), Err: err}
	}

	// validate
	p.queue.ReportProgress(job.ID, progressValidate, "validate", "checking input")
	info, err := os.Stat(job.Source.Path)
	if err != nil {
		return nil, fail("validate", &errs.InvalidInputError{Reason: fmt.Sprintf("source file unavailable: %v", err)})
	}
	if info.Size() == 0 {
		return nil, fail("validate", &errs.InvalidInputError{Reason: "source file is empty"})
	}
	formats, err := artifact.ParseFormats(job.Options.Formats)
	if err != nil {
		return nil, fail("validate", err)
	}
	layout, err := artifact.ParseLayout(job.Options.ArchiveLayout)
	if err != nil {
		return nil, fail("validate", err)
	}

	workDir, err := os.MkdirTemp("", "captionforge-job-*")
	if err != nil {
		return nil, fail("validate", err)
	}
	defer os.RemoveAll(workDir)

	// extract
	p.queue.ReportProgress(job.ID, progressExtract, "extract", "extracting audio track")
	audioPath, err := p.media.ExtractAudio(ctx, job.Source.Path, workDir)
	if err != nil {
		return nil, fail("extract", err)
	}

	// transcribe
	p.queue.ReportProgress(job.ID, progressTranscribe, "transcribe", "transcribing audio")
	tr, err := p.engine.Transcribe(ctx, audioPath, func(done, total int) {
		if total <= 0 {
			return
		}
		span := progressTranscribeEnd - progressTranscribe
		pct := progressTranscribe + span*done/total
		p.queue.ReportProgress(job.ID, pct, "transcribe",
			fmt.Sprintf("transcribed %d/%d windows", done, total))
	})
	if err != nil {
		return nil, fail("transcribe", err)
	}

	// generate
	p.queue.ReportProgress(job.ID, progressGenerate, "generate", "rendering caption artifacts")
	generatedAt := time.Now().UTC()
	artifacts, err := p.generator.Generate(tr, formats, artifact.Options{
		Style:       job.Options.Style,
		Position:    job.Options.Position,
		SourceName:  job.Source.Name,
		GeneratedAt: generatedAt,
	})
	if err != nil {
		return nil, fail("generate", err)
	}

	// package
	p.queue.ReportProgress(job.ID, progressPackage, "package", "packaging archive")
	archive, err := artifact.Package(job.ID, job.Source.Name, artifacts, layout, generatedAt)
	if err != nil {
		return nil, fail("package", err)
	}

	// persist
	p.queue.ReportProgress(job.ID, progressPersist, "persist", "storing archive")
	ref, err := p.store.Put(ctx, archive, job.ID+".zip")
	if err != nil {
		return nil, fail("persist", err)
	}

	outputs := make([]Output, 0, len(artifacts)+1)
	for _, f := range sortedFormats(artifacts) {
		outputs = append(outputs, Output{
			Format:    string(f),
			SizeBytes: int64(len(artifacts[f])),
		})
	}
	outputs = append(outputs, Output{
		Format:      "zip",
		SizeBytes:   int64(len(archive)),
		LocationRef: ref,
	})
	return outputs, nil
}

func sortedFormats(artifacts map[artifact.Format][]byte) []artifact.Format {
	out := make([]artifact.Format, 0, len(artifacts))
	for f := range artifacts {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
