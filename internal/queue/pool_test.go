package queue

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"captionforge/internal/artifact"
	"captionforge/internal/logger"
	"captionforge/internal/transcribe"
	"captionforge/internal/transcript"
)

type fakeToolkit struct {
	extractErr error
}

func (f *fakeToolkit) ExtractAudio(ctx context.Context, sourcePath, outDir string) (string, error) {
	if f.extractErr != nil {
		return "", f.extractErr
	}
	path := filepath.Join(outDir, "audio.wav")
	if err := os.WriteFile(path, []byte("wav"), 0644); err != nil {
		return "", err
	}
	return path, nil
}

func (f *fakeToolkit) ProbeDuration(ctx context.Context, path string) (float64, error) {
	return 60, nil
}

func (f *fakeToolkit) ExtractWindow(ctx context.Context, audioPath, outPath string, start, end float64) error {
	return os.WriteFile(outPath, []byte("chunk"), 0644)
}

type fakeEngine struct {
	err     error
	windows int
}

func (f *fakeEngine) Transcribe(ctx context.Context, audioPath string, onProgress transcribe.ProgressFunc) (*transcript.Transcript, error) {
	if f.err != nil {
		return nil, f.err
	}
	for i := 1; i <= f.windows; i++ {
		if onProgress != nil {
			onProgress(i, f.windows)
		}
	}
	return &transcript.Transcript{
		Text: "hello world",
		Segments: []transcript.Segment{
			{Start: 0, End: 2.5, Text: "hello world"},
		},
	}, nil
}

type fakeStore struct {
	puts int
}

func (f *fakeStore) Put(ctx context.Context, data []byte, suggestedName string) (string, error) {
	f.puts++
	return "file:///blobs/" + suggestedName, nil
}

func writeSourceFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("media bytes"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func waitTerminal(t *testing.T, q *Queue, jobID string) Job {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if job, ok := q.Get(jobID); ok && job.Status.Terminal() {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	job, _ := q.Get(jobID)
	t.Fatalf("job %s never reached a terminal state (status %s)", jobID, job.Status)
	return Job{}
}

func TestPoolRunsJobToCompletion(t *testing.T) {
	q := New(logger.Nop(), 3, time.Millisecond)
	store := &fakeStore{}
	pool := NewPool(q, &fakeToolkit{}, &fakeEngine{windows: 3}, artifact.New(), store,
		1, time.Minute, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	job := testJob("j1", "b1", "free", 1<<20)
	job.Source.Path = writeSourceFile(t, "talk.mp4")
	job.Options.Formats = []string{"srt", "vtt"}
	q.Enqueue(job)

	got := waitTerminal(t, q, "j1")
	if got.Status != StatusCompleted {
		t.Fatalf("Status = %s (%s), want completed", got.Status, got.Error)
	}
	if got.Progress != 100 {
		t.Errorf("Progress = %d, want 100", got.Progress)
	}
	// srt + vtt + the packaged archive.
	if len(got.Outputs) != 3 {
		t.Fatalf("Outputs = %d, want 3", len(got.Outputs))
	}
	last := got.Outputs[len(got.Outputs)-1]
	if last.Format != "zip" || last.LocationRef == "" {
		t.Errorf("final output = %+v, want stored zip with location", last)
	}
	if store.puts != 1 {
		t.Errorf("store.Put called %d times, want 1", store.puts)
	}
}

func TestPoolArchiveContents(t *testing.T) {
	q := New(logger.Nop(), 3, time.Millisecond)

	var archived []byte
	store := &captureStore{data: &archived}
	pool := NewPool(q, &fakeToolkit{}, &fakeEngine{windows: 1}, artifact.New(), store,
		1, time.Minute, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	job := testJob("j1", "b1", "free", 1<<20)
	job.Source.Path = writeSourceFile(t, "talk.mp4")
	job.Options.Formats = []string{"srt"}
	q.Enqueue(job)
	waitTerminal(t, q, "j1")

	zr, err := zip.NewReader(bytes.NewReader(archived), int64(len(archived)))
	if err != nil {
		t.Fatalf("stored blob is not a zip: %v", err)
	}
	names := map[string]bool{}
	for _, f := range zr.File {
		names[f.Name] = true
	}
	if !names["talk.srt"] || !names["manifest.json"] {
		t.Errorf("archive entries = %v, want talk.srt and manifest.json", names)
	}
}

type captureStore struct {
	data *[]byte
}

func (s *captureStore) Put(ctx context.Context, data []byte, suggestedName string) (string, error) {
	*s.data = append([]byte(nil), data...)
	return "file:///blobs/" + suggestedName, nil
}

func TestPoolFailureStages(t *testing.T) {
	tests := []struct {
		name      string
		toolkit   *fakeToolkit
		engine    *fakeEngine
		source    func(t *testing.T) string
		formats   []string
		wantStage string
	}{
		{
			name:      "missing source fails validation",
			toolkit:   &fakeToolkit{},
			engine:    &fakeEngine{windows: 1},
			source:    func(t *testing.T) string { return "/nonexistent/talk.mp4" },
			formats:   []string{"srt"},
			wantStage: "validate",
		},
		{
			name:      "unknown format fails validation",
			toolkit:   &fakeToolkit{},
			engine:    &fakeEngine{windows: 1},
			source:    func(t *testing.T) string { return writeSourceFile(t, "talk.mp4") },
			formats:   []string{"ass"},
			wantStage: "validate",
		},
		{
			name:      "extraction failure",
			toolkit:   &fakeToolkit{extractErr: errors.New("no audio track")},
			engine:    &fakeEngine{windows: 1},
			source:    func(t *testing.T) string { return writeSourceFile(t, "talk.mp4") },
			formats:   []string{"srt"},
			wantStage: "extract",
		},
		{
			name:      "transcription failure",
			toolkit:   &fakeToolkit{},
			engine:    &fakeEngine{err: errors.New("backend down")},
			source:    func(t *testing.T) string { return writeSourceFile(t, "talk.mp4") },
			formats:   []string{"srt"},
			wantStage: "transcribe",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := New(logger.Nop(), 1, time.Millisecond)
			pool := NewPool(q, tt.toolkit, tt.engine, artifact.New(), &fakeStore{},
				1, time.Minute, logger.Nop())

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			pool.Start(ctx)

			job := testJob("j1", "b1", "free", 1<<20)
			job.Source.Path = tt.source(t)
			job.Options.Formats = tt.formats
			q.Enqueue(job)

			got := waitTerminal(t, q, "j1")
			if got.Status != StatusFailed {
				t.Fatalf("Status = %s, want failed", got.Status)
			}
			if got.Stage != tt.wantStage {
				t.Errorf("Stage = %q, want %q", got.Stage, tt.wantStage)
			}
		})
	}
}

func TestPoolDeadline(t *testing.T) {
	q := New(logger.Nop(), 1, time.Millisecond)
	eng := &stallingEngine{}
	pool := NewPool(q, &fakeToolkit{}, eng, artifact.New(), &fakeStore{},
		1, 30*time.Millisecond, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	job := testJob("slow", "b1", "free", 1<<20)
	job.Source.Path = writeSourceFile(t, "talk.mp4")
	q.Enqueue(job)

	got := waitTerminal(t, q, "slow")
	if got.Status != StatusFailed {
		t.Fatalf("Status = %s, want failed", got.Status)
	}
	if got.Stage != "deadline" {
		t.Errorf("Stage = %q, want deadline", got.Stage)
	}
}

// stallingEngine blocks until the job context expires.
type stallingEngine struct{}

func (e *stallingEngine) Transcribe(ctx context.Context, audioPath string, onProgress transcribe.ProgressFunc) (*transcript.Transcript, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestPoolInvalidInputNotRetried(t *testing.T) {
	q := New(logger.Nop(), 3, time.Millisecond)
	pool := NewPool(q, &fakeToolkit{}, &fakeEngine{windows: 1}, artifact.New(), &fakeStore{},
		1, time.Minute, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	job := testJob("bad", "b1", "free", 1<<20)
	job.Source.Path = "/nonexistent/talk.mp4"
	q.Enqueue(job)

	got := waitTerminal(t, q, "bad")
	if got.Attempts != 1 {
		t.Errorf("Attempts = %d, validation failures must not retry", got.Attempts)
	}
	if got.Error == "" {
		t.Error("Error should record the validation failure")
	}
}
