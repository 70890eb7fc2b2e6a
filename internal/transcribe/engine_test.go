package transcribe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"captionforge/internal/errs"
	"captionforge/internal/logger"
	"captionforge/internal/transcript"
)

// fakeToolkit simulates ffmpeg/ffprobe against a virtual audio file.
type fakeToolkit struct {
	duration    float64
	failExtract map[int]bool // window index -> extraction fails
	mu          sync.Mutex
	extracted   []int
}

func (f *fakeToolkit) ExtractAudio(ctx context.Context, sourcePath, outDir string) (string, error) {
	return sourcePath, nil
}

func (f *fakeToolkit) ProbeDuration(ctx context.Context, path string) (float64, error) {
	return f.duration, nil
}

func (f *fakeToolkit) ExtractWindow(ctx context.Context, audioPath, outPath string, start, end float64) error {
	idx := chunkIndex(outPath)
	if f.failExtract[idx] {
		return fmt.Errorf("simulated extraction failure")
	}
	f.mu.Lock()
	f.extracted = append(f.extracted, idx)
	f.mu.Unlock()
	return os.WriteFile(outPath, []byte("wav"), 0644)
}

// fakeBackend returns one segment per window and tracks in-flight calls.
type fakeBackend struct {
	failWindow map[int]bool
	delay      time.Duration
	inflight   atomic.Int32
	maxSeen    atomic.Int32
}

func (f *fakeBackend) TranscribeWindow(ctx context.Context, audioPath string) ([]transcript.Segment, error) {
	cur := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if cur <= seen || f.maxSeen.CompareAndSwap(seen, cur) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	idx := chunkIndex(audioPath)
	if f.failWindow[idx] {
		return nil, fmt.Errorf("simulated backend failure")
	}
	return []transcript.Segment{
		{Start: 0.5, End: 2.0, Text: fmt.Sprintf("window %d", idx)},
	}, nil
}

func chunkIndex(path string) int {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	idx, _ := strconv.Atoi(strings.TrimPrefix(name, "chunk_"))
	return idx
}

func newTestEngine(tk *fakeToolkit, backend Backend, opts Options) Engine {
	return New(tk, backend, logger.Nop(), opts)
}

func TestTranscribeHappyPath(t *testing.T) {
	tk := &fakeToolkit{duration: 65}
	be := &fakeBackend{}
	eng := newTestEngine(tk, be, Options{WindowSeconds: 30, OverlapSeconds: 2, TempDir: t.TempDir()})

	var lastDone, lastTotal int
	tr, err := eng.Transcribe(context.Background(), "audio.wav", func(done, total int) {
		lastDone, lastTotal = done, total
	})
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}

	if len(tr.Segments) != 3 {
		t.Fatalf("len(segments) = %d, want 3: %+v", len(tr.Segments), tr.Segments)
	}
	// Window starts are 0, 28, 56; each fake segment begins 0.5s in.
	wantStarts := []float64{0.5, 28.5, 56.5}
	for i, s := range tr.Segments {
		if s.Start != wantStarts[i] {
			t.Errorf("segment %d start = %v, want %v", i, s.Start, wantStarts[i])
		}
	}
	if lastDone != 3 || lastTotal != 3 {
		t.Errorf("final progress = %d/%d, want 3/3", lastDone, lastTotal)
	}
	if tr.Text != "window 0 window 1 window 2" {
		t.Errorf("joined text = %q", tr.Text)
	}
}

func TestTranscribeBoundedConcurrency(t *testing.T) {
	tk := &fakeToolkit{duration: 300} // 11 windows
	be := &fakeBackend{delay: 20 * time.Millisecond}
	eng := newTestEngine(tk, be, Options{Concurrency: 2, TempDir: t.TempDir()})

	if _, err := eng.Transcribe(context.Background(), "audio.wav", nil); err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if max := be.maxSeen.Load(); max > 2 {
		t.Errorf("max in-flight transcriptions = %d, want <= 2", max)
	}
}

func TestTranscribeDegradeOnExtractionFailure(t *testing.T) {
	tk := &fakeToolkit{duration: 65, failExtract: map[int]bool{1: true}}
	be := &fakeBackend{}
	eng := newTestEngine(tk, be, Options{FailurePolicy: PolicyDegrade, TempDir: t.TempDir()})

	tr, err := eng.Transcribe(context.Background(), "audio.wav", nil)
	if err != nil {
		t.Fatalf("Transcribe() error = %v, want graceful degradation", err)
	}
	if len(tr.Segments) != 2 {
		t.Errorf("len(segments) = %d, want 2 (gap for window 1)", len(tr.Segments))
	}
}

func TestTranscribeDegradeOnBackendFailure(t *testing.T) {
	tk := &fakeToolkit{duration: 65}
	be := &fakeBackend{failWindow: map[int]bool{2: true}}
	eng := newTestEngine(tk, be, Options{FailurePolicy: PolicyDegrade, TempDir: t.TempDir()})

	tr, err := eng.Transcribe(context.Background(), "audio.wav", nil)
	if err != nil {
		t.Fatalf("Transcribe() error = %v, want graceful degradation", err)
	}
	if len(tr.Segments) != 2 {
		t.Errorf("len(segments) = %d, want 2", len(tr.Segments))
	}
}

func TestTranscribeAbortPolicy(t *testing.T) {
	tk := &fakeToolkit{duration: 65}
	be := &fakeBackend{failWindow: map[int]bool{1: true}}
	eng := newTestEngine(tk, be, Options{FailurePolicy: PolicyAbort, TempDir: t.TempDir()})

	if _, err := eng.Transcribe(context.Background(), "audio.wav", nil); err == nil {
		t.Error("Transcribe() should fail under the abort policy")
	}
}

func TestTranscribeAllWindowsFailed(t *testing.T) {
	tk := &fakeToolkit{duration: 20, failExtract: map[int]bool{0: true}}
	eng := newTestEngine(tk, &fakeBackend{}, Options{FailurePolicy: PolicyDegrade, TempDir: t.TempDir()})

	if _, err := eng.Transcribe(context.Background(), "audio.wav", nil); err == nil {
		t.Error("Transcribe() should fail when every window was skipped")
	}
}

func TestTranscribeTooShort(t *testing.T) {
	tk := &fakeToolkit{duration: 0.4}
	eng := newTestEngine(tk, &fakeBackend{}, Options{TempDir: t.TempDir()})

	_, err := eng.Transcribe(context.Background(), "audio.wav", nil)
	if !errs.IsInvalidInput(err) {
		t.Errorf("Transcribe() error = %v, want InvalidInputError", err)
	}
}
