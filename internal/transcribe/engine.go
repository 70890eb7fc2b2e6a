package transcribe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"captionforge/internal/transcript"
)

// Transcribe probes the audio, splits it into overlapping windows, runs the
// windows through the speech backend with bounded concurrency, and stitches
// one ordered transcript back together.
func (e *implEngine) Transcribe(ctx context.Context, audioPath string, onProgress ProgressFunc) (*transcript.Transcript, error) {
	duration, err := e.toolkit.ProbeDuration(ctx, audioPath)
	if err != nil {
		return nil, fmt.Errorf("probe duration: %w", err)
	}

	windows, err := planWindows(duration, e.opts.WindowSeconds, e.opts.OverlapSeconds)
	if err != nil {
		return nil, err
	}

	tempDir, err := os.MkdirTemp(e.opts.TempDir, "captionforge-chunks-*")
	if err != nil {
		return nil, fmt.Errorf("create chunk workspace: %w", err)
	}
	defer os.RemoveAll(tempDir)

	e.logger.Info(ctx, "Transcribing %s: %.1fs in %d windows (%d in flight)",
		filepath.Base(audioPath), duration, len(windows), e.opts.Concurrency)

	results := make([][]transcript.Segment, len(windows))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		done     int
		firstErr error
	)
	sem := newSemaphore(e.opts.Concurrency)

	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
		cancel()
	}

	for i := range windows {
		if err := sem.acquire(runCtx); err != nil {
			break
		}

		wg.Add(1)
		go func(w window) {
			defer wg.Done()
			defer sem.release()

			segments, err := e.transcribeWindow(runCtx, audioPath, tempDir, w)
			if err != nil {
				if e.opts.FailurePolicy == PolicyAbort {
					fail(fmt.Errorf("window %d [%s, %s): %w",
						w.Index, formatSeconds(w.Start), formatSeconds(w.End), err))
					return
				}
				// Degrade: leave a gap in the timeline rather than failing
				// the whole job for one bad window.
				e.logger.Warn(ctx, "Skipping window %d [%.1fs, %.1fs): %v", w.Index, w.Start, w.End, err)
			}

			mu.Lock()
			results[w.Index] = segments
			done++
			processed := done
			mu.Unlock()

			if onProgress != nil {
				onProgress(processed, len(windows))
			}
		}(windows[i])
	}

	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	transcribed := 0
	for _, segs := range results {
		if segs != nil {
			transcribed++
		}
	}
	if transcribed == 0 {
		return nil, fmt.Errorf("no window produced a transcription")
	}

	segments := stitch(windows, results)
	return &transcript.Transcript{
		Text:     transcript.JoinText(segments),
		Segments: segments,
		Language: e.opts.Language,
	}, nil
}

// transcribeWindow extracts one window to a standalone file, transcribes it,
// and shifts the returned segments onto the global timeline.
func (e *implEngine) transcribeWindow(ctx context.Context, audioPath, tempDir string, w window) ([]transcript.Segment, error) {
	chunkPath := filepath.Join(tempDir, fmt.Sprintf("chunk_%03d.wav", w.Index))

	if err := e.toolkit.ExtractWindow(ctx, audioPath, chunkPath, w.Start, w.End); err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	defer os.Remove(chunkPath)

	segments, err := e.backend.TranscribeWindow(ctx, chunkPath)
	if err != nil {
		return nil, fmt.Errorf("transcribe: %w", err)
	}

	shifted := make([]transcript.Segment, 0, len(segments))
	for _, s := range segments {
		shifted = append(shifted, transcript.Segment{
			Start: s.Start + w.Start,
			End:   s.End + w.Start,
			Text:  s.Text,
		})
	}
	return shifted, nil
}

func formatSeconds(s float64) string {
	return fmt.Sprintf("%.1fs", s)
}
