package media

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// ExtractAudio extracts the audio track as 16kHz mono PCM WAV. This format
// keeps every speech backend happy and avoids per-window re-decoding cost.
func (t *implToolkit) ExtractAudio(ctx context.Context, sourcePath, outDir string) (string, error) {
	base := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	audioPath := filepath.Join(outDir, base+"_audio.wav")

	t.logger.Debug(ctx, "Extracting audio: %s -> %s", sourcePath, audioPath)

	args := []string{
		"-i", sourcePath,
		"-vn",
		"-ar", "16000",
		"-ac", "1",
		"-c:a", "pcm_s16le",
		"-y",
		audioPath,
	}

	if _, err := t.executor.Execute(ctx, t.ffmpegPath, args...); err != nil {
		return "", fmt.Errorf("ffmpeg extract audio: %w", err)
	}

	return audioPath, nil
}

// ProbeDuration asks ffprobe for the container duration in seconds.
func (t *implToolkit) ProbeDuration(ctx context.Context, path string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}

	out, err := t.executor.Execute(ctx, t.ffprobePath, args...)
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w", err)
	}

	seconds, err := strconv.ParseFloat(strings.TrimSpace(out), 64)
	if err != nil {
		return 0, fmt.Errorf("parse ffprobe duration %q: %w", strings.TrimSpace(out), err)
	}

	return seconds, nil
}

// ExtractWindow cuts [start, end) out of audioPath into outPath, re-encoding
// so a truncated source still yields a valid standalone segment.
func (t *implToolkit) ExtractWindow(ctx context.Context, audioPath, outPath string, start, end float64) error {
	args := []string{
		"-y",
		"-i", audioPath,
		"-ss", formatTime(start),
		"-to", formatTime(end),
		"-ar", "16000",
		"-ac", "1",
		"-c:a", "pcm_s16le",
		outPath,
	}

	if _, err := t.executor.Execute(ctx, t.ffmpegPath, args...); err != nil {
		return fmt.Errorf("ffmpeg extract window [%s, %s): %w", formatTime(start), formatTime(end), err)
	}

	return nil
}

// formatTime renders seconds as HH:MM:SS.mmm for ffmpeg -ss/-to arguments.
func formatTime(seconds float64) string {
	h := int(seconds) / 3600
	m := (int(seconds) % 3600) / 60
	s := seconds - float64(h*3600+m*60)
	return fmt.Sprintf("%02d:%02d:%06.3f", h, m, s)
}
