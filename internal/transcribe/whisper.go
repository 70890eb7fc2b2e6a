package transcribe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"captionforge/internal/logger"
	"captionforge/internal/transcript"
	"captionforge/pkg/executor"
)

type whisperBackend struct {
	executor   executor.Executor
	logger     logger.Logger
	binaryPath string
	modelPath  string
	language   string
}

// NewWhisperBackend creates a Backend that shells out to whisper.cpp per
// window and parses its SRT output.
func NewWhisperBackend(exec executor.Executor, log logger.Logger, binaryPath, modelPath, language string) Backend {
	return &whisperBackend{
		executor:   exec,
		logger:     log,
		binaryPath: binaryPath,
		modelPath:  modelPath,
		language:   language,
	}
}

func (b *whisperBackend) TranscribeWindow(ctx context.Context, audioPath string) ([]transcript.Segment, error) {
	// whisper.cpp appends .srt to the output prefix.
	outputPrefix := strings.TrimSuffix(audioPath, filepath.Ext(audioPath))

	args := []string{
		"-m", b.modelPath,
		"-f", audioPath,
		"-osrt",
		"-l", b.language,
		"-ml", "0",
		"-mc", "0",
		"--output-file", outputPrefix,
	}

	if _, err := b.executor.ExecuteInDir(ctx, filepath.Dir(audioPath), b.binaryPath, args...); err != nil {
		return nil, fmt.Errorf("whisper transcribe: %w", err)
	}

	srtPath := outputPrefix + ".srt"
	data, err := os.ReadFile(srtPath)
	if err != nil {
		return nil, fmt.Errorf("read whisper output: %w", err)
	}
	defer os.Remove(srtPath)

	segments, err := transcript.ParseSRT(data)
	if err != nil {
		return nil, fmt.Errorf("parse whisper output: %w", err)
	}
	return segments, nil
}
