package media

import (
	"captionforge/internal/logger"
	"captionforge/pkg/executor"
)

type implToolkit struct {
	executor    executor.Executor
	logger      logger.Logger
	ffmpegPath  string
	ffprobePath string
}

// New creates a Toolkit backed by ffmpeg/ffprobe on PATH.
func New(exec executor.Executor, log logger.Logger) Toolkit {
	return &implToolkit{
		executor:    exec,
		logger:      log,
		ffmpegPath:  "ffmpeg",
		ffprobePath: "ffprobe",
	}
}
