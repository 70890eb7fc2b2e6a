package transcribe

import (
	"captionforge/internal/logger"
	"captionforge/internal/media"
)

// Options tunes the chunked engine. Zero values fall back to defaults.
type Options struct {
	WindowSeconds  float64
	OverlapSeconds float64
	Concurrency    int
	FailurePolicy  FailurePolicy
	Language       string
	TempDir        string
}

type implEngine struct {
	toolkit media.Toolkit
	backend Backend
	logger  logger.Logger
	opts    Options
}

// New creates a chunked transcription Engine over the given speech backend.
func New(tk media.Toolkit, backend Backend, log logger.Logger, opts Options) Engine {
	if opts.WindowSeconds <= 0 {
		opts.WindowSeconds = 30
	}
	if opts.OverlapSeconds < 0 || opts.OverlapSeconds >= opts.WindowSeconds {
		opts.OverlapSeconds = 2
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 3
	}
	if opts.FailurePolicy == "" {
		opts.FailurePolicy = PolicyDegrade
	}

	return &implEngine{
		toolkit: tk,
		backend: backend,
		logger:  log,
		opts:    opts,
	}
}
