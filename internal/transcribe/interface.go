package transcribe

import (
	"context"

	"captionforge/internal/transcript"
)

// ProgressFunc receives the number of audio windows processed so far.
type ProgressFunc func(done, total int)

// Engine turns one audio file into a single timeline-accurate transcript.
type Engine interface {
	Transcribe(ctx context.Context, audioPath string, onProgress ProgressFunc) (*transcript.Transcript, error)
}

// Backend is the external speech-to-text engine, invoked once per audio
// window. Returned segment times are relative to the window's own clock.
type Backend interface {
	TranscribeWindow(ctx context.Context, audioPath string) ([]transcript.Segment, error)
}

// FailurePolicy decides what a failed window (extraction or transcription)
// does to the whole call.
type FailurePolicy string

const (
	// PolicyDegrade skips the failed window, leaving a timeline gap.
	PolicyDegrade FailurePolicy = "degrade"
	// PolicyAbort fails the whole transcription on the first bad window.
	PolicyAbort FailurePolicy = "abort"
)
