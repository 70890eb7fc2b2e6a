package media

import "context"

// Toolkit wraps the external media tooling used by the pipeline: one audio
// extraction per job and one probe/window extraction per chunk.
type Toolkit interface {
	// ExtractAudio converts the source file's audio track to a 16kHz mono
	// WAV next to outDir and returns its path.
	ExtractAudio(ctx context.Context, sourcePath, outDir string) (string, error)
	// ProbeDuration returns the duration of a media file in seconds.
	ProbeDuration(ctx context.Context, path string) (float64, error)
	// ExtractWindow copies the [start, end) seconds range of audioPath into
	// a standalone file at outPath.
	ExtractWindow(ctx context.Context, audioPath, outPath string, start, end float64) error
}
