package artifact

import (
	"time"

	"captionforge/internal/transcript"
)

// Format identifies one caption artifact format.
type Format string

const (
	FormatSRT  Format = "srt"
	FormatVTT  Format = "vtt"
	FormatTXT  Format = "txt"
	FormatJSON Format = "json"
	FormatDOCX Format = "docx"
	FormatJSX  Format = "jsx"
)

// Options carries the caller-selected rendering knobs. GeneratedAt is
// explicit so repeated generation from the same transcript is
// byte-identical. The docx format is the one exception: godocx writes its
// own zip metadata, so docx output is stable in content but not in bytes.
type Options struct {
	Style       string
	Position    string
	SourceName  string
	GeneratedAt time.Time
	LineBudget  int
}

// Generator maps one transcript plus options into per-format byte payloads.
// Pure: no I/O beyond the in-memory result.
type Generator interface {
	Generate(tr *transcript.Transcript, formats []Format, opts Options) (map[Format][]byte, error)
}

// ParseFormats validates and normalizes a list of format names.
func ParseFormats(names []string) ([]Format, error) {
	out := make([]Format, 0, len(names))
	for _, n := range names {
		f := Format(n)
		switch f {
		case FormatSRT, FormatVTT, FormatTXT, FormatJSON, FormatDOCX, FormatJSX:
			out = append(out, f)
		default:
			return nil, &UnknownFormatError{Name: n}
		}
	}
	return out, nil
}

// Extension returns the file extension for a format, without the dot.
func (f Format) Extension() string {
	return string(f)
}

// UnknownFormatError rejects an unsupported output format name.
type UnknownFormatError struct {
	Name string
}

func (e *UnknownFormatError) Error() string {
	return "unknown output format: " + e.Name
}
