package artifact

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"captionforge/internal/transcript"
)

// renderTXT writes a plain-text transcript with a small generated header.
func renderTXT(tr *transcript.Transcript, opts Options) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Transcript: %s\n", opts.SourceName)
	fmt.Fprintf(&buf, "Generated: %s\n", opts.GeneratedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&buf, "Segments: %d\n\n", len(tr.Segments))
	buf.WriteString(tr.Text)
	buf.WriteString("\n")
	return buf.Bytes()
}

type jsonDocument struct {
	GeneratedAt  time.Time            `json:"generatedAt"`
	Source       string               `json:"source"`
	Language     string               `json:"language,omitempty"`
	SegmentCount int                  `json:"segmentCount"`
	Text         string               `json:"text"`
	Segments     []transcript.Segment `json:"segments"`
}

// renderJSON writes the structured transcript; timing is fully retained.
func renderJSON(tr *transcript.Transcript, opts Options) ([]byte, error) {
	doc := jsonDocument{
		GeneratedAt:  opts.GeneratedAt.UTC(),
		Source:       opts.SourceName,
		Language:     tr.Language,
		SegmentCount: len(tr.Segments),
		Text:         tr.Text,
		Segments:     tr.Segments,
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
