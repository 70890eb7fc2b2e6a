package artifact

import (
	"bytes"
	"fmt"

	"captionforge/internal/transcript"
)

// renderSRT writes one numbered block per segment with comma-separated
// millisecond timestamps.
func renderSRT(tr *transcript.Transcript) []byte {
	var buf bytes.Buffer
	for i, s := range tr.Segments {
		fmt.Fprintf(&buf, "%d\n%s --> %s\n%s\n\n",
			i+1,
			formatTimestamp(s.Start, ','),
			formatTimestamp(s.End, ','),
			s.Text)
	}
	return buf.Bytes()
}

// renderVTT writes the WEBVTT header then period-separated cue blocks.
func renderVTT(tr *transcript.Transcript) []byte {
	var buf bytes.Buffer
	buf.WriteString("WEBVTT\n\n")
	for _, s := range tr.Segments {
		fmt.Fprintf(&buf, "%s --> %s\n%s\n\n",
			formatTimestamp(s.Start, '.'),
			formatTimestamp(s.End, '.'),
			s.Text)
	}
	return buf.Bytes()
}

// formatTimestamp renders seconds as a zero-padded HH:MM:SS<sep>mmm pair
// half. The separator is the format constant: comma for SRT, period for VTT.
func formatTimestamp(seconds float64, sep byte) string {
	if seconds < 0 {
		seconds = 0
	}
	ms := int(seconds*1000 + 0.5)
	h := ms / 3600000
	m := (ms % 3600000) / 60000
	s := (ms % 60000) / 1000
	ms = ms % 1000
	return fmt.Sprintf("%02d:%02d:%02d%c%03d", h, m, s, sep, ms)
}
