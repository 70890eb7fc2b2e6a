package transcript

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Segment is one timed piece of speech, seconds-denominated on the global
// timeline.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcript is the canonical output of the transcription engine: segments
// ordered by start, non-overlapping, plus the joined text.
type Transcript struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
	Language string    `json:"language,omitempty"`
}

var srtTimeLine = regexp.MustCompile(`(\d{2}):(\d{2}):(\d{2})[,.](\d{3})\s*-->\s*(\d{2}):(\d{2}):(\d{2})[,.](\d{3})`)

// ParseSRT parses SRT subtitle content into segments. Blocks are separated
// by blank lines; the sequence number line is skipped and multi-line caption
// text is joined with single spaces.
func ParseSRT(data []byte) ([]Segment, error) {
	content := strings.ReplaceAll(string(data), "\r\n", "\n")
	blocks := regexp.MustCompile(`\n\s*\n`).Split(strings.TrimSpace(content), -1)

	var segments []Segment
	for _, block := range blocks {
		lines := strings.Split(strings.TrimSpace(block), "\n")
		if len(lines) < 2 {
			continue
		}

		// The timestamp line is usually line 2 (after the index), but some
		// writers omit the index.
		timeLine := lines[1]
		textStart := 2
		if !srtTimeLine.MatchString(timeLine) {
			timeLine = lines[0]
			textStart = 1
		}

		m := srtTimeLine.FindStringSubmatch(timeLine)
		if m == nil {
			continue
		}
		if len(lines) < textStart+1 {
			continue
		}

		start := srtSeconds(m[1], m[2], m[3], m[4])
		end := srtSeconds(m[5], m[6], m[7], m[8])
		text := strings.TrimSpace(strings.Join(lines[textStart:], " "))
		if text == "" {
			continue
		}

		segments = append(segments, Segment{Start: start, End: end, Text: text})
	}

	if len(segments) == 0 {
		return nil, fmt.Errorf("no caption blocks found")
	}
	return segments, nil
}

func srtSeconds(h, m, s, ms string) float64 {
	hh, _ := strconv.Atoi(h)
	mm, _ := strconv.Atoi(m)
	ss, _ := strconv.Atoi(s)
	mss, _ := strconv.Atoi(ms)
	return float64(hh)*3600 + float64(mm)*60 + float64(ss) + float64(mss)/1000
}

// JoinText concatenates segment text with single spaces.
func JoinText(segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if s.Text != "" {
			parts = append(parts, s.Text)
		}
	}
	return strings.Join(parts, " ")
}
