package transcribe

import (
	"sort"
	"strings"

	"captionforge/internal/transcript"
)

// maxBoundaryWords bounds the word-overlap search at window boundaries.
const maxBoundaryWords = 10

// stitch reconstructs one ordered transcript from per-window results.
//
// Windows are walked in index order. A window's segments that start inside
// its trailing overlap are dropped: the next window re-covers that region
// with full acoustic context and owns it. The first surviving segment of
// each window is additionally checked for restated text against the tail of
// the accumulated transcript, because backends often re-speak the words
// around a cut even when timestamps disagree.
func stitch(windows []window, results [][]transcript.Segment) []transcript.Segment {
	var out []transcript.Segment
	var tail []string // last words of the accumulated text

	for i, w := range windows {
		segments := results[i]
		if len(segments) == 0 {
			continue
		}

		sort.Slice(segments, func(a, b int) bool {
			return segments[a].Start < segments[b].Start
		})

		cutoff := w.End - w.OverlapEnd
		first := true
		for _, s := range segments {
			if s.Start >= cutoff {
				continue
			}

			text := s.Text
			if first && len(tail) > 0 {
				text = trimLeadingOverlap(tail, text)
				if text == "" {
					first = false
					continue
				}
			}
			first = false

			out = append(out, transcript.Segment{Start: s.Start, End: s.End, Text: text})
			tail = appendTail(tail, text)
		}
	}

	sort.Slice(out, func(a, b int) bool {
		return out[a].Start < out[b].Start
	})

	return clampOverlaps(out)
}

// trimLeadingOverlap removes the longest run of leading words in text that
// duplicates the tail of the accumulated transcript. Comparison is
// case-insensitive and punctuation-tolerant.
func trimLeadingOverlap(tail []string, text string) string {
	words := strings.Fields(text)
	max := len(words)
	if len(tail) < max {
		max = len(tail)
	}
	if max > maxBoundaryWords {
		max = maxBoundaryWords
	}

	for k := max; k > 0; k-- {
		if wordsEqual(tail[len(tail)-k:], words[:k]) {
			return strings.Join(words[k:], " ")
		}
	}
	return text
}

func wordsEqual(a, b []string) bool {
	for i := range a {
		if normalizeWord(a[i]) != normalizeWord(b[i]) {
			return false
		}
	}
	return true
}

func normalizeWord(w string) string {
	return strings.ToLower(strings.Trim(w, ".,!?;:\"'"))
}

func appendTail(tail []string, text string) []string {
	tail = append(tail, strings.Fields(text)...)
	if len(tail) > maxBoundaryWords {
		tail = tail[len(tail)-maxBoundaryWords:]
	}
	return tail
}

// clampOverlaps enforces pairwise non-overlap on the sorted segment list.
func clampOverlaps(segments []transcript.Segment) []transcript.Segment {
	out := segments[:0]
	var prevEnd float64
	for _, s := range segments {
		if s.Start < prevEnd {
			s.Start = prevEnd
		}
		if s.End <= s.Start {
			continue
		}
		out = append(out, s)
		prevEnd = s.End
	}
	return out
}
