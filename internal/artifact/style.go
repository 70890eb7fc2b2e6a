package artifact

import (
	"fmt"
	"strings"

	"captionforge/internal/transcript"
)

// Per-segment duration bounds for overlay scripts. A zero-length cue breaks
// replay in the overlay engine, so out-of-bounds segments are clamped, not
// rejected.
const (
	minCueSeconds = 0.5
	maxCueSeconds = 8.0
)

const defaultLineBudget = 42

// StylePreset bundles the typography of an overlay script.
type StylePreset struct {
	Name          string
	Font          string
	FontSize      int
	Fill          [3]float64
	Stroke        [3]float64
	StrokeWidth   int
	ShadowOpacity int
	FadeInSec     float64
	FadeOutSec    float64
}

// PositionPreset is a normalized screen position plus anchor.
type PositionPreset struct {
	Name   string
	X      float64
	Y      float64
	Anchor string
}

var stylePresets = map[string]StylePreset{
	"default": {
		Name: "default", Font: "Arial-BoldMT", FontSize: 48,
		Fill: [3]float64{1, 1, 1}, Stroke: [3]float64{0, 0, 0}, StrokeWidth: 3,
		ShadowOpacity: 75, FadeInSec: 0.15, FadeOutSec: 0.15,
	},
	"minimal": {
		Name: "minimal", Font: "Helvetica", FontSize: 42,
		Fill: [3]float64{1, 1, 1},
	},
	"broadcast": {
		Name: "broadcast", Font: "Arial-BoldMT", FontSize: 52,
		Fill: [3]float64{1, 0.9, 0.2}, Stroke: [3]float64{0, 0, 0}, StrokeWidth: 4,
		ShadowOpacity: 90, FadeInSec: 0.1, FadeOutSec: 0.1,
	},
	"neon": {
		Name: "neon", Font: "Futura-Bold", FontSize: 50,
		Fill: [3]float64{0.2, 1, 0.95}, Stroke: [3]float64{0.05, 0.05, 0.2}, StrokeWidth: 2,
		ShadowOpacity: 100, FadeInSec: 0.25, FadeOutSec: 0.25,
	},
}

var positionPresets = map[string]PositionPreset{
	"bottom":      {Name: "bottom", X: 0.5, Y: 0.9, Anchor: "bottom-center"},
	"top":         {Name: "top", X: 0.5, Y: 0.1, Anchor: "top-center"},
	"center":      {Name: "center", X: 0.5, Y: 0.5, Anchor: "center"},
	"lower-third": {Name: "lower-third", X: 0.5, Y: 0.75, Anchor: "bottom-center"},
}

func lookupStyle(name string) (StylePreset, error) {
	if name == "" {
		name = "default"
	}
	s, ok := stylePresets[name]
	if !ok {
		return StylePreset{}, fmt.Errorf("unknown style preset %q", name)
	}
	return s, nil
}

func lookupPosition(name string) (PositionPreset, error) {
	if name == "" {
		name = "bottom"
	}
	p, ok := positionPresets[name]
	if !ok {
		return PositionPreset{}, fmt.Errorf("unknown position preset %q", name)
	}
	return p, nil
}

// clampCue resizes a segment's duration into [minCueSeconds, maxCueSeconds].
func clampCue(s transcript.Segment) transcript.Segment {
	dur := s.End - s.Start
	if dur < minCueSeconds {
		s.End = s.Start + minCueSeconds
	} else if dur > maxCueSeconds {
		s.End = s.Start + maxCueSeconds
	}
	return s
}

// wrapText splits text on word boundaries so no line exceeds budget runes,
// then rebalances the last two lines when the final line would be a single
// orphaned word.
func wrapText(text string, budget int) []string {
	if budget <= 0 {
		budget = defaultLineBudget
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	current := words[0]
	for _, w := range words[1:] {
		if len(current)+1+len(w) > budget {
			lines = append(lines, current)
			current = w
			continue
		}
		current += " " + w
	}
	lines = append(lines, current)

	if len(lines) >= 2 && len(strings.Fields(lines[len(lines)-1])) == 1 {
		lines = rebalanceTail(lines, budget)
	}
	return lines
}

// rebalanceTail re-splits the last two lines as evenly as possible.
func rebalanceTail(lines []string, budget int) []string {
	merged := strings.Fields(lines[len(lines)-2] + " " + lines[len(lines)-1])
	if len(merged) < 2 {
		return lines
	}

	best := 1
	bestDiff := -1
	for split := 1; split < len(merged); split++ {
		a := strings.Join(merged[:split], " ")
		b := strings.Join(merged[split:], " ")
		if len(a) > budget || len(b) > budget {
			continue
		}
		diff := len(a) - len(b)
		if diff < 0 {
			diff = -diff
		}
		if bestDiff == -1 || diff < bestDiff {
			best, bestDiff = split, diff
		}
	}

	out := append([]string(nil), lines[:len(lines)-2]...)
	out = append(out,
		strings.Join(merged[:best], " "),
		strings.Join(merged[best:], " "))
	return out
}
