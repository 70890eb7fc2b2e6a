package transcribe

import (
	"fmt"

	"captionforge/internal/errs"
)

// window is one bounded time slice of the job's audio. Windows overlap so
// words spoken across a boundary land intact in at least one of them.
type window struct {
	Index        int
	Start        float64
	End          float64
	OverlapStart float64
	OverlapEnd   float64
}

// planWindows partitions [0, duration) into fixed-size windows with a fixed
// overlap between neighbours. Window i starts at i*(size-overlap); the last
// window is clipped to the total duration.
func planWindows(duration, size, overlap float64) ([]window, error) {
	if duration < 1 {
		return nil, &errs.InvalidInputError{
			Reason: fmt.Sprintf("audio too short: %.2fs", duration),
		}
	}

	step := size - overlap
	var windows []window
	for i := 0; ; i++ {
		start := float64(i) * step
		if start >= duration {
			break
		}
		end := start + size
		if end > duration {
			end = duration
		}

		w := window{Index: i, Start: start, End: end}
		if i > 0 {
			w.OverlapStart = overlap
		}
		windows = append(windows, w)

		if end >= duration {
			break
		}
	}

	// Every window except the last hands its trailing overlap to the next.
	for i := range windows[:len(windows)-1] {
		windows[i].OverlapEnd = overlap
	}

	return windows, nil
}
