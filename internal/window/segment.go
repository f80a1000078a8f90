// Package window partitions a long frame sequence into fixed-size overlapping
// context windows, enforces latent continuity between adjacent windows, and
// stitches per-window outputs back into one sequence.
package window

import "errors"

var (
	// ErrTooFewKeys is returned when the key sequence is shorter than the
	// requested window size.
	ErrTooFewKeys = errors.New("fewer keys than the window size")

	// ErrBadOverlap is returned when the overlap is negative or not smaller
	// than the window size.
	ErrBadOverlap = errors.New("overlap must be in [0, window size)")
)

// Window is one contiguous sub-range of the frame key sequence.
// OverlapKeys is the subsequence of Keys that also appeared in the
// immediately preceding window; it is empty for the first window.
type Window struct {
	Keys        []int
	OverlapKeys []int
}

// Segment splits keys into windows of exactly size elements, each starting
// size-overlap after the previous. When the tail is too short for a full
// window, the final window is pulled back so it ends at the last key; its
// overlap is computed by membership against the previous window's literal
// keys and can then be shorter than the nominal overlap. A key sequence of
// exactly size elements yields a single window with no overlap.
func Segment(keys []int, size, overlap int) ([]Window, error) {
	if overlap < 0 || overlap >= size {
		return nil, ErrBadOverlap
	}
	if len(keys) < size {
		return nil, ErrTooFewKeys
	}

	if len(keys) == size {
		w := Window{Keys: make([]int, size)}
		copy(w.Keys, keys)
		return []Window{w}, nil
	}

	var windows []Window
	prev := make(map[int]bool)

	start := 0
	for start < len(keys) {
		nextStart := start + size - overlap

		// Pull the final window back so it ends exactly at the last key.
		if len(keys)-start < size {
			start = len(keys) - size
		}

		w := Window{Keys: make([]int, size)}
		copy(w.Keys, keys[start:start+size])
		for _, k := range w.Keys {
			if prev[k] {
				w.OverlapKeys = append(w.OverlapKeys, k)
			}
		}
		windows = append(windows, w)

		prev = make(map[int]bool, size)
		for _, k := range w.Keys {
			prev[k] = true
		}

		if start+size >= len(keys) {
			break
		}
		start = nextStart
	}

	return windows, nil
}
