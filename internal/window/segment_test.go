package window

import "testing"

func seq(n int) []int {
	keys := make([]int, n)
	for i := range keys {
		keys[i] = i
	}
	return keys
}

// trimmed concatenation of all windows must reproduce the original keys.
func assertCoverage(t *testing.T, keys []int, windows []Window) {
	t.Helper()
	var rebuilt []int
	for i, w := range windows {
		skip := 0
		if i > 0 {
			skip = len(w.OverlapKeys)
		}
		rebuilt = append(rebuilt, w.Keys[skip:]...)
	}
	if len(rebuilt) != len(keys) {
		t.Fatalf("trimmed concatenation has %d keys, want %d", len(rebuilt), len(keys))
	}
	for i := range keys {
		if rebuilt[i] != keys[i] {
			t.Fatalf("key %d: got %d, want %d", i, rebuilt[i], keys[i])
		}
	}
}

func TestSegment_single_window_shortcut(t *testing.T) {
	keys := seq(16)
	windows, err := Segment(keys, 16, 15)
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	if len(windows) != 1 {
		t.Fatalf("expected 1 window, got %d", len(windows))
	}
	if len(windows[0].OverlapKeys) != 0 {
		t.Errorf("single window should have no overlap, got %v", windows[0].OverlapKeys)
	}
	assertCoverage(t, keys, windows)
}

func TestSegment_too_few_keys(t *testing.T) {
	if _, err := Segment(seq(10), 16, 15); err != ErrTooFewKeys {
		t.Errorf("expected ErrTooFewKeys, got %v", err)
	}
}

func TestSegment_bad_overlap(t *testing.T) {
	if _, err := Segment(seq(32), 16, 16); err != ErrBadOverlap {
		t.Errorf("overlap == size: expected ErrBadOverlap, got %v", err)
	}
	if _, err := Segment(seq(32), 16, -1); err != ErrBadOverlap {
		t.Errorf("negative overlap: expected ErrBadOverlap, got %v", err)
	}
}

func TestSegment_every_window_full_size(t *testing.T) {
	windows, err := Segment(seq(40), 16, 15)
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	for i, w := range windows {
		if len(w.Keys) != 16 {
			t.Errorf("window %d has %d keys, want 16", i, len(w.Keys))
		}
	}
	assertCoverage(t, seq(40), windows)
}

func TestSegment_overlap_keys_match_previous_window(t *testing.T) {
	windows, err := Segment(seq(20), 16, 15)
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	// Window 1 starts at 1 and spans 1..16; keys 1..15 were in window 0.
	if len(windows) < 2 {
		t.Fatalf("expected at least 2 windows, got %d", len(windows))
	}
	if got := len(windows[1].OverlapKeys); got != 15 {
		t.Errorf("window 1 overlap length = %d, want 15", got)
	}
	if windows[1].OverlapKeys[0] != 1 || windows[1].OverlapKeys[14] != 15 {
		t.Errorf("window 1 overlap keys = %v, want 1..15", windows[1].OverlapKeys)
	}
}

func TestSegment_final_window_pulled_back(t *testing.T) {
	// N=21, W=16, O=12: starts walk 0, 4, then tail 21-16=5.
	keys := seq(21)
	windows, err := Segment(keys, 16, 12)
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	last := windows[len(windows)-1]
	if last.Keys[len(last.Keys)-1] != 20 {
		t.Errorf("final window must end at the last key, ends at %d", last.Keys[len(last.Keys)-1])
	}
	if last.Keys[0] != 5 {
		t.Errorf("final window should be pulled back to start at 5, starts at %d", last.Keys[0])
	}
	assertCoverage(t, keys, windows)
}

func TestSegment_pulled_back_overlap_may_exceed_nominal(t *testing.T) {
	// The pulled-back final window shares more (or fewer) keys with its
	// predecessor than the nominal overlap; membership decides, not the knob.
	windows, err := Segment(seq(21), 16, 12)
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	last := windows[len(windows)-1]
	prev := windows[len(windows)-2]
	prevSet := make(map[int]bool)
	for _, k := range prev.Keys {
		prevSet[k] = true
	}
	for _, k := range last.OverlapKeys {
		if !prevSet[k] {
			t.Errorf("overlap key %d not present in previous window", k)
		}
	}
	assertCoverage(t, seq(21), windows)
}

func TestSegment_coverage_various_shapes(t *testing.T) {
	cases := []struct {
		n, w, o int
	}{
		{16, 16, 0},
		{17, 16, 15},
		{32, 16, 15},
		{48, 16, 15},
		{33, 16, 8},
		{100, 16, 4},
		{24, 8, 0},
		{25, 8, 3},
	}
	for _, tc := range cases {
		keys := seq(tc.n)
		windows, err := Segment(keys, tc.w, tc.o)
		if err != nil {
			t.Errorf("Segment(n=%d,w=%d,o=%d): %v", tc.n, tc.w, tc.o, err)
			continue
		}
		assertCoverage(t, keys, windows)
	}
}
