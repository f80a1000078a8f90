package schedule

import (
	"math"
	"testing"
)

func TestWithHolds_half_ratio_inserts_hold_key(t *testing.T) {
	m := NewMap[string]()
	m.Set(0, "a")
	m.Set(8, "b")

	out := WithHolds(m, 16, 0.5)

	keys := out.Keys()
	want := []int{0, 4, 8, 12}
	if len(keys) != len(want) {
		t.Fatalf("expected keys %v, got %v", want, keys)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("expected keys %v, got %v", want, keys)
		}
	}
	if v, _ := out.Get(4); v != "a" {
		t.Errorf("hold key 4 should carry value at 0, got %q", v)
	}
	if v, _ := out.Get(12); v != "b" {
		t.Errorf("hold key 12 should carry value at 8, got %q", v)
	}
}

func TestWithHolds_zero_ratio_is_identity(t *testing.T) {
	m := NewMap[string]()
	m.Set(0, "a")
	m.Set(8, "b")

	out := WithHolds(m, 16, 0)
	if out.Len() != 2 {
		t.Errorf("ratio 0 should insert no keys, got %v", out.Keys())
	}
}

func TestWithHolds_full_ratio_holds_until_next_key(t *testing.T) {
	m := NewMap[string]()
	m.Set(0, "a")
	m.Set(8, "b")

	out := WithHolds(m, 16, 1)

	// round(8*1.0) = 8 == next key, so the hold key is pulled back to 7.
	if v, ok := out.Get(7); !ok || v != "a" {
		t.Errorf("expected hold key at 7 with value a, got %q ok=%v", v, ok)
	}
	if v, ok := out.Get(15); !ok || v != "b" {
		t.Errorf("expected hold key at 15 with value b, got %q ok=%v", v, ok)
	}
}

func TestWithHolds_adjacent_keys_skip_insertion(t *testing.T) {
	m := NewMap[string]()
	m.Set(3, "a")
	m.Set(4, "b")

	out := WithHolds(m, 16, 0.5)
	// round(1*0.5)=1 lands on the next key, decremented back onto 3: skipped
	// for the first pair. The second pair (4..16) still gets its hold key.
	if _, ok := out.Get(2); ok {
		t.Error("no hold key should be inserted between adjacent keys")
	}
	if v, ok := out.Get(10); !ok || v != "b" {
		t.Errorf("expected hold key at 10 for the 4..16 gap, got %q ok=%v", v, ok)
	}
}

func TestWithHolds_ratio_clamped(t *testing.T) {
	m := NewMap[string]()
	m.Set(0, "a")

	out := WithHolds(m, 16, 2.5)
	if v, ok := out.Get(15); !ok || v != "a" {
		t.Errorf("ratio above 1 should behave like 1, got %q ok=%v", v, ok)
	}
}

func TestForwardFill_dense(t *testing.T) {
	m := NewMap[int]()
	m.Set(0, 10)
	m.Set(3, 30)

	out := ForwardFill(m, 6)
	wantVals := []int{10, 10, 10, 30, 30, 30}
	for f, want := range wantVals {
		got, ok := out.Get(f)
		if !ok || got != want {
			t.Errorf("frame %d: got %d ok=%v, want %d", f, got, ok, want)
		}
	}
}

func TestForwardFill_before_first_key_uses_first_value(t *testing.T) {
	m := NewMap[string]()
	m.Set(4, "x")

	out := ForwardFill(m, 8)
	for f := 0; f < 4; f++ {
		if v, _ := out.Get(f); v != "x" {
			t.Errorf("frame %d before first key should take first key's value, got %q", f, v)
		}
	}
}

func TestForwardFill_idempotent_on_dense_map(t *testing.T) {
	m := NewMap[int]()
	for f := 0; f < 8; f++ {
		m.Set(f, f*100)
	}

	out := ForwardFill(m, 8)
	if out.Len() != 8 {
		t.Fatalf("expected 8 keys, got %d", out.Len())
	}
	for f := 0; f < 8; f++ {
		if v, _ := out.Get(f); v != f*100 {
			t.Errorf("frame %d changed by forward fill: got %d", f, v)
		}
	}
}

func lerpFloat(a, b float64, rate float64) float64 {
	return a*(1-rate) + b*rate
}

func TestInterp_exact_keyframe_returns_value_unblended(t *testing.T) {
	m := NewMap[float64]()
	m.Set(0, 1.0)
	m.Set(8, 9.0)

	p, err := NewInterp(m, 16, lerpFloat)
	if err != nil {
		t.Fatalf("NewInterp: %v", err)
	}
	if got := p.At(0); got != 1.0 {
		t.Errorf("At(0) = %v, want exactly 1.0", got)
	}
	if got := p.At(8); got != 9.0 {
		t.Errorf("At(8) = %v, want exactly 9.0", got)
	}
}

func TestInterp_midpoint(t *testing.T) {
	m := NewMap[float64]()
	m.Set(0, 0.0)
	m.Set(8, 8.0)

	p, err := NewInterp(m, 16, lerpFloat)
	if err != nil {
		t.Fatalf("NewInterp: %v", err)
	}
	if got := p.At(4); math.Abs(got-4.0) > 1e-9 {
		t.Errorf("At(4) = %v, want 4.0", got)
	}
}

func TestInterp_wraps_circularly(t *testing.T) {
	m := NewMap[float64]()
	m.Set(0, 0.0)
	m.Set(8, 8.0)

	p, err := NewInterp(m, 16, lerpFloat)
	if err != nil {
		t.Fatalf("NewInterp: %v", err)
	}
	// Frame 12: prev key 8 (dist 4), next key 0 wrapped (dist 4), rate 0.5.
	if got := p.At(12); math.Abs(got-4.0) > 1e-9 {
		t.Errorf("At(12) = %v, want 4.0 (circular blend)", got)
	}
}

func TestInterp_single_key_always_exact(t *testing.T) {
	m := NewMap[float64]()
	m.Set(5, 7.0)

	p, err := NewInterp(m, 16, lerpFloat)
	if err != nil {
		t.Fatalf("NewInterp: %v", err)
	}
	for f := 0; f < 16; f++ {
		if got := p.At(f); got != 7.0 {
			t.Errorf("At(%d) = %v, want 7.0", f, got)
		}
	}
}

func TestNewInterp_empty_map(t *testing.T) {
	if _, err := NewInterp(NewMap[float64](), 16, lerpFloat); err != ErrNoKeys {
		t.Errorf("expected ErrNoKeys, got %v", err)
	}
}

func TestBuildPromptSchedule_joins_head_and_tail(t *testing.T) {
	out := BuildPromptSchedule(map[int]string{0: "castle", 20: "dropped"}, "masterpiece", "4k", 0, 16)

	if v, _ := out.Get(0); v != "masterpiece,castle,4k" {
		t.Errorf("unexpected prompt: %q", v)
	}
	if _, ok := out.Get(20); ok {
		t.Error("keys past duration should be dropped")
	}
}
