// Package schedule turns sparse keyframe maps into the dense, policy-consistent
// schedules consumed per frame at generation time.
package schedule

import (
	"math"
	"sort"
)

// Map is a keyframe map: frame index -> value. Keys are unique; iteration
// order is always ascending by key regardless of insertion order.
type Map[T any] struct {
	m map[int]T
}

// NewMap returns an empty keyframe map.
func NewMap[T any]() Map[T] {
	return Map[T]{m: make(map[int]T)}
}

// Set records the value for the given frame, replacing any previous value.
func (m Map[T]) Set(frame int, v T) {
	m.m[frame] = v
}

// Get returns the value at the given frame and whether it exists.
func (m Map[T]) Get(frame int) (T, bool) {
	v, ok := m.m[frame]
	return v, ok
}

// Len returns the number of keyframes.
func (m Map[T]) Len() int {
	return len(m.m)
}

// Keys returns all frame indices in ascending order.
func (m Map[T]) Keys() []int {
	keys := make([]int, 0, len(m.m))
	for k := range m.m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// Clone returns a shallow copy of the map.
func (m Map[T]) Clone() Map[T] {
	out := Map[T]{m: make(map[int]T, len(m.m))}
	for k, v := range m.m {
		out.m[k] = v
	}
	return out
}

// ClampRatio clamps a fixed ratio into [0, 1].
func ClampRatio(ratio float64) float64 {
	return math.Max(0, math.Min(1, ratio))
}

// WithHolds returns a copy of m augmented with hold keys: for each consecutive
// key pair (k0, k1), with the last key's successor wrapping to duration, an
// extra key at k0 + round((k1-k0)*fixedRatio) carrying the value at k0. The
// extra key is decremented when it would land on k1 and dropped when it would
// land on k0, so a ratio of 0 disables holding and a ratio of 1 makes each
// value persist until the next key.
func WithHolds[T any](m Map[T], duration int, fixedRatio float64) Map[T] {
	fixedRatio = ClampRatio(fixedRatio)

	out := m.Clone()
	keys := m.Keys()
	for i, k0 := range keys {
		k1 := duration
		if i+1 < len(keys) {
			k1 = keys[i+1]
		}
		k05 := k0 + int(math.Round(float64(k1-k0)*fixedRatio))
		if k05 == k1 {
			k05--
		}
		if k05 == k0 {
			continue
		}
		v, _ := m.Get(k0)
		out.Set(k05, v)
	}
	return out
}

// ForwardFill returns a dense copy of m covering every frame in [0, duration):
// each frame takes the value of the nearest key at or before it, and frames
// before the first key take the first key's value. Filling an already-dense
// map returns an identical map.
func ForwardFill[T any](m Map[T], duration int) Map[T] {
	keys := m.Keys()
	out := m.Clone()
	if len(keys) == 0 {
		return out
	}

	prev, _ := m.Get(keys[0])
	for f := 0; f < duration; f++ {
		if v, ok := m.Get(f); ok {
			prev = v
			continue
		}
		out.Set(f, prev)
	}
	return out
}
