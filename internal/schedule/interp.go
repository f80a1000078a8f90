package schedule

import "errors"

// ErrNoKeys is returned when building an interpolator over an empty map.
var ErrNoKeys = errors.New("keyframe map has no keys")

// BlendFunc produces a weighted interpolation between the values at two
// neighboring keyframes. rate is in (0, 1): 0 would be all prev, 1 all next.
type BlendFunc[T any] func(prev, next T, rate float64) T

// Interp resolves per-frame values from a sparse keyframe map, treating the
// key sequence as circular over the full duration.
type Interp[T any] struct {
	keys     []int
	values   map[int]T
	duration int
	blend    BlendFunc[T]
}

// NewInterp builds an interpolator over m for a sequence of the given
// duration. blend is only invoked between distinct neighboring keys.
func NewInterp[T any](m Map[T], duration int, blend BlendFunc[T]) (*Interp[T], error) {
	if m.Len() == 0 {
		return nil, ErrNoKeys
	}
	values := make(map[int]T, m.Len())
	keys := m.Keys()
	for _, k := range keys {
		values[k], _ = m.Get(k)
	}
	return &Interp[T]{keys: keys, values: values, duration: duration, blend: blend}, nil
}

// At returns the value for the given frame. The nearest key at or before the
// frame and the nearest key after it are located with circular wrap-around;
// querying exactly at a keyframe returns that key's value with no blending.
func (p *Interp[T]) At(frame int) T {
	keyPrev := p.keys[len(p.keys)-1]
	keyNext := p.keys[0]
	for _, k := range p.keys {
		if k > frame {
			keyNext = k
			break
		}
		keyPrev = k
	}

	distPrev := frame - keyPrev
	if distPrev < 0 {
		distPrev += p.duration
	}
	distNext := keyNext - frame
	if distNext < 0 {
		distNext += p.duration
	}

	if keyPrev == keyNext || distPrev == 0 || distPrev+distNext == 0 {
		return p.values[keyPrev]
	}

	rate := float64(distPrev) / float64(distPrev+distNext)
	return p.blend(p.values[keyPrev], p.values[keyNext], rate)
}
