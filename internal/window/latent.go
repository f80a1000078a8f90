package window

import "fmt"

// Latent is the generation engine's in-progress numeric state for one window,
// indexed [batch, channel, frame, height, width] over a flat float32 slice.
type Latent struct {
	Batch    int
	Channels int
	Frames   int
	Height   int
	Width    int
	Data     []float32
}

// NewLatent allocates a zeroed latent buffer with the given shape.
func NewLatent(batch, channels, frames, height, width int) *Latent {
	return &Latent{
		Batch:    batch,
		Channels: channels,
		Frames:   frames,
		Height:   height,
		Width:    width,
		Data:     make([]float32, batch*channels*frames*height*width),
	}
}

// Clone returns a deep copy of the buffer.
func (l *Latent) Clone() *Latent {
	out := &Latent{
		Batch:    l.Batch,
		Channels: l.Channels,
		Frames:   l.Frames,
		Height:   l.Height,
		Width:    l.Width,
		Data:     make([]float32, len(l.Data)),
	}
	copy(out.Data, l.Data)
	return out
}

// SameShapeNoFrames reports whether the two buffers agree on every dimension
// except the frame axis.
func (l *Latent) SameShapeNoFrames(o *Latent) bool {
	return l.Batch == o.Batch && l.Channels == o.Channels &&
		l.Height == o.Height && l.Width == o.Width
}

// At returns the value at the given indices. Intended for tests and small
// inspections; bulk access should go through Data with explicit strides.
func (l *Latent) At(b, c, f, h, w int) float32 {
	return l.Data[l.offset(b, c, f, h, w)]
}

// Set writes the value at the given indices.
func (l *Latent) Set(b, c, f, h, w int, v float32) {
	l.Data[l.offset(b, c, f, h, w)] = v
}

func (l *Latent) offset(b, c, f, h, w int) int {
	return (((b*l.Channels+c)*l.Frames+f)*l.Height+h)*l.Width + w
}

// CopyFrame overwrites frame dst of l with frame src of from, across every
// batch and channel. The buffers must agree on all non-frame dimensions.
func (l *Latent) CopyFrame(dst int, from *Latent, src int) error {
	if !l.SameShapeNoFrames(from) {
		return fmt.Errorf("latent shape mismatch: %dx%dx%dx%d vs %dx%dx%dx%d",
			l.Batch, l.Channels, l.Height, l.Width,
			from.Batch, from.Channels, from.Height, from.Width)
	}
	if dst < 0 || dst >= l.Frames {
		return fmt.Errorf("destination frame %d out of range [0,%d)", dst, l.Frames)
	}
	if src < 0 || src >= from.Frames {
		return fmt.Errorf("source frame %d out of range [0,%d)", src, from.Frames)
	}

	plane := l.Height * l.Width
	for b := 0; b < l.Batch; b++ {
		for c := 0; c < l.Channels; c++ {
			do := l.offset(b, c, dst, 0, 0)
			so := from.offset(b, c, src, 0, 0)
			copy(l.Data[do:do+plane], from.Data[so:so+plane])
		}
	}
	return nil
}
