package window

import (
	"errors"
	"fmt"
	"image"
)

var (
	// ErrMixedOutputTypes is returned when window outputs do not share one
	// buffer representation.
	ErrMixedOutputTypes = errors.New("window outputs must share one representation")

	// ErrNoOutputs is returned when there is nothing to stitch.
	ErrNoOutputs = errors.New("no window outputs to stitch")
)

// Output is one finished per-window frame sequence. The two supported
// representations are *Latent and FrameSeq.
type Output interface {
	FrameCount() int
}

// FrameSeq is a plain array-of-frames window output.
type FrameSeq []image.Image

// FrameCount implements Output.
func (s FrameSeq) FrameCount() int { return len(s) }

// FrameCount implements Output.
func (l *Latent) FrameCount() int { return l.Frames }

// Stitch concatenates window outputs along the time axis. The first output is
// taken whole; each later output has its leading len(overlaps[i]) frames
// dropped, since those duplicate the previous window's trailing frames. The
// result uses the same representation as the inputs; mixing representations
// is an error.
func Stitch(outputs []Output, overlaps [][]int) (Output, error) {
	if len(outputs) == 0 {
		return nil, ErrNoOutputs
	}
	if len(overlaps) < len(outputs) {
		return nil, fmt.Errorf("have %d outputs but %d overlap lists", len(outputs), len(overlaps))
	}

	switch outputs[0].(type) {
	case *Latent:
		return stitchLatents(outputs, overlaps)
	case FrameSeq:
		return stitchFrames(outputs, overlaps)
	default:
		return nil, fmt.Errorf("%w: unsupported type %T", ErrMixedOutputTypes, outputs[0])
	}
}

func stitchLatents(outputs []Output, overlaps [][]int) (Output, error) {
	first, ok := outputs[0].(*Latent)
	if !ok {
		return nil, ErrMixedOutputTypes
	}

	total := first.Frames
	for i := 1; i < len(outputs); i++ {
		l, ok := outputs[i].(*Latent)
		if !ok {
			return nil, ErrMixedOutputTypes
		}
		if !first.SameShapeNoFrames(l) {
			return nil, fmt.Errorf("window %d latent shape differs from window 0", i)
		}
		total += l.Frames - len(overlaps[i])
	}

	out := NewLatent(first.Batch, first.Channels, total, first.Height, first.Width)
	dst := 0
	for i, o := range outputs {
		l := o.(*Latent)
		skip := 0
		if i > 0 {
			skip = len(overlaps[i])
		}
		for f := skip; f < l.Frames; f++ {
			if err := out.CopyFrame(dst, l, f); err != nil {
				return nil, err
			}
			dst++
		}
	}
	return out, nil
}

func stitchFrames(outputs []Output, overlaps [][]int) (Output, error) {
	var out FrameSeq
	for i, o := range outputs {
		seq, ok := o.(FrameSeq)
		if !ok {
			return nil, ErrMixedOutputTypes
		}
		skip := 0
		if i > 0 {
			skip = len(overlaps[i])
		}
		out = append(out, seq[skip:]...)
	}
	return out, nil
}
