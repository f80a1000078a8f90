// Package encode hands the stitched frame sequence to an output encoder
// selected by the requested format. Codec-based containers are an external
// collaborator; only the GIF path is built in.
package encode

import (
	"errors"
	"fmt"
	"image"
	"image/color/palette"
	"image/gif"
	"os"
	"path/filepath"
)

// DefaultFPS matches the model's native frame rate.
const DefaultFPS = 8

// ErrUnknownFormat is returned when no encoder is registered for a format.
var ErrUnknownFormat = errors.New("unknown output format")

// Encoder writes an ordered frame sequence at the given frames-per-second.
type Encoder interface {
	// Encode writes frames to outFile (without extension; the encoder picks
	// it) and returns the final path.
	Encode(frames []image.Image, outFile string, fps int) (string, error)
}

// Selector picks an encoder by output format. "mp4" is normalized to "h264";
// "gif" uses the built-in GIF writer and anything else goes to the external
// codec encoder, which may be nil when codec output is not configured.
type Selector struct {
	codec Encoder
}

// NewSelector returns a Selector. codec may be nil.
func NewSelector(codec Encoder) *Selector {
	return &Selector{codec: codec}
}

// Select returns the encoder for a format.
func (s *Selector) Select(format string) (Encoder, error) {
	if format == "" {
		format = "gif"
	}
	if format == "mp4" {
		format = "h264"
	}
	if format == "gif" {
		return GIFEncoder{}, nil
	}
	if s.codec == nil {
		return nil, fmt.Errorf("%w: %q and no codec encoder configured", ErrUnknownFormat, format)
	}
	return s.codec, nil
}

// GIFEncoder writes an animated GIF with the stdlib encoder.
type GIFEncoder struct{}

// Encode implements Encoder.
func (GIFEncoder) Encode(frames []image.Image, outFile string, fps int) (string, error) {
	if len(frames) == 0 {
		return "", errors.New("no frames to encode")
	}
	if fps <= 0 {
		fps = DefaultFPS
	}

	delay := 100 / fps // GIF delay units are hundredths of a second
	if delay < 1 {
		delay = 1
	}

	anim := &gif.GIF{}
	for _, frame := range frames {
		pal := toPaletted(frame)
		anim.Image = append(anim.Image, pal)
		anim.Delay = append(anim.Delay, delay)
	}

	path := outFile + ".gif"
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if err := gif.EncodeAll(f, anim); err != nil {
		return "", fmt.Errorf("encode gif: %w", err)
	}
	return path, nil
}

func toPaletted(img image.Image) *image.Paletted {
	if p, ok := img.(*image.Paletted); ok {
		return p
	}
	b := img.Bounds()
	pal := image.NewPaletted(b, palette.Plan9)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			pal.Set(x, y, img.At(x, y))
		}
	}
	return pal
}
