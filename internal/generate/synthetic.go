package generate

import (
	"context"
	"hash/fnv"
	"image"
	"image/color"

	"vidgen-orchestrator/internal/schedule"
	"vidgen-orchestrator/internal/window"
)

// SyntheticEngine is a deterministic stand-in engine for development and
// pipeline validation. It runs the full iteration/callback protocol with real
// latent buffers, then renders each frame as a flat shade derived from the
// seed, absolute frame index, and interpolated prompt schedule. Real engines
// plug in through the Engine interface.
type SyntheticEngine struct {
	// LatentChannels and LatentScale shape the synthetic latents; zero values
	// get sensible defaults.
	LatentChannels int
	LatentScale    int
}

// Generate implements Engine.
func (e SyntheticEngine) Generate(ctx context.Context, req WindowRequest) (window.Output, error) {
	channels := e.LatentChannels
	if channels <= 0 {
		channels = 4
	}
	scale := e.LatentScale
	if scale <= 0 {
		scale = 8
	}

	lh := req.Height / scale
	lw := req.Width / scale
	if lh < 1 {
		lh = 1
	}
	if lw < 1 {
		lw = 1
	}

	for iter := 0; iter < req.Steps; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lat := window.NewLatent(1, channels, req.Length, lh, lw)
		for f := 0; f < req.Length; f++ {
			v := frameValue(req.Seed, req.Keys[f], iter)
			base := f * lh * lw
			for c := 0; c < channels; c++ {
				off := c*req.Length*lh*lw + base
				for i := 0; i < lh*lw; i++ {
					lat.Data[off+i] = v
				}
			}
		}
		if req.Callback != nil {
			req.Callback(iter, req.Steps-iter, lat)
		}
	}

	weights := promptWeights(req)

	frames := make(window.FrameSeq, req.Length)
	for f := 0; f < req.Length; f++ {
		v := frameValue(req.Seed, req.Keys[f], req.Steps-1)
		if weights != nil {
			v = (v + weights[f]) / 2
		}
		shade := uint8(v * 255)
		img := image.NewRGBA(image.Rect(0, 0, req.Width, req.Height))
		for y := 0; y < req.Height; y++ {
			for x := 0; x < req.Width; x++ {
				img.SetRGBA(x, y, color.RGBA{R: shade, G: shade, B: shade, A: 255})
			}
		}
		frames[f] = img
	}
	return frames, nil
}

// promptWeights resolves a per-frame scalar from the background prompt
// schedule, standing in for the per-frame embedding interpolation a real
// engine performs. Returns nil when the window carries no prompts.
func promptWeights(req WindowRequest) []float32 {
	if len(req.Bundles) == 0 || req.Bundles[0].Prompts.Len() == 0 {
		return nil
	}
	prompts := req.Bundles[0].Prompts

	hashed := schedule.NewMap[float32]()
	for _, k := range prompts.Keys() {
		s, _ := prompts.Get(k)
		hashed.Set(k, stringValue(s))
	}

	interp, err := schedule.NewInterp(hashed, req.Length, func(prev, next float32, rate float64) float32 {
		return prev + float32(rate)*(next-prev)
	})
	if err != nil {
		return nil
	}

	out := make([]float32, req.Length)
	for f := range out {
		out[f] = interp.At(f)
	}
	return out
}

// stringValue hashes a string into [0, 1).
func stringValue(s string) float32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return float32(h.Sum32()%1000) / 1000
}

// frameValue hashes (seed, frame, iteration) into [0, 1).
func frameValue(seed int64, frame, iteration int) float32 {
	h := fnv.New32a()
	var buf [12]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(seed >> (8 * i))
	}
	buf[8] = byte(frame)
	buf[9] = byte(frame >> 8)
	buf[10] = byte(iteration)
	buf[11] = byte(iteration >> 8)
	h.Write(buf[:])
	return float32(h.Sum32()%1000) / 1000
}
