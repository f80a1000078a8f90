package generate

import (
	"context"
	"fmt"
	"image"
	"log/slog"

	"vidgen-orchestrator/internal/assets"
	"vidgen-orchestrator/internal/region"
	"vidgen-orchestrator/internal/schedule"
	"vidgen-orchestrator/internal/window"
)

// DefaultWindowSize matches the model's native temporal window.
const DefaultWindowSize = 16

// DefaultOverlap keeps all but one frame shared between adjacent windows.
const DefaultOverlap = 15

// Request describes one full-sequence generation.
type Request struct {
	Duration       int
	Seed           int64
	NegativePrompt string
	Steps          int
	GuidanceScale  float64
	Width          int
	Height         int

	Bundles         []region.Bundle
	Regions         []region.Entry
	AdapterSettings *region.AdapterSettings

	Controls  *assets.ControlResult
	Reference *ReferenceParams
	Img2Img   *assets.Img2ImgMap
}

// Coordinator partitions a generation request into context windows and runs
// the engine once per window, strictly in order: each window's denoising
// depends on the previous window's per-iteration latents.
type Coordinator struct {
	engine     Engine
	log        *slog.Logger
	windowSize int
	overlap    int
}

// NewCoordinator returns a Coordinator. Non-positive windowSize or a
// non-sensical overlap fall back to the defaults.
func NewCoordinator(engine Engine, log *slog.Logger, windowSize, overlap int) *Coordinator {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	if overlap < 0 || overlap >= windowSize {
		overlap = windowSize - 1
	}
	return &Coordinator{engine: engine, log: log, windowSize: windowSize, overlap: overlap}
}

// WindowSize reports the coordinator's context window length in frames.
// Durations shorter than this cannot be generated.
func (c *Coordinator) WindowSize() int { return c.windowSize }

// Run generates the full sequence and returns the stitched output plus the
// number of windows executed. A window failure aborts the run; no partial
// output is produced.
func (c *Coordinator) Run(ctx context.Context, req Request) (window.Output, int, error) {
	keys := make([]int, req.Duration)
	for i := range keys {
		keys[i] = i
	}

	windows, err := window.Segment(keys, c.windowSize, c.overlap)
	if err != nil {
		return nil, 0, fmt.Errorf("segment %d frames into windows of %d: %w", req.Duration, c.windowSize, err)
	}

	cache := window.NewCache()
	outputs := make([]window.Output, 0, len(windows))
	overlaps := make([][]int, len(windows))

	for i, w := range windows {
		if err := ctx.Err(); err != nil {
			return nil, i, err
		}
		overlaps[i] = w.OverlapKeys

		c.log.Info("generating window",
			slog.Int("window", i),
			slog.Int("of", len(windows)),
			slog.Int("start_frame", w.Keys[0]),
			slog.Int("overlap", len(w.OverlapKeys)),
		)

		var cbErr error
		overlapLen := len(w.OverlapKeys)
		wreq := c.windowRequest(req, i, w)
		wreq.Callback = func(iteration, timestep int, latents *window.Latent) {
			if cbErr != nil {
				return
			}
			if err := window.Enforce(cache, i, iteration, overlapLen, latents); err != nil {
				cbErr = err
				return
			}
			// Cached post-enforcement so the next window reads the frames the
			// overlap was actually pinned to.
			cache.Put(i, iteration, latents.Clone())
		}

		out, err := c.engine.Generate(ctx, wreq)
		if err != nil {
			return nil, i, fmt.Errorf("window %d: %w", i, err)
		}
		if cbErr != nil {
			return nil, i, fmt.Errorf("window %d continuity: %w", i, cbErr)
		}
		if out.FrameCount() != c.windowSize {
			return nil, i, fmt.Errorf("window %d: engine returned %d frames, want %d", i, out.FrameCount(), c.windowSize)
		}

		outputs = append(outputs, out)

		// Only the immediately preceding window is ever read back.
		if i >= 1 {
			cache.ReleaseBefore(i - 1)
		}
	}

	stitched, err := window.Stitch(outputs, overlaps)
	if err != nil {
		return nil, len(windows), fmt.Errorf("stitch: %w", err)
	}
	if stitched.FrameCount() != req.Duration {
		return nil, len(windows), fmt.Errorf("stitched %d frames, want %d", stitched.FrameCount(), req.Duration)
	}
	return stitched, len(windows), nil
}

// windowRequest slices the request's conditioning down to one window,
// reindexed to window-local frame positions.
func (c *Coordinator) windowRequest(req Request, idx int, w window.Window) WindowRequest {
	bundles := make([]region.Bundle, len(req.Bundles))
	for i, b := range req.Bundles {
		sliced := region.Bundle{Prompts: slicePrompts(b.Prompts, w.Keys)}
		if b.Adapter != nil {
			sliced.Adapter = &region.AdapterSchedule{
				Images:   sliceAnchored(b.Adapter.Images, w.Keys),
				Settings: b.Adapter.Settings,
			}
		}
		bundles[i] = sliced
	}

	regions := make([]region.Entry, len(req.Regions))
	for i, e := range req.Regions {
		out := region.Entry{Source: e.Source}
		if e.Masks != nil {
			m := sliceAnchored(*e.Masks, w.Keys)
			out.Masks = &m
		}
		regions[i] = out
	}

	var controlImages map[string]schedule.Map[image.Image]
	var controlSettings map[string]assets.ControlSettings
	if req.Controls != nil {
		controlImages = make(map[string]schedule.Map[image.Image], len(req.Controls.Images))
		for condType, m := range req.Controls.Images {
			controlImages[condType] = sliceExact(m, w.Keys)
		}
		controlSettings = req.Controls.Settings
	}

	var img2img *assets.Img2ImgMap
	if req.Img2Img != nil {
		img2img = &assets.Img2ImgMap{
			Images:   sliceExact(req.Img2Img.Images, w.Keys),
			Strength: req.Img2Img.Strength,
		}
	}

	return WindowRequest{
		WindowIndex:     idx,
		Seed:            req.Seed,
		NegativePrompt:  req.NegativePrompt,
		Steps:           req.Steps,
		GuidanceScale:   req.GuidanceScale,
		Width:           req.Width,
		Height:          req.Height,
		Length:          c.windowSize,
		Keys:            w.Keys,
		Bundles:         bundles,
		Regions:         regions,
		AdapterSettings: req.AdapterSettings,
		ControlImages:   controlImages,
		ControlSettings: controlSettings,
		Reference:       req.Reference,
		Img2Img:         img2img,
	}
}

// sliceExact keeps only the schedule entries whose absolute frame falls in
// the window, reindexed to local positions.
func sliceExact[T any](m schedule.Map[T], keys []int) schedule.Map[T] {
	out := schedule.NewMap[T]()
	for local, k := range keys {
		if v, ok := m.Get(k); ok {
			out.Set(local, v)
		}
	}
	return out
}

// sliceAnchored is sliceExact plus an anchor: when no key lands on the
// window's first frame, local position 0 takes the nearest value at or before
// it so the window never starts without a value.
func sliceAnchored[T any](m schedule.Map[T], keys []int) schedule.Map[T] {
	out := sliceExact(m, keys)
	if _, ok := out.Get(0); ok {
		return out
	}
	if v, ok := valueAtOrBefore(m, keys[0]); ok {
		out.Set(0, v)
	}
	return out
}

// slicePrompts anchors like sliceAnchored; prompt schedules always carry at
// least one key, so every window sees a prompt.
func slicePrompts(m schedule.Map[string], keys []int) schedule.Map[string] {
	return sliceAnchored(m, keys)
}

func valueAtOrBefore[T any](m schedule.Map[T], frame int) (T, bool) {
	var (
		best  T
		found bool
	)
	for _, k := range m.Keys() {
		if k > frame {
			break
		}
		best, _ = m.Get(k)
		found = true
	}
	if !found {
		// Before the first key: use the first key's value.
		mk := m.Keys()
		if len(mk) > 0 {
			best, _ = m.Get(mk[0])
			found = true
		}
	}
	return best, found
}
