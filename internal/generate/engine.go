// Package generate drives the external generation engine across overlapping
// context windows and assembles the final sequence.
package generate

import (
	"context"
	"image"

	"vidgen-orchestrator/internal/assets"
	"vidgen-orchestrator/internal/region"
	"vidgen-orchestrator/internal/schedule"
	"vidgen-orchestrator/internal/window"
)

// Callback is invoked by the engine at the end of every denoising iteration.
// The engine grants in-place mutation rights on latents for the duration of
// the call only.
type Callback func(iteration, timestep int, latents *window.Latent)

// ReferenceParams carries the optional reference image conditioning forwarded
// to the engine unchanged.
type ReferenceParams struct {
	Image           image.Image
	StyleFidelity   float64
	AttentionWeight float64
	GNWeight        float64
	ReferenceAttn   bool
	ReferenceAdain  bool
	ScalePattern    []float64
}

// WindowRequest is one generation-engine invocation: a single context window
// with its conditioning sliced to window-local frame positions (0..Length-1).
type WindowRequest struct {
	WindowIndex    int
	Seed           int64
	NegativePrompt string
	Steps          int
	GuidanceScale  float64
	Width          int
	Height         int
	Length         int

	// Keys are the absolute frame indices this window covers.
	Keys []int

	Bundles         []region.Bundle
	Regions         []region.Entry
	AdapterSettings *region.AdapterSettings

	ControlImages   map[string]schedule.Map[image.Image]
	ControlSettings map[string]assets.ControlSettings

	Reference *ReferenceParams
	Img2Img   *assets.Img2ImgMap

	Callback Callback
}

// Engine is the external generation engine. Generate blocks for the duration
// of one window's denoising loop, invoking req.Callback once per iteration,
// and returns a finished buffer of exactly req.Length frames.
type Engine interface {
	Generate(ctx context.Context, req WindowRequest) (window.Output, error)
}
