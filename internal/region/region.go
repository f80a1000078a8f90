// Package region merges the background conditioning source and any masked
// region sources into the ordered bundle and region lists the generation
// engine consumes.
package region

import (
	"errors"
	"image"

	"vidgen-orchestrator/internal/schedule"
)

// ErrNoUsableRegion is returned when composition yields no conditioning
// bundle at all: every source is disabled or defers to a missing init image.
var ErrNoUsableRegion = errors.New("no usable region")

// SourceInitImage marks a region (or the background) as conditioned by the
// externally supplied initial image instead of an own bundle.
const SourceInitImage = -1

// AdapterSettings carries the scale and feature-mode flags of a reference
// image adapter configuration.
type AdapterSettings struct {
	Scale    float64
	Plus     bool
	PlusFace bool
	Light    bool
}

// AdapterSchedule is a frame-sparse reference image schedule plus the
// settings it was configured with.
type AdapterSchedule struct {
	Images   schedule.Map[image.Image]
	Settings AdapterSettings
}

// Bundle is one conditioning source handed to the engine: a prompt schedule
// and an optional adapter image schedule.
type Bundle struct {
	Prompts schedule.Map[string]
	Adapter *AdapterSchedule
}

// Entry maps one region to the bundle that conditions it. Masks is nil for
// the background (the region covering everything not claimed by a mask).
// Source indexes the bundle list, or is SourceInitImage.
type Entry struct {
	Masks  *schedule.Map[image.Image]
	Source int
}

// ConditionSource is the prompt/adapter conditioning of one source, with
// schedules already materialized (hold keys inserted, assets loaded).
type ConditionSource struct {
	Prompts schedule.Map[string]
	Adapter *AdapterSchedule
}

// BackgroundSpec configures the background conditioning source.
type BackgroundSpec struct {
	// UseInitImage diverts the background to the externally supplied initial
	// image; the background then contributes no bundle.
	UseInitImage bool
	Source       ConditionSource
}

// RegionSpec configures one masked region.
type RegionSpec struct {
	Name         string
	Enabled      bool
	UseInitImage bool
	// Masks is the region's mask image schedule; a region without masks is
	// skipped entirely.
	Masks  *schedule.Map[image.Image]
	Source ConditionSource
}

// Compose builds the ordered bundle and region lists. The background is
// always entry 0; its bundle is index 0 unless it reuses the init image, in
// which case bundle indices start at the first enabled region. Regions that
// reuse the init image require haveInitImage. Bundles lacking an adapter
// schedule fall back to the first adapter schedule encountered across all
// sources; the returned settings are that fallback's settings (nil when no
// source specifies an adapter).
func Compose(bg BackgroundSpec, regions []RegionSpec, haveInitImage bool) ([]Bundle, []Entry, *AdapterSettings, error) {
	var bundles []Bundle
	var firstAdapter *AdapterSchedule

	bgInit := bg.UseInitImage && haveInitImage

	bgSrc := SourceInitImage
	if !bgInit {
		if bg.Source.Adapter != nil {
			firstAdapter = bg.Source.Adapter
		}
		bgSrc = len(bundles)
		bundles = append(bundles, Bundle{Prompts: bg.Source.Prompts, Adapter: bg.Source.Adapter})
	}

	entries := []Entry{{Masks: nil, Source: bgSrc}}

	for _, r := range regions {
		if !r.Enabled {
			continue
		}
		if r.Masks == nil || r.Masks.Len() == 0 {
			continue
		}

		var src int
		if !r.UseInitImage {
			if r.Source.Adapter != nil && firstAdapter == nil {
				firstAdapter = r.Source.Adapter
			}
			src = len(bundles)
			bundles = append(bundles, Bundle{Prompts: r.Source.Prompts, Adapter: r.Source.Adapter})
		} else {
			if !haveInitImage {
				continue
			}
			src = SourceInitImage
		}

		entries = append(entries, Entry{Masks: r.Masks, Source: src})
	}

	if len(bundles) == 0 {
		return nil, nil, nil, ErrNoUsableRegion
	}

	var settings *AdapterSettings
	if firstAdapter != nil {
		s := firstAdapter.Settings
		settings = &s
		for i := range bundles {
			if bundles[i].Adapter == nil {
				bundles[i].Adapter = firstAdapter
			}
		}
	}

	return bundles, entries, settings, nil
}
