package assets

import (
	"fmt"
	"image"
	"path/filepath"

	"vidgen-orchestrator/internal/region"
	"vidgen-orchestrator/internal/schedule"
)

// ControlSpec configures one condition type (edge, depth, pose, ...).
type ControlSpec struct {
	Enabled           bool
	ImageDir          string
	ConditioningScale float64
	GuidanceStart     float64
	GuidanceEnd       float64
	ScaleList         []float64
	GuessMode         bool
	UsePreprocessor   bool
}

// ControlSettings is the per-type parameter block forwarded to the engine
// alongside the control images.
type ControlSettings struct {
	ConditioningScale float64
	GuidanceStart     float64
	GuidanceEnd       float64
	ScaleList         []float64
	GuessMode         bool
}

// ControlResult is the materialized control conditioning: a frame-sparse
// image schedule and a settings block per condition type that had any usable
// input.
type ControlResult struct {
	Images   map[string]schedule.Map[image.Image]
	Settings map[string]ControlSettings
}

// PrepareControls loads and preprocesses the control images for every enabled
// condition type. Types whose image directory is missing or empty are simply
// absent from the result. When detectDir is non-empty, each preprocessed
// image is written to <detectDir>/<type> as an audit artifact. Preprocessors
// come from the cache; types without a registered factory pass images through
// unchanged. Each type's preprocessor is released after its images are done,
// and the whole cache is cleared at the end.
func PrepareControls(
	specs map[string]ControlSpec,
	duration int,
	detectDir string,
	cache *PreprocessorCache,
	factories map[string]PreprocessorFactory,
) (*ControlResult, error) {
	out := &ControlResult{
		Images:   make(map[string]schedule.Map[image.Image]),
		Settings: make(map[string]ControlSettings),
	}

	for condType, spec := range specs {
		if !spec.Enabled {
			continue
		}

		imgs, err := LoadFrameImages(spec.ImageDir, duration)
		if err != nil {
			return nil, fmt.Errorf("control %s: %w", condType, err)
		}
		if imgs.Len() == 0 {
			continue
		}

		if spec.UsePreprocessor {
			factory := factories[condType]
			if factory == nil {
				factory = func() (Preprocessor, error) { return NullPreprocessor{}, nil }
			}
			pre, err := cache.GetOrCreate(condType, factory)
			if err != nil {
				return nil, fmt.Errorf("control %s: create preprocessor: %w", condType, err)
			}
			for _, frame := range imgs.Keys() {
				img, _ := imgs.Get(frame)
				processed, err := pre.Process(img)
				if err != nil {
					return nil, fmt.Errorf("control %s frame %d: %w", condType, frame, err)
				}
				imgs.Set(frame, processed)
			}
		}

		if detectDir != "" {
			if err := WriteFrameImages(filepath.Join(detectDir, condType), imgs); err != nil {
				return nil, fmt.Errorf("control %s: save detect maps: %w", condType, err)
			}
		}

		out.Images[condType] = imgs
		out.Settings[condType] = ControlSettings{
			ConditioningScale: spec.ConditioningScale,
			GuidanceStart:     spec.GuidanceStart,
			GuidanceEnd:       spec.GuidanceEnd,
			ScaleList:         spec.ScaleList,
			GuessMode:         spec.GuessMode,
		}

		cache.Clear(condType)
	}

	cache.ClearAll()
	return out, nil
}

// AdapterSpec configures a reference image adapter source.
type AdapterSpec struct {
	Enabled    bool
	ImageDir   string
	Scale      float64
	Plus       bool
	PlusFace   bool
	Light      bool
	FixedRatio float64
}

// PrepareAdapter loads the adapter image schedule and inserts hold keys per
// the fixed ratio. Returns nil when the spec is disabled or no images exist.
// When saveDir is non-empty the input images are persisted there.
func PrepareAdapter(spec AdapterSpec, duration int, saveDir string) (*region.AdapterSchedule, error) {
	if !spec.Enabled {
		return nil, nil
	}

	imgs, err := LoadFrameImages(spec.ImageDir, duration)
	if err != nil {
		return nil, fmt.Errorf("adapter: %w", err)
	}
	if imgs.Len() == 0 {
		return nil, nil
	}

	imgs = schedule.WithHolds(imgs, duration, spec.FixedRatio)

	if saveDir != "" {
		if err := WriteFrameImages(saveDir, imgs); err != nil {
			return nil, fmt.Errorf("adapter: save input images: %w", err)
		}
	}

	return &region.AdapterSchedule{
		Images: imgs,
		Settings: region.AdapterSettings{
			Scale:    spec.Scale,
			Plus:     spec.Plus,
			PlusFace: spec.PlusFace,
			Light:    spec.Light,
		},
	}, nil
}

// MaskSpec configures a region's mask image source.
type MaskSpec struct {
	Dir string
}

// PrepareMasks loads a region's mask schedule and forward-fills it so every
// frame in [0, duration) has a mask. Returns nil when no masks exist. When
// saveDir is non-empty the dense masks are persisted there.
func PrepareMasks(spec MaskSpec, duration int, saveDir string) (*schedule.Map[image.Image], error) {
	masks, err := LoadFrameImages(spec.Dir, duration)
	if err != nil {
		return nil, fmt.Errorf("masks: %w", err)
	}
	if masks.Len() == 0 {
		return nil, nil
	}

	masks = schedule.ForwardFill(masks, duration)

	if saveDir != "" {
		if err := WriteFrameImages(saveDir, masks); err != nil {
			return nil, fmt.Errorf("masks: save: %w", err)
		}
	}
	return &masks, nil
}

// Img2ImgSpec configures per-frame init images for img2img generation.
type Img2ImgSpec struct {
	Enabled           bool
	ImageDir          string
	DenoisingStrength float64
}

// Img2ImgMap is the materialized img2img source.
type Img2ImgMap struct {
	Images   schedule.Map[image.Image]
	Strength float64
}

// PrepareImg2Img loads the init image schedule. Returns nil when disabled or
// no images exist. When saveDir is non-empty the init images are persisted.
func PrepareImg2Img(spec Img2ImgSpec, duration int, saveDir string) (*Img2ImgMap, error) {
	if !spec.Enabled {
		return nil, nil
	}

	imgs, err := LoadFrameImages(spec.ImageDir, duration)
	if err != nil {
		return nil, fmt.Errorf("img2img: %w", err)
	}
	if imgs.Len() == 0 {
		return nil, nil
	}

	if saveDir != "" {
		if err := WriteFrameImages(saveDir, imgs); err != nil {
			return nil, fmt.Errorf("img2img: save init images: %w", err)
		}
	}
	return &Img2ImgMap{Images: imgs, Strength: spec.DenoisingStrength}, nil
}
