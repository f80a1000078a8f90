package orchestrator

import "time"

// RunID uniquely identifies one full-sequence generation run.
type RunID string

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	StatusPending RunStatus = "pending"
	StatusRunning RunStatus = "running"
	StatusDone    RunStatus = "done"
	StatusFailed  RunStatus = "failed"
)

// GenerationRequest is the input JSON payload for starting a run. Frame keys
// in prompt maps are decimal strings, matching the on-disk prompt config
// format.
type GenerationRequest struct {
	Duration       int     `json:"duration"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	Steps          int     `json:"steps"`
	GuidanceScale  float64 `json:"guidance_scale"`
	Seed           int64   `json:"seed"`
	NegativePrompt string  `json:"negative_prompt"`

	PromptMap        map[string]string `json:"prompt_map"`
	HeadPrompt       string            `json:"head_prompt"`
	TailPrompt       string            `json:"tail_prompt"`
	PromptFixedRatio float64           `json:"prompt_fixed_ratio"`

	Adapter *AdapterConfig          `json:"adapter_map,omitempty"`
	Regions map[string]RegionConfig `json:"region_map,omitempty"`
	Control *ControlConfig          `json:"controlnet_map,omitempty"`
	Img2Img *Img2ImgConfig          `json:"img2img_map,omitempty"`
	Output  OutputConfig            `json:"output"`
}

// AdapterConfig configures a reference image adapter source.
type AdapterConfig struct {
	Enabled        bool    `json:"enable"`
	InputImageDir  string  `json:"input_image_dir"`
	Scale          float64 `json:"scale"`
	Plus           bool    `json:"is_plus"`
	PlusFace       bool    `json:"is_plus_face"`
	Light          bool    `json:"is_light"`
	FixedRatio     float64 `json:"prompt_fixed_ratio"`
	SaveInputImage bool    `json:"save_input_image"`
}

// RegionConfig configures one entry of the region map. The key "background"
// addresses the background source; all other keys are masked regions.
type RegionConfig struct {
	Enabled     bool             `json:"enable"`
	IsInitImage bool             `json:"is_init_img"`
	MaskDir     string           `json:"mask_dir"`
	SaveMask    bool             `json:"save_mask"`
	Condition   *ConditionConfig `json:"condition,omitempty"`
}

// ConditionConfig is a masked region's own conditioning source.
type ConditionConfig struct {
	PromptMap        map[string]string `json:"prompt_map"`
	HeadPrompt       string            `json:"head_prompt"`
	TailPrompt       string            `json:"tail_prompt"`
	PromptFixedRatio float64           `json:"prompt_fixed_ratio"`
	Adapter          *AdapterConfig    `json:"adapter_map,omitempty"`
}

// ControlConfig configures the per-type control conditioning.
type ControlConfig struct {
	InputImageDir string `json:"input_image_dir"`
	// SaveDetectMap defaults to true when absent.
	SaveDetectMap *bool                        `json:"save_detectmap,omitempty"`
	Types         map[string]ControlTypeConfig `json:"types"`
	Ref           *RefConfig                   `json:"ref,omitempty"`
}

// ControlTypeConfig configures one condition type.
type ControlTypeConfig struct {
	Enabled           bool      `json:"enable"`
	ConditioningScale float64   `json:"conditioning_scale"`
	GuidanceStart     float64   `json:"guidance_start"`
	GuidanceEnd       float64   `json:"guidance_end"`
	ScaleList         []float64 `json:"scale_list,omitempty"`
	GuessMode         bool      `json:"guess_mode"`
	// UsePreprocessor defaults to true when absent.
	UsePreprocessor *bool `json:"use_preprocessor,omitempty"`
}

// RefConfig configures reference image conditioning.
type RefConfig struct {
	Enabled         bool      `json:"enable"`
	RefImage        string    `json:"ref_image"`
	StyleFidelity   float64   `json:"style_fidelity"`
	AttentionWeight float64   `json:"attention_auto_machine_weight"`
	GNWeight        float64   `json:"gn_auto_machine_weight"`
	ReferenceAttn   bool      `json:"reference_attn"`
	ReferenceAdain  bool      `json:"reference_adain"`
	ScalePattern    []float64 `json:"scale_pattern,omitempty"`
}

// Img2ImgConfig configures per-frame init images.
type Img2ImgConfig struct {
	Enabled           bool    `json:"enable"`
	InitImgDir        string  `json:"init_img_dir"`
	DenoisingStrength float64 `json:"denoising_strength"`
	SaveInitImage     bool    `json:"save_init_image"`
}

// OutputConfig selects the output container and frame rate.
type OutputConfig struct {
	Format string `json:"format"`
	FPS    int    `json:"fps"`
}

// Run is the orchestrator's record of one generation run.
type Run struct {
	ID         RunID
	Status     RunStatus
	Request    GenerationRequest
	Windows    int
	Frames     int
	OutputPath string
	Error      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
