package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"vidgen-orchestrator/internal/assets"
	"vidgen-orchestrator/internal/encode"
	"vidgen-orchestrator/internal/generate"
	"vidgen-orchestrator/internal/platform/metrics"
	"vidgen-orchestrator/internal/region"
	"vidgen-orchestrator/internal/schedule"
	"vidgen-orchestrator/internal/window"

	"github.com/oklog/ulid/v2"
)

// ErrInvalidRequest is returned for requests that fail structural validation
// before any work starts.
var ErrInvalidRequest = errors.New("invalid generation request")

// LatentDecoder converts a latent-space window output into frames. Decoding
// belongs to the generation engine; engines whose outputs are already frames
// never need it.
type LatentDecoder interface {
	Decode(l *window.Latent) (window.FrameSeq, error)
}

// ServiceConfig wires a Service.
type ServiceConfig struct {
	Repo                  Repository
	Coordinator           *generate.Coordinator
	Encoders              *encode.Selector
	Decoder               LatentDecoder
	Preprocessors         *assets.PreprocessorCache
	PreprocessorFactories map[string]assets.PreprocessorFactory
	Logger                *slog.Logger
	Metrics               *metrics.Metrics
	DataDir               string
	OutputDir             string
}

// Service validates generation requests, materializes their conditioning,
// and drives the window coordinator. Runs execute asynchronously but are
// serialized process-wide: the preprocessor cache and the engine hold
// device-resident state that must not see interleaved runs.
type Service struct {
	repo      Repository
	coord     *generate.Coordinator
	encoders  *encode.Selector
	decoder   LatentDecoder
	pre       *assets.PreprocessorCache
	factories map[string]assets.PreprocessorFactory
	log       *slog.Logger
	metrics   *metrics.Metrics
	dataDir   string
	outputDir string

	runMu sync.Mutex
}

// NewService returns a Service built from cfg.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Preprocessors == nil {
		cfg.Preprocessors = assets.NewPreprocessorCache()
	}
	return &Service{
		repo:      cfg.Repo,
		coord:     cfg.Coordinator,
		encoders:  cfg.Encoders,
		decoder:   cfg.Decoder,
		pre:       cfg.Preprocessors,
		factories: cfg.PreprocessorFactories,
		log:       cfg.Logger,
		metrics:   cfg.Metrics,
		dataDir:   cfg.DataDir,
		outputDir: cfg.OutputDir,
	}
}

// StartRun validates the request, records a pending run, and starts
// executing it in the background. The returned ID can be polled via GetRun.
func (s *Service) StartRun(req GenerationRequest) (RunID, error) {
	req, err := s.normalize(req)
	if err != nil {
		return "", err
	}

	id := RunID(ulid.Make().String())
	if err := s.repo.CreateRun(Run{ID: id, Request: req}); err != nil {
		return "", err
	}
	if s.metrics != nil {
		s.metrics.IncRunsStarted()
	}

	go s.execute(id, req)
	return id, nil
}

// GetRun returns a snapshot of the run.
func (s *Service) GetRun(id RunID) (Run, bool) {
	return s.repo.GetRun(id)
}

// ActiveRunCount reports pending plus running runs, for metrics.
func (s *Service) ActiveRunCount() int {
	return s.repo.ActiveRunCount()
}

// normalize applies defaults and rejects structurally invalid requests.
func (s *Service) normalize(req GenerationRequest) (GenerationRequest, error) {
	if req.Duration <= 0 {
		return req, fmt.Errorf("%w: duration must be positive", ErrInvalidRequest)
	}
	if req.Duration < s.coord.WindowSize() {
		return req, fmt.Errorf("%w: duration %d is shorter than the context window (%d)",
			ErrInvalidRequest, req.Duration, s.coord.WindowSize())
	}
	if req.Width <= 0 {
		req.Width = 512
	}
	if req.Height <= 0 {
		req.Height = 512
	}
	if req.Steps <= 0 {
		req.Steps = 25
	}
	if req.GuidanceScale <= 0 {
		req.GuidanceScale = 7.5
	}
	if req.Output.FPS <= 0 {
		req.Output.FPS = encode.DefaultFPS
	}
	req.PromptFixedRatio = schedule.ClampRatio(req.PromptFixedRatio)

	if _, err := parsePromptMap(req.PromptMap); err != nil {
		return req, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	for name, r := range req.Regions {
		if name == "background" || r.Condition == nil {
			continue
		}
		if _, err := parsePromptMap(r.Condition.PromptMap); err != nil {
			return req, fmt.Errorf("%w: region %s: %v", ErrInvalidRequest, name, err)
		}
	}

	if _, err := s.encoders.Select(req.Output.Format); err != nil {
		return req, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	return req, nil
}

func (s *Service) execute(id RunID, req GenerationRequest) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	// Stale preprocessor state must never leak into the next run.
	defer s.pre.ClearAll()

	if err := s.repo.SetStatus(id, StatusRunning); err != nil {
		s.log.Error("run start", slog.String("run_id", string(id)), slog.String("error", err.Error()))
		return
	}

	runDir := filepath.Join(s.outputDir, string(id))

	greq, err := s.buildConditioning(req, id, runDir)
	if err != nil {
		s.fail(id, 0, err)
		return
	}

	out, windows, err := s.coord.Run(context.Background(), greq)
	if err != nil {
		s.fail(id, windows, err)
		return
	}

	frames, err := s.framesOf(out)
	if err != nil {
		s.fail(id, windows, err)
		return
	}

	enc, err := s.encoders.Select(req.Output.Format)
	if err != nil {
		s.fail(id, windows, err)
		return
	}
	stem := filepath.Join(runDir, outputStem(req))
	path, err := enc.Encode(frames, stem, req.Output.FPS)
	if err != nil {
		s.fail(id, windows, fmt.Errorf("encode: %w", err))
		return
	}

	if err := s.repo.SetResult(id, windows, len(frames), path); err != nil {
		s.log.Error("run result", slog.String("run_id", string(id)), slog.String("error", err.Error()))
		return
	}
	if s.metrics != nil {
		s.metrics.IncRunsCompleted()
		s.metrics.AddWindowsGenerated(windows)
		s.metrics.AddFramesStitched(len(frames))
	}
	s.log.Info("run complete",
		slog.String("run_id", string(id)),
		slog.Int("windows", windows),
		slog.Int("frames", len(frames)),
		slog.String("output", path),
	)
}

func (s *Service) fail(id RunID, windows int, err error) {
	s.log.Error("run failed", slog.String("run_id", string(id)), slog.String("error", err.Error()))
	if s.metrics != nil {
		s.metrics.IncRunsFailed()
	}
	if rerr := s.repo.SetFailed(id, windows, err.Error()); rerr != nil {
		s.log.Error("record failure", slog.String("run_id", string(id)), slog.String("error", rerr.Error()))
	}
}

func (s *Service) framesOf(out window.Output) (window.FrameSeq, error) {
	switch o := out.(type) {
	case window.FrameSeq:
		return o, nil
	case *window.Latent:
		if s.decoder == nil {
			return nil, errors.New("engine produced latents but no latent decoder is configured")
		}
		return s.decoder.Decode(o)
	default:
		return nil, fmt.Errorf("unsupported output type %T", out)
	}
}

// buildConditioning materializes every conditioning schedule for the run:
// prompts, adapters, masks, control images, img2img sources, and the
// reference image.
func (s *Service) buildConditioning(req GenerationRequest, id RunID, runDir string) (generate.Request, error) {
	duration := req.Duration

	var img2img *assets.Img2ImgMap
	if req.Img2Img != nil {
		saveDir := ""
		if req.Img2Img.SaveInitImage {
			saveDir = filepath.Join(runDir, "img2img_init_img")
		}
		m, err := assets.PrepareImg2Img(assets.Img2ImgSpec{
			Enabled:           req.Img2Img.Enabled,
			ImageDir:          filepath.Join(s.dataDir, req.Img2Img.InitImgDir),
			DenoisingStrength: req.Img2Img.DenoisingStrength,
		}, duration, saveDir)
		if err != nil {
			return generate.Request{}, err
		}
		img2img = m
	}
	haveInit := img2img != nil

	bg, err := s.backgroundSpec(req, duration, runDir)
	if err != nil {
		return generate.Request{}, err
	}

	regionSpecs, err := s.regionSpecs(req, duration, runDir)
	if err != nil {
		return generate.Request{}, err
	}

	bundles, entries, adapterSettings, err := region.Compose(bg, regionSpecs, haveInit)
	if err != nil {
		return generate.Request{}, err
	}

	controls, ref, err := s.controlConditioning(req, id, duration)
	if err != nil {
		return generate.Request{}, err
	}

	return generate.Request{
		Duration:        duration,
		Seed:            req.Seed,
		NegativePrompt:  req.NegativePrompt,
		Steps:           req.Steps,
		GuidanceScale:   req.GuidanceScale,
		Width:           req.Width,
		Height:          req.Height,
		Bundles:         bundles,
		Regions:         entries,
		AdapterSettings: adapterSettings,
		Controls:        controls,
		Reference:       ref,
		Img2Img:         img2img,
	}, nil
}

func (s *Service) backgroundSpec(req GenerationRequest, duration int, runDir string) (region.BackgroundSpec, error) {
	useInit := false
	if bg, ok := req.Regions["background"]; ok {
		useInit = bg.IsInitImage
	}

	prompts, _ := parsePromptMap(req.PromptMap)
	source := region.ConditionSource{
		Prompts: schedule.BuildPromptSchedule(prompts, req.HeadPrompt, req.TailPrompt, req.PromptFixedRatio, duration),
	}

	if req.Adapter != nil {
		ad, err := s.prepareAdapter(*req.Adapter, duration, filepath.Join(runDir, "adapter"))
		if err != nil {
			return region.BackgroundSpec{}, err
		}
		source.Adapter = ad
	}

	return region.BackgroundSpec{UseInitImage: useInit, Source: source}, nil
}

func (s *Service) regionSpecs(req GenerationRequest, duration int, runDir string) ([]region.RegionSpec, error) {
	names := sortedRegionNames(req.Regions)

	var specs []region.RegionSpec
	for _, name := range names {
		cfg := req.Regions[name]
		spec := region.RegionSpec{
			Name:         name,
			Enabled:      cfg.Enabled,
			UseInitImage: cfg.IsInitImage,
		}
		if !cfg.Enabled {
			specs = append(specs, spec)
			continue
		}

		regionDir := filepath.Join(runDir, regionDirName(name))

		if cfg.MaskDir != "" {
			saveDir := ""
			if cfg.SaveMask {
				saveDir = filepath.Join(regionDir, "mask")
			}
			masks, err := assets.PrepareMasks(assets.MaskSpec{
				Dir: filepath.Join(s.dataDir, cfg.MaskDir),
			}, duration, saveDir)
			if err != nil {
				return nil, fmt.Errorf("region %s: %w", name, err)
			}
			spec.Masks = masks
		}

		if cfg.Condition != nil {
			prompts, _ := parsePromptMap(cfg.Condition.PromptMap)
			spec.Source.Prompts = schedule.BuildPromptSchedule(
				prompts,
				cfg.Condition.HeadPrompt,
				cfg.Condition.TailPrompt,
				schedule.ClampRatio(cfg.Condition.PromptFixedRatio),
				duration,
			)
			if cfg.Condition.Adapter != nil {
				ad, err := s.prepareAdapter(*cfg.Condition.Adapter, duration, filepath.Join(regionDir, "adapter"))
				if err != nil {
					return nil, fmt.Errorf("region %s: %w", name, err)
				}
				spec.Source.Adapter = ad
			}
		}

		specs = append(specs, spec)
	}
	return specs, nil
}

func (s *Service) prepareAdapter(cfg AdapterConfig, duration int, saveDir string) (*region.AdapterSchedule, error) {
	if !cfg.SaveInputImage {
		saveDir = ""
	}
	scale := cfg.Scale
	if scale <= 0 {
		scale = 1.0
	}
	return assets.PrepareAdapter(assets.AdapterSpec{
		Enabled:    cfg.Enabled,
		ImageDir:   filepath.Join(s.dataDir, cfg.InputImageDir),
		Scale:      scale,
		Plus:       cfg.Plus,
		PlusFace:   cfg.PlusFace,
		Light:      cfg.Light,
		FixedRatio: schedule.ClampRatio(cfg.FixedRatio),
	}, duration, saveDir)
}

func (s *Service) controlConditioning(req GenerationRequest, id RunID, duration int) (*assets.ControlResult, *generate.ReferenceParams, error) {
	if req.Control == nil {
		return nil, nil, nil
	}

	saveDetect := true
	if req.Control.SaveDetectMap != nil {
		saveDetect = *req.Control.SaveDetectMap
	}
	detectDir := ""
	if saveDetect {
		detectDir = filepath.Join(s.outputDir, string(id)+"_detectmap")
	}

	specs := make(map[string]assets.ControlSpec, len(req.Control.Types))
	for condType, cfg := range req.Control.Types {
		usePre := true
		if cfg.UsePreprocessor != nil {
			usePre = *cfg.UsePreprocessor
		}
		specs[condType] = assets.ControlSpec{
			Enabled:           cfg.Enabled,
			ImageDir:          filepath.Join(s.dataDir, req.Control.InputImageDir, condType),
			ConditioningScale: cfg.ConditioningScale,
			GuidanceStart:     cfg.GuidanceStart,
			GuidanceEnd:       cfg.GuidanceEnd,
			ScaleList:         cfg.ScaleList,
			GuessMode:         cfg.GuessMode,
			UsePreprocessor:   usePre,
		}
	}

	controls, err := assets.PrepareControls(specs, duration, detectDir, s.pre, s.factories)
	if err != nil {
		return nil, nil, err
	}

	var ref *generate.ReferenceParams
	if r := req.Control.Ref; r != nil && r.Enabled && r.RefImage != "" {
		img, err := assets.LoadImage(filepath.Join(s.dataDir, r.RefImage))
		if err != nil {
			return nil, nil, fmt.Errorf("reference image: %w", err)
		}
		ref = &generate.ReferenceParams{
			Image:           img,
			StyleFidelity:   r.StyleFidelity,
			AttentionWeight: r.AttentionWeight,
			GNWeight:        r.GNWeight,
			ReferenceAttn:   r.ReferenceAttn,
			ReferenceAdain:  r.ReferenceAdain,
			ScalePattern:    r.ScalePattern,
		}
	}

	return controls, ref, nil
}

// parsePromptMap converts decimal-string frame keys into ints.
func parsePromptMap(m map[string]string) (map[int]string, error) {
	out := make(map[int]string, len(m))
	for k, v := range m {
		frame, err := strconv.Atoi(k)
		if err != nil || frame < 0 {
			return nil, fmt.Errorf("prompt map key %q is not a frame index", k)
		}
		out[frame] = v
	}
	return out, nil
}

// sortedRegionNames orders region names deterministically: numeric names
// ascending first, then the rest lexically. "background" is handled
// separately and excluded.
func sortedRegionNames(regions map[string]RegionConfig) []string {
	var names []string
	for name := range regions {
		if name == "background" {
			continue
		}
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ni, ei := strconv.Atoi(names[i])
		nj, ej := strconv.Atoi(names[j])
		switch {
		case ei == nil && ej == nil:
			return ni < nj
		case ei == nil:
			return true
		case ej == nil:
			return false
		default:
			return names[i] < names[j]
		}
	})
	return names
}

func regionDirName(name string) string {
	if n, err := strconv.Atoi(name); err == nil {
		return fmt.Sprintf("region_%05d", n)
	}
	return "region_" + name
}

var reCleanPrompt = regexp.MustCompile(`[^\w\-, ]`)

// outputStem derives the output filename stem from the seed and the first
// prompt: the first six comma-separated tags, cleaned and joined, capped at
// 50 characters.
func outputStem(req GenerationRequest) string {
	prompt := ""
	if prompts, err := parsePromptMap(req.PromptMap); err == nil && len(prompts) > 0 {
		keys := make([]int, 0, len(prompts))
		for k := range prompts {
			keys = append(keys, k)
		}
		sort.Ints(keys)
		prompt = prompts[keys[0]]
	}

	var tags []string
	for _, tag := range strings.Split(prompt, ",") {
		tag = strings.TrimSpace(reCleanPrompt.ReplaceAllString(tag, ""))
		tag = strings.ReplaceAll(tag, " ", "-")
		if tag != "" {
			tags = append(tags, tag)
		}
		if len(tags) == 6 {
			break
		}
	}
	stem := strings.Join(tags, "_")
	if len(stem) > 50 {
		stem = stem[:50]
	}
	if stem == "" {
		stem = "untitled"
	}
	return fmt.Sprintf("%d_%s", req.Seed, stem)
}
