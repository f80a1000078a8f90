package region

import (
	"errors"
	"image"
	"testing"

	"vidgen-orchestrator/internal/schedule"
)

func promptSource(p string) ConditionSource {
	m := schedule.NewMap[string]()
	m.Set(0, p)
	return ConditionSource{Prompts: m}
}

func maskSchedule() *schedule.Map[image.Image] {
	m := schedule.NewMap[image.Image]()
	m.Set(0, image.NewGray(image.Rect(0, 0, 2, 2)))
	return &m
}

func adapter(scale float64) *AdapterSchedule {
	m := schedule.NewMap[image.Image]()
	m.Set(0, image.NewGray(image.Rect(0, 0, 2, 2)))
	return &AdapterSchedule{Images: m, Settings: AdapterSettings{Scale: scale, Plus: true}}
}

func TestCompose_background_only(t *testing.T) {
	bundles, entries, settings, err := Compose(BackgroundSpec{Source: promptSource("bg")}, nil, false)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if len(bundles) != 1 {
		t.Fatalf("expected 1 bundle, got %d", len(bundles))
	}
	if len(entries) != 1 || entries[0].Source != 0 || entries[0].Masks != nil {
		t.Errorf("background entry should reference bundle 0 with no masks: %+v", entries[0])
	}
	if settings != nil {
		t.Error("no adapters anywhere, settings should be nil")
	}
}

func TestCompose_background_init_image_shifts_indices(t *testing.T) {
	regions := []RegionSpec{
		{Name: "0", Enabled: true, Masks: maskSchedule(), Source: promptSource("r0")},
	}
	bundles, entries, _, err := Compose(BackgroundSpec{UseInitImage: true}, regions, true)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if len(bundles) != 1 {
		t.Fatalf("background reusing init image must contribute no bundle, got %d", len(bundles))
	}
	if entries[0].Source != SourceInitImage {
		t.Errorf("background entry source = %d, want %d", entries[0].Source, SourceInitImage)
	}
	if entries[1].Source != 0 {
		t.Errorf("first region should take bundle index 0, got %d", entries[1].Source)
	}
}

func TestCompose_disabled_and_maskless_regions_skipped(t *testing.T) {
	regions := []RegionSpec{
		{Name: "0", Enabled: false, Masks: maskSchedule(), Source: promptSource("off")},
		{Name: "1", Enabled: true, Source: promptSource("no-mask")},
		{Name: "2", Enabled: true, Masks: maskSchedule(), Source: promptSource("ok")},
	}
	bundles, entries, _, err := Compose(BackgroundSpec{Source: promptSource("bg")}, regions, false)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if len(bundles) != 2 {
		t.Errorf("expected background + one region bundle, got %d", len(bundles))
	}
	if len(entries) != 2 {
		t.Errorf("expected background + one region entry, got %d", len(entries))
	}
	if entries[1].Source != 1 {
		t.Errorf("region bundle index = %d, want 1", entries[1].Source)
	}
}

func TestCompose_region_init_image_without_init_is_skipped(t *testing.T) {
	regions := []RegionSpec{
		{Name: "0", Enabled: true, UseInitImage: true, Masks: maskSchedule()},
	}
	bundles, entries, _, err := Compose(BackgroundSpec{Source: promptSource("bg")}, regions, false)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if len(bundles) != 1 || len(entries) != 1 {
		t.Errorf("init-image region without an init image must be dropped: %d bundles, %d entries", len(bundles), len(entries))
	}
}

func TestCompose_no_usable_region(t *testing.T) {
	regions := []RegionSpec{
		{Name: "0", Enabled: false, Masks: maskSchedule(), Source: promptSource("off")},
	}
	_, _, _, err := Compose(BackgroundSpec{UseInitImage: true}, regions, true)
	if !errors.Is(err, ErrNoUsableRegion) {
		t.Errorf("expected ErrNoUsableRegion, got %v", err)
	}
}

func TestCompose_adapter_fallback_first_encountered(t *testing.T) {
	regions := []RegionSpec{
		{Name: "0", Enabled: true, Masks: maskSchedule(),
			Source: ConditionSource{Prompts: promptSource("r0").Prompts, Adapter: adapter(0.5)}},
		{Name: "1", Enabled: true, Masks: maskSchedule(),
			Source: ConditionSource{Prompts: promptSource("r1").Prompts, Adapter: adapter(0.9)}},
		{Name: "2", Enabled: true, Masks: maskSchedule(), Source: promptSource("r2")},
	}
	bundles, _, settings, err := Compose(BackgroundSpec{Source: promptSource("bg")}, regions, false)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if settings == nil || settings.Scale != 0.5 {
		t.Fatalf("settings should come from the first adapter encountered, got %+v", settings)
	}
	// Background (no adapter) and region 2 (no adapter) fall back to it.
	if bundles[0].Adapter == nil || bundles[0].Adapter.Settings.Scale != 0.5 {
		t.Error("background bundle should fall back to the first adapter")
	}
	if bundles[3].Adapter == nil || bundles[3].Adapter.Settings.Scale != 0.5 {
		t.Error("adapterless region should fall back to the first adapter")
	}
	// Regions with their own adapter keep it.
	if bundles[2].Adapter.Settings.Scale != 0.9 {
		t.Error("region 1 should keep its own adapter")
	}
}
