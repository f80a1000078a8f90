// Package assets materializes per-frame conditioning assets from disk:
// frame-indexed image directories, detect-map audit output, and the
// preprocessor cache shared across condition types.
package assets

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"vidgen-orchestrator/internal/schedule"
)

var frameImagePattern = regexp.MustCompile(`^(\d+)\.png$`)

// LoadFrameImages reads a directory of images named by integer frame index
// (<frame>.png) in ascending numeric order, skipping indices at or past
// duration. A missing directory is not an error: it returns an empty map,
// meaning the feature is disabled.
func LoadFrameImages(dir string, duration int) (schedule.Map[image.Image], error) {
	out := schedule.NewMap[image.Image]()

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return out, fmt.Errorf("read asset dir %s: %w", dir, err)
	}

	type frameFile struct {
		frame int
		name  string
	}
	var files []frameFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := frameImagePattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		frame, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		files = append(files, frameFile{frame: frame, name: e.Name()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].frame < files[j].frame })

	for _, f := range files {
		if f.frame >= duration {
			continue
		}
		img, err := readImage(filepath.Join(dir, f.name))
		if err != nil {
			return out, err
		}
		out.Set(f.frame, img)
	}
	return out, nil
}

// WriteFrameImages writes every image in the map to dir as a zero-padded
// <frame %08d>.png, creating dir as needed. Used for detect-map, mask, and
// adapter input persistence; these are audit artifacts, not required for
// correctness.
func WriteFrameImages(dir string, m schedule.Map[image.Image]) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}
	for _, frame := range m.Keys() {
		img, _ := m.Get(frame)
		path := filepath.Join(dir, fmt.Sprintf("%08d.png", frame))
		if err := writeImage(path, img); err != nil {
			return err
		}
	}
	return nil
}

// LoadImage reads a single image file.
func LoadImage(path string) (image.Image, error) {
	return readImage(path)
}

func readImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", path, err)
	}
	return img, nil
}

func writeImage(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create image %s: %w", path, err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encode image %s: %w", path, err)
	}
	return nil
}
