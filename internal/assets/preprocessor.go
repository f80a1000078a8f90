package assets

import (
	"image"
	"sync"
)

// Preprocessor converts a raw condition input image into the map the model
// actually consumes (edge, depth, pose and similar extraction). Detection
// itself is an external collaborator; this package only caches and applies.
type Preprocessor interface {
	Process(img image.Image) (image.Image, error)
}

// PreprocessorFactory constructs a preprocessor on first use. Construction
// can be expensive (device-resident models), hence the cache.
type PreprocessorFactory func() (Preprocessor, error)

// NullPreprocessor returns the input unchanged. Used when a condition type
// needs no detection pass.
type NullPreprocessor struct{}

// Process implements Preprocessor.
func (NullPreprocessor) Process(img image.Image) (image.Image, error) { return img, nil }

// PreprocessorCache holds one preprocessor per condition type for the
// lifetime its owner chooses. It must be explicitly cleared between logically
// distinct generation requests so stale device-resident state is released.
type PreprocessorCache struct {
	mu sync.Mutex
	m  map[string]Preprocessor
}

// NewPreprocessorCache returns an empty cache.
func NewPreprocessorCache() *PreprocessorCache {
	return &PreprocessorCache{m: make(map[string]Preprocessor)}
}

// GetOrCreate returns the cached preprocessor for the condition type,
// constructing it with factory on a miss.
func (c *PreprocessorCache) GetOrCreate(condType string, factory PreprocessorFactory) (Preprocessor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p, ok := c.m[condType]; ok {
		return p, nil
	}
	p, err := factory()
	if err != nil {
		return nil, err
	}
	c.m[condType] = p
	return p, nil
}

// Clear drops the cached preprocessor for one condition type.
func (c *PreprocessorCache) Clear(condType string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, condType)
}

// ClearAll drops every cached preprocessor.
func (c *PreprocessorCache) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m = make(map[string]Preprocessor)
}

// Len returns the number of cached preprocessors.
func (c *PreprocessorCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}
