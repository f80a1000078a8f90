package window

// Cache holds each completed window's latent buffers keyed by iteration
// index, so the next window's continuity pass can read them at the same
// denoising step. It is owned by one generation run and never accessed
// concurrently.
type Cache struct {
	buffers map[int]map[int]*Latent
}

// NewCache returns an empty latent cache.
func NewCache() *Cache {
	return &Cache{buffers: make(map[int]map[int]*Latent)}
}

// Put stores the buffer produced by the given window at the given iteration.
func (c *Cache) Put(windowIdx, iteration int, l *Latent) {
	iters, ok := c.buffers[windowIdx]
	if !ok {
		iters = make(map[int]*Latent)
		c.buffers[windowIdx] = iters
	}
	iters[iteration] = l
}

// Get returns the buffer stored for the given window and iteration.
func (c *Cache) Get(windowIdx, iteration int) (*Latent, bool) {
	l, ok := c.buffers[windowIdx][iteration]
	return l, ok
}

// Release drops all buffers for the given window.
func (c *Cache) Release(windowIdx int) {
	delete(c.buffers, windowIdx)
}

// ReleaseBefore drops all buffers for windows older than windowIdx. The
// continuity pass only ever reads the immediately preceding window, so after
// window i completes everything before i can be freed.
func (c *Cache) ReleaseBefore(windowIdx int) {
	for w := range c.buffers {
		if w < windowIdx {
			delete(c.buffers, w)
		}
	}
}

// Len returns the number of windows with cached buffers.
func (c *Cache) Len() int {
	return len(c.buffers)
}
