package window

import "testing"

// fillFrame writes a constant into every cell of one frame.
func fillFrame(l *Latent, frame int, v float32) {
	for b := 0; b < l.Batch; b++ {
		for c := 0; c < l.Channels; c++ {
			for h := 0; h < l.Height; h++ {
				for w := 0; w < l.Width; w++ {
					l.Set(b, c, frame, h, w, v)
				}
			}
		}
	}
}

func frameIsUniform(l *Latent, frame int, v float32) bool {
	for b := 0; b < l.Batch; b++ {
		for c := 0; c < l.Channels; c++ {
			for h := 0; h < l.Height; h++ {
				for w := 0; w < l.Width; w++ {
					if l.At(b, c, frame, h, w) != v {
						return false
					}
				}
			}
		}
	}
	return true
}

func TestLatent_CopyFrame(t *testing.T) {
	src := NewLatent(2, 4, 3, 2, 2)
	dst := NewLatent(2, 4, 5, 2, 2)
	fillFrame(src, 2, 7)

	if err := dst.CopyFrame(0, src, 2); err != nil {
		t.Fatalf("CopyFrame: %v", err)
	}
	if !frameIsUniform(dst, 0, 7) {
		t.Error("destination frame 0 should be a copy of source frame 2")
	}
	if !frameIsUniform(dst, 1, 0) {
		t.Error("other destination frames should be untouched")
	}
}

func TestLatent_CopyFrame_shape_mismatch(t *testing.T) {
	a := NewLatent(1, 4, 3, 2, 2)
	b := NewLatent(1, 4, 3, 4, 4)
	if err := a.CopyFrame(0, b, 0); err == nil {
		t.Error("expected shape mismatch error")
	}
}

func TestLatent_CopyFrame_out_of_range(t *testing.T) {
	a := NewLatent(1, 1, 3, 2, 2)
	if err := a.CopyFrame(3, a, 0); err == nil {
		t.Error("expected destination range error")
	}
	if err := a.CopyFrame(0, a, -1); err == nil {
		t.Error("expected source range error")
	}
}

func TestCache_put_get_release(t *testing.T) {
	c := NewCache()
	l := NewLatent(1, 1, 2, 1, 1)
	c.Put(0, 3, l)

	got, ok := c.Get(0, 3)
	if !ok || got != l {
		t.Fatal("expected to get back the stored buffer")
	}
	if _, ok := c.Get(0, 4); ok {
		t.Error("unexpected hit for unknown iteration")
	}

	c.Release(0)
	if _, ok := c.Get(0, 3); ok {
		t.Error("released window should be gone")
	}
}

func TestCache_ReleaseBefore(t *testing.T) {
	c := NewCache()
	for w := 0; w < 4; w++ {
		c.Put(w, 0, NewLatent(1, 1, 1, 1, 1))
	}

	c.ReleaseBefore(2)

	if c.Len() != 2 {
		t.Errorf("expected 2 windows retained, got %d", c.Len())
	}
	if _, ok := c.Get(1, 0); ok {
		t.Error("window 1 should have been released")
	}
	if _, ok := c.Get(2, 0); !ok {
		t.Error("window 2 should be retained")
	}
}
