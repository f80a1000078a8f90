package window

import "fmt"

// Enforce overwrites the leading overlapLen frames of cur with the trailing
// frames of the previous window's cached buffer at the same iteration, in
// place. Invoked at the end of every denoising iteration, this keeps the
// overlap tracking the previous window at every step of the schedule rather
// than only at the final one. The caller grants exclusive write access to cur
// for the duration of the call.
//
// A windowIdx of 0 or an overlapLen of 0 is a no-op.
func Enforce(cache *Cache, windowIdx, iteration, overlapLen int, cur *Latent) error {
	if windowIdx == 0 || overlapLen == 0 {
		return nil
	}

	prev, ok := cache.Get(windowIdx-1, iteration)
	if !ok {
		return fmt.Errorf("no cached latents for window %d iteration %d", windowIdx-1, iteration)
	}

	for i := 0; i < overlapLen; i++ {
		lastIdx := cur.Frames - overlapLen + i
		if err := cur.CopyFrame(i, prev, lastIdx); err != nil {
			return fmt.Errorf("continuity copy frame %d: %w", i, err)
		}
	}
	return nil
}
