package progress

import "sync/atomic"

// Counter is the frame counter of one trial. The reader stores into it and
// the evaluator samples it; values are eventually visible, which is enough
// for deltas taken at a coarse cadence.
type Counter struct {
	frame    atomic.Uint64
	previous atomic.Uint64
}

// NewCounter returns a zeroed counter.
func NewCounter() *Counter {
	return &Counter{}
}

// Store records the latest frame reported by ffmpeg.
func (c *Counter) Store(frame uint64) {
	c.frame.Store(frame)
}

// Frame returns the latest stored frame.
func (c *Counter) Frame() uint64 {
	return c.frame.Load()
}

// Advance returns the current frame and how far it moved since the previous
// Advance. A counter that went backwards reports a zero delta.
func (c *Counter) Advance() (frame, delta uint64) {
	frame = c.frame.Load()
	prev := c.previous.Swap(frame)
	if frame < prev {
		return frame, 0
	}
	return frame, frame - prev
}

// Reset zeroes the counter for the next trial.
func (c *Counter) Reset() {
	c.frame.Store(0)
	c.previous.Store(0)
}
