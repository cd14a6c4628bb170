// SPDX-License-Identifier: MIT
package scheduler

import "time"

// fpsWindow is how often FrameClock publishes a new frame rate.
const fpsWindow = time.Second

// FrameClock tracks shader time and the frame rate. Every timestamp is
// passed in, so tests drive it without sleeping.
type FrameClock struct {
	origin time.Time // Time zero for the shader.
	last   time.Time // Most recent tick.
	window time.Time // Start of the current fps window.
	count  int       // Frames in the current window.
	fps    int
	frames uint64
}

// NewFrameClock starts a clock whose shader time is zero at origin.
func NewFrameClock(origin time.Time) *FrameClock {
	return &FrameClock{origin: origin, last: origin, window: origin}
}

// Tick records one frame at now and returns the shader time in seconds.
func (c *FrameClock) Tick(now time.Time) float32 {
	c.last = now
	c.frames++
	c.count++
	if now.Sub(c.window) >= fpsWindow {
		c.fps = c.count
		c.count = 0
		c.window = now
	}
	return c.Time()
}

// Time is the shader time of the last tick: milliseconds since origin / 1000.
func (c *FrameClock) Time() float32 {
	return float32(c.last.Sub(c.origin).Milliseconds()) / 1000
}

// FPS is the frame count of the last completed window, 0 before the first.
func (c *FrameClock) FPS() int { return c.fps }

// Frames is the total number of ticks.
func (c *FrameClock) Frames() uint64 { return c.frames }
