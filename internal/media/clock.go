package media

import (
	"sync"
	"time"
)

// Clock tracks a media playhead: it advances in wall time scaled by the
// playback rate while running, holds still while paused, and jumps on seek.
// Safe for concurrent use.
type Clock struct {
	mu      sync.Mutex
	base    time.Time     // wall time of the last state change
	offset  time.Duration // media position at base
	rate    float64
	running bool
}

// NewClock creates a paused clock at position zero with rate 1.
func NewClock() *Clock {
	return &Clock{rate: 1.0}
}

// Now returns the current media position.
func (c *Clock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nowLocked()
}

func (c *Clock) nowLocked() time.Duration {
	if !c.running {
		return c.offset
	}
	elapsed := time.Since(c.base)
	return c.offset + time.Duration(float64(elapsed)*c.rate)
}

// Start begins advancing the playhead.
func (c *Clock) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return
	}
	c.base = time.Now()
	c.running = true
}

// Stop freezes the playhead at its current position.
func (c *Clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	c.offset = c.nowLocked()
	c.running = false
}

// Running reports whether the playhead is advancing.
func (c *Clock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// SetRate changes the playback rate without moving the playhead.
func (c *Clock) SetRate(rate float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset = c.nowLocked()
	c.base = time.Now()
	c.rate = rate
}

// Rate returns the current playback rate.
func (c *Clock) Rate() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rate
}

// SeekTo moves the playhead to the given position.
func (c *Clock) SeekTo(pos time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset = pos
	c.base = time.Now()
}
