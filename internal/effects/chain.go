package effects

import (
	"sync"

	"github.com/smazurov/videoswitch/internal/media"
)

// Chain is an ordered, mutable sequence of effect stages owned by one slot.
// Enabled gates application as a whole. Safe for concurrent use; Apply sees
// a consistent snapshot, so mutation takes effect on the next frame, never
// mid-frame.
type Chain struct {
	mu      sync.RWMutex
	enabled bool
	stages  []Stage
}

// NewChain creates an empty, enabled chain.
func NewChain() *Chain {
	return &Chain{enabled: true}
}

// Enabled reports whether the chain is applied at all.
func (c *Chain) Enabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enabled
}

// SetEnabled gates chain application.
func (c *Chain) SetEnabled(enabled bool) {
	c.mu.Lock()
	c.enabled = enabled
	c.mu.Unlock()
}

// Len returns the number of stages.
func (c *Chain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.stages)
}

// Stages returns a snapshot of the stage list. The stages themselves are
// shared with the chain; callers must not mutate them.
func (c *Chain) Stages() []Stage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Stage, len(c.stages))
	copy(out, c.stages)
	return out
}

// Add appends a stage.
func (c *Chain) Add(s Stage) {
	c.mu.Lock()
	c.stages = append(c.stages, s)
	c.mu.Unlock()
}

// RemoveAt deletes the stage at index i; out-of-range is a no-op.
func (c *Chain) RemoveAt(i int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i >= len(c.stages) {
		return
	}
	c.stages = append(c.stages[:i], c.stages[i+1:]...)
}

// Clear removes all stages.
func (c *Chain) Clear() {
	c.mu.Lock()
	c.stages = nil
	c.mu.Unlock()
}

// StageAt returns the stage at index i, nil when out of range.
func (c *Chain) StageAt(i int) Stage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i < 0 || i >= len(c.stages) {
		return nil
	}
	return c.stages[i]
}

// CopyFrom deep-copies src's configuration into this chain. Every stage is
// cloned, including stage-private resources such as a keying background, so
// source and destination mutate independently afterwards. With overwrite
// the destination's stages are replaced wholesale; without it, existing
// destination stages keep their configuration and only the positions the
// destination lacks are filled from src.
func (c *Chain) CopyFrom(src *Chain, overwrite bool) {
	src.mu.RLock()
	cloned := make([]Stage, len(src.stages))
	for i, s := range src.stages {
		cloned[i] = s.Clone()
	}
	enabled := src.enabled
	src.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if overwrite {
		c.stages = cloned
		c.enabled = enabled
		return
	}
	for i := len(c.stages); i < len(cloned); i++ {
		c.stages = append(c.stages, cloned[i])
	}
}

// Apply runs the chain over a frame. Disabled or empty chains return the
// frame unchanged.
func (c *Chain) Apply(f media.Frame) media.Frame {
	c.mu.RLock()
	enabled := c.enabled
	stages := c.stages
	c.mu.RUnlock()

	if !enabled || len(stages) == 0 {
		return f
	}
	out := f
	for _, s := range stages {
		out = s.Apply(out)
	}
	return out
}
