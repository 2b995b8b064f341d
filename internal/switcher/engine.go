package switcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/smazurov/videoswitch/internal/capture"
	"github.com/smazurov/videoswitch/internal/effects"
	"github.com/smazurov/videoswitch/internal/events"
	"github.com/smazurov/videoswitch/internal/logging"
	"github.com/smazurov/videoswitch/internal/media"
	"github.com/smazurov/videoswitch/internal/processor"
)

// Slot identifiers.
const (
	SlotPreview = "preview"
	SlotProgram = "program"
)

// transitionTickInterval paces crossfader progress updates.
const transitionTickInterval = time.Second / 30

// Config wires the engine's collaborators.
type Config struct {
	Bus         *events.Bus
	Processor   *processor.Processor
	Captures    func() *capture.Session
	OpenDecoder DecoderFactory
	// DefaultTransition is used when Transition is called with zero
	// duration. Zero means cut (immediate take).
	DefaultTransition time.Duration
}

// Engine orchestrates the Preview and Program slots: loads, the take
// hand-off, and timed transitions. One mutex serializes all switching
// operations; transport calls go straight to the slots.
type Engine struct {
	logger  logging.Logger
	bus     *events.Bus
	preview *Slot
	program *Slot

	mu                sync.Mutex
	crossfader        float64
	transitioning     bool
	transGen          uint64
	transCancel       context.CancelFunc
	studioMode        bool
	defaultTransition time.Duration
}

// New creates an engine with two empty slots. Studio mode starts enabled:
// loads go to Preview and reach Program only through take or transition.
func New(cfg Config) *Engine {
	deps := slotDeps{
		captures:    cfg.Captures,
		openDecoder: cfg.OpenDecoder,
		proc:        cfg.Processor,
		bus:         cfg.Bus,
	}
	return &Engine{
		logger:            logging.GetLogger("switcher"),
		bus:               cfg.Bus,
		preview:           newSlot(SlotPreview, deps),
		program:           newSlot(SlotProgram, deps),
		studioMode:        true,
		defaultTransition: cfg.DefaultTransition,
	}
}

// Preview returns the preview slot.
func (e *Engine) Preview() *Slot { return e.preview }

// Program returns the program slot.
func (e *Engine) Program() *Slot { return e.program }

// Slot resolves a slot by name.
func (e *Engine) Slot(id string) (*Slot, error) {
	norm, ok := normalizeSlotID(id)
	if !ok {
		return nil, fmt.Errorf("unknown slot %q", id)
	}
	if norm == SlotPreview {
		return e.preview, nil
	}
	return e.program, nil
}

// LoadToPreview binds source to the preview slot. With studio mode off the
// load routes directly to Program. Any in-flight transition is invalidated
// before the load.
func (e *Engine) LoadToPreview(source media.ContentSource) error {
	e.mu.Lock()
	e.invalidateTransitionLocked()
	target := e.preview
	if !e.studioMode {
		target = e.program
	}
	e.mu.Unlock()
	return target.Load(source)
}

// LoadToProgram binds source directly to the program slot, invalidating any
// in-flight transition.
func (e *Engine) LoadToProgram(source media.ContentSource) error {
	e.mu.Lock()
	e.invalidateTransitionLocked()
	e.mu.Unlock()
	return e.program.Load(source)
}

// Take transfers Preview's live binding into Program. The resources move as
// the same live objects, so playback position, decode buffers, and textures
// carry over without a glitch; the effect chain is deep-copied so the two
// slots stay independently editable. Preview ends up empty. A take with an
// empty Preview is a silent no-op.
func (e *Engine) Take() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.takeLocked(false)
}

func (e *Engine) takeLocked(automated bool) {
	e.invalidateTransitionLocked()

	t := e.preview.detach()
	if t == nil {
		return
	}

	e.program.chain.CopyFrom(e.preview.chain, true)
	e.program.adopt(t)
	e.program.deps.proc.SetChain(t.b.key, e.program.chain)

	e.crossfader = 0
	e.logger.Info("take", "source", t.b.source.String(), "automated", automated)
	e.bus.Publish(events.TakeEvent{
		ProgramSource: t.b.source.String(),
		Automated:     automated,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	})
}

// Transition ramps the crossfader from 0 to 1 over duration and fires a
// take exactly once at completion. A zero duration falls back to the
// configured default, or cuts immediately when none is set. Superseding
// loads and takes invalidate the pending completion. No-op when Preview is
// empty.
func (e *Engine) Transition(duration time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.preview.Source().IsNone() {
		return
	}
	if duration <= 0 {
		duration = e.defaultTransition
	}
	if duration <= 0 {
		e.takeLocked(false)
		return
	}

	e.invalidateTransitionLocked()
	e.transGen++
	gen := e.transGen
	e.transitioning = true
	e.crossfader = 0

	ctx, cancel := context.WithCancel(context.Background())
	e.transCancel = cancel
	e.logger.Info("transition started", "duration", duration.Seconds())
	e.bus.Publish(events.TransitionEvent{Progress: 0, Running: true})
	go e.runTransition(ctx, gen, duration)
}

// runTransition drives the crossfader ramp on its own goroutine. Every tick
// revalidates its generation under the engine lock, so a superseded
// transition can never move the crossfader or fire its take.
func (e *Engine) runTransition(ctx context.Context, gen uint64, duration time.Duration) {
	ticker := time.NewTicker(transitionTickInterval)
	defer ticker.Stop()
	start := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			progress := float64(time.Since(start)) / float64(duration)
			if progress > 1 {
				progress = 1
			}

			e.mu.Lock()
			if e.transGen != gen {
				e.mu.Unlock()
				return
			}
			e.crossfader = progress
			if progress >= 1 {
				e.transitioning = false
				e.transCancel = nil
				e.bus.Publish(events.TransitionEvent{Progress: 1, Running: false})
				e.takeLocked(true)
				e.mu.Unlock()
				return
			}
			e.mu.Unlock()
			e.bus.Publish(events.TransitionEvent{Progress: progress, Running: true})
		}
	}
}

// invalidateTransitionLocked cancels any in-flight transition so its
// completion can never fire. Caller holds mu.
func (e *Engine) invalidateTransitionLocked() {
	e.transGen++
	if e.transCancel != nil {
		e.transCancel()
		e.transCancel = nil
	}
	if e.transitioning {
		e.transitioning = false
		e.bus.Publish(events.TransitionEvent{Progress: e.crossfader, Running: false})
	}
}

// Crossfader returns the current crossfader value in [0,1].
func (e *Engine) Crossfader() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.crossfader
}

// IsTransitioning reports whether a transition is in flight.
func (e *Engine) IsTransitioning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.transitioning
}

// SetStudioMode toggles the studio-mode gate. When disabled, preview loads
// route directly to Program.
func (e *Engine) SetStudioMode(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.studioMode = enabled
}

// StudioMode reports whether the studio-mode gate is enabled.
func (e *Engine) StudioMode() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.studioMode
}

// SetDefaultTransition updates the fallback transition duration.
func (e *Engine) SetDefaultTransition(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.defaultTransition = d
}

// Status is a snapshot of the whole switcher.
type Status struct {
	Preview       SlotStatus `json:"preview" doc:"Preview slot state"`
	Program       SlotStatus `json:"program" doc:"Program slot state"`
	Crossfader    float64    `json:"crossfader" doc:"Crossfader value in [0,1]"`
	Transitioning bool       `json:"transitioning" doc:"Whether a transition is in flight"`
	StudioMode    bool       `json:"studio_mode" doc:"Whether preview loads are gated from program"`
}

// Status returns a snapshot of both slots and the transition state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	crossfader := e.crossfader
	transitioning := e.transitioning
	studio := e.studioMode
	e.mu.Unlock()

	return Status{
		Preview:       e.preview.Status(),
		Program:       e.program.Status(),
		Crossfader:    crossfader,
		Transitioning: transitioning,
		StudioMode:    studio,
	}
}

// AddEffect appends a stage to a slot's effect chain. Applies from the next
// processed frame.
func (e *Engine) AddEffect(slotID string, stage effects.Stage) error {
	s, err := e.Slot(slotID)
	if err != nil {
		return err
	}
	s.Chain().Add(stage)
	return nil
}

// RemoveEffect deletes the stage at index from a slot's chain.
func (e *Engine) RemoveEffect(slotID string, index int) error {
	s, err := e.Slot(slotID)
	if err != nil {
		return err
	}
	s.Chain().RemoveAt(index)
	return nil
}

// ClearEffects removes all stages from a slot's chain.
func (e *Engine) ClearEffects(slotID string) error {
	s, err := e.Slot(slotID)
	if err != nil {
		return err
	}
	s.Chain().Clear()
	return nil
}

// SetEffectsEnabled gates a slot's chain as a whole.
func (e *Engine) SetEffectsEnabled(slotID string, enabled bool) error {
	s, err := e.Slot(slotID)
	if err != nil {
		return err
	}
	s.Chain().SetEnabled(enabled)
	return nil
}

// Shutdown invalidates any transition and releases both slots' resources.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	e.invalidateTransitionLocked()
	e.mu.Unlock()
	_ = e.preview.Load(media.None())
	_ = e.program.Load(media.None())
}
