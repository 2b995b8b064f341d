// Package switcher implements the Preview/Program slot state machines and
// the take/transition engine orchestrating them.
package switcher

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/smazurov/videoswitch/internal/capture"
	"github.com/smazurov/videoswitch/internal/effects"
	"github.com/smazurov/videoswitch/internal/events"
	"github.com/smazurov/videoswitch/internal/logging"
	"github.com/smazurov/videoswitch/internal/media"
	"github.com/smazurov/videoswitch/internal/processor"
)

// State is a slot's lifecycle state.
type State string

// Slot states.
const (
	StateEmpty   State = "empty"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateError   State = "error"
)

// nominalFrameInterval is the step size for frame stepping and the assumed
// frame spacing when no decoder-reported rate is available.
const nominalFrameInterval = time.Second / 30

// timeUpdateInterval paces transport position events.
const timeUpdateInterval = 200 * time.Millisecond

// DecoderFactory opens a decoder for a file-backed source.
type DecoderFactory func(source media.ContentSource) (media.Decoder, error)

// slotDeps are the collaborators a slot needs to acquire and feed bindings.
type slotDeps struct {
	captures    func() *capture.Session
	openDecoder DecoderFactory
	proc        *processor.Processor
	bus         *events.Bus
}

// binding holds the live resources behind a non-empty slot. The owner
// pointer is the slot currently holding the binding; a take moves the
// binding between slots without touching the resources, so the feed
// goroutines resolve their owner on every delivery.
type binding struct {
	key     string
	source  media.ContentSource
	session *capture.Session
	decoder media.Decoder
	lease   *media.FileLease
	cancel  context.CancelFunc
	owner   atomic.Pointer[Slot]
}

func (b *binding) isImage() bool {
	return b.decoder != nil && !b.decoder.Live() && b.decoder.Duration() == 0
}

// SlotStatus is a point-in-time snapshot of a slot's observable state.
type SlotStatus struct {
	Slot           string  `json:"slot" example:"preview" doc:"Slot identifier"`
	State          State   `json:"state" example:"ready" doc:"Slot state"`
	Source         string  `json:"source" example:"camera:video0" doc:"Bound source descriptor"`
	IsPlaying      bool    `json:"is_playing" doc:"Transport playing"`
	CurrentTime    float64 `json:"current_time" doc:"Playhead position in seconds"`
	Duration       float64 `json:"duration" doc:"Media duration in seconds, 0 for live"`
	Loop           bool    `json:"loop" doc:"Loop on end of media"`
	Muted          bool    `json:"muted" doc:"Audio muted"`
	Rate           float64 `json:"rate" doc:"Playback rate"`
	Volume         float64 `json:"volume" doc:"Audio volume in [0,1]"`
	ErrorCode      string  `json:"error_code,omitempty" doc:"Error code when state is error"`
	ErrorReason    string  `json:"error_reason,omitempty" doc:"Human-readable failure reason"`
	EffectCount    int     `json:"effect_count" doc:"Number of effect stages"`
	EffectsEnabled bool    `json:"effects_enabled" doc:"Whether the effect chain is applied"`
}

// Slot is one of the two output positions. All mutation goes through its
// mutex; the engine serializes loads and takes on top of that.
type Slot struct {
	id     string
	deps   slotDeps
	logger logging.Logger
	chain  *effects.Chain

	mu           sync.Mutex
	state        State
	errCode      string
	errReason    string
	b            *binding
	playing      bool
	currentTime  time.Duration
	duration     time.Duration
	loop         bool
	muted        bool
	rate         float64
	volume       float64
	pendingSeeks int
	lastFrame    media.Frame
	hasFrame     bool
}

func newSlot(id string, deps slotDeps) *Slot {
	return &Slot{
		id:     id,
		deps:   deps,
		logger: logging.GetLogger("switcher"),
		chain:  effects.NewChain(),
		state:  StateEmpty,
		rate:   1,
		volume: 1,
	}
}

// ID returns the slot identifier ("preview" or "program").
func (s *Slot) ID() string { return s.id }

// Chain returns the slot's effect chain. The chain object is stable across
// loads; pipeline bindings reference it directly, so mutations apply on the
// next processed frame.
func (s *Slot) Chain() *effects.Chain { return s.chain }

// PipelineKey returns the processing pipeline key of the current binding,
// empty when the slot holds none. The key travels with the binding across a
// take.
func (s *Slot) PipelineKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.b == nil {
		return ""
	}
	return s.b.key
}

// Source returns the bound source, None when the slot is empty or errored.
func (s *Slot) Source() media.ContentSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.b == nil {
		return media.None()
	}
	return s.b.source
}

// State returns the slot's lifecycle state.
func (s *Slot) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Status returns a snapshot of the slot's observable state.
func (s *Slot) Status() SlotStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := SlotStatus{
		Slot:           s.id,
		State:          s.state,
		Source:         "none",
		IsPlaying:      s.playing,
		CurrentTime:    s.currentTime.Seconds(),
		Duration:       s.duration.Seconds(),
		Loop:           s.loop,
		Muted:          s.muted,
		Rate:           s.rate,
		Volume:         s.volume,
		ErrorCode:      s.errCode,
		ErrorReason:    s.errReason,
		EffectCount:    s.chain.Len(),
		EffectsEnabled: s.chain.Enabled(),
	}
	if s.b != nil {
		st.Source = s.b.source.String()
		if s.b.decoder != nil && s.pendingSeeks == 0 {
			st.CurrentTime = s.b.decoder.CurrentTime().Seconds()
		}
	}
	return st
}

// CurrentFrame returns a pixel copy of the most recent processed frame. The
// returned frame carries no texture; the slot keeps ownership of the live
// one.
func (s *Slot) CurrentFrame() (media.Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasFrame {
		return media.Frame{}, false
	}
	return s.lastFrame.Clone(), true
}

// Load binds the slot to source. The previous binding is fully torn down
// before the new one is acquired, so the slot never holds two bindings.
// Loading the already-bound source is a no-op. A failed acquire leaves the
// slot in the error state with everything released; the next Load recovers.
func (s *Slot) Load(source media.ContentSource) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateReady && s.b != nil && s.b.source.Equal(source) {
		return nil
	}

	s.teardownLocked()

	if source.IsNone() {
		s.publishStateLocked()
		return nil
	}

	s.state = StateLoading
	s.publishStateLocked()

	b, err := s.acquireLocked(source)
	if err != nil {
		serr := slotErrorFrom(err)
		s.state = StateError
		s.errCode = serr.Code
		s.errReason = serr.Message
		s.logger.Error("load failed", "slot", s.id, "source", source.String(), "code", serr.Code, "error", serr)
		s.deps.bus.Publish(events.SlotErrorEvent{
			Slot:      s.id,
			Code:      serr.Code,
			Reason:    serr.Message,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
		s.publishStateLocked()
		return serr
	}

	s.b = b
	b.owner.Store(s)
	s.state = StateReady
	switch {
	case b.session != nil:
		s.playing = true
		s.duration = 0
	case b.isImage():
		s.playing = false
		s.duration = 0
	default:
		s.playing = false
		s.duration = b.decoder.Duration()
	}
	s.currentTime = 0
	s.logger.Info("slot loaded", "slot", s.id, "source", source.String(), "key", b.key)
	s.publishStateLocked()
	return nil
}

// acquireLocked opens the resources behind source and starts the feed
// goroutines. On failure everything partially acquired is released.
func (s *Slot) acquireLocked(source media.ContentSource) (*binding, error) {
	key := s.id + "-" + uuid.NewString()[:8]
	ctx, cancel := context.WithCancel(context.Background())
	b := &binding{key: key, source: source, cancel: cancel}

	switch source.Kind {
	case media.SourceCamera, media.SourceVirtual:
		sess := s.deps.captures()
		if err := sess.Start(source.Handle()); err != nil {
			sess.Stop()
			cancel()
			return nil, err
		}
		b.session = sess

	case media.SourceMedia:
		lease, err := media.AcquireFileLease(source.FileRef)
		if err != nil {
			cancel()
			return nil, NewSlotError(CodeResourceAccessDenied, "cannot access media file", err)
		}
		dec, err := s.deps.openDecoder(source)
		if err != nil {
			_ = lease.Release()
			cancel()
			return nil, NewSlotError(CodeDecodeFailure, "cannot open media file", err)
		}
		b.lease = lease
		b.decoder = dec
		dec.OnEnd(func() { go s.handleEnd(b) })

	default:
		cancel()
		return nil, NewSlotError(CodeDecodeFailure, "unsupported source kind", nil)
	}

	stream := s.deps.proc.CreateFrameStream(key, s.chain)
	go pumpRaw(s.deps.proc, b)
	go consumeProcessed(b, stream)
	if b.decoder != nil && !b.isImage() {
		go timeTicker(ctx, b)
	}
	return b, nil
}

// teardownLocked releases the current binding and resets transport state to
// defaults. Caller holds mu. Stopping the capture session and decoder is
// synchronous; the feed goroutines exit as their streams close and any
// straggler is rejected by the binding identity check.
func (s *Slot) teardownLocked() {
	if s.b != nil {
		b := s.b
		s.b = nil
		b.cancel()
		if b.session != nil {
			b.session.Stop()
		}
		if b.decoder != nil {
			_ = b.decoder.Close()
		}
		if b.lease != nil {
			if err := b.lease.Release(); err != nil && !errors.Is(err, media.ErrLeaseReleased) {
				s.logger.Warn("lease release failed", "slot", s.id, "error", err)
			}
		}
		s.deps.proc.StopFrameStream(b.key)
		s.logger.Debug("binding released", "slot", s.id, "key", b.key)
	}
	if s.lastFrame.Texture != nil {
		s.lastFrame.Texture.Release()
	}
	s.lastFrame = media.Frame{}
	s.hasFrame = false
	s.playing = false
	s.currentTime = 0
	s.duration = 0
	s.loop = false
	s.muted = false
	s.rate = 1
	s.volume = 1
	s.pendingSeeks = 0
	s.errCode = ""
	s.errReason = ""
	s.state = StateEmpty
}

// detach removes the slot's binding without releasing any resource and
// resets the slot to empty. Returns nil when the slot has nothing to hand
// over. Used exclusively by take.
func (s *Slot) detach() *transfer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.b == nil || s.state != StateReady {
		return nil
	}
	t := &transfer{
		b:           s.b,
		playing:     s.playing,
		currentTime: s.currentTime,
		duration:    s.duration,
		loop:        s.loop,
		muted:       s.muted,
		rate:        s.rate,
		volume:      s.volume,
		lastFrame:   s.lastFrame,
		hasFrame:    s.hasFrame,
	}
	s.b = nil
	s.lastFrame = media.Frame{}
	s.hasFrame = false
	s.playing = false
	s.currentTime = 0
	s.duration = 0
	s.loop = false
	s.muted = false
	s.rate = 1
	s.volume = 1
	s.pendingSeeks = 0
	s.state = StateEmpty
	s.publishStateLocked()
	return t
}

// adopt installs a transferred binding, tearing down whatever the slot held
// before. The transferred resources are the same live objects the donor slot
// held: decode state, playback position, and textures carry over untouched.
func (s *Slot) adopt(t *transfer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardownLocked()
	s.b = t.b
	t.b.owner.Store(s)
	s.playing = t.playing
	s.currentTime = t.currentTime
	s.duration = t.duration
	s.loop = t.loop
	s.muted = t.muted
	s.rate = t.rate
	s.volume = t.volume
	s.lastFrame = t.lastFrame
	s.hasFrame = t.hasFrame
	s.state = StateReady
	s.publishStateLocked()
}

// transfer is the bundle of live objects moved from Preview to Program by a
// take.
type transfer struct {
	b           *binding
	playing     bool
	currentTime time.Duration
	duration    time.Duration
	loop        bool
	muted       bool
	rate        float64
	volume      float64
	lastFrame   media.Frame
	hasFrame    bool
}

// Play starts playback. No-op on empty, errored, live, or still-image
// bindings.
func (s *Slot) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady || s.b == nil || s.b.decoder == nil || s.b.isImage() {
		return
	}
	s.b.decoder.SetRate(s.rate)
	s.b.decoder.Play()
	s.playing = true
	s.publishStateLocked()
}

// Pause pauses playback. No-op when there is nothing to pause.
func (s *Slot) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady || s.b == nil || s.b.decoder == nil {
		return
	}
	s.b.decoder.Pause()
	s.playing = false
	s.publishStateLocked()
}

// Stop pauses playback and resets the playhead to zero. Idempotent: calling
// it again on an already-stopped slot changes nothing observable.
func (s *Slot) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady || s.b == nil || s.b.decoder == nil || s.b.isImage() {
		return
	}
	b := s.b
	b.decoder.Pause()
	s.playing = false
	if b.decoder.CurrentTime() != 0 {
		s.currentTime = 0
		s.pendingSeeks++
		go s.completeSeek(b, 0, false)
	}
	s.publishStateLocked()
}

// Seek moves the playhead to pos. While the seek is outstanding, periodic
// time updates are suppressed so the displayed position never bounces
// through stale values. Playback resumes afterward if it was active.
func (s *Slot) Seek(pos time.Duration) {
	s.mu.Lock()
	if s.state != StateReady || s.b == nil || s.b.decoder == nil || s.b.isImage() {
		s.mu.Unlock()
		return
	}
	if pos < 0 {
		pos = 0
	}
	if s.duration > 0 && pos > s.duration {
		pos = s.duration
	}
	b := s.b
	wasPlaying := s.playing
	// The reported position freezes at its pre-seek value until the seek
	// completes; only then does it move to the target.
	s.currentTime = b.decoder.CurrentTime()
	s.pendingSeeks++
	s.mu.Unlock()

	go s.completeSeek(b, pos, wasPlaying)
}

// completeSeek performs the blocking decoder seek off the caller's
// goroutine. Results against a superseded binding are discarded;
// cancellation during rapid source swaps is expected and swallowed.
func (s *Slot) completeSeek(b *binding, pos time.Duration, resume bool) {
	err := b.decoder.Seek(context.Background(), pos)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.b != b {
		return
	}
	if s.pendingSeeks > 0 {
		s.pendingSeeks--
	}
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.logger.Warn("seek failed", "slot", s.id, "position", pos.Seconds(), "error", err)
		}
		return
	}
	s.currentTime = pos
	if resume {
		b.decoder.SetRate(s.rate)
		b.decoder.Play()
		s.playing = true
	}
	s.publishTimeLocked()
}

// StepForward advances the playhead by one nominal frame interval.
func (s *Slot) StepForward() { s.step(nominalFrameInterval) }

// StepBackward rewinds the playhead by one nominal frame interval.
func (s *Slot) StepBackward() { s.step(-nominalFrameInterval) }

func (s *Slot) step(delta time.Duration) {
	s.mu.Lock()
	if s.state != StateReady || s.b == nil || s.b.decoder == nil || s.b.isImage() {
		s.mu.Unlock()
		return
	}
	target := s.currentTime + delta
	s.mu.Unlock()
	s.Seek(target)
}

// SetRate sets the playback rate, applied immediately when playing.
func (s *Slot) SetRate(rate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rate <= 0 {
		return
	}
	s.rate = rate
	if s.b != nil && s.b.decoder != nil && s.playing {
		s.b.decoder.SetRate(rate)
	}
}

// SetVolume sets the audio volume.
func (s *Slot) SetVolume(volume float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if volume < 0 {
		volume = 0
	}
	if volume > 1 {
		volume = 1
	}
	s.volume = volume
	if s.b != nil && s.b.decoder != nil {
		s.b.decoder.SetVolume(volume)
	}
}

// SetMuted sets the mute flag.
func (s *Slot) SetMuted(muted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.muted = muted
	if s.b != nil && s.b.decoder != nil {
		s.b.decoder.SetMuted(muted)
	}
}

// SetLoop sets the end-of-media loop policy.
func (s *Slot) SetLoop(loop bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loop = loop
}

// handleEnd applies the loop policy on end of media. Runs on its own
// goroutine so the decoder's reader is never blocked on the slot mutex.
func (s *Slot) handleEnd(b *binding) {
	s.mu.Lock()
	if s.b != b {
		s.mu.Unlock()
		return
	}
	if !s.loop {
		s.playing = false
		s.currentTime = s.duration
		s.publishStateLocked()
		s.mu.Unlock()
		return
	}
	s.currentTime = 0
	s.pendingSeeks++
	s.mu.Unlock()

	s.completeSeek(b, 0, true)
}

// storeFrame retains the newest processed frame, releasing the texture of
// the one it replaces. Frames arriving for a superseded binding are released
// immediately.
func (s *Slot) storeFrame(b *binding, pf processor.ProcessedFrame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.b != b {
		if pf.Frame.Texture != nil {
			pf.Frame.Texture.Release()
		}
		return
	}
	if s.lastFrame.Texture != nil {
		s.lastFrame.Texture.Release()
	}
	s.lastFrame = pf.Frame
	s.hasFrame = true
}

func (s *Slot) publishStateLocked() {
	source := "none"
	if s.b != nil {
		source = s.b.source.String()
	}
	s.deps.bus.Publish(events.SlotStateEvent{
		Slot:      s.id,
		State:     string(s.state),
		Source:    source,
		IsPlaying: s.playing,
		Duration:  s.duration.Seconds(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Slot) publishTimeLocked() {
	s.deps.bus.Publish(events.SlotTimeEvent{
		Slot:        s.id,
		CurrentTime: s.currentTime.Seconds(),
		Duration:    s.duration.Seconds(),
	})
}

// pumpRaw feeds source frames into the processing pipeline. Exits when the
// source stream closes. The pipeline key travels with the binding, so
// submission continues across a take without rewiring.
func pumpRaw(proc *processor.Processor, b *binding) {
	var frames <-chan media.Frame
	if b.session != nil {
		frames = b.session.Frames()
	} else {
		frames = b.decoder.Frames()
	}
	for f := range frames {
		proc.SubmitFrame(f, b.key, time.Now())
	}
}

// consumeProcessed retains processed frames on whichever slot currently
// owns the binding. Exits when the pipeline stream closes.
func consumeProcessed(b *binding, stream <-chan processor.ProcessedFrame) {
	for pf := range stream {
		if owner := b.owner.Load(); owner != nil {
			owner.storeFrame(b, pf)
		} else if pf.Frame.Texture != nil {
			pf.Frame.Texture.Release()
		}
	}
}

// timeTicker publishes transport position updates for media bindings.
// Updates are suppressed while a seek is outstanding.
func timeTicker(ctx context.Context, b *binding) {
	ticker := time.NewTicker(timeUpdateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			owner := b.owner.Load()
			if owner == nil {
				continue
			}
			owner.mu.Lock()
			if owner.b != b || owner.pendingSeeks > 0 {
				owner.mu.Unlock()
				continue
			}
			owner.currentTime = b.decoder.CurrentTime()
			owner.playing = b.decoder.Playing()
			owner.publishTimeLocked()
			owner.mu.Unlock()
		}
	}
}

// slotIDs are the two valid slot names.
func normalizeSlotID(id string) (string, bool) {
	switch strings.ToLower(id) {
	case SlotPreview:
		return SlotPreview, true
	case SlotProgram:
		return SlotProgram, true
	default:
		return "", false
	}
}
