package switcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/videoswitch/internal/capture"
	"github.com/smazurov/videoswitch/internal/effects"
	"github.com/smazurov/videoswitch/internal/events"
	"github.com/smazurov/videoswitch/internal/media"
	"github.com/smazurov/videoswitch/internal/processor"
)

// fakeDevice is a minimal capture.Device that can push frames on demand.
type fakeDevice struct {
	id     string
	mu     sync.Mutex
	sink   func(media.Frame)
	closed bool
}

func (d *fakeDevice) ID() string { return d.id }

func (d *fakeDevice) Start(_ context.Context, sink func(media.Frame)) error {
	d.mu.Lock()
	d.sink = sink
	d.mu.Unlock()
	return nil
}

func (d *fakeDevice) Close() error {
	d.mu.Lock()
	d.closed = true
	d.sink = nil
	d.mu.Unlock()
	return nil
}

func (d *fakeDevice) emit(f media.Frame) {
	d.mu.Lock()
	sink := d.sink
	d.mu.Unlock()
	if sink != nil {
		sink(f)
	}
}

func (d *fakeDevice) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// fakeDecoder implements media.Decoder with test-controllable position,
// seek latency, and end-of-media signaling.
type fakeDecoder struct {
	path      string
	duration  time.Duration
	seekDelay time.Duration

	mu      sync.Mutex
	pos     time.Duration
	playing bool
	rate    float64
	volume  float64
	muted   bool
	onEnd   func()
	closed  bool
	seeks   []time.Duration
	frames  chan media.Frame
}

func newFakeDecoder(path string, duration time.Duration) *fakeDecoder {
	return &fakeDecoder{path: path, duration: duration, rate: 1, volume: 1, frames: make(chan media.Frame, 4)}
}

func (d *fakeDecoder) Duration() time.Duration      { return d.duration }
func (d *fakeDecoder) Live() bool                   { return false }
func (d *fakeDecoder) Frames() <-chan media.Frame   { return d.frames }
func (d *fakeDecoder) SetRate(r float64)            { d.mu.Lock(); d.rate = r; d.mu.Unlock() }
func (d *fakeDecoder) SetVolume(v float64)          { d.mu.Lock(); d.volume = v; d.mu.Unlock() }
func (d *fakeDecoder) SetMuted(m bool)              { d.mu.Lock(); d.muted = m; d.mu.Unlock() }
func (d *fakeDecoder) OnEnd(fn func())              { d.mu.Lock(); d.onEnd = fn; d.mu.Unlock() }

func (d *fakeDecoder) CurrentTime() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pos
}

func (d *fakeDecoder) Playing() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.playing
}

func (d *fakeDecoder) Play() {
	d.mu.Lock()
	d.playing = true
	d.mu.Unlock()
}

func (d *fakeDecoder) Pause() {
	d.mu.Lock()
	d.playing = false
	d.mu.Unlock()
}

func (d *fakeDecoder) Seek(ctx context.Context, pos time.Duration) error {
	if d.seekDelay > 0 {
		select {
		case <-time.After(d.seekDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	d.mu.Lock()
	d.pos = pos
	d.seeks = append(d.seeks, pos)
	d.mu.Unlock()
	return nil
}

func (d *fakeDecoder) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.closed {
		d.closed = true
		close(d.frames)
	}
	return nil
}

func (d *fakeDecoder) setPos(pos time.Duration) {
	d.mu.Lock()
	d.pos = pos
	d.mu.Unlock()
}

func (d *fakeDecoder) fireEnd() {
	d.mu.Lock()
	fn := d.onEnd
	d.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (d *fakeDecoder) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func (d *fakeDecoder) seekTargets() []time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]time.Duration, len(d.seeks))
	copy(out, d.seeks)
	return out
}

// world tracks every device and decoder the engine opens, so tests can
// assert resource identity and leak-freedom.
type world struct {
	dir string

	mu       sync.Mutex
	devices  []*fakeDevice
	decoders []*fakeDecoder

	decoderDuration time.Duration
	seekDelay       time.Duration
}

// clip creates a media file on disk so lease acquisition succeeds, and
// returns the source pointing at it.
func (w *world) clip(t *testing.T, name string) media.ContentSource {
	t.Helper()
	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, []byte("media"), 0o644); err != nil {
		t.Fatal(err)
	}
	return media.MediaFile(path)
}

func (w *world) opener(deviceID string) (capture.Device, error) {
	if deviceID == "missing" {
		return nil, capture.NewError(capture.CodeDeviceNotFound, "device not found", nil)
	}
	if deviceID == "busy" {
		return nil, capture.NewError(capture.CodeDeviceBusy, "device busy", nil)
	}
	d := &fakeDevice{id: deviceID}
	w.mu.Lock()
	w.devices = append(w.devices, d)
	w.mu.Unlock()
	return d, nil
}

func (w *world) openDecoder(source media.ContentSource) (media.Decoder, error) {
	if strings.HasSuffix(source.FileRef, "bad.mp4") {
		return nil, errors.New("corrupt container")
	}
	d := newFakeDecoder(source.FileRef, w.decoderDuration)
	d.seekDelay = w.seekDelay
	w.mu.Lock()
	w.decoders = append(w.decoders, d)
	w.mu.Unlock()
	return d, nil
}

func (w *world) openDevices() []*fakeDevice {
	w.mu.Lock()
	defer w.mu.Unlock()
	var open []*fakeDevice
	for _, d := range w.devices {
		if !d.isClosed() {
			open = append(open, d)
		}
	}
	return open
}

func (w *world) openDecoders() []*fakeDecoder {
	w.mu.Lock()
	defer w.mu.Unlock()
	var open []*fakeDecoder
	for _, d := range w.decoders {
		if !d.isClosed() {
			open = append(open, d)
		}
	}
	return open
}

func (w *world) decoder(i int) *fakeDecoder {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.decoders[i]
}

func newTestEngine(t *testing.T) (*Engine, *world) {
	t.Helper()
	w := &world{decoderDuration: 10 * time.Second, dir: t.TempDir()}
	proc := processor.New(nil)
	t.Cleanup(proc.Close)
	e := New(Config{
		Bus:         events.New(),
		Processor:   proc,
		Captures:    func() *capture.Session { return capture.NewSession(w.opener) },
		OpenDecoder: w.openDecoder,
	})
	t.Cleanup(e.Shutdown)
	return e, w
}

func takeEvents(e *Engine) (<-chan events.TakeEvent, func()) {
	ch := make(chan events.TakeEvent, 8)
	unsub := e.bus.Subscribe(func(ev events.TakeEvent) { ch <- ev })
	return ch, unsub
}

func countTakes(ch <-chan events.TakeEvent, settle time.Duration) int {
	deadline := time.After(settle)
	n := 0
	for {
		select {
		case <-ch:
			n++
		case <-deadline:
			return n
		}
	}
}

func TestLoadReplacementKeepsSingleBinding(t *testing.T) {
	// Rapid reassignment must leave exactly one device open, bound to the
	// newest source.
	e, w := newTestEngine(t)

	if err := e.LoadToPreview(media.Camera("camA")); err != nil {
		t.Fatalf("load camA: %v", err)
	}
	if err := e.LoadToPreview(media.Camera("camB")); err != nil {
		t.Fatalf("load camB: %v", err)
	}

	open := w.openDevices()
	if len(open) != 1 || open[0].id != "camB" {
		t.Fatalf("expected only camB open, got %d open", len(open))
	}
	if src := e.Preview().Source(); src.DeviceID != "camB" {
		t.Errorf("preview bound to %s", src)
	}
}

func TestLoadAcrossSourceKindsNeverLeaks(t *testing.T) {
	e, w := newTestEngine(t)

	if err := e.LoadToPreview(media.Camera("camA")); err != nil {
		t.Fatalf("load camera: %v", err)
	}
	if err := e.LoadToPreview(w.clip(t, "clip.mp4")); err != nil {
		t.Fatalf("load media: %v", err)
	}
	if len(w.openDevices()) != 0 {
		t.Error("camera still open after media load")
	}
	if err := e.LoadToPreview(media.None()); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if len(w.openDecoders()) != 0 {
		t.Error("decoder still open after clear")
	}
	if st := e.Preview().Status(); st.State != StateEmpty || st.Rate != 1 {
		t.Errorf("cleared slot not reset: %+v", st)
	}
}

func TestSameSourceReloadIsNoop(t *testing.T) {
	e, w := newTestEngine(t)

	if err := e.LoadToPreview(media.Camera("camA")); err != nil {
		t.Fatal(err)
	}
	if err := e.LoadToPreview(media.Camera("camA")); err != nil {
		t.Fatal(err)
	}
	w.mu.Lock()
	opened := len(w.devices)
	w.mu.Unlock()
	if opened != 1 {
		t.Errorf("reassigning the same camera opened %d devices", opened)
	}
}

func TestTakeTransfersResources(t *testing.T) {
	// The program slot must end up holding the same live decoder preview
	// held, not a recreated one, and preview must be empty.
	e, w := newTestEngine(t)

	src := w.clip(t, "clip.mp4")
	if err := e.LoadToPreview(src); err != nil {
		t.Fatal(err)
	}
	dec := w.decoder(0)
	e.Preview().Play()
	dec.setPos(3 * time.Second)

	e.Take()

	w.mu.Lock()
	opened := len(w.decoders)
	w.mu.Unlock()
	if opened != 1 {
		t.Fatalf("take recreated the decoder: %d opened", opened)
	}
	if dec.isClosed() {
		t.Fatal("take closed the transferred decoder")
	}

	prog := e.Program().Status()
	if prog.State != StateReady || prog.Source != src.String() {
		t.Fatalf("program not live after take: %+v", prog)
	}
	if !prog.IsPlaying {
		t.Error("playback state lost across take")
	}
	if prog.CurrentTime < 2.9 {
		t.Errorf("playhead reset across take: %v", prog.CurrentTime)
	}
	if prev := e.Preview().Status(); prev.State != StateEmpty {
		t.Errorf("preview not empty after take: %+v", prev)
	}
	if e.Crossfader() != 0 {
		t.Errorf("crossfader not reset: %v", e.Crossfader())
	}
}

func TestTakeEffectChainCopyIsolation(t *testing.T) {
	e, _ := newTestEngine(t)

	if err := e.LoadToPreview(media.Camera("camA")); err != nil {
		t.Fatal(err)
	}
	if err := e.AddEffect(SlotPreview, &effects.OpacityStage{Opacity: 0.5}); err != nil {
		t.Fatal(err)
	}

	e.Take()

	prog := e.Program().Chain()
	prev := e.Preview().Chain()
	if prog.Len() != 1 {
		t.Fatalf("program chain not copied: %d stages", prog.Len())
	}

	prog.StageAt(0).(*effects.OpacityStage).Opacity = 0.1
	if prev.StageAt(0).(*effects.OpacityStage).Opacity != 0.5 {
		t.Error("program chain mutation leaked into preview")
	}
	prev.StageAt(0).(*effects.OpacityStage).Opacity = 0.9
	if prog.StageAt(0).(*effects.OpacityStage).Opacity != 0.1 {
		t.Error("preview chain mutation leaked into program")
	}
}

func TestTakeWithEmptyPreviewIsNoop(t *testing.T) {
	e, _ := newTestEngine(t)

	if err := e.LoadToProgram(media.Camera("camA")); err != nil {
		t.Fatal(err)
	}
	before := e.Program().Status()

	ch, unsub := takeEvents(e)
	defer unsub()
	e.Take()

	after := e.Program().Status()
	if after.Source != before.Source || after.State != before.State {
		t.Errorf("take with empty preview changed program: %+v", after)
	}
	if n := countTakes(ch, 100*time.Millisecond); n != 0 {
		t.Errorf("take event fired %d times", n)
	}
}

func TestTransitionFiresTakeExactlyOnce(t *testing.T) {
	e, _ := newTestEngine(t)

	if err := e.LoadToPreview(media.Camera("camA")); err != nil {
		t.Fatal(err)
	}

	ch, unsub := takeEvents(e)
	defer unsub()

	e.Transition(150 * time.Millisecond)
	if !e.IsTransitioning() {
		t.Fatal("transition did not start")
	}

	if n := countTakes(ch, time.Second); n != 1 {
		t.Fatalf("expected exactly one take, got %d", n)
	}
	if e.IsTransitioning() {
		t.Error("still transitioning after completion")
	}
	if e.Crossfader() != 0 {
		t.Errorf("crossfader not reset after take: %v", e.Crossfader())
	}
	if src := e.Program().Source(); src.DeviceID != "camA" {
		t.Errorf("program not live after transition: %s", src)
	}
}

func TestManualTakeInvalidatesTransition(t *testing.T) {
	e, _ := newTestEngine(t)

	if err := e.LoadToPreview(media.Camera("camA")); err != nil {
		t.Fatal(err)
	}

	ch, unsub := takeEvents(e)
	defer unsub()

	e.Transition(500 * time.Millisecond)
	e.Take()

	if n := countTakes(ch, time.Second); n != 1 {
		t.Errorf("expected one take (manual only), got %d", n)
	}
}

func TestSupersedingLoadInvalidatesTransition(t *testing.T) {
	// Clearing preview mid-transition must cancel the pending completion
	// and leave program untouched.
	e, _ := newTestEngine(t)

	if err := e.LoadToProgram(media.Camera("camP")); err != nil {
		t.Fatal(err)
	}
	if err := e.LoadToPreview(media.Camera("camA")); err != nil {
		t.Fatal(err)
	}

	ch, unsub := takeEvents(e)
	defer unsub()

	e.Transition(400 * time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	if err := e.LoadToPreview(media.None()); err != nil {
		t.Fatal(err)
	}

	if n := countTakes(ch, time.Second); n != 0 {
		t.Errorf("invalidated transition fired %d takes", n)
	}
	if src := e.Program().Source(); src.DeviceID != "camP" {
		t.Errorf("program changed by invalidated transition: %s", src)
	}
	if e.IsTransitioning() {
		t.Error("transition still marked in flight")
	}
}

func TestTransitionWithEmptyPreviewIsNoop(t *testing.T) {
	e, _ := newTestEngine(t)

	ch, unsub := takeEvents(e)
	defer unsub()

	e.Transition(50 * time.Millisecond)
	if e.IsTransitioning() {
		t.Error("transition started with empty preview")
	}
	if n := countTakes(ch, 200*time.Millisecond); n != 0 {
		t.Errorf("take fired %d times", n)
	}
}

func TestSeekSuppressesTimeUpdates(t *testing.T) {
	// While a seek is outstanding, the reported position must not fall
	// below its pre-seek value; it moves only when the seek completes.
	e, w := newTestEngine(t)
	w.seekDelay = 150 * time.Millisecond

	if err := e.LoadToPreview(w.clip(t, "clip.mp4")); err != nil {
		t.Fatal(err)
	}
	dec := w.decoder(0)
	dec.setPos(5 * time.Second)

	slot := e.Preview()
	slot.Seek(2 * time.Second)

	// Sample the reported position while the seek is in flight.
	deadline := time.Now().Add(100 * time.Millisecond)
	for time.Now().Before(deadline) {
		if got := slot.Status().CurrentTime; got < 5 {
			t.Fatalf("reported time %v dropped below pre-seek value during seek", got)
		}
		time.Sleep(10 * time.Millisecond)
	}

	// After completion, the position is the seek target.
	waitFor(t, time.Second, func() bool {
		return slot.Status().CurrentTime == 2
	}, "seek never completed")
}

func TestSeekResumesPlayback(t *testing.T) {
	e, w := newTestEngine(t)

	if err := e.LoadToPreview(w.clip(t, "clip.mp4")); err != nil {
		t.Fatal(err)
	}
	slot := e.Preview()
	slot.Play()
	slot.Seek(4 * time.Second)

	waitFor(t, time.Second, func() bool {
		st := slot.Status()
		return st.IsPlaying && st.CurrentTime == 4
	}, "playback did not resume after seek")
	if !w.decoder(0).Playing() {
		t.Error("decoder not playing after seek resume")
	}
}

func TestStepUsesNominalFrameInterval(t *testing.T) {
	e, w := newTestEngine(t)

	if err := e.LoadToPreview(w.clip(t, "clip.mp4")); err != nil {
		t.Fatal(err)
	}
	slot := e.Preview()
	slot.Seek(time.Second)
	waitFor(t, time.Second, func() bool {
		return slot.Status().CurrentTime == 1
	}, "initial seek never completed")

	slot.StepForward()
	waitFor(t, time.Second, func() bool {
		targets := w.decoder(0).seekTargets()
		return len(targets) == 2 && targets[1] == time.Second+nominalFrameInterval
	}, "step did not seek by one frame interval")

	slot.StepBackward()
	waitFor(t, time.Second, func() bool {
		targets := w.decoder(0).seekTargets()
		return len(targets) == 3 && targets[2] == time.Second
	}, "step backward did not rewind by one frame interval")
}

func TestStopResetsAndIsIdempotent(t *testing.T) {
	e, w := newTestEngine(t)

	if err := e.LoadToPreview(w.clip(t, "clip.mp4")); err != nil {
		t.Fatal(err)
	}
	slot := e.Preview()
	slot.Play()
	w.decoder(0).setPos(3 * time.Second)

	slot.Stop()
	waitFor(t, time.Second, func() bool {
		st := slot.Status()
		return !st.IsPlaying && st.CurrentTime == 0
	}, "stop did not reset transport")

	first := slot.Status()
	slot.Stop()
	second := slot.Status()
	if first.IsPlaying != second.IsPlaying || first.CurrentTime != second.CurrentTime || first.State != second.State {
		t.Errorf("second stop changed observable state: %+v vs %+v", first, second)
	}

	// Stop on an empty slot is a silent no-op, twice.
	empty := e.Program()
	empty.Stop()
	empty.Stop()
	if st := empty.Status(); st.State != StateEmpty {
		t.Errorf("stop on empty slot changed state: %+v", st)
	}
}

func TestTransportNoopsWhenNotReady(t *testing.T) {
	e, _ := newTestEngine(t)
	slot := e.Preview()

	slot.Play()
	slot.Pause()
	slot.Seek(time.Second)
	slot.StepForward()
	if st := slot.Status(); st.State != StateEmpty || st.IsPlaying {
		t.Errorf("transport on empty slot changed state: %+v", st)
	}
}

func TestLoopPolicyOnEndOfMedia(t *testing.T) {
	e, w := newTestEngine(t)

	if err := e.LoadToPreview(w.clip(t, "clip.mp4")); err != nil {
		t.Fatal(err)
	}
	slot := e.Preview()
	slot.SetLoop(true)
	slot.Play()

	w.decoder(0).setPos(10 * time.Second)
	w.decoder(0).fireEnd()

	waitFor(t, time.Second, func() bool {
		st := slot.Status()
		return st.IsPlaying && st.CurrentTime == 0
	}, "loop did not restart playback")

	slot.SetLoop(false)
	w.decoder(0).setPos(10 * time.Second)
	w.decoder(0).fireEnd()

	waitFor(t, time.Second, func() bool {
		st := slot.Status()
		return !st.IsPlaying && st.CurrentTime == 10
	}, "end of media did not pause at duration")
}

func TestLoadFailureEntersErrorStateAndRecovers(t *testing.T) {
	e, _ := newTestEngine(t)

	err := e.LoadToPreview(media.Camera("missing"))
	var serr *SlotError
	if !errors.As(err, &serr) || serr.Code != CodeDeviceNotFound {
		t.Fatalf("expected DEVICE_NOT_FOUND, got %v", err)
	}
	st := e.Preview().Status()
	if st.State != StateError || st.ErrorCode != CodeDeviceNotFound {
		t.Errorf("slot not in error state: %+v", st)
	}

	// The engine stays usable: the next load recovers.
	if err := e.LoadToPreview(media.Camera("camA")); err != nil {
		t.Fatalf("recovery load failed: %v", err)
	}
	if st := e.Preview().Status(); st.State != StateReady {
		t.Errorf("slot did not recover: %+v", st)
	}
}

func TestLoadFailureCodes(t *testing.T) {
	e, w := newTestEngine(t)
	tests := []struct {
		name   string
		source media.ContentSource
		code   string
	}{
		{"device busy", media.Camera("busy"), CodeDeviceBusy},
		{"file access denied", media.MediaFile(filepath.Join(w.dir, "missing.mp4")), CodeResourceAccessDenied},
		{"decode failure", w.clip(t, "bad.mp4"), CodeDecodeFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.LoadToPreview(tt.source)
			var serr *SlotError
			if !errors.As(err, &serr) || serr.Code != tt.code {
				t.Errorf("expected %s, got %v", tt.code, err)
			}
		})
	}
}

func TestDecodeFailureReleasesLease(t *testing.T) {
	e, w := newTestEngine(t)

	if err := e.LoadToPreview(w.clip(t, "bad.mp4")); err == nil {
		t.Fatal("expected decode failure")
	}
	if len(w.openDecoders()) != 0 {
		t.Error("decoder leaked on failed load")
	}
	if st := e.Preview().Status(); st.State != StateError {
		t.Errorf("slot not errored: %+v", st)
	}
}

func TestStudioModeOffRoutesPreviewLoadsToProgram(t *testing.T) {
	e, _ := newTestEngine(t)
	e.SetStudioMode(false)

	if err := e.LoadToPreview(media.Camera("camA")); err != nil {
		t.Fatal(err)
	}
	if src := e.Program().Source(); src.DeviceID != "camA" {
		t.Errorf("load did not route to program: %s", src)
	}
	if !e.Preview().Source().IsNone() {
		t.Error("preview bound despite studio mode off")
	}
}

func TestProcessedFramesReachSlot(t *testing.T) {
	e, w := newTestEngine(t)

	if err := e.LoadToPreview(media.Camera("camA")); err != nil {
		t.Fatal(err)
	}
	w.mu.Lock()
	dev := w.devices[0]
	w.mu.Unlock()

	frame := media.Frame{Seq: 1, Width: 4, Height: 2, PixFmt: "rgba", Data: make([]byte, 32)}
	waitFor(t, 2*time.Second, func() bool {
		dev.emit(frame)
		_, ok := e.Preview().CurrentFrame()
		return ok
	}, "processed frame never reached the slot")

	got, _ := e.Preview().CurrentFrame()
	if got.Width != 4 || got.Texture != nil {
		t.Errorf("unexpected snapshot frame: %+v", got)
	}
}

func TestFramesFollowBindingAcrossTake(t *testing.T) {
	e, w := newTestEngine(t)

	if err := e.LoadToPreview(media.Camera("camA")); err != nil {
		t.Fatal(err)
	}
	w.mu.Lock()
	dev := w.devices[0]
	w.mu.Unlock()

	e.Take()

	frame := media.Frame{Seq: 2, Width: 8, Height: 2, PixFmt: "rgba", Data: make([]byte, 64)}
	waitFor(t, 2*time.Second, func() bool {
		dev.emit(frame)
		got, ok := e.Program().CurrentFrame()
		return ok && got.Width == 8
	}, "frames did not follow the binding to program")
}

func TestEngineStatusSnapshot(t *testing.T) {
	e, _ := newTestEngine(t)

	if err := e.LoadToPreview(media.Camera("camA")); err != nil {
		t.Fatal(err)
	}
	st := e.Status()
	if st.Preview.State != StateReady || st.Program.State != StateEmpty {
		t.Errorf("unexpected status: %+v", st)
	}
	if !st.StudioMode || st.Transitioning {
		t.Errorf("unexpected engine flags: %+v", st)
	}
}

func TestSlotLookup(t *testing.T) {
	e, _ := newTestEngine(t)

	if s, err := e.Slot("Program"); err != nil || s != e.Program() {
		t.Errorf("program lookup failed: %v", err)
	}
	if _, err := e.Slot("aux"); err == nil {
		t.Error("expected error for unknown slot")
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}
