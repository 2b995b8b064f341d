package media

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// SyntheticDecoder generates frames procedurally. It backs virtual camera
// sources and doubles as the deterministic decoder used in tests. With a
// zero duration it behaves as a live source; with a positive duration it
// follows the full media transport contract including end-of-media.
type SyntheticDecoder struct {
	id       string
	width    int
	height   int
	fps      float64
	duration time.Duration

	clock  *Clock
	frames chan Frame
	seq    atomic.Uint64

	mu     sync.Mutex
	onEnd  func()
	volume float64
	muted  bool
	ended  bool

	cancel    context.CancelFunc
	loopDone  chan struct{}
	closeOnce sync.Once
}

// SyntheticConfig configures a SyntheticDecoder.
type SyntheticConfig struct {
	ID       string
	Width    int
	Height   int
	FPS      float64
	Duration time.Duration // 0 for a live generator
}

// NewSyntheticDecoder starts the generator loop. Live generators begin
// producing immediately; timed ones start paused at position zero.
func NewSyntheticDecoder(cfg SyntheticConfig) *SyntheticDecoder {
	if cfg.Width <= 0 {
		cfg.Width = 320
	}
	if cfg.Height <= 0 {
		cfg.Height = 180
	}
	if cfg.FPS <= 0 {
		cfg.FPS = DefaultFrameRate
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &SyntheticDecoder{
		id:       cfg.ID,
		width:    cfg.Width,
		height:   cfg.Height,
		fps:      cfg.FPS,
		duration: cfg.Duration,
		clock:    NewClock(),
		frames:   make(chan Frame, 1),
		volume:   1.0,
		cancel:   cancel,
		loopDone: make(chan struct{}),
	}
	if d.Live() {
		d.clock.Start()
	}
	go d.generateLoop(ctx)
	return d
}

// Duration implements Decoder.
func (d *SyntheticDecoder) Duration() time.Duration { return d.duration }

// Live implements Decoder.
func (d *SyntheticDecoder) Live() bool { return d.duration == 0 }

// Frames implements Decoder.
func (d *SyntheticDecoder) Frames() <-chan Frame { return d.frames }

// CurrentTime implements Decoder.
func (d *SyntheticDecoder) CurrentTime() time.Duration {
	t := d.clock.Now()
	if !d.Live() && t > d.duration {
		return d.duration
	}
	return t
}

// Playing implements Decoder.
func (d *SyntheticDecoder) Playing() bool { return d.clock.Running() }

// Play implements Decoder.
func (d *SyntheticDecoder) Play() {
	d.mu.Lock()
	d.ended = false
	d.mu.Unlock()
	d.clock.Start()
}

// Pause implements Decoder.
func (d *SyntheticDecoder) Pause() { d.clock.Stop() }

// Seek implements Decoder. Synthetic generation settles instantly; a frame
// at the new position is pushed so a paused consumer still refreshes.
func (d *SyntheticDecoder) Seek(ctx context.Context, pos time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !d.Live() && pos > d.duration {
		pos = d.duration
	}
	if pos < 0 {
		pos = 0
	}
	d.mu.Lock()
	d.ended = false
	d.mu.Unlock()
	d.clock.SeekTo(pos)
	d.push(d.render(pos))
	return nil
}

// SetRate implements Decoder.
func (d *SyntheticDecoder) SetRate(rate float64) { d.clock.SetRate(rate) }

// SetVolume implements Decoder.
func (d *SyntheticDecoder) SetVolume(volume float64) {
	d.mu.Lock()
	d.volume = volume
	d.mu.Unlock()
}

// SetMuted implements Decoder.
func (d *SyntheticDecoder) SetMuted(muted bool) {
	d.mu.Lock()
	d.muted = muted
	d.mu.Unlock()
}

// OnEnd implements Decoder.
func (d *SyntheticDecoder) OnEnd(fn func()) {
	d.mu.Lock()
	d.onEnd = fn
	d.mu.Unlock()
}

// Close implements Decoder. Synchronous: the generator loop has exited and
// the frame stream is closed when it returns.
func (d *SyntheticDecoder) Close() error {
	d.closeOnce.Do(func() {
		d.cancel()
		<-d.loopDone
		close(d.frames)
	})
	return nil
}

func (d *SyntheticDecoder) generateLoop(ctx context.Context) {
	defer close(d.loopDone)

	interval := time.Duration(float64(time.Second) / d.fps)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if !d.clock.Running() {
			continue
		}

		pos := d.clock.Now()
		if !d.Live() && pos >= d.duration {
			d.clock.SeekTo(d.duration)
			d.clock.Stop()
			d.fireEnd()
			continue
		}
		d.push(d.render(pos))
	}
}

// fireEnd invokes the end callback once per end-of-media arrival.
func (d *SyntheticDecoder) fireEnd() {
	d.mu.Lock()
	if d.ended {
		d.mu.Unlock()
		return
	}
	d.ended = true
	fn := d.onEnd
	d.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// push delivers newest-wins: an unconsumed older frame is evicted rather
// than blocking the generator.
func (d *SyntheticDecoder) push(f Frame) {
	for {
		select {
		case d.frames <- f:
			return
		default:
			select {
			case <-d.frames:
			default:
			}
		}
	}
}

// render produces a solid-color gradient frame keyed by position, cheap
// enough to run at full rate in tests.
func (d *SyntheticDecoder) render(pos time.Duration) Frame {
	data := make([]byte, d.width*d.height*4)
	shade := byte((pos / time.Millisecond) % 251)
	for i := 0; i < len(data); i += 4 {
		data[i] = shade
		data[i+1] = byte(len(d.id) * 13)
		data[i+2] = 0x80
		data[i+3] = 0xff
	}
	return Frame{
		Seq:      d.seq.Add(1),
		PTS:      pos,
		Width:    d.width,
		Height:   d.height,
		PixFmt:   "rgba",
		Data:     data,
		Captured: time.Now(),
	}
}
