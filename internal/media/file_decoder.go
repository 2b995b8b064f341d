package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/smazurov/videoswitch/internal/ffmpeg"
	"github.com/smazurov/videoswitch/internal/logging"
)

// FileDecoder plays a media file by spawning ffmpeg in rawvideo-over-pipe
// mode. Transport operations that move the playhead (seek, rate change)
// restart the subprocess at the new offset; pause kills it and freezes the
// clock. The slot owns the file lease; the decoder only reads the path.
type FileDecoder struct {
	path     string
	width    int
	height   int
	fps      float64
	pixfmt   string
	duration time.Duration

	clock  *Clock
	frames chan Frame
	logger logging.Logger

	mu     sync.Mutex // guards proc and closed (transport control)
	proc   *decodeProc
	closed bool

	// cbMu guards fields the reader goroutine touches; the reader never
	// takes mu, so killLocked can wait for it while holding mu.
	cbMu   sync.Mutex
	onEnd  func()
	volume float64
	muted  bool

	seq atomic.Uint64
}

// decodeProc tracks one running ffmpeg subprocess.
type decodeProc struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// FileDecoderConfig configures the decode geometry.
type FileDecoderConfig struct {
	Width  int
	Height int
	FPS    float64
	PixFmt string
}

// NewFileDecoder probes the file's duration and returns a paused decoder at
// position zero. A probe failure means the file is not decodable.
func NewFileDecoder(path string, cfg FileDecoderConfig) (*FileDecoder, error) {
	if cfg.Width <= 0 {
		cfg.Width = 1280
	}
	if cfg.Height <= 0 {
		cfg.Height = 720
	}
	if cfg.FPS <= 0 {
		cfg.FPS = DefaultFrameRate
	}
	if cfg.PixFmt == "" {
		cfg.PixFmt = "rgba"
	}

	duration, err := probeDuration(path)
	if err != nil {
		return nil, err
	}

	return &FileDecoder{
		path:     path,
		width:    cfg.Width,
		height:   cfg.Height,
		fps:      cfg.FPS,
		pixfmt:   cfg.PixFmt,
		duration: duration,
		clock:    NewClock(),
		frames:   make(chan Frame, 1),
		logger:   logging.GetLogger("media"),
		volume:   1.0,
	}, nil
}

func probeDuration(path string) (time.Duration, error) {
	argv := ffmpeg.BuildProbeCommand(path)
	out, err := exec.Command(argv[0], argv[1:]...).Output()
	if err != nil {
		return 0, fmt.Errorf("probe failed for %s: %w", path, err)
	}
	return ffmpeg.ParseProbeDuration(string(out))
}

// Duration implements Decoder.
func (d *FileDecoder) Duration() time.Duration { return d.duration }

// Live implements Decoder.
func (d *FileDecoder) Live() bool { return false }

// Frames implements Decoder.
func (d *FileDecoder) Frames() <-chan Frame { return d.frames }

// CurrentTime implements Decoder.
func (d *FileDecoder) CurrentTime() time.Duration {
	t := d.clock.Now()
	if t > d.duration {
		return d.duration
	}
	return t
}

// Playing implements Decoder.
func (d *FileDecoder) Playing() bool { return d.clock.Running() }

// Play implements Decoder.
func (d *FileDecoder) Play() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || d.clock.Running() {
		return
	}
	d.clock.Start()
	d.spawnLocked(d.clock.Now())
}

// Pause implements Decoder.
func (d *FileDecoder) Pause() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clock.Stop()
	d.killLocked()
}

// Seek implements Decoder. The subprocess is restarted at the new offset;
// the call returns once the old process has fully terminated, so a caller
// that immediately rebinds cannot race a stale reader.
func (d *FileDecoder) Seek(ctx context.Context, pos time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if pos < 0 {
		pos = 0
	}
	if pos > d.duration {
		pos = d.duration
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.killLocked()
	d.clock.SeekTo(pos)
	if d.clock.Running() {
		d.spawnLocked(pos)
	}
	return nil
}

// SetRate implements Decoder.
func (d *FileDecoder) SetRate(rate float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clock.SetRate(rate)
	if d.clock.Running() && !d.closed {
		d.killLocked()
		d.spawnLocked(d.clock.Now())
	}
}

// SetVolume implements Decoder.
func (d *FileDecoder) SetVolume(volume float64) {
	d.cbMu.Lock()
	d.volume = volume
	d.cbMu.Unlock()
}

// SetMuted implements Decoder.
func (d *FileDecoder) SetMuted(muted bool) {
	d.cbMu.Lock()
	d.muted = muted
	d.cbMu.Unlock()
}

// OnEnd implements Decoder.
func (d *FileDecoder) OnEnd(fn func()) {
	d.cbMu.Lock()
	d.onEnd = fn
	d.cbMu.Unlock()
}

// Close implements Decoder.
func (d *FileDecoder) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	d.killLocked()
	close(d.frames)
	return nil
}

// spawnLocked starts an ffmpeg subprocess decoding from pos. Caller holds mu.
func (d *FileDecoder) spawnLocked(pos time.Duration) {
	argv := ffmpeg.BuildDecodeCommand(ffmpeg.DecodeParams{
		InputPath: d.path,
		Start:     pos,
		Width:     d.width,
		Height:    d.height,
		FPS:       d.fps,
		PixFmt:    d.pixfmt,
		Rate:      d.clock.Rate(),
		Realtime:  true,
	})

	ctx, cancel := context.WithCancel(context.Background())
	proc := &decodeProc{cancel: cancel, done: make(chan struct{})}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		close(proc.done)
		d.logger.Error("decode pipe failed", "path", d.path, "error", err)
		return
	}
	if err := cmd.Start(); err != nil {
		cancel()
		close(proc.done)
		d.logger.Error("decode start failed", "path", d.path, "error", err)
		return
	}

	d.proc = proc
	go d.readLoop(ctx, proc, cmd, stdout)
}

// killLocked stops the running subprocess and waits for its reader to exit.
// Caller holds mu; the reader never takes mu, so this cannot deadlock.
func (d *FileDecoder) killLocked() {
	if d.proc == nil {
		return
	}
	d.proc.cancel()
	<-d.proc.done
	d.proc = nil
}

func (d *FileDecoder) readLoop(ctx context.Context, proc *decodeProc, cmd *exec.Cmd, stdout io.Reader) {
	defer close(proc.done)
	defer func() { _ = cmd.Wait() }()

	frameSize := ffmpeg.FrameSize(d.width, d.height, d.pixfmt)
	buf := make([]byte, frameSize)

	for {
		if _, err := io.ReadFull(stdout, buf); err != nil {
			if ctx.Err() != nil {
				return // cancelled, not end-of-media
			}
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				d.handleEnd()
				return
			}
			d.logger.Warn("decode read failed", "path", d.path, "error", err)
			return
		}

		data := make([]byte, frameSize)
		copy(data, buf)

		f := Frame{
			Seq:      d.seq.Add(1),
			PTS:      d.CurrentTime(),
			Width:    d.width,
			Height:   d.height,
			PixFmt:   d.pixfmt,
			Data:     data,
			Captured: time.Now(),
		}

		select {
		case <-ctx.Done():
			return
		case d.frames <- f:
		default:
			select {
			case <-d.frames:
			default:
			}
			select {
			case d.frames <- f:
			case <-ctx.Done():
				return
			}
		}
	}
}

// handleEnd pins the playhead to the timeline end, pauses, and notifies.
// Runs on the reader goroutine, so it must not take mu.
func (d *FileDecoder) handleEnd() {
	d.clock.SeekTo(d.duration)
	d.clock.Stop()
	d.cbMu.Lock()
	fn := d.onEnd
	d.cbMu.Unlock()
	if fn != nil {
		fn()
	}
}
