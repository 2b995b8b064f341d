package media

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// imageExtensions are the file suffixes routed to the still-image decoder.
var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
}

// IsImagePath reports whether the path looks like a still image.
func IsImagePath(path string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(path))]
}

// ImageDecoder serves a still image as a one-frame source. Duration is zero
// and the transport never plays; Play, Pause, Seek and rate changes are all
// no-ops. The single frame is delivered once on creation and re-delivered
// on Seek so a consumer attached late still receives it.
type ImageDecoder struct {
	path   string
	frame  Frame
	frames chan Frame

	mu     sync.Mutex
	onEnd  func()
	closed bool
}

// NewImageDecoder decodes the image into an RGBA frame.
func NewImageDecoder(path string) (*ImageDecoder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("image decode failed for %s: %w", path, err)
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)

	d := &ImageDecoder{
		path: path,
		frame: Frame{
			Seq:      1,
			Width:    bounds.Dx(),
			Height:   bounds.Dy(),
			PixFmt:   "rgba",
			Data:     rgba.Pix,
			Captured: time.Now(),
		},
		frames: make(chan Frame, 1),
	}
	d.frames <- d.frame
	return d, nil
}

// Duration implements Decoder. Stills have no timeline.
func (d *ImageDecoder) Duration() time.Duration { return 0 }

// Live implements Decoder.
func (d *ImageDecoder) Live() bool { return false }

// Frames implements Decoder.
func (d *ImageDecoder) Frames() <-chan Frame { return d.frames }

// CurrentTime implements Decoder.
func (d *ImageDecoder) CurrentTime() time.Duration { return 0 }

// Playing implements Decoder. Stills never play.
func (d *ImageDecoder) Playing() bool { return false }

// Play implements Decoder. No-op for stills.
func (d *ImageDecoder) Play() {}

// Pause implements Decoder.
func (d *ImageDecoder) Pause() {}

// Seek implements Decoder. Re-delivers the frame.
func (d *ImageDecoder) Seek(ctx context.Context, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	select {
	case d.frames <- d.frame:
	default:
	}
	return nil
}

// SetRate implements Decoder.
func (d *ImageDecoder) SetRate(float64) {}

// SetVolume implements Decoder.
func (d *ImageDecoder) SetVolume(float64) {}

// SetMuted implements Decoder.
func (d *ImageDecoder) SetMuted(bool) {}

// OnEnd implements Decoder. Never fires for stills.
func (d *ImageDecoder) OnEnd(fn func()) {
	d.mu.Lock()
	d.onEnd = fn
	d.mu.Unlock()
}

// Close implements Decoder.
func (d *ImageDecoder) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	// Drain the undelivered frame, if any, before closing.
	select {
	case <-d.frames:
	default:
	}
	close(d.frames)
	return nil
}
