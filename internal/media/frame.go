package media

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Frame is one video frame moving through the pipeline. Data holds packed
// pixels in PixFmt; Texture is the GPU-side handle once the frame has been
// uploaded by a processing pipeline.
type Frame struct {
	Seq      uint64
	PTS      time.Duration
	Width    int
	Height   int
	PixFmt   string
	Data     []byte
	Texture  *Texture
	Captured time.Time
}

// Texture is an opaque handle to a GPU-resident surface. Exactly one owner
// holds it at a time; Release frees the underlying resource and reports
// whether this call actually freed it, so double-free bugs surface in tests
// instead of corrupting memory.
type Texture struct {
	id       string
	width    int
	height   int
	released atomic.Bool
}

// NewTexture allocates a texture handle.
func NewTexture(width, height int) *Texture {
	return &Texture{
		id:     uuid.NewString(),
		width:  width,
		height: height,
	}
}

// ID returns the texture's unique identifier.
func (t *Texture) ID() string { return t.id }

// Size returns the texture dimensions.
func (t *Texture) Size() (int, int) { return t.width, t.height }

// Release frees the texture. Returns false if it was already released.
func (t *Texture) Release() bool {
	return t.released.CompareAndSwap(false, true)
}

// Released reports whether the texture has been freed.
func (t *Texture) Released() bool { return t.released.Load() }

// Clone returns a deep copy of the frame's pixel data. The texture handle is
// not cloned; the copy starts without one.
func (f Frame) Clone() Frame {
	out := f
	out.Texture = nil
	if f.Data != nil {
		out.Data = make([]byte, len(f.Data))
		copy(out.Data, f.Data)
	}
	return out
}
