package media

import (
	"context"
	"time"
)

// DefaultFrameRate is the nominal frame rate assumed for step operations
// and synthetic generation when the container does not declare one.
const DefaultFrameRate = 30.0

// Decoder is the transport-controllable frame producer backing a media or
// virtual source. It is the file-side equivalent of a capture session: the
// slot that created it is its only owner and must Close it before binding
// a replacement.
//
// Frames delivery is newest-wins: a slow consumer observes dropped frames,
// never a blocked decoder.
type Decoder interface {
	// Duration returns the media length, 0 for live sources and stills.
	Duration() time.Duration
	// Live reports whether the source has no fixed timeline.
	Live() bool
	// Frames returns the output stream. Closed after Close returns.
	Frames() <-chan Frame
	// CurrentTime returns the playhead position.
	CurrentTime() time.Duration
	// Playing reports whether the playhead is advancing.
	Playing() bool

	Play()
	Pause()
	// Seek moves the playhead and returns once the decoder has settled at
	// the new position. Cancellation via ctx is not an error for the slot.
	Seek(ctx context.Context, pos time.Duration) error
	SetRate(rate float64)
	SetVolume(volume float64)
	SetMuted(muted bool)

	// OnEnd registers the end-of-media callback. The decoder pauses at the
	// end of the timeline before invoking it; loop policy is the caller's.
	OnEnd(fn func())

	// Close tears the decoder down synchronously: after it returns the
	// frame stream is closed and all resources are released.
	Close() error
}
