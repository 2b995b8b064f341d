// Package capture owns the lifecycle of one physical capture device and
// exposes its frames as a cancellable stream.
package capture

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/smazurov/videoswitch/internal/logging"
	"github.com/smazurov/videoswitch/internal/media"
)

// streamDepth bounds the frame stream. The producer never blocks on a slow
// consumer: when full, the oldest buffered frame is dropped.
const streamDepth = 4

// Device is an opened capture device. Start begins push delivery into the
// sink from the device's own goroutine; after Close returns the sink is
// guaranteed not to be invoked again.
type Device interface {
	ID() string
	Start(ctx context.Context, sink func(media.Frame)) error
	Close() error
}

// Opener resolves a device ID to an opened Device. Implementations map
// their failures onto the capture error codes.
type Opener func(deviceID string) (Device, error)

// Session owns at most one open device at a time and republishes its frames.
// Start implicitly stops any prior device owned by the same session; Stop is
// terminal and finalizes the frame stream.
type Session struct {
	id     string
	opener Opener
	logger logging.Logger

	mu       sync.Mutex
	device   Device
	deviceID string
	cancel   context.CancelFunc
	running  bool
	stopped  bool

	frames  chan media.Frame
	dropped atomic.Uint64
}

// NewSession creates an idle session.
func NewSession(opener Opener) *Session {
	return &Session{
		id:     uuid.NewString(),
		opener: opener,
		logger: logging.GetLogger("capture"),
		frames: make(chan media.Frame, streamDepth),
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// Frames returns the session's frame stream. Idempotent: every call returns
// the same stream, including before Start. The stream is closed by Stop.
func (s *Session) Frames() <-chan media.Frame { return s.frames }

// Running reports whether a device is currently open.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// DeviceID returns the open device's ID, empty when idle.
func (s *Session) DeviceID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deviceID
}

// Dropped returns the number of frames discarded due to a slow consumer.
func (s *Session) Dropped() uint64 {
	return s.dropped.Load()
}

// Start opens the device and begins frame delivery. Any device already open
// on this session is torn down first, so the session never holds two device
// handles. isRunning flips only after the output is attached.
func (s *Session) Start(deviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return NewError(CodeSessionStopped, "session has been stopped", nil)
	}
	s.teardownLocked()

	device, err := s.opener(deviceID)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := device.Start(ctx, s.deliver); err != nil {
		cancel()
		_ = device.Close()
		var cerr *Error
		if errors.As(err, &cerr) {
			return err
		}
		return NewError(CodeCannotAttachOutput, "failed to attach frame output", err)
	}

	s.device = device
	s.deviceID = deviceID
	s.cancel = cancel
	s.running = true
	s.logger.Info("capture session started", "session_id", s.id, "device_id", deviceID)
	return nil
}

// Stop tears down the device and finalizes the frame stream. Synchronous:
// when it returns, no further frames will be delivered and the device is
// released. Safe to call repeatedly.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.teardownLocked()
	s.stopped = true
	close(s.frames)
	s.logger.Info("capture session stopped", "session_id", s.id)
}

// teardownLocked releases the open device, if any. Caller holds mu. Device
// Close is synchronous, so after it returns deliver will not run again.
func (s *Session) teardownLocked() {
	if !s.running {
		return
	}
	s.cancel()
	if err := s.device.Close(); err != nil {
		s.logger.Warn("device close failed", "device_id", s.deviceID, "error", err)
	}
	s.device = nil
	s.deviceID = ""
	s.cancel = nil
	s.running = false
}

// deliver pushes a frame into the stream without ever blocking the device
// callback: when the buffer is full the oldest frame is evicted. Runs on
// the device's goroutine and takes no locks; Stop closes the stream only
// after the device's Close has returned, so no send can race the close.
func (s *Session) deliver(f media.Frame) {
	for {
		select {
		case s.frames <- f:
			return
		default:
			select {
			case <-s.frames:
				s.dropped.Add(1)
			default:
			}
		}
	}
}
