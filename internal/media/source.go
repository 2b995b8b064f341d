package media

import "fmt"

// SourceKind discriminates the ContentSource union.
type SourceKind int

const (
	// SourceNone means the slot is unbound.
	SourceNone SourceKind = iota
	// SourceCamera is a physical capture device.
	SourceCamera
	// SourceMedia is a file on disk (video or still image).
	SourceMedia
	// SourceVirtual is a synthetic generator (test pattern, virtual camera).
	SourceVirtual
)

// ContentSource identifies what backs a slot. Identity is the underlying
// handle (device ID, file path, generator ID), not structural content, so
// loading the same camera twice is detectable as a no-op by the caller.
type ContentSource struct {
	Kind      SourceKind
	DeviceID  string
	FileRef   string
	VirtualID string
}

// None returns the unbound source.
func None() ContentSource { return ContentSource{Kind: SourceNone} }

// Camera returns a source backed by the capture device with the given ID.
func Camera(deviceID string) ContentSource {
	return ContentSource{Kind: SourceCamera, DeviceID: deviceID}
}

// MediaFile returns a source backed by a file on disk.
func MediaFile(path string) ContentSource {
	return ContentSource{Kind: SourceMedia, FileRef: path}
}

// Virtual returns a source backed by a synthetic generator.
func Virtual(id string) ContentSource {
	return ContentSource{Kind: SourceVirtual, VirtualID: id}
}

// IsNone reports whether the source is unbound.
func (s ContentSource) IsNone() bool { return s.Kind == SourceNone }

// Equal compares by handle identity.
func (s ContentSource) Equal(o ContentSource) bool {
	if s.Kind != o.Kind {
		return false
	}
	switch s.Kind {
	case SourceCamera:
		return s.DeviceID == o.DeviceID
	case SourceMedia:
		return s.FileRef == o.FileRef
	case SourceVirtual:
		return s.VirtualID == o.VirtualID
	default:
		return true
	}
}

// Handle returns the identifying handle for the source's kind.
func (s ContentSource) Handle() string {
	switch s.Kind {
	case SourceCamera:
		return s.DeviceID
	case SourceMedia:
		return s.FileRef
	case SourceVirtual:
		return s.VirtualID
	default:
		return ""
	}
}

// String renders a stable descriptor like "camera:cam-01" or "none".
func (s ContentSource) String() string {
	switch s.Kind {
	case SourceCamera:
		return fmt.Sprintf("camera:%s", s.DeviceID)
	case SourceMedia:
		return fmt.Sprintf("media:%s", s.FileRef)
	case SourceVirtual:
		return fmt.Sprintf("virtual:%s", s.VirtualID)
	default:
		return "none"
	}
}
