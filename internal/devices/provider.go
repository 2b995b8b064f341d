package devices

import (
	"time"

	"github.com/smazurov/videoswitch/internal/capture"
)

// DeviceInfo describes an enumerable capture device.
type DeviceInfo struct {
	ID       string `json:"id"`
	Path     string `json:"path,omitempty"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
}

// Stats summarizes one discovery pass.
type Stats struct {
	Total       int       `json:"total"`
	FromCache   bool      `json:"from_cache"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

// Provider enumerates and opens a family of capture devices. Open failures
// use the capture error codes so they surface to slots unchanged.
type Provider interface {
	Name() string
	// Enumerate lists currently available devices.
	Enumerate() ([]DeviceInfo, error)
	// Owns reports whether a device ID belongs to this provider.
	Owns(deviceID string) bool
	// Open prepares a device for capture without starting delivery.
	Open(deviceID string) (capture.Device, error)
}
