// Package devices discovers capture devices across providers and hands out
// capture sessions bound to them.
package devices

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/smazurov/videoswitch/internal/capture"
	"github.com/smazurov/videoswitch/internal/events"
	"github.com/smazurov/videoswitch/internal/logging"
)

// cacheTTL bounds how long a discovery result is served without touching
// the providers again.
const cacheTTL = 5 * time.Second

// Manager aggregates providers, caches discovery, and watches for hotplug.
type Manager struct {
	providers []Provider
	bus       *events.Bus
	logger    logging.Logger
	devDir    string

	mu        sync.Mutex
	cache     []DeviceInfo
	cachedAt  time.Time
	watcher   *fsnotify.Watcher
	watchDone chan struct{}
}

// NewManager creates a manager over the given providers. Provider order is
// lookup order for Open.
func NewManager(bus *events.Bus, devDir string, providers ...Provider) *Manager {
	if devDir == "" {
		devDir = "/dev"
	}
	return &Manager{
		providers: providers,
		bus:       bus,
		logger:    logging.GetLogger("devices"),
		devDir:    devDir,
	}
}

// Discover enumerates all providers. Results are cached briefly; pass
// forceRefresh to bypass the cache.
func (m *Manager) Discover(forceRefresh bool) ([]DeviceInfo, Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !forceRefresh && m.cache != nil && time.Since(m.cachedAt) < cacheTTL {
		return m.cache, Stats{Total: len(m.cache), FromCache: true, RefreshedAt: m.cachedAt}, nil
	}

	var all []DeviceInfo
	for _, p := range m.providers {
		infos, err := p.Enumerate()
		if err != nil {
			m.logger.Warn("provider enumeration failed", "provider", p.Name(), "error", err)
			continue
		}
		all = append(all, infos...)
	}

	m.cache = all
	m.cachedAt = time.Now()
	return all, Stats{Total: len(all), RefreshedAt: m.cachedAt}, nil
}

// CreateCaptureSession returns a session whose opener resolves devices
// through this manager. The caller owns the session's lifecycle.
func (m *Manager) CreateCaptureSession() *capture.Session {
	return capture.NewSession(m.open)
}

// open finds the owning provider for a device ID.
func (m *Manager) open(deviceID string) (capture.Device, error) {
	for _, p := range m.providers {
		if p.Owns(deviceID) {
			return p.Open(deviceID)
		}
	}
	return nil, capture.NewError(capture.CodeDeviceNotFound,
		fmt.Sprintf("no provider owns device %s", deviceID), nil)
}

// StartMonitoring watches the device directory for video node hotplug and
// publishes DeviceChangeEvent on the bus. Monitoring runs until ctx is
// cancelled or StopMonitoring is called.
func (m *Manager) StartMonitoring(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(m.devDir); err != nil {
		_ = watcher.Close()
		return err
	}

	m.mu.Lock()
	m.watcher = watcher
	m.watchDone = make(chan struct{})
	done := m.watchDone
	m.mu.Unlock()

	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				m.handleFsEvent(ev)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				m.logger.Warn("device watch error", "error", err)
			}
		}
	}()
	return nil
}

// StopMonitoring stops the hotplug watcher and waits for its goroutine.
func (m *Manager) StopMonitoring() {
	m.mu.Lock()
	watcher := m.watcher
	done := m.watchDone
	m.watcher = nil
	m.watchDone = nil
	m.mu.Unlock()

	if watcher == nil {
		return
	}
	_ = watcher.Close()
	<-done
}

func (m *Manager) handleFsEvent(ev fsnotify.Event) {
	base := filepath.Base(ev.Name)
	if !strings.HasPrefix(base, "video") {
		return
	}

	var action string
	switch {
	case ev.Op.Has(fsnotify.Create):
		action = "added"
	case ev.Op.Has(fsnotify.Remove):
		action = "removed"
	case ev.Op.Has(fsnotify.Chmod), ev.Op.Has(fsnotify.Write):
		action = "changed"
	default:
		return
	}

	// Invalidate the discovery cache so the next Discover sees the change.
	m.mu.Lock()
	m.cache = nil
	m.mu.Unlock()

	m.logger.Info("device hotplug", "device", base, "action", action)
	m.bus.Publish(events.DeviceChangeEvent{
		DeviceID:   base,
		DevicePath: ev.Name,
		Action:     action,
		Timestamp:  time.Now().Format(time.RFC3339),
	})
}
