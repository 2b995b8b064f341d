package devices

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/smazurov/videoswitch/internal/capture"
	"github.com/smazurov/videoswitch/internal/media"
)

// SyntheticProvider serves virtual cameras: procedurally generated live
// sources addressed as "virtual-<name>". Always available, used for test
// patterns and as the backing for ContentSource.Virtual bindings.
type SyntheticProvider struct {
	width  int
	height int
	fps    float64

	mu    sync.Mutex
	names []string
}

// NewSyntheticProvider creates a provider serving the named generators.
func NewSyntheticProvider(names []string, width, height int, fps float64) *SyntheticProvider {
	if len(names) == 0 {
		names = []string{"bars", "gradient"}
	}
	return &SyntheticProvider{width: width, height: height, fps: fps, names: names}
}

// Name implements Provider.
func (p *SyntheticProvider) Name() string { return "synthetic" }

// Owns implements Provider.
func (p *SyntheticProvider) Owns(deviceID string) bool {
	return strings.HasPrefix(deviceID, "virtual-")
}

// Enumerate implements Provider.
func (p *SyntheticProvider) Enumerate() ([]DeviceInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	infos := make([]DeviceInfo, 0, len(p.names))
	for _, name := range p.names {
		infos = append(infos, DeviceInfo{
			ID:       "virtual-" + name,
			Name:     fmt.Sprintf("Virtual camera (%s)", name),
			Provider: p.Name(),
		})
	}
	return infos, nil
}

// Open implements Provider.
func (p *SyntheticProvider) Open(deviceID string) (capture.Device, error) {
	if !p.Owns(deviceID) {
		return nil, capture.NewError(capture.CodeDeviceNotFound,
			fmt.Sprintf("unknown virtual device %s", deviceID), nil)
	}
	return &syntheticDevice{
		id:     deviceID,
		width:  p.width,
		height: p.height,
		fps:    p.fps,
	}, nil
}

// syntheticDevice adapts a live SyntheticDecoder to the capture.Device
// contract.
type syntheticDevice struct {
	id     string
	width  int
	height int
	fps    float64

	decoder *media.SyntheticDecoder
	done    chan struct{}
}

func (d *syntheticDevice) ID() string { return d.id }

func (d *syntheticDevice) Start(ctx context.Context, sink func(media.Frame)) error {
	d.decoder = media.NewSyntheticDecoder(media.SyntheticConfig{
		ID:     d.id,
		Width:  d.width,
		Height: d.height,
		FPS:    d.fps,
	})
	d.done = make(chan struct{})
	go func() {
		defer close(d.done)
		for {
			select {
			case <-ctx.Done():
				return
			case f, ok := <-d.decoder.Frames():
				if !ok {
					return
				}
				sink(f)
			}
		}
	}()
	return nil
}

func (d *syntheticDevice) Close() error {
	if d.decoder == nil {
		return nil
	}
	err := d.decoder.Close()
	<-d.done
	return err
}
