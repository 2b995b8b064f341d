package devices

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/smazurov/videoswitch/internal/capture"
	"github.com/smazurov/videoswitch/internal/ffmpeg"
	"github.com/smazurov/videoswitch/internal/logging"
	"github.com/smazurov/videoswitch/internal/media"
)

// V4L2Provider enumerates /dev/video* nodes and opens them through an
// ffmpeg rawvideo pipe. Device IDs are the node basenames ("video0").
type V4L2Provider struct {
	devDir string
	width  int
	height int
	fps    float64
	logger logging.Logger
}

// V4L2Config configures capture geometry for opened devices.
type V4L2Config struct {
	DevDir string // defaults to /dev
	Width  int
	Height int
	FPS    float64
}

// NewV4L2Provider creates the provider.
func NewV4L2Provider(cfg V4L2Config) *V4L2Provider {
	if cfg.DevDir == "" {
		cfg.DevDir = "/dev"
	}
	if cfg.Width <= 0 {
		cfg.Width = 1280
	}
	if cfg.Height <= 0 {
		cfg.Height = 720
	}
	if cfg.FPS <= 0 {
		cfg.FPS = media.DefaultFrameRate
	}
	return &V4L2Provider{
		devDir: cfg.DevDir,
		width:  cfg.Width,
		height: cfg.Height,
		fps:    cfg.FPS,
		logger: logging.GetLogger("devices"),
	}
}

// Name implements Provider.
func (p *V4L2Provider) Name() string { return "v4l2" }

// Owns implements Provider.
func (p *V4L2Provider) Owns(deviceID string) bool {
	return strings.HasPrefix(deviceID, "video")
}

// Enumerate implements Provider.
func (p *V4L2Provider) Enumerate() ([]DeviceInfo, error) {
	matches, err := filepath.Glob(filepath.Join(p.devDir, "video*"))
	if err != nil {
		return nil, err
	}
	infos := make([]DeviceInfo, 0, len(matches))
	for _, path := range matches {
		id := filepath.Base(path)
		infos = append(infos, DeviceInfo{
			ID:       id,
			Path:     path,
			Name:     fmt.Sprintf("V4L2 device %s", id),
			Provider: p.Name(),
		})
	}
	return infos, nil
}

// Open implements Provider.
func (p *V4L2Provider) Open(deviceID string) (capture.Device, error) {
	path := filepath.Join(p.devDir, deviceID)
	fi, err := os.Stat(path)
	if err != nil {
		return nil, capture.NewError(capture.CodeDeviceNotFound,
			fmt.Sprintf("device %s does not exist", path), err)
	}
	// An exclusive open probe catches a device held by another process
	// before we hand it to a session.
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		if errors.Is(err, syscall.EBUSY) {
			return nil, capture.NewError(capture.CodeDeviceBusy,
				fmt.Sprintf("device %s is in use", path), err)
		}
		return nil, capture.NewError(capture.CodeCannotAttachInput,
			fmt.Sprintf("cannot open device %s", path), err)
	}
	_ = f.Close()
	_ = fi

	return &ffmpegDevice{
		id:     deviceID,
		path:   path,
		width:  p.width,
		height: p.height,
		fps:    p.fps,
		logger: p.logger,
	}, nil
}

// ffmpegDevice captures from a V4L2 node by reading packed frames off an
// ffmpeg subprocess pipe.
type ffmpegDevice struct {
	id     string
	path   string
	width  int
	height int
	fps    float64
	logger logging.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

func (d *ffmpegDevice) ID() string { return d.id }

func (d *ffmpegDevice) Start(ctx context.Context, sink func(media.Frame)) error {
	argv := ffmpeg.BuildCaptureCommand(ffmpeg.CaptureParams{
		DevicePath: d.path,
		Width:      d.width,
		Height:     d.height,
		FPS:        d.fps,
	})

	ctx, d.cancel = context.WithCancel(ctx)
	d.done = make(chan struct{})

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		close(d.done)
		return capture.NewError(capture.CodeCannotAttachOutput, "capture pipe failed", err)
	}
	if err := cmd.Start(); err != nil {
		close(d.done)
		return capture.NewError(capture.CodeCannotAttachInput, "capture process failed to start", err)
	}

	go d.readLoop(ctx, cmd, stdout, sink)
	return nil
}

func (d *ffmpegDevice) readLoop(ctx context.Context, cmd *exec.Cmd, stdout io.Reader, sink func(media.Frame)) {
	defer close(d.done)
	defer func() { _ = cmd.Wait() }()

	frameSize := ffmpeg.FrameSize(d.width, d.height, "rgba")
	buf := make([]byte, frameSize)
	var seq uint64

	for {
		if _, err := io.ReadFull(stdout, buf); err != nil {
			if ctx.Err() == nil {
				d.logger.Warn("capture read ended", "device_id", d.id, "error", err)
			}
			return
		}
		seq++
		data := make([]byte, frameSize)
		copy(data, buf)
		sink(media.Frame{
			Seq:      seq,
			PTS:      time.Duration(float64(seq) * float64(time.Second) / d.fps),
			Width:    d.width,
			Height:   d.height,
			PixFmt:   "rgba",
			Data:     data,
			Captured: time.Now(),
		})
	}
}

// Close stops the subprocess and waits for the reader to exit, so the sink
// is never invoked after Close returns.
func (d *ffmpegDevice) Close() error {
	if d.cancel == nil {
		return nil
	}
	d.cancel()
	<-d.done
	return nil
}
