// Package ffmpeg builds the external commands used to decode media files
// into raw frames and to probe container metadata.
package ffmpeg

import (
	"fmt"
	"strings"
	"time"
)

// DecodeParams describes a rawvideo decode session: ffmpeg reads the input
// file and writes packed frames to stdout, one fixed-size buffer per frame.
type DecodeParams struct {
	InputPath string
	Start     time.Duration // seek offset, 0 to decode from the beginning
	Width     int
	Height    int
	FPS       float64
	PixFmt    string  // output pixel format, defaults to rgba
	Rate      float64 // playback rate, 1.0 for native
	Realtime  bool    // pace output at native frame rate (-re)
}

// BuildDecodeCommand renders the ffmpeg argv for a decode session.
func BuildDecodeCommand(p DecodeParams) []string {
	pixfmt := p.PixFmt
	if pixfmt == "" {
		pixfmt = "rgba"
	}

	args := []string{"ffmpeg", "-hide_banner", "-loglevel", "error", "-nostdin"}
	if p.Realtime {
		args = append(args, "-re")
	}
	if p.Start > 0 {
		// Input-side seek: keyframe-fast, accurate enough for transport seeks.
		args = append(args, "-ss", formatSeconds(p.Start))
	}
	args = append(args, "-i", p.InputPath)

	var filters []string
	if p.Width > 0 && p.Height > 0 {
		filters = append(filters, fmt.Sprintf("scale=%d:%d", p.Width, p.Height))
	}
	if p.FPS > 0 {
		filters = append(filters, fmt.Sprintf("fps=%g", p.FPS))
	}
	if p.Rate > 0 && p.Rate != 1.0 {
		filters = append(filters, fmt.Sprintf("setpts=PTS/%g", p.Rate))
	}
	if len(filters) > 0 {
		args = append(args, "-vf", strings.Join(filters, ","))
	}

	args = append(args,
		"-f", "rawvideo",
		"-pix_fmt", pixfmt,
		"-an",
		"pipe:1",
	)
	return args
}

// CaptureParams describes a live device capture session: ffmpeg reads from
// a V4L2 device node and writes packed frames to stdout.
type CaptureParams struct {
	DevicePath  string
	InputFormat string // yuyv422, mjpeg, etc.
	Width       int
	Height      int
	FPS         float64
	PixFmt      string // output pixel format, defaults to rgba
}

// BuildCaptureCommand renders the ffmpeg argv for a live capture session.
func BuildCaptureCommand(p CaptureParams) []string {
	pixfmt := p.PixFmt
	if pixfmt == "" {
		pixfmt = "rgba"
	}

	args := []string{"ffmpeg", "-hide_banner", "-loglevel", "error", "-nostdin"}
	args = append(args, "-f", "v4l2")
	if p.InputFormat != "" {
		args = append(args, "-input_format", p.InputFormat)
	}
	if p.Width > 0 && p.Height > 0 {
		args = append(args, "-video_size", fmt.Sprintf("%dx%d", p.Width, p.Height))
	}
	if p.FPS > 0 {
		args = append(args, "-framerate", fmt.Sprintf("%g", p.FPS))
	}
	args = append(args, "-i", p.DevicePath)

	if p.Width > 0 && p.Height > 0 {
		args = append(args, "-vf", fmt.Sprintf("scale=%d:%d", p.Width, p.Height))
	}

	args = append(args,
		"-f", "rawvideo",
		"-pix_fmt", pixfmt,
		"-an",
		"pipe:1",
	)
	return args
}

// BuildProbeCommand renders the ffprobe argv that prints the container
// duration in seconds on stdout.
func BuildProbeCommand(inputPath string) []string {
	return []string{
		"ffprobe", "-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		inputPath,
	}
}

// ParseProbeDuration converts ffprobe duration output to a time.Duration.
// Stills and containers without a duration report "N/A".
func ParseProbeDuration(out string) (time.Duration, error) {
	s := strings.TrimSpace(out)
	if s == "" || s == "N/A" {
		return 0, nil
	}
	var secs float64
	if _, err := fmt.Sscanf(s, "%f", &secs); err != nil {
		return 0, fmt.Errorf("unparseable ffprobe duration %q: %w", s, err)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// FrameSize returns the byte length of one packed frame for the format.
func FrameSize(width, height int, pixfmt string) int {
	switch pixfmt {
	case "rgba", "bgra":
		return width * height * 4
	case "rgb24", "bgr24":
		return width * height * 3
	case "yuyv422", "uyvy422":
		return width * height * 2
	case "yuv420p", "nv12":
		return width * height * 3 / 2
	default:
		return width * height * 4
	}
}

func formatSeconds(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}
