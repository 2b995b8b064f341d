package ffmpeg

import (
	"strings"
	"testing"
	"time"
)

func TestBuildDecodeCommand(t *testing.T) {
	args := BuildDecodeCommand(DecodeParams{
		InputPath: "/media/clip.mp4",
		Start:     1500 * time.Millisecond,
		Width:     1280,
		Height:    720,
		FPS:       30,
		Realtime:  true,
	})
	cmd := strings.Join(args, " ")

	for _, want := range []string{
		"-re",
		"-ss 1.500",
		"-i /media/clip.mp4",
		"scale=1280:720",
		"fps=30",
		"-f rawvideo",
		"-pix_fmt rgba",
		"pipe:1",
	} {
		if !strings.Contains(cmd, want) {
			t.Errorf("command missing %q: %s", want, cmd)
		}
	}
}

func TestBuildDecodeCommandRate(t *testing.T) {
	args := BuildDecodeCommand(DecodeParams{InputPath: "a.mp4", Rate: 2.0})
	cmd := strings.Join(args, " ")
	if !strings.Contains(cmd, "setpts=PTS/2") {
		t.Errorf("expected rate filter in %s", cmd)
	}

	args = BuildDecodeCommand(DecodeParams{InputPath: "a.mp4", Rate: 1.0})
	cmd = strings.Join(args, " ")
	if strings.Contains(cmd, "setpts") {
		t.Errorf("unexpected rate filter at native rate: %s", cmd)
	}
}

func TestParseProbeDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"12.480000\n", 12480 * time.Millisecond, false},
		{"N/A\n", 0, false},
		{"", 0, false},
		{"garbage", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseProbeDuration(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseProbeDuration(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseProbeDuration(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFrameSize(t *testing.T) {
	tests := []struct {
		pixfmt string
		want   int
	}{
		{"rgba", 8},
		{"rgb24", 6},
		{"yuyv422", 4},
		{"yuv420p", 3},
		{"unknown", 8},
	}
	for _, tt := range tests {
		if got := FrameSize(2, 1, tt.pixfmt); got != tt.want {
			t.Errorf("FrameSize(2, 1, %q) = %d, want %d", tt.pixfmt, got, tt.want)
		}
	}
}
