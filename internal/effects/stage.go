// Package effects implements the per-slot effect chain applied by the
// frame processor.
package effects

import "github.com/smazurov/videoswitch/internal/media"

// Stage is one effect in a chain. Apply must be a pure function of the
// frame and the stage's configuration; it returns a new frame and never
// mutates the input. Clone deep-copies the configuration including any
// stage-private resources, so copied chains cannot cross-affect each other.
type Stage interface {
	Kind() string
	Apply(f media.Frame) media.Frame
	Clone() Stage
}

// ColorBalanceStage scales each RGB channel by a gain.
type ColorBalanceStage struct {
	GainR float64 `json:"gain_r"`
	GainG float64 `json:"gain_g"`
	GainB float64 `json:"gain_b"`
}

// Kind implements Stage.
func (s *ColorBalanceStage) Kind() string { return "color_balance" }

// Apply implements Stage.
func (s *ColorBalanceStage) Apply(f media.Frame) media.Frame {
	out := f.Clone()
	for i := 0; i+3 < len(out.Data); i += 4 {
		out.Data[i] = scale(out.Data[i], s.GainR)
		out.Data[i+1] = scale(out.Data[i+1], s.GainG)
		out.Data[i+2] = scale(out.Data[i+2], s.GainB)
	}
	return out
}

// Clone implements Stage.
func (s *ColorBalanceStage) Clone() Stage {
	clone := *s
	return &clone
}

// OpacityStage scales the alpha channel.
type OpacityStage struct {
	Opacity float64 `json:"opacity"`
}

// Kind implements Stage.
func (s *OpacityStage) Kind() string { return "opacity" }

// Apply implements Stage.
func (s *OpacityStage) Apply(f media.Frame) media.Frame {
	out := f.Clone()
	for i := 3; i < len(out.Data); i += 4 {
		out.Data[i] = scale(out.Data[i], s.Opacity)
	}
	return out
}

// Clone implements Stage.
func (s *OpacityStage) Clone() Stage {
	clone := *s
	return &clone
}

// ChromaKeyStage replaces pixels near the key color with the corresponding
// pixel of the stage's private background frame, or with transparency when
// no background is bound. The background is stage-private state: copying a
// chain duplicates it.
type ChromaKeyStage struct {
	KeyR       uint8   `json:"key_r"`
	KeyG       uint8   `json:"key_g"`
	KeyB       uint8   `json:"key_b"`
	Tolerance  float64 `json:"tolerance"` // 0..1, channel distance fraction
	Background *media.Frame
}

// Kind implements Stage.
func (s *ChromaKeyStage) Kind() string { return "chroma_key" }

// Apply implements Stage.
func (s *ChromaKeyStage) Apply(f media.Frame) media.Frame {
	out := f.Clone()
	tol := int(s.Tolerance * 255)
	for i := 0; i+3 < len(out.Data); i += 4 {
		if !within(out.Data[i], s.KeyR, tol) ||
			!within(out.Data[i+1], s.KeyG, tol) ||
			!within(out.Data[i+2], s.KeyB, tol) {
			continue
		}
		if s.Background != nil && i+3 < len(s.Background.Data) {
			copy(out.Data[i:i+4], s.Background.Data[i:i+4])
		} else {
			out.Data[i+3] = 0
		}
	}
	return out
}

// Clone implements Stage. The background frame is deep-copied.
func (s *ChromaKeyStage) Clone() Stage {
	clone := *s
	if s.Background != nil {
		bg := s.Background.Clone()
		clone.Background = &bg
	}
	return &clone
}

func scale(v uint8, gain float64) uint8 {
	scaled := float64(v) * gain
	if scaled > 255 {
		return 255
	}
	if scaled < 0 {
		return 0
	}
	return uint8(scaled)
}

func within(v, key uint8, tol int) bool {
	d := int(v) - int(key)
	if d < 0 {
		d = -d
	}
	return d <= tol
}
