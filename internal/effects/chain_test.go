package effects

import (
	"testing"

	"github.com/smazurov/videoswitch/internal/media"
)

func testFrame(pixels ...uint8) media.Frame {
	return media.Frame{Width: len(pixels) / 4, Height: 1, PixFmt: "rgba", Data: pixels}
}

func TestChainDisabledPassthrough(t *testing.T) {
	c := NewChain()
	c.Add(&OpacityStage{Opacity: 0})
	c.SetEnabled(false)

	f := testFrame(10, 20, 30, 255)
	out := c.Apply(f)
	if out.Data[3] != 255 {
		t.Error("disabled chain must not modify frames")
	}
}

func TestChainAppliesInOrder(t *testing.T) {
	c := NewChain()
	c.Add(&ColorBalanceStage{GainR: 2, GainG: 1, GainB: 1})
	c.Add(&OpacityStage{Opacity: 0.5})

	out := c.Apply(testFrame(100, 100, 100, 200))
	if out.Data[0] != 200 {
		t.Errorf("red gain not applied: %d", out.Data[0])
	}
	if out.Data[3] != 100 {
		t.Errorf("opacity not applied: %d", out.Data[3])
	}
}

func TestChainApplyDoesNotMutateInput(t *testing.T) {
	c := NewChain()
	c.Add(&OpacityStage{Opacity: 0})

	f := testFrame(1, 2, 3, 255)
	_ = c.Apply(f)
	if f.Data[3] != 255 {
		t.Error("Apply mutated the input frame")
	}
}

func TestChromaKeyWithBackground(t *testing.T) {
	bg := testFrame(9, 9, 9, 255)
	s := &ChromaKeyStage{KeyR: 0, KeyG: 255, KeyB: 0, Tolerance: 0.1, Background: &bg}

	// Green pixel is replaced by the background pixel.
	out := s.Apply(testFrame(0, 250, 10, 255))
	if out.Data[0] != 9 || out.Data[3] != 255 {
		t.Errorf("keyed pixel not replaced: %v", out.Data)
	}

	// Non-matching pixel passes through.
	out = s.Apply(testFrame(200, 10, 10, 255))
	if out.Data[0] != 200 {
		t.Errorf("non-keyed pixel modified: %v", out.Data)
	}
}

func TestChromaKeyWithoutBackgroundGoesTransparent(t *testing.T) {
	s := &ChromaKeyStage{KeyR: 0, KeyG: 255, KeyB: 0, Tolerance: 0.05}
	out := s.Apply(testFrame(0, 255, 0, 255))
	if out.Data[3] != 0 {
		t.Errorf("expected transparent pixel, alpha=%d", out.Data[3])
	}
}

func TestCopyFromIsolation(t *testing.T) {
	bg := testFrame(1, 1, 1, 255)
	src := NewChain()
	src.Add(&ChromaKeyStage{KeyG: 255, Tolerance: 0.1, Background: &bg})
	src.Add(&ColorBalanceStage{GainR: 1, GainG: 1, GainB: 1})

	dst := NewChain()
	dst.CopyFrom(src, true)

	if dst.Len() != 2 {
		t.Fatalf("expected 2 copied stages, got %d", dst.Len())
	}

	// Mutating the destination's chroma key must not touch the source.
	dstKey := dst.StageAt(0).(*ChromaKeyStage)
	dstKey.Tolerance = 0.9
	dstKey.Background.Data[0] = 42

	srcKey := src.StageAt(0).(*ChromaKeyStage)
	if srcKey.Tolerance != 0.1 {
		t.Error("source tolerance changed through copy")
	}
	if srcKey.Background.Data[0] != 1 {
		t.Error("source background shared with copy")
	}

	// And vice versa.
	srcKey.KeyR = 77
	if dstKey.KeyR == 77 {
		t.Error("destination key changed through source")
	}
}

func TestCopyFromWithoutOverwriteKeepsExisting(t *testing.T) {
	src := NewChain()
	src.Add(&OpacityStage{Opacity: 0.25})
	src.Add(&ColorBalanceStage{GainR: 3, GainG: 1, GainB: 1})

	dst := NewChain()
	dst.Add(&OpacityStage{Opacity: 0.75})
	dst.CopyFrom(src, false)

	if dst.Len() != 2 {
		t.Fatalf("expected 2 stages, got %d", dst.Len())
	}
	if got := dst.StageAt(0).(*OpacityStage).Opacity; got != 0.75 {
		t.Errorf("existing stage overwritten: %v", got)
	}
	if got := dst.StageAt(1).(*ColorBalanceStage).GainR; got != 3 {
		t.Errorf("missing stage not filled: %v", got)
	}
}

func TestChainRemoveAt(t *testing.T) {
	c := NewChain()
	c.Add(&OpacityStage{Opacity: 0.1})
	c.Add(&OpacityStage{Opacity: 0.2})

	c.RemoveAt(5) // out of range: no-op
	if c.Len() != 2 {
		t.Fatal("out-of-range removal changed the chain")
	}
	c.RemoveAt(0)
	if c.Len() != 1 || c.StageAt(0).(*OpacityStage).Opacity != 0.2 {
		t.Error("wrong stage removed")
	}
}
