package vga

import (
	"testing"

	"github.com/dbalsom/martypc/hardware/video/ega"
)

func TestNewCardSeedsGrayscaleDAC(t *testing.T) {
	c := NewCard()
	r, g, b := c.DACColor(0x10)
	want := sixToEight(0x10)
	if r != want || g != want || b != want {
		t.Errorf("DACColor(0x10) = (%d,%d,%d), want identity grayscale (%d,%d,%d)", r, g, b, want, want, want)
	}
}

func TestDACWriteAdvancesThroughRGBTriple(t *testing.T) {
	c := NewCard()
	c.WriteIO(0x3C8, 5)
	c.WriteIO(0x3C9, 0x3F) // R
	c.WriteIO(0x3C9, 0x20) // G
	c.WriteIO(0x3C9, 0x10) // B

	r, g, b := c.DACColor(5)
	if r != sixToEight(0x3F) || g != sixToEight(0x20) || b != sixToEight(0x10) {
		t.Errorf("DACColor(5) = (%d,%d,%d), want widened (0x3F,0x20,0x10)", r, g, b)
	}
}

func TestDACWriteAutoIncrementsIndexAfterThirdComponent(t *testing.T) {
	c := NewCard()
	c.WriteIO(0x3C8, 0)
	for i := 0; i < 3; i++ {
		c.WriteIO(0x3C9, 0x01)
	}
	if c.dacIndex != 1 {
		t.Errorf("dacIndex = %d after 3 component writes, want 1", c.dacIndex)
	}
}

func TestDACIndexPortsReadBackLatchedIndex(t *testing.T) {
	c := NewCard()
	c.WriteIO(0x3C8, 42)
	if got := c.ReadIO(0x3C7); got != 42 {
		t.Errorf("ReadIO(0x3C7) = %d, want 42", got)
	}
}

func TestUnhandledPortsDelegateToEGA(t *testing.T) {
	c := NewCard()
	c.WriteIO(0x3CE, ega.GfxMode)
	c.WriteIO(0x3CF, 0x02)
	if got := c.ReadIO(0x3CF); got != 0x02 {
		t.Errorf("ReadIO(0x3CF) = %#02x after delegated write, want 0x02", got)
	}
}

func TestChain4DetectsLinearAddressingBit(t *testing.T) {
	c := NewCard()
	if c.Chain4(0x00) {
		t.Errorf("Chain4(0x00) = true, want false")
	}
	if !c.Chain4(0x08) {
		t.Errorf("Chain4(0x08) = false, want true (bit 3 set)")
	}
}

func TestRenderLinearScanlineMapsDACColors(t *testing.T) {
	c := NewCard()
	c.WriteIO(0x3C8, 9)
	c.WriteIO(0x3C9, 0x3F)
	c.WriteIO(0x3C9, 0x00)
	c.WriteIO(0x3C9, 0x00)

	frame := c.CurrentFrame()
	vram := make([]byte, frame.Width)
	vram[0] = 9

	c.RenderLinearScanline(0, frame, vram, frame.Width)

	r, g, b := frame.Pixels[0], frame.Pixels[1], frame.Pixels[2]
	wantR := sixToEight(0x3F)
	if r != wantR || g != 0 || b != 0 {
		t.Errorf("pixel(0,0) = (%d,%d,%d), want (%d,0,0)", r, g, b, wantR)
	}
}
