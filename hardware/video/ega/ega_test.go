package ega

import (
	"testing"

	"github.com/dbalsom/martypc/hardware/video/crtc"
)

func TestNewCardSeedsIdentityPalette(t *testing.T) {
	c := NewCard()
	for i := 0; i < 16; i++ {
		if c.attr[i] != uint8(i) {
			t.Fatalf("attr[%d] = %#02x, want identity mapping %#02x", i, c.attr[i], i)
		}
	}
}

func TestWriteMMIOWritesOnlySelectedPlanes(t *testing.T) {
	c := NewCard()
	c.WriteIO(0x3C4, SeqMapMask)
	c.WriteIO(0x3C5, 0x05) // planes 0 and 2

	c.WriteMMIO(0, 0xAA)

	if c.vram[0][0] != 0xAA {
		t.Errorf("plane 0 = %#02x, want 0xAA (selected by map mask)", c.vram[0][0])
	}
	if c.vram[1][0] != 0 {
		t.Errorf("plane 1 = %#02x, want 0 (not selected)", c.vram[1][0])
	}
	if c.vram[2][0] != 0xAA {
		t.Errorf("plane 2 = %#02x, want 0xAA (selected by map mask)", c.vram[2][0])
	}
}

func TestReadMMIOUsesReadMapSelect(t *testing.T) {
	c := NewCard()
	c.vram[0][0] = 0x11
	c.vram[3][0] = 0x33

	c.WriteIO(0x3CE, GfxReadMapSel)
	c.WriteIO(0x3CF, 3)
	if got := c.ReadMMIO(0); got != 0x33 {
		t.Errorf("ReadMMIO with ReadMapSel=3 = %#02x, want 0x33", got)
	}

	c.WriteIO(0x3CE, GfxReadMapSel)
	c.WriteIO(0x3CF, 0)
	if got := c.ReadMMIO(0); got != 0x11 {
		t.Errorf("ReadMMIO with ReadMapSel=0 = %#02x, want 0x11", got)
	}
}

func TestAttributeControllerFlipFlopAlternatesIndexAndData(t *testing.T) {
	c := NewCard()
	c.WriteIO(0x3C0, 0x05) // selects index 5
	c.WriteIO(0x3C0, 0x2A) // writes data to index 5

	if c.attr[5] != 0x2A {
		t.Errorf("attr[5] = %#02x, want 0x2A", c.attr[5])
	}
}

func TestReadingStatusPortResetsAttributeFlipFlop(t *testing.T) {
	c := NewCard()
	c.WriteIO(0x3C0, 0x05) // first write consumed as index

	c.ReadIO(0x3DA) // resets flip-flop to index phase

	c.WriteIO(0x3C0, 0x07) // treated as a new index, not data
	c.WriteIO(0x3C0, 0x99) // now treated as data for index 7
	if c.attr[7] != 0x99 {
		t.Errorf("attr[7] = %#02x, want 0x99 after flip-flop reset", c.attr[7])
	}
}

func TestVSyncSwapsBuffersAndLatchesIRQ(t *testing.T) {
	c := NewCard()
	front := c.front
	c.onVSync()

	if c.IRQLine() != true {
		t.Fatalf("IRQLine() = false after VSync, want true")
	}
	if c.back != front {
		t.Errorf("back buffer did not become the old front buffer after swap")
	}
}

func TestAckVSyncIRQClearsPending(t *testing.T) {
	c := NewCard()
	c.onVSync()
	c.AckVSyncIRQ()

	if c.IRQLine() {
		t.Errorf("IRQLine() = true after AckVSyncIRQ, want false")
	}
}

func TestSequencerAndGraphicsRegistersRoundTrip(t *testing.T) {
	c := NewCard()
	c.WriteIO(0x3C4, 2)
	c.WriteIO(0x3C5, 0x0F)
	if c.ReadIO(0x3C5) != 0x0F {
		t.Errorf("sequencer register 2 = %#02x, want 0x0F", c.ReadIO(0x3C5))
	}

	c.WriteIO(0x3CE, GfxMode)
	c.WriteIO(0x3CF, 0x01)
	if c.ReadIO(0x3CF) != 0x01 {
		t.Errorf("graphics register GfxMode = %#02x, want 0x01", c.ReadIO(0x3CF))
	}
}

func TestCRTCPortsAliasMonochromeAndColorBases(t *testing.T) {
	c := NewCard()
	c.WriteIO(0x3D4, crtc.RegCursorStart)
	c.WriteIO(0x3D5, 0x20)
	if got := c.ReadIO(0x3B5); got != 0x20 {
		t.Errorf("ReadIO(0x3B5) = %#02x after writing via 0x3D5, want 0x20 (shared CRTC)", got)
	}
}
