package mda

import "testing"

func TestNewCardPlainMDAUsesSmallVRAM(t *testing.T) {
	c := NewCard(false)
	if c.vramSize() != vramSize {
		t.Errorf("vramSize() = %d, want %d for plain MDA", c.vramSize(), vramSize)
	}
	if c.Hercules {
		t.Errorf("Hercules = true for NewCard(false)")
	}
}

func TestNewCardHerculesWidensVRAM(t *testing.T) {
	c := NewCard(true)
	if c.vramSize() != herculesVRAMSize {
		t.Errorf("vramSize() = %d, want %d for Hercules", c.vramSize(), herculesVRAMSize)
	}
}

func TestVRAMReadWriteThroughMMIO(t *testing.T) {
	c := NewCard(false)
	c.WriteMMIO(0x100, 0x5A)
	if got := c.ReadMMIO(0x100); got != 0x5A {
		t.Errorf("ReadMMIO(0x100) = %#02x, want 0x5A", got)
	}
}

func TestVRAMAddressWrapsAtCardSize(t *testing.T) {
	c := NewCard(false)
	c.WriteMMIO(0, 0x11)
	if got := c.ReadMMIO(vramSize); got != 0x11 {
		t.Errorf("ReadMMIO wraparound: got %#02x at addr==vramSize, want 0x11", got)
	}
}

func TestConfigSwitchOnlyLatchesOnHercules(t *testing.T) {
	c := NewCard(false)
	c.WriteIO(0x3BF, 0x03)
	if c.configSwitch != 0 {
		t.Errorf("configSwitch = %#02x on plain MDA, want 0 (port ignored)", c.configSwitch)
	}

	herc := NewCard(true)
	herc.WriteIO(0x3BF, 0x03)
	if herc.configSwitch != 0x03 {
		t.Errorf("configSwitch = %#02x on Hercules, want 0x03", herc.configSwitch)
	}
}

func TestModeControlLatchesThroughPort3B8(t *testing.T) {
	c := NewCard(true)
	c.WriteIO(0x3B8, ModeEnable|HercGraphics)
	if c.modeControl != ModeEnable|HercGraphics {
		t.Errorf("modeControl = %#02x, want %#02x", c.modeControl, ModeEnable|HercGraphics)
	}
}

func TestStatusPortReportsFixedIdentityBits(t *testing.T) {
	c := NewCard(false)
	got := c.ReadIO(0x3BA)
	if got&0x90 != 0x90 {
		t.Errorf("status port = %#02x, want bit pattern 0x90 set", got)
	}
}

func TestStatusPortReflectsDisplayEnable(t *testing.T) {
	c := NewCard(false)
	// Before any CRTC ticks DisplayEnable is false, so bit 0 (not-displaying) is set.
	if got := c.ReadIO(0x3BA); got&0x01 == 0 {
		t.Errorf("status port bit0 = 0, want 1 when DisplayEnable is false")
	}
}

func TestCurrentFrameMatchesMDAGeometry(t *testing.T) {
	c := NewCard(false)
	f := c.CurrentFrame()
	if f.Width != 720 || f.Height != 350 {
		t.Errorf("frame geometry = %dx%d, want 720x350", f.Width, f.Height)
	}
}

func TestTickAdvancesCRTCEveryNinthDot(t *testing.T) {
	c := NewCard(false)
	for i := 0; i < dotsPerChar-1; i++ {
		c.Tick(1)
	}
	h1, _, _ := c.CRTC.CharPosition()
	c.Tick(1)
	h2, _, _ := c.CRTC.CharPosition()

	if h2 == h1 {
		t.Errorf("CRTC character position did not advance after the 9th dot tick")
	}
}

func TestIRQLineAlwaysFalse(t *testing.T) {
	c := NewCard(false)
	if c.IRQLine() {
		t.Errorf("IRQLine() = true, MDA has no interrupt output")
	}
}

func TestCRTCRegisterAccessThroughPorts(t *testing.T) {
	c := NewCard(false)
	c.WriteIO(0x3B4, 10) // RegCursorStart
	c.WriteIO(0x3B5, 0x20)
	if got := c.ReadIO(0x3B5); got != 0x20 {
		t.Errorf("ReadIO(0x3B5) = %#02x after selecting/writing register 10, want 0x20", got)
	}
}
