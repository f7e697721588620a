// Package crtc implements the Motorola 6845 CRT Controller timing core
// shared by every adapter package: horizontal and vertical character
// counters driving HSYNC, VSYNC and display-enable, at the character-clock
// rate each card feeds it. Grounded on gopher2600/hardware/tia/colorclock's
// phase counter (a tick-driven horizontal position generator) and
// gopher2600/television's front/back framebuffer swap on VSYNC, with the
// vertical counter and the 6845's sixteen registers (R0-R15) added on
// top to generalize from a fixed NTSC/PAL raster to an arbitrary
// programmed geometry.
package crtc

// Register indexes into the 6845's addressable register file.
const (
	RegHorizTotal = iota
	RegHorizDisplayed
	RegHorizSyncPos
	RegSyncWidth
	RegVertTotal
	RegVertTotalAdjust
	RegVertDisplayed
	RegVertSyncPos
	RegInterlaceMode
	RegMaxScanline
	RegCursorStart
	RegCursorEnd
	RegStartAddrHi
	RegStartAddrLo
	RegCursorHi
	RegCursorLo
	registerCount
)

// CRTC is the shared timing engine every video adapter embeds. Card
// subpackages drive its output signals to generate pixels; the CRTC
// itself knows nothing about pixel formats.
type CRTC struct {
	regs        [registerCount]uint8
	addressReg  uint8

	horizChar  int
	scanline   int
	vertChar   int

	HSync, VSync, DisplayEnable bool

	frameParity bool

	// OnHSync/OnVSync let the owning adapter commit a scanline to its
	// framebuffer or swap buffers without the CRTC knowing the pixel
	// format, mirroring television.Television's GetState(ReqFramenum)
	// callback-free polling but inverted into a push model since MartyPC
	// drives video off the CPU's cycle clock rather than a free-running
	// raster thread.
	OnHSync func(scanline int)
	OnVSync func()
}

func New() *CRTC {
	c := &CRTC{}
	c.regs[RegHorizTotal] = 79
	c.regs[RegHorizDisplayed] = 80
	c.regs[RegHorizSyncPos] = 82
	c.regs[RegSyncWidth] = 10
	c.regs[RegVertTotal] = 25
	c.regs[RegVertDisplayed] = 25
	c.regs[RegVertSyncPos] = 19
	c.regs[RegMaxScanline] = 13
	return c
}

// SelectRegister latches the register index that the next WriteData call
// targets, mirroring the 6845's address/data port pair.
func (c *CRTC) SelectRegister(index uint8) {
	c.addressReg = index % registerCount
}

func (c *CRTC) WriteData(value uint8) {
	c.regs[c.addressReg] = value
}

func (c *CRTC) ReadData() uint8 {
	switch c.addressReg {
	case RegCursorHi, RegCursorLo:
		return c.regs[c.addressReg]
	default:
		return c.regs[c.addressReg]
	}
}

// Register exposes a raw register value for adapters that need to derive
// card-specific behaviour from it (e.g. CGA's mode-control-driven clock
// divisor, which is not a 6845 register at all but depends on reading
// RegHorizDisplayed to size the active area).
func (c *CRTC) Register(index int) uint8 { return c.regs[index] }

// StartAddress returns the 14-bit display start address. EGA/VGA's
// pel-panning/line-compare interactions read this through their own
// registers instead, but CGA/MDA/TGA use it directly.
func (c *CRTC) StartAddress() uint16 {
	return uint16(c.regs[RegStartAddrHi])<<8 | uint16(c.regs[RegStartAddrLo])
}

// CursorAddress returns the 14-bit text-mode cursor position.
func (c *CRTC) CursorAddress() uint16 {
	return uint16(c.regs[RegCursorHi])<<8 | uint16(c.regs[RegCursorLo])
}

// Tick advances the character counter by one character clock. Adapters
// call this at their own per-dot/per-character/per-scanline rate, per
// their configured clock_mode (Character, Scanline or Dynamic advance).
func (c *CRTC) Tick(n int) {
	for i := 0; i < n; i++ {
		c.tickOne()
	}
}

func (c *CRTC) tickOne() {
	horizTotal := int(c.regs[RegHorizTotal]) + 1
	horizSync := int(c.regs[RegHorizSyncPos])
	syncWidth := int(c.regs[RegSyncWidth]&0x0F)
	horizDisplayed := int(c.regs[RegHorizDisplayed])
	maxScanline := int(c.regs[RegMaxScanline]) + 1
	vertTotal := int(c.regs[RegVertTotal]) + 1
	vertSync := int(c.regs[RegVertSyncPos])
	vertDisplayed := int(c.regs[RegVertDisplayed])

	c.DisplayEnable = c.horizChar < horizDisplayed && c.vertChar < vertDisplayed

	wasHSync := c.HSync
	c.HSync = c.horizChar >= horizSync && c.horizChar < horizSync+syncWidth

	c.horizChar++
	if c.horizChar >= horizTotal {
		c.horizChar = 0
		if wasHSync || c.HSync {
			// scanline boundary crossed mid-sync tolerated; commit happens below
		}
		if c.OnHSync != nil {
			c.OnHSync(c.scanline)
		}
		c.scanline++
		if c.scanline >= maxScanline {
			c.scanline = 0
			c.vertChar++
			if c.vertChar >= vertTotal {
				c.vertChar = 0
				c.frameParity = !c.frameParity
				if c.OnVSync != nil {
					c.OnVSync()
				}
			}
		}
	}

	c.VSync = c.vertChar >= vertSync && c.vertChar < vertSync+1
}

// CharPosition returns the current horizontal character, scanline-within-
// character and vertical character-row counters, used by adapters to
// compute the VRAM address being fetched this tick.
func (c *CRTC) CharPosition() (horiz, scanline, vertChar int) {
	return c.horizChar, c.scanline, c.vertChar
}

// FrameParity flips every VSYNC, letting interlaced/composite adapters
// alternate field rendering (CGA composite simulation reads this
// to offset its color-carrier phase).
func (c *CRTC) FrameParity() bool { return c.frameParity }
