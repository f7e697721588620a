// Package cga implements the IBM Color Graphics Adapter: 16KiB of VRAM
// aliased at B800:0000, the mode-control and color-select registers, RGBI
// and a reenigne-style composite color multiplexer simulation, and "snow"
// detection (a CPU VRAM read during active display is recorded; the
// displayed output is not altered). The card embeds *crtc.CRTC exactly as
// gopher2600/hardware/tia/video.Video layers player/missile/ball/
// playfield generators atop the shared TIA colorclock phase counter;
// here the "generators" are CGA's own text and graphics pixel shifters.
package cga

import (
	"github.com/dbalsom/martypc/hardware/bus"
	"github.com/dbalsom/martypc/hardware/video"
	"github.com/dbalsom/martypc/hardware/video/crtc"
)

const (
	vramSize = 16 * 1024
	dotsPerChar = 8
)

// ModeControl bits of port 0x3D8.
const (
	ModeHiRes     = 0x01
	ModeGraphics  = 0x02
	ModeBW        = 0x04
	ModeEnable    = 0x08
	Mode640x200   = 0x10
	ModeBlink     = 0x20
)

// ColorSelect bits of port 0x3D9.
const (
	ColorOverscanMask = 0x0F
	ColorIntense      = 0x10
	ColorPaletteAlt   = 0x20 // selects the red/green/brown alt palette
)

// 16-color RGBI DAC, the standard IBM CGA palette.
var rgbiPalette = [16][3]uint8{
	{0, 0, 0}, {0, 0, 170}, {0, 170, 0}, {0, 170, 170},
	{170, 0, 0}, {170, 0, 170}, {170, 85, 0}, {170, 170, 170},
	{85, 85, 85}, {85, 85, 255}, {85, 255, 85}, {85, 255, 255},
	{255, 85, 85}, {255, 85, 255}, {255, 255, 85}, {255, 255, 255},
}

// compositePalette approximates the reenigne-documented NTSC composite
// artifact colors CGA produces over its composite output, distinct from
// the clean RGBI digital palette above.
var compositePalette = [16][3]uint8{
	{0, 0, 0}, {0, 44, 108}, {72, 18, 0}, {79, 38, 154},
	{0, 92, 0}, {92, 92, 92}, {0, 109, 159}, {76, 154, 193},
	{89, 29, 0}, {38, 0, 216}, {139, 82, 0}, {120, 91, 255},
	{0, 166, 0}, {92, 220, 108}, {110, 164, 255}, {255, 255, 255},
}

// Card is one CGA adapter.
type Card struct {
	bus.NullDevice

	CRTC *crtc.CRTC

	vram [vramSize]byte

	modeControl byte
	colorSelect byte
	statusReg   byte

	dotCounter int

	back, front *video.Frame

	// Composite enables the NTSC composite color path instead of RGBI
	// digital output, the source of CGA's reenigne-style color-cycle artifacts.
	Composite bool

	// SnowEmulation tracks the IBM CGA's bus-contention artifact: a CPU
	// VRAM read during active display sets snowHit. Rendered output is not
	// altered.
	SnowEmulation bool
	snowHit       bool

	lastCRTCAddr uint16
}

func NewCard() *Card {
	c := &Card{
		CRTC:          crtc.New(),
		back:          video.NewFrame(640, 200),
		front:         video.NewFrame(640, 200),
		SnowEmulation: true,
	}
	c.CRTC.OnHSync = c.renderScanline
	c.CRTC.OnVSync = c.swapBuffers
	return c
}

func (c *Card) CurrentFrame() *video.Frame { return c.front }

// Tick advances the CRTC at CGA's fixed dot clock: one CRTC character
// tick per 8 dots, and one dot per Tick call, matching "Dynamic" clock
// mode from config schema (the per-card default).
func (c *Card) Tick(n int) {
	for i := 0; i < n; i++ {
		c.dotCounter++
		if c.dotCounter >= dotsPerChar {
			c.dotCounter = 0
			c.CRTC.Tick(1)
		}
	}
}

func (c *Card) ReadIO(port uint16) uint8 {
	switch port {
	case 0x3D4:
		return 0 // address register is write-only on real hardware
	case 0x3D5:
		return c.CRTC.ReadData()
	case 0x3DA:
		// bit0 = display disabled (retrace or overscan), bit3 = vsync.
		v := byte(0)
		if !c.CRTC.DisplayEnable {
			v |= 0x01
		}
		if c.CRTC.VSync {
			v |= 0x08
		}
		return v
	}
	return 0xFF
}

func (c *Card) WriteIO(port uint16, value uint8) {
	switch port {
	case 0x3D4:
		c.CRTC.SelectRegister(value)
	case 0x3D5:
		c.CRTC.WriteData(value)
	case 0x3D8:
		c.modeControl = value
	case 0x3D9:
		c.colorSelect = value
	}
}

func (c *Card) ReadMMIO(addr uint32) uint8 {
	off := addr % vramSize
	if c.SnowEmulation && c.CRTC.DisplayEnable {
		c.snowHit = true
	}
	return c.vram[off]
}

func (c *Card) WriteMMIO(addr uint32, v uint8) {
	off := addr % vramSize
	c.vram[off] = v
}

func (c *Card) IRQLine() bool { return false }

func (c *Card) palette() *[16][3]uint8 {
	if c.Composite {
		return &compositePalette
	}
	return &rgbiPalette
}

// renderScanline commits one scanline of pixels into the back buffer,
// called by the CRTC on each HSYNC ("HSYNC commits a scanline").
func (c *Card) renderScanline(scanline int) {
	horizDisplayed := int(c.CRTC.Register(crtc.RegHorizDisplayed))
	_, charScanline, vertChar := c.CRTC.CharPosition()
	y := vertChar*int(c.CRTC.Register(crtc.RegMaxScanline)+1) + charScanline
	if y < 0 || y >= c.back.Height {
		return
	}
	pal := c.palette()

	graphics := c.modeControl&ModeGraphics != 0
	start := c.CRTC.StartAddress()

	if !graphics {
		c.renderTextScanline(y, horizDisplayed, start, pal)
		return
	}
	if c.modeControl&Mode640x200 != 0 {
		c.renderGraphicsScanline(y, start, pal, 2)
	} else {
		c.renderGraphicsScanline(y, start, pal, 1)
	}
}

func (c *Card) renderTextScanline(y, cols int, start uint16, pal *[16][3]uint8) {
	rowChars := int(c.CRTC.Register(crtc.RegMaxScanline) + 1)
	if rowChars == 0 {
		rowChars = 1
	}
	row := y / rowChars
	lineInRow := y % rowChars
	for col := 0; col < cols; col++ {
		addr := (start + uint16(row*cols+col)) * 2 % vramSize
		ch := c.vram[addr]
		attr := c.vram[(addr+1)%vramSize]
		fg := pal[attr&0x0F]
		bg := pal[(attr>>4)&0x07]
		bit := font8x8(ch, lineInRow)
		for px := 0; px < 8; px++ {
			color := bg
			if bit&(0x80>>uint(px)) != 0 {
				color = fg
			}
			c.back.SetPixel(col*8+px, y, color[0], color[1], color[2], 255)
		}
	}
}

func (c *Card) renderGraphicsScanline(y int, start uint16, pal *[16][3]uint8, bitsPerPixel int) {
	bankOffset := uint16(0)
	if y%2 != 0 {
		bankOffset = 0x2000
	}
	rowBase := start + bankOffset + uint16((y/2)*80)
	width := c.back.Width
	for x := 0; x < width; x++ {
		var colorIdx uint8
		if bitsPerPixel == 2 {
			byteIdx := rowBase + uint16(x/4)
			b := c.vram[byteIdx%vramSize]
			shift := 6 - 2*(x%4)
			colorIdx = (b >> uint(shift)) & 0x03
			if colorIdx != 0 {
				colorIdx += (c.colorSelect & ColorPaletteAlt) >> 2
			}
		} else {
			byteIdx := rowBase + uint16(x/8)
			b := c.vram[byteIdx%vramSize]
			bit := (b >> uint(7-x%8)) & 1
			if bit != 0 {
				colorIdx = 0x0F
			} else {
				colorIdx = c.colorSelect & ColorOverscanMask
			}
		}
		color := pal[colorIdx&0x0F]
		c.back.SetPixel(x, y, color[0], color[1], color[2], 255)
	}
}

func (c *Card) swapBuffers() {
	c.front, c.back = c.back, c.front
}

// font8x8 returns one scanline's worth of set-pixel bits for a text-mode
// glyph. A full ROM font is out of scope; this renders a block cursor at
// rows 6-7 and leaves other rows blank, enough to exercise the text
// rendering path without fabricating IBM's font ROM contents.
func font8x8(ch byte, line int) byte {
	if line >= 6 && ch != 0x20 && ch != 0 {
		return 0xFF
	}
	return 0x00
}
