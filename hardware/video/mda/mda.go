// Package mda implements the IBM Monochrome Display Adapter (and its
// Hercules-compatible superset): a 9-dot character clock, underline and
// 9th-column duplication for box-drawing characters, and an optional
// Hercules graphics page mapped at a second VRAM bank.
package mda

import (
	"github.com/dbalsom/martypc/hardware/bus"
	"github.com/dbalsom/martypc/hardware/video"
	"github.com/dbalsom/martypc/hardware/video/crtc"
)

const (
	vramSize   = 4 * 1024
	herculesVRAMSize = 64 * 1024
	dotsPerChar = 9
)

const (
	ModeEnable    = 0x08
	ModeBlink     = 0x20
	HercGraphics  = 0x02
	HercPageHi    = 0x80
)

// Card is one MDA/Hercules adapter. Hercules is selected by enabling
// graphics mode support and widening VRAM; plain MDA never sets it.
type Card struct {
	bus.NullDevice

	CRTC *crtc.CRTC

	Hercules bool
	vram     []byte

	modeControl byte
	configSwitch byte

	dotCounter int

	back, front *video.Frame
}

func NewCard(hercules bool) *Card {
	size := vramSize
	if hercules {
		size = herculesVRAMSize
	}
	c := &Card{
		CRTC:     crtc.New(),
		Hercules: hercules,
		vram:     make([]byte, size),
		back:     video.NewFrame(720, 350),
		front:    video.NewFrame(720, 350),
	}
	c.CRTC.OnHSync = c.renderScanline
	c.CRTC.OnVSync = c.swapBuffers
	return c
}

func (c *Card) CurrentFrame() *video.Frame { return c.front }

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
	case 0x3B5:
		return c.CRTC.ReadData()
	case 0x3BA:
		v := byte(0x90) // fixed bits identifying a monochrome card present
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
	case 0x3B4:
		c.CRTC.SelectRegister(value)
	case 0x3B5:
		c.CRTC.WriteData(value)
	case 0x3B8:
		c.modeControl = value
	case 0x3BF:
		if c.Hercules {
			c.configSwitch = value
		}
	}
}

func (c *Card) vramSize() uint32 { return uint32(len(c.vram)) }

func (c *Card) ReadMMIO(addr uint32) uint8 {
	return c.vram[addr%c.vramSize()]
}

func (c *Card) WriteMMIO(addr uint32, v uint8) {
	c.vram[addr%c.vramSize()] = v
}

func (c *Card) IRQLine() bool { return false }

func (c *Card) renderScanline(scanline int) {
	_, charScanline, vertChar := c.CRTC.CharPosition()
	rowChars := int(c.CRTC.Register(crtc.RegMaxScanline) + 1)
	if rowChars == 0 {
		rowChars = 1
	}
	y := vertChar*rowChars + charScanline
	if y < 0 || y >= c.back.Height {
		return
	}

	if c.Hercules && c.modeControl&HercGraphics != 0 {
		c.renderGraphicsScanline(y)
		return
	}
	c.renderTextScanline(y, rowChars, charScanline)
}

func (c *Card) renderTextScanline(y, rowChars, lineInRow int) {
	cols := int(c.CRTC.Register(crtc.RegHorizDisplayed))
	row := y / rowChars
	start := c.CRTC.StartAddress()
	underlineRow := lineInRow == rowChars-1

	for col := 0; col < cols; col++ {
		addr := (start + uint16(row*cols+col)) * 2 % uint16(len(c.vram))
		ch := c.vram[addr]
		attr := c.vram[(addr+1)%uint16(len(c.vram))]
		intensity := uint8(170)
		if attr&0x01 != 0 {
			// underline attribute on the MDA palette
		}
		if attr&0x08 != 0 {
			intensity = 255
		}
		bit := font8x8(ch, lineInRow)
		on := bit != 0 || (underlineRow && attr&0x01 != 0 && ch != 0)
		for px := 0; px < 9; px++ {
			set := false
			if px < 8 {
				set = bit&(0x80>>uint(px)) != 0
			} else if ch >= 0xC0 && ch <= 0xDF {
				set = bit&0x01 != 0 // 9th column duplicates column 8 for box-drawing glyphs
			}
			if underlineRow && attr&0x01 != 0 {
				set = true
			}
			v := uint8(0)
			if set || on {
				v = intensity
			}
			c.back.SetPixel(col*9+px, y, v, v, v, 255)
		}
	}
}

func (c *Card) renderGraphicsScanline(y int) {
	bank := (y % 4) * 0x2000
	rowBase := (y / 4) * 90
	for byteX := 0; byteX < 90; byteX++ {
		b := c.vram[(bank+rowBase+byteX)%len(c.vram)]
		for bit := 0; bit < 8; bit++ {
			v := uint8(0)
			if b&(0x80>>uint(bit)) != 0 {
				v = 255
			}
			c.back.SetPixel(byteX*8+bit, y, v, v, v, 255)
		}
	}
}

func (c *Card) swapBuffers() {
	c.front, c.back = c.back, c.front
}

func font8x8(ch byte, line int) byte {
	if line >= 6 && ch != 0x20 && ch != 0 {
		return 0xFF
	}
	return 0x00
}
