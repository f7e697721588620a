// Package tga implements the PCjr/Tandy 1000 graphics adapter. Unlike
// every other card here, TGA does not own its own VRAM: its display
// memory is a window into main system RAM, selected by a page register,
// so the adapter reads pixel data back through a callback into the bus
// rather than a private buffer.
package tga

import (
	"github.com/dbalsom/martypc/hardware/bus"
	"github.com/dbalsom/martypc/hardware/video"
	"github.com/dbalsom/martypc/hardware/video/crtc"
)

const dotsPerChar = 8

// Card is one TGA adapter.
type Card struct {
	bus.NullDevice

	CRTC *crtc.CRTC

	// ReadMainMemory reads one byte of system RAM at the given physical
	// address, the callback TGA uses instead of owning VRAM.
	ReadMainMemory func(addr uint32) byte

	pageRegister byte
	modeControl  byte
	colorSelect  byte

	dotCounter int

	back, front *video.Frame
}

func NewCard(readMainMemory func(addr uint32) byte) *Card {
	c := &Card{
		CRTC:            crtc.New(),
		ReadMainMemory:  readMainMemory,
		back:            video.NewFrame(640, 200),
		front:           video.NewFrame(640, 200),
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

// baseAddress returns the physical address of the start of this card's
// display window, derived from the page register the PCjr/Tandy BIOS
// programs to relocate video memory within conventional RAM.
func (c *Card) baseAddress() uint32 {
	page := uint32(c.pageRegister&0x07) * 0x4000
	return page
}

func (c *Card) ReadIO(port uint16) uint8 {
	switch port {
	case 0x3D5:
		return c.CRTC.ReadData()
	case 0x3DA:
		v := byte(0)
		if !c.CRTC.DisplayEnable {
			v |= 0x01
		}
		if c.CRTC.VSync {
			v |= 0x08
		}
		return v
	case 0x3DF:
		return c.pageRegister
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
	case 0x3DF:
		c.pageRegister = value
	}
}

func (c *Card) IRQLine() bool { return false }

func (c *Card) renderScanline(scanline int) {
	_, charScanline, vertChar := c.CRTC.CharPosition()
	rowChars := int(c.CRTC.Register(crtc.RegMaxScanline) + 1)
	if rowChars == 0 {
		rowChars = 1
	}
	y := vertChar*rowChars + charScanline
	if y < 0 || y >= c.back.Height || c.ReadMainMemory == nil {
		return
	}

	base := c.baseAddress()
	graphics := c.modeControl&0x02 != 0
	if !graphics {
		c.renderTextScanline(y, base, rowChars, charScanline)
		return
	}
	c.renderGraphicsScanline(y, base)
}

func (c *Card) renderTextScanline(y int, base uint32, rowChars, lineInRow int) {
	cols := int(c.CRTC.Register(crtc.RegHorizDisplayed))
	row := y / rowChars
	start := c.CRTC.StartAddress()
	for col := 0; col < cols; col++ {
		addr := base + (uint32(start)+uint32(row*cols+col))*2
		ch := c.ReadMainMemory(addr)
		attr := c.ReadMainMemory(addr + 1)
		bit := font8x8(ch, lineInRow)
		fgOn := attr & 0x0F
		for px := 0; px < 8; px++ {
			v := uint8(0)
			if bit&(0x80>>uint(px)) != 0 {
				v = 85 + fgOn*10
			}
			c.back.SetPixel(col*8+px, y, v, v, v, 255)
		}
	}
}

func (c *Card) renderGraphicsScanline(y int, base uint32) {
	bytesPerRow := c.back.Width / 4
	for byteX := 0; byteX < bytesPerRow; byteX++ {
		b := c.ReadMainMemory(base + uint32(y*bytesPerRow+byteX))
		for px := 0; px < 4; px++ {
			idx := (b >> uint(6-2*px)) & 0x03
			v := idx * 64
			c.back.SetPixel(byteX*4+px, y, v, v, v, 255)
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
