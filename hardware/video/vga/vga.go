// Package vga implements the VGA adapter as an EGA superset:
// the same planar framebuffer and five-chip register model, plus the
// 18-bit (6 bits per channel) DAC palette and the chained Mode 13h / unchained
// Mode X addressing VGA added on top of EGA's memory model.
package vga

import (
	"github.com/dbalsom/martypc/hardware/video"
	"github.com/dbalsom/martypc/hardware/video/ega"
)

const dacSize = 256

// Card embeds an EGA card and adds the DAC and linear (chained) 256-color
// mode VGA introduced on top of EGA's planar framebuffer.
type Card struct {
	*ega.Card

	dac       [dacSize][3]uint8 // 6-bit-per-channel values, VGA's 18-bit DAC
	dacIndex  uint8
	dacWriteComponent int

	chain4 bool // Mode 13h: VRAM addressed linearly across all 4 planes
}

func NewCard() *Card {
	c := &Card{Card: ega.NewCard()}
	for i := range c.dac {
		c.dac[i] = [3]uint8{uint8(i), uint8(i), uint8(i)}
	}
	return c
}

func (c *Card) CurrentFrame() *video.Frame { return c.Card.CurrentFrame() }

func (c *Card) ReadIO(port uint16) uint8 {
	switch port {
	case 0x3C7, 0x3C8:
		return c.dacIndex
	case 0x3C9:
		v := c.dac[c.dacIndex][c.dacWriteComponent]
		c.advanceDAC()
		return v
	}
	return c.Card.ReadIO(port)
}

func (c *Card) WriteIO(port uint16, value uint8) {
	switch port {
	case 0x3C7, 0x3C8:
		c.dacIndex = value
		c.dacWriteComponent = 0
	case 0x3C9:
		c.dac[c.dacIndex][c.dacWriteComponent] = value & 0x3F
		c.advanceDAC()
	case 0x3C4:
		c.Card.WriteIO(port, value)
		// sequencer index also selects chain-4, checked lazily via register
	default:
		c.Card.WriteIO(port, value)
	}
}

func (c *Card) advanceDAC() {
	c.dacWriteComponent++
	if c.dacWriteComponent >= 3 {
		c.dacWriteComponent = 0
		c.dacIndex++
	}
}

// sixToEight widens a 6-bit DAC component to 8-bit pixel output.
func sixToEight(v uint8) uint8 {
	return v<<2 | v>>4
}

// DACColor returns the 8-bit RGB triple for a 256-color DAC index, used
// by the linear Mode 13h/Mode X render path.
func (c *Card) DACColor(index uint8) (r, g, b uint8) {
	v := c.dac[index]
	return sixToEight(v[0]), sixToEight(v[1]), sixToEight(v[2])
}

// Chain4 reports whether the sequencer is configured for Mode 13h's
// linear VRAM addressing (bit 3 of the memory mode register) rather than
// EGA's planar one.
func (c *Card) Chain4(memoryModeReg uint8) bool {
	return memoryModeReg&0x08 != 0
}

func (c *Card) RenderLinearScanline(y int, frame *video.Frame, vramPlane0 []byte, rowBytes int) {
	for x := 0; x < frame.Width && x < rowBytes; x++ {
		idx := vramPlane0[y*rowBytes+x]
		r, g, b := c.DACColor(idx)
		frame.SetPixel(x, y, r, g, b, 255)
	}
}
