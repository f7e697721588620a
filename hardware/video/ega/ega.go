// Package ega implements the IBM Enhanced Graphics Adapter: the five
// internal chips (sequencer, graphics controller, attribute controller,
// CRTC, external/misc registers) modeled as separate register files
// feeding a shared 256KiB planar VRAM, with per-scanline pel-panning, the
// line-compare split-screen register, CGA-compatibility modes, and a
// vertical-retrace IRQ. Grounded the same way cga and mda are: the
// CRTC core is gopher2600/hardware/tia/colorclock's phase counter
// generalized to a programmable raster, with buffer swap-on-VSYNC from
// gopher2600/television.
package ega

import (
	"github.com/dbalsom/martypc/hardware/bus"
	"github.com/dbalsom/martypc/hardware/video"
	"github.com/dbalsom/martypc/hardware/video/crtc"
)

const (
	vramSize    = 256 * 1024
	planeSize   = vramSize / 4
	dotsPerChar = 8
)

// Sequencer register indexes (subset needed for mode setup and
// pel-panning).
const (
	SeqClockingMode = 1
	SeqMapMask      = 2
	SeqMemoryMode   = 4
)

// Graphics controller register indexes.
const (
	GfxSetReset     = 0
	GfxDataRotate   = 3
	GfxReadMapSel   = 4
	GfxMode         = 5
	GfxMisc         = 6
)

// Attribute controller register indexes 0x00-0x0F select palette entries;
// 0x10-0x13 are mode control, pel panning, color plane enable and color
// select.
const (
	AttrModeControl = 0x10
	AttrPelPanning  = 0x13
)

type Card struct {
	bus.NullDevice

	CRTC *crtc.CRTC

	vram [4][planeSize]byte

	seq  [5]uint8
	gfx  [9]uint8
	attr [21]uint8

	seqIndex, gfxIndex, attrIndex uint8
	attrFlipFlop                 bool

	lineCompare uint16

	dotCounter int

	back, front *video.Frame

	vsyncIRQPending bool
}

func NewCard() *Card {
	c := &Card{
		CRTC: crtc.New(),
		back: video.NewFrame(720, 350),
		front: video.NewFrame(720, 350),
	}
	// standard EGA palette identity mapping at reset
	for i := range c.attr[:16] {
		c.attr[i] = uint8(i)
	}
	c.CRTC.OnHSync = c.renderScanline
	c.CRTC.OnVSync = c.onVSync
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
	case 0x3C4:
		return c.seqIndex
	case 0x3C5:
		return c.seq[c.seqIndex%uint8(len(c.seq))]
	case 0x3CE:
		return c.gfxIndex
	case 0x3CF:
		return c.gfx[c.gfxIndex%uint8(len(c.gfx))]
	case 0x3D4, 0x3B4:
		return 0
	case 0x3D5, 0x3B5:
		return c.CRTC.ReadData()
	case 0x3DA, 0x3BA:
		v := byte(0)
		if !c.CRTC.DisplayEnable {
			v |= 0x01
		}
		if c.CRTC.VSync {
			v |= 0x08
		}
		c.attrFlipFlop = false
		return v
	}
	return 0xFF
}

func (c *Card) WriteIO(port uint16, value uint8) {
	switch port {
	case 0x3C4:
		c.seqIndex = value
	case 0x3C5:
		c.seq[c.seqIndex%uint8(len(c.seq))] = value
	case 0x3CE:
		c.gfxIndex = value
	case 0x3CF:
		c.gfx[c.gfxIndex%uint8(len(c.gfx))] = value
	case 0x3C0:
		if !c.attrFlipFlop {
			c.attrIndex = value & 0x1F
		} else {
			c.attr[c.attrIndex%uint8(len(c.attr))] = value
		}
		c.attrFlipFlop = !c.attrFlipFlop
	case 0x3D4, 0x3B4:
		c.CRTC.SelectRegister(value)
	case 0x3D5, 0x3B5:
		c.CRTC.WriteData(value)
		if c.CRTC.Register(crtc.RegVertSyncPos) != 0 {
			// nothing to do: onVSync latches the vertical-retrace IRQ on
			// every VSYNC, independent of this register
		}
	}
}

// selectedPlanes returns the bitmask of planes the sequencer's map mask
// register enables for CPU writes (planar memory model).
func (c *Card) selectedPlanes() uint8 {
	return c.seq[SeqMapMask]
}

func (c *Card) ReadMMIO(addr uint32) uint8 {
	off := addr % planeSize
	plane := c.gfx[GfxReadMapSel] & 0x03
	return c.vram[plane][off]
}

func (c *Card) WriteMMIO(addr uint32, v uint8) {
	off := addr % planeSize
	mask := c.selectedPlanes()
	for p := 0; p < 4; p++ {
		if mask&(1<<uint(p)) != 0 {
			c.vram[p][off] = v
		}
	}
}

func (c *Card) IRQLine() bool {
	pending := c.vsyncIRQPending
	return pending
}

func (c *Card) onVSync() {
	c.front, c.back = c.back, c.front
	c.vsyncIRQPending = true
}

// AckVSyncIRQ clears the latched vertical-retrace interrupt, called by
// the ISR the BIOS/OS installs on IRQ2.
func (c *Card) AckVSyncIRQ() { c.vsyncIRQPending = false }

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

	// line-compare register (CRTC regs used as an EGA/VGA split-screen
	// extension rather than a true 6845 register) restarts the
	// display-memory row counter once the scanline crosses it.
	effectiveStart := c.CRTC.StartAddress()
	if uint16(y) > c.lineCompare {
		effectiveStart = 0
	}

	panning := c.attr[AttrPelPanning] & 0x0F
	graphicsMode := c.gfx[GfxMode]&0x03 != 0

	if !graphicsMode {
		c.renderTextScanline(y, rowChars, charScanline, effectiveStart)
		return
	}
	c.renderGraphicsScanline(y, effectiveStart, panning)
}

func (c *Card) renderTextScanline(y, rowChars, lineInRow int, start uint16) {
	cols := int(c.CRTC.Register(crtc.RegHorizDisplayed))
	row := y / rowChars
	for col := 0; col < cols; col++ {
		addr := (uint32(start) + uint32(row*cols+col)) % planeSize
		ch := c.vram[0][addr]
		attrByte := c.vram[1][addr]
		fg := c.attr[attrByte&0x0F]
		bg := c.attr[(attrByte>>4)&0x0F]
		bit := font8x8(ch, lineInRow)
		for px := 0; px < 8; px++ {
			idx := bg
			if bit&(0x80>>uint(px)) != 0 {
				idx = fg
			}
			v := idx * 16
			c.back.SetPixel(col*8+px, y, v, v, v, 255)
		}
	}
}

func (c *Card) renderGraphicsScanline(y int, start uint16, panning uint8) {
	width := c.back.Width
	bytesPerRow := width / 8
	rowBase := uint32(start) + uint32(y*bytesPerRow)
	for byteX := 0; byteX < bytesPerRow; byteX++ {
		addr := (rowBase + uint32(byteX)) % planeSize
		for bit := 0; bit < 8; bit++ {
			var idx uint8
			for p := 0; p < 4; p++ {
				b := c.vram[p][addr]
				if b&(0x80>>uint(bit)) != 0 {
					idx |= 1 << uint(p)
				}
			}
			pal := c.attr[idx&0x0F]
			v := pal * 16
			x := byteX*8 + bit - int(panning)
			c.back.SetPixel(x, y, v, v, v, 255)
		}
	}
}

func font8x8(ch byte, line int) byte {
	if line >= 6 && ch != 0x20 && ch != 0 {
		return 0xFF
	}
	return 0x00
}
