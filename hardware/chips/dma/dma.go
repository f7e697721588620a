// Package dma implements the Intel 8237 DMA controller: four channels,
// with channel 0 wired to the DRAM refresh request the BIU samples each
// bus cycle. Transfers are "faked": a channel's byte count
// moves atomically but the bus cycles it would have taken are still
// charged through Tick, per "transfers don't move real bytes
// cycle-by-cycle, but still cost bus cycles" rule. Grounded on
// hardware/bus's wait-state-charging model and
// other_examples/andreas-jonsson-virtualxt__cpu.go's stats.RX/TX
// cycle-charge idiom, generalized into a four-channel register file.
package dma

import "github.com/dbalsom/martypc/hardware/bus"

const (
	channelCount = 4

	// refreshPeriod is the number of system ticks between successive DRAM
	// refresh requests on channel 0, approximating the 15us/4.77MHz PC/XT
	// refresh cadence closely enough for the scheduler's bus-contention
	// model.
	refreshPeriod = 72
)

// Mode bits of the 8237's mode register, channel-indexed.
const (
	ModeVerify = 0
	ModeWrite  = 1
	ModeRead   = 2
)

type channel struct {
	baseAddr, currentAddr uint16
	baseCount, currentCount uint16
	mode       uint8
	masked     bool
	autoInit   bool
	decrement  bool
	terminalCount bool
}

// DMA is one Intel 8237. MartyPC-go models a single controller (no
// cascaded second 8237, since the PC/XT has none), channel 0 reserved for
// DRAM refresh.
type DMA struct {
	bus.NullDevice

	channels [channelCount]channel

	flipFlop bool // low/high byte toggle for 16-bit address/count ports

	refreshCounter int
	refreshDue     bool

	statusReq  uint8
	command    uint8
}

func NewDMA() *DMA {
	d := &DMA{}
	d.channels[0].masked = false
	return d
}

// Due reports whether a DRAM refresh cycle is pending, consulted by the
// BIU's busCycle on every bus transaction. Implements
// cpu.RefreshController.
func (d *DMA) Due() bool { return d.refreshDue }

// Consume acknowledges the pending refresh request, clearing it until the
// next refreshPeriod elapses.
func (d *DMA) Consume() { d.refreshDue = false }

// Tick advances the refresh timer. Each time a refresh falls due, channel
// 0's current address increments and its count decrements (unless the
// channel is masked), mirroring a real transfer.
func (d *DMA) Tick(n int) {
	d.refreshCounter += n
	for d.refreshCounter >= refreshPeriod {
		d.refreshCounter -= refreshPeriod
		d.refreshDue = true
		d.serviceRefresh()
	}
}

func (d *DMA) serviceRefresh() {
	ch := &d.channels[0]
	if ch.masked {
		return
	}
	ch.currentAddr++
	if ch.currentCount == 0 {
		ch.terminalCount = true
		if ch.autoInit {
			ch.currentAddr = ch.baseAddr
			ch.currentCount = ch.baseCount
		}
	} else {
		ch.currentCount--
	}
}

// RequestTransfer services n bytes on a non-refresh channel atomically,
// used by FDC/HDC stand-ins ("transfers are faked"). Callers still
// charge bus cycles to the scheduler themselves via Tick.
func (d *DMA) RequestTransfer(channelNum int, bytes int) {
	if channelNum < 1 || channelNum >= channelCount {
		return
	}
	ch := &d.channels[channelNum]
	for i := 0; i < bytes && ch.currentCount > 0; i++ {
		ch.currentAddr++
		ch.currentCount--
	}
	if ch.currentCount == 0 {
		ch.terminalCount = true
		if ch.autoInit {
			ch.currentAddr = ch.baseAddr
			ch.currentCount = ch.baseCount
		}
	}
}

// Port layout matches the IBM PC/XT's single 8237 at 0x00-0x0F: 0x00-0x07
// read back each channel's current address and count, 0x08 the status
// register. The page registers at 0x81-0x83 are not modelled.
func (d *DMA) ReadIO(port uint16) uint8 {
	if port <= 0x07 {
		ch := int(port/2) % channelCount
		low := port%2 == 0
		c := &d.channels[ch]
		var v uint16
		if low {
			v = c.currentAddr
		} else {
			v = c.currentCount
		}
		var b uint8
		if !d.flipFlop {
			b = uint8(v)
		} else {
			b = uint8(v >> 8)
		}
		d.flipFlop = !d.flipFlop
		return b
	}
	if port == 0x08 {
		return d.statusReq
	}
	return 0xFF
}

func (d *DMA) WriteIO(port uint16, value uint8) {
	switch {
	case port <= 0x07 && port%2 == 0:
		ch := int(port / 2)
		c := &d.channels[ch]
		if !d.flipFlop {
			c.baseAddr = (c.baseAddr &^ 0xFF) | uint16(value)
		} else {
			c.baseAddr = (c.baseAddr & 0xFF) | uint16(value)<<8
			c.currentAddr = c.baseAddr
		}
		d.flipFlop = !d.flipFlop
	case port <= 0x07 && port%2 == 1:
		ch := int(port / 2)
		c := &d.channels[ch]
		if !d.flipFlop {
			c.baseCount = (c.baseCount &^ 0xFF) | uint16(value)
		} else {
			c.baseCount = (c.baseCount & 0xFF) | uint16(value)<<8
			c.currentCount = c.baseCount
		}
		d.flipFlop = !d.flipFlop
	case port == 0x08:
		d.command = value
	case port == 0x09:
		ch := int(value & 0x03)
		d.channels[ch].masked = value&0x04 != 0
	case port == 0x0A:
		ch := int(value & 0x03)
		d.channels[ch].masked = value&0x04 != 0
	case port == 0x0B:
		ch := int(value & 0x03)
		c := &d.channels[ch]
		c.mode = (value >> 2) & 0x03
		c.autoInit = value&0x10 != 0
		c.decrement = value&0x20 != 0
	case port == 0x0C:
		d.flipFlop = false
	case port == 0x0D:
		for i := range d.channels {
			d.channels[i] = channel{}
		}
	case port == 0x0E:
		for i := range d.channels {
			d.channels[i].masked = false
		}
	case port == 0x0F:
		for i := 0; i < channelCount; i++ {
			d.channels[i].masked = value&(1<<uint(i)) != 0
		}
	}
}

func (d *DMA) IRQLine() bool    { return false }
func (d *DMA) DMARequest() bool { return !d.channels[0].masked }
