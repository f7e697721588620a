// Package ppi implements the Intel 8255 Programmable Peripheral
// Interface as wired on the IBM PC/XT: port A is the keyboard
// shift-register input, port B's low nibble gates the PIT speaker channel
// and the cassette/turbo bits, port C reads one DIP-switch nibble and the
// keyboard-ready bit (bit 4); the speaker feedback, parity and
// I-O-channel-check lines are not modelled and read as 0. PCjr/Tandy variants
// additionally raise an NMI on keypress, modeled as an optional line
// sampled by the scheduler. Grounded on gopher2600/hardware/riot/ports's
// keyboard-vs-joystick read multiplexing, generalized to the 8255's group
// mode control register.
package ppi

import "github.com/dbalsom/martypc/hardware/bus"

// GroupMode mirrors the 8255 control byte's group A/B mode bits, kept for
// completeness even though the PC/XT BIOS only ever programs mode 0.
type GroupMode uint8

const (
	ModeBasicIO GroupMode = iota
	ModeStrobedIO
	ModeBidirectional
)

// PPI is one Intel 8255, wired per the IBM PC/XT motherboard schematic.
type PPI struct {
	bus.NullDevice

	control uint8

	keyboardData uint8
	keyboardReady bool

	portBLatch uint8

	dipSwitches uint8

	nmiOnKeypress bool
	nmiPending    bool
}

func NewPPI() *PPI {
	return &PPI{dipSwitches: 0xFF}
}

// EnableTandyNMI toggles the PCjr/Tandy keypress-NMI behaviour.
func (p *PPI) EnableTandyNMI(enabled bool) { p.nmiOnKeypress = enabled }

// PushScanCode latches a keyboard scan code into port A and, if enabled,
// raises the keyboard-ready bit in port C (bit 4) / the NMI line.
func (p *PPI) PushScanCode(code uint8) {
	p.keyboardData = code
	p.keyboardReady = true
	if p.nmiOnKeypress {
		p.nmiPending = true
	}
}

// AckKeyboard clears the keyboard-ready latch, mirroring the BIOS's
// "pulse bit 7 of port B high then low" acknowledgement sequence.
func (p *PPI) AckKeyboard() {
	p.keyboardReady = false
}

// NMIPending reports and clears a latched PCjr/Tandy keypress NMI request
// for the scheduler to deliver.
func (p *PPI) NMIPending() bool {
	v := p.nmiPending
	p.nmiPending = false
	return v
}

// SpeakerGate reports whether port B currently gates the PIT's speaker
// channel on (bit 0) and whether the speaker data bit (bit 1) is being
// driven directly, the two controls PC-speaker output needs.
func (p *PPI) SpeakerGate() (gateOn, dataOn bool) {
	return p.portBLatch&0x01 != 0, p.portBLatch&0x02 != 0
}

// SetDIPSwitches programs the readback value of port C's switch bank,
// used by config/romset to express installed-equipment bits.
func (p *PPI) SetDIPSwitches(v uint8) { p.dipSwitches = v }

func (p *PPI) ReadIO(port uint16) uint8 {
	switch port & 0x03 {
	case 0: // port A: keyboard data, unless port B bit 7 selects the
		// alternate "low switches" readback some PPI wirings support.
		if p.portBLatch&0x80 != 0 {
			return p.dipSwitches & 0x0F
		}
		return p.keyboardData
	case 1: // port B: write-only latch read back as last written
		return p.portBLatch
	case 2: // port C: switch nibble / keyboard-ready
		var v uint8
		if p.portBLatch&0x04 != 0 {
			v |= p.dipSwitches >> 4 & 0x0F
		} else {
			v |= p.dipSwitches & 0x0F
		}
		if p.keyboardReady {
			v |= 0x10
		}
		return v
	case 3:
		return p.control
	}
	return 0xFF
}

func (p *PPI) WriteIO(port uint16, value uint8) {
	switch port & 0x03 {
	case 0:
		// port A is an input in the PC/XT wiring; writes are ignored.
	case 1:
		p.portBLatch = value
		if value&0x80 != 0 {
			p.AckKeyboard()
		}
	case 2:
		// port C is an input in the PC/XT wiring; writes are ignored.
	case 3:
		p.control = value
	}
}

func (p *PPI) IRQLine() bool    { return false }
func (p *PPI) DMARequest() bool { return false }
