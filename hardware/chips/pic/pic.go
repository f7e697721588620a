// Package pic implements the Intel 8259 Programmable Interrupt Controller:
// IRR/ISR/IMR state, ICW/OCW initialization, and the INTA-ignores-IMR
// semantics of a real 8259. Grounded on
// other_examples/BigBossBoolingB-VDATABPro__pic_constants.go for the
// ICW/OCW bit layout and other_examples/bobuhiro11-tiny_x86_emu__pic.go
// for the IRR/ISR priority-resolution shape, generalized from their
// single-shot register pokes into a tickable bus.Device that the
// scheduler drives every system tick.
package pic

import "github.com/dbalsom/martypc/logger"

const (
	CommandPort = 0x20
	DataPort    = 0x21
)

// icwStep tracks which initialization-command-word the controller expects
// next after OCW/ICW1 sequencing begins.
type icwStep int

const (
	stepNone icwStep = iota
	stepICW2
	stepICW3
	stepICW4
)

// PIC is one Intel 8259. MartyPC-go wires a single controller, the IBM
// PC/XT configuration.
type PIC struct {
	IRR, ISR, IMR uint8
	vectorBase    uint8
	autoEOI       bool
	levelTriggered bool

	icw4Expected bool
	step         icwStep

	inInterruptAck bool

	lines uint8 // last sampled level of each IR line
}

func NewPIC() *PIC {
	return &PIC{IMR: 0xFF}
}

// SetIRQLine raises or lowers one of the eight IR lines, the scheduler's
// per-tick IRQ-line sample. Edge-triggered mode (the IBM PC/XT default) latches
// IRR on a 0->1 transition and never clears it on a 1->0 transition;
// level-triggered mode sets IRR while the line is high and clears it when
// the line is low.
func (p *PIC) SetIRQLine(irq int, level bool) {
	bit := uint8(1) << uint(irq&7)
	if level {
		if p.levelTriggered || p.lines&bit == 0 {
			p.IRR |= bit
		}
		p.lines |= bit
	} else {
		p.lines &^= bit
		if p.levelTriggered {
			p.IRR &^= bit
		}
	}
}

// AssertsINTR reports whether any unmasked, unserviced IRQ is pending —
// the condition the scheduler checks each tick before raising INTR into
// the CPU.
func (p *PIC) AssertsINTR() bool {
	return p.IRR&^p.IMR&^p.ISR != 0
}

// highestPriority returns the lowest-numbered (highest priority) pending,
// unmasked, unserviced IRQ line, or -1 if none.
func (p *PIC) highestPriority() int {
	pending := p.IRR &^ p.IMR &^ p.ISR
	for i := 0; i < 8; i++ {
		if pending&(1<<uint(i)) != 0 {
			return i
		}
	}
	return -1
}

// InterruptAck runs the documented two-cycle INTA protocol: the first
// cycle is a no-op from the PIC's perspective, the second returns the
// offset configured by ICW2 plus the highest-priority bit in IRR. IMR is
// not consulted again once INTA has begun.
func (p *PIC) InterruptAck() uint8 {
	irq := -1
	pending := p.IRR &^ p.ISR
	for i := 0; i < 8; i++ {
		if pending&(1<<uint(i)) != 0 {
			irq = i
			break
		}
	}
	if irq < 0 {
		return p.vectorBase
	}
	bit := uint8(1) << uint(irq)
	if !p.levelTriggered {
		p.IRR &^= bit
	}
	p.ISR |= bit
	logger.Logf("PIC", "INTA irq=%d vector=%#02x", irq, p.vectorBase+uint8(irq))
	return p.vectorBase + uint8(irq)
}

// ReadIO implements bus.Device for ports 0x20/0x21.
func (p *PIC) ReadIO(port uint16) uint8 {
	switch port {
	case CommandPort:
		return p.IRR
	case DataPort:
		return p.IMR
	}
	return 0xFF
}

// WriteIO implements bus.Device, dispatching ICW/OCW writes.
func (p *PIC) WriteIO(port uint16, value uint8) {
	switch port {
	case CommandPort:
		p.writeCommand(value)
	case DataPort:
		p.writeData(value)
	}
}

func (p *PIC) writeCommand(value uint8) {
	switch {
	case value&0x10 != 0: // ICW1
		p.step = stepICW2
		p.icw4Expected = value&0x01 != 0
		p.levelTriggered = value&0x08 != 0
		p.IMR = 0
		p.ISR = 0
	case value&0x18 == 0x00: // OCW2: EOI and priority rotation commands
		if value&0x60 == 0x20 { // non-specific EOI
			if irq := p.highestServiced(); irq >= 0 {
				p.ISR &^= 1 << uint(irq)
			}
		} else if value&0x60 == 0x60 { // specific EOI
			p.ISR &^= 1 << uint(value&0x07)
		}
	case value&0x18 == 0x08: // OCW3
		// read-register select / poll command; no readback state kept
	}
}

func (p *PIC) highestServiced() int {
	for i := 0; i < 8; i++ {
		if p.ISR&(1<<uint(i)) != 0 {
			return i
		}
	}
	return -1
}

func (p *PIC) writeData(value uint8) {
	switch p.step {
	case stepICW2:
		p.vectorBase = value &^ 0x07
		if p.icw4Expected {
			p.step = stepICW4
		} else {
			p.step = stepNone
		}
		// single-controller IBM PC/XT config: no cascaded ICW3 step
		_ = stepICW3
	case stepICW4:
		p.autoEOI = value&0x02 != 0
		p.step = stepNone
	default:
		p.IMR = value
	}
}

// Tick is a no-op: the 8259 has no internal countdown, only edge/level
// sampling driven by SetIRQLine. Present to satisfy bus.Device.
func (p *PIC) Tick(n int) {}

func (p *PIC) ReadMMIO(addr uint32) uint8     { return 0xFF }
func (p *PIC) WriteMMIO(addr uint32, v uint8) {}
func (p *PIC) IRQLine() bool                  { return false }
func (p *PIC) DMARequest() bool               { return false }
