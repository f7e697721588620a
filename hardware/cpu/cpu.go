// Package cpu implements the 8088 (and NEC V20) Bus Interface Unit plus
// Execution Unit: table-driven decode, a T-cycle-precise
// BIU, and a microcode-style EU that charges every operand fetch/store to
// the shared system clock via the tickFn callback supplied by the device
// scheduler. The "CPU owns registers, decode table, and delegates
// bus access to a BIU" split is grounded on gopher2600/hardware/cpu.CPU,
// generalized from the 6502's single flat bus to the 8086's BIU/EU
// separation and segmented addressing.
package cpu

import (
	"github.com/dbalsom/martypc/hardware/bus"
	"github.com/dbalsom/martypc/hardware/cpu/execution"
	"github.com/dbalsom/martypc/hardware/cpu/registers"
)

// CPUType selects the decode/cycle table. V20 support is carried but is
// explicitly not cycle-accurate.
type CPUType int

const (
	Intel8088 CPUType = iota
	NECV20
)

// HaltBehavior controls what happens when the CPU detects an invalid or
// off-rails condition.
type HaltBehavior int

const (
	Continue HaltBehavior = iota
	Warn
	Stop
)

// HaltReason explains why Halted became true outside of a plain HLT
// instruction.
type HaltReason int

const (
	HaltNone HaltReason = iota
	HaltInstruction
	HaltOffRails
	HaltBreakpoint
	HaltInvalidOpcode
)

// PIC is the minimal interface the CPU needs from the interrupt
// controller: whether it currently asserts INTR, and the INTA response.
type PIC interface {
	AssertsINTR() bool
	InterruptAck() uint8
}

// CPU is the 8088/V20 core: architectural state plus the BIU it drives.
type CPU struct {
	Type CPUType

	AX, CX, DX, BX     *registers.GPR
	SP, BP, SI, DI      *registers.Word
	CS, DS, ES, SS      *registers.Word
	IP                  uint16
	Flags               registers.Flags

	biu *BIU
	pic PIC

	segOverrideActive bool
	segOverrideValue  uint16
	repActive         bool
	repne             bool
	lockActive        bool

	// stringContinue/stringOpcode carry a REP-prefixed string instruction
	// across StepInstruction calls: each call executes one element without
	// re-fetching the opcode or its prefixes (re-entrant string step).
	stringContinue bool
	stringOpcode   uint8

	Halted       bool
	HaltReason   HaltReason
	OnHalt       HaltBehavior
	OffRailsRun  int
	offRailsSeen int

	NMILatched   bool
	TrapArmed    bool
	trapPending  bool

	ServiceInterrupt bool

	LastResult execution.Result

	cyclesThisInstr int
	tagsThisInstr   []execution.EventTag
}

// NewCPU constructs a CPU wired to bus b and the given interrupt
// controller. The prefetch queue capacity follows cpuType: 4 bytes for the
// 8088, 6 for the NEC V20.
func NewCPU(b *bus.Bus, refr RefreshController, pic PIC, cpuType CPUType) *CPU {
	cap := 4
	if cpuType == NECV20 {
		cap = 6
	}
	c := &CPU{
		Type: cpuType,
		AX:   registers.NewGPR(0, "AX"),
		CX:   registers.NewGPR(0, "CX"),
		DX:   registers.NewGPR(0, "DX"),
		BX:   registers.NewGPR(0, "BX"),
		SP:   registers.NewWord(0, "SP"),
		BP:   registers.NewWord(0, "BP"),
		SI:   registers.NewWord(0, "SI"),
		DI:   registers.NewWord(0, "DI"),
		CS:   registers.NewWord(0xFFFF, "CS"),
		DS:   registers.NewWord(0, "DS"),
		ES:   registers.NewWord(0, "ES"),
		SS:   registers.NewWord(0, "SS"),
		biu:  NewBIU(b, refr, cap),
		pic:  pic,
	}
	return c
}

// Reset reinitialises architectural state to the documented 8086 power-up
// values: CS=FFFFh, IP=0000h, flags clear, prefetch queue empty.
func (c *CPU) Reset() {
	c.AX.Load(0)
	c.CX.Load(0)
	c.DX.Load(0)
	c.BX.Load(0)
	c.SP.Load(0)
	c.BP.Load(0)
	c.SI.Load(0)
	c.DI.Load(0)
	c.CS.Load(0xFFFF)
	c.DS.Load(0)
	c.ES.Load(0)
	c.SS.Load(0)
	c.IP = 0
	c.Flags = registers.NewFlags()
	c.Halted = false
	c.HaltReason = HaltNone
	c.NMILatched = false
	c.TrapArmed = false
	c.trapPending = false
	c.biu.Flush()
	c.LastResult.Reset()
	c.offRailsSeen = 0
}

// codeAddr returns the 20-bit physical address of the next code byte.
func (c *CPU) codeAddr() uint32 {
	return (uint32(c.CS.Value()) << 4) + uint32(c.IP)
}

func (c *CPU) advanceIP(n uint16) {
	c.IP += n
}

func (c *CPU) chargeCycles(n int) {
	c.cyclesThisInstr += n
}

func (c *CPU) tag(t execution.EventTag) {
	c.tagsThisInstr = append(c.tagsThisInstr, t)
}

// flushPrefetch clears the prefetch queue, as required on any write to
// CS:IP.
func (c *CPU) flushPrefetch() {
	c.biu.Flush()
}

// jumpNear sets IP within the current CS and flushes prefetch.
func (c *CPU) jumpNear(ip uint16) {
	c.IP = ip
	c.flushPrefetch()
}

// jumpFar sets CS:IP and flushes prefetch.
func (c *CPU) jumpFar(cs, ip uint16) {
	c.CS.Load(cs)
	c.IP = ip
	c.flushPrefetch()
}

// reg8 returns the 8-bit register (get, set) pair aliased by a ModR/M
// register-field value (0-7: AL,CL,DL,BL,AH,CH,DH,BH).
func (c *CPU) reg8(field uint8) (func() uint8, func(uint8)) {
	switch field & 7 {
	case 0:
		return c.AX.Lo, c.AX.SetLo
	case 1:
		return c.CX.Lo, c.CX.SetLo
	case 2:
		return c.DX.Lo, c.DX.SetLo
	case 3:
		return c.BX.Lo, c.BX.SetLo
	case 4:
		return c.AX.Hi, c.AX.SetHi
	case 5:
		return c.CX.Hi, c.CX.SetHi
	case 6:
		return c.DX.Hi, c.DX.SetHi
	default:
		return c.BX.Hi, c.BX.SetHi
	}
}

// reg16 returns the 16-bit register aliased by a ModR/M register-field
// value (0-7: AX,CX,DX,BX,SP,BP,SI,DI).
func (c *CPU) reg16(field uint8) *registers.Word {
	switch field & 7 {
	case 0:
		return &c.AX.Word
	case 1:
		return &c.CX.Word
	case 2:
		return &c.DX.Word
	case 3:
		return &c.BX.Word
	case 4:
		return c.SP
	case 5:
		return c.BP
	case 6:
		return c.SI
	default:
		return c.DI
	}
}

// segReg returns the segment register selected by a MOV seg/PUSH seg
// opcode's 2-bit field (0=ES,1=CS,2=SS,3=DS).
func (c *CPU) segReg(field uint8) *registers.Word {
	switch field & 3 {
	case 0:
		return c.ES
	case 1:
		return c.CS
	case 2:
		return c.SS
	default:
		return c.DS
	}
}

// BIU exposes the bus interface unit for instrumentation and the
// Machine's device wiring.
func (c *CPU) BIU() *BIU { return c.biu }
