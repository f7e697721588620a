package cpu

import (
	"fmt"

	"github.com/dbalsom/martypc/hardware/cpu/execution"
	"github.com/dbalsom/martypc/hardware/cpu/instructions"
	"github.com/dbalsom/martypc/hardware/cpu/registers"
)

// StepInstruction decodes and executes exactly one instruction, or one
// iteration of a REP-prefixed string instruction (re-entrant string
// step), charging every cycle to tickFn as it happens so the caller's
// device scheduler stays in lockstep. It always returns a
// populated Result, even when the CPU is halted or an off-rails condition
// is detected.
func (c *CPU) StepInstruction(tickFn func(n int), entryTick uint64) execution.Result {
	c.cyclesThisInstr = 0
	c.tagsThisInstr = nil

	if c.checkInterrupts(tickFn) {
		c.stringContinue = false
		return c.finish(entryTick, tickFn, "", true)
	}

	if c.Halted {
		tickFn(1)
		c.cyclesThisInstr++
		return c.finish(entryTick, tickFn, "HLT", false)
	}

	if c.stringContinue {
		startAddr := c.codeAddr()
		def := instructions.Table[c.stringOpcode]
		err := c.execute(c.stringOpcode, def, def.Mnemonic, tickFn)
		res := c.finish(entryTick, tickFn, def.Mnemonic, false)
		res.Address = startAddr
		if err != "" {
			res.Error = err
		}
		return res
	}

	c.segOverrideActive = false
	c.repActive = false
	c.repne = false
	c.lockActive = false

	startAddr := c.codeAddr()

	opcode := c.fetch(tickFn)
	for instructions.IsPrefix(opcode) {
		switch opcode {
		case 0xF0:
			c.lockActive = true
		case 0xF2:
			c.repActive = true
			c.repne = true
		case 0xF3:
			c.repActive = true
			c.repne = false
		default:
			if seg, ok := instructions.SegmentOverride(opcode); ok {
				c.segOverrideActive = true
				c.segOverrideValue = c.segRegForOverride(seg).Value()
			}
		}
		opcode = c.fetch(tickFn)
	}

	def := instructions.Table[opcode]
	if def.Mnemonic == "" {
		c.offRailsSeen++
		if c.OffRailsRun > 0 && c.offRailsSeen >= c.OffRailsRun {
			c.Halted = true
			c.HaltReason = HaltOffRails
		}
		return c.finish(entryTick, tickFn, fmt.Sprintf("??? (%#02x)", opcode), false)
	}
	c.offRailsSeen = 0

	mnemonic := def.Mnemonic
	err := c.execute(opcode, def, mnemonic, tickFn)
	final := c.Halted && c.HaltReason == HaltInstruction

	res := c.finish(entryTick, tickFn, mnemonic, final)
	res.Address = startAddr
	if err != "" {
		res.Error = err
	}
	return res
}

func (c *CPU) fetch(tickFn func(n int)) uint8 {
	v, cyc := c.biu.FetchCodeByte(c.codeAddr(), tickFn)
	c.advanceIP(1)
	c.chargeCycles(cyc)
	return v
}

func (c *CPU) fetch16(tickFn func(n int)) uint16 {
	lo := c.fetch(tickFn)
	hi := c.fetch(tickFn)
	return uint16(lo) | uint16(hi)<<8
}

func (c *CPU) segRegForOverride(s instructions.Segment) *registers.Word {
	switch s {
	case instructions.SegES:
		return c.ES
	case instructions.SegCS:
		return c.CS
	case instructions.SegSS:
		return c.SS
	default:
		return c.DS
	}
}

func (c *CPU) finish(entryTick uint64, tickFn func(n int), mnemonic string, final bool) execution.Result {
	r := execution.Result{
		CSBase:     c.CS.Value(),
		IP:         c.IP,
		Mnemonic:   mnemonic,
		EntryCycle: entryTick,
		ExitCycle:  entryTick + uint64(c.cyclesThisInstr),
		Cycles:     c.cyclesThisInstr,
		Tags:       c.tagsThisInstr,
		Final:      final,
	}
	c.LastResult = r
	return r
}

func (c *CPU) push16(v uint16, tickFn func(n int)) {
	c.SP.Load(c.SP.Value() - 2)
	addr := (uint32(c.SS.Value()) << 4) + uint32(c.SP.Value())
	cyc := c.biu.WriteMem(addr, uint8(v), tickFn)
	c.chargeCycles(cyc)
	cyc = c.biu.WriteMem(addr+1, uint8(v>>8), tickFn)
	c.chargeCycles(cyc)
}

func (c *CPU) pop16(tickFn func(n int)) uint16 {
	addr := (uint32(c.SS.Value()) << 4) + uint32(c.SP.Value())
	lo, cyc := c.biu.ReadMem(addr, tickFn)
	c.chargeCycles(cyc)
	hi, cyc2 := c.biu.ReadMem(addr+1, tickFn)
	c.chargeCycles(cyc2)
	c.SP.Load(c.SP.Value() + 2)
	return uint16(lo) | uint16(hi)<<8
}

// checkInterrupts samples pending traps/NMI/INTR at instruction boundaries:
// STI delays interrupt sampling by one instruction, and a trap fires
// after the instruction that set TF completes. Returns true if control was
// transferred to a handler, meaning the caller's Result should be treated
// as a completed step with no opcode fetched this cycle.
func (c *CPU) checkInterrupts(tickFn func(n int)) bool {
	if c.NMILatched {
		c.NMILatched = false
		c.Halted = false
		c.enterInterrupt(2, tickFn)
		c.tag(execution.TagNMI)
		return true
	}
	if c.trapPending && c.Flags.Trap {
		c.trapPending = false
		c.Halted = false
		c.enterInterrupt(1, tickFn)
		c.tag(execution.TagTrap)
		return true
	}
	c.trapPending = c.Flags.Trap
	if c.Flags.Interrupt && c.LastResult.Mnemonic != "STI" && c.pic != nil && c.pic.AssertsINTR() {
		c.Halted = false
		vec, cyc := c.biu.InterruptAck(c.pic, tickFn)
		c.chargeCycles(cyc)
		c.enterInterrupt(vec, tickFn)
		c.tag(execution.TagHardwareIRQ)
		return true
	}
	return false
}

// enterInterrupt performs the documented INT microcode: push flags, clear
// IF and TF, push CS:IP, load the vector from the interrupt table at
// physical address vec*4 (the real-mode IVT, always addressed via
// segment 0 regardless of DS/ES).
func (c *CPU) enterInterrupt(vec uint8, tickFn func(n int)) {
	c.push16(c.Flags.ToUint16(), tickFn)
	c.Flags.Interrupt = false
	c.Flags.Trap = false
	c.push16(c.CS.Value(), tickFn)
	c.push16(c.IP, tickFn)
	base := uint32(vec) * 4
	lo, cyc := c.biu.ReadMem(base, tickFn)
	c.chargeCycles(cyc)
	hi, cyc2 := c.biu.ReadMem(base+1, tickFn)
	c.chargeCycles(cyc2)
	ip := uint16(lo) | uint16(hi)<<8
	lo2, cyc3 := c.biu.ReadMem(base+2, tickFn)
	c.chargeCycles(cyc3)
	hi2, cyc4 := c.biu.ReadMem(base+3, tickFn)
	c.chargeCycles(cyc4)
	cs := uint16(lo2) | uint16(hi2)<<8
	c.IP = ip
	c.CS.Load(cs)
	c.flushPrefetch()
}

// RaiseNMI latches a non-maskable interrupt for sampling on the next
// instruction boundary.
func (c *CPU) RaiseNMI() { c.NMILatched = true }

// execute dispatches one already-decoded instruction. Returns a non-empty
// error string only for conditions worth reporting (e.g. division
// overflow), never for ordinary execution.
func (c *CPU) execute(opcode uint8, def instructions.Definition, mnemonic string, tickFn func(n int)) string {
	switch mnemonic {
	case "NOP":
		return ""
	case "HLT":
		c.Halted = true
		c.HaltReason = HaltInstruction
		return ""
	case "WAIT":
		return ""
	case "CLC":
		c.Flags.Carry = false
	case "STC":
		c.Flags.Carry = true
	case "CMC":
		c.Flags.Carry = !c.Flags.Carry
	case "CLI":
		c.Flags.Interrupt = false
	case "STI":
		c.Flags.Interrupt = true
	case "CLD":
		c.Flags.Direction = false
	case "STD":
		c.Flags.Direction = true
	case "MOV":
		return c.execMOV(opcode, def, tickFn)
	case "PUSH":
		return c.execPUSH(opcode, def, tickFn)
	case "POP":
		return c.execPOP(opcode, def, tickFn)
	case "XCHG":
		return c.execXCHG(opcode, def, tickFn)
	case "LEA":
		m := c.decodeModRM(tickFn)
		c.reg16(m.Reg).Load(m.EffAddr)
	case "LES", "LDS":
		return c.execLxS(mnemonic, tickFn)
	case "PUSHF":
		c.push16(c.Flags.ToUint16(), tickFn)
	case "POPF":
		c.Flags.FromUint16(c.pop16(tickFn))
	case "SAHF":
		c.Flags.FromUint16((c.Flags.ToUint16() & 0xFF00) | uint16(c.AX.Hi()))
	case "LAHF":
		c.AX.SetHi(uint8(c.Flags.ToUint16()))
	case "ADD", "OR", "ADC", "SBB", "AND", "SUB", "XOR", "CMP":
		return c.execArith(mnemonic, opcode, def, tickFn)
	case "GRP1":
		return c.execGrp1(opcode, def, tickFn)
	case "GRP2":
		return c.execGrp2(opcode, def, tickFn)
	case "GRP2S":
		return c.execGrp2S(opcode, def, tickFn)
	case "GRP3":
		return c.execGrp3(opcode, def, tickFn)
	case "INC", "DEC":
		return c.execIncDec(mnemonic, opcode, def, tickFn)
	case "CBW":
		if c.AX.Lo()&0x80 != 0 {
			c.AX.SetHi(0xFF)
		} else {
			c.AX.SetHi(0)
		}
	case "CWD":
		if c.AX.Value()&0x8000 != 0 {
			c.DX.Load(0xFFFF)
		} else {
			c.DX.Load(0)
		}
	case "AAA":
		c.execAAA()
	case "AAS":
		c.execAAS()
	case "AAM":
		return c.execAAM(tickFn)
	case "AAD":
		c.execAAD(tickFn)
	case "SALC":
		if c.Flags.Carry {
			c.AX.SetLo(0xFF)
		} else {
			c.AX.SetLo(0)
		}
	case "CALL", "CALLF", "RET", "RETF", "JMP", "JMPF":
		return c.execControlTransfer(mnemonic, opcode, def, tickFn)
	case "JO", "JNO", "JB", "JNB", "JZ", "JNZ", "JBE", "JNBE",
		"JS", "JNS", "JP", "JNP", "JL", "JNL", "JLE", "JNLE":
		c.execJcc(mnemonic, tickFn)
	case "LOOP", "LOOPE", "LOOPNE", "JCXZ":
		c.execLoop(mnemonic, tickFn)
	case "INT3":
		c.enterInterrupt(3, tickFn)
	case "INT":
		vec := c.fetch(tickFn)
		if vec == 0xFC {
			c.ServiceInterrupt = true
		}
		c.enterInterrupt(vec, tickFn)
	case "INTO":
		if c.Flags.Overflow {
			c.enterInterrupt(4, tickFn)
		}
	case "IRET":
		c.IP = c.pop16(tickFn)
		c.CS.Load(c.pop16(tickFn))
		c.Flags.FromUint16(c.pop16(tickFn))
		c.flushPrefetch()
	case "IN":
		return c.execIN(opcode, def, tickFn)
	case "OUT":
		return c.execOUT(opcode, def, tickFn)
	case "MOVSB", "MOVSW", "CMPSB", "CMPSW", "STOSB", "STOSW",
		"LODSB", "LODSW", "SCASB", "SCASW":
		return c.execString(mnemonic, opcode, tickFn)
	default:
		return fmt.Sprintf("unimplemented mnemonic %s", mnemonic)
	}
	return ""
}
