package cpu

// ModRM holds a decoded ModR/M byte plus whatever displacement followed it
// (operand-addressing kinds). The readRM/writeRM helpers resolve it to
// either a register or a memory operand at EffAddr, a 16-bit offset
// computed from the classic 8086 base/index table.
type ModRM struct {
	Mod, Reg, RM uint8
	Disp         int16
	IsMemory     bool
	EffAddr      uint16 // offset within the selected segment
}

// decodeModRM reads the ModR/M byte (and any trailing displacement) via
// the BIU, charging the fetch as code-fetch cycles ("every executed
// fetch" applies equally to operand bytes that ride along with the
// opcode).
func (c *CPU) decodeModRM(tickFn func(n int)) ModRM {
	raw, cyc := c.biu.FetchCodeByte(c.codeAddr(), tickFn)
	c.advanceIP(1)
	c.chargeCycles(cyc)

	m := ModRM{
		Mod: raw >> 6,
		Reg: (raw >> 3) & 7,
		RM:  raw & 7,
	}

	if m.Mod == 3 {
		m.IsMemory = false
		return m
	}
	m.IsMemory = true

	// direct 16-bit displacement, no base/index (mod=00, rm=110)
	if m.Mod == 0 && m.RM == 6 {
		lo, c1 := c.biu.FetchCodeByte(c.codeAddr(), tickFn)
		c.advanceIP(1)
		c.chargeCycles(c1)
		hi, c2 := c.biu.FetchCodeByte(c.codeAddr(), tickFn)
		c.advanceIP(1)
		c.chargeCycles(c2)
		m.EffAddr = uint16(lo) | uint16(hi)<<8
		return m
	}

	base := c.effAddrBase(m.RM)

	if m.Mod == 1 {
		d, c1 := c.biu.FetchCodeByte(c.codeAddr(), tickFn)
		c.advanceIP(1)
		c.chargeCycles(c1)
		m.Disp = int16(int8(d))
	} else if m.Mod == 2 {
		lo, c1 := c.biu.FetchCodeByte(c.codeAddr(), tickFn)
		c.advanceIP(1)
		c.chargeCycles(c1)
		hi, c2 := c.biu.FetchCodeByte(c.codeAddr(), tickFn)
		c.advanceIP(1)
		c.chargeCycles(c2)
		m.Disp = int16(uint16(lo) | uint16(hi)<<8)
	}

	m.EffAddr = base + uint16(m.Disp)
	return m
}

// effAddrBase returns the unindexed base of the classic 8086 r/m table
// (mod != 3): [BX+SI] [BX+DI] [BP+SI] [BP+DI] [SI] [DI] [BP] [BX].
func (c *CPU) effAddrBase(rm uint8) uint16 {
	switch rm {
	case 0:
		return c.BX.Value() + c.SI.Value()
	case 1:
		return c.BX.Value() + c.DI.Value()
	case 2:
		return c.BP.Value() + c.SI.Value()
	case 3:
		return c.BP.Value() + c.DI.Value()
	case 4:
		return c.SI.Value()
	case 5:
		return c.DI.Value()
	case 6:
		return c.BP.Value()
	default:
		return c.BX.Value()
	}
}

// defaultSegmentFor returns the segment a given r/m base uses by default:
// SS for anything based on BP, DS otherwise. A segment-override prefix
// replaces this for the current instruction.
func (c *CPU) defaultSegmentFor(rm uint8, mod uint8) uint16 {
	bpBased := rm == 2 || rm == 3 || rm == 6
	if bpBased && !(rm == 6 && mod == 0) { // mod=00 rm=110 is a direct address
		return c.SS.Value()
	}
	return c.DS.Value()
}

// segmentBaseFor returns the segment base in effect for a memory operand,
// honouring any active prefix override.
func (c *CPU) segmentBaseFor(m ModRM) uint32 {
	if c.segOverrideActive {
		return uint32(c.segOverrideValue) << 4
	}
	return uint32(c.defaultSegmentFor(m.RM, m.Mod)) << 4
}

// readRM8/writeRM8/readRM16/writeRM16 resolve a ModRM operand to a value,
// issuing a BIU memory cycle for memory operands or touching the register
// file directly for register operands: the EU never accesses memory
// except via BIU bus cycles.
func (c *CPU) readRM8(m ModRM, tickFn func(n int)) uint8 {
	if !m.IsMemory {
		get, _ := c.reg8(m.RM)
		return get()
	}
	addr := c.segmentBaseFor(m) + uint32(m.EffAddr)
	v, cyc := c.biu.ReadMem(addr, tickFn)
	c.chargeCycles(cyc)
	return v
}

func (c *CPU) writeRM8(m ModRM, v uint8, tickFn func(n int)) {
	if !m.IsMemory {
		_, set := c.reg8(m.RM)
		set(v)
		return
	}
	addr := c.segmentBaseFor(m) + uint32(m.EffAddr)
	cyc := c.biu.WriteMem(addr, v, tickFn)
	c.chargeCycles(cyc)
}

func (c *CPU) readRM16(m ModRM, tickFn func(n int)) uint16 {
	if !m.IsMemory {
		return c.reg16(m.RM).Value()
	}
	segBase := c.segmentBaseFor(m)
	lo, c1 := c.biu.ReadMem(segBase+uint32(m.EffAddr), tickFn)
	c.chargeCycles(c1)
	hi, c2 := c.biu.ReadMem(segBase+uint32(m.EffAddr+1), tickFn)
	c.chargeCycles(c2)
	return uint16(lo) | uint16(hi)<<8
}

func (c *CPU) writeRM16(m ModRM, v uint16, tickFn func(n int)) {
	if !m.IsMemory {
		c.reg16(m.RM).Load(v)
		return
	}
	segBase := c.segmentBaseFor(m)
	c1 := c.biu.WriteMem(segBase+uint32(m.EffAddr), uint8(v), tickFn)
	c.chargeCycles(c1)
	c2 := c.biu.WriteMem(segBase+uint32(m.EffAddr+1), uint8(v>>8), tickFn)
	c.chargeCycles(c2)
}
