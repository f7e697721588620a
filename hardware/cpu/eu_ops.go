package cpu

import (
	"fmt"

	"github.com/dbalsom/martypc/hardware/cpu/execution"
	"github.com/dbalsom/martypc/hardware/cpu/instructions"
	"github.com/dbalsom/martypc/hardware/cpu/registers"
)

// The handlers below implement one mnemonic family each, decoding whatever
// operand shape instructions.Definition.Mode names and routing memory
// operands through the ModRM helpers so every access still charges BIU bus
// cycles.

func (c *CPU) execMOV(opcode uint8, def instructions.Definition, tickFn func(n int)) string {
	switch opcode {
	case 0x88, 0x8A:
		m := c.decodeModRM(tickFn)
		if opcode == 0x88 {
			get, _ := c.reg8(m.Reg)
			c.writeRM8(m, get(), tickFn)
		} else {
			_, set := c.reg8(m.Reg)
			set(c.readRM8(m, tickFn))
		}
	case 0x89, 0x8B:
		m := c.decodeModRM(tickFn)
		if opcode == 0x89 {
			c.writeRM16(m, c.reg16(m.Reg).Value(), tickFn)
		} else {
			c.reg16(m.Reg).Load(c.readRM16(m, tickFn))
		}
	case 0x8C:
		m := c.decodeModRM(tickFn)
		c.writeRM16(m, c.segReg(m.Reg).Value(), tickFn)
	case 0x8E:
		m := c.decodeModRM(tickFn)
		c.segReg(m.Reg).Load(c.readRM16(m, tickFn))
	case 0xC6:
		m := c.decodeModRM(tickFn)
		imm := c.fetch(tickFn)
		c.writeRM8(m, imm, tickFn)
	case 0xC7:
		m := c.decodeModRM(tickFn)
		imm := c.fetch16(tickFn)
		c.writeRM16(m, imm, tickFn)
	case 0xA0:
		addr := (uint32(c.segmentOverrideOr(c.DS)) << 4) + uint32(c.fetch16(tickFn))
		v, cyc := c.biu.ReadMem(addr, tickFn)
		c.chargeCycles(cyc)
		c.AX.SetLo(v)
	case 0xA1:
		addr := (uint32(c.segmentOverrideOr(c.DS)) << 4) + uint32(c.fetch16(tickFn))
		lo, cyc := c.biu.ReadMem(addr, tickFn)
		c.chargeCycles(cyc)
		hi, cyc2 := c.biu.ReadMem(addr+1, tickFn)
		c.chargeCycles(cyc2)
		c.AX.Load(uint16(lo) | uint16(hi)<<8)
	case 0xA2:
		addr := (uint32(c.segmentOverrideOr(c.DS)) << 4) + uint32(c.fetch16(tickFn))
		c.chargeCycles(c.biu.WriteMem(addr, c.AX.Lo(), tickFn))
	case 0xA3:
		addr := (uint32(c.segmentOverrideOr(c.DS)) << 4) + uint32(c.fetch16(tickFn))
		c.chargeCycles(c.biu.WriteMem(addr, uint8(c.AX.Value()), tickFn))
		c.chargeCycles(c.biu.WriteMem(addr+1, uint8(c.AX.Value()>>8), tickFn))
	default:
		if opcode >= 0xB0 && opcode <= 0xB7 {
			_, set := c.reg8(opcode - 0xB0)
			set(c.fetch(tickFn))
		} else if opcode >= 0xB8 && opcode <= 0xBF {
			c.reg16(opcode - 0xB8).Load(c.fetch16(tickFn))
		}
	}
	return ""
}

func (c *CPU) segmentOverrideOr(def *registers.Word) uint16 {
	if c.segOverrideActive {
		return c.segOverrideValue
	}
	return def.Value()
}

func (c *CPU) execPUSH(opcode uint8, def instructions.Definition, tickFn func(n int)) string {
	switch opcode {
	case 0x06:
		c.push16(c.ES.Value(), tickFn)
	case 0x0E:
		c.push16(c.CS.Value(), tickFn)
	case 0x16:
		c.push16(c.SS.Value(), tickFn)
	case 0x1E:
		c.push16(c.DS.Value(), tickFn)
	default:
		c.push16(c.reg16(opcode-0x50).Value(), tickFn)
	}
	return ""
}

func (c *CPU) execPOP(opcode uint8, def instructions.Definition, tickFn func(n int)) string {
	switch opcode {
	case 0x07:
		c.ES.Load(c.pop16(tickFn))
	case 0x17:
		c.SS.Load(c.pop16(tickFn))
	case 0x1F:
		c.DS.Load(c.pop16(tickFn))
	case 0x8F:
		m := c.decodeModRM(tickFn)
		c.writeRM16(m, c.pop16(tickFn), tickFn)
	default:
		c.reg16(opcode - 0x58).Load(c.pop16(tickFn))
	}
	return ""
}

func (c *CPU) execXCHG(opcode uint8, def instructions.Definition, tickFn func(n int)) string {
	if opcode == 0x86 || opcode == 0x87 {
		m := c.decodeModRM(tickFn)
		if def.Width8 {
			get, set := c.reg8(m.Reg)
			a := get()
			b := c.readRM8(m, tickFn)
			set(b)
			c.writeRM8(m, a, tickFn)
		} else {
			a := c.reg16(m.Reg).Value()
			b := c.readRM16(m, tickFn)
			c.reg16(m.Reg).Load(b)
			c.writeRM16(m, a, tickFn)
		}
		return ""
	}
	other := c.reg16(opcode - 0x90)
	a := c.AX.Value()
	b := other.Value()
	c.AX.Load(b)
	other.Load(a)
	return ""
}

func (c *CPU) execLxS(mnemonic string, tickFn func(n int)) string {
	m := c.decodeModRM(tickFn)
	if !m.IsMemory {
		return fmt.Sprintf("%s requires a memory operand", mnemonic)
	}
	off := c.readRM16(m, tickFn)
	segBase := c.segmentBaseFor(m)
	segLo, cyc := c.biu.ReadMem(segBase+uint32(m.EffAddr)+2, tickFn)
	c.chargeCycles(cyc)
	segHi, cyc2 := c.biu.ReadMem(segBase+uint32(m.EffAddr)+3, tickFn)
	c.chargeCycles(cyc2)
	seg := uint16(segLo) | uint16(segHi)<<8
	c.reg16(m.Reg).Load(off)
	if mnemonic == "LES" {
		c.ES.Load(seg)
	} else {
		c.DS.Load(seg)
	}
	return ""
}

func (c *CPU) execArith(mnemonic string, opcode uint8, def instructions.Definition, tickFn func(n int)) string {
	switch opcode & 0x07 {
	case 0x04, 0x05: // accumulator, immediate
		if def.Width8 {
			imm := c.fetch(tickFn)
			result := c.alu8(mnemonic, c.AX.Lo(), imm)
			if mnemonic != "CMP" {
				c.AX.SetLo(result)
			}
		} else {
			imm := c.fetch16(tickFn)
			result := c.alu16(mnemonic, c.AX.Value(), imm)
			if mnemonic != "CMP" {
				c.AX.Load(result)
			}
		}
		return ""
	}
	m := c.decodeModRM(tickFn)
	regIsDest := opcode&0x02 != 0
	if def.Width8 {
		get, set := c.reg8(m.Reg)
		if regIsDest {
			rm := c.readRM8(m, tickFn)
			result := c.alu8(mnemonic, get(), rm)
			if mnemonic != "CMP" {
				set(result)
			}
		} else {
			result := c.alu8(mnemonic, c.readRM8(m, tickFn), get())
			if mnemonic != "CMP" {
				c.writeRM8(m, result, tickFn)
			}
		}
	} else {
		if regIsDest {
			rm := c.readRM16(m, tickFn)
			result := c.alu16(mnemonic, c.reg16(m.Reg).Value(), rm)
			if mnemonic != "CMP" {
				c.reg16(m.Reg).Load(result)
			}
		} else {
			result := c.alu16(mnemonic, c.readRM16(m, tickFn), c.reg16(m.Reg).Value())
			if mnemonic != "CMP" {
				c.writeRM16(m, result, tickFn)
			}
		}
	}
	return ""
}

// alu8/alu16 apply one arithmetic/logic mnemonic and update flags, matching
// the 8086's documented flag behaviour per operation.
func (c *CPU) alu8(mnemonic string, dst, src uint8) uint8 {
	switch mnemonic {
	case "ADD", "ADC":
		cin := mnemonic == "ADC" && c.Flags.Carry
		r, cf, af, of := addWithCarry8(dst, src, cin)
		c.Flags.Carry, c.Flags.Auxiliary, c.Flags.Overflow = cf, af, of
		c.Flags.SetZSP8(r)
		return r
	case "SUB", "CMP", "SBB":
		cin := mnemonic == "SBB" && c.Flags.Carry
		r, cf, af, of := subWithBorrow8(dst, src, cin)
		c.Flags.Carry, c.Flags.Auxiliary, c.Flags.Overflow = cf, af, of
		c.Flags.SetZSP8(r)
		return r
	case "OR":
		r := dst | src
		c.Flags.Carry, c.Flags.Overflow = false, false
		c.Flags.SetZSP8(r)
		return r
	case "AND":
		r := dst & src
		c.Flags.Carry, c.Flags.Overflow = false, false
		c.Flags.SetZSP8(r)
		return r
	case "XOR":
		r := dst ^ src
		c.Flags.Carry, c.Flags.Overflow = false, false
		c.Flags.SetZSP8(r)
		return r
	}
	return dst
}

func (c *CPU) alu16(mnemonic string, dst, src uint16) uint16 {
	switch mnemonic {
	case "ADD", "ADC":
		cin := mnemonic == "ADC" && c.Flags.Carry
		r, cf, af, of := addWithCarry16(dst, src, cin)
		c.Flags.Carry, c.Flags.Auxiliary, c.Flags.Overflow = cf, af, of
		c.Flags.SetZSP16(r)
		return r
	case "SUB", "CMP", "SBB":
		cin := mnemonic == "SBB" && c.Flags.Carry
		r, cf, af, of := subWithBorrow16(dst, src, cin)
		c.Flags.Carry, c.Flags.Auxiliary, c.Flags.Overflow = cf, af, of
		c.Flags.SetZSP16(r)
		return r
	case "OR":
		r := dst | src
		c.Flags.Carry, c.Flags.Overflow = false, false
		c.Flags.SetZSP16(r)
		return r
	case "AND":
		r := dst & src
		c.Flags.Carry, c.Flags.Overflow = false, false
		c.Flags.SetZSP16(r)
		return r
	case "XOR":
		r := dst ^ src
		c.Flags.Carry, c.Flags.Overflow = false, false
		c.Flags.SetZSP16(r)
		return r
	}
	return dst
}

func (c *CPU) execGrp1(opcode uint8, def instructions.Definition, tickFn func(n int)) string {
	m := c.decodeModRM(tickFn)
	mnemonic := instructions.GroupTable[opcode][m.Reg]
	if def.Width8 {
		var imm uint8
		if opcode == 0x81 {
			imm = uint8(c.fetch16(tickFn))
		} else {
			imm = c.fetch(tickFn)
		}
		rm := c.readRM8(m, tickFn)
		result := c.alu8(mnemonic, rm, imm)
		if mnemonic != "CMP" {
			c.writeRM8(m, result, tickFn)
		}
	} else {
		var imm uint16
		if opcode == 0x83 {
			imm = uint16(int16(int8(c.fetch(tickFn))))
		} else {
			imm = c.fetch16(tickFn)
		}
		rm := c.readRM16(m, tickFn)
		result := c.alu16(mnemonic, rm, imm)
		if mnemonic != "CMP" {
			c.writeRM16(m, result, tickFn)
		}
	}
	return ""
}

func (c *CPU) execIncDec(mnemonic string, opcode uint8, def instructions.Definition, tickFn func(n int)) string {
	r := c.reg16(opcode & 0x07)
	savedCarry := c.Flags.Carry
	if mnemonic == "INC" {
		result, _, af, of := addWithCarry16(r.Value(), 1, false)
		r.Load(result)
		c.Flags.Auxiliary, c.Flags.Overflow = af, of
		c.Flags.SetZSP16(result)
	} else {
		result, _, af, of := subWithBorrow16(r.Value(), 1, false)
		r.Load(result)
		c.Flags.Auxiliary, c.Flags.Overflow = af, of
		c.Flags.SetZSP16(result)
	}
	c.Flags.Carry = savedCarry // INC/DEC never touch CF
	return ""
}

func (c *CPU) execGrp2(opcode uint8, def instructions.Definition, tickFn func(n int)) string {
	m := c.decodeModRM(tickFn)
	op := instructions.GroupTable[opcode][m.Reg]
	switch op {
	case "INC", "DEC":
		c.execModRMIncDec(op, m, def, tickFn)
	case "CALL":
		target := c.readRM16(m, tickFn)
		c.push16(c.IP, tickFn)
		c.jumpNear(target)
	case "CALLF":
		target := c.readRM16(m, tickFn)
		segLo, cyc := c.biu.ReadMem(c.segmentBaseFor(m)+uint32(m.EffAddr)+2, tickFn)
		c.chargeCycles(cyc)
		segHi, cyc2 := c.biu.ReadMem(c.segmentBaseFor(m)+uint32(m.EffAddr)+3, tickFn)
		c.chargeCycles(cyc2)
		c.push16(c.CS.Value(), tickFn)
		c.push16(c.IP, tickFn)
		c.jumpFar(uint16(segLo)|uint16(segHi)<<8, target)
	case "JMP":
		c.jumpNear(c.readRM16(m, tickFn))
	case "JMPF":
		target := c.readRM16(m, tickFn)
		segLo, cyc := c.biu.ReadMem(c.segmentBaseFor(m)+uint32(m.EffAddr)+2, tickFn)
		c.chargeCycles(cyc)
		segHi, cyc2 := c.biu.ReadMem(c.segmentBaseFor(m)+uint32(m.EffAddr)+3, tickFn)
		c.chargeCycles(cyc2)
		c.jumpFar(uint16(segLo)|uint16(segHi)<<8, target)
	case "PUSH":
		c.push16(c.readRM16(m, tickFn), tickFn)
	}
	return ""
}

func (c *CPU) execModRMIncDec(op string, m ModRM, def instructions.Definition, tickFn func(n int)) {
	savedCarry := c.Flags.Carry
	if def.Width8 {
		v := c.readRM8(m, tickFn)
		var r uint8
		var af, of bool
		if op == "INC" {
			r, _, af, of = addWithCarry8(v, 1, false)
		} else {
			r, _, af, of = subWithBorrow8(v, 1, false)
		}
		c.writeRM8(m, r, tickFn)
		c.Flags.Auxiliary, c.Flags.Overflow = af, of
		c.Flags.SetZSP8(r)
	} else {
		v := c.readRM16(m, tickFn)
		var r uint16
		var af, of bool
		if op == "INC" {
			r, _, af, of = addWithCarry16(v, 1, false)
		} else {
			r, _, af, of = subWithBorrow16(v, 1, false)
		}
		c.writeRM16(m, r, tickFn)
		c.Flags.Auxiliary, c.Flags.Overflow = af, of
		c.Flags.SetZSP16(r)
	}
	c.Flags.Carry = savedCarry
}

func (c *CPU) execGrp2S(opcode uint8, def instructions.Definition, tickFn func(n int)) string {
	m := c.decodeModRM(tickFn)
	op := instructions.GroupTable[opcode][m.Reg]
	var count uint8 = 1
	if opcode == 0xD2 || opcode == 0xD3 {
		count = c.CX.Lo()
	}
	if def.Width8 {
		v := c.readRM8(m, tickFn)
		for i := uint8(0); i < count; i++ {
			v = c.shiftRotate8(op, v)
		}
		c.writeRM8(m, v, tickFn)
	} else {
		v := c.readRM16(m, tickFn)
		for i := uint8(0); i < count; i++ {
			v = c.shiftRotate16(op, v)
		}
		c.writeRM16(m, v, tickFn)
	}
	return ""
}

func (c *CPU) shiftRotate8(op string, v uint8) uint8 {
	switch op {
	case "ROL":
		carryOut := v&0x80 != 0
		v = v<<1 | v>>7
		c.Flags.Carry = carryOut
	case "ROR":
		carryOut := v&1 != 0
		v = v>>1 | v<<7
		c.Flags.Carry = carryOut
	case "RCL":
		carryIn := uint8(0)
		if c.Flags.Carry {
			carryIn = 1
		}
		carryOut := v&0x80 != 0
		v = v<<1 | carryIn
		c.Flags.Carry = carryOut
	case "RCR":
		carryIn := uint8(0)
		if c.Flags.Carry {
			carryIn = 0x80
		}
		carryOut := v&1 != 0
		v = v>>1 | carryIn
		c.Flags.Carry = carryOut
	case "SHL":
		c.Flags.Carry = v&0x80 != 0
		v = v << 1
		c.Flags.SetZSP8(v)
	case "SHR":
		c.Flags.Carry = v&1 != 0
		v = v >> 1
		c.Flags.SetZSP8(v)
	case "SAR":
		c.Flags.Carry = v&1 != 0
		v = uint8(int8(v) >> 1)
		c.Flags.SetZSP8(v)
	}
	return v
}

func (c *CPU) shiftRotate16(op string, v uint16) uint16 {
	switch op {
	case "ROL":
		carryOut := v&0x8000 != 0
		v = v<<1 | v>>15
		c.Flags.Carry = carryOut
	case "ROR":
		carryOut := v&1 != 0
		v = v>>1 | v<<15
		c.Flags.Carry = carryOut
	case "RCL":
		carryIn := uint16(0)
		if c.Flags.Carry {
			carryIn = 1
		}
		carryOut := v&0x8000 != 0
		v = v<<1 | carryIn
		c.Flags.Carry = carryOut
	case "RCR":
		carryIn := uint16(0)
		if c.Flags.Carry {
			carryIn = 0x8000
		}
		carryOut := v&1 != 0
		v = v>>1 | carryIn
		c.Flags.Carry = carryOut
	case "SHL":
		c.Flags.Carry = v&0x8000 != 0
		v = v << 1
		c.Flags.SetZSP16(v)
	case "SHR":
		c.Flags.Carry = v&1 != 0
		v = v >> 1
		c.Flags.SetZSP16(v)
	case "SAR":
		c.Flags.Carry = v&1 != 0
		v = uint16(int16(v) >> 1)
		c.Flags.SetZSP16(v)
	}
	return v
}

func (c *CPU) execGrp3(opcode uint8, def instructions.Definition, tickFn func(n int)) string {
	m := c.decodeModRM(tickFn)
	op := instructions.GroupTable[opcode][m.Reg]
	if def.Width8 {
		v := c.readRM8(m, tickFn)
		switch op {
		case "TEST":
			imm := c.fetch(tickFn)
			r := v & imm
			c.Flags.Carry, c.Flags.Overflow = false, false
			c.Flags.SetZSP8(r)
		case "NOT":
			c.writeRM8(m, ^v, tickFn)
		case "NEG":
			r, cf, af, of := subWithBorrow8(0, v, false)
			c.Flags.Carry, c.Flags.Auxiliary, c.Flags.Overflow = cf, af, of
			c.Flags.SetZSP8(r)
			c.writeRM8(m, r, tickFn)
		case "MUL":
			r := uint16(c.AX.Lo()) * uint16(v)
			c.AX.Load(r)
			over := r > 0xFF
			c.Flags.Carry, c.Flags.Overflow = over, over
		case "IMUL":
			r := int16(int8(c.AX.Lo())) * int16(int8(v))
			c.AX.Load(uint16(r))
			over := r < -128 || r > 127
			c.Flags.Carry, c.Flags.Overflow = over, over
		case "DIV":
			if v == 0 {
				c.enterInterrupt(0, tickFn)
				return ""
			}
			dividend := c.AX.Value()
			q, rem := dividend/uint16(v), dividend%uint16(v)
			if q > 0xFF {
				c.enterInterrupt(0, tickFn)
				return ""
			}
			c.AX.SetLo(uint8(q))
			c.AX.SetHi(uint8(rem))
		case "IDIV":
			if v == 0 {
				c.enterInterrupt(0, tickFn)
				return ""
			}
			dividend := int16(c.AX.Value())
			q, rem := dividend/int16(int8(v)), dividend%int16(int8(v))
			if q < -128 || q > 127 {
				c.enterInterrupt(0, tickFn)
				return ""
			}
			c.AX.SetLo(uint8(q))
			c.AX.SetHi(uint8(rem))
		}
	} else {
		v := c.readRM16(m, tickFn)
		switch op {
		case "TEST":
			imm := c.fetch16(tickFn)
			r := v & imm
			c.Flags.Carry, c.Flags.Overflow = false, false
			c.Flags.SetZSP16(r)
		case "NOT":
			c.writeRM16(m, ^v, tickFn)
		case "NEG":
			r, cf, af, of := subWithBorrow16(0, v, false)
			c.Flags.Carry, c.Flags.Auxiliary, c.Flags.Overflow = cf, af, of
			c.Flags.SetZSP16(r)
			c.writeRM16(m, r, tickFn)
		case "MUL":
			r := uint32(c.AX.Value()) * uint32(v)
			c.AX.Load(uint16(r))
			c.DX.Load(uint16(r >> 16))
			over := r > 0xFFFF
			c.Flags.Carry, c.Flags.Overflow = over, over
		case "IMUL":
			r := int32(int16(c.AX.Value())) * int32(int16(v))
			c.AX.Load(uint16(r))
			c.DX.Load(uint16(r >> 16))
			over := r < -32768 || r > 32767
			c.Flags.Carry, c.Flags.Overflow = over, over
		case "DIV":
			if v == 0 {
				c.enterInterrupt(0, tickFn)
				return ""
			}
			dividend := uint32(c.DX.Value())<<16 | uint32(c.AX.Value())
			q, rem := dividend/uint32(v), dividend%uint32(v)
			if q > 0xFFFF {
				c.enterInterrupt(0, tickFn)
				return ""
			}
			c.AX.Load(uint16(q))
			c.DX.Load(uint16(rem))
		case "IDIV":
			if v == 0 {
				c.enterInterrupt(0, tickFn)
				return ""
			}
			dividend := int32(uint32(c.DX.Value())<<16 | uint32(c.AX.Value()))
			q, rem := dividend/int32(int16(v)), dividend%int32(int16(v))
			if q < -32768 || q > 32767 {
				c.enterInterrupt(0, tickFn)
				return ""
			}
			c.AX.Load(uint16(q))
			c.DX.Load(uint16(rem))
		}
	}
	return ""
}

func (c *CPU) execAAA() {
	if c.AX.Lo()&0x0F > 9 || c.Flags.Auxiliary {
		c.AX.SetLo(c.AX.Lo() + 6)
		c.AX.SetHi(c.AX.Hi() + 1)
		c.Flags.Auxiliary, c.Flags.Carry = true, true
	} else {
		c.Flags.Auxiliary, c.Flags.Carry = false, false
	}
	c.AX.SetLo(c.AX.Lo() & 0x0F)
}

func (c *CPU) execAAS() {
	if c.AX.Lo()&0x0F > 9 || c.Flags.Auxiliary {
		c.AX.SetLo(c.AX.Lo() - 6)
		c.AX.SetHi(c.AX.Hi() - 1)
		c.Flags.Auxiliary, c.Flags.Carry = true, true
	} else {
		c.Flags.Auxiliary, c.Flags.Carry = false, false
	}
	c.AX.SetLo(c.AX.Lo() & 0x0F)
}

func (c *CPU) execAAM(tickFn func(n int)) string {
	base := c.fetch(tickFn)
	if base == 0 {
		c.enterInterrupt(0, tickFn)
		return ""
	}
	al := c.AX.Lo()
	c.AX.SetHi(al / base)
	c.AX.SetLo(al % base)
	c.Flags.SetZSP16(c.AX.Value())
	return ""
}

func (c *CPU) execAAD(tickFn func(n int)) {
	base := c.fetch(tickFn)
	al := uint16(c.AX.Hi())*uint16(base) + uint16(c.AX.Lo())
	c.AX.SetLo(uint8(al))
	c.AX.SetHi(0)
	c.Flags.SetZSP16(c.AX.Value())
}

func (c *CPU) execControlTransfer(mnemonic string, opcode uint8, def instructions.Definition, tickFn func(n int)) string {
	switch mnemonic {
	case "CALL":
		rel := int16(c.fetch16(tickFn))
		c.push16(c.IP, tickFn)
		c.jumpNear(uint16(int32(c.IP) + int32(rel)))
	case "CALLF":
		ip := c.fetch16(tickFn)
		cs := c.fetch16(tickFn)
		c.push16(c.CS.Value(), tickFn)
		c.push16(c.IP, tickFn)
		c.jumpFar(cs, ip)
	case "RET":
		if opcode == 0xC2 {
			n := c.fetch16(tickFn)
			ip := c.pop16(tickFn)
			c.SP.Load(c.SP.Value() + n)
			c.jumpNear(ip)
		} else {
			c.jumpNear(c.pop16(tickFn))
		}
	case "RETF":
		ip := c.pop16(tickFn)
		cs := c.pop16(tickFn)
		if opcode == 0xCA {
			n := c.fetch16(tickFn)
			c.SP.Load(c.SP.Value() + n)
		}
		c.jumpFar(cs, ip)
	case "JMP":
		if opcode == 0xE9 {
			rel := int16(c.fetch16(tickFn))
			c.jumpNear(uint16(int32(c.IP) + int32(rel)))
		} else {
			rel := int16(int8(c.fetch(tickFn)))
			c.jumpNear(uint16(int32(c.IP) + int32(rel)))
		}
	case "JMPF":
		ip := c.fetch16(tickFn)
		cs := c.fetch16(tickFn)
		c.jumpFar(cs, ip)
	}
	c.tag(execution.TagJumpTaken)
	return ""
}

func (c *CPU) execJcc(mnemonic string, tickFn func(n int)) {
	rel := int16(int8(c.fetch(tickFn)))
	if c.condTrue(mnemonic) {
		c.jumpNear(uint16(int32(c.IP) + int32(rel)))
		c.tag(execution.TagJumpTaken)
	}
}

func (c *CPU) condTrue(mnemonic string) bool {
	f := &c.Flags
	switch mnemonic {
	case "JO":
		return f.Overflow
	case "JNO":
		return !f.Overflow
	case "JB":
		return f.Carry
	case "JNB":
		return !f.Carry
	case "JZ":
		return f.Zero
	case "JNZ":
		return !f.Zero
	case "JBE":
		return f.Carry || f.Zero
	case "JNBE":
		return !f.Carry && !f.Zero
	case "JS":
		return f.Sign
	case "JNS":
		return !f.Sign
	case "JP":
		return f.Parity
	case "JNP":
		return !f.Parity
	case "JL":
		return f.Sign != f.Overflow
	case "JNL":
		return f.Sign == f.Overflow
	case "JLE":
		return f.Zero || f.Sign != f.Overflow
	case "JNLE":
		return !f.Zero && f.Sign == f.Overflow
	}
	return false
}

func (c *CPU) execLoop(mnemonic string, tickFn func(n int)) {
	rel := int16(int8(c.fetch(tickFn)))
	take := false
	switch mnemonic {
	case "JCXZ":
		take = c.CX.Value() == 0
	case "LOOP":
		c.CX.Load(c.CX.Value() - 1)
		take = c.CX.Value() != 0
	case "LOOPE":
		c.CX.Load(c.CX.Value() - 1)
		take = c.CX.Value() != 0 && c.Flags.Zero
	case "LOOPNE":
		c.CX.Load(c.CX.Value() - 1)
		take = c.CX.Value() != 0 && !c.Flags.Zero
	}
	if take {
		c.jumpNear(uint16(int32(c.IP) + int32(rel)))
		c.tag(execution.TagJumpTaken)
	}
}

func (c *CPU) execIN(opcode uint8, def instructions.Definition, tickFn func(n int)) string {
	var port uint16
	if opcode == 0xE4 || opcode == 0xE5 {
		port = uint16(c.fetch(tickFn))
	} else {
		port = c.DX.Value()
	}
	if def.Width8 {
		v, cyc := c.biu.ReadIO(port, tickFn)
		c.chargeCycles(cyc)
		c.AX.SetLo(v)
	} else {
		lo, cyc := c.biu.ReadIO(port, tickFn)
		c.chargeCycles(cyc)
		hi, cyc2 := c.biu.ReadIO(port+1, tickFn)
		c.chargeCycles(cyc2)
		c.AX.Load(uint16(lo) | uint16(hi)<<8)
	}
	return ""
}

func (c *CPU) execOUT(opcode uint8, def instructions.Definition, tickFn func(n int)) string {
	var port uint16
	if opcode == 0xE6 || opcode == 0xE7 {
		port = uint16(c.fetch(tickFn))
	} else {
		port = c.DX.Value()
	}
	if def.Width8 {
		c.chargeCycles(c.biu.WriteIO(port, c.AX.Lo(), tickFn))
	} else {
		c.chargeCycles(c.biu.WriteIO(port, uint8(c.AX.Value()), tickFn))
		c.chargeCycles(c.biu.WriteIO(port+1, uint8(c.AX.Value()>>8), tickFn))
	}
	return ""
}

// execString runs exactly one iteration of a string instruction; REP
// re-enters the step function for each element. IP has already been
// advanced past the opcode; when REP leaves CX non-zero and no CMPS/SCAS
// zero-flag termination fired, stringContinue is set so the next
// StepInstruction runs another iteration without re-fetching the opcode.
func (c *CPU) execString(mnemonic string, opcode uint8, tickFn func(n int)) string {
	c.stringContinue = false
	width8 := mnemonic[len(mnemonic)-1] == 'B'

	if c.repActive && c.CX.Value() == 0 {
		return ""
	}

	srcSeg := c.segmentOverrideOr(c.DS)
	srcAddr := (uint32(srcSeg) << 4) + uint32(c.SI.Value())
	dstAddr := (uint32(c.ES.Value()) << 4) + uint32(c.DI.Value())

	step := func(reg *registers.Word) {
		if c.Flags.Direction {
			if width8 {
				reg.Load(reg.Value() - 1)
			} else {
				reg.Load(reg.Value() - 2)
			}
		} else {
			if width8 {
				reg.Load(reg.Value() + 1)
			} else {
				reg.Load(reg.Value() + 2)
			}
		}
	}

	stop := false
	switch mnemonic {
	case "MOVSB", "MOVSW":
		if width8 {
			v, cyc := c.biu.ReadMem(srcAddr, tickFn)
			c.chargeCycles(cyc)
			c.chargeCycles(c.biu.WriteMem(dstAddr, v, tickFn))
		} else {
			lo, cyc := c.biu.ReadMem(srcAddr, tickFn)
			c.chargeCycles(cyc)
			hi, cyc2 := c.biu.ReadMem(srcAddr+1, tickFn)
			c.chargeCycles(cyc2)
			c.chargeCycles(c.biu.WriteMem(dstAddr, lo, tickFn))
			c.chargeCycles(c.biu.WriteMem(dstAddr+1, hi, tickFn))
		}
		step(c.SI)
		step(c.DI)
	case "STOSB", "STOSW":
		if width8 {
			c.chargeCycles(c.biu.WriteMem(dstAddr, c.AX.Lo(), tickFn))
		} else {
			c.chargeCycles(c.biu.WriteMem(dstAddr, uint8(c.AX.Value()), tickFn))
			c.chargeCycles(c.biu.WriteMem(dstAddr+1, uint8(c.AX.Value()>>8), tickFn))
		}
		step(c.DI)
	case "LODSB", "LODSW":
		if width8 {
			v, cyc := c.biu.ReadMem(srcAddr, tickFn)
			c.chargeCycles(cyc)
			c.AX.SetLo(v)
		} else {
			lo, cyc := c.biu.ReadMem(srcAddr, tickFn)
			c.chargeCycles(cyc)
			hi, cyc2 := c.biu.ReadMem(srcAddr+1, tickFn)
			c.chargeCycles(cyc2)
			c.AX.Load(uint16(lo) | uint16(hi)<<8)
		}
		step(c.SI)
	case "CMPSB", "CMPSW":
		if width8 {
			a, cyc := c.biu.ReadMem(srcAddr, tickFn)
			c.chargeCycles(cyc)
			b, cyc2 := c.biu.ReadMem(dstAddr, tickFn)
			c.chargeCycles(cyc2)
			r, cf, af, of := subWithBorrow8(a, b, false)
			c.Flags.Carry, c.Flags.Auxiliary, c.Flags.Overflow = cf, af, of
			c.Flags.SetZSP8(r)
		} else {
			al, cyc := c.biu.ReadMem(srcAddr, tickFn)
			c.chargeCycles(cyc)
			ah, cyc2 := c.biu.ReadMem(srcAddr+1, tickFn)
			c.chargeCycles(cyc2)
			bl, cyc3 := c.biu.ReadMem(dstAddr, tickFn)
			c.chargeCycles(cyc3)
			bh, cyc4 := c.biu.ReadMem(dstAddr+1, tickFn)
			c.chargeCycles(cyc4)
			a := uint16(al) | uint16(ah)<<8
			b := uint16(bl) | uint16(bh)<<8
			r, cf, af, of := subWithBorrow16(a, b, false)
			c.Flags.Carry, c.Flags.Auxiliary, c.Flags.Overflow = cf, af, of
			c.Flags.SetZSP16(r)
		}
		step(c.SI)
		step(c.DI)
		if c.repActive {
			stop = (c.repne && c.Flags.Zero) || (!c.repne && !c.Flags.Zero)
		}
	case "SCASB", "SCASW":
		if width8 {
			b, cyc := c.biu.ReadMem(dstAddr, tickFn)
			c.chargeCycles(cyc)
			r, cf, af, of := subWithBorrow8(c.AX.Lo(), b, false)
			c.Flags.Carry, c.Flags.Auxiliary, c.Flags.Overflow = cf, af, of
			c.Flags.SetZSP8(r)
		} else {
			bl, cyc := c.biu.ReadMem(dstAddr, tickFn)
			c.chargeCycles(cyc)
			bh, cyc2 := c.biu.ReadMem(dstAddr+1, tickFn)
			c.chargeCycles(cyc2)
			b := uint16(bl) | uint16(bh)<<8
			r, cf, af, of := subWithBorrow16(c.AX.Value(), b, false)
			c.Flags.Carry, c.Flags.Auxiliary, c.Flags.Overflow = cf, af, of
			c.Flags.SetZSP16(r)
		}
		step(c.DI)
		if c.repActive {
			stop = (c.repne && c.Flags.Zero) || (!c.repne && !c.Flags.Zero)
		}
	}

	if c.repActive {
		c.CX.Load(c.CX.Value() - 1)
		if c.CX.Value() != 0 && !stop {
			// The next StepInstruction call re-enters here directly rather
			// than re-fetching the opcode and its prefixes, matching the
			// real CPU never re-reading REP/segment-override bytes between
			// iterations of the same string instruction.
			c.stringContinue = true
			c.stringOpcode = opcode
			c.tag(execution.TagStringContinuation)
		}
	}
	return ""
}
