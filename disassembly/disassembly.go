// Package disassembly is a second consumer of hardware/cpu/instructions.
// Table, producing human-readable text for a byte range without driving
// any CPU execution state -- exactly as gopher2600/disassembly consumes
// hardware/cpu/instructions.GetDefinitions() to walk a cartridge's code
// independently of the live 6507 core. It reimplements a
// simplified, side-effect-free ModR/M reader rather than importing
// hardware/cpu, since the live decoder's reader is wired to bus timing
// this package has no reason to depend on.
package disassembly

import (
	"fmt"
	"strings"

	"github.com/dbalsom/martypc/hardware/cpu/instructions"
)

// ByteReader fetches one byte of code space, independent of any bus wait
// states or prefetch timing -- instrumentation and the Machine pass a
// plain memory-peek function here.
type ByteReader func(addr uint32) uint8

// Instruction is one decoded instruction's text and extent.
type Instruction struct {
	Address  uint32
	Bytes    []byte
	Mnemonic string
	Operands string
	Length   int
}

// String renders the instruction the way a debugger listing does:
// address, raw bytes, mnemonic and operands.
func (i Instruction) String() string {
	hexBytes := make([]string, len(i.Bytes))
	for j, b := range i.Bytes {
		hexBytes[j] = fmt.Sprintf("%02X", b)
	}
	text := i.Mnemonic
	if i.Operands != "" {
		text += " " + i.Operands
	}
	return fmt.Sprintf("%05X  %-24s %s", i.Address, strings.Join(hexBytes, " "), text)
}

var reg8Names = [8]string{"AL", "CL", "DL", "BL", "AH", "CH", "DH", "BH"}
var reg16Names = [8]string{"AX", "CX", "DX", "BX", "SP", "BP", "SI", "DI"}
var rmNames = [8]string{"BX+SI", "BX+DI", "BP+SI", "BP+DI", "SI", "DI", "BP", "BX"}

func segOverrideName(seg instructions.Segment) string {
	switch seg {
	case instructions.SegES:
		return "ES"
	case instructions.SegCS:
		return "CS"
	case instructions.SegSS:
		return "SS"
	default:
		return "DS"
	}
}

// Decode reads one instruction starting at addr, advancing past any
// prefix bytes, and returns its text form plus the number of bytes
// consumed.
func Decode(addr uint32, read ByteReader) Instruction {
	start := addr
	var raw []byte
	fetch := func() uint8 {
		b := read(addr)
		raw = append(raw, b)
		addr++
		return b
	}

	segOverride := ""
	repPrefix := ""

	opcode := fetch()
	for instructions.IsPrefix(opcode) {
		switch opcode {
		case 0xF0:
			repPrefix = "LOCK "
		case 0xF2:
			repPrefix = "REPNE "
		case 0xF3:
			repPrefix = "REP "
		default:
			if seg, ok := instructions.SegmentOverride(opcode); ok {
				segOverride = segOverrideName(seg)
			}
		}
		opcode = fetch()
	}

	def := instructions.Table[opcode]
	if def.Mnemonic == "" {
		return Instruction{Address: start, Bytes: raw, Mnemonic: fmt.Sprintf("DB 0x%02X", opcode), Length: len(raw)}
	}

	operands := decodeOperands(def, opcode, segOverride, fetch)

	return Instruction{
		Address:  start,
		Bytes:    raw,
		Mnemonic: repPrefix + def.Mnemonic,
		Operands: operands,
		Length:   len(raw),
	}
}

func decodeOperands(def instructions.Definition, opcode uint8, segOverride string, fetch func() uint8) string {
	switch def.Mode {
	case instructions.Implied, instructions.NoOperand:
		return ""
	case instructions.RegOpcode:
		reg := opcode & 0x07
		if def.Width8 {
			return reg8Names[reg]
		}
		return reg16Names[reg]
	case instructions.AccumImm:
		if def.Width8 {
			imm := fetch()
			return fmt.Sprintf("AL, 0x%02X", imm)
		}
		lo, hi := fetch(), fetch()
		return fmt.Sprintf("AX, 0x%04X", uint16(lo)|uint16(hi)<<8)
	case instructions.RegImm:
		reg := opcode & 0x07
		if def.Width8 {
			imm := fetch()
			return fmt.Sprintf("%s, 0x%02X", reg8Names[reg], imm)
		}
		lo, hi := fetch(), fetch()
		return fmt.Sprintf("%s, 0x%04X", reg16Names[reg], uint16(lo)|uint16(hi)<<8)
	case instructions.Relative8:
		disp := int8(fetch())
		return fmt.Sprintf("%+d", disp)
	case instructions.Relative16:
		lo, hi := fetch(), fetch()
		disp := int16(uint16(lo) | uint16(hi)<<8)
		return fmt.Sprintf("%+d", disp)
	case instructions.DirectFar:
		offLo, offHi := fetch(), fetch()
		segLo, segHi := fetch(), fetch()
		return fmt.Sprintf("%04X:%04X", uint16(segLo)|uint16(segHi)<<8, uint16(offLo)|uint16(offHi)<<8)
	case instructions.PortImm:
		port := fetch()
		return fmt.Sprintf("0x%02X", port)
	case instructions.PortDX:
		return "DX"
	case instructions.RegModRM, instructions.RegModRMImm, instructions.ModRMOnly, instructions.ModRMImm:
		modrm := fetch()
		mod := modrm >> 6
		reg := (modrm >> 3) & 0x07
		rm := modrm & 0x07

		rmText := decodeRM(mod, rm, def.Width8, segOverride, fetch)

		regText := ""
		if def.Mode == instructions.RegModRM || def.Mode == instructions.RegModRMImm {
			if def.Width8 {
				regText = reg8Names[reg]
			} else {
				regText = reg16Names[reg]
			}
		}

		immText := ""
		if def.Mode == instructions.RegModRMImm || def.Mode == instructions.ModRMImm {
			if def.Width8 {
				immText = fmt.Sprintf("0x%02X", fetch())
			} else {
				lo, hi := fetch(), fetch()
				immText = fmt.Sprintf("0x%04X", uint16(lo)|uint16(hi)<<8)
			}
		}

		parts := []string{}
		if regText != "" {
			parts = append(parts, regText)
		}
		parts = append(parts, rmText)
		if immText != "" {
			parts = append(parts, immText)
		}
		return strings.Join(parts, ", ")
	default:
		return ""
	}
}

func decodeRM(mod, rm uint8, width8 bool, segOverride string, fetch func() uint8) string {
	if mod == 3 {
		if width8 {
			return reg8Names[rm]
		}
		return reg16Names[rm]
	}
	base := rmNames[rm]
	if mod == 0 && rm == 6 {
		lo, hi := fetch(), fetch()
		addr := uint16(lo) | uint16(hi)<<8
		return bracket(segOverride, fmt.Sprintf("0x%04X", addr))
	}
	disp := ""
	if mod == 1 {
		d := int8(fetch())
		if d != 0 {
			disp = fmt.Sprintf("%+d", d)
		}
	} else if mod == 2 {
		lo, hi := fetch(), fetch()
		d := int16(uint16(lo) | uint16(hi)<<8)
		if d != 0 {
			disp = fmt.Sprintf("%+d", d)
		}
	}
	return bracket(segOverride, base+disp)
}

func bracket(seg, inner string) string {
	if seg != "" {
		return fmt.Sprintf("%s:[%s]", seg, inner)
	}
	return "[" + inner + "]"
}

// DecodeRange decodes exactly count instructions starting at addr;
// undefined opcodes are included as entries and do not end the walk -- the
// same walk a debugger's disassembly listing performs over a code window.
func DecodeRange(addr uint32, count int, read ByteReader) []Instruction {
	out := make([]Instruction, 0, count)
	for i := 0; i < count; i++ {
		insn := Decode(addr, read)
		out = append(out, insn)
		addr += uint32(insn.Length)
	}
	return out
}
