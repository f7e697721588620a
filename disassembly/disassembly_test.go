package disassembly

import (
	"strings"
	"testing"
)

func fromBytes(code ...uint8) ByteReader {
	return fromBytesAt(0, code...)
}

func fromBytesAt(base uint32, code ...uint8) ByteReader {
	return func(addr uint32) uint8 {
		i := addr - base
		if i >= uint32(len(code)) {
			return 0
		}
		return code[i]
	}
}

func TestDecodeImpliedInstruction(t *testing.T) {
	insn := Decode(0, fromBytes(0x90)) // NOP
	if insn.Mnemonic != "NOP" || insn.Length != 1 {
		t.Errorf("Decode(NOP) = %+v, want Mnemonic=NOP Length=1", insn)
	}
}

func TestDecodeRegImm8(t *testing.T) {
	insn := Decode(0, fromBytes(0xB0, 0x42)) // MOV AL, 0x42
	if insn.Operands != "AL, 0x42" {
		t.Errorf("Operands = %q, want %q", insn.Operands, "AL, 0x42")
	}
	if insn.Length != 2 {
		t.Errorf("Length = %d, want 2", insn.Length)
	}
}

func TestDecodeAccumImm16(t *testing.T) {
	insn := Decode(0, fromBytes(0x05, 0x34, 0x12)) // ADD AX, 0x1234
	if insn.Operands != "AX, 0x1234" {
		t.Errorf("Operands = %q, want %q", insn.Operands, "AX, 0x1234")
	}
}

func TestDecodeRelative8SignExtends(t *testing.T) {
	insn := Decode(0, fromBytes(0xEB, 0xFE)) // JMP -2
	if insn.Operands != "-2" {
		t.Errorf("Operands = %q, want %q", insn.Operands, "-2")
	}
}

func TestDecodeModRMRegisterOperand(t *testing.T) {
	// MOV reg,r/m style opcode 0x8B (RegModRM) with mod=3 reg=000 (AX) rm=001 (CX)
	insn := Decode(0, fromBytes(0x8B, 0xC1))
	if insn.Operands != "AX, CX" {
		t.Errorf("Operands = %q, want %q", insn.Operands, "AX, CX")
	}
}

func TestDecodeModRMDirectAddressBrackets(t *testing.T) {
	insn := Decode(0, fromBytes(0x8B, 0x06, 0x00, 0x10)) // mod=00 rm=110 direct address 0x1000
	if !strings.Contains(insn.Operands, "[0x1000]") {
		t.Errorf("Operands = %q, want it to contain [0x1000]", insn.Operands)
	}
}

func TestDecodeSegmentOverridePrefix(t *testing.T) {
	// ES: prefix (0x26) then MOV reg,r/m with a memory operand
	insn := Decode(0, fromBytes(0x26, 0x8B, 0x06, 0x00, 0x10))
	if !strings.Contains(insn.Operands, "ES:[0x1000]") {
		t.Errorf("Operands = %q, want an ES: segment override", insn.Operands)
	}
}

func TestDecodeRepPrefixPrependsMnemonic(t *testing.T) {
	insn := Decode(0, fromBytes(0xF3, 0xAA)) // REP STOSB
	if !strings.HasPrefix(insn.Mnemonic, "REP ") {
		t.Errorf("Mnemonic = %q, want a REP prefix", insn.Mnemonic)
	}
}

func TestDecodeUndefinedOpcodeFallsBackToDB(t *testing.T) {
	insn := Decode(0, fromBytes(0x0F)) // undefined in this table
	if !strings.HasPrefix(insn.Mnemonic, "DB ") {
		t.Errorf("Mnemonic = %q, want a DB placeholder for an undefined opcode", insn.Mnemonic)
	}
}

func TestDecodeRangeAdvancesByInstructionLength(t *testing.T) {
	insns := DecodeRange(0, 2, fromBytes(0xB0, 0x01, 0x90)) // MOV AL,1 ; NOP
	if len(insns) != 2 {
		t.Fatalf("len(insns) = %d, want 2", len(insns))
	}
	if insns[0].Address != 0 || insns[1].Address != 2 {
		t.Errorf("addresses = [%d %d], want [0 2]", insns[0].Address, insns[1].Address)
	}
	if insns[1].Mnemonic != "NOP" {
		t.Errorf("second instruction = %q, want NOP", insns[1].Mnemonic)
	}
}

func TestInstructionStringIncludesAddressBytesAndText(t *testing.T) {
	insn := Decode(0x100, fromBytesAt(0x100, 0xB0, 0x42))
	s := insn.String()
	if !strings.Contains(s, "00100") || !strings.Contains(s, "B0 42") || !strings.Contains(s, "AL, 0x42") {
		t.Errorf("String() = %q, missing expected address/bytes/operand fields", s)
	}
}
