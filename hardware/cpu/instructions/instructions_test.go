package instructions

import "testing"

func TestTableDefinesCoreOpcodes(t *testing.T) {
	cases := []struct {
		op       uint8
		mnemonic string
	}{
		{0x90, "NOP"},
		{0xF4, "HLT"},
		{0xB0, "MOV"},
		{0xB8, "MOV"},
		{0xE8, "CALL"},
		{0xC3, "RET"},
		{0xCD, "INT"},
		{0xAA, "STOSB"},
	}
	for _, tc := range cases {
		if got := Table[tc.op].Mnemonic; got != tc.mnemonic {
			t.Errorf("Table[%#02x].Mnemonic = %q, want %q", tc.op, got, tc.mnemonic)
		}
	}
}

func TestUndefinedOpcodeHasEmptyMnemonic(t *testing.T) {
	if Table[0x0F].Mnemonic != "" {
		t.Errorf("Table[0x0F].Mnemonic = %q, want empty (undefined)", Table[0x0F].Mnemonic)
	}
}

func TestMovRegImmUsesRegImmMode(t *testing.T) {
	if Table[0xB0].Mode != RegImm {
		t.Errorf("Table[0xB0].Mode = %v, want RegImm", Table[0xB0].Mode)
	}
	if !Table[0xB0].Width8 {
		t.Errorf("Table[0xB0].Width8 = false, want true (MOV AL,imm8)")
	}
	if Table[0xB8].Width8 {
		t.Errorf("Table[0xB8].Width8 = true, want false (MOV AX,imm16)")
	}
}

func TestAccumulatorArithmeticUsesAccumImm(t *testing.T) {
	if Table[0x04].Mode != AccumImm || !Table[0x04].Width8 {
		t.Errorf("Table[0x04] (ADD AL,imm8) = %+v, want AccumImm/Width8", Table[0x04])
	}
	if Table[0x3C].Mode != AccumImm {
		t.Errorf("Table[0x3C] (CMP AL,imm8) mode = %v, want AccumImm", Table[0x3C].Mode)
	}
}

func TestStosbTaggedAsStringOp(t *testing.T) {
	if Table[0xAA].Form != StringOp {
		t.Errorf("Table[0xAA].Form = %v, want StringOp", Table[0xAA].Form)
	}
}

func TestIsPrefixRecognizesSegmentAndRepBytes(t *testing.T) {
	for _, op := range []uint8{0xF0, 0xF2, 0xF3, 0x26, 0x2E, 0x36, 0x3E} {
		if !IsPrefix(op) {
			t.Errorf("IsPrefix(%#02x) = false, want true", op)
		}
	}
	if IsPrefix(0x90) {
		t.Errorf("IsPrefix(0x90) = true, want false (NOP is not a prefix)")
	}
}

func TestSegmentOverrideMapsPrefixToSegment(t *testing.T) {
	cases := map[uint8]Segment{
		0x26: SegES,
		0x2E: SegCS,
		0x36: SegSS,
		0x3E: SegDefault,
	}
	for op, want := range cases {
		seg, ok := SegmentOverride(op)
		if !ok || seg != want {
			t.Errorf("SegmentOverride(%#02x) = (%v,%v), want (%v,true)", op, seg, ok, want)
		}
	}
}

func TestSegmentOverrideFalseForNonPrefix(t *testing.T) {
	if _, ok := SegmentOverride(0x90); ok {
		t.Errorf("SegmentOverride(0x90) ok = true, want false")
	}
}

func TestPushPopRegOpcodeCoversAllEightRegisters(t *testing.T) {
	for r := uint8(0); r < 8; r++ {
		if Table[0x50+r].Mnemonic != "PUSH" {
			t.Errorf("Table[%#02x].Mnemonic = %q, want PUSH", 0x50+r, Table[0x50+r].Mnemonic)
		}
		if Table[0x58+r].Mnemonic != "POP" {
			t.Errorf("Table[%#02x].Mnemonic = %q, want POP", 0x58+r, Table[0x58+r].Mnemonic)
		}
	}
}
