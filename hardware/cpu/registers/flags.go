package registers

import "fmt"

// Flags is the 8086 16-bit flags register. Bits 1, 3, 5, 12-15 are
// unused/reserved on the 8086 and always read back as fixed values; we track
// only the flags the instruction set actually needs.
type Flags struct {
	Carry     bool // bit 0
	Parity    bool // bit 2
	Auxiliary bool // bit 4 (AF - BCD half-carry)
	Zero      bool // bit 6
	Sign      bool // bit 7
	Trap      bool // bit 8 (TF - single step)
	Interrupt bool // bit 9 (IF)
	Direction bool // bit 10 (DF)
	Overflow  bool // bit 11 (OF)
}

// NewFlags returns the flags register in the documented 8086 reset state.
func NewFlags() Flags {
	return Flags{}
}

func (f Flags) ToBits() string {
	b := func(set bool, c byte) byte {
		if set {
			return c
		}
		return c - 'A' + 'a'
	}
	return fmt.Sprintf("%c%c%c%c%c%c%c%c%c",
		b(f.Overflow, 'O'), b(f.Direction, 'D'), b(f.Interrupt, 'I'), b(f.Trap, 'T'),
		b(f.Sign, 'S'), b(f.Zero, 'Z'), b(f.Auxiliary, 'A'), b(f.Parity, 'P'), b(f.Carry, 'C'))
}

func (f Flags) String() string {
	return fmt.Sprintf("FLAGS=%#04x[%s]", f.ToUint16(), f.ToBits())
}

// ToUint16 packs the flags into the wire representation used by PUSH
// FLAGS / interrupt entry, with the reserved bits fixed per the 8086
// (bit 1 always 1, bits 3, 5, 12-15 always 0).
func (f Flags) ToUint16() uint16 {
	var v uint16 = 0x0002
	if f.Carry {
		v |= 1 << 0
	}
	if f.Parity {
		v |= 1 << 2
	}
	if f.Auxiliary {
		v |= 1 << 4
	}
	if f.Zero {
		v |= 1 << 6
	}
	if f.Sign {
		v |= 1 << 7
	}
	if f.Trap {
		v |= 1 << 8
	}
	if f.Interrupt {
		v |= 1 << 9
	}
	if f.Direction {
		v |= 1 << 10
	}
	if f.Overflow {
		v |= 1 << 11
	}
	return v
}

// FromUint16 unpacks flags taken from the stack (POPF, IRET).
func (f *Flags) FromUint16(v uint16) {
	f.Carry = v&(1<<0) != 0
	f.Parity = v&(1<<2) != 0
	f.Auxiliary = v&(1<<4) != 0
	f.Zero = v&(1<<6) != 0
	f.Sign = v&(1<<7) != 0
	f.Trap = v&(1<<8) != 0
	f.Interrupt = v&(1<<9) != 0
	f.Direction = v&(1<<10) != 0
	f.Overflow = v&(1<<11) != 0
}

// SetZSP sets the Zero/Sign/Parity flags from an 8 or 16-bit result, the
// trio every logical/arithmetic instruction updates identically.
func (f *Flags) SetZSP8(result uint8) {
	f.Zero = result == 0
	f.Sign = result&0x80 != 0
	f.Parity = parity8(result)
}

func (f *Flags) SetZSP16(result uint16) {
	f.Zero = result == 0
	f.Sign = result&0x8000 != 0
	f.Parity = parity8(uint8(result))
}

func parity8(v uint8) bool {
	v ^= v >> 4
	v ^= v >> 2
	v ^= v >> 1
	return v&1 == 0
}
