package instrumentation

import (
	"testing"

	"github.com/dbalsom/martypc/disassembly"
	"github.com/dbalsom/martypc/hardware/cpu/execution"
)

func makeBytes(addr uint32, data []byte) disassembly.ByteReader {
	return func(a uint32) uint8 {
		idx := int(a - addr)
		if idx < 0 || idx >= len(data) {
			return 0x90 // NOP past the provided window
		}
		return data[idx]
	}
}

func TestHistoryRecordAndLen(t *testing.T) {
	h := NewHistory(4)
	read := makeBytes(0, []byte{0x90})

	h.Record(execution.Result{Address: 0, CSBase: 0, IP: 0, EntryCycle: 1, ExitCycle: 5}, read)

	if h.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", h.Len())
	}
	entries := h.Entries()
	if len(entries) != 1 || entries[0].EntryCycle != 1 || entries[0].ExitCycle != 5 {
		t.Errorf("Entries() = %+v, want one entry with EntryCycle=1 ExitCycle=5", entries)
	}
}

func TestHistoryWrapsAtCapacity(t *testing.T) {
	h := NewHistory(3)
	read := makeBytes(0, []byte{0x90})

	for i := 0; i < 5; i++ {
		h.Record(execution.Result{IP: uint16(i), EntryCycle: uint64(i)}, read)
	}

	if h.Len() != 3 {
		t.Fatalf("Len() = %d, want 3 (ring capacity)", h.Len())
	}

	entries := h.Entries()
	if len(entries) != 3 {
		t.Fatalf("len(Entries()) = %d, want 3", len(entries))
	}
	// Oldest surviving entry is IP=2, the most recent is IP=4.
	if entries[0].IP != 2 || entries[2].IP != 4 {
		t.Errorf("Entries() IPs = [%d,%d,%d], want [2,3,4]", entries[0].IP, entries[1].IP, entries[2].IP)
	}
}

func TestHistoryClearEmptiesRing(t *testing.T) {
	h := NewHistory(4)
	read := makeBytes(0, []byte{0x90})
	h.Record(execution.Result{}, read)
	h.Clear()

	if h.Len() != 0 {
		t.Errorf("Len() = %d after Clear, want 0", h.Len())
	}
	if len(h.Entries()) != 0 {
		t.Errorf("Entries() non-empty after Clear")
	}
}

func TestHistoryRecordDecodesDisassembly(t *testing.T) {
	h := NewHistory(2)
	// 0xB0 0x05 is MOV AL, imm8.
	read := makeBytes(0x100, []byte{0xB0, 0x05})

	h.Record(execution.Result{Address: 0x100}, read)

	entries := h.Entries()
	if len(entries) != 1 {
		t.Fatalf("len(Entries()) = %d, want 1", len(entries))
	}
	if entries[0].Disasm == "" {
		t.Errorf("Disasm is empty, want a decoded instruction string")
	}
}
