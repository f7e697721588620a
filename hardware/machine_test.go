package hardware

import (
	"testing"

	"github.com/dbalsom/martypc/config"
	"github.com/dbalsom/martypc/romset"
)

func newTestMachine(t *testing.T, video []config.VideoConfig) *Machine {
	t.Helper()

	catalog := romset.NewCatalog()
	catalog.Add(&romset.Set{
		Name:     "test-bios",
		Provides: []string{"bios"},
		Entries: []romset.ROMEntry{
			{LoadAddress: 0xFFFF0, Data: []byte{0xF4}}, // HLT at the reset vector
		},
	})

	cfg := config.Config{
		Machine: config.MachineConfig{
			Model:  "5150",
			ROMSet: "test-bios",
			Memory: config.MemoryConfig{ConventionalSize: 64 * 1024},
			CPU: config.CPUConfig{
				CPUType:          "8088",
				ServiceInterrupt: true,
			},
			Video: video,
		},
	}
	graph := config.NewGraph(cfg)

	m, err := New(graph, catalog)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return m
}

func TestNewMachineWiresResetVectorROM(t *testing.T) {
	m := newTestMachine(t, nil)

	if got := m.Bus.Peek(0xFFFF0); got != 0xF4 {
		t.Fatalf("Peek(0xFFFF0) = %#02x, want 0xF4 (HLT)", got)
	}
}

func TestNewMachineUnknownROMSetErrors(t *testing.T) {
	catalog := romset.NewCatalog()
	cfg := config.Config{Machine: config.MachineConfig{ROMSet: "nope", Memory: config.MemoryConfig{ConventionalSize: 1024}}}
	graph := config.NewGraph(cfg)

	if _, err := New(graph, catalog); err == nil {
		t.Fatalf("New() succeeded for an unknown ROM set, want an error")
	}
}

func TestNewMachineInstallsCGAByDefault(t *testing.T) {
	m := newTestMachine(t, []config.VideoConfig{{Type: "CGA"}})

	if m.Video == nil {
		t.Fatalf("Video is nil after installing a CGA card")
	}
	if m.ReadFrame() == nil {
		t.Errorf("ReadFrame() = nil with a video card installed")
	}
}

func TestReadFrameNilWithoutVideo(t *testing.T) {
	m := newTestMachine(t, nil)

	if m.ReadFrame() != nil {
		t.Errorf("ReadFrame() != nil with no video card installed")
	}
}

func TestStepInstructionHaltsCPUOnHLT(t *testing.T) {
	m := newTestMachine(t, nil)
	m.CPU.CS.Load(0xFFFF)
	m.CPU.IP = 0

	m.StepInstruction()

	if !m.CPU.Halted {
		t.Fatalf("Halted = false after stepping onto the HLT reset vector")
	}
	if m.History.Len() != 1 {
		t.Errorf("History.Len() = %d, want 1", m.History.Len())
	}
}

func TestRunForRespectsHalt(t *testing.T) {
	m := newTestMachine(t, nil)
	m.CPU.CS.Load(0xFFFF)
	m.CPU.IP = 0

	m.RunFor(1000)

	if !m.CPU.Halted {
		t.Errorf("Halted = false after RunFor on a machine that immediately halts")
	}
}

func TestServiceInterruptQuitRequest(t *testing.T) {
	m := newTestMachine(t, nil)
	m.Bus.WriteByte(0x1000, 0xB0) // MOV AL, 0x2A
	m.Bus.WriteByte(0x1001, 0x2A)
	m.Bus.WriteByte(0x1002, 0xB4) // MOV AH, 0x03
	m.Bus.WriteByte(0x1003, 0x03)
	m.Bus.WriteByte(0x1004, 0xCD) // INT 0xFC
	m.Bus.WriteByte(0x1005, 0xFC)
	m.Bus.WriteByte(0xFC*4, 0)
	m.Bus.WriteByte(0xFC*4+1, 0x20)
	m.Bus.WriteByte(0xFC*4+2, 0)
	m.Bus.WriteByte(0xFC*4+3, 0)

	m.CPU.CS.Load(0)
	m.CPU.IP = 0x1000

	for i := 0; i < 3; i++ {
		m.StepInstruction()
	}

	quit, code := m.QuitRequested()
	if !quit {
		t.Fatalf("QuitRequested() = false after AH=3 service interrupt")
	}
	if code != 0x2A {
		t.Errorf("exit code = %#02x, want 0x2A", code)
	}
}

func TestSetBreakpointStopsRunUntil(t *testing.T) {
	m := newTestMachine(t, nil)
	m.Bus.WriteByte(0x2000, 0x90) // NOP
	m.Bus.WriteByte(0x2001, 0x90) // NOP
	m.CPU.CS.Load(0)
	m.CPU.IP = 0x2000

	m.SetBreakpoint(BreakExec, 0x2001)

	addr, hit := m.RunUntil(10)
	if !hit {
		t.Fatalf("RunUntil() did not report a breakpoint hit")
	}
	if addr != 0x2001 {
		t.Errorf("stoppedAt = %#05x, want 0x2001", addr)
	}
}

func TestMountFloppyRejectsWrongKind(t *testing.T) {
	m := newTestMachine(t, nil)

	if err := m.MountFloppy(0, make([]byte, 123)); err == nil {
		t.Errorf("MountFloppy() succeeded for an unrecognized size, want an error")
	}
}

func TestMountFloppyAcceptsRecognizedGeometry(t *testing.T) {
	m := newTestMachine(t, nil)

	if err := m.MountFloppy(0, make([]byte, 360*1024)); err != nil {
		t.Errorf("MountFloppy() error for a valid 360K image: %v", err)
	}
}

func TestReadWriteMemoryRoundTrips(t *testing.T) {
	m := newTestMachine(t, nil)

	m.WriteMemory(0x3000, []byte{1, 2, 3})
	got := m.ReadMemory(0x3000, 3)
	if got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Errorf("ReadMemory() = %v, want [1 2 3]", got)
	}
}

func TestStateSnapshotReflectsRegisters(t *testing.T) {
	m := newTestMachine(t, nil)
	m.CPU.AX.Load(0x1234)

	snap := m.StateSnapshot()
	if snap.AX != 0x1234 {
		t.Errorf("Snapshot.AX = %#04x, want 0x1234", snap.AX)
	}
}

func TestInjectKeyboardEventReachesPPI(t *testing.T) {
	m := newTestMachine(t, nil)

	m.InjectKeyboardEvent(0x1E, true) // 'A' make code
	if m.PPI.ReadIO(0x62)&0x10 == 0 {
		t.Errorf("port C keyboard-ready bit not set after InjectKeyboardEvent")
	}
}
