// Package hardware wires the CPU, bus, chips, scheduler and video cards
// into the single discrete-event system the rest of the module drives
// through the Machine boundary. Grounded on gopher2600/hardware/
// vcs.go's VCS type, which performs the analogous wiring of 6507+RIOT+
// TIA+cartridge for that system.
package hardware

import (
	"fmt"

	"github.com/dbalsom/martypc/config"
	"github.com/dbalsom/martypc/diskimage"
	"github.com/dbalsom/martypc/hardware/bus"
	"github.com/dbalsom/martypc/hardware/chips/dma"
	"github.com/dbalsom/martypc/hardware/chips/pic"
	"github.com/dbalsom/martypc/hardware/chips/pit"
	"github.com/dbalsom/martypc/hardware/chips/ppi"
	"github.com/dbalsom/martypc/hardware/cpu"
	"github.com/dbalsom/martypc/hardware/cpu/execution"
	"github.com/dbalsom/martypc/hardware/scheduler"
	"github.com/dbalsom/martypc/hardware/video"
	"github.com/dbalsom/martypc/hardware/video/cga"
	"github.com/dbalsom/martypc/hardware/video/ega"
	"github.com/dbalsom/martypc/hardware/video/mda"
	"github.com/dbalsom/martypc/hardware/video/tga"
	"github.com/dbalsom/martypc/hardware/video/vga"
	"github.com/dbalsom/martypc/instrumentation"
	"github.com/dbalsom/martypc/romset"
)

// BreakpointKind re-exports instrumentation.BreakpointKind for callers
// that only import the hardware package (set_breakpoint).
type BreakpointKind = instrumentation.BreakpointKind

const (
	BreakExec  = instrumentation.BreakExec
	BreakRead  = instrumentation.BreakRead
	BreakWrite = instrumentation.BreakWrite
)

// Snapshot is the debugger-facing architectural-state dump
// state_snapshot() returns. It intentionally excludes VRAM and
// device internals: a full save-state system is a Non-goal, this exists
// only to let a caller inspect register/flag state at a breakpoint.
type Snapshot struct {
	AX, CX, DX, BX uint16
	SP, BP, SI, DI uint16
	CS, DS, ES, SS uint16
	IP             uint16
	Flags          uint16
	Halted         bool
	TotalTicks     uint64
}

// Frame is re-exported from the video package for Machine.ReadFrame
// callers.
type Frame = video.Frame

// Machine is the complete emulated PC: CPU, bus, chips, scheduler, video
// card and mounted media, built from a config.Graph.
type Machine struct {
	Bus *bus.Bus
	CPU *cpu.CPU

	PIT *pit.PIT
	PIC *pic.PIC
	DMA *dma.DMA
	PPI *ppi.PPI

	Video video.Card

	Scheduler *Scheduler

	Breakpoints *instrumentation.Breakpoints
	History     *instrumentation.History

	serviceInterruptEnabled bool
	quitRequested           bool
	quitCode                int

	floppyImages map[int][]byte
	vhdImages    map[int][]byte
	cartridge    []byte

	mouseDeltaX, mouseDeltaY int
}

// Scheduler is re-exported so callers never need to import
// hardware/scheduler directly just to hold a reference returned by New.
type Scheduler = scheduler.Scheduler

// New builds a Machine from a resolved configuration graph and ROM
// catalog.
func New(graph *config.Graph, catalog *romset.Catalog) (*Machine, error) {
	mc := graph.Machine()

	b := bus.NewBus()
	b.InstallRAM(0, uint32(mc.Memory.ConventionalSize-1), "conventional")

	set, ok := catalog.ByName(mc.ROMSet)
	if !ok {
		return nil, fmt.Errorf("hardware: unknown ROM set %q", mc.ROMSet)
	}
	romset.LoadInto(b, []*romset.Set{set})

	pitChip := pit.NewPIT()
	picChip := pic.NewPIC()
	dmaChip := dma.NewDMA()
	ppiChip := ppi.NewPPI()

	pitHandle := b.RegisterDevice(pitChip)
	picHandle := b.RegisterDevice(picChip)
	dmaHandle := b.RegisterDevice(dmaChip)
	ppiHandle := b.RegisterDevice(ppiChip)
	b.InstallIO(0x40, 0x43, pitHandle)
	b.InstallIO(0x20, 0x21, picHandle)
	b.InstallIO(0x00, 0x0F, dmaHandle)
	b.InstallIO(0x60, 0x63, ppiHandle)

	cpuType := cpu.Intel8088
	if mc.CPU.CPUType == "V20" {
		cpuType = cpu.NECV20
	}
	core := cpu.NewCPU(b, dmaChip, picChip, cpuType)
	core.OffRailsRun = mc.CPU.OffRailsDetection
	core.ServiceInterrupt = false
	switch mc.CPU.OnHalt {
	case config.OnHaltWarn:
		core.OnHalt = cpu.Warn
	case config.OnHaltStop:
		core.OnHalt = cpu.Stop
	default:
		core.OnHalt = cpu.Continue
	}
	core.BIU().DramRefreshSimulation = mc.CPU.DramRefreshSimulation
	core.BIU().WaitStatesDefault = mc.CPU.WaitStates

	fdcStub, hdcStub, uartStub, soundStub := bus.NullDevice{}, bus.NullDevice{}, bus.NullDevice{}, bus.NullDevice{}
	sched := scheduler.New(core, pitChip, picChip, dmaChip, ppiChip, fdcStub, hdcStub, uartStub, soundStub)

	m := &Machine{
		Bus: b, CPU: core,
		PIT: pitChip, PIC: picChip, DMA: dmaChip, PPI: ppiChip,
		Scheduler:               sched,
		Breakpoints:             instrumentation.NewBreakpoints(b),
		History:                 instrumentation.NewHistory(4096),
		serviceInterruptEnabled: mc.CPU.ServiceInterrupt,
		floppyImages:            make(map[int][]byte),
		vhdImages:               make(map[int][]byte),
	}

	if len(mc.Video) > 0 {
		if err := m.installVideo(mc.Video[0]); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Machine) installVideo(vc config.VideoConfig) error {
	var vramHandle int
	switch vc.Type {
	case "MDA":
		card := mda.NewCard(false)
		vramHandle = m.Bus.RegisterDevice(card)
		m.Bus.InstallMMIO(0xB0000, 0xB0FFF, "mda-vram", 0, vramHandle)
		m.Bus.InstallIO(0x3B0, 0x3BF, vramHandle)
		m.Video = card
		m.Scheduler.AddVideoDevice(card)
	case "Hercules":
		card := mda.NewCard(true)
		vramHandle = m.Bus.RegisterDevice(card)
		m.Bus.InstallMMIO(0xB0000, 0xBFFFF, "hercules-vram", 0, vramHandle)
		m.Bus.InstallIO(0x3B0, 0x3BF, vramHandle)
		m.Video = card
		m.Scheduler.AddVideoDevice(card)
	case "EGA":
		card := ega.NewCard()
		vramHandle = m.Bus.RegisterDevice(card)
		m.Bus.InstallMMIO(0xA0000, 0xAFFFF, "ega-vram", 0, vramHandle)
		m.Bus.InstallIO(0x3C0, 0x3DF, vramHandle)
		m.Video = card
		m.Scheduler.AddVideoDevice(card)
		m.Scheduler.AddIRQSource(2, card)
	case "VGA":
		card := vga.NewCard()
		vramHandle = m.Bus.RegisterDevice(card)
		m.Bus.InstallMMIO(0xA0000, 0xAFFFF, "vga-vram", 0, vramHandle)
		m.Bus.InstallIO(0x3C0, 0x3DF, vramHandle)
		m.Video = card
		m.Scheduler.AddVideoDevice(card)
	case "TGA":
		card := tga.NewCard(func(addr uint32) byte { return m.Bus.Peek(addr) })
		vramHandle = m.Bus.RegisterDevice(card)
		m.Bus.InstallIO(0x3D0, 0x3DF, vramHandle)
		m.Video = card
		m.Scheduler.AddVideoDevice(card)
	default: // CGA
		card := cga.NewCard()
		vramHandle = m.Bus.RegisterDevice(card)
		m.Bus.InstallMMIO(0xB8000, 0xBBFFF, "cga-vram", 0, vramHandle)
		m.Bus.InstallIO(0x3D0, 0x3DF, vramHandle)
		m.Video = card
		m.Scheduler.AddVideoDevice(card)
	}
	return nil
}

// Reset reinitializes the CPU and scheduler tick counter.
func (m *Machine) Reset() {
	m.CPU.Reset()
	m.Scheduler.Reset()
}

// StepInstruction runs exactly one CPU step and services the software
// service-interrupt contract (int 0xFC) before returning.
func (m *Machine) StepInstruction() execution.Result {
	res := m.Scheduler.Tick()
	m.History.Record(res, func(addr uint32) byte { return m.Bus.Peek(addr) })
	m.handleServiceInterrupt()
	return res
}

// handleServiceInterrupt inspects AH after int 0xFC completes: AH=1 is a
// debug-handshake no-op the caller can poll CS:IP for, AH=3 requests the
// host application quit with AL as its exit code.
func (m *Machine) handleServiceInterrupt() {
	if !m.serviceInterruptEnabled || !m.CPU.ServiceInterrupt {
		return
	}
	m.CPU.ServiceInterrupt = false
	switch m.CPU.AX.Hi() {
	case 1:
		// AH=1 delivers the debug program's CS:IP; callers read
		// m.CPU.CS/m.CPU.IP directly rather than through a return value,
		// since the interrupt has already completed by the time Machine
		// observes it.
	case 3:
		m.quitRequested = true
		m.quitCode = int(m.CPU.AX.Lo())
	}
}

// RunFor executes instructions until at least ticks system ticks have
// elapsed, returning voluntarily once its tick budget is spent.
func (m *Machine) RunFor(ticks uint64) {
	target := m.Scheduler.TotalTicks() + ticks
	for m.Scheduler.TotalTicks() < target && !m.CPU.Halted {
		m.StepInstruction()
	}
}

// RunUntil executes instructions until an armed execution breakpoint is
// hit or the CPU halts, returning the address at which it stopped.
func (m *Machine) RunUntil(maxInstructions int) (stoppedAt uint32, hitBreakpoint bool) {
	for i := 0; i < maxInstructions; i++ {
		res := m.StepInstruction()
		if m.Breakpoints.AnyExecHit(res.Address) {
			return res.Address, true
		}
		if m.CPU.Halted {
			return res.Address, false
		}
	}
	return 0, false
}

// ReadFrame returns the currently displayed video frame, or nil if no
// video card is installed.
func (m *Machine) ReadFrame() *Frame {
	if m.Video == nil {
		return nil
	}
	return m.Video.CurrentFrame()
}

// ReadAudio returns the accumulated audio samples since the last call.
// Sound chip synthesis is a Non-goal, so this always returns an empty
// slice; the method exists to satisfy the machine boundary's contract
// for callers that poll it unconditionally.
func (m *Machine) ReadAudio() []int16 {
	return nil
}

// InjectKeyboardEvent delivers a keyboard scan code through the PPI,
// with PCjr/Tandy's keypress-NMI behaviour honored automatically when
// enabled.
func (m *Machine) InjectKeyboardEvent(scanCode uint8, down bool) {
	code := scanCode
	if !down {
		code |= 0x80
	}
	m.PPI.PushScanCode(code)
	if m.PPI.NMIPending() {
		m.CPU.RaiseNMI()
	}
}

// InjectMouseDelta records a relative mouse movement. Mouse input
// translation into a specific serial protocol is a Non-goal; this keeps
// the last delta available for a future peripheral to consume.
func (m *Machine) InjectMouseDelta(dx, dy int) {
	m.mouseDeltaX += dx
	m.mouseDeltaY += dy
}

// MountFloppy records a floppy image for the given drive after
// validating its recognized geometry. FDC command handling beyond
// recognition is a Non-goal.
func (m *Machine) MountFloppy(drive int, imageBytes []byte) error {
	kind, _, err := diskimage.Identify(imageBytes)
	if err != nil {
		return fmt.Errorf("hardware: mount floppy: %w", err)
	}
	if kind != diskimage.KindFloppy {
		return fmt.Errorf("hardware: mount floppy: image is %s, not a floppy", kind)
	}
	m.floppyImages[drive] = imageBytes
	return nil
}

// MountVHD records a fixed-geometry hard disk image for the given drive.
func (m *Machine) MountVHD(drive int, image []byte) error {
	kind, _, err := diskimage.Identify(image)
	if err != nil {
		return fmt.Errorf("hardware: mount vhd: %w", err)
	}
	if kind != diskimage.KindVHD {
		return fmt.Errorf("hardware: mount vhd: image is %s, not a VHD", kind)
	}
	m.vhdImages[drive] = image
	return nil
}

// InsertCartridge maps a recognized PCjr cartridge dump into the address
// space at the conventional cartridge slot base.
func (m *Machine) InsertCartridge(image []byte) error {
	kind, _, err := diskimage.Identify(image)
	if err != nil {
		return fmt.Errorf("hardware: insert cartridge: %w", err)
	}
	if kind != diskimage.KindCartridge {
		return fmt.Errorf("hardware: insert cartridge: image is %s, not a cartridge", kind)
	}
	m.cartridge = image
	m.Bus.InstallROM(0xE0000, 0xE0000+uint32(len(image))-1, "cartridge", 0, image)
	return nil
}

// StateSnapshot returns a read-only copy of architectural state.
func (m *Machine) StateSnapshot() Snapshot {
	return Snapshot{
		AX: m.CPU.AX.Value(), CX: m.CPU.CX.Value(), DX: m.CPU.DX.Value(), BX: m.CPU.BX.Value(),
		SP: m.CPU.SP.Value(), BP: m.CPU.BP.Value(), SI: m.CPU.SI.Value(), DI: m.CPU.DI.Value(),
		CS: m.CPU.CS.Value(), DS: m.CPU.DS.Value(), ES: m.CPU.ES.Value(), SS: m.CPU.SS.Value(),
		IP:         m.CPU.IP,
		Flags:      m.CPU.Flags.ToUint16(),
		Halted:     m.CPU.Halted,
		TotalTicks: m.Scheduler.TotalTicks(),
	}
}

// SetBreakpoint arms a breakpoint of the given kind at a physical address.
func (m *Machine) SetBreakpoint(kind BreakpointKind, addr uint32) {
	m.Breakpoints.Set(kind, addr)
}

// ReadMemory reads n bytes starting at addr without side effects.
func (m *Machine) ReadMemory(addr uint32, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = m.Bus.Peek(addr + uint32(i))
	}
	return out
}

// WriteMemory writes bytes starting at addr.
func (m *Machine) WriteMemory(addr uint32, data []byte) {
	for i, b := range data {
		m.Bus.Poke(addr+uint32(i), b)
	}
}

// QuitRequested reports whether a service interrupt (AH=3) requested the
// host application terminate, and the exit code it supplied.
func (m *Machine) QuitRequested() (bool, int) {
	return m.quitRequested, m.quitCode
}
