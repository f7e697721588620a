package bus

import (
	"github.com/dbalsom/martypc/hardware/bus/memorymap"
	"github.com/dbalsom/martypc/logger"
)

// MemFlag is one bit of the per-byte memory-flags field: breakpoints,
// checkpoint hooks, execution-seen markers, and ROM write-protect.
type MemFlag uint8

const (
	FlagExecBreak  MemFlag = 1 << 0
	FlagReadBreak  MemFlag = 1 << 1
	FlagWriteBreak MemFlag = 1 << 2
	FlagCheckpoint MemFlag = 1 << 3
	FlagPatch      MemFlag = 1 << 4
	FlagExecSeen   MemFlag = 1 << 5
	FlagROMLocked  MemFlag = 1 << 6
)

// Patch describes a ROM-set patch: when the trigger address is
// fetched, TargetBytes are written to TargetAddr (even if ROM). Reversible
// lets ReversePatch restore the original bytes.
type Patch struct {
	Label        string
	TriggerAddr  uint32
	TargetAddr   uint32
	TargetBytes  []byte
	OriginalBytes []byte
	Reversible   bool
	applied      bool
}

// Checkpoint is hit-logged at the configured severity when its address is
// fetched.
type Checkpoint struct {
	Label       string
	Addr        uint32
	Severity    logger.Severity
	Description string
}

// Bus owns the flat 1 MiB physical memory backing array, the installed
// range map, the per-byte flags array, and the borrowed device handles.
// Devices are owned by the Machine and registered here by handle.
type Bus struct {
	ram   [1 << 20]byte
	flags [1 << 20]MemFlag

	ranges      memorymap.Map
	devices     []Device
	ioRanges    []ioRange
	patches     []Patch
	checkpoints []Checkpoint

	// DramRefreshEnabled is set by NewBus; nothing in the bus reads it.
	DramRefreshEnabled bool
}

type ioRange struct {
	start, end   uint16
	deviceHandle int
}

// NewBus returns an empty bus. Every byte reads as 0xFF until RAM/ROM
// ranges are installed.
func NewBus() *Bus {
	b := &Bus{DramRefreshEnabled: true}
	for i := range b.ram {
		b.ram[i] = 0xFF
	}
	return b
}

// RegisterDevice returns a handle for dev, for use in InstallMMIO/InstallIO.
func (b *Bus) RegisterDevice(dev Device) int {
	b.devices = append(b.devices, dev)
	return len(b.devices) - 1
}

func (b *Bus) Device(handle int) Device {
	return b.devices[handle]
}

func (b *Bus) Devices() []Device {
	return b.devices
}

// InstallRAM/InstallROM/InstallMMIO install a range into the memory map.
func (b *Bus) InstallRAM(start, end uint32, label string) {
	b.ranges.Install(memorymap.Range{Start: start, End: end, Kind: memorymap.RAM, Label: label})
}

func (b *Bus) InstallROM(start, end uint32, label string, waitStates int, image []byte) {
	b.ranges.Install(memorymap.Range{Start: start, End: end, Kind: memorymap.ROM, Label: label, WaitStates: waitStates})
	for i, v := range image {
		addr := start + uint32(i)
		if addr > end {
			break
		}
		b.ram[addr] = v
		b.flags[addr] |= FlagROMLocked
	}
}

func (b *Bus) InstallMMIO(start, end uint32, label string, waitStates int, handle int) {
	b.ranges.Install(memorymap.Range{Start: start, End: end, Kind: memorymap.MMIO, Label: label, WaitStates: waitStates, DeviceHandle: handle})
}

func (b *Bus) RemoveRange(label string) {
	b.ranges.Remove(label)
}

func (b *Bus) InstallIO(start, end uint16, handle int) {
	b.ioRanges = append(b.ioRanges, ioRange{start: start, end: end, deviceHandle: handle})
}

// RangeAt exposes the installed range classification for a given address,
// used by the BIU to decide wait states and by the debugger.
func (b *Bus) RangeAt(addr uint32) (memorymap.Range, bool) {
	return b.ranges.Lookup(addr & 0xFFFFF)
}

// ReadByte performs a CPU-visible memory read: RAM/ROM served from the flat
// array, MMIO delegated to the owning device, unmapped addresses return
// 0xFF. isFetch marks the access as a code fetch for the "memory seen"
// flag and checkpoint/patch evaluation.
func (b *Bus) ReadByte(addr uint32, isFetch bool) uint8 {
	addr &= 0xFFFFF

	if isFetch {
		b.flags[addr] |= FlagExecSeen
		b.evaluateCheckpoint(addr)
		b.evaluatePatch(addr)
	}

	r, ok := b.RangeAt(addr)
	if !ok {
		return 0xFF
	}
	switch r.Kind {
	case memorymap.RAM, memorymap.ROM:
		return b.ram[addr]
	case memorymap.MMIO:
		return b.devices[r.DeviceHandle].ReadMMIO(addr)
	}
	return 0xFF
}

// WriteByte performs a CPU-visible memory write. Writes to ROM ranges are
// silently ignored unless the byte is not ROM-locked or lies within the
// target bytes of an applied patch.
func (b *Bus) WriteByte(addr uint32, value uint8) {
	addr &= 0xFFFFF

	r, ok := b.RangeAt(addr)
	if !ok {
		return // unmapped writes are discarded
	}
	switch r.Kind {
	case memorymap.RAM:
		b.ram[addr] = value
	case memorymap.ROM:
		writable := b.flags[addr]&FlagROMLocked == 0
		for _, p := range b.patches {
			if p.applied && addr >= p.TargetAddr&0xFFFFF && addr < (p.TargetAddr&0xFFFFF)+uint32(len(p.TargetBytes)) {
				writable = true
			}
		}
		if writable {
			b.ram[addr] = value
		}
	case memorymap.MMIO:
		b.devices[r.DeviceHandle].WriteMMIO(addr, value)
	}
}

// Peek/Poke are the debugger's side-effect-free equivalents of
// ReadByte/WriteByte ("optional peek" MMIO hook).
func (b *Bus) Peek(addr uint32) uint8 {
	addr &= 0xFFFFF
	r, ok := b.RangeAt(addr)
	if !ok {
		return 0xFF
	}
	if r.Kind == memorymap.MMIO {
		return b.devices[r.DeviceHandle].ReadMMIO(addr)
	}
	return b.ram[addr]
}

func (b *Bus) Poke(addr uint32, value uint8) {
	addr &= 0xFFFFF
	b.ram[addr] = value
}

// ReadIO/WriteIO dispatch a port access to the owning device, if any. Ports
// with no installed device read as 0xFF / discard writes, matching the
// unmapped-memory contract.
func (b *Bus) ReadIO(port uint16) uint8 {
	for i := len(b.ioRanges) - 1; i >= 0; i-- {
		if port >= b.ioRanges[i].start && port <= b.ioRanges[i].end {
			return b.devices[b.ioRanges[i].deviceHandle].ReadIO(port)
		}
	}
	return 0xFF
}

func (b *Bus) WriteIO(port uint16, value uint8) {
	for i := len(b.ioRanges) - 1; i >= 0; i-- {
		if port >= b.ioRanges[i].start && port <= b.ioRanges[i].end {
			b.devices[b.ioRanges[i].deviceHandle].WriteIO(port, value)
			return
		}
	}
}

// WaitStatesAt returns the configured wait-state count for the range
// containing addr, 0 if unmapped (consulted by the BIU's Tw insertion).
func (b *Bus) WaitStatesAt(addr uint32) int {
	r, ok := b.RangeAt(addr & 0xFFFFF)
	if !ok {
		return 0
	}
	return r.WaitStates
}

// AddPatch/AddCheckpoint register ROM-set metadata evaluated on
// every executed fetch.
func (b *Bus) AddPatch(p Patch) {
	p.OriginalBytes = make([]byte, len(p.TargetBytes))
	for i := range p.TargetBytes {
		p.OriginalBytes[i] = b.ram[(p.TargetAddr+uint32(i))&0xFFFFF]
	}
	b.patches = append(b.patches, p)
	b.flags[p.TriggerAddr&0xFFFFF] |= FlagPatch
}

func (b *Bus) AddCheckpoint(c Checkpoint) {
	b.checkpoints = append(b.checkpoints, c)
	b.flags[c.Addr&0xFFFFF] |= FlagCheckpoint
}

func (b *Bus) evaluateCheckpoint(addr uint32) {
	if b.flags[addr]&FlagCheckpoint == 0 {
		return
	}
	for _, c := range b.checkpoints {
		if c.Addr&0xFFFFF == addr {
			logger.LogSeverity(c.Severity, "checkpoint", c.Label+": "+c.Description)
		}
	}
}

func (b *Bus) evaluatePatch(addr uint32) {
	if b.flags[addr]&FlagPatch == 0 {
		return
	}
	for i := range b.patches {
		p := &b.patches[i]
		if p.TriggerAddr&0xFFFFF != addr || p.applied {
			continue
		}
		for j, v := range p.TargetBytes {
			b.ram[(p.TargetAddr+uint32(j))&0xFFFFF] = v
		}
		p.applied = true
		logger.Log("patch", "applied "+p.Label)
	}
}

// ReversePatch restores a patch's original bytes, if it supports reversal
// ("optional reverse-trigger").
func (b *Bus) ReversePatch(label string) {
	for i := range b.patches {
		p := &b.patches[i]
		if p.Label != label || !p.Reversible || !p.applied {
			continue
		}
		for j, v := range p.OriginalBytes {
			b.ram[(p.TargetAddr+uint32(j))&0xFFFFF] = v
		}
		p.applied = false
	}
}

// SetFlag/ClearFlag/HasFlag let the debugger manage breakpoint bits.
func (b *Bus) SetFlag(addr uint32, f MemFlag) {
	b.flags[addr&0xFFFFF] |= f
}

func (b *Bus) ClearFlag(addr uint32, f MemFlag) {
	b.flags[addr&0xFFFFF] &^= f
}

func (b *Bus) HasFlag(addr uint32, f MemFlag) bool {
	return b.flags[addr&0xFFFFF]&f != 0
}
