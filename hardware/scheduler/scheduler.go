// Package scheduler implements the device-tick loop that drives the CPU
// and every peripheral chip off one shared clock. Each call to
// Tick runs exactly one CPU step (an instruction, one REP-string
// iteration, or one idle HLT tick) and advances every device the number
// of T-cycles that step consumed, in the fixed order PIT, PIC, DMA, PPI,
// FDC, HDC, UART, video, sound, then samples each device's IRQ line into
// the PIC before the CPU's next step is allowed to sample INTR. Grounded
// on gopher2600/hardware/vcs.go's Step(), whose fixed RIOT->TIA->RIOT->
// TIA->TIA interleave per CPU cycle is the same "visit every chip in a
// constant order every tick" discipline generalized here to nine devices
// and a CPU that can consume a variable number of T-cycles per step.
package scheduler

import (
	"github.com/dbalsom/martypc/hardware/chips/dma"
	"github.com/dbalsom/martypc/hardware/chips/pic"
	"github.com/dbalsom/martypc/hardware/chips/pit"
	"github.com/dbalsom/martypc/hardware/chips/ppi"
	"github.com/dbalsom/martypc/hardware/cpu"
	"github.com/dbalsom/martypc/hardware/cpu/execution"
)

// irqLine binds a device's IRQLine() output to the IR input the PIC
// should sample it on, per the IBM PC/XT's fixed wiring.
type irqLine struct {
	irq    int
	device interface{ IRQLine() bool }
}

// Scheduler owns the fixed device order and the CPU that drives it.
type Scheduler struct {
	CPU *cpu.CPU

	PIT *pit.PIT
	PIC *pic.PIC
	DMA *dma.DMA
	PPI *ppi.PPI

	FDC, HDC, UART, Sound tickable
	Video                 []tickable

	irqLines []irqLine

	totalTicks uint64
}

// tickable is the subset of bus.Device the scheduler needs to advance a
// stub or video device; FDC/HDC/UART/sound satisfy it via bus.NullDevice,
// video cards via their CRTC-embedding Tick method.
type tickable interface {
	Tick(n int)
}

// New wires a scheduler around the given CPU and the canonical PC/XT chip
// set. fdc/hdc/uart/sound may be bus.NullDevice{} values: their internals
// are out of scope, but they must still occupy their slot in the fixed
// order.
func New(c *cpu.CPU, p *pit.PIT, ic *pic.PIC, d *dma.DMA, pp *ppi.PPI, fdc, hdc, uart, sound tickable) *Scheduler {
	s := &Scheduler{
		CPU: c, PIT: p, PIC: ic, DMA: d, PPI: pp,
		FDC: fdc, HDC: hdc, UART: uart, Sound: sound,
	}
	s.irqLines = []irqLine{
		{irq: 0, device: p},
	}
	return s
}

// AddVideoDevice registers a video card to be ticked every system tick,
// in the fixed position after the stub peripherals and before sound.
// Multiple cards may be installed (e.g. a CGA plus a passthrough
// MDA), matching real multi-card setups.
func (s *Scheduler) AddVideoDevice(v tickable) {
	s.Video = append(s.Video, v)
}

// AddIRQSource wires an additional device's IRQLine() output to a given
// IR input, for peripherals beyond the PIT (e.g. the UART on IRQ4, an EGA
// or VGA's vertical-retrace IRQ).
func (s *Scheduler) AddIRQSource(irq int, device interface{ IRQLine() bool }) {
	s.irqLines = append(s.irqLines, irqLine{irq: irq, device: device})
}

// tick implements steps 2-4 of the 5-step algorithm: every device in the
// fixed order advances by n, then IRQ lines are resampled into the PIC.
// This is the tickFn the CPU's StepInstruction calls once per bus T-cycle,
// so "tick(n)" may run several times within a single Tick() call -- each
// invocation still visits the full device order, matching real hardware
// where every chip shares the same oscillator regardless of what the CPU
// is doing.
func (s *Scheduler) tick(n int) {
	s.PIT.Tick(n)
	s.PIC.Tick(n)
	s.DMA.Tick(n)
	s.PPI.Tick(n)
	s.FDC.Tick(n)
	s.HDC.Tick(n)
	s.UART.Tick(n)
	for _, v := range s.Video {
		v.Tick(n)
	}
	s.Sound.Tick(n)

	for _, line := range s.irqLines {
		s.PIC.SetIRQLine(line.irq, line.device.IRQLine())
	}

	s.totalTicks += uint64(n)
}

// Tick runs one CPU step to completion, which internally calls s.tick one
// or more times as the BIU consumes bus cycles (5-step loop
// collapsed into a single call since the CPU already reports its own
// cycle count per T-state via tickFn).
func (s *Scheduler) Tick() execution.Result {
	return s.CPU.StepInstruction(s.tick, s.totalTicks)
}

// TotalTicks reports the cumulative system-tick count since construction
// or the last Reset, the basis for RunFor(ticks) budgets.
func (s *Scheduler) TotalTicks() uint64 { return s.totalTicks }

// Reset zeroes the tick counter, called alongside CPU.Reset.
func (s *Scheduler) Reset() { s.totalTicks = 0 }
