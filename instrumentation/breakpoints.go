package instrumentation

import (
	"github.com/dbalsom/martypc/hardware/bus"
	"github.com/dbalsom/martypc/logger"
)

// BreakpointKind selects which of the bus's per-byte memory-flag bits a
// breakpoint sets (see SetBreakpoint).
type BreakpointKind int

const (
	BreakExec BreakpointKind = iota
	BreakRead
	BreakWrite
)

func (k BreakpointKind) flag() bus.MemFlag {
	switch k {
	case BreakRead:
		return bus.FlagReadBreak
	case BreakWrite:
		return bus.FlagWriteBreak
	default:
		return bus.FlagExecBreak
	}
}

// Breakpoints manages the set of addresses flagged for a stop condition
// directly on the shared bus.Bus flags array, rather than keeping
// its own address list, so the BIU's existing per-byte flag checks
// are the single source of truth the CPU consults during a run.
type Breakpoints struct {
	bus *bus.Bus
	set map[uint32]BreakpointKind
}

func NewBreakpoints(b *bus.Bus) *Breakpoints {
	return &Breakpoints{bus: b, set: make(map[uint32]BreakpointKind)}
}

// Set arms a breakpoint of the given kind at addr.
func (bp *Breakpoints) Set(kind BreakpointKind, addr uint32) {
	bp.bus.SetFlag(addr, kind.flag())
	bp.set[addr] = kind
}

// Clear disarms a previously-set breakpoint.
func (bp *Breakpoints) Clear(addr uint32) {
	if kind, ok := bp.set[addr]; ok {
		bp.bus.ClearFlag(addr, kind.flag())
		delete(bp.set, addr)
	}
}

// ClearAll disarms every breakpoint this instance has set.
func (bp *Breakpoints) ClearAll() {
	for addr := range bp.set {
		bp.Clear(addr)
	}
}

// Hit reports whether addr currently carries the stop-condition flag for
// kind (run_until poll).
func (bp *Breakpoints) Hit(kind BreakpointKind, addr uint32) bool {
	return bp.bus.HasFlag(addr, kind.flag())
}

// AnyExecHit reports whether execAddr matches any armed execution
// breakpoint, the condition RunUntil checks after every CPU step.
func (bp *Breakpoints) AnyExecHit(execAddr uint32) bool {
	return bp.Hit(BreakExec, execAddr)
}

// Checkpoint installs a ROM-set-style hit-logged checkpoint at addr
//, reusing the bus's own checkpoint evaluation rather than
// duplicating it here.
func (bp *Breakpoints) Checkpoint(addr uint32, label, description string, severity logger.Severity) {
	bp.bus.AddCheckpoint(bus.Checkpoint{Label: label, Addr: addr, Severity: severity, Description: description})
}

// Stopwatch measures elapsed system ticks between two addresses being
// fetched. It is driven by the caller feeding it each retired
// instruction's execution address and entry/exit tick.
type Stopwatch struct {
	StartAddr, StopAddr uint32

	running    bool
	startTick  uint64
	lastResult uint64
	hasResult  bool
}

func NewStopwatch(start, stop uint32) *Stopwatch {
	return &Stopwatch{StartAddr: start, StopAddr: stop}
}

// Observe feeds one retired instruction's address and tick range to the
// stopwatch, arming it when StartAddr is hit and latching the elapsed
// tick count when StopAddr is hit.
func (s *Stopwatch) Observe(addr uint32, entryTick, exitTick uint64) {
	if addr == s.StartAddr {
		s.running = true
		s.startTick = entryTick
	}
	if s.running && addr == s.StopAddr {
		s.lastResult = exitTick - s.startTick
		s.hasResult = true
		s.running = false
	}
}

// Result returns the most recently measured elapsed tick count and
// whether a measurement has completed yet.
func (s *Stopwatch) Result() (uint64, bool) {
	return s.lastResult, s.hasResult
}
