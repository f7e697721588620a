package instrumentation

import (
	"fmt"
	"io"
	"strings"

	"github.com/dbalsom/martypc/hardware/cpu"
	"github.com/dbalsom/martypc/hardware/cpu/execution"
)

// TraceFormat selects the cycle-trace rendering, matching the
// machine.cpu.trace_mode config values.
type TraceFormat int

const (
	TraceText TraceFormat = iota
	TraceCSV
	TraceSigrok
)

// CycleTracer emits one record per T-cycle in the format selected by
// Format, consuming the BIU's State()/Op() accessors.
type CycleTracer struct {
	Format TraceFormat
	biu    *cpu.BIU
	out    io.Writer
	tick   uint64
	wroteHeader bool
}

// NewCycleTracer wires a tracer to biu's state for the lifetime of the
// returned tracer; call Sample once per system tick.
func NewCycleTracer(biu *cpu.BIU, out io.Writer, format TraceFormat) *CycleTracer {
	return &CycleTracer{Format: format, biu: biu, out: out}
}

// Sample writes one record for the current tick and advances the
// tracer's internal tick counter.
func (t *CycleTracer) Sample() {
	switch t.Format {
	case TraceCSV:
		t.sampleCSV()
	case TraceSigrok:
		t.sampleSigrok()
	default:
		t.sampleText()
	}
	t.tick++
}

func (t *CycleTracer) sampleText() {
	fmt.Fprintf(t.out, "%08d  %-7s %-12s\n", t.tick, t.biu.State(), opName(t.biu.Op()))
}

func (t *CycleTracer) sampleCSV() {
	if !t.wroteHeader {
		fmt.Fprintln(t.out, "tick,state,op")
		t.wroteHeader = true
	}
	fmt.Fprintf(t.out, "%d,%s,%s\n", t.tick, t.biu.State(), opName(t.biu.Op()))
}

// sampleSigrok emits one column per tracked signal (ALE-equivalent
// state bits and the bus-op one-hot columns) in the fixed-width
// column format the sigrok "CSV input" module expects, letting a
// logic-analyzer-style viewer load a MartyPC cycle trace directly.
func (t *CycleTracer) sampleSigrok() {
	if !t.wroteHeader {
		fmt.Fprintln(t.out, "tick,t1,t2,t3,tw,t4,fetch,memrd,memwr,iord,iowr,inta")
		t.wroteHeader = true
	}
	state := t.biu.State()
	op := t.biu.Op()
	bit := func(cond bool) string {
		if cond {
			return "1"
		}
		return "0"
	}
	cols := []string{
		fmt.Sprintf("%d", t.tick),
		bit(state == cpu.T1), bit(state == cpu.T2), bit(state == cpu.T3), bit(state == cpu.Tw), bit(state == cpu.T4),
		bit(op == cpu.OpCodeFetch), bit(op == cpu.OpMemRead), bit(op == cpu.OpMemWrite),
		bit(op == cpu.OpIORead), bit(op == cpu.OpIOWrite), bit(op == cpu.OpInterruptAck),
	}
	fmt.Fprintln(t.out, strings.Join(cols, ","))
}

func opName(op cpu.BusOp) string {
	switch op {
	case cpu.OpCodeFetch:
		return "FETCH"
	case cpu.OpMemRead:
		return "MEMRD"
	case cpu.OpMemWrite:
		return "MEMWR"
	case cpu.OpIORead:
		return "IORD"
	case cpu.OpIOWrite:
		return "IOWR"
	case cpu.OpInterruptAck:
		return "INTA"
	case cpu.OpHaltAck:
		return "HALT"
	case cpu.OpPassive:
		return "PASSIVE"
	}
	return "IDLE"
}

// InstructionTracer writes one line per retired instruction in a plain
// "step log" format, independent of the per-T-cycle CycleTracer
// (Instruction trace_mode).
type InstructionTracer struct {
	out io.Writer
}

func NewInstructionTracer(out io.Writer) *InstructionTracer {
	return &InstructionTracer{out: out}
}

func (t *InstructionTracer) Sample(res execution.Result, disasmText string) {
	tags := ""
	for _, tag := range res.Tags {
		tags += " [" + tag.String() + "]"
	}
	fmt.Fprintf(t.out, "%04X:%04X  %-32s cycles=%-3d%s\n", res.CSBase, res.IP, disasmText, res.Cycles, tags)
}
