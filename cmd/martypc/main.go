// Command martypc runs a machine to a tick budget or a breakpoint and
// reports the architectural state it stopped at. It has no display: a
// GUI front end is a Non-goal, so this binary exercises the same Machine
// boundary an interactive shell would, minus the window. Mode dispatch
// via flag.String mirrors headless.go's -mode switch.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/dbalsom/martypc/config"
	"github.com/dbalsom/martypc/hardware"
	"github.com/dbalsom/martypc/instrumentation"
	"github.com/dbalsom/martypc/logger"
	"github.com/dbalsom/martypc/romset"
)

func main() {
	configPath := flag.String("config", "machine.toml", "path to the machine configuration file")
	romDir := flag.String("romdir", ".", "directory containing the configured ROM set's image files")
	ticks := flag.Uint64("ticks", 0, "run for this many system ticks, then stop (0 runs until halt)")
	breakAddr := flag.String("break", "", "physical address (hex) to arm an execution breakpoint at before running")
	traceFormat := flag.String("trace", "", "cycle trace format: text, csv, sigrok (empty disables tracing)")
	flag.Parse()

	logger.SetEcho(os.Stderr)

	if err := run(*configPath, *romDir, *ticks, *breakAddr, *traceFormat); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath, romDir string, ticks uint64, breakAddr, traceFormat string) error {
	graph, err := config.Load(configPath)
	if err != nil {
		return err
	}

	catalog, err := loadCatalog(romDir, graph.Machine().ROMSet)
	if err != nil {
		return err
	}

	m, err := hardware.New(graph, catalog)
	if err != nil {
		return err
	}
	m.Reset()

	var tracer *instrumentation.CycleTracer
	if traceFormat != "" {
		tracer = instrumentation.NewCycleTracer(m.CPU.BIU(), os.Stdout, parseTraceFormat(traceFormat))
	}

	if breakAddr != "" {
		var addr uint32
		if _, err := fmt.Sscanf(breakAddr, "%x", &addr); err != nil {
			return fmt.Errorf("martypc: invalid -break address %q: %w", breakAddr, err)
		}
		m.SetBreakpoint(hardware.BreakExec, addr)
	}

	if ticks > 0 {
		m.RunFor(ticks)
	} else {
		for !m.CPU.Halted {
			m.StepInstruction()
			if tracer != nil {
				tracer.Sample()
			}
			if quit, code := m.QuitRequested(); quit {
				os.Exit(code)
			}
		}
	}

	snap := m.StateSnapshot()
	fmt.Printf("halted=%v ticks=%d CS:IP=%04X:%04X AX=%04X flags=%04X\n",
		snap.Halted, snap.TotalTicks, snap.CS, snap.IP, snap.AX, snap.Flags)
	return nil
}

func parseTraceFormat(s string) instrumentation.TraceFormat {
	switch s {
	case "csv":
		return instrumentation.TraceCSV
	case "sigrok":
		return instrumentation.TraceSigrok
	default:
		return instrumentation.TraceText
	}
}

// loadCatalog builds a single-set catalog from the raw ROM image named
// "<rom_set>.bin" in romDir. A real catalog would describe chip-level
// organization and per-file md5s; this is the minimal loader a
// command-line driver needs until a full ROM database ships.
func loadCatalog(romDir, romSetName string) (*romset.Catalog, error) {
	path := romDir + "/" + romSetName + ".bin"
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("martypc: loading ROM set %q: %w", romSetName, err)
	}
	catalog := romset.NewCatalog()
	catalog.Add(&romset.Set{
		Name:     romSetName,
		Provides: []string{romSetName},
		Entries: []romset.ROMEntry{
			{Filename: path, LoadAddress: 0xFE000, Size: len(data), Data: data},
		},
	})
	return catalog, nil
}
