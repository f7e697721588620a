// Command marty_headless runs a batch of machine configurations to
// completion without any display and reports pass/fail per run, the
// driver a CI pipeline invokes instead of an interactive session.
// Grounded on headless.go's flag-driven mode dispatch and on
// regression.go's "run a scenario, report a result" shape, adapted to
// the AH=3 service-interrupt quit convention standing in for that
// package's frame-digest comparison.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dbalsom/martypc/config"
	"github.com/dbalsom/martypc/hardware"
	"github.com/dbalsom/martypc/romset"
)

func main() {
	configGlob := flag.String("configs", "*.toml", "glob pattern (relative to -configdir) matching one config file per scenario")
	configDir := flag.String("configdir", ".", "directory containing scenario config files")
	romDir := flag.String("romdir", ".", "directory containing ROM set image files")
	maxInstructions := flag.Int("max-instructions", 20_000_000, "give up and fail a scenario after this many retired instructions")
	flag.Parse()

	matches, err := filepath.Glob(filepath.Join(*configDir, *configGlob))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if len(matches) == 0 {
		fmt.Fprintf(os.Stderr, "marty_headless: no config files matched %s\n", filepath.Join(*configDir, *configGlob))
		os.Exit(1)
	}

	failures := 0
	for _, path := range matches {
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		code, err := runScenario(path, *romDir, *maxInstructions)
		switch {
		case err != nil:
			fmt.Printf("FAIL %-24s %v\n", name, err)
			failures++
		case code != 0:
			fmt.Printf("FAIL %-24s exit code %d\n", name, code)
			failures++
		default:
			fmt.Printf("PASS %-24s\n", name)
		}
	}

	if failures > 0 {
		fmt.Printf("%d/%d scenarios failed\n", failures, len(matches))
		os.Exit(1)
	}
	fmt.Printf("%d scenarios passed\n", len(matches))
}

// runScenario runs one configuration to a quit request (AH=3), a CPU
// halt, or the instruction budget, whichever comes first, and returns
// the quit code a passing scenario is expected to report as zero.
func runScenario(configPath, romDir string, maxInstructions int) (int, error) {
	graph, err := config.Load(configPath)
	if err != nil {
		return 0, err
	}

	catalog, err := loadCatalog(romDir, graph.Machine().ROMSet)
	if err != nil {
		return 0, err
	}

	m, err := hardware.New(graph, catalog)
	if err != nil {
		return 0, err
	}
	m.Reset()

	for i := 0; i < maxInstructions; i++ {
		m.StepInstruction()
		if quit, code := m.QuitRequested(); quit {
			return code, nil
		}
		if m.CPU.Halted {
			return 0, fmt.Errorf("halted at tick %d without a quit request", m.Scheduler.TotalTicks())
		}
	}
	return 0, fmt.Errorf("exceeded %d instructions without a quit request", maxInstructions)
}

func loadCatalog(romDir, romSetName string) (*romset.Catalog, error) {
	path := filepath.Join(romDir, romSetName+".bin")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading ROM set %q: %w", romSetName, err)
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
