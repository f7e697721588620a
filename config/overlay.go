package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Load reads the configuration file at path, applies every named overlay
// in machine.overlays (looked up as siblings of the base file, in order),
// and returns the resulting immutable Graph: named overlays applied in
// order over a base config, producing an immutable machine graph.
func Load(path string) (*Graph, error) {
	base, err := loadOne(path)
	if err != nil {
		return nil, err
	}

	cfg := base
	dir := filepath.Dir(path)
	for _, name := range base.Machine.Overlays {
		overlayPath := filepath.Join(dir, name+".toml")
		overlay, err := loadOne(overlayPath)
		if err != nil {
			return nil, fmt.Errorf("config: applying overlay %q: %w", name, err)
		}
		cfg = mergeOverlay(cfg, overlay)
	}

	return &Graph{cfg: cfg}, nil
}

func loadOne(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	doc, err := parse(string(data))
	if err != nil {
		return Config{}, err
	}
	return decode(doc), nil
}

// mergeOverlay layers overlay on top of base, field by field. String and
// numeric fields override only when the overlay's value is non-empty or
// non-zero, so an overlay cannot set one back to zero; Speaker and
// ServiceInterrupt are ORed with the base; DramRefreshSimulation is always
// taken from the overlay. Video/FDC/HDC/Serial arrays are replaced
// wholesale when the overlay declares any entries, matching how a named
// overlay typically swaps in an entire alternate peripheral set rather
// than patching individual array slots.
func mergeOverlay(base, overlay Config) Config {
	out := base

	if overlay.Machine.Model != "" {
		out.Machine.Model = overlay.Machine.Model
	}
	if overlay.Machine.ROMSet != "" {
		out.Machine.ROMSet = overlay.Machine.ROMSet
	}
	out.Machine.Speaker = out.Machine.Speaker || overlay.Machine.Speaker
	if len(overlay.Machine.Overlays) > 0 {
		out.Machine.Overlays = overlay.Machine.Overlays
	}

	if overlay.Machine.Memory.ConventionalSize != 0 {
		out.Machine.Memory.ConventionalSize = overlay.Machine.Memory.ConventionalSize
	}
	if overlay.Machine.Memory.WaitStates != 0 {
		out.Machine.Memory.WaitStates = overlay.Machine.Memory.WaitStates
	}

	if overlay.Machine.CPU.WaitStates != 0 {
		out.Machine.CPU.WaitStates = overlay.Machine.CPU.WaitStates
	}
	out.Machine.CPU.DramRefreshSimulation = overlay.Machine.CPU.DramRefreshSimulation
	if overlay.Machine.CPU.OffRailsDetection != 0 {
		out.Machine.CPU.OffRailsDetection = overlay.Machine.CPU.OffRailsDetection
	}
	if overlay.Machine.CPU.OnHalt != "" {
		out.Machine.CPU.OnHalt = overlay.Machine.CPU.OnHalt
	}
	out.Machine.CPU.ServiceInterrupt = out.Machine.CPU.ServiceInterrupt || overlay.Machine.CPU.ServiceInterrupt
	if overlay.Machine.CPU.TraceMode != "" {
		out.Machine.CPU.TraceMode = overlay.Machine.CPU.TraceMode
	}
	if overlay.Machine.CPU.CPUType != "" {
		out.Machine.CPU.CPUType = overlay.Machine.CPU.CPUType
	}

	if len(overlay.Machine.Video) > 0 {
		out.Machine.Video = overlay.Machine.Video
	}
	if len(overlay.Machine.FDC) > 0 {
		out.Machine.FDC = overlay.Machine.FDC
	}
	if len(overlay.Machine.HDC) > 0 {
		out.Machine.HDC = overlay.Machine.HDC
	}
	if len(overlay.Machine.Serial) > 0 {
		out.Machine.Serial = overlay.Machine.Serial
	}

	return out
}
