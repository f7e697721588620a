package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMergeOverlayScalarOverride(t *testing.T) {
	base := Config{Machine: MachineConfig{
		Model:  "5150",
		ROMSet: "ibm5150",
		CPU:    CPUConfig{OnHalt: OnHaltContinue},
	}}
	overlay := Config{Machine: MachineConfig{
		Model: "5160",
		CPU:   CPUConfig{OnHalt: OnHaltStop},
	}}

	merged := mergeOverlay(base, overlay)
	if merged.Machine.Model != "5160" {
		t.Errorf("Model = %q, want overlay value %q", merged.Machine.Model, "5160")
	}
	if merged.Machine.ROMSet != "ibm5150" {
		t.Errorf("ROMSet = %q, want base value preserved", merged.Machine.ROMSet)
	}
	if merged.Machine.CPU.OnHalt != OnHaltStop {
		t.Errorf("CPU.OnHalt = %q, want overlay value %q", merged.Machine.CPU.OnHalt, OnHaltStop)
	}
}

func TestMergeOverlayVideoReplacesWholesale(t *testing.T) {
	base := Config{Machine: MachineConfig{
		Video: []VideoConfig{{Type: "CGA"}, {Type: "MDA"}},
	}}
	overlay := Config{Machine: MachineConfig{
		Video: []VideoConfig{{Type: "VGA"}},
	}}

	merged := mergeOverlay(base, overlay)
	if len(merged.Machine.Video) != 1 || merged.Machine.Video[0].Type != "VGA" {
		t.Errorf("Video = %+v, want a single VGA entry replacing the base set", merged.Machine.Video)
	}
}

func TestMergeOverlayEmptyVideoKeepsBase(t *testing.T) {
	base := Config{Machine: MachineConfig{
		Video: []VideoConfig{{Type: "CGA"}},
	}}
	overlay := Config{}

	merged := mergeOverlay(base, overlay)
	if len(merged.Machine.Video) != 1 || merged.Machine.Video[0].Type != "CGA" {
		t.Errorf("Video = %+v, want base preserved when overlay declares no video entries", merged.Machine.Video)
	}
}

func TestMergeOverlaySpeakerIsOrd(t *testing.T) {
	base := Config{Machine: MachineConfig{Speaker: true}}
	overlay := Config{Machine: MachineConfig{Speaker: false}}

	merged := mergeOverlay(base, overlay)
	if !merged.Machine.Speaker {
		t.Errorf("Speaker = false, want true (base already enabled it)")
	}
}

func writeConfig(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

func TestLoadAppliesNamedOverlay(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "turbo.toml", `
[machine]
cpu_wait_override_marker = true

[machine.cpu]
wait_states = 2
`)
	basePath := writeConfig(t, dir, "base.toml", `
[machine]
model = "5150"
overlays = ["turbo"]

[machine.cpu]
wait_states = 4
`)

	graph, err := Load(basePath)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if graph.Machine().Model != "5150" {
		t.Errorf("Model = %q, want %q", graph.Machine().Model, "5150")
	}
	if got := graph.Machine().CPU.WaitStates; got != 2 {
		t.Errorf("CPU.WaitStates = %d, want 2 from the turbo overlay", got)
	}
}

func TestLoadMissingFileErrors(t *testing.T) {
	if _, err := Load("/nonexistent/path/machine.toml"); err == nil {
		t.Fatalf("Load() succeeded for a nonexistent path")
	}
}

func TestLoadMissingOverlayErrors(t *testing.T) {
	dir := t.TempDir()
	basePath := writeConfig(t, dir, "base.toml", `
[machine]
overlays = ["missing"]
`)
	if _, err := Load(basePath); err == nil {
		t.Fatalf("Load() succeeded with a missing named overlay")
	}
}
