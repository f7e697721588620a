package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dbalsom/martypc/instrumentation"
)

func TestParseTraceFormatRecognizesEachVariant(t *testing.T) {
	cases := map[string]instrumentation.TraceFormat{
		"csv":    instrumentation.TraceCSV,
		"sigrok": instrumentation.TraceSigrok,
		"text":   instrumentation.TraceText,
		"bogus":  instrumentation.TraceText,
	}
	for in, want := range cases {
		if got := parseTraceFormat(in); got != want {
			t.Errorf("parseTraceFormat(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoadCatalogReadsROMFileIntoSingleSet(t *testing.T) {
	dir := t.TempDir()
	data := []byte{0xF4, 0x00, 0x00}
	if err := os.WriteFile(filepath.Join(dir, "test-bios.bin"), data, 0o644); err != nil {
		t.Fatalf("writing ROM fixture: %v", err)
	}

	catalog, err := loadCatalog(dir, "test-bios")
	if err != nil {
		t.Fatalf("loadCatalog() error: %v", err)
	}

	set, ok := catalog.ByName("test-bios")
	if !ok {
		t.Fatalf("catalog.ByName(%q) not found after loadCatalog", "test-bios")
	}
	if len(set.Entries) != 1 || set.Entries[0].LoadAddress != 0xFE000 {
		t.Errorf("Entries = %+v, want one entry at 0xFE000", set.Entries)
	}
}

func TestLoadCatalogMissingFileErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := loadCatalog(dir, "nope"); err == nil {
		t.Fatalf("loadCatalog() succeeded for a missing ROM file")
	}
}

func TestRunEndToEndHaltsAndReportsNoError(t *testing.T) {
	dir := t.TempDir()
	romData := []byte{0xF4} // HLT
	if err := os.WriteFile(filepath.Join(dir, "test-bios.bin"), romData, 0o644); err != nil {
		t.Fatalf("writing ROM fixture: %v", err)
	}
	cfgPath := filepath.Join(dir, "machine.toml")
	cfg := `
[machine]
model = "5150"
rom_set = "test-bios"

[machine.memory]
conventional_size = 65536
`
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatalf("writing config fixture: %v", err)
	}

	if err := run(cfgPath, dir, 10, "", ""); err != nil {
		t.Errorf("run() error: %v", err)
	}
}

func TestRunPropagatesConfigLoadError(t *testing.T) {
	if err := run("/nonexistent/machine.toml", ".", 1, "", ""); err == nil {
		t.Fatalf("run() succeeded with a nonexistent config path")
	}
}
