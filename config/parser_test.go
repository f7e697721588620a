package config

import "testing"

func TestParseScalarsAndSection(t *testing.T) {
	doc, err := parse(`
[machine]
model = "5150"
speaker = true

[machine.memory]
size = 655360
`)
	if err != nil {
		t.Fatalf("parse() error: %v", err)
	}
	if got := get(doc.root, "machine.model"); got != "5150" {
		t.Errorf("machine.model = %v, want %q", got, "5150")
	}
	if got := get(doc.root, "machine.speaker"); got != true {
		t.Errorf("machine.speaker = %v, want true", got)
	}
	if got := get(doc.root, "machine.memory.size"); got != 655360 {
		t.Errorf("machine.memory.size = %v, want 655360", got)
	}
}

func TestParseArrayTable(t *testing.T) {
	doc, err := parse(`
[[machine.video]]
type = "CGA"

[[machine.video]]
type = "MDA"
`)
	if err != nil {
		t.Fatalf("parse() error: %v", err)
	}
	entries := doc.arrays["machine.video"]
	if len(entries) != 2 {
		t.Fatalf("len(machine.video) = %d, want 2", len(entries))
	}
	if got := entries[0].values["type"]; got != "CGA" {
		t.Errorf("entries[0].type = %v, want CGA", got)
	}
	if got := entries[1].values["type"]; got != "MDA" {
		t.Errorf("entries[1].type = %v, want MDA", got)
	}
}

func TestParseStringArray(t *testing.T) {
	doc, err := parse(`overlays = ["turbo", "nosnow"]`)
	if err != nil {
		t.Fatalf("parse() error: %v", err)
	}
	got := getStringArray(doc.root, "overlays")
	want := []string{"turbo", "nosnow"}
	if len(got) != len(want) {
		t.Fatalf("overlays = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("overlays[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestParseStripsCommentsOutsideStrings(t *testing.T) {
	doc, err := parse(`label = "value # not a comment" # this is a comment`)
	if err != nil {
		t.Fatalf("parse() error: %v", err)
	}
	if got := get(doc.root, "label"); got != "value # not a comment" {
		t.Errorf("label = %v, want %q", got, "value # not a comment")
	}
}

func TestParseRejectsMalformedLine(t *testing.T) {
	if _, err := parse("not a valid line"); err == nil {
		t.Fatalf("parse() accepted a line with no '='")
	}
}

func TestParseRejectsUnterminatedString(t *testing.T) {
	if _, err := parse(`label = "unterminated`); err == nil {
		t.Fatalf("parse() accepted an unterminated string")
	}
}

func TestDecodeAppliesDefaultsWhenAbsent(t *testing.T) {
	doc, err := parse(`[machine]
model = "5160"`)
	if err != nil {
		t.Fatalf("parse() error: %v", err)
	}
	cfg := decode(doc)
	if cfg.Machine.Model != "5160" {
		t.Errorf("Model = %q, want %q", cfg.Machine.Model, "5160")
	}
	if cfg.Machine.ROMSet != "ibm5150" {
		t.Errorf("ROMSet default = %q, want %q (unset fields keep defaults)", cfg.Machine.ROMSet, "ibm5150")
	}
	if !cfg.Machine.CPU.DramRefreshSimulation {
		t.Errorf("DramRefreshSimulation default = false, want true")
	}
}

func TestDecodeVideoArray(t *testing.T) {
	doc, err := parse(`
[[machine.video]]
type = "EGA"
clock_mode = "Character"
`)
	if err != nil {
		t.Fatalf("parse() error: %v", err)
	}
	cfg := decode(doc)
	if len(cfg.Machine.Video) != 1 {
		t.Fatalf("len(Video) = %d, want 1", len(cfg.Machine.Video))
	}
	v := cfg.Machine.Video[0]
	if v.Type != "EGA" || v.ClockMode != ClockCharacter {
		t.Errorf("Video[0] = %+v, want Type=EGA ClockMode=Character", v)
	}
}
