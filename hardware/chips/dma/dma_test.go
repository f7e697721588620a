package dma

import "testing"

func TestRefreshDueAfterPeriod(t *testing.T) {
	d := NewDMA()
	if d.Due() {
		t.Fatalf("fresh DMA already reports refresh due")
	}
	d.Tick(refreshPeriod - 1)
	if d.Due() {
		t.Fatalf("refresh due one tick before the period elapses")
	}
	d.Tick(1)
	if !d.Due() {
		t.Fatalf("refresh not due exactly at the period boundary")
	}
}

func TestConsumeClearsRefreshDue(t *testing.T) {
	d := NewDMA()
	d.Tick(refreshPeriod)
	if !d.Due() {
		t.Fatalf("setup: refresh not due")
	}
	d.Consume()
	if d.Due() {
		t.Errorf("Due() still true after Consume()")
	}
}

func TestRefreshAdvancesChannel0Address(t *testing.T) {
	d := NewDMA()
	before := d.channels[0].currentAddr
	d.Tick(refreshPeriod)
	after := d.channels[0].currentAddr
	if after != before+1 {
		t.Errorf("channel 0 currentAddr = %d, want %d", after, before+1)
	}
}

func TestMaskedChannel0SkipsRefreshService(t *testing.T) {
	d := NewDMA()
	d.channels[0].masked = true
	before := d.channels[0].currentAddr
	d.Tick(refreshPeriod)
	if d.channels[0].currentAddr != before {
		t.Errorf("masked channel 0 address advanced: before=%d after=%d", before, d.channels[0].currentAddr)
	}
}

func TestDMARequestReflectsChannel0Mask(t *testing.T) {
	d := NewDMA()
	if !d.DMARequest() {
		t.Fatalf("DMARequest() = false with channel 0 unmasked")
	}
	d.channels[0].masked = true
	if d.DMARequest() {
		t.Errorf("DMARequest() = true with channel 0 masked")
	}
}

func TestWriteIOBaseAddressFlipFlop(t *testing.T) {
	d := NewDMA()
	d.WriteIO(0x00, 0x34) // channel 0 address low byte
	d.WriteIO(0x00, 0x12) // channel 0 address high byte

	if got := d.channels[0].baseAddr; got != 0x1234 {
		t.Fatalf("baseAddr = %#04x, want %#04x", got, 0x1234)
	}
	if got := d.channels[0].currentAddr; got != 0x1234 {
		t.Errorf("currentAddr = %#04x, want %#04x (loaded on high-byte write)", got, 0x1234)
	}
}

func TestWriteIOModeRegister(t *testing.T) {
	d := NewDMA()
	// channel 1, autoinit set, mode=read (0b10)
	d.WriteIO(0x0B, 0x01|0x10|(ModeRead<<2))
	c := d.channels[1]
	if !c.autoInit {
		t.Errorf("autoInit not set")
	}
	if c.mode != ModeRead {
		t.Errorf("mode = %d, want %d", c.mode, ModeRead)
	}
}

func TestMasterClearResetsChannels(t *testing.T) {
	d := NewDMA()
	d.WriteIO(0x00, 0x34)
	d.WriteIO(0x00, 0x12)
	d.WriteIO(0x0D, 0) // master clear
	if d.channels[0].baseAddr != 0 {
		t.Errorf("baseAddr survived master clear: %#04x", d.channels[0].baseAddr)
	}
}

func TestRequestTransferDecrementsCountAndSetsTerminalCount(t *testing.T) {
	d := NewDMA()
	d.channels[1].currentCount = 3
	d.RequestTransfer(1, 5)
	if d.channels[1].currentCount != 0 {
		t.Fatalf("currentCount = %d, want 0", d.channels[1].currentCount)
	}
	if !d.channels[1].terminalCount {
		t.Errorf("terminalCount not set after count reached 0")
	}
}

func TestRequestTransferIgnoresRefreshChannel(t *testing.T) {
	d := NewDMA()
	before := d.channels[0].currentAddr
	d.RequestTransfer(0, 5)
	if d.channels[0].currentAddr != before {
		t.Errorf("RequestTransfer modified reserved refresh channel 0")
	}
}
