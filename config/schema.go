package config

// OnHalt mirrors the machine.cpu.on_halt enum.
type OnHalt string

const (
	OnHaltContinue OnHalt = "Continue"
	OnHaltWarn     OnHalt = "Warn"
	OnHaltStop     OnHalt = "Stop"
)

// TraceMode mirrors machine.cpu.trace_mode.
type TraceMode string

const (
	TraceInstruction TraceMode = "Instruction"
	TraceCycleText    TraceMode = "CycleText"
	TraceCycleCsv     TraceMode = "CycleCsv"
	TraceCycleSigrok  TraceMode = "CycleSigrok"
)

// VideoClockMode mirrors [[machine.video]].clock_mode.
type VideoClockMode string

const (
	ClockDefault   VideoClockMode = "Default"
	ClockCycle     VideoClockMode = "Cycle"
	ClockCharacter VideoClockMode = "Character"
	ClockScanline  VideoClockMode = "Scanline"
	ClockDynamic   VideoClockMode = "Dynamic"
)

// MemoryConfig is [machine.memory].
type MemoryConfig struct {
	ConventionalSize int
	WaitStates       int
}

// CPUConfig is [machine.cpu].
type CPUConfig struct {
	WaitStates            int
	DramRefreshSimulation bool
	OffRailsDetection     int
	OnHalt                OnHalt
	ServiceInterrupt      bool
	TraceMode             TraceMode
	CPUType               string // "8088" or "V20"
}

// VideoConfig is one [[machine.video]] entry.
type VideoConfig struct {
	BusType   string
	Type      string // MDA, CGA, EGA, VGA, TGA, Hercules
	ClockMode VideoClockMode
}

// PeripheralConfig is one [[machine.fdc/hdc/serial/...]] entry: the
// schema only needs the peripheral's type tag since FDC/HDC/UART
// internals are stubs ("preserve ordering, not behaviour").
type PeripheralConfig struct {
	Kind string
}

// MachineConfig is the [machine] table and everything beneath it.
type MachineConfig struct {
	Model    string
	ROMSet   string
	Speaker  bool
	Overlays []string

	Memory MemoryConfig
	CPU    CPUConfig
	Video  []VideoConfig
	FDC    []PeripheralConfig
	HDC    []PeripheralConfig
	Serial []PeripheralConfig
}

// Config is the root decoded document.
type Config struct {
	Machine MachineConfig
}

func defaultConfig() Config {
	return Config{
		Machine: MachineConfig{
			Model:  "5150",
			ROMSet: "ibm5150",
			Memory: MemoryConfig{ConventionalSize: 640 * 1024},
			CPU: CPUConfig{
				DramRefreshSimulation: true,
				OnHalt:                OnHaltContinue,
				TraceMode:             TraceInstruction,
				CPUType:               "8088",
			},
		},
	}
}

func decode(doc *document) Config {
	cfg := defaultConfig()
	m := &cfg.Machine

	m.Model = getString(doc.root, "machine.model", m.Model)
	m.ROMSet = getString(doc.root, "machine.rom_set", m.ROMSet)
	m.Speaker = getBool(doc.root, "machine.speaker", m.Speaker)
	m.Overlays = getStringArray(doc.root, "machine.overlays")

	m.Memory.ConventionalSize = getInt(doc.root, "machine.memory.size", m.Memory.ConventionalSize)
	m.Memory.WaitStates = getInt(doc.root, "machine.memory.wait_states", m.Memory.WaitStates)

	m.CPU.WaitStates = getInt(doc.root, "machine.cpu.wait_states", m.CPU.WaitStates)
	m.CPU.DramRefreshSimulation = getBool(doc.root, "machine.cpu.dram_refresh_simulation", m.CPU.DramRefreshSimulation)
	m.CPU.OffRailsDetection = getInt(doc.root, "machine.cpu.off_rails_detection", m.CPU.OffRailsDetection)
	m.CPU.OnHalt = OnHalt(getString(doc.root, "machine.cpu.on_halt", string(m.CPU.OnHalt)))
	m.CPU.ServiceInterrupt = getBool(doc.root, "machine.cpu.service_interrupt", m.CPU.ServiceInterrupt)
	m.CPU.TraceMode = TraceMode(getString(doc.root, "machine.cpu.trace_mode", string(m.CPU.TraceMode)))
	m.CPU.CPUType = getString(doc.root, "machine.cpu.cpu_type", m.CPU.CPUType)

	for _, t := range doc.arrays["machine.video"] {
		m.Video = append(m.Video, VideoConfig{
			BusType:   getString(t, "bus_type", ""),
			Type:      getString(t, "type", "CGA"),
			ClockMode: VideoClockMode(getString(t, "clock_mode", string(ClockDefault))),
		})
	}
	for _, t := range doc.arrays["machine.fdc"] {
		m.FDC = append(m.FDC, PeripheralConfig{Kind: getString(t, "type", "fdc")})
	}
	for _, t := range doc.arrays["machine.hdc"] {
		m.HDC = append(m.HDC, PeripheralConfig{Kind: getString(t, "type", "hdc")})
	}
	for _, t := range doc.arrays["machine.serial"] {
		m.Serial = append(m.Serial, PeripheralConfig{Kind: getString(t, "type", "uart")})
	}

	return cfg
}
