// machine.go - Spectrum machine: CPU, memory, frame pacing and display observers

/*
 ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████
▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀
▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███
░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄
░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒
░▓  ░ ▒░   ▒ ▒   ▒ ░░   ░▒▓▒ ▒ ▒ ░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░
 ▒ ░░ ░░   ░ ▒░    ░    ░░▒░ ░ ░  ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░
 ▒ ░   ░   ░ ░   ░       ░░░ ░ ░  ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░
 ░           ░             ░      ░            ░      ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionEngine
License: GPLv3 or later
*/

/*
machine.go - Spectrum Machine

A Machine owns one Z80 engine, one memory model and the frame counter that
turns the running T-state count into periodic interrupts. Every frame it
raises the frame interrupt and notifies the attached display devices with a
read-only window onto display memory. Rendering happens elsewhere.

Models:
  Spectrum48K   16K ROM + 48K RAM over a flat 64K store with overlays
  Spectrum128K  2 ROM pages + 8 RAM pages, paging port 0x7FFD

The machine is not safe for concurrent use. Callers pause their pacing loop
(or hold the MachineRunner lock) while reading or mutating state.
*/

package spectrum

import (
	"fmt"
	"strings"

	"github.com/retroenv/retrogolib/log"
)

// Model selects the memory layout and I/O decoding.
type Model int

const (
	Spectrum48K Model = iota
	Spectrum128K
)

func (m Model) String() string {
	switch m {
	case Spectrum48K:
		return "48k"
	case Spectrum128K:
		return "128k"
	}
	return fmt.Sprintf("model(%d)", int(m))
}

// ParseModel accepts "48", "48k", "128" and "128k" in any case.
func ParseModel(s string) (Model, error) {
	switch strings.TrimSuffix(strings.ToLower(s), "k") {
	case "48":
		return Spectrum48K, nil
	case "128":
		return Spectrum128K, nil
	}
	return 0, fmt.Errorf("unknown machine model %q", s)
}

// FrameInterrupt is the kind of interrupt raised once per frame.
type FrameInterrupt int

const (
	// FrameInterruptNMI raises a non-maskable interrupt every frame. It is
	// the historical default of this machine, kept for compatibility.
	FrameInterruptNMI FrameInterrupt = iota
	// FrameInterruptIRQ raises a maskable interrupt with 0xFF on the data
	// bus, matching the real ULA.
	FrameInterruptIRQ
)

func (f FrameInterrupt) String() string {
	if f == FrameInterruptIRQ {
		return "irq"
	}
	return "nmi"
}

func ParseFrameInterrupt(s string) (FrameInterrupt, error) {
	switch strings.ToLower(s) {
	case "nmi":
		return FrameInterruptNMI, nil
	case "irq", "int":
		return FrameInterruptIRQ, nil
	}
	return 0, fmt.Errorf("unknown frame interrupt %q", s)
}

const (
	Clock48KHz       = 3500000
	Clock128KHz      = 3546900
	DefaultFrameRate = 50

	romBase = 0x0000
	ramBase = 0x4000
	idleBus = 0xFF
	irqData = 0xFF
)

// MachineConfig configures NewMachine.
type MachineConfig struct {
	Model          Model
	ClockHz        int
	FrameRate      int
	FrameInterrupt FrameInterrupt
	Logger         *log.Logger
}

// DefaultMachineConfig returns the configuration for model with the stock
// clock, a 50Hz frame and the NMI frame interrupt.
func DefaultMachineConfig(model Model) MachineConfig {
	clock := Clock48KHz
	if model == Spectrum128K {
		clock = Clock128KHz
	}
	return MachineConfig{
		Model:          model,
		ClockHz:        clock,
		FrameRate:      DefaultFrameRate,
		FrameInterrupt: FrameInterruptNMI,
	}
}

// TraceEntry describes one executed instruction.
type TraceEntry struct {
	PC      uint16
	Bytes   []byte
	Text    string
	TStates int
	Regs    Registers
}

func (e TraceEntry) String() string {
	hex := make([]string, len(e.Bytes))
	for i, b := range e.Bytes {
		hex[i] = fmt.Sprintf("%02X", b)
	}
	return fmt.Sprintf("%04X  %-12s %-20s %3dT  %s", e.PC, strings.Join(hex, " "), e.Text, e.TStates, e.Regs.String())
}

type Machine struct {
	cfg    MachineConfig
	logger *log.Logger

	cpu    *CPU_Z80
	bus    *spectrumBus
	mem    Memory
	mapper Mapper
	linear *LinearMemory // 48K only
	paged  *PagedMemory  // 128K only

	// roms holds the loaded image of each ROM page for reinstallation.
	roms [][]byte

	frameTStates int
	counter      int
	frames       uint64

	displays []DisplayDevice
	tracer   func(TraceEntry)
}

func NewMachine(cfg MachineConfig) (*Machine, error) {
	if cfg.ClockHz <= 0 || cfg.FrameRate <= 0 {
		return nil, fmt.Errorf("machine: clock %d Hz and frame rate %d must be positive", cfg.ClockHz, cfg.FrameRate)
	}
	if cfg.ClockHz < cfg.FrameRate {
		return nil, fmt.Errorf("machine: clock %d Hz below frame rate %d", cfg.ClockHz, cfg.FrameRate)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewWithConfig(log.DefaultConfig())
	}

	m := &Machine{
		cfg:          cfg,
		logger:       logger,
		frameTStates: cfg.ClockHz / cfg.FrameRate,
	}

	switch cfg.Model {
	case Spectrum48K:
		m.linear = NewLinearMemory(addressSize)
		mappable := NewMappableMemory(m.linear)
		m.mem = mappable
		m.mapper = mappable
		m.roms = make([][]byte, 1)
	case Spectrum128K:
		paged, err := NewPagedMemory(Layout128K)
		if err != nil {
			return nil, fmt.Errorf("machine: %w", err)
		}
		m.paged = paged
		m.mem = paged
		m.mapper = paged
		m.roms = make([][]byte, paged.ROMPageCount())
	default:
		return nil, fmt.Errorf("machine: unsupported model %s", cfg.Model)
	}

	m.bus = newSpectrumBus(m)
	m.cpu = NewCPU_Z80(m.bus)

	logger.Debug("Machine created",
		log.Stringer("model", cfg.Model),
		log.Int("clock", cfg.ClockHz),
		log.Int("frame_tstates", m.frameTStates),
		log.Stringer("frame_interrupt", cfg.FrameInterrupt))
	if cfg.FrameInterrupt == FrameInterruptNMI {
		logger.Warn("Frame interrupt is NMI; ROM software expects a maskable interrupt",
			log.String("setting", "MachineConfig.FrameInterrupt"))
	}
	return m, nil
}

func (m *Machine) CPU() *CPU_Z80         { return m.cpu }
func (m *Machine) Memory() Memory        { return m.mem }
func (m *Machine) Mapper() Mapper        { return m.mapper }
func (m *Machine) Model() Model          { return m.cfg.Model }
func (m *Machine) Config() MachineConfig { return m.cfg }
func (m *Machine) Logger() *log.Logger   { return m.logger }
func (m *Machine) Frames() uint64        { return m.frames }
func (m *Machine) FrameTStates() int     { return m.frameTStates }

// FrameCounter returns the T-states accumulated since the last frame.
func (m *Machine) FrameCounter() int { return m.counter }

// Pager returns the paging capability of the 128K model.
func (m *Machine) Pager() (Pager, bool) {
	if m.paged == nil {
		return nil, false
	}
	return m.paged, true
}

func (m *Machine) Border() byte { return m.bus.border }

func (m *Machine) SetBorder(colour byte) { m.bus.border = colour & 7 }

// Port7FFD returns the last value latched by the 128K paging port.
func (m *Machine) Port7FFD() byte { return m.bus.port7FFD }

// SetPort7FFD forces the paging state, lock bit included.
func (m *Machine) SetPort7FFD(v byte) error {
	if m.paged == nil {
		return fmt.Errorf("machine: paging port on %s: %w", m.cfg.Model, ErrModelMismatch)
	}
	return m.bus.setPaging(v)
}

// SetPortReader installs the source of ULA port reads (keyboard rows).
func (m *Machine) SetPortReader(r PortReader) { m.bus.ports = r }

// SetTracer installs a per-instruction callback; nil disables tracing.
func (m *Machine) SetTracer(fn func(TraceEntry)) { m.tracer = fn }

// Peek reads through the CPU's view of memory.
func (m *Machine) Peek(addr uint16) byte { return m.bus.Read(addr) }

// Poke writes through the CPU's view of memory, so ROM stays intact.
func (m *Machine) Poke(addr uint16, v byte) { m.bus.Write(addr, v) }

// Step executes one instruction and delivers the frame interrupt when the
// counter crosses a frame boundary.
func (m *Machine) Step() int {
	var entry TraceEntry
	if m.tracer != nil {
		pc := uint16(m.cpu.PC)
		n, text := Disassemble(m.bus.Read, pc)
		entry.PC = pc
		entry.Text = text
		entry.Bytes = make([]byte, n)
		for i := range entry.Bytes {
			entry.Bytes[i] = m.bus.Read(pc + uint16(i))
		}
	}

	t := m.cpu.FetchExecuteCycle()

	if m.tracer != nil {
		entry.TStates = t
		entry.Regs = m.cpu.Registers
		m.tracer(entry)
	}

	m.counter += t
	if m.counter >= m.frameTStates {
		m.counter -= m.frameTStates
		m.endFrame()
	}
	return t
}

// Run executes n instructions and returns the T-states they took.
func (m *Machine) Run(n int) int {
	total := 0
	for range n {
		total += m.Step()
	}
	return total
}

// RunFrame executes instructions until the next frame boundary.
func (m *Machine) RunFrame() int {
	total := 0
	for start := m.frames; m.frames == start; {
		total += m.Step()
	}
	return total
}

func (m *Machine) endFrame() {
	m.frames++
	switch m.cfg.FrameInterrupt {
	case FrameInterruptIRQ:
		m.cpu.Interrupt(irqData)
	default:
		m.cpu.NMI()
	}
	if len(m.displays) == 0 {
		return
	}
	win := m.Display()
	for _, d := range m.displays {
		d.FrameReady(win, m.bus.border)
	}
}

// Reset clears RAM, reinstalls the ROM images and resets the engine, the
// paging state and the frame counter.
func (m *Machine) Reset() {
	m.mem.Clear()
	for page, img := range m.roms {
		if img != nil {
			m.installROM(page, img)
		}
	}
	m.bus.reset()
	m.cpu.Reset()
	m.counter = 0
	m.frames = 0
}

// ramImage returns the 48K RAM region of the flat store.
func (m *Machine) ramImage() []byte {
	return m.linear.Raw()[ramBase:]
}
