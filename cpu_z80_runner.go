// cpu_z80_runner.go - Spectrum bus adapter and background execution runner

package spectrum

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/retroenv/retrogolib/log"
)

// PortReader supplies the byte seen on a ULA port read, normally the
// keyboard half-rows selected by the high address byte.
type PortReader interface {
	ReadPort(port uint16) byte
}

// PortReaderFunc adapts a function to PortReader.
type PortReaderFunc func(port uint16) byte

func (f PortReaderFunc) ReadPort(port uint16) byte { return f(port) }

// spectrumBus is the Z80Bus of a Machine: it protects the 48K ROM, decodes
// the ULA port and the 128K paging port.
type spectrumBus struct {
	mem    Memory
	paged  *PagedMemory
	logger *log.Logger

	border   byte
	port7FFD byte
	locked   bool
	ports    PortReader
}

func newSpectrumBus(m *Machine) *spectrumBus {
	return &spectrumBus{mem: m.mem, paged: m.paged, logger: m.logger}
}

func (b *spectrumBus) Read(addr uint16) byte {
	return b.mem.Read(uint32(addr))
}

func (b *spectrumBus) Write(addr uint16, value byte) {
	// PagedMemory drops ROM writes itself; the flat 48K store needs it here.
	if b.paged == nil && addr < ramBase {
		return
	}
	b.mem.Write(uint32(addr), value)
}

// In decodes the ULA on any even port. Everything else floats high.
func (b *spectrumBus) In(port uint16) byte {
	if port&1 == 0 && b.ports != nil {
		return b.ports.ReadPort(port)
	}
	return idleBus
}

func (b *spectrumBus) Out(port uint16, value byte) {
	if port&1 == 0 {
		b.border = value & 7
	}
	// The 128K decodes 0x7FFD on A15=0 and A1=0 only.
	if b.paged != nil && port&0x8002 == 0 {
		b.writePaging(value)
	}
}

func (b *spectrumBus) writePaging(value byte) {
	if b.locked {
		b.logger.Debug("Paging write ignored, port locked", log.Hex("value", value))
		return
	}
	if err := b.setPaging(value); err != nil {
		// Three bits select RAM and one selects ROM, so the layout is wrong.
		panic(err)
	}
	b.logger.Debug("Paging port write",
		log.Hex("value", value),
		log.Int("ram", b.paged.CurrentRAM()),
		log.Int("rom", b.paged.CurrentROM()))
}

// setPaging applies a 0x7FFD value unconditionally.
func (b *spectrumBus) setPaging(value byte) error {
	if err := b.paged.PageRAM(int(value & 7)); err != nil {
		return fmt.Errorf("paging port 0x%02X: %w", value, err)
	}
	if err := b.paged.PageROM(int(value>>4) & 1); err != nil {
		return fmt.Errorf("paging port 0x%02X: %w", value, err)
	}
	b.port7FFD = value
	b.locked = value&0x20 != 0
	return nil
}

// shadowScreen reports whether the ULA shows RAM page 7.
func (b *spectrumBus) shadowScreen() bool {
	return b.paged != nil && b.port7FFD&0x08 != 0
}

func (b *spectrumBus) reset() {
	b.border = 0
	b.port7FFD = 0
	b.locked = false
	if b.paged != nil {
		if err := b.setPaging(0); err != nil {
			panic(err)
		}
	}
}

// MachineRunner paces a Machine in a background goroutine, one frame per
// frame period. Every other access to the machine goes through Do so that
// snapshots and debugger reads see a quiesced engine.
type MachineRunner struct {
	machine *Machine
	period  time.Duration

	mu     sync.Mutex
	paused bool

	execMu     sync.Mutex
	execCancel context.CancelFunc
	execDone   chan struct{}
	execActive bool
}

func NewMachineRunner(m *Machine) *MachineRunner {
	return &MachineRunner{
		machine: m,
		period:  time.Second / time.Duration(m.Config().FrameRate),
	}
}

// Do runs fn with exclusive access to the machine.
func (r *MachineRunner) Do(fn func(*Machine)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r.machine)
}

// SetPaused stops or resumes frame execution without ending the goroutine.
func (r *MachineRunner) SetPaused(paused bool) {
	r.mu.Lock()
	r.paused = paused
	r.mu.Unlock()
}

func (r *MachineRunner) Paused() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.paused
}

func (r *MachineRunner) IsRunning() bool {
	r.execMu.Lock()
	defer r.execMu.Unlock()
	return r.execActive
}

// StartExecution launches the pacing goroutine. It is a no-op when the
// runner is already active.
func (r *MachineRunner) StartExecution(ctx context.Context) {
	r.execMu.Lock()
	defer r.execMu.Unlock()
	if r.execActive {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	r.execCancel = cancel
	r.execActive = true
	done := make(chan struct{})
	r.execDone = done
	go func() {
		defer func() {
			r.execMu.Lock()
			r.execActive = false
			close(done)
			r.execMu.Unlock()
		}()
		r.loop(ctx)
	}()
}

func (r *MachineRunner) loop(ctx context.Context) {
	ticker := time.NewTicker(r.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.mu.Lock()
			if !r.paused {
				r.machine.RunFrame()
			}
			r.mu.Unlock()
		}
	}
}

// Stop ends the pacing goroutine and waits for it to exit.
func (r *MachineRunner) Stop() {
	r.execMu.Lock()
	if !r.execActive {
		r.execMu.Unlock()
		return
	}
	cancel := r.execCancel
	done := r.execDone
	r.execMu.Unlock()
	cancel()
	<-done
}
