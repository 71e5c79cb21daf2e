package spectrum

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulhankin/z80asm"
	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"
)

// testFrameClock gives a 20 T-state frame so interrupts arrive within a
// handful of instructions.
const testFrameClock = 1000

func newTestMachine(t *testing.T, model Model, frameInt FrameInterrupt) *Machine {
	t.Helper()
	cfg := DefaultMachineConfig(model)
	cfg.ClockHz = testFrameClock
	cfg.FrameInterrupt = frameInt
	cfg.Logger = log.NewTestLogger(t)
	m, err := NewMachine(cfg)
	assert.NoError(t, err)
	m.Reset()
	return m
}

func romImage(program ...byte) []byte {
	img := make([]byte, PageSize)
	copy(img, program)
	return img
}

type recordingDisplay struct {
	calls  int
	border byte
	first  byte
}

func (d *recordingDisplay) FrameReady(win DisplayWindow, border byte) {
	d.calls++
	d.border = border
	d.first = win.At(0)
}

func TestNewMachineRejectsBadClock(t *testing.T) {
	cfg := DefaultMachineConfig(Spectrum48K)
	cfg.ClockHz = 0
	_, err := NewMachine(cfg)
	assert.Error(t, err)

	cfg = DefaultMachineConfig(Spectrum48K)
	cfg.FrameRate = cfg.ClockHz + 1
	_, err = NewMachine(cfg)
	assert.Error(t, err)
}

func TestParseModelAndFrameInterrupt(t *testing.T) {
	model, err := ParseModel("128K")
	assert.NoError(t, err)
	assert.Equal(t, Spectrum128K, model)
	_, err = ParseModel("16")
	assert.Error(t, err)

	fi, err := ParseFrameInterrupt("IRQ")
	assert.NoError(t, err)
	assert.Equal(t, FrameInterruptIRQ, fi)
	assert.Equal(t, "nmi", FrameInterruptNMI.String())
}

func TestMachineFrameNMI(t *testing.T) {
	m := newTestMachine(t, Spectrum48K, FrameInterruptNMI)
	assert.Equal(t, 20, m.FrameTStates())

	for range 5 {
		m.Step()
	}
	assert.Equal(t, uint64(1), m.Frames())
	assert.Equal(t, 0, m.FrameCounter())

	m.Step()
	cpu := m.CPU()
	assert.Equal(t, uint16(0x0066), uint16(cpu.PC))
	assert.Equal(t, uint16(0x0006), ReadWord(m.Memory(), uint32(cpu.SP)))
}

func TestMachineFrameIRQ(t *testing.T) {
	m := newTestMachine(t, Spectrum48K, FrameInterruptIRQ)
	// EI; IM 1; NOP...
	assert.NoError(t, m.LoadROM(romImage(0xFB, 0xED, 0x56), 0))

	for range 4 {
		m.Step()
	}
	assert.Equal(t, uint64(1), m.Frames())

	m.Step()
	cpu := m.CPU()
	assert.Equal(t, uint16(0x0038), uint16(cpu.PC))
	assert.False(t, cpu.IFF1)
	assert.Equal(t, uint16(0x0006), ReadWord(m.Memory(), uint32(cpu.SP)))
}

func TestMachineFrameIRQDroppedWhenDisabled(t *testing.T) {
	m := newTestMachine(t, Spectrum48K, FrameInterruptIRQ)
	m.RunFrame()
	m.Step()
	assert.Equal(t, uint16(0x0006), uint16(m.CPU().PC))
	assert.False(t, m.CPU().InterruptPending())
}

func TestMachineDisplayNotification(t *testing.T) {
	m := newTestMachine(t, Spectrum48K, FrameInterruptNMI)
	// LD A,2; OUT (0xFE),A; NOP...
	assert.NoError(t, m.LoadROM(romImage(0x3E, 0x02, 0xD3, 0xFE), 0))
	m.Poke(DisplayBase, 0xA5)

	d := &recordingDisplay{}
	m.AttachDisplay(d)
	m.RunFrame()

	assert.Equal(t, 1, d.calls)
	assert.Equal(t, byte(2), d.border)
	assert.Equal(t, byte(0xA5), d.first)
	assert.Equal(t, byte(2), m.Border())

	assert.True(t, m.DetachDisplay(d))
	assert.False(t, m.DetachDisplay(d))
	m.RunFrame()
	assert.Equal(t, 1, d.calls)
}

func TestMachineDisplayWindow(t *testing.T) {
	m := newTestMachine(t, Spectrum48K, FrameInterruptNMI)
	win := m.Display()
	assert.Equal(t, DisplaySize, win.Len())
	assert.Equal(t, byte(0), win.At(-1))
	assert.Equal(t, byte(0), win.At(DisplaySize))

	m.Poke(DisplayBase+DisplaySize-1, 0x3C)
	buf := make([]byte, DisplaySize)
	assert.Equal(t, DisplaySize, win.CopyTo(buf))
	assert.Equal(t, byte(0x3C), buf[DisplaySize-1])
}

func TestMachineROMIsReadOnly(t *testing.T) {
	m := newTestMachine(t, Spectrum48K, FrameInterruptNMI)
	assert.NoError(t, m.LoadROM(romImage(0xF3), 0))
	m.Poke(0x0000, 0x00)
	assert.Equal(t, byte(0xF3), m.Peek(0x0000))
}

func TestMachineResetReinstallsROM(t *testing.T) {
	m := newTestMachine(t, Spectrum48K, FrameInterruptNMI)
	assert.NoError(t, m.LoadROM(romImage(0xF3, 0xAF), 0))

	m.Memory().Write(0x0001, 0x00)
	m.Poke(0x8000, 0x12)
	m.SetBorder(5)
	m.RunFrame()

	m.Reset()
	assert.Equal(t, byte(0xAF), m.Peek(0x0001))
	assert.Equal(t, byte(0x00), m.Peek(0x8000))
	assert.Equal(t, byte(0), m.Border())
	assert.Equal(t, uint64(0), m.Frames())
	assert.Equal(t, uint16(0), uint16(m.CPU().PC))
}

func TestLoadROMValidation(t *testing.T) {
	m := newTestMachine(t, Spectrum48K, FrameInterruptNMI)
	err := m.LoadROM(make([]byte, 100), 0)
	assert.True(t, errors.Is(err, ErrShortROM))

	err = m.LoadROM(make([]byte, 2*PageSize), 0)
	assert.True(t, errors.Is(err, ErrPageOutOfRange))
	assert.True(t, m.ROMImage(0) == nil)

	path := filepath.Join(t.TempDir(), "48.rom")
	assert.NoError(t, os.WriteFile(path, romImage(0xC3), 0o644))
	assert.NoError(t, m.LoadROMFile(path, 0))
	assert.Equal(t, byte(0xC3), m.ROMImage(0)[0])
}

func TestMachine128KDoubleROM(t *testing.T) {
	m := newTestMachine(t, Spectrum128K, FrameInterruptIRQ)
	img := make([]byte, 2*PageSize)
	img[0] = 0x01
	img[PageSize] = 0x02
	assert.NoError(t, m.LoadROM(img, 0))

	assert.Equal(t, byte(0x01), m.Peek(0))
	assert.NoError(t, m.SetPort7FFD(0x10))
	assert.Equal(t, byte(0x02), m.Peek(0))
}

func TestMachine128KPagingPort(t *testing.T) {
	m := newTestMachine(t, Spectrum128K, FrameInterruptIRQ)
	pager, ok := m.Pager()
	assert.True(t, ok)

	m.bus.Out(0x7FFD, 0x13)
	assert.Equal(t, 3, pager.CurrentRAM())
	assert.Equal(t, 1, pager.CurrentROM())
	assert.Equal(t, byte(0x13), m.Port7FFD())
	assert.Equal(t, byte(0), m.Border(), "odd port leaves the border alone")

	// Bit 5 locks paging until reset.
	m.bus.Out(0x7FFD, 0x24)
	m.bus.Out(0x7FFD, 0x01)
	assert.Equal(t, 4, pager.CurrentRAM())

	m.Reset()
	assert.Equal(t, 0, pager.CurrentRAM())
	m.bus.Out(0x7FFD, 0x01)
	assert.Equal(t, 1, pager.CurrentRAM())
}

func TestMachine128KShadowScreen(t *testing.T) {
	m := newTestMachine(t, Spectrum128K, FrameInterruptIRQ)
	pager, _ := m.Pager()
	page7, err := pager.RAMPage(7)
	assert.NoError(t, err)
	page7[0] = 0x99
	m.Poke(DisplayBase, 0x11)

	assert.Equal(t, byte(0x11), m.Display().At(0))
	assert.NoError(t, m.SetPort7FFD(0x08))
	assert.Equal(t, byte(0x99), m.Display().At(0))
}

func TestMachine48KHasNoPager(t *testing.T) {
	m := newTestMachine(t, Spectrum48K, FrameInterruptNMI)
	_, ok := m.Pager()
	assert.False(t, ok)
	assert.True(t, errors.Is(m.SetPort7FFD(0), ErrModelMismatch))
}

func TestMachinePortReader(t *testing.T) {
	m := newTestMachine(t, Spectrum48K, FrameInterruptNMI)
	// IN A,(0xFE)
	assert.NoError(t, m.LoadROM(romImage(0xDB, 0xFE), 0))
	m.CPU().SetA(0x7F)
	var seen uint16
	m.SetPortReader(PortReaderFunc(func(port uint16) byte {
		seen = port
		return 0x1E
	}))
	m.Step()
	assert.Equal(t, uint16(0x7FFE), seen)
	assert.Equal(t, byte(0x1E), m.CPU().A())
}

func TestMachineTracer(t *testing.T) {
	m := newTestMachine(t, Spectrum48K, FrameInterruptNMI)
	assert.NoError(t, m.LoadROM(romImage(0x01, 0x34, 0x12), 0))
	var entries []TraceEntry
	m.SetTracer(func(e TraceEntry) { entries = append(entries, e) })
	m.Step()

	assert.Equal(t, 1, len(entries))
	assert.Equal(t, "LD BC, $1234", entries[0].Text)
	assert.Equal(t, 10, entries[0].TStates)
	assert.Equal(t, uint16(0x1234), uint16(entries[0].Regs.BC))
	assert.Contains(t, entries[0].String(), "01 34 12")
}

func TestMachineRunsAssembledProgram(t *testing.T) {
	src := `
.main
ld a, 0x55
ld b, 10
.loop
inc a
djnz loop
ld hl, 0x9000
ld (hl), a
halt
`
	path := filepath.Join(t.TempDir(), "count.asm")
	assert.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	asm, err := z80asm.NewAssembler()
	assert.NoError(t, err)
	assert.NoError(t, asm.AssembleFile(path))
	entry, ok := asm.GetLabel("", "main")
	assert.True(t, ok)

	// Frame interrupts arrive with IFF1 clear and are dropped.
	m := newTestMachine(t, Spectrum48K, FrameInterruptIRQ)
	assert.NoError(t, m.Memory().WriteRange(ramBase, asm.RAM()[ramBase:]))
	m.CPU().PC = Register16(entry)

	for range 200 {
		if m.CPU().Halted {
			break
		}
		m.Step()
	}
	assert.True(t, m.CPU().Halted)
	assert.Equal(t, byte(0x5F), m.Peek(0x9000))
}

func TestMachineROMOpeningTrace(t *testing.T) {
	cfg := DefaultMachineConfig(Spectrum48K)
	cfg.Logger = log.NewTestLogger(t)
	m, err := NewMachine(cfg)
	assert.NoError(t, err)
	// DI; XOR A; LD DE,$FFFF; JP $11CB
	assert.NoError(t, m.LoadROM(romImage(0xF3, 0xAF, 0x11, 0xFF, 0xFF, 0xC3, 0xCB, 0x11), 0))
	m.Reset()
	assert.Equal(t, uint16(0x0000), uint16(m.CPU().PC))

	trace := []struct {
		af, de, pc uint16
		r          byte
	}{
		{0xFFFF, 0x0000, 0x0001, 0x01},
		{0x0044, 0x0000, 0x0002, 0x02},
		{0x0044, 0xFFFF, 0x0005, 0x03},
		{0x0044, 0xFFFF, 0x11CB, 0x04},
	}
	for i, want := range trace {
		m.Step()
		cpu := m.CPU()
		assert.Equal(t, want.af, uint16(cpu.AF), "step %d AF", i+1)
		assert.Equal(t, want.de, uint16(cpu.DE), "step %d DE", i+1)
		assert.Equal(t, want.pc, uint16(cpu.PC), "step %d PC", i+1)
		assert.Equal(t, want.r, cpu.R, "step %d R", i+1)
	}
	assert.False(t, m.CPU().IFF1)
}

func TestMachinePeekPoke(t *testing.T) {
	m := newTestMachine(t, Spectrum48K, FrameInterruptNMI)
	m.Poke(0x8000, 0x5A)
	assert.Equal(t, byte(0x5A), m.Peek(0x8000))

	// Byte access takes an address, so Machine must not pose as an io.ByteReader.
	_, isByteReader := any(m).(io.ByteReader)
	_, isByteWriter := any(m).(io.ByteWriter)
	assert.False(t, isByteReader)
	assert.False(t, isByteWriter)
}
