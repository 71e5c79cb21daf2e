package monitor

import (
	"bytes"
	"strings"
	"testing"

	spectrum "github.com/intuitionamiga/IntuitionSpectrum"
	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"
)

func newTestMachine(t *testing.T) *spectrum.Machine {
	t.Helper()
	cfg := spectrum.DefaultMachineConfig(spectrum.Spectrum48K)
	cfg.ClockHz = 1000
	cfg.FrameInterrupt = spectrum.FrameInterruptIRQ
	cfg.Logger = log.NewTestLogger(t)
	m, err := spectrum.NewMachine(cfg)
	assert.NoError(t, err)
	rom := make([]byte, spectrum.PageSize)
	copy(rom, []byte{0x3E, 0x07, 0xD3, 0xFE}) // LD A,7; OUT (0xFE),A
	assert.NoError(t, m.LoadROM(rom, 0))
	m.Reset()
	return m
}

func TestMonitorStepAndRegisters(t *testing.T) {
	m := newTestMachine(t)
	var out bytes.Buffer
	assert.NoError(t, New(m, strings.NewReader("ssrq"), &out).Run())

	text := out.String()
	assert.Contains(t, text, "LD A, $07  (7T)")
	assert.Contains(t, text, "OUT ($FE), A")
	assert.Contains(t, text, "border=7")
	assert.Equal(t, uint16(4), uint16(m.CPU().PC))
}

func TestMonitorFrameAndDisasm(t *testing.T) {
	m := newTestMachine(t)
	var out bytes.Buffer
	assert.NoError(t, New(m, strings.NewReader("fd"), &out).Run())

	assert.Equal(t, uint64(1), m.Frames())
	assert.Contains(t, out.String(), "frame 1")
	assert.Equal(t, 4+disasmLines, strings.Count(out.String(), "\r\n"))
}

func TestMonitorUnknownKey(t *testing.T) {
	m := newTestMachine(t)
	var out bytes.Buffer
	assert.NoError(t, New(m, strings.NewReader("x\nq s"), &out).Run())
	assert.Contains(t, out.String(), `unknown key 'x'`)
	assert.Equal(t, uint16(0), uint16(m.CPU().PC))
}
