package config

import (
	"testing"

	spectrum "github.com/intuitionamiga/IntuitionSpectrum"
	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"
)

func TestMachineConfig(t *testing.T) {
	opts := Machine{Model: "128k", FrameInterrupt: "irq"}
	cfg, err := opts.MachineConfig(log.NewTestLogger(t))
	assert.NoError(t, err)
	assert.Equal(t, spectrum.Spectrum128K, cfg.Model)
	assert.Equal(t, spectrum.FrameInterruptIRQ, cfg.FrameInterrupt)
	assert.Equal(t, spectrum.Clock128KHz, cfg.ClockHz)
	assert.NotNil(t, cfg.Logger)
}

func TestMachineConfigDefaults(t *testing.T) {
	cfg, err := Machine{Model: "48k", ClockHz: 1000}.MachineConfig(nil)
	assert.NoError(t, err)
	assert.Equal(t, spectrum.FrameInterruptNMI, cfg.FrameInterrupt)
	assert.Equal(t, 1000, cfg.ClockHz)
}

func TestMachineConfigErrors(t *testing.T) {
	_, err := Machine{Model: "zx81"}.MachineConfig(nil)
	assert.Error(t, err)
	_, err = Machine{Model: "48k", FrameInterrupt: "firq"}.MachineConfig(nil)
	assert.Error(t, err)
	_, err = Machine{Model: "48k", ClockHz: -1}.MachineConfig(nil)
	assert.Error(t, err)
}

func TestNewMachineMissingROM(t *testing.T) {
	_, err := Machine{Model: "48k", ROM: t.TempDir() + "/missing.rom"}.NewMachine(log.NewTestLogger(t))
	assert.Error(t, err)
}

func TestSnapshotOptions(t *testing.T) {
	opts := Snapshot{Strict: true, Compress: true}.Options()
	assert.True(t, opts.Strict)
	assert.True(t, opts.Compress)
}
