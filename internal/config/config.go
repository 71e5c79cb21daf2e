// Package config handles logger setup and the options shared by the
// command line front end.
package config

import (
	"fmt"

	spectrum "github.com/intuitionamiga/IntuitionSpectrum"
	"github.com/retroenv/retrogolib/log"
)

// CreateLogger creates a logger with appropriate settings
func CreateLogger(debug, quiet bool) *log.Logger {
	cfg := log.DefaultConfig()
	if debug {
		cfg.Level = log.DebugLevel
	} else if quiet {
		cfg.Level = log.ErrorLevel
	}
	return log.NewWithConfig(cfg)
}

// Machine holds the machine related command line options.
type Machine struct {
	Model          string
	ROM            string
	FrameInterrupt string
	ClockHz        int
}

// Snapshot holds the snapshot related command line options.
type Snapshot struct {
	Format   string
	Strict   bool
	Compress bool
}

// MachineConfig turns the textual options into a machine configuration.
// A zero ClockHz keeps the model's stock clock.
func (o Machine) MachineConfig(logger *log.Logger) (spectrum.MachineConfig, error) {
	model, err := spectrum.ParseModel(o.Model)
	if err != nil {
		return spectrum.MachineConfig{}, err
	}
	cfg := spectrum.DefaultMachineConfig(model)
	if o.FrameInterrupt != "" {
		fi, err := spectrum.ParseFrameInterrupt(o.FrameInterrupt)
		if err != nil {
			return spectrum.MachineConfig{}, err
		}
		cfg.FrameInterrupt = fi
	}
	if o.ClockHz < 0 {
		return spectrum.MachineConfig{}, fmt.Errorf("invalid clock %d", o.ClockHz)
	}
	if o.ClockHz > 0 {
		cfg.ClockHz = o.ClockHz
	}
	cfg.Logger = logger
	return cfg, nil
}

// NewMachine builds, resets and optionally loads a ROM into a machine.
func (o Machine) NewMachine(logger *log.Logger) (*spectrum.Machine, error) {
	cfg, err := o.MachineConfig(logger)
	if err != nil {
		return nil, err
	}
	m, err := spectrum.NewMachine(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating machine: %w", err)
	}
	if o.ROM != "" {
		if err := m.LoadROMFile(o.ROM, 0); err != nil {
			return nil, err
		}
	}
	m.Reset()
	return m, nil
}

// Options returns the codec options.
func (o Snapshot) Options() spectrum.SnapshotOptions {
	return spectrum.SnapshotOptions{Strict: o.Strict, Compress: o.Compress}
}
