package main

import (
	"flag"
	"fmt"
	"os"

	spectrum "github.com/intuitionamiga/IntuitionSpectrum"
	"github.com/intuitionamiga/IntuitionSpectrum/internal/config"
	"github.com/paulhankin/z80asm"
	"github.com/retroenv/retrogolib/log"
	"golang.org/x/image/bmp"
)

type machineFlags struct {
	config.Machine
	debug bool
	quiet bool
}

func addMachineFlags(fs *flag.FlagSet) *machineFlags {
	mf := &machineFlags{}
	fs.StringVar(&mf.Model, "model", "48k", "machine model: 48k or 128k")
	fs.StringVar(&mf.ROM, "rom", "", "ROM image to load (16K, or 32K for the 128K model)")
	fs.StringVar(&mf.FrameInterrupt, "frame-int", "irq", "frame interrupt: irq or nmi")
	fs.IntVar(&mf.ClockHz, "clock", 0, "CPU clock in Hz (0 keeps the model's clock)")
	fs.BoolVar(&mf.debug, "debug", false, "enable debug logging")
	fs.BoolVar(&mf.quiet, "quiet", false, "only log errors")
	return mf
}

func (mf *machineFlags) logger() *log.Logger {
	return config.CreateLogger(mf.debug, mf.quiet)
}

func addSnapshotFlags(fs *flag.FlagSet) *config.Snapshot {
	sf := &config.Snapshot{}
	fs.StringVar(&sf.Format, "format", "", "snapshot format (default: from the file extension)")
	fs.BoolVar(&sf.Strict, "strict", false, "reject inconsistent snapshots")
	fs.BoolVar(&sf.Compress, "compress", false, "compress z80 and zx82 output")
	return sf
}

// loadAssembly assembles path and copies the RAM image into m. Execution
// starts at the .main label.
func loadAssembly(m *spectrum.Machine, path string) (uint16, error) {
	asm, err := z80asm.NewAssembler()
	if err != nil {
		return 0, fmt.Errorf("creating assembler: %w", err)
	}
	if err := asm.AssembleFile(path); err != nil {
		return 0, fmt.Errorf("assembling %s: %w", path, err)
	}
	entry, ok := asm.GetLabel("", "main")
	if !ok {
		return 0, fmt.Errorf("assembling %s: missing .main entry point", path)
	}
	ram := asm.RAM()
	if err := m.Memory().WriteRange(spectrum.PageSize, ram[spectrum.PageSize:]); err != nil {
		return 0, fmt.Errorf("loading %s: %w", path, err)
	}
	m.CPU().PC = spectrum.Register16(entry)
	m.Logger().Info("Program assembled", log.String("file", path), log.Hex("entry", entry))
	return entry, nil
}

// writeScreenshot stores an RGBA ULA frame as BMP.
func writeScreenshot(path string, frame []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating screenshot: %w", err)
	}
	if err := bmp.Encode(f, spectrum.FrameImage(frame)); err != nil {
		_ = f.Close()
		return fmt.Errorf("encoding screenshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing screenshot: %w", err)
	}
	return nil
}
