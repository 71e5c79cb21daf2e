package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	spectrum "github.com/intuitionamiga/IntuitionSpectrum"
	"github.com/intuitionamiga/IntuitionSpectrum/internal/config"
	"github.com/intuitionamiga/IntuitionSpectrum/internal/dump"
	"github.com/intuitionamiga/IntuitionSpectrum/internal/monitor"
	"github.com/intuitionamiga/IntuitionSpectrum/internal/script"
	"github.com/intuitionamiga/IntuitionSpectrum/internal/statsview"
	"github.com/intuitionamiga/IntuitionSpectrum/internal/viewer"
	"github.com/retroenv/retrogolib/log"
)

func runCommand(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("run", stderr)
	mf := addMachineFlags(fs)
	sf := addSnapshotFlags(fs)
	var (
		frames     int
		asmFile    string
		save       string
		screenshot string
		scriptFile string
		trace      bool
		window     bool
		stats      bool
		scale      int
	)
	fs.IntVar(&frames, "frames", 50, "frames to run without a window")
	fs.StringVar(&asmFile, "asm", "", "assemble and load a Z80 source file, starting at .main")
	fs.StringVar(&save, "save", "", "write a snapshot when the run ends")
	fs.StringVar(&screenshot, "screenshot", "", "write the final screen as BMP")
	fs.StringVar(&scriptFile, "script", "", "run a Lua script before the frames")
	fs.BoolVar(&trace, "trace", false, "print every executed instruction")
	fs.BoolVar(&window, "window", false, "show the machine in a window")
	fs.BoolVar(&stats, "statsview", false, "start the runtime statistics server")
	fs.IntVar(&scale, "scale", 2, "window scale")
	fs.Usage = func() {
		_, _ = fmt.Fprintln(stderr, "Usage: zxspectrum run [options] [snapshot]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 1 {
		return errors.New("run takes at most one snapshot file")
	}
	if frames < 0 {
		return fmt.Errorf("invalid frame count %d", frames)
	}

	logger := mf.logger()
	m, err := mf.NewMachine(logger)
	if err != nil {
		return err
	}
	opts := sf.Options()
	if fs.NArg() == 1 {
		if err := spectrum.LoadSnapshotFile(m, fs.Arg(0), opts); err != nil {
			return err
		}
	}
	if asmFile != "" {
		if _, err := loadAssembly(m, asmFile); err != nil {
			return err
		}
	}
	if trace {
		m.SetTracer(func(e spectrum.TraceEntry) {
			_, _ = fmt.Fprintln(stdout, e.String())
		})
	}
	if stats {
		statsview.Launch(stdout)
	}
	if scriptFile != "" {
		eng := script.New(m, opts, stdout)
		err := eng.DoFile(scriptFile)
		eng.Close()
		if err != nil {
			return err
		}
	}

	if window {
		return runWindow(m, scale, sf.Format, opts, save, screenshot)
	}

	for range frames {
		m.RunFrame()
	}
	logger.Info("Run finished",
		log.Int("frames", frames),
		log.Hex("pc", uint16(m.CPU().PC)))

	if screenshot != "" {
		frame := spectrum.NewULARenderer().RenderFrame(m.Display(), m.Border())
		if err := writeScreenshot(screenshot, frame); err != nil {
			return err
		}
	}
	if save != "" {
		if err := spectrum.SaveSnapshotFile(m, save, sf.Format, opts); err != nil {
			return err
		}
	}
	return nil
}

func runWindow(m *spectrum.Machine, scale int, format string, opts spectrum.SnapshotOptions, save, screenshot string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	vopts := viewer.DefaultOptions()
	vopts.Scale = scale
	vopts.SnapshotOpts = opts
	if format != "" {
		vopts.SnapshotFormat = format
	}
	runner := spectrum.NewMachineRunner(m)
	v := viewer.New(runner, vopts)
	runner.StartExecution(ctx)
	err := v.Run(ctx)
	runner.Stop()
	if err != nil {
		return err
	}

	if screenshot != "" {
		if err := writeScreenshot(screenshot, v.Renderer().GetFrame()); err != nil {
			return err
		}
	}
	if save != "" {
		return spectrum.SaveSnapshotFile(m, save, format, opts)
	}
	return nil
}

func convertCommand(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("convert", stderr)
	sf := addSnapshotFlags(fs)
	debug := fs.Bool("debug", false, "enable debug logging")
	fs.Usage = func() {
		_, _ = fmt.Fprintln(stderr, "Usage: zxspectrum convert [options] <input> <output>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return errors.New("convert needs an input and an output file")
	}
	in, out := fs.Arg(0), fs.Arg(1)
	opts := sf.Options()

	snap, reader, err := spectrum.ReadSnapshotFile(in, opts)
	if err != nil {
		return err
	}
	cfg := spectrum.DefaultMachineConfig(snap.Model)
	cfg.FrameInterrupt = spectrum.FrameInterruptIRQ
	cfg.Logger = config.CreateLogger(*debug, !*debug)
	m, err := spectrum.NewMachine(cfg)
	if err != nil {
		return err
	}
	m.Reset()
	if err := snap.ApplyTo(m); err != nil {
		return fmt.Errorf("applying %s: %w", in, err)
	}
	if err := spectrum.SaveSnapshotFile(m, out, sf.Format, opts); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(stdout, "%s (%s, %s) -> %s\n", in, reader.Name(), snap.Model, out)
	return nil
}

func infoCommand(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("info", stderr)
	strict := fs.Bool("strict", false, "reject inconsistent snapshots")
	dot := fs.Bool("dot", false, "write a Graphviz description of the snapshot")
	verbose := fs.Bool("spew", false, "dump the snapshot structure")
	memory := fs.Bool("memory", false, "include memory images in the -spew dump")
	fs.Usage = func() {
		_, _ = fmt.Fprintln(stderr, "Usage: zxspectrum info [options] <snapshot>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errors.New("info needs one snapshot file")
	}
	path := fs.Arg(0)
	snap, reader, err := spectrum.ReadSnapshotFile(path, spectrum.SnapshotOptions{Strict: *strict})
	if err != nil {
		return err
	}

	if *dot {
		return dump.Graph(stdout, snap)
	}
	if *verbose {
		return dump.Verbose(stdout, snap, *memory)
	}

	_, _ = fmt.Fprintf(stdout, "file:      %s\n", path)
	_, _ = fmt.Fprintf(stdout, "format:    %s\n", reader.Name())
	_, _ = fmt.Fprintf(stdout, "model:     %s\n", snap.Model)
	_, _ = fmt.Fprintf(stdout, "registers: %s\n", snap.Registers.String())
	_, _ = fmt.Fprintf(stdout, "interrupt: IFF1=%t IFF2=%t IM=%d\n", snap.IFF1, snap.IFF2, snap.IM)
	_, _ = fmt.Fprintf(stdout, "border:    %d\n", snap.Border)
	if snap.PCOnStack {
		_, _ = fmt.Fprintf(stdout, "pc:        on the stack at %04X\n", uint16(snap.Registers.SP))
	}
	if snap.Model == spectrum.Spectrum128K {
		_, _ = fmt.Fprintf(stdout, "port7ffd:  %02X\n", snap.Port7FFD)
	}
	if snap.Halted {
		_, _ = fmt.Fprintln(stdout, "halted:    yes")
	}
	return nil
}

func disasmCommand(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("disasm", stderr)
	addrFlag := fs.String("addr", "", "start address (default: PC of a snapshot, or -org)")
	orgFlag := fs.String("org", "0x8000", "load address of a raw binary")
	count := fs.Int("n", 16, "number of instructions")
	raw := fs.Bool("raw", false, "treat the file as a raw binary even if it looks like a snapshot")
	fs.Usage = func() {
		_, _ = fmt.Fprintln(stderr, "Usage: zxspectrum disasm [options] <file>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errors.New("disasm needs one file")
	}
	path := fs.Arg(0)

	read, start, err := disasmSource(path, *orgFlag, *raw)
	if err != nil {
		return err
	}
	if *addrFlag != "" {
		if start, err = parseAddress(*addrFlag); err != nil {
			return err
		}
	}
	addr := start
	for range *count {
		_, _ = fmt.Fprintln(stdout, spectrum.DisassembleBytes(read, addr))
		addr += uint16(spectrum.InstructionLength(read, addr))
	}
	return nil
}

// disasmSource returns a reader over the file's memory image and the
// default start address.
func disasmSource(path, org string, raw bool) (func(uint16) byte, uint16, error) {
	if !raw {
		snap, _, err := spectrum.ReadSnapshotFile(path, spectrum.SnapshotOptions{})
		switch {
		case err == nil:
			cfg := spectrum.DefaultMachineConfig(snap.Model)
			cfg.Logger = config.CreateLogger(false, true)
			m, err := spectrum.NewMachine(cfg)
			if err != nil {
				return nil, 0, err
			}
			m.Reset()
			if err := snap.ApplyTo(m); err != nil {
				return nil, 0, err
			}
			return m.Peek, uint16(m.CPU().PC), nil
		case !errors.Is(err, spectrum.ErrUnknownFormat):
			return nil, 0, err
		}
	}

	base, err := parseAddress(org)
	if err != nil {
		return nil, 0, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("reading %s: %w", path, err)
	}
	var mem [0x10000]byte
	copy(mem[base:], data)
	return func(addr uint16) byte { return mem[addr] }, base, nil
}

func monitorCommand(args []string, _, stderr io.Writer) error {
	fs := newFlagSet("monitor", stderr)
	mf := addMachineFlags(fs)
	sf := addSnapshotFlags(fs)
	asmFile := fs.String("asm", "", "assemble and load a Z80 source file, starting at .main")
	fs.Usage = func() {
		_, _ = fmt.Fprintln(stderr, "Usage: zxspectrum monitor [options] [snapshot]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 1 {
		return errors.New("monitor takes at most one snapshot file")
	}
	m, err := mf.NewMachine(mf.logger())
	if err != nil {
		return err
	}
	if fs.NArg() == 1 {
		if err := spectrum.LoadSnapshotFile(m, fs.Arg(0), sf.Options()); err != nil {
			return err
		}
	}
	if *asmFile != "" {
		if _, err := loadAssembly(m, *asmFile); err != nil {
			return err
		}
	}
	return monitor.RunTerminal(m)
}
