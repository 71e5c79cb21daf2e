// Package monitor is a single-key stepping monitor. On a terminal stdin is
// put in raw mode so that each key acts immediately:
//
//	s  step one instruction
//	f  run to the end of the frame
//	r  print the registers
//	d  disassemble from PC
//	q  quit
package monitor

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	spectrum "github.com/intuitionamiga/IntuitionSpectrum"
	"golang.org/x/term"
)

const disasmLines = 8

// Monitor reads commands from in and reports on out.
type Monitor struct {
	machine *spectrum.Machine
	in      *bufio.Reader
	out     io.Writer
}

func New(m *spectrum.Machine, in io.Reader, out io.Writer) *Monitor {
	return &Monitor{
		machine: m,
		in:      bufio.NewReader(in),
		out:     out,
	}
}

// RunTerminal runs a monitor on stdin and stdout, switching a terminal
// stdin to raw mode for the duration.
func RunTerminal(m *spectrum.Machine) error {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		oldState, err := term.MakeRaw(fd)
		if err != nil {
			return fmt.Errorf("monitor: failed to set raw mode: %w", err)
		}
		defer func() {
			_ = term.Restore(fd, oldState)
		}()
	}
	return New(m, os.Stdin, os.Stdout).Run()
}

// Run processes keys until q or end of input.
func (mon *Monitor) Run() error {
	mon.println("monitor: s=step f=frame r=regs d=disasm q=quit")
	mon.printPC()
	for {
		key, err := mon.in.ReadByte()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("monitor: %w", err)
		}
		quit := mon.command(key)
		if quit {
			return nil
		}
	}
}

// command executes one key and reports whether the monitor should exit.
func (mon *Monitor) command(key byte) bool {
	m := mon.machine
	switch key {
	case 's', ' ':
		line := spectrum.DisassembleBytes(m.Peek, uint16(m.CPU().PC))
		t := m.Step()
		mon.println(fmt.Sprintf("%s  (%dT)", line, t))
	case 'f':
		t := m.RunFrame()
		mon.println(fmt.Sprintf("frame %d, %dT", m.Frames(), t))
		mon.printPC()
	case 'r':
		mon.println(m.CPU().Registers.String())
		cpu := m.CPU()
		mon.println(fmt.Sprintf("IFF1=%t IFF2=%t IM=%d halted=%t border=%d", cpu.IFF1, cpu.IFF2, cpu.IM, cpu.Halted, m.Border()))
	case 'd':
		addr := uint16(m.CPU().PC)
		for range disasmLines {
			mon.println(spectrum.DisassembleBytes(m.Peek, addr))
			addr += uint16(spectrum.InstructionLength(m.Peek, addr))
		}
	case 'q', 3: // ctrl-c arrives as a byte in raw mode
		return true
	case '\r', '\n':
	default:
		mon.println(fmt.Sprintf("unknown key %q", key))
	}
	return false
}

func (mon *Monitor) printPC() {
	mon.println(spectrum.DisassembleBytes(mon.machine.Peek, uint16(mon.machine.CPU().PC)))
}

// println ends lines with CRLF, which raw mode needs.
func (mon *Monitor) println(s string) {
	_, _ = io.WriteString(mon.out, s+"\r\n")
}
