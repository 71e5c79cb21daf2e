// Package script drives a machine from Lua. Scripts see a small set of
// global functions:
//
//	peek(addr)             byte at addr
//	poke(addr, value)      write a byte
//	run(n)                 execute n instructions, returns T-states
//	frames([n])            run n frames (default 1), returns the frame count
//	reg(name)              register value, "HL" or "A" style names
//	setreg(name, value)    set a register
//	page(n)                select RAM page n at 0xC000 (128K only)
//	disasm(addr[, count])  disassembly listing
//	save(path[, format])   write a snapshot
//	load(path)             read a snapshot into the machine
//	border()               current border colour
package script

import (
	"fmt"
	"io"
	"strings"

	spectrum "github.com/intuitionamiga/IntuitionSpectrum"
	"github.com/retroenv/retrogolib/log"
	lua "github.com/yuin/gopher-lua"
)

// Engine is a Lua state bound to one machine. It is not safe for
// concurrent use.
type Engine struct {
	L       *lua.LState
	machine *spectrum.Machine
	opts    spectrum.SnapshotOptions
	out     io.Writer
	logger  *log.Logger
}

// New creates an engine for m. Lua print output goes to out.
func New(m *spectrum.Machine, opts spectrum.SnapshotOptions, out io.Writer) *Engine {
	e := &Engine{
		L:       lua.NewState(),
		machine: m,
		opts:    opts,
		out:     out,
		logger:  m.Logger(),
	}
	e.register()
	return e
}

// Close releases the Lua state.
func (e *Engine) Close() {
	e.L.Close()
}

// DoString runs a chunk of Lua source.
func (e *Engine) DoString(src string) error {
	if err := e.L.DoString(src); err != nil {
		return fmt.Errorf("script: %w", err)
	}
	return nil
}

// DoFile runs a Lua file.
func (e *Engine) DoFile(path string) error {
	e.logger.Debug("Running script", log.String("file", path))
	if err := e.L.DoFile(path); err != nil {
		return fmt.Errorf("script %s: %w", path, err)
	}
	return nil
}

func (e *Engine) register() {
	funcs := map[string]lua.LGFunction{
		"peek":   e.peek,
		"poke":   e.poke,
		"run":    e.run,
		"frames": e.frames,
		"reg":    e.reg,
		"setreg": e.setreg,
		"page":   e.page,
		"disasm": e.disasm,
		"save":   e.save,
		"load":   e.load,
		"border": e.border,
		"print":  e.print,
	}
	for name, fn := range funcs {
		e.L.SetGlobal(name, e.L.NewFunction(fn))
	}
}

func checkAddr(L *lua.LState, n int) uint16 {
	v := L.CheckInt(n)
	if v < 0 || v > 0xFFFF {
		L.ArgError(n, fmt.Sprintf("address %d out of range", v))
	}
	return uint16(v)
}

func (e *Engine) peek(L *lua.LState) int {
	L.Push(lua.LNumber(e.machine.Peek(checkAddr(L, 1))))
	return 1
}

func (e *Engine) poke(L *lua.LState) int {
	addr := checkAddr(L, 1)
	v := L.CheckInt(2)
	if v < 0 || v > 0xFF {
		L.ArgError(2, fmt.Sprintf("value %d out of range", v))
	}
	e.machine.Poke(addr, byte(v))
	return 0
}

func (e *Engine) run(L *lua.LState) int {
	n := L.CheckInt(1)
	if n < 0 {
		L.ArgError(1, "negative instruction count")
	}
	L.Push(lua.LNumber(e.machine.Run(n)))
	return 1
}

func (e *Engine) frames(L *lua.LState) int {
	n := L.OptInt(1, 1)
	for range n {
		e.machine.RunFrame()
	}
	L.Push(lua.LNumber(e.machine.Frames()))
	return 1
}

func (e *Engine) reg(L *lua.LState) int {
	name := strings.ToUpper(L.CheckString(1))
	regs := &e.machine.CPU().Registers
	if r, ok := spectrum.ParseReg16(name); ok {
		L.Push(lua.LNumber(regs.Get16(r)))
		return 1
	}
	if r, ok := spectrum.ParseReg8(name); ok {
		L.Push(lua.LNumber(regs.Get8(r)))
		return 1
	}
	L.ArgError(1, fmt.Sprintf("unknown register %q", name))
	return 0
}

func (e *Engine) setreg(L *lua.LState) int {
	name := strings.ToUpper(L.CheckString(1))
	v := L.CheckInt(2)
	regs := &e.machine.CPU().Registers
	if r, ok := spectrum.ParseReg16(name); ok {
		regs.Set16(r, uint16(v))
		return 0
	}
	if r, ok := spectrum.ParseReg8(name); ok {
		regs.Set8(r, byte(v))
		return 0
	}
	L.ArgError(1, fmt.Sprintf("unknown register %q", name))
	return 0
}

func (e *Engine) page(L *lua.LState) int {
	n := L.CheckInt(1)
	if n < 0 || n > 7 {
		L.ArgError(1, fmt.Sprintf("page %d out of range", n))
	}
	if err := e.machine.SetPort7FFD(e.machine.Port7FFD()&^0x07 | byte(n)); err != nil {
		L.RaiseError("%s", err.Error())
	}
	return 0
}

func (e *Engine) disasm(L *lua.LState) int {
	addr := checkAddr(L, 1)
	count := L.OptInt(2, 1)
	var sb strings.Builder
	for range count {
		sb.WriteString(spectrum.DisassembleBytes(e.machine.Peek, addr))
		sb.WriteByte('\n')
		addr += uint16(spectrum.InstructionLength(e.machine.Peek, addr))
	}
	L.Push(lua.LString(sb.String()))
	return 1
}

func (e *Engine) save(L *lua.LState) int {
	path := L.CheckString(1)
	format := L.OptString(2, "")
	if err := spectrum.SaveSnapshotFile(e.machine, path, format, e.opts); err != nil {
		L.RaiseError("%s", err.Error())
	}
	return 0
}

func (e *Engine) load(L *lua.LState) int {
	if err := spectrum.LoadSnapshotFile(e.machine, L.CheckString(1), e.opts); err != nil {
		L.RaiseError("%s", err.Error())
	}
	return 0
}

func (e *Engine) border(L *lua.LState) int {
	L.Push(lua.LNumber(e.machine.Border()))
	return 1
}

func (e *Engine) print(L *lua.LState) int {
	parts := make([]string, L.GetTop())
	for i := range parts {
		parts[i] = L.ToStringMeta(L.Get(i + 1)).String()
	}
	_, _ = fmt.Fprintln(e.out, strings.Join(parts, "\t"))
	return 0
}
