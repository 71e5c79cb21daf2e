// cpu_z80_registers.go - Z80 register file

package spectrum

import (
	"encoding/binary"
	"fmt"
)

// Z80 flag bits held in the low byte of AF.
const (
	z80FlagS  = 0x80
	z80FlagZ  = 0x40
	z80FlagY  = 0x20 // undocumented, copy of bit 5
	z80FlagH  = 0x10
	z80FlagX  = 0x08 // undocumented, copy of bit 3
	z80FlagPV = 0x04
	z80FlagN  = 0x02
	z80FlagC  = 0x01
)

// Register16 is a register pair. The 8-bit halves are views computed from
// the pair with shifts and masks, so writing a half is immediately visible
// through the pair and the other way round.
type Register16 uint16

func (r Register16) High() byte { return byte(r >> 8) }
func (r Register16) Low() byte  { return byte(r) }

func (r *Register16) SetHigh(v byte) { *r = *r&0x00FF | Register16(v)<<8 }
func (r *Register16) SetLow(v byte)  { *r = *r&0xFF00 | Register16(v) }

// Bytes returns the pair as the Z80 puts it on the data bus: low byte first.
func (r Register16) Bytes() [2]byte {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], uint16(r))
	return b
}

// SetBytes loads the pair from Z80 byte order.
func (r *Register16) SetBytes(b [2]byte) {
	*r = Register16(binary.LittleEndian.Uint16(b[:]))
}

// Z80Order returns a host integer whose in-memory representation matches
// the Z80's little-endian layout. On little-endian hosts this is the value
// itself; on big-endian hosts the bytes are swapped.
func (r Register16) Z80Order() uint16 {
	b := r.Bytes()
	return binary.NativeEndian.Uint16(b[:])
}

// FromZ80Order is the inverse of Z80Order.
func FromZ80Order(v uint16) Register16 {
	var b [2]byte
	binary.NativeEndian.PutUint16(b[:], v)
	return Register16(binary.LittleEndian.Uint16(b[:]))
}

// Reg8 names an 8-bit register.
type Reg8 int

const (
	RegA Reg8 = iota
	RegF
	RegB
	RegC
	RegD
	RegE
	RegH
	RegL
	RegIXH
	RegIXL
	RegIYH
	RegIYL
	RegI
	RegR
	RegA2
	RegF2
	RegB2
	RegC2
	RegD2
	RegE2
	RegH2
	RegL2
)

// Reg16 names a 16-bit register pair.
type Reg16 int

const (
	RegAF Reg16 = iota
	RegBC
	RegDE
	RegHL
	RegIX
	RegIY
	RegSP
	RegPC
	RegAF2
	RegBC2
	RegDE2
	RegHL2
	RegMEMPTR
)

var reg16Names = [...]string{"AF", "BC", "DE", "HL", "IX", "IY", "SP", "PC", "AF'", "BC'", "DE'", "HL'", "MEMPTR"}

var reg8Names = [...]string{"A", "F", "B", "C", "D", "E", "H", "L", "IXH", "IXL", "IYH", "IYL", "I", "R",
	"A'", "F'", "B'", "C'", "D'", "E'", "H'", "L'"}

func (r Reg16) String() string {
	if r < 0 || int(r) >= len(reg16Names) {
		return fmt.Sprintf("Reg16(%d)", int(r))
	}
	return reg16Names[r]
}

func (r Reg8) String() string {
	if r < 0 || int(r) >= len(reg8Names) {
		return fmt.Sprintf("Reg8(%d)", int(r))
	}
	return reg8Names[r]
}

// ParseReg16 resolves a pair name such as "HL" or "AF'".
func ParseReg16(name string) (Reg16, bool) {
	for i, n := range reg16Names {
		if n == name {
			return Reg16(i), true
		}
	}
	return 0, false
}

// ParseReg8 resolves an 8-bit register name such as "A" or "IXH".
func ParseReg8(name string) (Reg8, bool) {
	for i, n := range reg8Names {
		if n == name {
			return Reg8(i), true
		}
	}
	return 0, false
}

// Registers is the complete Z80 register file.
type Registers struct {
	AF, BC, DE, HL     Register16
	AF2, BC2, DE2, HL2 Register16
	IX, IY, SP, PC     Register16
	I, R               byte

	// MEMPTR is the internal address latch (also called WZ). Only flag side
	// effects of BIT n,(HL) expose it.
	MEMPTR Register16
}

// Reset restores the power-on defaults.
func (r *Registers) Reset() {
	*r = Registers{}
	r.AF = 0xFFFF
	r.SP = 0xFFFF
}

func (r *Registers) pair(reg Reg16) *Register16 {
	switch reg {
	case RegAF:
		return &r.AF
	case RegBC:
		return &r.BC
	case RegDE:
		return &r.DE
	case RegHL:
		return &r.HL
	case RegIX:
		return &r.IX
	case RegIY:
		return &r.IY
	case RegSP:
		return &r.SP
	case RegPC:
		return &r.PC
	case RegAF2:
		return &r.AF2
	case RegBC2:
		return &r.BC2
	case RegDE2:
		return &r.DE2
	case RegHL2:
		return &r.HL2
	case RegMEMPTR:
		return &r.MEMPTR
	}
	panic(fmt.Sprintf("z80 registers: invalid pair %d", int(reg)))
}

// Get16 returns a pair in host order.
func (r *Registers) Get16(reg Reg16) uint16 { return uint16(*r.pair(reg)) }

// Set16 writes a pair in host order.
func (r *Registers) Set16(reg Reg16, v uint16) { *r.pair(reg) = Register16(v) }

// Get16Z80 returns a pair in Z80 byte order.
func (r *Registers) Get16Z80(reg Reg16) [2]byte { return r.pair(reg).Bytes() }

// Set16Z80 writes a pair given in Z80 byte order.
func (r *Registers) Set16Z80(reg Reg16, b [2]byte) { r.pair(reg).SetBytes(b) }

// Get8 returns an 8-bit register.
func (r *Registers) Get8(reg Reg8) byte {
	switch reg {
	case RegI:
		return r.I
	case RegR:
		return r.R
	}
	p, high := r.half(reg)
	if high {
		return p.High()
	}
	return p.Low()
}

// Set8 writes an 8-bit register; the owning pair changes with it.
func (r *Registers) Set8(reg Reg8, v byte) {
	switch reg {
	case RegI:
		r.I = v
		return
	case RegR:
		r.R = v
		return
	}
	p, high := r.half(reg)
	if high {
		p.SetHigh(v)
	} else {
		p.SetLow(v)
	}
}

func (r *Registers) half(reg Reg8) (*Register16, bool) {
	switch reg {
	case RegA:
		return &r.AF, true
	case RegF:
		return &r.AF, false
	case RegB:
		return &r.BC, true
	case RegC:
		return &r.BC, false
	case RegD:
		return &r.DE, true
	case RegE:
		return &r.DE, false
	case RegH:
		return &r.HL, true
	case RegL:
		return &r.HL, false
	case RegIXH:
		return &r.IX, true
	case RegIXL:
		return &r.IX, false
	case RegIYH:
		return &r.IY, true
	case RegIYL:
		return &r.IY, false
	case RegA2:
		return &r.AF2, true
	case RegF2:
		return &r.AF2, false
	case RegB2:
		return &r.BC2, true
	case RegC2:
		return &r.BC2, false
	case RegD2:
		return &r.DE2, true
	case RegE2:
		return &r.DE2, false
	case RegH2:
		return &r.HL2, true
	case RegL2:
		return &r.HL2, false
	}
	panic(fmt.Sprintf("z80 registers: invalid register %d", int(reg)))
}

// Hot path accessors used throughout the engine.

func (r *Registers) A() byte { return r.AF.High() }
func (r *Registers) F() byte { return r.AF.Low() }
func (r *Registers) B() byte { return r.BC.High() }
func (r *Registers) C() byte { return r.BC.Low() }
func (r *Registers) D() byte { return r.DE.High() }
func (r *Registers) E() byte { return r.DE.Low() }
func (r *Registers) H() byte { return r.HL.High() }
func (r *Registers) L() byte { return r.HL.Low() }

func (r *Registers) SetA(v byte) { r.AF.SetHigh(v) }
func (r *Registers) SetF(v byte) { r.AF.SetLow(v) }
func (r *Registers) SetB(v byte) { r.BC.SetHigh(v) }
func (r *Registers) SetC(v byte) { r.BC.SetLow(v) }
func (r *Registers) SetD(v byte) { r.DE.SetHigh(v) }
func (r *Registers) SetE(v byte) { r.DE.SetLow(v) }
func (r *Registers) SetH(v byte) { r.HL.SetHigh(v) }
func (r *Registers) SetL(v byte) { r.HL.SetLow(v) }

func (r *Registers) flag(mask byte) bool { return r.F()&mask != 0 }

// String renders the register file on one line.
func (r *Registers) String() string {
	return fmt.Sprintf("AF=%04X BC=%04X DE=%04X HL=%04X IX=%04X IY=%04X SP=%04X PC=%04X "+
		"AF'=%04X BC'=%04X DE'=%04X HL'=%04X I=%02X R=%02X F=%s",
		uint16(r.AF), uint16(r.BC), uint16(r.DE), uint16(r.HL), uint16(r.IX), uint16(r.IY),
		uint16(r.SP), uint16(r.PC), uint16(r.AF2), uint16(r.BC2), uint16(r.DE2), uint16(r.HL2),
		r.I, r.R, flagString(r.F()))
}

func flagString(f byte) string {
	const names = "SZ5H3PNC"
	out := []byte(names)
	for i := range 8 {
		if f&(0x80>>i) == 0 {
			out[i] = '-'
		}
	}
	return string(out)
}
