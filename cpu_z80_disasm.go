// cpu_z80_disasm.go - Z80 disassembler for tracing and the monitor

package spectrum

import (
	"fmt"
	"strings"
)

var (
	z80Reg8      = [8]string{"B", "C", "D", "E", "H", "L", "(HL)", "A"}
	z80Reg16     = [4]string{"BC", "DE", "HL", "SP"}
	z80Reg16Push = [4]string{"BC", "DE", "HL", "AF"}
	z80Cond      = [8]string{"NZ", "Z", "NC", "C", "PO", "PE", "P", "M"}
	z80ALU       = [8]string{"ADD A,", "ADC A,", "SUB", "SBC A,", "AND", "XOR", "OR", "CP"}
	z80CBOps     = [8]string{"RLC", "RRC", "RL", "RR", "SLA", "SRA", "SLL", "SRL"}
	z80Rotates   = [8]string{"RLCA", "RRCA", "RLA", "RRA", "DAA", "CPL", "SCF", "CCF"}
	z80Block     = [4][4]string{
		{"LDI", "CPI", "INI", "OUTI"},
		{"LDD", "CPD", "IND", "OUTD"},
		{"LDIR", "CPIR", "INIR", "OTIR"},
		{"LDDR", "CPDR", "INDR", "OTDR"},
	}
)

// disasmCursor walks instruction bytes through a read callback.
type disasmCursor struct {
	read  func(uint16) byte
	pc    uint16
	index string // "HL", "IX" or "IY"
	disp  int8
	// dispRead is set once the displacement byte was consumed, so DDCB
	// forms can read it ahead of the opcode.
	dispRead bool
}

func (d *disasmCursor) byte() byte {
	v := d.read(d.pc)
	d.pc++
	return v
}

func (d *disasmCursor) word() uint16 {
	lo := d.byte()
	hi := d.byte()
	return uint16(hi)<<8 | uint16(lo)
}

func (d *disasmCursor) rel() uint16 {
	e := int8(d.byte())
	return d.pc + uint16(e)
}

// mem formats (HL) or (IX+d).
func (d *disasmCursor) mem() string {
	if d.index == "HL" {
		return "(HL)"
	}
	if !d.dispRead {
		d.disp = int8(d.byte())
		d.dispRead = true
	}
	return fmt.Sprintf("(%s%+d)", d.index, d.disp)
}

func (d *disasmCursor) r(code byte) string {
	switch code {
	case 6:
		return d.mem()
	case 4:
		if d.index != "HL" {
			return d.index + "H"
		}
	case 5:
		if d.index != "HL" {
			return d.index + "L"
		}
	}
	return z80Reg8[code]
}

func (d *disasmCursor) rp(p byte) string {
	if p == 2 {
		return d.index
	}
	return z80Reg16[p]
}

// Disassemble decodes the instruction at addr and returns its length and
// text. It never fails: unused ED encodings render as NOP*.
func Disassemble(read func(uint16) byte, addr uint16) (int, string) {
	d := &disasmCursor{read: read, pc: addr, index: "HL"}
	text := d.decode()
	return int(d.pc - addr), text
}

// InstructionLength returns the byte length of the instruction at addr.
func InstructionLength(read func(uint16) byte, addr uint16) int {
	n, _ := Disassemble(read, addr)
	return n
}

// DisassembleBytes formats an instruction with its hex bytes.
func DisassembleBytes(read func(uint16) byte, addr uint16) string {
	n, text := Disassemble(read, addr)
	hex := make([]string, n)
	for i := range n {
		hex[i] = fmt.Sprintf("%02X", read(addr+uint16(i)))
	}
	return fmt.Sprintf("%04X  %-12s %s", addr, strings.Join(hex, " "), text)
}

func (d *disasmCursor) decode() string {
	op := d.byte()
	for op == 0xDD || op == 0xFD {
		if op == 0xDD {
			d.index = "IX"
		} else {
			d.index = "IY"
		}
		next := d.read(d.pc)
		if next == 0xDD || next == 0xFD || next == 0xED {
			// The prefix only costs time.
			if next == 0xED {
				d.index = "HL"
			}
			op = d.byte()
			continue
		}
		op = d.byte()
	}
	switch op {
	case 0xCB:
		return d.decodeCB()
	case 0xED:
		d.index = "HL"
		return d.decodeED()
	}
	return d.decodeBase(op)
}

func (d *disasmCursor) decodeBase(op byte) string {
	x, y, z := op>>6, (op>>3)&7, op&7
	p, q := y>>1, y&1
	switch x {
	case 0:
		switch z {
		case 0:
			switch y {
			case 0:
				return "NOP"
			case 1:
				return "EX AF, AF'"
			case 2:
				return fmt.Sprintf("DJNZ $%04X", d.rel())
			case 3:
				return fmt.Sprintf("JR $%04X", d.rel())
			default:
				return fmt.Sprintf("JR %s, $%04X", z80Cond[y-4], d.rel())
			}
		case 1:
			if q == 0 {
				return fmt.Sprintf("LD %s, $%04X", d.rp(p), d.word())
			}
			return fmt.Sprintf("ADD %s, %s", d.index, d.rp(p))
		case 2:
			switch y {
			case 0:
				return "LD (BC), A"
			case 1:
				return "LD A, (BC)"
			case 2:
				return "LD (DE), A"
			case 3:
				return "LD A, (DE)"
			case 4:
				return fmt.Sprintf("LD ($%04X), %s", d.word(), d.index)
			case 5:
				return fmt.Sprintf("LD %s, ($%04X)", d.index, d.word())
			case 6:
				return fmt.Sprintf("LD ($%04X), A", d.word())
			default:
				return fmt.Sprintf("LD A, ($%04X)", d.word())
			}
		case 3:
			if q == 0 {
				return "INC " + d.rp(p)
			}
			return "DEC " + d.rp(p)
		case 4:
			return "INC " + d.r(y)
		case 5:
			return "DEC " + d.r(y)
		case 6:
			dst := d.r(y)
			return fmt.Sprintf("LD %s, $%02X", dst, d.byte())
		default:
			return z80Rotates[y]
		}
	case 1:
		if op == 0x76 {
			return "HALT"
		}
		// With an index prefix, a (IX+d) operand keeps the other side plain.
		if z == 6 {
			src := d.mem()
			return fmt.Sprintf("LD %s, %s", z80Reg8[y], src)
		}
		if y == 6 {
			dst := d.mem()
			return fmt.Sprintf("LD %s, %s", dst, z80Reg8[z])
		}
		return fmt.Sprintf("LD %s, %s", d.r(y), d.r(z))
	case 2:
		return fmt.Sprintf("%s %s", z80ALU[y], d.r(z))
	}

	switch z {
	case 0:
		return "RET " + z80Cond[y]
	case 1:
		if q == 0 {
			if p == 2 {
				return "POP " + d.index
			}
			return "POP " + z80Reg16Push[p]
		}
		switch p {
		case 0:
			return "RET"
		case 1:
			return "EXX"
		case 2:
			return fmt.Sprintf("JP (%s)", d.index)
		default:
			return "LD SP, " + d.index
		}
	case 2:
		return fmt.Sprintf("JP %s, $%04X", z80Cond[y], d.word())
	case 3:
		switch y {
		case 0:
			return fmt.Sprintf("JP $%04X", d.word())
		case 2:
			return fmt.Sprintf("OUT ($%02X), A", d.byte())
		case 3:
			return fmt.Sprintf("IN A, ($%02X)", d.byte())
		case 4:
			return "EX (SP), " + d.index
		case 5:
			return "EX DE, HL"
		case 6:
			return "DI"
		default:
			return "EI"
		}
	case 4:
		return fmt.Sprintf("CALL %s, $%04X", z80Cond[y], d.word())
	case 5:
		if q == 0 {
			if p == 2 {
				return "PUSH " + d.index
			}
			return "PUSH " + z80Reg16Push[p]
		}
		return fmt.Sprintf("CALL $%04X", d.word())
	case 6:
		return fmt.Sprintf("%s $%02X", z80ALU[y], d.byte())
	default:
		return fmt.Sprintf("RST $%02X", y<<3)
	}
}

func (d *disasmCursor) decodeCB() string {
	var operand string
	if d.index != "HL" {
		operand = d.mem()
	}
	op := d.byte()
	x, y, z := op>>6, (op>>3)&7, op&7
	if d.index == "HL" {
		operand = z80Reg8[z]
	} else if z != 6 {
		operand = fmt.Sprintf("%s, %s", operand, z80Reg8[z])
	}
	switch x {
	case 0:
		return fmt.Sprintf("%s %s", z80CBOps[y], operand)
	case 1:
		if d.index != "HL" {
			operand = d.mem()
		}
		return fmt.Sprintf("BIT %d, %s", y, operand)
	case 2:
		return fmt.Sprintf("RES %d, %s", y, operand)
	default:
		return fmt.Sprintf("SET %d, %s", y, operand)
	}
}

func (d *disasmCursor) decodeED() string {
	op := d.byte()
	x, y, z := op>>6, (op>>3)&7, op&7
	p, q := y>>1, y&1
	if x == 2 && z <= 3 && y >= 4 {
		return z80Block[y-4][z]
	}
	if x != 1 {
		return fmt.Sprintf("NOP* ($ED $%02X)", op)
	}
	switch z {
	case 0:
		if y == 6 {
			return "IN (C)"
		}
		return fmt.Sprintf("IN %s, (C)", z80Reg8[y])
	case 1:
		if y == 6 {
			return "OUT (C), 0"
		}
		return fmt.Sprintf("OUT (C), %s", z80Reg8[y])
	case 2:
		if q == 0 {
			return "SBC HL, " + z80Reg16[p]
		}
		return "ADC HL, " + z80Reg16[p]
	case 3:
		if q == 0 {
			return fmt.Sprintf("LD ($%04X), %s", d.word(), z80Reg16[p])
		}
		return fmt.Sprintf("LD %s, ($%04X)", z80Reg16[p], d.word())
	case 4:
		return "NEG"
	case 5:
		if y == 1 {
			return "RETI"
		}
		return "RETN"
	case 6:
		return fmt.Sprintf("IM %d", [8]int{0, 0, 1, 2, 0, 0, 1, 2}[y])
	default:
		return [8]string{"LD I, A", "LD R, A", "LD A, I", "LD A, R", "RRD", "RLD", "NOP*", "NOP*"}[y]
	}
}
