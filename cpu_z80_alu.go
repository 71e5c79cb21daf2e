// cpu_z80_alu.go - Arithmetic, logic and flag computation

package spectrum

type aluOp byte

const (
	aluAdd aluOp = iota
	aluAdc
	aluSub
	aluSbc
	aluAnd
	aluXor
	aluOr
	aluCp
)

// sz53 holds S, Z and the two undocumented bits for every byte value;
// sz53p adds parity.
var sz53, sz53p [256]byte

func init() {
	for i := range 256 {
		v := byte(i)
		f := v & (z80FlagS | z80FlagY | z80FlagX)
		if v == 0 {
			f |= z80FlagZ
		}
		sz53[i] = f
		if parity8(v) {
			f |= z80FlagPV
		}
		sz53p[i] = f
	}
}

func parity8(value byte) bool {
	value ^= value >> 4
	value ^= value >> 2
	value ^= value >> 1
	return value&1 == 0
}

func (c *CPU_Z80) carry() byte {
	return c.F() & z80FlagC
}

func (c *CPU_Z80) performALU(op aluOp, value byte) {
	switch op {
	case aluAdd:
		c.addA(value, 0)
	case aluAdc:
		c.addA(value, c.carry())
	case aluSub:
		c.SetA(c.sub8(value, 0))
	case aluSbc:
		c.SetA(c.sub8(value, c.carry()))
	case aluAnd:
		c.SetA(c.A() & value)
		c.SetF(sz53p[c.A()] | z80FlagH)
	case aluXor:
		c.SetA(c.A() ^ value)
		c.SetF(sz53p[c.A()])
	case aluOr:
		c.SetA(c.A() | value)
		c.SetF(sz53p[c.A()])
	case aluCp:
		c.sub8(value, 0)
		// CP takes the undocumented bits from the operand, not the result.
		c.SetF(c.F()&^(z80FlagX|z80FlagY) | value&(z80FlagX|z80FlagY))
	}
}

func (c *CPU_Z80) addA(value, carry byte) {
	a := c.A()
	sum := uint16(a) + uint16(value) + uint16(carry)
	res := byte(sum)
	f := sz53[res]
	if (a&0x0F)+(value&0x0F)+carry > 0x0F {
		f |= z80FlagH
	}
	if (a^value)&0x80 == 0 && (a^res)&0x80 != 0 {
		f |= z80FlagPV
	}
	if sum > 0xFF {
		f |= z80FlagC
	}
	c.SetA(res)
	c.SetF(f)
}

// sub8 computes A - value - carry and sets flags; the caller decides
// whether the result is stored.
func (c *CPU_Z80) sub8(value, carry byte) byte {
	a := c.A()
	diff := int(a) - int(value) - int(carry)
	res := byte(diff)
	f := sz53[res] | z80FlagN
	if int(a&0x0F)-int(value&0x0F)-int(carry) < 0 {
		f |= z80FlagH
	}
	if (a^value)&(a^res)&0x80 != 0 {
		f |= z80FlagPV
	}
	if diff < 0 {
		f |= z80FlagC
	}
	c.SetF(f)
	return res
}

func (c *CPU_Z80) inc8(value byte) byte {
	res := value + 1
	f := c.carry() | sz53[res]
	if value&0x0F == 0x0F {
		f |= z80FlagH
	}
	if value == 0x7F {
		f |= z80FlagPV
	}
	c.SetF(f)
	return res
}

func (c *CPU_Z80) dec8(value byte) byte {
	res := value - 1
	f := c.carry() | sz53[res] | z80FlagN
	if value&0x0F == 0 {
		f |= z80FlagH
	}
	if value == 0x80 {
		f |= z80FlagPV
	}
	c.SetF(f)
	return res
}

// add16 is ADD HL/IX/IY,rr: S, Z and P/V survive, MEMPTR becomes the old
// destination plus one.
func (c *CPU_Z80) add16(dst, value uint16) uint16 {
	sum := uint32(dst) + uint32(value)
	res := uint16(sum)
	f := c.F() & (z80FlagS | z80FlagZ | z80FlagPV)
	if (dst&0x0FFF)+(value&0x0FFF) > 0x0FFF {
		f |= z80FlagH
	}
	if sum > 0xFFFF {
		f |= z80FlagC
	}
	f |= byte(res>>8) & (z80FlagX | z80FlagY)
	c.SetF(f)
	c.MEMPTR = Register16(dst + 1)
	return res
}

func (c *CPU_Z80) adc16(value uint16) {
	hl := uint16(c.HL)
	carry := uint16(c.carry())
	sum := uint32(hl) + uint32(value) + uint32(carry)
	res := uint16(sum)
	f := byte(res>>8) & (z80FlagS | z80FlagX | z80FlagY)
	if res == 0 {
		f |= z80FlagZ
	}
	if (hl&0x0FFF)+(value&0x0FFF)+carry > 0x0FFF {
		f |= z80FlagH
	}
	if (hl^value)&0x8000 == 0 && (hl^res)&0x8000 != 0 {
		f |= z80FlagPV
	}
	if sum > 0xFFFF {
		f |= z80FlagC
	}
	c.MEMPTR = Register16(hl + 1)
	c.HL = Register16(res)
	c.SetF(f)
}

func (c *CPU_Z80) sbc16(value uint16) {
	hl := uint16(c.HL)
	carry := uint16(c.carry())
	diff := int32(hl) - int32(value) - int32(carry)
	res := uint16(diff)
	f := byte(res>>8)&(z80FlagS|z80FlagX|z80FlagY) | z80FlagN
	if res == 0 {
		f |= z80FlagZ
	}
	if int32(hl&0x0FFF)-int32(value&0x0FFF)-int32(carry) < 0 {
		f |= z80FlagH
	}
	if (hl^value)&(hl^res)&0x8000 != 0 {
		f |= z80FlagPV
	}
	if diff < 0 {
		f |= z80FlagC
	}
	c.MEMPTR = Register16(hl + 1)
	c.HL = Register16(res)
	c.SetF(f)
}

func (c *CPU_Z80) opDAA() {
	a := c.A()
	f := c.F()
	var diff byte
	carry := f&z80FlagC != 0
	if f&z80FlagH != 0 || a&0x0F > 9 {
		diff = 0x06
	}
	if carry || a > 0x99 {
		diff |= 0x60
		carry = true
	}
	var res byte
	var half bool
	if f&z80FlagN != 0 {
		res = a - diff
		half = f&z80FlagH != 0 && a&0x0F < 6
	} else {
		res = a + diff
		half = a&0x0F > 9
	}
	nf := sz53p[res] | f&z80FlagN
	if half {
		nf |= z80FlagH
	}
	if carry {
		nf |= z80FlagC
	}
	c.SetA(res)
	c.SetF(nf)
	c.tick(4)
}

func (c *CPU_Z80) opCPL() {
	a := ^c.A()
	c.SetA(a)
	c.SetF(c.F()&(z80FlagS|z80FlagZ|z80FlagPV|z80FlagC) | z80FlagH | z80FlagN | a&(z80FlagX|z80FlagY))
	c.tick(4)
}

func (c *CPU_Z80) opSCF() {
	c.SetF(c.F()&(z80FlagS|z80FlagZ|z80FlagPV) | z80FlagC | c.A()&(z80FlagX|z80FlagY))
	c.tick(4)
}

func (c *CPU_Z80) opCCF() {
	f := c.F()&(z80FlagS|z80FlagZ|z80FlagPV) | c.A()&(z80FlagX|z80FlagY)
	if c.carry() != 0 {
		f |= z80FlagH
	} else {
		f |= z80FlagC
	}
	c.SetF(f)
	c.tick(4)
}

// setRotateAFlags is shared by RLCA, RRCA, RLA and RRA.
func (c *CPU_Z80) setRotateAFlags(carry bool) {
	f := c.F()&(z80FlagS|z80FlagZ|z80FlagPV) | c.A()&(z80FlagX|z80FlagY)
	if carry {
		f |= z80FlagC
	}
	c.SetF(f)
}

func (c *CPU_Z80) opRLCA() {
	a := c.A()
	c.SetA(a<<1 | a>>7)
	c.setRotateAFlags(a&0x80 != 0)
	c.tick(4)
}

func (c *CPU_Z80) opRRCA() {
	a := c.A()
	c.SetA(a>>1 | a<<7)
	c.setRotateAFlags(a&0x01 != 0)
	c.tick(4)
}

func (c *CPU_Z80) opRLA() {
	a := c.A()
	c.SetA(a<<1 | c.carry())
	c.setRotateAFlags(a&0x80 != 0)
	c.tick(4)
}

func (c *CPU_Z80) opRRA() {
	a := c.A()
	c.SetA(a>>1 | c.carry()<<7)
	c.setRotateAFlags(a&0x01 != 0)
	c.tick(4)
}

// shiftOp applies CB group 0-7 (RLC RRC RL RR SLA SRA SLL SRL) and sets
// S, Z, P/V and the undocumented bits from the result.
func (c *CPU_Z80) shiftOp(group, v byte) byte {
	var res, out byte
	switch group {
	case 0:
		res, out = v<<1|v>>7, v>>7
	case 1:
		res, out = v>>1|v<<7, v&1
	case 2:
		res, out = v<<1|c.carry(), v>>7
	case 3:
		res, out = v>>1|c.carry()<<7, v&1
	case 4:
		res, out = v<<1, v>>7
	case 5:
		res, out = v>>1|v&0x80, v&1
	case 6:
		res, out = v<<1|1, v>>7
	default:
		res, out = v>>1, v&1
	}
	c.SetF(sz53p[res] | out)
	return res
}

// bitTest sets flags for BIT n. xy supplies the undocumented bits, which
// come from the register, MEMPTR or the indexed address depending on form.
func (c *CPU_Z80) bitTest(bit, value, xy byte) {
	f := c.carry() | z80FlagH | xy&(z80FlagX|z80FlagY)
	masked := value & (1 << bit)
	if masked == 0 {
		f |= z80FlagZ | z80FlagPV
	}
	if bit == 7 && masked != 0 {
		f |= z80FlagS
	}
	c.SetF(f)
}
