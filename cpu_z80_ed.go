// cpu_z80_ed.go - ED prefixed extended instructions

package spectrum

func (c *CPU_Z80) initEDOps() {
	// Undefined ED opcodes behave as an 8 T-state NOP on real silicon.
	for i := range c.edOps {
		c.edOps[i] = (*CPU_Z80).opEDNop
	}

	for r := range byte(8) {
		c.edOps[0x40|r<<3] = func(cpu *CPU_Z80) { cpu.opINRegC(r) }
		c.edOps[0x41|r<<3] = func(cpu *CPU_Z80) { cpu.opOUTCReg(r) }
		c.edOps[0x44|r<<3] = (*CPU_Z80).opNEG
		c.edOps[0x45|r<<3] = (*CPU_Z80).opRETN
	}
	c.edOps[0x4D] = (*CPU_Z80).opRETI

	for p := range byte(4) {
		c.edOps[0x42|p<<4] = func(cpu *CPU_Z80) { cpu.opSBCHL(p) }
		c.edOps[0x4A|p<<4] = func(cpu *CPU_Z80) { cpu.opADCHL(p) }
		c.edOps[0x43|p<<4] = func(cpu *CPU_Z80) { cpu.opLDNNRP(p) }
		c.edOps[0x4B|p<<4] = func(cpu *CPU_Z80) { cpu.opLDRPNN(p) }
	}

	modes := [8]byte{0, 0, 1, 2, 0, 0, 1, 2}
	for y, mode := range modes {
		c.edOps[0x46|y<<3] = func(cpu *CPU_Z80) { cpu.opIM(mode) }
	}

	c.edOps[0x47] = (*CPU_Z80).opLDIA
	c.edOps[0x4F] = (*CPU_Z80).opLDRA
	c.edOps[0x57] = (*CPU_Z80).opLDAI
	c.edOps[0x5F] = (*CPU_Z80).opLDAR
	c.edOps[0x67] = (*CPU_Z80).opRRD
	c.edOps[0x6F] = (*CPU_Z80).opRLD

	c.edOps[0xA0] = func(cpu *CPU_Z80) { cpu.opLDBlock(1, false) }
	c.edOps[0xA8] = func(cpu *CPU_Z80) { cpu.opLDBlock(-1, false) }
	c.edOps[0xB0] = func(cpu *CPU_Z80) { cpu.opLDBlock(1, true) }
	c.edOps[0xB8] = func(cpu *CPU_Z80) { cpu.opLDBlock(-1, true) }
	c.edOps[0xA1] = func(cpu *CPU_Z80) { cpu.opCPBlock(1, false) }
	c.edOps[0xA9] = func(cpu *CPU_Z80) { cpu.opCPBlock(-1, false) }
	c.edOps[0xB1] = func(cpu *CPU_Z80) { cpu.opCPBlock(1, true) }
	c.edOps[0xB9] = func(cpu *CPU_Z80) { cpu.opCPBlock(-1, true) }
	c.edOps[0xA2] = func(cpu *CPU_Z80) { cpu.opINBlock(1, false) }
	c.edOps[0xAA] = func(cpu *CPU_Z80) { cpu.opINBlock(-1, false) }
	c.edOps[0xB2] = func(cpu *CPU_Z80) { cpu.opINBlock(1, true) }
	c.edOps[0xBA] = func(cpu *CPU_Z80) { cpu.opINBlock(-1, true) }
	c.edOps[0xA3] = func(cpu *CPU_Z80) { cpu.opOUTBlock(1, false) }
	c.edOps[0xAB] = func(cpu *CPU_Z80) { cpu.opOUTBlock(-1, false) }
	c.edOps[0xB3] = func(cpu *CPU_Z80) { cpu.opOUTBlock(1, true) }
	c.edOps[0xBB] = func(cpu *CPU_Z80) { cpu.opOUTBlock(-1, true) }
}

func (c *CPU_Z80) opEDNop() {
	c.tick(8)
}

// opINRegC is IN r,(C). Register code 6 only sets flags.
func (c *CPU_Z80) opINRegC(r byte) {
	v := c.bus.In(uint16(c.BC))
	c.MEMPTR = c.BC + 1
	if r != 6 {
		c.setReg8(r, v)
	}
	c.SetF(c.carry() | sz53p[v])
	c.tick(12)
}

// opOUTCReg is OUT (C),r. Register code 6 outputs zero on NMOS parts.
func (c *CPU_Z80) opOUTCReg(r byte) {
	var v byte
	if r != 6 {
		v = c.reg8(r)
	}
	c.bus.Out(uint16(c.BC), v)
	c.MEMPTR = c.BC + 1
	c.tick(12)
}

func (c *CPU_Z80) opNEG() {
	v := c.A()
	c.SetA(0)
	c.SetA(c.sub8(v, 0))
	c.tick(8)
}

func (c *CPU_Z80) opRETN() {
	c.RetN()
	c.tick(14)
}

func (c *CPU_Z80) opRETI() {
	c.RetN()
	c.tick(14)
}

func (c *CPU_Z80) opSBCHL(p byte) {
	c.sbc16(uint16(*c.rp(p)))
	c.tick(15)
}

func (c *CPU_Z80) opADCHL(p byte) {
	c.adc16(uint16(*c.rp(p)))
	c.tick(15)
}

func (c *CPU_Z80) opLDNNRP(p byte) {
	addr := c.fetchWord()
	c.writeWord(addr, uint16(*c.rp(p)))
	c.MEMPTR = Register16(addr + 1)
	c.tick(20)
}

func (c *CPU_Z80) opLDRPNN(p byte) {
	addr := c.fetchWord()
	*c.rp(p) = Register16(c.readWord(addr))
	c.MEMPTR = Register16(addr + 1)
	c.tick(20)
}

func (c *CPU_Z80) opIM(mode byte) {
	c.IM = mode
	c.tick(8)
}

func (c *CPU_Z80) opLDIA() {
	c.I = c.A()
	c.tick(9)
}

func (c *CPU_Z80) opLDRA() {
	c.R = c.A()
	c.tick(9)
}

// LD A,I and LD A,R copy IFF2 into P/V.
func (c *CPU_Z80) loadAIRFlags() {
	f := c.carry() | sz53[c.A()]
	if c.IFF2 {
		f |= z80FlagPV
	}
	c.SetF(f)
}

func (c *CPU_Z80) opLDAI() {
	c.SetA(c.I)
	c.loadAIRFlags()
	c.tick(9)
}

func (c *CPU_Z80) opLDAR() {
	c.SetA(c.R)
	c.loadAIRFlags()
	c.tick(9)
}

func (c *CPU_Z80) opRRD() {
	hl := uint16(c.HL)
	m := c.read(hl)
	a := c.A()
	c.write(hl, a<<4|m>>4)
	c.SetA(a&0xF0 | m&0x0F)
	c.SetF(c.carry() | sz53p[c.A()])
	c.MEMPTR = Register16(hl + 1)
	c.tick(18)
}

func (c *CPU_Z80) opRLD() {
	hl := uint16(c.HL)
	m := c.read(hl)
	a := c.A()
	c.write(hl, m<<4|a&0x0F)
	c.SetA(a&0xF0 | m>>4)
	c.SetF(c.carry() | sz53p[c.A()])
	c.MEMPTR = Register16(hl + 1)
	c.tick(18)
}

// repeatBlock rewinds PC onto the ED prefix for the repeating forms.
func (c *CPU_Z80) repeatBlock() {
	c.PC -= 2
	c.MEMPTR = c.PC + 1
	c.tick(5)
}

// opLDBlock is LDI/LDD/LDIR/LDDR. The undocumented bits come from
// A+(HL): bit 3 to X, bit 1 to Y.
func (c *CPU_Z80) opLDBlock(step int, repeat bool) {
	v := c.read(uint16(c.HL))
	c.write(uint16(c.DE), v)
	c.HL += Register16(step)
	c.DE += Register16(step)
	c.BC--
	n := v + c.A()
	f := c.F()&(z80FlagS|z80FlagZ|z80FlagC) | n&z80FlagX | (n<<4)&z80FlagY
	if c.BC != 0 {
		f |= z80FlagPV
	}
	c.SetF(f)
	c.tick(16)
	if repeat && c.BC != 0 {
		c.repeatBlock()
	}
}

// opCPBlock is CPI/CPD/CPIR/CPDR.
func (c *CPU_Z80) opCPBlock(step int, repeat bool) {
	v := c.read(uint16(c.HL))
	a := c.A()
	res := a - v
	c.HL += Register16(step)
	c.BC--
	c.MEMPTR += Register16(step)
	f := c.carry() | z80FlagN | sz53[res]&(z80FlagS|z80FlagZ)
	half := (a & 0x0F) < (v & 0x0F)
	n := res
	if half {
		f |= z80FlagH
		n--
	}
	f |= n&z80FlagX | (n<<4)&z80FlagY
	if c.BC != 0 {
		f |= z80FlagPV
	}
	c.SetF(f)
	c.tick(16)
	if repeat && c.BC != 0 && f&z80FlagZ == 0 {
		c.repeatBlock()
	}
}

// blockIOFlags applies the INI/OUTI family rules: k is the value plus the
// adjusted C or L, B has already been decremented.
func (c *CPU_Z80) blockIOFlags(v byte, k uint16) {
	b := c.B()
	f := sz53[b]
	if v&0x80 != 0 {
		f |= z80FlagN
	}
	if k > 0xFF {
		f |= z80FlagH | z80FlagC
	}
	if parity8(byte(k)&7 ^ b) {
		f |= z80FlagPV
	}
	c.SetF(f)
}

// opINBlock is INI/IND/INIR/INDR.
func (c *CPU_Z80) opINBlock(step int, repeat bool) {
	v := c.bus.In(uint16(c.BC))
	c.write(uint16(c.HL), v)
	c.MEMPTR = c.BC + Register16(step)
	c.SetB(c.B() - 1)
	c.HL += Register16(step)
	k := uint16(v) + uint16(c.C()+byte(step))
	c.blockIOFlags(v, k)
	c.tick(16)
	if repeat && c.B() != 0 {
		c.repeatBlock()
	}
}

// opOUTBlock is OUTI/OUTD/OTIR/OTDR. B is decremented before the port
// address goes on the bus.
func (c *CPU_Z80) opOUTBlock(step int, repeat bool) {
	v := c.read(uint16(c.HL))
	c.SetB(c.B() - 1)
	c.bus.Out(uint16(c.BC), v)
	c.HL += Register16(step)
	c.MEMPTR = c.BC + Register16(step)
	k := uint16(v) + uint16(c.L())
	c.blockIOFlags(v, k)
	c.tick(16)
	if repeat && c.B() != 0 {
		c.repeatBlock()
	}
}
