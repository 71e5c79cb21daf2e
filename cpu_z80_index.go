// cpu_z80_index.go - DD/FD prefixed instructions and DDCB/FDCB bit operations

package spectrum

// initIndexOps builds the one table shared by DD and FD. Entries that do not
// touch (HL) reuse the plain handlers, which read c.index for HL, H and L.
// Each entry ticks its full cost minus the 4 T-states of the prefix.
func (c *CPU_Z80) initIndexOps() {
	c.indexOps = c.baseOps
	c.indexOps[0xCB] = (*CPU_Z80).opIndexedBit

	c.indexOps[0x34] = (*CPU_Z80).opINCIndexed
	c.indexOps[0x35] = (*CPU_Z80).opDECIndexed
	c.indexOps[0x36] = (*CPU_Z80).opLDIndexedImm
	for r := range byte(8) {
		if r == 6 {
			continue
		}
		c.indexOps[0x46|r<<3] = func(cpu *CPU_Z80) { cpu.opLDRegIndexed(r) }
		c.indexOps[0x70|r] = func(cpu *CPU_Z80) { cpu.opLDIndexedReg(r) }
	}
	for alu := range aluOp(8) {
		c.indexOps[0x86|byte(alu)<<3] = func(cpu *CPU_Z80) { cpu.opALUIndexed(alu) }
	}
}

// opIndexPrefix handles a run of DD/FD bytes. Each extra prefix costs 4
// T-states and the last one decides the index pair. An ED following the
// prefix cancels it.
func (c *CPU_Z80) opIndexPrefix(reg *Register16) {
	var op byte
	for {
		c.tick(4)
		op = c.fetchOpcode()
		switch op {
		case 0xDD:
			reg = &c.IX
			continue
		case 0xFD:
			reg = &c.IY
			continue
		}
		break
	}
	if op == 0xED {
		c.edOps[c.fetchOpcode()](c)
		return
	}
	c.index = reg
	c.indexOps[op](c)
	c.index = &c.HL
}

// indexedAddr reads the displacement and returns IX+d or IY+d. MEMPTR
// latches the effective address.
func (c *CPU_Z80) indexedAddr() uint16 {
	d := int8(c.fetchByte())
	addr := uint16(*c.index) + uint16(d)
	c.MEMPTR = Register16(addr)
	return addr
}

func (c *CPU_Z80) opLDRegIndexed(r byte) {
	addr := c.indexedAddr()
	c.setReg8Plain(r, c.read(addr))
	c.tick(15)
}

func (c *CPU_Z80) opLDIndexedReg(r byte) {
	addr := c.indexedAddr()
	c.write(addr, c.reg8Plain(r))
	c.tick(15)
}

func (c *CPU_Z80) opLDIndexedImm() {
	addr := c.indexedAddr()
	c.write(addr, c.fetchByte())
	c.tick(15)
}

func (c *CPU_Z80) opINCIndexed() {
	addr := c.indexedAddr()
	c.write(addr, c.inc8(c.read(addr)))
	c.tick(19)
}

func (c *CPU_Z80) opDECIndexed() {
	addr := c.indexedAddr()
	c.write(addr, c.dec8(c.read(addr)))
	c.tick(19)
}

func (c *CPU_Z80) opALUIndexed(op aluOp) {
	addr := c.indexedAddr()
	c.performALU(op, c.read(addr))
	c.tick(15)
}

// opIndexedBit is DDCB d op / FDCB d op. The opcode byte is read as data,
// so R advances twice for the whole instruction. Rotates, RES and SET with
// a register field other than 6 also copy the result into that register.
func (c *CPU_Z80) opIndexedBit() {
	addr := c.indexedAddr()
	op := c.fetchByte()
	group := (op >> 3) & 7
	reg := op & 7
	v := c.read(addr)

	var res byte
	switch op >> 6 {
	case 0:
		res = c.shiftOp(group, v)
	case 1:
		c.bitTest(group, v, byte(addr>>8))
		c.tick(16)
		return
	case 2:
		res = v &^ (1 << group)
	default:
		res = v | 1<<group
	}
	c.write(addr, res)
	if reg != 6 {
		c.setReg8Plain(reg, res)
	}
	c.tick(19)
}
