// cpu_z80_cb.go - CB prefixed rotate, shift and bit instructions

package spectrum

func (c *CPU_Z80) initCBOps() {
	for op := range 256 {
		group := byte(op>>3) & 7
		reg := byte(op) & 7
		switch op >> 6 {
		case 0:
			c.cbOps[op] = func(cpu *CPU_Z80) { cpu.opCBShift(group, reg) }
		case 1:
			c.cbOps[op] = func(cpu *CPU_Z80) { cpu.opCBBit(group, reg) }
		case 2:
			c.cbOps[op] = func(cpu *CPU_Z80) { cpu.opCBRes(group, reg) }
		default:
			c.cbOps[op] = func(cpu *CPU_Z80) { cpu.opCBSet(group, reg) }
		}
	}
}

func (c *CPU_Z80) opCBShift(group, reg byte) {
	c.setReg8(reg, c.shiftOp(group, c.reg8(reg)))
	if reg == 6 {
		c.tick(15)
	} else {
		c.tick(8)
	}
}

func (c *CPU_Z80) opCBBit(bit, reg byte) {
	v := c.reg8(reg)
	if reg == 6 {
		c.bitTest(bit, v, c.MEMPTR.High())
		c.tick(12)
		return
	}
	c.bitTest(bit, v, v)
	c.tick(8)
}

func (c *CPU_Z80) opCBRes(bit, reg byte) {
	c.setReg8(reg, c.reg8(reg)&^(1<<bit))
	if reg == 6 {
		c.tick(15)
	} else {
		c.tick(8)
	}
}

func (c *CPU_Z80) opCBSet(bit, reg byte) {
	c.setReg8(reg, c.reg8(reg)|1<<bit)
	if reg == 6 {
		c.tick(15)
	} else {
		c.tick(8)
	}
}
