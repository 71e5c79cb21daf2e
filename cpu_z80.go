// cpu_z80.go - Z80 instruction engine

package spectrum

import "fmt"

// Z80Bus is everything the engine sees of the machine around it.
type Z80Bus interface {
	Read(addr uint16) byte
	Write(addr uint16, value byte)
	In(port uint16) byte
	Out(port uint16, value byte)
}

// CPU_Z80 executes one instruction per FetchExecuteCycle call. It is not
// safe for concurrent use; callers serialize access.
type CPU_Z80 struct {
	Registers

	IFF1   bool
	IFF2   bool
	IM     byte
	Halted bool
	Cycles uint64

	irqLine    bool
	irqPulse   bool
	irqVector  byte
	nmiPending bool
	afterEI    bool

	// index is the pair standing in for HL: &HL normally, &IX or &IY while
	// a DD or FD prefixed instruction executes.
	index *Register16

	// tstates accumulates the cost of the current FetchExecuteCycle.
	tstates int

	bus Z80Bus

	baseOps  [256]func(*CPU_Z80)
	cbOps    [256]func(*CPU_Z80)
	edOps    [256]func(*CPU_Z80)
	indexOps [256]func(*CPU_Z80)
}

func NewCPU_Z80(bus Z80Bus) *CPU_Z80 {
	cpu := &CPU_Z80{bus: bus}
	cpu.index = &cpu.HL
	cpu.initBaseOps()
	cpu.initCBOps()
	cpu.initEDOps()
	cpu.initIndexOps()
	cpu.verifyOpTables()
	cpu.Reset()
	return cpu
}

// verifyOpTables panics when a dispatch slot was left empty. Every byte
// value decodes to something on a real Z80.
func (c *CPU_Z80) verifyOpTables() {
	tables := []struct {
		name string
		ops  *[256]func(*CPU_Z80)
	}{{"base", &c.baseOps}, {"CB", &c.cbOps}, {"ED", &c.edOps}, {"index", &c.indexOps}}
	for _, t := range tables {
		for op, fn := range t.ops {
			if fn == nil {
				panic(fmt.Sprintf("z80: %s opcode 0x%02X has no handler", t.name, op))
			}
		}
	}
}

func (c *CPU_Z80) Reset() {
	c.Registers.Reset()
	c.IFF1 = false
	c.IFF2 = false
	c.IM = 0
	c.Halted = false
	c.Cycles = 0
	c.irqLine = false
	c.irqPulse = false
	c.irqVector = 0xFF
	c.nmiPending = false
	c.afterEI = false
	c.index = &c.HL
}

// Bus returns the bus the engine was built with.
func (c *CPU_Z80) Bus() Z80Bus { return c.bus }

// FetchExecuteCycle runs exactly one instruction, then services a pending
// interrupt if one is allowed at this boundary. It returns the T-states
// consumed by both.
func (c *CPU_Z80) FetchExecuteCycle() int {
	c.tstates = 0
	c.afterEI = false
	if c.Halted {
		c.incrementR()
		c.tick(4)
	} else {
		op := c.fetchOpcode()
		c.baseOps[op](c)
	}
	c.acceptInterrupts()
	c.Cycles += uint64(c.tstates)
	return c.tstates
}

// SetIRQLine drives the maskable interrupt line. While asserted the
// interrupt is taken at every boundary where IFF1 allows it.
func (c *CPU_Z80) SetIRQLine(assert bool) {
	c.irqLine = assert
}

// SetIRQVector sets the byte the interrupting device places on the data
// bus during acknowledge.
func (c *CPU_Z80) SetIRQVector(vector byte) {
	c.irqVector = vector
}

// Interrupt raises a one-shot maskable interrupt with the given data bus
// byte. It is dropped at the first boundary where IFF1 is clear; the EI
// deferral keeps it alive for one more instruction.
func (c *CPU_Z80) Interrupt(data byte) {
	c.irqVector = data
	c.irqPulse = true
}

// InterruptPending reports whether a one-shot interrupt is waiting.
func (c *CPU_Z80) InterruptPending() bool { return c.irqPulse }

// ClearInterrupts drops pending NMI and one-shot requests and releases the
// IRQ line.
func (c *CPU_Z80) ClearInterrupts() {
	c.irqLine = false
	c.irqPulse = false
	c.nmiPending = false
	c.afterEI = false
}

// NMI requests a non-maskable interrupt at the next boundary.
func (c *CPU_Z80) NMI() {
	c.nmiPending = true
}

func (c *CPU_Z80) acceptInterrupts() {
	if c.nmiPending {
		c.nmiPending = false
		c.serviceNMI()
		return
	}
	if !c.irqLine && !c.irqPulse {
		return
	}
	if c.afterEI {
		return
	}
	if c.IFF1 {
		c.irqPulse = false
		c.serviceIRQ()
		return
	}
	c.irqPulse = false
}

func (c *CPU_Z80) leaveHalt() {
	if c.Halted {
		c.Halted = false
	}
}

func (c *CPU_Z80) serviceNMI() {
	c.leaveHalt()
	c.incrementR()
	c.IFF1 = false
	c.pushWord(uint16(c.PC))
	c.PC = 0x0066
	c.MEMPTR = c.PC
	c.tick(11)
}

func (c *CPU_Z80) serviceIRQ() {
	c.leaveHalt()
	c.incrementR()
	c.IFF1 = false
	c.IFF2 = false
	switch c.IM {
	case 2:
		vector := uint16(c.I)<<8 | uint16(c.irqVector)
		c.pushWord(uint16(c.PC))
		c.PC = Register16(c.readWord(vector))
		c.tick(19)
	case 1:
		c.pushWord(uint16(c.PC))
		c.PC = 0x0038
		c.tick(13)
	default:
		c.tick(2)
		op := c.irqVector
		if op&0xC7 == 0xC7 {
			c.pushWord(uint16(c.PC))
			c.PC = Register16(op & 0x38)
			c.tick(11)
		} else {
			// Only single byte instructions are supported on the data bus.
			c.baseOps[op](c)
		}
	}
	c.MEMPTR = c.PC
}

// Call performs the stack half of CALL: PC is pushed and replaced by
// target. Snapshot capture uses Call(PC) to leave PC on the stack.
func (c *CPU_Z80) Call(target uint16) {
	c.pushWord(uint16(c.PC))
	c.PC = Register16(target)
	c.MEMPTR = c.PC
}

// RetN executes RETN: PC is popped and IFF1 restored from IFF2.
func (c *CPU_Z80) RetN() {
	c.PC = Register16(c.popWord())
	c.MEMPTR = c.PC
	c.IFF1 = c.IFF2
}

func (c *CPU_Z80) incrementR() {
	c.R = (c.R & 0x80) | ((c.R + 1) & 0x7F)
}

func (c *CPU_Z80) tick(cycles int) {
	c.tstates += cycles
}

func (c *CPU_Z80) read(addr uint16) byte {
	return c.bus.Read(addr)
}

func (c *CPU_Z80) write(addr uint16, value byte) {
	c.bus.Write(addr, value)
}

func (c *CPU_Z80) readWord(addr uint16) uint16 {
	return uint16(c.read(addr)) | uint16(c.read(addr+1))<<8
}

func (c *CPU_Z80) writeWord(addr uint16, value uint16) {
	c.write(addr, byte(value))
	c.write(addr+1, byte(value>>8))
}

func (c *CPU_Z80) fetchOpcode() byte {
	op := c.read(uint16(c.PC))
	c.PC++
	c.incrementR()
	return op
}

func (c *CPU_Z80) fetchByte() byte {
	v := c.read(uint16(c.PC))
	c.PC++
	return v
}

func (c *CPU_Z80) fetchWord() uint16 {
	lo := c.fetchByte()
	hi := c.fetchByte()
	return uint16(hi)<<8 | uint16(lo)
}

func (c *CPU_Z80) pushWord(value uint16) {
	c.SP--
	c.write(uint16(c.SP), byte(value>>8))
	c.SP--
	c.write(uint16(c.SP), byte(value))
}

func (c *CPU_Z80) popWord() uint16 {
	lo := c.read(uint16(c.SP))
	c.SP++
	hi := c.read(uint16(c.SP))
	c.SP++
	return uint16(hi)<<8 | uint16(lo)
}

// reg8 reads register code 0-7 in the B,C,D,E,H,L,(HL),A encoding. Codes 4
// and 5 follow the active index pair so DD/FD turn them into IXH/IXL.
func (c *CPU_Z80) reg8(code byte) byte {
	switch code {
	case 0:
		return c.B()
	case 1:
		return c.C()
	case 2:
		return c.D()
	case 3:
		return c.E()
	case 4:
		return c.index.High()
	case 5:
		return c.index.Low()
	case 6:
		return c.read(uint16(c.HL))
	default:
		return c.A()
	}
}

func (c *CPU_Z80) setReg8(code byte, value byte) {
	switch code {
	case 0:
		c.SetB(value)
	case 1:
		c.SetC(value)
	case 2:
		c.SetD(value)
	case 3:
		c.SetE(value)
	case 4:
		c.index.SetHigh(value)
	case 5:
		c.index.SetLow(value)
	case 6:
		c.write(uint16(c.HL), value)
	default:
		c.SetA(value)
	}
}

// reg8Plain ignores the index substitution. LD H,(IX+d) loads H, not IXH.
func (c *CPU_Z80) reg8Plain(code byte) byte {
	saved := c.index
	c.index = &c.HL
	v := c.reg8(code)
	c.index = saved
	return v
}

func (c *CPU_Z80) setReg8Plain(code byte, value byte) {
	saved := c.index
	c.index = &c.HL
	c.setReg8(code, value)
	c.index = saved
}

// rp resolves the BC,DE,HL,SP pair encoding; HL follows the index pair.
func (c *CPU_Z80) rp(p byte) *Register16 {
	switch p {
	case 0:
		return &c.BC
	case 1:
		return &c.DE
	case 2:
		return c.index
	default:
		return &c.SP
	}
}

// rp2 is the PUSH/POP encoding with AF in place of SP.
func (c *CPU_Z80) rp2(p byte) *Register16 {
	if p == 3 {
		return &c.AF
	}
	return c.rp(p)
}

// condition evaluates NZ,Z,NC,C,PO,PE,P,M.
func (c *CPU_Z80) condition(cc byte) bool {
	f := c.F()
	switch cc {
	case 0:
		return f&z80FlagZ == 0
	case 1:
		return f&z80FlagZ != 0
	case 2:
		return f&z80FlagC == 0
	case 3:
		return f&z80FlagC != 0
	case 4:
		return f&z80FlagPV == 0
	case 5:
		return f&z80FlagPV != 0
	case 6:
		return f&z80FlagS == 0
	default:
		return f&z80FlagS != 0
	}
}

func (c *CPU_Z80) initBaseOps() {
	c.baseOps[0x00] = (*CPU_Z80).opNOP
	c.baseOps[0x08] = (*CPU_Z80).opEXAF
	c.baseOps[0x10] = (*CPU_Z80).opDJNZ
	c.baseOps[0x18] = (*CPU_Z80).opJR
	for cc := range byte(4) {
		c.baseOps[0x20+cc<<3] = func(cpu *CPU_Z80) { cpu.opJRCond(cc) }
	}

	for p := range byte(4) {
		c.baseOps[0x01|p<<4] = func(cpu *CPU_Z80) { cpu.opLDRPImm(p) }
		c.baseOps[0x09|p<<4] = func(cpu *CPU_Z80) { cpu.opADDHLRP(p) }
		c.baseOps[0x03|p<<4] = func(cpu *CPU_Z80) { cpu.opINCRP(p) }
		c.baseOps[0x0B|p<<4] = func(cpu *CPU_Z80) { cpu.opDECRP(p) }
		c.baseOps[0xC1|p<<4] = func(cpu *CPU_Z80) { cpu.opPOP(p) }
		c.baseOps[0xC5|p<<4] = func(cpu *CPU_Z80) { cpu.opPUSH(p) }
	}

	c.baseOps[0x02] = (*CPU_Z80).opLDBCA
	c.baseOps[0x12] = (*CPU_Z80).opLDDEA
	c.baseOps[0x22] = (*CPU_Z80).opLDNNHL
	c.baseOps[0x32] = (*CPU_Z80).opLDNNA
	c.baseOps[0x0A] = (*CPU_Z80).opLDABC
	c.baseOps[0x1A] = (*CPU_Z80).opLDADE
	c.baseOps[0x2A] = (*CPU_Z80).opLDHLNN
	c.baseOps[0x3A] = (*CPU_Z80).opLDANN

	for r := range byte(8) {
		c.baseOps[0x04|r<<3] = func(cpu *CPU_Z80) { cpu.opINCReg(r) }
		c.baseOps[0x05|r<<3] = func(cpu *CPU_Z80) { cpu.opDECReg(r) }
		c.baseOps[0x06|r<<3] = func(cpu *CPU_Z80) { cpu.opLDRegImm(r) }
	}

	c.baseOps[0x07] = (*CPU_Z80).opRLCA
	c.baseOps[0x0F] = (*CPU_Z80).opRRCA
	c.baseOps[0x17] = (*CPU_Z80).opRLA
	c.baseOps[0x1F] = (*CPU_Z80).opRRA
	c.baseOps[0x27] = (*CPU_Z80).opDAA
	c.baseOps[0x2F] = (*CPU_Z80).opCPL
	c.baseOps[0x37] = (*CPU_Z80).opSCF
	c.baseOps[0x3F] = (*CPU_Z80).opCCF

	for op := 0x40; op <= 0x7F; op++ {
		dest := byte(op>>3) & 7
		src := byte(op) & 7
		c.baseOps[op] = func(cpu *CPU_Z80) { cpu.opLDRegReg(dest, src) }
	}
	c.baseOps[0x76] = (*CPU_Z80).opHALT

	for op := 0x80; op <= 0xBF; op++ {
		alu := aluOp(op>>3) & 7
		src := byte(op) & 7
		c.baseOps[op] = func(cpu *CPU_Z80) { cpu.opALUReg(alu, src) }
	}

	for cc := range byte(8) {
		c.baseOps[0xC0|cc<<3] = func(cpu *CPU_Z80) { cpu.opRETCond(cc) }
		c.baseOps[0xC2|cc<<3] = func(cpu *CPU_Z80) { cpu.opJPCond(cc) }
		c.baseOps[0xC4|cc<<3] = func(cpu *CPU_Z80) { cpu.opCALLCond(cc) }
		alu := aluOp(cc)
		c.baseOps[0xC6|cc<<3] = func(cpu *CPU_Z80) { cpu.opALUImm(alu) }
		vector := uint16(cc) << 3
		c.baseOps[0xC7|cc<<3] = func(cpu *CPU_Z80) { cpu.opRST(vector) }
	}

	c.baseOps[0xC9] = (*CPU_Z80).opRET
	c.baseOps[0xD9] = (*CPU_Z80).opEXX
	c.baseOps[0xE9] = (*CPU_Z80).opJPHL
	c.baseOps[0xF9] = (*CPU_Z80).opLDSPHL
	c.baseOps[0xC3] = (*CPU_Z80).opJPNN
	c.baseOps[0xCB] = (*CPU_Z80).opCBPrefix
	c.baseOps[0xD3] = (*CPU_Z80).opOUTNA
	c.baseOps[0xDB] = (*CPU_Z80).opINAN
	c.baseOps[0xE3] = (*CPU_Z80).opEXSPHL
	c.baseOps[0xEB] = (*CPU_Z80).opEXDEHL
	c.baseOps[0xF3] = (*CPU_Z80).opDI
	c.baseOps[0xFB] = (*CPU_Z80).opEI
	c.baseOps[0xCD] = (*CPU_Z80).opCALLNN
	c.baseOps[0xDD] = func(cpu *CPU_Z80) { cpu.opIndexPrefix(&cpu.IX) }
	c.baseOps[0xED] = (*CPU_Z80).opEDPrefix
	c.baseOps[0xFD] = func(cpu *CPU_Z80) { cpu.opIndexPrefix(&cpu.IY) }
}

func (c *CPU_Z80) opNOP() {
	c.tick(4)
}

func (c *CPU_Z80) opHALT() {
	c.Halted = true
	c.tick(4)
}

func (c *CPU_Z80) opEXAF() {
	c.AF, c.AF2 = c.AF2, c.AF
	c.tick(4)
}

func (c *CPU_Z80) opEXX() {
	c.BC, c.BC2 = c.BC2, c.BC
	c.DE, c.DE2 = c.DE2, c.DE
	c.HL, c.HL2 = c.HL2, c.HL
	c.tick(4)
}

func (c *CPU_Z80) opEXDEHL() {
	c.DE, c.HL = c.HL, c.DE
	c.tick(4)
}

func (c *CPU_Z80) opEXSPHL() {
	sp := uint16(c.SP)
	v := c.readWord(sp)
	c.writeWord(sp, uint16(*c.index))
	*c.index = Register16(v)
	c.MEMPTR = Register16(v)
	c.tick(19)
}

func (c *CPU_Z80) opDI() {
	c.IFF1 = false
	c.IFF2 = false
	c.tick(4)
}

func (c *CPU_Z80) opEI() {
	c.IFF1 = true
	c.IFF2 = true
	c.afterEI = true
	c.tick(4)
}

func (c *CPU_Z80) opLDRegReg(dest, src byte) {
	c.setReg8(dest, c.reg8(src))
	if dest == 6 || src == 6 {
		c.tick(7)
	} else {
		c.tick(4)
	}
}

func (c *CPU_Z80) opLDRegImm(dest byte) {
	c.setReg8(dest, c.fetchByte())
	if dest == 6 {
		c.tick(10)
	} else {
		c.tick(7)
	}
}

func (c *CPU_Z80) opINCReg(r byte) {
	c.setReg8(r, c.inc8(c.reg8(r)))
	if r == 6 {
		c.tick(11)
	} else {
		c.tick(4)
	}
}

func (c *CPU_Z80) opDECReg(r byte) {
	c.setReg8(r, c.dec8(c.reg8(r)))
	if r == 6 {
		c.tick(11)
	} else {
		c.tick(4)
	}
}

func (c *CPU_Z80) opALUReg(op aluOp, src byte) {
	c.performALU(op, c.reg8(src))
	if src == 6 {
		c.tick(7)
	} else {
		c.tick(4)
	}
}

func (c *CPU_Z80) opALUImm(op aluOp) {
	c.performALU(op, c.fetchByte())
	c.tick(7)
}

func (c *CPU_Z80) opLDRPImm(p byte) {
	*c.rp(p) = Register16(c.fetchWord())
	c.tick(10)
}

func (c *CPU_Z80) opADDHLRP(p byte) {
	*c.index = Register16(c.add16(uint16(*c.index), uint16(*c.rp(p))))
	c.tick(11)
}

func (c *CPU_Z80) opINCRP(p byte) {
	*c.rp(p)++
	c.tick(6)
}

func (c *CPU_Z80) opDECRP(p byte) {
	*c.rp(p)--
	c.tick(6)
}

func (c *CPU_Z80) opPUSH(p byte) {
	c.pushWord(uint16(*c.rp2(p)))
	c.tick(11)
}

func (c *CPU_Z80) opPOP(p byte) {
	*c.rp2(p) = Register16(c.popWord())
	c.tick(10)
}

func (c *CPU_Z80) opLDBCA() {
	c.write(uint16(c.BC), c.A())
	c.MEMPTR = Register16(uint16(c.A())<<8 | uint16(c.BC+1)&0xFF)
	c.tick(7)
}

func (c *CPU_Z80) opLDDEA() {
	c.write(uint16(c.DE), c.A())
	c.MEMPTR = Register16(uint16(c.A())<<8 | uint16(c.DE+1)&0xFF)
	c.tick(7)
}

func (c *CPU_Z80) opLDABC() {
	c.SetA(c.read(uint16(c.BC)))
	c.MEMPTR = c.BC + 1
	c.tick(7)
}

func (c *CPU_Z80) opLDADE() {
	c.SetA(c.read(uint16(c.DE)))
	c.MEMPTR = c.DE + 1
	c.tick(7)
}

func (c *CPU_Z80) opLDNNHL() {
	addr := c.fetchWord()
	c.writeWord(addr, uint16(*c.index))
	c.MEMPTR = Register16(addr + 1)
	c.tick(16)
}

func (c *CPU_Z80) opLDHLNN() {
	addr := c.fetchWord()
	*c.index = Register16(c.readWord(addr))
	c.MEMPTR = Register16(addr + 1)
	c.tick(16)
}

func (c *CPU_Z80) opLDNNA() {
	addr := c.fetchWord()
	c.write(addr, c.A())
	c.MEMPTR = Register16(uint16(c.A())<<8 | (addr+1)&0xFF)
	c.tick(13)
}

func (c *CPU_Z80) opLDANN() {
	addr := c.fetchWord()
	c.SetA(c.read(addr))
	c.MEMPTR = Register16(addr + 1)
	c.tick(13)
}

func (c *CPU_Z80) opLDSPHL() {
	c.SP = *c.index
	c.tick(6)
}

func (c *CPU_Z80) opJPNN() {
	addr := c.fetchWord()
	c.PC = Register16(addr)
	c.MEMPTR = c.PC
	c.tick(10)
}

// opJPHL jumps to HL without touching MEMPTR.
func (c *CPU_Z80) opJPHL() {
	c.PC = *c.index
	c.tick(4)
}

func (c *CPU_Z80) opJPCond(cc byte) {
	addr := c.fetchWord()
	c.MEMPTR = Register16(addr)
	if c.condition(cc) {
		c.PC = Register16(addr)
	}
	c.tick(10)
}

func (c *CPU_Z80) opJR() {
	d := int8(c.fetchByte())
	c.PC += Register16(d)
	c.MEMPTR = c.PC
	c.tick(12)
}

func (c *CPU_Z80) opJRCond(cc byte) {
	d := int8(c.fetchByte())
	if c.condition(cc) {
		c.PC += Register16(d)
		c.MEMPTR = c.PC
		c.tick(12)
		return
	}
	c.tick(7)
}

func (c *CPU_Z80) opDJNZ() {
	d := int8(c.fetchByte())
	b := c.B() - 1
	c.SetB(b)
	if b != 0 {
		c.PC += Register16(d)
		c.MEMPTR = c.PC
		c.tick(13)
		return
	}
	c.tick(8)
}

func (c *CPU_Z80) opCALLNN() {
	addr := c.fetchWord()
	c.pushWord(uint16(c.PC))
	c.PC = Register16(addr)
	c.MEMPTR = c.PC
	c.tick(17)
}

func (c *CPU_Z80) opCALLCond(cc byte) {
	addr := c.fetchWord()
	c.MEMPTR = Register16(addr)
	if c.condition(cc) {
		c.pushWord(uint16(c.PC))
		c.PC = Register16(addr)
		c.tick(17)
		return
	}
	c.tick(10)
}

func (c *CPU_Z80) opRET() {
	c.PC = Register16(c.popWord())
	c.MEMPTR = c.PC
	c.tick(10)
}

func (c *CPU_Z80) opRETCond(cc byte) {
	if c.condition(cc) {
		c.PC = Register16(c.popWord())
		c.MEMPTR = c.PC
		c.tick(11)
		return
	}
	c.tick(5)
}

func (c *CPU_Z80) opRST(vector uint16) {
	c.pushWord(uint16(c.PC))
	c.PC = Register16(vector)
	c.MEMPTR = c.PC
	c.tick(11)
}

func (c *CPU_Z80) opOUTNA() {
	n := c.fetchByte()
	a := c.A()
	c.bus.Out(uint16(a)<<8|uint16(n), a)
	c.MEMPTR = Register16(uint16(a)<<8 | uint16(n+1))
	c.tick(11)
}

// opINAN leaves the flags alone, unlike IN r,(C).
func (c *CPU_Z80) opINAN() {
	n := c.fetchByte()
	port := uint16(c.A())<<8 | uint16(n)
	c.SetA(c.bus.In(port))
	c.MEMPTR = Register16(port + 1)
	c.tick(11)
}

func (c *CPU_Z80) opCBPrefix() {
	op := c.fetchOpcode()
	c.cbOps[op](c)
}

func (c *CPU_Z80) opEDPrefix() {
	op := c.fetchOpcode()
	c.edOps[op](c)
}
