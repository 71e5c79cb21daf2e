package spectrum

import "testing"

func TestZ80JumpAbsolute(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{0xC3, 0x34, 0x12}) // JP 0x1234

	requireZ80TStates(t, rig.step(), 10)
	requireZ80EqualU16(t, "PC", uint16(rig.cpu.PC), 0x1234)
	requireZ80EqualU16(t, "MEMPTR", uint16(rig.cpu.MEMPTR), 0x1234)
}

func TestZ80JumpRelativeBackwards(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0100, []byte{0x18, 0xFE}) // JR -2

	requireZ80TStates(t, rig.step(), 12)
	requireZ80EqualU16(t, "PC", uint16(rig.cpu.PC), 0x0100)
}

func TestZ80JumpRelativeConditionNotTaken(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{0x20, 0x05}) // JR NZ,+5
	rig.cpu.SetF(z80FlagZ)

	requireZ80TStates(t, rig.step(), 7)
	requireZ80EqualU16(t, "PC", uint16(rig.cpu.PC), 0x0002)
}

func TestZ80DJNZLoop(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{
		0x06, 0x03, // LD B,3
		0x10, 0xFE, // DJNZ -2
	})

	total := 0
	for uint16(rig.cpu.PC) != 0x0004 {
		total += rig.step()
	}

	requireZ80EqualU8(t, "B", rig.cpu.B(), 0x00)
	requireZ80TStates(t, total, 7+13+13+8)
}

func TestZ80CallAndReturn(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{0xCD, 0x00, 0x10}) // CALL 0x1000
	rig.bus.mem[0x1000] = 0xC9                          // RET
	rig.cpu.SP = 0xFF00

	requireZ80TStates(t, rig.step(), 17)
	requireZ80EqualU16(t, "PC", uint16(rig.cpu.PC), 0x1000)
	requireZ80EqualU16(t, "SP", uint16(rig.cpu.SP), 0xFEFE)
	requireZ80EqualU8(t, "(SP)", rig.bus.mem[0xFEFE], 0x03)
	requireZ80EqualU8(t, "(SP+1)", rig.bus.mem[0xFEFF], 0x00)

	requireZ80TStates(t, rig.step(), 10)
	requireZ80EqualU16(t, "PC", uint16(rig.cpu.PC), 0x0003)
	requireZ80EqualU16(t, "SP", uint16(rig.cpu.SP), 0xFF00)
}

func TestZ80CallConditionNotTaken(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{0xC4, 0x00, 0x10}) // CALL NZ,0x1000
	rig.cpu.SetF(z80FlagZ)
	rig.cpu.SP = 0xFF00

	requireZ80TStates(t, rig.step(), 10)
	requireZ80EqualU16(t, "PC", uint16(rig.cpu.PC), 0x0003)
	requireZ80EqualU16(t, "SP", uint16(rig.cpu.SP), 0xFF00)
}

func TestZ80Restart(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0200, []byte{0xFF}) // RST 38
	rig.cpu.SP = 0xFF00

	requireZ80TStates(t, rig.step(), 11)
	requireZ80EqualU16(t, "PC", uint16(rig.cpu.PC), 0x0038)
	requireZ80EqualU8(t, "(SP)", rig.bus.mem[0xFEFE], 0x01)
	requireZ80EqualU8(t, "(SP+1)", rig.bus.mem[0xFEFF], 0x02)
}

func TestZ80CallHelperAndRetN(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x8000, nil)
	rig.cpu.SP = 0xC000
	rig.cpu.IFF1 = false
	rig.cpu.IFF2 = true

	rig.cpu.Call(uint16(rig.cpu.PC))
	requireZ80EqualU16(t, "SP", uint16(rig.cpu.SP), 0xBFFE)
	requireZ80EqualU8(t, "(SP)", rig.bus.mem[0xBFFE], 0x00)
	requireZ80EqualU8(t, "(SP+1)", rig.bus.mem[0xBFFF], 0x80)

	rig.cpu.PC = 0
	rig.cpu.RetN()
	requireZ80EqualU16(t, "PC", uint16(rig.cpu.PC), 0x8000)
	requireZ80EqualU16(t, "SP", uint16(rig.cpu.SP), 0xC000)
	if !rig.cpu.IFF1 {
		t.Fatalf("RETN should copy IFF2 into IFF1")
	}
}

func TestZ80ExchangeInstructions(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{
		0x08, // EX AF,AF'
		0xD9, // EXX
		0xEB, // EX DE,HL
	})
	rig.cpu.AF = 0x1122
	rig.cpu.AF2 = 0x3344
	rig.cpu.BC = 0x0102
	rig.cpu.DE = 0x0304
	rig.cpu.HL = 0x0506
	rig.cpu.BC2 = 0x1112
	rig.cpu.DE2 = 0x1314
	rig.cpu.HL2 = 0x1516

	rig.step()
	rig.step()
	rig.step()

	requireZ80EqualU16(t, "AF", uint16(rig.cpu.AF), 0x3344)
	requireZ80EqualU16(t, "AF'", uint16(rig.cpu.AF2), 0x1122)
	requireZ80EqualU16(t, "BC", uint16(rig.cpu.BC), 0x1112)
	requireZ80EqualU16(t, "DE", uint16(rig.cpu.DE), 0x1516)
	requireZ80EqualU16(t, "HL", uint16(rig.cpu.HL), 0x1314)
	requireZ80EqualU16(t, "BC'", uint16(rig.cpu.BC2), 0x0102)
}

func TestZ80PortInstructions(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{
		0xD3, 0xFE, // OUT (0xFE),A
		0xDB, 0x1F, // IN A,(0x1F)
		0xED, 0x78, // IN A,(C)
	})
	rig.cpu.SetA(0x07)
	rig.cpu.SetF(0x00)
	rig.cpu.BC = 0x10FE
	rig.bus.io[0x071F] = 0x00
	rig.bus.io[0x10FE] = 0x80

	requireZ80TStates(t, rig.step(), 11)
	requireZ80EqualU8(t, "port 0x07FE", rig.bus.io[0x07FE], 0x07)

	requireZ80TStates(t, rig.step(), 11)
	requireZ80EqualU8(t, "A", rig.cpu.A(), 0x00)
	requireZ80EqualU8(t, "F", rig.cpu.F(), 0x00)

	requireZ80TStates(t, rig.step(), 12)
	requireZ80EqualU8(t, "A", rig.cpu.A(), 0x80)
	requireZ80EqualU8(t, "F", rig.cpu.F(), z80FlagS)
}
