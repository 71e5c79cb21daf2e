package spectrum

import "testing"

func TestZ80LoadIndexed(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{0xDD, 0x7E, 0x05}) // LD A,(IX+5)
	rig.cpu.IX = 0x3000
	rig.bus.mem[0x3005] = 0x42

	requireZ80TStates(t, rig.step(), 19)
	requireZ80EqualU8(t, "A", rig.cpu.A(), 0x42)
	requireZ80EqualU16(t, "PC", uint16(rig.cpu.PC), 0x0003)
	requireZ80EqualU16(t, "MEMPTR", uint16(rig.cpu.MEMPTR), 0x3005)
}

func TestZ80StoreImmediateNegativeDisplacement(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{0xFD, 0x36, 0xFE, 0x99}) // LD (IY-2),0x99
	rig.cpu.IY = 0x3002

	requireZ80TStates(t, rig.step(), 19)
	requireZ80EqualU8(t, "(0x3000)", rig.bus.mem[0x3000], 0x99)
	requireZ80EqualU16(t, "PC", uint16(rig.cpu.PC), 0x0004)
}

func TestZ80IndexedLoadUsesPlainRegister(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{0xDD, 0x66, 0x00}) // LD H,(IX+0)
	rig.cpu.IX = 0x3000
	rig.cpu.HL = 0x0000
	rig.bus.mem[0x3000] = 0x12

	rig.step()

	requireZ80EqualU8(t, "H", rig.cpu.H(), 0x12)
	requireZ80EqualU16(t, "IX", uint16(rig.cpu.IX), 0x3000)
}

func TestZ80IndexHalfRegisters(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{
		0xDD, 0x26, 0x55, // LD IXH,0x55
		0xFD, 0x2E, 0x66, // LD IYL,0x66
		0xDD, 0x7C, // LD A,IXH
	})
	rig.cpu.IX = 0x0011
	rig.cpu.IY = 0x2200
	rig.cpu.HL = 0xABCD

	requireZ80TStates(t, rig.step(), 11)
	rig.step()
	requireZ80TStates(t, rig.step(), 8)

	requireZ80EqualU16(t, "IX", uint16(rig.cpu.IX), 0x5511)
	requireZ80EqualU16(t, "IY", uint16(rig.cpu.IY), 0x2266)
	requireZ80EqualU8(t, "A", rig.cpu.A(), 0x55)
	requireZ80EqualU16(t, "HL", uint16(rig.cpu.HL), 0xABCD)
}

func TestZ80IndexedBitOpsAdvanceRTwice(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{0xDD, 0xCB, 0x01, 0x06}) // RLC (IX+1)
	rig.cpu.IX = 0x1000
	rig.bus.mem[0x1001] = 0x80

	requireZ80TStates(t, rig.step(), 23)

	requireZ80EqualU8(t, "R", rig.cpu.R&0x7F, 2)
	requireZ80EqualU8(t, "(IX+1)", rig.bus.mem[0x1001], 0x01)
	requireZ80EqualU16(t, "PC", uint16(rig.cpu.PC), 0x0004)
	if !rig.cpu.flag(z80FlagC) {
		t.Fatalf("carry should hold the old bit 7")
	}
}

func TestZ80IndexedBitTestUsesAddressHighByte(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{0xFD, 0xCB, 0x02, 0x46}) // BIT 0,(IY+2)
	rig.cpu.IY = 0x28FE
	rig.cpu.SetF(0x00)
	rig.bus.mem[0x2900] = 0x00

	requireZ80TStates(t, rig.step(), 20)

	requireZ80EqualU8(t, "F", rig.cpu.F(), z80FlagZ|z80FlagPV|z80FlagH|0x28)
}

func TestZ80IndexedRotateCopiesToRegister(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{0xDD, 0xCB, 0x00, 0xC0}) // SET 0,(IX+0),B
	rig.cpu.IX = 0x4000
	rig.cpu.SetB(0x00)
	rig.bus.mem[0x4000] = 0x10

	rig.step()

	requireZ80EqualU8(t, "(IX)", rig.bus.mem[0x4000], 0x11)
	requireZ80EqualU8(t, "B", rig.cpu.B(), 0x11)
}

func TestZ80RepeatedPrefixesLastWins(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{0xFD, 0xDD, 0x21, 0x34, 0x12}) // LD IX,0x1234
	rig.cpu.IY = 0x0000

	requireZ80TStates(t, rig.step(), 18)

	requireZ80EqualU16(t, "IX", uint16(rig.cpu.IX), 0x1234)
	requireZ80EqualU16(t, "IY", uint16(rig.cpu.IY), 0x0000)
	requireZ80EqualU16(t, "PC", uint16(rig.cpu.PC), 0x0005)
}

func TestZ80PrefixBeforeEDIsIgnored(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{0xDD, 0xED, 0x44}) // NEG
	rig.cpu.SetA(0x01)

	requireZ80TStates(t, rig.step(), 12)

	requireZ80EqualU8(t, "A", rig.cpu.A(), 0xFF)
}

func TestZ80ExchangeStackWithIndex(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{0xDD, 0xE3}) // EX (SP),IX
	rig.cpu.SP = 0x8000
	rig.cpu.IX = 0x1234
	rig.bus.mem[0x8000] = 0x78
	rig.bus.mem[0x8001] = 0x56

	requireZ80TStates(t, rig.step(), 23)

	requireZ80EqualU16(t, "IX", uint16(rig.cpu.IX), 0x5678)
	requireZ80EqualU8(t, "(SP)", rig.bus.mem[0x8000], 0x34)
	requireZ80EqualU8(t, "(SP+1)", rig.bus.mem[0x8001], 0x12)
}
