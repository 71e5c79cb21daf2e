package spectrum

import "testing"

func TestZ80LDIRCopiesAndRepeats(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{0xED, 0xB0}) // LDIR
	rig.cpu.HL = 0x4000
	rig.cpu.DE = 0x5000
	rig.cpu.BC = 3
	copy(rig.bus.mem[0x4000:], []byte{1, 2, 3})

	var ticks []int
	for uint16(rig.cpu.PC) != 0x0002 {
		ticks = append(ticks, rig.step())
	}

	if len(ticks) != 3 || ticks[0] != 21 || ticks[1] != 21 || ticks[2] != 16 {
		t.Fatalf("LDIR T-states = %v, want [21 21 16]", ticks)
	}
	for i := range 3 {
		requireZ80EqualU8(t, "copied byte", rig.bus.mem[0x5000+i], byte(i+1))
	}
	requireZ80EqualU16(t, "BC", uint16(rig.cpu.BC), 0)
	requireZ80EqualU16(t, "HL", uint16(rig.cpu.HL), 0x4003)
	requireZ80EqualU16(t, "DE", uint16(rig.cpu.DE), 0x5003)
	if rig.cpu.flag(z80FlagPV) {
		t.Fatalf("P/V should clear when BC reaches zero")
	}
}

func TestZ80LDIUndocumentedFlags(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{0xED, 0xA0}) // LDI
	rig.cpu.SetA(0x00)
	rig.cpu.SetF(0x00)
	rig.cpu.HL = 0x4000
	rig.cpu.DE = 0x5000
	rig.cpu.BC = 2
	rig.bus.mem[0x4000] = 0x0A

	requireZ80TStates(t, rig.step(), 16)

	requireZ80EqualU8(t, "F", rig.cpu.F(), z80FlagY|z80FlagX|z80FlagPV)
	requireZ80EqualU16(t, "BC", uint16(rig.cpu.BC), 1)
}

func TestZ80CPIRStopsOnMatch(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{0xED, 0xB1}) // CPIR
	rig.cpu.SetA(0x33)
	rig.cpu.HL = 0x4000
	rig.cpu.BC = 5
	rig.bus.mem[0x4000] = 0x11
	rig.bus.mem[0x4001] = 0x33

	requireZ80TStates(t, rig.step(), 21)
	requireZ80EqualU16(t, "PC", uint16(rig.cpu.PC), 0x0000)

	requireZ80TStates(t, rig.step(), 16)
	requireZ80EqualU16(t, "PC", uint16(rig.cpu.PC), 0x0002)
	requireZ80EqualU16(t, "HL", uint16(rig.cpu.HL), 0x4002)
	requireZ80EqualU16(t, "BC", uint16(rig.cpu.BC), 3)
	if !rig.cpu.flag(z80FlagZ) || !rig.cpu.flag(z80FlagPV) {
		t.Fatalf("F = %s, want Z and P/V", flagString(rig.cpu.F()))
	}
	requireZ80EqualU8(t, "A", rig.cpu.A(), 0x33)
}

func TestZ80INIFlags(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{0xED, 0xA2}) // INI
	rig.cpu.BC = 0x0210
	rig.cpu.HL = 0x5000
	rig.bus.io[0x0210] = 0x81

	requireZ80TStates(t, rig.step(), 16)

	requireZ80EqualU8(t, "(HL)", rig.bus.mem[0x5000], 0x81)
	requireZ80EqualU8(t, "B", rig.cpu.B(), 0x01)
	requireZ80EqualU16(t, "HL", uint16(rig.cpu.HL), 0x5001)
	requireZ80EqualU8(t, "F", rig.cpu.F(), z80FlagN|z80FlagPV)
}

func TestZ80OTIRWritesEachByte(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{0xED, 0xB3}) // OTIR
	rig.cpu.BC = 0x02FE
	rig.cpu.HL = 0x6000
	rig.bus.mem[0x6000] = 0xAA
	rig.bus.mem[0x6001] = 0xBB

	requireZ80TStates(t, rig.step(), 21)
	requireZ80EqualU8(t, "port 0x01FE", rig.bus.io[0x01FE], 0xAA)
	requireZ80TStates(t, rig.step(), 16)
	requireZ80EqualU8(t, "port 0x00FE", rig.bus.io[0x00FE], 0xBB)
	requireZ80EqualU8(t, "B", rig.cpu.B(), 0x00)
	if !rig.cpu.flag(z80FlagZ) {
		t.Fatalf("Z should be set when B reaches zero")
	}
}

func TestZ80RLDRotatesNibbles(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{0xED, 0x6F}) // RLD
	rig.cpu.SetA(0x7A)
	rig.cpu.HL = 0x5000
	rig.bus.mem[0x5000] = 0x31

	requireZ80TStates(t, rig.step(), 18)

	requireZ80EqualU8(t, "A", rig.cpu.A(), 0x73)
	requireZ80EqualU8(t, "(HL)", rig.bus.mem[0x5000], 0x1A)
}

func TestZ80UndefinedEDIsNop(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{0xED, 0x00})
	before := rig.cpu.Registers

	requireZ80TStates(t, rig.step(), 8)

	requireZ80EqualU16(t, "PC", uint16(rig.cpu.PC), 0x0002)
	requireZ80EqualU16(t, "AF", uint16(rig.cpu.AF), uint16(before.AF))
	requireZ80EqualU16(t, "HL", uint16(rig.cpu.HL), uint16(before.HL))
}
