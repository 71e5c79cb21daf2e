package spectrum

import "testing"

func TestZ80ALUFlags(t *testing.T) {
	tests := []struct {
		name    string
		program []byte
		a, b, f byte
		wantA   byte
		wantF   byte
	}{
		{"ADD A,B half carry", []byte{0x80}, 0x0F, 0x01, 0x00, 0x10, 0x10},
		{"ADD A,B overflow", []byte{0x80}, 0x7F, 0x01, 0x00, 0x80, 0x94},
		{"ADD A,n wraps to zero", []byte{0xC6, 0x01}, 0xFF, 0x00, 0x00, 0x00, 0x51},
		{"ADC A,B with carry", []byte{0x88}, 0xFF, 0x00, z80FlagC, 0x00, 0x51},
		{"SUB B", []byte{0x90}, 0x10, 0x01, 0x00, 0x0F, 0x1A},
		{"SBC A,B with carry", []byte{0x98}, 0x00, 0x00, z80FlagC, 0xFF, 0xBB},
		{"AND B", []byte{0xA0}, 0xF0, 0x0F, 0x00, 0x00, 0x54},
		{"XOR A", []byte{0xAF}, 0x55, 0x00, 0xFF, 0x00, 0x44},
		{"OR B parity", []byte{0xB0}, 0x80, 0x01, 0x00, 0x81, 0x84},
		{"CP B keeps A, bits 3/5 from operand", []byte{0xB8}, 0x10, 0x02, 0x00, 0x10, 0x12},
		{"INC A keeps carry", []byte{0x3C}, 0x7F, 0x00, z80FlagC, 0x80, 0x95},
		{"NEG", []byte{0xED, 0x44}, 0x01, 0x00, 0x00, 0xFF, 0xBB},
		{"DAA after ADD", []byte{0x80, 0x27}, 0x15, 0x27, 0x00, 0x42, 0x14},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rig := newCPUZ80TestRig()
			rig.resetAndLoad(0x0000, tt.program)
			rig.cpu.SetA(tt.a)
			rig.cpu.SetB(tt.b)
			rig.cpu.SetF(tt.f)

			for uint16(rig.cpu.PC) < uint16(len(tt.program)) {
				rig.step()
			}

			requireZ80EqualU8(t, "A", rig.cpu.A(), tt.wantA)
			requireZ80EqualU8(t, "F", rig.cpu.F(), tt.wantF)
		})
	}
}

func TestZ80DecToZero(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{0x05}) // DEC B
	rig.cpu.SetB(0x01)
	rig.cpu.SetF(0x00)

	rig.step()

	requireZ80EqualU8(t, "B", rig.cpu.B(), 0x00)
	requireZ80EqualU8(t, "F", rig.cpu.F(), z80FlagZ|z80FlagN)
}

func TestZ80Add16KeepsSZP(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{0x09}) // ADD HL,BC
	rig.cpu.HL = 0x8FFF
	rig.cpu.BC = 0x7001
	rig.cpu.SetF(z80FlagS | z80FlagZ | z80FlagPV)

	requireZ80TStates(t, rig.step(), 11)

	requireZ80EqualU16(t, "HL", uint16(rig.cpu.HL), 0x0000)
	if !rig.cpu.flag(z80FlagC) || !rig.cpu.flag(z80FlagH) {
		t.Fatalf("F = %s, want H and C", flagString(rig.cpu.F()))
	}
	if !rig.cpu.flag(z80FlagS) || !rig.cpu.flag(z80FlagZ) || !rig.cpu.flag(z80FlagPV) {
		t.Fatalf("F = %s, S Z P/V must survive", flagString(rig.cpu.F()))
	}
	requireZ80EqualU16(t, "MEMPTR", uint16(rig.cpu.MEMPTR), 0x9000)
}

func TestZ80BitFlagsFromRegister(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{0xCB, 0x78}) // BIT 7,B
	rig.cpu.SetB(0x28)
	rig.cpu.SetF(z80FlagC)

	requireZ80TStates(t, rig.step(), 8)

	requireZ80EqualU8(t, "F", rig.cpu.F(), z80FlagZ|z80FlagPV|z80FlagH|z80FlagC|0x28)
}

func TestZ80CBShiftOnMemory(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{0xCB, 0x06}) // RLC (HL)
	rig.cpu.HL = 0x4000
	rig.bus.mem[0x4000] = 0x81

	requireZ80TStates(t, rig.step(), 15)

	requireZ80EqualU8(t, "(HL)", rig.bus.mem[0x4000], 0x03)
	if !rig.cpu.flag(z80FlagC) {
		t.Fatalf("carry should hold the old bit 7")
	}
}
