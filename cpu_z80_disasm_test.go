package spectrum

import (
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

func TestDisassemble(t *testing.T) {
	tests := []struct {
		program []byte
		length  int
		text    string
	}{
		{[]byte{0x00}, 1, "NOP"},
		{[]byte{0x01, 0x34, 0x12}, 3, "LD BC, $1234"},
		{[]byte{0xC3, 0x34, 0x12}, 3, "JP $1234"},
		{[]byte{0x18, 0xFE}, 2, "JR $8000"},
		{[]byte{0x20, 0x02}, 2, "JR NZ, $8004"},
		{[]byte{0x80}, 1, "ADD A, B"},
		{[]byte{0x90}, 1, "SUB B"},
		{[]byte{0xFE, 0x10}, 2, "CP $10"},
		{[]byte{0x08}, 1, "EX AF, AF'"},
		{[]byte{0x12}, 1, "LD (DE), A"},
		{[]byte{0x1A}, 1, "LD A, (DE)"},
		{[]byte{0x22, 0x00, 0x50}, 3, "LD ($5000), HL"},
		{[]byte{0x2A, 0x00, 0x50}, 3, "LD HL, ($5000)"},
		{[]byte{0x32, 0x00, 0x50}, 3, "LD ($5000), A"},
		{[]byte{0xDD, 0x22, 0x00, 0x50}, 4, "LD ($5000), IX"},
		{[]byte{0xFD, 0x2A, 0x00, 0x50}, 4, "LD IY, ($5000)"},
		{[]byte{0xDB, 0xFE}, 2, "IN A, ($FE)"},
		{[]byte{0xFF}, 1, "RST $38"},
		{[]byte{0x76}, 1, "HALT"},
		{[]byte{0xDD, 0x7E, 0x05}, 3, "LD A, (IX+5)"},
		{[]byte{0xFD, 0x36, 0xFE, 0x42}, 4, "LD (IY-2), $42"},
		{[]byte{0xDD, 0x66, 0x00}, 3, "LD H, (IX+0)"},
		{[]byte{0xDD, 0x7C}, 2, "LD A, IXH"},
		{[]byte{0xFD, 0xE9}, 2, "JP (IY)"},
		{[]byte{0xDD, 0xCB, 0x01, 0x06}, 4, "RLC (IX+1)"},
		{[]byte{0xDD, 0xCB, 0x01, 0x7E}, 4, "BIT 7, (IX+1)"},
		{[]byte{0xDD, 0xCB, 0x01, 0xC0}, 4, "SET 0, (IX+1), B"},
		{[]byte{0xCB, 0x7C}, 2, "BIT 7, H"},
		{[]byte{0xED, 0xB0}, 2, "LDIR"},
		{[]byte{0xED, 0x56}, 2, "IM 1"},
		{[]byte{0xED, 0x4B, 0x00, 0x50}, 4, "LD BC, ($5000)"},
		{[]byte{0xED, 0x00}, 2, "NOP* ($ED $00)"},
		{[]byte{0xDD, 0xED, 0xB0}, 3, "LDIR"},
		{[]byte{0xDD, 0xFD, 0x21, 0x00, 0x00}, 5, "LD IY, $0000"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			var mem [0x10000]byte
			copy(mem[0x8000:], tt.program)
			read := func(addr uint16) byte { return mem[addr] }

			n, text := Disassemble(read, 0x8000)
			assert.Equal(t, tt.length, n)
			assert.Equal(t, tt.text, text)
		})
	}
}

func TestDisassembleBytes(t *testing.T) {
	var mem [0x10000]byte
	copy(mem[0x4000:], []byte{0x21, 0x00, 0x58})
	line := DisassembleBytes(func(addr uint16) byte { return mem[addr] }, 0x4000)
	assert.Contains(t, line, "4000")
	assert.Contains(t, line, "21 00 58")
	assert.Contains(t, line, "LD HL, $5800")
}
