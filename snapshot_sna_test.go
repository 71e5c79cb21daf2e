package spectrum

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulhankin/z80asm"
	"github.com/paulhankin/z80asm/z80io"
	"github.com/retroenv/retrogolib/assert"
)

// TestSNAReadsAssemblerImage loads an SNA written by an independent
// writer and checks that PC comes back off the stack.
func TestSNAReadsAssemblerImage(t *testing.T) {
	src := `
.main
ld a, 3
out (0xfe), a
halt
`
	path := filepath.Join(t.TempDir(), "border.asm")
	assert.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	asm, err := z80asm.NewAssembler()
	assert.NoError(t, err)
	assert.NoError(t, asm.AssembleFile(path))
	entry, ok := asm.GetLabel("", "main")
	assert.True(t, ok)

	img, err := z80asm.NewMachine(asm.RAM())
	assert.NoError(t, err)
	img.PC = entry
	img.SP = 0xFF00
	img.IntEnabled = true
	img.IntMode = 1
	img.BorderColor = 5

	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	assert.NoError(t, z80io.WriteSNA(w, img))
	assert.Equal(t, sna48KSize, buf.Len())

	snap, err := NewSNACodec(SnapshotOptions{Strict: true}).Read(bytes.NewReader(buf.Bytes()))
	assert.NoError(t, err)
	assert.True(t, snap.PCOnStack)

	m := newTestMachine(t, Spectrum48K, FrameInterruptIRQ)
	assert.NoError(t, snap.ApplyTo(m))
	cpu := m.CPU()
	assert.Equal(t, entry, uint16(cpu.PC))
	assert.Equal(t, uint16(0xFF00), uint16(cpu.SP))
	assert.True(t, cpu.IFF1)
	assert.Equal(t, byte(1), cpu.IM)
	assert.Equal(t, byte(5), m.Border())

	for range 3 {
		m.Step()
	}
	assert.Equal(t, byte(3), m.Border())
	assert.True(t, cpu.Halted)
}
