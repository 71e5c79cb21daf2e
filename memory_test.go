package spectrum

import (
	"bytes"
	"errors"
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

func TestLinearMemoryRange(t *testing.T) {
	m := NewLinearMemory(0x100)
	assert.NoError(t, m.WriteRange(0xFE, []byte{1, 2}))

	dst := make([]byte, 2)
	assert.NoError(t, m.ReadRange(0xFE, dst))
	assert.True(t, bytes.Equal([]byte{1, 2}, dst))

	err := m.WriteRange(0xFF, []byte{9, 9})
	assert.True(t, errors.Is(err, ErrAddressOutOfRange))
	assert.Equal(t, byte(2), m.Read(0xFF), "failed range write must not copy partially")

	var merr *MemoryError
	assert.True(t, errors.As(err, &merr))
	assert.Equal(t, uint32(0xFF), merr.Addr)
}

func TestLinearMemoryOutOfRangeByte(t *testing.T) {
	if memoryStrict {
		t.Skip("memdebug build panics on stray accesses")
	}
	m := NewLinearMemory(0x10)
	m.Write(0x10, 0x12)
	assert.Equal(t, byte(0xFF), m.Read(0x10))
}

func TestWordHelpers(t *testing.T) {
	m := NewLinearMemory(0x10)
	WriteWord(m, 4, 0xBEEF)
	assert.Equal(t, byte(0xEF), m.Read(4))
	assert.Equal(t, byte(0xBE), m.Read(5))
	assert.Equal(t, uint16(0xBEEF), ReadWord(m, 4))
}

func TestMappableOverlayMasksBase(t *testing.T) {
	base := NewLinearMemory(0x1000)
	base.Write(0x100, 0x11)
	m := NewMappableMemory(base)

	first := []byte{0xA0, 0xA1}
	second := []byte{0xB0}
	assert.NoError(t, m.MapMemory(0x100, first, false))
	assert.NoError(t, m.MapMemory(0x100, second, false))

	assert.Equal(t, byte(0xB0), m.Read(0x100), "newest mapping wins")
	assert.Equal(t, byte(0xA1), m.Read(0x101))

	m.Write(0x101, 0x55)
	assert.Equal(t, byte(0x55), first[1])
	assert.Equal(t, byte(0x00), base.Read(0x101))

	assert.NoError(t, m.UnmapMemory(0x100, second))
	assert.Equal(t, byte(0xA0), m.Read(0x100))
	assert.NoError(t, m.UnmapMemory(0x100, first))
	assert.Equal(t, byte(0x11), m.Read(0x100))
}

func TestMappableUnmapRestoresState(t *testing.T) {
	base := NewLinearMemory(0x1000)
	m := NewMappableMemory(base)
	for i := range 0x10 {
		base.Write(uint32(0x200+i), byte(i))
	}
	before := make([]byte, 0x10)
	assert.NoError(t, m.ReadRange(0x200, before))

	buf := make([]byte, 8)
	assert.NoError(t, m.MapMemory(0x204, buf, false))
	assert.NoError(t, m.UnmapMemory(0x204, buf))

	after := make([]byte, 0x10)
	assert.NoError(t, m.ReadRange(0x200, after))
	assert.True(t, bytes.Equal(before, after))

	err := m.UnmapMemory(0x204, buf)
	assert.True(t, errors.Is(err, ErrNoSuchMapping))
}

func TestMappableReadOnlyOverlay(t *testing.T) {
	m := NewMappableMemory(NewLinearMemory(0x1000))
	rom := []byte{0xC3, 0x00}
	assert.NoError(t, m.MapMemory(0, rom, true))
	m.Write(0, 0x00)
	assert.Equal(t, byte(0xC3), m.Read(0))
	assert.Equal(t, byte(0x00), m.Base().Read(0))
}

func TestMappableRejectsBadMappings(t *testing.T) {
	m := NewMappableMemory(NewLinearMemory(0x100))
	assert.Error(t, m.MapMemory(0x10, nil, false))

	err := m.MapMemory(0xF0, make([]byte, 0x20), false)
	assert.True(t, errors.Is(err, ErrAddressOutOfRange))
}

func TestPagedMemoryWindows(t *testing.T) {
	m, err := NewPagedMemory(Layout128K)
	assert.NoError(t, err)

	m.Write(0x4000, 0x55)
	page5, err := m.RAMPage(5)
	assert.NoError(t, err)
	assert.Equal(t, byte(0x55), page5[0])

	m.Write(0x8000, 0x22)
	page2, err := m.RAMPage(2)
	assert.NoError(t, err)
	assert.Equal(t, byte(0x22), page2[0])

	assert.NoError(t, m.PageRAM(3))
	m.Write(0xC000, 0x33)
	page3, err := m.RAMPage(3)
	assert.NoError(t, err)
	assert.Equal(t, byte(0x33), page3[0])
	assert.Equal(t, 3, m.CurrentRAM())

	// Page 5 selected at 0xC000 is visible at both addresses.
	assert.NoError(t, m.PageRAM(5))
	m.Write(0xC001, 0x77)
	assert.Equal(t, byte(0x77), m.Read(0x4001))
}

func TestPagedMemoryROMWindow(t *testing.T) {
	m, err := NewPagedMemory(Layout128K)
	assert.NoError(t, err)

	rom0, err := m.ROMPage(0)
	assert.NoError(t, err)
	rom1, err := m.ROMPage(1)
	assert.NoError(t, err)
	rom0[0] = 0xF3
	rom1[0] = 0x01

	assert.Equal(t, byte(0xF3), m.Read(0))
	m.Write(0, 0x00)
	assert.Equal(t, byte(0xF3), m.Read(0))

	assert.NoError(t, m.PageROM(1))
	assert.Equal(t, byte(0x01), m.Read(0))
	assert.Equal(t, 1, m.CurrentROM())
}

func TestPagedMemoryPageBounds(t *testing.T) {
	m, err := NewPagedMemory(Layout128K)
	assert.NoError(t, err)
	assert.Equal(t, 8, m.RAMPageCount())
	assert.Equal(t, 2, m.ROMPageCount())

	assert.NoError(t, m.PageRAM(7))
	assert.True(t, errors.Is(m.PageRAM(8), ErrPageOutOfRange))
	assert.True(t, errors.Is(m.PageRAM(-1), ErrPageOutOfRange))
	assert.True(t, errors.Is(m.PageROM(2), ErrPageOutOfRange))
	assert.Equal(t, 7, m.CurrentRAM(), "failed selection keeps the current page")

	_, err = m.RAMPage(8)
	assert.True(t, errors.Is(err, ErrPageOutOfRange))
}

func TestPagedMemoryLayoutValidation(t *testing.T) {
	_, err := NewPagedMemory(PagedLayout{ROMPages: 1, RAMPages: 2, FixedPages: [2]int{0, 2}})
	assert.True(t, errors.Is(err, ErrPageOutOfRange))

	_, err = NewPagedMemory(PagedLayout{ROMPages: 0, RAMPages: 2})
	assert.Error(t, err)
}

func TestPagedMemoryOverlayAndClear(t *testing.T) {
	m, err := NewPagedMemory(Layout128K)
	assert.NoError(t, err)

	rom, err := m.ROMPage(0)
	assert.NoError(t, err)
	rom[0x10] = 0xAA
	m.Write(0x5000, 0x42)

	patch := []byte{0xBB}
	assert.NoError(t, m.MapMemory(0x10, patch, true))
	assert.Equal(t, byte(0xBB), m.Read(0x10))
	assert.NoError(t, m.UnmapMemory(0x10, patch))
	assert.Equal(t, byte(0xAA), m.Read(0x10))

	m.Clear()
	assert.Equal(t, byte(0x00), m.Read(0x5000))
	assert.Equal(t, byte(0xAA), m.Read(0x10), "ROM survives Clear")
}
