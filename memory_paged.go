// memory_paged.go - Bank switched memory for the 128K models

/*
 ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████
▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀
▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███
░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄
░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒
░▓  ░ ▒░   ▒ ▒   ▒ ░░   ░▒▓▒ ▒ ▒ ░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░
 ▒ ░░ ░░   ░ ▒░    ░    ░░▒░ ░ ░  ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░
 ▒ ░   ░   ░ ░   ░       ░░░ ░ ░  ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░
 ░           ░             ░      ░            ░      ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionEngine
License: GPLv3 or later
*/

/*
memory_paged.go - Paged Memory

The 64K address space is split into four 16K windows:

  0x0000-0x3FFF  switchable ROM page
  0x4000-0x7FFF  fixed RAM page (FixedPages[0])
  0x8000-0xBFFF  fixed RAM page (FixedPages[1])
  0xC000-0xFFFF  switchable RAM page

A fixed page can also be selected into the switchable window, in which case
it is visible at two addresses at once. Overlay mappings take precedence over
every window. Page buffers are allocated once and never reallocated, so
slices returned by ROMPage and RAMPage stay valid for the memory's lifetime.
*/

package spectrum

import "fmt"

const (
	PageSize    = 0x4000
	pageShift   = 14
	addressSize = 0x10000
)

// PagedLayout configures the number of pages and the fixed windows.
type PagedLayout struct {
	ROMPages   int
	RAMPages   int
	FixedPages [2]int
}

// Layout128K is the Spectrum 128 arrangement: two ROMs, eight RAM pages,
// pages 5 and 2 fixed at 0x4000 and 0x8000.
var Layout128K = PagedLayout{ROMPages: 2, RAMPages: 8, FixedPages: [2]int{5, 2}}

// PagedMemory implements Memory, Mapper and Pager.
type PagedMemory struct {
	layout   PagedLayout
	rom      [][]byte
	ram      [][]byte
	romSel   int
	ramSel   int
	overlays overlaySet
}

func NewPagedMemory(layout PagedLayout) (*PagedMemory, error) {
	if layout.ROMPages < 1 || layout.RAMPages < 1 {
		return nil, fmt.Errorf("paged memory: need at least one ROM and one RAM page, got %d/%d",
			layout.ROMPages, layout.RAMPages)
	}
	for _, p := range layout.FixedPages {
		if p < 0 || p >= layout.RAMPages {
			return nil, fmt.Errorf("paged memory: fixed page %d: %w", p, ErrPageOutOfRange)
		}
	}
	m := &PagedMemory{
		layout: layout,
		rom:    make([][]byte, layout.ROMPages),
		ram:    make([][]byte, layout.RAMPages),
	}
	for i := range m.rom {
		m.rom[i] = make([]byte, PageSize)
	}
	for i := range m.ram {
		m.ram[i] = make([]byte, PageSize)
	}
	return m, nil
}

func (m *PagedMemory) Size() int { return addressSize }

// mapAddress resolves a logical address to its page buffer and offset.
// rom reports whether the page is a ROM image.
func (m *PagedMemory) mapAddress(addr uint32) (page []byte, offset uint32, rom bool) {
	offset = addr & (PageSize - 1)
	switch addr >> pageShift {
	case 0:
		return m.rom[m.romSel], offset, true
	case 1:
		return m.ram[m.layout.FixedPages[0]], offset, false
	case 2:
		return m.ram[m.layout.FixedPages[1]], offset, false
	default:
		return m.ram[m.ramSel], offset, false
	}
}

func (m *PagedMemory) Read(addr uint32) byte {
	if addr >= addressSize {
		outOfRange("read", addr)
		return 0xFF
	}
	if v, ok := m.overlays.read(addr); ok {
		return v
	}
	page, off, _ := m.mapAddress(addr)
	return page[off]
}

func (m *PagedMemory) Write(addr uint32, value byte) {
	if addr >= addressSize {
		outOfRange("write", addr)
		return
	}
	if m.overlays.write(addr, value) {
		return
	}
	page, off, rom := m.mapAddress(addr)
	if rom {
		return
	}
	page[off] = value
}

func (m *PagedMemory) ReadRange(addr uint32, dst []byte) error {
	if err := checkRange("read range", addressSize, addr, len(dst)); err != nil {
		return err
	}
	for i := range dst {
		dst[i] = m.Read(addr + uint32(i))
	}
	return nil
}

func (m *PagedMemory) WriteRange(addr uint32, src []byte) error {
	if err := checkRange("write range", addressSize, addr, len(src)); err != nil {
		return err
	}
	for i, v := range src {
		m.Write(addr+uint32(i), v)
	}
	return nil
}

// Clear zeroes every RAM page. ROM images are kept.
func (m *PagedMemory) Clear() {
	for _, p := range m.ram {
		clear(p)
	}
}

func (m *PagedMemory) MapMemory(addr uint32, data []byte, readOnly bool) error {
	return m.overlays.add(addressSize, addr, data, readOnly)
}

func (m *PagedMemory) UnmapMemory(addr uint32, data []byte) error {
	return m.overlays.remove(addr, data)
}

func (m *PagedMemory) PageROM(n int) error {
	if n < 0 || n >= len(m.rom) {
		return fmt.Errorf("paged memory: rom page %d of %d: %w", n, len(m.rom), ErrPageOutOfRange)
	}
	m.romSel = n
	return nil
}

func (m *PagedMemory) PageRAM(n int) error {
	if n < 0 || n >= len(m.ram) {
		return fmt.Errorf("paged memory: ram page %d of %d: %w", n, len(m.ram), ErrPageOutOfRange)
	}
	m.ramSel = n
	return nil
}

func (m *PagedMemory) CurrentROM() int   { return m.romSel }
func (m *PagedMemory) CurrentRAM() int   { return m.ramSel }
func (m *PagedMemory) ROMPageCount() int { return len(m.rom) }
func (m *PagedMemory) RAMPageCount() int { return len(m.ram) }

// FixedPages returns the RAM pages bound to 0x4000 and 0x8000.
func (m *PagedMemory) FixedPages() [2]int { return m.layout.FixedPages }

// ROMPage returns the backing buffer of ROM page n for direct loading.
func (m *PagedMemory) ROMPage(n int) ([]byte, error) {
	if n < 0 || n >= len(m.rom) {
		return nil, fmt.Errorf("paged memory: rom page %d of %d: %w", n, len(m.rom), ErrPageOutOfRange)
	}
	return m.rom[n], nil
}

// RAMPage returns the backing buffer of RAM page n for codec use.
func (m *PagedMemory) RAMPage(n int) ([]byte, error) {
	if n < 0 || n >= len(m.ram) {
		return nil, fmt.Errorf("paged memory: ram page %d of %d: %w", n, len(m.ram), ErrPageOutOfRange)
	}
	return m.ram[n], nil
}
