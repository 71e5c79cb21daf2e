// memory_mappable.go - Overlay mappings on top of a base store

package spectrum

import "errors"

var errEmptyMapping = errors.New("empty mapping")

type overlay struct {
	addr     uint32
	data     []byte
	readOnly bool
}

func (o *overlay) contains(addr uint32) bool {
	return addr >= o.addr && addr-o.addr < uint32(len(o.data))
}

// overlaySet keeps mappings in insertion order. Lookups walk it backwards
// so the newest mapping masks older ones.
type overlaySet struct {
	list []overlay
}

func (s *overlaySet) lookup(addr uint32) *overlay {
	for i := len(s.list) - 1; i >= 0; i-- {
		if s.list[i].contains(addr) {
			return &s.list[i]
		}
	}
	return nil
}

func (s *overlaySet) add(size int, addr uint32, data []byte, readOnly bool) error {
	if len(data) == 0 {
		return &MemoryError{Op: "map", Addr: addr, Err: errEmptyMapping}
	}
	if err := checkRange("map", size, addr, len(data)); err != nil {
		return err
	}
	s.list = append(s.list, overlay{addr: addr, data: data, readOnly: readOnly})
	return nil
}

// remove drops the newest mapping of exactly this buffer at addr.
func (s *overlaySet) remove(addr uint32, data []byte) error {
	for i := len(s.list) - 1; i >= 0; i-- {
		o := s.list[i]
		if o.addr == addr && len(o.data) == len(data) && len(data) > 0 && &o.data[0] == &data[0] {
			s.list = append(s.list[:i], s.list[i+1:]...)
			return nil
		}
	}
	return &MemoryError{Op: "unmap", Addr: addr, Len: len(data), Err: ErrNoSuchMapping}
}

func (s *overlaySet) read(addr uint32) (byte, bool) {
	if len(s.list) == 0 {
		return 0, false
	}
	if o := s.lookup(addr); o != nil {
		return o.data[addr-o.addr], true
	}
	return 0, false
}

// write reports whether an overlay claimed the address. Read-only overlays
// swallow the write.
func (s *overlaySet) write(addr uint32, value byte) bool {
	if len(s.list) == 0 {
		return false
	}
	if o := s.lookup(addr); o != nil {
		if !o.readOnly {
			o.data[addr-o.addr] = value
		}
		return true
	}
	return false
}

// MappableMemory adds the overlay capability to any base Memory.
type MappableMemory struct {
	base     Memory
	overlays overlaySet
}

func NewMappableMemory(base Memory) *MappableMemory {
	return &MappableMemory{base: base}
}

func (m *MappableMemory) Size() int { return m.base.Size() }

func (m *MappableMemory) Read(addr uint32) byte {
	if v, ok := m.overlays.read(addr); ok {
		return v
	}
	return m.base.Read(addr)
}

func (m *MappableMemory) Write(addr uint32, value byte) {
	if m.overlays.write(addr, value) {
		return
	}
	m.base.Write(addr, value)
}

func (m *MappableMemory) ReadRange(addr uint32, dst []byte) error {
	if len(m.overlays.list) == 0 {
		return m.base.ReadRange(addr, dst)
	}
	if err := checkRange("read range", m.Size(), addr, len(dst)); err != nil {
		return err
	}
	for i := range dst {
		dst[i] = m.Read(addr + uint32(i))
	}
	return nil
}

func (m *MappableMemory) WriteRange(addr uint32, src []byte) error {
	if len(m.overlays.list) == 0 {
		return m.base.WriteRange(addr, src)
	}
	if err := checkRange("write range", m.Size(), addr, len(src)); err != nil {
		return err
	}
	for i, v := range src {
		m.Write(addr+uint32(i), v)
	}
	return nil
}

func (m *MappableMemory) Clear() { m.base.Clear() }

func (m *MappableMemory) MapMemory(addr uint32, data []byte, readOnly bool) error {
	return m.overlays.add(m.Size(), addr, data, readOnly)
}

func (m *MappableMemory) UnmapMemory(addr uint32, data []byte) error {
	return m.overlays.remove(addr, data)
}

// Base returns the store underneath the overlays.
func (m *MappableMemory) Base() Memory { return m.base }
