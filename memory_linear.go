// memory_linear.go - Flat byte store

package spectrum

// LinearMemory is a fixed-size flat store.
type LinearMemory struct {
	data []byte
}

// NewLinearMemory allocates size zeroed bytes.
func NewLinearMemory(size int) *LinearMemory {
	return &LinearMemory{data: make([]byte, size)}
}

func (m *LinearMemory) Size() int { return len(m.data) }

func (m *LinearMemory) Read(addr uint32) byte {
	if int(addr) >= len(m.data) {
		outOfRange("read", addr)
		return 0xFF
	}
	return m.data[addr]
}

func (m *LinearMemory) Write(addr uint32, value byte) {
	if int(addr) >= len(m.data) {
		outOfRange("write", addr)
		return
	}
	m.data[addr] = value
}

func (m *LinearMemory) ReadRange(addr uint32, dst []byte) error {
	if err := checkRange("read range", len(m.data), addr, len(dst)); err != nil {
		return err
	}
	copy(dst, m.data[addr:])
	return nil
}

func (m *LinearMemory) WriteRange(addr uint32, src []byte) error {
	if err := checkRange("write range", len(m.data), addr, len(src)); err != nil {
		return err
	}
	copy(m.data[addr:], src)
	return nil
}

func (m *LinearMemory) Clear() {
	clear(m.data)
}

// Raw exposes the backing slice for bulk paths. The slice is never
// reallocated.
func (m *LinearMemory) Raw() []byte { return m.data }
