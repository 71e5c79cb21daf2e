// memory_interface.go - Memory capabilities shared by every machine model

package spectrum

import (
	"errors"
	"fmt"
)

var (
	ErrAddressOutOfRange = errors.New("address out of range")
	ErrPageOutOfRange    = errors.New("page index out of range")
	ErrNoSuchMapping     = errors.New("no such mapping")
	ErrPagingLocked      = errors.New("paging locked")
)

// MemoryError carries the operation and address of a failed access.
type MemoryError struct {
	Op   string
	Addr uint32
	Len  int
	Err  error
}

func (e *MemoryError) Error() string {
	if e.Len > 0 {
		return fmt.Sprintf("memory %s 0x%X+%d: %v", e.Op, e.Addr, e.Len, e.Err)
	}
	return fmt.Sprintf("memory %s 0x%X: %v", e.Op, e.Addr, e.Err)
}

func (e *MemoryError) Unwrap() error { return e.Err }

// Memory is the base addressable store. Single byte accesses outside Size
// are programming errors: the default build reads 0xFF and drops writes,
// the memdebug build panics. Range accesses never copy partially.
type Memory interface {
	Size() int
	Read(addr uint32) byte
	Write(addr uint32, value byte)
	ReadRange(addr uint32, dst []byte) error
	WriteRange(addr uint32, src []byte) error
	Clear()
}

// Mapper is the overlay capability. The most recent mapping wins where
// mappings overlap.
type Mapper interface {
	MapMemory(addr uint32, data []byte, readOnly bool) error
	UnmapMemory(addr uint32, data []byte) error
}

// Pager is the bank switching capability.
type Pager interface {
	PageROM(n int) error
	PageRAM(n int) error
	CurrentROM() int
	CurrentRAM() int
	ROMPageCount() int
	RAMPageCount() int
	ROMPage(n int) ([]byte, error)
	RAMPage(n int) ([]byte, error)
}

// ReadWord reads a little-endian word through any Memory.
func ReadWord(m Memory, addr uint32) uint16 {
	return uint16(m.Read(addr)) | uint16(m.Read(addr+1))<<8
}

// WriteWord writes a little-endian word through any Memory.
func WriteWord(m Memory, addr uint32, value uint16) {
	m.Write(addr, byte(value))
	m.Write(addr+1, byte(value>>8))
}

func checkRange(op string, size int, addr uint32, n int) error {
	if uint64(addr)+uint64(n) > uint64(size) {
		return &MemoryError{Op: op, Addr: addr, Len: n, Err: ErrAddressOutOfRange}
	}
	return nil
}

func outOfRange(op string, addr uint32) {
	if memoryStrict {
		panic(&MemoryError{Op: op, Addr: addr, Err: ErrAddressOutOfRange})
	}
}
