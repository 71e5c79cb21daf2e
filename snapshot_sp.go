// snapshot_sp.go - SP snapshot format

/*
SP files hold one 48K machine with a memory block that need not start at
0x4000. The 38 byte header is little-endian:

  0   "SP"
  2   block length, block start
  6   BC DE HL AF IX IY BC' DE' HL' AF'
  26  R I
  28  SP PC
  32  reserved word
  34  border, reserved byte
  36  status word

Status bits: 0 IFF1, 1 IM 2 (else IM 1), 2 IFF2, 3 IM 0 (overrides bit 1),
4 interrupt pending, 5 flash phase.
*/

package spectrum

import (
	"bytes"
	"fmt"
	"io"
)

const spHeaderSize = 38

const (
	spIFF1 = 1 << iota
	spIM2
	spIFF2
	spIM0
	spPending
	spFlash
)

// Register words in header order, from offset 6.
var spWordRegs = []Reg16{RegBC, RegDE, RegHL, RegAF, RegIX, RegIY, RegBC2, RegDE2, RegHL2, RegAF2}

type spCodec struct {
	opts SnapshotOptions
}

func NewSPCodec(opts SnapshotOptions) SnapshotCodec {
	return &spCodec{opts: opts}
}

func (c *spCodec) Name() string         { return "sp" }
func (c *spCodec) Extensions() []string { return []string{"sp"} }

func (c *spCodec) CouldBeSnapshot(r io.ReadSeeker) bool {
	return sniff(r, func(size int64, r io.Reader) bool {
		var h [spHeaderSize]byte
		if readFull(r, h[:]) != nil || h[0] != 'S' || h[1] != 'P' {
			return false
		}
		length := int64(le16(h[2:]))
		return length > 0 && size >= spHeaderSize+length
	})
}

func (c *spCodec) Read(r io.Reader) (*Snapshot, error) {
	var h [spHeaderSize]byte
	if err := readFull(r, h[:]); err != nil {
		return nil, snapshotErr(c.Name(), "read", fmt.Errorf("header: %w", err))
	}
	if h[0] != 'S' || h[1] != 'P' {
		return nil, snapshotErr(c.Name(), "read", fmt.Errorf("bad signature %q: %w", h[:2], ErrSnapshotFormat))
	}
	length := int(le16(h[2:]))
	start := le16(h[4:])
	if length == 0 {
		return nil, snapshotErr(c.Name(), "read", fmt.Errorf("empty memory block: %w", ErrSnapshotFormat))
	}

	s := &Snapshot{Model: Spectrum48K}
	regs := &s.Registers
	for i, reg := range spWordRegs {
		off := 6 + 2*i
		regs.Set16Z80(reg, [2]byte{h[off], h[off+1]})
	}
	regs.R = h[26]
	regs.I = h[27]
	regs.Set16Z80(RegSP, [2]byte{h[28], h[29]})
	regs.Set16Z80(RegPC, [2]byte{h[30], h[31]})
	s.Border = h[34] & 7

	status := le16(h[36:])
	s.IFF1 = status&spIFF1 != 0
	s.IFF2 = status&spIFF2 != 0
	switch {
	case status&spIM0 != 0:
		s.IM = 0
	case status&spIM2 != 0:
		s.IM = 2
	default:
		s.IM = 1
	}
	s.PendingInterrupt = status&spPending != 0

	block := make([]byte, length)
	if err := readFull(r, block); err != nil {
		return nil, snapshotErr(c.Name(), "read", fmt.Errorf("memory block: %w", err))
	}
	if c.opts.Strict {
		n, _ := io.Copy(io.Discard, r)
		if n != 0 {
			return nil, snapshotErr(c.Name(), "read", fmt.Errorf("%d bytes after memory block: %w", n, ErrSnapshotFormat))
		}
	}

	if start < ramBase {
		if c.opts.Strict || int(start)+length <= ramBase {
			return nil, snapshotErr(c.Name(), "read", fmt.Errorf("memory block at 0x%04X overlaps ROM: %w", start, ErrSnapshotFormat))
		}
		block = block[ramBase-start:]
		start = ramBase
	}
	s.RAM = block
	s.RAMBase = start

	if err := s.Validate(); err != nil {
		return nil, snapshotErr(c.Name(), "read", err)
	}
	return s, nil
}

func (c *spCodec) Write(w io.Writer, s *Snapshot) error {
	if err := s.Validate(); err != nil {
		return snapshotErr(c.Name(), "write", err)
	}
	if s.Model != Spectrum48K {
		return snapshotErr(c.Name(), "write", fmt.Errorf("%s machine: %w", s.Model, ErrModelMismatch))
	}
	s, err := s.withPCInRegisters()
	if err != nil {
		return snapshotErr(c.Name(), "write", err)
	}

	var buf bytes.Buffer
	bw := &byteWriter{w: &buf}
	bw.bytes([]byte("SP"))
	bw.le16(uint16(len(s.RAM)))
	bw.le16(s.RAMBase)
	for _, reg := range spWordRegs {
		b := s.Registers.Get16Z80(reg)
		bw.bytes(b[:])
	}
	bw.byte(s.Registers.R)
	bw.byte(s.Registers.I)
	for _, reg := range []Reg16{RegSP, RegPC} {
		b := s.Registers.Get16Z80(reg)
		bw.bytes(b[:])
	}
	bw.le16(0)
	bw.byte(s.Border & 7)
	bw.byte(0)

	var status uint16
	if s.IFF1 {
		status |= spIFF1
	}
	if s.IFF2 {
		status |= spIFF2
	}
	switch s.IM {
	case 0:
		status |= spIM0
	case 2:
		status |= spIM2
	}
	if s.PendingInterrupt {
		status |= spPending
	}
	bw.le16(status)
	bw.bytes(s.RAM)

	if _, err := buf.WriteTo(w); err != nil {
		return snapshotErr(c.Name(), "write", err)
	}
	return nil
}
