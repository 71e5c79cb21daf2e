// snapshot_zx.go - ZX snapshot format (KGB emulator)

/*
A ZX file is a fixed 49536 byte image of a 48K machine:

  0       last 132 bytes of ROM
  132     48K RAM from 0x4000
  49284   emulator settings, ignored on read
  49484   registers, big-endian words

Register block offsets are absolute. 8-bit registers A, F, A' and F' sit
in the low byte of a word. The IM word is -1 for IM 0, 0 for IM 1 and 1
for IM 2.

The layout has no border field. Read reports border 0 and Write drops the
colour.
*/

package spectrum

import (
	"fmt"
	"io"
)

const (
	zxSize     = 49536
	zxROMTail  = 132
	zxSettings = zxROMTail + ram48KSize
	zxPattern  = zxSettings + 132

	zxOffBC   = 49484
	zxOffBC2  = 49486
	zxOffDE   = 49488
	zxOffDE2  = 49490
	zxOffHL   = 49492
	zxOffHL2  = 49494
	zxOffIX   = 49496
	zxOffIY   = 49498
	zxOffI    = 49500
	zxOffR    = 49501
	zxOffA2   = 49505
	zxOffA    = 49507
	zxOffF2   = 49509
	zxOffF    = 49511
	zxOffPC   = 49514
	zxOffSP   = 49518
	zxOffHalt = 49522
	zxOffIM   = 49524
	zxOffIFF  = 49526
)

type zxCodec struct {
	opts SnapshotOptions
}

func NewZXCodec(opts SnapshotOptions) SnapshotCodec {
	return &zxCodec{opts: opts}
}

func (c *zxCodec) Name() string         { return "zx" }
func (c *zxCodec) Extensions() []string { return []string{"zx"} }

func (c *zxCodec) CouldBeSnapshot(r io.ReadSeeker) bool {
	return sniff(r, func(size int64, r io.Reader) bool {
		return size == zxSize
	})
}

func (c *zxCodec) Read(r io.Reader) (*Snapshot, error) {
	data := make([]byte, zxSize)
	if err := readFull(r, data); err != nil {
		return nil, snapshotErr(c.Name(), "read", err)
	}
	if c.opts.Strict {
		n, _ := io.Copy(io.Discard, r)
		if n != 0 {
			return nil, snapshotErr(c.Name(), "read", fmt.Errorf("%d trailing bytes: %w", n, ErrSnapshotFormat))
		}
	}

	s := &Snapshot{
		Model:   Spectrum48K,
		RAM:     data[zxROMTail:zxSettings],
		RAMBase: ramBase,
	}
	regs := &s.Registers
	regs.BC = Register16(be16(data[zxOffBC:]))
	regs.BC2 = Register16(be16(data[zxOffBC2:]))
	regs.DE = Register16(be16(data[zxOffDE:]))
	regs.DE2 = Register16(be16(data[zxOffDE2:]))
	regs.HL = Register16(be16(data[zxOffHL:]))
	regs.HL2 = Register16(be16(data[zxOffHL2:]))
	regs.IX = Register16(be16(data[zxOffIX:]))
	regs.IY = Register16(be16(data[zxOffIY:]))
	regs.I = data[zxOffI]
	regs.R = data[zxOffR]
	regs.SetA(data[zxOffA])
	regs.SetF(data[zxOffF])
	regs.AF2.SetHigh(data[zxOffA2])
	regs.AF2.SetLow(data[zxOffF2])
	regs.PC = Register16(be16(data[zxOffPC:]))
	regs.SP = Register16(be16(data[zxOffSP:]))

	s.Halted = be16(data[zxOffHalt:]) != 0
	switch im := int16(be16(data[zxOffIM:])); im {
	case -1:
		s.IM = 0
	case 0:
		s.IM = 1
	case 1:
		s.IM = 2
	default:
		if c.opts.Strict {
			return nil, snapshotErr(c.Name(), "read", fmt.Errorf("interrupt mode word %d: %w", im, ErrSnapshotFormat))
		}
		s.IM = 1
	}
	s.IFF1 = be16(data[zxOffIFF:]) != 0
	s.IFF2 = s.IFF1

	if err := s.Validate(); err != nil {
		return nil, snapshotErr(c.Name(), "read", err)
	}
	return s, nil
}

// Write leaves the ROM tail zeroed. Readers, this one included, ignore it.
func (c *zxCodec) Write(w io.Writer, s *Snapshot) error {
	if err := s.Validate(); err != nil {
		return snapshotErr(c.Name(), "write", err)
	}
	s, err := s.withPCInRegisters()
	if err != nil {
		return snapshotErr(c.Name(), "write", err)
	}
	img, err := s.ram48()
	if err != nil {
		return snapshotErr(c.Name(), "write", err)
	}

	data := make([]byte, zxSize)
	copy(data[zxROMTail:], img)
	for i := 0; i < 10; i += 2 {
		data[zxPattern+i+1] = 10
	}

	regs := &s.Registers
	put := func(off int, v uint16) {
		data[off] = byte(v >> 8)
		data[off+1] = byte(v)
	}
	put(zxOffBC, uint16(regs.BC))
	put(zxOffBC2, uint16(regs.BC2))
	put(zxOffDE, uint16(regs.DE))
	put(zxOffDE2, uint16(regs.DE2))
	put(zxOffHL, uint16(regs.HL))
	put(zxOffHL2, uint16(regs.HL2))
	put(zxOffIX, uint16(regs.IX))
	put(zxOffIY, uint16(regs.IY))
	data[zxOffI] = regs.I
	data[zxOffR] = regs.R
	data[zxOffA2] = regs.AF2.High()
	data[zxOffA] = regs.A()
	data[zxOffF2] = regs.AF2.Low()
	data[zxOffF] = regs.F()
	put(zxOffPC, uint16(regs.PC))
	put(zxOffSP, uint16(regs.SP))
	if s.Halted {
		put(zxOffHalt, 1)
	}
	put(zxOffIM, uint16(int16(s.IM)-1))
	if s.IFF1 {
		put(zxOffIFF, 1)
	}

	if _, err := w.Write(data); err != nil {
		return snapshotErr(c.Name(), "write", err)
	}
	return nil
}
