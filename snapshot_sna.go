// snapshot_sna.go - SNA snapshot format

/*
SNA layout (all words little-endian):

  0   I
  1   HL' DE' BC' AF'
  9   HL DE BC IY IX
  19  interrupt byte, bit 2 = IFF2
  20  R
  21  AF SP
  25  interrupt mode
  26  border
  27  48K RAM from 0x4000

The 48K file has no PC: it sits on the stack and is popped with RETN on
restore. The 128K variant appends PC, the 0x7FFD latch, a TR-DOS flag and
the remaining RAM pages; the 48K block then holds pages 5, 2 and the paged
in page.
*/

package spectrum

import (
	"bytes"
	"fmt"
	"io"
)

const (
	snaHeaderSize = 27
	sna48KSize    = snaHeaderSize + ram48KSize
	sna128KSize   = sna48KSize + 4 + 5*PageSize
	sna128KLarge  = sna128KSize + PageSize
)

type snaCodec struct {
	opts SnapshotOptions
}

func NewSNACodec(opts SnapshotOptions) SnapshotCodec {
	return &snaCodec{opts: opts}
}

func (c *snaCodec) Name() string         { return "sna" }
func (c *snaCodec) Extensions() []string { return []string{"sna"} }

func (c *snaCodec) CouldBeSnapshot(r io.ReadSeeker) bool {
	return sniff(r, func(size int64, r io.Reader) bool {
		if size != sna48KSize && size != sna128KSize && size != sna128KLarge {
			return false
		}
		var h [snaHeaderSize]byte
		if readFull(r, h[:]) != nil {
			return false
		}
		return h[25] <= 2
	})
}

func (c *snaCodec) Read(r io.Reader) (*Snapshot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, snapshotErr(c.Name(), "read", err)
	}
	if len(data) < sna48KSize {
		return nil, snapshotErr(c.Name(), "read", fmt.Errorf("%d bytes: %w", len(data), ErrSnapshotTruncated))
	}

	h := data[:snaHeaderSize]
	s := &Snapshot{}
	regs := &s.Registers
	regs.I = h[0]
	regs.HL2 = Register16(le16(h[1:]))
	regs.DE2 = Register16(le16(h[3:]))
	regs.BC2 = Register16(le16(h[5:]))
	regs.AF2 = Register16(le16(h[7:]))
	regs.HL = Register16(le16(h[9:]))
	regs.DE = Register16(le16(h[11:]))
	regs.BC = Register16(le16(h[13:]))
	regs.IY = Register16(le16(h[15:]))
	regs.IX = Register16(le16(h[17:]))
	s.IFF2 = h[19]&0x04 != 0
	s.IFF1 = s.IFF2
	regs.R = h[20]
	regs.AF = Register16(le16(h[21:]))
	regs.SP = Register16(le16(h[23:]))
	s.Border = h[26] & 7

	im := h[25]
	if im > 2 {
		if c.opts.Strict {
			return nil, snapshotErr(c.Name(), "read", fmt.Errorf("interrupt mode %d: %w", im, ErrSnapshotFormat))
		}
		im = 1
	}
	s.IM = im

	body := data[snaHeaderSize:]
	switch {
	case len(data) == sna48KSize || (len(data) < sna128KSize && !c.opts.Strict):
		s.Model = Spectrum48K
		s.RAM = bytes.Clone(body[:ram48KSize])
		s.RAMBase = ramBase
		s.PCOnStack = true
	case len(data) == sna128KSize || len(data) == sna128KLarge:
		if err := c.read128(s, body); err != nil {
			return nil, snapshotErr(c.Name(), "read", err)
		}
	default:
		return nil, snapshotErr(c.Name(), "read", fmt.Errorf("unexpected size %d: %w", len(data), ErrSnapshotFormat))
	}

	if err := s.Validate(); err != nil {
		return nil, snapshotErr(c.Name(), "read", err)
	}
	return s, nil
}

func (c *snaCodec) read128(s *Snapshot, body []byte) error {
	s.Model = Spectrum128K
	ext := body[ram48KSize:]
	s.Registers.PC = Register16(le16(ext))
	s.Port7FFD = ext[2]
	paged := int(s.Port7FFD & 7)

	s.Pages = make([][]byte, ram128KPages)
	s.Pages[5] = bytes.Clone(body[0:PageSize])
	s.Pages[2] = bytes.Clone(body[PageSize : 2*PageSize])
	s.Pages[paged] = bytes.Clone(body[2*PageSize : 3*PageSize])

	rest := ext[4:]
	for i := range ram128KPages {
		if s.Pages[i] != nil {
			continue
		}
		if len(rest) < PageSize {
			return fmt.Errorf("RAM page %d: %w", i, ErrSnapshotTruncated)
		}
		s.Pages[i] = bytes.Clone(rest[:PageSize])
		rest = rest[PageSize:]
	}
	if len(rest) != 0 {
		return fmt.Errorf("%d bytes past the last page: %w", len(rest), ErrSnapshotFormat)
	}
	return nil
}

// Capture pushes PC on the live machine's stack, takes the snapshot and
// restores the two stack bytes and the registers.
func (c *snaCodec) Capture(m *Machine) (*Snapshot, error) {
	if m.Model() != Spectrum48K {
		return m.Snapshot(), nil
	}
	undo, err := pushPC(m)
	if err != nil {
		return nil, snapshotErr(c.Name(), "capture", err)
	}
	defer undo()
	s := m.Snapshot()
	s.PCOnStack = true
	return s, nil
}

// pushPC stores PC below SP in base RAM, the image the snapshot copies.
// Overlays mapped over the stack are not part of that image and are left
// untouched.
func pushPC(m *Machine) (func(), error) {
	cpu := m.CPU()
	lo, _, err := stackSlot(uint16(cpu.SP))
	if err != nil {
		return nil, err
	}
	saved := cpu.Registers
	old := ReadWord(m.linear, uint32(lo))
	WriteWord(m.linear, uint32(lo), uint16(cpu.PC))
	cpu.SP -= 2
	return func() {
		WriteWord(m.linear, uint32(lo), old)
		cpu.Registers = saved
	}, nil
}

// stackSlot returns the two addresses a push from sp writes, failing when
// either lands in ROM.
func stackSlot(sp uint16) (lo, hi uint16, err error) {
	lo = sp - 2
	hi = sp - 1
	if lo < ramBase || hi < ramBase {
		return 0, 0, fmt.Errorf("stack 0x%04X leaves no room in RAM: %w", sp, ErrSnapshotFormat)
	}
	return lo, hi, nil
}

func (c *snaCodec) Write(w io.Writer, s *Snapshot) error {
	if err := s.Validate(); err != nil {
		return snapshotErr(c.Name(), "write", err)
	}
	var err error
	if s.Model == Spectrum48K {
		err = c.write48(w, s)
	} else {
		err = c.write128(w, s)
	}
	if err != nil {
		return snapshotErr(c.Name(), "write", err)
	}
	return nil
}

func (c *snaCodec) header(bw *byteWriter, s *Snapshot, sp uint16) {
	regs := &s.Registers
	bw.byte(regs.I)
	for _, v := range []Register16{regs.HL2, regs.DE2, regs.BC2, regs.AF2, regs.HL, regs.DE, regs.BC, regs.IY, regs.IX} {
		bw.le16(uint16(v))
	}
	bw.byte(boolBit(s.IFF2, 0x04))
	bw.byte(regs.R)
	bw.le16(uint16(regs.AF))
	bw.le16(sp)
	bw.byte(s.IM)
	bw.byte(s.Border & 7)
}

func (c *snaCodec) write48(w io.Writer, s *Snapshot) error {
	img, err := s.ram48()
	if err != nil {
		return err
	}
	sp := uint16(s.Registers.SP)
	if !s.PCOnStack {
		lo, hi, err := stackSlot(sp)
		if err != nil {
			return err
		}
		img = bytes.Clone(img)
		pc := uint16(s.Registers.PC)
		img[lo-ramBase] = byte(pc)
		img[hi-ramBase] = byte(pc >> 8)
		sp = lo
	}
	bw := &byteWriter{w: w}
	c.header(bw, s, sp)
	bw.bytes(img)
	return bw.err
}

func (c *snaCodec) write128(w io.Writer, s *Snapshot) error {
	s, err := s.withPCInRegisters()
	if err != nil {
		return err
	}
	paged := int(s.Port7FFD & 7)
	bw := &byteWriter{w: w}
	c.header(bw, s, uint16(s.Registers.SP))
	bw.bytes(s.Pages[5])
	bw.bytes(s.Pages[2])
	bw.bytes(s.Pages[paged])
	bw.le16(uint16(s.Registers.PC))
	bw.byte(s.Port7FFD)
	bw.byte(0)
	for i, p := range s.Pages {
		if i == 5 || i == 2 || i == paged {
			continue
		}
		bw.bytes(p)
	}
	return bw.err
}
