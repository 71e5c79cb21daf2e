// snapshot_z80.go - Z80 snapshot format (versions 1, 2 and 3)

/*
Version 1 is a 30 byte header followed by the 48K RAM image, optionally
compressed and terminated by 00 ED ED 00. A zero PC in the header marks
versions 2 and 3: an extended header follows (23 bytes for v2, 54 or 55
for v3) carrying the real PC, the hardware mode and the 0x7FFD latch, then
one block per 16K page:

  word  compressed length, 0xFFFF for an uncompressed v3 page
  byte  page number (48K: 8=0x4000 4=0x8000 5=0xC000, 128K: RAM n is n+3)
  data

Compression replaces runs of five or more equal bytes, and runs of two or
more 0xED bytes, with ED ED count value. The byte after a lone 0xED is
always stored literally so it can never start an escape.
*/

package spectrum

import (
	"bytes"
	"fmt"
	"io"
)

const (
	z80HeaderSize   = 30
	z80ExtV2        = 23
	z80ExtV3        = 54
	z80ExtV3Long    = 55
	z80Uncompressed = 0xFFFF
	z80MaxRun       = 0xFF
)

var z80EndMarker = []byte{0x00, 0xED, 0xED, 0x00}

// 48K page numbers by address window.
var z80Pages48K = map[byte]uint16{8: 0x4000, 4: 0x8000, 5: 0xC000}

type z80Codec struct {
	opts SnapshotOptions
}

func NewZ80Codec(opts SnapshotOptions) SnapshotCodec {
	return &z80Codec{opts: opts}
}

func (c *z80Codec) Name() string         { return "z80" }
func (c *z80Codec) Extensions() []string { return []string{"z80"} }

// CouldBeSnapshot runs a strict parse of the whole stream. Version 1 files
// have no signature and a 128K SNA image is a valid lenient v1 file.
func (c *z80Codec) CouldBeSnapshot(r io.ReadSeeker) bool {
	strict := &z80Codec{opts: SnapshotOptions{Strict: true}}
	return sniff(r, func(size int64, r io.Reader) bool {
		if size < z80HeaderSize {
			return false
		}
		_, err := strict.Read(r)
		return err == nil
	})
}

func (c *z80Codec) Read(r io.Reader) (*Snapshot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, snapshotErr(c.Name(), "read", err)
	}
	s, err := c.decode(data)
	if err != nil {
		return nil, snapshotErr(c.Name(), "read", err)
	}
	if err := s.Validate(); err != nil {
		return nil, snapshotErr(c.Name(), "read", err)
	}
	return s, nil
}

func (c *z80Codec) decode(data []byte) (*Snapshot, error) {
	if len(data) < z80HeaderSize {
		return nil, fmt.Errorf("header: %w", ErrSnapshotTruncated)
	}
	h := data[:z80HeaderSize]
	s := &Snapshot{Model: Spectrum48K, RAMBase: ramBase}
	regs := &s.Registers
	regs.AF = Register16(uint16(h[0])<<8 | uint16(h[1]))
	regs.BC = Register16(le16(h[2:]))
	regs.HL = Register16(le16(h[4:]))
	regs.PC = Register16(le16(h[6:]))
	regs.SP = Register16(le16(h[8:]))
	regs.I = h[10]
	flags := h[12]
	if flags == 0xFF {
		flags = 1
	}
	regs.R = h[11]&0x7F | (flags&1)<<7
	s.Border = (flags >> 1) & 7
	regs.DE = Register16(le16(h[13:]))
	regs.BC2 = Register16(le16(h[15:]))
	regs.DE2 = Register16(le16(h[17:]))
	regs.HL2 = Register16(le16(h[19:]))
	regs.AF2 = Register16(uint16(h[21])<<8 | uint16(h[22]))
	regs.IY = Register16(le16(h[23:]))
	regs.IX = Register16(le16(h[25:]))
	s.IFF1 = h[27] != 0
	s.IFF2 = h[28] != 0
	s.IM = h[29] & 3
	if s.IM > 2 {
		return nil, fmt.Errorf("interrupt mode %d: %w", s.IM, ErrSnapshotFormat)
	}

	if regs.PC != 0 {
		s.RAM = make([]byte, ram48KSize)
		body := data[z80HeaderSize:]
		if flags&0x20 == 0 {
			if len(body) < ram48KSize {
				return nil, fmt.Errorf("memory image: %w", ErrSnapshotTruncated)
			}
			if c.opts.Strict && len(body) != ram48KSize {
				return nil, fmt.Errorf("%d bytes after memory image: %w", len(body)-ram48KSize, ErrSnapshotFormat)
			}
			copy(s.RAM, body)
			return s, nil
		}
		n, err := decompressZ80(body, s.RAM)
		if err != nil {
			return nil, err
		}
		if rest := body[n:]; len(rest) != 0 && !bytes.Equal(rest, z80EndMarker) && c.opts.Strict {
			return nil, fmt.Errorf("%d bytes after memory image: %w", len(rest), ErrSnapshotFormat)
		}
		return s, nil
	}
	return s, c.decodeExtended(s, data[z80HeaderSize:])
}

func (c *z80Codec) decodeExtended(s *Snapshot, data []byte) error {
	if len(data) < 2 {
		return fmt.Errorf("extended header: %w", ErrSnapshotTruncated)
	}
	extLen := int(le16(data))
	if extLen != z80ExtV2 && extLen != z80ExtV3 && extLen != z80ExtV3Long {
		return fmt.Errorf("extended header length %d: %w", extLen, ErrSnapshotFormat)
	}
	if len(data) < 2+extLen {
		return fmt.Errorf("extended header: %w", ErrSnapshotTruncated)
	}
	ext := data[2 : 2+extLen]
	s.Registers.PC = Register16(le16(ext))

	model, err := z80HardwareModel(ext[2], extLen == z80ExtV2)
	if err != nil {
		return err
	}
	s.Model = model
	if model == Spectrum128K {
		s.Port7FFD = ext[3]
		s.Pages = make([][]byte, ram128KPages)
		s.RAM = nil
	} else {
		s.RAM = make([]byte, ram48KSize)
	}

	blocks := data[2+extLen:]
	for len(blocks) > 0 {
		if len(blocks) < 3 {
			return fmt.Errorf("block header: %w", ErrSnapshotTruncated)
		}
		length := le16(blocks)
		pageNo := blocks[2]
		blocks = blocks[3:]

		dst, err := s.z80Page(pageNo)
		if err != nil {
			return err
		}
		if length == z80Uncompressed {
			if len(blocks) < PageSize {
				return fmt.Errorf("page %d: %w", pageNo, ErrSnapshotTruncated)
			}
			copy(dst, blocks[:PageSize])
			blocks = blocks[PageSize:]
			continue
		}
		if int(length) > len(blocks) {
			return fmt.Errorf("page %d: %w", pageNo, ErrSnapshotTruncated)
		}
		n, err := decompressZ80(blocks[:length], dst)
		if err != nil {
			return fmt.Errorf("page %d: %w", pageNo, err)
		}
		if n != int(length) {
			return fmt.Errorf("page %d: %d bytes unused: %w", pageNo, int(length)-n, ErrSnapshotCompression)
		}
		blocks = blocks[length:]
	}

	if model == Spectrum128K {
		for i, p := range s.Pages {
			if p == nil {
				if c.opts.Strict {
					return fmt.Errorf("RAM page %d missing: %w", i, ErrSnapshotFormat)
				}
				s.Pages[i] = make([]byte, PageSize)
			}
		}
	}
	return nil
}

// z80Page returns the destination buffer for a block, allocating 128K
// pages on first use.
func (s *Snapshot) z80Page(pageNo byte) ([]byte, error) {
	if s.Model == Spectrum48K {
		addr, ok := z80Pages48K[pageNo]
		if !ok {
			return nil, fmt.Errorf("page number %d in 48K snapshot: %w", pageNo, ErrSnapshotFormat)
		}
		off := int(addr - ramBase)
		return s.RAM[off : off+PageSize], nil
	}
	if pageNo < 3 || pageNo >= 3+ram128KPages {
		return nil, fmt.Errorf("page number %d in 128K snapshot: %w", pageNo, ErrSnapshotFormat)
	}
	i := int(pageNo - 3)
	if s.Pages[i] == nil {
		s.Pages[i] = make([]byte, PageSize)
	}
	return s.Pages[i], nil
}

// z80HardwareModel maps the hardware mode byte, whose numbering changed
// between versions 2 and 3.
func z80HardwareModel(mode byte, v2 bool) (Model, error) {
	switch {
	case mode == 0 || mode == 1:
		return Spectrum48K, nil
	case !v2 && mode == 3:
		return Spectrum48K, nil
	case v2 && (mode == 3 || mode == 4):
		return Spectrum128K, nil
	case !v2 && (mode == 4 || mode == 5 || mode == 6 || mode == 12):
		return Spectrum128K, nil
	}
	return 0, fmt.Errorf("hardware mode %d: %w", mode, ErrSnapshotFormat)
}

// decompressZ80 fills dst from src and returns the number of source bytes
// used. Running out of source, or a run past the end of dst, is an error.
func decompressZ80(src, dst []byte) (int, error) {
	si, di := 0, 0
	for di < len(dst) {
		if si >= len(src) {
			return si, fmt.Errorf("%d of %d bytes decoded: %w", di, len(dst), ErrSnapshotTruncated)
		}
		if src[si] == 0xED && si+1 < len(src) && src[si+1] == 0xED {
			if si+3 >= len(src) {
				return si, fmt.Errorf("escape at %d: %w", si, ErrSnapshotTruncated)
			}
			n := int(src[si+2])
			v := src[si+3]
			if n == 0 || di+n > len(dst) {
				return si, fmt.Errorf("run of %d at %d: %w", n, di, ErrSnapshotCompression)
			}
			for range n {
				dst[di] = v
				di++
			}
			si += 4
			continue
		}
		dst[di] = src[si]
		di++
		si++
	}
	return si, nil
}

// compressZ80 encodes src with the ED ED escape.
func compressZ80(src []byte) []byte {
	out := make([]byte, 0, len(src)/2)
	for i := 0; i < len(src); {
		v := src[i]
		run := 1
		for i+run < len(src) && src[i+run] == v && run < z80MaxRun {
			run++
		}
		if run >= 5 || (v == 0xED && run >= 2) {
			out = append(out, 0xED, 0xED, byte(run), v)
			i += run
			continue
		}
		out = append(out, v)
		i++
		if v == 0xED && i < len(src) {
			out = append(out, src[i])
			i++
		}
	}
	return out
}

func (c *z80Codec) Write(w io.Writer, s *Snapshot) error {
	if err := s.Validate(); err != nil {
		return snapshotErr(c.Name(), "write", err)
	}
	s, err := s.withPCInRegisters()
	if err != nil {
		return snapshotErr(c.Name(), "write", err)
	}

	bw := &byteWriter{w: w}
	c.writeHeader(bw, s)

	if s.Model == Spectrum48K {
		img, err := s.ram48()
		if err != nil {
			return snapshotErr(c.Name(), "write", err)
		}
		for _, pageNo := range []byte{8, 4, 5} {
			off := int(z80Pages48K[pageNo] - ramBase)
			c.writeBlock(bw, pageNo, img[off:off+PageSize])
		}
	} else {
		for i, p := range s.Pages {
			c.writeBlock(bw, byte(i+3), p)
		}
	}
	if bw.err != nil {
		return snapshotErr(c.Name(), "write", bw.err)
	}
	return nil
}

// writeHeader emits a version 3 header with the 54 byte extension.
func (c *z80Codec) writeHeader(bw *byteWriter, s *Snapshot) {
	regs := &s.Registers
	bw.byte(regs.A())
	bw.byte(regs.F())
	bw.le16(uint16(regs.BC))
	bw.le16(uint16(regs.HL))
	bw.le16(0)
	bw.le16(uint16(regs.SP))
	bw.byte(regs.I)
	bw.byte(regs.R & 0x7F)
	bw.byte(regs.R>>7 | (s.Border&7)<<1)
	bw.le16(uint16(regs.DE))
	bw.le16(uint16(regs.BC2))
	bw.le16(uint16(regs.DE2))
	bw.le16(uint16(regs.HL2))
	bw.byte(regs.AF2.High())
	bw.byte(regs.AF2.Low())
	bw.le16(uint16(regs.IY))
	bw.le16(uint16(regs.IX))
	bw.byte(boolBit(s.IFF1, 1))
	bw.byte(boolBit(s.IFF2, 1))
	bw.byte(s.IM & 3)

	ext := make([]byte, z80ExtV3)
	ext[0] = byte(regs.PC)
	ext[1] = byte(regs.PC >> 8)
	if s.Model == Spectrum128K {
		ext[2] = 4
		ext[3] = s.Port7FFD
	}
	bw.le16(z80ExtV3)
	bw.bytes(ext)
}

func (c *z80Codec) writeBlock(bw *byteWriter, pageNo byte, page []byte) {
	if c.opts.Compress {
		packed := compressZ80(page)
		if len(packed) < PageSize {
			bw.le16(uint16(len(packed)))
			bw.byte(pageNo)
			bw.bytes(packed)
			return
		}
	}
	bw.le16(z80Uncompressed)
	bw.byte(pageNo)
	bw.bytes(page)
}
