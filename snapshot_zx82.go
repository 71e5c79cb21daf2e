// snapshot_zx82.go - ZX82 snapshot format

/*
ZX82 files start with a 12 byte big-endian header:

  0   "ZX82"
  4   type, 4 for a snapshot
  5   compression, 0 for none or 0xFF for ByteRun1
  6   stored length, unpacked length, memory address

The payload is a register block followed by the 48K memory image:

  AF BC DE HL AF' BC' DE' HL' IX IY SP PC   big-endian words
  I R IM IFF1 IFF2 border                   bytes

ByteRun1 control byte n: 0..127 copies the next n+1 bytes, -1..-127
repeats the next byte 1-n times and -128 does nothing.
*/

package spectrum

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

const (
	zx82HeaderSize   = 12
	zx82TypeSnapshot = 4
	zx82Raw          = 0x00
	zx82ByteRun1     = 0xFF
	zx82RegsSize     = 30
	zx82PayloadSize  = zx82RegsSize + ram48KSize
	zx82MaxLiteral   = 128
	zx82MaxRun       = 128
)

var zx82Magic = []byte("ZX82")

var zx82WordRegs = []Reg16{RegAF, RegBC, RegDE, RegHL, RegAF2, RegBC2, RegDE2, RegHL2, RegIX, RegIY, RegSP, RegPC}

type zx82Codec struct {
	opts SnapshotOptions
}

func NewZX82Codec(opts SnapshotOptions) SnapshotCodec {
	return &zx82Codec{opts: opts}
}

func (c *zx82Codec) Name() string         { return "zx82" }
func (c *zx82Codec) Extensions() []string { return []string{"zx82", "prg"} }

func (c *zx82Codec) CouldBeSnapshot(r io.ReadSeeker) bool {
	return sniff(r, func(size int64, r io.Reader) bool {
		var h [zx82HeaderSize]byte
		if readFull(r, h[:]) != nil {
			return false
		}
		return bytes.Equal(h[:4], zx82Magic) && h[4] == zx82TypeSnapshot
	})
}

func (c *zx82Codec) Read(r io.Reader) (*Snapshot, error) {
	var h [zx82HeaderSize]byte
	if err := readFull(r, h[:]); err != nil {
		return nil, snapshotErr(c.Name(), "read", fmt.Errorf("header: %w", err))
	}
	if !bytes.Equal(h[:4], zx82Magic) {
		return nil, snapshotErr(c.Name(), "read", fmt.Errorf("bad signature %q: %w", h[:4], ErrSnapshotFormat))
	}
	if h[4] != zx82TypeSnapshot {
		return nil, snapshotErr(c.Name(), "read", fmt.Errorf("file type %d: %w", h[4], ErrSnapshotFormat))
	}
	stored := int(binary.BigEndian.Uint16(h[6:]))
	unpacked := int(binary.BigEndian.Uint16(h[8:]))
	base := binary.BigEndian.Uint16(h[10:])

	data := make([]byte, stored)
	if err := readFull(r, data); err != nil {
		return nil, snapshotErr(c.Name(), "read", fmt.Errorf("payload: %w", err))
	}

	var payload []byte
	switch h[5] {
	case zx82Raw:
		payload = data
	case zx82ByteRun1:
		payload = make([]byte, unpacked)
		if err := unpackByteRun1(data, payload); err != nil {
			return nil, snapshotErr(c.Name(), "read", err)
		}
	default:
		return nil, snapshotErr(c.Name(), "read", fmt.Errorf("compression type 0x%02X: %w", h[5], ErrSnapshotCompression))
	}
	if len(payload) <= zx82RegsSize {
		return nil, snapshotErr(c.Name(), "read", fmt.Errorf("payload of %d bytes: %w", len(payload), ErrSnapshotTruncated))
	}

	s := &Snapshot{Model: Spectrum48K}
	regs := &s.Registers
	for i, reg := range zx82WordRegs {
		regs.Set16(reg, binary.BigEndian.Uint16(payload[2*i:]))
	}
	b := payload[2*len(zx82WordRegs):zx82RegsSize]
	regs.I = b[0]
	regs.R = b[1]
	s.IM = b[2]
	s.IFF1 = b[3] != 0
	s.IFF2 = b[4] != 0
	s.Border = b[5] & 7
	s.RAM = payload[zx82RegsSize:]
	s.RAMBase = base

	if err := s.Validate(); err != nil {
		return nil, snapshotErr(c.Name(), "read", err)
	}
	return s, nil
}

func (c *zx82Codec) Write(w io.Writer, s *Snapshot) error {
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

	payload := make([]byte, zx82PayloadSize)
	for i, reg := range zx82WordRegs {
		binary.BigEndian.PutUint16(payload[2*i:], s.Registers.Get16(reg))
	}
	b := payload[2*len(zx82WordRegs):zx82RegsSize]
	b[0] = s.Registers.I
	b[1] = s.Registers.R
	b[2] = s.IM
	b[3] = boolBit(s.IFF1, 1)
	b[4] = boolBit(s.IFF2, 1)
	b[5] = s.Border & 7
	copy(payload[zx82RegsSize:], img)

	mode := byte(zx82Raw)
	data := payload
	if c.opts.Compress {
		if packed := packByteRun1(payload); len(packed) < len(payload) {
			mode = zx82ByteRun1
			data = packed
		}
	}

	h := make([]byte, zx82HeaderSize)
	copy(h, zx82Magic)
	h[4] = zx82TypeSnapshot
	h[5] = mode
	binary.BigEndian.PutUint16(h[6:], uint16(len(data)))
	binary.BigEndian.PutUint16(h[8:], uint16(len(payload)))
	binary.BigEndian.PutUint16(h[10:], ramBase)

	bw := &byteWriter{w: w}
	bw.bytes(h)
	bw.bytes(data)
	if bw.err != nil {
		return snapshotErr(c.Name(), "write", bw.err)
	}
	return nil
}

// unpackByteRun1 fills dst exactly from src.
func unpackByteRun1(src, dst []byte) error {
	si, di := 0, 0
	for si < len(src) {
		n := int(int8(src[si]))
		si++
		switch {
		case n >= 0:
			count := n + 1
			if si+count > len(src) {
				return fmt.Errorf("literal of %d at %d: %w", count, si-1, ErrSnapshotTruncated)
			}
			if di+count > len(dst) {
				return fmt.Errorf("literal of %d overruns output at %d: %w", count, di, ErrSnapshotCompression)
			}
			copy(dst[di:], src[si:si+count])
			si += count
			di += count
		case n == -128:
		default:
			count := 1 - n
			if si >= len(src) {
				return fmt.Errorf("run at %d: %w", si-1, ErrSnapshotTruncated)
			}
			if di+count > len(dst) {
				return fmt.Errorf("run of %d overruns output at %d: %w", count, di, ErrSnapshotCompression)
			}
			v := src[si]
			si++
			for range count {
				dst[di] = v
				di++
			}
		}
	}
	if di != len(dst) {
		return fmt.Errorf("%d of %d bytes decoded: %w", di, len(dst), ErrSnapshotTruncated)
	}
	return nil
}

// packByteRun1 encodes runs of three or more bytes and gathers everything
// else into literal blocks.
func packByteRun1(src []byte) []byte {
	out := make([]byte, 0, len(src)/2)
	runAt := func(i int) int {
		n := 1
		for i+n < len(src) && src[i+n] == src[i] && n < zx82MaxRun {
			n++
		}
		return n
	}
	for i := 0; i < len(src); {
		if n := runAt(i); n >= 3 {
			out = append(out, byte(int8(1-n)), src[i])
			i += n
			continue
		}
		start := i
		for i < len(src) && i-start < zx82MaxLiteral && runAt(i) < 3 {
			i++
		}
		out = append(out, byte(i-start-1))
		out = append(out, src[start:i]...)
	}
	return out
}
