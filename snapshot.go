// snapshot.go - Snapshot value, codec interfaces and format registry

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
snapshot.go - Machine Snapshots

A Snapshot is a point-in-time copy of a Machine: registers, interrupt state,
border colour and memory. 48K snapshots carry a flat RAM image starting at
RAMBase (normally 0x4000, the SP format may store a shorter block elsewhere);
128K snapshots carry all eight RAM pages plus the 0x7FFD latch.

Readers build a Snapshot from a stream, writers serialize one. Both are
looked up by name or, for readers, by sniffing the stream. ApplyTo checks
the whole snapshot before it touches the machine, so a failed load leaves
the machine as it was.

Preference order for detection, most distinctive signature first:
  ZX82  magic "ZX82"
  SP    magic "SP" and a consistent length
  ZX    exact file size
  Z80   header sanity
  SNA   file size
*/

package spectrum

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/retroenv/retrogolib/log"
)

var (
	ErrSnapshotFormat      = errors.New("invalid snapshot format")
	ErrSnapshotTruncated   = errors.New("snapshot truncated")
	ErrSnapshotCompression = errors.New("invalid snapshot compression")
	ErrUnknownFormat       = errors.New("unknown snapshot format")
	ErrModelMismatch       = errors.New("snapshot model does not match machine")
)

// SnapshotError wraps a failure with the format and operation.
type SnapshotError struct {
	Format string
	Op     string
	Err    error
}

func (e *SnapshotError) Error() string {
	return fmt.Sprintf("%s snapshot: %s: %v", e.Format, e.Op, e.Err)
}

func (e *SnapshotError) Unwrap() error { return e.Err }

func snapshotErr(format, op string, err error) error {
	return &SnapshotError{Format: format, Op: op, Err: err}
}

// SnapshotOptions tune readers and writers.
type SnapshotOptions struct {
	// Strict rejects files that are readable but internally inconsistent,
	// such as trailing bytes after an SP block or an interrupt mode above 2.
	Strict bool
	// Compress enables the optional compression of Z80 and ZX82 output.
	Compress bool
}

const (
	ram48KSize   = 0xC000
	ram128KPages = 8
)

// Snapshot is treated as immutable once built.
type Snapshot struct {
	Model Model

	Registers Registers
	IFF1      bool
	IFF2      bool
	IM        byte
	Halted    bool
	Border    byte

	// RAM and RAMBase hold 48K memory.
	RAM     []byte
	RAMBase uint16

	// Pages and Port7FFD hold 128K memory.
	Pages    [][]byte
	Port7FFD byte

	// PendingInterrupt requests a maskable interrupt after restore.
	PendingInterrupt bool
	// PCOnStack marks formats without a PC field: PC is at (SP) and
	// restoring executes RETN.
	PCOnStack bool
}

// Validate checks the snapshot for internal consistency.
func (s *Snapshot) Validate() error {
	if s.IM > 2 {
		return fmt.Errorf("interrupt mode %d: %w", s.IM, ErrSnapshotFormat)
	}
	switch s.Model {
	case Spectrum48K:
		if len(s.RAM) == 0 {
			return fmt.Errorf("no memory image: %w", ErrSnapshotFormat)
		}
		if s.RAMBase < ramBase {
			return fmt.Errorf("memory block at 0x%04X overlaps ROM: %w", s.RAMBase, ErrSnapshotFormat)
		}
		if int(s.RAMBase)+len(s.RAM) > addressSize {
			return fmt.Errorf("memory block 0x%04X+%d past 64K: %w", s.RAMBase, len(s.RAM), ErrSnapshotFormat)
		}
	case Spectrum128K:
		if len(s.Pages) != ram128KPages {
			return fmt.Errorf("%d RAM pages, want %d: %w", len(s.Pages), ram128KPages, ErrSnapshotFormat)
		}
		for i, p := range s.Pages {
			if len(p) != PageSize {
				return fmt.Errorf("RAM page %d is %d bytes: %w", i, len(p), ErrSnapshotFormat)
			}
		}
	default:
		return fmt.Errorf("model %s: %w", s.Model, ErrSnapshotFormat)
	}
	if s.PCOnStack && s.Model == Spectrum48K && !s.covers(uint16(s.Registers.SP), 2) {
		return fmt.Errorf("stack 0x%04X outside memory image: %w", uint16(s.Registers.SP), ErrSnapshotFormat)
	}
	return nil
}

func (s *Snapshot) covers(addr uint16, n int) bool {
	return addr >= s.RAMBase && int(addr)+n <= int(s.RAMBase)+len(s.RAM)
}

// Snapshot captures the machine. PC stays in the register file.
func (m *Machine) Snapshot() *Snapshot {
	cpu := m.cpu
	s := &Snapshot{
		Model:            m.cfg.Model,
		Registers:        cpu.Registers,
		IFF1:             cpu.IFF1,
		IFF2:             cpu.IFF2,
		IM:               cpu.IM,
		Halted:           cpu.Halted,
		Border:           m.bus.border,
		PendingInterrupt: cpu.InterruptPending(),
	}
	if m.paged == nil {
		s.RAM = bytes.Clone(m.ramImage())
		s.RAMBase = ramBase
		return s
	}
	s.Port7FFD = m.bus.port7FFD
	s.Pages = make([][]byte, m.paged.RAMPageCount())
	for i := range s.Pages {
		page, err := m.paged.RAMPage(i)
		if err != nil {
			panic(err)
		}
		s.Pages[i] = bytes.Clone(page)
	}
	return s
}

// ApplyTo restores the snapshot into m. Nothing is changed on error.
func (s *Snapshot) ApplyTo(m *Machine) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if s.Model != m.Model() {
		return fmt.Errorf("%s snapshot on %s machine: %w", s.Model, m.Model(), ErrModelMismatch)
	}

	if m.paged == nil {
		copy(m.linear.Raw()[s.RAMBase:], s.RAM)
	} else {
		for i, p := range s.Pages {
			page, err := m.paged.RAMPage(i)
			if err != nil {
				panic(err)
			}
			copy(page, p)
		}
		if err := m.bus.setPaging(s.Port7FFD); err != nil {
			panic(err)
		}
	}

	cpu := m.cpu
	cpu.ClearInterrupts()
	cpu.Registers = s.Registers
	cpu.IFF1 = s.IFF1
	cpu.IFF2 = s.IFF2
	cpu.IM = s.IM
	cpu.Halted = s.Halted
	m.bus.border = s.Border & 7
	m.counter = 0

	if s.PCOnStack {
		cpu.RetN()
	}
	if s.PendingInterrupt {
		cpu.Interrupt(irqData)
	}
	return nil
}

// ram48 returns a full 48K image, placing a shorter block at its base.
func (s *Snapshot) ram48() ([]byte, error) {
	if s.Model != Spectrum48K {
		return nil, fmt.Errorf("%s snapshot: %w", s.Model, ErrModelMismatch)
	}
	if s.RAMBase == ramBase && len(s.RAM) == ram48KSize {
		return s.RAM, nil
	}
	img := make([]byte, ram48KSize)
	copy(img[s.RAMBase-ramBase:], s.RAM)
	return img, nil
}

// withPCInRegisters returns a copy whose PC is popped off the image stack.
func (s *Snapshot) withPCInRegisters() (*Snapshot, error) {
	if !s.PCOnStack {
		return s, nil
	}
	out := *s
	out.PCOnStack = false
	sp := uint16(s.Registers.SP)
	switch s.Model {
	case Spectrum48K:
		if !s.covers(sp, 2) {
			return nil, fmt.Errorf("stack 0x%04X outside memory image: %w", sp, ErrSnapshotFormat)
		}
		off := int(sp - s.RAMBase)
		out.Registers.PC = Register16(uint16(s.RAM[off]) | uint16(s.RAM[off+1])<<8)
	default:
		lo, err := s.read128(sp)
		if err != nil {
			return nil, err
		}
		hi, err := s.read128(sp + 1)
		if err != nil {
			return nil, err
		}
		out.Registers.PC = Register16(uint16(lo) | uint16(hi)<<8)
	}
	out.Registers.SP = Register16(sp + 2)
	out.IFF1 = s.IFF2
	return &out, nil
}

// read128 reads a byte through the paging state of a 128K snapshot.
func (s *Snapshot) read128(addr uint16) (byte, error) {
	var page int
	switch addr >> pageShift {
	case 0:
		return 0, fmt.Errorf("stack 0x%04X in ROM: %w", addr, ErrSnapshotFormat)
	case 1:
		page = Layout128K.FixedPages[0]
	case 2:
		page = Layout128K.FixedPages[1]
	default:
		page = int(s.Port7FFD & 7)
	}
	return s.Pages[page][addr&(PageSize-1)], nil
}

// SnapshotReader decodes one file format.
type SnapshotReader interface {
	Name() string
	// CouldBeSnapshot sniffs r and restores its position.
	CouldBeSnapshot(r io.ReadSeeker) bool
	Read(r io.Reader) (*Snapshot, error)
}

// SnapshotWriter encodes one file format.
type SnapshotWriter interface {
	Name() string
	Write(w io.Writer, s *Snapshot) error
}

// SnapshotCapturer is implemented by formats that need the live machine
// prepared before capture.
type SnapshotCapturer interface {
	Capture(m *Machine) (*Snapshot, error)
}

// SnapshotCodec is a reader and writer for one format.
type SnapshotCodec interface {
	SnapshotReader
	SnapshotWriter
	Extensions() []string
}

// snapshotCodecs lists the formats in detection order.
func snapshotCodecs(opts SnapshotOptions) []SnapshotCodec {
	return []SnapshotCodec{
		NewZX82Codec(opts),
		NewSPCodec(opts),
		NewZXCodec(opts),
		NewZ80Codec(opts),
		NewSNACodec(opts),
	}
}

// SnapshotFormats returns the names of every supported format.
func SnapshotFormats() []string {
	codecs := snapshotCodecs(SnapshotOptions{})
	names := make([]string, len(codecs))
	for i, c := range codecs {
		names[i] = c.Name()
	}
	return names
}

func codecFor(name string, opts SnapshotOptions) (SnapshotCodec, error) {
	name = strings.ToLower(strings.TrimPrefix(name, "."))
	for _, c := range snapshotCodecs(opts) {
		if c.Name() == name {
			return c, nil
		}
		for _, ext := range c.Extensions() {
			if ext == name {
				return c, nil
			}
		}
	}
	return nil, fmt.Errorf("%q: %w", name, ErrUnknownFormat)
}

func SnapshotReaderFor(name string, opts SnapshotOptions) (SnapshotReader, error) {
	return codecFor(name, opts)
}

func SnapshotWriterFor(name string, opts SnapshotOptions) (SnapshotWriter, error) {
	return codecFor(name, opts)
}

// DetectSnapshotReader returns the first reader whose signature matches.
func DetectSnapshotReader(r io.ReadSeeker, opts SnapshotOptions) (SnapshotReader, error) {
	for _, c := range snapshotCodecs(opts) {
		if c.CouldBeSnapshot(r) {
			return c, nil
		}
	}
	return nil, ErrUnknownFormat
}

// FormatForPath maps a file extension to a format name.
func FormatForPath(path string) (string, bool) {
	c, err := codecFor(filepath.Ext(path), SnapshotOptions{})
	if err != nil {
		return "", false
	}
	return c.Name(), true
}

// ReadSnapshotFile decodes path, sniffing first and falling back to the
// file extension.
func ReadSnapshotFile(path string, opts SnapshotOptions) (*Snapshot, SnapshotReader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}
	r := bytes.NewReader(data)
	reader, err := DetectSnapshotReader(r, opts)
	if err != nil {
		name, ok := FormatForPath(path)
		if !ok {
			return nil, nil, fmt.Errorf("read snapshot %s: %w", path, ErrUnknownFormat)
		}
		if reader, err = SnapshotReaderFor(name, opts); err != nil {
			return nil, nil, fmt.Errorf("read snapshot %s: %w", path, err)
		}
	}
	snap, err := reader.Read(r)
	if err != nil {
		return nil, nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}
	return snap, reader, nil
}

// LoadSnapshotFile reads path and applies it to m.
func LoadSnapshotFile(m *Machine, path string, opts SnapshotOptions) error {
	snap, reader, err := ReadSnapshotFile(path, opts)
	if err != nil {
		return err
	}
	if err := snap.ApplyTo(m); err != nil {
		return fmt.Errorf("load snapshot %s: %w", path, err)
	}
	m.logger.Info("Snapshot loaded",
		log.String("file", path),
		log.String("format", reader.Name()),
		log.Stringer("model", snap.Model))
	return nil
}

// CaptureSnapshot captures m the way the writer's format needs it.
func CaptureSnapshot(m *Machine, w SnapshotWriter) (*Snapshot, error) {
	if c, ok := w.(SnapshotCapturer); ok {
		return c.Capture(m)
	}
	return m.Snapshot(), nil
}

// SaveSnapshotFile writes m to path. An empty format is taken from the
// file extension. Nothing is written when encoding fails.
func SaveSnapshotFile(m *Machine, path, format string, opts SnapshotOptions) error {
	if format == "" {
		name, ok := FormatForPath(path)
		if !ok {
			return fmt.Errorf("save snapshot %s: %w", path, ErrUnknownFormat)
		}
		format = name
	}
	writer, err := SnapshotWriterFor(format, opts)
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", path, err)
	}
	snap, err := CaptureSnapshot(m, writer)
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", path, err)
	}
	var buf bytes.Buffer
	if err := writer.Write(&buf, snap); err != nil {
		return fmt.Errorf("save snapshot %s: %w", path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("save snapshot %s: %w", path, err)
	}
	m.logger.Info("Snapshot saved",
		log.String("file", path),
		log.String("format", writer.Name()),
		log.Int("size", buf.Len()))
	return nil
}

// sniff runs fn on r and restores the original position.
func sniff(r io.ReadSeeker, fn func(size int64, r io.Reader) bool) bool {
	pos, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return false
	}
	defer func() { _, _ = r.Seek(pos, io.SeekStart) }()
	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return false
	}
	if _, err := r.Seek(pos, io.SeekStart); err != nil {
		return false
	}
	return fn(size-pos, r)
}

// readFull reads len(buf) bytes and maps short reads to ErrSnapshotTruncated.
func readFull(r io.Reader, buf []byte) error {
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return ErrSnapshotTruncated
		}
		return err
	}
	return nil
}

// byteWriter collects write errors so encoders can check once at the end.
type byteWriter struct {
	w   io.Writer
	err error
}

func (b *byteWriter) bytes(p []byte) {
	if b.err != nil {
		return
	}
	_, b.err = b.w.Write(p)
}

func (b *byteWriter) byte(v byte) { b.bytes([]byte{v}) }

// le16 writes a word in Z80 byte order.
func (b *byteWriter) le16(v uint16) { b.bytes([]byte{byte(v), byte(v >> 8)}) }

func (b *byteWriter) be16(v uint16) { b.bytes([]byte{byte(v >> 8), byte(v)}) }

func le16(p []byte) uint16 { return uint16(p[0]) | uint16(p[1])<<8 }

func be16(p []byte) uint16 { return uint16(p[0])<<8 | uint16(p[1]) }

func boolBit(v bool, bit byte) byte {
	if v {
		return bit
	}
	return 0
}
