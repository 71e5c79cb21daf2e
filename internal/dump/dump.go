// Package dump renders snapshots for inspection, as a Graphviz graph or as
// an indented structure dump.
package dump

import (
	"fmt"
	"io"

	"github.com/bradleyjkemp/memviz"
	"github.com/davecgh/go-spew/spew"
	spectrum "github.com/intuitionamiga/IntuitionSpectrum"
)

// Summary is a snapshot without its memory images, which would swamp both
// output formats.
type Summary struct {
	Model     string
	Registers spectrum.Registers
	IFF1      bool
	IFF2      bool
	IM        byte
	Halted    bool
	Border    byte

	RAMBase  uint16
	RAMBytes int
	Pages    []PageSummary
	Port7FFD byte

	PendingInterrupt bool
	PCOnStack        bool
}

// PageSummary describes one 16K RAM page.
type PageSummary struct {
	Index   int
	Bytes   int
	NonZero int
}

// Summarize builds the Summary of s.
func Summarize(s *spectrum.Snapshot) *Summary {
	sum := &Summary{
		Model:            s.Model.String(),
		Registers:        s.Registers,
		IFF1:             s.IFF1,
		IFF2:             s.IFF2,
		IM:               s.IM,
		Halted:           s.Halted,
		Border:           s.Border,
		RAMBase:          s.RAMBase,
		RAMBytes:         len(s.RAM),
		Port7FFD:         s.Port7FFD,
		PendingInterrupt: s.PendingInterrupt,
		PCOnStack:        s.PCOnStack,
	}
	for i, page := range s.Pages {
		sum.Pages = append(sum.Pages, PageSummary{Index: i, Bytes: len(page), NonZero: nonZero(page)})
	}
	return sum
}

func nonZero(b []byte) int {
	n := 0
	for _, v := range b {
		if v != 0 {
			n++
		}
	}
	return n
}

// Graph writes a Graphviz dot description of the snapshot summary.
func Graph(w io.Writer, s *spectrum.Snapshot) error {
	if s == nil {
		return fmt.Errorf("dump: nil snapshot")
	}
	memviz.Map(w, Summarize(s))
	return nil
}

var config = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// Verbose writes an indented dump of the snapshot summary. With memory set
// the full RAM images follow as hex dumps.
func Verbose(w io.Writer, s *spectrum.Snapshot, memory bool) error {
	if s == nil {
		return fmt.Errorf("dump: nil snapshot")
	}
	config.Fdump(w, Summarize(s))
	if !memory {
		return nil
	}
	if s.RAM != nil {
		_, _ = fmt.Fprintf(w, "RAM at %04X:\n", s.RAMBase)
		config.Fdump(w, s.RAM)
	}
	for i, page := range s.Pages {
		_, _ = fmt.Fprintf(w, "page %d:\n", i)
		config.Fdump(w, page)
	}
	return nil
}
