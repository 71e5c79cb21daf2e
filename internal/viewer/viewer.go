// Package viewer shows a running machine in a window. The window backend is
// ebiten; building with the headless tag leaves only the host-independent
// parts (keyboard matrix, hot key actions).
package viewer

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	spectrum "github.com/intuitionamiga/IntuitionSpectrum"
	"github.com/retroenv/retrogolib/log"
)

// ErrUnavailable is returned by Run in builds without a window backend.
var ErrUnavailable = errors.New("viewer: no window backend in this build")

// Options configure a Viewer.
type Options struct {
	Scale int
	Title string
	// SnapshotDir receives F2 snapshots, named by frame number.
	SnapshotDir    string
	SnapshotFormat string
	SnapshotOpts   spectrum.SnapshotOptions
}

// DefaultOptions returns a 2x window saving SNA snapshots to the working
// directory.
func DefaultOptions() Options {
	return Options{
		Scale:          2,
		Title:          "ZX Spectrum",
		SnapshotDir:    ".",
		SnapshotFormat: "sna",
	}
}

// Viewer couples a paced machine runner, its ULA renderer and a keyboard.
type Viewer struct {
	runner   *spectrum.MachineRunner
	ula      *spectrum.ULARenderer
	keyboard *Keyboard
	opts     Options
	logger   *log.Logger

	status     atomic.Value // string
	statusTill atomic.Int64
}

// New attaches a renderer and the keyboard to the machine behind runner.
func New(runner *spectrum.MachineRunner, opts Options) *Viewer {
	if opts.Scale < 1 {
		opts.Scale = 1
	}
	v := &Viewer{
		runner:   runner,
		ula:      spectrum.NewULARenderer(),
		keyboard: &Keyboard{},
		opts:     opts,
	}
	v.status.Store("")
	runner.Do(func(m *spectrum.Machine) {
		v.logger = m.Logger()
		m.AttachDisplay(v.ula)
		m.SetPortReader(v.keyboard)
	})
	return v
}

func (v *Viewer) Keyboard() *Keyboard { return v.keyboard }

func (v *Viewer) Renderer() *spectrum.ULARenderer { return v.ula }

// Detach removes the renderer and keyboard from the machine.
func (v *Viewer) Detach() {
	v.runner.Do(func(m *spectrum.Machine) {
		m.DetachDisplay(v.ula)
		m.SetPortReader(nil)
	})
}

// SaveSnapshot writes the machine state to the snapshot directory and
// returns the file name.
func (v *Viewer) SaveSnapshot() (string, error) {
	var (
		path string
		err  error
	)
	v.runner.Do(func(m *spectrum.Machine) {
		name := fmt.Sprintf("snapshot-%06d.%s", m.Frames(), v.opts.SnapshotFormat)
		path = filepath.Join(v.opts.SnapshotDir, name)
		err = spectrum.SaveSnapshotFile(m, path, v.opts.SnapshotFormat, v.opts.SnapshotOpts)
	})
	if err != nil {
		v.setStatus("save failed")
		v.logger.Error("Saving snapshot failed", log.Err(err))
		return "", err
	}
	v.setStatus("saved " + filepath.Base(path))
	return path, nil
}

// Reset resets the machine and releases all keys.
func (v *Viewer) Reset() {
	v.keyboard.ReleaseAll()
	v.runner.Do(func(m *spectrum.Machine) { m.Reset() })
	v.setStatus("reset")
}

// TogglePause flips the runner's pause state and returns the new state.
func (v *Viewer) TogglePause() bool {
	paused := !v.runner.Paused()
	v.runner.SetPaused(paused)
	if paused {
		v.setStatus("paused")
	} else {
		v.setStatus("running")
	}
	return paused
}

// RegisterDump returns the register file and interrupt state as text.
func (v *Viewer) RegisterDump() string {
	var s string
	v.runner.Do(func(m *spectrum.Machine) {
		cpu := m.CPU()
		s = fmt.Sprintf("%s IFF1=%t IFF2=%t IM=%d frame=%d",
			cpu.Registers.String(), cpu.IFF1, cpu.IFF2, cpu.IM, m.Frames())
	})
	return s
}

// StatusLine is the text of the status bar.
func (v *Viewer) StatusLine() string {
	msg, _ := v.status.Load().(string)
	if time.Now().UnixNano() > v.statusTill.Load() {
		msg = ""
	}
	state := "RUN"
	if v.runner.Paused() {
		state = "PAUSE"
	}
	var frames uint64
	var pc uint16
	v.runner.Do(func(m *spectrum.Machine) {
		frames = m.Frames()
		pc = uint16(m.CPU().PC)
	})
	line := fmt.Sprintf("%-5s frame %-7d PC %04X", state, frames, pc)
	if msg != "" {
		line += "  " + msg
	}
	return line
}

func (v *Viewer) setStatus(msg string) {
	v.status.Store(msg)
	v.statusTill.Store(time.Now().Add(3 * time.Second).UnixNano())
}
