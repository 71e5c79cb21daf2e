//go:build !headless

// viewer_ebiten.go - Ebiten window backend for the Spectrum viewer

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

package viewer

import (
	"context"
	"fmt"
	"image/color"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"github.com/retroenv/retrogolib/log"
	"golang.design/x/clipboard"
	"golang.org/x/image/font/basicfont"
)

const statusBarHeight = 16

// hostKeys maps host keys onto the Spectrum matrix. Shift is CAPS SHIFT and
// either Control key is SYMBOL SHIFT.
var hostKeys = map[ebiten.Key]Key{
	ebiten.KeyShiftLeft: KeyCapsShift, ebiten.KeyShiftRight: KeyCapsShift,
	ebiten.KeyControlLeft: KeySymShift, ebiten.KeyControlRight: KeySymShift,
	ebiten.KeyEnter: KeyEnter, ebiten.KeyNumpadEnter: KeyEnter, ebiten.KeySpace: KeySpace,
	ebiten.KeyA: KeyA, ebiten.KeyB: KeyB, ebiten.KeyC: KeyC, ebiten.KeyD: KeyD,
	ebiten.KeyE: KeyE, ebiten.KeyF: KeyF, ebiten.KeyG: KeyG, ebiten.KeyH: KeyH,
	ebiten.KeyI: KeyI, ebiten.KeyJ: KeyJ, ebiten.KeyK: KeyK, ebiten.KeyL: KeyL,
	ebiten.KeyM: KeyM, ebiten.KeyN: KeyN, ebiten.KeyO: KeyO, ebiten.KeyP: KeyP,
	ebiten.KeyQ: KeyQ, ebiten.KeyR: KeyR, ebiten.KeyS: KeyS, ebiten.KeyT: KeyT,
	ebiten.KeyU: KeyU, ebiten.KeyV: KeyV, ebiten.KeyW: KeyW, ebiten.KeyX: KeyX,
	ebiten.KeyY: KeyY, ebiten.KeyZ: KeyZ,
	ebiten.KeyDigit0: Key0, ebiten.KeyDigit1: Key1, ebiten.KeyDigit2: Key2,
	ebiten.KeyDigit3: Key3, ebiten.KeyDigit4: Key4, ebiten.KeyDigit5: Key5,
	ebiten.KeyDigit6: Key6, ebiten.KeyDigit7: Key7, ebiten.KeyDigit8: Key8,
	ebiten.KeyDigit9: Key9,
}

// game is the ebiten.Game of a Viewer.
type game struct {
	v      *Viewer
	ctx    context.Context
	window *ebiten.Image

	clipboardOnce sync.Once
	clipboardOK   bool
	showStatusBar bool
}

// Run opens the window and blocks until it is closed or ctx is done. The
// machine runner must already be executing.
func (v *Viewer) Run(ctx context.Context) error {
	g := &game{v: v, ctx: ctx, showStatusBar: true}
	w, h := v.ula.GetDimensions()
	ebiten.SetWindowSize(w*v.opts.Scale, (h+statusBarHeight)*v.opts.Scale)
	ebiten.SetWindowTitle(v.opts.Title)
	ebiten.SetWindowResizable(true)
	ebiten.SetRunnableOnUnfocused(true)
	ebiten.SetVsyncEnabled(true)
	if err := ebiten.RunGame(g); err != nil {
		return fmt.Errorf("viewer: %w", err)
	}
	return nil
}

func (g *game) Update() error {
	if ebiten.IsWindowBeingClosed() {
		return ebiten.Termination
	}
	select {
	case <-g.ctx.Done():
		return ebiten.Termination
	default:
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyF2) {
		_, _ = g.v.SaveSnapshot()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF5) {
		g.v.Reset()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF10) {
		g.v.TogglePause()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF11) {
		ebiten.SetFullscreen(!ebiten.IsFullscreen())
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF12) {
		g.copyRegisters()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF9) {
		g.showStatusBar = !g.showStatusBar
	}
	g.handleKeyboardInput()
	return nil
}

func (g *game) handleKeyboardInput() {
	kb := g.v.keyboard
	for host, key := range hostKeys {
		switch {
		case inpututil.IsKeyJustPressed(host):
			kb.SetKey(key, true)
		case inpututil.IsKeyJustReleased(host):
			kb.SetKey(key, false)
		}
	}
	// Backspace is CAPS SHIFT + 0 on the real keyboard.
	if inpututil.IsKeyJustPressed(ebiten.KeyBackspace) {
		kb.SetKey(KeyCapsShift, true)
		kb.SetKey(Key0, true)
	} else if inpututil.IsKeyJustReleased(ebiten.KeyBackspace) {
		kb.SetKey(KeyCapsShift, false)
		kb.SetKey(Key0, false)
	}
}

func (g *game) copyRegisters() {
	g.clipboardOnce.Do(func() {
		g.clipboardOK = clipboard.Init() == nil
	})
	if !g.clipboardOK {
		g.v.setStatus("clipboard unavailable")
		return
	}
	dump := g.v.RegisterDump()
	clipboard.Write(clipboard.FmtText, []byte(dump))
	g.v.logger.Info("Registers copied to clipboard", log.String("registers", dump))
	g.v.setStatus("registers copied")
}

func (g *game) Draw(screen *ebiten.Image) {
	w, h := g.v.ula.GetDimensions()
	if g.window == nil {
		g.window = ebiten.NewImage(w, h)
	}
	g.window.WritePixels(g.v.ula.GetFrame())
	screen.DrawImage(g.window, nil)
	if g.showStatusBar {
		g.drawStatusBar(screen, w, h)
	}
}

func (g *game) drawStatusBar(screen *ebiten.Image, w, y int) {
	ebitenutil.DrawRect(screen, 0, float64(y), float64(w), statusBarHeight, color.RGBA{0, 0, 0, 255})
	face := basicfont.Face7x13
	text.Draw(screen, g.v.StatusLine(), face, 4, y+12, color.RGBA{190, 190, 190, 255})

	legend := "F2 Save  F5 Reset  F10 Pause  F12 Regs"
	legendW := text.BoundString(face, legend).Dx()
	if legendW+4 < w/2 {
		text.Draw(screen, legend, face, w-legendW-4, y+12, color.RGBA{120, 120, 120, 255})
	}
}

func (g *game) Layout(_, _ int) (int, int) {
	w, h := g.v.ula.GetDimensions()
	return w, h + statusBarHeight
}

var _ ebiten.Game = (*game)(nil)
