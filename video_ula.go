// video_ula.go - ULA frame renderer

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
video_ula.go - ZX Spectrum ULA Frame Renderer

ULARenderer is a display device: the machine hands it the display memory
window once per frame and it turns bitmap and attributes into a 320x256
RGBA frame with the border around it.

Signal Flow:
1. Machine ends a frame and calls FrameReady on the machine goroutine
2. FrameReady copies display memory, renders into the write buffer and
   publishes it through the triple buffer
3. The host (viewer, screenshot) collects the newest frame with GetFrame
*/

package spectrum

import (
	"encoding/binary"
	"image"
	"sync"
	"sync/atomic"
)

const ulaFrameBytes = ULA_FRAME_WIDTH * ULA_FRAME_HEIGHT * 4

// ULARenderer renders display memory into RGBA frames.
type ULARenderer struct {
	mu sync.Mutex

	vram   [ULA_VRAM_SIZE]uint8
	border uint8
	frames uint64

	// Row start offsets for the interleaved bitmap, indexed by Y (0-191)
	rowStart [ULA_DISPLAY_HEIGHT]int

	// [0..7] = normal, [8..15] = bright
	colorU32 [16]uint32

	// Triple-buffered frame output for lock-free GetFrame()
	frameBufs  [3][]byte
	writeIdx   int
	sharedIdx  atomic.Int32
	readingIdx int
	fresh      atomic.Bool
}

func NewULARenderer() *ULARenderer {
	u := &ULARenderer{}
	for i := range 8 {
		u.colorU32[i] = packRGBA(ULAColorNormal[i])
		u.colorU32[8+i] = packRGBA(ULAColorBright[i])
	}
	for y := range ULA_DISPLAY_HEIGHT {
		u.rowStart[y] = ULABitmapOffset(y, 0)
	}
	for i := range u.frameBufs {
		u.frameBufs[i] = make([]byte, ulaFrameBytes)
	}
	u.writeIdx = 0
	u.sharedIdx.Store(1)
	u.readingIdx = 2
	return u
}

func packRGBA(c [3]uint8) uint32 {
	return uint32(c[0]) | uint32(c[1])<<8 | uint32(c[2])<<16 | 0xFF000000
}

// FrameReady implements DisplayDevice.
func (u *ULARenderer) FrameReady(win DisplayWindow, border byte) {
	u.mu.Lock()
	defer u.mu.Unlock()

	win.CopyTo(u.vram[:])
	u.border = border & 7
	u.frames++
	u.renderTo(u.frameBufs[u.writeIdx], u.flashPhase())
	u.writeIdx = int(u.sharedIdx.Swap(int32(u.writeIdx)))
	u.fresh.Store(true)
}

// Frames returns the number of frames rendered so far.
func (u *ULARenderer) Frames() uint64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.frames
}

func (u *ULARenderer) flashPhase() bool {
	return (u.frames/ULA_FLASH_FRAMES)&1 != 0
}

// GetFrame returns the newest published frame. Only one goroutine may
// call it; the slice stays valid until its next call.
func (u *ULARenderer) GetFrame() []byte {
	if u.fresh.Swap(false) {
		u.readingIdx = int(u.sharedIdx.Swap(int32(u.readingIdx)))
	}
	return u.frameBufs[u.readingIdx]
}

// GetDimensions returns the frame dimensions.
func (u *ULARenderer) GetDimensions() (w, h int) {
	return ULA_FRAME_WIDTH, ULA_FRAME_HEIGHT
}

// RenderFrame renders win into a new frame using the current flash phase,
// outside the triple buffer.
func (u *ULARenderer) RenderFrame(win DisplayWindow, border byte) []byte {
	u.mu.Lock()
	defer u.mu.Unlock()

	win.CopyTo(u.vram[:])
	u.border = border & 7
	dst := make([]byte, ulaFrameBytes)
	u.renderTo(dst, u.flashPhase())
	return dst
}

// FrameImage wraps a rendered frame as an image without copying.
func FrameImage(frame []byte) *image.RGBA {
	return &image.RGBA{
		Pix:    frame,
		Stride: ULA_FRAME_WIDTH * 4,
		Rect:   image.Rect(0, 0, ULA_FRAME_WIDTH, ULA_FRAME_HEIGHT),
	}
}

// renderTo draws the border and the 256x192 display into dst. Caller holds mu.
func (u *ULARenderer) renderTo(dst []byte, flashOn bool) {
	borderU32 := u.colorU32[u.border&0x07]
	for i := 0; i < len(dst); i += 4 {
		binary.LittleEndian.PutUint32(dst[i:], borderU32)
	}

	for screenY := range ULA_DISPLAY_HEIGHT {
		rowAddr := u.rowStart[screenY]
		attrRow := ULAAttributeOffset(screenY>>3, 0)
		frameRowBase := (ULA_BORDER_TOP + screenY) * ULA_FRAME_WIDTH * 4

		for cellX := range ULA_CELLS_X {
			bitmapByte := u.vram[rowAddr+cellX]
			ink, paper, bright, flash := ParseAttribute(u.vram[attrRow+cellX])
			if flash && flashOn {
				ink, paper = paper, ink
			}
			var brightOff uint8
			if bright {
				brightOff = 8
			}
			fgU32 := u.colorU32[brightOff+ink]
			bgU32 := u.colorU32[brightOff+paper]

			pixelBase := frameRowBase + (ULA_BORDER_LEFT+cellX*8)*4
			for bit := 7; bit >= 0; bit-- {
				c := bgU32
				if (bitmapByte>>bit)&1 != 0 {
					c = fgU32
				}
				binary.LittleEndian.PutUint32(dst[pixelBase+(7-bit)*4:], c)
			}
		}
	}
}
