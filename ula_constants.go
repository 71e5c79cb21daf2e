// ula_constants.go - ULA display geometry and palette

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
ula_constants.go - ZX Spectrum ULA Display Constants

Display Specifications:
  - Resolution: 256x192 pixels (32x24 character cells of 8x8 pixels)
  - Border: 32 pixels on each side → 320x256 total frame
  - Colors: 15 unique colors (8 base + 8 bright, but black can't brighten)
  - Display memory: 6144 bytes bitmap + 768 bytes attributes
  - Flash: INK and PAPER swap every 16 frames

Attribute Byte Format:
  Bit 7: FLASH
  Bit 6: BRIGHT
  Bits 5-3: PAPER
  Bits 2-0: INK
*/

package spectrum

const (
	ULA_BITMAP_SIZE = 6144
	ULA_ATTR_OFFSET = 0x1800
	ULA_ATTR_SIZE   = 768
	ULA_VRAM_SIZE   = ULA_BITMAP_SIZE + ULA_ATTR_SIZE
)

const (
	ULA_DISPLAY_WIDTH  = 256
	ULA_DISPLAY_HEIGHT = 192

	ULA_CELLS_X = 32
	ULA_CELLS_Y = 24

	ULA_BORDER_LEFT   = 32
	ULA_BORDER_RIGHT  = 32
	ULA_BORDER_TOP    = 32
	ULA_BORDER_BOTTOM = 32

	ULA_FRAME_WIDTH  = ULA_DISPLAY_WIDTH + ULA_BORDER_LEFT + ULA_BORDER_RIGHT  // 320
	ULA_FRAME_HEIGHT = ULA_DISPLAY_HEIGHT + ULA_BORDER_TOP + ULA_BORDER_BOTTOM // 256
)

// ULA_FLASH_FRAMES is the number of frames between FLASH phase changes.
const ULA_FLASH_FRAMES = 16

const (
	ulaAttrFlash  = 0x80
	ulaAttrBright = 0x40
)

// Normal colors (RGB values when BRIGHT bit is 0)
var ULAColorNormal = [8][3]uint8{
	{0, 0, 0},       // 0: Black
	{0, 0, 205},     // 1: Blue
	{205, 0, 0},     // 2: Red
	{205, 0, 205},   // 3: Magenta
	{0, 205, 0},     // 4: Green
	{0, 205, 205},   // 5: Cyan
	{205, 205, 0},   // 6: Yellow
	{205, 205, 205}, // 7: White
}

// Bright colors (RGB values when BRIGHT bit is 1)
var ULAColorBright = [8][3]uint8{
	{0, 0, 0},       // 0: Black (same, can't brighten)
	{0, 0, 255},     // 1: Bright Blue
	{255, 0, 0},     // 2: Bright Red
	{255, 0, 255},   // 3: Bright Magenta
	{0, 255, 0},     // 4: Bright Green
	{0, 255, 255},   // 5: Bright Cyan
	{255, 255, 0},   // 6: Bright Yellow
	{255, 255, 255}, // 7: Bright White
}

// ULABitmapOffset returns the display memory offset of the byte holding
// pixel (x, y). Rows are interleaved in thirds:
// ((y & 0xC0) << 5) + ((y & 0x07) << 8) + ((y & 0x38) << 2) + (x >> 3)
func ULABitmapOffset(y, x int) int {
	return (y&0xC0)<<5 + (y&0x07)<<8 + (y&0x38)<<2 + x>>3
}

// ULAAttributeOffset returns the offset of the attribute for a cell.
func ULAAttributeOffset(cellY, cellX int) int {
	return ULA_ATTR_OFFSET + cellY*ULA_CELLS_X + cellX
}

// ParseAttribute extracts INK, PAPER, BRIGHT, and FLASH from an attribute byte.
func ParseAttribute(attr uint8) (ink, paper uint8, bright, flash bool) {
	ink = attr & 0x07
	paper = (attr >> 3) & 0x07
	bright = attr&ulaAttrBright != 0
	flash = attr&ulaAttrFlash != 0
	return
}
