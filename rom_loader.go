// rom_loader.go - ROM image loading

package spectrum

import (
	"errors"
	"fmt"
	"os"

	"github.com/retroenv/retrogolib/log"
)

// ErrShortROM is returned for images that are not whole 16K pages.
var ErrShortROM = errors.New("rom image is not a multiple of 16K")

// LoadROM installs data starting at ROM page. An image longer than 16K
// fills consecutive pages, so a 32K file loads both 128K ROMs at once.
// The images are kept and reinstalled by Reset.
func (m *Machine) LoadROM(data []byte, page int) error {
	if len(data) == 0 || len(data)%PageSize != 0 {
		return fmt.Errorf("load rom: %d bytes: %w", len(data), ErrShortROM)
	}
	pages := len(data) / PageSize
	if page < 0 || page+pages > len(m.roms) {
		return fmt.Errorf("load rom: pages %d-%d of %d: %w", page, page+pages-1, len(m.roms), ErrPageOutOfRange)
	}
	for i := range pages {
		img := make([]byte, PageSize)
		copy(img, data[i*PageSize:])
		m.roms[page+i] = img
		m.installROM(page+i, img)
	}
	return nil
}

// LoadROMFile reads a ROM image from disk and installs it at page.
func (m *Machine) LoadROMFile(path string, page int) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("load rom %s: %w", path, err)
	}
	if err := m.LoadROM(data, page); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	m.logger.Info("ROM loaded",
		log.String("file", path),
		log.Int("page", page),
		log.Int("size", len(data)))
	return nil
}

// ROMImage returns the image loaded into page, or nil.
func (m *Machine) ROMImage(page int) []byte {
	if page < 0 || page >= len(m.roms) {
		return nil
	}
	return m.roms[page]
}

func (m *Machine) installROM(page int, img []byte) {
	if m.paged == nil {
		copy(m.linear.Raw()[romBase:ramBase], img)
		return
	}
	buf, err := m.paged.ROMPage(page)
	if err != nil {
		panic(err)
	}
	copy(buf, img)
}
