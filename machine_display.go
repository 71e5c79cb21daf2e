// machine_display.go - Display memory window and display observers

package spectrum

const (
	// DisplayBase is the logical address of display memory.
	DisplayBase = 0x4000
	// DisplaySize covers the 6144 byte bitmap and 768 attribute bytes.
	DisplaySize = 6912

	screenPage       = 5
	shadowScreenPage = 7
)

// DisplayWindow is a read-only view of display memory. It aliases machine
// RAM, so it is only valid until the machine runs again.
type DisplayWindow struct {
	data []byte
}

func (w DisplayWindow) Len() int { return len(w.data) }

// At returns byte i of display memory, 0 when i is outside the window.
func (w DisplayWindow) At(i int) byte {
	if i < 0 || i >= len(w.data) {
		return 0
	}
	return w.data[i]
}

// CopyTo copies the window into dst and returns the number of bytes copied.
func (w DisplayWindow) CopyTo(dst []byte) int {
	return copy(dst, w.data)
}

// DisplayDevice is notified once per frame.
type DisplayDevice interface {
	FrameReady(win DisplayWindow, border byte)
}

// Display returns the window onto the memory the ULA is currently showing.
func (m *Machine) Display() DisplayWindow {
	if m.paged == nil {
		return DisplayWindow{data: m.linear.Raw()[DisplayBase : DisplayBase+DisplaySize]}
	}
	page := screenPage
	if m.bus.shadowScreen() {
		page = shadowScreenPage
	}
	buf, err := m.paged.RAMPage(page)
	if err != nil {
		panic(err)
	}
	return DisplayWindow{data: buf[:DisplaySize]}
}

func (m *Machine) AttachDisplay(d DisplayDevice) {
	m.displays = append(m.displays, d)
}

// DetachDisplay removes d and reports whether it was attached.
func (m *Machine) DetachDisplay(d DisplayDevice) bool {
	for i, x := range m.displays {
		if x == d {
			m.displays = append(m.displays[:i], m.displays[i+1:]...)
			return true
		}
	}
	return false
}
