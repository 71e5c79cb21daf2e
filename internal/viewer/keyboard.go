package viewer

import "sync"

// Key is a position in the 8x5 Spectrum keyboard matrix.
type Key struct {
	Row int
	Bit int
}

// Spectrum keys by matrix position. Each half-row is selected by one of the
// high address lines A8-A15 of an IN from port 0xFE.
var (
	KeyCapsShift = Key{0, 0}
	KeyZ         = Key{0, 1}
	KeyX         = Key{0, 2}
	KeyC         = Key{0, 3}
	KeyV         = Key{0, 4}
	KeyA         = Key{1, 0}
	KeyS         = Key{1, 1}
	KeyD         = Key{1, 2}
	KeyF         = Key{1, 3}
	KeyG         = Key{1, 4}
	KeyQ         = Key{2, 0}
	KeyW         = Key{2, 1}
	KeyE         = Key{2, 2}
	KeyR         = Key{2, 3}
	KeyT         = Key{2, 4}
	Key1         = Key{3, 0}
	Key2         = Key{3, 1}
	Key3         = Key{3, 2}
	Key4         = Key{3, 3}
	Key5         = Key{3, 4}
	Key0         = Key{4, 0}
	Key9         = Key{4, 1}
	Key8         = Key{4, 2}
	Key7         = Key{4, 3}
	Key6         = Key{4, 4}
	KeyP         = Key{5, 0}
	KeyO         = Key{5, 1}
	KeyI         = Key{5, 2}
	KeyU         = Key{5, 3}
	KeyY         = Key{5, 4}
	KeyEnter     = Key{6, 0}
	KeyL         = Key{6, 1}
	KeyK         = Key{6, 2}
	KeyJ         = Key{6, 3}
	KeyH         = Key{6, 4}
	KeySpace     = Key{7, 0}
	KeySymShift  = Key{7, 1}
	KeyM         = Key{7, 2}
	KeyN         = Key{7, 3}
	KeyB         = Key{7, 4}
)

// Keyboard is the key matrix seen through the ULA port. It is written by
// the host input loop and read by the machine goroutine.
type Keyboard struct {
	mu   sync.Mutex
	rows [8]byte
}

// SetKey presses or releases a key.
func (k *Keyboard) SetKey(key Key, pressed bool) {
	if key.Row < 0 || key.Row > 7 || key.Bit < 0 || key.Bit > 4 {
		return
	}
	k.mu.Lock()
	if pressed {
		k.rows[key.Row] |= 1 << key.Bit
	} else {
		k.rows[key.Row] &^= 1 << key.Bit
	}
	k.mu.Unlock()
}

// ReleaseAll clears the matrix.
func (k *Keyboard) ReleaseAll() {
	k.mu.Lock()
	k.rows = [8]byte{}
	k.mu.Unlock()
}

// ReadPort returns the active-low key bits of every half-row whose address
// line is low. Several rows can be selected at once and are ANDed.
func (k *Keyboard) ReadPort(port uint16) byte {
	k.mu.Lock()
	defer k.mu.Unlock()
	result := byte(0xFF)
	high := byte(port >> 8)
	for row := range k.rows {
		if high&(1<<row) == 0 {
			result &^= k.rows[row]
		}
	}
	return result
}
