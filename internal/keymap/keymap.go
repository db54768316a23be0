// Package keymap translates physical keyboard keys into CHIP-8 keypad indices.
package keymap

// Key identifies a physical key independently of the windowing backend.
// Backends translate their native key codes into Key values.
type Key int

// Physical keys known to the backends
const (
	KeyUnknown Key = iota
	Key0
	Key1
	Key2
	Key3
	Key4
	Key5
	Key6
	Key7
	Key8
	Key9
	KeyA
	KeyB
	KeyC
	KeyD
	KeyE
	KeyF
	KeyG
	KeyH
	KeyI
	KeyJ
	KeyK
	KeyL
	KeyM
	KeyN
	KeyO
	KeyP
	KeyQ
	KeyR
	KeyS
	KeyT
	KeyU
	KeyV
	KeyW
	KeyX
	KeyY
	KeyZ
	KeyEscape
	KeySpace
	KeyEnter
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12
)

// KeypadSize is the number of keys on the CHIP-8 keypad
const KeypadSize = 16

// Keypad maps keys from a QWERTY keyboard to the keypad used by CHIP-8.
// Keys outside the layout report ok == false.
// +--------+--------+--------+--------+
// | 1 -> 1 | 2 -> 2 | 3 -> 3 | 4 -> C |
// +--------+--------+--------+--------+
// | Q -> 4 | W -> 5 | E -> 6 | R -> D |
// +--------+--------+--------+--------+
// | A -> 7 | S -> 8 | D -> 9 | F -> E |
// +--------+--------+--------+--------+
// | Z -> A | X -> 0 | C -> B | V -> F |
// +--------+--------+--------+--------+
func Keypad(k Key) (index uint8, ok bool) {
	switch k {
	case Key1:
		return 0x1, true
	case Key2:
		return 0x2, true
	case Key3:
		return 0x3, true
	case Key4:
		return 0xC, true
	case KeyQ:
		return 0x4, true
	case KeyW:
		return 0x5, true
	case KeyE:
		return 0x6, true
	case KeyR:
		return 0xD, true
	case KeyA:
		return 0x7, true
	case KeyS:
		return 0x8, true
	case KeyD:
		return 0x9, true
	case KeyF:
		return 0xE, true
	case KeyZ:
		return 0xA, true
	case KeyX:
		return 0x0, true
	case KeyC:
		return 0xB, true
	case KeyV:
		return 0xF, true
	default:
		return 0, false
	}
}

// Layout returns the physical key bound to each keypad index.
func Layout() [KeypadSize]Key {
	return [KeypadSize]Key{
		0x0: KeyX,
		0x1: Key1,
		0x2: Key2,
		0x3: Key3,
		0x4: KeyQ,
		0x5: KeyW,
		0x6: KeyE,
		0x7: KeyA,
		0x8: KeyS,
		0x9: KeyD,
		0xA: KeyZ,
		0xB: KeyC,
		0xC: Key4,
		0xD: KeyR,
		0xE: KeyF,
		0xF: KeyV,
	}
}

// FromRune translates a printable character into a Key. Letters are
// case-insensitive.
func FromRune(r rune) Key {
	switch {
	case r >= '0' && r <= '9':
		return Key0 + Key(r-'0')
	case r >= 'a' && r <= 'z':
		return KeyA + Key(r-'a')
	case r >= 'A' && r <= 'Z':
		return KeyA + Key(r-'A')
	case r == ' ':
		return KeySpace
	default:
		return KeyUnknown
	}
}
