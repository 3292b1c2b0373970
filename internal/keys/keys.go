// Package keys maps raw highgui key codes to symbolic identifiers.
package keys

import "unicode"

// Key is a key press as reported by a display window.
type Key int

const (
	// None means no key was pressed before the wait timed out.
	None Key = -1
	// Escape quits the current loop.
	Escape Key = 27
	// Enter is the return key.
	Enter Key = 13
)

// FromCode converts a raw waitKey result into a Key. Some highgui backends
// report modifier state in the high bits, so only the low byte is kept.
func FromCode(code int) Key {
	if code < 0 {
		return None
	}
	code &= 0xFF
	if code == 0 || code == 0xFF {
		return None
	}
	return Key(code)
}

// Of returns the Key for a printable character.
func Of(r rune) Key {
	return Key(r)
}

// Rune returns the printable character for k.
func (k Key) Rune() (rune, bool) {
	if k <= 0 || k > unicode.MaxASCII {
		return 0, false
	}
	r := rune(k)
	if !unicode.IsPrint(r) {
		return 0, false
	}
	return r, true
}

// Is reports whether k is the character r, ignoring letter case.
func (k Key) Is(r rune) bool {
	kr, ok := k.Rune()
	if !ok {
		return false
	}
	return unicode.ToUpper(kr) == unicode.ToUpper(r)
}

// Pressed reports whether k represents an actual key press.
func (k Key) Pressed() bool {
	return k != None
}

func (k Key) String() string {
	switch k {
	case None:
		return "none"
	case Escape:
		return "esc"
	case Enter:
		return "enter"
	}
	if r, ok := k.Rune(); ok {
		if r == ' ' {
			return "space"
		}
		return string(r)
	}
	return "unknown"
}
