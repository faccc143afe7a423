package input

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Key is a canonical key name: a single lowercase character, or one of the
// named keys below ("space", "enter", "f5", ...).
type Key string

var keyAliases = map[string]Key{
	"space":     "space",
	"spacebar":  "space",
	"enter":     "enter",
	"return":    "enter",
	"tab":       "tab",
	"escape":    "escape",
	"esc":       "escape",
	"shift":     "shift",
	"control":   "ctrl",
	"ctrl":      "ctrl",
	"alt":       "alt",
	"backspace": "backspace",
	"delete":    "delete",
	"del":       "delete",
	"up":        "up",
	"down":      "down",
	"left":      "left",
	"right":     "right",
	"f1":        "f1",
	"f2":        "f2",
	"f3":        "f3",
	"f4":        "f4",
	"f5":        "f5",
	"f6":        "f6",
	"f7":        "f7",
	"f8":        "f8",
	"f9":        "f9",
	"f10":       "f10",
	"f11":       "f11",
	"f12":       "f12",
}

// Windows virtual-key codes for the named keys.
// Reference: https://learn.microsoft.com/en-us/windows/win32/inputdev/virtual-key-codes
var namedVirtualKeys = map[Key]uint16{
	"space":     0x20,
	"enter":     0x0D,
	"tab":       0x09,
	"escape":    0x1B,
	"shift":     0x10,
	"ctrl":      0x11,
	"alt":       0x12,
	"backspace": 0x08,
	"delete":    0x2E,
	"left":      0x25,
	"up":        0x26,
	"right":     0x27,
	"down":      0x28,
	"f1":        0x70,
	"f2":        0x71,
	"f3":        0x72,
	"f4":        0x73,
	"f5":        0x74,
	"f6":        0x75,
	"f7":        0x76,
	"f8":        0x77,
	"f9":        0x78,
	"f10":       0x79,
	"f11":       0x7A,
	"f12":       0x7B,
}

// ParseKey normalizes a user-supplied key name.
func ParseKey(name string) (Key, error) {
	s := strings.ToLower(strings.TrimSpace(name))
	if s == "" {
		return "", fmt.Errorf("no key selected")
	}
	if k, ok := keyAliases[s]; ok {
		return k, nil
	}
	if utf8.RuneCountInString(s) == 1 {
		return Key(s), nil
	}
	return "", fmt.Errorf("unknown key %q", name)
}

// VirtualKey returns the Windows virtual-key code for k.
func (k Key) VirtualKey() (uint16, bool) {
	if vk, ok := namedVirtualKeys[k]; ok {
		return vk, true
	}
	r, size := utf8.DecodeRuneInString(string(k))
	if size == 0 || size != len(k) {
		return 0, false
	}
	switch {
	case r >= 'a' && r <= 'z':
		return uint16(r - 'a' + 'A'), true
	case r >= '0' && r <= '9':
		return uint16(r), true
	}
	switch r {
	case ';':
		return 0xBA, true
	case '=':
		return 0xBB, true
	case ',':
		return 0xBC, true
	case '-':
		return 0xBD, true
	case '.':
		return 0xBE, true
	case '/':
		return 0xBF, true
	case '`':
		return 0xC0, true
	case '[':
		return 0xDB, true
	case '\\':
		return 0xDC, true
	case ']':
		return 0xDD, true
	case '\'':
		return 0xDE, true
	case ' ':
		return 0x20, true
	}
	return 0, false
}
