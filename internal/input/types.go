// Package input provides the primitive mouse and keyboard injection operations
// used by the action engine. Injectors carry no timing or configuration state.
package input

import (
	"fmt"
	"strings"
)

// Button identifies a mouse button
type Button int

const (
	ButtonLeft Button = iota + 1
	ButtonRight
	ButtonMiddle
)

// ParseButton converts "left", "right" or "middle" to a Button.
func ParseButton(s string) (Button, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left", "":
		return ButtonLeft, nil
	case "right":
		return ButtonRight, nil
	case "middle", "center":
		return ButtonMiddle, nil
	}
	return 0, fmt.Errorf("unknown mouse button %q", s)
}

func (b Button) String() string {
	switch b {
	case ButtonLeft:
		return "left"
	case ButtonRight:
		return "right"
	case ButtonMiddle:
		return "middle"
	default:
		return "unknown"
	}
}

// Valid reports whether b is one of the known buttons.
func (b Button) Valid() bool {
	return b >= ButtonLeft && b <= ButtonMiddle
}

// ClickStyle selects single or double clicks
type ClickStyle int

const (
	ClickSingle ClickStyle = iota
	ClickDouble
)

// ParseClickStyle converts "single" or "double" to a ClickStyle.
func ParseClickStyle(s string) (ClickStyle, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "single", "":
		return ClickSingle, nil
	case "double":
		return ClickDouble, nil
	}
	return 0, fmt.Errorf("unknown click type %q", s)
}

func (c ClickStyle) String() string {
	if c == ClickDouble {
		return "double"
	}
	return "single"
}

// Target is the thing held down by PressAndHold: either a mouse button or a key.
type Target struct {
	Button Button
	Key    Key
}

// MouseTarget returns a Target for a mouse button.
func MouseTarget(b Button) Target {
	return Target{Button: b}
}

// KeyTarget returns a Target for a keyboard key.
func KeyTarget(k Key) Target {
	return Target{Key: k}
}

// IsKey reports whether the target is a key rather than a mouse button.
func (t Target) IsKey() bool {
	return t.Key != ""
}

func (t Target) String() string {
	if t.IsKey() {
		return "key " + string(t.Key)
	}
	return t.Button.String() + " button"
}

// InputInjector defines the primitive input operations the engine drives.
// Every PressAndHold is matched by exactly one Release by the caller.
type InputInjector interface {
	Click(button Button, style ClickStyle) error
	PressAndHold(target Target) error
	Release(target Target) error
	MoveCursorAbsolute(x, y int) error
	MoveCursorRelative(dx, dy int) error
	TapKey(key Key) error
}
