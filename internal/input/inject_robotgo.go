//go:build !windows && cgo

package input

import (
	"fmt"
	"time"

	"github.com/go-vgo/robotgo"
)

// robotgo implementation of input injection for macOS and X11

const doubleClickGap = 10 * time.Millisecond

// inputAccess reports why injection cannot work at all, or nil
var inputAccess = platformInputAccess

// Injector represents a robotgo-backed input injector
type Injector struct{}

// NewInjector creates a new input injector
func NewInjector() *Injector {
	return &Injector{}
}

func robotgoButton(b Button) (string, error) {
	switch b {
	case ButtonLeft:
		return "left", nil
	case ButtonRight:
		return "right", nil
	case ButtonMiddle:
		return "center", nil
	}
	return "", fmt.Errorf("invalid button: %d", b)
}

// checkAccess maps a missing permission or display to ErrInjectionUnrecoverable,
// since robotgo reports neither.
func checkAccess() error {
	if err := inputAccess(); err != nil {
		return fmt.Errorf("%w: %v", ErrInjectionUnrecoverable, err)
	}
	return nil
}

func robotgoKey(k Key) string {
	if k == "escape" {
		return "esc"
	}
	return string(k)
}

// Click injects one (or two, for double) clicks
func (i *Injector) Click(button Button, style ClickStyle) error {
	if err := checkAccess(); err != nil {
		return err
	}
	name, err := robotgoButton(button)
	if err != nil {
		return err
	}
	robotgo.Click(name, false)
	if style == ClickDouble {
		time.Sleep(doubleClickGap)
		robotgo.Click(name, false)
	}
	return nil
}

// PressAndHold presses a mouse button or key without releasing it
func (i *Injector) PressAndHold(target Target) error {
	if err := checkAccess(); err != nil {
		return err
	}
	if target.IsKey() {
		if err := robotgo.KeyToggle(robotgoKey(target.Key), "down"); err != nil {
			return fmt.Errorf("%w: key down %s: %v", ErrInjectionFailed, target.Key, err)
		}
		return nil
	}
	name, err := robotgoButton(target.Button)
	if err != nil {
		return err
	}
	if err := robotgo.Toggle(name, "down"); err != nil {
		return fmt.Errorf("%w: %s down: %v", ErrInjectionFailed, name, err)
	}
	return nil
}

// Release releases a previously held mouse button or key
func (i *Injector) Release(target Target) error {
	if target.IsKey() {
		if err := robotgo.KeyToggle(robotgoKey(target.Key), "up"); err != nil {
			return fmt.Errorf("%w: key up %s: %v", ErrInjectionFailed, target.Key, err)
		}
		return nil
	}
	name, err := robotgoButton(target.Button)
	if err != nil {
		return err
	}
	if err := robotgo.Toggle(name, "up"); err != nil {
		return fmt.Errorf("%w: %s up: %v", ErrInjectionFailed, name, err)
	}
	return nil
}

// MoveCursorAbsolute moves the cursor to screen coordinates (x, y)
func (i *Injector) MoveCursorAbsolute(x, y int) error {
	if err := checkAccess(); err != nil {
		return err
	}
	robotgo.Move(x, y)
	return nil
}

// MoveCursorRelative moves the cursor by (dx, dy) pixels
func (i *Injector) MoveCursorRelative(dx, dy int) error {
	if err := checkAccess(); err != nil {
		return err
	}
	robotgo.MoveRelative(dx, dy)
	return nil
}

// TapKey injects a key down/up pair
func (i *Injector) TapKey(key Key) error {
	if err := checkAccess(); err != nil {
		return err
	}
	if err := robotgo.KeyTap(robotgoKey(key)); err != nil {
		return fmt.Errorf("%w: tap %s: %v", ErrInjectionFailed, key, err)
	}
	return nil
}
