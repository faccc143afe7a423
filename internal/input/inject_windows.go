//go:build windows

package input

import (
	"fmt"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Windows implementation of input injection using SendInput

var (
	user32               = windows.NewLazySystemDLL("user32.dll")
	procSendInput        = user32.NewProc("SendInput")
	procGetSystemMetrics = user32.NewProc("GetSystemMetrics")
	procOpenInputDesktop = user32.NewProc("OpenInputDesktop")
	procCloseDesktop     = user32.NewProc("CloseDesktop")
)

const (
	INPUT_MOUSE    = 0
	INPUT_KEYBOARD = 1

	MOUSEEVENTF_MOVE       = 0x0001
	MOUSEEVENTF_LEFTDOWN   = 0x0002
	MOUSEEVENTF_LEFTUP     = 0x0004
	MOUSEEVENTF_RIGHTDOWN  = 0x0008
	MOUSEEVENTF_RIGHTUP    = 0x0010
	MOUSEEVENTF_MIDDLEDOWN = 0x0020
	MOUSEEVENTF_MIDDLEUP   = 0x0040
	MOUSEEVENTF_ABSOLUTE   = 0x8000

	KEYEVENTF_KEYUP = 0x0002

	SM_CXSCREEN = 0
	SM_CYSCREEN = 1

	DESKTOP_SWITCHDESKTOP = 0x0100
)

// doubleClickGap separates the two clicks of a double click; well inside the
// default 500ms double-click time.
const doubleClickGap = 10 * time.Millisecond

type MOUSEINPUT struct {
	Dx          int32
	Dy          int32
	MouseData   uint32
	DwFlags     uint32
	Time        uint32
	DwExtraInfo uintptr
}

type KEYBDINPUT struct {
	WVk         uint16
	WScan       uint16
	DwFlags     uint32
	Time        uint32
	DwExtraInfo uintptr
}

// mouseINPUT and keyINPUT must both have sizeof(INPUT); the keyboard variant
// is padded up to the size of the larger MOUSEINPUT union member.
type mouseINPUT struct {
	Type uint32
	Mi   MOUSEINPUT
}

type keyINPUT struct {
	Type uint32
	Ki   KEYBDINPUT
	_    [8]byte
}

// Injector represents a Windows input injector
type Injector struct{}

// NewInjector creates a new input injector for Windows
func NewInjector() *Injector {
	return &Injector{}
}

func buttonFlags(b Button) (down, up uint32, err error) {
	switch b {
	case ButtonLeft:
		return MOUSEEVENTF_LEFTDOWN, MOUSEEVENTF_LEFTUP, nil
	case ButtonRight:
		return MOUSEEVENTF_RIGHTDOWN, MOUSEEVENTF_RIGHTUP, nil
	case ButtonMiddle:
		return MOUSEEVENTF_MIDDLEDOWN, MOUSEEVENTF_MIDDLEUP, nil
	}
	return 0, 0, fmt.Errorf("invalid button: %d", b)
}

func virtualKey(k Key) (uint16, error) {
	vk, ok := k.VirtualKey()
	if !ok {
		return 0, fmt.Errorf("no virtual-key code for %q", k)
	}
	return vk, nil
}

// Click injects one (or two, for double) down/up pairs
func (i *Injector) Click(button Button, style ClickStyle) error {
	down, up, err := buttonFlags(button)
	if err != nil {
		return err
	}
	pair := []mouseINPUT{
		{Type: INPUT_MOUSE, Mi: MOUSEINPUT{DwFlags: down}},
		{Type: INPUT_MOUSE, Mi: MOUSEINPUT{DwFlags: up}},
	}
	if err := sendMouse(pair); err != nil {
		return err
	}
	if style == ClickDouble {
		time.Sleep(doubleClickGap)
		return sendMouse(pair)
	}
	return nil
}

// PressAndHold presses a mouse button or key without releasing it
func (i *Injector) PressAndHold(target Target) error {
	if target.IsKey() {
		vk, err := virtualKey(target.Key)
		if err != nil {
			return err
		}
		return sendKey([]keyINPUT{{Type: INPUT_KEYBOARD, Ki: KEYBDINPUT{WVk: vk}}})
	}
	down, _, err := buttonFlags(target.Button)
	if err != nil {
		return err
	}
	return sendMouse([]mouseINPUT{{Type: INPUT_MOUSE, Mi: MOUSEINPUT{DwFlags: down}}})
}

// Release releases a previously held mouse button or key
func (i *Injector) Release(target Target) error {
	if target.IsKey() {
		vk, err := virtualKey(target.Key)
		if err != nil {
			return err
		}
		return sendKey([]keyINPUT{{Type: INPUT_KEYBOARD, Ki: KEYBDINPUT{WVk: vk, DwFlags: KEYEVENTF_KEYUP}}})
	}
	_, up, err := buttonFlags(target.Button)
	if err != nil {
		return err
	}
	return sendMouse([]mouseINPUT{{Type: INPUT_MOUSE, Mi: MOUSEINPUT{DwFlags: up}}})
}

// MoveCursorAbsolute moves the cursor to screen coordinates (x, y)
func (i *Injector) MoveCursorAbsolute(x, y int) error {
	nx, ny := normalizeCoords(x, y)
	return sendMouse([]mouseINPUT{{
		Type: INPUT_MOUSE,
		Mi:   MOUSEINPUT{Dx: nx, Dy: ny, DwFlags: MOUSEEVENTF_MOVE | MOUSEEVENTF_ABSOLUTE},
	}})
}

// MoveCursorRelative moves the cursor by (dx, dy) pixels
func (i *Injector) MoveCursorRelative(dx, dy int) error {
	return sendMouse([]mouseINPUT{{
		Type: INPUT_MOUSE,
		Mi:   MOUSEINPUT{Dx: int32(dx), Dy: int32(dy), DwFlags: MOUSEEVENTF_MOVE},
	}})
}

// TapKey injects a key down/up pair
func (i *Injector) TapKey(key Key) error {
	vk, err := virtualKey(key)
	if err != nil {
		return err
	}
	return sendKey([]keyINPUT{
		{Type: INPUT_KEYBOARD, Ki: KEYBDINPUT{WVk: vk}},
		{Type: INPUT_KEYBOARD, Ki: KEYBDINPUT{WVk: vk, DwFlags: KEYEVENTF_KEYUP}},
	})
}

// Absolute mouse coordinates use the 0-65535 normalized range
func normalizeCoords(x, y int) (int32, int32) {
	cx, _, _ := procGetSystemMetrics.Call(SM_CXSCREEN)
	cy, _, _ := procGetSystemMetrics.Call(SM_CYSCREEN)
	w, h := int(int32(cx)), int(int32(cy))
	if w == 0 || h == 0 {
		return 0, 0
	}
	return int32((x*65535 + w/2) / w), int32((y*65535 + h/2) / h)
}

func sendMouse(inputs []mouseINPUT) error {
	return sendInput(len(inputs), unsafe.Pointer(&inputs[0]), unsafe.Sizeof(inputs[0]))
}

func sendKey(inputs []keyINPUT) error {
	return sendInput(len(inputs), unsafe.Pointer(&inputs[0]), unsafe.Sizeof(inputs[0]))
}

func sendInput(count int, inputs unsafe.Pointer, size uintptr) error {
	n, _, callErr := procSendInput.Call(uintptr(count), uintptr(inputs), size)
	if int(n) == count {
		return nil
	}
	if !inputDesktopAvailable() {
		return fmt.Errorf("%w: SendInput: %v", ErrInjectionUnrecoverable, callErr)
	}
	// Blocked by UIPI (elevated foreground window) or a partial insert.
	return fmt.Errorf("%w: SendInput inserted %d of %d events: %v", ErrInjectionFailed, n, count, callErr)
}

// inputDesktopAvailable reports false when the interactive desktop is locked or
// switched to the secure desktop, in which case no injection can succeed.
func inputDesktopAvailable() bool {
	h, _, _ := procOpenInputDesktop.Call(0, 0, DESKTOP_SWITCHDESKTOP)
	if h == 0 {
		return false
	}
	procCloseDesktop.Call(h)
	return true
}
