//go:build windows

package hotkey

import (
	"fmt"
	"log"
	"runtime"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	procSetWindowsHookEx    = user32.NewProc("SetWindowsHookExW")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procGetMessage          = user32.NewProc("GetMessageW")
	procTranslateMessage    = user32.NewProc("TranslateMessage")
	procDispatchMessage     = user32.NewProc("DispatchMessageW")
	procPostThreadMessage   = user32.NewProc("PostThreadMessageW")
	kernel32                = windows.NewLazySystemDLL("kernel32.dll")
	procGetModuleHandle     = kernel32.NewProc("GetModuleHandleW")
	procGetCurrentThreadId  = kernel32.NewProc("GetCurrentThreadId")
)

const (
	WH_KEYBOARD_LL = 13
	WH_MOUSE_LL    = 14
	WM_KEYDOWN     = 0x0100
	WM_KEYUP       = 0x0101
	WM_SYSKEYDOWN  = 0x0104
	WM_SYSKEYUP    = 0x0105

	WM_LBUTTONDOWN = 0x0201
	WM_LBUTTONUP   = 0x0202
	WM_RBUTTONDOWN = 0x0204
	WM_RBUTTONUP   = 0x0205
	WM_MBUTTONDOWN = 0x0207
	WM_MBUTTONUP   = 0x0208
	WM_XBUTTONDOWN = 0x020B
	WM_XBUTTONUP   = 0x020C

	WM_QUIT = 0x0012

	// Set on events synthesized with SendInput
	LLKHF_INJECTED = 0x10
	LLMHF_INJECTED = 0x01
)

type KBDLLHOOKSTRUCT struct {
	VkCode      uint32
	ScanCode    uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type MSLLHOOKSTRUCT struct {
	Point       struct{ X, Y int32 }
	MouseData   uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

// The low-level hooks see LLKHF_INJECTED / LLMHF_INJECTED
const platformFiltersInjected = true

var (
	instanceManager *Manager
	keyboardHook    uintptr
	mouseHook       uintptr
	hookThreadID    uintptr
)

func (m *Manager) startPlatform() error {
	if instanceManager != nil {
		return nil
	}
	instanceManager = m
	ready := make(chan error, 1)

	// Hooks must be registered in the same thread that runs the message loop
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		hookThreadID, _, _ = procGetCurrentThreadId.Call()
		hMod, _, _ := procGetModuleHandle.Call(0)

		var err error
		keyboardHook, _, err = procSetWindowsHookEx.Call(
			WH_KEYBOARD_LL,
			syscall.NewCallback(keyboardHookPtr),
			hMod,
			0,
		)
		if keyboardHook == 0 {
			ready <- fmt.Errorf("set keyboard hook: %w", err)
			return
		}

		mouseHook, _, err = procSetWindowsHookEx.Call(
			WH_MOUSE_LL,
			syscall.NewCallback(mouseHookPtr),
			hMod,
			0,
		)
		if mouseHook == 0 {
			procUnhookWindowsHookEx.Call(keyboardHook)
			ready <- fmt.Errorf("set mouse hook: %w", err)
			return
		}

		log.Println("Hotkey Engine: Windows Global Hooks started.")
		ready <- nil

		var msg struct {
			Hwnd    syscall.Handle
			Message uint32
			Wparam  uintptr
			Lparam  uintptr
			Time    uint32
			Pt      struct{ X, Y int32 }
		}

		for {
			ret, _, _ := procGetMessage.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0)
			if int32(ret) <= 0 {
				break
			}
			procTranslateMessage.Call(uintptr(unsafe.Pointer(&msg)))
			procDispatchMessage.Call(uintptr(unsafe.Pointer(&msg)))
		}

		procUnhookWindowsHookEx.Call(keyboardHook)
		procUnhookWindowsHookEx.Call(mouseHook)
		log.Println("Hotkey Engine: Windows Global Hooks removed.")
	}()

	if err := <-ready; err != nil {
		instanceManager = nil
		return err
	}
	return nil
}

// stopPlatform ends the message loop, which unhooks on its way out
func (m *Manager) stopPlatform() {
	if hookThreadID != 0 {
		procPostThreadMessage.Call(hookThreadID, WM_QUIT, 0, 0)
	}
}

func keyboardHookPtr(nCode int, wParam uintptr, lParam uintptr) uintptr {
	if nCode == 0 {
		kbd := (*KBDLLHOOKSTRUCT)(unsafe.Pointer(lParam))
		keyName := vkCodeToName(kbd.VkCode)
		if keyName != "" && kbd.Flags&LLKHF_INJECTED == 0 {
			isDown := wParam == WM_KEYDOWN || wParam == WM_SYSKEYDOWN
			instanceManager.UpdateState(keyName, isDown)
		}
	}
	ret, _, _ := procCallNextHookEx.Call(keyboardHook, uintptr(nCode), wParam, lParam)
	return ret
}

func mouseHookPtr(nCode int, wParam uintptr, lParam uintptr) uintptr {
	if nCode == 0 {
		ms := (*MSLLHOOKSTRUCT)(unsafe.Pointer(lParam))
		if ms.Flags&LLMHF_INJECTED == 0 {
			if name, isDown := mouseEventPart(wParam, ms.MouseData); name != "" {
				instanceManager.UpdateState(name, isDown)
			}
		}
	}
	ret, _, _ := procCallNextHookEx.Call(mouseHook, uintptr(nCode), wParam, lParam)
	return ret
}

type mouseMessage struct {
	part string // empty for X buttons, resolved from mouseData
	down bool
}

var mouseMessages = map[uintptr]mouseMessage{
	WM_LBUTTONDOWN: {"MOUSE1", true},
	WM_LBUTTONUP:   {"MOUSE1", false},
	WM_MBUTTONDOWN: {"MOUSE2", true},
	WM_MBUTTONUP:   {"MOUSE2", false},
	WM_RBUTTONDOWN: {"MOUSE3", true},
	WM_RBUTTONUP:   {"MOUSE3", false},
	WM_XBUTTONDOWN: {"", true},
	WM_XBUTTONUP:   {"", false},
}

// mouseEventPart maps a low-level mouse message to a combo part.
// Moves and wheel messages map to "".
func mouseEventPart(msg uintptr, mouseData uint32) (string, bool) {
	mm, ok := mouseMessages[msg]
	if !ok {
		return "", false
	}
	if mm.part != "" {
		return mm.part, mm.down
	}
	// XBUTTON1 = 1, XBUTTON2 = 2 in the high word
	if mouseData>>16 == 1 {
		return "MOUSE4", mm.down
	}
	return "MOUSE5", mm.down
}

// vkNames maps virtual-key codes to combo parts. Letters, digits and
// function keys are derived in vkCodeToName.
var vkNames = map[uint32]string{
	0x10: "SHIFT", 0xA0: "SHIFT", 0xA1: "SHIFT",
	0x11: "CTRL", 0xA2: "CTRL", 0xA3: "CTRL",
	0x12: "ALT", 0xA4: "ALT", 0xA5: "ALT",
	0x5B: "CMD", 0x5C: "CMD",
	0x08: "BACKSPACE",
	0x09: "TAB",
	0x0D: "ENTER",
	0x13: "PAUSE",
	0x14: "CAPSLOCK",
	0x1B: "ESC",
	0x20: "SPACE",
	0x21: "PAGEUP",
	0x22: "PAGEDOWN",
	0x23: "END",
	0x24: "HOME",
	0x25: "LEFT",
	0x26: "UP",
	0x27: "RIGHT",
	0x28: "DOWN",
	0x2C: "PRINTSCREEN",
	0x2D: "INSERT",
	0x2E: "DELETE",
	0x91: "SCROLLLOCK",
}

func vkCodeToName(vk uint32) string {
	if name, ok := vkNames[vk]; ok {
		return name
	}
	switch {
	case vk >= 'A' && vk <= 'Z', vk >= '0' && vk <= '9':
		return string(rune(vk))
	case vk >= 0x70 && vk <= 0x7B:
		return fmt.Sprintf("F%d", vk-0x6F)
	}
	return ""
}
