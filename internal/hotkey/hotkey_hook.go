//go:build !windows && cgo

package hotkey

import (
	"log"
	"strings"
	"sync"

	hook "github.com/robotn/gohook"
)

// gohook events carry no injected flag; FilterOwnInput tracks them instead
const platformFiltersInjected = false

var (
	hookMu      sync.Mutex
	hookRunning bool
)

var hookModifiers = map[string]string{
	"LCTRL":   "CTRL",
	"RCTRL":   "CTRL",
	"LALT":    "ALT",
	"RALT":    "ALT",
	"LSHIFT":  "SHIFT",
	"RSHIFT":  "SHIFT",
	"LCMD":    "CMD",
	"RCMD":    "CMD",
	"COMMAND": "CMD",
}

// hookKeyNames maps uiohook key codes to combo part names. When several names
// share a code the shortest (then alphabetically first) wins.
var hookKeyNames = func() map[uint16]string {
	names := make(map[uint16]string, len(hook.Keycode))
	for name, code := range hook.Keycode {
		n := strings.ToUpper(name)
		if mod, ok := hookModifiers[n]; ok {
			n = mod
		} else if alias, ok := partAliases[n]; ok {
			n = alias
		}
		if prev, ok := names[code]; ok && (len(prev) < len(n) || (len(prev) == len(n) && prev <= n)) {
			continue
		}
		names[code] = n
	}
	return names
}()

// gohook numbers buttons left, right, middle; combos use MOUSE2 for middle.
func hookButtonName(b uint16) string {
	switch b {
	case 1:
		return "MOUSE1"
	case 2:
		return "MOUSE3"
	case 3:
		return "MOUSE2"
	case 4:
		return "MOUSE4"
	case 5:
		return "MOUSE5"
	}
	return ""
}

func (m *Manager) startPlatform() error {
	hookMu.Lock()
	defer hookMu.Unlock()
	if hookRunning {
		return nil
	}
	hookRunning = true

	events := hook.Start()
	log.Println("Hotkey Engine: gohook global hooks started.")

	go func() {
		for ev := range events {
			switch ev.Kind {
			case hook.KeyHold, hook.KeyUp:
				if name := hookKeyNames[ev.Keycode]; name != "" {
					m.UpdateState(name, ev.Kind == hook.KeyHold)
				}
			case hook.MouseHold, hook.MouseUp:
				if name := hookButtonName(ev.Button); name != "" {
					m.UpdateState(name, ev.Kind == hook.MouseHold)
				}
			}
		}
	}()
	return nil
}

func (m *Manager) stopPlatform() {
	hookMu.Lock()
	defer hookMu.Unlock()
	if !hookRunning {
		return
	}
	hookRunning = false
	hook.End()
}
