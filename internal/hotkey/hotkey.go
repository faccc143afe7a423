// Package hotkey provides global system-wide hotkey and mouse button monitoring.
//
// Combos are written as "+"-separated names, case-insensitive: "Ctrl+Alt+1",
// "F6", "Shift+Mouse4". Mouse buttons are MOUSE1 (left), MOUSE2 (middle),
// MOUSE3 (right), MOUSE4 and MOUSE5. Events injected by this process are
// ignored where the platform reports them, so automation never fires its own
// hotkeys.
package hotkey

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
)

// Manager handles global hotkey and mouse button registration and matching
type Manager struct {
	mu           sync.RWMutex
	hotkeys      []*registeredHotkey
	currentState map[string]bool // map of current keys/buttons pressed
	synthetic    map[string]syntheticState
	grace        time.Duration
}

type registeredHotkey struct {
	parts    []string // e.g., ["CTRL", "ALT", "MOUSE4"]
	original string
	callback func()
}

var partAliases = map[string]string{
	"CONTROL": "CTRL",
	"ESCAPE":  "ESC",
	"RETURN":  "ENTER",
	"DEL":     "DELETE",
	"WIN":     "CMD",
	"SUPER":   "CMD",
	"META":    "CMD",
	"OPTION":  "ALT",
}

// ParseCombo splits a hotkey string into normalized parts
func ParseCombo(hotkeyStr string) ([]string, error) {
	raw := strings.Split(strings.ToUpper(hotkeyStr), "+")
	parts := make([]string, 0, len(raw))
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p == "" {
			return nil, fmt.Errorf("invalid hotkey %q", hotkeyStr)
		}
		if alias, ok := partAliases[p]; ok {
			p = alias
		}
		parts = append(parts, p)
	}
	return parts, nil
}

// NewManager creates a new hotkey manager
func NewManager() *Manager {
	return &Manager{
		currentState: make(map[string]bool),
		synthetic:    make(map[string]syntheticState),
		grace:        syntheticGrace,
	}
}

// Register registers a hotkey string (e.g. "Ctrl+Alt+1", "Mouse2+Mouse3") and a callback.
func (m *Manager) Register(hotkeyStr string, callback func()) (int, error) {
	if hotkeyStr == "" {
		return 0, nil
	}

	parts, err := ParseCombo(hotkeyStr)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.hotkeys = append(m.hotkeys, &registeredHotkey{
		parts:    parts,
		original: hotkeyStr,
		callback: callback,
	})

	return len(m.hotkeys) - 1, nil
}

// Count returns the number of registered hotkeys
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.hotkeys)
}

// Clear removes all registered hotkeys
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hotkeys = nil
}

// UpdateState updates the internal state of a key or button and checks for matches.
func (m *Manager) UpdateState(key string, isDown bool) {
	m.mu.Lock()
	key = strings.ToUpper(key)
	if m.isSynthetic(key) {
		m.mu.Unlock()
		return
	}
	if isDown {
		m.currentState[key] = true
	} else {
		delete(m.currentState, key)
	}
	m.mu.Unlock()

	if isDown {
		m.checkMatches(key)
	}
}

// checkMatches fires every hotkey that contains trigger and is fully held
func (m *Manager) checkMatches(trigger string) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, hk := range m.hotkeys {
		match := true
		involved := false
		for _, part := range hk.parts {
			if !m.currentState[part] {
				match = false
				break
			}
			if part == trigger {
				involved = true
			}
		}

		if match && involved {
			log.Printf("Hotkey triggered: %s", hk.original)
			go hk.callback()
		}
	}
}

// Start initiates the platform-specific global hooks.
// This is implemented in platform-specific files (hotkey_windows.go, hotkey_hook.go).
func (m *Manager) Start() error {
	return m.startPlatform()
}

// Stop removes the global hooks
func (m *Manager) Stop() {
	m.stopPlatform()
}
