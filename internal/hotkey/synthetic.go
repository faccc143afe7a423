package hotkey

import (
	"time"

	"autoinput/internal/input"
)

// syntheticGrace covers the delay between injecting an event and the hook reporting it
const syntheticGrace = 150 * time.Millisecond

type syntheticState struct {
	held  int
	until time.Time
}

// beginSynthetic drops events for part until the matching endSynthetic
func (m *Manager) beginSynthetic(part string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.synthetic[part]
	s.held++
	m.synthetic[part] = s
}

// endSynthetic keeps dropping events for part for the grace period
func (m *Manager) endSynthetic(part string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.synthetic[part]
	if s.held > 0 {
		s.held--
	}
	s.until = time.Now().Add(m.grace)
	m.synthetic[part] = s
}

// isSynthetic must be called with m.mu held
func (m *Manager) isSynthetic(part string) bool {
	s, ok := m.synthetic[part]
	if !ok {
		return false
	}
	if s.held > 0 || time.Now().Before(s.until) {
		return true
	}
	delete(m.synthetic, part)
	return false
}

// FilterOwnInput wraps inj so the keys and buttons it injects never reach
// hotkey matching. Platforms whose hooks flag injected events get inj back.
func (m *Manager) FilterOwnInput(inj input.InputInjector) input.InputInjector {
	if platformFiltersInjected {
		return inj
	}
	return &ownInputFilter{InputInjector: inj, m: m}
}

type ownInputFilter struct {
	input.InputInjector
	m *Manager
}

func targetPart(t input.Target) string {
	if t.IsKey() {
		return keyPart(t.Key)
	}
	return buttonPart(t.Button)
}

func keyPart(k input.Key) string {
	parts, err := ParseCombo(string(k))
	if err != nil || len(parts) != 1 {
		return ""
	}
	return parts[0]
}

func buttonPart(b input.Button) string {
	switch b {
	case input.ButtonLeft:
		return "MOUSE1"
	case input.ButtonMiddle:
		return "MOUSE2"
	case input.ButtonRight:
		return "MOUSE3"
	}
	return ""
}

// around marks part synthetic for the duration of fn
func (f *ownInputFilter) around(part string, fn func() error) error {
	if part == "" {
		return fn()
	}
	f.m.beginSynthetic(part)
	defer f.m.endSynthetic(part)
	return fn()
}

func (f *ownInputFilter) Click(button input.Button, style input.ClickStyle) error {
	return f.around(buttonPart(button), func() error {
		return f.InputInjector.Click(button, style)
	})
}

func (f *ownInputFilter) TapKey(key input.Key) error {
	return f.around(keyPart(key), func() error {
		return f.InputInjector.TapKey(key)
	})
}

// PressAndHold keeps the target filtered until Release
func (f *ownInputFilter) PressAndHold(target input.Target) error {
	part := targetPart(target)
	if part == "" {
		return f.InputInjector.PressAndHold(target)
	}
	f.m.beginSynthetic(part)
	if err := f.InputInjector.PressAndHold(target); err != nil {
		f.m.endSynthetic(part)
		return err
	}
	return nil
}

func (f *ownInputFilter) Release(target input.Target) error {
	part := targetPart(target)
	if part == "" {
		return f.InputInjector.Release(target)
	}
	defer f.m.endSynthetic(part)
	return f.InputInjector.Release(target)
}
