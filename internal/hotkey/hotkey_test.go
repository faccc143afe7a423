package hotkey

import (
	"errors"
	"testing"
	"time"

	"autoinput/internal/input"
)

func waitFired(t *testing.T, ch chan string, want string) {
	t.Helper()
	select {
	case got := <-ch:
		if got != want {
			t.Errorf("Expected '%s' to fire, got '%s'", want, got)
		}
	case <-time.After(time.Second):
		t.Fatalf("Expected '%s' to fire", want)
	}
}

func expectQuiet(t *testing.T, ch chan string) {
	t.Helper()
	select {
	case got := <-ch:
		t.Errorf("Unexpected hotkey fired: %s", got)
	case <-time.After(50 * time.Millisecond):
	}
}

// TestComboMatching tests that a combo fires only when all parts are held
func TestComboMatching(t *testing.T) {
	m := NewManager()
	fired := make(chan string, 4)
	m.Register("Ctrl+Alt+1", func() { fired <- "ctrl+alt+1" })
	m.Register("F6", func() { fired <- "f6" })

	m.UpdateState("CTRL", true)
	m.UpdateState("1", true)
	expectQuiet(t, fired)

	m.UpdateState("ALT", true)
	waitFired(t, fired, "ctrl+alt+1")

	m.UpdateState("1", false)
	m.UpdateState("ALT", false)
	m.UpdateState("CTRL", false)

	m.UpdateState("f6", true)
	waitFired(t, fired, "f6")
}

// TestUnrelatedKeyDoesNotRefire tests that holding a combo and pressing another key is quiet
func TestUnrelatedKeyDoesNotRefire(t *testing.T) {
	m := NewManager()
	fired := make(chan string, 4)
	m.Register("F6", func() { fired <- "f6" })

	m.UpdateState("F6", true)
	waitFired(t, fired, "f6")

	m.UpdateState("A", true)
	expectQuiet(t, fired)
}

// TestMouseCombo tests mouse button parts
func TestMouseCombo(t *testing.T) {
	m := NewManager()
	fired := make(chan string, 2)
	m.Register("Shift+Mouse4", func() { fired <- "shift+mouse4" })

	m.UpdateState("SHIFT", true)
	m.UpdateState("MOUSE4", true)
	waitFired(t, fired, "shift+mouse4")
}

// TestClear tests that cleared hotkeys no longer fire
func TestClear(t *testing.T) {
	m := NewManager()
	fired := make(chan string, 1)
	m.Register("F6", func() { fired <- "f6" })
	if m.Count() != 1 {
		t.Errorf("Expected 1 hotkey, got %d", m.Count())
	}

	m.Clear()
	m.UpdateState("F6", true)
	expectQuiet(t, fired)
}

// TestParseCombo tests normalization of hotkey strings
func TestParseCombo(t *testing.T) {
	parts, err := ParseCombo("control + escape")
	if err != nil {
		t.Fatalf("ParseCombo: %v", err)
	}
	if len(parts) != 2 || parts[0] != "CTRL" || parts[1] != "ESC" {
		t.Errorf("Expected [CTRL ESC], got %v", parts)
	}

	if _, err := ParseCombo("Ctrl++"); err == nil {
		t.Error("Expected error for empty part")
	}
	if _, err := NewManager().Register("Ctrl+", func() {}); err == nil {
		t.Error("Expected Register to reject an invalid combo")
	}
	if id, err := NewManager().Register("", func() {}); err != nil || id != 0 {
		t.Errorf("Expected empty hotkey to be ignored, got id=%d err=%v", id, err)
	}
}

type nopInjector struct {
	failPress bool
}

func (nopInjector) Click(input.Button, input.ClickStyle) error { return nil }
func (nopInjector) Release(input.Target) error                 { return nil }
func (nopInjector) MoveCursorAbsolute(int, int) error          { return nil }
func (nopInjector) MoveCursorRelative(int, int) error          { return nil }
func (nopInjector) TapKey(input.Key) error                     { return nil }

func (n nopInjector) PressAndHold(input.Target) error {
	if n.failPress {
		return errors.New("refused")
	}
	return nil
}

func skipIfHookFlagsInjected(t *testing.T) {
	t.Helper()
	if platformFiltersInjected {
		t.Skip("hooks drop injected events by flag on this platform")
	}
}

// TestOwnTapDoesNotTrigger tests that a repeated key equal to a hotkey does not fire it
func TestOwnTapDoesNotTrigger(t *testing.T) {
	skipIfHookFlagsInjected(t)
	m := NewManager()
	m.grace = 30 * time.Millisecond
	fired := make(chan string, 4)
	m.Register("E", func() { fired <- "e" })

	inj := m.FilterOwnInput(nopInjector{})
	if err := inj.TapKey("e"); err != nil {
		t.Fatalf("TapKey: %v", err)
	}
	m.UpdateState("E", true)
	m.UpdateState("E", false)
	expectQuiet(t, fired)

	// a real press after the grace period still fires
	time.Sleep(40 * time.Millisecond)
	m.UpdateState("E", true)
	waitFired(t, fired, "e")
}

// TestOwnHoldFilteredUntilRelease tests that a held key or button stays filtered while held
func TestOwnHoldFilteredUntilRelease(t *testing.T) {
	skipIfHookFlagsInjected(t)
	m := NewManager()
	m.grace = 30 * time.Millisecond
	fired := make(chan string, 4)
	m.Register("Mouse1", func() { fired <- "mouse1" })
	m.Register("Escape", func() { fired <- "esc" })

	inj := m.FilterOwnInput(nopInjector{})
	if err := inj.PressAndHold(input.MouseTarget(input.ButtonLeft)); err != nil {
		t.Fatalf("PressAndHold: %v", err)
	}
	time.Sleep(40 * time.Millisecond)
	m.UpdateState("MOUSE1", true)
	expectQuiet(t, fired)

	// other parts are unaffected
	m.UpdateState("ESC", true)
	waitFired(t, fired, "esc")
	m.UpdateState("ESC", false)

	if err := inj.Release(input.MouseTarget(input.ButtonLeft)); err != nil {
		t.Fatalf("Release: %v", err)
	}
	time.Sleep(40 * time.Millisecond)
	m.UpdateState("MOUSE1", true)
	waitFired(t, fired, "mouse1")
}

// TestFailedPressNotFiltered tests that a refused press does not leave the part filtered
func TestFailedPressNotFiltered(t *testing.T) {
	skipIfHookFlagsInjected(t)
	m := NewManager()
	m.grace = 0
	fired := make(chan string, 1)
	m.Register("W", func() { fired <- "w" })

	inj := m.FilterOwnInput(nopInjector{failPress: true})
	if err := inj.PressAndHold(input.KeyTarget("w")); err == nil {
		t.Fatal("Expected PressAndHold to fail")
	}
	m.UpdateState("W", true)
	waitFired(t, fired, "w")
}
