// Package control is the command surface in front of the action engine.
// The API, the tray and the global hotkeys all drive the engine through it.
package control

import (
	"fmt"
	"log"
	"sync"
	"time"

	"autoinput/internal/action"
	"autoinput/internal/config"
	"autoinput/internal/engine"
)

// HotkeyDebounce is the minimum gap between two hotkey-triggered commands
const HotkeyDebounce = 500 * time.Millisecond

// Surface resolves setups and forwards commands to the engine
type Surface struct {
	engine    *engine.Engine
	configMgr *config.Manager

	hkMu       sync.Mutex
	lastHotkey time.Time
	debounce   time.Duration
}

// New creates a command surface
func New(eng *engine.Engine, configMgr *config.Manager) *Surface {
	return &Surface{
		engine:    eng,
		configMgr: configMgr,
		debounce:  HotkeyDebounce,
	}
}

// StartAction starts d, replacing whatever is running
func (s *Surface) StartAction(d action.Descriptor) error {
	return s.engine.Start(d)
}

// StopAction stops the running action, if any
func (s *Surface) StopAction() error {
	return s.engine.Stop()
}

// ToggleAction stops d's setup if it is running, otherwise starts d
func (s *Surface) ToggleAction(d action.Descriptor) (bool, error) {
	return s.engine.Toggle(d)
}

// IsRunning reports whether an action is active
func (s *Surface) IsRunning() bool {
	return s.engine.IsRunning()
}

// UpdateDragVector steers a running drag
func (s *Surface) UpdateDragVector(dx, dy float64) error {
	return s.engine.UpdateDragVector(dx, dy)
}

// Status returns the engine status
func (s *Surface) Status() engine.Status {
	return s.engine.Status()
}

// Subscribe registers fn for action-stopped events
func (s *Surface) Subscribe(fn func(engine.Event)) {
	s.engine.Subscribe(fn)
}

// Shutdown stops the running action and refuses further starts
func (s *Surface) Shutdown() error {
	return s.engine.Shutdown()
}

// Setups returns the configured setups
func (s *Surface) Setups() []config.Setup {
	cfg := s.configMgr.Get()
	return append([]config.Setup(nil), cfg.Setups...)
}

// Descriptor resolves a setup name to a run request
func (s *Surface) Descriptor(name string) (action.Descriptor, error) {
	setup, ok := s.configMgr.GetSetup(name)
	if !ok {
		return action.Descriptor{}, fmt.Errorf("%w: %q", ErrSetupNotFound, name)
	}
	return setup.Descriptor()
}

// StartSetup starts the named setup
func (s *Surface) StartSetup(name string) error {
	d, err := s.Descriptor(name)
	if err != nil {
		return err
	}
	return s.engine.Start(d)
}

// ToggleSetup toggles the named setup
func (s *Surface) ToggleSetup(name string) (bool, error) {
	d, err := s.Descriptor(name)
	if err != nil {
		return false, err
	}
	return s.engine.Toggle(d)
}

// ActiveSetup returns the name of the setup the global hotkeys act on
func (s *Surface) ActiveSetup() string {
	return s.configMgr.Get().General.ActiveSetup
}

// HotkeyTrigger wraps a command for use as a hotkey callback. Repeated fires
// within HotkeyDebounce of the last accepted one are dropped.
func (s *Surface) HotkeyTrigger(name string, fn func() error) func() {
	return func() {
		if !s.acceptHotkey() {
			return
		}
		log.Printf("Hotkey: %s", name)
		if err := fn(); err != nil {
			log.Printf("Hotkey: %s failed: %v", name, err)
		}
	}
}

func (s *Surface) acceptHotkey() bool {
	s.hkMu.Lock()
	defer s.hkMu.Unlock()
	if time.Since(s.lastHotkey) < s.debounce {
		return false
	}
	s.lastHotkey = time.Now()
	return true
}
