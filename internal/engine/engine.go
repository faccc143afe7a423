// Package engine owns the single running automation: it arms the tick
// schedule, serializes every command through one mutex and guarantees held
// input is released before anything else is injected.
package engine

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"autoinput/internal/action"
	"autoinput/internal/input"
)

// Event is delivered to listeners when a run ends without a caller asking
type Event struct {
	SetupID string
	Mode    action.Mode
	Reason  Reason
	Ticks   uint64
	Err     error
}

// Status is a snapshot of the engine slot
type Status struct {
	Running     bool   `json:"running"`
	SetupID     string `json:"setup,omitempty"`
	Mode        string `json:"mode,omitempty"`
	Ticks       uint64 `json:"ticks"`
	FailedTicks uint64 `json:"failed_ticks"`
	LastError   string `json:"last_error,omitempty"`
}

// Engine runs at most one action at a time
type Engine struct {
	injector  input.InputInjector
	newTicker tickerFactory

	mu        sync.Mutex
	current   atomic.Pointer[run]
	closed    bool
	lastErr   error
	listeners []func(Event)
}

// New creates an engine that injects through inj
func New(inj input.InputInjector) *Engine {
	return &Engine{
		injector:  inj,
		newTicker: newRealTicker,
	}
}

// Subscribe registers fn for natural completion and forced-stop events.
// Listeners run on the finishing run's goroutine, outside the engine lock.
func (e *Engine) Subscribe(fn func(Event)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, fn)
}

// Start stops whatever is running and starts d. For hold modes the press has
// already been injected when Start returns.
func (e *Engine) Start(d action.Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.startLocked(d)
}

func (e *Engine) startLocked(d action.Descriptor) error {
	if e.closed {
		return ErrClosed
	}
	if err := e.stopLocked(); err != nil {
		log.Printf("Engine: Previous run released with error: %v", err)
	}

	if d.Mode == action.MouseHold {
		d.Drag = action.NewDragVector(d.Drag.DX, d.Drag.DY, d.Drag.Speed)
	}

	r := newRun(d, e.injector, e.newTicker)
	if d.Mode.Continuous() {
		if err := r.engage(); err != nil {
			return fmt.Errorf("failed to engage %s: %w", d.Target(), err)
		}
	}

	e.current.Store(r)
	e.lastErr = nil
	go e.drive(r)

	log.Printf("Engine: Started %s", d)
	return nil
}

// drive runs r and, if it ended on its own, clears the slot and notifies.
func (e *Engine) drive(r *run) {
	r.loop()
	r.finished.Store(true)
	close(r.done)

	if r.reason == reasonStopped {
		return
	}

	e.mu.Lock()
	e.current.CompareAndSwap(r, nil)
	if r.reason == ReasonFailed {
		e.lastErr = r.err
	}
	listeners := append([]func(Event){}, e.listeners...)
	e.mu.Unlock()

	ev := Event{
		SetupID: r.desc.SetupID,
		Mode:    r.desc.Mode,
		Reason:  r.reason,
		Ticks:   r.ticks.Load(),
		Err:     r.err,
	}
	if ev.Reason == ReasonFailed {
		log.Printf("Engine: %s force-stopped after %d ticks: %v", ev.SetupID, ev.Ticks, ev.Err)
	} else {
		log.Printf("Engine: %s completed after %d ticks", ev.SetupID, ev.Ticks)
	}
	for _, fn := range listeners {
		fn(ev)
	}
}

// Stop cancels the running action and waits until its held input, if any,
// has been released. Stopping an idle engine is a no-op.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopLocked()
}

func (e *Engine) stopLocked() error {
	r := e.current.Swap(nil)
	if r == nil {
		return nil
	}
	r.cancel()
	<-r.done

	if r.reason == reasonStopped {
		log.Printf("Engine: Stopped %s after %d ticks", r.desc.SetupID, r.ticks.Load())
	}
	return r.releaseErr
}

// Toggle stops the running action if it belongs to the same setup as d,
// otherwise starts d. Descriptors without a SetupID always start.
func (e *Engine) Toggle(d action.Descriptor) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if r := e.current.Load(); r != nil && !r.finished.Load() &&
		d.SetupID != "" && r.desc.SetupID == d.SetupID {
		return false, e.stopLocked()
	}

	if err := d.Validate(); err != nil {
		return false, err
	}
	if err := e.startLocked(d); err != nil {
		return false, err
	}
	return true, nil
}

// IsRunning reports whether an action is active. It never blocks.
func (e *Engine) IsRunning() bool {
	r := e.current.Load()
	return r != nil && !r.finished.Load()
}

// UpdateDragVector changes the direction of a running MouseHold drag. The next
// refresh picks it up. It is a no-op for any other state.
func (e *Engine) UpdateDragVector(dx, dy float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	r := e.current.Load()
	if r == nil || r.finished.Load() || r.desc.Mode != action.MouseHold {
		return nil
	}
	v := action.NewDragVector(dx, dy, r.drag.Load().Speed)
	r.drag.Store(&v)
	return nil
}

// Status returns a snapshot of the slot
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	var st Status
	if e.lastErr != nil {
		st.LastError = e.lastErr.Error()
	}
	r := e.current.Load()
	if r == nil || r.finished.Load() {
		return st
	}
	st.Running = true
	st.SetupID = r.desc.SetupID
	st.Mode = r.desc.Mode.String()
	st.Ticks = r.ticks.Load()
	st.FailedTicks = r.failures.Load()
	return st
}

// Shutdown stops the running action and refuses further starts
func (e *Engine) Shutdown() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return e.stopLocked()
}
