package engine

import (
	"fmt"
	"log"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"autoinput/internal/action"
	"autoinput/internal/input"
)

const (
	// holdRefresh is the cadence of continuous runs (~60 Hz)
	holdRefresh = 16 * time.Millisecond

	// maxDragStep caps the pixels moved by a single drag refresh
	maxDragStep = 10

	minDragCadence = 200 * time.Microsecond
)

type ticker interface {
	C() <-chan time.Time
	Stop()
}

type realTicker struct {
	*time.Ticker
}

func (t realTicker) C() <-chan time.Time {
	return t.Ticker.C
}

type tickerFactory func(period time.Duration) ticker

func newRealTicker(period time.Duration) ticker {
	return realTicker{time.NewTicker(period)}
}

// Reason tells listeners why a run ended on its own
type Reason string

const (
	ReasonCompleted Reason = "completed"
	ReasonFailed    Reason = "failed"

	reasonStopped Reason = "stopped"
)

// dragCadence returns the refresh period for a drag at the given speed.
// Speeds up to maxDragStep refresh every 16ms; faster drags keep the step at
// maxDragStep and refresh more often instead.
func dragCadence(speed int) time.Duration {
	if speed < 1 {
		speed = 1
	}
	step := time.Duration(min(speed, maxDragStep))
	// step / (speed * 62.5) seconds
	d := step * 2 * time.Second / time.Duration(speed*125)
	return max(d, minDragCadence)
}

// dragStep converts a drag vector into one relative cursor offset
func dragStep(v action.DragVector) (int, int) {
	mag := math.Hypot(v.DX, v.DY)
	if mag == 0 {
		return 0, 0
	}
	step := float64(min(max(v.Speed, 1), maxDragStep))
	return int(math.Round(v.DX / mag * step)), int(math.Round(v.DY / mag * step))
}

// run is one armed schedule. Everything except stop and drag is owned by the
// run goroutine until done is closed.
type run struct {
	desc      action.Descriptor
	injector  input.InputInjector
	newTicker tickerFactory

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	drag     atomic.Pointer[action.DragVector]
	ticks    atomic.Uint64
	failures atomic.Uint64
	finished atomic.Bool

	reason     Reason
	err        error
	releaseErr error
}

func newRun(d action.Descriptor, inj input.InputInjector, nt tickerFactory) *run {
	r := &run{
		desc:      d,
		injector:  inj,
		newTicker: nt,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	v := d.Drag
	r.drag.Store(&v)
	return r
}

// cancel asks the run goroutine to exit; wait for done to observe it.
func (r *run) cancel() {
	r.stopOnce.Do(func() { close(r.stop) })
}

func (r *run) stopRequested() bool {
	select {
	case <-r.stop:
		return true
	default:
		return false
	}
}

// engage presses the held target for continuous modes. Called by Start before
// the goroutine is spawned.
func (r *run) engage() error {
	if r.desc.Mode == action.MouseHold && r.desc.Cursor.Fixed {
		if err := r.injector.MoveCursorAbsolute(r.desc.Cursor.X, r.desc.Cursor.Y); err != nil {
			return err
		}
	}
	return r.injector.PressAndHold(r.desc.Target())
}

func (r *run) disengage() {
	if err := r.injector.Release(r.desc.Target()); err != nil {
		log.Printf("Engine: Failed to release %s: %v", r.desc.Target(), err)
		r.releaseErr = err
	}
}

// loop runs the schedule to completion and records why it ended
func (r *run) loop() {
	if r.desc.Mode.Continuous() {
		r.runContinuous()
	} else {
		r.runDiscrete()
	}
}

func (r *run) runDiscrete() {
	t := r.newTicker(r.desc.Interval.Duration())
	defer t.Stop()

	for {
		if r.stopRequested() {
			r.reason = reasonStopped
			return
		}
		if err := r.fire(); err != nil {
			r.reason, r.err = ReasonFailed, err
			return
		}
		if r.desc.Repeat.Limited && r.ticks.Load() >= r.desc.Repeat.N {
			r.reason = ReasonCompleted
			return
		}

		select {
		case <-r.stop:
			r.reason = reasonStopped
			return
		case <-t.C():
		}
	}
}

// fire delivers one discrete event. Only unrecoverable errors are returned;
// transient ones are counted and the tick is skipped.
func (r *run) fire() error {
	var err error
	switch r.desc.Mode {
	case action.MouseClick:
		if r.desc.Cursor.Fixed {
			err = r.injector.MoveCursorAbsolute(r.desc.Cursor.X, r.desc.Cursor.Y)
		}
		if err == nil {
			err = r.injector.Click(r.desc.Button, r.desc.ClickStyle)
		}
	case action.KeyRepeat:
		err = r.injector.TapKey(r.desc.Key)
	default:
		return fmt.Errorf("%s is not a discrete mode", r.desc.Mode)
	}
	return r.account(err)
}

func (r *run) account(err error) error {
	if err == nil {
		r.ticks.Add(1)
		return nil
	}
	if input.IsUnrecoverable(err) {
		return err
	}
	n := r.failures.Add(1)
	log.Printf("Engine: Tick skipped for %s (%d failed so far): %v", r.desc.SetupID, n, err)
	return nil
}

func (r *run) runContinuous() {
	defer r.disengage()

	period := holdRefresh
	if r.desc.Mode == action.MouseHold {
		period = dragCadence(r.desc.Drag.Speed)
	}
	t := r.newTicker(period)
	defer t.Stop()

	for {
		select {
		case <-r.stop:
			r.reason = reasonStopped
			return
		case <-t.C():
		}
		if r.stopRequested() {
			r.reason = reasonStopped
			return
		}

		var err error
		if r.desc.Mode == action.MouseHold {
			if dx, dy := dragStep(*r.drag.Load()); dx != 0 || dy != 0 {
				err = r.injector.MoveCursorRelative(dx, dy)
			}
		}
		if hard := r.account(err); hard != nil {
			r.reason, r.err = ReasonFailed, hard
			return
		}
	}
}
