// Package action describes a single automation run: what to inject, how
// often, and for how long.
package action

import (
	"fmt"
	"math"
	"strings"
	"time"

	"autoinput/internal/input"
)

// Mode selects the kind of automation
type Mode int

const (
	MouseClick Mode = iota + 1
	MouseHold
	KeyHold
	KeyRepeat
)

// ParseMode converts a mode name to a Mode
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mouse-click":
		return MouseClick, nil
	case "mouse-hold":
		return MouseHold, nil
	case "key-hold":
		return KeyHold, nil
	case "key-repeat":
		return KeyRepeat, nil
	}
	return 0, fmt.Errorf("unknown mode %q", s)
}

func (m Mode) String() string {
	switch m {
	case MouseClick:
		return "mouse-click"
	case MouseHold:
		return "mouse-hold"
	case KeyHold:
		return "key-hold"
	case KeyRepeat:
		return "key-repeat"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Continuous reports whether the mode holds input down for the whole run
// instead of emitting one event per interval.
func (m Mode) Continuous() bool {
	return m == MouseHold || m == KeyHold
}

// Interval is the user-facing tick period
type Interval struct {
	Hours        uint64
	Minutes      uint64
	Seconds      uint64
	Milliseconds uint64
}

// Duration sums the interval parts
func (i Interval) Duration() time.Duration {
	ms := i.Milliseconds + i.Seconds*1000 + i.Minutes*60_000 + i.Hours*3_600_000
	return time.Duration(ms) * time.Millisecond
}

// Millis returns a millisecond-only interval
func Millis(ms uint64) Interval {
	return Interval{Milliseconds: ms}
}

// RepeatPolicy bounds the number of discrete events in a run
type RepeatPolicy struct {
	Limited bool
	N       uint64
}

// Infinite repeats until stopped
var Infinite = RepeatPolicy{}

// Count stops after n events
func Count(n uint64) RepeatPolicy {
	return RepeatPolicy{Limited: true, N: n}
}

func (r RepeatPolicy) String() string {
	if !r.Limited {
		return "infinite"
	}
	return fmt.Sprintf("count(%d)", r.N)
}

// CursorPolicy is either the current cursor position or a fixed point
type CursorPolicy struct {
	Fixed bool
	X, Y  int
}

// CurrentPosition leaves the cursor where the user put it
var CurrentPosition = CursorPolicy{}

// FixedPosition moves the cursor to (x, y) before each click
func FixedPosition(x, y int) CursorPolicy {
	return CursorPolicy{Fixed: true, X: x, Y: y}
}

// DragVector is the live direction of a MouseHold drag. DX and DY stay within
// [-1, 1]; Speed is pixels per refresh, at least 1.
type DragVector struct {
	DX    float64
	DY    float64
	Speed int
}

// NewDragVector returns a clamped drag vector
func NewDragVector(dx, dy float64, speed int) DragVector {
	if speed < 1 {
		speed = 1
	}
	return DragVector{DX: ClampUnit(dx), DY: ClampUnit(dy), Speed: speed}
}

// ClampUnit clamps v to [-1, 1], mapping NaN to 0
func ClampUnit(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v > 1:
		return 1
	case v < -1:
		return -1
	}
	return v
}

// IsZero reports whether the vector produces no movement
func (v DragVector) IsZero() bool {
	return v.DX == 0 && v.DY == 0
}

// Descriptor is one immutable run request
type Descriptor struct {
	// SetupID is the caller's identity for toggle equivalence
	SetupID string

	Mode       Mode
	Interval   Interval
	Repeat     RepeatPolicy
	Button     input.Button
	Key        input.Key
	ClickStyle input.ClickStyle
	Cursor     CursorPolicy
	Drag       DragVector
}

// Target returns the button or key held by continuous modes
func (d Descriptor) Target() input.Target {
	if d.Mode == KeyHold || d.Mode == KeyRepeat {
		return input.KeyTarget(d.Key)
	}
	return input.MouseTarget(d.Button)
}

// Validate checks the descriptor without touching any state
func (d Descriptor) Validate() error {
	switch d.Mode {
	case MouseClick, KeyRepeat:
		if d.Interval.Duration() <= 0 {
			return fmt.Errorf("%w: interval must be greater than 0", ErrInvalidDescriptor)
		}
		if d.Repeat.Limited && d.Repeat.N < 1 {
			return fmt.Errorf("%w: repeat count must be at least 1", ErrInvalidDescriptor)
		}
	case MouseHold, KeyHold:
	default:
		return fmt.Errorf("%w: unknown mode %d", ErrInvalidDescriptor, int(d.Mode))
	}

	switch d.Mode {
	case MouseClick, MouseHold:
		if !d.Button.Valid() {
			return fmt.Errorf("%w: invalid mouse button %d", ErrInvalidDescriptor, int(d.Button))
		}
	case KeyHold, KeyRepeat:
		if d.Key == "" {
			return fmt.Errorf("%w: no key selected", ErrInvalidDescriptor)
		}
	}
	return nil
}

func (d Descriptor) String() string {
	name := d.SetupID
	if name == "" {
		name = "<anonymous>"
	}
	switch d.Mode {
	case MouseClick:
		return fmt.Sprintf("%s: %s %s click every %s, %s", name, d.ClickStyle, d.Button, d.Interval.Duration(), d.Repeat)
	case KeyRepeat:
		return fmt.Sprintf("%s: tap %s every %s, %s", name, d.Key, d.Interval.Duration(), d.Repeat)
	case MouseHold:
		return fmt.Sprintf("%s: hold %s, drag (%.2f, %.2f) speed %d", name, d.Button, d.Drag.DX, d.Drag.DY, d.Drag.Speed)
	case KeyHold:
		return fmt.Sprintf("%s: hold key %s", name, d.Key)
	}
	return fmt.Sprintf("%s: %s", name, d.Mode)
}
