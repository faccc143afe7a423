package engine

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"autoinput/internal/action"
	"autoinput/internal/input"
)

type fakeInjector struct {
	mu    sync.Mutex
	calls []string
	times []time.Time
	fail  func(call string) error
}

func (f *fakeInjector) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		if err := f.fail(call); err != nil {
			return err
		}
	}
	f.calls = append(f.calls, call)
	f.times = append(f.times, time.Now())
	return nil
}

func (f *fakeInjector) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeInjector) Click(b input.Button, s input.ClickStyle) error {
	return f.record(fmt.Sprintf("click %s %s", b, s))
}

func (f *fakeInjector) PressAndHold(t input.Target) error {
	return f.record("press " + t.String())
}

func (f *fakeInjector) Release(t input.Target) error {
	return f.record("release " + t.String())
}

func (f *fakeInjector) MoveCursorAbsolute(x, y int) error {
	return f.record(fmt.Sprintf("move to %d,%d", x, y))
}

func (f *fakeInjector) MoveCursorRelative(dx, dy int) error {
	return f.record(fmt.Sprintf("move by %d,%d", dx, dy))
}

func (f *fakeInjector) TapKey(k input.Key) error {
	return f.record("tap " + string(k))
}

type manualTicker struct {
	ch      chan time.Time
	mu      sync.Mutex
	periods []time.Duration
}

func newManualTicker() *manualTicker {
	return &manualTicker{ch: make(chan time.Time)}
}

func (t *manualTicker) factory(period time.Duration) ticker {
	t.mu.Lock()
	t.periods = append(t.periods, period)
	t.mu.Unlock()
	return t
}

func (t *manualTicker) C() <-chan time.Time {
	return t.ch
}

func (t *manualTicker) Stop() {}

// Tick blocks until the run goroutine has received the tick. The tick may
// still be in flight when Tick returns; use waitCalls to observe its effect.
func (t *manualTicker) Tick(tb testing.TB) {
	tb.Helper()
	select {
	case t.ch <- time.Now():
	case <-time.After(time.Second):
		tb.Fatal("run goroutine did not accept tick")
	}
}

// waitCalls waits until n calls starting with prefix have been recorded.
func (f *fakeInjector) waitCalls(tb testing.TB, prefix string, n int) {
	tb.Helper()
	deadline := time.Now().Add(time.Second)
	for countPrefix(f.Calls(), prefix) < n {
		if time.Now().After(deadline) {
			tb.Fatalf("Expected %d %q calls, got %v", n, prefix, f.Calls())
		}
		time.Sleep(time.Millisecond)
	}
}

func newTestEngine() (*Engine, *fakeInjector, *manualTicker) {
	inj := &fakeInjector{}
	mt := newManualTicker()
	e := New(inj)
	e.newTicker = mt.factory
	return e, inj, mt
}

func collectEvents(e *Engine) chan Event {
	ch := make(chan Event, 8)
	e.Subscribe(func(ev Event) { ch <- ev })
	return ch
}

func waitEvent(t *testing.T, ch chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for completion event")
		return Event{}
	}
}

func expectNoEvent(t *testing.T, ch chan Event) {
	t.Helper()
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func keyRepeat(id string, n uint64) action.Descriptor {
	return action.Descriptor{
		SetupID:  id,
		Mode:     action.KeyRepeat,
		Interval: action.Millis(100),
		Repeat:   action.Count(n),
		Key:      "e",
	}
}

func mouseHold(id string) action.Descriptor {
	return action.Descriptor{
		SetupID: id,
		Mode:    action.MouseHold,
		Button:  input.ButtonLeft,
		Drag:    action.NewDragVector(0, -1, 5),
	}
}

func TestCountedRunDeliversExactlyN(t *testing.T) {
	e, inj, mt := newTestEngine()
	events := collectEvents(e)

	if err := e.Start(keyRepeat("farm", 5)); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for i := 0; i < 4; i++ {
		mt.Tick(t)
	}

	ev := waitEvent(t, events)
	if ev.Reason != ReasonCompleted || ev.Ticks != 5 || ev.SetupID != "farm" {
		t.Errorf("Unexpected event: %+v", ev)
	}
	want := []string{"tap e", "tap e", "tap e", "tap e", "tap e"}
	if diff := cmp.Diff(want, inj.Calls()); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
	if e.IsRunning() {
		t.Error("Expected engine to be idle after completion")
	}
	if st := e.Status(); st.Running {
		t.Errorf("Expected empty slot, got %+v", st)
	}
	expectNoEvent(t, events)
}

func TestCountOneCompletesWithoutTicks(t *testing.T) {
	e, inj, _ := newTestEngine()
	events := collectEvents(e)

	d := action.Descriptor{
		SetupID:  "once",
		Mode:     action.MouseClick,
		Interval: action.Millis(20),
		Repeat:   action.Count(1),
		Button:   input.ButtonRight,
		Cursor:   action.FixedPosition(100, 200),
	}
	if err := e.Start(d); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitEvent(t, events)

	want := []string{"move to 100,200", "click right single"}
	if diff := cmp.Diff(want, inj.Calls()); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestKeyRepeatSpacing(t *testing.T) {
	inj := &fakeInjector{}
	e := New(inj)
	events := collectEvents(e)

	begin := time.Now()
	if err := e.Start(keyRepeat("E", 5)); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitEvent(t, events)

	inj.mu.Lock()
	defer inj.mu.Unlock()
	if len(inj.calls) != 5 {
		t.Fatalf("Expected 5 taps, got %d", len(inj.calls))
	}
	for i := 1; i < len(inj.times); i++ {
		if gap := inj.times[i].Sub(inj.times[i-1]); gap < 50*time.Millisecond {
			t.Errorf("Tap %d came %s after the previous one", i, gap)
		}
	}
	if elapsed := time.Since(begin); elapsed < 350*time.Millisecond {
		t.Errorf("Expected run to take ~400ms, took %s", elapsed)
	}
	if e.IsRunning() {
		t.Error("Expected engine to be idle")
	}
}

func TestInvalidDescriptorRejected(t *testing.T) {
	e, inj, _ := newTestEngine()
	if err := e.Start(mouseHold("drag")); err != nil {
		t.Fatalf("Start: %v", err)
	}

	err := e.Start(action.Descriptor{Mode: action.KeyRepeat, Key: "e"})
	if !errors.Is(err, action.ErrInvalidDescriptor) {
		t.Fatalf("Expected ErrInvalidDescriptor, got %v", err)
	}
	if !e.IsRunning() {
		t.Error("Rejected start must not stop the running action")
	}
	if diff := cmp.Diff([]string{"press left button"}, inj.Calls()); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
	e.Stop()
}

func TestStopIsIdempotent(t *testing.T) {
	e, inj, _ := newTestEngine()
	events := collectEvents(e)

	if err := e.Stop(); err != nil {
		t.Errorf("Stop on empty engine: %v", err)
	}
	if err := e.Start(action.Descriptor{SetupID: "hold", Mode: action.KeyHold, Key: "e"}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := e.Stop(); err != nil {
		t.Errorf("Stop: %v", err)
	}
	if err := e.Stop(); err != nil {
		t.Errorf("second Stop: %v", err)
	}

	want := []string{"press key e", "release key e"}
	if diff := cmp.Diff(want, inj.Calls()); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
	expectNoEvent(t, events)
}

func TestMouseHoldDrag(t *testing.T) {
	e, inj, mt := newTestEngine()

	if err := e.Start(mouseHold("drag")); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for i := 0; i < 3; i++ {
		mt.Tick(t)
	}
	inj.waitCalls(t, "move by 0,-5", 3)
	if err := e.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	want := []string{"press left button", "move by 0,-5", "move by 0,-5", "move by 0,-5", "release left button"}
	if diff := cmp.Diff(want, inj.Calls()); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]time.Duration{holdRefresh}, mt.periods); diff != "" {
		t.Errorf("cadence mismatch (-want +got):\n%s", diff)
	}
}

func TestUpdateDragVector(t *testing.T) {
	e, inj, mt := newTestEngine()

	d := mouseHold("drag")
	d.Drag = action.NewDragVector(1, 0, 10)
	if err := e.Start(d); err != nil {
		t.Fatalf("Start: %v", err)
	}

	mt.Tick(t)
	mt.Tick(t)
	if err := e.UpdateDragVector(0, 0); err != nil {
		t.Fatalf("UpdateDragVector: %v", err)
	}
	// The run has taken this tick, so the one before it is fully applied.
	mt.Tick(t)
	moved := countPrefix(inj.Calls(), "move by 10,0")

	mt.Tick(t)
	mt.Tick(t)
	e.Stop()

	calls := inj.Calls()
	if moved < 1 {
		t.Errorf("Expected at least one rightward move before the zero vector, got %v", calls)
	}
	if got := countPrefix(calls, "move by"); got != moved {
		t.Errorf("Expected no moves after the zero vector, calls: %v", calls)
	}
	if calls[len(calls)-1] != "release left button" {
		t.Errorf("Expected release last, got %v", calls)
	}
}

func TestUpdateDragVectorClampsAndIgnoresOtherModes(t *testing.T) {
	e, inj, mt := newTestEngine()

	if err := e.UpdateDragVector(1, 1); err != nil {
		t.Errorf("UpdateDragVector on empty engine: %v", err)
	}

	if err := e.Start(keyRepeat("keys", 0)); err == nil {
		t.Fatal("Expected count(0) to be rejected")
	}
	d := keyRepeat("keys", 3)
	if err := e.Start(d); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := e.UpdateDragVector(1, 0); err != nil {
		t.Errorf("UpdateDragVector during KeyRepeat: %v", err)
	}
	e.Stop()

	h := mouseHold("drag")
	h.Drag = action.NewDragVector(0, 0, 3)
	if err := e.Start(h); err != nil {
		t.Fatalf("Start: %v", err)
	}
	e.UpdateDragVector(-7, 0)
	mt.Tick(t)
	inj.waitCalls(t, "move by -3,0", 1)
	e.Stop()

	calls := inj.Calls()
	if got := countPrefix(calls, "move by -3,0"); got != 1 {
		t.Errorf("Expected one clamped move of -3,0, calls: %v", calls)
	}
}

func TestStartSupersedesContinuousRun(t *testing.T) {
	e, inj, _ := newTestEngine()
	events := collectEvents(e)

	if err := e.Start(mouseHold("A")); err != nil {
		t.Fatalf("Start A: %v", err)
	}
	b := keyRepeat("B", 1)
	if err := e.Start(b); err != nil {
		t.Fatalf("Start B: %v", err)
	}
	ev := waitEvent(t, events)
	if ev.SetupID != "B" {
		t.Errorf("Expected completion of B, got %+v", ev)
	}

	want := []string{"press left button", "release left button", "tap e"}
	if diff := cmp.Diff(want, inj.Calls()); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestToggle(t *testing.T) {
	e, inj, _ := newTestEngine()

	a := action.Descriptor{SetupID: "A", Mode: action.KeyHold, Key: "w"}
	b := action.Descriptor{SetupID: "B", Mode: action.KeyHold, Key: "w"}

	running, err := e.Toggle(a)
	if err != nil || !running {
		t.Fatalf("first Toggle(A): running=%v err=%v", running, err)
	}
	running, err = e.Toggle(a)
	if err != nil || running {
		t.Fatalf("second Toggle(A): running=%v err=%v", running, err)
	}
	if e.IsRunning() {
		t.Error("Expected empty slot after toggling A twice")
	}

	e.Toggle(a)
	running, err = e.Toggle(b)
	if err != nil || !running {
		t.Fatalf("Toggle(B): running=%v err=%v", running, err)
	}
	if st := e.Status(); st.SetupID != "B" {
		t.Errorf("Expected B running, got %+v", st)
	}
	e.Stop()

	want := []string{
		"press key w", "release key w",
		"press key w", "release key w",
		"press key w", "release key w",
	}
	if diff := cmp.Diff(want, inj.Calls()); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestToggleAnonymousAlwaysStarts(t *testing.T) {
	e, _, _ := newTestEngine()
	d := action.Descriptor{Mode: action.KeyHold, Key: "w"}

	e.Toggle(d)
	running, err := e.Toggle(d)
	if err != nil || !running {
		t.Errorf("Expected anonymous toggle to restart, running=%v err=%v", running, err)
	}
	e.Stop()
}

func TestTransientFailureKeepsRunning(t *testing.T) {
	e, inj, mt := newTestEngine()
	events := collectEvents(e)

	failed := false
	inj.fail = func(call string) error {
		if call == "tap e" && !failed {
			failed = true
			return fmt.Errorf("%w: blocked", input.ErrInjectionFailed)
		}
		return nil
	}

	if err := e.Start(keyRepeat("flaky", 2)); err != nil {
		t.Fatalf("Start: %v", err)
	}
	mt.Tick(t)
	if st := e.Status(); st.FailedTicks != 1 {
		t.Errorf("Expected 1 failed tick, got %+v", st)
	}
	mt.Tick(t)

	ev := waitEvent(t, events)
	if ev.Reason != ReasonCompleted || ev.Ticks != 2 {
		t.Errorf("Unexpected event: %+v", ev)
	}
	if got := len(inj.Calls()); got != 2 {
		t.Errorf("Expected 2 delivered taps, got %d", got)
	}
}

func TestUnrecoverableFailureForceStops(t *testing.T) {
	e, inj, mt := newTestEngine()
	events := collectEvents(e)

	locked := fmt.Errorf("%w: session locked", input.ErrInjectionUnrecoverable)
	inj.fail = func(call string) error {
		if call == "move by 0,-5" {
			return locked
		}
		return nil
	}

	if err := e.Start(mouseHold("drag")); err != nil {
		t.Fatalf("Start: %v", err)
	}
	mt.Tick(t)

	ev := waitEvent(t, events)
	if ev.Reason != ReasonFailed || !errors.Is(ev.Err, input.ErrInjectionUnrecoverable) {
		t.Errorf("Unexpected event: %+v", ev)
	}
	if diff := cmp.Diff([]string{"press left button", "release left button"}, inj.Calls()); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
	st := e.Status()
	if st.Running || st.LastError == "" {
		t.Errorf("Expected stopped engine with last error, got %+v", st)
	}
}

func TestEngageFailureLeavesSlotEmpty(t *testing.T) {
	e, inj, _ := newTestEngine()
	inj.fail = func(call string) error {
		if call == "press key e" {
			return input.ErrUnsupportedPlatform
		}
		return nil
	}

	err := e.Start(action.Descriptor{SetupID: "hold", Mode: action.KeyHold, Key: "e"})
	if !errors.Is(err, input.ErrUnsupportedPlatform) {
		t.Fatalf("Expected ErrUnsupportedPlatform, got %v", err)
	}
	if e.IsRunning() {
		t.Error("Expected empty slot after failed engage")
	}
}

func TestShutdownReleasesAndRefusesStart(t *testing.T) {
	e, inj, _ := newTestEngine()

	if err := e.Start(mouseHold("drag")); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := e.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if err := e.Start(mouseHold("drag")); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
	if _, err := e.Toggle(mouseHold("drag")); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed from Toggle, got %v", err)
	}
	if diff := cmp.Diff([]string{"press left button", "release left button"}, inj.Calls()); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestConcurrentCommands(t *testing.T) {
	inj := &fakeInjector{}
	e := New(inj)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("setup-%d", i%3)
			for j := 0; j < 20; j++ {
				switch j % 4 {
				case 0:
					e.Start(action.Descriptor{SetupID: id, Mode: action.KeyHold, Key: "w"})
				case 1:
					e.UpdateDragVector(1, 0)
				case 2:
					e.Toggle(action.Descriptor{SetupID: id, Mode: action.KeyHold, Key: "w"})
				case 3:
					e.Stop()
				}
			}
		}(i)
	}
	wg.Wait()
	e.Stop()

	presses := countPrefix(inj.Calls(), "press")
	releases := countPrefix(inj.Calls(), "release")
	if presses != releases {
		t.Errorf("Expected every press to be released, got %d presses and %d releases", presses, releases)
	}
}

func TestDragCadence(t *testing.T) {
	tests := []struct {
		speed int
		want  time.Duration
	}{
		{0, 16 * time.Millisecond},
		{5, 16 * time.Millisecond},
		{10, 16 * time.Millisecond},
		{20, 8 * time.Millisecond},
		{1_000_000, minDragCadence},
	}
	for _, tt := range tests {
		if got := dragCadence(tt.speed); got != tt.want {
			t.Errorf("dragCadence(%d): expected %s, got %s", tt.speed, tt.want, got)
		}
	}
}

func TestDragStep(t *testing.T) {
	tests := []struct {
		v      action.DragVector
		dx, dy int
	}{
		{action.NewDragVector(0, -1, 5), 0, -5},
		{action.NewDragVector(1, 0, 25), 10, 0},
		{action.NewDragVector(0.2, 0, 5), 5, 0},
		{action.NewDragVector(1, 1, 10), 7, 7},
		{action.NewDragVector(0, 0, 10), 0, 0},
	}
	for _, tt := range tests {
		dx, dy := dragStep(tt.v)
		if dx != tt.dx || dy != tt.dy {
			t.Errorf("dragStep(%+v): expected (%d, %d), got (%d, %d)", tt.v, tt.dx, tt.dy, dx, dy)
		}
	}
}

func countPrefix(calls []string, prefix string) int {
	n := 0
	for _, c := range calls {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}
