package timer

import (
	"testing"

	"pullupd/internal/eventbus"
	"pullupd/internal/notify"
	"pullupd/internal/workout"
	"pullupd/pkg/logx"
)

type fakeNotifier struct {
	sent []notify.Notification
}

func (f *fakeNotifier) Publish(n notify.Notification) bool {
	f.sent = append(f.sent, n)
	return true
}

var testWorkout = workout.Workout{
	ID: "w1",
	Timers: []workout.TimerDef{
		{ID: "t1", Name: "Hold", DurationSeconds: 3},
		{ID: "t2", Name: "Rest", DurationSeconds: 5},
		{ID: "t3", Name: "Interval", DurationSeconds: 2, Repeating: true},
	},
}

func newEngine() (*Engine, *fakeNotifier) {
	sink := &fakeNotifier{}
	e := New(sink, eventbus.New(), logx.Nop())
	e.SetWorkout(testWorkout)
	return e, sink
}

func TestCountdownFinishes(t *testing.T) {
	t.Parallel()
	e, sink := newEngine()

	e.Start("t1")
	e.Tick()
	e.Tick()
	if s, ok := e.Active(); !ok || s.Remaining != 1 {
		t.Fatalf("active = %+v, %v; want 1s left", s, ok)
	}
	e.Tick()
	if _, ok := e.Active(); ok {
		t.Fatal("one-shot timer should go idle at zero")
	}
	if len(sink.sent) != 1 || sink.sent[0].Title != "Hold" || !sink.sent[0].Sound {
		t.Fatalf("finish notification = %+v", sink.sent)
	}
	// Reset back to full duration.
	if s := e.Snapshot()[0]; s.State != StateIdle || s.Remaining != 3 {
		t.Fatalf("finished timer = %+v, want idle at 3s", s)
	}
}

func TestStartStopsAndResetsPrevious(t *testing.T) {
	t.Parallel()
	e, _ := newEngine()

	e.Start("t1")
	e.Tick()
	e.Start("t2")
	snaps := e.Snapshot()
	if snaps[0].State != StateIdle || snaps[0].Remaining != 3 {
		t.Fatalf("previous timer not reset: %+v", snaps[0])
	}
	if s, ok := e.Active(); !ok || s.Def.ID != "t2" {
		t.Fatalf("active = %+v, %v; want t2", s, ok)
	}
}

func TestRepeatingTimerRestarts(t *testing.T) {
	t.Parallel()
	e, sink := newEngine()

	e.Start("t3")
	e.Tick()
	e.Tick()
	s, ok := e.Active()
	if !ok || s.State != StateRunning || s.Remaining != 2 {
		t.Fatalf("repeating timer after elapse = %+v, %v; want running at 2s", s, ok)
	}
	if len(sink.sent) != 1 {
		t.Fatalf("interval notifications = %d, want 1", len(sink.sent))
	}
	e.Tick()
	e.Tick()
	if len(sink.sent) != 2 {
		t.Fatalf("second interval missing: %d", len(sink.sent))
	}
}

func TestStopResets(t *testing.T) {
	t.Parallel()
	e, _ := newEngine()

	e.Start("t2")
	e.Tick()
	e.Stop("t2")
	if _, ok := e.Active(); ok {
		t.Fatal("stop should clear active")
	}
	if s := e.Snapshot()[1]; s.Remaining != 5 {
		t.Fatalf("stop should reset remaining, got %d", s.Remaining)
	}
}

func TestSwitchingWorkoutDropsTimers(t *testing.T) {
	t.Parallel()
	e, sink := newEngine()

	e.Start("t1")
	e.SetWorkout(workout.Workout{ID: "w2", Timers: []workout.TimerDef{{ID: "x", Name: "X", DurationSeconds: 10}}})
	if _, ok := e.Active(); ok {
		t.Fatal("active timer should not survive a workout switch")
	}
	e.Tick()
	e.Tick()
	e.Tick()
	if len(sink.sent) != 0 {
		t.Fatalf("orphaned timer fired: %+v", sink.sent)
	}
	if got := e.Snapshot(); len(got) != 1 || got[0].Def.ID != "x" {
		t.Fatalf("snapshot after switch = %+v", got)
	}
}

func TestSetWorkoutSameIDKeepsState(t *testing.T) {
	t.Parallel()
	e, _ := newEngine()

	e.Start("t1")
	e.Tick()
	e.SetWorkout(testWorkout)
	if s, ok := e.Active(); !ok || s.Remaining != 2 {
		t.Fatalf("re-setting same workout reset state: %+v, %v", s, ok)
	}
}

func TestSetActiveStopsPreviousWithoutStarting(t *testing.T) {
	t.Parallel()
	e, _ := newEngine()

	e.Start("t1")
	e.Tick()
	e.SetActive("t2")
	s, ok := e.Active()
	if !ok || s.Def.ID != "t2" || s.State != StateIdle {
		t.Fatalf("Active() = %+v, %v, want t2 idle", s, ok)
	}
	if s := e.Snapshot()[0]; s.State != StateIdle || s.Remaining != 3 {
		t.Fatalf("previous timer = %+v, want idle at full duration", s)
	}
	e.Tick()
	if s, _ := e.Active(); s.Remaining != 5 {
		t.Fatalf("idle selection counted down to %d", s.Remaining)
	}
}

func TestUnknownTimerIgnored(t *testing.T) {
	t.Parallel()
	e, _ := newEngine()
	e.Start("nope")
	e.Stop("nope")
	if _, ok := e.Active(); ok {
		t.Fatal("unknown id must not activate anything")
	}
}
