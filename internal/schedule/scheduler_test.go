package schedule

import (
	"context"
	"testing"
	"time"

	"pullupd/internal/eventbus"
	"pullupd/internal/notify"
	"pullupd/internal/storage"
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

func (f *fakeNotifier) workoutAlerts() int {
	c := 0
	for _, n := range f.sent {
		if n.Kind == notify.KindWorkout {
			c++
		}
	}
	return c
}

type fixture struct {
	sched *Scheduler
	store *workout.Store
	sink  *fakeNotifier
}

func newFixture(t *testing.T, workouts []workout.Workout) *fixture {
	t.Helper()
	blobs, err := storage.Open(storage.Config{Driver: "file", Path: t.TempDir()}, logx.Nop())
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { blobs.Close() })
	st := workout.NewStore(blobs, logx.Nop())
	st.SaveWorkouts(context.Background(), workouts)

	sink := &fakeNotifier{}
	sched := New(Config{Interval: 30 * time.Minute, Location: time.UTC}, st, sink, eventbus.New(), logx.Nop())
	return &fixture{sched: sched, store: st, sink: sink}
}

// at builds a UTC instant on a fixed Monday.
func at(hhmm string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", "2026-08-24 "+hhmm)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

func TestFirstAlertFiresExactlyOnce(t *testing.T) {
	t.Parallel()
	f := newFixture(t, []workout.Workout{{ID: "w1", Title: "Pull-ups", Time: "09:00"}})

	f.sched.Evaluate(at("08:59"))
	if got := f.sink.workoutAlerts(); got != 0 {
		t.Fatalf("alert before due time: %d", got)
	}
	if f.sched.Snapshot()[0].Status != StatusPending {
		t.Fatalf("status before due = %v", f.sched.Snapshot()[0].Status)
	}

	f.sched.Evaluate(at("09:00"))
	if got := f.sink.workoutAlerts(); got != 1 {
		t.Fatalf("alerts at due time = %d, want 1", got)
	}
	if f.sched.Snapshot()[0].Status != StatusDue {
		t.Fatalf("status at due = %v", f.sched.Snapshot()[0].Status)
	}

	// Repeated ticks inside the reminder window stay quiet.
	f.sched.Evaluate(at("09:00"))
	f.sched.Evaluate(at("09:01"))
	f.sched.Evaluate(at("09:29"))
	if got := f.sink.workoutAlerts(); got != 1 {
		t.Fatalf("alerts within window = %d, want 1", got)
	}
}

func TestReminderCatchUp(t *testing.T) {
	t.Parallel()
	f := newFixture(t, []workout.Workout{{ID: "w1", Title: "Pull-ups", Time: "09:00"}})

	f.sched.Evaluate(at("09:00"))
	f.sched.Evaluate(at("09:30"))
	if got := f.sink.workoutAlerts(); got != 2 {
		t.Fatalf("alerts after one interval = %d, want 2", got)
	}

	// A long gap yields one reminder, and the next deadline lands on the
	// 09:00 + k*interval grid strictly after now.
	f.sched.Evaluate(at("11:10"))
	if got := f.sink.workoutAlerts(); got != 3 {
		t.Fatalf("alerts after gap = %d, want 3", got)
	}
	f.sched.Evaluate(at("11:29"))
	if got := f.sink.workoutAlerts(); got != 3 {
		t.Fatalf("reminder fired off-grid: %d", got)
	}
	f.sched.Evaluate(at("11:30"))
	if got := f.sink.workoutAlerts(); got != 4 {
		t.Fatalf("grid reminder missing: %d", got)
	}
}

func TestCompletionStopsReminders(t *testing.T) {
	t.Parallel()
	f := newFixture(t, []workout.Workout{{ID: "w1", Title: "Pull-ups", Time: "09:00"}})
	f.sched.now = func() time.Time { return at("09:05") }

	f.sched.Evaluate(at("09:00"))
	f.sched.Complete("w1")
	if f.sched.Snapshot()[0].Status != StatusCompleted {
		t.Fatalf("status after complete = %v", f.sched.Snapshot()[0].Status)
	}
	f.sched.Evaluate(at("12:00"))
	if got := f.sink.workoutAlerts(); got != 1 {
		t.Fatalf("completed workout kept alerting: %d", got)
	}
	// Completion is persisted for the day.
	if !f.store.IsCompleted(context.Background(), "w1", "2026-08-24") {
		t.Fatal("completion not persisted")
	}
}

func TestRolloverResetsDay(t *testing.T) {
	t.Parallel()
	f := newFixture(t, []workout.Workout{{ID: "w1", Title: "Pull-ups", Time: "09:00"}})
	f.sched.now = func() time.Time { return at("09:05") }

	f.sched.Evaluate(at("09:00"))
	f.sched.Complete("w1")

	// Next day, same wall clock: completion is gone, alert fires again.
	next := at("09:00").Add(24 * time.Hour)
	f.sched.Evaluate(next)
	if got := f.sink.workoutAlerts(); got != 2 {
		t.Fatalf("alerts after rollover = %d, want 2", got)
	}
	if f.sched.Snapshot()[0].Status != StatusDue {
		t.Fatalf("status after rollover = %v", f.sched.Snapshot()[0].Status)
	}
}

func TestDayFilter(t *testing.T) {
	t.Parallel()
	// 2026-08-24 is a Monday; the workout runs Tuesdays only.
	f := newFixture(t, []workout.Workout{{ID: "w1", Title: "Tuesdays", Time: "09:00", Days: []string{"di"}}})

	f.sched.Evaluate(at("10:00"))
	if got := f.sink.workoutAlerts(); got != 0 {
		t.Fatalf("off-day workout alerted: %d", got)
	}
	if f.sched.Snapshot()[0].Status != StatusNotToday {
		t.Fatalf("status = %v, want not-today", f.sched.Snapshot()[0].Status)
	}

	f.sched.Evaluate(at("09:00").Add(24 * time.Hour))
	if got := f.sink.workoutAlerts(); got != 1 {
		t.Fatalf("on-day alert missing: %d", got)
	}
}

func TestRepeatingWorkout(t *testing.T) {
	t.Parallel()
	f := newFixture(t, []workout.Workout{{
		ID: "w1", Title: "Posture", Repeating: true, RepeatIntervalMinutes: 30,
	}})

	// First evaluation anchors the cycle at now + interval.
	f.sched.Evaluate(at("08:00"))
	f.sched.Evaluate(at("08:29"))
	if got := f.sink.workoutAlerts(); got != 0 {
		t.Fatalf("repeating alerted early: %d", got)
	}
	f.sched.Evaluate(at("08:30"))
	if got := f.sink.workoutAlerts(); got != 1 {
		t.Fatalf("repeating first alert = %d, want 1", got)
	}

	// Completing reschedules one interval out and never touches the store.
	f.sched.now = func() time.Time { return at("08:35") }
	f.sched.Complete("w1")
	if f.store.IsCompleted(context.Background(), "w1", "2026-08-24") {
		t.Fatal("repeating completion must not persist")
	}
	if f.sched.Snapshot()[0].Status != StatusPending {
		t.Fatalf("status after repeating complete = %v", f.sched.Snapshot()[0].Status)
	}
	f.sched.Evaluate(at("09:04"))
	if got := f.sink.workoutAlerts(); got != 1 {
		t.Fatalf("rescheduled repeat fired early: %d", got)
	}
	f.sched.Evaluate(at("09:05"))
	if got := f.sink.workoutAlerts(); got != 2 {
		t.Fatalf("rescheduled repeat missing: %d", got)
	}
}

func TestRepeatingCycleSurvivesRollover(t *testing.T) {
	t.Parallel()
	f := newFixture(t, []workout.Workout{{
		ID: "w1", Title: "Posture", Repeating: true, RepeatIntervalMinutes: 30,
	}})

	// Anchored at 23:50, due 00:20 the next day.
	f.sched.Evaluate(at("23:50"))
	f.sched.Evaluate(at("23:50").Add(25 * time.Minute))
	if got := f.sink.workoutAlerts(); got != 0 {
		t.Fatalf("rollover re-anchored a pending cycle: %d alerts", got)
	}
	f.sched.Evaluate(at("23:50").Add(30 * time.Minute))
	if got := f.sink.workoutAlerts(); got != 1 {
		t.Fatalf("cross-midnight deadline lost: %d alerts", got)
	}
}

func TestActivePrefersVisibleWorkout(t *testing.T) {
	t.Parallel()
	f := newFixture(t, []workout.Workout{
		{ID: "w1", Title: "First", Time: "09:00"},
		{ID: "w2", Title: "Second", Time: "10:00"},
	})

	f.sched.Evaluate(at("09:00"))
	active, ok := f.sched.Active()
	if !ok || active.ID != "w1" {
		t.Fatalf("active = %v, %v; want w1", active.ID, ok)
	}

	// w1 stays on screen; w2 becoming due must not steal the slot.
	f.sched.SetVisible("w1")
	f.sched.Evaluate(at("10:00"))
	active, ok = f.sched.Active()
	if !ok || active.ID != "w1" {
		t.Fatalf("visible uncompleted workout displaced by %v", active.ID)
	}

	// Once w1 is completed the earliest due workout takes over.
	f.sched.now = func() time.Time { return at("10:01") }
	f.sched.Complete("w1")
	active, ok = f.sched.Active()
	if !ok || active.ID != "w2" {
		t.Fatalf("active after completion = %v, want w2", active.ID)
	}
}

func TestActiveKeepsVisiblePendingWorkout(t *testing.T) {
	t.Parallel()
	f := newFixture(t, []workout.Workout{
		{ID: "morning", Title: "Morning", Time: "09:00"},
		{ID: "evening", Title: "Evening", Time: "18:00"},
	})

	// The user opens the evening workout to preview it before it is due.
	f.sched.Evaluate(at("08:00"))
	f.sched.SetVisible("evening")

	// The morning workout's alert must not displace the previewed one.
	f.sched.Evaluate(at("09:00"))
	active, ok := f.sched.Active()
	if !ok || active.ID != "evening" {
		t.Fatalf("pending visible workout displaced by %q", active.ID)
	}

	// With nothing on screen the due workout takes the slot.
	f.sched.SetVisible("")
	active, ok = f.sched.Active()
	if !ok || active.ID != "morning" {
		t.Fatalf("active without visible = %q, want morning", active.ID)
	}
}

func TestInactiveCategoryHidden(t *testing.T) {
	t.Parallel()
	f := newFixture(t, []workout.Workout{{ID: "w1", Title: "Pull-ups", Time: "09:00", Category: "c1"}})
	f.store.SaveSettings(context.Background(), workout.Settings{
		Categories: []workout.Category{{ID: "c1", Prefix: "PULL", Active: false}},
	})

	f.sched.Evaluate(at("09:30"))
	if got := f.sink.workoutAlerts(); got != 0 {
		t.Fatalf("inactive category alerted: %d", got)
	}
	if f.sched.Snapshot()[0].Status != StatusNotToday {
		t.Fatalf("status = %v, want not-today", f.sched.Snapshot()[0].Status)
	}
}

func TestStartupPastDueAlertsOnce(t *testing.T) {
	t.Parallel()
	f := newFixture(t, []workout.Workout{{ID: "w1", Title: "Pull-ups", Time: "09:00"}})

	// Process starts mid-morning: the missed 09:00 alert fires immediately,
	// and the next reminder lands on the due-time grid.
	f.sched.Evaluate(at("10:45"))
	if got := f.sink.workoutAlerts(); got != 1 {
		t.Fatalf("startup catch-up alerts = %d, want 1", got)
	}
	f.sched.Evaluate(at("10:59"))
	if got := f.sink.workoutAlerts(); got != 1 {
		t.Fatalf("off-grid reminder: %d", got)
	}
	f.sched.Evaluate(at("11:00"))
	if got := f.sink.workoutAlerts(); got != 2 {
		t.Fatalf("grid reminder missing: %d", got)
	}
}
