package standup

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

func newService(t *testing.T, enabled bool) (*Service, *fakeNotifier, storage.Store, *time.Time) {
	t.Helper()
	blobs, err := storage.Open(storage.Config{Driver: "file", Path: t.TempDir()}, logx.Nop())
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { blobs.Close() })
	wstore := workout.NewStore(blobs, logx.Nop())
	settings := workout.DefaultSettings()
	settings.Standup = workout.StandupSettings{
		Enabled:         enabled,
		SitMinMinutes:   30,
		SitMaxMinutes:   45,
		StandMinMinutes: 5,
		StandMaxMinutes: 10,
	}
	wstore.SaveSettings(context.Background(), settings)

	sink := &fakeNotifier{}
	svc := New(blobs, wstore, sink, eventbus.New(), logx.Nop())
	now := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)
	clock := &now
	svc.now = func() time.Time { return *clock }
	svc.intn = func(int) int { return 0 } // always the minimum stretch
	return svc, sink, blobs, clock
}

func TestDisabledStaysIdle(t *testing.T) {
	t.Parallel()
	svc, sink, _, _ := newService(t, false)
	ctx := context.Background()

	svc.Tick(ctx)
	svc.Tick(ctx)
	if phase, _ := svc.State(); phase != PhaseIdle {
		t.Fatalf("phase = %v, want idle", phase)
	}
	if len(sink.sent) != 0 {
		t.Fatalf("disabled service notified: %+v", sink.sent)
	}
}

func TestSitStandCycle(t *testing.T) {
	t.Parallel()
	svc, sink, _, clock := newService(t, true)
	ctx := context.Background()

	svc.Tick(ctx)
	phase, until := svc.State()
	if phase != PhaseSitting {
		t.Fatalf("phase = %v, want sitting", phase)
	}
	if want := clock.Add(30 * time.Minute); !until.Equal(want) {
		t.Fatalf("sit deadline = %v, want %v", until, want)
	}

	// Sitting stretch not over yet.
	*clock = clock.Add(29 * time.Minute)
	svc.Tick(ctx)
	if len(sink.sent) != 0 {
		t.Fatalf("early stand-up alert: %+v", sink.sent)
	}

	*clock = clock.Add(time.Minute)
	svc.Tick(ctx)
	if len(sink.sent) != 1 || sink.sent[0].Title != "Stand up" {
		t.Fatalf("stand-up alert = %+v", sink.sent)
	}
	if phase, _ := svc.State(); phase != PhaseStanding {
		t.Fatalf("phase = %v, want standing", phase)
	}

	*clock = clock.Add(5 * time.Minute)
	svc.Tick(ctx)
	if len(sink.sent) != 2 || sink.sent[1].Title != "Sit down" {
		t.Fatalf("sit-down alert = %+v", sink.sent)
	}
	if phase, _ := svc.State(); phase != PhaseSitting {
		t.Fatalf("phase = %v, want sitting again", phase)
	}
}

func TestStateSurvivesRestart(t *testing.T) {
	t.Parallel()
	svc, _, blobs, clock := newService(t, true)
	ctx := context.Background()

	svc.Tick(ctx)
	_, until := svc.State()

	// A second service over the same blobs resumes the same stretch.
	wstore := workout.NewStore(blobs, logx.Nop())
	svc2 := New(blobs, wstore, &fakeNotifier{}, eventbus.New(), logx.Nop())
	svc2.now = func() time.Time { return *clock }
	svc2.intn = func(int) int { return 0 }
	svc2.restore(ctx)
	phase2, until2 := svc2.State()
	if phase2 != PhaseSitting || !until2.Equal(until) {
		t.Fatalf("restored state = %v until %v, want sitting until %v", phase2, until2, until)
	}
}

func TestDisablingMidCycleResets(t *testing.T) {
	t.Parallel()
	svc, _, blobs, _ := newService(t, true)
	ctx := context.Background()

	svc.Tick(ctx)
	if phase, _ := svc.State(); phase != PhaseSitting {
		t.Fatalf("phase = %v, want sitting", phase)
	}

	wstore := workout.NewStore(blobs, logx.Nop())
	settings := wstore.Settings(ctx)
	settings.Standup.Enabled = false
	wstore.SaveSettings(ctx, settings)

	svc.Tick(ctx)
	if phase, _ := svc.State(); phase != PhaseIdle {
		t.Fatalf("phase after disable = %v, want idle", phase)
	}
}
