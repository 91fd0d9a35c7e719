package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"pullupd/pkg/logx"
)

type captureSink struct {
	mu   sync.Mutex
	sent []Notification
}

func (c *captureSink) Name() string { return "capture" }

func (c *captureSink) Send(_ context.Context, n Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, n)
	return nil
}

func (c *captureSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestPublishDelivers(t *testing.T) {
	t.Parallel()
	sink := &captureSink{}
	svc := New(Config{Workers: 1, QueueSize: 8, RatePerSec: 1000}, []Sink{sink}, logx.Nop())
	svc.Start(context.Background())
	defer svc.Stop()

	if !svc.Publish(Notification{Kind: KindWorkout, Title: "Pull-ups"}) {
		t.Fatal("publish should accept onto empty queue")
	}
	waitFor(t, func() bool { return sink.count() == 1 })
}

func TestPublishBeforeStartIsDropped(t *testing.T) {
	t.Parallel()
	svc := New(Config{}, nil, logx.Nop())
	if svc.Publish(Notification{Title: "early"}) {
		t.Fatal("publish before Start should report dropped")
	}
}

func TestDedupWindow(t *testing.T) {
	t.Parallel()
	sink := &captureSink{}
	svc := New(Config{Workers: 1, QueueSize: 8, RatePerSec: 1000, DedupWindow: time.Hour}, []Sink{sink}, logx.Nop())

	now := time.Unix(1000, 0)
	svc.now = func() time.Time { return now }
	svc.Start(context.Background())
	defer svc.Stop()

	if !svc.Publish(Notification{Title: "a", Key: "k"}) {
		t.Fatal("first publish should pass")
	}
	if svc.Publish(Notification{Title: "a again", Key: "k"}) {
		t.Fatal("second publish within window should be deduped")
	}
	now = now.Add(2 * time.Hour)
	if !svc.Publish(Notification{Title: "a later", Key: "k"}) {
		t.Fatal("publish after window should pass")
	}
	if !svc.Publish(Notification{Title: "no key"}) || !svc.Publish(Notification{Title: "no key"}) {
		t.Fatal("keyless notifications must never dedup")
	}
	waitFor(t, func() bool { return sink.count() == 4 })
}

func TestApplyRetunesDedup(t *testing.T) {
	t.Parallel()
	svc := New(Config{Workers: 1, QueueSize: 8, RatePerSec: 1000}, nil, logx.Nop())
	svc.Start(context.Background())
	defer svc.Stop()

	svc.Publish(Notification{Title: "a", Key: "k"})
	if !svc.Publish(Notification{Title: "a", Key: "k"}) {
		t.Fatal("zero window must not dedup")
	}
	svc.Apply(Config{DedupWindow: time.Hour, RatePerSec: 1000})
	svc.Publish(Notification{Title: "a", Key: "k2"})
	if svc.Publish(Notification{Title: "a", Key: "k2"}) {
		t.Fatal("dedup should kick in after Apply")
	}
}

func TestDroppedAlertDoesNotConsumeDedup(t *testing.T) {
	t.Parallel()
	sink := &captureSink{}
	svc := New(Config{Workers: 1, QueueSize: 8, RatePerSec: 1000, DedupWindow: time.Hour}, []Sink{sink}, logx.Nop())

	// Dropped before Start: the key must stay fresh.
	if svc.Publish(Notification{Title: "a", Key: "k"}) {
		t.Fatal("publish before Start should report dropped")
	}
	svc.Start(context.Background())
	defer svc.Stop()

	if !svc.Publish(Notification{Title: "a", Key: "k"}) {
		t.Fatal("first accepted publish must not be shadowed by an earlier drop")
	}
	waitFor(t, func() bool { return sink.count() == 1 })
}

func TestDesktopSuppressedWhileFocused(t *testing.T) {
	t.Parallel()
	d := NewDesktop(DesktopConfig{SuppressWhenFocused: true, Sound: true}, logx.Nop())
	var beeps, popups int
	d.beep = func(float64, int) error { beeps++; return nil }
	d.popup = func(string, string, string) error { popups++; return nil }

	// Focused: the popup is suppressed but the sound still plays.
	d.SetFocused(true)
	if err := d.Send(context.Background(), Notification{Title: "t", Sound: true}); err != nil {
		t.Fatalf("suppressed send: %v", err)
	}
	if beeps != 1 || popups != 0 {
		t.Fatalf("focused send: beeps=%d popups=%d, want 1/0", beeps, popups)
	}

	// Unfocused: both fire.
	d.SetFocused(false)
	if err := d.Send(context.Background(), Notification{Title: "t", Sound: true}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if beeps != 2 || popups != 1 {
		t.Fatalf("unfocused send: beeps=%d popups=%d, want 2/1", beeps, popups)
	}

	// Soundless notifications never beep.
	if err := d.Send(context.Background(), Notification{Title: "t"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if beeps != 2 {
		t.Fatalf("soundless notification beeped: %d", beeps)
	}
}
