// Package timer runs the per-workout countdown timers. At most one timer
// counts down at a time; starting another stops and resets the previous
// one, and switching the UI away from a workout stops its timer.
package timer

import (
	"context"
	"sync"
	"time"

	"pullupd/internal/eventbus"
	"pullupd/internal/notify"
	"pullupd/internal/workout"
	"pullupd/pkg/logx"
)

// State of a single countdown.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
)

// Snapshot is a read-only view of one timer for the UI.
type Snapshot struct {
	Def       workout.TimerDef
	State     State
	Remaining int
}

type entry struct {
	def       workout.TimerDef
	state     State
	remaining int
}

// Notifier is the outbound alert pipeline; satisfied by *notify.Service.
type Notifier interface {
	Publish(notify.Notification) bool
}

// Engine holds the countdown state for the currently active workout.
type Engine struct {
	notify Notifier
	bus    eventbus.Bus
	log    logx.Logger

	mu        sync.Mutex
	workoutID string
	order     []string
	timers    map[string]*entry
	activeID  string
}

func New(n Notifier, bus eventbus.Bus, log logx.Logger) *Engine {
	return &Engine{
		notify: n,
		bus:    bus,
		log:    log,
		timers: make(map[string]*entry),
	}
}

// Run decrements the active timer once per second.
func (e *Engine) Run(ctx context.Context) error {
	tick := time.NewTicker(time.Second)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
			e.Tick()
		}
	}
}

// SetWorkout loads the timers of the workout the UI now shows. Any running
// timer from the previous workout is discarded.
func (e *Engine) SetWorkout(w workout.Workout) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.workoutID == w.ID {
		return
	}
	e.workoutID = w.ID
	e.activeID = ""
	e.order = e.order[:0]
	e.timers = make(map[string]*entry, len(w.Timers))
	for _, def := range w.Timers {
		e.order = append(e.order, def.ID)
		e.timers[def.ID] = &entry{def: def, state: StateIdle, remaining: def.DurationSeconds}
	}
}

// Clear drops all timers, e.g. when the UI leaves the workout view.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.workoutID = ""
	e.activeID = ""
	e.order = e.order[:0]
	e.timers = make(map[string]*entry)
}

// Start begins the countdown for the given timer. A previously running
// timer stops and resets to its full duration first.
func (e *Engine) Start(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t := e.timers[id]
	if t == nil {
		return
	}
	if e.activeID != "" && e.activeID != id {
		e.resetLocked(e.activeID)
	}
	t.state = StateRunning
	t.remaining = t.def.DurationSeconds
	e.activeID = id
	e.log.Debug("timer started", logx.String("id", id), logx.Int("seconds", t.remaining))
}

// SetActive selects a timer without starting it: the selected timer stays
// Idle and the previously active one, if different, stops and resets.
func (e *Engine) SetActive(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.timers[id] == nil || e.activeID == id {
		return
	}
	if e.activeID != "" {
		e.resetLocked(e.activeID)
	}
	e.activeID = id
}

// Stop halts and resets the given timer.
func (e *Engine) Stop(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.timers[id] == nil {
		return
	}
	e.resetLocked(id)
	if e.activeID == id {
		e.activeID = ""
	}
}

func (e *Engine) resetLocked(id string) {
	t := e.timers[id]
	t.state = StateIdle
	t.remaining = t.def.DurationSeconds
}

// Tick advances the active countdown by one second. Exposed for tests; the
// Run loop calls it on wall-clock seconds.
func (e *Engine) Tick() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.activeID == "" {
		return
	}
	t := e.timers[e.activeID]
	if t.state != StateRunning {
		return
	}
	t.remaining--
	if t.remaining > 0 {
		return
	}
	e.bus.Publish(eventbus.Event{Type: eventbus.TypeTimerFinished, Time: time.Now(), Data: t.def.ID})
	if t.def.Repeating {
		// A repeating timer (interval beep) restarts itself with only the
		// sound, no popup.
		t.remaining = t.def.DurationSeconds
		e.notify.Publish(notify.Notification{
			Kind:  notify.KindTimer,
			Title: t.def.Name,
			Body:  "Interval elapsed",
			Sound: true,
		})
		return
	}
	t.state = StateIdle
	t.remaining = t.def.DurationSeconds
	e.activeID = ""
	e.notify.Publish(notify.Notification{
		Kind:  notify.KindTimer,
		Title: t.def.Name,
		Body:  "Timer finished",
		Sound: true,
	})
}

// Snapshot lists the timers of the current workout in definition order.
func (e *Engine) Snapshot() []Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Snapshot, 0, len(e.order))
	for _, id := range e.order {
		t := e.timers[id]
		out = append(out, Snapshot{Def: t.def, State: t.state, Remaining: t.remaining})
	}
	return out
}

// Active returns the running timer, if any.
func (e *Engine) Active() (Snapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.activeID == "" {
		return Snapshot{}, false
	}
	t := e.timers[e.activeID]
	return Snapshot{Def: t.def, State: t.state, Remaining: t.remaining}, true
}
