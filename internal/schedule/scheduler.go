// Package schedule drives the workout reminder loop: it derives each
// workout's due instant for the current day, fires the first alert when the
// due time passes, and keeps nudging at the reminder interval until the
// workout is completed. State is rebuilt at local midnight.
package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pullupd/internal/eventbus"
	"pullupd/internal/notify"
	"pullupd/internal/workout"
	"pullupd/pkg/logx"
)

// Status is the display state of a workout for the current day.
type Status string

const (
	StatusNotToday  Status = "not-today"
	StatusPending   Status = "pending"
	StatusDue       Status = "due"
	StatusCompleted Status = "completed"
)

// Config tunes the reminder cadence.
type Config struct {
	// Interval between repeat reminders for an uncompleted due workout.
	Interval time.Duration
	// Location is the timezone the day boundary and HH:MM triggers use.
	Location *time.Location
}

func (c *Config) normalize() {
	if c.Interval <= 0 {
		c.Interval = 30 * time.Minute
	}
	if c.Location == nil {
		c.Location = time.Local
	}
}

// state is the per-workout runtime state for one calendar day. It is never
// persisted; only the completion flag survives a restart.
type state struct {
	isToday          bool
	completed        bool
	nextDueAt        time.Time
	alertedInitially bool
	nextReminderAt   time.Time
}

// Entry is a read-only snapshot row for the UI.
type Entry struct {
	Workout   workout.Workout
	Status    Status
	NextDueAt time.Time
}

// Notifier is the outbound alert pipeline; satisfied by *notify.Service.
type Notifier interface {
	Publish(notify.Notification) bool
}

// Scheduler owns the per-day workout state and the tick evaluation.
type Scheduler struct {
	store  *workout.Store
	notify Notifier
	bus    eventbus.Bus
	log    logx.Logger

	mu        sync.Mutex
	cfg       Config
	workouts  []workout.Workout
	settings  workout.Settings
	states    map[string]*state
	dayKey    string
	visibleID string

	now func() time.Time
}

func New(cfg Config, store *workout.Store, n Notifier, bus eventbus.Bus, log logx.Logger) *Scheduler {
	cfg.normalize()
	return &Scheduler{
		store:  store,
		notify: n,
		bus:    bus,
		log:    log,
		cfg:    cfg,
		states: make(map[string]*state),
		now:    time.Now,
	}
}

// Apply retunes the reminder cadence from a config reload. Changing the
// timezone forces a rollover on the next tick.
func (s *Scheduler) Apply(cfg Config) {
	cfg.normalize()
	s.mu.Lock()
	defer s.mu.Unlock()
	if cfg.Location.String() != s.cfg.Location.String() {
		s.dayKey = ""
	}
	s.cfg = cfg
}

// Run ticks the evaluation once per second until the context ends.
func (s *Scheduler) Run(ctx context.Context) error {
	s.Evaluate(s.now())
	tick := time.NewTicker(time.Second)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
			s.Evaluate(s.now())
		}
	}
}

// SetVisible tells the scheduler which workout the UI currently shows.
// A visible, due, uncompleted workout keeps the active slot even when
// another workout becomes due behind it.
func (s *Scheduler) SetVisible(id string) {
	s.mu.Lock()
	s.visibleID = id
	s.mu.Unlock()
}

// Evaluate advances the schedule to the given instant. Safe to call from
// tests with a synthetic clock; the ticker calls it with wall time.
func (s *Scheduler) Evaluate(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now = now.In(s.cfg.Location)

	if key := workout.DayKey(now); key != s.dayKey {
		s.rolloverLocked(now, key)
	}

	for _, w := range s.workouts {
		st := s.states[w.ID]
		if st == nil || !st.isToday || st.completed {
			continue
		}
		if !st.alertedInitially {
			if now.Before(st.nextDueAt) {
				continue
			}
			st.alertedInitially = true
			// Reminders stay on the due-time grid even when the first alert
			// itself is late (e.g. process started mid-morning).
			st.nextReminderAt = st.nextDueAt.Add(s.cfg.Interval)
			for !st.nextReminderAt.After(now) {
				st.nextReminderAt = st.nextReminderAt.Add(s.cfg.Interval)
			}
			s.alertLocked(w, now, st.nextDueAt, false)
			continue
		}
		if now.Before(st.nextReminderAt) {
			continue
		}
		// One reminder per tick; the loop only advances the deadline past
		// now so missed reminders collapse instead of bursting.
		s.alertLocked(w, now, st.nextReminderAt, true)
		for !st.nextReminderAt.After(now) {
			st.nextReminderAt = st.nextReminderAt.Add(s.cfg.Interval)
		}
	}
}

// rolloverLocked rebuilds per-workout state for a new calendar day.
func (s *Scheduler) rolloverLocked(now time.Time, key string) {
	ctx := context.Background()
	s.dayKey = key
	s.workouts = s.store.Workouts(ctx)
	s.settings = s.store.Settings(ctx)
	done := s.store.CompletedOn(ctx, key)

	prev := s.states
	s.states = make(map[string]*state, len(s.workouts))
	planned := 0
	for _, w := range s.workouts {
		st := &state{
			isToday: w.OnDay(now.Weekday()) && s.settings.CategoryActive(w.Category),
		}
		if st.isToday {
			if w.Repeating {
				// A repeating cycle runs across the day boundary: keep a
				// pending deadline, clamp a stale one to now so it fires on
				// this tick, anchor fresh ones one interval out.
				switch old := prev[w.ID]; {
				case old != nil && old.isToday && !old.nextDueAt.Before(workout.StartOfDay(now)):
					st.nextDueAt = old.nextDueAt
				case old != nil && old.isToday:
					st.nextDueAt = now
				default:
					st.nextDueAt = now.Add(time.Duration(w.RepeatIntervalMinutes) * time.Minute)
				}
			} else {
				due, err := workout.ClockOn(now, w.Time)
				if err != nil {
					s.log.Warn("workout has invalid time, skipping for today",
						logx.String("id", w.ID), logx.Err(err))
					st.isToday = false
				} else {
					st.nextDueAt = due
					st.completed = done[w.ID]
				}
			}
		}
		if st.isToday && !st.completed {
			planned++
		}
		s.states[w.ID] = st
	}

	s.log.Info("schedule rolled over",
		logx.String("day", key), logx.Int("planned", planned))
	s.bus.Publish(eventbus.Event{Type: eventbus.TypeRollover, Time: now, Data: key})
}

// alertLocked fires one alert. when is the scheduled instant the alert
// belongs to, which keys dedup so a tick hiccup never double-fires.
func (s *Scheduler) alertLocked(w workout.Workout, now, when time.Time, reminder bool) {
	body := "Time to start"
	if reminder {
		body = "Still waiting since " + s.states[w.ID].nextDueAt.Format("15:04")
	}
	s.log.Info("workout alert",
		logx.String("id", w.ID),
		logx.String("title", w.Title),
		logx.Bool("reminder", reminder))
	s.notify.Publish(notify.Notification{
		Kind:  notify.KindWorkout,
		Title: w.Title,
		Body:  body,
		Sound: true,
		Key:   fmt.Sprintf("workout:%s:%d", w.ID, when.Unix()),
	})
	s.bus.Publish(eventbus.Event{Type: eventbus.TypeWorkoutAlert, Time: now, Data: w.ID})
}

// Complete marks a workout done. A timed workout is recorded in the
// completion store for the current day; a repeating workout just schedules
// its next round one interval out.
func (s *Scheduler) Complete(id string) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	now = now.In(s.cfg.Location)

	st := s.states[id]
	if st == nil {
		return
	}
	var def workout.Workout
	for _, w := range s.workouts {
		if w.ID == id {
			def = w
			break
		}
	}
	if def.Repeating {
		st.completed = false
		st.alertedInitially = false
		st.nextDueAt = now.Add(time.Duration(def.RepeatIntervalMinutes) * time.Minute)
	} else {
		st.completed = true
		s.store.SetCompleted(context.Background(), id, s.dayKey, true)
	}
	s.log.Info("workout completed", logx.String("id", id), logx.Bool("repeating", def.Repeating))
	s.bus.Publish(eventbus.Event{Type: eventbus.TypeWorkoutDone, Time: now, Data: id})
}

// Active returns the workout the UI should show: the visible workout while
// it is scheduled today and uncompleted (due or merely opened for a
// preview), otherwise the earliest-due uncompleted workout that has
// alerted.
func (s *Scheduler) Active() (workout.Workout, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st := s.states[s.visibleID]; st != nil && st.isToday && !st.completed {
		for _, w := range s.workouts {
			if w.ID == s.visibleID {
				return w, true
			}
		}
	}
	var best workout.Workout
	var bestDue time.Time
	found := false
	for _, w := range s.workouts {
		st := s.states[w.ID]
		if st == nil || !st.isToday || st.completed || !st.alertedInitially {
			continue
		}
		if !found || st.nextDueAt.Before(bestDue) {
			best, bestDue, found = w, st.nextDueAt, true
		}
	}
	return best, found
}

// Snapshot returns every workout with its display status, in stored order.
func (s *Scheduler) Snapshot() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, 0, len(s.workouts))
	for _, w := range s.workouts {
		st := s.states[w.ID]
		e := Entry{Workout: w, Status: StatusNotToday}
		if st != nil && st.isToday {
			e.NextDueAt = st.nextDueAt
			switch {
			case st.completed:
				e.Status = StatusCompleted
			case st.alertedInitially:
				e.Status = StatusDue
			default:
				e.Status = StatusPending
			}
		}
		out = append(out, e)
	}
	return out
}

// Settings exposes the settings snapshot loaded at the last rollover.
func (s *Scheduler) Settings() workout.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// Reload drops the cached day so the next tick re-reads workouts and
// settings from the store.
func (s *Scheduler) Reload() {
	s.mu.Lock()
	s.dayKey = ""
	s.mu.Unlock()
}
