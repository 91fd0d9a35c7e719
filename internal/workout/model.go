package workout

import (
	"fmt"
	"strings"
)

// Workout is the persisted workout definition. Runtime scheduling state
// (due instant, alert de-bounce, completion) is derived per day by the
// scheduler and never persisted.
type Workout struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Label    string `json:"label,omitempty"`
	Category string `json:"category,omitempty"`
	Grip     string `json:"grip,omitempty"`

	// Time is the "HH:MM" local wall-clock trigger. Ignored when Repeating.
	Time string `json:"time,omitempty"`

	// Days holds weekday codes on which the workout is active.
	// Empty means every day.
	Days []string `json:"days,omitempty"`

	Repeating             bool `json:"repeating,omitempty"`
	RepeatIntervalMinutes int  `json:"repeat_interval_minutes,omitempty"`

	Exercises []string   `json:"exercises,omitempty"`
	Timers    []TimerDef `json:"timers,omitempty"`
}

// TimerDef is a named countdown attached to a workout (e.g. a rest interval).
type TimerDef struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	DurationSeconds int    `json:"duration_seconds"`
	Repeating       bool   `json:"repeating,omitempty"`
}

// Category groups workouts and carries the sets/reps variables used by the
// exercise template resolver. Prefix keys the variables (e.g. "PULL" yields
// PULLSETS and PULLREPS).
type Category struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Prefix string `json:"prefix"`
	Sets   int    `json:"sets"`
	Reps   int    `json:"reps"`
	Active bool   `json:"active"`
}

// Settings is the user-editable settings blob.
type Settings struct {
	Categories          []Category      `json:"categories,omitempty"`
	TimerDefaultSeconds int             `json:"timer_default_seconds,omitempty"`
	Standup             StandupSettings `json:"standup"`
}

// StandupSettings configures the independent stand-up reminder.
type StandupSettings struct {
	Enabled         bool `json:"enabled"`
	SitMinMinutes   int  `json:"sit_min_minutes"`
	SitMaxMinutes   int  `json:"sit_max_minutes"`
	StandMinMinutes int  `json:"stand_min_minutes"`
	StandMaxMinutes int  `json:"stand_max_minutes"`
}

const defaultTimerSeconds = 75

func DefaultSettings() Settings {
	return Settings{
		TimerDefaultSeconds: defaultTimerSeconds,
		Standup: StandupSettings{
			SitMinMinutes:   30,
			SitMaxMinutes:   45,
			StandMinMinutes: 5,
			StandMaxMinutes: 10,
		},
	}
}

// Normalize fills sane defaults after decoding.
func (s *Settings) Normalize() {
	if s.TimerDefaultSeconds < 1 {
		s.TimerDefaultSeconds = defaultTimerSeconds
	}
	if s.Standup.SitMinMinutes < 1 {
		s.Standup.SitMinMinutes = 30
	}
	if s.Standup.SitMaxMinutes < s.Standup.SitMinMinutes {
		s.Standup.SitMaxMinutes = s.Standup.SitMinMinutes
	}
	if s.Standup.StandMinMinutes < 1 {
		s.Standup.StandMinMinutes = 5
	}
	if s.Standup.StandMaxMinutes < s.Standup.StandMinMinutes {
		s.Standup.StandMaxMinutes = s.Standup.StandMinMinutes
	}
}

// Vars builds the variable table for the exercise template resolver:
// <PREFIX>SETS / <PREFIX>REPS per category, plus the legacy unprefixed
// SETS / REPS / REPEATS aliases bound to the first category.
func (s Settings) Vars() map[string]float64 {
	vars := make(map[string]float64, 2*len(s.Categories)+3)
	for i, c := range s.Categories {
		p := strings.ToUpper(strings.TrimSpace(c.Prefix))
		if p != "" {
			vars[p+"SETS"] = float64(c.Sets)
			vars[p+"REPS"] = float64(c.Reps)
		}
		if i == 0 {
			vars["SETS"] = float64(c.Sets)
			vars["REPS"] = float64(c.Reps)
			vars["REPEATS"] = float64(c.Reps)
		}
	}
	return vars
}

// CategoryActive reports whether the given category id is active. Workouts
// without a category, or with an unknown category, are always shown.
func (s Settings) CategoryActive(id string) bool {
	if strings.TrimSpace(id) == "" {
		return true
	}
	for _, c := range s.Categories {
		if c.ID == id {
			return c.Active
		}
	}
	return true
}

// Validate checks a persisted workout definition.
func (w Workout) Validate() error {
	if strings.TrimSpace(w.ID) == "" {
		return fmt.Errorf("workout: id is required")
	}
	if strings.TrimSpace(w.Title) == "" {
		return fmt.Errorf("workout %s: title is required", w.ID)
	}
	if w.Repeating {
		if w.RepeatIntervalMinutes < 1 || w.RepeatIntervalMinutes > 1440 {
			return fmt.Errorf("workout %s: repeat_interval_minutes must be in 1..1440", w.ID)
		}
	} else if _, _, err := ParseClock(w.Time); err != nil {
		return fmt.Errorf("workout %s: %w", w.ID, err)
	}
	for _, d := range w.Days {
		if _, ok := ParseDay(d); !ok {
			return fmt.Errorf("workout %s: unknown weekday code %q", w.ID, d)
		}
	}
	for _, t := range w.Timers {
		if t.DurationSeconds < 1 {
			return fmt.Errorf("workout %s: timer %q duration must be >= 1s", w.ID, t.Name)
		}
	}
	return nil
}

// Timer returns the timer definition with the given id.
func (w Workout) Timer(id string) (TimerDef, bool) {
	for _, t := range w.Timers {
		if t.ID == id {
			return t, true
		}
	}
	return TimerDef{}, false
}
