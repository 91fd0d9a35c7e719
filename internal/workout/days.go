package workout

import (
	"fmt"
	"strings"
	"time"
)

// Weekday codes accepted in workout definitions. English two/three letter
// codes plus German aliases (So..Sa) found in older seed files.
var weekdayCodes = map[string]time.Weekday{
	"su": time.Sunday, "sun": time.Sunday, "so": time.Sunday,
	"mo": time.Monday, "mon": time.Monday,
	"tu": time.Tuesday, "tue": time.Tuesday, "di": time.Tuesday,
	"we": time.Wednesday, "wed": time.Wednesday, "mi": time.Wednesday,
	"th": time.Thursday, "thu": time.Thursday,
	"fr": time.Friday, "fri": time.Friday,
	"sa": time.Saturday, "sat": time.Saturday,
}

// ParseDay resolves a weekday code. Matching is case-insensitive.
// Note "do" is Thursday (German Donnerstag), not a truncation of anything
// English; it is kept for seed compatibility.
func ParseDay(code string) (time.Weekday, bool) {
	c := strings.ToLower(strings.TrimSpace(code))
	if c == "do" {
		return time.Thursday, true
	}
	d, ok := weekdayCodes[c]
	return d, ok
}

// OnDay reports whether the workout is active on the given weekday.
// An empty day list means every day.
func (w Workout) OnDay(d time.Weekday) bool {
	if len(w.Days) == 0 {
		return true
	}
	for _, code := range w.Days {
		if wd, ok := ParseDay(code); ok && wd == d {
			return true
		}
	}
	return false
}

// DayKey returns the local calendar-date key used by the completion store.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// ParseClock parses a "HH:MM" wall-clock string.
func ParseClock(s string) (hour, minute int, err error) {
	var h, m int
	if _, e := fmt.Sscanf(strings.TrimSpace(s), "%d:%d", &h, &m); e != nil {
		return 0, 0, fmt.Errorf("invalid time %q: want HH:MM", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("invalid time %q: out of range", s)
	}
	return h, m, nil
}

// ClockOn returns the instant at the given wall-clock time on day's date,
// in day's location.
func ClockOn(day time.Time, hhmm string) (time.Time, error) {
	h, m, err := ParseClock(hhmm)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), h, m, 0, 0, day.Location()), nil
}

// StartOfDay returns midnight of t's calendar date in t's location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
