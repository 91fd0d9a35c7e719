// Package ui is the Bubble Tea terminal front end: an overview of the
// day's workouts and a detail view with resolved exercises and timers.
// Terminal focus is reported to the notifier so desktop popups pause
// while the user is already looking at the app.
package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"pullupd/internal/eventbus"
	"pullupd/internal/exercise"
	"pullupd/internal/notify"
	"pullupd/internal/schedule"
	"pullupd/internal/standup"
	"pullupd/internal/timer"
	"pullupd/internal/workout"
	"pullupd/pkg/logx"
)

type view int

const (
	viewOverview view = iota
	viewWorkout
)

type (
	tickMsg time.Time
	busMsg  eventbus.Event
)

const bannerTTL = 10 * time.Second

// Model is the root Bubble Tea model.
type Model struct {
	sched   *schedule.Scheduler
	timers  *timer.Engine
	notify  *notify.Service
	standup *standup.Service
	log     logx.Logger

	events <-chan eventbus.Event
	unsub  func()

	view        view
	cursor      int
	entries     []schedule.Entry
	active      workout.Workout
	exercises   []string
	timerCursor int
	timerSnaps  []timer.Snapshot

	banner   string
	bannerAt time.Time

	keys     keyMap
	help     help.Model
	progress progress.Model
	width    int
}

func NewModel(sched *schedule.Scheduler, timers *timer.Engine, n *notify.Service, su *standup.Service, bus eventbus.Bus, log logx.Logger) Model {
	events, unsub := bus.Subscribe(16)
	return Model{
		sched:    sched,
		timers:   timers,
		notify:   n,
		standup:  su,
		log:      log,
		events:   events,
		unsub:    unsub,
		entries:  sched.Snapshot(),
		keys:     defaultKeyMap(),
		help:     help.New(),
		progress: progress.New(progress.WithDefaultGradient()),
	}
}

// Run blocks until the UI exits.
func Run(m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithReportFocus())
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(tick(), m.waitEvent())
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) waitEvent() tea.Cmd {
	ch := m.events
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return busMsg(ev)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		m.progress.Width = min(msg.Width-8, 40)
		return m, nil

	case tea.FocusMsg:
		m.notify.SetFocused(true)
		return m, nil

	case tea.BlurMsg:
		m.notify.SetFocused(false)
		return m, nil

	case tickMsg:
		m.refresh()
		if m.banner != "" && time.Since(m.bannerAt) > bannerTTL {
			m.banner = ""
		}
		return m, tick()

	case busMsg:
		m.onEvent(eventbus.Event(msg))
		return m, m.waitEvent()

	case tea.KeyMsg:
		return m.onKey(msg)
	}
	return m, nil
}

func (m *Model) refresh() {
	m.entries = m.sched.Snapshot()
	if m.cursor >= len(m.entries) {
		m.cursor = max(len(m.entries)-1, 0)
	}
	if m.view == viewWorkout {
		m.timerSnaps = m.timers.Snapshot()
		if m.timerCursor >= len(m.timerSnaps) {
			m.timerCursor = max(len(m.timerSnaps)-1, 0)
		}
	}
}

func (m *Model) onEvent(ev eventbus.Event) {
	switch ev.Type {
	case eventbus.TypeWorkoutAlert:
		// The banner names the workout that alerted; the view follows the
		// scheduler's pick, which never displaces an uncompleted workout
		// already on screen.
		if id, ok := ev.Data.(string); ok {
			for _, e := range m.entries {
				if e.Workout.ID == id {
					m.banner = "Workout due: " + e.Workout.Title
					m.bannerAt = time.Now()
					break
				}
			}
		}
		if w, ok := m.sched.Active(); ok && (m.view != viewWorkout || m.active.ID != w.ID) {
			m.openWorkout(w)
		}
	case eventbus.TypeTimerFinished:
		m.banner = "Timer finished"
		m.bannerAt = time.Now()
	case eventbus.TypeStandupPhase:
		if phase, ok := ev.Data.(string); ok && phase != string(standup.PhaseIdle) {
			m.banner = "Position change: " + phase
			m.bannerAt = time.Now()
		}
	case eventbus.TypeRollover:
		m.refresh()
	}
}

func (m *Model) openWorkout(w workout.Workout) {
	m.view = viewWorkout
	m.active = w
	m.timerCursor = 0
	m.sched.SetVisible(w.ID)
	m.timers.SetWorkout(w)
	m.timerSnaps = m.timers.Snapshot()
	m.exercises = exercise.ResolveAll(w.Exercises, m.sched.Settings().Vars())
}

func (m *Model) closeWorkout() {
	m.view = viewOverview
	m.active = workout.Workout{}
	m.sched.SetVisible("")
	m.timers.Clear()
	m.timerSnaps = nil
}

func (m Model) onKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.unsub()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if m.view == viewOverview && m.cursor > 0 {
			m.cursor--
		} else if m.view == viewWorkout && m.timerCursor > 0 {
			m.timerCursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.view == viewOverview && m.cursor < len(m.entries)-1 {
			m.cursor++
		} else if m.view == viewWorkout && m.timerCursor < len(m.timerSnaps)-1 {
			m.timerCursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.Open):
		if m.view == viewOverview && m.cursor < len(m.entries) {
			m.openWorkout(m.entries[m.cursor].Workout)
		}
		return m, nil

	case key.Matches(msg, m.keys.Back):
		if m.view == viewWorkout {
			m.closeWorkout()
		}
		return m, nil

	case key.Matches(msg, m.keys.Complete):
		if m.view == viewWorkout {
			m.sched.Complete(m.active.ID)
			m.closeWorkout()
			m.refresh()
		}
		return m, nil

	case key.Matches(msg, m.keys.Reload):
		if m.view == viewOverview {
			m.sched.Reload()
			m.refresh()
		}
		return m, nil

	case key.Matches(msg, m.keys.Toggle):
		if m.view == viewWorkout && m.timerCursor < len(m.timerSnaps) {
			snap := m.timerSnaps[m.timerCursor]
			if snap.State == timer.StateRunning {
				m.timers.Stop(snap.Def.ID)
			} else {
				m.timers.Start(snap.Def.ID)
			}
			m.timerSnaps = m.timers.Snapshot()
		}
		return m, nil
	}
	return m, nil
}

func (m Model) View() string {
	var body string
	if m.view == viewWorkout {
		body = m.workoutView()
	} else {
		body = m.overviewView()
	}
	out := titleStyle.Render("pullupd") + "\n"
	if m.banner != "" {
		out += bannerStyle.Render(m.banner) + "\n\n"
	}
	out += body
	out += footerStyle.Render(m.help.View(m.keys))
	return out
}

func (m Model) overviewView() string {
	if len(m.entries) == 0 {
		return mutedStyle.Render("No workouts configured.") + "\n"
	}
	var out string
	for i, e := range m.entries {
		line := fmt.Sprintf("%s %s %s", statusIcon(e.Status), e.Workout.Title, scheduleLabel(e))
		switch e.Status {
		case schedule.StatusDue:
			line = dueStyle.Render(line)
		case schedule.StatusCompleted:
			line = completedStyle.Render(line)
		case schedule.StatusNotToday:
			line = mutedStyle.Render(line)
		default:
			line = pendingStyle.Render(line)
		}
		prefix := "  "
		if i == m.cursor {
			prefix = cursorStyle.Render("> ")
		}
		out += prefix + line + "\n"
	}
	if phase, until := m.standup.State(); phase != standup.PhaseIdle {
		out += "\n" + mutedStyle.Render(
			fmt.Sprintf("%s until %s", phase, until.Format("15:04")))
	}
	return out + "\n"
}

func (m Model) workoutView() string {
	out := dueStyle.Render(m.active.Title) + "\n\n"
	if len(m.exercises) > 0 {
		for _, ex := range m.exercises {
			out += exerciseStyle.Render("• "+ex) + "\n"
		}
		out += "\n"
	}
	for i, snap := range m.timerSnaps {
		prefix := "  "
		if i == m.timerCursor {
			prefix = cursorStyle.Render("> ")
		}
		line := fmt.Sprintf("%s %s", snap.Def.Name, formatSeconds(snap.Remaining))
		if snap.State == timer.StateRunning {
			pct := 1 - float64(snap.Remaining)/float64(snap.Def.DurationSeconds)
			line = timerRunStyle.Render(line) + "  " + m.progress.ViewAs(pct)
		} else {
			line = mutedStyle.Render(line)
		}
		out += prefix + line + "\n"
	}
	out += "\n" + mutedStyle.Render("c to complete, esc for overview") + "\n"
	return out
}

func statusIcon(s schedule.Status) string {
	switch s {
	case schedule.StatusCompleted:
		return "✓"
	case schedule.StatusDue:
		return "!"
	case schedule.StatusNotToday:
		return "·"
	default:
		return "○"
	}
}

func scheduleLabel(e schedule.Entry) string {
	w := e.Workout
	if w.Repeating {
		return fmt.Sprintf("(every %dm)", w.RepeatIntervalMinutes)
	}
	if w.Time != "" {
		return "(" + w.Time + ")"
	}
	return ""
}

func formatSeconds(s int) string {
	if s < 0 {
		s = 0
	}
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}
