// Package standup runs the sit/stand reminder that is independent of the
// workout schedule: sit for a random stretch, get told to stand, stand for
// a shorter stretch, get told to sit again. Phase state is persisted so a
// restart resumes the current stretch instead of starting a fresh one.
package standup

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"pullupd/internal/eventbus"
	"pullupd/internal/notify"
	"pullupd/internal/storage"
	"pullupd/internal/workout"
	"pullupd/pkg/logx"
)

// Phase of the sit/stand cycle.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseSitting  Phase = "sitting"
	PhaseStanding Phase = "standing"
)

const blobKey = "standup"

// persisted is the state blob.
type persisted struct {
	Phase Phase     `json:"phase"`
	Until time.Time `json:"until"`
}

// Notifier is the outbound alert pipeline; satisfied by *notify.Service.
type Notifier interface {
	Publish(notify.Notification) bool
}

// Service drives the sit/stand cycle on a one-second poll.
type Service struct {
	blobs  storage.Store
	wstore *workout.Store
	notify Notifier
	bus    eventbus.Bus
	log    logx.Logger

	mu    sync.Mutex
	phase Phase
	until time.Time

	now  func() time.Time
	intn func(n int) int
}

func New(blobs storage.Store, wstore *workout.Store, n Notifier, bus eventbus.Bus, log logx.Logger) *Service {
	return &Service{
		blobs:  blobs,
		wstore: wstore,
		notify: n,
		bus:    bus,
		log:    log,
		phase:  PhaseIdle,
		now:    time.Now,
		intn:   rand.Intn,
	}
}

// Run restores persisted state and polls until the context ends.
func (s *Service) Run(ctx context.Context) error {
	s.restore(ctx)
	tick := time.NewTicker(time.Second)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
			s.Tick(ctx)
		}
	}
}

func (s *Service) restore(ctx context.Context) {
	if s.blobs == nil {
		return
	}
	raw, ok, err := s.blobs.GetBlob(ctx, blobKey)
	if err != nil || !ok {
		return
	}
	var p persisted
	if err := json.Unmarshal(raw, &p); err != nil {
		s.log.Warn("standup state decode failed", logx.Err(err))
		return
	}
	s.mu.Lock()
	s.phase, s.until = p.Phase, p.Until
	s.mu.Unlock()
	s.log.Info("standup state restored",
		logx.String("phase", string(p.Phase)), logx.Time("until", p.Until))
}

func (s *Service) persist(ctx context.Context) {
	if s.blobs == nil {
		return
	}
	raw, _ := json.Marshal(persisted{Phase: s.phase, Until: s.until})
	if err := s.blobs.PutBlob(ctx, blobKey, raw); err != nil {
		s.log.Warn("standup state write failed", logx.Err(err))
	}
}

// Tick advances the cycle. Exposed for tests; Run calls it every second.
func (s *Service) Tick(ctx context.Context) {
	cfg := s.wstore.Settings(ctx).Standup
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if !cfg.Enabled {
		if s.phase != PhaseIdle {
			s.phase = PhaseIdle
			s.persist(ctx)
		}
		return
	}

	switch s.phase {
	case PhaseIdle:
		s.enterLocked(ctx, PhaseSitting, now, cfg.SitMinMinutes, cfg.SitMaxMinutes)
	case PhaseSitting:
		if now.Before(s.until) {
			return
		}
		s.notify.Publish(notify.Notification{
			Kind:  notify.KindStandup,
			Title: "Stand up",
			Body:  "You have been sitting long enough",
			Sound: true,
			Key:   "standup:" + s.until.Format(time.RFC3339),
		})
		s.enterLocked(ctx, PhaseStanding, now, cfg.StandMinMinutes, cfg.StandMaxMinutes)
	case PhaseStanding:
		if now.Before(s.until) {
			return
		}
		s.notify.Publish(notify.Notification{
			Kind:  notify.KindStandup,
			Title: "Sit down",
			Body:  "Standing break over",
			Sound: true,
			Key:   "standup:" + s.until.Format(time.RFC3339),
		})
		s.enterLocked(ctx, PhaseSitting, now, cfg.SitMinMinutes, cfg.SitMaxMinutes)
	}
}

func (s *Service) enterLocked(ctx context.Context, p Phase, now time.Time, minMin, maxMin int) {
	minutes := minMin
	if maxMin > minMin {
		minutes += s.intn(maxMin - minMin + 1)
	}
	s.phase = p
	s.until = now.Add(time.Duration(minutes) * time.Minute)
	s.persist(ctx)
	s.log.Debug("standup phase change",
		logx.String("phase", string(p)), logx.Int("minutes", minutes))
	s.bus.Publish(eventbus.Event{Type: eventbus.TypeStandupPhase, Time: now, Data: string(p)})
}

// State returns the current phase and its deadline for the UI.
func (s *Service) State() (Phase, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase, s.until
}
