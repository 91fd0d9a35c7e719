// Package notify fans workout alerts out to the configured sinks (desktop
// notifications, Telegram, log). Delivery is asynchronous through a bounded
// queue with a worker pool; a full queue drops the alert rather than
// blocking the scheduler tick.
package notify

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"pullupd/pkg/logx"
)

// Kind tags a notification with its origin.
type Kind string

const (
	KindWorkout Kind = "workout"
	KindTimer   Kind = "timer"
	KindStandup Kind = "standup"
	KindDigest  Kind = "digest"
)

// Notification is one outbound alert.
type Notification struct {
	Kind  Kind
	Title string
	Body  string
	Sound bool

	// Key deduplicates repeats within the configured window. Empty
	// disables dedup for this notification.
	Key string
}

// Sink delivers a notification to one destination.
type Sink interface {
	Name() string
	Send(ctx context.Context, n Notification) error
}

// focusAware sinks suppress themselves while the terminal UI has focus.
type focusAware interface {
	SetFocused(bool)
}

// Config tunes the delivery pipeline.
type Config struct {
	Workers     int
	QueueSize   int
	RatePerSec  float64
	DedupWindow time.Duration
}

func (c *Config) normalize() {
	if c.Workers < 1 {
		c.Workers = 2
	}
	if c.QueueSize < 1 {
		c.QueueSize = 64
	}
	if c.RatePerSec <= 0 {
		c.RatePerSec = 1
	}
	if c.DedupWindow < 0 {
		c.DedupWindow = 0
	}
}

// Service owns the queue, the worker pool and the sinks.
type Service struct {
	log   logx.Logger
	sinks []Sink

	mu      sync.Mutex
	cfg     Config
	limiter *rate.Limiter
	seen    map[string]time.Time

	queue  chan Notification
	cancel context.CancelFunc
	wg     sync.WaitGroup

	now func() time.Time
}

func New(cfg Config, sinks []Sink, log logx.Logger) *Service {
	cfg.normalize()
	return &Service{
		log:     log,
		sinks:   sinks,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1),
		seen:    make(map[string]time.Time),
		now:     time.Now,
	}
}

// Start spins up the worker pool. Queue and worker count are fixed until
// the next Start; Apply only retunes the limiter and dedup window.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	workers := s.cfg.Workers
	s.queue = make(chan Notification, s.cfg.QueueSize)
	queue := s.queue
	s.mu.Unlock()

	ctx, s.cancel = context.WithCancel(ctx)
	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx, queue)
	}
	s.log.Info("notify started", logx.Int("workers", workers), logx.Int("sinks", len(s.sinks)))
}

// Stop drains nothing: queued alerts that have not been delivered are lost,
// which is fine for reminders.
func (s *Service) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// Apply retunes rate limit and dedup window from a config reload.
func (s *Service) Apply(cfg Config) {
	cfg.normalize()
	s.mu.Lock()
	defer s.mu.Unlock()
	if cfg.RatePerSec != s.cfg.RatePerSec {
		s.limiter.SetLimit(rate.Limit(cfg.RatePerSec))
	}
	s.cfg.RatePerSec = cfg.RatePerSec
	s.cfg.DedupWindow = cfg.DedupWindow
}

// SetFocused propagates terminal focus to the focus-aware sinks.
func (s *Service) SetFocused(focused bool) {
	for _, sink := range s.sinks {
		if fa, ok := sink.(focusAware); ok {
			fa.SetFocused(focused)
		}
	}
}

// Publish enqueues a notification. Returns false when the alert was
// suppressed by dedup or dropped on a full queue. The dedup window only
// starts once the alert actually made it onto the queue, so a dropped
// alert does not shadow the next identical one.
func (s *Service) Publish(n Notification) bool {
	if s.suppressed(n.Key) {
		s.log.Debug("notification deduped", logx.String("key", n.Key))
		return false
	}
	s.mu.Lock()
	queue := s.queue
	s.mu.Unlock()
	if queue == nil {
		return false
	}
	select {
	case queue <- n:
		s.remember(n.Key)
		return true
	default:
		s.log.Warn("notification dropped, queue full",
			logx.String("kind", string(n.Kind)), logx.String("title", n.Title))
		return false
	}
}

func (s *Service) suppressed(key string) bool {
	if key == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg.DedupWindow <= 0 {
		return false
	}
	last, ok := s.seen[key]
	return ok && s.now().Sub(last) < s.cfg.DedupWindow
}

func (s *Service) remember(key string) {
	if key == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg.DedupWindow <= 0 {
		return
	}
	now := s.now()
	// Drop stale entries opportunistically so the map stays bounded.
	for k, t := range s.seen {
		if now.Sub(t) >= s.cfg.DedupWindow {
			delete(s.seen, k)
		}
	}
	s.seen[key] = now
}

func (s *Service) worker(ctx context.Context, queue chan Notification) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-queue:
			if err := s.limiter.Wait(ctx); err != nil {
				return
			}
			for _, sink := range s.sinks {
				if err := sink.Send(ctx, n); err != nil {
					s.log.Warn("sink delivery failed",
						logx.String("sink", sink.Name()),
						logx.String("title", n.Title),
						logx.Err(err))
				}
			}
		}
	}
}
