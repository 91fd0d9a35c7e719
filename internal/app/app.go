// Package app wires configuration, storage, the notification pipeline and
// the reminder services together and supervises their lifecycles.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/robfig/cron/v3"

	"pullupd/internal/config"
	"pullupd/internal/eventbus"
	"pullupd/internal/notify"
	"pullupd/internal/runtime/supervisor"
	"pullupd/internal/schedule"
	"pullupd/internal/standup"
	"pullupd/internal/storage"
	"pullupd/internal/timer"
	"pullupd/internal/workout"
	"pullupd/pkg/logx"
)

// App owns every long-lived component of the daemon.
type App struct {
	cfgMgr *config.Manager
	logSvc *logx.Service
	log    logx.Logger

	blobs   storage.Store
	store   *workout.Store
	bus     eventbus.Bus
	notify  *notify.Service
	sched   *schedule.Scheduler
	timers  *timer.Engine
	standup *standup.Service
	cron    *cron.Cron

	sup *supervisor.Supervisor
}

// New parses configuration and constructs the component graph. Nothing is
// running yet; call Start.
func New(configPath string) (*App, error) {
	cfgMgr := config.NewManager(configPath)
	cfg, err := cfgMgr.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	cfgMgr.SetLogger(log.With(logx.String("svc", "config")))

	blobs, err := openStorage(cfg, log)
	if err != nil {
		logSvc.Close()
		return nil, err
	}

	a := &App{
		cfgMgr: cfgMgr,
		logSvc: logSvc,
		log:    log.With(logx.String("svc", "app")),
		blobs:  blobs,
		bus:    eventbus.New(),
	}
	a.store = workout.NewStore(blobs, log.With(logx.String("svc", "store")))

	a.notify = notify.New(
		notifyConfig(cfg),
		buildSinks(cfg, log),
		log.With(logx.String("svc", "notify")),
	)
	schedCfg, err := scheduleConfig(cfg)
	if err != nil {
		logSvc.Close()
		return nil, err
	}
	a.sched = schedule.New(schedCfg, a.store, a.notify, a.bus, log.With(logx.String("svc", "schedule")))
	a.timers = timer.New(a.notify, a.bus, log.With(logx.String("svc", "timer")))
	a.standup = standup.New(blobs, a.store, a.notify, a.bus, log.With(logx.String("svc", "standup")))
	a.cron = cron.New(cron.WithLocation(schedCfg.Location))

	return a, nil
}

func openStorage(cfg *config.Config, log logx.Logger) (storage.Store, error) {
	busy, err := config.ParseDurationOrDefault("storage.busy_timeout", cfg.Storage.BusyTimeout, 5*time.Second)
	if err != nil {
		return nil, err
	}
	blobs, err := storage.Open(storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busy,
	}, log.With(logx.String("svc", "storage")))
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	return blobs, nil
}

func notifyConfig(cfg *config.Config) notify.Config {
	window, err := config.ParseDurationOrDefault("notify.dedup_window", cfg.Notify.DedupWindow, 0)
	if err != nil {
		window = 0
	}
	return notify.Config{
		Workers:     cfg.Notify.Workers,
		QueueSize:   cfg.Notify.QueueSize,
		RatePerSec:  float64(cfg.Notify.RatePerSec),
		DedupWindow: window,
	}
}

func scheduleConfig(cfg *config.Config) (schedule.Config, error) {
	interval, err := config.ParseDurationOrDefault("reminder.interval", cfg.Reminder.Interval, 30*time.Minute)
	if err != nil {
		return schedule.Config{}, err
	}
	loc := time.Local
	if cfg.Reminder.Timezone != "" {
		loc, err = time.LoadLocation(cfg.Reminder.Timezone)
		if err != nil {
			return schedule.Config{}, fmt.Errorf("reminder.timezone: %w", err)
		}
	}
	return schedule.Config{Interval: interval, Location: loc}, nil
}

func buildSinks(cfg *config.Config, log logx.Logger) []notify.Sink {
	sinks := []notify.Sink{notify.NewLogSink(log.With(logx.String("svc", "notify")))}
	if cfg.Notify.Desktop.Enabled {
		suppress := true
		if cfg.Notify.Desktop.SuppressWhenFocused != nil {
			suppress = *cfg.Notify.Desktop.SuppressWhenFocused
		}
		sinks = append(sinks, notify.NewDesktop(notify.DesktopConfig{
			SuppressWhenFocused: suppress,
			Sound:               cfg.Notify.Desktop.Sound,
		}, log.With(logx.String("svc", "desktop"))))
	}
	if cfg.Notify.Telegram.Enabled {
		tg, err := notify.NewTelegram(notify.TelegramConfig{
			Token:  cfg.Notify.Telegram.Token,
			ChatID: cfg.Notify.Telegram.ChatID,
		}, log.With(logx.String("svc", "telegram")))
		if err != nil {
			log.Warn("telegram sink disabled", logx.Err(err))
		} else {
			sinks = append(sinks, tg)
		}
	}
	return sinks
}

// Start seeds the store if needed and launches every service under the
// supervisor.
func (a *App) Start(ctx context.Context) {
	cfg := a.cfgMgr.Get()
	a.store.Seed(ctx, cfg.Seed.Path, cfg.Seed.URL, a.log)

	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log))
	a.notify.Start(a.sup.Context())

	a.sup.GoRestart("config-watch", a.cfgMgr.Watch)
	a.sup.Go0("config-apply", a.applyReloads)
	a.sup.GoRestart("scheduler", a.sched.Run)
	a.sup.GoRestart("timer", a.timers.Run)
	a.sup.GoRestart("standup", a.standup.Run)

	if cfg.Reminder.DailyDigest {
		// The digest runs off wall-clock cron rather than the tick loop so a
		// suspended laptop still gets exactly one per day after wake.
		if _, err := a.cron.AddFunc("0 0 * * *", a.publishDigest); err != nil {
			a.log.Warn("digest cron rejected", logx.Err(err))
		} else {
			a.cron.Start()
		}
	}

	a.sup.Go0("watchdog", a.watchdog)
	if sent, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		a.log.Debug("sd_notify failed", logx.Err(err))
	} else if sent {
		a.log.Info("systemd notified ready")
	}
	a.log.Info("started")
}

// applyReloads fans config file changes out to the running services.
func (a *App) applyReloads(ctx context.Context) {
	ch := a.cfgMgr.Subscribe(1)
	defer a.cfgMgr.Unsubscribe(ch)
	for {
		select {
		case <-ctx.Done():
			return
		case cfg := <-ch:
			if cfg == nil {
				return
			}
			a.logSvc.Apply(logx.Config{
				Level:   cfg.Logging.Level,
				Console: cfg.Logging.Console,
				File: logx.FileConfig{
					Enabled: cfg.Logging.File.Enabled,
					Path:    cfg.Logging.File.Path,
				},
			})
			a.notify.Apply(notifyConfig(cfg))
			if schedCfg, err := scheduleConfig(cfg); err != nil {
				a.log.Warn("reload: bad reminder config kept old values", logx.Err(err))
			} else {
				a.sched.Apply(schedCfg)
			}
			a.log.Info("configuration reloaded")
		}
	}
}

func (a *App) publishDigest() {
	planned := 0
	for _, e := range a.sched.Snapshot() {
		if e.Status == schedule.StatusPending || e.Status == schedule.StatusDue {
			planned++
		}
	}
	a.notify.Publish(notify.Notification{
		Kind:  notify.KindDigest,
		Title: "Today's plan",
		Body:  fmt.Sprintf("%d workout(s) on the schedule", planned),
		Key:   "digest:" + workout.DayKey(time.Now()),
	})
}

// watchdog feeds the systemd watchdog when one is armed.
func (a *App) watchdog(ctx context.Context) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		return
	}
	tick := time.NewTicker(interval / 2)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			daemon.SdNotify(false, daemon.SdNotifyWatchdog)
		}
	}
}

// Wait blocks until the supervisor stops, e.g. on context cancellation.
func (a *App) Wait(ctx context.Context) error {
	return a.sup.Wait(ctx)
}

// Stop shuts everything down in reverse start order.
func (a *App) Stop(ctx context.Context) {
	daemon.SdNotify(false, daemon.SdNotifyStopping)
	if a.cron != nil {
		stopCtx := a.cron.Stop()
		select {
		case <-stopCtx.Done():
		case <-ctx.Done():
		}
	}
	if a.sup != nil {
		if err := a.sup.Stop(ctx); err != nil {
			a.log.Warn("supervisor stop", logx.Err(err))
		}
	}
	a.notify.Stop()
	if a.blobs != nil {
		if err := a.blobs.Close(); err != nil {
			a.log.Warn("storage close", logx.Err(err))
		}
	}
	a.log.Info("stopped")
	a.logSvc.Close()
}

// Accessors for the terminal UI.

func (a *App) Scheduler() *schedule.Scheduler { return a.sched }
func (a *App) Timers() *timer.Engine          { return a.timers }
func (a *App) Notify() *notify.Service        { return a.notify }
func (a *App) Standup() *standup.Service      { return a.standup }
func (a *App) Bus() eventbus.Bus              { return a.bus }
func (a *App) Logger() logx.Logger            { return a.log }
