package notify

import (
	"context"
	"sync/atomic"

	"github.com/gen2brain/beeep"

	"pullupd/pkg/logx"
)

// DesktopConfig controls the native desktop notification sink.
type DesktopConfig struct {
	// SuppressWhenFocused skips desktop popups while the terminal UI is
	// focused; the alert sound and the in-UI banner still fire.
	// Defaults to true.
	SuppressWhenFocused bool
	// Sound plays the system beep alongside the popup.
	Sound bool
}

// Desktop delivers via the OS notification daemon.
type Desktop struct {
	cfg     DesktopConfig
	log     logx.Logger
	focused atomic.Bool

	// Swappable in tests; default to beeep.
	beep  func(freq float64, duration int) error
	popup func(title, body, icon string) error
}

func NewDesktop(cfg DesktopConfig, log logx.Logger) *Desktop {
	return &Desktop{
		cfg:   cfg,
		log:   log,
		beep:  beeep.Beep,
		popup: func(title, body, icon string) error { return beeep.Notify(title, body, icon) },
	}
}

func (d *Desktop) Name() string { return "desktop" }

func (d *Desktop) SetFocused(focused bool) { d.focused.Store(focused) }

func (d *Desktop) Send(_ context.Context, n Notification) error {
	// Sound is never focus-gated; only the popup is redundant while the
	// user is already looking at the UI.
	if n.Sound && d.cfg.Sound {
		if err := d.beep(beeep.DefaultFreq, beeep.DefaultDuration); err != nil {
			d.log.Debug("beep failed", logx.Err(err))
		}
	}
	if d.cfg.SuppressWhenFocused && d.focused.Load() {
		d.log.Debug("desktop popup suppressed, terminal focused", logx.String("title", n.Title))
		return nil
	}
	return d.popup(n.Title, n.Body, "")
}
