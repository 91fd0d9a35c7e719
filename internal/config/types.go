package config

// Config is the file-level configuration (infrastructure concerns only).
//
// Domain settings the user edits at runtime (sets/reps variables, categories,
// stand-up ranges, timer default) live in the persisted settings blob, not
// here; see internal/workout.
type Config struct {
	Logging LoggingConfig `json:"logging"`
	Storage StorageConfig `json:"storage"`

	// Seed points at the bootstrap workouts.json used on first run when no
	// workouts blob exists yet. Path wins over URL when both are set.
	Seed SeedConfig `json:"seed,omitempty"`

	Reminder ReminderConfig `json:"reminder"`
	Notify   NotifyConfig   `json:"notify"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// StorageConfig controls the blob store backing workouts, settings,
// completions and stand-up state.
//
// Example:
//
//	"storage": { "driver": "file", "path": "~/.pullupd" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

type SeedConfig struct {
	Path string `json:"path,omitempty"`
	URL  string `json:"url,omitempty"`
}

// ReminderConfig controls the workout scheduler.
//
// All durations are Go duration strings (e.g. "30m").
type ReminderConfig struct {
	// Interval between repeat reminders after the first due-alert.
	// Defaults to "30m".
	Interval string `json:"interval,omitempty"`

	// Timezone is an IANA TZ name (e.g. "Europe/Berlin"); empty means local.
	Timezone string `json:"timezone,omitempty"`

	// DailyDigest logs the day's upcoming workouts at midnight.
	DailyDigest bool `json:"daily_digest,omitempty"`
}

// NotifyConfig controls the async notification pipeline.
type NotifyConfig struct {
	Workers     int    `json:"workers,omitempty"`
	QueueSize   int    `json:"queue_size,omitempty"`
	RatePerSec  int    `json:"rate_per_sec,omitempty"`
	DedupWindow string `json:"dedup_window,omitempty"` // Go duration string

	Desktop  DesktopNotifyConfig  `json:"desktop"`
	Telegram TelegramNotifyConfig `json:"telegram,omitempty"`
}

type DesktopNotifyConfig struct {
	Enabled bool `json:"enabled"`

	// SuppressWhenFocused drops desktop notifications while the terminal UI
	// is focused. Defaults to true; sound is never suppressed by this.
	SuppressWhenFocused *bool `json:"suppress_when_focused,omitempty"`

	Sound bool `json:"sound"`
}

type TelegramNotifyConfig struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token,omitempty"`
	ChatID  int64  `json:"chat_id,omitempty"`
}

// Default returns the configuration used when no config file is given.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "INFO", Console: true},
		Storage: StorageConfig{Driver: "file", Path: defaultDataDir()},
		Reminder: ReminderConfig{
			Interval:    "30m",
			DailyDigest: true,
		},
		Notify: NotifyConfig{
			Desktop: DesktopNotifyConfig{Enabled: true, Sound: true},
		},
	}
}
