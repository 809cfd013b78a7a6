package config

// Config is the on-disk configuration (JSON or YAML).
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type Config struct {
	Logging   LoggingConfig   `json:"logging"`
	Telegram  TelegramConfig  `json:"telegram"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Calendar  CalendarConfig  `json:"calendar"`
	Storage   *StorageConfig  `json:"storage,omitempty"`
	Driver    DriverConfig    `json:"driver"`
	Site      SiteConfig      `json:"site"`
	Tasks     []TaskConfig    `json:"tasks"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// TelegramConfig configures the operator chat. An empty token disables both
// the log sink and outcome notifications.
type TelegramConfig struct {
	Token    string `json:"token"`
	ChatID   int64  `json:"chat_id"`
	ThreadID int    `json:"thread_id,omitempty"`
	// Timeout bounds a single Bot API request.
	Timeout string `json:"timeout,omitempty"`
	// Notify toggles outcome messages (task succeeded/failed/skipped).
	// Nil means enabled whenever a token is set.
	Notify *bool `json:"notify,omitempty"`
	// NotifyRatePerSec paces outcome messages. Default: 1.
	NotifyRatePerSec int `json:"notify_rate_per_sec,omitempty"`
}

// SchedulerConfig controls trigger evaluation and execution retries.
type SchedulerConfig struct {
	// Timezone is an IANA name. Empty means the host's local zone.
	Timezone string      `json:"timezone,omitempty"`
	Retry    RetryConfig `json:"retry"`
}

// RetryConfig defaults: enabled=true, max_attempts=3, delay="1m".
type RetryConfig struct {
	Enabled     *bool  `json:"enabled,omitempty"`
	MaxAttempts int    `json:"max_attempts,omitempty"`
	Delay       string `json:"delay,omitempty"`
}

// CalendarConfig holds the skip-policy feature flags and cache lifetimes.
type CalendarConfig struct {
	HolidayCheck     bool            `json:"holiday_check"`
	AnnualLeaveCheck bool            `json:"annual_leave_check"`
	HolidayTTL       string          `json:"holiday_ttl,omitempty"` // default "24h"
	LeaveTTL         string          `json:"leave_ttl,omitempty"`   // default "1h"
	Provider         *ProviderConfig `json:"provider,omitempty"`
}

// ProviderConfig points at a Google Calendar compatible events API.
type ProviderConfig struct {
	URL        string `json:"url,omitempty"`
	CalendarID string `json:"calendar_id"`
	APIKey     string `json:"api_key,omitempty"`
	Timeout    string `json:"timeout,omitempty"`
}

// StorageConfig controls where annual leave is kept.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./leaves.yaml", "watch": true }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite only
	// Watch invalidates the leave cache on external edits (file driver only).
	Watch bool `json:"watch,omitempty"`
}

// DriverConfig points at the browser-automation sidecar.
type DriverConfig struct {
	Endpoint     string `json:"endpoint"`
	Timeout      string `json:"timeout,omitempty"`
	PollInterval string `json:"poll_interval,omitempty"`
}

type LocatorConfig struct {
	Strategy string `json:"strategy,omitempty"`
	Value    string `json:"value"`
}

// StepConfig is one scripted interaction. Op is click, type, select or
// navigate; Text carries the typed value, option or URL.
type StepConfig struct {
	Name    string         `json:"name,omitempty"`
	Locator *LocatorConfig `json:"locator,omitempty"`
	Op      string         `json:"op"`
	Text    string         `json:"text,omitempty"`
	Wait    *WaitConfig    `json:"wait,omitempty"`
}

type WaitConfig struct {
	Locator  LocatorConfig `json:"locator"`
	Contains string        `json:"contains,omitempty"`
	Timeout  string        `json:"timeout,omitempty"`
}

// SiteConfig describes the attendance page.
type SiteConfig struct {
	Login  []StepConfig  `json:"login,omitempty"`
	Toggle LocatorConfig `json:"toggle"`
	// ClockedInLabel is the toggle text while clocked in (usually the
	// "Clock Out" button); ClockedOutLabel the text while clocked out.
	ClockedInLabel  string       `json:"clocked_in_label"`
	ClockedOutLabel string       `json:"clocked_out_label"`
	VerifyTimeout   string       `json:"verify_timeout,omitempty"` // default "15s"
	FollowUp        []StepConfig `json:"follow_up,omitempty"`
}

const (
	ActionClockIn  = "clock_in"
	ActionClockOut = "clock_out"
)

// TaskConfig is one scheduled punch.
type TaskConfig struct {
	Name string `json:"name"`
	// Schedule is a 5-field cron expression ("0 8 * * *") or "HH:MM".
	Schedule   string `json:"schedule"`
	Action     string `json:"action"`
	SkipPolicy bool   `json:"skip_policy"`
	// Timeout bounds each attempt. "0s" or empty disables it.
	Timeout string `json:"timeout,omitempty"`
}

// RetryEnabled resolves the pointer default.
func (r RetryConfig) RetryEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// NotifyEnabled reports whether outcome messages should be sent.
func (t TelegramConfig) NotifyEnabled() bool {
	if t.Token == "" || t.ChatID == 0 {
		return false
	}
	return t.Notify == nil || *t.Notify
}
