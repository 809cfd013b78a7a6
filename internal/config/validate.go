package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"attendbot/internal/task/scheduler"
)

// Validate rejects configs that cannot be started. It is also the hot-reload
// gate: a config that fails here is never committed or published.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if tz := strings.TrimSpace(c.Scheduler.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("scheduler.timezone: invalid %q: %w", tz, err)
		}
	}
	if c.Scheduler.Retry.MaxAttempts < 0 {
		return errors.New("scheduler.retry.max_attempts must be >= 0")
	}

	durations := []struct{ path, raw string }{
		{"telegram.timeout", c.Telegram.Timeout},
		{"scheduler.retry.delay", c.Scheduler.Retry.Delay},
		{"calendar.holiday_ttl", c.Calendar.HolidayTTL},
		{"calendar.leave_ttl", c.Calendar.LeaveTTL},
		{"driver.timeout", c.Driver.Timeout},
		{"driver.poll_interval", c.Driver.PollInterval},
		{"site.verify_timeout", c.Site.VerifyTimeout},
	}
	if p := c.Calendar.Provider; p != nil {
		durations = append(durations, struct{ path, raw string }{"calendar.provider.timeout", p.Timeout})
	}
	for _, d := range durations {
		if _, err := ParseDurationField(d.path, d.raw); err != nil {
			return err
		}
	}

	if c.Telegram.NotifyRatePerSec < 0 {
		return errors.New("telegram.notify_rate_per_sec must be >= 0")
	}
	if c.Calendar.HolidayCheck && (c.Calendar.Provider == nil || strings.TrimSpace(c.Calendar.Provider.CalendarID) == "") {
		return errors.New("calendar.provider.calendar_id is required when calendar.holiday_check is true")
	}
	if err := c.ValidateStorage(); err != nil {
		return err
	}

	if err := c.Site.validate(); err != nil {
		return err
	}
	if len(c.Tasks) > 0 && strings.TrimSpace(c.Driver.Endpoint) == "" {
		return errors.New("driver.endpoint is required when tasks are configured")
	}

	seen := make(map[string]struct{}, len(c.Tasks))
	for i, t := range c.Tasks {
		name := strings.TrimSpace(t.Name)
		if name == "" {
			return fmt.Errorf("tasks[%d].name is required", i)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("tasks[%d]: duplicate name %q", i, name)
		}
		seen[name] = struct{}{}
		switch t.Action {
		case ActionClockIn, ActionClockOut:
		default:
			return fmt.Errorf("tasks[%d].action: want %s or %s, got %q", i, ActionClockIn, ActionClockOut, t.Action)
		}
		if _, err := NormalizeSchedule(t.Schedule); err != nil {
			return fmt.Errorf("tasks[%d].schedule: %w", i, err)
		}
		if _, err := ParseDurationField(fmt.Sprintf("tasks[%d].timeout", i), t.Timeout); err != nil {
			return err
		}
	}
	return nil
}

// ValidateStorage checks only the storage section. The leave subcommands use
// it so they work before the site and tasks are configured.
func (c *Config) ValidateStorage() error {
	s := c.Storage
	if s == nil {
		return nil
	}
	switch strings.ToLower(strings.TrimSpace(s.Driver)) {
	case "", "none":
	case "file":
	case "sqlite", "sqlite3":
		if strings.TrimSpace(s.Path) == "" {
			return errors.New("storage.path is required when storage.driver=sqlite")
		}
	default:
		return fmt.Errorf("unknown storage.driver: %s", s.Driver)
	}
	_, err := ParseDurationField("storage.busy_timeout", s.BusyTimeout)
	return err
}

func (s SiteConfig) validate() error {
	if strings.TrimSpace(s.Toggle.Value) == "" {
		return errors.New("site.toggle.value is required")
	}
	if strings.TrimSpace(s.ClockedInLabel) == "" || strings.TrimSpace(s.ClockedOutLabel) == "" {
		return errors.New("site.clocked_in_label and site.clocked_out_label are required")
	}
	if foldLabel(s.ClockedInLabel) == foldLabel(s.ClockedOutLabel) {
		return fmt.Errorf("site.clocked_in_label and site.clocked_out_label must differ (both read %q)", foldLabel(s.ClockedInLabel))
	}
	for i, st := range s.Login {
		if err := st.validate(); err != nil {
			return fmt.Errorf("site.login[%d]: %w", i, err)
		}
	}
	for i, st := range s.FollowUp {
		if err := st.validate(); err != nil {
			return fmt.Errorf("site.follow_up[%d]: %w", i, err)
		}
	}
	return nil
}

// foldLabel matches how the toggle text is compared at run time.
func foldLabel(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func (s StepConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(s.Op)) {
	case "click", "type", "select":
		if s.Locator == nil || strings.TrimSpace(s.Locator.Value) == "" {
			return fmt.Errorf("op %q requires a locator", s.Op)
		}
	case "navigate":
		if strings.TrimSpace(s.Text) == "" {
			return errors.New("navigate requires text (the url)")
		}
	default:
		return fmt.Errorf("unknown op %q", s.Op)
	}
	if s.Wait != nil {
		if strings.TrimSpace(s.Wait.Locator.Value) == "" {
			return errors.New("wait.locator.value is required")
		}
		if _, err := ParseDurationField("wait.timeout", s.Wait.Timeout); err != nil {
			return err
		}
	}
	return nil
}

// NormalizeSchedule accepts "HH:MM" (daily) or a 5-field cron expression
// and returns the cron form.
func NormalizeSchedule(raw string) (string, error) {
	return scheduler.NormalizeSpec(raw)
}
