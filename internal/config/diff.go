package config

import (
	"reflect"
	"sort"
	"strings"

	logx "attendbot/pkg/logx"
)

// SummarizeConfigChange returns a compact list of changed sections and safe
// structured attrs for logging. Secrets (bot token, calendar API key) are
// never included, only whether they are set.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 8)
	attrs := make([]logx.Field, 0, 20)

	if !reflect.DeepEqual(oldCfg.Logging, newCfg.Logging) {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
			logx.Bool("logging.telegram_enabled", newCfg.Logging.Telegram.Enabled),
		)
	}

	if !reflect.DeepEqual(oldCfg.Telegram, newCfg.Telegram) {
		changed = append(changed, "telegram")
		attrs = append(attrs,
			logx.Bool("telegram.token_set", strings.TrimSpace(newCfg.Telegram.Token) != ""),
			logx.Int64("telegram.chat_id", newCfg.Telegram.ChatID),
			logx.Bool("telegram.notify", newCfg.Telegram.NotifyEnabled()),
		)
	}

	if !reflect.DeepEqual(oldCfg.Scheduler, newCfg.Scheduler) {
		changed = append(changed, "scheduler")
		attrs = append(attrs,
			logx.String("scheduler.timezone", strings.TrimSpace(newCfg.Scheduler.Timezone)),
			logx.Bool("scheduler.retry.enabled", newCfg.Scheduler.Retry.RetryEnabled()),
			logx.Int("scheduler.retry.max_attempts", newCfg.Scheduler.Retry.MaxAttempts),
			logx.String("scheduler.retry.delay", strings.TrimSpace(newCfg.Scheduler.Retry.Delay)),
		)
	}

	if !reflect.DeepEqual(oldCfg.Calendar, newCfg.Calendar) {
		changed = append(changed, "calendar")
		attrs = append(attrs,
			logx.Bool("calendar.holiday_check", newCfg.Calendar.HolidayCheck),
			logx.Bool("calendar.annual_leave_check", newCfg.Calendar.AnnualLeaveCheck),
			logx.String("calendar.holiday_ttl", strings.TrimSpace(newCfg.Calendar.HolidayTTL)),
			logx.String("calendar.leave_ttl", strings.TrimSpace(newCfg.Calendar.LeaveTTL)),
		)
		if p := newCfg.Calendar.Provider; p != nil {
			attrs = append(attrs,
				logx.String("calendar.provider.calendar_id", p.CalendarID),
				logx.Bool("calendar.provider.api_key_set", strings.TrimSpace(p.APIKey) != ""),
			)
		}
	}

	// Nil means disabled.
	var oS, nS StorageConfig
	if oldCfg.Storage != nil {
		oS = *oldCfg.Storage
	}
	if newCfg.Storage != nil {
		nS = *newCfg.Storage
	}
	if oS != nS {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.String("storage.driver", strings.TrimSpace(nS.Driver)),
			logx.Bool("storage.path_set", strings.TrimSpace(nS.Path) != ""),
			logx.Bool("storage.watch", nS.Watch),
		)
	}

	if oldCfg.Driver != newCfg.Driver {
		changed = append(changed, "driver")
		attrs = append(attrs, logx.String("driver.endpoint", strings.TrimSpace(newCfg.Driver.Endpoint)))
	}

	if !reflect.DeepEqual(oldCfg.Site, newCfg.Site) {
		changed = append(changed, "site")
		attrs = append(attrs,
			logx.Int("site.login_steps", len(newCfg.Site.Login)),
			logx.Int("site.follow_up_steps", len(newCfg.Site.FollowUp)),
		)
	}

	if !reflect.DeepEqual(oldCfg.Tasks, newCfg.Tasks) {
		changed = append(changed, "tasks")
		attrs = append(attrs, logx.Int("tasks.count", len(newCfg.Tasks)))
	}

	sort.Strings(changed)
	return changed, attrs
}

// RestartRequired lists the changed settings that only take effect after a
// restart. Logging, calendar feature flags, notification settings and
// retry settings apply live.
func RestartRequired(oldCfg, newCfg *Config) []string {
	if oldCfg == nil || newCfg == nil {
		return nil
	}
	var out []string
	if strings.TrimSpace(oldCfg.Scheduler.Timezone) != strings.TrimSpace(newCfg.Scheduler.Timezone) {
		out = append(out, "scheduler.timezone")
	}
	if !reflect.DeepEqual(oldCfg.Calendar.Provider, newCfg.Calendar.Provider) {
		out = append(out, "calendar.provider")
	}
	if oldCfg.Calendar.HolidayTTL != newCfg.Calendar.HolidayTTL || oldCfg.Calendar.LeaveTTL != newCfg.Calendar.LeaveTTL {
		out = append(out, "calendar.ttl")
	}
	if !reflect.DeepEqual(oldCfg.Storage, newCfg.Storage) {
		out = append(out, "storage")
	}
	if oldCfg.Driver != newCfg.Driver {
		out = append(out, "driver")
	}
	if !reflect.DeepEqual(oldCfg.Site, newCfg.Site) {
		out = append(out, "site")
	}
	if !reflect.DeepEqual(oldCfg.Tasks, newCfg.Tasks) {
		out = append(out, "tasks")
	}
	if oldCfg.Telegram.Token != newCfg.Telegram.Token {
		out = append(out, "telegram.token")
	}
	return out
}
