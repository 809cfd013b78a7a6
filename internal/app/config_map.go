package app

import (
	"fmt"
	"strings"
	"time"

	"attendbot/internal/action"
	"attendbot/internal/calendar"
	"attendbot/internal/config"
	"attendbot/internal/driver"
	"attendbot/internal/driver/httpdriver"
	"attendbot/internal/notifier"
	"attendbot/internal/punch"
	"attendbot/internal/storage"
	"attendbot/internal/task/retry"
	"attendbot/internal/transport"
	logx "attendbot/pkg/logx"
)

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Telegram: logx.TelegramConfig{
			Enabled:    cfg.Logging.Telegram.Enabled,
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	}
}

func chatTarget(cfg *config.Config) transport.ChatTarget {
	return transport.ChatTarget{ChatID: cfg.Telegram.ChatID, ThreadID: cfg.Telegram.ThreadID}
}

func mapNotifierConfig(cfg *config.Config) notifier.Config {
	return notifier.Config{
		Enabled:     cfg.Telegram.NotifyEnabled(),
		Target:      chatTarget(cfg),
		RatePerSec:  cfg.Telegram.NotifyRatePerSec,
		RetryMax:    3,
		DedupWindow: time.Minute,
	}
}

func mapRetryConfig(cfg *config.Config) (retry.Config, error) {
	rc := cfg.Scheduler.Retry
	delay, err := config.ParseDurationOrDefault("scheduler.retry.delay", rc.Delay, retry.DefaultDelay)
	if err != nil {
		return retry.Config{}, err
	}
	return retry.Config{
		Enabled:     rc.RetryEnabled(),
		MaxAttempts: rc.MaxAttempts,
		Delay:       delay,
	}, nil
}

func mapPolicyOptions(cfg *config.Config) calendar.Options {
	return calendar.Options{
		HolidayCheck:     cfg.Calendar.HolidayCheck,
		AnnualLeaveCheck: cfg.Calendar.AnnualLeaveCheck,
	}
}

// mapProvider returns a nil Provider when no calendar is configured.
func mapProvider(cfg *config.Config) (calendar.Provider, error) {
	p := cfg.Calendar.Provider
	if p == nil || strings.TrimSpace(p.CalendarID) == "" {
		return nil, nil
	}
	timeout, err := config.ParseDurationField("calendar.provider.timeout", p.Timeout)
	if err != nil {
		return nil, err
	}
	hp, err := calendar.NewHTTPProvider(calendar.HTTPProviderConfig{
		BaseURL:    p.URL,
		CalendarID: p.CalendarID,
		APIKey:     p.APIKey,
		Timeout:    timeout,
	})
	if err != nil {
		return nil, err
	}
	return hp, nil
}

func mapStorageConfig(cfg *config.Config) (storage.Config, bool, error) {
	if cfg == nil || cfg.Storage == nil {
		return storage.Config{}, false, nil
	}
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	if driver == "" || driver == "none" {
		return storage.Config{}, false, nil
	}
	path := strings.TrimSpace(sc.Path)

	switch driver {
	case "file":
		return storage.Config{Driver: "file", Path: path}, true, nil
	case "sqlite", "sqlite3":
		if path == "" {
			return storage.Config{}, false, fmt.Errorf("storage.path is required when storage.driver=sqlite")
		}
		busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, time.Second)
		if err != nil {
			return storage.Config{}, false, err
		}
		return storage.Config{Driver: driver, Path: path, BusyTimeout: busy}, true, nil
	default:
		return storage.Config{}, false, fmt.Errorf("unknown storage.driver: %s", sc.Driver)
	}
}

// OpenStore opens the configured leave store, or returns nil when storage
// is disabled.
func OpenStore(cfg *config.Config, log logx.Logger) (storage.Store, error) {
	sc, enabled, err := mapStorageConfig(cfg)
	if err != nil || !enabled {
		return nil, err
	}
	return storage.Open(sc, log)
}

func mapDriverConfig(cfg *config.Config) (httpdriver.Config, error) {
	timeout, err := config.ParseDurationField("driver.timeout", cfg.Driver.Timeout)
	if err != nil {
		return httpdriver.Config{}, err
	}
	poll, err := config.ParseDurationField("driver.poll_interval", cfg.Driver.PollInterval)
	if err != nil {
		return httpdriver.Config{}, err
	}
	return httpdriver.Config{Endpoint: cfg.Driver.Endpoint, Timeout: timeout, PollInterval: poll}, nil
}

func mapLocator(l config.LocatorConfig) driver.Locator {
	return driver.Locator{Strategy: strings.TrimSpace(l.Strategy), Value: strings.TrimSpace(l.Value)}
}

func mapSteps(path string, in []config.StepConfig) ([]punch.Step, error) {
	out := make([]punch.Step, 0, len(in))
	for i, sc := range in {
		st := punch.Step{Name: sc.Name}
		if sc.Locator != nil {
			st.Locator = mapLocator(*sc.Locator)
		}
		switch strings.ToLower(strings.TrimSpace(sc.Op)) {
		case "click":
			st.Op = driver.Click()
		case "type":
			st.Op = driver.Type(sc.Text)
		case "select":
			st.Op = driver.Select(sc.Text)
		case "navigate":
			st.Op = driver.Navigate(sc.Text)
		default:
			return nil, fmt.Errorf("%s[%d]: unknown op %q", path, i, sc.Op)
		}
		if w := sc.Wait; w != nil {
			timeout, err := config.ParseDurationField(fmt.Sprintf("%s[%d].wait.timeout", path, i), w.Timeout)
			if err != nil {
				return nil, err
			}
			st.Wait = &punch.Wait{Locator: mapLocator(w.Locator), Contains: w.Contains, Timeout: timeout}
		}
		out = append(out, st)
	}
	return out, nil
}

func mapSite(cfg *config.Config) (punch.Site, error) {
	sc := cfg.Site
	login, err := mapSteps("site.login", sc.Login)
	if err != nil {
		return punch.Site{}, err
	}
	followUp, err := mapSteps("site.follow_up", sc.FollowUp)
	if err != nil {
		return punch.Site{}, err
	}
	verify, err := config.ParseDurationOrDefault("site.verify_timeout", sc.VerifyTimeout, action.DefaultVerifyTimeout)
	if err != nil {
		return punch.Site{}, err
	}
	site := punch.Site{
		Login: login,
		Target: action.Target{
			Toggle:        mapLocator(sc.Toggle),
			Labels:        action.Labels{On: sc.ClockedInLabel, Off: sc.ClockedOutLabel},
			VerifyTimeout: verify,
		},
		FollowUp: followUp,
	}
	return site, site.Validate()
}

func mapActionKind(a string) (action.Kind, error) {
	switch a {
	case config.ActionClockIn:
		return action.TurnOn, nil
	case config.ActionClockOut:
		return action.TurnOff, nil
	default:
		return 0, fmt.Errorf("unknown action %q", a)
	}
}
