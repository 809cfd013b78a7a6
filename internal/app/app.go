package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"attendbot/internal/calendar"
	"attendbot/internal/config"
	"attendbot/internal/driver/httpdriver"
	"attendbot/internal/eventbus"
	"attendbot/internal/notifier"
	"attendbot/internal/punch"
	"attendbot/internal/runtime/supervisor"
	"attendbot/internal/storage"
	"attendbot/internal/task/retry"
	"attendbot/internal/task/scheduler"
	"attendbot/internal/transport"
	telegram "attendbot/internal/transport/telegram/adapter"
	logx "attendbot/pkg/logx"
)

type App struct {
	cfgm *config.ConfigManager
	sup  *supervisor.Supervisor

	log   logx.Logger
	logs  *logx.Service
	bus   eventbus.Bus
	store storage.Store

	policy *calendar.Policy
	retry  *retry.Controller
	sched  *scheduler.Service
	notif  *notifier.Service
}

// New loads the config and wires every component. Nothing runs until Start
// or RunOnce.
func New(cfgPath string) (*App, error) {
	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	bootLog := logx.NewConsole("INFO")

	// A nil interface keeps the Telegram sink and the notifier off.
	var sender transport.Sender
	if strings.TrimSpace(cfg.Telegram.Token) != "" {
		timeout, err := config.ParseDurationField("telegram.timeout", cfg.Telegram.Timeout)
		if err != nil {
			return nil, err
		}
		ad, err := telegram.New(telegram.Config{Token: cfg.Telegram.Token, Timeout: timeout},
			bootLog.With(logx.String("comp", "telegram")))
		if err != nil {
			return nil, err
		}
		sender = ad
	}

	logSvc, log := logx.New(mapLogConfig(cfg), sender, chatTarget(cfg))
	log = log.With(logx.String("comp", "app"))
	bus := eventbus.New()

	store, err := OpenStore(cfg, log)
	if err != nil {
		return nil, err
	}
	if store != nil {
		log.Info("storage enabled", logx.String("driver", cfg.Storage.Driver))
	}
	// From here on the store must be closed on error.
	a, err := build(cfg, log, bus, store, sender)
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		return nil, err
	}
	a.cfgm = cfgm
	a.logs = logSvc
	return a, nil
}

func build(cfg *config.Config, log logx.Logger, bus eventbus.Bus, store storage.Store, sender transport.Sender) (*App, error) {
	holidayTTL, err := config.ParseDurationOrDefault("calendar.holiday_ttl", cfg.Calendar.HolidayTTL, calendar.DefaultHolidayTTL)
	if err != nil {
		return nil, err
	}
	leaveTTL, err := config.ParseDurationOrDefault("calendar.leave_ttl", cfg.Calendar.LeaveTTL, calendar.DefaultLeaveTTL)
	if err != nil {
		return nil, err
	}
	provider, err := mapProvider(cfg)
	if err != nil {
		return nil, err
	}
	calLog := log.With(logx.String("comp", "calendar"))
	// store may be nil; a nil Store converts to a nil LeaveStore.
	var leaveStore calendar.LeaveStore
	if store != nil {
		leaveStore = store
	}
	policy := calendar.NewPolicy(mapPolicyOptions(cfg),
		calendar.NewHolidayCache(provider, holidayTTL, calLog),
		calendar.NewLeaveCache(leaveStore, leaveTTL, calLog),
		calLog)

	rc, err := mapRetryConfig(cfg)
	if err != nil {
		return nil, err
	}
	ctrl := retry.New(rc, log.With(logx.String("comp", "retry")), bus)

	sched, err := scheduler.New(scheduler.Config{Timezone: cfg.Scheduler.Timezone}, policy, ctrl, log, bus)
	if err != nil {
		return nil, err
	}

	if len(cfg.Tasks) > 0 {
		dc, err := mapDriverConfig(cfg)
		if err != nil {
			return nil, err
		}
		drv, err := httpdriver.New(dc, log.With(logx.String("comp", "driver")))
		if err != nil {
			return nil, err
		}
		site, err := mapSite(cfg)
		if err != nil {
			return nil, err
		}
		for _, tc := range cfg.Tasks {
			kind, err := mapActionKind(tc.Action)
			if err != nil {
				return nil, fmt.Errorf("task %q: %w", tc.Name, err)
			}
			unit, err := punch.New(tc.Name, kind, site, drv, log, bus)
			if err != nil {
				return nil, err
			}
			if err := registerTask(sched, tc, unit); err != nil {
				return nil, err
			}
		}
	}

	return &App{
		log:    log,
		bus:    bus,
		store:  store,
		policy: policy,
		retry:  ctrl,
		sched:  sched,
		notif:  notifier.New(mapNotifierConfig(cfg), sender, log.With(logx.String("comp", "notifier")), bus),
	}, nil
}

func registerTask(sched *scheduler.Service, tc config.TaskConfig, unit *punch.Unit) error {
	timeout, err := config.ParseDurationField("tasks."+tc.Name+".timeout", tc.Timeout)
	if err != nil {
		return err
	}
	_, err = sched.Register(tc.Schedule, tc.Name, unit.Run, scheduler.Options{SkipPolicy: tc.SkipPolicy, Timeout: timeout})
	return err
}

func (a *App) Scheduler() *scheduler.Service { return a.sched }
func (a *App) Logger() logx.Logger           { return a.log }

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

// Start arms the triggers and the background loops (config reload, leave
// file watch, notifier).
func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))

	a.notif.Start(a.sup.Context())
	a.sched.Start()

	if a.cfgm != nil {
		a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
		// Reject reloads whose live-applied parts would not map.
		a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
			if _, err := mapRetryConfig(cfg); err != nil {
				return err
			}
			_, err := mapSite(cfg)
			return err
		})
		a.sup.Go("config.watch", a.cfgm.Watch)
		a.startReloadLoop()
	}

	if a.store != nil && a.store.Path() != "" && a.watchLeaves() {
		leaves := a.policy.Leaves()
		a.sup.GoRestart("leaves.watch", func(c context.Context) error {
			return storage.WatchLeaves(c, a.store, a.log, func() {
				leaves.Invalidate()
				a.log.Info("leave file changed; cache invalidated", logx.String("path", a.store.Path()))
				a.bus.Publish(eventbus.Event{Type: eventbus.LeavesChanged})
			})
		})
	}

	// Debug-level event log; components log their own summaries.
	events, unsub := a.bus.Subscribe(128)
	a.sup.Go0("eventbus.log", func(c context.Context) {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				a.log.Debug("event", logx.String("type", e.Type), logx.Any("data", e.Data))
			}
		}
	})

	a.logSummary()
	if a.policy.Options().HolidayCheck {
		a.sup.Go0("holidays.warm", a.warmHolidays)
	}
	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		a.log.Warn("systemd notify failed", logx.Err(err))
	} else if ok {
		a.log.Debug("systemd notified (ready)")
	}
	a.log.Info("app started")
	return nil
}

func (a *App) watchLeaves() bool {
	if a.cfgm == nil {
		return false
	}
	cfg := a.cfgm.Get()
	return cfg != nil && cfg.Storage != nil && cfg.Storage.Watch
}

// RunOnce fires one task immediately through the skip policy, overlap guard
// and retry controller, without arming any trigger.
func (a *App) RunOnce(ctx context.Context, name string) error {
	a.notif.Start(ctx)
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		a.notif.Stop(stopCtx)
	}()

	err := a.sched.RunNow(ctx, name)
	if errors.Is(err, scheduler.ErrSkipped) {
		a.log.Info("task skipped", logx.String("task", name), logx.Err(err))
		return nil
	}
	return err
}

func (a *App) startReloadLoop() {
	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		lastApplied := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts: keep only the latest config in the channel.
				for drained := false; !drained; {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						drained = true
					}
				}
				a.applyConfig(lastApplied, newCfg)
				lastApplied = newCfg
			}
		}
	})
}

// applyConfig applies the settings that can change live and warns about the
// rest.
func (a *App) applyConfig(oldCfg, newCfg *config.Config) {
	sections, attrs := config.SummarizeConfigChange(oldCfg, newCfg)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}

	if a.logs != nil {
		a.logs.SetTelegramTarget(chatTarget(newCfg))
		a.logs.Apply(mapLogConfig(newCfg))
	}
	a.policy.SetOptions(mapPolicyOptions(newCfg))
	if rc, err := mapRetryConfig(newCfg); err != nil {
		a.log.Warn("invalid retry config; keeping previous", logx.Err(err))
	} else {
		a.retry.Apply(rc)
	}
	a.notif.Apply(mapNotifierConfig(newCfg))

	if pending := config.RestartRequired(oldCfg, newCfg); len(pending) > 0 {
		a.log.Warn("config changes require a restart to take effect", logx.String("settings", strings.Join(pending, ",")))
	}
	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config reloaded", fields...)
}

func (a *App) logSummary() {
	snap := a.sched.Snapshot()
	opt := a.policy.Options()
	a.log.Info("scheduler summary",
		logx.String("timezone", snap.Timezone),
		logx.Bool("holiday_check", opt.HolidayCheck),
		logx.Bool("annual_leave_check", opt.AnnualLeaveCheck),
		logx.Int("retry_attempts", a.retry.Config().MaxAttempts),
		logx.Duration("retry_delay", a.retry.Config().Delay),
		logx.Int("triggers", len(snap.Triggers)))
	for _, t := range snap.Triggers {
		next := make([]string, 0, len(t.Next))
		for _, n := range t.Next {
			next = append(next, n.Format("Mon 2006-01-02 15:04"))
		}
		a.log.Info("trigger",
			logx.String("trigger", t.Name),
			logx.String("spec", t.Spec),
			logx.Bool("skip_policy", t.Options.SkipPolicy),
			logx.String("next", strings.Join(next, ", ")))
	}
	if len(snap.Triggers) == 0 {
		a.log.Warn("no tasks configured; nothing will fire")
	}
}

// warmHolidays loads the current year so the first firing does not wait on
// the calendar provider.
func (a *App) warmHolidays(ctx context.Context) {
	loc, err := scheduler.LoadLocation(a.sched.Snapshot().Timezone)
	if err != nil {
		loc = time.Local
	}
	hc := a.policy.Holidays()
	if _, _, err := hc.Lookup(ctx, calendar.DateOf(time.Now().In(loc))); err != nil {
		a.log.Warn("holiday cache warm-up failed; the next check retries", logx.Err(err))
		return
	}
	year, count, at := hc.Stats()
	a.log.Info("holiday cache ready",
		logx.Int("year", year),
		logx.Int("holidays", count),
		logx.Time("fetched_at", at))
}

// Stop unwinds in dependency order: triggers and in-flight executions first,
// then the notifier so their outcomes are still announced.
func (a *App) Stop(ctx context.Context, reason StopReason) error {
	a.log.Info("stopping", logx.String("reason", string(reason)))
	if _, err := daemon.SdNotify(false, daemon.SdNotifyStopping); err != nil {
		a.log.Debug("systemd notify failed", logx.Err(err))
	}
	if a.sup != nil {
		a.sup.Cancel()
	}

	a.step(ctx, "scheduler", 10*time.Second, a.sched.StopAll)
	a.step(ctx, "notifier", 5*time.Second, func(c context.Context) error { a.notif.Stop(c); return nil })
	a.step(ctx, "storage", time.Second, func(context.Context) error {
		if a.store != nil {
			return a.store.Close()
		}
		return nil
	})
	if a.sup != nil {
		a.step(ctx, "supervisor", 2*time.Second, a.sup.Wait)
	}

	a.log.Info("stopped")
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return nil
}

// step runs one shutdown step with an upper bound so one component cannot
// stall the whole stop.
func (a *App) step(ctx context.Context, name string, limit time.Duration, fn func(context.Context) error) {
	start := time.Now()
	a.log.Debug("stop step begin", logx.String("name", name), logx.Duration("max", limit))

	stepCtx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic in stop step %s: %v", name, r)
			}
		}()
		done <- fn(stepCtx)
	}()

	select {
	case err := <-done:
		if err != nil {
			a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
		}
		took := time.Since(start)
		if took >= 500*time.Millisecond {
			a.log.Info("stop step end", logx.String("name", name), logx.Duration("took", took))
		} else {
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", took))
		}
	case <-stepCtx.Done():
		a.log.Warn("stop step deadline reached (continuing)",
			logx.String("name", name),
			logx.Err(stepCtx.Err()),
			logx.Duration("elapsed", time.Since(start)))
	}
}
