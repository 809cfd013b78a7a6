package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	logx "attendbot/pkg/logx"
)

// Register adds a trigger. spec is a cron expression or "HH:MM". An invalid
// spec or a duplicate name is returned as an error; nothing is registered in
// that case.
func (s *Service) Register(spec, name string, work func(ctx context.Context) error, opt Options) (Handle, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Handle{}, errors.New("trigger name required")
	}
	if work == nil {
		return Handle{}, fmt.Errorf("trigger %q: work required", name)
	}
	if opt.SkipPolicy && s.policy == nil {
		return Handle{}, fmt.Errorf("trigger %q: skip policy requested but none configured", name)
	}
	spec, sched, err := parseSpec(spec)
	if err != nil {
		return Handle{}, fmt.Errorf("trigger %q: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return Handle{}, ErrStopped
	}
	for _, t := range s.triggers {
		if t.name == name {
			return Handle{}, fmt.Errorf("trigger %q already registered", name)
		}
	}

	t := &trigger{name: name, spec: spec, work: work, opt: opt, sched: sched}
	t.entryID = s.c.Schedule(sched, cron.FuncJob(func() { s.tick(t) }))
	s.triggers = append(s.triggers, t)

	s.log.Info("trigger registered",
		logx.String("trigger", name),
		logx.String("spec", spec),
		logx.Bool("skip_policy", opt.SkipPolicy),
		logx.String("next", formatTimes(nextRuns(sched, s.now().In(s.loc), 3))))
	return Handle{Name: name, Spec: spec}, nil
}

// AddDaily registers a trigger that fires every day at hhmm (scheduler time zone).
func (s *Service) AddDaily(name, hhmm string, work func(ctx context.Context) error, opt Options) (Handle, error) {
	if !isHHMM(strings.TrimSpace(hhmm)) {
		return Handle{}, fmt.Errorf("trigger %q: invalid time %q, expected HH:MM", name, hhmm)
	}
	return s.Register(hhmm, name, work, opt)
}

// RunNow fires the named trigger through the same policy, guard and retry
// path as a cron tick, and waits for the execution to finish.
// A skipped or dropped firing is reported as ErrSkipped or ErrDropped.
func (s *Service) RunNow(ctx context.Context, name string) error {
	t := s.lookup(name)
	if t == nil {
		return fmt.Errorf("%w: %q", ErrUnknown, name)
	}
	return s.fire(ctx, t, true)
}

func (s *Service) lookup(name string) *trigger {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.triggers {
		if t.name == name {
			return t
		}
	}
	return nil
}

func nextRuns(sched cron.Schedule, from time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	t := from
	for i := 0; i < n; i++ {
		t = sched.Next(t)
		if t.IsZero() {
			break
		}
		out = append(out, t)
	}
	return out
}

func formatTimes(ts []time.Time) string {
	var b strings.Builder
	for i, t := range ts {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(t.Format("2006-01-02 15:04 Mon"))
	}
	return b.String()
}
