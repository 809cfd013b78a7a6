package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"attendbot/internal/calendar"
	"attendbot/internal/eventbus"
	"attendbot/internal/task/retry"
	logx "attendbot/pkg/logx"
)

// tick is the cron entry point. It never blocks on the execution.
func (s *Service) tick(t *trigger) {
	_ = s.fire(context.Background(), t, false)
}

// fire runs one firing of t. With wait=false the execution continues on its
// own goroutine and fire returns nil once it is dispatched.
func (s *Service) fire(ctx context.Context, t *trigger, wait bool) error {
	runID := uuid.NewString()
	now := s.now().In(s.loc)
	log := s.log.With(logx.String("trigger", t.name), logx.String("run_id", runID))

	t.mu.Lock()
	t.fired++
	t.mu.Unlock()

	if t.state.Running() {
		s.drop(t, runID, log)
		return ErrDropped
	}

	if t.opt.SkipPolicy {
		d := s.policy.ShouldSkipTask(ctx, calendar.DateOf(now))
		if d.Skip {
			t.mu.Lock()
			t.skipped++
			t.mu.Unlock()
			log.Info("trigger skipped",
				logx.String("reason", string(d.Reason)),
				logx.String("date", d.Date.String()),
				logx.String("match", d.Match))
			s.bus.Publish(eventbus.Event{Type: eventbus.TaskSkipped, Data: eventbus.TaskEvent{
				RunID: runID, Task: t.name, Reason: string(d.Reason),
			}})
			return fmt.Errorf("%w: %s", ErrSkipped, d.Reason)
		}
		log.Debug("skip policy passed", logx.String("reason", string(d.Reason)), logx.String("date", d.Date.String()))
	}

	if !t.state.TryAcquire() {
		s.drop(t, runID, log)
		return ErrDropped
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		t.state.Release()
		log.Debug("firing after stop ignored")
		return ErrStopped
	}
	s.inflight.Add(1)
	s.running++
	s.mu.Unlock()

	if wait {
		return s.execute(ctx, t, runID, log)
	}
	go func() {
		_ = s.execute(context.Background(), t, runID, log)
	}()
	return nil
}

func (s *Service) execute(ctx context.Context, t *trigger, runID string, log logx.Logger) error {
	defer func() {
		t.state.Release()
		s.mu.Lock()
		s.running--
		s.mu.Unlock()
		s.inflight.Done()
	}()

	start := time.Now()
	log.Info("trigger fired")
	s.bus.Publish(eventbus.Event{Type: eventbus.TaskStarted, Time: start, Data: eventbus.TaskEvent{RunID: runID, Task: t.name}})

	ctx = retry.WithRunID(ctx, runID)
	err := s.exec.Execute(ctx, t.name, func(ctx context.Context) error {
		if t.opt.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, t.opt.Timeout)
			defer cancel()
		}
		return t.work(ctx)
	})

	last := LastRun{RunID: runID, Started: start, Duration: time.Since(start)}
	if err != nil {
		last.Err = err.Error()
	}
	t.mu.Lock()
	t.last = last
	t.mu.Unlock()

	log.Debug("trigger released", logx.Duration("dur", last.Duration), logx.Bool("ok", err == nil))
	return err
}

func (s *Service) drop(t *trigger, runID string, log logx.Logger) {
	t.mu.Lock()
	t.dropped++
	t.mu.Unlock()
	log.Warn("trigger dropped (still running)")
	s.bus.Publish(eventbus.Event{Type: eventbus.TaskDropped, Data: eventbus.TaskEvent{
		RunID: runID, Task: t.name, Reason: "still_running",
	}})
}
