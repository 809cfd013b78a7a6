package retry

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"attendbot/internal/eventbus"
	logx "attendbot/pkg/logx"
)

const (
	DefaultMaxAttempts = 3
	DefaultDelay       = time.Minute
)

type Config struct {
	Enabled     bool
	MaxAttempts int
	Delay       time.Duration
}

func (c Config) normalized() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.Delay < 0 {
		c.Delay = 0
	}
	if !c.Enabled {
		c.MaxAttempts = 1
	}
	return c
}

type Controller struct {
	log   logx.Logger
	bus   eventbus.Bus
	clock Clock

	mu  sync.Mutex
	cfg Config

	stopOnce sync.Once
	stopCh   chan struct{}
}

func New(cfg Config, log logx.Logger, bus eventbus.Bus) *Controller {
	if log.IsZero() {
		log = logx.Nop()
	}
	if bus == nil {
		bus = eventbus.Nop()
	}
	return &Controller{
		log:    log.With(logx.String("comp", "retry")),
		bus:    bus,
		clock:  SystemClock{},
		cfg:    cfg.normalized(),
		stopCh: make(chan struct{}),
	}
}

// WithClock replaces the time source. It must be called before Execute.
func (c *Controller) WithClock(clk Clock) *Controller {
	if clk != nil {
		c.clock = clk
	}
	return c
}

func (c *Controller) Config() Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// Apply takes effect for executions that start afterwards.
func (c *Controller) Apply(cfg Config) {
	c.mu.Lock()
	c.cfg = cfg.normalized()
	c.mu.Unlock()
}

// Stop aborts every pending retry wait. Attempts already running are left
// alone; their chain ends with ErrStopped instead of the next attempt.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

// Execute runs work until it succeeds, returns a NoRetry error, or the
// attempt budget is spent. It returns the last error.
//
// When ctx already belongs to an attempt, work runs once and the enclosing
// chain stays in charge of retrying.
func (c *Controller) Execute(ctx context.Context, label string, work func(ctx context.Context) error) error {
	if n := Attempt(ctx); n > 0 {
		c.log.Debug("nested execute; running once", logx.String("task", label), logx.Int("outer_attempt", n))
		return c.runAttempt(ctx, label, work)
	}

	cfg := c.Config()
	runID := RunID(ctx)
	log := c.log.With(logx.String("task", label), logx.String("run_id", runID))
	start := c.clock.Now()

	var (
		err     error
		attempt int
	)
	for attempt = 1; attempt <= cfg.MaxAttempts; attempt++ {
		err = c.runAttempt(withAttempt(ctx, attempt), label, work)
		if err == nil {
			break
		}
		if IsNoRetry(err) {
			var nr noRetryError
			errors.As(err, &nr)
			err = nr.err
			log.Warn("task failed; not retryable", logx.Int("attempt", attempt), logx.Err(err))
			break
		}
		if attempt >= cfg.MaxAttempts {
			break
		}

		log.Warn("task attempt failed; retry scheduled",
			logx.Int("attempt", attempt),
			logx.Int("max_attempts", cfg.MaxAttempts),
			logx.Duration("delay", cfg.Delay),
			logx.Err(err))
		c.bus.Publish(eventbus.Event{Type: eventbus.TaskRetryScheduled, Data: eventbus.TaskEvent{
			RunID: runID, Task: label, Attempt: attempt + 1, Error: err.Error(),
		}})

		if werr := c.wait(ctx, cfg.Delay); werr != nil {
			err = fmt.Errorf("%w (last error: %v)", werr, err)
			break
		}
	}
	dur := c.clock.Now().Sub(start)

	if err != nil {
		log.Error("task failed after retries", logx.Int("attempts", attempt), logx.Duration("dur", dur), logx.Err(err))
		c.bus.Publish(eventbus.Event{Type: eventbus.TaskFailed, Data: eventbus.TaskEvent{
			RunID: runID, Task: label, Attempt: attempt, Duration: dur, Error: err.Error(),
		}})
		return err
	}

	ev := eventbus.TaskEvent{RunID: runID, Task: label, Attempt: attempt, Duration: dur}
	if attempt > 1 {
		log.Info("task succeeded on retry", logx.Int("attempt", attempt), logx.Duration("dur", dur))
		c.bus.Publish(eventbus.Event{Type: eventbus.TaskRetrySucceeded, Data: ev})
	} else {
		log.Info("task succeeded", logx.Duration("dur", dur))
	}
	c.bus.Publish(eventbus.Event{Type: eventbus.TaskSucceeded, Data: ev})
	return nil
}

// runAttempt converts a panic into a PanicError so one bad unit of work
// cannot take the scheduler down.
func (c *Controller) runAttempt(ctx context.Context, label string, work func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			pe := &PanicError{Value: r, Stack: debug.Stack()}
			c.log.Error("task panic", logx.String("task", label), logx.Any("panic", r), logx.String("stack", string(pe.Stack)))
			err = pe
		}
	}()
	return work(ctx)
}

func (c *Controller) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		select {
		case <-c.stopCh:
			return ErrStopped
		case <-ctx.Done():
			return ctx.Err()
		default:
			return nil
		}
	}
	t := c.clock.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.stopCh:
		return ErrStopped
	case <-t.C():
		return nil
	}
}
