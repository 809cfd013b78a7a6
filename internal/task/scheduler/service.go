package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"attendbot/internal/eventbus"
	logx "attendbot/pkg/logx"
)

type Service struct {
	log    logx.Logger
	bus    eventbus.Bus
	policy SkipPolicy
	exec   Executor

	loc *time.Location
	now func() time.Time

	mu       sync.Mutex
	c        *cron.Cron
	triggers []*trigger
	started  bool
	stopped  bool
	inflight sync.WaitGroup
	running  int
}

// New validates cfg.Timezone and returns a stopped scheduler.
// policy may be nil when no trigger uses SkipPolicy.
func New(cfg Config, policy SkipPolicy, exec Executor, log logx.Logger, bus eventbus.Bus) (*Service, error) {
	if exec == nil {
		return nil, fmt.Errorf("scheduler: executor is required")
	}
	loc, err := LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	if bus == nil {
		bus = eventbus.Nop()
	}
	log = log.With(logx.String("comp", "scheduler"))
	return &Service{
		log:    log,
		bus:    bus,
		policy: policy,
		exec:   exec,
		loc:    loc,
		now:    time.Now,
		c: cron.New(
			cron.WithParser(specParser),
			cron.WithLocation(loc),
			cron.WithLogger(cronLogger{log: log}),
		),
	}, nil
}

// LoadLocation resolves an IANA zone name. Empty means time.Local.
func LoadLocation(tz string) (*time.Location, error) {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}
	return loc, nil
}

func (s *Service) Location() *time.Location { return s.loc }

// SetClock replaces the time source used to date firings. Call it before Start.
func (s *Service) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Start begins firing registered triggers. It is a no-op after StopAll.
func (s *Service) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.stopped {
		return
	}
	s.started = true
	s.c.Start()
	s.log.Info("scheduler started", logx.String("tz", s.loc.String()), logx.Int("triggers", len(s.triggers)))
}

// StopAll cancels every future firing and every pending retry wait, then
// waits for in-flight executions until ctx is done. Attempts that are already
// running are not interrupted.
func (s *Service) StopAll(ctx context.Context) error {
	start := time.Now()
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	running := s.running
	s.mu.Unlock()

	s.log.Info("stop requested", logx.Int("in_flight", running))

	cronDone := s.c.Stop()
	s.exec.Stop()

	drained := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.inflight.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		s.log.Info("scheduler stopped", logx.Duration("took", time.Since(start)))
		return nil
	case <-ctx.Done():
		s.mu.Lock()
		left := s.running
		s.mu.Unlock()
		s.log.Warn("stop timed out; executions still in flight", logx.Int("in_flight", left), logx.Err(ctx.Err()))
		return ctx.Err()
	}
}
