package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"attendbot/internal/calendar"
)

var (
	ErrStopped = errors.New("scheduler stopped")
	ErrDropped = errors.New("trigger dropped: previous execution still running")
	ErrSkipped = errors.New("trigger skipped by policy")
	ErrUnknown = errors.New("unknown trigger")
)

// Config controls the scheduler.
type Config struct {
	Timezone string // IANA TZ, e.g. "Asia/Jakarta"; empty means Local
}

// Options are per-trigger settings.
type Options struct {
	// SkipPolicy consults the calendar before each firing.
	SkipPolicy bool
	// Timeout bounds each attempt. Zero means no per-attempt limit.
	Timeout time.Duration
}

// SkipPolicy decides whether a firing on a given civil date is suppressed.
type SkipPolicy interface {
	ShouldSkipTask(ctx context.Context, d calendar.Date) calendar.Decision
}

// Executor runs one execution's retry chain.
type Executor interface {
	Execute(ctx context.Context, label string, work func(ctx context.Context) error) error
	Stop()
}

// RunState tracks whether a trigger has an execution in flight.
type RunState struct {
	running atomic.Bool
}

func (s *RunState) TryAcquire() bool { return s.running.CompareAndSwap(false, true) }
func (s *RunState) Release()         { s.running.Store(false) }
func (s *RunState) Running() bool    { return s.running.Load() }

// Handle identifies a registered trigger.
type Handle struct {
	Name string
	Spec string
}

type trigger struct {
	name  string
	spec  string
	work  func(ctx context.Context) error
	opt   Options
	sched cron.Schedule
	state RunState

	entryID cron.EntryID

	mu      sync.Mutex
	last    LastRun
	fired   uint64
	dropped uint64
	skipped uint64
}

// LastRun describes the most recent execution of a trigger.
type LastRun struct {
	RunID    string
	Started  time.Time
	Duration time.Duration
	Err      string
}

type TriggerInfo struct {
	Name    string
	Spec    string
	Options Options
	Running bool
	Next    []time.Time
	Prev    time.Time
	Last    LastRun
	Fired   uint64
	Dropped uint64
	Skipped uint64
}

type Snapshot struct {
	Timezone string
	Started  bool
	InFlight int
	Triggers []TriggerInfo
}
