package notifier

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"attendbot/internal/eventbus"
	rtsup "attendbot/internal/runtime/supervisor"
	"attendbot/internal/transport"
	logx "attendbot/pkg/logx"
)

var (
	ErrDisabled  = errors.New("notifier disabled")
	ErrQueueFull = errors.New("notifier queue full")
	ErrStopped   = errors.New("notifier stopped")
)

const (
	defaultQueueSize = 64
	historyMax       = 100
	sendTimeout      = 10 * time.Second
)

// Service is safe for concurrent use.
type Service struct {
	mu sync.Mutex

	log    logx.Logger
	sender transport.Sender
	bus    eventbus.Bus

	cfg     Config
	limiter *rate.Limiter

	accepting bool
	queue     chan string
	unsub     func()
	sup       *rtsup.Supervisor

	dmu   sync.Mutex
	dedup map[string]time.Time

	// Outcome of the current run, keyed by run id, consumed by task.succeeded.
	omu      sync.Mutex
	outcomes map[string]eventbus.OutcomeEvent

	hmu     sync.Mutex
	history []HistoryItem

	now func() time.Time
}

func New(cfg Config, sender transport.Sender, log logx.Logger, bus eventbus.Bus) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	if bus == nil {
		bus = eventbus.Nop()
	}
	s := &Service{
		log:      log,
		sender:   sender,
		bus:      bus,
		dedup:    map[string]time.Time{},
		outcomes: map[string]eventbus.OutcomeEvent{},
		now:      time.Now,
	}
	s.applyLocked(cfg)
	return s
}

// Enabled reports whether messages would be delivered.
func (s *Service) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Enabled && s.sender != nil && s.cfg.Target.ChatID != 0
}

// Apply swaps rate, retry, dedup and target settings. QueueSize only takes
// effect on the next Start.
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	s.applyLocked(cfg)
	s.mu.Unlock()
}

func (s *Service) applyLocked(cfg Config) {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 1
	}
	cfg.RetryMax = max(cfg.RetryMax, 0)
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	if cfg.RetryMaxDelay <= 0 {
		cfg.RetryMaxDelay = 10 * time.Second
	}
	cfg.DedupWindow = max(cfg.DedupWindow, 0)
	s.cfg = cfg
	s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
}

// Start subscribes to the bus and starts the send worker. It is a no-op when
// disabled or already running.
//
// The worker outlives ctx so Stop can flush queued messages; Stop bounds it.
func (s *Service) Start(ctx context.Context) {
	if !s.Enabled() {
		return
	}
	s.mu.Lock()
	if s.queue != nil {
		s.mu.Unlock()
		return
	}
	q := make(chan string, s.cfg.QueueSize)
	s.queue = q
	s.accepting = true
	events, unsub := s.bus.Subscribe(64)
	s.unsub = unsub
	sup := rtsup.New(context.WithoutCancel(ctx),
		rtsup.WithLogger(s.log),
		// best-effort: notifier failures never take the app down
		rtsup.WithCancelOnError(false),
	)
	s.sup = sup
	s.mu.Unlock()

	sup.Go0("notifier.events", func(c context.Context) {
		for {
			select {
			case <-c.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				s.handle(c, e)
			}
		}
	})
	sup.GoRestart("notifier.worker", func(c context.Context) error {
		s.workerLoop(c, q)
		return c.Err()
	})
}

// Stop stops intake and drains the queue until ctx is done.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	q, sup, unsub := s.queue, s.sup, s.unsub
	if q == nil || !s.accepting {
		s.mu.Unlock()
		return
	}
	s.accepting = false
	// Notify sends under mu, so closing here cannot race a send.
	close(q)
	s.mu.Unlock()

	unsub()
	err := sup.Wait(ctx)
	if err != nil && ctx.Err() != nil {
		sup.Cancel()
		s.log.Warn("notifier stop deadline reached; dropping queued messages", logx.Int("queued", len(q)))
	}

	s.mu.Lock()
	s.queue, s.sup, s.unsub = nil, nil, nil
	s.mu.Unlock()
}

// Notify enqueues text for delivery. Duplicates inside the dedup window are
// accepted and silently dropped.
func (s *Service) Notify(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.cfg.Enabled {
		return ErrDisabled
	}
	if !s.accepting || s.queue == nil {
		return ErrStopped
	}
	if !s.dedupAllow(text, s.cfg.DedupWindow) {
		s.log.Debug("notification deduped")
		return nil
	}
	select {
	case s.queue <- text:
		return nil
	default:
		s.log.Warn("notification dropped (queue full)", logx.Int("queue_cap", cap(s.queue)))
		return ErrQueueFull
	}
}

// Snapshot returns recently delivered messages, oldest first.
func (s *Service) Snapshot() []HistoryItem {
	s.hmu.Lock()
	defer s.hmu.Unlock()
	return append([]HistoryItem(nil), s.history...)
}

func (s *Service) handle(ctx context.Context, e eventbus.Event) {
	switch e.Type {
	case eventbus.ActionOutcome:
		if oe, ok := e.Data.(eventbus.OutcomeEvent); ok && oe.RunID != "" {
			s.omu.Lock()
			s.outcomes[oe.RunID] = oe
			s.omu.Unlock()
		}
		return
	case eventbus.TaskFailed:
		// Failed runs never reach task.succeeded; forget their outcome.
		if te, ok := e.Data.(eventbus.TaskEvent); ok {
			s.takeOutcome(te.RunID)
		}
	}

	var oe *eventbus.OutcomeEvent
	if e.Type == eventbus.TaskSucceeded {
		if te, ok := e.Data.(eventbus.TaskEvent); ok {
			oe = s.takeOutcome(te.RunID)
		}
	}
	text, ok := Format(e, oe)
	if !ok {
		return
	}
	if err := s.Notify(ctx, text); err != nil && !errors.Is(err, ErrStopped) {
		s.log.Debug("notify failed", logx.String("event", e.Type), logx.Err(err))
	}
}

func (s *Service) takeOutcome(runID string) *eventbus.OutcomeEvent {
	if runID == "" {
		return nil
	}
	s.omu.Lock()
	defer s.omu.Unlock()
	oe, ok := s.outcomes[runID]
	if !ok {
		return nil
	}
	delete(s.outcomes, runID)
	return &oe
}

func (s *Service) workerLoop(ctx context.Context, q <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case text, ok := <-q:
			if !ok {
				return
			}
			s.sendWithRetry(ctx, text)
		}
	}
}

func (s *Service) sendWithRetry(ctx context.Context, text string) {
	s.mu.Lock()
	cfg := s.cfg
	lim := s.limiter
	s.mu.Unlock()

	maxAttempts := 1 + cfg.RetryMax
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := lim.Wait(ctx); err != nil {
			return
		}
		callCtx, cancel := context.WithTimeout(ctx, sendTimeout)
		err := s.sender.SendText(callCtx, cfg.Target, text, &transport.SendOptions{DisablePreview: true})
		cancel()
		if err == nil {
			s.appendHistory(text)
			return
		}
		lastErr = err
		s.log.Debug("notify send failed", logx.Err(err), logx.Int("attempt", attempt), logx.Int("max", maxAttempts))
		if attempt == maxAttempts {
			break
		}

		t := time.NewTimer(retryDelay(cfg, attempt))
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return
		}
	}
	s.log.Warn("notification not delivered", logx.Err(lastErr), logx.Int("attempts", maxAttempts))
}

func (s *Service) appendHistory(text string) {
	s.hmu.Lock()
	s.history = append(s.history, HistoryItem{At: time.Now(), Text: text})
	if len(s.history) > historyMax {
		s.history = s.history[len(s.history)-historyMax:]
	}
	s.hmu.Unlock()
}

// dedupAllow reports whether text may be sent now and, if so, opens a new
// suppression window for it.
func (s *Service) dedupAllow(text string, window time.Duration) bool {
	if window <= 0 {
		return true
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	key := fmt.Sprintf("%x", h.Sum64())
	now := s.now()

	s.dmu.Lock()
	defer s.dmu.Unlock()
	if until, ok := s.dedup[key]; ok && now.Before(until) {
		return false
	}
	for k, until := range s.dedup {
		if !now.Before(until) {
			delete(s.dedup, k)
		}
	}
	s.dedup[key] = now.Add(window)
	return true
}

func retryDelay(cfg Config, attempt int) time.Duration {
	// attempt starts at 1, delay is for the next attempt.
	d := cfg.RetryBase
	for i := 1; i < attempt && d < cfg.RetryMaxDelay; i++ {
		d *= 2
	}
	d = min(d, cfg.RetryMaxDelay)
	// Jitter 0.7..1.3
	j := 0.7 + rand.Float64()*0.6
	return time.Duration(float64(d) * j)
}
