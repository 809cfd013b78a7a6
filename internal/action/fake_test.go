package action

import (
	"context"
	"sync"
	"time"

	"attendbot/internal/driver"
)

// fakeDriver models a single toggle. A click flips the label after
// flipAfter probes; flipAfter < 0 means the click never lands.
type fakeDriver struct {
	mu        sync.Mutex
	label     string
	next      string
	flipAfter int
	pending   int
	clicks    int
	probeErr  error
}

func newFakeDriver(label, next string) *fakeDriver {
	return &fakeDriver{label: label, next: next}
}

func (f *fakeDriver) Probe(context.Context, driver.Locator) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.probeErr != nil {
		return "", f.probeErr
	}
	if f.pending > 0 {
		f.pending--
		if f.pending == 0 {
			f.label = f.next
		}
	}
	return f.label, nil
}

func (f *fakeDriver) Perform(_ context.Context, _ driver.Locator, op driver.Op) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if op.Kind != driver.OpClick {
		return nil
	}
	f.clicks++
	switch {
	case f.flipAfter < 0:
	case f.flipAfter == 0:
		f.label = f.next
	default:
		f.pending = f.flipAfter
	}
	return nil
}

func (f *fakeDriver) AwaitCondition(ctx context.Context, loc driver.Locator, pred func(string) bool, timeout time.Duration) error {
	return driver.PollCondition(ctx, func(ctx context.Context) (string, error) {
		return f.Probe(ctx, loc)
	}, pred, timeout, time.Millisecond)
}

func (f *fakeDriver) clickCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clicks
}
