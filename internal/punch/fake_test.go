package punch

import (
	"context"
	"errors"
	"sync"
	"time"

	"attendbot/internal/driver"
)

// fakePage models the attendance portal: a login form, a toggle whose label
// flips on click, and a confirmation dialog.
type fakePage struct {
	mu        sync.Mutex
	loggedIn  bool
	label     string
	onLabel   string
	offLabel  string
	clicks    int
	stuck     bool
	failLogin int
	dialogErr error
	ops       []string
}

func newFakePage(label string) *fakePage {
	return &fakePage{label: label, onLabel: "Clock Out", offLabel: "Clock In"}
}

func (p *fakePage) Probe(_ context.Context, loc driver.Locator) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch loc.Value {
	case "#toggle":
		if !p.loggedIn {
			return "", driver.ErrNotFound
		}
		return p.label, nil
	case "#welcome":
		if p.loggedIn {
			return "Welcome back", nil
		}
		return "", nil
	}
	return "", driver.ErrNotFound
}

func (p *fakePage) Perform(_ context.Context, loc driver.Locator, op driver.Op) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ops = append(p.ops, string(op.Kind)+":"+loc.Value)
	switch loc.Value {
	case "#submit":
		if p.failLogin > 0 {
			p.failLogin--
			return errors.New("gateway timeout")
		}
		p.loggedIn = true
	case "#toggle":
		p.clicks++
		if p.stuck {
			return nil
		}
		if p.label == p.onLabel {
			p.label = p.offLabel
		} else {
			p.label = p.onLabel
		}
	case "#confirm":
		return p.dialogErr
	}
	return nil
}

func (p *fakePage) AwaitCondition(ctx context.Context, loc driver.Locator, pred func(string) bool, timeout time.Duration) error {
	return driver.PollCondition(ctx, func(ctx context.Context) (string, error) {
		return p.Probe(ctx, loc)
	}, pred, timeout, time.Millisecond)
}

func (p *fakePage) toggleClicks() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clicks
}

func (p *fakePage) performed(op string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, o := range p.ops {
		if o == op {
			return true
		}
	}
	return false
}
