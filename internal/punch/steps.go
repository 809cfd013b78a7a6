package punch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"attendbot/internal/driver"
)

// Step is one scripted interaction with the remote page.
type Step struct {
	Name    string
	Locator driver.Locator
	Op      driver.Op
	Wait    *Wait
}

// Wait blocks after a step until the element text contains Contains.
// An empty Contains waits for any non-empty text.
type Wait struct {
	Locator  driver.Locator
	Contains string
	Timeout  time.Duration
}

const defaultWaitTimeout = 15 * time.Second

func (s Step) label(i int) string {
	if n := strings.TrimSpace(s.Name); n != "" {
		return n
	}
	return fmt.Sprintf("step %d (%s)", i+1, s.Op.Kind)
}

func (s Step) Validate() error {
	if err := s.Op.Validate(); err != nil {
		return err
	}
	if s.Op.Kind != driver.OpNavigate && s.Locator.IsZero() {
		return fmt.Errorf("%s requires a locator", s.Op.Kind)
	}
	if s.Wait != nil && s.Wait.Locator.IsZero() {
		return fmt.Errorf("wait requires a locator")
	}
	return nil
}

func runSteps(ctx context.Context, d driver.Driver, steps []Step) error {
	for i, st := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := d.Perform(ctx, st.Locator, st.Op); err != nil {
			return fmt.Errorf("%s: %w", st.label(i), err)
		}
		if st.Wait == nil {
			continue
		}
		timeout := st.Wait.Timeout
		if timeout <= 0 {
			timeout = defaultWaitTimeout
		}
		want := strings.ToLower(strings.TrimSpace(st.Wait.Contains))
		pred := func(text string) bool {
			text = strings.ToLower(strings.TrimSpace(text))
			if want == "" {
				return text != ""
			}
			return strings.Contains(text, want)
		}
		if err := d.AwaitCondition(ctx, st.Wait.Locator, pred, timeout); err != nil {
			return fmt.Errorf("%s: wait for %s: %w", st.label(i), st.Wait.Locator, err)
		}
	}
	return nil
}
