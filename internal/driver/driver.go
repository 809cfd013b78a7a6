// Package driver is the boundary to the browser-automation collaborator.
//
// The engine never assumes a document model. It only locates an addressable
// element, reads its text, acts on it, or waits for its text to satisfy a
// predicate.
package driver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrTimeout is returned by AwaitCondition when the predicate never held.
var ErrTimeout = errors.New("driver: condition timed out")

// ErrNotFound is returned when a locator matches nothing.
var ErrNotFound = errors.New("driver: element not found")

// Locator addresses one element. Strategy is free-form for the sidecar
// ("css", "xpath", "text"); Value is the selector itself.
type Locator struct {
	Strategy string `json:"strategy,omitempty"`
	Value    string `json:"value"`
}

func (l Locator) IsZero() bool { return strings.TrimSpace(l.Value) == "" }

func (l Locator) String() string {
	if l.Strategy == "" {
		return l.Value
	}
	return l.Strategy + "=" + l.Value
}

// OpKind enumerates the state-changing operations.
type OpKind string

const (
	OpClick    OpKind = "click"
	OpType     OpKind = "type"
	OpSelect   OpKind = "select"
	OpNavigate OpKind = "navigate"
)

// Op is one state-changing operation. Text is the typed value, the selected
// option or the navigation URL depending on Kind.
type Op struct {
	Kind OpKind `json:"kind"`
	Text string `json:"text,omitempty"`
}

func Click() Op               { return Op{Kind: OpClick} }
func Type(text string) Op     { return Op{Kind: OpType, Text: text} }
func Select(option string) Op { return Op{Kind: OpSelect, Text: option} }
func Navigate(url string) Op  { return Op{Kind: OpNavigate, Text: url} }

func (o Op) Validate() error {
	switch o.Kind {
	case OpClick, OpType, OpSelect:
		return nil
	case OpNavigate:
		if strings.TrimSpace(o.Text) == "" {
			return fmt.Errorf("navigate requires a url")
		}
		return nil
	default:
		return fmt.Errorf("unknown op %q", o.Kind)
	}
}

// Driver is implemented by automation backends.
type Driver interface {
	// Probe returns the current text of the element. It has no side effects.
	Probe(ctx context.Context, loc Locator) (string, error)
	// Perform executes a state-changing operation on the element.
	Perform(ctx context.Context, loc Locator, op Op) error
	// AwaitCondition blocks until pred holds for the element text or timeout
	// passes, in which case it returns an error wrapping ErrTimeout.
	AwaitCondition(ctx context.Context, loc Locator, pred func(string) bool, timeout time.Duration) error
}

// PollCondition is the shared AwaitCondition loop for drivers that can only
// probe. Probe errors are treated as "not yet" until the deadline.
func PollCondition(ctx context.Context, probe func(context.Context) (string, error), pred func(string) bool, timeout, every time.Duration) error {
	if every <= 0 {
		every = 250 * time.Millisecond
	}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(every)
	defer tick.Stop()

	var lastErr error
	for {
		text, err := probe(ctx)
		if err == nil && pred(text) {
			return nil
		}
		if err != nil {
			lastErr = err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			if lastErr != nil {
				return fmt.Errorf("%w after %s (last probe error: %v)", ErrTimeout, timeout, lastErr)
			}
			return fmt.Errorf("%w after %s", ErrTimeout, timeout)
		case <-tick.C:
		}
	}
}
