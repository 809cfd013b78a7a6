package action

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"attendbot/internal/driver"
	logx "attendbot/pkg/logx"
)

var ErrVerificationTimeout = errors.New("action: state change not observed")

// Kind is the desired transition.
type Kind int

const (
	TurnOn Kind = iota + 1
	TurnOff
)

func (k Kind) String() string {
	switch k {
	case TurnOn:
		return "turn_on"
	case TurnOff:
		return "turn_off"
	default:
		return "unknown"
	}
}

// Labels are the texts the toggle shows in each state. On is the text while
// clocked in (typically the clock-out button), Off the text while clocked out.
type Labels struct {
	On  string
	Off string
}

// Validate requires two labels that stay distinct after normalization;
// otherwise every probe would read as already done.
func (l Labels) Validate() error {
	if strings.TrimSpace(l.On) == "" || strings.TrimSpace(l.Off) == "" {
		return errors.New("both state labels are required")
	}
	if sameLabel(l.On, l.Off) {
		return fmt.Errorf("state labels %q and %q are the same after normalization", l.On, l.Off)
	}
	return nil
}

func (l Labels) desired(k Kind) string {
	if k == TurnOn {
		return l.On
	}
	return l.Off
}

// Decision is the pure verdict on an observed label.
type Decision int

const (
	Perform Decision = iota
	AlreadyDone
)

func (d Decision) String() string {
	if d == AlreadyDone {
		return "already_done"
	}
	return "perform"
}

// Decide compares the observed label to the desired state. Anything other
// than the desired label, including text matching neither state, means
// Perform; verification catches a click that did not land.
func Decide(observed string, kind Kind, labels Labels) Decision {
	if sameLabel(observed, labels.desired(kind)) {
		return AlreadyDone
	}
	return Perform
}

// State is the gate's progress through one invocation.
type State int

const (
	StateUnknown State = iota
	StateProbed
	StateAlreadyInDesiredState
	StateActionPerformed
	StateVerified
	StateVerificationTimedOut
)

func (s State) String() string {
	switch s {
	case StateProbed:
		return "probed"
	case StateAlreadyInDesiredState:
		return "already_in_desired_state"
	case StateActionPerformed:
		return "action_performed"
	case StateVerified:
		return "verified"
	case StateVerificationTimedOut:
		return "verification_timed_out"
	default:
		return "unknown"
	}
}

// Outcome lets callers decide whether dependent steps should run.
type Outcome struct {
	Performed             bool
	ShouldTriggerFollowUp bool
	// Final is the terminal state reached. It is StateProbed or earlier
	// only when Run returned a driver error.
	Final State
}

const DefaultVerifyTimeout = 15 * time.Second

// Target is the element to toggle.
type Target struct {
	Toggle        driver.Locator
	Labels        Labels
	VerifyTimeout time.Duration
}

type Gate struct {
	d      driver.Driver
	prober Prober
	log    logx.Logger
}

func NewGate(d driver.Driver, log logx.Logger) *Gate {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Gate{d: d, prober: NewProber(d), log: log.With(logx.String("comp", "gate"))}
}

// Run probes, decides, performs and verifies. A driver error or a failed
// verification is returned as an error and the outcome must be ignored.
func (g *Gate) Run(ctx context.Context, t Target, kind Kind) (Outcome, error) {
	out := Outcome{Final: StateUnknown}
	if t.VerifyTimeout <= 0 {
		t.VerifyTimeout = DefaultVerifyTimeout
	}
	log := g.log.With(logx.String("kind", kind.String()), logx.String("locator", t.Toggle.String()))

	observed, err := g.prober.Observe(ctx, t.Toggle)
	if err != nil {
		return out, fmt.Errorf("probe toggle: %w", err)
	}
	out.Final = StateProbed

	if Decide(observed, kind, t.Labels) == AlreadyDone {
		out.Final = StateAlreadyInDesiredState
		log.Info("already in desired state; no action", logx.String("observed", observed))
		return out, nil
	}

	if err := g.d.Perform(ctx, t.Toggle, driver.Click()); err != nil {
		return out, fmt.Errorf("click toggle: %w", err)
	}
	out.Final = StateActionPerformed
	log.Info("toggle clicked", logx.String("observed", observed))

	want := t.Labels.desired(kind)
	err = g.d.AwaitCondition(ctx, t.Toggle, func(s string) bool { return sameLabel(s, want) }, t.VerifyTimeout)
	if err != nil {
		if errors.Is(err, driver.ErrTimeout) {
			out.Final = StateVerificationTimedOut
			log.Warn("state change not observed", logx.String("want", want), logx.Duration("timeout", t.VerifyTimeout))
			return out, fmt.Errorf("%w: want %q within %s", ErrVerificationTimeout, want, t.VerifyTimeout)
		}
		return out, fmt.Errorf("verify toggle: %w", err)
	}

	out.Final = StateVerified
	out.Performed = true
	out.ShouldTriggerFollowUp = kind == TurnOn
	log.Info("state change verified", logx.String("label", want))
	return out, nil
}
