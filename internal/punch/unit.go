package punch

import (
	"context"
	"errors"
	"fmt"

	"attendbot/internal/action"
	"attendbot/internal/driver"
	"attendbot/internal/eventbus"
	"attendbot/internal/task/retry"
	logx "attendbot/pkg/logx"
)

// Site describes the remote page.
type Site struct {
	Login    []Step
	Target   action.Target
	FollowUp []Step
}

func (s Site) Validate() error {
	if s.Target.Toggle.IsZero() {
		return errors.New("site.toggle locator is required")
	}
	if err := s.Target.Labels.Validate(); err != nil {
		return fmt.Errorf("site.clocked_in_label/clocked_out_label: %w", err)
	}
	for i, st := range s.Login {
		if err := st.Validate(); err != nil {
			return fmt.Errorf("site.login[%d]: %w", i, err)
		}
	}
	for i, st := range s.FollowUp {
		if err := st.Validate(); err != nil {
			return fmt.Errorf("site.follow_up[%d]: %w", i, err)
		}
	}
	return nil
}

// Result is what one run observed. The primary outcome and the follow-up
// are reported separately.
type Result struct {
	Outcome     action.Outcome
	FollowUpRan bool
	FollowUpErr error
}

type Unit struct {
	name string
	kind action.Kind
	site Site
	d    driver.Driver
	gate *action.Gate
	log  logx.Logger
	bus  eventbus.Bus
}

func New(name string, kind action.Kind, site Site, d driver.Driver, log logx.Logger, bus eventbus.Bus) (*Unit, error) {
	if d == nil {
		return nil, errors.New("punch: driver is required")
	}
	if kind != action.TurnOn && kind != action.TurnOff {
		return nil, fmt.Errorf("punch %q: unknown action kind", name)
	}
	if err := site.Validate(); err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	if bus == nil {
		bus = eventbus.Nop()
	}
	log = log.With(logx.String("task", name))
	return &Unit{
		name: name,
		kind: kind,
		site: site,
		d:    d,
		gate: action.NewGate(d, log),
		log:  log,
		bus:  bus,
	}, nil
}

// Run satisfies the scheduler's work signature.
func (u *Unit) Run(ctx context.Context) error {
	_, err := u.Execute(ctx)
	return err
}

// Execute logs in and drives the gate. A failed follow-up is logged and
// published but does not fail the execution.
func (u *Unit) Execute(ctx context.Context) (Result, error) {
	var res Result
	runID := retry.RunID(ctx)
	log := u.log.With(logx.String("run_id", runID), logx.Int("attempt", retry.Attempt(ctx)))

	if err := runSteps(ctx, u.d, u.site.Login); err != nil {
		log.Warn("login failed", logx.Err(err))
		return res, fmt.Errorf("login: %w", err)
	}

	out, err := u.gate.Run(ctx, u.site.Target, u.kind)
	if err != nil {
		return res, err
	}
	res.Outcome = out

	if out.ShouldTriggerFollowUp && len(u.site.FollowUp) > 0 {
		res.FollowUpRan = true
		if ferr := runSteps(ctx, u.d, u.site.FollowUp); ferr != nil {
			res.FollowUpErr = ferr
			log.Warn("follow-up failed; primary action stands", logx.Err(ferr))
			u.bus.Publish(eventbus.Event{Type: eventbus.FollowUpFailed, Data: eventbus.OutcomeEvent{
				RunID: runID, Task: u.name, Action: u.kind.String(), Performed: out.Performed, Error: ferr.Error(),
			}})
		} else {
			log.Info("follow-up completed")
		}
	}

	u.bus.Publish(eventbus.Event{Type: eventbus.ActionOutcome, Data: eventbus.OutcomeEvent{
		RunID:     runID,
		Task:      u.name,
		Action:    u.kind.String(),
		Performed: out.Performed,
		FollowUp:  res.FollowUpRan && res.FollowUpErr == nil,
	}})
	log.Info("punch finished",
		logx.Bool("performed", out.Performed),
		logx.Bool("follow_up", out.ShouldTriggerFollowUp),
		logx.String("state", out.Final.String()))
	return res, nil
}
