package calendar

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Reason explains a skip decision.
type Reason string

const (
	ReasonRegularDay        Reason = "regular_day"
	ReasonWeekend           Reason = "weekend"
	ReasonPublicHoliday     Reason = "public_holiday"
	ReasonAnnualLeave       Reason = "annual_leave"
	ReasonPolicyCheckFailed Reason = "policy_check_failed"
)

// Decision is computed fresh for every firing and never persisted.
type Decision struct {
	Skip   bool
	Reason Reason
	Date   Date
	// Match is the holiday label or the matching leave, when there is one.
	Match string
}

// Holiday is a single all-day calendar event.
type Holiday struct {
	Date  Date
	Label string
}

// Leave is an inclusive range of days off.
type Leave struct {
	Start  Date   `json:"startDate" yaml:"startDate"`
	End    Date   `json:"endDate" yaml:"endDate"`
	Type   string `json:"type" yaml:"type"`
	Reason string `json:"reason" yaml:"reason"`
}

var ErrInvalidLeave = errors.New("invalid leave")

func (l Leave) Validate() error {
	if l.Start.IsZero() || l.End.IsZero() {
		return fmt.Errorf("%w: start and end dates are required", ErrInvalidLeave)
	}
	if l.End.Before(l.Start) {
		return fmt.Errorf("%w: end %s is before start %s", ErrInvalidLeave, l.End, l.Start)
	}
	return nil
}

// Contains compares dates only.
func (l Leave) Contains(d Date) bool {
	return !d.Before(l.Start) && !d.After(l.End)
}

func (l Leave) String() string {
	var b strings.Builder
	b.WriteString(l.Start.String())
	if l.End != l.Start {
		b.WriteString("..")
		b.WriteString(l.End.String())
	}
	if t := strings.TrimSpace(l.Type); t != "" {
		b.WriteString(" [")
		b.WriteString(t)
		b.WriteString("]")
	}
	if r := strings.TrimSpace(l.Reason); r != "" {
		b.WriteString(" ")
		b.WriteString(r)
	}
	return b.String()
}

// Provider fetches public holidays from a remote calendar.
type Provider interface {
	FetchEvents(ctx context.Context, start, end Date) ([]Holiday, error)
}

// LeaveStore is the external source of truth for the leave list.
type LeaveStore interface {
	LoadLeaves(ctx context.Context) ([]Leave, error)
	SaveLeaves(ctx context.Context, leaves []Leave) error
}
