package calendar

import (
	"context"
	"sync"

	logx "attendbot/pkg/logx"
)

// Options toggles the individual checks. Both default to off.
type Options struct {
	HolidayCheck     bool
	AnnualLeaveCheck bool
}

// Policy decides whether a scheduled firing should be suppressed.
// It owns the holiday and leave caches.
type Policy struct {
	log logx.Logger

	holidays *HolidayCache
	leaves   *LeaveCache

	mu  sync.RWMutex
	opt Options
}

func NewPolicy(opt Options, holidays *HolidayCache, leaves *LeaveCache, log logx.Logger) *Policy {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Policy{log: log, holidays: holidays, leaves: leaves, opt: opt}
}

func (p *Policy) Options() Options {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.opt
}

// SetOptions is used by config hot-reload.
func (p *Policy) SetOptions(opt Options) {
	p.mu.Lock()
	p.opt = opt
	p.mu.Unlock()
}

func (p *Policy) Holidays() *HolidayCache { return p.holidays }
func (p *Policy) Leaves() *LeaveCache     { return p.leaves }

// ShouldSkipTask evaluates, in order: annual leave, weekend, public holiday.
// The first match wins. A failing holiday lookup never skips.
func (p *Policy) ShouldSkipTask(ctx context.Context, d Date) Decision {
	opt := p.Options()

	if opt.AnnualLeaveCheck && p.leaves != nil {
		if l, ok := p.leaves.Find(ctx, d); ok {
			return Decision{Skip: true, Reason: ReasonAnnualLeave, Date: d, Match: l.String()}
		}
	}

	if opt.HolidayCheck {
		if d.IsWeekend() {
			return Decision{Skip: true, Reason: ReasonWeekend, Date: d, Match: d.Weekday().String()}
		}
		if p.holidays != nil {
			label, ok, err := p.holidays.Lookup(ctx, d)
			if err != nil {
				p.log.Warn("holiday check failed; proceeding", logx.String("date", d.String()), logx.Err(err))
				return Decision{Skip: false, Reason: ReasonPolicyCheckFailed, Date: d}
			}
			if ok {
				return Decision{Skip: true, Reason: ReasonPublicHoliday, Date: d, Match: label}
			}
		}
	}

	return Decision{Skip: false, Reason: ReasonRegularDay, Date: d}
}
