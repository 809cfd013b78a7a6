package calendar

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	logx "attendbot/pkg/logx"
)

func newTestPolicy(opt Options, p Provider, s LeaveStore) *Policy {
	return NewPolicy(opt,
		NewHolidayCache(p, time.Hour, logx.Nop()),
		NewLeaveCache(s, time.Hour, logx.Nop()),
		logx.Nop())
}

func TestShouldSkipTaskChecksDisabled(t *testing.T) {
	p := &fakeProvider{holidays: []Holiday{{Date: mustDate("2025-01-01"), Label: "New Year"}}}
	pol := newTestPolicy(Options{}, p, &memStore{})

	for _, d := range []string{"2025-01-01", "2025-01-04"} {
		dec := pol.ShouldSkipTask(context.Background(), mustDate(d))
		assert.False(t, dec.Skip, d)
		assert.Equal(t, ReasonRegularDay, dec.Reason, d)
	}
	assert.Zero(t, p.callCount())
}

func TestShouldSkipTaskWeekend(t *testing.T) {
	p := &fakeProvider{}
	pol := newTestPolicy(Options{HolidayCheck: true}, p, nil)

	dec := pol.ShouldSkipTask(context.Background(), mustDate("2025-01-18"))
	assert.True(t, dec.Skip)
	assert.Equal(t, ReasonWeekend, dec.Reason)
	assert.Equal(t, "Saturday", dec.Match)
	assert.Zero(t, p.callCount(), "weekend is decided without the provider")
}

func TestShouldSkipTaskPublicHoliday(t *testing.T) {
	p := &fakeProvider{holidays: []Holiday{{Date: mustDate("2025-01-01"), Label: "New Year's Day"}}}
	pol := newTestPolicy(Options{HolidayCheck: true}, p, nil)

	dec := pol.ShouldSkipTask(context.Background(), mustDate("2025-01-01"))
	assert.True(t, dec.Skip)
	assert.Equal(t, ReasonPublicHoliday, dec.Reason)
	assert.Equal(t, "New Year's Day", dec.Match)

	dec = pol.ShouldSkipTask(context.Background(), mustDate("2025-01-02"))
	assert.False(t, dec.Skip)
	assert.Equal(t, ReasonRegularDay, dec.Reason)
	assert.Equal(t, 1, p.callCount())
}

func TestShouldSkipTaskProviderFailureProceeds(t *testing.T) {
	p := &fakeProvider{err: errBoom}
	pol := newTestPolicy(Options{HolidayCheck: true}, p, nil)

	dec := pol.ShouldSkipTask(context.Background(), mustDate("2025-01-02"))
	assert.False(t, dec.Skip)
	assert.Equal(t, ReasonPolicyCheckFailed, dec.Reason)
}

func TestShouldSkipTaskLeaveTakesPrecedence(t *testing.T) {
	p := &fakeProvider{holidays: []Holiday{{Date: mustDate("2025-01-01"), Label: "New Year"}}}
	s := &memStore{leaves: []Leave{{Start: mustDate("2024-12-30"), End: mustDate("2025-01-05"), Type: "annual"}}}
	pol := newTestPolicy(Options{HolidayCheck: true, AnnualLeaveCheck: true}, p, s)

	for _, d := range []string{"2025-01-01", "2025-01-04"} {
		dec := pol.ShouldSkipTask(context.Background(), mustDate(d))
		assert.True(t, dec.Skip, d)
		assert.Equal(t, ReasonAnnualLeave, dec.Reason, d)
	}
	assert.Zero(t, p.callCount())
}

func TestShouldSkipTaskLeaveRange(t *testing.T) {
	s := &memStore{leaves: []Leave{{Start: mustDate("2025-01-15"), End: mustDate("2025-01-16")}}}
	pol := newTestPolicy(Options{AnnualLeaveCheck: true}, nil, s)

	want := map[string]bool{
		"2025-01-14": false,
		"2025-01-15": true,
		"2025-01-16": true,
		"2025-01-17": false,
	}
	for d, skip := range want {
		dec := pol.ShouldSkipTask(context.Background(), mustDate(d))
		assert.Equal(t, skip, dec.Skip, d)
	}
}

func TestShouldSkipTaskLeaveStoreFailureProceeds(t *testing.T) {
	s := &memStore{err: errBoom}
	pol := newTestPolicy(Options{AnnualLeaveCheck: true}, nil, s)

	dec := pol.ShouldSkipTask(context.Background(), mustDate("2025-01-15"))
	assert.False(t, dec.Skip)
	assert.Equal(t, ReasonRegularDay, dec.Reason)
}

func TestSetOptionsTakesEffect(t *testing.T) {
	pol := newTestPolicy(Options{}, &fakeProvider{}, nil)
	sat := mustDate("2025-01-18")

	assert.False(t, pol.ShouldSkipTask(context.Background(), sat).Skip)
	pol.SetOptions(Options{HolidayCheck: true})
	assert.True(t, pol.ShouldSkipTask(context.Background(), sat).Skip)
}
