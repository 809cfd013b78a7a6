package action

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendbot/internal/driver"
	logx "attendbot/pkg/logx"
)

// The toggle shows "Clock Out" while clocked in and "Clock In" otherwise.
var testLabels = Labels{On: "Clock Out", Off: "Clock In"}

func testTarget(timeout time.Duration) Target {
	return Target{Toggle: driver.Locator{Strategy: "css", Value: "#punch"}, Labels: testLabels, VerifyTimeout: timeout}
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name     string
		observed string
		kind     Kind
		want     Decision
	}{
		{name: "on already on", observed: "Clock Out", kind: TurnOn, want: AlreadyDone},
		{name: "on from off", observed: "Clock In", kind: TurnOn, want: Perform},
		{name: "off already off", observed: "Clock In", kind: TurnOff, want: AlreadyDone},
		{name: "off from on", observed: "Clock Out", kind: TurnOff, want: Perform},
		{name: "whitespace and case", observed: "  clock\n  OUT ", kind: TurnOn, want: AlreadyDone},
		{name: "unrecognized label", observed: "Loading...", kind: TurnOn, want: Perform},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.observed, tt.kind, testLabels))
		})
	}
}

func TestLabelsValidate(t *testing.T) {
	require.NoError(t, testLabels.Validate())
	assert.Error(t, Labels{On: "Clock Out"}.Validate())
	assert.Error(t, Labels{On: "Clock Out", Off: " clock   out"}.Validate())
}

func TestGateTurnOnFresh(t *testing.T) {
	d := newFakeDriver("Clock In", "Clock Out")
	d.flipAfter = 2
	g := NewGate(d, logx.Nop())

	out, err := g.Run(context.Background(), testTarget(time.Second), TurnOn)
	require.NoError(t, err)
	assert.True(t, out.Performed)
	assert.True(t, out.ShouldTriggerFollowUp)
	assert.Equal(t, StateVerified, out.Final)
	assert.Equal(t, 1, d.clickCount())
}

func TestGateTurnOnAlreadyOn(t *testing.T) {
	d := newFakeDriver("Clock Out", "Clock In")
	g := NewGate(d, logx.Nop())

	out, err := g.Run(context.Background(), testTarget(time.Second), TurnOn)
	require.NoError(t, err)
	assert.False(t, out.Performed)
	assert.False(t, out.ShouldTriggerFollowUp)
	assert.Equal(t, StateAlreadyInDesiredState, out.Final)
	assert.Zero(t, d.clickCount(), "no click when already in desired state")
}

func TestGateTurnOffNeverTriggersFollowUp(t *testing.T) {
	d := newFakeDriver("Clock Out", "Clock In")
	g := NewGate(d, logx.Nop())

	out, err := g.Run(context.Background(), testTarget(time.Second), TurnOff)
	require.NoError(t, err)
	assert.True(t, out.Performed)
	assert.False(t, out.ShouldTriggerFollowUp)

	out, err = g.Run(context.Background(), testTarget(time.Second), TurnOff)
	require.NoError(t, err)
	assert.False(t, out.Performed)
	assert.Equal(t, 1, d.clickCount())
}

func TestGateVerificationTimeoutIsFailure(t *testing.T) {
	d := newFakeDriver("Clock In", "Clock Out")
	d.flipAfter = -1
	g := NewGate(d, logx.Nop())

	out, err := g.Run(context.Background(), testTarget(30*time.Millisecond), TurnOn)
	require.ErrorIs(t, err, ErrVerificationTimeout)
	assert.False(t, out.Performed)
	assert.False(t, out.ShouldTriggerFollowUp)
	assert.Equal(t, StateVerificationTimedOut, out.Final)
	assert.Equal(t, 1, d.clickCount())
}

func TestGateProbeError(t *testing.T) {
	d := newFakeDriver("Clock In", "Clock Out")
	d.probeErr = errors.New("session expired")
	g := NewGate(d, logx.Nop())

	out, err := g.Run(context.Background(), testTarget(time.Second), TurnOn)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrVerificationTimeout)
	assert.Equal(t, StateUnknown, out.Final)
	assert.Zero(t, d.clickCount())
}
