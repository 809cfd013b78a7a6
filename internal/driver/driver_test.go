package driver

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPollConditionSucceedsAfterProbeErrors(t *testing.T) {
	calls := 0
	probe := func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("not ready")
		}
		return "done", nil
	}
	err := PollCondition(context.Background(), probe, func(s string) bool { return s == "done" }, time.Second, time.Millisecond)
	if err != nil {
		t.Fatalf("PollCondition error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestPollConditionTimeout(t *testing.T) {
	probe := func(context.Context) (string, error) { return "pending", nil }
	err := PollCondition(context.Background(), probe, func(s string) bool { return s == "done" }, 20*time.Millisecond, 5*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
}

func TestPollConditionContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	probe := func(context.Context) (string, error) { return "pending", nil }
	err := PollCondition(ctx, probe, func(string) bool { return false }, time.Second, time.Millisecond)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestOpValidate(t *testing.T) {
	if err := Navigate("").Validate(); err == nil {
		t.Fatal("expected error for empty navigate")
	}
	if err := (Op{Kind: "hover"}).Validate(); err == nil {
		t.Fatal("expected error for unknown op")
	}
	for _, op := range []Op{Click(), Type("x"), Select("y"), Navigate("https://example.com")} {
		if err := op.Validate(); err != nil {
			t.Fatalf("%v: %v", op.Kind, err)
		}
	}
}
