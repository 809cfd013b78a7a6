package notifier

import (
	"fmt"
	"strings"
	"time"

	"attendbot/internal/eventbus"
)

// Format renders the operator message for e. ok is false for events that
// are not announced. oe, when set, is the punch outcome of the same run.
func Format(e eventbus.Event, oe *eventbus.OutcomeEvent) (text string, ok bool) {
	switch e.Type {
	case eventbus.TaskSucceeded:
		te, _ := e.Data.(eventbus.TaskEvent)
		var b strings.Builder
		fmt.Fprintf(&b, "✅ %s", te.Task)
		switch {
		case oe == nil:
			b.WriteString(" succeeded")
		case oe.Performed:
			fmt.Fprintf(&b, ": %s done", humanize(oe.Action))
		default:
			fmt.Fprintf(&b, ": already in place (%s not needed)", humanize(oe.Action))
		}
		if te.Attempt > 1 {
			fmt.Fprintf(&b, " after %d attempts", te.Attempt)
		}
		if te.Duration > 0 {
			fmt.Fprintf(&b, " in %s", te.Duration.Round(time.Second))
		}
		return b.String(), true
	case eventbus.TaskFailed:
		te, _ := e.Data.(eventbus.TaskEvent)
		msg := fmt.Sprintf("🚨 %s failed", te.Task)
		if te.Attempt > 1 {
			msg += fmt.Sprintf(" after %d attempts", te.Attempt)
		}
		if te.Error != "" {
			msg += ": " + te.Error
		}
		return msg, true
	case eventbus.TaskSkipped:
		te, _ := e.Data.(eventbus.TaskEvent)
		return fmt.Sprintf("⏭️ %s skipped: %s", te.Task, humanize(te.Reason)), true
	case eventbus.FollowUpFailed:
		oe, _ := e.Data.(eventbus.OutcomeEvent)
		return fmt.Sprintf("⚠️ %s: follow-up failed after %s: %s", oe.Task, humanize(oe.Action), oe.Error), true
	default:
		return "", false
	}
}

func humanize(s string) string {
	switch s {
	case "":
		return "unknown"
	case "turn_on":
		return "clock-in"
	case "turn_off":
		return "clock-out"
	}
	return strings.ReplaceAll(s, "_", " ")
}
