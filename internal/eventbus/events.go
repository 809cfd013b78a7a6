package eventbus

import "time"

// Event types published by the scheduler, retry controller and work units.
const (
	TaskSkipped        = "task.skipped"
	TaskDropped        = "task.dropped"
	TaskStarted        = "task.started"
	TaskRetryScheduled = "task.retry_scheduled"
	TaskRetrySucceeded = "task.retry_succeeded"
	TaskSucceeded      = "task.succeeded"
	TaskFailed         = "task.failed"

	ActionOutcome  = "punch.outcome"
	FollowUpFailed = "punch.follow_up_failed"

	LeavesChanged = "calendar.leaves_changed"
)

// TaskEvent is the payload of every task.* event.
type TaskEvent struct {
	RunID    string        `json:"run_id"`
	Task     string        `json:"task"`
	Attempt  int           `json:"attempt,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	Reason   string        `json:"reason,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// OutcomeEvent is the payload of punch.* events.
type OutcomeEvent struct {
	RunID     string `json:"run_id"`
	Task      string `json:"task"`
	Action    string `json:"action"`
	Performed bool   `json:"performed"`
	FollowUp  bool   `json:"follow_up"`
	Error     string `json:"error,omitempty"`
}
