package storage

import (
	"context"
	"errors"
	"time"

	"attendbot/internal/calendar"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": leaves.json / leaves.yaml
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", storage is disabled and leave checks see an
// empty list.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// AuditEntry records an operator edit of the leave list.
type AuditEntry struct {
	At     time.Time `json:"at"`
	Actor  string    `json:"actor,omitempty"`
	Action string    `json:"action"`
	Target string    `json:"target"`
	Error  string    `json:"error,omitempty"`
}

// Store is the persistence API used by the calendar and the leave CLI.
type Store interface {
	calendar.LeaveStore
	AppendAudit(ctx context.Context, e AuditEntry) error
	// Path is the watched file for drivers that support external edits, or "".
	Path() string
	Close() error
}
