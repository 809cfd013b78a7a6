// Package action turns a state-changing click into an idempotent operation.
//
// The current state is read from the remote page before acting. If it
// already shows the desired state nothing is clicked; otherwise the toggle
// is clicked and the new state must be observed within a bounded wait.
package action
