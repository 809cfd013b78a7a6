// Package punch is the work unit behind each attendance trigger: log in,
// toggle the punch control through the idempotent gate, then run the
// follow-up steps after a fresh clock-in.
package punch
