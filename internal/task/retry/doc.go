// Package retry runs a unit of work with a bounded number of attempts and a
// fixed delay between them.
//
// The retry chain of one execution is independent of the cron schedule: a
// later firing of the same trigger is dropped by the scheduler's overlap
// guard while the chain is still waiting.
package retry
