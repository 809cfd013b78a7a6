// Package scheduler fires registered triggers on 5-field cron schedules.
//
// Each firing consults the skip policy, takes the trigger's overlap guard and
// hands the work to the retry controller on its own goroutine. A firing that
// arrives while the previous execution of the same trigger is still running
// (including its retry waits) is dropped, never queued.
package scheduler
