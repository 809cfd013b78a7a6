// Package notifier turns engine events into short operator messages.
//
// It subscribes to the event bus and sends one line per finished, failed or
// skipped punch to the configured chat. Sends go through a bounded queue and
// a single worker that applies a rate limit, retries with jittered backoff
// and suppresses identical messages inside a dedup window. Delivery is
// best-effort: a full queue or a failed send never blocks the scheduler.
package notifier
