// Package calendar decides whether a scheduled punch should be suppressed on a
// given civil date: weekends, public holidays (remote calendar, cached 24h) and
// personal annual leave (leave store, cached 1h).
//
// Both caches are fail-open: a calendar outage or an unreadable leave list never
// cancels a working day's task.
package calendar
