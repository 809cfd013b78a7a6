// Package storage persists the leave list and an audit trail of leave edits.
//
// Drivers:
//   - "file": a JSON or YAML document (chosen by extension) rewritten
//     atomically on every save, plus a JSON Lines audit file next to it
//   - "sqlite": a SQLite database file (modernc.org/sqlite, no cgo)
package storage
