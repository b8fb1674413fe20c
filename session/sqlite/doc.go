// Package sqlite provides a durable core.SessionStore backed by SQLite.
//
// It uses modernc.org/sqlite, a pure Go implementation that requires no
// cgo, keeping cross-compilation trivial. JSON-shaped attributes (profile,
// scores, Q&A history, roadmap) are stored as serialized TEXT columns; the
// store is the system of record for session rows, not a query engine over
// their contents.
package sqlite
