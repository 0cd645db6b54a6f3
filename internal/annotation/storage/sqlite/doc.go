// Package sqlite contains SQLite persistence for annotation sessions.
//
// All database read/write operations for session snapshots belong here
// rather than in the annotation package. This keeps the in-memory store
// free of SQL noise and makes it easier to swap storage backends for
// testing.
//
// The schema is managed by golang-migrate from migrations embedded in
// the binary.
package sqlite
