// Package sqlite provides persistent storage backed by SQLite.
//
// A single database file holds all persisted state. Schema changes are
// applied through embedded, numbered migration files at startup.
package sqlite
