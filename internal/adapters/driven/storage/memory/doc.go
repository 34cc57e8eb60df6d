// Package memory provides in-memory store implementations, used both in
// production (chat sessions live for the process lifetime only) and as
// fakes in tests.
package memory
