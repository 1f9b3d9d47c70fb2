// Package storage provides audit.Storage backends.
//
// SQLiteStorage uses github.com/mattn/go-sqlite3 with WAL mode, a busy
// timeout and a prepared insert. Recorded times are stored as Unix
// nanoseconds so range filters compare numerically. MemoryStorage keeps
// records in a slice and serves tests and the "memory" backend.
package storage
