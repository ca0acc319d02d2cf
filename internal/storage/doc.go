// Package storage persists the history of executed steps.
//
// Two drivers are available:
//   - "file": JSON Lines file, no external dependencies
//   - "sqlite": SQLite database via modernc.org/sqlite
package storage
