// Package database implements the hybrid persistence layer for the arcade:
// an embedded SQLite store that is always available, an optional remote
// PostgreSQL store, and a Manager that composes the two, mirrors writes,
// and reconciles them when both are reachable.
//
// Queries are written once in a canonical PostgreSQL-flavored dialect with
// $N placeholders; the SQLite backend rewrites them into its own dialect
// before executing.
package database
