// Package repositories implements SQLite persistence for the domain entities.
//
// [SessionRepository] handles party session CRUD with atomic sequence
// generation for human-readable ordering. Soft deletes via deleted_at
// timestamps exclude deleted records from queries by default.
//
// Sequence numbers provide stable ordering (e.g., session #7) independent
// of UUIDs and creation timestamps. The [NextSequence] function atomically
// increments per-table sequence counters in dedicated sequence tables.
package repositories
