// Package models defines domain entities and persistence interfaces for the vors party game server.
//
// [Session] is the one persistent entity: a named party session tracking
// its players, its game settings, and the number of rounds played. It
// implements the [Model] interface providing ID assignment, timestamps,
// validation, and soft delete support.
//
// The [Repository] interface defines standard CRUD operations for database
// access; implementations live in internal/repositories.
package models
