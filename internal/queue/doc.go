// Package queue implements the priority-ordered download job collection:
// an in-memory ordered item list owned by a Manager, persisted as a full
// SQLite snapshot after every mutation, with periodic byte-copy backups and
// backup-based recovery when the primary database is corrupt.
package queue
