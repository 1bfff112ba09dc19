// Package session defines the Session record, its immutable snapshot view,
// and SQLite persistence. The orchestrator is the record's single writer;
// every other component consumes snapshots or returns deltas.
package session
