// Package daemon runs the long-lived clipflow process: it owns the session
// store, the orchestrator, the HTTP API, and the optional ingest watcher,
// and guarantees only one instance runs per machine.
package daemon
